// Package sim implements the card-exploration core: APDU transceiving,
// PIN/ADM verification sequencing, directory walking, FCP interpretation,
// and the two-phase scan orchestrator. It is built on the low-level
// transport and primitives in package card.
package sim

import "fmt"

// FileType classifies a discovered smartcard file.
type FileType int

const (
	FileTypeUnknown FileType = iota
	FileTypeMF
	FileTypeDF
	FileTypeEF
)

func (t FileType) String() string {
	switch t {
	case FileTypeMF:
		return "MF"
	case FileTypeDF:
		return "DF"
	case FileTypeEF:
		return "EF"
	default:
		return "unknown"
	}
}

// FileStructure classifies the record organization of an EF.
type FileStructure int

const (
	StructureUnknown FileStructure = iota
	StructureTransparent
	StructureLinearFixed
	StructureCyclic
)

func (s FileStructure) String() string {
	switch s {
	case StructureTransparent:
		return "transparent"
	case StructureLinearFixed:
		return "linear-fixed"
	case StructureCyclic:
		return "cyclic"
	default:
		return "unknown"
	}
}

// Status is the invalidation/readability state of a file, as last observed.
type Status int

const (
	StatusUnknown Status = iota
	StatusNormal
	StatusInvalidatedUnreadable
	StatusInvalidatedReadable
)

func (s Status) String() string {
	switch s {
	case StatusNormal:
		return "normal"
	case StatusInvalidatedUnreadable:
		return "invalidated-unreadable"
	case StatusInvalidatedReadable:
		return "invalidated-readable"
	default:
		return "unknown"
	}
}

// FileRecord holds everything discovered about one path in the card's file
// system. Fields are filled in by the directory walker (AbsolutePath only),
// then enriched by the 2G pass and again by the 3G pass; the merge rule is
// "2G wins if present, 3G only fills absent fields" (see mergeFrom).
type FileRecord struct {
	AbsolutePath string // hex path, e.g. "3F007F106F07"

	FileType      FileType
	FileStructure FileStructure
	FileSize      uint32
	RecordSize    uint16
	RecordCount   uint16
	Status        Status
	ShortFileID   *byte
	AccessCond2G  []byte

	Content       []byte   // transparent EF content, if read
	RecordContent [][]byte // record-based EF content, if read

	GetResponse2GRaw []byte
	GetResponse3GRaw []byte
}

// mergeFrom folds src's fields into r wherever r's corresponding field is
// currently unset. Called after the 3G pass so that 2G-derived data always
// wins when both passes observed a value.
func (r *FileRecord) mergeFrom(src FileRecord) {
	if r.FileType == FileTypeUnknown {
		r.FileType = src.FileType
	}
	if r.FileStructure == StructureUnknown {
		r.FileStructure = src.FileStructure
	}
	if r.FileSize == 0 {
		r.FileSize = src.FileSize
	}
	if r.RecordSize == 0 {
		r.RecordSize = src.RecordSize
	}
	if r.RecordCount == 0 {
		r.RecordCount = src.RecordCount
	}
	if r.Status == StatusUnknown {
		r.Status = src.Status
	}
	if r.ShortFileID == nil {
		r.ShortFileID = src.ShortFileID
	}
	if r.AccessCond2G == nil {
		r.AccessCond2G = src.AccessCond2G
	}
	if r.GetResponse2GRaw == nil {
		r.GetResponse2GRaw = src.GetResponse2GRaw
	}
	if r.GetResponse3GRaw == nil {
		r.GetResponse3GRaw = src.GetResponse3GRaw
	}
}

// Validate checks the record-based content invariant: record_count == len(content)
// and every record's length equals record_size.
func (r *FileRecord) Validate() error {
	if r.FileStructure != StructureLinearFixed && r.FileStructure != StructureCyclic {
		return nil
	}
	if r.RecordContent == nil {
		return nil
	}
	if len(r.RecordContent) != int(r.RecordCount) {
		return fmt.Errorf("sim: %s: record_count=%d but read %d records", r.AbsolutePath, r.RecordCount, len(r.RecordContent))
	}
	for i, rec := range r.RecordContent {
		if len(rec) != int(r.RecordSize) {
			return fmt.Errorf("sim: %s: record %d length %d, want record_size %d", r.AbsolutePath, i, len(rec), r.RecordSize)
		}
	}
	return nil
}

// VerifyCredential names a PIN/ADM credential slot in the fixed verification
// order (see RunVerifySequence).
type VerifyCredential int

const (
	CredentialADM1 VerifyCredential = iota
	CredentialADM2
	CredentialADM3
	CredentialADM4
	CredentialCHV1
	CredentialCHV2
)

func (c VerifyCredential) String() string {
	switch c {
	case CredentialADM1:
		return "ADM1"
	case CredentialADM2:
		return "ADM2"
	case CredentialADM3:
		return "ADM3"
	case CredentialADM4:
		return "ADM4"
	case CredentialCHV1:
		return "CHV1/GPIN"
	case CredentialCHV2:
		return "CHV2/LPIN"
	default:
		return "unknown"
	}
}

// Generation distinguishes the 2G (legacy) and 3G (USIM) command classing,
// which use different VERIFY (p1,p2,p3) triples for the same credential.
type Generation int

const (
	Generation2G Generation = iota
	Generation3G
)

// ScanConfig is the single configuration type consumed by the orchestrator
// (C8), regardless of whether it was built from CLI flags (§6.1) or from
// config.xml (§6.2) by package scanconfig.
type ScanConfig struct {
	ReaderIndex int

	FullScript   bool // true iff ADM1 was supplied; enables the verify sequence
	UseADM2      bool
	UseADM3      bool
	UseADM4      bool
	CHV1Disabled bool

	ADM1, ADM2, ADM3, ADM4 string // hex strings, empty if unused
	CHV1, CHV2             string

	ReadContent3G bool // read EF content during the 3G pass instead of 2G

	FileSystemXMLPath string // external fallback directory listing, §6.3
	OutputPath        string // replay-script output path, §6.4

	VerifyOverrides *VerifyTable // caller-supplied overrides from customApdu, or nil
}

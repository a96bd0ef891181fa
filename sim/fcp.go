package sim

import (
	"errors"
	"fmt"

	"uiccscan/tlv"
)

// ErrMalformedResponse is returned when a SELECT response cannot be
// interpreted as either a legacy (2G) fixed-layout descriptor or a 3G FCP
// template; the offending record is left with whatever fields were already
// populated (§7's per-field tolerance).
var ErrMalformedResponse = errors.New("sim: malformed select response")

// ParseLegacy interprets a 2G SELECT/GET RESPONSE descriptor using the
// fixed positional layout of §4.6: file size at [2:4], file type at [6],
// 2G access conditions at [8:11], status bitfield at [11], EF structure at
// [13], record size at [14]. Record count is derived, not stored.
func ParseLegacy(data []byte) (FileRecord, error) {
	var rec FileRecord
	if len(data) < 15 {
		return rec, fmt.Errorf("%w: legacy response too short (%d bytes)", ErrMalformedResponse, len(data))
	}

	rec.GetResponse2GRaw = append([]byte(nil), data...)
	rec.FileSize = uint32(data[2])<<8 | uint32(data[3])

	switch data[6] {
	case 0x01:
		rec.FileType = FileTypeMF
	case 0x02:
		rec.FileType = FileTypeDF
	case 0x04:
		rec.FileType = FileTypeEF
	}

	rec.AccessCond2G = append([]byte(nil), data[8:11]...)

	statusByte := data[11]
	valid := statusByte&0x01 != 0
	readableWhenInvalidated := statusByte&0x04 != 0
	switch {
	case valid:
		rec.Status = StatusNormal
	case readableWhenInvalidated:
		rec.Status = StatusInvalidatedReadable
	default:
		rec.Status = StatusInvalidatedUnreadable
	}

	if rec.FileType == FileTypeEF {
		switch data[13] {
		case 0x00:
			rec.FileStructure = StructureTransparent
		case 0x01:
			rec.FileStructure = StructureLinearFixed
		case 0x03:
			rec.FileStructure = StructureCyclic
		}
		if rec.FileStructure == StructureLinearFixed || rec.FileStructure == StructureCyclic {
			rec.RecordSize = uint16(data[14])
			if rec.RecordSize > 0 {
				rec.RecordCount = uint16(rec.FileSize) / rec.RecordSize
			}
		}
	}

	return rec, nil
}

// ParseFCP interprets a 3G FCP template (tag 0x62) per §4.6: File
// Descriptor (0x82), File Size (0x80), Short File Identifier (0x88),
// Proprietary Information (0xA5, nested), and PIN Status Template (0xC6).
// File type is derived as: C6 absent -> EF; C6 present and A5 contains an
// 0x80 -> MF; C6 present and A5 lacks 0x80 -> DF.
func ParseFCP(raw []byte) (FileRecord, error) {
	var rec FileRecord

	outer, err := tlv.Parse(raw)
	if err != nil {
		return rec, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	fcpRecord, err := tlv.FindRecord(0x62, outer)
	if err != nil {
		return rec, fmt.Errorf("%w: no FCP template (tag 0x62): %v", ErrMalformedResponse, err)
	}

	records, err := tlv.Parse(fcpRecord.Value)
	if err != nil {
		return rec, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	rec.GetResponse3GRaw = append([]byte(nil), raw...)

	hasC6 := tlv.HasTag(0xC6, records)
	if !hasC6 {
		rec.FileType = FileTypeEF
	} else if a5, err := tlv.FindValue(0xA5, records); err == nil {
		inner, err := tlv.Parse(a5)
		if err == nil && tlv.HasTag(0x80, inner) {
			rec.FileType = FileTypeMF
		} else {
			rec.FileType = FileTypeDF
		}
	} else {
		rec.FileType = FileTypeDF
	}

	if fileSize, err := tlv.FindValue(0x80, records); err == nil {
		var size uint32
		for _, b := range fileSize {
			size = size<<8 | uint32(b)
		}
		rec.FileSize = size
	}

	if sfi, err := tlv.FindValue(0x88, records); err == nil && len(sfi) >= 1 {
		v := sfi[0] >> 3
		rec.ShortFileID = &v
	}

	if fd, err := tlv.FindValue(0x82, records); err == nil && len(fd) >= 1 {
		switch fd[0] & 0x07 {
		case 0x01:
			rec.FileStructure = StructureTransparent
		case 0x02:
			rec.FileStructure = StructureLinearFixed
		case 0x06:
			rec.FileStructure = StructureCyclic
		}
		if (rec.FileStructure == StructureLinearFixed || rec.FileStructure == StructureCyclic) && len(fd) >= 5 {
			rec.RecordSize = uint16(fd[2])<<8 | uint16(fd[3])
			rec.RecordCount = uint16(fd[4])
		}
	}

	return rec, nil
}

package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"uiccscan/card"
)

// Scanner sequences the full two-phase card exploration (§4.7): init,
// optional 2G verification, 2G directory discovery + read, power-cycle,
// optional 3G verification, 3G enrichment + optional read, emit.
type Scanner struct {
	Reader *card.Reader
	Sink   *ReplayWriter
	Logger *slog.Logger

	// FallbackPaths is consulted when the directory walker reports
	// ErrDiscoveryUnavailable; normally populated by the CLI/config layer
	// from §6.3's external file-system XML. Nil means no fallback is
	// available, and discovery failure is fatal.
	FallbackPaths []string
}

// Run executes the full scan plan against cfg and returns one file record
// per distinct absolute path, in the order first discovered.
// ctx is checked before each file's 2G pass and each file's 3G pass; the
// verification sequences and the directory walk are not interrupted, and a
// single blocking transmit is never interrupted mid-flight, matching the
// card's stop-and-wait protocol (§5).
func (s *Scanner) Run(ctx context.Context, cfg ScanConfig) ([]*FileRecord, error) {
	table := DefaultVerifyTable().Merge(cfg.VerifyOverrides)

	s.Sink.Header("uiccscan", time.Now())
	s.Sink.PowerOn()

	t := NewTransceiver(s.Reader, s.Sink)

	if cfg.FullScript {
		if err := RunVerifySequence(t, cfg, table, Generation2G); err != nil {
			s.Logger.Warn("2G verification had failures", "error", err)
		} else {
			s.Logger.Info("2G verification sequence completed")
		}
	}

	paths, err := Walk(t)
	switch {
	case err == nil:
		s.Logger.Info("directory walk complete", "paths", len(paths))
	case isDiscoveryUnavailable(err):
		if len(s.FallbackPaths) == 0 {
			return nil, fmt.Errorf("directory discovery unavailable and no fallback file list supplied: %w", err)
		}
		s.Logger.Warn("directory discovery unavailable, using external file list", "error", err)
		paths = s.FallbackPaths
	default:
		return nil, err
	}

	order := make([]string, 0, len(paths))
	records := make(map[string]*FileRecord, len(paths))
	for _, p := range paths {
		if _, exists := records[p]; exists {
			continue
		}
		records[p] = &FileRecord{AbsolutePath: p}
		order = append(order, p)
	}

	for _, p := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.scan2G(t, cfg, records[p])
	}

	if err := s.Reader.Reconnect(false); err != nil {
		if err2 := s.Reader.Reconnect(true); err2 != nil {
			return nil, fmt.Errorf("%w: power-cycle failed (warm: %v, cold: %v)", ErrTransport, err, err2)
		}
	}
	s.Sink.PowerOn()

	if cfg.FullScript {
		if err := RunVerifySequence(t, cfg, table, Generation3G); err != nil {
			s.Logger.Warn("3G verification had failures", "error", err)
		} else {
			s.Logger.Info("3G verification sequence completed")
		}
	}

	for _, p := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.scan3G(t, cfg, records[p])
	}

	result := make([]*FileRecord, 0, len(order))
	for _, p := range order {
		rec := records[p]
		if err := rec.Validate(); err != nil {
			s.Logger.Warn("file record failed content invariant, dropping content", "path", p, "error", err)
			rec.RecordContent = nil
		}
		result = append(result, rec)
	}
	return result, nil
}

func (s *Scanner) scan2G(t *Transceiver, cfg ScanConfig, rec *FileRecord) {
	s.Sink.Section(rec.AbsolutePath)
	resp, err := t.SelectPath(rec.AbsolutePath, Generation2G)
	if err != nil {
		s.Logger.Warn("2G select failed", "path", rec.AbsolutePath, "error", err)
		return
	}
	parsed, err := ParseLegacy(resp.Data)
	if err != nil {
		s.Logger.Warn("2G response unparseable", "path", rec.AbsolutePath, "error", err)
		return
	}
	path := rec.AbsolutePath
	*rec = parsed
	rec.AbsolutePath = path

	if cfg.ReadContent3G {
		return
	}
	s.readContent(t, card.CLA_GSM, rec)
}

func (s *Scanner) scan3G(t *Transceiver, cfg ScanConfig, rec *FileRecord) {
	s.Sink.Section(rec.AbsolutePath)
	resp, err := t.SelectPath(rec.AbsolutePath, Generation3G)
	if err != nil {
		s.Logger.Warn("3G select failed", "path", rec.AbsolutePath, "error", err)
		return
	}
	if resp.SW() == card.SW_FILE_INVALIDATED {
		if rec.Status == StatusUnknown {
			rec.Status = StatusInvalidatedUnreadable
		}
		return
	}
	if !resp.IsOK() {
		s.Logger.Warn("3G select returned error", "path", rec.AbsolutePath, "sw", fmt.Sprintf("%04X", resp.SW()))
		return
	}

	parsed, err := ParseFCP(resp.Data)
	if err != nil {
		s.Logger.Warn("3G FCP unparseable", "path", rec.AbsolutePath, "error", err)
		return
	}
	rec.mergeFrom(parsed)

	if !cfg.ReadContent3G {
		return
	}
	s.readContent(t, card.CLA_USIM, rec)
}

// readContent reads an EF's content using the generation-appropriate CLA,
// per §4.7 step 5: record-based EFs via READ RECORD in absolute mode,
// transparent EFs via chunked READ BINARY. A denied read leaves content
// unset but does not abort remaining files.
func (s *Scanner) readContent(t *Transceiver, cla byte, rec *FileRecord) {
	if rec.FileType != FileTypeEF {
		return
	}
	switch rec.FileStructure {
	case StructureLinearFixed, StructureCyclic:
		if rec.RecordCount == 0 {
			return
		}
		records := make([][]byte, 0, rec.RecordCount)
		denied := false
		for n := byte(1); int(n) <= int(rec.RecordCount); n++ {
			resp, err := t.ReadRecordAbsolute(cla, n, byte(rec.RecordSize))
			if err != nil || !resp.IsOK() {
				s.Logger.Warn("read record denied", "path", rec.AbsolutePath, "record", n)
				denied = true
				continue
			}
			records = append(records, resp.Data)
		}
		// §7: content is all-or-nothing for record-based EFs; a single denied
		// record leaves record_count != len(content), so none of it is stored.
		if !denied {
			rec.RecordContent = records
		}
	case StructureTransparent:
		if rec.FileSize == 0 {
			return
		}
		content, err := t.ReadContentChunked(cla, rec.FileSize)
		if err != nil {
			s.Logger.Warn("read binary denied", "path", rec.AbsolutePath, "error", err)
			return
		}
		rec.Content = content
	}
}

func isDiscoveryUnavailable(err error) bool {
	return errors.Is(err, ErrDiscoveryUnavailable)
}

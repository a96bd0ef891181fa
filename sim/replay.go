package sim

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"

	"uiccscan/hexutil"
)

// ReplaySink is the destination for the deterministic protocol trace (§6.4,
// §4.8). It is a data artifact, not a log: replaying it byte-for-byte
// against a cooperative card emulator must reproduce the exact SW/response
// sequence observed during the live scan (§8 invariant 4).
type ReplaySink interface {
	LogExchange(apdu, response []byte, sw uint16)
	Comment(text string)
}

// ReplayWriter implements ReplaySink by appending lines to an underlying
// writer in the grammar of §6.4: a header comment, a .POWER_ON directive,
// one "; <path>" section header per file, and one line per APDU exchange.
type ReplayWriter struct {
	w              *bufio.Writer
	closer         io.Closer
	currentSection string
}

// NewReplayWriter creates (or truncates) the file at path and returns a
// writer over it.
func NewReplayWriter(path string) (*ReplayWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("sim: creating replay output %q: %w", path, err)
	}
	return &ReplayWriter{w: bufio.NewWriter(f), closer: f}, nil
}

// NewReplayWriterTo wraps an arbitrary writer (used by tests to capture
// output in memory without touching the filesystem).
func NewReplayWriterTo(w io.Writer) *ReplayWriter {
	return &ReplayWriter{w: bufio.NewWriter(w), closer: io.NopCloser(nil)}
}

// Header writes the leading generation comment, e.g.
// "; Generated with uiccscan on 2026-07-30 14:03".
func (rw *ReplayWriter) Header(tool string, ts time.Time) {
	fmt.Fprintf(rw.w, "; Generated with %s on %s\n", tool, ts.Format("2006-01-02 15:04"))
}

// PowerOn writes the .POWER_ON directive marking a card power-up.
func (rw *ReplayWriter) PowerOn() {
	fmt.Fprintln(rw.w, ".POWER_ON")
}

// Section writes a "; <formatted-path>" header the first time path is seen
// in sequence; repeated calls with the same path (no intervening section
// change) are a no-op, so a run of exchanges against one file only gets one
// header.
func (rw *ReplayWriter) Section(absolutePath string) {
	if absolutePath == rw.currentSection {
		return
	}
	rw.currentSection = absolutePath
	fmt.Fprintf(rw.w, "; %s\n", hexutil.SplitPath(absolutePath))
}

// Comment writes an explanatory comment line, used e.g. when a credential is
// skipped (CHV1/GPIN disabled).
func (rw *ReplayWriter) Comment(text string) {
	fmt.Fprintf(rw.w, "; %s\n", text)
}

// LogExchange writes one APDU exchange line: "<APDU-hex> [<response-hex>]
// (<SW1SW2>)", omitting the bracketed response when it is empty.
func (rw *ReplayWriter) LogExchange(apdu, response []byte, sw uint16) {
	apduHex := hexutil.Encode(apdu)
	if len(response) == 0 {
		fmt.Fprintf(rw.w, "%s (%04X)\n", apduHex, sw)
		return
	}
	fmt.Fprintf(rw.w, "%s [%s] (%04X)\n", apduHex, hexutil.Encode(response), sw)
}

// Close flushes buffered output and closes the underlying file, if any.
func (rw *ReplayWriter) Close() error {
	if err := rw.w.Flush(); err != nil {
		return err
	}
	return rw.closer.Close()
}

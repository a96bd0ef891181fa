package sim

import (
	"errors"
	"fmt"

	"uiccscan/card"
	"uiccscan/hexutil"
)

// ErrTransport wraps any failure at the card-channel layer (C3): reader
// absent, card absent, transmission failed.
var ErrTransport = errors.New("sim: transport error")

// ErrSelectFailed is returned when a composite SELECT (intermediate or
// terminal) does not return a success status word.
var ErrSelectFailed = errors.New("sim: select failed")

const maxResponseLen = 250 // §4.7 step 5: READ BINARY chunk size

// CardChannel is the minimal transport capability C4 needs: transmit a raw
// APDU and get back a parsed response. card.Reader satisfies this directly
// via its SendAPDU method; tests substitute a fake to exercise the
// transceiver, verify sequencer, and directory walker without hardware.
type CardChannel interface {
	SendAPDU(apdu []byte) (*card.APDUResponse, error)
}

// VerifyAttempt records one VERIFY exchange for the replay-script's
// explanatory output and for §7's "verify log buffer".
type VerifyAttempt struct {
	Credential VerifyCredential
	Generation Generation
	APDU       string
	SW         uint16
	Success    bool
}

// Transceiver composes logical card commands (SELECT, VERIFY, READ HEADER,
// READ RECORD, READ BINARY, GET RESPONSE) on top of card.Reader.SendAPDU,
// logging every non-silent exchange to a ReplaySink and maintaining a
// verify-attempt log for credentials presented via Verify.
type Transceiver struct {
	reader    CardChannel
	sink      ReplaySink
	verifyLog []VerifyAttempt
}

// NewTransceiver wraps an already-connected card channel. sink may be nil,
// in which case exchanges are simply not recorded (used by tests that don't
// need a replay script).
func NewTransceiver(reader CardChannel, sink ReplaySink) *Transceiver {
	return &Transceiver{reader: reader, sink: sink}
}

// VerifyLog returns every VERIFY attempt recorded so far, in issue order.
func (t *Transceiver) VerifyLog() []VerifyAttempt {
	return t.verifyLog
}

// Comment writes an explanatory line to the replay sink, e.g. noting a
// credential the verify sequencer skipped. A no-op when no sink is attached.
func (t *Transceiver) Comment(text string) {
	if t.sink != nil {
		t.sink.Comment(text)
	}
}

// send transmits apdu and, unless silent, appends the exchange to the
// replay sink in the canonical "<apdu> [<response>] (<SW>)" form.
func (t *Transceiver) send(apdu []byte, silent bool) (*card.APDUResponse, error) {
	resp, err := t.reader.SendAPDU(apdu)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if !silent && t.sink != nil {
		t.sink.LogExchange(apdu, resp.Data, resp.SW())
	}
	return resp, nil
}

// Send issues a raw APDU and logs it to the replay sink.
func (t *Transceiver) Send(apdu []byte) (*card.APDUResponse, error) {
	return t.send(apdu, false)
}

// SendSilent issues a raw APDU without recording it to the replay sink. The
// directory walker's file-type probes (§4.5) do not call it; they go through
// SelectPathSilent, which uses the same unrecorded path.
func (t *Transceiver) SendSilent(apdu []byte) (*card.APDUResponse, error) {
	return t.send(apdu, true)
}

// SelectPath performs the composite SELECT described in §4.3: a hex path is
// consumed two bytes (one FID) at a time. Intermediate selections use
// 2G-classic framing regardless of generation (the source always selects
// intermediate DFs with CLA A0); the terminal selection is framed per gen
// and followed by a GET RESPONSE to fetch the file's descriptor (legacy
// SW2-length response in 2G, FCP template in 3G).
//
// Returns the terminal GET RESPONSE's APDUResponse (carrying the raw
// descriptor bytes). When the terminal SELECT itself answers 9000 in 2G, or
// 6283 (file invalidated) in either generation, that SELECT response is
// returned instead and no GET RESPONSE is issued.
func (t *Transceiver) SelectPath(hexPath string, gen Generation) (*card.APDUResponse, error) {
	return t.selectPath(hexPath, gen, false)
}

// SelectPathSilent performs the same composite SELECT as SelectPath but
// without recording any of its exchanges to the replay sink. Used by the
// directory walker for bookkeeping selects (file-type probes, and restoring
// current-DF context after a probe or a back-stack pop) that are not part
// of the scanner's logged protocol trace.
func (t *Transceiver) SelectPathSilent(hexPath string, gen Generation) (*card.APDUResponse, error) {
	return t.selectPath(hexPath, gen, true)
}

func (t *Transceiver) selectPath(hexPath string, gen Generation, silent bool) (*card.APDUResponse, error) {
	path, err := hexutil.Decode(hexPath)
	if err != nil {
		return nil, fmt.Errorf("sim: invalid path %q: %w", hexPath, err)
	}
	if len(path) < 2 || len(path)%2 != 0 {
		return nil, fmt.Errorf("sim: path %q is not a sequence of 2-byte FIDs", hexPath)
	}

	for i := 0; i+2 < len(path); i += 2 {
		fid := path[i : i+2]
		apdu := append([]byte{card.CLA_GSM, card.INS_SELECT, 0x00, 0x00, 0x02}, fid...)
		resp, err := t.send(apdu, silent)
		if err != nil {
			return nil, err
		}
		if !resp.IsOK() {
			return nil, fmt.Errorf("%w: intermediate select of %X: SW=%04X", ErrSelectFailed, fid, resp.SW())
		}
	}

	fid := path[len(path)-2:]
	var selApdu []byte
	if gen == Generation3G {
		selApdu = append([]byte{card.CLA_USIM, card.INS_SELECT, 0x00, 0x04, 0x02}, fid...)
	} else {
		selApdu = append([]byte{card.CLA_GSM, card.INS_SELECT, 0x00, 0x00, 0x02}, fid...)
	}
	selResp, err := t.send(selApdu, silent)
	if err != nil {
		return nil, err
	}

	switch {
	case gen == Generation2G && selResp.IsOK():
		return selResp, nil
	case selResp.SW1 == 0x9F || selResp.SW1 == 0x61:
		getResp := []byte{card.CLA_GSM, card.INS_GET_RESPONSE, 0x00, 0x00, selResp.SW2}
		if gen == Generation3G {
			getResp[0] = card.CLA_USIM
		}
		return t.send(getResp, silent)
	case selResp.SW() == card.SW_FILE_INVALIDATED:
		return selResp, nil
	default:
		return nil, fmt.Errorf("%w: terminal select of %X: SW=%04X", ErrSelectFailed, fid, selResp.SW())
	}
}

// ReadHeader issues the proprietary READ HEADER command used by the
// directory walker (§4.5), P1=index, P2=0x04 (absolute mode), P3=0x17.
func (t *Transceiver) ReadHeader(index byte) (*card.APDUResponse, error) {
	apdu := []byte{card.CLA_GSM, card.INS_READ_HEADER, index, card.RecordModeAbsolute, 0x17}
	return t.Send(apdu)
}

// ReadRecordAbsolute reads record number n (1-based) of the currently
// selected EF using absolute addressing mode (P2=0x04), per §4.7 step 5.
func (t *Transceiver) ReadRecordAbsolute(cla byte, n byte, recordSize byte) (*card.APDUResponse, error) {
	apdu := []byte{cla, card.INS_READ_RECORD, n, card.RecordModeAbsolute, recordSize}
	return t.Send(apdu)
}

// ReadBinaryChunk reads up to maxResponseLen bytes of a transparent EF
// starting at offset, encoded big-endian 16-bit across P1/P2.
func (t *Transceiver) ReadBinaryChunk(cla byte, offset int, length byte) (*card.APDUResponse, error) {
	p1 := byte(offset >> 8)
	p2 := byte(offset)
	apdu := []byte{cla, card.INS_READ_BINARY, p1, p2, length}
	return t.Send(apdu)
}

// Verify issues a single VERIFY command and records the outcome under label
// cred/gen in the verify log, for both the replay script's explanatory
// comments and the orchestrator's non-fatal error reporting (§7).
func (t *Transceiver) Verify(cred VerifyCredential, gen Generation, cla byte, triple Triple, code []byte) (bool, error) {
	apdu := append([]byte{cla, card.INS_VERIFY, triple.P1, triple.P2, triple.P3}, code...)
	resp, err := t.Send(apdu)
	if err != nil {
		return false, err
	}
	success := resp.IsOK()
	t.verifyLog = append(t.verifyLog, VerifyAttempt{
		Credential: cred,
		Generation: gen,
		APDU:       hexutil.Encode(apdu),
		SW:         resp.SW(),
		Success:    success,
	})
	return success, nil
}

// ReadContentChunked reads a full transparent EF of the given size via
// repeated READ BINARY calls, advancing the offset by maxResponseLen each
// time (§8 S5). A denied chunk does not stop the read: offset still advances
// past it and the remaining chunks are attempted, matching the original
// scanner's read loop; the caller treats any non-nil error as grounds to
// discard the whole content per §7's ReadContentDenied rule.
func (t *Transceiver) ReadContentChunked(cla byte, size uint32) ([]byte, error) {
	var out []byte
	var firstErr error
	offset := 0
	for offset < int(size) {
		remaining := int(size) - offset
		chunkLen := remaining
		if chunkLen > maxResponseLen {
			chunkLen = maxResponseLen
		}
		resp, err := t.ReadBinaryChunk(cla, offset, byte(chunkLen))
		switch {
		case err != nil:
			if firstErr == nil {
				firstErr = err
			}
		case !resp.IsOK():
			if firstErr == nil {
				firstErr = fmt.Errorf("%w: read binary at offset %d: SW=%04X", ErrReadContentDenied, offset, resp.SW())
			}
		default:
			out = append(out, resp.Data...)
		}
		offset += chunkLen
	}
	return out, firstErr
}

// ErrReadContentDenied is returned by ReadContentChunked when a READ BINARY
// chunk does not succeed; the remaining chunks are still read, and the
// caller discards the content (§7). Denied READ RECORDs are handled by the
// orchestrator directly and do not produce this error.
var ErrReadContentDenied = errors.New("sim: read content denied")

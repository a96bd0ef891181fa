package card

import (
	"fmt"
)

// APDU response status words
const (
	SW_OK                       = 0x9000 // Success
	SW_FILE_NOT_FOUND           = 0x6A82 // File not found
	SW_RECORD_NOT_FOUND         = 0x6A83 // Record not found
	SW_WRONG_LENGTH             = 0x6700 // Wrong length
	SW_SECURITY_NOT_SATISFIED   = 0x6982 // Security status not satisfied
	SW_AUTH_FAILED              = 0x6983 // Authentication method blocked
	SW_REF_DATA_NOT_FOUND       = 0x6984 // Reference data not found
	SW_CONDITIONS_NOT_SATISFIED = 0x6985 // Conditions of use not satisfied
	SW_WRONG_P1P2               = 0x6A86 // Incorrect P1 P2
	SW_INS_NOT_SUPPORTED        = 0x6D00 // Instruction not supported
	SW_CLA_NOT_SUPPORTED        = 0x6E00 // Class not supported
	SW_NO_MORE_ENTRIES          = 0x9402 // Proprietary: read-header directory exhausted
	SW_FILE_INVALIDATED         = 0x6283 // Selected file is invalidated
)

// APDU instruction bytes
const (
	INS_SELECT       = 0xA4
	INS_READ_BINARY  = 0xB0
	INS_READ_RECORD  = 0xB2
	INS_GET_RESPONSE = 0xC0
	INS_VERIFY       = 0x20
	INS_STATUS       = 0xF2
	INS_READ_HEADER  = 0xE8 // proprietary directory-walk command, legacy class only
)

// READ RECORD / READ HEADER addressing modes (P2), ISO 7816-4 §6.5.3
const (
	RecordModeNext     = 0x02
	RecordModePrevious = 0x03
	RecordModeAbsolute = 0x04
)

// Legacy and modern instruction classes.
const (
	CLA_GSM = 0xA0 // 2G / legacy class byte
	CLA_USIM = 0x00 // 3G / modern class byte
)

// APDUResponse represents a response from the card
type APDUResponse struct {
	Data []byte
	SW1  byte
	SW2  byte
}

// SW returns the status word as uint16
func (r *APDUResponse) SW() uint16 {
	return uint16(r.SW1)<<8 | uint16(r.SW2)
}

// IsOK returns true if the response indicates success
func (r *APDUResponse) IsOK() bool {
	return r.SW1 == 0x90 && r.SW2 == 0x00
}

// HasMoreData returns true if more data is available (SW1 = 0x61)
func (r *APDUResponse) HasMoreData() bool {
	return r.SW1 == 0x61
}

// NeedsRetry returns true if the command should be retried with correct length (SW1 = 0x6C)
func (r *APDUResponse) NeedsRetry() bool {
	return r.SW1 == 0x6C
}

// Error returns an error if the response is not OK
func (r *APDUResponse) Error() error {
	if r.IsOK() || r.HasMoreData() {
		return nil
	}
	return fmt.Errorf("APDU error: SW=%04X (%s)", r.SW(), SWToString(r.SW()))
}

// SWToString converts status word to human-readable string
func SWToString(sw uint16) string {
	switch sw {
	case SW_OK:
		return "Success"
	case SW_FILE_NOT_FOUND:
		return "File not found"
	case SW_RECORD_NOT_FOUND:
		return "Record not found"
	case SW_WRONG_LENGTH:
		return "Wrong length"
	case SW_SECURITY_NOT_SATISFIED:
		return "Security status not satisfied"
	case SW_AUTH_FAILED:
		return "Authentication method blocked"
	case SW_REF_DATA_NOT_FOUND:
		return "Reference data not found"
	case SW_CONDITIONS_NOT_SATISFIED:
		return "Conditions of use not satisfied"
	case SW_WRONG_P1P2:
		return "Incorrect P1 P2"
	case SW_INS_NOT_SUPPORTED:
		return "Instruction not supported"
	case SW_CLA_NOT_SUPPORTED:
		return "Class not supported"
	case SW_NO_MORE_ENTRIES:
		return "No more directory entries"
	case SW_FILE_INVALIDATED:
		return "File invalidated"
	default:
		sw1 := byte(sw >> 8)
		sw2 := byte(sw)
		if sw1 == 0x61 {
			return fmt.Sprintf("%d bytes available", sw2)
		}
		if sw1 == 0x6C {
			return fmt.Sprintf("Retry with Le=%d", sw2)
		}
		if sw1 == 0x63 && (sw2&0xF0) == 0xC0 {
			return fmt.Sprintf("PIN verification failed, %d attempts remaining", sw2&0x0F)
		}
		return "Unknown error"
	}
}

// SendAPDU transmits a raw APDU and parses the trailing status word off the response.
// This is the only place in the card package that talks to the transport; every
// higher-level command (SELECT, VERIFY, READ HEADER, ...) is built on top of it by
// the sim package so that each exchange can be logged to the replay sink uniformly.
func (r *Reader) SendAPDU(apdu []byte) (*APDUResponse, error) {
	raw, err := r.Transmit(apdu)
	if err != nil {
		return nil, err
	}

	if len(raw) < 2 {
		return nil, fmt.Errorf("response too short: %d bytes", len(raw))
	}

	resp := &APDUResponse{
		Data: raw[:len(raw)-2],
		SW1:  raw[len(raw)-2],
		SW2:  raw[len(raw)-1],
	}

	return resp, nil
}

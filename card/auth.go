package card

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// PIN/ADM key reference numbers. Nothing in this module frames a VERIFY
// from these constants: the VERIFY P1/P2/P3 wire values come from the
// caller's configuration (some card families place ADM1 at a non-standard
// P2, see sim.VerifyTable), and attempts are labelled by sim.VerifyCredential.
const (
	PIN_CHV1      = 0x01
	PIN_CHV2      = 0x02
	PIN_ADM1      = 0x0A
	PIN_ADM2      = 0x0B
	PIN_ADM3      = 0x0C
	PIN_ADM4      = 0x0D
	PIN_UNIVERSAL = 0x11
)

// ParseADMKey parses an ADM key from string format
// Supports:
// - Hex format (16 chars): "F38A3DECF6C7D239"
// - Decimal format (8 digits): "77111606" -> ASCII bytes "77111606"
func ParseADMKey(keyStr string) ([]byte, error) {
	keyStr = strings.TrimSpace(keyStr)

	// Check if it's a hex string (16 hex characters = 8 bytes)
	if len(keyStr) == 16 && isHexString(keyStr) {
		return hex.DecodeString(keyStr)
	}

	// Check if it's a decimal PIN (8 digits) - convert to ASCII
	if len(keyStr) == 8 && isDecimalString(keyStr) {
		return []byte(keyStr), nil
	}

	// Try to decode as hex anyway for other lengths
	if isHexString(keyStr) && len(keyStr)%2 == 0 {
		return hex.DecodeString(keyStr)
	}

	// Otherwise treat as ASCII
	if len(keyStr) <= 8 {
		return []byte(keyStr), nil
	}

	return nil, fmt.Errorf("invalid ADM key format: '%s' (expected 16 hex chars or 8 digit decimal)", keyStr)
}

// isHexString checks if string contains only hex characters
func isHexString(s string) bool {
	matched, _ := regexp.MatchString("^[0-9A-Fa-f]+$", s)
	return matched
}

// isDecimalString checks if string contains only decimal digits
func isDecimalString(s string) bool {
	matched, _ := regexp.MatchString("^[0-9]+$", s)
	return matched
}

// KeyToHex converts key bytes to hex string for display
func KeyToHex(key []byte) string {
	return strings.ToUpper(hex.EncodeToString(key))
}

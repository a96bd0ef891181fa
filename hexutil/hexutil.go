// Package hexutil normalizes and converts hex strings used throughout the
// scanner: file paths, APDU bodies, ADM/CHV codes, and replay-script text.
package hexutil

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Normalize strips whitespace and any non-hex characters from s and upper-cases
// the result. Card dumps and config files often carry spaces, colons or
// newlines between byte pairs ("3F 00", "3F:00").
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'A' && r <= 'F':
			b.WriteRune(r)
		case r >= 'a' && r <= 'f':
			b.WriteRune(r - 'a' + 'A')
		}
	}
	return b.String()
}

// Decode normalizes s and decodes it to bytes. Returns an error if the
// normalized string has odd length.
func Decode(s string) ([]byte, error) {
	norm := Normalize(s)
	if len(norm)%2 != 0 {
		return nil, fmt.Errorf("hexutil: odd-length hex string %q (normalized %q)", s, norm)
	}
	return hex.DecodeString(norm)
}

// Encode renders b as an upper-case hex string with no separators.
func Encode(b []byte) string {
	return strings.ToUpper(hex.EncodeToString(b))
}

// SplitPath slices a hex path into its 2-byte file-identifier components,
// joined with "/", for display in replay-script section headers
// (e.g. "3F007F106F07" -> "3F00/7F10/6F07").
func SplitPath(hexPath string) string {
	norm := Normalize(hexPath)
	var parts []string
	for i := 0; i+4 <= len(norm); i += 4 {
		parts = append(parts, norm[i:i+4])
	}
	return strings.Join(parts, "/")
}

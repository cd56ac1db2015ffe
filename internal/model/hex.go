package model

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseHex parses a base-16 quantity with an optional 0x prefix.
func ParseHex(s string) (uint64, error) {
	digits := strings.TrimPrefix(s, "0x")
	v, err := strconv.ParseUint(digits, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse hex %q: %w", s, err)
	}
	return v, nil
}

// DecodeHex is ParseHex with a zero fallback: malformed input decodes to 0.
func DecodeHex(s string) uint64 {
	v, err := ParseHex(s)
	if err != nil {
		return 0
	}
	return v
}

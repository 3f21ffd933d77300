package util

import (
	"strconv"
	"strings"
)

// NormalizeTicker trims and upper-cases a user-typed symbol.
func NormalizeTicker(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ParseIntDefault returns def for an empty or non-numeric s.
func ParseIntDefault(s string, def int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return v
	}
	return def
}

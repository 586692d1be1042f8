package domain

import "strings"

func normalizeText(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// StringPtr is a small helper for building nullable columns.
func StringPtr(value string) *string {
	return &value
}

// IntPtr is a small helper for building optional integer fields.
func IntPtr(value int) *int {
	return &value
}

package field

import "strings"

// Normalization is applied per field before encoding so that semantically
// equal inputs map to the same element.

// NormalizeFullName trims, collapses internal whitespace and upper-cases.
func NormalizeFullName(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

// NormalizeDOB trims surrounding whitespace. Dates are compared verbatim.
func NormalizeDOB(s string) string {
	return strings.TrimSpace(s)
}

// NormalizeIDNumber trims and upper-cases.
func NormalizeIDNumber(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

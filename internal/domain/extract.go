package domain

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	zipPattern       = regexp.MustCompile(`\b\d{5}\b`)
	townPattern      = regexp.MustCompile(`,\s*([^,]+?)\s*,\s*[A-Z]{2}\s*\d{5}(?:-\d{4})?\s*$`)
	censusZIPPattern = regexp.MustCompile(`ZCTA5 (\d{5})`)
	validZIPPattern  = regexp.MustCompile(`^\d{5}$`)
)

// ExtractZIP returns the first five-digit token in a street address.
func ExtractZIP(address string) (string, error) {
	zip := zipPattern.FindString(address)
	if zip == "" {
		return "", fmt.Errorf("%w: %q", ErrUnresolvedZIP, address)
	}
	return zip, nil
}

// ExtractTown returns the segment before ", ST 12345" in a street address.
func ExtractTown(address string) (string, error) {
	m := townPattern.FindStringSubmatch(strings.TrimSpace(address))
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrUnresolvedTown, address)
	}
	return m[1], nil
}

// ZIPFromCensusName parses Census geography names such as "ZCTA5 11021".
func ZIPFromCensusName(name string) (string, bool) {
	m := censusZIPPattern.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// NormalizeZIP left-pads numeric ZIPs that lost leading zeros in spreadsheets.
func NormalizeZIP(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	if i := strings.IndexByte(s, '.'); i >= 0 && strings.Trim(s[i+1:], "0") == "" {
		s = s[:i]
	}
	for len(s) < 5 {
		s = "0" + s
	}
	return s
}

// ValidZIP reports whether s is exactly five digits.
func ValidZIP(s string) bool {
	return validZIPPattern.MatchString(s)
}

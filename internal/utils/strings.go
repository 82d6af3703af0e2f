package utils

import (
	"strings"

	"github.com/samber/lo"
)

// NormalizeSpace collapses repeated whitespace into a single space.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeSeatNumbers trims and upper-cases seat numbers, dropping blanks.
// Order is kept; duplicates are kept so callers can reject them.
func NormalizeSeatNumbers(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// DuplicateSeats returns seat numbers that appear more than once.
func DuplicateSeats(seats []string) []string {
	return lo.FindDuplicates(seats)
}

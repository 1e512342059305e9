// Package strings normalizes configured string lists: country codes,
// keywords, broker addresses.
package strings

import (
	"strings"
)

// Normalize trims each value, applies fold when non-nil, and drops empties and
// duplicates. Order is preserved; nil in gives nil out.
//
//	Normalize([]string{" ru", "RU", "", "ir "}, strings.ToUpper)
//	// []string{"RU", "IR"}
func Normalize(values []string, fold func(string) string) []string {
	if values == nil {
		return nil
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if fold != nil {
			v = fold(v)
		}
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}

// Upper normalizes country codes.
func Upper(values []string) []string {
	return Normalize(values, strings.ToUpper)
}

// Lower normalizes keywords for case-insensitive matching.
func Lower(values []string) []string {
	return Normalize(values, strings.ToLower)
}

// SplitList splits a comma separated value and normalizes the parts without
// changing case.
func SplitList(s string) []string {
	out := Normalize(strings.Split(s, ","), nil)
	if len(out) == 0 {
		return nil
	}
	return out
}

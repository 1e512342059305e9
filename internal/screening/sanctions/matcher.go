// Package sanctions screens entity names and countries against a static
// sanctions list.
//
// Name similarity is the Ratcliff/Obershelp ratio (2*M/T over matching blocks)
// computed case-insensitively. Entries are scanned in list order and the first
// one strictly above the threshold is reported, not the best one.
package sanctions

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/pmezard/go-difflib/difflib"

	"geopulse/internal/screening/policy"
)

// ReasonClear is returned when neither the country nor the name matched.
const ReasonClear = "Clear"

// Result is the outcome of a single screening.
type Result struct {
	IsMatch bool
	Reason  string

	// Set for name matches only.
	Entry        *Entry
	Similarity   float64
	EditDistance int
}

// Matcher is safe for concurrent use; its tables never change after New.
type Matcher struct {
	entries   List
	upper     [][]string
	countries map[string]struct{}
	threshold float64
}

// New builds a matcher over list using the policy's sanctioned countries and
// similarity threshold.
func New(list List, p policy.Policy) *Matcher {
	m := &Matcher{
		entries:   make(List, len(list)),
		upper:     make([][]string, len(list)),
		countries: make(map[string]struct{}, len(p.SanctionedCountries)),
		threshold: p.SimilarityThreshold,
	}
	copy(m.entries, list)
	for i, e := range m.entries {
		m.upper[i] = runes(strings.ToUpper(e.Name))
	}
	for _, c := range p.SanctionedCountries {
		m.countries[strings.ToUpper(c)] = struct{}{}
	}
	return m
}

// NewFromFile loads the list at path and builds a matcher. Load failures do
// not stop the service: the matcher falls back to an empty list and only the
// country check remains effective. Callers should alert on the logged error.
func NewFromFile(path string, p policy.Policy, logger *slog.Logger) *Matcher {
	list, err := LoadCSV(path)
	if err != nil {
		logger.Error("sanctions list failed to load, name screening disabled",
			"path", path,
			"error", err,
		)
		return New(nil, p)
	}
	logger.Info("sanctions list loaded", "path", path, "entries", len(list))
	return New(list, p)
}

// Len reports the number of loaded entries.
func (m *Matcher) Len() int {
	return len(m.entries)
}

// Match screens name and countryCode. A hard-sanctioned country short-circuits
// name matching.
func (m *Matcher) Match(name, countryCode string) Result {
	if _, ok := m.countries[strings.ToUpper(countryCode)]; ok {
		return Result{
			IsMatch: true,
			Reason:  fmt.Sprintf("Country %s is strictly sanctioned.", countryCode),
		}
	}

	query := runes(strings.ToUpper(name))
	for i := range m.entries {
		sim := Similarity(query, m.upper[i])
		if sim <= m.threshold {
			continue
		}
		entry := m.entries[i]
		return Result{
			IsMatch:      true,
			Reason:       matchReason(name, entry, sim),
			Entry:        &entry,
			Similarity:   sim,
			EditDistance: levenshtein.ComputeDistance(strings.ToUpper(name), strings.ToUpper(entry.Name)),
		}
	}
	return Result{Reason: ReasonClear}
}

func matchReason(name string, e Entry, sim float64) string {
	pct := int(math.RoundToEven(sim * 100))
	detail := e.Type
	if e.ListSource != "" {
		if detail != "" {
			detail += ", "
		}
		detail += e.ListSource
	}
	return fmt.Sprintf("Name Match Detected: '%s' is %d%% similar to sanctioned entity '%s' (%s)", name, pct, e.Name, detail)
}

// Similarity is the Ratcliff/Obershelp ratio of two rune sequences.
func Similarity(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	return difflib.NewMatcher(a, b).Ratio()
}

// Ratio is Similarity over plain strings, case-sensitive.
func Ratio(a, b string) float64 {
	return Similarity(runes(a), runes(b))
}

func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

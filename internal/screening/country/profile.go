package country

import "strings"

// Profile holds the static risk fundamentals of a country. Each factor is on a
// 0..10 scale where lower is safer.
type Profile struct {
	Code          string
	Stability     int
	SanctionLevel int
	Corruption    int
}

// NeutralProfile applies to any code missing from the table.
var NeutralProfile = Profile{Stability: 5, SanctionLevel: 5, Corruption: 5}

// Profiles is a read-only lookup table keyed by upper-case code.
type Profiles map[string]Profile

// DefaultProfiles returns a fresh copy of the built-in table. GB mirrors UK so
// both the common and the ISO spelling resolve.
func DefaultProfiles() Profiles {
	p := Profiles{
		"US": {Stability: 2, SanctionLevel: 0, Corruption: 2},
		"UK": {Stability: 2, SanctionLevel: 0, Corruption: 1},
		"GB": {Stability: 2, SanctionLevel: 0, Corruption: 1},
		"FR": {Stability: 3, SanctionLevel: 0, Corruption: 2},
		"DE": {Stability: 1, SanctionLevel: 0, Corruption: 1},
		"JP": {Stability: 1, SanctionLevel: 0, Corruption: 1},
		"CN": {Stability: 4, SanctionLevel: 2, Corruption: 4},
		"RU": {Stability: 6, SanctionLevel: 9, Corruption: 7},
		"NK": {Stability: 9, SanctionLevel: 10, Corruption: 9},
		"IR": {Stability: 8, SanctionLevel: 10, Corruption: 8},
		"VE": {Stability: 9, SanctionLevel: 8, Corruption: 9},
	}
	for code, prof := range p {
		prof.Code = code
		p[code] = prof
	}
	return p
}

// Lookup returns the profile for code, falling back to NeutralProfile.
func (p Profiles) Lookup(code string) Profile {
	code = strings.ToUpper(strings.TrimSpace(code))
	if prof, ok := p[code]; ok {
		return prof
	}
	prof := NeutralProfile
	prof.Code = code
	return prof
}

// Fundamentals is the weighted 0..100 baseline of a profile.
func (p Profile) Fundamentals() float64 {
	return (float64(p.Stability)*0.4 + float64(p.SanctionLevel)*0.4 + float64(p.Corruption)*0.2) * 10
}

// Package country scores country risk on a 0..100 scale: a weighted
// fundamentals baseline plus a simulated volatility term.
//
// Scores are stochastic. Each call draws fresh samples, so identical inputs
// give different outputs unless the scorer is built WithRand over a seeded
// source.
package country

import (
	"math"
	"math/rand/v2"
	"strings"
	"sync"

	"geopulse/internal/screening/policy"
)

// Assessment breaks a score into its parts.
type Assessment struct {
	Profile          Profile
	Fundamentals     float64
	Volatility       float64 // std dev of the simulated daily fluctuations
	EntityAdjustment float64
	Score            float64
}

// Scorer is safe for concurrent use.
type Scorer struct {
	profiles       Profiles
	samples        int
	entityKeywords []string
	entityPenalty  float64

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithRand pins the random source, typically for reproducible tests.
func WithRand(r *rand.Rand) Option {
	return func(s *Scorer) {
		s.rng = r
	}
}

// WithProfiles replaces the built-in profile table.
func WithProfiles(p Profiles) Option {
	return func(s *Scorer) {
		s.profiles = p
	}
}

// New builds a scorer from the policy's sample count and entity heuristics.
func New(p policy.Policy, opts ...Option) *Scorer {
	s := &Scorer{
		profiles:       DefaultProfiles(),
		samples:        p.VolatilitySamples,
		entityKeywords: p.EntityKeywords,
		entityPenalty:  p.EntityPenalty,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return s
}

// Profile returns the profile used for code.
func (s *Scorer) Profile(code string) Profile {
	return s.profiles.Lookup(code)
}

// Fundamentals returns the deterministic part of the score for code.
func (s *Scorer) Fundamentals(code string) float64 {
	return s.profiles.Lookup(code).Fundamentals()
}

// Score returns the rounded 0..100 risk score. entityName may be empty.
func (s *Scorer) Score(code, entityName string) float64 {
	return s.Assess(code, entityName).Score
}

// Assess computes the score and keeps its components.
func (s *Scorer) Assess(code, entityName string) Assessment {
	prof := s.profiles.Lookup(code)
	a := Assessment{
		Profile:      prof,
		Fundamentals: prof.Fundamentals(),
		Volatility:   s.simulateVolatility(float64(prof.Stability) * 2),
	}
	if s.isRiskyEntity(entityName) {
		a.EntityAdjustment = s.entityPenalty
	}

	raw := a.Fundamentals + 2*a.Volatility + a.EntityAdjustment
	a.Score = round2(clamp(raw, 0, 100))
	return a
}

// simulateVolatility draws daily fluctuations from N(0, sigma) and returns
// their standard deviation (divided by n, not n-1).
func (s *Scorer) simulateVolatility(sigma float64) float64 {
	draws := make([]float64, s.samples)
	s.mu.Lock()
	for i := range draws {
		draws[i] = s.rng.NormFloat64() * sigma
	}
	s.mu.Unlock()

	var sum float64
	for _, x := range draws {
		sum += x
	}
	mean := sum / float64(len(draws))

	var sq float64
	for _, x := range draws {
		sq += (x - mean) * (x - mean)
	}
	return math.Sqrt(sq / float64(len(draws)))
}

func (s *Scorer) isRiskyEntity(name string) bool {
	if name == "" {
		return false
	}
	lower := strings.ToLower(name)
	for _, kw := range s.entityKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

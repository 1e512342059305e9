package decision

import (
	"context"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"geopulse/internal/screening/country"
	"geopulse/internal/screening/metrics"
	"geopulse/internal/screening/policy"
	"geopulse/internal/screening/sanctions"
)

type stubMatcher struct {
	result sanctions.Result
}

func (m stubMatcher) Match(string, string) sanctions.Result {
	return m.result
}

type stubScorer struct {
	score float64
}

func (s stubScorer) Score(string, string) float64 {
	return s.score
}

var clearResult = sanctions.Result{Reason: sanctions.ReasonClear}

// =============================================================================
// Engine Test Suite
// =============================================================================

type EngineSuite struct {
	suite.Suite
	metrics *metrics.Metrics
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.metrics = metrics.New(prometheus.NewRegistry())
}

func (s *EngineSuite) engine(m Matcher, sc Scorer) *Engine {
	e, err := New(m, sc, policy.Default(), WithMetrics(s.metrics))
	s.Require().NoError(err)
	return e
}

func (s *EngineSuite) TestNew() {
	s.Run("missing matcher", func() {
		_, err := New(nil, stubScorer{}, policy.Default())
		s.ErrorContains(err, "matcher")
	})

	s.Run("missing scorer", func() {
		_, err := New(stubMatcher{}, nil, policy.Default())
		s.ErrorContains(err, "scorer")
	})
}

// =============================================================================
// Block Rule Tests
// =============================================================================

func (s *EngineSuite) TestBlockRule() {
	nameHit := sanctions.Result{
		IsMatch: true,
		Reason:  "Name Match Detected: 'Victor Bout' is 91% similar to sanctioned entity 'Viktor Bout' (individual, OFAC SDN)",
		Entry:   &sanctions.Entry{Name: "Viktor Bout"},
	}

	tests := []struct {
		name       string
		match      sanctions.Result
		score      float64
		wantStatus Status
		wantCause  BlockCause
		wantReason string
		wantRisk   string
	}{
		{"clear and low risk", clearResult, 10, StatusCleared, CauseNone, "Clear", ""},
		{"threshold itself clears", clearResult, 80, StatusCleared, CauseNone, "Clear", ""},
		{"high risk blocks with matcher reason preserved", clearResult, 80.01, StatusBlocked, CauseCountryRisk, "Clear", "High Risk Country (80.01)"},
		{"sanctioned with low risk", nameHit, 5, StatusBlocked, CauseSanctions, nameHit.Reason, ""},
		{"sanctioned and high risk reports both", nameHit, 100, StatusBlocked, CauseSanctions, nameHit.Reason, "High Risk Country (100.0)"},
	}
	for _, tc := range tests {
		s.Run(tc.name, func() {
			d := s.engine(stubMatcher{tc.match}, stubScorer{tc.score}).Decide(context.Background(), "x", "US")
			s.Equal(tc.wantStatus, d.Status)
			s.Equal(tc.wantCause, d.BlockCause)
			s.Equal(tc.wantReason, d.Reason)
			s.Equal(tc.wantRisk, d.RiskReason)
			s.Equal(tc.score, d.CountryRiskScore)
			s.Equal(tc.match.IsMatch, d.Sanctioned)
		})
	}
}

func (s *EngineSuite) TestBlockReason() {
	d := Evaluate(clearResult, 92.5, 80)
	s.Equal("High Risk Country (92.5)", d.BlockReason())

	d = Evaluate(sanctions.Result{IsMatch: true, Reason: "Country IR is strictly sanctioned."}, 99, 80)
	s.Equal("Country IR is strictly sanctioned.", d.BlockReason())

	s.Empty(Evaluate(clearResult, 1, 80).BlockReason())
}

func (s *EngineSuite) TestMetrics() {
	e := s.engine(stubMatcher{sanctions.Result{IsMatch: true, Reason: "Country NK is strictly sanctioned."}}, stubScorer{100})
	e.Decide(context.Background(), "anyone", "NK")
	e.Decide(context.Background(), "anyone", "NK")

	s.Equal(2.0, testutil.ToFloat64(s.metrics.DecisionOutcome.WithLabelValues("BLOCKED", "sanctions")))
	s.Equal(2.0, testutil.ToFloat64(s.metrics.SanctionsMatches.WithLabelValues("country")))

	named := s.engine(stubMatcher{sanctions.Result{
		IsMatch: true,
		Reason:  "Name Match Detected",
		Entry:   &sanctions.Entry{Name: "Viktor Bout", Country: "RU"},
	}}, stubScorer{10})
	named.Decide(context.Background(), "Victor Bout", "DE")
	s.Equal(1.0, testutil.ToFloat64(s.metrics.SanctionsMatches.WithLabelValues("name")))
	s.Equal(2.0, testutil.ToFloat64(s.metrics.SanctionsMatches.WithLabelValues("country")))
}

// =============================================================================
// End-to-end with real collaborators
// =============================================================================

func (s *EngineSuite) TestWithRealComponents() {
	p := policy.Default()
	list := sanctions.List{
		{Name: "Viktor Bout", Country: "RU", ListSource: "OFAC SDN", Type: "individual"},
	}
	matcher := sanctions.New(list, p)
	scorer := country.New(p, country.WithRand(rand.New(rand.NewPCG(1, 2))))
	e, err := New(matcher, scorer, p)
	s.Require().NoError(err)

	s.Run("hard-sanctioned country", func() {
		d := e.Decide(context.Background(), "John Smith", "NK")
		s.True(d.Sanctioned)
		s.Equal("Country NK is strictly sanctioned.", d.Reason)
		s.Equal(StatusBlocked, d.Status)
		s.Equal(CauseSanctions, d.BlockCause)
		s.Zero(d.Similarity)
		s.Zero(d.EditDistance)
	})

	s.Run("fuzzy name in a clean country", func() {
		d := e.Decide(context.Background(), "Victor Bout", "DE")
		s.True(d.Sanctioned)
		s.Contains(d.Reason, "Name Match Detected: 'Victor Bout' is 91% similar")
		s.Equal("Viktor Bout", d.MatchedEntity.Name)
		s.InDelta(20.0/22.0, d.Similarity, 1e-9)
		s.Equal(1, d.EditDistance)
		s.Equal(StatusBlocked, d.Status)
	})

	s.Run("clean name in a clean country", func() {
		d := e.Decide(context.Background(), "John Smith", "DE")
		s.False(d.Sanctioned)
		s.Equal("Clear", d.Reason)
		s.Equal(StatusCleared, d.Status)
		s.Less(d.CountryRiskScore, 30.0)
	})
}

func (s *EngineSuite) TestConcurrentDecide() {
	p := policy.Default()
	e, err := New(sanctions.New(nil, p), country.New(p), p)
	s.Require().NoError(err)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d := e.Decide(context.Background(), "Acme", "JP")
			s.GreaterOrEqual(d.CountryRiskScore, 0.0)
			s.LessOrEqual(d.CountryRiskScore, 100.0)
		}()
	}
	wg.Wait()
}

func TestRiskReason(t *testing.T) {
	assert.Equal(t, "High Risk Country (100.0)", RiskReason(100))
	assert.Equal(t, "High Risk Country (85.37)", RiskReason(85.37))
	assert.Equal(t, "High Risk Country (81.5)", RiskReason(81.5))
}

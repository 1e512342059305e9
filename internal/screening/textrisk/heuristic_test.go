package textrisk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"geopulse/internal/screening/policy"
)

const unSanctionsText = "The UN has imposed severe sanctions on Country X due to escalating conflict and human rights violations."

type fixedSentiment struct {
	polarity float64
}

func (f fixedSentiment) Sentiment(string) (float64, float64) {
	return f.polarity, 0.5
}

// =============================================================================
// Heuristic Test Suite
// =============================================================================

type HeuristicSuite struct {
	suite.Suite
}

func TestHeuristicSuite(t *testing.T) {
	suite.Run(t, new(HeuristicSuite))
}

func (s *HeuristicSuite) heuristic(analyzer SentimentAnalyzer) *Heuristic {
	return NewHeuristic(policy.Default(), analyzer)
}

// =============================================================================
// Keyword Tests
// =============================================================================

func (s *HeuristicSuite) TestKeywords() {
	h := s.heuristic(nil)

	s.Run("substring hits in list order", func() {
		s.Equal([]string{"sanction", "violation"}, h.Keywords(unSanctionsText))
	})

	s.Run("case-insensitive", func() {
		s.Equal([]string{"embargo", "laundering"}, h.Keywords("EMBARGO on Money LAUNDERING networks"))
	})

	s.Run("substring match catches embedded words", func() {
		s.Equal([]string{"ban"}, h.Keywords("Regional bank reports"))
	})

	s.Run("no hits returns empty slice", func() {
		kws := h.Keywords("Quarterly trade figures were published")
		s.NotNil(kws)
		s.Empty(kws)
	})
}

// =============================================================================
// Scoring Tests
// =============================================================================

func (s *HeuristicSuite) TestClassifyExampleText() {
	s.Run("without sentiment", func() {
		v := s.heuristic(nil).Classify(unSanctionsText)
		s.Equal([]string{"sanction", "violation"}, v.Keywords)
		s.Equal(40.0, v.Score)
		s.Equal(LevelMedium, v.Level)
		s.Equal(SourceHeuristic, v.Source)
	})

	s.Run("with lexicon sentiment", func() {
		v := s.heuristic(NewLexiconAnalyzer()).Classify(unSanctionsText)
		s.Equal(-0.45, v.Sentiment)
		s.Equal(0.57, v.Subjectivity)
		s.Equal(60.0, v.Score)
		s.Equal(LevelMedium, v.Level, "60 is not above the high threshold")
	})

	s.Run("summary truncates to 100 characters", func() {
		v := s.heuristic(nil).Classify(unSanctionsText)
		s.Equal(unSanctionsText[:100]+"...", v.Summary)
	})
}

func (s *HeuristicSuite) TestSentimentAdjustment() {
	text := "fraud reported" // one keyword, 20 points

	tests := []struct {
		name     string
		polarity float64
		want     float64
	}{
		{"strongly negative adds 20", -0.5, 40},
		{"threshold -0.1 is not negative enough", -0.1, 20},
		{"neutral unchanged", 0, 20},
		{"threshold 0.5 is not positive enough", 0.5, 20},
		{"strongly positive subtracts 10", 0.8, 10},
	}
	for _, tc := range tests {
		s.Run(tc.name, func() {
			v := s.heuristic(fixedSentiment{tc.polarity}).Classify(text)
			s.Equal(tc.want, v.Score)
		})
	}
}

func (s *HeuristicSuite) TestLevels() {
	tests := []struct {
		name string
		text string
		pol  float64
		want Level
	}{
		{"no signal is LOW", "trade talks continue", 0, LevelLow},
		{"20 is LOW", "fraud", 0, LevelLow},
		{"20 plus negative boost is 40 MEDIUM", "fraud", -0.9, LevelMedium},
		{"40 is MEDIUM", "war and fraud", 0, LevelMedium},
		{"60 is MEDIUM", "war fraud ban", 0, LevelMedium},
		{"80 is HIGH", "war fraud ban embargo", 0, LevelHigh},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			v := s.heuristic(fixedSentiment{tc.pol}).Classify(tc.text)
			s.Equal(tc.want, v.Level)
		})
	}
}

func (s *HeuristicSuite) TestScoreClamped() {
	s.Run("positive relief never goes below zero", func() {
		v := s.heuristic(fixedSentiment{0.9}).Classify("a wonderful day")
		s.Equal(0.0, v.Score)
		s.Equal(LevelLow, v.Level)
	})

	s.Run("every keyword plus negativity caps at 100", func() {
		text := "sanction war embargo laundering fraud corruption violation ban"
		v := s.heuristic(fixedSentiment{-0.9}).Classify(text)
		s.Equal(100.0, v.Score)
		s.Equal(LevelHigh, v.Level)
		s.Len(v.Keywords, 8)
	})
}

func (s *HeuristicSuite) TestCustomPolicy() {
	p := policy.Default()
	p.RiskKeywords = []string{"piracy"}
	p.MediumThreshold = 10
	p.HighThreshold = 15
	h := NewHeuristic(p, nil)

	v := h.Classify("Piracy in the strait; fraud alleged")
	s.Equal([]string{"piracy"}, v.Keywords)
	s.Equal(LevelHigh, v.Level)
}

// =============================================================================
// Summary and Level Parsing
// =============================================================================

func TestSummarize(t *testing.T) {
	t.Run("short text kept verbatim", func(t *testing.T) {
		assert.Equal(t, "short", Summarize("short"))
	})

	t.Run("exactly 100 characters kept verbatim", func(t *testing.T) {
		text := strings.Repeat("a", 100)
		assert.Equal(t, text, Summarize(text))
	})

	t.Run("counts characters not bytes", func(t *testing.T) {
		text := strings.Repeat("é", 101)
		assert.Equal(t, strings.Repeat("é", 100)+"...", Summarize(text))
	})
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{"low": LevelLow, " Medium ": LevelMedium, "HIGH": LevelHigh} {
		got, ok := ParseLevel(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got)
	}
	_, ok := ParseLevel("CRITICAL")
	assert.False(t, ok)
}

func TestLexiconAnalyzer(t *testing.T) {
	a := NewLexiconAnalyzer()

	t.Run("unknown vocabulary is neutral", func(t *testing.T) {
		pol, subj := a.Sentiment("the cat sat on the mat")
		assert.Zero(t, pol)
		assert.Zero(t, subj)
	})

	t.Run("negation flips polarity", func(t *testing.T) {
		pos, _ := a.Sentiment("the situation is stable")
		neg, _ := a.Sentiment("the situation is not stable")
		assert.Greater(t, pos, 0.0)
		assert.Less(t, neg, 0.0)
	})

	t.Run("plural falls back to singular", func(t *testing.T) {
		pol, _ := a.Sentiment("threats")
		assert.Equal(t, -0.5, pol)
	})

	t.Run("intensifier is clamped", func(t *testing.T) {
		pol, subj := a.Sentiment("extremely terrible")
		assert.Equal(t, -1.0, pol)
		assert.Equal(t, 1.0, subj)
	})
}

package textrisk

import (
	"math"
	"strings"

	"geopulse/internal/screening/policy"
)

const (
	keywordWeight     = 20.0
	negativeSentiment = -0.1
	positiveSentiment = 0.5
	negativeBoost     = 20.0
	positiveRelief    = 10.0
	summaryRunes      = 100
)

// Heuristic is the always-available local classifier: keyword density plus a
// sentiment adjustment.
type Heuristic struct {
	keywords []string
	medium   float64
	high     float64
	analyzer SentimentAnalyzer
}

// NewHeuristic builds the heuristic from the policy keyword list and level
// thresholds. analyzer may be nil.
func NewHeuristic(p policy.Policy, analyzer SentimentAnalyzer) *Heuristic {
	return &Heuristic{
		keywords: p.RiskKeywords,
		medium:   p.MediumThreshold,
		high:     p.HighThreshold,
		analyzer: analyzer,
	}
}

// Classify never fails.
func (h *Heuristic) Classify(text string) Verdict {
	polarity, subjectivity := h.sentiment(text)
	keywords := h.Keywords(text)

	score := keywordWeight * float64(len(keywords))
	switch {
	case polarity < negativeSentiment:
		score += negativeBoost
	case polarity > positiveSentiment:
		score -= positiveRelief
	}

	return Verdict{
		Level:        h.level(score),
		Score:        clampRange(score, 0, 100),
		Keywords:     keywords,
		Summary:      Summarize(text),
		Sentiment:    math.Round(polarity*100) / 100,
		Subjectivity: math.Round(subjectivity*100) / 100,
		Source:       SourceHeuristic,
	}
}

// Keywords returns the risk keywords found in text by case-insensitive
// substring search, in list order.
func (h *Heuristic) Keywords(text string) []string {
	lower := strings.ToLower(text)
	found := make([]string, 0, len(h.keywords))
	for _, kw := range h.keywords {
		if strings.Contains(lower, kw) {
			found = append(found, kw)
		}
	}
	return found
}

func (h *Heuristic) level(score float64) Level {
	switch {
	case score > h.high:
		return LevelHigh
	case score > h.medium:
		return LevelMedium
	default:
		return LevelLow
	}
}

func (h *Heuristic) sentiment(text string) (float64, float64) {
	if h.analyzer == nil {
		return 0, 0
	}
	return h.analyzer.Sentiment(text)
}

// Summarize keeps the first 100 characters and marks truncation with "...".
func Summarize(text string) string {
	r := []rune(text)
	if len(r) <= summaryRunes {
		return text
	}
	return string(r[:summaryRunes]) + "..."
}

func upper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

package textrisk

// Level is the coarse risk bucket of a verdict.
type Level string

const (
	LevelLow    Level = "LOW"
	LevelMedium Level = "MEDIUM"
	LevelHigh   Level = "HIGH"
)

// ParseLevel accepts a case-insensitive level name.
func ParseLevel(s string) (Level, bool) {
	switch Level(upper(s)) {
	case LevelLow:
		return LevelLow, true
	case LevelMedium:
		return LevelMedium, true
	case LevelHigh:
		return LevelHigh, true
	}
	return "", false
}

// Source records which path produced a verdict.
type Source string

const (
	SourceHeuristic Source = "heuristic"
	SourceLLM       Source = "llm"
)

// Verdict is built once per classification and never modified.
type Verdict struct {
	Level        Level
	Score        float64 // 0..100
	Keywords     []string
	Summary      string
	Sentiment    float64 // polarity, -1..1
	Subjectivity float64 // 0..1
	Source       Source
}

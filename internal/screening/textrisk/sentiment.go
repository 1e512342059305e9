package textrisk

import (
	"math"
	"strings"
	"unicode"
)

// SentimentAnalyzer scores free text. Polarity is in [-1,1], subjectivity in
// [0,1]. A nil analyzer means "unavailable" and yields neutral (0,0).
type SentimentAnalyzer interface {
	Sentiment(text string) (polarity, subjectivity float64)
}

type lexeme struct {
	polarity     float64
	subjectivity float64
}

// newsLexicon covers the vocabulary of geopolitical and financial-crime news.
var newsLexicon = map[string]lexeme{
	"good": {0.7, 0.6}, "great": {0.8, 0.75}, "positive": {0.23, 0.55},
	"stable": {0.4, 0.5}, "peace": {0.5, 0.5}, "peaceful": {0.6, 0.6},
	"agreement": {0.3, 0.3}, "deal": {0.25, 0.3}, "growth": {0.35, 0.4},
	"recovery": {0.35, 0.4}, "lifted": {0.3, 0.3}, "eased": {0.35, 0.4},
	"easing": {0.3, 0.4}, "improve": {0.4, 0.5}, "improved": {0.45, 0.5},
	"strong": {0.43, 0.73}, "success": {0.5, 0.6}, "successful": {0.75, 0.95},
	"cooperation": {0.4, 0.4}, "calm": {0.3, 0.6}, "safe": {0.5, 0.5},
	"secure": {0.4, 0.5}, "approved": {0.3, 0.3}, "welcome": {0.8, 0.9},
	"bad": {-0.7, 0.67}, "poor": {-0.4, 0.6}, "negative": {-0.3, 0.4},
	"severe": {-0.5, 0.7}, "serious": {-0.33, 0.67}, "crisis": {-0.6, 0.6},
	"conflict": {-0.45, 0.5}, "escalating": {-0.4, 0.5}, "escalation": {-0.4, 0.5},
	"violence": {-0.7, 0.7}, "violent": {-0.8, 0.8}, "attack": {-0.6, 0.5},
	"threat": {-0.5, 0.5}, "unrest": {-0.5, 0.5}, "collapse": {-0.7, 0.6},
	"illegal": {-0.5, 0.5}, "criminal": {-0.6, 0.6}, "corrupt": {-0.7, 0.7},
	"terrible": {-1.0, 1.0}, "worst": {-1.0, 1.0}, "worse": {-0.4, 0.6},
	"unstable": {-0.5, 0.6}, "volatile": {-0.4, 0.6}, "risky": {-0.5, 0.6},
	"dangerous": {-0.6, 0.9}, "fear": {-0.5, 0.7}, "panic": {-0.7, 0.8},
	"decline": {-0.35, 0.4}, "default": {-0.4, 0.3}, "losses": {-0.4, 0.4},
	"abuse": {-0.6, 0.6}, "abuses": {-0.6, 0.6}, "suspicious": {-0.35, 0.6},
	"fraudulent": {-0.7, 0.7}, "frozen": {-0.3, 0.4}, "seized": {-0.35, 0.4},
	"condemned": {-0.5, 0.6}, "protest": {-0.25, 0.4}, "coup": {-0.7, 0.6},
}

var negations = map[string]bool{
	"not": true, "no": true, "never": true, "without": true, "isn't": true,
	"wasn't": true, "aren't": true, "don't": true, "doesn't": true, "didn't": true,
}

var intensifiers = map[string]float64{
	"very": 1.3, "extremely": 1.5, "highly": 1.3, "deeply": 1.3,
	"slightly": 0.5, "somewhat": 0.7, "increasingly": 1.2,
}

// LexiconAnalyzer averages word-level polarity and subjectivity from a fixed
// lexicon. A preceding negation flips and halves polarity; a preceding
// intensifier scales it.
type LexiconAnalyzer struct {
	lexicon map[string]lexeme
}

// NewLexiconAnalyzer returns the analyzer over the built-in news lexicon.
func NewLexiconAnalyzer() *LexiconAnalyzer {
	return &LexiconAnalyzer{lexicon: newsLexicon}
}

func (a *LexiconAnalyzer) Sentiment(text string) (float64, float64) {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})

	var polSum, subjSum float64
	var hits int
	for i, tok := range tokens {
		lx, ok := a.lookup(tok)
		if !ok {
			continue
		}
		pol, subj := lx.polarity, lx.subjectivity
		if i > 0 {
			prev := tokens[i-1]
			if f, ok := intensifiers[prev]; ok {
				pol *= f
				subj *= f
			}
			if negations[prev] || (i > 1 && negations[tokens[i-2]]) {
				pol *= -0.5
			}
		}
		polSum += pol
		subjSum += subj
		hits++
	}
	if hits == 0 {
		return 0, 0
	}
	return clampRange(polSum/float64(hits), -1, 1), clampRange(subjSum/float64(hits), 0, 1)
}

func (a *LexiconAnalyzer) lookup(tok string) (lexeme, bool) {
	if lx, ok := a.lexicon[tok]; ok {
		return lx, true
	}
	if trimmed, found := strings.CutSuffix(tok, "s"); found {
		lx, ok := a.lexicon[trimmed]
		return lx, ok
	}
	return lexeme{}, false
}

func clampRange(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

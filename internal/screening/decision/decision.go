package decision

import (
	"fmt"
	"strconv"

	"geopulse/internal/screening/sanctions"
)

// Status is the final compliance outcome.
type Status string

const (
	StatusCleared Status = "CLEARED"
	StatusBlocked Status = "BLOCKED"
)

// BlockCause names which check blocked a transaction. Empty when cleared.
type BlockCause string

const (
	CauseNone        BlockCause = ""
	CauseSanctions   BlockCause = "sanctions"
	CauseCountryRisk BlockCause = "country_risk"
)

// Decision combines a sanctions result and a country score.
//
// Reason is always the matcher's reason, including "Clear" for a
// transaction blocked only by country risk. RiskReason explains the score
// whenever it crossed the block threshold.
type Decision struct {
	Sanctioned       bool
	Reason           string
	CountryRiskScore float64
	Status           Status
	BlockCause       BlockCause
	RiskReason       string
	MatchedEntity    *sanctions.Entry

	// Name-match diagnostics for analyst review. Zero unless MatchedEntity is set.
	Similarity   float64
	EditDistance int
}

// Blocked reports whether the decision stops the payment.
func (d Decision) Blocked() bool {
	return d.Status == StatusBlocked
}

// BlockReason is the single human-readable reason for a block: the sanctions
// reason when sanctioned, otherwise the risk reason.
func (d Decision) BlockReason() string {
	switch d.BlockCause {
	case CauseSanctions:
		return d.Reason
	case CauseCountryRisk:
		return d.RiskReason
	default:
		return ""
	}
}

// Evaluate applies the block rule. Pure: no I/O, no randomness.
//
// Rule priority:
//  1. Sanctions hit (hard block)
//  2. Country risk score strictly above the threshold
func Evaluate(match sanctions.Result, score, blockThreshold float64) Decision {
	d := Decision{
		Sanctioned:       match.IsMatch,
		Reason:           match.Reason,
		CountryRiskScore: score,
		Status:           StatusCleared,
		MatchedEntity:    match.Entry,
		Similarity:       match.Similarity,
		EditDistance:     match.EditDistance,
	}

	highRisk := score > blockThreshold
	if highRisk {
		d.RiskReason = RiskReason(score)
	}

	switch {
	case match.IsMatch:
		d.Status = StatusBlocked
		d.BlockCause = CauseSanctions
	case highRisk:
		d.Status = StatusBlocked
		d.BlockCause = CauseCountryRisk
	}
	return d
}

// RiskReason formats the country-risk block reason. Whole scores keep one
// decimal place ("High Risk Country (100.0)").
func RiskReason(score float64) string {
	s := strconv.FormatFloat(score, 'f', -1, 64)
	if score == float64(int64(score)) {
		s = strconv.FormatFloat(score, 'f', 1, 64)
	}
	return fmt.Sprintf("High Risk Country (%s)", s)
}

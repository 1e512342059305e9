package handler

import (
	"math"
	"strings"
	"time"

	"geopulse/internal/screening/decision"
	"geopulse/internal/screening/textrisk"
	"geopulse/internal/storage"
	dErrors "geopulse/pkg/domain-errors"
)

// CheckRequest screens one counterparty.
type CheckRequest struct {
	Name    string `json:"name" validate:"required,max=256"`
	Country string `json:"country" validate:"required,len=2,alpha"`
}

func (r *CheckRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name must not be blank")
	}
	r.Country = strings.ToUpper(r.Country)
	return nil
}

// MatchedEntity is the sanctions entry a name matched, with the similarity
// ratio and edit distance between the screened name and the entry.
type MatchedEntity struct {
	Name         string  `json:"name"`
	Country      string  `json:"country"`
	Type         string  `json:"type"`
	ListSource   string  `json:"list_source,omitempty"`
	Similarity   float64 `json:"similarity"`
	EditDistance int     `json:"edit_distance"`
}

type CheckResponse struct {
	Sanctioned       bool           `json:"sanctioned"`
	Reason           string         `json:"reason"`
	CountryRiskScore float64        `json:"country_risk_score"`
	Status           string         `json:"status"`
	BlockCause       string         `json:"block_cause,omitempty"`
	RiskReason       string         `json:"risk_reason,omitempty"`
	MatchedEntity    *MatchedEntity `json:"matched_entity,omitempty"`
}

func toCheckResponse(d decision.Decision) CheckResponse {
	resp := CheckResponse{
		Sanctioned:       d.Sanctioned,
		Reason:           d.Reason,
		CountryRiskScore: d.CountryRiskScore,
		Status:           string(d.Status),
		BlockCause:       string(d.BlockCause),
		RiskReason:       d.RiskReason,
	}
	if e := d.MatchedEntity; e != nil {
		resp.MatchedEntity = &MatchedEntity{
			Name:         e.Name,
			Country:      e.Country,
			Type:         e.Type,
			ListSource:   e.ListSource,
			Similarity:   math.Round(d.Similarity*10000) / 10000,
			EditDistance: d.EditDistance,
		}
	}
	return resp
}

// AnalyzeTextRequest classifies a news snippet. Country is optional; when set
// the verdict is stored as an event for that country.
type AnalyzeTextRequest struct {
	Text    string `json:"text" validate:"required,max=20000"`
	Country string `json:"country" validate:"omitempty,len=2,alpha"`
}

func (r *AnalyzeTextRequest) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return dErrors.New(dErrors.CodeValidation, "text must not be blank")
	}
	r.Country = strings.ToUpper(r.Country)
	return nil
}

type AnalyzeTextResponse struct {
	RiskLevel      string   `json:"risk_level"`
	Keywords       []string `json:"keywords"`
	SentimentScore float64  `json:"sentiment_score"`
	Subjectivity   float64  `json:"subjectivity"`
	RiskScore      float64  `json:"risk_score"`
	Summary        string   `json:"summary"`
	Source         string   `json:"source"`
}

func toAnalyzeTextResponse(v textrisk.Verdict) AnalyzeTextResponse {
	keywords := v.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	return AnalyzeTextResponse{
		RiskLevel:      string(v.Level),
		Keywords:       keywords,
		SentimentScore: v.Sentiment,
		Subjectivity:   v.Subjectivity,
		RiskScore:      v.Score,
		Summary:        v.Summary,
		Source:         string(v.Source),
	}
}

type RiskScoreResponse struct {
	CountryCode  string    `json:"country_code"`
	Score        float64   `json:"score"`
	Fundamentals float64   `json:"fundamentals"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type RiskScoresResponse struct {
	Scores []RiskScoreResponse `json:"scores"`
}

type EventResponse struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Country   string    `json:"country"`
	Severity  string    `json:"severity"`
	Title     string    `json:"title"`
	Keywords  []string  `json:"keywords"`
	RiskScore float64   `json:"risk_score"`
	Source    string    `json:"source"`
}

type EventsResponse struct {
	Events []EventResponse `json:"events"`
}

func toEventResponse(e storage.GeoEvent) EventResponse {
	keywords := e.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	return EventResponse{
		ID:        e.ID.String(),
		Timestamp: e.Timestamp,
		Country:   e.Country,
		Severity:  e.Severity,
		Title:     e.Title,
		Keywords:  keywords,
		RiskScore: e.RiskScore,
		Source:    e.Source,
	}
}

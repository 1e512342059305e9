package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"geopulse/internal/audit"
	"geopulse/internal/screening/decision"
	"geopulse/internal/screening/policy"
	"geopulse/internal/screening/sanctions"
	"geopulse/internal/screening/textrisk"
	"geopulse/internal/storage"
)

const sanctionsNews = "The UN has imposed severe sanctions on Country X due to escalating conflict and human rights violations."

type stubDecider struct {
	decisions map[string]decision.Decision
	calls     []string
}

func (s *stubDecider) Decide(_ context.Context, name, country string) decision.Decision {
	s.calls = append(s.calls, name+"/"+country)
	if d, ok := s.decisions[name]; ok {
		return d
	}
	return decision.Evaluate(sanctions.Result{Reason: sanctions.ReasonClear}, 20, 80)
}

type failingEventStore struct {
	storage.EventStore
}

func (failingEventStore) Append(context.Context, storage.GeoEvent) error {
	return errors.New("db down")
}

// =============================================================================
// Screening Handler Test Suite
// =============================================================================

type HandlerSuite struct {
	suite.Suite
	decider *stubDecider
	scores  *storage.InMemoryRiskScoreStore
	events  storage.EventStore
	audit   *audit.MemoryPublisher
	router  chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.decider = &stubDecider{decisions: map[string]decision.Decision{
		"Kim Jong Un": decision.Evaluate(sanctions.Result{
			IsMatch:      true,
			Reason:       "Name Match: Kim Jong Un (100%)",
			Entry:        &sanctions.Entry{Name: "Kim Jong Un", Country: "NK", Type: "Individual", ListSource: "OFAC"},
			Similarity:   0.91666666,
			EditDistance: 2,
		}, 99.5, 80),
		"Steel Export Co": decision.Evaluate(sanctions.Result{Reason: sanctions.ReasonClear}, 85, 80),
	}}
	s.scores = storage.NewInMemoryRiskScoreStore()
	s.events = storage.NewInMemoryEventStore()
	s.audit = audit.NewMemoryPublisher()
	s.buildRouter()
}

func (s *HandlerSuite) buildRouter() {
	logger := slog.New(slog.DiscardHandler)
	classifier := textrisk.New(textrisk.NewHeuristic(policy.Default(), nil))
	h := New(s.decider, classifier, s.scores, s.events, audit.NewRecorder(s.audit, logger), logger)
	s.router = chi.NewRouter()
	h.Register(s.router)
}

func (s *HandlerSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			s.Require().NoError(json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](s *HandlerSuite, rec *httptest.ResponseRecorder) T {
	var out T
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// =============================================================================
// POST /compliance/check
// =============================================================================

func (s *HandlerSuite) TestCheckCleared() {
	rec := s.do(http.MethodPost, "/compliance/check", CheckRequest{Name: " John Smith ", Country: "de"})
	s.Require().Equal(http.StatusOK, rec.Code)

	resp := decode[CheckResponse](s, rec)
	s.False(resp.Sanctioned)
	s.Equal("Clear", resp.Reason)
	s.Equal("CLEARED", resp.Status)
	s.Empty(resp.BlockCause)
	s.Nil(resp.MatchedEntity)
	s.Equal([]string{"John Smith/DE"}, s.decider.calls)

	events := s.audit.ByAction(audit.ActionDecisionMade)
	s.Require().Len(events, 1)
	s.Equal("DE", events[0].Country)
}

func (s *HandlerSuite) TestCheckSanctioned() {
	rec := s.do(http.MethodPost, "/compliance/check", CheckRequest{Name: "Kim Jong Un", Country: "NK"})
	s.Require().Equal(http.StatusOK, rec.Code)

	resp := decode[CheckResponse](s, rec)
	s.True(resp.Sanctioned)
	s.Equal("BLOCKED", resp.Status)
	s.Equal("sanctions", resp.BlockCause)
	s.Equal("High Risk Country (99.5)", resp.RiskReason)
	s.Require().NotNil(resp.MatchedEntity)
	s.Equal("OFAC", resp.MatchedEntity.ListSource)
	s.Equal(0.9167, resp.MatchedEntity.Similarity)
	s.Equal(2, resp.MatchedEntity.EditDistance)
	s.Contains(rec.Body.String(), `"similarity":0.9167`)
	s.Contains(rec.Body.String(), `"edit_distance":2`)
}

func (s *HandlerSuite) TestCheckBlockedByCountryRisk() {
	resp := decode[CheckResponse](s, s.do(http.MethodPost, "/compliance/check", CheckRequest{Name: "Steel Export Co", Country: "RU"}))
	s.False(resp.Sanctioned)
	s.Equal("Clear", resp.Reason)
	s.Equal("BLOCKED", resp.Status)
	s.Equal("country_risk", resp.BlockCause)
	s.Equal("High Risk Country (85.0)", resp.RiskReason)
}

func (s *HandlerSuite) TestCheckValidation() {
	tests := []struct {
		name string
		body any
		code string
	}{
		{"malformed json", `{"name":`, "bad_request"},
		{"missing name", CheckRequest{Country: "DE"}, "validation_error"},
		{"whitespace name", CheckRequest{Name: "   ", Country: "fr"}, "validation_error"},
		{"missing country", CheckRequest{Name: "John"}, "validation_error"},
		{"long country", CheckRequest{Name: "John", Country: "DEU"}, "validation_error"},
		{"numeric country", CheckRequest{Name: "John", Country: "12"}, "validation_error"},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			rec := s.do(http.MethodPost, "/compliance/check", tt.body)
			s.Equal(http.StatusBadRequest, rec.Code)
			s.Equal(tt.code, decode[map[string]string](s, rec)["error"])
		})
	}
	s.Empty(s.decider.calls, "invalid requests never reach the engine")
}

func (s *HandlerSuite) TestCheckRejectsBlankNameAfterTrim() {
	rec := s.do(http.MethodPost, "/compliance/check", `{"name":"   ","country":"fr"}`)
	s.Equal(http.StatusBadRequest, rec.Code)

	body := decode[map[string]string](s, rec)
	s.Equal("validation_error", body["error"])
	s.Equal("name must not be blank", body["error_description"])
	s.Empty(s.decider.calls)
	s.Empty(s.audit.ByAction(audit.ActionDecisionMade))
}

// =============================================================================
// POST /compliance/analyze-text
// =============================================================================

func (s *HandlerSuite) TestAnalyzeText() {
	rec := s.do(http.MethodPost, "/compliance/analyze-text", AnalyzeTextRequest{Text: sanctionsNews})
	s.Require().Equal(http.StatusOK, rec.Code)

	resp := decode[AnalyzeTextResponse](s, rec)
	s.Equal("MEDIUM", resp.RiskLevel)
	s.Equal([]string{"sanction", "violation"}, resp.Keywords)
	s.Equal(40.0, resp.RiskScore)
	s.Equal("heuristic", resp.Source)
	s.Equal(sanctionsNews[:100]+"...", resp.Summary)

	stored, err := s.events.ListByCountry(context.Background(), "", 0)
	s.Require().NoError(err)
	s.Empty(stored, "no country, no event")
	s.Len(s.audit.ByAction(audit.ActionTextClassified), 1)
}

func (s *HandlerSuite) TestAnalyzeTextStoresEventForCountry() {
	rec := s.do(http.MethodPost, "/compliance/analyze-text", AnalyzeTextRequest{Text: sanctionsNews, Country: "ir"})
	s.Require().Equal(http.StatusOK, rec.Code)

	stored, err := s.events.ListByCountry(context.Background(), "IR", 10)
	s.Require().NoError(err)
	s.Require().Len(stored, 1)
	s.Equal("MEDIUM", stored[0].Severity)
	s.Equal(sanctionsNews, stored[0].Description)
	s.Equal(40.0, stored[0].RiskScore)

	list := decode[EventsResponse](s, s.do(http.MethodGet, "/compliance/events?country=IR", nil))
	s.Require().Len(list.Events, 1)
	s.Equal([]string{"sanction", "violation"}, list.Events[0].Keywords)
}

func (s *HandlerSuite) TestAnalyzeTextEmptyKeywordsRenderAsArray() {
	rec := s.do(http.MethodPost, "/compliance/analyze-text", AnalyzeTextRequest{Text: "Markets were calm today."})
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"keywords":[]`)
}

func (s *HandlerSuite) TestAnalyzeTextSurvivesEventStoreFailure() {
	s.events = failingEventStore{}
	s.buildRouter()

	rec := s.do(http.MethodPost, "/compliance/analyze-text", AnalyzeTextRequest{Text: sanctionsNews, Country: "IR"})
	s.Equal(http.StatusOK, rec.Code)
}

func (s *HandlerSuite) TestAnalyzeTextValidation() {
	rec := s.do(http.MethodPost, "/compliance/analyze-text", AnalyzeTextRequest{})
	s.Equal(http.StatusBadRequest, rec.Code)
	rec = s.do(http.MethodPost, "/compliance/analyze-text", AnalyzeTextRequest{Text: "x", Country: "IRN"})
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/compliance/analyze-text", AnalyzeTextRequest{Text: " \n\t "})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("text must not be blank", decode[map[string]string](s, rec)["error_description"])
	s.Empty(s.audit.ByAction(audit.ActionTextClassified))
}

// =============================================================================
// GET /compliance/risk-scores, /compliance/events
// =============================================================================

func (s *HandlerSuite) TestRiskScores() {
	empty := decode[RiskScoresResponse](s, s.do(http.MethodGet, "/compliance/risk-scores", nil))
	s.NotNil(empty.Scores)
	s.Empty(empty.Scores)

	at := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	s.Require().NoError(s.scores.Upsert(context.Background(), storage.RiskScore{CountryCode: "DE", Score: 12.3, Fundamentals: 10, UpdatedAt: at}))
	s.Require().NoError(s.scores.Upsert(context.Background(), storage.RiskScore{CountryCode: "NK", Score: 100, Fundamentals: 93, UpdatedAt: at}))

	resp := decode[RiskScoresResponse](s, s.do(http.MethodGet, "/compliance/risk-scores", nil))
	s.Require().Len(resp.Scores, 2)
	s.Equal("DE", resp.Scores[0].CountryCode)
	s.Equal(93.0, resp.Scores[1].Fundamentals)
	s.Equal(at, resp.Scores[1].UpdatedAt)
}

func (s *HandlerSuite) TestEventsValidation() {
	s.Equal(http.StatusBadRequest, s.do(http.MethodGet, "/compliance/events", nil).Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodGet, "/compliance/events?country=IR&limit=0", nil).Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodGet, "/compliance/events?country=IR&limit=abc", nil).Code)
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/compliance/events?country=ir&limit=5", nil).Code)
}

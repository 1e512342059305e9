// Package handler exposes the screening endpoints: counterparty checks, text
// classification, refreshed country scores and stored events.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"geopulse/internal/audit"
	"geopulse/internal/screening/decision"
	"geopulse/internal/screening/textrisk"
	"geopulse/internal/storage"
	dErrors "geopulse/pkg/domain-errors"
	"geopulse/pkg/platform/httputil"
	"geopulse/pkg/platform/middleware/request"
	"geopulse/pkg/requestcontext"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 500
)

// Decider screens a counterparty.
type Decider interface {
	Decide(ctx context.Context, entityName, entityCountry string) decision.Decision
}

// Classifier scores free text.
type Classifier interface {
	Classify(ctx context.Context, text string) textrisk.Verdict
}

// Handler handles the /compliance endpoints.
type Handler struct {
	logger     *slog.Logger
	decider    Decider
	classifier Classifier
	scores     storage.RiskScoreStore
	events     storage.EventStore
	recorder   *audit.Recorder
}

// New creates a screening Handler. recorder may be nil.
func New(
	decider Decider,
	classifier Classifier,
	scores storage.RiskScoreStore,
	events storage.EventStore,
	recorder *audit.Recorder,
	logger *slog.Logger) *Handler {
	return &Handler{
		logger:     logger,
		decider:    decider,
		classifier: classifier,
		scores:     scores,
		events:     events,
		recorder:   recorder,
	}
}

// Register registers the screening routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/compliance", func(r chi.Router) {
		r.Post("/check", h.handleCheck)
		r.Post("/analyze-text", h.handleAnalyzeText)
		r.Get("/risk-scores", h.handleRiskScores)
		r.Get("/events", h.handleEvents)
	})
}

func (h *Handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CheckRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	d := h.decider.Decide(ctx, req.Name, req.Country)
	h.recorder.Emit(ctx, audit.Event{
		Action:    audit.ActionDecisionMade,
		Subject:   req.Name,
		Country:   req.Country,
		Decision:  string(d.Status),
		Reason:    d.Reason,
		Score:     d.CountryRiskScore,
		RequestID: requestID,
	})
	httputil.WriteJSON(w, http.StatusOK, toCheckResponse(d))
}

func (h *Handler) handleAnalyzeText(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[AnalyzeTextRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	v := h.classifier.Classify(ctx, req.Text)
	h.recorder.Emit(ctx, audit.Event{
		Action:    audit.ActionTextClassified,
		Subject:   string(v.Source),
		Country:   req.Country,
		Decision:  string(v.Level),
		Reason:    strings.Join(v.Keywords, ","),
		Score:     v.Score,
		RequestID: requestID,
	})

	if req.Country != "" {
		event := storage.GeoEvent{
			ID:          uuid.New(),
			Timestamp:   requestcontext.Now(ctx),
			Country:     req.Country,
			Severity:    string(v.Level),
			Title:       v.Summary,
			Description: req.Text,
			Keywords:    v.Keywords,
			RiskScore:   v.Score,
			Source:      string(v.Source),
		}
		if err := h.events.Append(ctx, event); err != nil {
			// the verdict is still useful without the stored event
			h.logger.ErrorContext(ctx, "failed to store geo event",
				"request_id", requestID,
				"country", req.Country,
				"error", err,
			)
		}
	}

	httputil.WriteJSON(w, http.StatusOK, toAnalyzeTextResponse(v))
}

func (h *Handler) handleRiskScores(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scores, err := h.scores.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list risk scores",
			"request_id", request.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list risk scores"))
		return
	}

	resp := RiskScoresResponse{Scores: make([]RiskScoreResponse, 0, len(scores))}
	for _, s := range scores {
		resp.Scores = append(resp.Scores, RiskScoreResponse{
			CountryCode:  s.CountryCode,
			Score:        s.Score,
			Fundamentals: s.Fundamentals,
			UpdatedAt:    s.UpdatedAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	country := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("country")))
	if len(country) != 2 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "country query parameter must be a two-letter code"))
		return
	}

	limit := defaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxEventLimit {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "limit must be between 1 and 500"))
			return
		}
		limit = n
	}

	events, err := h.events.ListByCountry(ctx, country, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list geo events",
			"request_id", request.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list events"))
		return
	}

	resp := EventsResponse{Events: make([]EventResponse, 0, len(events))}
	for _, e := range events {
		resp.Events = append(resp.Events, toEventResponse(e))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// Package handler exposes payment submission and lookup.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"geopulse/internal/payments"
	"geopulse/internal/storage"
	dErrors "geopulse/pkg/domain-errors"
	"geopulse/pkg/platform/httputil"
	"geopulse/pkg/platform/middleware/auth"
	"geopulse/pkg/platform/middleware/request"
	"geopulse/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service defines the payment operations the handler needs.
type Service interface {
	Create(ctx context.Context, req payments.Request) (*storage.Transaction, error)
	Get(ctx context.Context, hash string) (*storage.Transaction, error)
}

// Handler handles /transactions.
type Handler struct {
	logger       *slog.Logger
	payments     Service
	jwtValidator auth.JWTValidator
}

// New creates a payments Handler. A nil jwtValidator leaves the routes open.
func New(payments Service, jwtValidator auth.JWTValidator, logger *slog.Logger) *Handler {
	return &Handler{
		logger:       logger,
		payments:     payments,
		jwtValidator: jwtValidator,
	}
}

// Register registers the payment routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/transactions", func(r chi.Router) {
		if h.jwtValidator != nil {
			r.Use(auth.RequireAuth(h.jwtValidator, h.logger))
		}
		r.Post("/", h.handleCreate)
		r.Get("/{hash}", h.handleGet)
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateTransactionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	tx, err := h.payments.Create(ctx, req.toService(requestID))
	if err != nil {
		h.logFailure(ctx, "create transaction failed", requestID, err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "transaction created",
		"request_id", requestID,
		"tx_hash", tx.Hash,
		"user_id", requestcontext.UserID(ctx),
	)
	httputil.WriteJSON(w, http.StatusCreated, toTransactionResponse(tx))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	tx, err := h.payments.Get(ctx, chi.URLParam(r, "hash"))
	if err != nil {
		h.logFailure(ctx, "get transaction failed", requestID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toTransactionResponse(tx))
}

// logFailure logs client errors at WARN and everything else at ERROR.
func (h *Handler) logFailure(ctx context.Context, msg, requestID string, err error) {
	if dErrors.HTTPStatus(dErrors.CodeOf(err)) < http.StatusInternalServerError {
		h.logger.WarnContext(ctx, msg, "request_id", requestID, "error", err)
		return
	}
	h.logger.ErrorContext(ctx, msg, "request_id", requestID, "error", err)
}

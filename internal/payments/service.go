// Package payments screens and submits cross-border payments.
package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"geopulse/internal/audit"
	"geopulse/internal/ledger"
	"geopulse/internal/screening/decision"
	"geopulse/internal/storage"
	dErrors "geopulse/pkg/domain-errors"
	"geopulse/pkg/platform/sentinel"
)

// ErrBlocked is wrapped by every error returned for a screened-out payment.
var ErrBlocked = errors.New("transaction blocked")

// Screener decides whether a counterparty may be paid.
type Screener interface {
	Decide(ctx context.Context, entityName, entityCountry string) decision.Decision
}

// Request is a payment order.
type Request struct {
	Destination     string
	Amount          string
	SenderName      string
	SenderCountry   string
	ReceiverName    string
	ReceiverCountry string
	RequestID       string
}

// Service orchestrates screening, ledger submission and persistence.
type Service struct {
	screener Screener
	ledger   ledger.Client
	store    storage.TransactionStore
	recorder *audit.Recorder
	currency string
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Service)

func WithAuditRecorder(r *audit.Recorder) Option {
	return func(s *Service) {
		s.recorder = r
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithCurrency sets the issued currency code stored on transactions.
func WithCurrency(code string) Option {
	return func(s *Service) {
		if code != "" {
			s.currency = code
		}
	}
}

func New(screener Screener, client ledger.Client, store storage.TransactionStore, opts ...Option) (*Service, error) {
	if screener == nil {
		return nil, fmt.Errorf("screener is required")
	}
	if client == nil {
		return nil, fmt.Errorf("ledger client is required")
	}
	if store == nil {
		return nil, fmt.Errorf("transaction store is required")
	}
	s := &Service{
		screener: screener,
		ledger:   client,
		store:    store,
		currency: ledger.DefaultCurrency,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Create screens the receiver, submits the payment and records it as
// submitted. Nothing is persisted when the payment is blocked or the ledger
// rejects it.
func (s *Service) Create(ctx context.Context, req Request) (*storage.Transaction, error) {
	d := s.screener.Decide(ctx, req.ReceiverName, req.ReceiverCountry)
	s.recorder.Emit(ctx, audit.Event{
		Action:    audit.ActionDecisionMade,
		Subject:   req.ReceiverName,
		Country:   strings.ToUpper(req.ReceiverCountry),
		Decision:  string(d.Status),
		Reason:    d.Reason,
		Score:     d.CountryRiskScore,
		RequestID: req.RequestID,
	})
	if d.Blocked() {
		return nil, dErrors.Wrap(ErrBlocked, dErrors.CodeBlocked, "Transaction blocked: "+d.BlockReason())
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "amount must be a decimal number")
	}
	if !amount.IsPositive() {
		return nil, dErrors.New(dErrors.CodeValidation, "amount must be greater than zero")
	}

	sub, err := s.ledger.SubmitPayment(ctx, ledger.Payment{
		Destination: req.Destination,
		Amount:      amount,
		Currency:    s.currency,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "ledger submission failed",
			"destination", req.Destination,
			"category", ledger.CategoryOf(err),
			"error", err,
		)
		return nil, mapLedgerError(err)
	}

	now := s.now().UTC()
	tx := &storage.Transaction{
		ID:               uuid.New(),
		Hash:             sub.Hash,
		Sender:           req.SenderName,
		Receiver:         req.ReceiverName,
		ReceiverCountry:  strings.ToUpper(req.ReceiverCountry),
		Destination:      req.Destination,
		Amount:           amount,
		Currency:         s.currency,
		Status:           storage.TxSubmitted,
		CompliancePassed: true,
		RiskScoreAtTime:  d.CountryRiskScore,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.Create(ctx, tx); err != nil {
		// The payment is already on the ledger; keep the hash in the log so it
		// can be recovered by hand.
		s.logger.ErrorContext(ctx, "persist submitted transaction failed",
			"tx_hash", sub.Hash,
			"error", err,
		)
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "transaction already recorded")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record transaction")
	}

	s.logger.InfoContext(ctx, "payment submitted",
		"tx_hash", tx.Hash,
		"receiver_country", tx.ReceiverCountry,
		"risk_score", tx.RiskScoreAtTime,
	)
	return tx, nil
}

// Get returns a stored transaction by ledger hash.
func (s *Service) Get(ctx context.Context, hash string) (*storage.Transaction, error) {
	tx, err := s.store.FindByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "transaction not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load transaction")
	}
	return tx, nil
}

func mapLedgerError(err error) error {
	switch ledger.CategoryOf(err) {
	case ledger.ErrorRejected:
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "ledger rejected the payment")
	case ledger.ErrorTimeout:
		return dErrors.Wrap(err, dErrors.CodeTimeout, "ledger did not respond in time")
	default:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "ledger unavailable")
	}
}

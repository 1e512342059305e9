// Package postgres implements the storage interfaces on PostgreSQL through
// database/sql and lib/pq.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"geopulse/internal/storage"
	"geopulse/pkg/platform/tx"
)

//go:embed schema.sql
var schema string

const uniqueViolation = "23505"

// Open connects with lib/pq and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Migrate applies the idempotent schema in one transaction.
func Migrate(ctx context.Context, db *sql.DB) error {
	return tx.Run(ctx, db, func(ctx context.Context) error {
		if _, err := tx.QuerierFrom(ctx, db).ExecContext(ctx, schema); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
		return nil
	})
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// TransactionStore persists payments.
type TransactionStore struct {
	db *sql.DB
}

func NewTransactionStore(db *sql.DB) *TransactionStore {
	return &TransactionStore{db: db}
}

const txColumns = `id, tx_hash, sender, receiver, receiver_country, destination, amount, currency,
	status, compliance_passed, risk_score, created_at, updated_at`

func (s *TransactionStore) Create(ctx context.Context, t *storage.Transaction) error {
	if t == nil {
		return fmt.Errorf("transaction is required")
	}
	_, err := tx.QuerierFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO transactions (`+txColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		t.ID, t.Hash, t.Sender, t.Receiver, t.ReceiverCountry, t.Destination, t.Amount, t.Currency,
		string(t.Status), t.CompliancePassed, t.RiskScoreAtTime, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("transaction %s: %w", t.Hash, storage.ErrConflict)
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (s *TransactionStore) FindByHash(ctx context.Context, hash string) (*storage.Transaction, error) {
	row := tx.QuerierFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE tx_hash = $1`, hash)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("find transaction: %w", err)
	}
	return t, nil
}

func (s *TransactionStore) ListByStatus(ctx context.Context, status storage.TxStatus) ([]*storage.Transaction, error) {
	rows, err := tx.QuerierFrom(ctx, s.db).QueryContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE status = $1 ORDER BY created_at`, string(status))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := make([]*storage.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return out, nil
}

func (s *TransactionStore) UpdateStatus(ctx context.Context, hash string, status storage.TxStatus, at time.Time) error {
	res, err := tx.QuerierFrom(ctx, s.db).ExecContext(ctx,
		`UPDATE transactions SET status = $2, updated_at = $3 WHERE tx_hash = $1`,
		hash, string(status), at)
	if err != nil {
		return fmt.Errorf("update transaction status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update transaction status: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (*storage.Transaction, error) {
	var (
		t      storage.Transaction
		status string
	)
	err := row.Scan(&t.ID, &t.Hash, &t.Sender, &t.Receiver, &t.ReceiverCountry, &t.Destination,
		&t.Amount, &t.Currency, &status, &t.CompliancePassed, &t.RiskScoreAtTime, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Status = storage.TxStatus(status)
	return &t, nil
}

// RiskScoreStore keeps one row per country.
type RiskScoreStore struct {
	db *sql.DB
}

func NewRiskScoreStore(db *sql.DB) *RiskScoreStore {
	return &RiskScoreStore{db: db}
}

func (s *RiskScoreStore) Upsert(ctx context.Context, score storage.RiskScore) error {
	_, err := tx.QuerierFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO risk_scores (country_code, score, fundamentals, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (country_code) DO UPDATE
		SET score = EXCLUDED.score,
		    fundamentals = EXCLUDED.fundamentals,
		    updated_at = EXCLUDED.updated_at`,
		score.CountryCode, score.Score, score.Fundamentals, score.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert risk score: %w", err)
	}
	return nil
}

func (s *RiskScoreStore) Find(ctx context.Context, countryCode string) (storage.RiskScore, error) {
	var r storage.RiskScore
	err := tx.QuerierFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT country_code, score, fundamentals, updated_at FROM risk_scores WHERE country_code = $1`,
		countryCode,
	).Scan(&r.CountryCode, &r.Score, &r.Fundamentals, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.RiskScore{}, storage.ErrNotFound
		}
		return storage.RiskScore{}, fmt.Errorf("find risk score: %w", err)
	}
	return r, nil
}

func (s *RiskScoreStore) List(ctx context.Context) ([]storage.RiskScore, error) {
	rows, err := tx.QuerierFrom(ctx, s.db).QueryContext(ctx,
		`SELECT country_code, score, fundamentals, updated_at FROM risk_scores ORDER BY country_code`)
	if err != nil {
		return nil, fmt.Errorf("list risk scores: %w", err)
	}
	defer rows.Close()

	out := make([]storage.RiskScore, 0)
	for rows.Next() {
		var r storage.RiskScore
		if err := rows.Scan(&r.CountryCode, &r.Score, &r.Fundamentals, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan risk score: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// EventStore appends classified events.
type EventStore struct {
	db *sql.DB
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

func (s *EventStore) Append(ctx context.Context, e storage.GeoEvent) error {
	keywords := e.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	_, err := tx.QuerierFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO geo_events (id, occurred_at, country, severity, title, description, keywords, risk_score, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.Timestamp, e.Country, e.Severity, e.Title, e.Description, pq.Array(keywords), e.RiskScore, e.Source,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("event %s: %w", e.ID, storage.ErrConflict)
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *EventStore) ListByCountry(ctx context.Context, country string, limit int) ([]storage.GeoEvent, error) {
	query := `SELECT id, occurred_at, country, severity, title, description, keywords, risk_score, source
		FROM geo_events WHERE country = $1 ORDER BY occurred_at DESC`
	args := []any{country}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := tx.QuerierFrom(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	out := make([]storage.GeoEvent, 0)
	for rows.Next() {
		var e storage.GeoEvent
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Country, &e.Severity, &e.Title, &e.Description,
			pq.Array(&e.Keywords), &e.RiskScore, &e.Source); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

var (
	_ storage.TransactionStore = (*TransactionStore)(nil)
	_ storage.RiskScoreStore   = (*RiskScoreStore)(nil)
	_ storage.EventStore       = (*EventStore)(nil)
)

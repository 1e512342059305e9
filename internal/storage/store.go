// Package storage defines persistence for transactions, refreshed country
// scores and classified events, with an in-memory implementation. The
// PostgreSQL implementation lives in storage/postgres.
package storage

import (
	"context"
	"time"

	"geopulse/pkg/platform/sentinel"
)

var (
	ErrNotFound = sentinel.ErrNotFound
	ErrConflict = sentinel.ErrConflict
)

// TransactionStore persists payments. Hashes are unique.
type TransactionStore interface {
	Create(ctx context.Context, tx *Transaction) error
	FindByHash(ctx context.Context, hash string) (*Transaction, error)
	ListByStatus(ctx context.Context, status TxStatus) ([]*Transaction, error)
	UpdateStatus(ctx context.Context, hash string, status TxStatus, at time.Time) error
}

// RiskScoreStore keeps one row per country code.
type RiskScoreStore interface {
	Upsert(ctx context.Context, score RiskScore) error
	Find(ctx context.Context, countryCode string) (RiskScore, error)
	List(ctx context.Context) ([]RiskScore, error)
}

// EventStore is append-only.
type EventStore interface {
	Append(ctx context.Context, event GeoEvent) error
	ListByCountry(ctx context.Context, country string, limit int) ([]GeoEvent, error)
}

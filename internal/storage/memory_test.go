package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

// =============================================================================
// In-Memory Store Test Suite
// =============================================================================

type InMemorySuite struct {
	suite.Suite
	ctx    context.Context
	txs    *InMemoryTransactionStore
	scores *InMemoryRiskScoreStore
	events *InMemoryEventStore
}

func TestInMemorySuite(t *testing.T) {
	suite.Run(t, new(InMemorySuite))
}

func (s *InMemorySuite) SetupTest() {
	s.ctx = context.Background()
	s.txs = NewInMemoryTransactionStore()
	s.scores = NewInMemoryRiskScoreStore()
	s.events = NewInMemoryEventStore()
}

func newTx(hash string, created time.Time) *Transaction {
	return &Transaction{
		ID:        uuid.New(),
		Hash:      hash,
		Amount:    decimal.RequireFromString("10.25"),
		Currency:  "GEO",
		Status:    TxSubmitted,
		CreatedAt: created,
	}
}

// =============================================================================
// Transactions
// =============================================================================

func (s *InMemorySuite) TestTransactions() {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	s.Run("create and find", func() {
		s.Require().NoError(s.txs.Create(s.ctx, newTx("H1", base)))
		got, err := s.txs.FindByHash(s.ctx, "H1")
		s.Require().NoError(err)
		s.True(decimal.RequireFromString("10.25").Equal(got.Amount))
	})

	s.Run("duplicate hash conflicts", func() {
		s.ErrorIs(s.txs.Create(s.ctx, newTx("H1", base)), ErrConflict)
	})

	s.Run("unknown hash", func() {
		_, err := s.txs.FindByHash(s.ctx, "nope")
		s.ErrorIs(err, ErrNotFound)
		s.ErrorIs(s.txs.UpdateStatus(s.ctx, "nope", TxSuccess, base), ErrNotFound)
	})

	s.Run("list by status oldest first", func() {
		s.Require().NoError(s.txs.Create(s.ctx, newTx("H0", base.Add(-time.Hour))))
		s.Require().NoError(s.txs.Create(s.ctx, newTx("H2", base.Add(time.Hour))))

		pending, err := s.txs.ListByStatus(s.ctx, TxSubmitted)
		s.Require().NoError(err)
		s.Require().Len(pending, 3)
		s.Equal([]string{"H0", "H1", "H2"}, []string{pending[0].Hash, pending[1].Hash, pending[2].Hash})
	})

	s.Run("update status", func() {
		at := base.Add(2 * time.Hour)
		s.Require().NoError(s.txs.UpdateStatus(s.ctx, "H1", TxSuccess, at))
		got, _ := s.txs.FindByHash(s.ctx, "H1")
		s.Equal(TxSuccess, got.Status)
		s.Equal(at, got.UpdatedAt)

		pending, _ := s.txs.ListByStatus(s.ctx, TxSubmitted)
		s.Len(pending, 2)
	})

	s.Run("returned copies do not alias the store", func() {
		got, _ := s.txs.FindByHash(s.ctx, "H2")
		got.Status = TxFailed
		again, _ := s.txs.FindByHash(s.ctx, "H2")
		s.Equal(TxSubmitted, again.Status)
	})
}

// =============================================================================
// Risk Scores
// =============================================================================

func (s *InMemorySuite) TestRiskScoresUpsertByCountry() {
	s.Require().NoError(s.scores.Upsert(s.ctx, RiskScore{CountryCode: "US", Score: 12}))
	s.Require().NoError(s.scores.Upsert(s.ctx, RiskScore{CountryCode: "CN", Score: 40}))
	s.Require().NoError(s.scores.Upsert(s.ctx, RiskScore{CountryCode: "US", Score: 14}))

	all, err := s.scores.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal("CN", all[0].CountryCode)
	s.Equal(14.0, all[1].Score)

	_, err = s.scores.Find(s.ctx, "FR")
	s.ErrorIs(err, ErrNotFound)
}

// =============================================================================
// Events
// =============================================================================

func (s *InMemorySuite) TestEventsNewestFirst() {
	for i, title := range []string{"first", "second", "third"} {
		s.Require().NoError(s.events.Append(s.ctx, GeoEvent{
			ID:        uuid.New(),
			Timestamp: time.Unix(int64(i), 0),
			Country:   "IR",
			Title:     title,
		}))
	}
	s.Require().NoError(s.events.Append(s.ctx, GeoEvent{Country: "US", Title: "other"}))

	got, err := s.events.ListByCountry(s.ctx, "IR", 2)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal("third", got[0].Title)
	s.Equal("second", got[1].Title)

	all, _ := s.events.ListByCountry(s.ctx, "IR", 0)
	s.Len(all, 3)
}

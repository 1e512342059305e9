package storage

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TxStatus tracks a payment through settlement.
type TxStatus string

const (
	TxSubmitted TxStatus = "submitted"
	TxSuccess   TxStatus = "success"
	TxFailed    TxStatus = "failed"
)

// Transaction is a screened payment that was handed to the ledger.
type Transaction struct {
	ID               uuid.UUID
	Hash             string
	Sender           string
	Receiver         string
	ReceiverCountry  string
	Destination      string
	Amount           decimal.Decimal
	Currency         string
	Status           TxStatus
	CompliancePassed bool
	RiskScoreAtTime  float64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// RiskScore is the latest refreshed score for one country.
type RiskScore struct {
	CountryCode  string
	Score        float64
	Fundamentals float64
	UpdatedAt    time.Time
}

// GeoEvent records a classified piece of news for a country.
type GeoEvent struct {
	ID          uuid.UUID
	Timestamp   time.Time
	Country     string
	Severity    string // LOW, MEDIUM or HIGH
	Title       string
	Description string
	Keywords    []string
	RiskScore   float64
	Source      string // heuristic or llm
}

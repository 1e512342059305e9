// Package ledger submits payments to, and reads results from, an XRP Ledger
// style settlement network.
package ledger

//go:generate mockgen -source=ledger.go -destination=mocks/mocks.go -package=mocks Client

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// CodeSuccess is the engine result of an applied transaction.
const CodeSuccess = "tesSUCCESS"

// DefaultCurrency is the issued currency used when none is configured.
const DefaultCurrency = "GEO"

// Payment is an issued-currency transfer from the treasury to destination.
type Payment struct {
	Destination string
	Amount      decimal.Decimal
	Currency    string
}

// Submission acknowledges a payment accepted for relay.
type Submission struct {
	Hash         string
	EngineResult string
	SubmittedAt  time.Time
}

// Result is the ledger's view of a transaction.
type Result struct {
	Hash      string
	Code      string // meta.TransactionResult, e.g. tesSUCCESS or tecPATH_DRY
	Validated bool
}

// Succeeded reports whether the transaction applied successfully.
func (r Result) Succeeded() bool {
	return r.Code == CodeSuccess
}

// Client is the settlement network boundary.
type Client interface {
	SubmitPayment(ctx context.Context, p Payment) (Submission, error)
	TransactionResult(ctx context.Context, hash string) (Result, error)
}

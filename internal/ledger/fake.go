package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Fake is an in-memory Client for local runs and tests. Submitted payments
// validate immediately with tesSUCCESS unless overridden with SetResult.
type Fake struct {
	mu        sync.Mutex
	results   map[string]Result
	submitted []Payment

	submitErr error
	resultErr error
}

func NewFake() *Fake {
	return &Fake{results: make(map[string]Result)}
}

// FailSubmissions makes every SubmitPayment return err until reset with nil.
func (f *Fake) FailSubmissions(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitErr = err
}

// FailLookups makes every TransactionResult return err until reset with nil.
func (f *Fake) FailLookups(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resultErr = err
}

// SetResult overrides the stored result for hash.
func (f *Fake) SetResult(hash string, r Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r.Hash = hash
	f.results[hash] = r
}

// Submitted returns a copy of the payments accepted so far.
func (f *Fake) Submitted() []Payment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Payment(nil), f.submitted...)
}

func (f *Fake) SubmitPayment(_ context.Context, p Payment) (Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return Submission{}, f.submitErr
	}
	sum := sha256.Sum256([]byte(uuid.NewString()))
	hash := strings.ToUpper(hex.EncodeToString(sum[:]))
	f.results[hash] = Result{Hash: hash, Code: CodeSuccess, Validated: true}
	f.submitted = append(f.submitted, p)
	return Submission{Hash: hash, EngineResult: CodeSuccess, SubmittedAt: time.Now().UTC()}, nil
}

func (f *Fake) TransactionResult(_ context.Context, hash string) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resultErr != nil {
		return Result{}, f.resultErr
	}
	r, ok := f.results[hash]
	if !ok {
		return Result{}, NewError(ErrorNotFound, opTx, "txnNotFound", nil)
	}
	return r, nil
}

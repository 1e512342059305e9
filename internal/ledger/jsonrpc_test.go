package ledger

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

// =============================================================================
// JSON-RPC Client Test Suite
// =============================================================================

type JSONRPCSuite struct {
	suite.Suite
	handler  http.HandlerFunc
	server   *httptest.Server
	client   *JSONRPCClient
	lastBody map[string]any
}

func TestJSONRPCSuite(t *testing.T) {
	suite.Run(t, new(JSONRPCSuite))
}

func (s *JSONRPCSuite) SetupTest() {
	s.lastBody = nil
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &s.lastBody)
		s.handler(w, r)
	}))
	client, err := NewJSONRPCClient(Config{
		URL:           s.server.URL,
		IssuerAccount: "rIssuer",
		IssuerSecret:  "sSecret",
		Timeout:       200 * time.Millisecond,
	})
	s.Require().NoError(err)
	s.client = client
}

func (s *JSONRPCSuite) TearDownTest() {
	s.server.Close()
}

func (s *JSONRPCSuite) respond(status int, body string) {
	s.handler = func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func (s *JSONRPCSuite) TestNewValidatesConfig() {
	_, err := NewJSONRPCClient(Config{})
	s.Error(err)
	_, err = NewJSONRPCClient(Config{URL: "http://node"})
	s.ErrorContains(err, "issuer")
}

// =============================================================================
// Submit Tests
// =============================================================================

func (s *JSONRPCSuite) TestSubmitPayment() {
	payment := Payment{Destination: "rDest", Amount: decimal.RequireFromString("12.50")}

	s.Run("accepted", func() {
		s.respond(http.StatusOK, `{"result":{"status":"success","engine_result":"tesSUCCESS","tx_json":{"hash":"ABC123"}}}`)
		sub, err := s.client.SubmitPayment(context.Background(), payment)
		s.Require().NoError(err)
		s.Equal("ABC123", sub.Hash)
		s.Equal(CodeSuccess, sub.EngineResult)

		s.Equal("submit", s.lastBody["method"])
		params := s.lastBody["params"].([]any)[0].(map[string]any)
		s.Equal("sSecret", params["secret"])
		tx := params["tx_json"].(map[string]any)
		s.Equal("Payment", tx["TransactionType"])
		s.Equal("rIssuer", tx["Account"])
		s.Equal("rDest", tx["Destination"])
		s.Equal(map[string]any{"currency": "GEO", "issuer": "rIssuer", "value": "12.5"}, tx["Amount"])
	})

	s.Run("queued results are accepted", func() {
		s.respond(http.StatusOK, `{"result":{"status":"success","engine_result":"terQUEUED","tx_json":{"hash":"Q1"}}}`)
		sub, err := s.client.SubmitPayment(context.Background(), payment)
		s.Require().NoError(err)
		s.Equal("Q1", sub.Hash)
	})

	s.Run("malformed transaction is rejected", func() {
		s.respond(http.StatusOK, `{"result":{"status":"success","engine_result":"temBAD_AMOUNT","engine_result_message":"bad amount","tx_json":{"hash":"X"}}}`)
		_, err := s.client.SubmitPayment(context.Background(), payment)
		s.Equal(ErrorRejected, CategoryOf(err))
		s.False(IsRetryable(err))
		s.ErrorContains(err, "temBAD_AMOUNT")
	})

	s.Run("missing hash", func() {
		s.respond(http.StatusOK, `{"result":{"status":"success","engine_result":"tesSUCCESS","tx_json":{}}}`)
		_, err := s.client.SubmitPayment(context.Background(), payment)
		s.Equal(ErrorBadData, CategoryOf(err))
	})
}

// =============================================================================
// Lookup Tests
// =============================================================================

func (s *JSONRPCSuite) TestTransactionResult() {
	s.Run("validated success", func() {
		s.respond(http.StatusOK, `{"result":{"status":"success","validated":true,"meta":{"TransactionResult":"tesSUCCESS"}}}`)
		res, err := s.client.TransactionResult(context.Background(), "H1")
		s.Require().NoError(err)
		s.True(res.Validated)
		s.True(res.Succeeded())
		s.Equal("H1", res.Hash)

		s.Equal("tx", s.lastBody["method"])
		params := s.lastBody["params"].([]any)[0].(map[string]any)
		s.Equal("H1", params["transaction"])
	})

	s.Run("validated failure", func() {
		s.respond(http.StatusOK, `{"result":{"status":"success","validated":true,"meta":{"TransactionResult":"tecPATH_DRY"}}}`)
		res, err := s.client.TransactionResult(context.Background(), "H2")
		s.Require().NoError(err)
		s.False(res.Succeeded())
	})

	s.Run("not yet validated", func() {
		s.respond(http.StatusOK, `{"result":{"status":"success","validated":false}}`)
		res, err := s.client.TransactionResult(context.Background(), "H3")
		s.Require().NoError(err)
		s.False(res.Validated)
	})
}

func (s *JSONRPCSuite) TestErrorCategories() {
	tests := []struct {
		name      string
		status    int
		body      string
		category  ErrorCategory
		retryable bool
	}{
		{"unknown transaction", 200, `{"result":{"status":"error","error":"txnNotFound"}}`, ErrorNotFound, false},
		{"node asks to slow down", 200, `{"result":{"status":"error","error":"slowDown"}}`, ErrorRateLimited, true},
		{"node busy", 200, `{"result":{"status":"error","error":"tooBusy"}}`, ErrorOutage, true},
		{"other rpc error", 200, `{"result":{"status":"error","error":"invalidParams"}}`, ErrorRejected, false},
		{"http 503", 503, `{}`, ErrorOutage, true},
		{"http 429", 429, `{}`, ErrorRateLimited, true},
		{"http 400", 400, `{}`, ErrorInternal, false},
		{"garbage body", 200, `<html>`, ErrorBadData, false},
		{"no result", 200, `{"id":1}`, ErrorBadData, false},
	}
	for _, tc := range tests {
		s.Run(tc.name, func() {
			s.respond(tc.status, tc.body)
			_, err := s.client.TransactionResult(context.Background(), "H")
			s.Require().Error(err)
			s.Equal(tc.category, CategoryOf(err))
			s.Equal(tc.retryable, IsRetryable(err))
		})
	}
}

func (s *JSONRPCSuite) TestTimeoutIsRetryable() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}
	_, err := s.client.TransactionResult(context.Background(), "SLOW")
	s.Require().Error(err)
	s.True(IsRetryable(err))
}

func (s *JSONRPCSuite) TestConnectionRefusedIsOutage() {
	s.server.Close()
	_, err := s.client.TransactionResult(context.Background(), "H")
	s.Equal(ErrorOutage, CategoryOf(err))
	s.True(IsRetryable(err))
}

package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultTimeout = 15 * time.Second

	opSubmit = "submit"
	opTx     = "tx"
)

// Config locates a rippled JSON-RPC endpoint and the issuing account.
type Config struct {
	URL           string
	IssuerAccount string
	IssuerSecret  string
	Currency      string
	Timeout       time.Duration
}

// JSONRPCClient talks to a rippled node over JSON-RPC. Payments use
// sign-and-submit mode, so the node must be trusted with the issuer secret.
type JSONRPCClient struct {
	http     *resty.Client
	endpoint string
	account  string
	secret   string
	currency string
}

// NewJSONRPCClient validates cfg and builds a client.
func NewJSONRPCClient(cfg Config) (*JSONRPCClient, error) {
	if cfg.URL == "" {
		return nil, errors.New("ledger URL is required")
	}
	if cfg.IssuerAccount == "" || cfg.IssuerSecret == "" {
		return nil, errors.New("ledger issuer account and secret are required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Currency == "" {
		cfg.Currency = DefaultCurrency
	}
	return &JSONRPCClient{
		http: resty.New().
			SetTimeout(cfg.Timeout).
			SetHeader("Content-Type", "application/json"),
		endpoint: cfg.URL,
		account:  cfg.IssuerAccount,
		secret:   cfg.IssuerSecret,
		currency: cfg.Currency,
	}, nil
}

type rpcRequest struct {
	Method string `json:"method"`
	Params []any  `json:"params"`
}

type rpcStatus struct {
	Status       string `json:"status"`
	Error        string `json:"error"`
	ErrorMessage string `json:"error_message"`
}

type issuedAmount struct {
	Currency string `json:"currency"`
	Issuer   string `json:"issuer"`
	Value    string `json:"value"`
}

type paymentTx struct {
	TransactionType string       `json:"TransactionType"`
	Account         string       `json:"Account"`
	Destination     string       `json:"Destination"`
	Amount          issuedAmount `json:"Amount"`
}

type submitParams struct {
	Secret string    `json:"secret"`
	TxJSON paymentTx `json:"tx_json"`
}

type submitResult struct {
	rpcStatus
	EngineResult        string `json:"engine_result"`
	EngineResultMessage string `json:"engine_result_message"`
	TxJSON              struct {
		Hash string `json:"hash"`
	} `json:"tx_json"`
}

type txParams struct {
	Transaction string `json:"transaction"`
	Binary      bool   `json:"binary"`
}

type txResult struct {
	rpcStatus
	Hash      string `json:"hash"`
	Validated bool   `json:"validated"`
	Meta      struct {
		TransactionResult string `json:"TransactionResult"`
	} `json:"meta"`
}

// SubmitPayment issues p.Amount of the configured currency to p.Destination.
func (c *JSONRPCClient) SubmitPayment(ctx context.Context, p Payment) (Submission, error) {
	currency := p.Currency
	if currency == "" {
		currency = c.currency
	}
	params := submitParams{
		Secret: c.secret,
		TxJSON: paymentTx{
			TransactionType: "Payment",
			Account:         c.account,
			Destination:     p.Destination,
			Amount: issuedAmount{
				Currency: currency,
				Issuer:   c.account,
				Value:    p.Amount.String(),
			},
		},
	}

	var res submitResult
	if err := c.call(ctx, opSubmit, params, &res); err != nil {
		return Submission{}, err
	}
	if rejectedEngineResult(res.EngineResult) {
		return Submission{}, NewError(ErrorRejected, opSubmit,
			fmt.Sprintf("%s: %s", res.EngineResult, res.EngineResultMessage), nil)
	}
	if res.TxJSON.Hash == "" {
		return Submission{}, NewError(ErrorBadData, opSubmit, "response carries no transaction hash", nil)
	}
	return Submission{
		Hash:         res.TxJSON.Hash,
		EngineResult: res.EngineResult,
		SubmittedAt:  time.Now().UTC(),
	}, nil
}

// TransactionResult looks up hash. Unvalidated transactions are returned with
// Validated false and may carry an empty Code.
func (c *JSONRPCClient) TransactionResult(ctx context.Context, hash string) (Result, error) {
	var res txResult
	if err := c.call(ctx, opTx, txParams{Transaction: hash}, &res); err != nil {
		return Result{}, err
	}
	return Result{
		Hash:      hash,
		Code:      res.Meta.TransactionResult,
		Validated: res.Validated,
	}, nil
}

// resultStatus exposes the embedded status for call.
type resultStatus interface {
	status() rpcStatus
}

func (s rpcStatus) status() rpcStatus { return s }

func (c *JSONRPCClient) call(ctx context.Context, op string, params any, out resultStatus) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(rpcRequest{Method: op, Params: []any{params}}).
		Post(c.endpoint)
	if err != nil {
		return transportError(op, err)
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusTooManyRequests:
		return NewError(ErrorRateLimited, op, "rate limited", nil)
	case code >= http.StatusInternalServerError:
		return NewError(ErrorOutage, op, fmt.Sprintf("node returned HTTP %d", code), nil)
	case code >= http.StatusBadRequest:
		return NewError(ErrorInternal, op, fmt.Sprintf("node returned HTTP %d", code), nil)
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil || len(envelope.Result) == 0 {
		return NewError(ErrorBadData, op, "undecodable response", err)
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return NewError(ErrorBadData, op, "undecodable result", err)
	}
	if st := out.status(); st.Status == "error" || st.Error != "" {
		return rpcError(op, st)
	}
	return nil
}

func transportError(op string, err error) *Error {
	var nerr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &nerr) && nerr.Timeout()) {
		return NewError(ErrorTimeout, op, "request timed out", err)
	}
	return NewError(ErrorOutage, op, "request failed", err)
}

func rpcError(op string, st rpcStatus) *Error {
	msg := st.Error
	if st.ErrorMessage != "" {
		msg += ": " + st.ErrorMessage
	}
	switch st.Error {
	case "txnNotFound":
		return NewError(ErrorNotFound, op, msg, nil)
	case "slowDown":
		return NewError(ErrorRateLimited, op, msg, nil)
	case "tooBusy", "noNetwork", "noCurrent", "noClosed":
		return NewError(ErrorOutage, op, msg, nil)
	default:
		return NewError(ErrorRejected, op, msg, nil)
	}
}

// tem (malformed), tef (failure) and tel (local) results are never applied.
func rejectedEngineResult(code string) bool {
	for _, prefix := range []string{"tem", "tef", "tel"} {
		if strings.HasPrefix(code, prefix) {
			return true
		}
	}
	return false
}

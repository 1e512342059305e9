package handler

import (
	"strings"
	"time"

	"geopulse/internal/payments"
	"geopulse/internal/storage"
	dErrors "geopulse/pkg/domain-errors"
)

// CreateTransactionRequest is the body of POST /transactions. Amount is a
// decimal string so no precision is lost in transit.
type CreateTransactionRequest struct {
	Destination     string `json:"destination" validate:"required,max=64"`
	Amount          string `json:"amount" validate:"required,max=40"`
	SenderName      string `json:"sender_name" validate:"required,max=256"`
	SenderCountry   string `json:"sender_country" validate:"required,len=2,alpha"`
	ReceiverName    string `json:"receiver_name" validate:"required,max=256"`
	ReceiverCountry string `json:"receiver_country" validate:"required,len=2,alpha"`
}

func (r *CreateTransactionRequest) Validate() error {
	r.Destination = strings.TrimSpace(r.Destination)
	r.SenderName = strings.TrimSpace(r.SenderName)
	r.ReceiverName = strings.TrimSpace(r.ReceiverName)
	switch {
	case r.Destination == "":
		return dErrors.New(dErrors.CodeValidation, "destination must not be blank")
	case r.SenderName == "":
		return dErrors.New(dErrors.CodeValidation, "sender_name must not be blank")
	case r.ReceiverName == "":
		return dErrors.New(dErrors.CodeValidation, "receiver_name must not be blank")
	}
	r.SenderCountry = strings.ToUpper(r.SenderCountry)
	r.ReceiverCountry = strings.ToUpper(r.ReceiverCountry)
	return nil
}

func (r *CreateTransactionRequest) toService(requestID string) payments.Request {
	return payments.Request{
		Destination:     r.Destination,
		Amount:          r.Amount,
		SenderName:      r.SenderName,
		SenderCountry:   r.SenderCountry,
		ReceiverName:    r.ReceiverName,
		ReceiverCountry: r.ReceiverCountry,
		RequestID:       requestID,
	}
}

type TransactionResponse struct {
	ID               string    `json:"id"`
	TxHash           string    `json:"tx_hash"`
	Sender           string    `json:"sender"`
	Receiver         string    `json:"receiver"`
	ReceiverCountry  string    `json:"receiver_country"`
	Destination      string    `json:"destination"`
	Amount           string    `json:"amount"`
	Currency         string    `json:"currency"`
	Status           string    `json:"status"`
	CompliancePassed bool      `json:"compliance_check_passed"`
	RiskScoreAtTime  float64   `json:"risk_score_at_time"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func toTransactionResponse(tx *storage.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:               tx.ID.String(),
		TxHash:           tx.Hash,
		Sender:           tx.Sender,
		Receiver:         tx.Receiver,
		ReceiverCountry:  tx.ReceiverCountry,
		Destination:      tx.Destination,
		Amount:           tx.Amount.String(),
		Currency:         tx.Currency,
		Status:           string(tx.Status),
		CompliancePassed: tx.CompliancePassed,
		RiskScoreAtTime:  tx.RiskScoreAtTime,
		CreatedAt:        tx.CreatedAt,
		UpdatedAt:        tx.UpdatedAt,
	}
}

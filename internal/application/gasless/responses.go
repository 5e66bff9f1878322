package gasless

import (
	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/whiteelite/relay/internal/domain/entities"
)

type EstimateResponse struct {
	Lamports    uint64 `json:"lamports"`
	TokenAmount uint64 `json:"tokenAmount"`
	TokenMint   string `json:"tokenMint"`
}

type PaymentResponse struct {
	PaymentInstruction json.RawMessage `json:"paymentInstruction"`
}

type SignResponse struct {
	SignedTransaction string `json:"signedTransaction"`
}

// SignAndSendResponse reports a null signature when it could not be
// recovered or the transaction had already landed.
type SignAndSendResponse struct {
	SignedTransaction string  `json:"signedTransaction"`
	Signature         *string `json:"signature"`
	Success           bool    `json:"success"`
	AlreadyProcessed  bool    `json:"alreadyProcessed,omitempty"`
	Message           string  `json:"message,omitempty"`
}

type TransferResponse struct {
	Transaction  string                 `json:"transaction"`
	Instructions []entities.Instruction `json:"instructions"`
	Nonce        json.RawMessage        `json:"nonce,omitempty"`
}

type BroadcastResponse struct {
	Signature        *string `json:"signature"`
	Confirmed        bool    `json:"confirmed"`
	Success          bool    `json:"success"`
	AlreadyProcessed bool    `json:"alreadyProcessed,omitempty"`
}

type TokenStatus struct {
	Mint     string          `json:"mint"`
	Decimals uint8           `json:"decimals"`
	Fee      uint64          `json:"fee"`
	FeeUI    decimal.Decimal `json:"feeUi"`
}

// StatusResponse is the capability probe served on GET.
type StatusResponse struct {
	Enabled            bool          `json:"enabled"`
	Relay              string        `json:"relay,omitempty"`
	FeePayer           string        `json:"feePayer,omitempty"`
	PaymentDestination string        `json:"paymentDestination,omitempty"`
	SupportedTokens    []string      `json:"supportedTokens,omitempty"`
	Tokens             []TokenStatus `json:"tokens,omitempty"`
	Message            string        `json:"message,omitempty"`
	Error              string        `json:"error,omitempty"`
}

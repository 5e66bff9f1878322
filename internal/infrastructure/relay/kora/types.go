package kora

import (
	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type priceModel struct {
	Type   string `json:"type"`
	Amount uint64 `json:"amount"`
	Token  string `json:"token"`
}

type validationConfig struct {
	MaxAllowedLamports   uint64     `json:"max_allowed_lamports"`
	MaxSignatures        uint       `json:"max_signatures"`
	AllowedSPLPaidTokens []string   `json:"allowed_spl_paid_tokens"`
	Price                priceModel `json:"price"`
}

type configResult struct {
	FeePayers        []string         `json:"fee_payers"`
	ValidationConfig validationConfig `json:"validation_config"`
}

type payerSignerResult struct {
	SignerAddress  string `json:"signer_address"`
	PaymentAddress string `json:"payment_address"`
}

type estimateParams struct {
	Transaction string `json:"transaction"`
	FeeToken    string `json:"fee_token"`
	SignerKey   string `json:"signer_key,omitempty"`
}

// estimateResult carries fee_in_token as a decimal; some relay versions
// report it as a float.
type estimateResult struct {
	FeeInLamports uint64          `json:"fee_in_lamports"`
	FeeInToken    decimal.Decimal `json:"fee_in_token"`
}

type paymentInstructionParams struct {
	Transaction  string `json:"transaction"`
	FeeToken     string `json:"fee_token"`
	SourceWallet string `json:"source_wallet"`
}

type paymentInstructionResult struct {
	PaymentInstruction json.RawMessage `json:"payment_instruction"`
	PaymentAmount      uint64          `json:"payment_amount"`
	PaymentToken       string          `json:"payment_token"`
	PaymentAddress     string          `json:"payment_address"`
}

type signParams struct {
	Transaction string `json:"transaction"`
	SignerKey   string `json:"signer_key,omitempty"`
}

type signResult struct {
	SignedTransaction string `json:"signed_transaction"`
	SignerPubkey      string `json:"signer_pubkey"`
}

type signAndSendResult struct {
	SignedTransaction string `json:"signed_transaction"`
	SignerPubkey      string `json:"signer_pubkey"`
	Signature         string `json:"signature"`
	TransactionHash   string `json:"transaction_hash"`
}

// Package gasless multiplexes the gasless API actions onto the relay, the
// assembler and the submitter.
package gasless

import (
	"context"
	"math"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	relayerrors "github.com/whiteelite/relay/internal/domain/errors"
	sdk "github.com/whiteelite/relay/internal/infrastructure/blockchain/solana"
)

const (
	ActionEstimate    = "estimate"
	ActionPayment     = "payment"
	ActionSign        = "sign"
	ActionSignAndSend = "signAndSend"
	ActionTransfer    = "transfer"
	ActionBroadcast   = "broadcast"
)

// Action is one decoded request. The set of actions is closed: each one
// dispatches to its own Handler method.
type Action interface {
	Name() string
	Validate() error
	dispatch(ctx context.Context, h Handler) (any, error)
}

// Handler serves every action. Adding an action adds a method here.
type Handler interface {
	Estimate(ctx context.Context, a *EstimateAction) (EstimateResponse, error)
	Payment(ctx context.Context, a *PaymentAction) (PaymentResponse, error)
	Sign(ctx context.Context, a *SignAction) (SignResponse, error)
	SignAndSend(ctx context.Context, a *SignAndSendAction) (SignAndSendResponse, error)
	Transfer(ctx context.Context, a *TransferAction) (TransferResponse, error)
	Broadcast(ctx context.Context, a *BroadcastAction) (BroadcastResponse, error)
}

// Dispatch validates a and hands it to its handler method.
func Dispatch(ctx context.Context, h Handler, a Action) (any, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a.dispatch(ctx, h)
}

type envelope struct {
	Action       string          `json:"action"`
	Transaction  string          `json:"transaction"`
	FeeToken     string          `json:"feeToken"`
	SourceWallet string          `json:"sourceWallet"`
	Amount       json.RawMessage `json:"amount"`
	Token        string          `json:"token"`
	Source       string          `json:"source"`
	Destination  string          `json:"destination"`
	Nonce        json.RawMessage `json:"nonce"`
}

// ParseAction decodes a request body into its action. Field validation is
// left to Dispatch.
func ParseAction(body []byte) (Action, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, relayerrors.InvalidRequest("Invalid JSON body")
	}

	switch env.Action {
	case ActionEstimate:
		return &EstimateAction{Transaction: env.Transaction, FeeToken: env.FeeToken}, nil
	case ActionPayment:
		return &PaymentAction{Transaction: env.Transaction, FeeToken: env.FeeToken, SourceWallet: env.SourceWallet}, nil
	case ActionSign:
		return &SignAction{Transaction: env.Transaction}, nil
	case ActionSignAndSend:
		return &SignAndSendAction{Transaction: env.Transaction}, nil
	case ActionTransfer:
		return &TransferAction{
			rawAmount:   env.Amount,
			Token:       env.Token,
			Source:      env.Source,
			Destination: env.Destination,
			Nonce:       env.Nonce,
		}, nil
	case ActionBroadcast:
		return &BroadcastAction{Transaction: env.Transaction}, nil
	case "":
		return nil, relayerrors.MissingFields("action")
	default:
		return nil, relayerrors.InvalidRequest("Unknown action: %s", env.Action)
	}
}

// missing collects the names of empty required fields, in order.
type missing []string

func (m *missing) check(name, value string) {
	if strings.TrimSpace(value) == "" {
		*m = append(*m, name)
	}
}

func (m missing) err() error {
	if len(m) == 0 {
		return nil
	}
	return relayerrors.MissingFields(m...)
}

func validateTransaction(tx string) error {
	if _, err := sdk.DecodeBase64(tx); err != nil {
		return relayerrors.InvalidRequest("transaction: %v", err)
	}
	return nil
}

func validateAddress(field, address string) error {
	if err := sdk.ValidateAddress(address); err != nil {
		return relayerrors.InvalidRequest("%s: %v", field, err)
	}
	return nil
}

type EstimateAction struct {
	Transaction string
	FeeToken    string
}

func (a *EstimateAction) Name() string { return ActionEstimate }

func (a *EstimateAction) Validate() error {
	var m missing
	m.check("transaction", a.Transaction)
	m.check("feeToken", a.FeeToken)
	if err := m.err(); err != nil {
		return err
	}
	if err := validateTransaction(a.Transaction); err != nil {
		return err
	}
	return validateAddress("feeToken", a.FeeToken)
}

func (a *EstimateAction) dispatch(ctx context.Context, h Handler) (any, error) {
	return h.Estimate(ctx, a)
}

type PaymentAction struct {
	Transaction  string
	FeeToken     string
	SourceWallet string
}

func (a *PaymentAction) Name() string { return ActionPayment }

func (a *PaymentAction) Validate() error {
	var m missing
	m.check("transaction", a.Transaction)
	m.check("feeToken", a.FeeToken)
	m.check("sourceWallet", a.SourceWallet)
	if err := m.err(); err != nil {
		return err
	}
	if err := validateTransaction(a.Transaction); err != nil {
		return err
	}
	if err := validateAddress("feeToken", a.FeeToken); err != nil {
		return err
	}
	return validateAddress("sourceWallet", a.SourceWallet)
}

func (a *PaymentAction) dispatch(ctx context.Context, h Handler) (any, error) {
	return h.Payment(ctx, a)
}

type SignAction struct {
	Transaction string
}

func (a *SignAction) Name() string { return ActionSign }

func (a *SignAction) Validate() error {
	var m missing
	m.check("transaction", a.Transaction)
	if err := m.err(); err != nil {
		return err
	}
	return validateTransaction(a.Transaction)
}

func (a *SignAction) dispatch(ctx context.Context, h Handler) (any, error) {
	return h.Sign(ctx, a)
}

type SignAndSendAction struct {
	Transaction string
}

func (a *SignAndSendAction) Name() string { return ActionSignAndSend }

func (a *SignAndSendAction) Validate() error {
	var m missing
	m.check("transaction", a.Transaction)
	if err := m.err(); err != nil {
		return err
	}
	return validateTransaction(a.Transaction)
}

func (a *SignAndSendAction) dispatch(ctx context.Context, h Handler) (any, error) {
	return h.SignAndSend(ctx, a)
}

// TransferAction asks for an unsigned transfer. Amount is set by Validate
// from the raw JSON value, which may be a number or a numeric string.
type TransferAction struct {
	Amount      uint64
	Token       string
	Source      string
	Destination string
	// Nonce is echoed back untouched.
	Nonce json.RawMessage

	rawAmount json.RawMessage
}

func (a *TransferAction) Name() string { return ActionTransfer }

func (a *TransferAction) Validate() error {
	var m missing
	raw := strings.TrimSpace(string(a.rawAmount))
	if raw == "" || raw == "null" {
		if a.Amount == 0 {
			m = append(m, "amount")
		}
	}
	m.check("token", a.Token)
	m.check("source", a.Source)
	m.check("destination", a.Destination)
	if err := m.err(); err != nil {
		return err
	}

	if raw != "" && raw != "null" {
		amount, err := parseAmount(raw)
		if err != nil {
			return err
		}
		a.Amount = amount
	}
	if err := validateAddress("token", a.Token); err != nil {
		return err
	}
	if err := validateAddress("source", a.Source); err != nil {
		return err
	}
	return validateAddress("destination", a.Destination)
}

func (a *TransferAction) dispatch(ctx context.Context, h Handler) (any, error) {
	return h.Transfer(ctx, a)
}

var maxAmount = decimal.NewFromUint64(math.MaxUint64)

// parseAmount accepts a positive integer in smallest units, as a JSON number
// or a string.
func parseAmount(raw string) (uint64, error) {
	s := strings.Trim(raw, `"`)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, relayerrors.InvalidRequest("amount must be an integer in the token's smallest unit")
	}
	if !d.IsInteger() {
		return 0, relayerrors.InvalidRequest("amount must be an integer in the token's smallest unit")
	}
	if !d.IsPositive() {
		return 0, relayerrors.InvalidRequest("amount must be greater than zero")
	}
	if d.GreaterThan(maxAmount) {
		return 0, relayerrors.InvalidRequest("amount exceeds the maximum token amount")
	}
	return d.BigInt().Uint64(), nil
}

type BroadcastAction struct {
	Transaction string
}

func (a *BroadcastAction) Name() string { return ActionBroadcast }

func (a *BroadcastAction) Validate() error {
	var m missing
	m.check("transaction", a.Transaction)
	if err := m.err(); err != nil {
		return err
	}
	return validateTransaction(a.Transaction)
}

func (a *BroadcastAction) dispatch(ctx context.Context, h Handler) (any, error) {
	return h.Broadcast(ctx, a)
}

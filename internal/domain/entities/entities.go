package entities

import (
	"time"

	json "github.com/goccy/go-json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/whiteelite/relay/pkg/shared/domain/entities"
)

// FeeToken is an SPL token the relay accepts as fee payment, with the relay's
// collection account for that mint and its flat fee in smallest units.
type FeeToken struct {
	Mint     string `json:"mint"`
	Account  string `json:"account"`
	Decimals uint8  `json:"decimals"`
	Fee      uint64 `json:"fee"`
}

// FeeUI renders the flat fee in whole-token units.
func (t FeeToken) FeeUI() decimal.Decimal {
	return ToUIAmount(t.Fee, t.Decimals)
}

type FeeTokens []FeeToken

func (ts FeeTokens) Lookup(mint string) (FeeToken, bool) {
	for _, t := range ts {
		if t.Mint == mint {
			return t, true
		}
	}
	return FeeToken{}, false
}

func (ts FeeTokens) Mints() []string {
	mints := make([]string, 0, len(ts))
	for _, t := range ts {
		mints = append(mints, t.Mint)
	}
	return mints
}

type RelayEndpoints struct {
	Transfer                FeeTokens `json:"transfer"`
	CreateAssociatedAccount FeeTokens `json:"createAssociatedAccount"`
}

// RelayConfig is one snapshot of the relay's configuration. It is fetched per
// operation and never shared between requests.
type RelayConfig struct {
	FeePayer             string         `json:"feePayer"`
	RPCURL               string         `json:"rpcUrl"`
	MaxSignatures        uint           `json:"maxSignatures"`
	LamportsPerSignature uint64         `json:"lamportsPerSignature"`
	Endpoints            RelayEndpoints `json:"endpoints"`
}

// TransferToken returns the fee token registered for transfers of mint.
func (c RelayConfig) TransferToken(mint string) (FeeToken, bool) {
	return c.Endpoints.Transfer.Lookup(mint)
}

type SignerInfo struct {
	SignerAddress      string `json:"signerAddress"`
	PaymentDestination string `json:"paymentDestination,omitempty"`
}

type FeeEstimate struct {
	Lamports    uint64 `json:"lamports"`
	TokenAmount uint64 `json:"tokenAmount"`
	TokenMint   string `json:"tokenMint"`
}

type AccountMeta struct {
	PubKey     string `json:"pubkey"`
	IsSigner   bool   `json:"isSigner"`
	IsWritable bool   `json:"isWritable"`
}

type Instruction struct {
	ProgramID string        `json:"programId"`
	Accounts  []AccountMeta `json:"accounts"`
	Data      []byte        `json:"data"`
}

// PaymentInstruction carries the relay-issued fee instruction verbatim, plus
// the amount and destination when the relay reports them.
type PaymentInstruction struct {
	Instruction json.RawMessage `json:"instruction"`
	Amount      uint64          `json:"amount"`
	Token       string          `json:"token"`
	Destination string          `json:"destination,omitempty"`
}

type EstimateRequest struct {
	Transaction string
	FeeToken    string
	SignerKey   string
}

type PaymentInstructionRequest struct {
	Transaction  string
	FeeToken     string
	SourceWallet string
}

type SignRequest struct {
	Transaction string
	SignerKey   string
}

// SignAndSendResponse is the raw relay answer: some relays report the
// signature, others only the signed transaction bytes.
type SignAndSendResponse struct {
	SignedTransaction string
	Signature         string
}

type TransferRequest struct {
	Amount      uint64
	Token       string
	Source      string
	Destination string
}

type TransferTransaction struct {
	Transaction  string        `json:"transaction"`
	Instructions []Instruction `json:"instructions"`
	Blockhash    string        `json:"blockhash"`
	FeePayer     string        `json:"feePayer"`
}

type Outcome string

// Outcomes of one submission: built -> submitted -> confirmed, already
// processed or failed.
const (
	OutcomeSubmitted        Outcome = "submitted"
	OutcomeConfirmed        Outcome = "confirmed"
	OutcomeAlreadyProcessed Outcome = "already_processed"
	OutcomeSignatureUnknown Outcome = "signature_unknown"
	OutcomeFailed           Outcome = "failed"
)

// SubmitResult is the caller-visible result of one relay or ledger submission.
// Signature is nil when the outcome is AlreadyProcessed or SignatureUnknown.
type SubmitResult struct {
	Outcome           Outcome
	Signature         *string
	SignedTransaction string
	Confirmed         bool
}

func (r SubmitResult) AlreadyProcessed() bool {
	return r.Outcome == OutcomeAlreadyProcessed
}

type TokenTransfer struct {
	Type        string `json:"type"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Authority   string `json:"authority"`
	Mint        string `json:"mint,omitempty"`
	Amount      uint64 `json:"amount"`
}

type SubmissionEvent struct {
	entities.Entity `json:"-"`

	ID        uuid.UUID       `json:"id"`
	Action    string          `json:"action"`
	Outcome   Outcome         `json:"outcome"`
	Signature *string         `json:"signature"`
	Error     string          `json:"error,omitempty"`
	Transfers []TokenTransfer `json:"transfers,omitempty"`
	At        time.Time       `json:"at"`
}

// ToUIAmount converts a smallest-unit amount into whole-token units.
func ToUIAmount(amount uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromUint64(amount).Shift(-int32(decimals))
}

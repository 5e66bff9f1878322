package repositories

import (
	"context"

	"github.com/whiteelite/relay/internal/domain/entities"
	shared "github.com/whiteelite/relay/pkg/shared/domain/entities"
)

// Relay is the uniform view over a fee-sponsoring relay, whichever protocol
// the deployed relay speaks. Every error returned is a *errors.Error.
type Relay interface {
	// Kind names the relay protocol, e.g. "kora" or "octane".
	Kind() string

	GetConfig(ctx context.Context) (entities.RelayConfig, error)

	// GetPayerSigner must be called per operation; relays rotate signers.
	GetPayerSigner(ctx context.Context) (entities.SignerInfo, error)

	EstimateTransactionFee(ctx context.Context, req entities.EstimateRequest) (entities.FeeEstimate, error)
	GetPaymentInstruction(ctx context.Context, req entities.PaymentInstructionRequest) (entities.PaymentInstruction, error)
	SignTransaction(ctx context.Context, req entities.SignRequest) (string, error)
	SignAndSendTransaction(ctx context.Context, req entities.SignRequest) (entities.SignAndSendResponse, error)
	TransferTransaction(ctx context.Context, req entities.TransferRequest) (entities.TransferTransaction, error)
}

// Ledger is the subset of the Solana RPC the relay flow needs.
type Ledger interface {
	LatestBlockhash(ctx context.Context) (string, error)

	// AccountExists distinguishes a missing account (false, nil) from a failed
	// lookup (false, err).
	AccountExists(ctx context.Context, address string) (bool, error)

	MintDecimals(ctx context.Context, mint string) (uint8, error)

	// SendRawTransaction submits fully signed wire bytes and returns the signature.
	SendRawTransaction(ctx context.Context, raw []byte) (string, error)

	SignatureConfirmed(ctx context.Context, signature string) (bool, error)
}

type SubmissionPublisher interface {
	Publish(ctx context.Context, event entities.SubmissionEvent) error
}

type MessageQueueParams interface {
	Get() map[string]any
}

type MessageQueueConsumer[T shared.Entity] interface {
	ToConsumeBuffered() <-chan T
	Close()
}

type MessageQueueProducer[T shared.Entity] interface {
	ToProduceBuffered() chan<- T
	Close()
}

type MessageQueue[T shared.Entity] interface {
	MessageQueueProducer[T]
	MessageQueueConsumer[T]
}

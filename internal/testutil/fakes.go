// Package testutil holds in-memory stand-ins for the relay and the ledger.
package testutil

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/whiteelite/relay/internal/domain/entities"
	relayerrors "github.com/whiteelite/relay/internal/domain/errors"
	"github.com/whiteelite/relay/internal/domain/repositories"
)

// FakeLedger answers from in-memory state. Unset hooks fall back to
// deterministic defaults.
type FakeLedger struct {
	mu       sync.Mutex
	accounts map[string]bool
	decimals map[string]uint8

	Blockhash string

	LatestBlockhashFunc    func(ctx context.Context) (string, error)
	AccountExistsFunc      func(ctx context.Context, address string) (bool, error)
	SendRawTransactionFunc func(ctx context.Context, raw []byte) (string, error)
	SignatureConfirmedFunc func(ctx context.Context, signature string) (bool, error)

	AccountLookups atomic.Int64
	Sends          atomic.Int64
	StatusPolls    atomic.Int64
}

func NewFakeLedger() *FakeLedger {
	return &FakeLedger{
		accounts:  map[string]bool{},
		decimals:  map[string]uint8{},
		Blockhash: "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N",
	}
}

func (l *FakeLedger) AddAccount(address string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts[address] = true
}

func (l *FakeLedger) SetDecimals(mint string, decimals uint8) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.decimals[mint] = decimals
}

func (l *FakeLedger) LatestBlockhash(ctx context.Context) (string, error) {
	if l.LatestBlockhashFunc != nil {
		return l.LatestBlockhashFunc(ctx)
	}
	return l.Blockhash, nil
}

func (l *FakeLedger) AccountExists(ctx context.Context, address string) (bool, error) {
	l.AccountLookups.Add(1)
	if l.AccountExistsFunc != nil {
		return l.AccountExistsFunc(ctx, address)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.accounts[address], nil
}

func (l *FakeLedger) MintDecimals(_ context.Context, mint string) (uint8, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	d, ok := l.decimals[mint]
	if !ok {
		return 0, relayerrors.AccountLookupFailed(mint, context.DeadlineExceeded)
	}
	return d, nil
}

func (l *FakeLedger) SendRawTransaction(ctx context.Context, raw []byte) (string, error) {
	l.Sends.Add(1)
	if l.SendRawTransactionFunc != nil {
		return l.SendRawTransactionFunc(ctx, raw)
	}
	return "", relayerrors.UpstreamRejected("send not configured", 0)
}

func (l *FakeLedger) SignatureConfirmed(ctx context.Context, signature string) (bool, error) {
	l.StatusPolls.Add(1)
	if l.SignatureConfirmedFunc != nil {
		return l.SignatureConfirmedFunc(ctx, signature)
	}
	return true, nil
}

// FakeRelay records calls per method. Unset hooks answer with an
// unsupported-operation error.
type FakeRelay struct {
	Name string

	GetConfigFunc              func(ctx context.Context) (entities.RelayConfig, error)
	GetPayerSignerFunc         func(ctx context.Context) (entities.SignerInfo, error)
	EstimateTransactionFeeFunc func(ctx context.Context, req entities.EstimateRequest) (entities.FeeEstimate, error)
	GetPaymentInstructionFunc  func(ctx context.Context, req entities.PaymentInstructionRequest) (entities.PaymentInstruction, error)
	SignTransactionFunc        func(ctx context.Context, req entities.SignRequest) (string, error)
	SignAndSendFunc            func(ctx context.Context, req entities.SignRequest) (entities.SignAndSendResponse, error)
	TransferTransactionFunc    func(ctx context.Context, req entities.TransferRequest) (entities.TransferTransaction, error)

	ConfigCalls      atomic.Int64
	SignerCalls      atomic.Int64
	EstimateCalls    atomic.Int64
	PaymentCalls     atomic.Int64
	SignCalls        atomic.Int64
	SignAndSendCalls atomic.Int64
	TransferCalls    atomic.Int64

	mu         sync.Mutex
	signerKeys []string
}

// SignerKeys returns the signer keys passed to sign operations, in call order.
func (r *FakeRelay) SignerKeys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.signerKeys...)
}

func (r *FakeRelay) recordSigner(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signerKeys = append(r.signerKeys, key)
}

func (r *FakeRelay) Kind() string {
	if r.Name == "" {
		return "fake"
	}
	return r.Name
}

func (r *FakeRelay) GetConfig(ctx context.Context) (entities.RelayConfig, error) {
	r.ConfigCalls.Add(1)
	if r.GetConfigFunc != nil {
		return r.GetConfigFunc(ctx)
	}
	return entities.RelayConfig{}, relayerrors.Unsupported("getConfig", r.Kind())
}

func (r *FakeRelay) GetPayerSigner(ctx context.Context) (entities.SignerInfo, error) {
	r.SignerCalls.Add(1)
	if r.GetPayerSignerFunc != nil {
		return r.GetPayerSignerFunc(ctx)
	}
	return entities.SignerInfo{}, relayerrors.Unsupported("getPayerSigner", r.Kind())
}

func (r *FakeRelay) EstimateTransactionFee(ctx context.Context, req entities.EstimateRequest) (entities.FeeEstimate, error) {
	r.EstimateCalls.Add(1)
	if r.EstimateTransactionFeeFunc != nil {
		return r.EstimateTransactionFeeFunc(ctx, req)
	}
	return entities.FeeEstimate{}, relayerrors.Unsupported("estimateTransactionFee", r.Kind())
}

func (r *FakeRelay) GetPaymentInstruction(ctx context.Context, req entities.PaymentInstructionRequest) (entities.PaymentInstruction, error) {
	r.PaymentCalls.Add(1)
	if r.GetPaymentInstructionFunc != nil {
		return r.GetPaymentInstructionFunc(ctx, req)
	}
	return entities.PaymentInstruction{}, relayerrors.Unsupported("getPaymentInstruction", r.Kind())
}

func (r *FakeRelay) SignTransaction(ctx context.Context, req entities.SignRequest) (string, error) {
	r.SignCalls.Add(1)
	r.recordSigner(req.SignerKey)
	if r.SignTransactionFunc != nil {
		return r.SignTransactionFunc(ctx, req)
	}
	return "", relayerrors.Unsupported("signTransaction", r.Kind())
}

func (r *FakeRelay) SignAndSendTransaction(ctx context.Context, req entities.SignRequest) (entities.SignAndSendResponse, error) {
	r.SignAndSendCalls.Add(1)
	r.recordSigner(req.SignerKey)
	if r.SignAndSendFunc != nil {
		return r.SignAndSendFunc(ctx, req)
	}
	return entities.SignAndSendResponse{}, relayerrors.Unsupported("signAndSendTransaction", r.Kind())
}

func (r *FakeRelay) TransferTransaction(ctx context.Context, req entities.TransferRequest) (entities.TransferTransaction, error) {
	r.TransferCalls.Add(1)
	if r.TransferTransactionFunc != nil {
		return r.TransferTransactionFunc(ctx, req)
	}
	return entities.TransferTransaction{}, relayerrors.Unsupported("transferTransaction", r.Kind())
}

var (
	_ repositories.Ledger = (*FakeLedger)(nil)
	_ repositories.Relay  = (*FakeRelay)(nil)
)

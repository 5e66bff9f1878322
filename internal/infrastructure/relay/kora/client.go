// Package kora adapts a Kora JSON-RPC relay to repositories.Relay.
package kora

import (
	"context"
	"fmt"
	"math"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/whiteelite/relay/internal/application/assembly"
	"github.com/whiteelite/relay/internal/domain/entities"
	relayerrors "github.com/whiteelite/relay/internal/domain/errors"
	"github.com/whiteelite/relay/internal/domain/repositories"
	sdk "github.com/whiteelite/relay/internal/infrastructure/blockchain/solana"
	"github.com/whiteelite/relay/internal/infrastructure/blockchain/solana/models"
	"github.com/whiteelite/relay/internal/infrastructure/relay/transport"
)

const (
	Kind = "kora"

	defaultLamportsPerSignature = 5000
	priceTypeFixed              = "fixed"
)

// JSON-RPC methods
const (
	methodGetConfig              = "getConfig"
	methodGetPayerSigner         = "getPayerSigner"
	methodEstimateTransactionFee = "estimateTransactionFee"
	methodGetPaymentInstruction  = "getPaymentInstruction"
	methodSignTransaction        = "signTransaction"
	methodSignAndSendTransaction = "signAndSendTransaction"
)

type Client struct {
	transport *transport.Client
	assembler *assembly.Assembler
	logger    zerolog.Logger
}

func NewClient(t *transport.Client, assembler *assembly.Assembler, logger zerolog.Logger) *Client {
	return &Client{
		transport: t,
		assembler: assembler,
		logger:    logger.With().Str("component", "kora").Logger(),
	}
}

func (c *Client) Kind() string {
	return Kind
}

// call performs one JSON-RPC round trip. Relay-reported errors keep their
// code and, when the data names a transaction error, its variant.
func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	if params == nil {
		params = []any{}
	}
	resp, err := c.transport.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Label:  method,
		Body: rpcRequest{
			JSONRPC: "2.0",
			ID:      uuid.NewString(),
			Method:  method,
			Params:  params,
		},
	})
	if err != nil {
		return err
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(resp.Body, &rpcResp); err != nil {
		if !resp.OK() {
			return relayerrors.RelayUnavailable(fmt.Errorf("relay responded %d: %s", resp.Status, resp.Snippet()))
		}
		return relayerrors.RelayUnavailable(fmt.Errorf("malformed %s response: %w", method, err))
	}
	if rpcResp.Error != nil {
		e := relayerrors.UpstreamRejected(rpcResp.Error.Message, rpcResp.Error.Code)
		e.Reason = reasonFromData(rpcResp.Error.Data)
		c.logger.Debug().
			Str("method", method).
			Int("code", rpcResp.Error.Code).
			Str("reason", e.Reason).
			Msg("Relay rejected request")
		return e
	}
	if !resp.OK() {
		return relayerrors.RelayUnavailable(fmt.Errorf("relay responded %d: %s", resp.Status, resp.Snippet()))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return relayerrors.RelayUnavailable(fmt.Errorf("malformed %s result: %w", method, err))
	}
	return nil
}

// reasonFromData extracts a transaction error variant from error data, which
// is either the bare variant, {"err": variant} or an object keyed by it.
// Anything that is not a known variant yields no reason.
func reasonFromData(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return knownVariant(s)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	if inner, ok := obj["err"]; ok {
		return reasonFromData(inner)
	}
	if len(obj) == 1 {
		for k := range obj {
			return knownVariant(k)
		}
	}
	return ""
}

func knownVariant(name string) string {
	if relayerrors.IsTransactionErrorVariant(name) {
		return name
	}
	return ""
}

func (c *Client) GetPayerSigner(ctx context.Context) (entities.SignerInfo, error) {
	var res payerSignerResult
	if err := c.call(ctx, methodGetPayerSigner, nil, &res); err != nil {
		return entities.SignerInfo{}, err
	}
	return entities.SignerInfo{
		SignerAddress:      res.SignerAddress,
		PaymentDestination: res.PaymentAddress,
	}, nil
}

// GetConfig normalises the relay's validation config into the fee token
// registry. Fees are collected in the payment address's token accounts.
func (c *Client) GetConfig(ctx context.Context) (entities.RelayConfig, error) {
	var res configResult
	if err := c.call(ctx, methodGetConfig, nil, &res); err != nil {
		return entities.RelayConfig{}, err
	}
	signer, err := c.GetPayerSigner(ctx)
	if err != nil {
		return entities.RelayConfig{}, err
	}

	destination := signer.PaymentDestination
	if destination == "" {
		destination = signer.SignerAddress
	}

	tokens := make(entities.FeeTokens, 0, len(res.ValidationConfig.AllowedSPLPaidTokens))
	for _, mint := range res.ValidationConfig.AllowedSPLPaidTokens {
		account, err := sdk.DeriveAssociatedTokenAddress(models.DeriveATARequest{Owner: destination, Mint: mint})
		if err != nil {
			c.logger.Warn().Err(err).Str("mint", mint).Msg("Skipping unusable fee token")
			continue
		}
		tokens = append(tokens, entities.FeeToken{
			Mint:    mint,
			Account: account,
			Fee:     fixedFee(res.ValidationConfig.Price, mint),
		})
	}

	return entities.RelayConfig{
		FeePayer:             signer.SignerAddress,
		RPCURL:               c.transport.BaseURL(),
		MaxSignatures:        res.ValidationConfig.MaxSignatures,
		LamportsPerSignature: defaultLamportsPerSignature,
		Endpoints: entities.RelayEndpoints{
			Transfer:                tokens,
			CreateAssociatedAccount: tokens,
		},
	}, nil
}

// fixedFee is the flat fee of a fixed price model denominated in mint.
// Other models are priced per transaction by the relay.
func fixedFee(price priceModel, mint string) uint64 {
	if price.Type != priceTypeFixed {
		return 0
	}
	if price.Token != "" && price.Token != mint {
		return 0
	}
	return price.Amount
}

var maxTokenAmount = decimal.NewFromUint64(math.MaxUint64)

func (c *Client) EstimateTransactionFee(ctx context.Context, req entities.EstimateRequest) (entities.FeeEstimate, error) {
	var res estimateResult
	err := c.call(ctx, methodEstimateTransactionFee, estimateParams{
		Transaction: req.Transaction,
		FeeToken:    req.FeeToken,
		SignerKey:   req.SignerKey,
	}, &res)
	if err != nil {
		return entities.FeeEstimate{}, err
	}
	if res.FeeInToken.IsNegative() {
		return entities.FeeEstimate{}, relayerrors.UpstreamRejected(fmt.Sprintf("relay reported negative fee %s", res.FeeInToken), 0)
	}
	tokenFee := res.FeeInToken.Ceil()
	if tokenFee.GreaterThan(maxTokenAmount) {
		return entities.FeeEstimate{}, relayerrors.UpstreamRejected(fmt.Sprintf("relay reported fee %s above the maximum token amount", res.FeeInToken), 0)
	}
	return entities.FeeEstimate{
		Lamports:    res.FeeInLamports,
		TokenAmount: tokenFee.BigInt().Uint64(),
		TokenMint:   req.FeeToken,
	}, nil
}

func (c *Client) GetPaymentInstruction(ctx context.Context, req entities.PaymentInstructionRequest) (entities.PaymentInstruction, error) {
	var res paymentInstructionResult
	err := c.call(ctx, methodGetPaymentInstruction, paymentInstructionParams{
		Transaction:  req.Transaction,
		FeeToken:     req.FeeToken,
		SourceWallet: req.SourceWallet,
	}, &res)
	if err != nil {
		return entities.PaymentInstruction{}, err
	}
	token := res.PaymentToken
	if token == "" {
		token = req.FeeToken
	}
	return entities.PaymentInstruction{
		Instruction: res.PaymentInstruction,
		Amount:      res.PaymentAmount,
		Token:       token,
		Destination: res.PaymentAddress,
	}, nil
}

func (c *Client) SignTransaction(ctx context.Context, req entities.SignRequest) (string, error) {
	var res signResult
	if err := c.call(ctx, methodSignTransaction, signParams(req), &res); err != nil {
		return "", err
	}
	return res.SignedTransaction, nil
}

func (c *Client) SignAndSendTransaction(ctx context.Context, req entities.SignRequest) (entities.SignAndSendResponse, error) {
	var res signAndSendResult
	if err := c.call(ctx, methodSignAndSendTransaction, signParams(req), &res); err != nil {
		return entities.SignAndSendResponse{}, err
	}
	sig := res.Signature
	if sig == "" {
		sig = res.TransactionHash
	}
	return entities.SignAndSendResponse{
		SignedTransaction: res.SignedTransaction,
		Signature:         sig,
	}, nil
}

// TransferTransaction assembles the transfer locally and lets the relay
// price it: the fee instruction pays the amount getPaymentInstruction quotes
// for the draft into the relay's payment address.
func (c *Client) TransferTransaction(ctx context.Context, req entities.TransferRequest) (entities.TransferTransaction, error) {
	cfg, err := c.GetConfig(ctx)
	if err != nil {
		return entities.TransferTransaction{}, err
	}
	return c.assembler.Build(ctx, assembly.Params{
		Config:      cfg,
		Mint:        req.Token,
		Source:      req.Source,
		Destination: req.Destination,
		Amount:      req.Amount,
		Quote:       c.quoter(req),
	})
}

func (c *Client) quoter(req entities.TransferRequest) assembly.FeeQuoter {
	return func(ctx context.Context, draft string) (assembly.FeeQuote, error) {
		payment, err := c.GetPaymentInstruction(ctx, entities.PaymentInstructionRequest{
			Transaction:  draft,
			FeeToken:     req.Token,
			SourceWallet: req.Source,
		})
		if err != nil {
			return assembly.FeeQuote{}, err
		}
		if payment.Destination == "" {
			return assembly.FeeQuote{}, relayerrors.UpstreamRejected("relay did not report a payment address", 0)
		}
		account, err := sdk.DeriveAssociatedTokenAddress(models.DeriveATARequest{Owner: payment.Destination, Mint: req.Token})
		if err != nil {
			return assembly.FeeQuote{}, relayerrors.UpstreamRejected(fmt.Sprintf("relay reported an invalid payment address: %v", err), 0)
		}
		return assembly.FeeQuote{Account: account, Amount: payment.Amount}, nil
	}
}

var _ repositories.Relay = (*Client)(nil)

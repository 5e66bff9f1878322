// Package octane adapts an Octane REST relay to repositories.Relay. Octane
// only sponsors whole transactions, so fee estimates and payment
// instructions are derived locally from its flat-fee configuration.
package octane

import (
	"context"
	"fmt"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/mr-tron/base58"
	"github.com/rs/zerolog"

	"github.com/whiteelite/relay/internal/application/assembly"
	"github.com/whiteelite/relay/internal/domain/entities"
	relayerrors "github.com/whiteelite/relay/internal/domain/errors"
	"github.com/whiteelite/relay/internal/domain/repositories"
	sdk "github.com/whiteelite/relay/internal/infrastructure/blockchain/solana"
	"github.com/whiteelite/relay/internal/infrastructure/blockchain/solana/mappers"
	"github.com/whiteelite/relay/internal/infrastructure/blockchain/solana/models"
	"github.com/whiteelite/relay/internal/infrastructure/relay/transport"
)

const (
	Kind = "octane"

	pathTransfer                     = "/transfer"
	pathCreateAssociatedTokenAccount = "/createAssociatedTokenAccount"
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
		logger:    logger.With().Str("component", "octane").Logger(),
	}
}

func (c *Client) Kind() string {
	return Kind
}

func (c *Client) GetConfig(ctx context.Context) (entities.RelayConfig, error) {
	resp, err := c.transport.Do(ctx, transport.Request{Method: http.MethodGet, Label: "config"})
	if err != nil {
		return entities.RelayConfig{}, err
	}
	if !resp.OK() {
		return entities.RelayConfig{}, relayerrors.RelayUnavailable(fmt.Errorf("relay responded %d: %s", resp.Status, resp.Snippet()))
	}

	var cfg configResponse
	if err := resp.Decode(&cfg); err != nil {
		return entities.RelayConfig{}, err
	}
	return entities.RelayConfig{
		FeePayer:             cfg.FeePayer,
		RPCURL:               cfg.RPCURL,
		MaxSignatures:        cfg.MaxSignatures,
		LamportsPerSignature: cfg.LamportsPerSignature,
		Endpoints: entities.RelayEndpoints{
			Transfer:                toFeeTokens(cfg.Endpoints.Transfer.Tokens),
			CreateAssociatedAccount: toFeeTokens(cfg.Endpoints.CreateAssociatedAccount.Tokens),
		},
	}, nil
}

func toFeeTokens(in []tokenFee) entities.FeeTokens {
	out := make(entities.FeeTokens, 0, len(in))
	for _, t := range in {
		out = append(out, entities.FeeToken(t))
	}
	return out
}

// GetPayerSigner reads the fee payer from a fresh config. Octane collects
// fees into per-token accounts, so there is no single payment destination.
func (c *Client) GetPayerSigner(ctx context.Context) (entities.SignerInfo, error) {
	cfg, err := c.GetConfig(ctx)
	if err != nil {
		return entities.SignerInfo{}, err
	}
	return entities.SignerInfo{SignerAddress: cfg.FeePayer}, nil
}

// EstimateTransactionFee prices the transaction at lamportsPerSignature per
// required signature and charges the token's flat fee.
func (c *Client) EstimateTransactionFee(ctx context.Context, req entities.EstimateRequest) (entities.FeeEstimate, error) {
	tx, _, err := sdk.DecodeTransaction(req.Transaction)
	if err != nil {
		return entities.FeeEstimate{}, relayerrors.InvalidRequest("transaction: %v", err)
	}
	cfg, err := c.GetConfig(ctx)
	if err != nil {
		return entities.FeeEstimate{}, err
	}
	token, ok := cfg.TransferToken(req.FeeToken)
	if !ok {
		return entities.FeeEstimate{}, relayerrors.UnsupportedToken(req.FeeToken)
	}
	return entities.FeeEstimate{
		Lamports:    uint64(tx.Message.Header.NumRequireSignatures) * cfg.LamportsPerSignature,
		TokenAmount: token.Fee,
		TokenMint:   req.FeeToken,
	}, nil
}

// GetPaymentInstruction builds the flat-fee transfer from the source wallet's
// token account into the relay's fee account.
func (c *Client) GetPaymentInstruction(ctx context.Context, req entities.PaymentInstructionRequest) (entities.PaymentInstruction, error) {
	if _, _, err := sdk.DecodeTransaction(req.Transaction); err != nil {
		return entities.PaymentInstruction{}, relayerrors.InvalidRequest("transaction: %v", err)
	}
	cfg, err := c.GetConfig(ctx)
	if err != nil {
		return entities.PaymentInstruction{}, err
	}
	token, ok := cfg.TransferToken(req.FeeToken)
	if !ok {
		return entities.PaymentInstruction{}, relayerrors.UnsupportedToken(req.FeeToken)
	}

	sourceATA, err := sdk.DeriveAssociatedTokenAddress(models.DeriveATARequest{Owner: req.SourceWallet, Mint: req.FeeToken})
	if err != nil {
		return entities.PaymentInstruction{}, relayerrors.InvalidRequest("sourceWallet: %v", err)
	}
	inst := sdk.TransferInstruction(models.TransferInstructionRequest{
		SourceATA:      sourceATA,
		DestinationATA: token.Account,
		Authority:      req.SourceWallet,
		Amount:         token.Fee,
	})
	raw, err := json.Marshal(mappers.FromInstruction(inst))
	if err != nil {
		return entities.PaymentInstruction{}, fmt.Errorf("encode payment instruction: %w", err)
	}
	return entities.PaymentInstruction{
		Instruction: raw,
		Amount:      token.Fee,
		Token:       req.FeeToken,
		Destination: token.Account,
	}, nil
}

func (c *Client) SignTransaction(context.Context, entities.SignRequest) (string, error) {
	return "", relayerrors.Unsupported("signTransaction", Kind)
}

// SignAndSendTransaction forwards the transaction base58 encoded to the
// endpoint matching its shape: account creation or plain transfer.
func (c *Client) SignAndSendTransaction(ctx context.Context, req entities.SignRequest) (entities.SignAndSendResponse, error) {
	raw, err := sdk.DecodeBase64(req.Transaction)
	if err != nil {
		return entities.SignAndSendResponse{}, relayerrors.InvalidRequest("transaction: %v", err)
	}
	tx, _, err := sdk.DecodeRawTransaction(raw)
	if err != nil {
		return entities.SignAndSendResponse{}, relayerrors.InvalidRequest("transaction: %v", err)
	}

	path := pathTransfer
	if sdk.CreatesAssociatedTokenAccount(tx.Message) {
		path = pathCreateAssociatedTokenAccount
	}

	resp, err := c.transport.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   path,
		Label:  path[1:],
		Body:   submitRequest{Transaction: base58.Encode(raw)},
	})
	if err != nil {
		return entities.SignAndSendResponse{}, err
	}

	var out submitResponse
	decodeErr := json.Unmarshal(resp.Body, &out)
	if msg := out.rejection(); decodeErr == nil && msg != "" {
		return entities.SignAndSendResponse{}, relayerrors.UpstreamRejected(msg, 0)
	}
	if !resp.OK() {
		return entities.SignAndSendResponse{}, relayerrors.RelayUnavailable(fmt.Errorf("relay responded %d: %s", resp.Status, resp.Snippet()))
	}
	if decodeErr != nil {
		return entities.SignAndSendResponse{}, relayerrors.RelayUnavailable(fmt.Errorf("malformed %s response: %w", path, decodeErr))
	}

	c.logger.Debug().Str("endpoint", path).Str("signature", out.Signature).Msg("Relay accepted transaction")
	return entities.SignAndSendResponse{Signature: out.Signature}, nil
}

func (r submitResponse) rejection() string {
	if r.Error != "" {
		return r.Error
	}
	if r.Status == "error" {
		if r.Message != "" {
			return r.Message
		}
		return "relay rejected transaction"
	}
	return ""
}

// TransferTransaction assembles locally and charges the registered flat fee.
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
	})
}

var _ repositories.Relay = (*Client)(nil)

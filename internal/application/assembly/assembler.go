// Package assembly builds unsigned SPL token transfers whose network fee is
// sponsored by a relay and repaid in the transferred token.
package assembly

import (
	"context"
	"fmt"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/rs/zerolog"

	"github.com/whiteelite/relay/internal/domain/entities"
	relayerrors "github.com/whiteelite/relay/internal/domain/errors"
	"github.com/whiteelite/relay/internal/domain/repositories"
	sdk "github.com/whiteelite/relay/internal/infrastructure/blockchain/solana"
	"github.com/whiteelite/relay/internal/infrastructure/blockchain/solana/mappers"
	"github.com/whiteelite/relay/internal/infrastructure/blockchain/solana/models"
)

// FeeQuote is where the sender repays the relay and how much.
type FeeQuote struct {
	// Account is the relay's token account for the mint.
	Account string
	Amount  uint64
}

// FeeQuoter asks the relay to price a draft transaction. draft is the base64
// encoded transaction without the fee instruction.
type FeeQuoter func(ctx context.Context, draft string) (FeeQuote, error)

type Params struct {
	Config      entities.RelayConfig
	Mint        string
	Source      string
	Destination string
	Amount      uint64

	// Quote prices the fee through the relay. When nil the flat fee of the
	// registered fee token is charged.
	Quote FeeQuoter
}

type Assembler struct {
	ledger repositories.Ledger
	logger zerolog.Logger
}

func NewAssembler(ledger repositories.Ledger, logger zerolog.Logger) *Assembler {
	return &Assembler{
		ledger: ledger,
		logger: logger.With().Str("component", "assembler").Logger(),
	}
}

// Build assembles fee transfer, optional recipient ATA creation and value
// transfer, in that order, paid by the relay fee payer. The result carries
// zero-filled signature slots for the fee payer and the source owner.
func (a *Assembler) Build(ctx context.Context, p Params) (entities.TransferTransaction, error) {
	token, ok := p.Config.TransferToken(p.Mint)
	if !ok {
		return entities.TransferTransaction{}, relayerrors.UnsupportedToken(p.Mint)
	}
	if err := validate(p); err != nil {
		return entities.TransferTransaction{}, err
	}

	feePayer := p.Config.FeePayer
	if err := sdk.ValidateAddress(feePayer); err != nil {
		return entities.TransferTransaction{}, relayerrors.UpstreamRejected(fmt.Sprintf("relay reported an invalid fee payer: %v", err), 0)
	}

	sourceATA, err := sdk.DeriveAssociatedTokenAddress(models.DeriveATARequest{Owner: p.Source, Mint: p.Mint})
	if err != nil {
		return entities.TransferTransaction{}, relayerrors.InvalidRequest("source: %v", err)
	}
	destinationATA, err := sdk.DeriveAssociatedTokenAddress(models.DeriveATARequest{Owner: p.Destination, Mint: p.Mint})
	if err != nil {
		return entities.TransferTransaction{}, relayerrors.InvalidRequest("destination: %v", err)
	}

	exists, err := a.ledger.AccountExists(ctx, destinationATA)
	if err != nil {
		return entities.TransferTransaction{}, relayerrors.AccountLookupFailed(destinationATA, err)
	}

	blockhash, err := a.ledger.LatestBlockhash(ctx)
	if err != nil {
		return entities.TransferTransaction{}, fmt.Errorf("latest blockhash: %w", err)
	}

	var body []types.Instruction
	if !exists {
		create, err := sdk.CreateAssociatedTokenAccountInstruction(models.CreateATAInstructionRequest{
			Funder: feePayer,
			Owner:  p.Destination,
			Mint:   p.Mint,
		})
		if err != nil {
			return entities.TransferTransaction{}, fmt.Errorf("create associated account instruction: %w", err)
		}
		body = append(body, create)
	}
	body = append(body, valueTransfer(token, sourceATA, destinationATA, p))

	quote := FeeQuote{Account: token.Account, Amount: token.Fee}
	if p.Quote != nil {
		draft, err := encode(feePayer, blockhash, body)
		if err != nil {
			return entities.TransferTransaction{}, err
		}
		quote, err = p.Quote(ctx, draft)
		if err != nil {
			return entities.TransferTransaction{}, err
		}
	}
	if err := sdk.ValidateAddress(quote.Account); err != nil {
		return entities.TransferTransaction{}, relayerrors.UpstreamRejected(fmt.Sprintf("relay reported an invalid fee account for %s: %v", p.Mint, err), 0)
	}

	fee := sdk.TransferInstruction(models.TransferInstructionRequest{
		SourceATA:      sourceATA,
		DestinationATA: quote.Account,
		Authority:      p.Source,
		Amount:         quote.Amount,
	})
	instructions := append([]types.Instruction{fee}, body...)

	encoded, err := encode(feePayer, blockhash, instructions)
	if err != nil {
		return entities.TransferTransaction{}, err
	}

	a.logger.Debug().
		Str("mint", p.Mint).
		Str("source", p.Source).
		Str("destination", p.Destination).
		Uint64("amount", p.Amount).
		Uint64("fee", quote.Amount).
		Bool("createAccount", !exists).
		Msg("Assembled gasless transfer")

	return entities.TransferTransaction{
		Transaction:  encoded,
		Instructions: mappers.FromInstructions(instructions),
		Blockhash:    blockhash,
		FeePayer:     feePayer,
	}, nil
}

func validate(p Params) error {
	if p.Amount == 0 {
		return relayerrors.InvalidRequest("amount must be greater than zero")
	}
	if err := sdk.ValidateAddress(p.Source); err != nil {
		return relayerrors.InvalidRequest("source: %v", err)
	}
	if err := sdk.ValidateAddress(p.Destination); err != nil {
		return relayerrors.InvalidRequest("destination: %v", err)
	}
	return nil
}

func valueTransfer(token entities.FeeToken, sourceATA, destinationATA string, p Params) types.Instruction {
	if token.Decimals > 0 {
		return sdk.TransferCheckedInstruction(models.TransferCheckedInstructionRequest{
			SourceATA:      sourceATA,
			DestinationATA: destinationATA,
			Mint:           p.Mint,
			Authority:      p.Source,
			Amount:         p.Amount,
			Decimals:       token.Decimals,
		})
	}
	return sdk.TransferInstruction(models.TransferInstructionRequest{
		SourceATA:      sourceATA,
		DestinationATA: destinationATA,
		Authority:      p.Source,
		Amount:         p.Amount,
	})
}

func encode(feePayer, blockhash string, instructions []types.Instruction) (string, error) {
	tx, err := sdk.NewUnsignedTransaction(sdk.NewMessage(feePayer, blockhash, instructions))
	if err != nil {
		return "", fmt.Errorf("build transaction: %w", err)
	}
	return sdk.EncodeTransaction(tx)
}

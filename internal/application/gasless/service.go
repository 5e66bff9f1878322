package gasless

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/whiteelite/relay/internal/application/submission"
	"github.com/whiteelite/relay/internal/domain/entities"
	"github.com/whiteelite/relay/internal/domain/repositories"
)

const alreadyProcessedMessage = "Transaction was already processed successfully"

// Service is the Handler backed by a relay, a ledger and a submitter. It
// holds no per-request state.
type Service struct {
	relay     repositories.Relay
	ledger    repositories.Ledger
	submitter *submission.Submitter
	logger    zerolog.Logger
}

func NewService(relay repositories.Relay, ledger repositories.Ledger, submitter *submission.Submitter, logger zerolog.Logger) *Service {
	return &Service{
		relay:     relay,
		ledger:    ledger,
		submitter: submitter,
		logger:    logger.With().Str("component", "gasless").Str("relay", relay.Kind()).Logger(),
	}
}

// Handle validates and runs one action.
func (s *Service) Handle(ctx context.Context, a Action) (any, error) {
	return Dispatch(ctx, s, a)
}

func (s *Service) Estimate(ctx context.Context, a *EstimateAction) (EstimateResponse, error) {
	estimate, err := s.relay.EstimateTransactionFee(ctx, entities.EstimateRequest{
		Transaction: a.Transaction,
		FeeToken:    a.FeeToken,
	})
	if err != nil {
		return EstimateResponse{}, err
	}
	return EstimateResponse{
		Lamports:    estimate.Lamports,
		TokenAmount: estimate.TokenAmount,
		TokenMint:   a.FeeToken,
	}, nil
}

func (s *Service) Payment(ctx context.Context, a *PaymentAction) (PaymentResponse, error) {
	payment, err := s.relay.GetPaymentInstruction(ctx, entities.PaymentInstructionRequest{
		Transaction:  a.Transaction,
		FeeToken:     a.FeeToken,
		SourceWallet: a.SourceWallet,
	})
	if err != nil {
		return PaymentResponse{}, err
	}
	return PaymentResponse{PaymentInstruction: payment.Instruction}, nil
}

func (s *Service) Sign(ctx context.Context, a *SignAction) (SignResponse, error) {
	signer, err := s.relay.GetPayerSigner(ctx)
	if err != nil {
		return SignResponse{}, err
	}
	signed, err := s.relay.SignTransaction(ctx, entities.SignRequest{
		Transaction: a.Transaction,
		SignerKey:   signer.SignerAddress,
	})
	if err != nil {
		return SignResponse{}, err
	}
	return SignResponse{SignedTransaction: signed}, nil
}

func (s *Service) SignAndSend(ctx context.Context, a *SignAndSendAction) (SignAndSendResponse, error) {
	result, err := s.submitter.SignAndSend(ctx, a.Transaction)
	if err != nil {
		return SignAndSendResponse{}, err
	}
	if result.AlreadyProcessed() {
		return SignAndSendResponse{
			SignedTransaction: a.Transaction,
			Success:           true,
			AlreadyProcessed:  true,
			Message:           alreadyProcessedMessage,
		}, nil
	}
	return SignAndSendResponse{
		SignedTransaction: result.SignedTransaction,
		Signature:         result.Signature,
		Success:           true,
	}, nil
}

func (s *Service) Transfer(ctx context.Context, a *TransferAction) (TransferResponse, error) {
	s.logger.Info().
		Uint64("amount", a.Amount).
		Str("token", a.Token).
		Str("source", a.Source).
		Str("destination", a.Destination).
		RawJSON("nonce", nonceOrNull(a.Nonce)).
		Msg("Creating gasless transfer")

	tx, err := s.relay.TransferTransaction(ctx, entities.TransferRequest{
		Amount:      a.Amount,
		Token:       a.Token,
		Source:      a.Source,
		Destination: a.Destination,
	})
	if err != nil {
		return TransferResponse{}, err
	}
	return TransferResponse{
		Transaction:  tx.Transaction,
		Instructions: tx.Instructions,
		Nonce:        a.Nonce,
	}, nil
}

func nonceOrNull(nonce []byte) []byte {
	if len(nonce) == 0 {
		return []byte("null")
	}
	return nonce
}

func (s *Service) Broadcast(ctx context.Context, a *BroadcastAction) (BroadcastResponse, error) {
	result, err := s.submitter.Broadcast(ctx, a.Transaction)
	if err != nil {
		return BroadcastResponse{}, err
	}
	return BroadcastResponse{
		Signature:        result.Signature,
		Confirmed:        result.Confirmed,
		Success:          true,
		AlreadyProcessed: result.AlreadyProcessed(),
	}, nil
}

// Status probes the relay. Token decimals the relay does not report are
// read from the mint; tokens whose mint cannot be read are listed without.
func (s *Service) Status(ctx context.Context) (StatusResponse, error) {
	cfg, err := s.relay.GetConfig(ctx)
	if err != nil {
		return StatusResponse{}, err
	}
	signer, err := s.relay.GetPayerSigner(ctx)
	if err != nil {
		return StatusResponse{}, err
	}

	tokens := make([]TokenStatus, 0, len(cfg.Endpoints.Transfer))
	for _, token := range cfg.Endpoints.Transfer {
		if token.Decimals == 0 {
			decimals, err := s.ledger.MintDecimals(ctx, token.Mint)
			if err != nil {
				s.logger.Warn().Err(err).Str("mint", token.Mint).Msg("Could not read mint decimals")
			} else {
				token.Decimals = decimals
			}
		}
		tokens = append(tokens, TokenStatus{
			Mint:     token.Mint,
			Decimals: token.Decimals,
			Fee:      token.Fee,
			FeeUI:    token.FeeUI(),
		})
	}

	return StatusResponse{
		Enabled:            true,
		Relay:              s.relay.Kind(),
		FeePayer:           signer.SignerAddress,
		PaymentDestination: signer.PaymentDestination,
		SupportedTokens:    cfg.Endpoints.Transfer.Mints(),
		Tokens:             tokens,
	}, nil
}

var _ Handler = (*Service)(nil)

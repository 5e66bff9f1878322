// Package submission hands transactions to the relay or the ledger and
// classifies the outcome, treating already processed transactions as success.
package submission

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/whiteelite/relay/internal/domain/entities"
	relayerrors "github.com/whiteelite/relay/internal/domain/errors"
	"github.com/whiteelite/relay/internal/domain/repositories"
	sdk "github.com/whiteelite/relay/internal/infrastructure/blockchain/solana"
	"github.com/whiteelite/relay/internal/infrastructure/blockchain/solana/mappers"
	"github.com/whiteelite/relay/internal/metrics"
)

const (
	ActionSignAndSend = "signAndSend"
	ActionBroadcast   = "broadcast"

	defaultConfirmTimeout = 20 * time.Second
	defaultPollInterval   = time.Second
)

type Submitter struct {
	relay     repositories.Relay
	ledger    repositories.Ledger
	publisher repositories.SubmissionPublisher
	metrics   *metrics.Metrics
	logger    zerolog.Logger

	confirmTimeout time.Duration
	pollInterval   time.Duration
	now            func() time.Time
}

type Option func(*Submitter)

func WithPublisher(p repositories.SubmissionPublisher) Option {
	return func(s *Submitter) { s.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Submitter) { s.metrics = m }
}

// WithConfirmation bounds how long Broadcast polls for confirmation. A zero
// timeout disables polling.
func WithConfirmation(timeout, interval time.Duration) Option {
	return func(s *Submitter) {
		s.confirmTimeout = timeout
		if interval > 0 {
			s.pollInterval = interval
		}
	}
}

func NewSubmitter(relay repositories.Relay, ledger repositories.Ledger, logger zerolog.Logger, opts ...Option) *Submitter {
	s := &Submitter{
		relay:          relay,
		ledger:         ledger,
		logger:         logger.With().Str("component", "submitter").Logger(),
		confirmTimeout: defaultConfirmTimeout,
		pollInterval:   defaultPollInterval,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SignAndSend has the relay co-sign and broadcast tx. The fee payer signer
// is resolved again for every submission.
func (s *Submitter) SignAndSend(ctx context.Context, tx string) (entities.SubmitResult, error) {
	signer, err := s.relay.GetPayerSigner(ctx)
	if err != nil {
		return entities.SubmitResult{}, err
	}

	resp, err := s.relay.SignAndSendTransaction(ctx, entities.SignRequest{
		Transaction: tx,
		SignerKey:   signer.SignerAddress,
	})
	result, err := Resolve(resp, err)

	signed := tx
	if result.SignedTransaction != "" {
		signed = result.SignedTransaction
	}
	s.record(ctx, ActionSignAndSend, signed, result, err)
	return result, err
}

// Broadcast submits a fully signed transaction directly to the ledger and
// waits a bounded time for confirmation. Running out of time is not an error.
func (s *Submitter) Broadcast(ctx context.Context, tx string) (entities.SubmitResult, error) {
	raw, err := sdk.DecodeBase64(tx)
	if err != nil {
		return entities.SubmitResult{}, relayerrors.InvalidRequest("%v", err)
	}
	local, ok := sdk.FirstSignature(raw)
	if !ok {
		return entities.SubmitResult{}, relayerrors.InvalidRequest("transaction is not signed")
	}

	sig, err := s.ledger.SendRawTransaction(ctx, raw)
	if err != nil {
		result, err := Resolve(entities.SignAndSendResponse{}, err)
		s.record(ctx, ActionBroadcast, tx, result, err)
		return result, err
	}
	if sig == "" {
		sig = local
	}

	confirmed, err := s.awaitConfirmation(ctx, sig)
	if err != nil {
		result := entities.SubmitResult{Outcome: entities.OutcomeFailed, Signature: &sig}
		s.record(ctx, ActionBroadcast, tx, result, err)
		return result, err
	}

	result := entities.SubmitResult{
		Outcome:           entities.OutcomeSubmitted,
		Signature:         &sig,
		SignedTransaction: tx,
		Confirmed:         confirmed,
	}
	if confirmed {
		result.Outcome = entities.OutcomeConfirmed
	}
	s.record(ctx, ActionBroadcast, tx, result, nil)
	return result, nil
}

// awaitConfirmation polls the signature status until it is confirmed, the
// transaction is reported failed, or the confirmation window closes.
func (s *Submitter) awaitConfirmation(ctx context.Context, sig string) (bool, error) {
	if s.confirmTimeout <= 0 {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.confirmTimeout)
	defer cancel()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		confirmed, err := s.ledger.SignatureConfirmed(ctx, sig)
		switch {
		case err == nil && confirmed:
			return true, nil
		case err != nil:
			if kind, ok := relayerrors.KindOf(err); ok && kind == relayerrors.KindUpstreamRejected {
				return false, err
			}
			s.logger.Debug().Err(err).Str("signature", sig).Msg("Signature status lookup failed, retrying")
		}

		select {
		case <-ctx.Done():
			s.logger.Info().Str("signature", sig).Msg("Broadcast not confirmed within window")
			return false, nil
		case <-ticker.C:
		}
	}
}

// record publishes the submission event and counts the outcome. Publishing
// never fails the submission.
func (s *Submitter) record(ctx context.Context, action, tx string, result entities.SubmitResult, err error) {
	s.metrics.ObserveSubmission(string(result.Outcome))

	log := s.logger.Info()
	if err != nil {
		log = s.logger.Warn().Err(err)
	}
	log.Str("action", action).
		Str("outcome", string(result.Outcome)).
		Interface("signature", result.Signature).
		Msg("Submission resolved")

	if s.publisher == nil {
		return
	}

	event := entities.SubmissionEvent{
		ID:        uuid.New(),
		Action:    action,
		Outcome:   result.Outcome,
		Signature: result.Signature,
		Transfers: decodeTransfers(tx),
		At:        s.now().UTC(),
	}
	if err != nil {
		event.Error = err.Error()
	}
	if perr := s.publisher.Publish(ctx, event); perr != nil {
		s.logger.Warn().Err(perr).Str("event", event.ID.String()).Msg("Failed to publish submission event")
	}
}

func decodeTransfers(tx string) []entities.TokenTransfer {
	decoded, _, err := sdk.DecodeTransaction(tx)
	if err != nil {
		return nil
	}
	instructions, err := sdk.DecompileInstructions(decoded.Message)
	if err != nil {
		return nil
	}
	return mappers.FromTransfers(sdk.DecodeTokenTransfers(instructions))
}

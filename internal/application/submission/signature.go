package submission

import (
	"strings"

	"github.com/whiteelite/relay/internal/domain/entities"
	relayerrors "github.com/whiteelite/relay/internal/domain/errors"
	sdk "github.com/whiteelite/relay/internal/infrastructure/blockchain/solana"
)

// Phrases relays and RPC nodes use when a transaction already landed. Only
// consulted when the error carries no recognised structured reason.
var alreadyProcessedPhrases = []string{
	"already been processed",
	"alreadyprocessed",
}

// ExtractSignature prefers the signature the relay reported and otherwise
// reads the first non-placeholder signature of the signed transaction. It
// returns nil when neither yields one.
func ExtractSignature(resp entities.SignAndSendResponse) *string {
	if sig := strings.TrimSpace(resp.Signature); sig != "" {
		return &sig
	}
	if resp.SignedTransaction == "" {
		return nil
	}
	raw, err := sdk.DecodeBase64(resp.SignedTransaction)
	if err != nil {
		return nil
	}
	sig, ok := sdk.FirstSignature(raw)
	if !ok {
		return nil
	}
	return &sig
}

// IsAlreadyProcessed reports whether err means an identical transaction was
// already accepted by the ledger.
func IsAlreadyProcessed(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := relayerrors.As(err); ok && relayerrors.IsTransactionErrorVariant(e.Reason) {
		return e.Reason == relayerrors.ReasonAlreadyProcessed
	}
	msg := strings.ToLower(err.Error())
	for _, phrase := range alreadyProcessedPhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

// Resolve turns the answer of one submission into a result. Already
// processed rejections become a successful result without signature; every
// other error is returned unchanged.
func Resolve(resp entities.SignAndSendResponse, err error) (entities.SubmitResult, error) {
	if err != nil {
		if IsAlreadyProcessed(err) {
			return entities.SubmitResult{Outcome: entities.OutcomeAlreadyProcessed}, nil
		}
		return entities.SubmitResult{Outcome: entities.OutcomeFailed}, err
	}

	result := entities.SubmitResult{
		SignedTransaction: resp.SignedTransaction,
		Signature:         ExtractSignature(resp),
		Outcome:           entities.OutcomeSubmitted,
	}
	if result.Signature == nil {
		result.Outcome = entities.OutcomeSignatureUnknown
	}
	return result, nil
}

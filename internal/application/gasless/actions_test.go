package gasless

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	relayerrors "github.com/whiteelite/relay/internal/domain/errors"
	"github.com/whiteelite/relay/internal/testutil"
)

const (
	wallet = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
	mint   = testutil.DevnetUSDC
)

func TestParseActionKinds(t *testing.T) {
	testCases := []struct {
		body string
		want Action
	}{
		{`{"action":"estimate","transaction":"AQ==","feeToken":"m"}`, &EstimateAction{Transaction: "AQ==", FeeToken: "m"}},
		{`{"action":"payment","transaction":"AQ==","feeToken":"m","sourceWallet":"w"}`, &PaymentAction{Transaction: "AQ==", FeeToken: "m", SourceWallet: "w"}},
		{`{"action":"sign","transaction":"AQ=="}`, &SignAction{Transaction: "AQ=="}},
		{`{"action":"signAndSend","transaction":"AQ=="}`, &SignAndSendAction{Transaction: "AQ=="}},
		{`{"action":"broadcast","transaction":"AQ=="}`, &BroadcastAction{Transaction: "AQ=="}},
	}

	for _, tc := range testCases {
		t.Run(tc.want.Name(), func(t *testing.T) {
			got, err := ParseAction([]byte(tc.body))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseActionRejects(t *testing.T) {
	testCases := []struct {
		name     string
		body     string
		wantKind relayerrors.Kind
		wantMsg  string
	}{
		{"not json", `{action:`, relayerrors.KindInvalidRequest, "Invalid JSON body"},
		{"no action", `{"transaction":"AQ=="}`, relayerrors.KindMissingField, "Missing required fields: action"},
		{"unknown action", `{"action":"swap"}`, relayerrors.KindInvalidRequest, "Unknown action: swap"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseAction([]byte(tc.body))
			relayErr, ok := relayerrors.As(err)
			require.True(t, ok)
			assert.Equal(t, tc.wantKind, relayErr.Kind)
			assert.Equal(t, tc.wantMsg, relayErr.Message)
		})
	}
}

func TestValidateEnumeratesMissingFields(t *testing.T) {
	testCases := []struct {
		body string
		want []string
	}{
		{`{"action":"estimate"}`, []string{"transaction", "feeToken"}},
		{`{"action":"payment","feeToken":"x"}`, []string{"transaction", "sourceWallet"}},
		{`{"action":"sign"}`, []string{"transaction"}},
		{`{"action":"signAndSend","transaction":"  "}`, []string{"transaction"}},
		{`{"action":"broadcast"}`, []string{"transaction"}},
		{`{"action":"transfer","amount":null,"source":"s"}`, []string{"amount", "token", "destination"}},
	}

	for _, tc := range testCases {
		t.Run(tc.body, func(t *testing.T) {
			action, err := ParseAction([]byte(tc.body))
			require.NoError(t, err)

			err = action.Validate()
			relayErr, ok := relayerrors.As(err)
			require.True(t, ok)
			assert.Equal(t, relayerrors.KindMissingField, relayErr.Kind)
			assert.Equal(t, tc.want, relayErr.Fields)
		})
	}
}

func TestValidateRejectsMalformedFields(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{"transaction not base64", `{"action":"sign","transaction":"***"}`},
		{"fee token not an address", `{"action":"estimate","transaction":"AQ==","feeToken":"usdc"}`},
		{"source wallet too short", `{"action":"payment","transaction":"AQ==","feeToken":"` + mint + `","sourceWallet":"abc"}`},
		{"fractional amount", `{"action":"transfer","amount":1.5,"token":"` + mint + `","source":"` + wallet + `","destination":"` + wallet + `"}`},
		{"zero amount", `{"action":"transfer","amount":0,"token":"` + mint + `","source":"` + wallet + `","destination":"` + wallet + `"}`},
		{"negative amount", `{"action":"transfer","amount":-5,"token":"` + mint + `","source":"` + wallet + `","destination":"` + wallet + `"}`},
		{"amount overflow", `{"action":"transfer","amount":"18446744073709551616","token":"` + mint + `","source":"` + wallet + `","destination":"` + wallet + `"}`},
		{"amount word", `{"action":"transfer","amount":"ten","token":"` + mint + `","source":"` + wallet + `","destination":"` + wallet + `"}`},
		{"bad destination", `{"action":"transfer","amount":1,"token":"` + mint + `","source":"` + wallet + `","destination":"0x12"}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			action, err := ParseAction([]byte(tc.body))
			require.NoError(t, err)
			assert.ErrorIs(t, action.Validate(), &relayerrors.Error{Kind: relayerrors.KindInvalidRequest})
		})
	}
}

func TestTransferAmountForms(t *testing.T) {
	testCases := []struct {
		raw  string
		want uint64
	}{
		{`1000000`, 1_000_000},
		{`"1000000"`, 1_000_000},
		{`1e6`, 1_000_000},
		{`"18446744073709551615"`, 18446744073709551615},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			body := `{"action":"transfer","amount":` + tc.raw + `,"token":"` + mint + `","source":"` + wallet + `","destination":"` + wallet + `","nonce":"n-1"}`
			action, err := ParseAction([]byte(body))
			require.NoError(t, err)
			require.NoError(t, action.Validate())

			transfer := action.(*TransferAction)
			assert.Equal(t, tc.want, transfer.Amount)
			assert.JSONEq(t, `"n-1"`, string(transfer.Nonce))
		})
	}
}

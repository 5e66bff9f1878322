package sdk

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/blocto/solana-go-sdk/types"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	relayerrors "github.com/whiteelite/relay/internal/domain/errors"
)

// rpcServer answers JSON-RPC calls by method name with a raw response body
// fragment (either "result" or "error").
func rpcServer(t *testing.T, responses map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var req struct {
			ID     any    `json:"id"`
			Method string `json:"method"`
		}
		require.NoError(t, json.Unmarshal(body, &req))

		fragment, ok := responses[req.Method]
		if !ok {
			t.Errorf("unexpected rpc method %s", req.Method)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		id, _ := json.Marshal(req.ID)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"jsonrpc":"2.0","id":`+string(id)+`,`+fragment+`}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLatestBlockhash(t *testing.T) {
	srv := rpcServer(t, map[string]string{
		"getLatestBlockhash": `"result":{"context":{"slot":1},"value":{"blockhash":"` + testBlockhash + `","lastValidBlockHeight":200}}`,
	})

	hash, err := NewClient(srv.URL).LatestBlockhash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testBlockhash, hash)
}

func TestAccountExistsMissingAccount(t *testing.T) {
	srv := rpcServer(t, map[string]string{
		"getAccountInfo": `"result":{"context":{"slot":1},"value":null}`,
	})

	exists, err := NewClient(srv.URL).AccountExists(context.Background(), testMint)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSendRawTransactionAlreadyProcessed(t *testing.T) {
	srv := rpcServer(t, map[string]string{
		"sendTransaction": `"error":{"code":-32002,"message":"Transaction simulation failed: This transaction has already been processed","data":{"err":"AlreadyProcessed","logs":[]}}`,
	})

	tx, _ := signedTransfer(t, types.MessageVersionLegacy)
	raw, err := tx.Serialize()
	require.NoError(t, err)

	_, err = NewClient(srv.URL).SendRawTransaction(context.Background(), raw)
	require.Error(t, err)

	relayErr, ok := relayerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, relayerrors.KindUpstreamRejected, relayErr.Kind)
	assert.Equal(t, -32002, relayErr.Code)
	assert.Equal(t, relayerrors.ReasonAlreadyProcessed, relayErr.Reason)
}

func TestSendRawTransactionRejectsGarbage(t *testing.T) {
	_, err := NewClient("http://127.0.0.1:1").SendRawTransaction(context.Background(), []byte{1, 2, 3})
	assert.ErrorIs(t, err, &relayerrors.Error{Kind: relayerrors.KindInvalidRequest})
}

func TestParseNetwork(t *testing.T) {
	testCases := []struct {
		name    string
		want    Network
		wantErr bool
	}{
		{"devnet", NetworkDevnet, false},
		{" Mainnet ", NetworkMainnet, false},
		{"mainnet-beta", NetworkMainnet, false},
		{"testnet", NetworkTestnet, false},
		{"localnet", "", true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseNetwork(tc.name)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.NotEmpty(t, DefaultRPCURL(got))
		})
	}
}

func TestTransactionErrorReason(t *testing.T) {
	testCases := []struct {
		name string
		data any
		want string
	}{
		{"bare variant", map[string]any{"err": "BlockhashNotFound"}, "BlockhashNotFound"},
		{"keyed variant", map[string]any{"err": map[string]any{"InstructionError": []any{0, "Custom"}}}, "InstructionError"},
		{"no data", nil, ""},
		{"unexpected shape", "oops", ""},
		{"free text err", map[string]any{"err": "Transaction has already been processed"}, ""},
		{"unknown keyed err", map[string]any{"err": map[string]any{"details": "duplicate"}}, ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, transactionErrorReason(tc.data))
		})
	}
}

func TestSignatureConfirmed(t *testing.T) {
	testCases := []struct {
		name    string
		result  string
		want    bool
		wantErr bool
	}{
		{"unknown", `"result":{"context":{"slot":1},"value":[null]}`, false, false},
		{"processed", `"result":{"context":{"slot":1},"value":[{"slot":1,"confirmations":0,"err":null,"confirmationStatus":"processed"}]}`, false, false},
		{"confirmed", `"result":{"context":{"slot":1},"value":[{"slot":1,"confirmations":1,"err":null,"confirmationStatus":"confirmed"}]}`, true, false},
		{"failed", `"result":{"context":{"slot":1},"value":[{"slot":1,"confirmations":null,"err":{"InstructionError":[0,"Custom"]},"confirmationStatus":"finalized"}]}`, false, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := rpcServer(t, map[string]string{"getSignatureStatuses": tc.result})

			ok, err := NewClient(srv.URL).SignatureConfirmed(context.Background(), "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW")
			if tc.wantErr {
				assert.ErrorIs(t, err, &relayerrors.Error{Kind: relayerrors.KindUpstreamRejected})
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)
		})
	}
}

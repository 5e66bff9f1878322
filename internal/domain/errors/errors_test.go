package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMissingFieldsEnumeratesNames(t *testing.T) {
	err := MissingFields("transaction", "feeToken")

	assert.Equal(t, KindMissingField, err.Kind)
	assert.Equal(t, "Missing required fields: transaction, feeToken", err.Message)
	assert.Equal(t, []string{"transaction", "feeToken"}, err.Fields)
}

func TestHTTPStatus(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want int
	}{
		{"missing field", MissingFields("amount"), http.StatusBadRequest},
		{"unsupported token", UnsupportedToken("mint"), http.StatusBadRequest},
		{"invalid request", InvalidRequest("bad %s", "address"), http.StatusBadRequest},
		{"unsupported operation", Unsupported("signTransaction", "octane"), http.StatusBadRequest},
		{"relay unavailable", RelayUnavailable(stderrors.New("dial tcp: refused")), http.StatusInternalServerError},
		{"upstream rejected", UpstreamRejected("insufficient funds", -32002), http.StatusInternalServerError},
		{"account lookup", AccountLookupFailed("ata", stderrors.New("rpc down")), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("estimate: %w", UnsupportedToken("mint")), http.StatusBadRequest},
		{"foreign", stderrors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatus(tc.err))
		})
	}
}

func TestRelayUnavailableKeepsUpstreamMessage(t *testing.T) {
	cause := stderrors.New("connection reset by peer")
	err := RelayUnavailable(cause)

	assert.Equal(t, "connection reset by peer", err.Message)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "[RELAY_UNAVAILABLE] connection reset by peer", err.Error())
}

func TestKindMatching(t *testing.T) {
	err := fmt.Errorf("transfer: %w", UnsupportedToken("So11111111111111111111111111111111111111112"))

	require.ErrorIs(t, err, &Error{Kind: KindUnsupportedToken})
	assert.NotErrorIs(t, err, &Error{Kind: KindMissingField})

	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindUnsupportedToken, kind)
	assert.False(t, IsRelayError(err))
	assert.True(t, IsRelayError(UpstreamRejected("nope", 0)))
}

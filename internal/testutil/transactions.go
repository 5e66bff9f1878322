package testutil

import (
	"testing"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/require"

	sdk "github.com/whiteelite/relay/internal/infrastructure/blockchain/solana"
	"github.com/whiteelite/relay/internal/infrastructure/blockchain/solana/models"
)

const DevnetUSDC = "4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU"

// SignedTransfer returns a base64 SPL transfer of amount signed by a fresh
// fee payer and owner, together with the fee payer signature in base58.
func SignedTransfer(t *testing.T, version types.MessageVersion, amount uint64) (string, string) {
	t.Helper()

	payer := types.NewAccount()
	owner := types.NewAccount()

	src, err := sdk.DeriveAssociatedTokenAddress(models.DeriveATARequest{Owner: owner.PublicKey.ToBase58(), Mint: DevnetUSDC})
	require.NoError(t, err)
	dst, err := sdk.DeriveAssociatedTokenAddress(models.DeriveATARequest{Owner: types.NewAccount().PublicKey.ToBase58(), Mint: DevnetUSDC})
	require.NoError(t, err)

	msg := sdk.NewMessage(payer.PublicKey.ToBase58(), NewFakeLedger().Blockhash, []types.Instruction{
		sdk.TransferInstruction(models.TransferInstructionRequest{
			SourceATA:      src,
			DestinationATA: dst,
			Authority:      owner.PublicKey.ToBase58(),
			Amount:         amount,
		}),
	})
	msg.Version = version

	tx, err := types.NewTransaction(types.NewTransactionParam{
		Message: msg,
		Signers: []types.Account{payer, owner},
	})
	require.NoError(t, err)

	encoded, err := sdk.EncodeTransaction(tx)
	require.NoError(t, err)
	return encoded, base58.Encode(tx.Signatures[0])
}

// UnsignedTransfer returns the same transfer with zero-filled signature slots.
func UnsignedTransfer(t *testing.T) string {
	t.Helper()

	signed, _ := SignedTransfer(t, types.MessageVersionLegacy, 1)
	tx, _, err := sdk.DecodeTransaction(signed)
	require.NoError(t, err)

	unsigned, err := sdk.NewUnsignedTransaction(tx.Message)
	require.NoError(t, err)
	encoded, err := sdk.EncodeTransaction(unsigned)
	require.NoError(t, err)
	return encoded
}

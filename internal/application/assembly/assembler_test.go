package assembly

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whiteelite/relay/internal/domain/entities"
	relayerrors "github.com/whiteelite/relay/internal/domain/errors"
	sdk "github.com/whiteelite/relay/internal/infrastructure/blockchain/solana"
	"github.com/whiteelite/relay/internal/infrastructure/blockchain/solana/models"
	"github.com/whiteelite/relay/internal/testutil"
)

const usdcDevnet = "4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU"

type fixture struct {
	ledger      *testutil.FakeLedger
	assembler   *Assembler
	config      entities.RelayConfig
	feePayer    string
	feeAccount  string
	source      string
	destination string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ledger := testutil.NewFakeLedger()
	feePayer := types.NewAccount().PublicKey.ToBase58()
	feeAccount, err := sdk.DeriveAssociatedTokenAddress(models.DeriveATARequest{Owner: feePayer, Mint: usdcDevnet})
	require.NoError(t, err)

	return &fixture{
		ledger:    ledger,
		assembler: NewAssembler(ledger, zerolog.New(zerolog.NewTestWriter(t))),
		config: entities.RelayConfig{
			FeePayer:             feePayer,
			LamportsPerSignature: 5000,
			Endpoints: entities.RelayEndpoints{
				Transfer: entities.FeeTokens{{Mint: usdcDevnet, Account: feeAccount, Decimals: 6, Fee: 10_000}},
			},
		},
		feePayer:    feePayer,
		feeAccount:  feeAccount,
		source:      types.NewAccount().PublicKey.ToBase58(),
		destination: types.NewAccount().PublicKey.ToBase58(),
	}
}

func (f *fixture) params() Params {
	return Params{
		Config:      f.config,
		Mint:        usdcDevnet,
		Source:      f.source,
		Destination: f.destination,
		Amount:      1_000_000,
	}
}

func (f *fixture) destinationATA(t *testing.T) string {
	t.Helper()
	ata, err := sdk.DeriveAssociatedTokenAddress(models.DeriveATARequest{Owner: f.destination, Mint: usdcDevnet})
	require.NoError(t, err)
	return ata
}

func decode(t *testing.T, encoded string) (types.Transaction, []types.Instruction) {
	t.Helper()
	tx, _, err := sdk.DecodeTransaction(encoded)
	require.NoError(t, err)
	instructions, err := sdk.DecompileInstructions(tx.Message)
	require.NoError(t, err)
	return tx, instructions
}

func indexOfTransferTo(instructions []types.Instruction, account string) int {
	for i, inst := range instructions {
		if inst.ProgramID != common.TokenProgramID || len(inst.Accounts) < 3 {
			continue
		}
		dst := inst.Accounts[1]
		if len(inst.Accounts) == 4 {
			dst = inst.Accounts[2]
		}
		if dst.PubKey.ToBase58() == account {
			return i
		}
	}
	return -1
}

func countCreateATA(instructions []types.Instruction) int {
	n := 0
	for _, inst := range instructions {
		if sdk.IsCreateAssociatedTokenAccount(inst) {
			n++
		}
	}
	return n
}

func TestBuildOrdersFeeBeforeTransfer(t *testing.T) {
	testCases := []struct {
		name            string
		recipientExists bool
		wantCreate      int
		wantLen         int
	}{
		{"recipient account exists", true, 0, 2},
		{"recipient account missing", false, 1, 3},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			if tc.recipientExists {
				f.ledger.AddAccount(f.destinationATA(t))
			}

			result, err := f.assembler.Build(context.Background(), f.params())
			require.NoError(t, err)

			_, instructions := decode(t, result.Transaction)
			require.Len(t, instructions, tc.wantLen)
			assert.Len(t, result.Instructions, tc.wantLen)
			assert.Equal(t, tc.wantCreate, countCreateATA(instructions))

			feeIdx := indexOfTransferTo(instructions, f.feeAccount)
			valueIdx := indexOfTransferTo(instructions, f.destinationATA(t))
			require.NotEqual(t, -1, feeIdx)
			require.NotEqual(t, -1, valueIdx)
			assert.Less(t, feeIdx, valueIdx)

			if tc.wantCreate == 1 {
				create := instructions[1]
				assert.True(t, sdk.IsCreateAssociatedTokenAccount(create))
				assert.Equal(t, f.feePayer, create.Accounts[0].PubKey.ToBase58())
				assert.Less(t, 1, valueIdx)
			}
		})
	}
}

func TestBuildRoundTrip(t *testing.T) {
	f := newFixture(t)

	result, err := f.assembler.Build(context.Background(), f.params())
	require.NoError(t, err)

	tx, instructions := decode(t, result.Transaction)
	assert.Equal(t, result.Blockhash, tx.Message.RecentBlockHash)
	assert.Equal(t, f.ledger.Blockhash, result.Blockhash)
	assert.Equal(t, f.feePayer, tx.Message.Accounts[0].ToBase58())
	assert.Equal(t, f.feePayer, result.FeePayer)

	require.Len(t, instructions, len(result.Instructions))
	for i, inst := range instructions {
		assert.Equal(t, result.Instructions[i].ProgramID, inst.ProgramID.ToBase58())
		assert.Equal(t, result.Instructions[i].Data, inst.Data)
		require.Len(t, inst.Accounts, len(result.Instructions[i].Accounts))
		for j, meta := range inst.Accounts {
			assert.Equal(t, result.Instructions[i].Accounts[j].PubKey, meta.PubKey.ToBase58())
		}
	}

	reencoded, err := sdk.EncodeTransaction(tx)
	require.NoError(t, err)
	assert.Equal(t, result.Transaction, reencoded)
}

func TestBuildLeavesSignatureSlotsEmpty(t *testing.T) {
	f := newFixture(t)

	result, err := f.assembler.Build(context.Background(), f.params())
	require.NoError(t, err)

	tx, _ := decode(t, result.Transaction)
	require.Len(t, tx.Signatures, 2)
	assert.Equal(t, f.source, tx.Message.Accounts[1].ToBase58())

	raw, err := sdk.DecodeBase64(result.Transaction)
	require.NoError(t, err)
	_, ok := sdk.FirstSignature(raw)
	assert.False(t, ok)
}

func TestBuildChargesFlatFee(t *testing.T) {
	f := newFixture(t)

	result, err := f.assembler.Build(context.Background(), f.params())
	require.NoError(t, err)

	_, instructions := decode(t, result.Transaction)
	fee := instructions[0]
	assert.Equal(t, uint64(10_000), binary.LittleEndian.Uint64(fee.Data[1:9]))
	assert.Equal(t, f.source, fee.Accounts[2].PubKey.ToBase58())
}

func TestBuildUsesRelayQuote(t *testing.T) {
	f := newFixture(t)
	f.ledger.AddAccount(f.destinationATA(t))
	quoteAccount := types.NewAccount().PublicKey.ToBase58()

	var draft string
	p := f.params()
	p.Quote = func(_ context.Context, tx string) (FeeQuote, error) {
		draft = tx
		return FeeQuote{Account: quoteAccount, Amount: 12_345}, nil
	}

	result, err := f.assembler.Build(context.Background(), p)
	require.NoError(t, err)

	_, draftInstructions := decode(t, draft)
	assert.Len(t, draftInstructions, 1)

	_, instructions := decode(t, result.Transaction)
	require.Len(t, instructions, 2)
	assert.Equal(t, 0, indexOfTransferTo(instructions, quoteAccount))
	assert.Equal(t, uint64(12_345), binary.LittleEndian.Uint64(instructions[0].Data[1:9]))
}

func TestBuildQuoteErrorPropagates(t *testing.T) {
	f := newFixture(t)
	p := f.params()
	p.Quote = func(context.Context, string) (FeeQuote, error) {
		return FeeQuote{}, relayerrors.UpstreamRejected("fee token disabled", -32000)
	}

	_, err := f.assembler.Build(context.Background(), p)
	kind, ok := relayerrors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, relayerrors.KindUpstreamRejected, kind)
}

func TestBuildRejectsUnsupportedTokenBeforeLookup(t *testing.T) {
	f := newFixture(t)
	p := f.params()
	p.Mint = "So11111111111111111111111111111111111111112"

	_, err := f.assembler.Build(context.Background(), p)
	require.ErrorIs(t, err, &relayerrors.Error{Kind: relayerrors.KindUnsupportedToken})
	assert.Zero(t, f.ledger.AccountLookups.Load())
}

func TestBuildAccountLookupFailure(t *testing.T) {
	f := newFixture(t)
	f.ledger.AccountExistsFunc = func(context.Context, string) (bool, error) {
		return false, errors.New("rpc: 503 service unavailable")
	}

	_, err := f.assembler.Build(context.Background(), f.params())
	require.ErrorIs(t, err, &relayerrors.Error{Kind: relayerrors.KindAccountLookupFailed})
}

func TestBuildValidatesInput(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Params)
	}{
		{"zero amount", func(p *Params) { p.Amount = 0 }},
		{"bad source", func(p *Params) { p.Source = "not-an-address" }},
		{"bad destination", func(p *Params) { p.Destination = "" }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			p := f.params()
			tc.mutate(&p)

			_, err := f.assembler.Build(context.Background(), p)
			require.ErrorIs(t, err, &relayerrors.Error{Kind: relayerrors.KindInvalidRequest})
			assert.Zero(t, f.ledger.AccountLookups.Load())
		})
	}
}

package sdk

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/rpc"
	"github.com/blocto/solana-go-sdk/types"
	relayerrors "github.com/whiteelite/relay/internal/domain/errors"
	"github.com/whiteelite/relay/internal/domain/repositories"
	models "github.com/whiteelite/relay/internal/infrastructure/blockchain/solana/models"
)

type Client struct {
	c *client.Client
}

// Network names a public Solana cluster.
type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkDevnet  Network = "devnet"
	NetworkTestnet Network = "testnet"
)

// ParseNetwork accepts a cluster name, with mainnet-beta as an alias.
func ParseNetwork(name string) (Network, error) {
	switch n := Network(strings.ToLower(strings.TrimSpace(name))); n {
	case NetworkMainnet, NetworkDevnet, NetworkTestnet:
		return n, nil
	case "mainnet-beta":
		return NetworkMainnet, nil
	default:
		return "", fmt.Errorf("unknown solana network %q", name)
	}
}

// DefaultRPCURL is the public RPC endpoint of network.
func DefaultRPCURL(network Network) string {
	switch network {
	case NetworkMainnet:
		return "https://api.mainnet-beta.solana.com"
	case NetworkTestnet:
		return "https://api.testnet.solana.com"
	case NetworkDevnet:
		fallthrough
	default:
		return "https://api.devnet.solana.com"
	}
}

func NewClient(rpcURL string) *Client {
	return &Client{c: client.NewClient(rpcURL)}
}

// LatestBlockhash returns the most recent blockhash; transactions built on it
// expire after roughly 150 slots.
func (c *Client) LatestBlockhash(ctx context.Context) (string, error) {
	recent, err := c.c.GetLatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("get latest blockhash: %w", err)
	}
	return recent.Blockhash, nil
}

// AccountExists reports whether address holds an account. The RPC answers a
// missing account with an empty value, not an error.
func (c *Client) AccountExists(ctx context.Context, address string) (bool, error) {
	acc, err := c.c.GetAccountInfo(ctx, address)
	if err != nil {
		return false, err
	}
	return acc.Lamports > 0 || acc.Owner != (common.PublicKey{}), nil
}

// MintDecimals reads decimals from Mint account data at offset 44
func (c *Client) MintDecimals(ctx context.Context, mint string) (uint8, error) {
	acc, err := c.c.GetAccountInfo(ctx, mint)
	if err != nil {
		return 0, err
	}
	if len(acc.Data) < 45 {
		return 0, fmt.Errorf("invalid mint account data")
	}
	return acc.Data[44], nil
}

// SendRawTransaction submits an already fully signed transaction directly to
// the ledger, bypassing the relay.
func (c *Client) SendRawTransaction(ctx context.Context, raw []byte) (string, error) {
	tx, _, err := DecodeRawTransaction(raw)
	if err != nil {
		return "", relayerrors.InvalidRequest("%v", err)
	}
	sig, err := c.c.SendTransaction(ctx, tx)
	if err != nil {
		return "", rpcError(err)
	}
	return sig, nil
}

// rpcError turns a JSON-RPC rejection into an upstream error keeping the
// node's code and the structured transaction error, e.g. AlreadyProcessed.
func rpcError(err error) error {
	var rpcErr *rpc.JsonRpcError
	if !errors.As(err, &rpcErr) {
		return err
	}
	e := relayerrors.UpstreamRejected(rpcErr.Message, rpcErr.Code)
	e.Reason = transactionErrorReason(rpcErr.Data)
	e.Cause = err
	return e
}

// transactionErrorReason reads data.err of a preflight failure, which is
// either a bare variant name or an object keyed by it.
func transactionErrorReason(data any) string {
	m, ok := data.(map[string]any)
	if !ok {
		return ""
	}
	switch v := m["err"].(type) {
	case string:
		if relayerrors.IsTransactionErrorVariant(v) {
			return v
		}
	case map[string]any:
		for k := range v {
			if relayerrors.IsTransactionErrorVariant(k) {
				return k
			}
		}
	}
	return ""
}

// SignatureConfirmed reports whether signature reached confirmed commitment.
// A transaction that landed with an execution error is reported as an error.
func (c *Client) SignatureConfirmed(ctx context.Context, signature string) (bool, error) {
	status, err := c.c.GetSignatureStatus(ctx, signature)
	if err != nil {
		return false, err
	}
	if status == nil {
		return false, nil
	}
	if status.Err != nil {
		return false, relayerrors.UpstreamRejected(fmt.Sprintf("transaction %s failed: %v", signature, status.Err), 0)
	}
	if status.ConfirmationStatus == nil {
		return false, nil
	}
	switch *status.ConfirmationStatus {
	case rpc.CommitmentConfirmed, rpc.CommitmentFinalized:
		return true, nil
	default:
		return false, nil
	}
}

// DeriveAssociatedTokenAddress derives ATA PDA for owner+mint
func DeriveAssociatedTokenAddress(req models.DeriveATARequest) (string, error) {
	if err := ValidateAddress(req.Owner); err != nil {
		return "", fmt.Errorf("owner: %w", err)
	}
	if err := ValidateAddress(req.Mint); err != nil {
		return "", fmt.Errorf("mint: %w", err)
	}
	owner := common.PublicKeyFromString(req.Owner)
	mint := common.PublicKeyFromString(req.Mint)
	seeds := [][]byte{
		owner.Bytes(),
		common.TokenProgramID.Bytes(),
		mint.Bytes(),
	}
	pda, _, err := common.FindProgramAddress(seeds, common.SPLAssociatedTokenAccountProgramID)
	if err != nil {
		return "", err
	}
	return pda.ToBase58(), nil
}

// NewMessage compiles instructions into a legacy message paid by feePayer.
func NewMessage(feePayer, blockhash string, instructions []types.Instruction) types.Message {
	return types.NewMessage(types.NewMessageParam{
		FeePayer:        common.PublicKeyFromString(feePayer),
		RecentBlockhash: blockhash,
		Instructions:    instructions,
	})
}

var _ repositories.Ledger = (*Client)(nil)

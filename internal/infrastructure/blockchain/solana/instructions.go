package sdk

import (
	"encoding/binary"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	models "github.com/whiteelite/relay/internal/infrastructure/blockchain/solana/models"
)

// SPL token program instruction indexes
const (
	tokenInstructionTransfer        byte = 3
	tokenInstructionTransferChecked byte = 12
)

// TransferInstruction builds an SPL token Transfer (sender ATA -> destination
// ATA) authorised by the source owner.
func TransferInstruction(req models.TransferInstructionRequest) types.Instruction {
	data := make([]byte, 1+8)
	data[0] = tokenInstructionTransfer
	binary.LittleEndian.PutUint64(data[1:], req.Amount)

	return types.Instruction{
		ProgramID: common.TokenProgramID,
		Accounts: []types.AccountMeta{
			{PubKey: common.PublicKeyFromString(req.SourceATA), IsSigner: false, IsWritable: true},
			{PubKey: common.PublicKeyFromString(req.DestinationATA), IsSigner: false, IsWritable: true},
			{PubKey: common.PublicKeyFromString(req.Authority), IsSigner: true, IsWritable: false},
		},
		Data: data,
	}
}

// TransferCheckedInstruction performs SPL token transfer with decimals check
func TransferCheckedInstruction(req models.TransferCheckedInstructionRequest) types.Instruction {
	// token.TransferChecked instruction layout
	data := make([]byte, 1+8+1)
	data[0] = tokenInstructionTransferChecked
	binary.LittleEndian.PutUint64(data[1:9], req.Amount)
	data[9] = req.Decimals

	return types.Instruction{
		ProgramID: common.TokenProgramID,
		Accounts: []types.AccountMeta{
			{PubKey: common.PublicKeyFromString(req.SourceATA), IsSigner: false, IsWritable: true},
			{PubKey: common.PublicKeyFromString(req.Mint), IsSigner: false, IsWritable: false},
			{PubKey: common.PublicKeyFromString(req.DestinationATA), IsSigner: false, IsWritable: true},
			{PubKey: common.PublicKeyFromString(req.Authority), IsSigner: true, IsWritable: false},
		},
		Data: data,
	}
}

// CreateAssociatedTokenAccountInstruction creates the ATA of (owner, mint);
// the funder pays rent and must sign.
func CreateAssociatedTokenAccountInstruction(req models.CreateATAInstructionRequest) (types.Instruction, error) {
	ata, err := DeriveAssociatedTokenAddress(models.DeriveATARequest{Owner: req.Owner, Mint: req.Mint})
	if err != nil {
		return types.Instruction{}, err
	}

	return types.Instruction{
		ProgramID: common.SPLAssociatedTokenAccountProgramID,
		Accounts: []types.AccountMeta{
			{PubKey: common.PublicKeyFromString(req.Funder), IsSigner: true, IsWritable: true},
			{PubKey: common.PublicKeyFromString(ata), IsSigner: false, IsWritable: true},
			{PubKey: common.PublicKeyFromString(req.Owner), IsSigner: false, IsWritable: false},
			{PubKey: common.PublicKeyFromString(req.Mint), IsSigner: false, IsWritable: false},
			{PubKey: common.SystemProgramID, IsSigner: false, IsWritable: false},
			{PubKey: common.TokenProgramID, IsSigner: false, IsWritable: false},
			{PubKey: common.SysVarRentPubkey, IsSigner: false, IsWritable: false},
		},
		Data: []byte{},
	}, nil
}

// IsCreateAssociatedTokenAccount reports whether inst targets the ATA program.
func IsCreateAssociatedTokenAccount(inst types.Instruction) bool {
	return inst.ProgramID == common.SPLAssociatedTokenAccountProgramID
}

// CreatesAssociatedTokenAccount reports whether msg invokes the ATA program.
// Program ids always sit in the static account keys, so lookup-table
// accounts need no resolving.
func CreatesAssociatedTokenAccount(msg types.Message) bool {
	for _, ci := range msg.Instructions {
		if ci.ProgramIDIndex < len(msg.Accounts) && msg.Accounts[ci.ProgramIDIndex] == common.SPLAssociatedTokenAccountProgramID {
			return true
		}
	}
	return false
}

// DecompileInstructions expands a message's compiled instructions back into
// account metas. Accounts loaded through lookup tables are not resolved and
// make the instruction fail to decompile.
func DecompileInstructions(msg types.Message) ([]types.Instruction, error) {
	numAccounts := len(msg.Accounts)
	numSigners := int(msg.Header.NumRequireSignatures)
	writableSigners := numSigners - int(msg.Header.NumReadonlySignedAccounts)
	writableUnsigned := numAccounts - int(msg.Header.NumReadonlyUnsignedAccounts)

	isWritable := func(idx int) bool {
		if idx < numSigners {
			return idx < writableSigners
		}
		return idx < writableUnsigned
	}

	out := make([]types.Instruction, 0, len(msg.Instructions))
	for i, ci := range msg.Instructions {
		if ci.ProgramIDIndex >= numAccounts {
			return nil, fmt.Errorf("instruction %d: program index %d out of range", i, ci.ProgramIDIndex)
		}
		metas := make([]types.AccountMeta, 0, len(ci.Accounts))
		for _, idx := range ci.Accounts {
			if idx >= numAccounts {
				return nil, fmt.Errorf("instruction %d: account index %d out of range", i, idx)
			}
			metas = append(metas, types.AccountMeta{
				PubKey:     msg.Accounts[idx],
				IsSigner:   idx < numSigners,
				IsWritable: isWritable(idx),
			})
		}
		out = append(out, types.Instruction{
			ProgramID: msg.Accounts[ci.ProgramIDIndex],
			Accounts:  metas,
			Data:      ci.Data,
		})
	}
	return out, nil
}

// DecodeTokenTransfers parses SPL token transfers out of the given instructions
func DecodeTokenTransfers(instructions []types.Instruction) []*models.Transfer {
	var transfers []*models.Transfer
	for i, inst := range instructions {
		if inst.ProgramID != common.TokenProgramID {
			continue
		}
		if t := tryDecodeTransfer(inst); t != nil {
			t.Index = i
			transfers = append(transfers, t)
		}
	}
	return transfers
}

func tryDecodeTransfer(inst types.Instruction) *models.Transfer {
	if len(inst.Data) == 0 {
		return nil
	}
	switch inst.Data[0] {
	case tokenInstructionTransfer:
		if len(inst.Data) < 9 || len(inst.Accounts) < 3 {
			return nil
		}
		return &models.Transfer{
			Type:        "transfer",
			Source:      inst.Accounts[0].PubKey.ToBase58(),
			Destination: inst.Accounts[1].PubKey.ToBase58(),
			Authority:   inst.Accounts[2].PubKey.ToBase58(),
			Amount:      binary.LittleEndian.Uint64(inst.Data[1:9]),
		}
	case tokenInstructionTransferChecked:
		if len(inst.Data) < 10 || len(inst.Accounts) < 4 {
			return nil
		}
		return &models.Transfer{
			Type:        "transferChecked",
			Source:      inst.Accounts[0].PubKey.ToBase58(),
			Destination: inst.Accounts[2].PubKey.ToBase58(),
			Authority:   inst.Accounts[3].PubKey.ToBase58(),
			TokenMint:   inst.Accounts[1].PubKey.ToBase58(),
			Amount:      binary.LittleEndian.Uint64(inst.Data[1:9]),
		}
	default:
		return nil
	}
}

package mappers

import (
	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/whiteelite/relay/internal/domain/entities"
)

func ToInstruction(entity entities.Instruction) types.Instruction {
	accounts := make([]types.AccountMeta, 0, len(entity.Accounts))
	for _, a := range entity.Accounts {
		accounts = append(accounts, types.AccountMeta{
			PubKey:     common.PublicKeyFromString(a.PubKey),
			IsSigner:   a.IsSigner,
			IsWritable: a.IsWritable,
		})
	}
	return types.Instruction{
		ProgramID: common.PublicKeyFromString(entity.ProgramID),
		Accounts:  accounts,
		Data:      entity.Data,
	}
}

func FromInstruction(model types.Instruction) entities.Instruction {
	accounts := make([]entities.AccountMeta, 0, len(model.Accounts))
	for _, a := range model.Accounts {
		accounts = append(accounts, entities.AccountMeta{
			PubKey:     a.PubKey.ToBase58(),
			IsSigner:   a.IsSigner,
			IsWritable: a.IsWritable,
		})
	}
	return entities.Instruction{
		ProgramID: model.ProgramID.ToBase58(),
		Accounts:  accounts,
		Data:      model.Data,
	}
}

func FromInstructions(models []types.Instruction) []entities.Instruction {
	out := make([]entities.Instruction, 0, len(models))
	for _, m := range models {
		out = append(out, FromInstruction(m))
	}
	return out
}

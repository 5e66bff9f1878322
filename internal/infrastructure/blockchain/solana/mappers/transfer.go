package mappers

import (
	"github.com/whiteelite/relay/internal/domain/entities"
	"github.com/whiteelite/relay/internal/infrastructure/blockchain/solana/models"
)

func FromTransfers(transfers []*models.Transfer) []entities.TokenTransfer {
	out := make([]entities.TokenTransfer, 0, len(transfers))
	for _, t := range transfers {
		if t == nil {
			continue
		}
		out = append(out, entities.TokenTransfer{
			Type:        t.Type,
			Source:      t.Source,
			Destination: t.Destination,
			Authority:   t.Authority,
			Mint:        t.TokenMint,
			Amount:      t.Amount,
		})
	}
	return out
}

package api

import (
	"context"

	"github.com/whiteelite/relay/internal/application/gasless"
)

// GaslessService defines the methods needed by the API server
type GaslessService interface {
	Handle(ctx context.Context, a gasless.Action) (any, error)
	Status(ctx context.Context) (gasless.StatusResponse, error)
}

var _ GaslessService = (*gasless.Service)(nil)

package repository

import (
	"context"
	"sync"

	json "github.com/goccy/go-json"

	sdk "github.com/segmentio/kafka-go"
	mapper "github.com/whiteelite/relay/internal/infrastructure/messaging/kafka/repositories/mapper"
	shared "github.com/whiteelite/relay/pkg/shared/domain/entities"
)

// StartProducer writes every entity from bucket as a kind-tagged envelope
// until ctx is cancelled.
func StartProducer[T shared.Entity](
	ctx context.Context,
	wg *sync.WaitGroup,
	writer messageWriter,
	kind string,
	bucket <-chan *T,
	errors chan<- error,
) {
	defer wg.Done()

	for {
		var request *T
		select {
		case <-ctx.Done():
			return
		case request = <-bucket:
		}

		model, err := mapper.ToMessage(kind, request)
		if err != nil {
			report(ctx, errors, err)
			continue
		}

		serialized, err := json.Marshal(model)
		if err != nil {
			report(ctx, errors, err)
			continue
		}

		err = writer.WriteMessages(ctx, sdk.Message{
			Key:   []byte(model.Hash),
			Value: serialized,
		})
		if err != nil {
			report(ctx, errors, err)
		}
	}
}

// report forwards err unless the queue is shutting down.
func report(ctx context.Context, errors chan<- error, err error) {
	select {
	case errors <- err:
	case <-ctx.Done():
	}
}

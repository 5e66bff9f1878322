package repository

import (
	"context"
	"sync"

	json "github.com/goccy/go-json"

	sdk "github.com/segmentio/kafka-go"
	mapper "github.com/whiteelite/relay/internal/infrastructure/messaging/kafka/repositories/mapper"
	models "github.com/whiteelite/relay/internal/infrastructure/messaging/kafka/repositories/models"
	shared "github.com/whiteelite/relay/pkg/shared/domain/entities"
)

// StartConsumer fetches records into bucket and commits the records that
// come back on confirmed. Records that cannot be decoded are committed with
// a nil entity so they are not redelivered.
func StartConsumer[T shared.Entity](
	ctx context.Context,
	wg *sync.WaitGroup,
	reader messageReader,
	kind string,
	bucket chan<- *delivery[T],
	errors chan<- error,
	confirmed <-chan sdk.Message,
) {
	defer wg.Done()

	// Read messages from the reader
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			data, err := reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				report(ctx, errors, err)
				continue
			}

			d := &delivery[T]{record: data}
			model := new(models.Message)
			if err := json.Unmarshal(data.Value, model); err != nil {
				report(ctx, errors, err)
			} else if d.entity, err = mapper.FromMessage[T](kind, model); err != nil {
				report(ctx, errors, err)
			}

			select {
			case bucket <- d:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Confirm messages
	for {
		select {
		case <-ctx.Done():
			return
		case record := <-confirmed:
			if err := reader.CommitMessages(ctx, record); err != nil {
				report(ctx, errors, err)
			}
		}
	}
}

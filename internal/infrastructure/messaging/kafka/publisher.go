// Package kafka carries submission events over Kafka.
package kafka

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/whiteelite/relay/internal/domain/entities"
	domainrepos "github.com/whiteelite/relay/internal/domain/repositories"
	"github.com/whiteelite/relay/internal/infrastructure/messaging/kafka/repositories/repository"
)

// SubmissionKind tags submission event envelopes.
const SubmissionKind = "submission"

var ErrBufferFull = errors.New("submission event buffer is full")

// SubmissionPublisher hands events to the producer queue without waiting
// for Kafka.
type SubmissionPublisher struct {
	queue domainrepos.MessageQueueProducer[entities.SubmissionEvent]
}

func NewSubmissionPublisher(queue domainrepos.MessageQueueProducer[entities.SubmissionEvent]) *SubmissionPublisher {
	return &SubmissionPublisher{queue: queue}
}

// OpenSubmissionPublisher starts a producer queue on topic.
func OpenSubmissionPublisher(brokers []string, topic string, logger zerolog.Logger) (*SubmissionPublisher, error) {
	queue, err := repository.InitializeKafkaMessageQueue[entities.SubmissionEvent](repository.KafkaMessageQueueParams{
		Brokers: brokers,
		Topic:   topic,
		Kind:    SubmissionKind,
		Role:    repository.RoleProducer,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	return NewSubmissionPublisher(queue), nil
}

// OpenSubmissionConsumer joins group on topic and yields submission events.
func OpenSubmissionConsumer(brokers []string, topic, group string, logger zerolog.Logger) (domainrepos.MessageQueueConsumer[entities.SubmissionEvent], error) {
	queue, err := repository.InitializeKafkaMessageQueue[entities.SubmissionEvent](repository.KafkaMessageQueueParams{
		Brokers: brokers,
		Topic:   topic,
		Kind:    SubmissionKind,
		Role:    repository.RoleConsumer,
		GroupID: group,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	return queue, nil
}

func (p *SubmissionPublisher) Publish(ctx context.Context, event entities.SubmissionEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case p.queue.ToProduceBuffered() <- event:
		return nil
	default:
		return ErrBufferFull
	}
}

func (p *SubmissionPublisher) Close() {
	p.queue.Close()
}

// NopPublisher drops every event. It stands in when no brokers are
// configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, entities.SubmissionEvent) error { return nil }

func (NopPublisher) Close() {}

var (
	_ domainrepos.SubmissionPublisher = (*SubmissionPublisher)(nil)
	_ domainrepos.SubmissionPublisher = NopPublisher{}
)

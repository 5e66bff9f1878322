package repository

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	sdk "github.com/segmentio/kafka-go"

	domainrepos "github.com/whiteelite/relay/internal/domain/repositories"
	shared "github.com/whiteelite/relay/pkg/shared/domain/entities"
)

// Role selects which side of the queue is started.
type Role int

const (
	RoleProducer Role = 1 << iota
	RoleConsumer

	RoleBoth = RoleProducer | RoleConsumer
)

// KafkaMessageQueueParams implements repositories.MessageQueueParams
// and provides configuration for initializing KafkaMessageQueue.
type KafkaMessageQueueParams struct {
	// Required
	Brokers []string
	Topic   string
	// Kind tags every envelope; consumers drop envelopes of another kind.
	Kind string

	// Optional
	Role             Role
	GroupID          string
	ToProduceBufSize int
	ToConsumeBufSize int
	Logger           zerolog.Logger
}

func (p KafkaMessageQueueParams) Get() map[string]any {
	return map[string]any{
		"brokers":         p.Brokers,
		"topic":           p.Topic,
		"kind":            p.Kind,
		"role":            int(p.Role),
		"groupId":         p.GroupID,
		"toProduceBuffer": p.ToProduceBufSize,
		"toConsumeBuffer": p.ToConsumeBufSize,
	}
}

// messageWriter and messageReader are the parts of kafka.Writer and
// kafka.Reader the workers use.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...sdk.Message) error
	Close() error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (sdk.Message, error)
	CommitMessages(ctx context.Context, msgs ...sdk.Message) error
	Close() error
}

// KafkaMessageQueue implements domain MessageQueue interfaces on top of the
// StartProducer/StartConsumer workers.
type KafkaMessageQueue[T shared.Entity] struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
	logger zerolog.Logger

	reader messageReader
	writer messageWriter

	// External facing channels
	toProduce chan T
	toConsume chan T

	// Internal bridges
	prodBucket    chan *T
	consBucket    chan *delivery[T]
	errors        chan error
	confirmations chan sdk.Message
}

// delivery pairs a decoded entity with the record to commit once it has been
// handed to the consumer.
type delivery[T shared.Entity] struct {
	entity *T
	record sdk.Message
}

// InitializeKafkaMessageQueue creates a KafkaMessageQueue using params.
func InitializeKafkaMessageQueue[T shared.Entity](params domainrepos.MessageQueueParams) (*KafkaMessageQueue[T], error) {
	typed, ok := params.(KafkaMessageQueueParams)
	if !ok {
		return nil, errors.New("kafka message queue requires KafkaMessageQueueParams")
	}
	if err := ValidateKafkaParams(typed); err != nil {
		return nil, err
	}

	var writer messageWriter
	if typed.Role&RoleProducer != 0 {
		writer = &sdk.Writer{
			Addr:         sdk.TCP(typed.Brokers...),
			Topic:        typed.Topic,
			RequiredAcks: sdk.RequireAll,
			Balancer:     &sdk.Hash{},
		}
	}

	var reader messageReader
	if typed.Role&RoleConsumer != 0 {
		reader = sdk.NewReader(sdk.ReaderConfig{
			Brokers: typed.Brokers,
			Topic:   typed.Topic,
			GroupID: typed.GroupID,
		})
	}

	return newQueue[T](typed, writer, reader), nil
}

func newQueue[T shared.Entity](params KafkaMessageQueueParams, writer messageWriter, reader messageReader) *KafkaMessageQueue[T] {
	// defaults
	if params.ToProduceBufSize <= 0 {
		params.ToProduceBufSize = 1024
	}
	if params.ToConsumeBufSize <= 0 {
		params.ToConsumeBufSize = 1024
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &KafkaMessageQueue[T]{
		ctx:           ctx,
		cancel:        cancel,
		logger:        params.Logger.With().Str("component", "kafka").Str("topic", params.Topic).Logger(),
		reader:        reader,
		writer:        writer,
		toProduce:     make(chan T, params.ToProduceBufSize),
		toConsume:     make(chan T, params.ToConsumeBufSize),
		prodBucket:    make(chan *T, params.ToProduceBufSize),
		consBucket:    make(chan *delivery[T], params.ToConsumeBufSize),
		errors:        make(chan error, 16),
		confirmations: make(chan sdk.Message, 16),
	}

	q.startWorkers(params.Kind)
	return q
}

func (q *KafkaMessageQueue[T]) startWorkers(kind string) {
	// Errors are never fatal to the workers; they are logged here.
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for {
			select {
			case <-q.ctx.Done():
				return
			case err := <-q.errors:
				q.logger.Warn().Err(err).Msg("Kafka worker error")
			}
		}
	}()

	if q.writer != nil {
		q.wg.Add(1)
		go StartProducer[T](q.ctx, &q.wg, q.writer, kind, q.prodBucket, q.errors)

		// Bridge external toProduce -> prodBucket
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for {
				select {
				case <-q.ctx.Done():
					return
				case e := <-q.toProduce:
					entity := e
					select {
					case q.prodBucket <- &entity:
					case <-q.ctx.Done():
						return
					}
				}
			}
		}()
	}

	if q.reader != nil {
		q.wg.Add(1)
		go StartConsumer[T](q.ctx, &q.wg, q.reader, kind, q.consBucket, q.errors, q.confirmations)

		// Bridge consBucket -> toConsume, then confirm for commit
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for {
				select {
				case <-q.ctx.Done():
					return
				case d := <-q.consBucket:
					if d.entity != nil {
						select {
						case q.toConsume <- *d.entity:
						case <-q.ctx.Done():
							return
						}
					}
					select {
					case q.confirmations <- d.record:
					case <-q.ctx.Done():
						return
					}
				}
			}
		}()
	}
}

// ToConsumeBuffered exposes the consumer channel of entities. It is closed
// by Close.
func (q *KafkaMessageQueue[T]) ToConsumeBuffered() <-chan T {
	return q.toConsume
}

// ToProduceBuffered exposes the producer channel of entities. Senders must
// stop sending before Close.
func (q *KafkaMessageQueue[T]) ToProduceBuffered() chan<- T {
	return q.toProduce
}

// Close stops the workers, flushing nothing that is still buffered, and
// releases the reader and writer.
func (q *KafkaMessageQueue[T]) Close() {
	q.once.Do(func() {
		q.cancel()
		q.wg.Wait()

		if q.reader != nil {
			if err := q.reader.Close(); err != nil {
				q.logger.Warn().Err(err).Msg("Failed to close kafka reader")
			}
		}
		if q.writer != nil {
			if err := q.writer.Close(); err != nil {
				q.logger.Warn().Err(err).Msg("Failed to close kafka writer")
			}
		}

		close(q.toConsume)
	})
}

// Compile-time assertions to ensure interface conformance
var (
	_ domainrepos.MessageQueueConsumer[shared.Entity] = (*KafkaMessageQueue[shared.Entity])(nil)
	_ domainrepos.MessageQueueProducer[shared.Entity] = (*KafkaMessageQueue[shared.Entity])(nil)
	_ domainrepos.MessageQueue[shared.Entity]         = (*KafkaMessageQueue[shared.Entity])(nil)
)

// ValidateKafkaParams ensures required params are set.
func ValidateKafkaParams(p KafkaMessageQueueParams) error {
	if len(p.Brokers) == 0 {
		return errors.New("kafka brokers are required")
	}
	if p.Topic == "" {
		return errors.New("kafka topic is required")
	}
	if p.Kind == "" {
		return errors.New("kafka message kind is required")
	}
	if p.Role&RoleBoth == 0 {
		return errors.New("kafka queue role is required")
	}
	if p.Role&RoleConsumer != 0 && p.GroupID == "" {
		return errors.New("kafka consumer group is required")
	}
	return nil
}

package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	sdk "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whiteelite/relay/internal/domain/entities"
	"github.com/whiteelite/relay/internal/infrastructure/messaging/kafka/repositories/mapper"
	"github.com/whiteelite/relay/internal/infrastructure/messaging/kafka/repositories/models"
)

const kind = "submission"

type fakeWriter struct {
	mu      sync.Mutex
	written []sdk.Message
	closed  bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...sdk.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.written = append(w.written, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *fakeWriter) messages() []sdk.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]sdk.Message(nil), w.written...)
}

type fakeReader struct {
	records chan sdk.Message

	mu        sync.Mutex
	committed []int64
}

func (r *fakeReader) FetchMessage(ctx context.Context) (sdk.Message, error) {
	select {
	case m := <-r.records:
		return m, nil
	case <-ctx.Done():
		return sdk.Message{}, ctx.Err()
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...sdk.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func testParams(t *testing.T) KafkaMessageQueueParams {
	return KafkaMessageQueueParams{
		Brokers: []string{"localhost:9092"},
		Topic:   "gasless-submissions",
		Kind:    kind,
		GroupID: "gasless-audit",
		Logger:  zerolog.New(zerolog.NewTestWriter(t)),
	}
}

func TestProducerWritesEnvelopes(t *testing.T) {
	writer := &fakeWriter{}
	q := newQueue[entities.SubmissionEvent](testParams(t), writer, nil)

	q.ToProduceBuffered() <- entities.SubmissionEvent{Action: "broadcast", Outcome: entities.OutcomeConfirmed}

	require.Eventually(t, func() bool { return len(writer.messages()) == 1 }, time.Second, 5*time.Millisecond)
	q.Close()
	assert.True(t, writer.closed)

	written := writer.messages()[0]
	var envelope models.Message
	require.NoError(t, json.Unmarshal(written.Value, &envelope))
	assert.Equal(t, kind, envelope.Kind)
	assert.Equal(t, envelope.Hash, string(written.Key))

	event, err := mapper.FromMessage[entities.SubmissionEvent](kind, &envelope)
	require.NoError(t, err)
	assert.Equal(t, entities.OutcomeConfirmed, event.Outcome)
}

func TestConsumerDeliversAndCommits(t *testing.T) {
	reader := &fakeReader{records: make(chan sdk.Message, 4)}

	good, err := mapper.ToMessage(kind, &entities.SubmissionEvent{Action: "signAndSend", Outcome: entities.OutcomeAlreadyProcessed})
	require.NoError(t, err)
	value, err := json.Marshal(good)
	require.NoError(t, err)

	reader.records <- sdk.Message{Offset: 1, Value: []byte("not json")}
	reader.records <- sdk.Message{Offset: 2, Value: value}

	q := newQueue[entities.SubmissionEvent](testParams(t), nil, reader)
	defer q.Close()

	select {
	case event := <-q.ToConsumeBuffered():
		assert.Equal(t, "signAndSend", event.Action)
		assert.Equal(t, entities.OutcomeAlreadyProcessed, event.Outcome)
	case <-time.After(time.Second):
		t.Fatal("no event consumed")
	}

	require.Eventually(t, func() bool { return len(reader.commits()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []int64{1, 2}, reader.commits())
}

func TestCloseEndsConsumption(t *testing.T) {
	reader := &fakeReader{records: make(chan sdk.Message)}
	q := newQueue[entities.SubmissionEvent](testParams(t), nil, reader)

	q.Close()
	q.Close()

	_, ok := <-q.ToConsumeBuffered()
	assert.False(t, ok)
}

func TestValidateKafkaParams(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(p *KafkaMessageQueueParams)
		wantErr string
	}{
		{"valid producer", func(p *KafkaMessageQueueParams) { p.Role = RoleProducer; p.GroupID = "" }, ""},
		{"valid consumer", func(p *KafkaMessageQueueParams) { p.Role = RoleConsumer }, ""},
		{"no brokers", func(p *KafkaMessageQueueParams) { p.Role = RoleProducer; p.Brokers = nil }, "brokers"},
		{"no topic", func(p *KafkaMessageQueueParams) { p.Role = RoleProducer; p.Topic = "" }, "topic"},
		{"no kind", func(p *KafkaMessageQueueParams) { p.Role = RoleProducer; p.Kind = "" }, "kind"},
		{"no role", func(p *KafkaMessageQueueParams) {}, "role"},
		{"consumer without group", func(p *KafkaMessageQueueParams) { p.Role = RoleBoth; p.GroupID = "" }, "group"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := testParams(t)
			tc.mutate(&p)
			err := ValidateKafkaParams(p)
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestParamsGet(t *testing.T) {
	p := testParams(t)
	p.Role = RoleProducer

	got := p.Get()
	assert.Equal(t, []string{"localhost:9092"}, got["brokers"])
	assert.Equal(t, "gasless-submissions", got["topic"])
	assert.Equal(t, int(RoleProducer), got["role"])
}

func TestInitializeRejectsForeignParams(t *testing.T) {
	_, err := InitializeKafkaMessageQueue[entities.SubmissionEvent](otherParams{})
	assert.Error(t, err)
}

type otherParams struct{}

func (otherParams) Get() map[string]any { return nil }

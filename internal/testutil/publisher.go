package testutil

import (
	"context"
	"sync"

	"github.com/whiteelite/relay/internal/domain/entities"
)

// RecordingPublisher keeps every published event in memory.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []entities.SubmissionEvent
	Err    error
}

func (p *RecordingPublisher) Publish(_ context.Context, event entities.SubmissionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *RecordingPublisher) Events() []entities.SubmissionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]entities.SubmissionEvent(nil), p.events...)
}

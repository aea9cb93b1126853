package service

import (
	"context"
	"sync"
	"time"

	"ticketing/internal/models"
)

type recordingPublisher[E models.Event] struct {
	mu     sync.Mutex
	events []E
	err    error
}

func (p *recordingPublisher[E]) Publish(ctx context.Context, event E) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher[E]) published() []E {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]E(nil), p.events...)
}

type fakeScheduler struct {
	mu        sync.Mutex
	scheduled map[string]time.Time
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{scheduled: make(map[string]time.Time)}
}

func (f *fakeScheduler) ScheduleExpiration(ctx context.Context, orderID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled[orderID] = at
	return nil
}

func (f *fakeScheduler) RemoveExpiration(ctx context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.scheduled, orderID)
	return nil
}

func (f *fakeScheduler) has(orderID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.scheduled[orderID]
	return ok
}

package testutil

import (
	"context"
	"sync"

	"github.com/trailhead-stays/service-booking/internal/platform/kafka"
)

// PublishedEvent is one call to RecordingPublisher.PublishEvent.
type PublishedEvent struct {
	Topic string
	Key   string
	Event kafka.CloudEvent
}

// RecordingPublisher is a kafka.Publisher that keeps every event in memory.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []PublishedEvent
	// Err, when set, is returned from every publish.
	Err error
}

// PublishEvent implements kafka.Publisher.
func (p *RecordingPublisher) PublishEvent(_ context.Context, topic, key string, event kafka.CloudEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.events = append(p.events, PublishedEvent{Topic: topic, Key: key, Event: event})
	return nil
}

// Close implements kafka.Publisher.
func (p *RecordingPublisher) Close() error { return nil }

// Types returns the event types published so far, in order.
func (p *RecordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Event.Type
	}
	return out
}

// Events returns a copy of the published events.
func (p *RecordingPublisher) Events() []PublishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PublishedEvent(nil), p.events...)
}

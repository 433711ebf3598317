package service

import (
	"context"
	"sync"
	"time"

	"github.com/betlink/affiliate-engine/internal/logger"
	"github.com/betlink/affiliate-engine/internal/queue"
)

// EventPublisher is the outbound event boundary. Publishing is
// fire-and-forget: a failed publish is logged and never rolls back
// financial state already committed.
type EventPublisher interface {
	Publish(ctx context.Context, eventType, resourceID string, detail map[string]interface{})
}

// QueuePublisher pushes domain events onto the task queue for downstream
// notification and audit consumers.
type QueuePublisher struct {
	client *queue.Client
}

// NewQueuePublisher creates a queue-backed publisher.
func NewQueuePublisher(client *queue.Client) *QueuePublisher {
	return &QueuePublisher{client: client}
}

// Publish enqueues one domain event.
func (p *QueuePublisher) Publish(ctx context.Context, eventType, resourceID string, detail map[string]interface{}) {
	if p == nil || p.client == nil {
		return
	}
	payload := queue.DomainEventPayload{
		EventType:  eventType,
		ResourceID: resourceID,
		OccurredAt: time.Now().Unix(),
		Detail:     detail,
	}
	if err := p.client.EnqueueDomainEvent(payload); err != nil {
		logger.Warnw("domain event enqueue failed",
			"event_type", eventType,
			"resource_id", resourceID,
			"error", err)
	}
}

// RecordedEvent is one event captured by the in-memory recorder.
type RecordedEvent struct {
	EventType  string
	ResourceID string
	Detail     map[string]interface{}
}

// MemoryEventRecorder captures published events in memory so tests can
// assert exactly which events a run queued.
type MemoryEventRecorder struct {
	mu     sync.Mutex
	events []RecordedEvent
}

// NewMemoryEventRecorder creates an empty recorder.
func NewMemoryEventRecorder() *MemoryEventRecorder {
	return &MemoryEventRecorder{}
}

// Publish records the event.
func (r *MemoryEventRecorder) Publish(_ context.Context, eventType, resourceID string, detail map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, RecordedEvent{
		EventType:  eventType,
		ResourceID: resourceID,
		Detail:     detail,
	})
}

// Events returns a copy of everything recorded so far.
func (r *MemoryEventRecorder) Events() []RecordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RecordedEvent, len(r.events))
	copy(out, r.events)
	return out
}

// CountByType counts recorded events of one type.
func (r *MemoryEventRecorder) CountByType(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, ev := range r.events {
		if ev.EventType == eventType {
			count++
		}
	}
	return count
}

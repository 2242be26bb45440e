package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Event struct {
	ID         uuid.UUID  `json:"id"`
	ActorID    *uuid.UUID `json:"actor_id,omitempty"`
	Action     string     `json:"action"`
	Entity     string     `json:"entity"`
	EntityID   uuid.UUID  `json:"entity_id"`
	Metadata   any        `json:"metadata,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// Sink receives every dispatched event. A failing sink never affects the
// others.
type Sink interface {
	Name() string
	Publish(ctx context.Context, ev Event) error
}

// Publisher is what use cases depend on.
type Publisher interface {
	Dispatch(ev Event)
}

type Dispatcher struct {
	sinks []Sink
	log   *zap.Logger
	queue chan Event

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

const (
	queueSize   = 100
	sinkTimeout = 5 * time.Second
)

func NewDispatcher(log *zap.Logger, sinks ...Sink) *Dispatcher {
	d := &Dispatcher{
		sinks: sinks,
		log:   log,
		queue: make(chan Event, queueSize),
		done:  make(chan struct{}),
	}

	go d.worker()
	return d
}

func (d *Dispatcher) worker() {
	defer close(d.done)

	for ev := range d.queue {
		for _, s := range d.sinks {
			ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
			if err := s.Publish(ctx, ev); err != nil {
				d.log.Error("event sink failed",
					zap.String("sink", s.Name()),
					zap.String("action", ev.Action),
					zap.String("entity_id", ev.EntityID.String()),
					zap.Error(err),
				)
			}
			cancel()
		}
	}
}

// Dispatch never blocks the caller; a full queue drops the event.
func (d *Dispatcher) Dispatch(ev Event) {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.log.Warn("dispatcher closed, dropping event", zap.String("action", ev.Action))
		return
	}

	select {
	case d.queue <- ev:
	default:
		d.log.Warn("event queue full, dropping event", zap.String("action", ev.Action))
	}
}

// Close drains the queue and waits for the worker.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	<-d.done
}

// Package notify delivers user-facing messages about storefront operations.
package notify

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Kind classifies a notification.
type Kind string

const (
	KindError   Kind = "error"
	KindSuccess Kind = "success"
	KindWarning Kind = "warning"
)

// Notification is a single message shown to the user.
type Notification struct {
	ID        string
	Message   string
	Kind      Kind
	CreatedAt time.Time
}

// Sink receives notifications.
type Sink interface {
	Notify(ctx context.Context, message string, kind Kind)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, message string, kind Kind)

// Notify calls f.
func (f SinkFunc) Notify(ctx context.Context, message string, kind Kind) {
	f(ctx, message, kind)
}

// Fanout forwards every notification to each sink in order.
func Fanout(sinks ...Sink) Sink {
	return SinkFunc(func(ctx context.Context, message string, kind Kind) {
		for _, s := range sinks {
			s.Notify(ctx, message, kind)
		}
	})
}

// LogSink writes notifications to the context logger.
type LogSink struct{}

// Notify logs the message at a level matching its kind.
func (LogSink) Notify(ctx context.Context, message string, kind Kind) {
	lg := zctx.From(ctx)
	fields := []zap.Field{zap.String("kind", string(kind))}
	switch kind {
	case KindError:
		lg.Error(message, fields...)
	case KindWarning:
		lg.Warn(message, fields...)
	default:
		lg.Info(message, fields...)
	}
}

// Recorder keeps recent notifications in memory until they expire.
// It is safe for concurrent use.
type Recorder struct {
	ttl      time.Duration
	capacity int
	now      func() time.Time

	mu      sync.Mutex
	entries []Notification
}

// NewRecorder creates a Recorder holding at most capacity entries, each for ttl.
func NewRecorder(ttl time.Duration, capacity int) *Recorder {
	return &Recorder{
		ttl:      ttl,
		capacity: max(capacity, 1),
		now:      time.Now,
	}
}

// Notify records a notification, evicting the oldest entry when full.
func (r *Recorder) Notify(_ context.Context, message string, kind Kind) {
	n := Notification{
		ID:        uuid.New().String(),
		Message:   message,
		Kind:      kind,
		CreatedAt: r.now(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.prune(n.CreatedAt)
	if len(r.entries) >= r.capacity {
		r.entries = slices.Delete(r.entries, 0, len(r.entries)-r.capacity+1)
	}
	r.entries = append(r.entries, n)
}

// Recent returns the unexpired notifications, oldest first.
func (r *Recorder) Recent() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prune(r.now())
	return slices.Clone(r.entries)
}

// Dismiss removes the notification with the given id. It reports whether
// one was removed.
func (r *Recorder) Dismiss(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	before := len(r.entries)
	r.entries = slices.DeleteFunc(r.entries, func(n Notification) bool {
		return n.ID == id
	})
	return len(r.entries) != before
}

// prune drops expired entries. The caller must hold r.mu.
func (r *Recorder) prune(now time.Time) {
	r.entries = slices.DeleteFunc(r.entries, func(n Notification) bool {
		return now.Sub(n.CreatedAt) >= r.ttl
	})
}

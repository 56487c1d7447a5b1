package notifier

import (
	"context"
	"sync"

	"github.com/gather-events/events-api/internal/ports/out/notifier"
)

// Recorder keeps every published notification in memory.
// It is safe for concurrent use.
type Recorder struct {
	mu  sync.Mutex
	got []notifier.Notification
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Publish(ctx context.Context, n notifier.Notification) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
	return nil
}

// Notifications returns a snapshot in publish order.
func (r *Recorder) Notifications() []notifier.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notifier.Notification, len(r.got))
	copy(out, r.got)
	return out
}

// Kinds returns the kinds of the recorded notifications in publish order.
func (r *Recorder) Kinds() []notifier.Kind {
	ns := r.Notifications()
	out := make([]notifier.Kind, 0, len(ns))
	for _, n := range ns {
		out = append(out, n.Kind)
	}
	return out
}

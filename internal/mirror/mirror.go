// Package mirror keeps local, read-only copies of remote collections for
// the active session. Every push rebuilds the whole list from the
// snapshot; the mirror never applies partial diffs and is never the
// source of truth.
package mirror

import (
	"context"
	"sync"
	"time"

	"github.com/oncontrol/platform/internal/backend"
	"github.com/oncontrol/platform/internal/observability/metrics"
	"github.com/oncontrol/platform/pkg/logging"
)

// DecodeFunc turns one raw document into a typed record.
type DecodeFunc[T any] func(id string, data map[string]any) (T, error)

// List mirrors one remote collection into an ordered in-memory list.
type List[T any] struct {
	collection string
	metrics    *metrics.SyncMetrics

	mu     sync.RWMutex
	items  []T
	handle backend.Handle
	stop   sync.Once
}

// Watch opens a live subscription on path. notify (optional) runs after
// every applied snapshot. Documents that fail to decode are logged and
// skipped rather than poisoning the rest of the snapshot.
func Watch[T any](ctx context.Context, client *backend.Client, path, collection string,
	decode DecodeFunc[T], notify func(), logger *logging.Logger, m *metrics.SyncMetrics) (*List[T], error) {
	if logger == nil {
		logger = logging.Default()
	}
	l := &List[T]{collection: collection, metrics: m}

	handle, err := client.Watcher.Watch(ctx, path, func(docs []backend.Document) {
		start := time.Now()
		items := make([]T, 0, len(docs))
		for _, doc := range docs {
			item, err := decode(doc.ID, doc.Data)
			if err != nil {
				logger.Error("decode document", "collection", collection, "id", doc.ID, "error", err)
				continue
			}
			items = append(items, item)
		}
		l.mu.Lock()
		l.items = items
		l.mu.Unlock()
		m.ObserveSnapshot(collection, time.Since(start).Seconds())
		if notify != nil {
			notify()
		}
	})
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.handle = handle
	l.mu.Unlock()
	m.SubscriptionStarted()
	return l, nil
}

// Items returns a copy of the current list.
func (l *List[T]) Items() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]T, len(l.items))
	copy(out, l.items)
	return out
}

// Stop cancels the subscription. Safe to call repeatedly; a stopped list
// is never reactivated.
func (l *List[T]) Stop() {
	l.stop.Do(func() {
		l.mu.RLock()
		handle := l.handle
		l.mu.RUnlock()
		if handle != nil {
			handle.Stop()
		}
		l.metrics.SubscriptionStopped()
	})
}

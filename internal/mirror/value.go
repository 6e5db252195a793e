package mirror

import (
	"context"
	"sync"
	"time"

	"github.com/oncontrol/platform/internal/backend"
	"github.com/oncontrol/platform/internal/observability/metrics"
	"github.com/oncontrol/platform/pkg/logging"
)

// Value is the single-document mirror variant, used for the thresholds
// settings singleton. When the document exists in a push the local value
// is replaced wholesale; when it does not, the value stays unset and
// callers fall back to built-in defaults.
type Value[T any] struct {
	collection string
	metrics    *metrics.SyncMetrics

	mu     sync.RWMutex
	value  *T
	handle backend.Handle
	stop   sync.Once
}

func WatchValue[T any](ctx context.Context, client *backend.Client, path, docID, collection string,
	decode func(data map[string]any) (T, error), notify func(), logger *logging.Logger, m *metrics.SyncMetrics) (*Value[T], error) {
	if logger == nil {
		logger = logging.Default()
	}
	v := &Value[T]{collection: collection, metrics: m}

	handle, err := client.Watcher.Watch(ctx, path, func(docs []backend.Document) {
		start := time.Now()
		for _, doc := range docs {
			if doc.ID != docID {
				continue
			}
			decoded, err := decode(doc.Data)
			if err != nil {
				logger.Error("decode document", "collection", collection, "id", docID, "error", err)
				return
			}
			v.mu.Lock()
			v.value = &decoded
			v.mu.Unlock()
			m.ObserveSnapshot(collection, time.Since(start).Seconds())
			if notify != nil {
				notify()
			}
			return
		}
		// document absent: leave the local value as-is
	})
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	v.handle = handle
	v.mu.Unlock()
	m.SubscriptionStarted()
	return v, nil
}

// Get returns a copy of the current value, or nil when unset.
func (v *Value[T]) Get() *T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.value == nil {
		return nil
	}
	cp := *v.value
	return &cp
}

// Stop cancels the subscription; idempotent.
func (v *Value[T]) Stop() {
	v.stop.Do(func() {
		v.mu.RLock()
		handle := v.handle
		v.mu.RUnlock()
		if handle != nil {
			handle.Stop()
		}
		v.metrics.SubscriptionStopped()
	})
}

package backend

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/oncontrol/platform/pkg/logging"
)

// RedisNotifier implements the live-query push contract on Redis pub/sub.
// Writers publish an invalidation per collection path; each watcher
// re-reads the full snapshot from the store and hands it to the callback.
// Delivery order between collections is whatever Redis gives us, which is
// all the contract promises.
type RedisNotifier struct {
	client *redis.Client
	store  Store
	logger *logging.Logger
}

func NewRedisNotifier(client *redis.Client, store Store, logger *logging.Logger) *RedisNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisNotifier{
		client: client,
		store:  store,
		logger: logger.Component("notifier"),
	}
}

// SetStore installs the snapshot source after construction. It breaks
// the cycle between the doc store (which publishes through the notifier)
// and the notifier (which re-reads snapshots through the store).
func (n *RedisNotifier) SetStore(store Store) {
	n.store = store
}

func channelFor(path string) string {
	return "sync:" + path
}

// Publish is best effort: a lost invalidation leaves mirrors stale until
// the next write, it never fails the mutation that triggered it.
func (n *RedisNotifier) Publish(ctx context.Context, path string) {
	if err := n.client.Publish(ctx, channelFor(path), "1").Err(); err != nil {
		n.logger.Warn("publish change notification failed", "path", path, "error", err)
	}
}

func (n *RedisNotifier) Watch(ctx context.Context, path string, fn func([]Document)) (Handle, error) {
	sub := n.client.Subscribe(ctx, channelFor(path))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("%w: subscribe %s: %v", ErrUnavailable, path, err)
	}

	wctx, cancel := context.WithCancel(ctx)
	h := &watchHandle{cancel: cancel, close: func() { _ = sub.Close() }}

	go func() {
		deliver := func() {
			docs, err := n.store.GetAll(wctx, path)
			if err != nil {
				if wctx.Err() == nil {
					n.logger.Error("snapshot reload failed", "path", path, "error", err)
				}
				return
			}
			fn(docs)
		}
		// initial snapshot, then one reload per invalidation
		deliver()
		ch := sub.Channel()
		for {
			select {
			case <-wctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				deliver()
			}
		}
	}()

	return h, nil
}

type watchHandle struct {
	once   sync.Once
	cancel context.CancelFunc
	close  func()
}

func (h *watchHandle) Stop() {
	h.once.Do(func() {
		h.cancel()
		if h.close != nil {
			h.close()
		}
	})
}

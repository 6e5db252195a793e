package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process Store+Watcher used by tests and demo mode.
// Documents round-trip through JSON so values come back exactly the way
// the Postgres JSONB store returns them (numbers as float64, times as
// RFC3339 strings), and watchers get their snapshots synchronously.
type Memory struct {
	mu       sync.Mutex
	docs     map[string]map[string][]byte
	order    map[string][]string
	watchers map[string]map[int]func([]Document)
	nextID   int
}

func NewMemory() *Memory {
	return &Memory{
		docs:     make(map[string]map[string][]byte),
		order:    make(map[string][]string),
		watchers: make(map[string]map[int]func([]Document)),
	}
}

func (m *Memory) Add(ctx context.Context, path string, data map[string]any) (string, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	id := uuid.NewString()

	m.mu.Lock()
	if m.docs[path] == nil {
		m.docs[path] = make(map[string][]byte)
	}
	m.docs[path][id] = payload
	m.order[path] = append(m.order[path], id)
	m.mu.Unlock()

	m.broadcast(path)
	return id, nil
}

func (m *Memory) Set(ctx context.Context, path, id string, data map[string]any, merge bool) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	m.mu.Lock()
	if m.docs[path] == nil {
		m.docs[path] = make(map[string][]byte)
	}
	existing, ok := m.docs[path][id]
	if !ok {
		m.order[path] = append(m.order[path], id)
	}
	if merge && ok {
		payload = mergeJSON(existing, payload)
	}
	m.docs[path][id] = payload
	m.mu.Unlock()

	m.broadcast(path)
	return nil
}

func (m *Memory) Update(ctx context.Context, path, id string, patch map[string]any) error {
	payload, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("encode patch: %w", err)
	}

	m.mu.Lock()
	existing, ok := m.docs[path][id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("update %s/%s: %w", path, id, ErrNotFound)
	}
	m.docs[path][id] = mergeJSON(existing, payload)
	m.mu.Unlock()

	m.broadcast(path)
	return nil
}

func (m *Memory) Delete(ctx context.Context, path, id string) error {
	m.mu.Lock()
	delete(m.docs[path], id)
	order := m.order[path][:0]
	for _, existing := range m.order[path] {
		if existing != id {
			order = append(order, existing)
		}
	}
	m.order[path] = order
	m.mu.Unlock()

	m.broadcast(path)
	return nil
}

func (m *Memory) Get(ctx context.Context, path, id string) (*Document, error) {
	m.mu.Lock()
	payload, ok := m.docs[path][id]
	m.mu.Unlock()
	if !ok {
		return nil, nil
	}
	doc := Document{ID: id}
	if err := json.Unmarshal(payload, &doc.Data); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (m *Memory) GetAll(ctx context.Context, path string) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked(path)
}

// Watch delivers the current snapshot immediately and then synchronously
// on every write to the path.
func (m *Memory) Watch(ctx context.Context, path string, fn func([]Document)) (Handle, error) {
	m.mu.Lock()
	if m.watchers[path] == nil {
		m.watchers[path] = make(map[int]func([]Document))
	}
	id := m.nextID
	m.nextID++
	m.watchers[path][id] = fn
	snapshot, err := m.snapshotLocked(path)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	fn(snapshot)

	h := &memoryHandle{}
	h.stop = func() {
		m.mu.Lock()
		delete(m.watchers[path], id)
		m.mu.Unlock()
	}
	return h, nil
}

// Publish satisfies Publisher; memory watchers are notified by the writes
// themselves so there is nothing to do.
func (m *Memory) Publish(ctx context.Context, path string) {}

func (m *Memory) broadcast(path string) {
	m.mu.Lock()
	snapshot, err := m.snapshotLocked(path)
	fns := make([]func([]Document), 0, len(m.watchers[path]))
	for _, fn := range m.watchers[path] {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	if err != nil {
		return
	}
	for _, fn := range fns {
		fn(snapshot)
	}
}

func (m *Memory) snapshotLocked(path string) ([]Document, error) {
	out := []Document{}
	for _, id := range m.order[path] {
		payload, ok := m.docs[path][id]
		if !ok {
			continue
		}
		doc := Document{ID: id}
		if err := json.Unmarshal(payload, &doc.Data); err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

type memoryHandle struct {
	once sync.Once
	stop func()
}

func (h *memoryHandle) Stop() {
	h.once.Do(h.stop)
}

func mergeJSON(existing, patch []byte) []byte {
	var base, overlay map[string]any
	if err := json.Unmarshal(existing, &base); err != nil {
		base = map[string]any{}
	}
	if err := json.Unmarshal(patch, &overlay); err != nil {
		return existing
	}
	for k, v := range overlay {
		base[k] = v
	}
	merged, err := json.Marshal(base)
	if err != nil {
		return existing
	}
	return merged
}

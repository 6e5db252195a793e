package mirror

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/oncontrol/platform/internal/backend"
	"github.com/oncontrol/platform/internal/observability/metrics"
	"github.com/oncontrol/platform/pkg/logging"
)

type record struct {
	ID   string
	Name string
}

func decodeRecord(id string, data map[string]any) (record, error) {
	name, _ := data["name"].(string)
	if name == "poison" {
		return record{}, errors.New("bad record")
	}
	return record{ID: id, Name: name}, nil
}

func testDeps(t *testing.T) (*backend.Client, *backend.Memory, *metrics.SyncMetrics) {
	t.Helper()
	mem := backend.NewMemory()
	return backend.NewClient(mem, mem, "oncontrol-app"), mem, metrics.NewSyncMetrics(prometheus.NewRegistry())
}

func TestListRebuildsOnEveryPush(t *testing.T) {
	client, mem, m := testDeps(t)
	path := backend.UserCollectionPath("oncontrol-app", "u1", backend.CollectionPatients)
	ctx := context.Background()

	notified := 0
	l, err := Watch(ctx, client, path, backend.CollectionPatients, decodeRecord,
		func() { notified++ }, logging.Default(), m)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer l.Stop()

	if len(l.Items()) != 0 || notified != 1 {
		t.Fatalf("expected initial empty snapshot, items=%v notified=%d", l.Items(), notified)
	}

	id, _ := mem.Add(ctx, path, map[string]any{"name": "Juan"})
	if items := l.Items(); len(items) != 1 || items[0].ID != id {
		t.Fatalf("unexpected items %v", items)
	}

	if err := mem.Delete(ctx, path, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if items := l.Items(); len(items) != 0 {
		t.Fatalf("expected rebuild to empty list, got %v", items)
	}
}

func TestListSkipsUndecodableDocuments(t *testing.T) {
	client, mem, m := testDeps(t)
	path := backend.UserCollectionPath("oncontrol-app", "u1", backend.CollectionPatients)
	ctx := context.Background()

	mem.Add(ctx, path, map[string]any{"name": "ok"})
	mem.Add(ctx, path, map[string]any{"name": "poison"})

	l, err := Watch(ctx, client, path, backend.CollectionPatients, decodeRecord, nil, logging.Default(), m)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer l.Stop()

	items := l.Items()
	if len(items) != 1 || items[0].Name != "ok" {
		t.Fatalf("expected the poison document skipped, got %v", items)
	}
}

func TestListStopTwice(t *testing.T) {
	client, mem, m := testDeps(t)
	path := backend.UserCollectionPath("oncontrol-app", "u1", backend.CollectionAlerts)
	ctx := context.Background()

	l, err := Watch(ctx, client, path, backend.CollectionAlerts, decodeRecord, nil, logging.Default(), m)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}

	l.Stop()
	l.Stop()

	mem.Add(ctx, path, map[string]any{"name": "after stop"})
	if len(l.Items()) != 0 {
		t.Fatal("stopped mirror must not apply further snapshots")
	}
}

func TestValueUnsetUntilDocumentExists(t *testing.T) {
	client, mem, m := testDeps(t)
	path := backend.UserCollectionPath("oncontrol-app", "u1", backend.CollectionSettings)
	ctx := context.Background()

	v, err := WatchValue(ctx, client, path, backend.ThresholdsDocID, backend.CollectionSettings,
		func(data map[string]any) (float64, error) {
			low, _ := data["oxygenLow"].(float64)
			return low, nil
		}, nil, logging.Default(), m)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer v.Stop()

	if v.Get() != nil {
		t.Fatal("expected value unset before the document exists")
	}

	// an unrelated document in the collection must not set the value
	mem.Add(ctx, path, map[string]any{"oxygenLow": 85.0})
	if v.Get() != nil {
		t.Fatal("expected value unset for non-singleton documents")
	}

	mem.Set(ctx, path, backend.ThresholdsDocID, map[string]any{"oxygenLow": 92.0}, true)
	got := v.Get()
	if got == nil || *got != 92.0 {
		t.Fatalf("expected 92.0, got %v", got)
	}
}

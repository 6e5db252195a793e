package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/oncontrol/platform/internal/backend"
	"github.com/oncontrol/platform/internal/http/middleware"
	"github.com/oncontrol/platform/internal/observability/metrics"
	"github.com/oncontrol/platform/pkg/logging"
)

func newLiveServer(t *testing.T) (*httptest.Server, *backend.Memory) {
	t.Helper()
	mem := backend.NewMemory()
	client := backend.NewClient(mem, mem, testAppID)
	h := NewLiveHandler(client, logging.Default(), metrics.NewSyncMetrics(prometheus.NewRegistry()))

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.SessionJWT(testSecret))
		r.Get("/sync/live", h.Serve)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, mem
}

func dialLive(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/sync/live"
	header := http.Header{"Authorization": {"Bearer " + token}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readUntil(t *testing.T, conn *websocket.Conn, match func(liveMessage) bool) liveMessage {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	require.NoError(t, conn.SetReadDeadline(deadline))
	for {
		var msg liveMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if match(msg) {
			return msg
		}
		require.True(t, time.Now().Before(deadline), "no matching message before deadline")
	}
}

func TestLiveFeedStreamsSessionSnapshots(t *testing.T) {
	srv, mem := newLiveServer(t)
	ctx := context.Background()

	mem.Add(ctx, backend.UserCollectionPath(testAppID, "u1", backend.CollectionPatients),
		map[string]any{"name": "Juan Pérez", "age": 45, "status": "Activo"})

	conn := dialLive(t, srv, sessionToken(t, "u1"))

	msg := readUntil(t, conn, func(m liveMessage) bool {
		return len(m.State.Patients) == 1
	})
	require.Equal(t, "snapshot", msg.Type)
	require.Equal(t, "Juan Pérez", msg.State.Patients[0].Name)
	require.Equal(t, "u1", msg.State.User.UID)
	require.False(t, msg.State.Loading)
	require.Equal(t, 38.5, msg.State.Thresholds.TemperatureHigh,
		"defaults apply while no thresholds document exists")

	// a new remote write must surface as another snapshot push
	mem.Add(ctx, backend.UserCollectionPath(testAppID, "u1", backend.CollectionPatients),
		map[string]any{"name": "María López", "age": 52, "status": "Activo"})

	msg = readUntil(t, conn, func(m liveMessage) bool {
		return len(m.State.Patients) == 2
	})
	require.Equal(t, backend.CollectionPatients, msg.Collection)
}

func TestLiveFeedIsScopedToTokenIdentity(t *testing.T) {
	srv, mem := newLiveServer(t)
	ctx := context.Background()

	mem.Add(ctx, backend.UserCollectionPath(testAppID, "u1", backend.CollectionPatients),
		map[string]any{"name": "Paciente de U1"})
	mem.Add(ctx, backend.UserCollectionPath(testAppID, "u2", backend.CollectionPatients),
		map[string]any{"name": "Paciente de U2"})

	conn := dialLive(t, srv, sessionToken(t, "u2"))

	msg := readUntil(t, conn, func(m liveMessage) bool {
		return len(m.State.Patients) == 1
	})
	require.Equal(t, "Paciente de U2", msg.State.Patients[0].Name)
}

func TestLiveFeedRequiresToken(t *testing.T) {
	srv, _ := newLiveServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/sync/live"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

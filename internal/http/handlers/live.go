package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/oncontrol/platform/internal/auth"
	"github.com/oncontrol/platform/internal/backend"
	"github.com/oncontrol/platform/internal/http/middleware"
	"github.com/oncontrol/platform/internal/model"
	"github.com/oncontrol/platform/internal/observability/metrics"
	"github.com/oncontrol/platform/internal/session"
	"github.com/oncontrol/platform/pkg/logging"
)

const liveWriteTimeout = 10 * time.Second

// LiveHandler streams session snapshots over a websocket. Each connection
// gets its own subscription set, bound to the authenticated identity for
// the lifetime of the socket and torn down on disconnect.
type LiveHandler struct {
	client   *backend.Client
	logger   *logging.Logger
	metrics  *metrics.SyncMetrics
	upgrader websocket.Upgrader
}

func NewLiveHandler(client *backend.Client, logger *logging.Logger, m *metrics.SyncMetrics) *LiveHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &LiveHandler{
		client:  client,
		logger:  logger.Component("live"),
		metrics: m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Cross-origin policy is enforced by the CORS middleware in
			// front of the upgrade request.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// liveState is the wire form of a session snapshot.
type liveState struct {
	User         *model.User           `json:"user"`
	Profile      *model.DoctorProfile  `json:"profile"`
	Patients     []model.Patient       `json:"patients"`
	Appointments []model.Appointment   `json:"appointments"`
	Alerts       []model.Alert         `json:"alerts"`
	Treatments   []model.Treatment     `json:"treatments"`
	Thresholds   model.AlertThresholds `json:"alertThresholds"`
	Loading      bool                  `json:"loading"`
}

type liveMessage struct {
	Type       string    `json:"type"`
	Collection string    `json:"collection"`
	State      liveState `json:"state"`
}

// Serve handles GET /sync/live.
func (h *LiveHandler) Serve(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		jsonError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade", "error", err)
		return
	}
	defer conn.Close()

	mgr := session.NewManager(h.client, h.logger, h.metrics)
	defer mgr.Close()

	updates := make(chan string, 16)
	cancel := mgr.OnUpdate(func(collection string) {
		select {
		case updates <- collection:
		default:
			// the consumer is behind; it will pick up the latest
			// snapshot on its next send anyway
		}
	})
	defer cancel()

	tracker := auth.NewStateTracker()
	mgr.Bind(r.Context(), tracker)
	tracker.SignIn(*user)
	defer tracker.SignOut()

	h.logger.Info("live feed opened", "uid", user.UID)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case collection := <-updates:
			msg := liveMessage{
				Type:       "snapshot",
				Collection: collection,
				State:      wireState(mgr.Snapshot()),
			}
			conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Info("live feed closed", "uid", user.UID, "error", err)
				return
			}
		case <-done:
			h.logger.Info("live feed closed", "uid", user.UID)
			return
		case <-r.Context().Done():
			return
		}
	}
}

func wireState(st session.State) liveState {
	out := liveState{
		User:         st.User,
		Profile:      st.Profile,
		Patients:     st.Patients,
		Appointments: st.Appointments,
		Alerts:       st.Alerts,
		Treatments:   st.Treatments,
		Thresholds:   model.DefaultThresholds(),
		Loading:      st.Loading,
	}
	if st.Thresholds != nil {
		out.Thresholds = *st.Thresholds
	}
	return out
}

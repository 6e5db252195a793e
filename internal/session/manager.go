// Package session binds local application state to the authentication
// lifecycle: on sign-in it resolves the doctor profile and activates live
// mirrors for the four per-user collections plus the thresholds
// singleton; on sign-out it tears everything down.
package session

import (
	"context"
	"sync"

	"github.com/oncontrol/platform/internal/backend"
	"github.com/oncontrol/platform/internal/mirror"
	"github.com/oncontrol/platform/internal/model"
	"github.com/oncontrol/platform/internal/observability/metrics"
	"github.com/oncontrol/platform/pkg/logging"
)

// AuthState is the authentication observable the manager binds to. The
// listener fires at least once immediately with the current state.
type AuthState interface {
	OnChange(fn func(*model.User)) (cancel func())
}

// State is a point-in-time copy of everything the session exposes.
type State struct {
	User         *model.User
	Profile      *model.DoctorProfile
	Patients     []model.Patient
	Appointments []model.Appointment
	Alerts       []model.Alert
	Treatments   []model.Treatment
	Thresholds   *model.AlertThresholds
	Loading      bool
}

// Manager owns the per-identity subscription set. A generation counter
// fences overlapping teardown/setup: snapshots and profile resolutions
// from a superseded sign-in never write into newer state, and at most one
// subscription set is active at a time.
type Manager struct {
	client  *backend.Client
	logger  *logging.Logger
	metrics *metrics.SyncMetrics

	mu           sync.Mutex
	gen          int
	user         *model.User
	profile      *model.DoctorProfile
	loading      bool
	patients     *mirror.List[model.Patient]
	appointments *mirror.List[model.Appointment]
	alerts       *mirror.List[model.Alert]
	treatments   *mirror.List[model.Treatment]
	thresholds   *mirror.Value[model.AlertThresholds]
	cancelAuth   func()
	listeners    map[int]func(collection string)
	nextListener int
}

func NewManager(client *backend.Client, logger *logging.Logger, m *metrics.SyncMetrics) *Manager {
	if logger == nil {
		logger = logging.Default()
	}
	return &Manager{
		client:    client,
		logger:    logger.Component("session"),
		metrics:   m,
		loading:   true,
		listeners: make(map[int]func(string)),
	}
}

// Bind registers the auth listener. Loading stays true until the first
// callback resolves, whichever way it goes.
func (m *Manager) Bind(ctx context.Context, auth AuthState) {
	m.cancelAuth = auth.OnChange(func(user *model.User) {
		if user != nil {
			m.handleSignIn(ctx, *user)
		} else {
			m.handleSignOut()
		}
	})
}

// Close detaches from the auth state and tears down any active session.
func (m *Manager) Close() {
	if m.cancelAuth != nil {
		m.cancelAuth()
	}
	m.handleSignOut()
}

// OnUpdate registers a listener invoked after every applied snapshot and
// on session transitions, with the collection name that changed.
func (m *Manager) OnUpdate(fn func(collection string)) (cancel func()) {
	m.mu.Lock()
	id := m.nextListener
	m.nextListener++
	m.listeners[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// Snapshot returns a copy of the current session state.
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := State{Loading: m.loading}
	if m.user != nil {
		u := *m.user
		st.User = &u
	}
	if m.profile != nil {
		p := *m.profile
		st.Profile = &p
	}
	st.Patients = []model.Patient{}
	st.Appointments = []model.Appointment{}
	st.Alerts = []model.Alert{}
	st.Treatments = []model.Treatment{}
	if m.patients != nil {
		st.Patients = m.patients.Items()
	}
	if m.appointments != nil {
		st.Appointments = m.appointments.Items()
	}
	if m.alerts != nil {
		st.Alerts = m.alerts.Items()
	}
	if m.treatments != nil {
		st.Treatments = m.treatments.Items()
	}
	if m.thresholds != nil {
		st.Thresholds = m.thresholds.Get()
	}
	return st
}

func (m *Manager) handleSignIn(ctx context.Context, user model.User) {
	m.mu.Lock()
	m.gen++
	gen := m.gen
	m.stopMirrorsLocked()
	m.user = &user
	m.profile = nil
	m.loading = false
	m.mu.Unlock()

	m.logger.Info("session starting", "uid", user.UID)
	m.resolveProfile(ctx, gen, user.UID)

	uid := user.UID
	appID := m.client.AppID

	patients, err := mirror.Watch(ctx, m.client,
		backend.UserCollectionPath(appID, uid, backend.CollectionPatients), backend.CollectionPatients,
		model.PatientFromSnapshot, m.notifier(gen, backend.CollectionPatients), m.logger, m.metrics)
	m.install(gen, backend.CollectionPatients, err, func() { m.patients = patients }, func() { patients.Stop() })

	appointments, err := mirror.Watch(ctx, m.client,
		backend.UserCollectionPath(appID, uid, backend.CollectionAppointments), backend.CollectionAppointments,
		model.AppointmentFromSnapshot, m.notifier(gen, backend.CollectionAppointments), m.logger, m.metrics)
	m.install(gen, backend.CollectionAppointments, err, func() { m.appointments = appointments }, func() { appointments.Stop() })

	alerts, err := mirror.Watch(ctx, m.client,
		backend.UserCollectionPath(appID, uid, backend.CollectionAlerts), backend.CollectionAlerts,
		model.AlertFromSnapshot, m.notifier(gen, backend.CollectionAlerts), m.logger, m.metrics)
	m.install(gen, backend.CollectionAlerts, err, func() { m.alerts = alerts }, func() { alerts.Stop() })

	treatments, err := mirror.Watch(ctx, m.client,
		backend.UserCollectionPath(appID, uid, backend.CollectionTreatments), backend.CollectionTreatments,
		model.TreatmentFromSnapshot, m.notifier(gen, backend.CollectionTreatments), m.logger, m.metrics)
	m.install(gen, backend.CollectionTreatments, err, func() { m.treatments = treatments }, func() { treatments.Stop() })

	thresholds, err := mirror.WatchValue(ctx, m.client,
		backend.UserCollectionPath(appID, uid, backend.CollectionSettings), backend.ThresholdsDocID,
		backend.CollectionSettings, model.ThresholdsFromSnapshot,
		m.notifier(gen, backend.CollectionSettings), m.logger, m.metrics)
	m.install(gen, backend.CollectionSettings, err, func() { m.thresholds = thresholds }, func() { thresholds.Stop() })

	m.broadcast(gen, "session")
}

func (m *Manager) handleSignOut() {
	m.mu.Lock()
	m.gen++
	gen := m.gen
	m.stopMirrorsLocked()
	m.user = nil
	m.profile = nil
	m.loading = false
	m.mu.Unlock()

	m.logger.Info("session cleared")
	m.broadcast(gen, "session")
}

// install publishes a freshly started mirror, unless the session was
// superseded while it was starting, in which case the mirror is stopped
// straight away. A failed subscription degrades reads but never blocks
// the other mirrors.
func (m *Manager) install(gen int, collection string, err error, assign func(), stop func()) {
	if err != nil {
		m.logger.Error("subscription setup failed", "collection", collection, "error", err)
		return
	}
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		stop()
		return
	}
	assign()
	m.mu.Unlock()
}

func (m *Manager) resolveProfile(ctx context.Context, gen int, uid string) {
	doc, err := m.client.Store.Get(ctx, backend.DoctorsPath(m.client.AppID), uid)
	if err != nil {
		m.logger.Error("load doctor profile", "uid", uid, "error", err)
		return
	}
	if doc == nil {
		m.logger.Warn("no doctor profile for authenticated user", "uid", uid)
		return
	}
	profile, err := model.DoctorProfileFromSnapshot(uid, doc.Data)
	if err != nil {
		m.logger.Error("decode doctor profile", "uid", uid, "error", err)
		return
	}
	m.mu.Lock()
	if gen == m.gen {
		m.profile = &profile
	}
	m.mu.Unlock()
}

// notifier fences snapshot notifications to the generation that opened
// the subscription.
func (m *Manager) notifier(gen int, collection string) func() {
	return func() {
		m.broadcast(gen, collection)
	}
}

func (m *Manager) broadcast(gen int, collection string) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	fns := make([]func(string), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn(collection)
	}
}

func (m *Manager) stopMirrorsLocked() {
	if m.patients != nil {
		m.patients.Stop()
		m.patients = nil
	}
	if m.appointments != nil {
		m.appointments.Stop()
		m.appointments = nil
	}
	if m.alerts != nil {
		m.alerts.Stop()
		m.alerts = nil
	}
	if m.treatments != nil {
		m.treatments.Stop()
		m.treatments = nil
	}
	if m.thresholds != nil {
		m.thresholds.Stop()
		m.thresholds = nil
	}
}

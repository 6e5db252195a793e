// Package gateway performs remote writes for the active session. It never
// touches mirror state: the caller observes the effect of a write through
// the corresponding mirror's next push, so nothing is double-counted.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/oncontrol/platform/internal/backend"
	"github.com/oncontrol/platform/internal/model"
	"github.com/oncontrol/platform/internal/observability/metrics"
	"github.com/oncontrol/platform/pkg/logging"
)

// ErrMissingFields is returned when a mutation lacks the primary business
// fields for its entity.
var ErrMissingFields = errors.New("gateway: missing required fields")

// UserSource resolves the identity a mutation runs as. Mutations without
// one fail with backend.ErrUnauthenticated before any write happens.
type UserSource interface {
	CurrentUser(ctx context.Context) *model.User
}

// AlertNotifier is told about newly created alerts so out-of-band
// notifications (email) can go out. Implementations must not block
// mutations on delivery problems.
type AlertNotifier interface {
	AlertCreated(ctx context.Context, uid string, alert model.Alert)
}

type Gateway struct {
	client   *backend.Client
	users    UserSource
	notifier AlertNotifier
	logger   *logging.Logger
	metrics  *metrics.SyncMetrics
	tracer   trace.Tracer
}

func New(client *backend.Client, users UserSource, logger *logging.Logger, m *metrics.SyncMetrics) *Gateway {
	if logger == nil {
		logger = logging.Default()
	}
	return &Gateway{
		client:  client,
		users:   users,
		logger:  logger.Component("gateway"),
		metrics: m,
		tracer:  otel.Tracer("oncontrol/gateway"),
	}
}

// WithAlertNotifier attaches the notifier used for newly created alerts.
func (g *Gateway) WithAlertNotifier(n AlertNotifier) *Gateway {
	g.notifier = n
	return g
}

func (g *Gateway) CreatePatient(ctx context.Context, p model.Patient) (string, error) {
	if p.Name == "" || p.Age <= 0 {
		return "", fmt.Errorf("%w: patient name and age", ErrMissingFields)
	}
	return g.create(ctx, backend.CollectionPatients, p)
}

func (g *Gateway) UpdatePatient(ctx context.Context, id string, patch PatientPatch) error {
	return g.update(ctx, backend.CollectionPatients, id, patch)
}

func (g *Gateway) DeletePatient(ctx context.Context, id string) error {
	return g.delete(ctx, backend.CollectionPatients, id)
}

func (g *Gateway) CreateAppointment(ctx context.Context, a model.Appointment) (string, error) {
	if a.PatientID == "" || a.Date.IsZero() || a.Time == "" {
		return "", fmt.Errorf("%w: appointment patientId, date and time", ErrMissingFields)
	}
	return g.create(ctx, backend.CollectionAppointments, a)
}

func (g *Gateway) UpdateAppointment(ctx context.Context, id string, patch AppointmentPatch) error {
	return g.update(ctx, backend.CollectionAppointments, id, patch)
}

func (g *Gateway) DeleteAppointment(ctx context.Context, id string) error {
	return g.delete(ctx, backend.CollectionAppointments, id)
}

func (g *Gateway) CreateAlert(ctx context.Context, a model.Alert) (string, error) {
	if a.PatientID == "" || a.Message == "" {
		return "", fmt.Errorf("%w: alert patientId and message", ErrMissingFields)
	}
	uid, err := g.requireUser(ctx)
	if err != nil {
		g.metrics.ObserveMutation(backend.CollectionAlerts, "create", "unauthenticated")
		return "", err
	}
	id, err := g.createAs(ctx, uid, backend.CollectionAlerts, a)
	if err != nil {
		return "", err
	}
	// Notify as the uid that authorized the write; the session may have
	// ended by the time the create lands.
	if g.notifier != nil && a.Severity == model.SeverityCritical {
		created := a
		created.ID = id
		g.notifier.AlertCreated(ctx, uid, created)
	}
	return id, nil
}

func (g *Gateway) UpdateAlert(ctx context.Context, id string, patch AlertPatch) error {
	return g.update(ctx, backend.CollectionAlerts, id, patch)
}

func (g *Gateway) DeleteAlert(ctx context.Context, id string) error {
	return g.delete(ctx, backend.CollectionAlerts, id)
}

func (g *Gateway) CreateTreatment(ctx context.Context, t model.Treatment) (string, error) {
	if t.PatientID == "" || t.TreatmentName == "" {
		return "", fmt.Errorf("%w: treatment patientId and treatmentName", ErrMissingFields)
	}
	return g.create(ctx, backend.CollectionTreatments, t)
}

func (g *Gateway) UpdateTreatment(ctx context.Context, id string, patch TreatmentPatch) error {
	return g.update(ctx, backend.CollectionTreatments, id, patch)
}

func (g *Gateway) DeleteTreatment(ctx context.Context, id string) error {
	return g.delete(ctx, backend.CollectionTreatments, id)
}

// UpdateThresholds field-merges into the settings singleton, creating the
// document when absent. This is the only upsert in the gateway.
func (g *Gateway) UpdateThresholds(ctx context.Context, patch ThresholdsPatch) error {
	uid, err := g.requireUser(ctx)
	if err != nil {
		g.metrics.ObserveMutation(backend.CollectionSettings, "upsert", "unauthenticated")
		return err
	}
	fields, err := patchFields(patch)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}

	ctx, span := g.startSpan(ctx, "gateway.UpdateThresholds", backend.CollectionSettings)
	defer span.End()

	path := backend.UserCollectionPath(g.client.AppID, uid, backend.CollectionSettings)
	err = g.client.Store.Set(ctx, path, backend.ThresholdsDocID, fields, true)
	g.metrics.ObserveMutation(backend.CollectionSettings, "upsert", statusOf(err))
	return err
}

func (g *Gateway) create(ctx context.Context, collection string, entity any) (string, error) {
	uid, err := g.requireUser(ctx)
	if err != nil {
		g.metrics.ObserveMutation(collection, "create", "unauthenticated")
		return "", err
	}
	return g.createAs(ctx, uid, collection, entity)
}

func (g *Gateway) createAs(ctx context.Context, uid, collection string, entity any) (string, error) {
	ctx, span := g.startSpan(ctx, "gateway.create", collection)
	defer span.End()

	doc, err := entityFields(entity)
	if err != nil {
		return "", err
	}
	now := time.Now()
	doc["createdAt"] = now
	doc["updatedAt"] = now

	path := backend.UserCollectionPath(g.client.AppID, uid, collection)
	id, err := g.client.Store.Add(ctx, path, doc)
	g.metrics.ObserveMutation(collection, "create", statusOf(err))
	if err != nil {
		return "", err
	}
	g.logger.Debug("document created", "collection", collection, "id", id)
	return id, nil
}

func (g *Gateway) update(ctx context.Context, collection, id string, patch any) error {
	uid, err := g.requireUser(ctx)
	if err != nil {
		g.metrics.ObserveMutation(collection, "update", "unauthenticated")
		return err
	}
	if id == "" {
		return fmt.Errorf("%w: document id", ErrMissingFields)
	}
	fields, err := patchFields(patch)
	if err != nil {
		return err
	}

	ctx, span := g.startSpan(ctx, "gateway.update", collection)
	defer span.End()

	fields["updatedAt"] = time.Now()
	path := backend.UserCollectionPath(g.client.AppID, uid, collection)
	err = g.client.Store.Update(ctx, path, id, fields)
	g.metrics.ObserveMutation(collection, "update", statusOf(err))
	return err
}

func (g *Gateway) delete(ctx context.Context, collection, id string) error {
	uid, err := g.requireUser(ctx)
	if err != nil {
		g.metrics.ObserveMutation(collection, "delete", "unauthenticated")
		return err
	}
	if id == "" {
		return fmt.Errorf("%w: document id", ErrMissingFields)
	}

	ctx, span := g.startSpan(ctx, "gateway.delete", collection)
	defer span.End()

	path := backend.UserCollectionPath(g.client.AppID, uid, collection)
	err = g.client.Store.Delete(ctx, path, id)
	g.metrics.ObserveMutation(collection, "delete", statusOf(err))
	return err
}

func (g *Gateway) requireUser(ctx context.Context) (string, error) {
	user := g.users.CurrentUser(ctx)
	if user == nil {
		return "", backend.ErrUnauthenticated
	}
	return user.UID, nil
}

func (g *Gateway) startSpan(ctx context.Context, name, collection string) (context.Context, trace.Span) {
	return g.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("collection", collection)))
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// entityFields flattens a typed record into document fields, dropping the
// local id (the store assigns ids).
func entityFields(entity any) (map[string]any, error) {
	b, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("encode entity: %w", err)
	}
	fields := map[string]any{}
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, fmt.Errorf("encode entity: %w", err)
	}
	delete(fields, "id")
	return fields, nil
}

// patchFields keeps only the fields the caller actually set; nil pointers
// marshal away entirely so a partial update cannot clobber siblings.
func patchFields(patch any) (map[string]any, error) {
	b, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("encode patch: %w", err)
	}
	fields := map[string]any{}
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, fmt.Errorf("encode patch: %w", err)
	}
	delete(fields, "id")
	return fields, nil
}

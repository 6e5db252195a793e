package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oncontrol/platform/internal/backend"
	"github.com/oncontrol/platform/internal/model"
	"github.com/oncontrol/platform/pkg/logging"
)

type captureSender struct {
	sent []EmailMessage
	err  error
}

func (c *captureSender) Send(_ context.Context, msg EmailMessage) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, msg)
	return nil
}

func newTestService(t *testing.T, sender EmailSender) (*Service, *backend.Memory) {
	t.Helper()
	mem := backend.NewMemory()
	client := backend.NewClient(mem, mem, "oncontrol-app")
	return NewService(sender, client, logging.Default()), mem
}

func seedDoctor(t *testing.T, mem *backend.Memory, uid, email string) {
	t.Helper()
	err := mem.Set(context.Background(), backend.DoctorsPath("oncontrol-app"), uid, map[string]any{
		"uid": uid, "name": "Dra. María González", "email": email,
		"specialty": "oncologia-medica", "documentType": "dni", "dni": "12345678",
	}, false)
	require.NoError(t, err)
}

func TestAlertCreatedEmailsDoctor(t *testing.T) {
	sender := &captureSender{}
	svc, mem := newTestService(t, sender)
	seedDoctor(t, mem, "u1", "maria.gonzalez@hospital.com")

	svc.AlertCreated(context.Background(), "u1", model.Alert{
		ID: "a1", PatientName: "Juan Pérez",
		Message: "Saturación de oxígeno 85%", Severity: model.SeverityCritical,
	})

	require.Len(t, sender.sent, 1)
	require.Equal(t, "maria.gonzalez@hospital.com", sender.sent[0].To)
	require.Contains(t, sender.sent[0].Subject, "Juan Pérez")
	require.Contains(t, sender.sent[0].Body, "Saturación de oxígeno 85%")
}

func TestAlertCreatedSkipsNonCritical(t *testing.T) {
	sender := &captureSender{}
	svc, mem := newTestService(t, sender)
	seedDoctor(t, mem, "u1", "maria.gonzalez@hospital.com")

	svc.AlertCreated(context.Background(), "u1", model.Alert{
		PatientName: "Juan Pérez", Message: "control", Severity: model.SeverityLow,
	})

	require.Empty(t, sender.sent)
}

func TestAlertCreatedWithoutProfileIsSilent(t *testing.T) {
	sender := &captureSender{}
	svc, _ := newTestService(t, sender)

	svc.AlertCreated(context.Background(), "ghost", model.Alert{
		PatientName: "Juan Pérez", Message: "x", Severity: model.SeverityCritical,
	})

	require.Empty(t, sender.sent)
}

func TestAlertCreatedSwallowsSendErrors(t *testing.T) {
	sender := &captureSender{err: errors.New("smtp down")}
	svc, mem := newTestService(t, sender)
	seedDoctor(t, mem, "u1", "maria.gonzalez@hospital.com")

	// must not panic or propagate
	svc.AlertCreated(context.Background(), "u1", model.Alert{
		PatientName: "Juan Pérez", Message: "x", Severity: model.SeverityCritical,
	})
}

// Package notify sends out-of-band notifications for clinical events.
// Delivery is best-effort: a failed email never fails the mutation that
// triggered it.
package notify

import (
	"context"
	"fmt"

	"github.com/oncontrol/platform/internal/backend"
	"github.com/oncontrol/platform/internal/model"
	"github.com/oncontrol/platform/pkg/logging"
)

// Service resolves the owning doctor's address and emails them about
// critical alerts.
type Service struct {
	email  EmailSender
	client *backend.Client
	logger *logging.Logger
}

func NewService(email EmailSender, client *backend.Client, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{email: email, client: client, logger: logger.Component("notify")}
}

// AlertCreated emails the doctor when a critical alert is recorded.
// Errors are logged, never returned: alert persistence already succeeded
// and must not be rolled back over a mail problem.
func (s *Service) AlertCreated(ctx context.Context, uid string, alert model.Alert) {
	if s.email == nil {
		return
	}
	if alert.Severity != model.SeverityCritical {
		return
	}

	doc, err := s.client.Store.Get(ctx, backend.DoctorsPath(s.client.AppID), uid)
	if err != nil {
		s.logger.Error("resolve doctor for alert email", "uid", uid, "error", err)
		return
	}
	if doc == nil {
		s.logger.Warn("no doctor profile for alert email", "uid", uid)
		return
	}
	profile, err := model.DoctorProfileFromSnapshot(uid, doc.Data)
	if err != nil {
		s.logger.Error("decode doctor for alert email", "uid", uid, "error", err)
		return
	}
	if profile.Email == "" {
		s.logger.Warn("doctor profile has no email", "uid", uid)
		return
	}

	msg := EmailMessage{
		To:      profile.Email,
		ToName:  profile.Name,
		Subject: fmt.Sprintf("Alerta crítica: %s", alert.PatientName),
		Body: fmt.Sprintf(
			"Se registró una alerta crítica para el paciente %s.\n\n%s\n\nRevise el panel de OnControl para más detalles.",
			alert.PatientName, alert.Message),
	}
	if err := s.email.Send(ctx, msg); err != nil {
		s.logger.Error("send alert email", "uid", uid, "alert_id", alert.ID, "error", err)
		return
	}
	s.logger.Info("critical alert email sent", "uid", uid, "alert_id", alert.ID)
}

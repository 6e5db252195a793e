// Command seed provisions a demo doctor and a small clinical dataset so
// the dashboard has something to show on first run.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/oncontrol/platform/internal/auth"
	"github.com/oncontrol/platform/internal/backend"
	appconfig "github.com/oncontrol/platform/internal/config"
	"github.com/oncontrol/platform/internal/gateway"
	"github.com/oncontrol/platform/internal/localstore"
	"github.com/oncontrol/platform/internal/model"
	"github.com/oncontrol/platform/internal/observability/metrics"
	"github.com/oncontrol/platform/pkg/logging"
)

const (
	demoEmail    = "maria.gonzalez@oncontrol.demo"
	demoPassword = "Demo@1234"
)

type staticUser struct {
	user model.User
}

func (s staticUser) CurrentUser(context.Context) *model.User {
	u := s.user
	return &u
}

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect to postgres: %v", err)
	}
	defer pool.Close()

	sqlDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("open sql db: %v", err)
	}
	defer sqlDB.Close()

	store := backend.NewDocStore(pool, nil, logger)
	client := backend.NewClient(store, nil, cfg.AppID)
	repo := auth.NewRepository(sqlDB)
	authSvc := auth.NewService(repo, client, cfg.SessionJWTSecret, cfg.SessionTokenTTL, logger)

	uid, err := authSvc.RegisterDoctor(ctx, demoEmail, demoPassword, model.DoctorProfile{
		Name:         "Dra. María González",
		Specialty:    "oncologia-medica",
		License:      "CMP-45678",
		Phone:        "987000111",
		DocumentType: model.DocumentTypeDNI,
		DNI:          "12345678",
	})
	if errors.Is(err, auth.ErrEmailTaken) {
		cred, ferr := repo.FindByEmail(ctx, demoEmail)
		if ferr != nil || cred == nil {
			log.Fatalf("resolve existing demo doctor: %v", ferr)
		}
		uid = cred.UID
		logger.Info("demo doctor already registered", "uid", uid)
	} else if err != nil {
		log.Fatalf("register demo doctor: %v", err)
	} else {
		logger.Info("demo doctor registered", "uid", uid, "email", demoEmail)
	}

	gw := gateway.New(client, staticUser{user: model.User{UID: uid, Email: demoEmail}}, logger,
		metrics.NewSyncMetrics(prometheus.NewRegistry()))

	seedData(ctx, gw, logger)

	if cfg.LocalStorePath != "" {
		seedLocalStore(ctx, cfg.LocalStorePath, logger)
	}

	logger.Info("seed complete", "uid", uid)
}

func seedData(ctx context.Context, gw *gateway.Gateway, logger *logging.Logger) {
	juanID, err := gw.CreatePatient(ctx, model.Patient{
		Name: "Juan Pérez", Age: 45, Gender: "M",
		Phone: "987654321", Email: "juan.perez@email.com",
		BloodType: "O+", Allergies: []string{"penicilina"},
		Diagnosis: "Cáncer de pulmón", Status: model.PatientActive,
		LastVisit: time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		log.Fatalf("seed patient: %v", err)
	}

	mariaID, err := gw.CreatePatient(ctx, model.Patient{
		Name: "María López", Age: 52, Gender: "F",
		Phone: "987654322", Email: "maria.lopez@email.com",
		BloodType: "A-", Diagnosis: "Cáncer de mama", Status: model.PatientActive,
		LastVisit: time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		log.Fatalf("seed patient: %v", err)
	}

	if _, err := gw.CreateAppointment(ctx, model.Appointment{
		PatientID: juanID, PatientName: "Juan Pérez",
		Date: time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC), Time: "10:00",
		Type: model.AppointmentFollowUp, Status: model.AppointmentScheduled,
		Notes: "Control post-quimioterapia",
	}); err != nil {
		log.Fatalf("seed appointment: %v", err)
	}

	if _, err := gw.CreateAppointment(ctx, model.Appointment{
		PatientID: mariaID, PatientName: "María López",
		Date: time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC), Time: "14:30",
		Type: model.AppointmentConsultation, Status: model.AppointmentScheduled,
		Notes: "Primera consulta oncológica",
	}); err != nil {
		log.Fatalf("seed appointment: %v", err)
	}

	if _, err := gw.CreateTreatment(ctx, model.Treatment{
		PatientID: juanID, PatientName: "Juan Pérez",
		TreatmentName: "Quimioterapia - Cisplatino + Etopósido",
		Status:        model.TreatmentInProgress, Priority: "alta",
		StartDate: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		Duration:  "3 meses",
		Medications: []model.Medication{
			{Name: "Cisplatino", Dosage: "75mg/m2", Frequency: "cada 21 días", Status: "activo"},
			{Name: "Etopósido", Dosage: "100mg/m2", Frequency: "días 1-3 del ciclo", Status: "activo"},
		},
		NextVisit: time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		log.Fatalf("seed treatment: %v", err)
	}

	if _, err := gw.CreateAlert(ctx, model.Alert{
		PatientID: juanID, PatientName: "Juan Pérez",
		Type: "temperature", Message: "Temperatura de 39.5°C detectada",
		Severity: model.SeverityHigh, Status: model.AlertPending,
	}); err != nil {
		log.Fatalf("seed alert: %v", err)
	}

	def := model.DefaultThresholds()
	if err := gw.UpdateThresholds(ctx, gateway.ThresholdsPatch{
		TemperatureHigh:   gateway.Ptr(def.TemperatureHigh),
		TemperatureLow:    gateway.Ptr(def.TemperatureLow),
		BloodPressureHigh: gateway.Ptr(def.BloodPressureHigh),
		BloodPressureLow:  gateway.Ptr(def.BloodPressureLow),
		HeartRateHigh:     gateway.Ptr(def.HeartRateHigh),
		HeartRateLow:      gateway.Ptr(def.HeartRateLow),
		OxygenLow:         gateway.Ptr(def.OxygenLow),
		GlucoseLow:        gateway.Ptr(def.GlucoseLow),
		GlucoseHigh:       gateway.Ptr(def.GlucoseHigh),
	}); err != nil {
		log.Fatalf("seed thresholds: %v", err)
	}

	logger.Info("remote dataset seeded", "patients", 2)
}

// seedLocalStore materializes the offline fallback file so demos without
// a backend still show data.
func seedLocalStore(ctx context.Context, path string, logger *logging.Logger) {
	ls, err := localstore.Open(path, logger)
	if err != nil {
		logger.Warn("open local store", "path", path, "error", err)
		return
	}
	defer ls.Close()

	data, err := ls.Load(ctx)
	if err != nil {
		logger.Warn("load local store", "error", err)
		return
	}
	if err := ls.Save(ctx, data); err != nil {
		logger.Warn("save local store", "error", err)
		return
	}
	logger.Info("local fallback store ready", "path", path)
}

// Package localstore is the offline fallback: a single-blob document set
// persisted in an embedded sqlite database, used for demos and when no
// remote backend is configured. It mirrors the browser localStorage shape
// of the original dashboard, including numeric auto-increment ids.
package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/oncontrol/platform/pkg/logging"
)

const storageKey = "oncontrol_data"

// ErrItemNotFound is returned when a patch targets an id that is not in
// the section.
var ErrItemNotFound = errors.New("localstore: item not found")

// Section names within the stored blob.
const (
	SectionPatients      = "patients"
	SectionAppointments  = "appointments"
	SectionTreatments    = "treatments"
	SectionAlerts        = "alerts"
	SectionNotifications = "notifications"
)

// Data is the full fallback dataset, read and written as one unit.
type Data struct {
	Patients      []map[string]any `json:"patients"`
	Appointments  []map[string]any `json:"appointments"`
	Treatments    []map[string]any `json:"treatments"`
	Alerts        []map[string]any `json:"alerts"`
	Notifications []map[string]any `json:"notifications"`
}

func (d *Data) section(name string) (*[]map[string]any, bool) {
	switch name {
	case SectionPatients:
		return &d.Patients, true
	case SectionAppointments:
		return &d.Appointments, true
	case SectionTreatments:
		return &d.Treatments, true
	case SectionAlerts:
		return &d.Alerts, true
	case SectionNotifications:
		return &d.Notifications, true
	}
	return nil, false
}

// Store persists the fallback dataset. All operations are load-modify-save
// under one mutex; the dataset is small by construction.
type Store struct {
	db     *sql.DB
	logger *logging.Logger
	mu     sync.Mutex
}

// Open creates or opens the sqlite file at path.
func Open(path string, logger *logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("init local store: %w", err)
	}
	return &Store{db: db, logger: logger.Component("localstore")}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Load returns the stored dataset, or the built-in sample data when
// nothing was saved yet or the stored blob is unreadable.
func (s *Store) Load(ctx context.Context) (Data, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

func (s *Store) loadLocked(ctx context.Context) (Data, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, storageKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultData(), nil
	}
	if err != nil {
		return Data{}, fmt.Errorf("load local store: %w", err)
	}
	var d Data
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		s.logger.Error("stored blob unreadable, falling back to defaults", "error", err)
		return DefaultData(), nil
	}
	return d, nil
}

// Save replaces the whole dataset.
func (s *Store) Save(ctx context.Context, d Data) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ctx, d)
}

func (s *Store) saveLocked(ctx context.Context, d Data) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode local store: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		storageKey, string(raw))
	if err != nil {
		return fmt.Errorf("save local store: %w", err)
	}
	return nil
}

// UpdateSection replaces one section wholesale.
func (s *Store) UpdateSection(ctx context.Context, name string, items []map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.loadLocked(ctx)
	if err != nil {
		return err
	}
	sec, ok := d.section(name)
	if !ok {
		return fmt.Errorf("localstore: unknown section %q", name)
	}
	*sec = items
	return s.saveLocked(ctx, d)
}

// AddItem appends to a section, assigning max(id)+1 like the original
// browser store did.
func (s *Store) AddItem(ctx context.Context, name string, item map[string]any) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.loadLocked(ctx)
	if err != nil {
		return 0, err
	}
	sec, ok := d.section(name)
	if !ok {
		return 0, fmt.Errorf("localstore: unknown section %q", name)
	}

	maxID := 0
	for _, existing := range *sec {
		if id := numericID(existing); id > maxID {
			maxID = id
		}
	}
	id := maxID + 1
	item["id"] = id
	*sec = append(*sec, item)
	if err := s.saveLocked(ctx, d); err != nil {
		return 0, err
	}
	return id, nil
}

// PatchItem shallow-merges updates into the item with the given id.
func (s *Store) PatchItem(ctx context.Context, name string, id int, updates map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.loadLocked(ctx)
	if err != nil {
		return err
	}
	sec, ok := d.section(name)
	if !ok {
		return fmt.Errorf("localstore: unknown section %q", name)
	}
	for i, item := range *sec {
		if numericID(item) != id {
			continue
		}
		merged := make(map[string]any, len(item)+len(updates))
		for k, v := range item {
			merged[k] = v
		}
		for k, v := range updates {
			merged[k] = v
		}
		merged["id"] = id
		(*sec)[i] = merged
		return s.saveLocked(ctx, d)
	}
	return ErrItemNotFound
}

func numericID(item map[string]any) int {
	switch v := item["id"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	}
	return 0
}

// DefaultData is the seed dataset shown before any real data exists.
func DefaultData() Data {
	return Data{
		Patients: []map[string]any{
			{
				"id": 1, "name": "Juan Pérez", "age": 45,
				"diagnosis": "Cáncer de pulmón", "stage": "Estadio II",
				"lastVisit": "2024-01-15", "nextAppointment": "2024-01-22",
				"status": "En tratamiento", "phone": "987654321",
				"email": "juan.perez@email.com", "address": "Av. Principal 123, Lima",
			},
			{
				"id": 2, "name": "María López", "age": 52,
				"diagnosis": "Cáncer de mama", "stage": "Estadio I",
				"lastVisit": "2024-01-10", "nextAppointment": "2024-01-25",
				"status": "En seguimiento", "phone": "987654322",
				"email": "maria.lopez@email.com", "address": "Jr. Los Olivos 456, Lima",
			},
		},
		Appointments: []map[string]any{
			{
				"id": 1, "patientId": 1, "patientName": "Juan Pérez",
				"date": "2024-01-22", "time": "10:00",
				"type": "Consulta de seguimiento", "status": "Programada",
				"notes": "Control post-quimioterapia",
			},
			{
				"id": 2, "patientId": 2, "patientName": "María López",
				"date": "2024-01-25", "time": "14:30",
				"type": "Consulta inicial", "status": "Programada",
				"notes": "Primera consulta oncológica",
			},
		},
		Treatments: []map[string]any{
			{
				"id": 1, "patientId": 1, "patientName": "Juan Pérez",
				"type": "Quimioterapia", "medication": "Cisplatino + Etopósido",
				"startDate": "2024-01-01", "endDate": "2024-03-01",
				"cycles": 6, "currentCycle": 3,
				"status": "En progreso", "sideEffects": "Náuseas leves, fatiga",
			},
		},
		Alerts: []map[string]any{
			{
				"id": 1, "patientId": 1, "patientName": "Juan Pérez",
				"type": "critical", "title": "Temperatura crítica",
				"message": "Temperatura de 39.5°C detectada",
				"timestamp": "2024-01-20T10:30:00", "status": "unresolved", "priority": "high",
			},
			{
				"id": 2, "patientId": 2, "patientName": "María López",
				"type": "warning", "title": "Sensor desconectado",
				"message": "Sensor de signos vitales desconectado",
				"timestamp": "2024-01-20T09:15:00", "status": "unresolved", "priority": "medium",
			},
		},
		Notifications: []map[string]any{
			{
				"id": 1, "type": "critical",
				"message":   "Paciente Juan Pérez - Temperatura crítica: 39.5°C",
				"timestamp": "2024-01-20T10:30:00", "read": false,
			},
			{
				"id": 2, "type": "warning",
				"message":   "Sensor de María López desconectado",
				"timestamp": "2024-01-20T09:15:00", "read": false,
			},
		},
	}
}

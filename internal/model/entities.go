package model

import "time"

// User is the authenticated identity attached to a session.
type User struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// DocumentType discriminates the doctor identity document. Exactly one of
// the DNI/RUC fields is populated, selected by this value.
type DocumentType string

const (
	DocumentTypeDNI DocumentType = "dni"
	DocumentTypeRUC DocumentType = "ruc"
)

// DoctorProfile is the public provider profile, keyed by auth uid.
type DoctorProfile struct {
	UID          string       `json:"uid"`
	Name         string       `json:"name"`
	Email        string       `json:"email"`
	Specialty    string       `json:"specialty"`
	License      string       `json:"license"`
	Phone        string       `json:"phone"`
	DNI          string       `json:"dni,omitempty"`
	RUC          string       `json:"ruc,omitempty"`
	DocumentType DocumentType `json:"documentType"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

type PatientStatus string

const (
	PatientActive    PatientStatus = "Activo"
	PatientInactive  PatientStatus = "Inactivo"
	PatientCancelled PatientStatus = "Cancelado"
)

// MedicalHistoryEntry is append-only from the application's perspective.
type MedicalHistoryEntry struct {
	Date      time.Time `json:"date"`
	Diagnosis string    `json:"diagnosis"`
	Treatment string    `json:"treatment"`
	Notes     string    `json:"notes"`
}

type Patient struct {
	ID             string                `json:"id"`
	Name           string                `json:"name"`
	Age            int                   `json:"age"`
	Gender         string                `json:"gender"`
	Phone          string                `json:"phone"`
	Email          string                `json:"email"`
	BloodType      string                `json:"bloodType"`
	Allergies      []string              `json:"allergies"`
	LastVisit      time.Time             `json:"lastVisit"`
	Status         PatientStatus         `json:"status"`
	MedicalHistory []MedicalHistoryEntry `json:"medicalHistory"`
	Diagnosis      string                `json:"diagnosis,omitempty"`
	CreatedAt      time.Time             `json:"createdAt"`
	UpdatedAt      time.Time             `json:"updatedAt"`
}

type AppointmentType string

const (
	AppointmentConsultation AppointmentType = "Consulta"
	AppointmentFollowUp     AppointmentType = "Seguimiento"
	AppointmentProcedure    AppointmentType = "Procedimiento"
	AppointmentEmergency    AppointmentType = "Emergencia"
)

type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "Programada"
	AppointmentCompleted AppointmentStatus = "Completada"
	AppointmentCancelled AppointmentStatus = "Cancelada"
	AppointmentNoShow    AppointmentStatus = "No Presentó"
)

// Appointment denormalizes the patient name at creation time; it is not
// kept in sync with later patient renames.
type Appointment struct {
	ID          string            `json:"id"`
	PatientID   string            `json:"patientId"`
	PatientName string            `json:"patientName"`
	Date        time.Time         `json:"date"`
	Time        string            `json:"time"`
	Type        AppointmentType   `json:"type"`
	Status      AppointmentStatus `json:"status"`
	Notes       string            `json:"notes"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

type AlertStatus string

const (
	AlertPending      AlertStatus = "pending"
	AlertAcknowledged AlertStatus = "acknowledged"
	AlertResolved     AlertStatus = "resolved"
)

type Alert struct {
	ID             string      `json:"id"`
	PatientID      string      `json:"patientId"`
	PatientName    string      `json:"patientName"`
	Type           string      `json:"type"`
	Message        string      `json:"message"`
	Severity       string      `json:"severity"`
	Status         AlertStatus `json:"status"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
	AcknowledgedAt *time.Time  `json:"acknowledgedAt,omitempty"`
}

const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// AlertThresholds is the per-doctor vital-sign settings singleton.
type AlertThresholds struct {
	TemperatureHigh   float64 `json:"temperatureHigh"`
	TemperatureLow    float64 `json:"temperatureLow"`
	BloodPressureHigh float64 `json:"bloodPressureHigh"`
	BloodPressureLow  float64 `json:"bloodPressureLow"`
	HeartRateHigh     float64 `json:"heartRateHigh"`
	HeartRateLow      float64 `json:"heartRateLow"`
	OxygenLow         float64 `json:"oxygenLow"`
	GlucoseLow        float64 `json:"glucoseLow"`
	GlucoseHigh       float64 `json:"glucoseHigh"`
}

// DefaultThresholds are used when a doctor has no thresholds document yet.
func DefaultThresholds() AlertThresholds {
	return AlertThresholds{
		TemperatureHigh:   38.5,
		TemperatureLow:    36.0,
		BloodPressureHigh: 160,
		BloodPressureLow:  90,
		HeartRateHigh:     120,
		HeartRateLow:      50,
		OxygenLow:         92,
		GlucoseLow:        70,
		GlucoseHigh:       180,
	}
}

type Medication struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
	Status    string `json:"status"`
}

type LabControl struct {
	Test      string    `json:"test"`
	Frequency string    `json:"frequency"`
	NextDate  time.Time `json:"nextDate"`
}

type Symptom struct {
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Severity     string    `json:"severity"`
	Frequency    string    `json:"frequency"`
	ReportedDate time.Time `json:"reportedDate"`
}

type TreatmentStatus string

const (
	TreatmentInProgress TreatmentStatus = "En progreso"
	TreatmentCompleted  TreatmentStatus = "Completado"
	TreatmentSuspended  TreatmentStatus = "Suspendido"
	TreatmentPaused     TreatmentStatus = "En pausa"
)

// Treatment holds nested medication/control/symptom collections that are
// replaced wholesale on update, not merged element by element.
type Treatment struct {
	ID            string          `json:"id"`
	PatientID     string          `json:"patientId"`
	PatientName   string          `json:"patientName"`
	TreatmentName string          `json:"treatmentName"`
	Status        TreatmentStatus `json:"status"`
	Priority      string          `json:"priority"`
	StartDate     time.Time       `json:"startDate"`
	EndDate       *time.Time      `json:"endDate,omitempty"`
	Duration      string          `json:"duration"`
	Medications   []Medication    `json:"medications"`
	Controls      []LabControl    `json:"controls"`
	Symptoms      []Symptom       `json:"symptoms"`
	NextVisit     time.Time       `json:"nextVisit"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

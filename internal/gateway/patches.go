package gateway

import (
	"time"

	"github.com/oncontrol/platform/internal/model"
)

// Patch types carry partial updates. Only non-nil fields reach the store;
// everything else on the remote document is left untouched.

type PatientPatch struct {
	Name           *string                      `json:"name,omitempty"`
	Age            *int                         `json:"age,omitempty"`
	Gender         *string                      `json:"gender,omitempty"`
	Phone          *string                      `json:"phone,omitempty"`
	Email          *string                      `json:"email,omitempty"`
	BloodType      *string                      `json:"bloodType,omitempty"`
	Allergies      *[]string                    `json:"allergies,omitempty"`
	Diagnosis      *string                      `json:"diagnosis,omitempty"`
	Status         *model.PatientStatus         `json:"status,omitempty"`
	LastVisit      *time.Time                   `json:"lastVisit,omitempty"`
	MedicalHistory *[]model.MedicalHistoryEntry `json:"medicalHistory,omitempty"`
}

type AppointmentPatch struct {
	PatientID   *string                  `json:"patientId,omitempty"`
	PatientName *string                  `json:"patientName,omitempty"`
	Date        *time.Time               `json:"date,omitempty"`
	Time        *string                  `json:"time,omitempty"`
	Type        *model.AppointmentType   `json:"type,omitempty"`
	Status      *model.AppointmentStatus `json:"status,omitempty"`
	Notes       *string                  `json:"notes,omitempty"`
}

type AlertPatch struct {
	Message        *string            `json:"message,omitempty"`
	Type           *string            `json:"type,omitempty"`
	Severity       *string            `json:"severity,omitempty"`
	Status         *model.AlertStatus `json:"status,omitempty"`
	AcknowledgedAt *time.Time         `json:"acknowledgedAt,omitempty"`
}

type TreatmentPatch struct {
	TreatmentName *string                `json:"treatmentName,omitempty"`
	Status        *model.TreatmentStatus `json:"status,omitempty"`
	Priority      *string                `json:"priority,omitempty"`
	StartDate     *time.Time             `json:"startDate,omitempty"`
	EndDate       *time.Time             `json:"endDate,omitempty"`
	Duration      *string                `json:"duration,omitempty"`
	Medications   *[]model.Medication    `json:"medications,omitempty"`
	Controls      *[]model.LabControl    `json:"controls,omitempty"`
	Symptoms      *[]model.Symptom       `json:"symptoms,omitempty"`
	NextVisit     *time.Time             `json:"nextVisit,omitempty"`
}

type ThresholdsPatch struct {
	TemperatureHigh   *float64 `json:"temperatureHigh,omitempty"`
	TemperatureLow    *float64 `json:"temperatureLow,omitempty"`
	BloodPressureHigh *float64 `json:"bloodPressureHigh,omitempty"`
	BloodPressureLow  *float64 `json:"bloodPressureLow,omitempty"`
	HeartRateHigh     *float64 `json:"heartRateHigh,omitempty"`
	HeartRateLow      *float64 `json:"heartRateLow,omitempty"`
	OxygenLow         *float64 `json:"oxygenLow,omitempty"`
	GlucoseLow        *float64 `json:"glucoseLow,omitempty"`
	GlucoseHigh       *float64 `json:"glucoseHigh,omitempty"`
}

// Ptr builds a pointer for patch literals.
func Ptr[T any](v T) *T { return &v }

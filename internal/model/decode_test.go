package model

import (
	"testing"
	"time"
)

func TestCoerceTimeFormats(t *testing.T) {
	want := time.Date(2024, 1, 22, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		in   any
	}{
		{"rfc3339", "2024-01-22T10:00:00Z"},
		{"unix seconds", float64(want.Unix())},
		{"unix millis", float64(want.UnixMilli())},
		{"seconds object", map[string]any{"seconds": float64(want.Unix()), "nanos": float64(0)}},
		{"time value", want},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := coerceTime(tc.in)
			if !ok {
				t.Fatalf("expected %v to coerce", tc.in)
			}
			if !got.Equal(want) {
				t.Fatalf("expected %v, got %v", want, got)
			}
		})
	}
}

func TestCoerceTimeRejectsGarbage(t *testing.T) {
	for _, in := range []any{nil, "not a date", float64(0), map[string]any{"foo": 1}, true} {
		if _, ok := coerceTime(in); ok {
			t.Fatalf("expected %v to fail coercion", in)
		}
	}
}

func TestPatientFromSnapshotDefaultsDates(t *testing.T) {
	before := time.Now()
	p, err := PatientFromSnapshot("p1", map[string]any{
		"name":   "Juan Pérez",
		"age":    float64(45),
		"status": "Activo",
		"medicalHistory": []any{
			map[string]any{"diagnosis": "Cáncer de pulmón", "treatment": "Quimioterapia", "notes": ""},
		},
		// createdAt/updatedAt/lastVisit intentionally missing: a freshly
		// written document may not have round-tripped its timestamps yet
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if p.ID != "p1" || p.Name != "Juan Pérez" || p.Age != 45 {
		t.Fatalf("unexpected patient %+v", p)
	}
	for name, ts := range map[string]time.Time{
		"lastVisit": p.LastVisit, "createdAt": p.CreatedAt, "updatedAt": p.UpdatedAt,
		"history date": p.MedicalHistory[0].Date,
	} {
		if ts.Before(before.Add(-time.Second)) || ts.IsZero() {
			t.Fatalf("expected %s to default to now, got %v", name, ts)
		}
	}
	if p.Allergies == nil {
		t.Fatal("expected empty allergy list, not nil")
	}
}

func TestPatientFromSnapshotDoesNotMutateInput(t *testing.T) {
	entry := map[string]any{"diagnosis": "x"}
	data := map[string]any{"name": "A", "medicalHistory": []any{entry}}
	if _, err := PatientFromSnapshot("p1", data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := data["createdAt"]; ok {
		t.Fatal("input snapshot was mutated")
	}
	if _, ok := entry["date"]; ok {
		t.Fatal("nested input entry was mutated")
	}
}

func TestAlertFromSnapshotOptionalAcknowledgedAt(t *testing.T) {
	a, err := AlertFromSnapshot("a1", map[string]any{
		"patientId": "p1",
		"status":    "pending",
		"createdAt": "2024-01-20T10:30:00Z",
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if a.AcknowledgedAt != nil {
		t.Fatal("expected acknowledgedAt to stay absent")
	}

	ack, err := AlertFromSnapshot("a2", map[string]any{
		"status":         "acknowledged",
		"acknowledgedAt": "2024-01-20T11:00:00Z",
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ack.AcknowledgedAt == nil || !ack.AcknowledgedAt.Equal(time.Date(2024, 1, 20, 11, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected acknowledgedAt %v", ack.AcknowledgedAt)
	}
}

func TestTreatmentFromSnapshotNestedDates(t *testing.T) {
	tr, err := TreatmentFromSnapshot("t1", map[string]any{
		"patientId":     "p1",
		"treatmentName": "Quimioterapia",
		"startDate":     "2024-01-01T00:00:00Z",
		"controls": []any{
			map[string]any{"test": "Hemograma", "frequency": "Semanal", "nextDate": float64(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC).Unix())},
		},
		"symptoms": []any{
			map[string]any{"name": "Náuseas", "severity": "low"},
		},
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tr.EndDate != nil {
		t.Fatal("expected endDate absent")
	}
	if tr.Controls[0].NextDate != time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC) {
		t.Fatalf("unexpected control nextDate %v", tr.Controls[0].NextDate)
	}
	if tr.Symptoms[0].ReportedDate.IsZero() {
		t.Fatal("expected symptom reportedDate defaulted to now")
	}
}

func TestDoctorProfileFromSnapshotDiscriminant(t *testing.T) {
	p, err := DoctorProfileFromSnapshot("u1", map[string]any{
		"name":         "Dra. María González",
		"specialty":    "oncologia-medica",
		"documentType": "dni",
		"dni":          "12345678",
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.UID != "u1" || p.DocumentType != DocumentTypeDNI || p.DNI != "12345678" || p.RUC != "" {
		t.Fatalf("unexpected profile %+v", p)
	}
}

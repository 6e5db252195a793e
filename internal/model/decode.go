package model

import (
	"encoding/json"
	"time"
)

// Documents come back from the store as raw JSON objects. Date fields may
// be RFC3339 strings, plain dates, unix seconds/milliseconds, or a
// {seconds,nanos} object written by older clients. Decoding normalizes all
// of them to time.Time: required dates default to "now" when missing,
// optional dates stay absent.

func coerceTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
			if ts, err := time.Parse(layout, t); err == nil {
				return ts, true
			}
		}
	case float64:
		if t <= 0 {
			return time.Time{}, false
		}
		// values past the year 33658 in seconds are taken as milliseconds
		if t > 1e12 {
			return time.UnixMilli(int64(t)), true
		}
		return time.Unix(int64(t), 0), true
	case int64:
		return coerceTime(float64(t))
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return coerceTime(f)
		}
	case map[string]any:
		if secs, ok := t["seconds"]; ok {
			return coerceTime(secs)
		}
	}
	return time.Time{}, false
}

func normalizeRequired(data map[string]any, now time.Time, keys ...string) {
	for _, key := range keys {
		if ts, ok := coerceTime(data[key]); ok {
			data[key] = ts.Format(time.RFC3339Nano)
		} else {
			data[key] = now.Format(time.RFC3339Nano)
		}
	}
}

func normalizeOptional(data map[string]any, keys ...string) {
	for _, key := range keys {
		if ts, ok := coerceTime(data[key]); ok {
			data[key] = ts.Format(time.RFC3339Nano)
		} else {
			delete(data, key)
		}
	}
}

// normalizeNested rewrites date fields inside a slice of objects, copying
// the slice so the caller's snapshot is left untouched.
func normalizeNested(data map[string]any, key string, fix func(entry map[string]any)) {
	raw, ok := data[key].([]any)
	if !ok {
		return
	}
	out := make([]any, 0, len(raw))
	for _, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			out = append(out, item)
			continue
		}
		cp := make(map[string]any, len(entry))
		for k, v := range entry {
			cp[k] = v
		}
		fix(cp)
		out = append(out, cp)
	}
	data[key] = out
}

func clone(data map[string]any) map[string]any {
	cp := make(map[string]any, len(data))
	for k, v := range data {
		cp[k] = v
	}
	return cp
}

func decodeInto(data map[string]any, out any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

// DoctorProfileFromSnapshot decodes a public doctor document.
func DoctorProfileFromSnapshot(uid string, data map[string]any) (DoctorProfile, error) {
	d := clone(data)
	normalizeRequired(d, time.Now(), "createdAt", "updatedAt")

	var p DoctorProfile
	if err := decodeInto(d, &p); err != nil {
		return DoctorProfile{}, err
	}
	if p.UID == "" {
		p.UID = uid
	}
	return p, nil
}

// PatientFromSnapshot decodes one patient document from a collection push.
func PatientFromSnapshot(id string, data map[string]any) (Patient, error) {
	d := clone(data)
	now := time.Now()
	normalizeRequired(d, now, "lastVisit", "createdAt", "updatedAt")
	normalizeNested(d, "medicalHistory", func(entry map[string]any) {
		normalizeRequired(entry, now, "date")
	})

	var p Patient
	if err := decodeInto(d, &p); err != nil {
		return Patient{}, err
	}
	p.ID = id
	if p.Allergies == nil {
		p.Allergies = []string{}
	}
	if p.MedicalHistory == nil {
		p.MedicalHistory = []MedicalHistoryEntry{}
	}
	return p, nil
}

// AppointmentFromSnapshot decodes one appointment document.
func AppointmentFromSnapshot(id string, data map[string]any) (Appointment, error) {
	d := clone(data)
	normalizeRequired(d, time.Now(), "date", "createdAt", "updatedAt")

	var a Appointment
	if err := decodeInto(d, &a); err != nil {
		return Appointment{}, err
	}
	a.ID = id
	return a, nil
}

// AlertFromSnapshot decodes one alert document. acknowledgedAt is only set
// once the alert transitions to acknowledged, so it stays absent otherwise.
func AlertFromSnapshot(id string, data map[string]any) (Alert, error) {
	d := clone(data)
	normalizeRequired(d, time.Now(), "createdAt", "updatedAt")
	normalizeOptional(d, "acknowledgedAt")

	var a Alert
	if err := decodeInto(d, &a); err != nil {
		return Alert{}, err
	}
	a.ID = id
	return a, nil
}

// TreatmentFromSnapshot decodes one treatment document including its nested
// medication, lab-control, and symptom collections.
func TreatmentFromSnapshot(id string, data map[string]any) (Treatment, error) {
	d := clone(data)
	now := time.Now()
	normalizeRequired(d, now, "startDate", "nextVisit", "createdAt", "updatedAt")
	normalizeOptional(d, "endDate")
	normalizeNested(d, "controls", func(entry map[string]any) {
		normalizeRequired(entry, now, "nextDate")
	})
	normalizeNested(d, "symptoms", func(entry map[string]any) {
		normalizeRequired(entry, now, "reportedDate")
	})

	var t Treatment
	if err := decodeInto(d, &t); err != nil {
		return Treatment{}, err
	}
	t.ID = id
	if t.Medications == nil {
		t.Medications = []Medication{}
	}
	if t.Controls == nil {
		t.Controls = []LabControl{}
	}
	if t.Symptoms == nil {
		t.Symptoms = []Symptom{}
	}
	return t, nil
}

// ThresholdsFromSnapshot decodes the settings singleton.
func ThresholdsFromSnapshot(data map[string]any) (AlertThresholds, error) {
	var th AlertThresholds
	if err := decodeInto(data, &th); err != nil {
		return AlertThresholds{}, err
	}
	return th, nil
}

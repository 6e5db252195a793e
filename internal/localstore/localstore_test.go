package localstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oncontrol/platform/pkg/logging"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "oncontrol.db"), logging.Default())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoadReturnsDefaultsWhenEmpty(t *testing.T) {
	s := newTestStore(t)

	d, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, d.Patients, 2)
	require.Equal(t, "Juan Pérez", d.Patients[0]["name"])
	require.Len(t, d.Notifications, 2)
}

func TestSaveRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	d := DefaultData()
	d.Patients = append(d.Patients, map[string]any{"id": 3, "name": "Carlos Ruiz"})
	require.NoError(t, s.Save(ctx, d))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got.Patients, 3)
	require.Equal(t, "Carlos Ruiz", got.Patients[2]["name"])
}

func TestAddItemAssignsNextID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.AddItem(ctx, SectionAppointments, map[string]any{
		"patientId": 1, "patientName": "Juan Pérez", "time": "16:00",
	})
	require.NoError(t, err)
	require.Equal(t, 3, id, "defaults carry ids 1 and 2")

	d, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, d.Appointments, 3)
}

func TestAddItemIntoEmptySection(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	d := DefaultData()
	d.Treatments = nil
	require.NoError(t, s.Save(ctx, d))

	id, err := s.AddItem(ctx, SectionTreatments, map[string]any{"patientId": 2})
	require.NoError(t, err)
	require.Equal(t, 1, id)
}

func TestPatchItemMerges(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PatchItem(ctx, SectionAlerts, 1, map[string]any{"status": "resolved"}))

	d, err := s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "resolved", d.Alerts[0]["status"])
	require.Equal(t, "Temperatura crítica", d.Alerts[0]["title"], "untouched fields survive the patch")

	require.ErrorIs(t, s.PatchItem(ctx, SectionAlerts, 99, map[string]any{"status": "resolved"}), ErrItemNotFound)
}

func TestUpdateSectionReplacesWholesale(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpdateSection(ctx, SectionNotifications, []map[string]any{
		{"id": 1, "type": "info", "message": "todo en orden", "read": true},
	}))

	d, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, d.Notifications, 1)
	require.Equal(t, true, d.Notifications[0]["read"])

	require.Error(t, s.UpdateSection(ctx, "bogus", nil))
}

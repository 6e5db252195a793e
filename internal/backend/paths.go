package backend

import "fmt"

// The store's path-addressing convention. Doctor profiles live in one
// public collection keyed by auth uid; everything else is scoped per user.

const (
	CollectionPatients     = "patients"
	CollectionAppointments = "appointments"
	CollectionAlerts       = "alerts"
	CollectionTreatments   = "treatments"
	CollectionSettings     = "settings"

	// ThresholdsDocID is the fixed id of the settings singleton.
	ThresholdsDocID = "thresholds"
)

// DoctorsPath returns the public providers collection path.
func DoctorsPath(appID string) string {
	return fmt.Sprintf("artifacts/%s/public/data/doctors", appID)
}

// UserCollectionPath returns the per-user collection path for one of the
// scoped collections (patients, appointments, alerts, treatments, settings).
func UserCollectionPath(appID, uid, collection string) string {
	return fmt.Sprintf("artifacts/%s/users/%s/%s", appID, uid, collection)
}

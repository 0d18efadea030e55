package model

import "time"

// OrphanedIdentity is an identity whose account records were never written
// and whose inline deletion failed. Cleanup workers retry the deletion.
type OrphanedIdentity struct {
	UID        string
	Email      string
	Reason     string
	Attempts   int
	EnqueuedAt time.Time
}

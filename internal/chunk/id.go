package chunk

import "github.com/google/uuid"

// NewTrackingRunID returns a fresh run identifier, stamped into every
// OTTRK artifact's metadata.tracking.tracking_run_id so artifacts from
// distinct runs are distinguishable even if track ids collide.
func NewTrackingRunID() string {
	return uuid.NewString()
}

// Package directory provides type-safe definitions and Redis schema patterns
// for the presence directory. The directory is the shared state system where
// every participant publishes a status record and observes everyone else's,
// one record per (tenant, username).
//
// All Redis keys, channels and search indexes are namespaced by tenant prefix
// so that multiple participant groups can safely share a single Redis server.
package directory

import (
	"fmt"
	"strings"
)

// Status is a participant's coarse availability.
type Status string

const (
	// StatusAvailable indicates the participant is free.
	StatusAvailable Status = "Available"

	// StatusBusy indicates the participant should not be interrupted.
	StatusBusy Status = "Busy"

	// StatusAway indicates the participant is not at their desk.
	StatusAway Status = "Away"
)

// Validate returns an error if the status is not one of the three known values.
func (s Status) Validate() error {
	switch s {
	case StatusAvailable, StatusBusy, StatusAway:
		return nil
	default:
		return fmt.Errorf("invalid status %q: must be one of %s, %s, %s",
			string(s), StatusAvailable, StatusBusy, StatusAway)
	}
}

// DefaultIcon is the sentinel icon used when no icon could be resolved for a
// status message (empty message, missing icon index, embedder unavailable).
const DefaultIcon = "circle"

// Location is a geographic point. Longitude comes first everywhere in this
// codebase: in struct order, in WKT literals, and in the boundary files.
type Location struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// StatusRecord is the persisted state for one user within one tenant.
// A record is created on the user's first write and fully replaced on each
// subsequent write. Records are never expired: a disconnected user's last
// status persists indefinitely.
type StatusRecord struct {
	Username string    `json:"username"`           // Unique within the tenant
	Status   Status    `json:"status"`             // Available, Busy or Away
	Message  string    `json:"message"`            // Free text, may be empty
	Icon     string    `json:"icon"`               // Resolved icon name, DefaultIcon when unresolved
	Location *Location `json:"location,omitempty"` // Present iff both coordinates were supplied together
}

// Validate checks the record invariants: username present, known status.
// A nil Location is valid (the record is simply not geolocated); a non-nil
// Location always carries both coordinates by construction.
func (r *StatusRecord) Validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if err := r.Status.Validate(); err != nil {
		return err
	}
	return nil
}

// Package store persists incident records. Backends share one contract:
// keyed lookup by incident ID, an open-incidents query per scenario, and a
// conditional resolve that only succeeds while the incident is still OPEN.
package store

import (
	"context"
	"errors"

	"github.com/telhawk-systems/mfa-sentinel/internal/models"
)

var (
	// ErrNotFound is returned when no incident exists for the given ID.
	ErrNotFound = errors.New("incident not found")

	// ErrPreconditionFailed is returned by Resolve when the incident is no
	// longer OPEN; the transition already happened elsewhere.
	ErrPreconditionFailed = errors.New("incident is not open")
)

// Store defines the incident persistence contract.
type Store interface {
	// Put persists a new incident record.
	Put(ctx context.Context, inc *models.Incident) error

	// GetByID retrieves an incident by its ID.
	GetByID(ctx context.Context, id string) (*models.Incident, error)

	// QueryOpen returns all OPEN incidents for the given scenario.
	QueryOpen(ctx context.Context, scenario models.Scenario) ([]*models.Incident, error)

	// Resolve transitions an incident to RESOLVED, applying the resolution
	// fields, only if its status is still OPEN. Returns
	// ErrPreconditionFailed if the condition no longer holds.
	Resolve(ctx context.Context, id string, r *models.Resolution) error

	// Ping verifies backend connectivity.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

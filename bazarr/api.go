package bazarr

import (
	"context"
)

// API defines the Bazarr operations the monitor depends on
type API interface {
	// Validate checks cfg against /api/system/status
	Validate(ctx context.Context, cfg ConnectionConfig) Outcome

	// Fetch assembles a Snapshot from badges, health and status
	Fetch(ctx context.Context, cfg ConnectionConfig) (Snapshot, error)
}

var _ API = (*Client)(nil)

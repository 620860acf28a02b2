package bazarr

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Fetch retrieves badges, health and status concurrently and merges them into
// a Snapshot. Any failing call cancels the others and no Snapshot is returned.
func (c *Client) Fetch(ctx context.Context, cfg ConnectionConfig) (Snapshot, error) {
	var (
		badges badgesResponse
		health healthResponse
		status statusResponse
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return c.fetchEndpoint(gctx, cfg, endpointBadges, &badges)
	})
	g.Go(func() error {
		return c.fetchEndpoint(gctx, cfg, endpointHealth, &health)
	})
	g.Go(func() error {
		return c.fetchEndpoint(gctx, cfg, endpointStatus, &status)
	})

	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}

	snap := buildSnapshot(badges, health, status)

	c.logger.Debug().
		Int("wanted_movies", snap.WantedMovies).
		Int("wanted_episodes", snap.WantedEpisodes).
		Int("health_issues", len(snap.HealthIssues)).
		Str("version", snap.Version).
		Msg("Fetched Bazarr snapshot")

	return snap, nil
}

func (c *Client) fetchEndpoint(ctx context.Context, cfg ConnectionConfig, endpoint string, dest any) error {
	if err := c.getJSON(ctx, cfg, endpoint, dest); err != nil {
		return &FetchError{Endpoint: endpoint, Err: err}
	}
	return nil
}

// buildSnapshot applies the defaulting rules to three decoded responses
func buildSnapshot(badges badgesResponse, health healthResponse, status statusResponse) Snapshot {
	snap := Snapshot{
		WantedMovies:   max(badges.Movies, 0),
		WantedEpisodes: max(badges.Episodes, 0),
		HealthIssues:   health.Data,
		Version:        UnknownVersion,
	}

	if snap.HealthIssues == nil {
		snap.HealthIssues = []any{}
	}
	if status.Data != nil {
		snap.Version = versionString(status.Data.BazarrVersion)
	}

	return snap
}

// versionString renders the reported version; null or absent is UnknownVersion
func versionString(v any) string {
	switch val := v.(type) {
	case nil:
		return UnknownVersion
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}

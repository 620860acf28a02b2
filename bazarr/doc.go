// Package bazarr provides a client for the parts of the Bazarr API needed to
// monitor an instance.
//
// Bazarr manages subtitles for Sonarr and Radarr libraries. This package
// validates credentials against an instance and assembles a Snapshot of its
// state from three endpoints.
//
// # Usage
//
//	client := bazarr.NewClient(logger, bazarr.WithTimeout(10*time.Second))
//	cfg := bazarr.NewConnectionConfig("http://bazarr:6767", "api-key")
//
//	switch client.Validate(ctx, cfg) {
//	case bazarr.OutcomeInvalidAPIKey:
//		// ask for a new key
//	case bazarr.OutcomeCannotConnect:
//		// try again later
//	}
//
//	snap, err := client.Fetch(ctx, cfg)
//
// # Error Handling
//
// Fetch either returns a complete Snapshot or a *FetchError naming the
// endpoint that failed. Non-2xx responses surface as *APIError:
//
//	var apiErr *bazarr.APIError
//	if errors.As(err, &apiErr) && apiErr.IsUnauthorized() {
//		// key was revoked
//	}
package bazarr

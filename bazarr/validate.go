package bazarr

import (
	"context"
	"errors"
)

// Outcome classifies a credential check
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeInvalidAPIKey
	OutcomeCannotConnect
)

// Form error codes shown by the setup and reauth flows
const (
	ErrorCodeCannotConnect = "cannot_connect"
	ErrorCodeInvalidAPIKey = "invalid_api_key"
)

// String returns a readable name for the outcome
func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeInvalidAPIKey:
		return ErrorCodeInvalidAPIKey
	default:
		return ErrorCodeCannotConnect
	}
}

// ErrorCode returns the form error code, empty for OutcomeOK
func (o Outcome) ErrorCode() string {
	if o == OutcomeOK {
		return ""
	}
	return o.String()
}

// Validate performs a single status request and classifies the result.
// A 2xx answer without data.bazarr_version counts as OutcomeCannotConnect.
func (c *Client) Validate(ctx context.Context, cfg ConnectionConfig) Outcome {
	var payload struct {
		Data map[string]any `json:"data"`
	}

	err := c.getJSON(ctx, cfg, endpointStatus, &payload)
	if err == nil {
		if _, ok := payload.Data["bazarr_version"]; !ok {
			err = ErrMalformedResponse
		}
	}

	outcome := ClassifyValidationError(err)
	if err != nil {
		c.logger.Debug().Err(err).Str("outcome", outcome.String()).Msg("Bazarr credential check failed")
	}
	return outcome
}

// ClassifyValidationError maps a status check error to an Outcome
func ClassifyValidationError(err error) Outcome {
	if err == nil {
		return OutcomeOK
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.IsUnauthorized() {
		return OutcomeInvalidAPIKey
	}
	return OutcomeCannotConnect
}

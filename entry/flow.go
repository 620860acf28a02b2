package entry

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/s0up4200/bazarrwatch/bazarr"
)

// ResultType is the kind of step a flow ended on
type ResultType string

const (
	ResultForm        ResultType = "form"
	ResultCreateEntry ResultType = "create_entry"
	ResultAbort       ResultType = "abort"
)

// Step and abort identifiers
const (
	StepUser          = "user"
	StepReauthConfirm = "reauth_confirm"

	ReasonAlreadyConfigured = "already_configured"
	ReasonReauthSuccessful  = "reauth_successful"
)

// Validator checks a set of credentials against Bazarr
type Validator interface {
	Validate(ctx context.Context, cfg bazarr.ConnectionConfig) bazarr.Outcome
}

// Result describes where a flow stopped
type Result struct {
	Type         ResultType        `json:"type"`
	StepID       string            `json:"step_id,omitempty"`
	Errors       map[string]string `json:"errors,omitempty"`
	Placeholders map[string]string `json:"description_placeholders,omitempty"`
	Reason       string            `json:"reason,omitempty"`
	Entry        *Entry            `json:"entry,omitempty"`
}

// Succeeded reports whether the flow created or updated an entry
func (r Result) Succeeded() bool {
	return r.Type == ResultCreateEntry || (r.Type == ResultAbort && r.Reason == ReasonReauthSuccessful)
}

// Flow runs the setup and reauth steps against a store
type Flow struct {
	store     *Store
	validator Validator
	logger    zerolog.Logger
}

// NewFlow creates a flow that writes to store after validator accepts
func NewFlow(store *Store, validator Validator, logger zerolog.Logger) *Flow {
	return &Flow{store: store, validator: validator, logger: logger}
}

// Setup adds a new Bazarr instance. An empty url or apiKey returns the
// blank form so the caller can prompt for it.
func (f *Flow) Setup(ctx context.Context, rawURL, apiKey string) (Result, error) {
	if rawURL == "" || apiKey == "" {
		return Result{Type: ResultForm, StepID: StepUser}, nil
	}

	cfg := bazarr.NewConnectionConfig(rawURL, apiKey)

	_, exists, err := f.store.FindByURL(cfg.BaseURL)
	if err != nil {
		return Result{}, fmt.Errorf("failed to look up entries: %w", err)
	}
	if exists {
		return Result{Type: ResultAbort, Reason: ReasonAlreadyConfigured}, nil
	}

	if outcome := f.validator.Validate(ctx, cfg); outcome != bazarr.OutcomeOK {
		f.logger.Warn().Str("url", cfg.BaseURL).Str("error", outcome.ErrorCode()).Msg("Setup rejected")
		return Result{
			Type:   ResultForm,
			StepID: StepUser,
			Errors: map[string]string{"base": outcome.ErrorCode()},
		}, nil
	}

	e, err := f.store.Create(entryTitle(cfg.BaseURL), cfg.BaseURL, cfg.APIKey)
	if errors.Is(err, ErrAlreadyConfigured) {
		return Result{Type: ResultAbort, Reason: ReasonAlreadyConfigured}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("failed to create entry: %w", err)
	}

	f.logger.Info().Str("entry", e.ID).Str("url", e.URL).Msg("Bazarr instance configured")
	return Result{Type: ResultCreateEntry, Entry: &e}, nil
}

// Reauth replaces the API key of entry id once Bazarr accepts it. The stored
// URL is always used; an empty apiKey returns the confirmation form.
func (f *Flow) Reauth(ctx context.Context, id, apiKey string) (Result, error) {
	e, err := f.store.Get(id)
	if err != nil {
		return Result{}, err
	}

	form := Result{
		Type:         ResultForm,
		StepID:       StepReauthConfirm,
		Placeholders: map[string]string{"api_token_url": e.URL + "/settings/general"},
	}

	if apiKey == "" {
		return form, nil
	}

	if outcome := f.validator.Validate(ctx, bazarr.NewConnectionConfig(e.URL, apiKey)); outcome != bazarr.OutcomeOK {
		f.logger.Warn().Str("entry", e.ID).Str("error", outcome.ErrorCode()).Msg("Reauth rejected")
		form.Errors = map[string]string{"base": outcome.ErrorCode()}
		return form, nil
	}

	updated, err := f.store.UpdateAPIKey(e.ID, apiKey)
	if err != nil {
		return Result{}, fmt.Errorf("failed to update entry: %w", err)
	}

	f.logger.Info().Str("entry", updated.ID).Msg("Bazarr API key replaced")
	return Result{Type: ResultAbort, Reason: ReasonReauthSuccessful, Entry: &updated}, nil
}

func entryTitle(baseURL string) string {
	host := baseURL
	if u, err := url.Parse(baseURL); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}
	return fmt.Sprintf("Bazarr (%s)", host)
}

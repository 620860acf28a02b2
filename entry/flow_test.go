package entry

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/bazarrwatch/bazarr"
)

type fakeValidator struct {
	mu      sync.Mutex
	outcome bazarr.Outcome
	calls   []bazarr.ConnectionConfig
}

func (f *fakeValidator) Validate(_ context.Context, cfg bazarr.ConnectionConfig) bazarr.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, cfg)
	return f.outcome
}

func newTestFlow(t *testing.T, outcome bazarr.Outcome) (*Flow, *Store, *fakeValidator) {
	t.Helper()
	s := openTestStore(t)
	v := &fakeValidator{outcome: outcome}
	return NewFlow(s, v, zerolog.Nop()), s, v
}

func TestFlow_Setup(t *testing.T) {
	tests := []struct {
		name     string
		outcome  bazarr.Outcome
		wantType ResultType
		wantErr  string
	}{
		{name: "ok", outcome: bazarr.OutcomeOK, wantType: ResultCreateEntry},
		{name: "invalid key", outcome: bazarr.OutcomeInvalidAPIKey, wantType: ResultForm, wantErr: "invalid_api_key"},
		{name: "cannot connect", outcome: bazarr.OutcomeCannotConnect, wantType: ResultForm, wantErr: "cannot_connect"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow, store, v := newTestFlow(t, tt.outcome)

			res, err := flow.Setup(context.Background(), "http://bazarr.local:6767/", "secret")
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, res.Type)
			require.Len(t, v.calls, 1)
			assert.Equal(t, "http://bazarr.local:6767", v.calls[0].BaseURL)
			assert.Equal(t, "secret", v.calls[0].APIKey)

			entries, err := store.List()
			require.NoError(t, err)

			if tt.wantErr != "" {
				assert.Equal(t, StepUser, res.StepID)
				assert.Equal(t, map[string]string{"base": tt.wantErr}, res.Errors)
				assert.Nil(t, res.Entry)
				assert.False(t, res.Succeeded())
				assert.Empty(t, entries)
				return
			}

			require.NotNil(t, res.Entry)
			assert.True(t, res.Succeeded())
			assert.Equal(t, "Bazarr (bazarr.local)", res.Entry.Title)
			assert.Equal(t, "http://bazarr.local:6767", res.Entry.URL)
			assert.Equal(t, "secret", res.Entry.APIKey)
			assert.Len(t, entries, 1)
		})
	}
}

func TestFlow_SetupAlreadyConfigured(t *testing.T) {
	flow, store, v := newTestFlow(t, bazarr.OutcomeOK)

	_, err := store.Create("a", "http://bazarr:6767", "k")
	require.NoError(t, err)

	res, err := flow.Setup(context.Background(), "http://bazarr:6767", "other")
	require.NoError(t, err)
	assert.Equal(t, ResultAbort, res.Type)
	assert.Equal(t, ReasonAlreadyConfigured, res.Reason)
	assert.Empty(t, v.calls)
}

func TestFlow_SetupEmptyInput(t *testing.T) {
	flow, _, v := newTestFlow(t, bazarr.OutcomeOK)

	res, err := flow.Setup(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, ResultForm, res.Type)
	assert.Equal(t, StepUser, res.StepID)
	assert.Empty(t, res.Errors)
	assert.Empty(t, v.calls)
}

func TestFlow_Reauth(t *testing.T) {
	flow, store, v := newTestFlow(t, bazarr.OutcomeOK)

	e, err := store.Create("a", "http://bazarr:6767", "old")
	require.NoError(t, err)

	res, err := flow.Reauth(context.Background(), e.ID, "new")
	require.NoError(t, err)
	assert.Equal(t, ResultAbort, res.Type)
	assert.Equal(t, ReasonReauthSuccessful, res.Reason)
	assert.True(t, res.Succeeded())
	require.NotNil(t, res.Entry)
	assert.Equal(t, "new", res.Entry.APIKey)

	require.Len(t, v.calls, 1)
	assert.Equal(t, "http://bazarr:6767", v.calls[0].BaseURL)
	assert.Equal(t, "new", v.calls[0].APIKey)

	got, err := store.Get(e.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", got.APIKey)
}

func TestFlow_ReauthRejected(t *testing.T) {
	tests := []struct {
		name    string
		outcome bazarr.Outcome
		code    string
	}{
		{name: "invalid key", outcome: bazarr.OutcomeInvalidAPIKey, code: "invalid_api_key"},
		{name: "cannot connect", outcome: bazarr.OutcomeCannotConnect, code: "cannot_connect"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow, store, _ := newTestFlow(t, tt.outcome)

			e, err := store.Create("a", "http://bazarr:6767", "old")
			require.NoError(t, err)

			res, err := flow.Reauth(context.Background(), e.ID, "new")
			require.NoError(t, err)
			assert.Equal(t, ResultForm, res.Type)
			assert.Equal(t, StepReauthConfirm, res.StepID)
			assert.Equal(t, map[string]string{"base": tt.code}, res.Errors)
			assert.Equal(t, "http://bazarr:6767/settings/general", res.Placeholders["api_token_url"])
			assert.False(t, res.Succeeded())

			got, err := store.Get(e.ID)
			require.NoError(t, err)
			assert.Equal(t, "old", got.APIKey)
		})
	}
}

func TestFlow_ReauthEmptyKey(t *testing.T) {
	flow, store, v := newTestFlow(t, bazarr.OutcomeOK)

	e, err := store.Create("a", "http://bazarr", "old")
	require.NoError(t, err)

	res, err := flow.Reauth(context.Background(), e.ID, "")
	require.NoError(t, err)
	assert.Equal(t, ResultForm, res.Type)
	assert.Empty(t, res.Errors)
	assert.Equal(t, "http://bazarr/settings/general", res.Placeholders["api_token_url"])
	assert.Empty(t, v.calls)
}

func TestFlow_ReauthUnknownEntry(t *testing.T) {
	flow, _, _ := newTestFlow(t, bazarr.OutcomeOK)

	_, err := flow.Reauth(context.Background(), "missing", "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEntryTitle(t *testing.T) {
	assert.Equal(t, "Bazarr (bazarr.local)", entryTitle("http://bazarr.local:6767"))
	assert.Equal(t, "Bazarr (10.0.0.5)", entryTitle("https://10.0.0.5/bazarr"))
	assert.Equal(t, "Bazarr (not a url)", entryTitle("not a url"))
}

// Package entity projects coordinator snapshots onto sensor views.
//
// The registry holds no logic beyond field projection: two measurement
// sensors for wanted subtitles, one diagnostic problem sensor for health
// issues and the device metadata they share.
package entity

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/s0up4200/bazarrwatch/bazarr"
	"github.com/s0up4200/bazarrwatch/coordinator"
)

const (
	domain       = "bazarr"
	deviceName   = "Bazarr"
	manufacturer = "Bazarr"

	KeyWantedMovies   = "wanted_movies"
	KeyWantedEpisodes = "wanted_episodes"
	KeyHealth         = "health"

	stateClassMeasurement = "measurement"
	deviceClassProblem    = "problem"
	categoryDiagnostic    = "diagnostic"
)

// Device is the metadata shared by every entity of an entry
type Device struct {
	Identifiers      [][2]string `json:"identifiers"`
	Name             string      `json:"name"`
	Manufacturer     string      `json:"manufacturer"`
	ConfigurationURL string      `json:"configuration_url"`
	SWVersion        string      `json:"sw_version,omitempty"`
}

// Sensor is a numeric entity; Value is nil until the first snapshot
type Sensor struct {
	UniqueID   string `json:"unique_id"`
	Key        string `json:"translation_key"`
	Icon       string `json:"icon"`
	StateClass string `json:"state_class"`
	Value      *int   `json:"native_value"`
}

// BinarySensor is a boolean entity; IsOn is nil until the first snapshot
type BinarySensor struct {
	UniqueID       string         `json:"unique_id"`
	Key            string         `json:"translation_key"`
	DeviceClass    string         `json:"device_class"`
	EntityCategory string         `json:"entity_category"`
	IsOn           *bool          `json:"is_on"`
	Attributes     map[string]any `json:"extra_state_attributes,omitempty"`
}

// States is the full entity view of one entry
type States struct {
	Device        Device         `json:"device"`
	Available     bool           `json:"available"`
	Stale         bool           `json:"stale"`
	Sensors       []Sensor       `json:"sensors"`
	BinarySensors []BinarySensor `json:"binary_sensors"`
}

// Source is the read-only view of the coordinator used by the registry
type Source interface {
	Snapshot() (bazarr.Snapshot, bool)
	Subscribe(coordinator.Listener) coordinator.Subscription
	Unsubscribe(coordinator.Subscription)
}

// Registry keeps entity states in sync with a coordinator
type Registry struct {
	entryID   string
	configURL string
	rule      *ProblemRule
	logger    zerolog.Logger

	source Source
	sub    coordinator.Subscription

	mu      sync.RWMutex
	states  States
	updated bool
}

// NewRegistry builds the entities of entryID and subscribes them to source.
// A nil rule falls back to DefaultProblemExpression.
func NewRegistry(entryID, configURL string, source Source, rule *ProblemRule, logger zerolog.Logger) *Registry {
	if rule == nil {
		rule = MustCompileProblemRule(DefaultProblemExpression)
	}

	r := &Registry{
		entryID:   entryID,
		configURL: configURL,
		rule:      rule,
		logger:    logger,
		source:    source,
	}

	// Subscribe before reading the current snapshot so a refresh landing in
	// between is delivered; a delivered update always wins over the read.
	r.states = r.project(coordinator.Update{})
	r.sub = source.Subscribe(r.apply)

	snap, ok := source.Snapshot()
	initial := r.project(coordinator.Update{Snapshot: snap, HasSnapshot: ok})

	r.mu.Lock()
	if !r.updated {
		r.states = initial
	}
	r.mu.Unlock()

	return r
}

// States returns a copy of the current entity states
func (r *Registry) States() States {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := r.states
	out.Sensors = append([]Sensor(nil), r.states.Sensors...)
	out.BinarySensors = append([]BinarySensor(nil), r.states.BinarySensors...)
	return out
}

// Available reports whether a snapshot is available to project
func (r *Registry) Available() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.states.Available
}

// Close stops listening to the coordinator
func (r *Registry) Close() {
	r.source.Unsubscribe(r.sub)
}

func (r *Registry) apply(update coordinator.Update) {
	states := r.project(update)

	r.mu.Lock()
	r.states = states
	r.updated = true
	r.mu.Unlock()
}

func (r *Registry) project(update coordinator.Update) States {
	device := Device{
		Identifiers:      [][2]string{{domain, r.entryID}},
		Name:             deviceName,
		Manufacturer:     manufacturer,
		ConfigurationURL: r.configURL,
	}

	movies := Sensor{
		UniqueID:   r.entryID + "_" + KeyWantedMovies,
		Key:        KeyWantedMovies,
		Icon:       "mdi:movie-search",
		StateClass: stateClassMeasurement,
	}
	episodes := Sensor{
		UniqueID:   r.entryID + "_" + KeyWantedEpisodes,
		Key:        KeyWantedEpisodes,
		Icon:       "mdi:television-classic",
		StateClass: stateClassMeasurement,
	}
	health := BinarySensor{
		UniqueID:       r.entryID + "_health_issues",
		Key:            KeyHealth,
		DeviceClass:    deviceClassProblem,
		EntityCategory: categoryDiagnostic,
	}

	if update.HasSnapshot {
		snap := update.Snapshot
		device.SWVersion = snap.Version
		movies.Value = &snap.WantedMovies
		episodes.Value = &snap.WantedEpisodes
		health.Attributes = map[string]any{"issues": snap.HealthIssues}

		problem, err := r.rule.Evaluate(snap)
		if err != nil {
			r.logger.Warn().Err(err).Msg("Problem rule failed, falling back to health issue count")
			problem = snap.HasHealthIssues()
		}
		health.IsOn = &problem
	}

	return States{
		Device:        device,
		Available:     update.HasSnapshot,
		Stale:         update.Err != nil,
		Sensors:       []Sensor{movies, episodes},
		BinarySensors: []BinarySensor{health},
	}
}

package entity

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/bazarrwatch/bazarr"
	"github.com/s0up4200/bazarrwatch/coordinator"
)

type fakeSource struct {
	snap      bazarr.Snapshot
	has       bool
	listeners map[coordinator.Subscription]coordinator.Listener
	next      coordinator.Subscription

	// onSubscribe runs after a listener is registered
	onSubscribe func()
}

func newFakeSource() *fakeSource {
	return &fakeSource{listeners: make(map[coordinator.Subscription]coordinator.Listener)}
}

func (f *fakeSource) Snapshot() (bazarr.Snapshot, bool) { return f.snap, f.has }

func (f *fakeSource) Subscribe(l coordinator.Listener) coordinator.Subscription {
	f.next++
	f.listeners[f.next] = l
	if f.onSubscribe != nil {
		f.onSubscribe()
	}
	return f.next
}

func (f *fakeSource) Unsubscribe(sub coordinator.Subscription) { delete(f.listeners, sub) }

func (f *fakeSource) publish(u coordinator.Update) {
	for _, l := range f.listeners {
		l(u)
	}
}

func TestRegistry_BeforeFirstSnapshot(t *testing.T) {
	src := newFakeSource()
	reg := NewRegistry("entry1", "http://bazarr:6767", src, nil, zerolog.Nop())

	states := reg.States()
	assert.False(t, reg.Available())
	assert.False(t, states.Available)
	assert.False(t, states.Stale)
	assert.Equal(t, [][2]string{{"bazarr", "entry1"}}, states.Device.Identifiers)
	assert.Equal(t, "Bazarr", states.Device.Name)
	assert.Equal(t, "Bazarr", states.Device.Manufacturer)
	assert.Equal(t, "http://bazarr:6767", states.Device.ConfigurationURL)
	assert.Empty(t, states.Device.SWVersion)

	require.Len(t, states.Sensors, 2)
	for _, s := range states.Sensors {
		assert.Nil(t, s.Value)
		assert.Equal(t, "measurement", s.StateClass)
	}
	require.Len(t, states.BinarySensors, 1)
	assert.Nil(t, states.BinarySensors[0].IsOn)
	assert.Nil(t, states.BinarySensors[0].Attributes)
}

func TestRegistry_ProjectsSnapshot(t *testing.T) {
	src := newFakeSource()
	src.snap = bazarr.Snapshot{
		WantedMovies:   3,
		WantedEpisodes: 7,
		HealthIssues:   []any{map[string]any{"object": "disk", "issue": "full"}, "Sonarr unreachable"},
		Version:        "1.4.0",
	}
	src.has = true

	reg := NewRegistry("abc", "http://bazarr:6767", src, nil, zerolog.Nop())
	states := reg.States()

	assert.True(t, reg.Available())
	assert.True(t, states.Available)
	assert.Equal(t, "1.4.0", states.Device.SWVersion)

	movies, episodes := states.Sensors[0], states.Sensors[1]
	assert.Equal(t, "abc_wanted_movies", movies.UniqueID)
	assert.Equal(t, "mdi:movie-search", movies.Icon)
	require.NotNil(t, movies.Value)
	assert.Equal(t, 3, *movies.Value)

	assert.Equal(t, "abc_wanted_episodes", episodes.UniqueID)
	assert.Equal(t, "mdi:television-classic", episodes.Icon)
	require.NotNil(t, episodes.Value)
	assert.Equal(t, 7, *episodes.Value)

	health := states.BinarySensors[0]
	assert.Equal(t, "abc_health_issues", health.UniqueID)
	assert.Equal(t, "problem", health.DeviceClass)
	assert.Equal(t, "diagnostic", health.EntityCategory)
	require.NotNil(t, health.IsOn)
	assert.True(t, *health.IsOn)
	assert.Equal(t, src.snap.HealthIssues, health.Attributes["issues"])
}

func TestRegistry_FollowsUpdates(t *testing.T) {
	src := newFakeSource()
	reg := NewRegistry("abc", "http://bazarr", src, nil, zerolog.Nop())

	src.publish(coordinator.Update{
		Snapshot:    bazarr.Snapshot{WantedMovies: 1, Version: bazarr.UnknownVersion},
		HasSnapshot: true,
	})

	states := reg.States()
	assert.True(t, states.Available)
	assert.False(t, states.Stale)
	assert.Equal(t, 1, *states.Sensors[0].Value)
	assert.False(t, *states.BinarySensors[0].IsOn)

	src.publish(coordinator.Update{
		Snapshot:    bazarr.Snapshot{WantedMovies: 1, Version: bazarr.UnknownVersion},
		HasSnapshot: true,
		Err:         errors.New("boom"),
	})

	states = reg.States()
	assert.True(t, states.Available)
	assert.True(t, states.Stale)
	assert.Equal(t, 1, *states.Sensors[0].Value)
}

func TestRegistry_RefreshDuringSubscribe(t *testing.T) {
	src := newFakeSource()
	src.onSubscribe = func() {
		src.snap = bazarr.Snapshot{WantedMovies: 4, Version: "1.4.3"}
		src.has = true
	}

	reg := NewRegistry("abc", "http://bazarr", src, nil, zerolog.Nop())

	states := reg.States()
	assert.True(t, reg.Available())
	require.NotNil(t, states.Sensors[0].Value)
	assert.Equal(t, 4, *states.Sensors[0].Value)
	assert.Equal(t, "1.4.3", states.Device.SWVersion)
}

func TestRegistry_UpdateDuringSubscribeWins(t *testing.T) {
	src := newFakeSource()
	src.onSubscribe = func() {
		src.publish(coordinator.Update{
			Snapshot:    bazarr.Snapshot{WantedEpisodes: 9, Version: "2.0"},
			HasSnapshot: true,
		})
	}

	reg := NewRegistry("abc", "http://bazarr", src, nil, zerolog.Nop())

	states := reg.States()
	assert.True(t, states.Available)
	require.NotNil(t, states.Sensors[1].Value)
	assert.Equal(t, 9, *states.Sensors[1].Value)
	assert.Equal(t, "2.0", states.Device.SWVersion)
}

func TestRegistry_Close(t *testing.T) {
	src := newFakeSource()
	reg := NewRegistry("abc", "http://bazarr", src, nil, zerolog.Nop())
	require.Len(t, src.listeners, 1)

	reg.Close()
	assert.Empty(t, src.listeners)

	src.publish(coordinator.Update{Snapshot: bazarr.Snapshot{WantedMovies: 9}, HasSnapshot: true})
	assert.False(t, reg.States().Available)
}

func TestRegistry_CustomRule(t *testing.T) {
	rule, err := CompileProblemRule("len(health_issues) > 0 or wanted_episodes > 100")
	require.NoError(t, err)

	src := newFakeSource()
	src.snap = bazarr.Snapshot{WantedEpisodes: 150}
	src.has = true

	reg := NewRegistry("abc", "http://bazarr", src, rule, zerolog.Nop())
	assert.True(t, *reg.States().BinarySensors[0].IsOn)
}

func TestRegistry_RuleErrorFallsBack(t *testing.T) {
	rule, err := CompileProblemRule(`health_issues[0].issue == "full"`)
	require.NoError(t, err)

	src := newFakeSource()
	src.snap = bazarr.Snapshot{}
	src.has = true

	reg := NewRegistry("abc", "http://bazarr", src, rule, zerolog.Nop())
	require.NotNil(t, reg.States().BinarySensors[0].IsOn)
	assert.False(t, *reg.States().BinarySensors[0].IsOn)
}

func TestRegistry_StatesIsACopy(t *testing.T) {
	src := newFakeSource()
	reg := NewRegistry("abc", "http://bazarr", src, nil, zerolog.Nop())

	states := reg.States()
	states.Sensors[0].Key = "mutated"

	assert.Equal(t, KeyWantedMovies, reg.States().Sensors[0].Key)
}

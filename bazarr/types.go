package bazarr

import (
	"strings"
)

// UnknownVersion is reported when the status endpoint omits the version
const UnknownVersion = "Unknown"

// ConnectionConfig identifies a Bazarr instance and the key used to talk to it
type ConnectionConfig struct {
	BaseURL string
	APIKey  string
}

// NewConnectionConfig builds a ConnectionConfig with the trailing slash removed from baseURL
func NewConnectionConfig(baseURL, apiKey string) ConnectionConfig {
	return ConnectionConfig{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		APIKey:  apiKey,
	}
}

// WithAPIKey returns a copy of the config using key
func (c ConnectionConfig) WithAPIKey(key string) ConnectionConfig {
	c.APIKey = key
	return c
}

// Snapshot is the merged result of one successful refresh cycle. Health
// issues are kept exactly as Bazarr sent them; records are usually objects
// but any JSON value is accepted.
type Snapshot struct {
	WantedMovies   int    `json:"wanted_movies"`
	WantedEpisodes int    `json:"wanted_episodes"`
	HealthIssues   []any  `json:"health_issues"`
	Version        string `json:"version"`
}

// HasHealthIssues reports whether Bazarr listed any health problems
func (s Snapshot) HasHealthIssues() bool {
	return len(s.HealthIssues) > 0
}

// Clone returns a copy that shares no slices or maps with s
func (s Snapshot) Clone() Snapshot {
	dup := s
	dup.HealthIssues = make([]any, len(s.HealthIssues))
	for i, issue := range s.HealthIssues {
		dup.HealthIssues[i] = cloneValue(issue)
	}
	return dup
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		if val == nil {
			return val
		}
		dup := make(map[string]any, len(val))
		for k, item := range val {
			dup[k] = cloneValue(item)
		}
		return dup
	case []any:
		if val == nil {
			return val
		}
		dup := make([]any, len(val))
		for i, item := range val {
			dup[i] = cloneValue(item)
		}
		return dup
	default:
		return v
	}
}

// badgesResponse is the payload of /api/badges
type badgesResponse struct {
	Movies   int `json:"movies"`
	Episodes int `json:"episodes"`
}

// healthResponse is the payload of /api/system/health
type healthResponse struct {
	Data []any `json:"data"`
}

// statusResponse is the payload of /api/system/status
type statusResponse struct {
	Data *statusData `json:"data"`
}

type statusData struct {
	BazarrVersion any `json:"bazarr_version"`
}

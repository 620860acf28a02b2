package entry

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/s0up4200/bazarrwatch/bazarr"
)

var bucketEntries = []byte("entries")

// Entry is one configured Bazarr instance
type Entry struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	APIKey    string    `json:"api_key,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ConnectionConfig returns the config used to talk to the instance
func (e Entry) ConnectionConfig() bazarr.ConnectionConfig {
	return bazarr.NewConnectionConfig(e.URL, e.APIKey)
}

// Store keeps entries in a bbolt database
type Store struct {
	db  *bolt.DB
	now func() time.Time
}

// Open opens or creates the database at path
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEntries)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create entries bucket: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close releases the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Create stores a new entry for url. It fails with ErrAlreadyConfigured when
// an entry with the same normalized URL exists.
func (s *Store) Create(title, url, apiKey string) (Entry, error) {
	now := s.now().UTC()
	e := Entry{
		ID:        uuid.NewString(),
		Title:     title,
		URL:       normalizeURL(url),
		APIKey:    apiKey,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEntries)

		found, err := findByURL(b, e.URL)
		if err != nil {
			return err
		}
		if found != nil {
			return fmt.Errorf("%w: %s", ErrAlreadyConfigured, e.URL)
		}

		return put(b, e)
	})
	if err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Get returns the entry with id
func (s *Store) Get(id string) (Entry, error) {
	var e Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketEntries).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return json.Unmarshal(data, &e)
	})
	return e, err
}

// List returns all entries ordered by creation time
func (s *Store) List() ([]Entry, error) {
	var entries []Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketEntries).ForEach(func(_, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			entries = append(entries, e)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(entries, func(a, b Entry) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return entries, nil
}

// FindByURL returns the entry configured for url, if any
func (s *Store) FindByURL(url string) (Entry, bool, error) {
	var found *Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		found, err = findByURL(tx.Bucket(bucketEntries), normalizeURL(url))
		return err
	})
	if err != nil || found == nil {
		return Entry{}, false, err
	}
	return *found, true, nil
}

// UpdateAPIKey replaces the key of entry id in a single transaction
func (s *Store) UpdateAPIKey(id, apiKey string) (Entry, error) {
	var e Entry
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		if err := json.Unmarshal(data, &e); err != nil {
			return err
		}

		e.APIKey = apiKey
		e.UpdatedAt = s.now().UTC()
		return put(b, e)
	})
	if err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Resolve returns the entry with id, or the only entry when id is empty
func (s *Store) Resolve(id string) (Entry, error) {
	if id != "" {
		return s.Get(id)
	}

	entries, err := s.List()
	if err != nil {
		return Entry{}, err
	}
	switch len(entries) {
	case 0:
		return Entry{}, fmt.Errorf("%w: no entries configured, run setup first", ErrNotFound)
	case 1:
		return entries[0], nil
	default:
		return Entry{}, ErrAmbiguous
	}
}

func put(b *bolt.Bucket, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return b.Put([]byte(e.ID), data)
}

func findByURL(b *bolt.Bucket, url string) (*Entry, error) {
	var found *Entry
	err := b.ForEach(func(_, v []byte) error {
		if found != nil {
			return nil
		}
		var e Entry
		if err := json.Unmarshal(v, &e); err != nil {
			return err
		}
		if e.URL == url {
			found = &e
		}
		return nil
	})
	return found, err
}

func normalizeURL(url string) string {
	return strings.TrimRight(strings.TrimSpace(url), "/")
}

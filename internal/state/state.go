// Package state remembers, per book, where focus playback stopped and at what rate.
package state

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	stateFileName = "positions.json"
	hashBytes     = 8192 // First 8KB for content hash
	appName       = "hetang"
)

// Position is the saved playback position of one book.
type Position struct {
	Chapter   int       `json:"chapter"`
	Unit      int       `json:"unit"`
	Rate      int       `json:"rate,omitempty"`
	Mode      string    `json:"mode,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is a JSON file of positions keyed by content hash.
type Store struct {
	path string
	data map[string]Position
	mu   sync.RWMutex
}

// NewStore creates or loads state from Dir().
func NewStore() (*Store, error) {
	return Open(Dir())
}

// Open creates or loads the state file in dir. A corrupt file is replaced on the
// next save.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	store := &Store{
		path: filepath.Join(dir, stateFileName),
		data: make(map[string]Position),
	}
	if err := store.load(); err != nil {
		// Non-fatal - start with empty state
		store.data = make(map[string]Position)
	}
	return store, nil
}

// Dir returns XDG_STATE_HOME/hetang or ~/.local/state/hetang
func Dir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", appName)
}

// HashContent identifies a book by its first 8KB of text.
func HashContent(content string) string {
	b := []byte(content)
	if len(b) > hashBytes {
		b = b[:hashBytes]
	}
	return digest(b)
}

func digest(b []byte) string {
	hash := sha256.Sum256(b)
	return hex.EncodeToString(hash[:16]) // First 16 bytes = 32 hex chars
}

// Get returns the saved position for hash.
func (s *Store) Get(hash string) (Position, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.data[hash]
	return p, ok
}

// Set saves the position for hash.
func (s *Store) Set(hash string, p Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	s.data[hash] = p
	return s.save()
}

// Clear removes the saved position for hash.
func (s *Store) Clear(hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, hash)
	return s.save()
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, &s.data)
}

// save writes through a temp file so a crash never leaves a truncated file.
func (s *Store) save() error {
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

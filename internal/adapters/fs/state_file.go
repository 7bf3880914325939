// Package fs persists sync state to a JSON file with atomic writes.
package fs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/likelabs/likeship/internal/domain"
)

const stateFileName = "state.json"

// StateFileStore implements ports.StateStore using a single JSON file.
//
// Every mutation re-reads the file, applies the change, and rewrites it
// atomically (temp file + rename), so a concurrent trigger or a crash
// between operations can never observe a half-written state.
type StateFileStore struct {
	dir string

	mu sync.Mutex
}

// NewStateFileStore creates a store rooted at the given directory.
func NewStateFileStore(dir string) *StateFileStore {
	return &StateFileStore{dir: dir}
}

// stateFile is the on-disk layout. The credential pointer distinguishes
// "logged out" from a zero credential.
type stateFile struct {
	ClientID   string             `json:"clientId,omitempty"`
	Credential *domain.Credential `json:"credential,omitempty"`
	Queue      []domain.QueueItem `json:"queue"`
	Stats      domain.Stats       `json:"stats"`
}

// Path returns the full path to the state file.
func (s *StateFileStore) Path() string {
	return filepath.Join(s.dir, stateFileName)
}

// LoadCredential returns the stored credential, or a zero credential when
// logged out.
func (s *StateFileStore) LoadCredential(ctx context.Context) (domain.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.read()
	if err != nil {
		return domain.Credential{}, err
	}
	if st.Credential == nil {
		return domain.Credential{}, nil
	}
	return *st.Credential, nil
}

// SaveCredential replaces the stored credential wholesale.
func (s *StateFileStore) SaveCredential(ctx context.Context, cred domain.Credential) error {
	return s.update(func(st *stateFile) {
		st.Credential = &cred
	})
}

// ClearCredential erases the stored credential.
func (s *StateFileStore) ClearCredential(ctx context.Context) error {
	return s.update(func(st *stateFile) {
		st.Credential = nil
	})
}

// LoadQueue returns the queued items in FIFO order.
func (s *StateFileStore) LoadQueue(ctx context.Context) ([]domain.QueueItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.read()
	if err != nil {
		return nil, err
	}
	return st.Queue, nil
}

// SaveQueue replaces the persisted queue.
func (s *StateFileStore) SaveQueue(ctx context.Context, items []domain.QueueItem) error {
	return s.update(func(st *stateFile) {
		st.Queue = items
	})
}

// LoadStats returns the persisted counters.
func (s *StateFileStore) LoadStats(ctx context.Context) (domain.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.read()
	if err != nil {
		return domain.Stats{}, err
	}
	return st.Stats, nil
}

// SaveStats replaces the persisted counters.
func (s *StateFileStore) SaveStats(ctx context.Context, stats domain.Stats) error {
	return s.update(func(st *stateFile) {
		st.Stats = stats
	})
}

// ClientID returns the per-install identifier, generating one on first use.
func (s *StateFileStore) ClientID(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.read()
	if err != nil {
		return "", err
	}
	if st.ClientID != "" {
		return st.ClientID, nil
	}
	st.ClientID = uuid.NewString()
	if err := s.write(st); err != nil {
		return "", err
	}
	return st.ClientID, nil
}

// update applies fn to the current on-disk state and persists the result
// before returning.
func (s *StateFileStore) update(fn func(*stateFile)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.read()
	if err != nil {
		return err
	}
	fn(&st)
	return s.write(st)
}

// read loads the state file. A missing file yields an empty state.
func (s *StateFileStore) read() (stateFile, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return stateFile{}, nil
		}
		return stateFile{}, err
	}
	var st stateFile
	if err := json.Unmarshal(data, &st); err != nil {
		return stateFile{}, err
	}
	return st, nil
}

// write persists the state atomically (write to temp file, then rename).
func (s *StateFileStore) write(st stateFile) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}

	path := s.Path()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

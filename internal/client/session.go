package client

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"cfadmin/internal/model"
)

// Session is the locally persisted login state: the bearer token, the
// serialized user and the expiry instant in epoch milliseconds. All
// three are cleared together on sign-out.
type Session struct {
	Token     string     `json:"token"`
	User      model.User `json:"user"`
	ExpiresAt int64      `json:"expiresAt"`
}

type SessionStore interface {
	Load() (*Session, error)
	Save(*Session) error
	Clear() error
}

// FileSessionStore keeps the session in a single JSON file.
type FileSessionStore struct {
	path string
}

func NewFileSessionStore(path string) *FileSessionStore {
	return &FileSessionStore{path: path}
}

// DefaultSessionPath returns the per-user session file location.
func DefaultSessionPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "zonectl", "session.json"), nil
}

func (s *FileSessionStore) Load() (*Session, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		// A corrupt session file is treated as signed out
		_ = s.Clear()
		return nil, nil
	}
	if sess.Token == "" {
		return nil, nil
	}
	return &sess, nil
}

func (s *FileSessionStore) Save(sess *Session) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

func (s *FileSessionStore) Clear() error {
	err := os.Remove(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// MemorySessionStore is an in-memory store, useful in tests.
type MemorySessionStore struct {
	sess *Session
}

func (s *MemorySessionStore) Load() (*Session, error) { return s.sess, nil }

func (s *MemorySessionStore) Save(sess *Session) error {
	s.sess = sess
	return nil
}

func (s *MemorySessionStore) Clear() error {
	s.sess = nil
	return nil
}

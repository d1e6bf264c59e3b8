// Package session persists the console's login between invocations.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/feedmill/feedmill/internal/auth"
)

// ErrNotAuthenticated is returned by operations that need a stored login.
var ErrNotAuthenticated = errors.New("not logged in, run `feedctl login` first")

type state struct {
	Token string           `json:"token"`
	User  auth.LoginResult `json:"user"`
}

// Store holds the current token and user. It is safe for concurrent use and
// satisfies client.TokenSource.
type Store struct {
	path string

	mu    sync.RWMutex
	state state
}

// NewStore returns an empty store persisted at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the persisted session. A missing file leaves the store logged out.
func (s *Store) Load() error {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read session: %w", err)
	}
	var st state
	if err := json.Unmarshal(raw, &st); err != nil {
		// A corrupt file is treated as logged out.
		_ = os.Remove(s.path)
		return nil
	}
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	return nil
}

// Login stores the result of a successful /auth/login.
func (s *Store) Login(res auth.LoginResult) error {
	if res.Token == "" {
		return errors.New("login result carries no token")
	}
	st := state{Token: res.Token, User: res}
	st.User.Token = ""
	raw, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	return nil
}

// Token returns the bearer token or "" when logged out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token
}

// User returns the logged-in user.
func (s *Store) User() (auth.LoginResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.User, s.state.Token != ""
}

func (s *Store) Authenticated() bool {
	return s.Token() != ""
}

// Logout clears the session and removes its file.
func (s *Store) Logout() error {
	s.mu.Lock()
	s.state = state{}
	s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

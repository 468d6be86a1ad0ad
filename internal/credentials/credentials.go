// Package credentials holds the opaque credential and token collaborators.
//
// The core treats both as contracts: credentials are loaded from a secure
// key-value store (encryption at rest is outside this package), and token
// state is checked for expiry before every authenticated operation.
package credentials

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Credentials are the app-level secrets required by the remote extractors.
type Credentials struct {
	SpotifyClientID     string `json:"spotifyClientId"`
	SpotifyClientSecret string `json:"spotifyClientSecret"`
	YouTubeClientID     string `json:"youtubeClientId"`
	YouTubeClientSecret string `json:"youtubeClientSecret"`
	SpotifyCookie       string `json:"spotifyCookie,omitempty"`
}

// Store is the opaque credential store contract.
type Store interface {
	Load() (*Credentials, error)
	Save(*Credentials) error
	Has() bool
}

// FileStore is a plain JSON-backed Store. Encryption at rest is deliberately
// out of scope here; swap in a secure implementation behind the same
// interface.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore persisted at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load returns the stored credentials, or nil when none are saved.
func (s *FileStore) Load() (*Credentials, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	return &creds, nil
}

// Save persists the credentials, creating the parent directory if needed.
func (s *FileStore) Save(creds *Credentials) error {
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create credentials dir: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	return nil
}

// Has reports whether credentials are stored.
func (s *FileStore) Has() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Token is the persisted token state for a remote backend.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"` // unix millis
}

// Expired reports whether the token has passed its expiry at the given time.
func (t *Token) Expired(now time.Time) bool {
	return now.UnixMilli() >= t.ExpiresAt
}

// TokenStore persists one backend's token state as JSON.
type TokenStore struct {
	path string
}

// NewTokenStore creates a TokenStore persisted at path.
func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

// Load returns the stored token, or nil when none is saved.
func (s *TokenStore) Load() (*Token, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token: %w", err)
	}

	var tok Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	return &tok, nil
}

// Save persists the token, creating the parent directory if needed.
func (s *TokenStore) Save(tok *Token) error {
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create token dir: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write token: %w", err)
	}
	return nil
}

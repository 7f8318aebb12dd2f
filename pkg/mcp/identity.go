package mcp

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// userIDPrefix namespaces durable user identities.
const userIDPrefix = "nxtscape"

// IdentityStore persists the durable per-install user identity.
type IdentityStore interface {
	// Load returns the stored id, or "" when none exists.
	Load() (string, error)

	// Save persists the id.
	Save(id string) error
}

// FileIdentityStore keeps the identity in a single file under the webpilot
// home directory.
type FileIdentityStore struct {
	path string
}

// NewFileIdentityStore creates a store at the given path, defaulting to
// ~/.webpilot/user_id.
func NewFileIdentityStore(path string) (*FileIdentityStore, error) {
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(homeDir, ".webpilot", "user_id")
	}
	return &FileIdentityStore{path: path}, nil
}

// Load reads the stored identity.
func (s *FileIdentityStore) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read user id: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Save writes the identity, creating parent directories.
func (s *FileIdentityStore) Save(id string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
		return fmt.Errorf("failed to create identity directory: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(id+"\n"), 0600); err != nil {
		return fmt.Errorf("failed to write user id: %w", err)
	}
	return nil
}

// generateUserID synthesizes a fresh identity of the form
// nxtscape_<epoch-ms>_<random-base36>.
func generateUserID() string {
	random := strconv.FormatInt(rand.Int63n(36*36*36*36*36*36*36*36), 36)
	return fmt.Sprintf("%s_%d_%s", userIDPrefix, time.Now().UnixMilli(), random)
}

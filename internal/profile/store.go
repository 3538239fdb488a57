// Package profile persists the requester identity between runs. The profile
// lives in the platform config directory so repeated invocations share the
// booking-attempt counter; losing that counter makes the service deduplicate
// later bookings.
package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/clemjvdm/libcal-cli/internal/models"
)

// ErrNotFound is returned by Load when no profile has been saved yet.
var ErrNotFound = errors.New("profile not found")

const fileName = "profile.json"

// Store reads and writes the profile file under dir.
type Store struct {
	dir string
}

// NewStore uses dir as the profile directory.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// DefaultStore places the profile under the platform config directory,
// e.g. ~/.config/libcal-cli on Linux.
func DefaultStore() (*Store, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("resolve config directory: %w", err)
	}
	return NewStore(filepath.Join(base, "libcal-cli")), nil
}

// Load reads the stored profile. ErrNotFound means no profile file exists.
func (s *Store) Load() (*models.Profile, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, fileName))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}

	var p models.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &p, nil
}

// Save writes the profile, creating the directory if needed.
func (s *Store) Save(p *models.Profile) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create profile directory: %w", err)
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}

	if err := os.WriteFile(filepath.Join(s.dir, fileName), data, 0o600); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}
	return nil
}

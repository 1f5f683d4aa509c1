// Package store persists the desktop agent's credential document: the
// master token, the AES-GCM secret key, and the authorized-device set.
package store

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

const configFile = "config.json"

// AuthorizedDevice is a persisted pairing record.
type AuthorizedDevice struct {
	DeviceID    string `json:"device_id"`
	DeviceName  string `json:"device_name"`
	DeviceModel string `json:"device_model,omitempty"`
	PairedAt    string `json:"paired_at"`
	LastSeen    string `json:"last_seen"`
}

// Config is the flat JSON document persisted to disk.
type Config struct {
	MasterToken       string                      `json:"master_token,omitempty"`
	SecretKey         string                      `json:"secret_key,omitempty"`
	AuthorizedDevices map[string]AuthorizedDevice `json:"authorized_devices"`
	AutoStart         bool                        `json:"auto_start"`
	MinimizeToTray    bool                        `json:"minimize_to_tray"`
	StartMinimized    bool                        `json:"start_minimized"`
}

func defaultConfig() Config {
	return Config{
		AuthorizedDevices: make(map[string]AuthorizedDevice),
		MinimizeToTray:    true,
	}
}

// Store guards the credential document behind a mutex and persists it as
// a single JSON file in stateDir, written via a temp-file-then-rename so a
// crash mid-write never leaves a half-written document in place.
type Store struct {
	mu       sync.Mutex
	cfg      Config
	path     string
}

// Open loads the credential document from stateDir, creating the
// directory if needed. A missing or unparsable document falls back to
// defaults and logs a warning — it never aborts startup.
func Open(stateDir string) (*Store, error) {
	if err := os.MkdirAll(stateDir, 0700); err != nil {
		return nil, err
	}

	s := &Store{
		cfg:  defaultConfig(),
		path: filepath.Join(stateDir, configFile),
	}

	data, err := os.ReadFile(s.path)
	switch {
	case os.IsNotExist(err):
		slog.Info("no credential document found, using defaults", "path", s.path)
	case err != nil:
		slog.Warn("failed to read credential document, using defaults", "path", s.path, "error", err)
	default:
		var cfg Config
		if uerr := json.Unmarshal(data, &cfg); uerr != nil {
			slog.Warn("failed to parse credential document, using defaults", "path", s.path, "error", uerr)
		} else {
			if cfg.AuthorizedDevices == nil {
				cfg.AuthorizedDevices = make(map[string]AuthorizedDevice)
			}
			s.cfg = cfg
		}
	}

	return s, nil
}

// MasterToken returns the currently active master token.
func (s *Store) MasterToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.MasterToken
}

// SetMasterToken overwrites the active master token and persists it.
func (s *Store) SetMasterToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.MasterToken = token
	return s.save()
}

// SecretKey returns the AES-GCM secret key, or "" if none has been
// generated yet.
func (s *Store) SecretKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.SecretKey
}

// SetSecretKey persists the secret key. Called exactly once, on first
// successful pairing.
func (s *Store) SetSecretKey(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.SecretKey = key
	return s.save()
}

// IsAuthorized reports whether deviceID has a live AuthorizedDevice entry.
func (s *Store) IsAuthorized(deviceID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.cfg.AuthorizedDevices[deviceID]
	return ok
}

// Get returns the AuthorizedDevice for deviceID, or false if absent.
func (s *Store) Get(deviceID string) (AuthorizedDevice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dev, ok := s.cfg.AuthorizedDevices[deviceID]
	return dev, ok
}

// AddDevice upserts an AuthorizedDevice record and persists it.
func (s *Store) AddDevice(dev AuthorizedDevice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.AuthorizedDevices[dev.DeviceID] = dev
	return s.save()
}

// TouchLastSeen updates last_seen for an existing device.
func (s *Store) TouchLastSeen(deviceID, lastSeen string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dev, ok := s.cfg.AuthorizedDevices[deviceID]
	if !ok {
		return nil
	}
	dev.LastSeen = lastSeen
	s.cfg.AuthorizedDevices[deviceID] = dev
	return s.save()
}

// RemoveDevice revokes one device. Returns true if it existed.
func (s *Store) RemoveDevice(deviceID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cfg.AuthorizedDevices[deviceID]; !ok {
		return false, nil
	}
	delete(s.cfg.AuthorizedDevices, deviceID)
	return true, s.save()
}

// RevokeAll clears every AuthorizedDevice entry.
func (s *Store) RevokeAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.AuthorizedDevices = make(map[string]AuthorizedDevice)
	return s.save()
}

// ListDevices returns a snapshot of every authorized device.
func (s *Store) ListDevices() []AuthorizedDevice {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AuthorizedDevice, 0, len(s.cfg.AuthorizedDevices))
	for _, dev := range s.cfg.AuthorizedDevices {
		out = append(out, dev)
	}
	return out
}

// Preferences returns the opaque UI-preference booleans, untouched by the
// core pairing/transport logic.
func (s *Store) Preferences() (autoStart, minimizeToTray, startMinimized bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.AutoStart, s.cfg.MinimizeToTray, s.cfg.StartMinimized
}

// save must be called with s.mu held. Atomicity is best-effort: write to
// a temp file, then rename over the target.
func (s *Store) save() error {
	data, err := json.MarshalIndent(s.cfg, "", "  ")
	if err != nil {
		slog.Warn("failed to marshal credential document", "error", err)
		return nil
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		slog.Warn("failed to write credential document", "path", tmp, "error", err)
		return nil
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		slog.Warn("failed to persist credential document", "path", s.path, "error", err)
		return nil
	}
	return nil
}

package store

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestOpenMissingDocumentUsesDefaults(t *testing.T) {
	s := newTestStore(t)
	if s.MasterToken() != "" {
		t.Error("expected empty master token on fresh store")
	}
	if len(s.ListDevices()) != 0 {
		t.Error("expected no authorized devices on fresh store")
	}
	_, minimizeToTray, _ := s.Preferences()
	if !minimizeToTray {
		t.Error("expected minimize_to_tray to default true")
	}
}

func TestOpenCorruptDocumentFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, configFile), []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.MasterToken() != "" {
		t.Error("expected defaults after parse failure")
	}
}

func TestSetMasterTokenPersists(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetMasterToken("MMM"); err != nil {
		t.Fatalf("SetMasterToken: %v", err)
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got := reopened.MasterToken(); got != "MMM" {
		t.Errorf("got %q, want MMM", got)
	}
}

func TestAddGetRemoveDevice(t *testing.T) {
	s := newTestStore(t)

	dev := AuthorizedDevice{DeviceID: "dev-1", DeviceName: "Phone", PairedAt: "t0", LastSeen: "t0"}
	if err := s.AddDevice(dev); err != nil {
		t.Fatalf("AddDevice: %v", err)
	}

	if !s.IsAuthorized("dev-1") {
		t.Error("expected dev-1 to be authorized")
	}

	got, ok := s.Get("dev-1")
	if !ok || got.DeviceName != "Phone" {
		t.Errorf("Get returned %+v, ok=%v", got, ok)
	}

	removed, err := s.RemoveDevice("dev-1")
	if err != nil || !removed {
		t.Fatalf("RemoveDevice: removed=%v err=%v", removed, err)
	}
	if s.IsAuthorized("dev-1") {
		t.Error("expected dev-1 to no longer be authorized")
	}

	removedAgain, err := s.RemoveDevice("dev-1")
	if err != nil || removedAgain {
		t.Errorf("expected second remove to be a no-op, got removed=%v err=%v", removedAgain, err)
	}
}

func TestRevokeAll(t *testing.T) {
	s := newTestStore(t)
	s.AddDevice(AuthorizedDevice{DeviceID: "dev-1"})
	s.AddDevice(AuthorizedDevice{DeviceID: "dev-2"})

	if err := s.RevokeAll(); err != nil {
		t.Fatalf("RevokeAll: %v", err)
	}
	if len(s.ListDevices()) != 0 {
		t.Error("expected no devices after RevokeAll")
	}
}

func TestTouchLastSeen(t *testing.T) {
	s := newTestStore(t)
	s.AddDevice(AuthorizedDevice{DeviceID: "dev-1", LastSeen: "t0"})

	if err := s.TouchLastSeen("dev-1", "t1"); err != nil {
		t.Fatalf("TouchLastSeen: %v", err)
	}

	dev, _ := s.Get("dev-1")
	if dev.LastSeen != "t1" {
		t.Errorf("got last_seen %q, want t1", dev.LastSeen)
	}

	// Touching an unknown device is a no-op, not an error.
	if err := s.TouchLastSeen("ghost", "t1"); err != nil {
		t.Errorf("expected no error touching unknown device, got %v", err)
	}
}

package session

import "testing"

func TestNewSessionAssignsMonotonicClientIDs(t *testing.T) {
	tbl := NewTable()
	a := tbl.NewSession()
	b := tbl.NewSession()
	if a.ClientID == b.ClientID {
		t.Fatalf("expected distinct client IDs, got %d twice", a.ClientID)
	}
	if b.ClientID <= a.ClientID {
		t.Errorf("expected monotonically increasing client IDs, got %d then %d", a.ClientID, b.ClientID)
	}
}

func TestBindEvictsExistingSessionForSameDevice(t *testing.T) {
	tbl := NewTable()
	first := tbl.NewSession()
	tbl.Bind(first, "dev-1", "Phone A")

	second := tbl.NewSession()
	evicted := tbl.Bind(second, "dev-1", "Phone A")

	if evicted != first {
		t.Fatalf("expected first session to be evicted")
	}
	if _, ok := <-first.Outbound; ok {
		t.Error("expected evicted session's outbound queue to be closed and drained")
	}
	if tbl.ConnectedDeviceCount() != 1 {
		t.Errorf("expected exactly one connected device, got %d", tbl.ConnectedDeviceCount())
	}
}

func TestBindDoesNotEvictDifferentDevices(t *testing.T) {
	tbl := NewTable()
	a := tbl.NewSession()
	b := tbl.NewSession()

	if evicted := tbl.Bind(a, "dev-1", "Phone A"); evicted != nil {
		t.Fatalf("expected no eviction on first bind")
	}
	if evicted := tbl.Bind(b, "dev-2", "Phone B"); evicted != nil {
		t.Fatalf("expected no eviction for a distinct device_id")
	}
	if tbl.ConnectedDeviceCount() != 2 {
		t.Errorf("expected two connected devices, got %d", tbl.ConnectedDeviceCount())
	}
}

func TestRemoveIsNoOpAfterEviction(t *testing.T) {
	tbl := NewTable()
	first := tbl.NewSession()
	tbl.Bind(first, "dev-1", "Phone A")

	second := tbl.NewSession()
	tbl.Bind(second, "dev-1", "Phone A")

	// first was already evicted by the rebind; Remove must not disturb
	// second's entry in byDevice.
	tbl.Remove(first)
	if tbl.ConnectedDeviceCount() != 1 {
		t.Errorf("expected second session to remain registered, got count %d", tbl.ConnectedDeviceCount())
	}

	tbl.Remove(second)
	if tbl.ConnectedDeviceCount() != 0 {
		t.Errorf("expected no connected devices after removing the live session, got %d", tbl.ConnectedDeviceCount())
	}
}

func TestEnqueueAfterCloseIsNoOp(t *testing.T) {
	tbl := NewTable()
	s := tbl.NewSession()
	tbl.Bind(s, "dev-1", "Phone A")
	tbl.Remove(s)

	// Must not panic sending on a closed channel.
	s.Enqueue([]byte("frame"))
}

func TestClearEvictsEverySession(t *testing.T) {
	tbl := NewTable()
	a := tbl.NewSession()
	tbl.Bind(a, "dev-1", "Phone A")
	b := tbl.NewSession()
	tbl.Bind(b, "dev-2", "Phone B")

	tbl.Clear()

	if tbl.ConnectedDeviceCount() != 0 {
		t.Errorf("expected empty table after Clear, got %d", tbl.ConnectedDeviceCount())
	}
	if _, ok := <-a.Outbound; ok {
		t.Error("expected a's outbound queue closed")
	}
	if _, ok := <-b.Outbound; ok {
		t.Error("expected b's outbound queue closed")
	}
}

package protocol

import "testing"

func TestPeekActionRoutesKnownActions(t *testing.T) {
	action, err := PeekAction([]byte(`{"action":"scan","deviceId":"d1"}`))
	if err != nil {
		t.Fatalf("PeekAction: %v", err)
	}
	if action != ActionScan {
		t.Errorf("got %q, want %q", action, ActionScan)
	}
}

func TestPeekActionRejectsMalformedJSON(t *testing.T) {
	if _, err := PeekAction([]byte(`{not json`)); err == nil {
		t.Error("expected malformed JSON to fail")
	}
}

func TestPeekActionRejectsMissingAction(t *testing.T) {
	if _, err := PeekAction([]byte(`{"deviceId":"d1"}`)); err == nil {
		t.Error("expected missing action field to fail")
	}
}

func TestDecodePairRequiresDeviceIDAndMasterToken(t *testing.T) {
	if _, err := DecodePair([]byte(`{"action":"pair","masterToken":"MMM"}`)); err == nil {
		t.Error("expected missing deviceId to fail")
	}
	if _, err := DecodePair([]byte(`{"action":"pair","deviceId":"d1"}`)); err == nil {
		t.Error("expected missing masterToken to fail")
	}

	msg, err := DecodePair([]byte(`{"action":"pair","deviceId":"d1","deviceName":"Phone","masterToken":"MMM"}`))
	if err != nil {
		t.Fatalf("DecodePair: %v", err)
	}
	if msg.DeviceID != "d1" || msg.MasterToken != "MMM" {
		t.Errorf("got %+v", msg)
	}
}

func TestDecodeScanRequiresPayload(t *testing.T) {
	_, err := DecodeScan([]byte(`{"action":"scan","deviceId":"d1","timestamp":1700000000}`))
	fe, ok := err.(*FrameError)
	if !ok || fe.Field != "payload" {
		t.Fatalf("expected missing-payload FrameError, got %#v", err)
	}
}

func TestDecodeScanAcceptsLegacyTokenField(t *testing.T) {
	msg, err := DecodeScan([]byte(`{"action":"scan","deviceId":"d1","timestamp":1700000000,"payload":{"barcode":"012345"},"token":"MMM"}`))
	if err != nil {
		t.Fatalf("DecodeScan: %v", err)
	}
	if msg.Token != "MMM" || msg.Payload.Barcode != "012345" {
		t.Errorf("got %+v", msg)
	}
}

func TestPairAckEmitsBothFieldCasings(t *testing.T) {
	ack := NewPairAck("TOKEN123", "dev-1", 1700000000)
	if ack.AuthToken != ack.AuthTokenCC || ack.AuthToken != "TOKEN123" {
		t.Errorf("expected auth_token and authToken to match, got %+v", ack)
	}
	if ack.DeviceID != ack.DeviceIDCC || ack.DeviceID != "dev-1" {
		t.Errorf("expected device_id and deviceId to match, got %+v", ack)
	}
}

func TestReconnectAckVariants(t *testing.T) {
	if got := NewReconnectAckUnauthorized().Status; got != "unauthorized" {
		t.Errorf("got %q", got)
	}
	if got := NewReconnectAckInvalidToken().Status; got != "invalid_token" {
		t.Errorf("got %q", got)
	}
	ok := NewReconnectAckConnected("dev-1", 1700000000)
	if ok.Status != "connected" || ok.DeviceID != "dev-1" || ok.DeviceIDCC != "dev-1" {
		t.Errorf("got %+v", ok)
	}
}

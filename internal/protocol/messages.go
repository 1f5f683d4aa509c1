// Package protocol defines the wire messages exchanged between a phone
// and the desktop agent, and the discriminated decode that routes an
// inbound frame to its action handler.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Action is the discriminator key inspected on every inbound frame.
type Action string

const (
	ActionHandshake  Action = "handshake"
	ActionPair       Action = "pair"
	ActionReconnect  Action = "reconnect"
	ActionScan       Action = "scan"
	ActionError      Action = "error"

	ActionHandshakeAck Action = "handshake_ack"
	ActionPairAck      Action = "pair_ack"
	ActionReconnectAck Action = "reconnect_ack"
	ActionScanAck      Action = "scan_ack"
)

// FrameError carries structured context for observability when a frame
// cannot be parsed or fails schema validation.
type FrameError struct {
	Code    string // e.g. "INVALID_JSON", "MISSING_FIELD", "UNKNOWN_ACTION"
	Field   string
	Message string
}

func (e *FrameError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("frame error [%s]: %s (field=%s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("frame error [%s]: %s", e.Code, e.Message)
}

// envelope is decoded first to sniff the action before committing to a
// concrete message type.
type envelope struct {
	Action Action `json:"action"`
}

// PeekAction returns the action field of a raw inbound frame without
// validating the rest of its schema.
func PeekAction(data []byte) (Action, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", &FrameError{Code: "INVALID_JSON", Message: fmt.Sprintf("invalid frame JSON: %v", err)}
	}
	if env.Action == "" {
		return "", &FrameError{Code: "MISSING_FIELD", Field: "action", Message: "frame missing required \"action\" field"}
	}
	return env.Action, nil
}

// HandshakeMsg is the client's connectivity probe. It carries no fields
// beyond the action itself.
type HandshakeMsg struct {
	Action Action `json:"action"`
}

// PairMsg is the first-contact message, authorized by the QR-scanned
// master token.
type PairMsg struct {
	Action      Action `json:"action"`
	DeviceID    string `json:"deviceId"`
	DeviceName  string `json:"deviceName"`
	DeviceModel string `json:"deviceModel,omitempty"`
	MasterToken string `json:"masterToken"`
}

// ReconnectMsg re-admits a previously paired device using its persisted
// auth token.
type ReconnectMsg struct {
	Action    Action `json:"action"`
	DeviceID  string `json:"deviceId"`
	AuthToken string `json:"authToken"`
}

// ScanPayload carries the decoded barcode.
type ScanPayload struct {
	Barcode string `json:"barcode"`
	Type    string `json:"type,omitempty"`
}

// ScanMsg reports one decoded barcode. It may be authorized by a prior
// session authentication, an authToken, or (legacy path) the master
// token carried directly in the message.
type ScanMsg struct {
	Action      Action       `json:"action"`
	DeviceID    string       `json:"deviceId"`
	DeviceName  string       `json:"deviceName,omitempty"`
	DeviceModel string       `json:"deviceModel,omitempty"`
	Timestamp   int64        `json:"timestamp"`
	Payload     *ScanPayload `json:"payload"`
	Token       string       `json:"token,omitempty"`
	AuthToken   string       `json:"authToken,omitempty"`
}

// HandshakeAck answers HandshakeMsg.
type HandshakeAck struct {
	Action    Action `json:"action"`
	Status    string `json:"status"`
	ClientID  int64  `json:"clientId"`
	Timestamp int64  `json:"timestamp"`
}

// NewHandshakeAck builds the standard "connected" handshake reply.
func NewHandshakeAck(clientID int64, now int64) HandshakeAck {
	return HandshakeAck{Action: ActionHandshakeAck, Status: "connected", ClientID: clientID, Timestamp: now}
}

// PairAck answers a successful pair. It carries auth_token and device_id
// in both camelCase and the legacy snake_case spelling the deployed
// client still expects (see the field-casing design note).
type PairAck struct {
	Action        Action `json:"action"`
	Status        string `json:"status"`
	AuthToken     string `json:"auth_token"`
	AuthTokenCC   string `json:"authToken"`
	DeviceID      string `json:"device_id"`
	DeviceIDCC    string `json:"deviceId"`
	Timestamp     int64  `json:"timestamp"`
}

// NewPairAck builds a pair_ack reply, duplicating authToken/deviceId
// under both casings.
func NewPairAck(authToken, deviceID string, now int64) PairAck {
	return PairAck{
		Action:      ActionPairAck,
		Status:      "paired",
		AuthToken:   authToken,
		AuthTokenCC: authToken,
		DeviceID:    deviceID,
		DeviceIDCC:  deviceID,
		Timestamp:   now,
	}
}

// ReconnectAck answers a reconnect attempt. status is one of
// "connected", "unauthorized", "invalid_token".
type ReconnectAck struct {
	Action     Action `json:"action"`
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
	DeviceID   string `json:"device_id,omitempty"`
	DeviceIDCC string `json:"deviceId,omitempty"`
	Timestamp  int64  `json:"timestamp,omitempty"`
}

// NewReconnectAckConnected builds the success case.
func NewReconnectAckConnected(deviceID string, now int64) ReconnectAck {
	return ReconnectAck{
		Action:     ActionReconnectAck,
		Status:     "connected",
		DeviceID:   deviceID,
		DeviceIDCC: deviceID,
		Timestamp:  now,
	}
}

// NewReconnectAckUnauthorized builds the "not a known device" case.
func NewReconnectAckUnauthorized() ReconnectAck {
	return ReconnectAck{
		Action:  ActionReconnectAck,
		Status:  "unauthorized",
		Message: "Device not authorized. Please pair again.",
	}
}

// NewReconnectAckInvalidToken builds the "known device, bad token" case.
func NewReconnectAckInvalidToken() ReconnectAck {
	return ReconnectAck{
		Action:  ActionReconnectAck,
		Status:  "invalid_token",
		Message: "Invalid auth token. Please pair again.",
	}
}

// ScanAck confirms a scan was accepted and handed to the delivery
// channel.
type ScanAck struct {
	Action  Action `json:"action"`
	Status  string `json:"status"`
	Barcode string `json:"barcode"`
}

// NewScanAck builds the standard scan_ack reply.
func NewScanAck(barcode string) ScanAck {
	return ScanAck{Action: ActionScanAck, Status: "received", Barcode: barcode}
}

// ErrorMsg is the generic error frame; the socket stays open after one
// is sent.
type ErrorMsg struct {
	Action  Action `json:"action"`
	Message string `json:"message"`
}

// NewErrorMsg builds an error frame.
func NewErrorMsg(message string) ErrorMsg {
	return ErrorMsg{Action: ActionError, Message: message}
}

// DecodePair validates and decodes a pair frame already known (via
// PeekAction) to carry action=="pair".
func DecodePair(data []byte) (*PairMsg, error) {
	var msg PairMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, &FrameError{Code: "INVALID_JSON", Message: err.Error()}
	}
	if msg.DeviceID == "" {
		return nil, &FrameError{Code: "MISSING_FIELD", Field: "deviceId", Message: "pair missing deviceId"}
	}
	if msg.MasterToken == "" {
		return nil, &FrameError{Code: "MISSING_FIELD", Field: "masterToken", Message: "pair missing masterToken"}
	}
	return &msg, nil
}

// DecodeReconnect validates and decodes a reconnect frame.
func DecodeReconnect(data []byte) (*ReconnectMsg, error) {
	var msg ReconnectMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, &FrameError{Code: "INVALID_JSON", Message: err.Error()}
	}
	if msg.DeviceID == "" {
		return nil, &FrameError{Code: "MISSING_FIELD", Field: "deviceId", Message: "reconnect missing deviceId"}
	}
	return &msg, nil
}

// DecodeScan validates and decodes a scan frame. A missing payload is a
// distinct, spec-named error case rather than a generic decode failure.
func DecodeScan(data []byte) (*ScanMsg, error) {
	var msg ScanMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, &FrameError{Code: "INVALID_JSON", Message: err.Error()}
	}
	if msg.DeviceID == "" {
		return nil, &FrameError{Code: "MISSING_FIELD", Field: "deviceId", Message: "scan missing deviceId"}
	}
	if msg.Payload == nil {
		return nil, &FrameError{Code: "MISSING_FIELD", Field: "payload", Message: "Missing payload"}
	}
	return &msg, nil
}

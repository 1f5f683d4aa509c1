package transport

import (
	"encoding/json"
	"time"

	"github.com/scanlink/scanlinkd/internal/cryptoutil"
	"github.com/scanlink/scanlinkd/internal/delivery"
	"github.com/scanlink/scanlinkd/internal/protocol"
	"github.com/scanlink/scanlinkd/internal/session"
	"github.com/scanlink/scanlinkd/internal/store"
)

// dispatch implements the Protocol Engine: it sniffs the action field
// and routes to the matching handler. Unknown actions are logged and
// ignored; the socket stays open. Malformed JSON produces an error
// frame and the socket stays open.
func (s *Server) dispatch(sess *session.Session, data []byte) {
	action, err := protocol.PeekAction(data)
	if err != nil {
		s.sendError(sess, "Malformed request")
		ErrorsTotal.WithLabelValues("protocol").Inc()
		return
	}

	switch action {
	case protocol.ActionHandshake:
		s.handleHandshake(sess)
	case protocol.ActionPair:
		s.handlePair(sess, data)
	case protocol.ActionReconnect:
		s.handleReconnect(sess, data)
	case protocol.ActionScan:
		s.handleScan(sess, data)
	default:
		s.logger().Warn("ignoring unknown action", "action", action, "clientId", sess.ClientID)
	}
}

func (s *Server) send(sess *session.Session, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger().Error("failed to marshal outbound frame", "error", err)
		return
	}
	sess.Enqueue(data)
}

func (s *Server) sendError(sess *session.Session, message string) {
	s.send(sess, protocol.NewErrorMsg(message))
}

// errorMessage extracts the bare message from a FrameError so wire
// errors read like "Missing payload" rather than the full
// "frame error [CODE]: ..." diagnostic form.
func errorMessage(err error) string {
	if fe, ok := err.(*protocol.FrameError); ok {
		return fe.Message
	}
	return err.Error()
}

func (s *Server) handleHandshake(sess *session.Session) {
	s.send(sess, protocol.NewHandshakeAck(sess.ClientID, time.Now().Unix()))
}

func (s *Server) handlePair(sess *session.Session, data []byte) {
	msg, err := protocol.DecodePair(data)
	if err != nil {
		s.sendError(sess, errorMessage(err))
		ErrorsTotal.WithLabelValues("protocol").Inc()
		return
	}

	if msg.MasterToken != s.cfg.MasterToken {
		s.sendError(sess, "Invalid pairing token")
		ErrorsTotal.WithLabelValues("auth").Inc()
		return
	}

	secretKey := s.store.SecretKey()
	if secretKey == "" {
		key, err := cryptoutil.GenerateSecretKey()
		if err != nil {
			s.sendError(sess, "Server configuration error")
			ErrorsTotal.WithLabelValues("internal").Inc()
			return
		}
		if err := s.store.SetSecretKey(key); err != nil {
			s.logger().Warn("failed to persist secret key", "error", err)
		}
		secretKey = key
	}

	authToken, err := cryptoutil.CreateAuthToken(secretKey, msg.DeviceID)
	if err != nil {
		s.sendError(sess, "Server configuration error")
		ErrorsTotal.WithLabelValues("crypto").Inc()
		return
	}

	now := time.Now().Unix()
	nowISO := time.Now().UTC().Format(time.RFC3339)
	if err := s.store.AddDevice(store.AuthorizedDevice{
		DeviceID:    msg.DeviceID,
		DeviceName:  msg.DeviceName,
		DeviceModel: msg.DeviceModel,
		PairedAt:    nowISO,
		LastSeen:    nowISO,
	}); err != nil {
		s.logger().Warn("failed to persist authorized device", "error", err)
	}

	if evicted := s.sessions.Bind(sess, msg.DeviceID, msg.DeviceName); evicted != nil {
		s.logger().Info("evicted duplicate session", "deviceId", msg.DeviceID, "oldClientId", evicted.ClientID)
	}

	s.send(sess, protocol.NewPairAck(authToken, msg.DeviceID, now))
}

func (s *Server) handleReconnect(sess *session.Session, data []byte) {
	msg, err := protocol.DecodeReconnect(data)
	if err != nil {
		s.sendError(sess, errorMessage(err))
		ErrorsTotal.WithLabelValues("protocol").Inc()
		return
	}

	if !s.store.IsAuthorized(msg.DeviceID) {
		s.send(sess, protocol.NewReconnectAckUnauthorized())
		ErrorsTotal.WithLabelValues("auth").Inc()
		return
	}

	secretKey := s.store.SecretKey()
	if secretKey == "" {
		s.sendError(sess, "Server configuration error")
		ErrorsTotal.WithLabelValues("internal").Inc()
		return
	}

	if !cryptoutil.ValidateAuthToken(secretKey, msg.AuthToken, msg.DeviceID) {
		s.send(sess, protocol.NewReconnectAckInvalidToken())
		ErrorsTotal.WithLabelValues("auth").Inc()
		return
	}

	nowISO := time.Now().UTC().Format(time.RFC3339)
	if err := s.store.TouchLastSeen(msg.DeviceID, nowISO); err != nil {
		s.logger().Warn("failed to persist last_seen", "error", err)
	}

	if evicted := s.sessions.Bind(sess, msg.DeviceID, ""); evicted != nil {
		s.logger().Info("evicted duplicate session", "deviceId", msg.DeviceID, "oldClientId", evicted.ClientID)
	}

	s.send(sess, protocol.NewReconnectAckConnected(msg.DeviceID, time.Now().Unix()))
}

func (s *Server) handleScan(sess *session.Session, data []byte) {
	msg, err := protocol.DecodeScan(data)
	if err != nil {
		s.sendError(sess, errorMessage(err))
		ErrorsTotal.WithLabelValues("protocol").Inc()
		return
	}

	accepted := false

	if sess.IsAuthenticated() && s.store.IsAuthorized(msg.DeviceID) {
		accepted = true
	}

	if !accepted && msg.AuthToken != "" && s.store.IsAuthorized(msg.DeviceID) {
		secretKey := s.store.SecretKey()
		if secretKey != "" && cryptoutil.ValidateAuthToken(secretKey, msg.AuthToken, msg.DeviceID) {
			accepted = true
		}
	}

	if !accepted && msg.Token != "" && msg.Token == s.cfg.MasterToken {
		accepted = true
	}

	if !accepted {
		s.sendError(sess, "Invalid token")
		ErrorsTotal.WithLabelValues("auth").Inc()
		return
	}

	if !sess.IsAuthenticated() {
		s.sessions.Bind(sess, msg.DeviceID, msg.DeviceName)
	}

	s.send(sess, protocol.NewScanAck(msg.Payload.Barcode))

	s.delivery.Push(delivery.BarcodeEvent{
		Barcode:    msg.Payload.Barcode,
		Timestamp:  msg.Timestamp,
		DeviceID:   msg.DeviceID,
		DeviceName: msg.DeviceName,
	})
	ScansTotal.Inc()
}

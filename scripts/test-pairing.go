// test-pairing.go — manual test client for the ScanLink pairing/scan
// handshake.
//
// Usage:
//   1. Start the agent:    go run ./cmd/scanlinkd serve
//   2. Copy the master token printed in its banner.
//   3. Run this script:    go run ./scripts/test-pairing.go -token <token>
//
// Flags:
//   -addr      agent WebSocket address   (default "ws://127.0.0.1:8081/")
//   -token     master token from the QR payload (required for first pair)
//   -device    device id to use          (default a random one, printed)
//   -barcode   barcode to send after pairing (default "012345")
//
// What it does:
//   1. Connects to the agent via WebSocket.
//   2. Sends a handshake, expects handshake_ack.
//   3. Sends pair with the given master token, expects pair_ack with an
//      auth_token.
//   4. Sends one scan authorized by that auth_token, expects scan_ack.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

func randomDeviceID() string {
	buf := make([]byte, 8)
	rand.Read(buf)
	return "test-" + hex.EncodeToString(buf)
}

func send(conn *websocket.Conn, v any) {
	data, _ := json.Marshal(v)
	fmt.Printf("→ %s\n", data)
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Fatalf("send failed: %v", err)
	}
}

func recvRaw(conn *websocket.Conn) map[string]json.RawMessage {
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		log.Fatalf("read failed: %v", err)
	}
	fmt.Printf("← %s\n", data)

	var frame map[string]json.RawMessage
	if err := json.Unmarshal(data, &frame); err != nil {
		log.Fatalf("malformed response: %v", err)
	}
	return frame
}

func stringField(frame map[string]json.RawMessage, key string) string {
	var s string
	if raw, ok := frame[key]; ok {
		json.Unmarshal(raw, &s)
	}
	return s
}

func main() {
	addr := flag.String("addr", "ws://127.0.0.1:8081/", "agent WebSocket address")
	token := flag.String("token", "", "master token from the agent's QR payload")
	device := flag.String("device", randomDeviceID(), "device id to pair as")
	barcode := flag.String("barcode", "012345", "barcode to send after pairing")
	flag.Parse()

	if *token == "" {
		log.Fatal("-token is required: copy it from the scanlinkd serve banner")
	}

	fmt.Printf("device id: %s\n\n", *device)

	conn, _, err := websocket.DefaultDialer.Dial(*addr, nil)
	if err != nil {
		log.Fatalf("dial %s: %v", *addr, err)
	}
	defer conn.Close()
	fmt.Printf("connected to %s\n\n", *addr)

	send(conn, map[string]any{"action": "handshake"})
	recvRaw(conn)
	fmt.Println()

	send(conn, map[string]any{
		"action":      "pair",
		"deviceId":    *device,
		"deviceName":  "test-pairing script",
		"masterToken": *token,
	})
	pairResp := recvRaw(conn)
	fmt.Println()

	if stringField(pairResp, "action") != "pair_ack" {
		log.Fatalf("pairing failed: %s", stringField(pairResp, "message"))
	}
	authToken := stringField(pairResp, "authToken")
	preview := authToken
	if len(preview) > 20 {
		preview = preview[:20]
	}
	fmt.Printf("paired; auth token: %s…\n\n", preview)

	send(conn, map[string]any{
		"action":    "scan",
		"deviceId":  *device,
		"timestamp": time.Now().Unix(),
		"payload":   map[string]string{"barcode": *barcode},
		"authToken": authToken,
	})
	scanResp := recvRaw(conn)

	if stringField(scanResp, "action") == "scan_ack" {
		fmt.Println("\nscan accepted")
	} else {
		fmt.Printf("\nscan rejected: %s\n", stringField(scanResp, "message"))
	}
}

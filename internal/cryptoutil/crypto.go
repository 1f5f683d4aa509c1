// Package cryptoutil implements the four primitives the pairing protocol
// is built on: key/token generation and AES-256-GCM encrypt/decrypt.
package cryptoutil

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

const (
	nonceSize       = 12
	secretKeySize   = 32
	masterTokenLen  = 32
	masterTokenSet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// GenerateSecretKey returns a fresh base64-encoded 256-bit AES-GCM key.
func GenerateSecretKey() (string, error) {
	key := make([]byte, secretKeySize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("generate secret key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// GenerateMasterToken returns a random 32-character alphanumeric token.
func GenerateMasterToken() (string, error) {
	buf := make([]byte, masterTokenLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate master token: %w", err)
	}
	out := make([]byte, masterTokenLen)
	for i, b := range buf {
		out[i] = masterTokenSet[int(b)%len(masterTokenSet)]
	}
	return string(out), nil
}

// Encrypt seals plaintext under secretKey with a fresh nonce, returning
// base64(nonce || ciphertext || tag).
func Encrypt(secretKey, plaintext string) (string, error) {
	gcm, err := newGCM(secretKey)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("encrypt: nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	blob := append(nonce, sealed...)
	return base64.StdEncoding.EncodeToString(blob), nil
}

// Decrypt reverses Encrypt. Any failure — bad key, tampered blob,
// truncated blob — returns the same undifferentiated error; callers must
// not try to distinguish the failure stage.
func Decrypt(secretKey, encoded string) (string, error) {
	gcm, err := newGCM(secretKey)
	if err != nil {
		return "", errDecryptFailed
	}

	blob, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(blob) < nonceSize {
		return "", errDecryptFailed
	}

	nonce, ciphertext := blob[:nonceSize], blob[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", errDecryptFailed
	}
	return string(plaintext), nil
}

var errDecryptFailed = fmt.Errorf("decryption failed - invalid token or tampered data")

func newGCM(secretKey string) (cipher.AEAD, error) {
	key, err := base64.StdEncoding.DecodeString(secretKey)
	if err != nil || len(key) != secretKeySize {
		return nil, errDecryptFailed
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errDecryptFailed
	}
	return cipher.NewGCM(block)
}

// CreateAuthToken mints a device-bound credential: encrypt("scanlink:" +
// deviceID + ":" + unix_seconds). The timestamp is advisory only — no
// expiry is enforced.
func CreateAuthToken(secretKey, deviceID string) (string, error) {
	payload := fmt.Sprintf("scanlink:%s:%d", deviceID, time.Now().Unix())
	return Encrypt(secretKey, payload)
}

// ValidateAuthToken decrypts token and checks it was minted for
// expectedDeviceID under secretKey.
func ValidateAuthToken(secretKey, token, expectedDeviceID string) bool {
	payload, err := Decrypt(secretKey, token)
	if err != nil {
		return false
	}
	parts := strings.SplitN(payload, ":", 3)
	return len(parts) >= 2 && parts[0] == "scanlink" && parts[1] == expectedDeviceID
}

package cryptoutil

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestGenerateSecretKey(t *testing.T) {
	key, err := GenerateSecretKey()
	if err != nil {
		t.Fatalf("GenerateSecretKey: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(raw) != 32 {
		t.Errorf("got %d bytes, want 32", len(raw))
	}
}

func TestGenerateMasterToken(t *testing.T) {
	tests := []struct {
		name  string
		check func(t *testing.T, token string)
	}{
		{
			name: "length is 32",
			check: func(t *testing.T, token string) {
				if len(token) != 32 {
					t.Errorf("got length %d, want 32", len(token))
				}
			},
		},
		{
			name: "alphanumeric only",
			check: func(t *testing.T, token string) {
				for _, r := range token {
					if !strings.ContainsRune(masterTokenSet, r) {
						t.Errorf("unexpected character %q in token", r)
					}
				}
			},
		},
		{
			name: "unique across 50 calls",
			check: func(t *testing.T, _ string) {
				seen := make(map[string]bool)
				for i := 0; i < 50; i++ {
					tok, err := GenerateMasterToken()
					if err != nil {
						t.Fatalf("GenerateMasterToken: %v", err)
					}
					if seen[tok] {
						t.Fatalf("duplicate token on call %d", i)
					}
					seen[tok] = true
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := GenerateMasterToken()
			if err != nil {
				t.Fatalf("GenerateMasterToken: %v", err)
			}
			tt.check(t, token)
		})
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key, _ := GenerateSecretKey()
	plaintext := "Hello, World!"

	encrypted, err := Encrypt(key, plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	decrypted, err := Decrypt(key, encrypted)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}

	if decrypted != plaintext {
		t.Errorf("got %q, want %q", decrypted, plaintext)
	}
}

func TestEncryptProducesFreshNonce(t *testing.T) {
	key, _ := GenerateSecretKey()
	a, _ := Encrypt(key, "same plaintext")
	b, _ := Encrypt(key, "same plaintext")
	if a == b {
		t.Error("expected distinct ciphertexts for repeated calls (nonce reuse)")
	}
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	key1, _ := GenerateSecretKey()
	key2, _ := GenerateSecretKey()

	encrypted, _ := Encrypt(key1, "secret payload")
	_, err := Decrypt(key2, encrypted)
	if err == nil {
		t.Error("expected decryption with wrong key to fail")
	}
}

func TestDecryptTamperedBlobFails(t *testing.T) {
	key, _ := GenerateSecretKey()
	encrypted, _ := Encrypt(key, "secret payload")

	raw, _ := base64.StdEncoding.DecodeString(encrypted)
	raw[len(raw)-1] ^= 0xFF
	tampered := base64.StdEncoding.EncodeToString(raw)

	if _, err := Decrypt(key, tampered); err == nil {
		t.Error("expected tampered blob to fail decryption")
	}
}

func TestDecryptTruncatedBlobFails(t *testing.T) {
	key, _ := GenerateSecretKey()
	if _, err := Decrypt(key, "AA=="); err == nil {
		t.Error("expected truncated blob to fail decryption")
	}
}

func TestAuthTokenMintAndVerify(t *testing.T) {
	key, _ := GenerateSecretKey()
	deviceID := "test-device-123"

	token, err := CreateAuthToken(key, deviceID)
	if err != nil {
		t.Fatalf("CreateAuthToken: %v", err)
	}

	if !ValidateAuthToken(key, token, deviceID) {
		t.Error("expected token to validate for its own device_id")
	}
	if ValidateAuthToken(key, token, "some-other-device") {
		t.Error("expected token to fail validation for a different device_id")
	}
}

func TestValidateAuthTokenWithWrongKeyFails(t *testing.T) {
	key1, _ := GenerateSecretKey()
	key2, _ := GenerateSecretKey()
	deviceID := "dev-1"

	token, _ := CreateAuthToken(key1, deviceID)
	if ValidateAuthToken(key2, token, deviceID) {
		t.Error("expected validation under a different secret key to fail")
	}
}

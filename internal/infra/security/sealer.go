// File: internal/infra/security/sealer.go
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// PayloadSealer encrypts questionnaire payloads before they are written to
// the delivery audit log. AES-256-GCM; the key is the SHA-256 of the
// configured secret and the record id is bound as additional data.
type PayloadSealer struct {
	gcm cipher.AEAD
}

func NewPayloadSealer(secret string) (*PayloadSealer, error) {
	if secret == "" {
		return nil, errors.New("sealer: empty secret")
	}
	key := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return &PayloadSealer{gcm: gcm}, nil
}

// Seal returns base64(nonce || ciphertext).
func (s *PayloadSealer) Seal(id string, plaintext []byte) (string, error) {
	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}
	ct := s.gcm.Seal(nonce, nonce, plaintext, []byte(id))
	return base64.StdEncoding.EncodeToString(ct), nil
}

// Open reverses Seal for the same id.
func (s *PayloadSealer) Open(id, sealed string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, fmt.Errorf("base64 decode: %w", err)
	}
	ns := s.gcm.NonceSize()
	if len(data) < ns {
		return nil, errors.New("ciphertext too short")
	}
	pt, err := s.gcm.Open(nil, data[:ns], data[ns:], []byte(id))
	if err != nil {
		return nil, fmt.Errorf("gcm open: %w", err)
	}
	return pt, nil
}

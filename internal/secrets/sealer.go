// Package secrets seals Crowdin access tokens before they are stored.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize     = 32
	nonceSize   = 24
	sealedLabel = "sb1:"
)

// ErrOpen is returned when a sealed value cannot be decrypted.
var ErrOpen = errors.New("cannot open sealed secret")

// Sealer encrypts values with NaCl secretbox. A Sealer without a key stores
// values in the clear, which only suits local development.
type Sealer struct {
	key *[keySize]byte
}

// NewSealer creates a Sealer from a hex-encoded 32 byte key. An empty key
// yields a pass-through Sealer.
func NewSealer(hexKey string) (*Sealer, error) {
	if hexKey == "" {
		slog.Warn("no token key configured, crowdin tokens are stored unsealed")
		return &Sealer{}, nil
	}
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decode token key: %w", err)
	}
	if len(raw) != keySize {
		return nil, fmt.Errorf("token key must be %d bytes, got %d", keySize, len(raw))
	}
	var key [keySize]byte
	copy(key[:], raw)
	return &Sealer{key: &key}, nil
}

// Seal encrypts plaintext. Empty values stay empty.
func (s *Sealer) Seal(plaintext string) (string, error) {
	if plaintext == "" || s.key == nil {
		return plaintext, nil
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, s.key)
	return sealedLabel + base64.RawStdEncoding.EncodeToString(box), nil
}

// Open reverses Seal. Values stored before a key was configured are
// returned as they are.
func (s *Sealer) Open(value string) (string, error) {
	encoded, sealed := strings.CutPrefix(value, sealedLabel)
	if !sealed {
		return value, nil
	}
	if s.key == nil {
		return "", fmt.Errorf("%w: no token key configured", ErrOpen)
	}
	box, err := base64.RawStdEncoding.DecodeString(encoded)
	if err != nil || len(box) < nonceSize+secretbox.Overhead {
		return "", ErrOpen
	}
	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])
	plain, ok := secretbox.Open(nil, box[nonceSize:], &nonce, s.key)
	if !ok {
		return "", ErrOpen
	}
	return string(plain), nil
}

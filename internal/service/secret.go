package service

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
)

const bearerPrefix = "Bearer "

const secretAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// VerifyWebhookSecret reports whether the token presented by Crowdin equals
// the secret stored for the project. Missing values never verify.
func VerifyWebhookSecret(presented, expected string) bool {
	if presented == "" {
		slog.Warn("bearer token is required to verify crowdin webhook secret")
		return false
	}
	if expected == "" {
		slog.Warn("no webhook secret configured to verify crowdin webhook")
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) == 1
}

// StripBearer removes a case-insensitive "Bearer " prefix.
func StripBearer(header string) string {
	header = strings.TrimSpace(header)
	if len(header) >= len(bearerPrefix) && strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return strings.TrimSpace(header[len(bearerPrefix):])
	}
	return header
}

// GenerateSecret returns n random ASCII letters.
func GenerateSecret(n int) (string, error) {
	size := big.NewInt(int64(len(secretAlphabet)))
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", fmt.Errorf("generate secret: %w", err)
		}
		b.WriteByte(secretAlphabet[idx.Int64()])
	}
	return b.String(), nil
}

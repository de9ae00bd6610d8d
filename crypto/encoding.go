package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

// EncodeBase64 encodes data with standard Base64 encoding.
func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeBase64 decodes standard Base64 input.
func DecodeBase64(s string) ([]byte, error) {
	out, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decoding base64: %w", err)
	}

	return out, nil
}

// EncodeBase64URL encodes data with unpadded URL-safe Base64 encoding.
func EncodeBase64URL(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeBase64URL decodes unpadded URL-safe Base64 input.
func DecodeBase64URL(s string) ([]byte, error) {
	out, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decoding base64url: %w", err)
	}

	return out, nil
}

// RandomBytes returns n cryptographically secure random bytes.
func RandomBytes(n int) ([]byte, error) {
	out := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, out); err != nil {
		return nil, fmt.Errorf("reading random bytes: %w", err)
	}

	return out, nil
}

// RandomToken returns a URL-safe random token of n source bytes.
func RandomToken(n int) (string, error) {
	b, err := RandomBytes(n)
	if err != nil {
		return "", err
	}

	return EncodeBase64URL(b), nil
}

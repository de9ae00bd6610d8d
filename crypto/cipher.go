package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize is the key length for both supported AEAD ciphers.
	KeySize = 32

	// SaltSize is the salt length used for password-based key derivation.
	SaltSize = 16

	// pbkdf2Iterations follows current OWASP guidance for PBKDF2-SHA256.
	pbkdf2Iterations = 600_000
)

// ErrCiphertextTooShort indicates the ciphertext is shorter than a nonce.
var ErrCiphertextTooShort = errors.New("ciphertext too short")

// ErrInvalidKeySize indicates a key of the wrong length.
var ErrInvalidKeySize = errors.New("invalid key size")

// Cipher names a supported AEAD construction.
type Cipher string

const (
	AESGCM           Cipher = "aes-gcm"
	ChaCha20Poly1305 Cipher = "chacha20-poly1305"
)

// ErrUnknownCipher indicates an unsupported cipher name.
var ErrUnknownCipher = errors.New("unknown cipher")

func newAEAD(c Cipher, key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidKeySize, len(key), KeySize)
	}

	switch c {
	case AESGCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		return cipher.NewGCM(block)
	case ChaCha20Poly1305:
		return chacha20poly1305.New(key)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCipher, c)
	}
}

// Seal encrypts and authenticates plaintext under key with the named
// cipher. The random nonce is prepended to the returned ciphertext.
func Seal(c Cipher, key, plaintext []byte) ([]byte, error) {
	aead, err := newAEAD(c, key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open authenticates and decrypts ciphertext produced by Seal.
func Open(c Cipher, key, ciphertext []byte) ([]byte, error) {
	aead, err := newAEAD(c, key)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < aead.NonceSize() {
		return nil, ErrCiphertextTooShort
	}

	nonce := ciphertext[:aead.NonceSize()]
	plaintext, err := aead.Open(nil, nonce, ciphertext[aead.NonceSize():], nil)
	if err != nil {
		return nil, fmt.Errorf("opening ciphertext: %w", err)
	}

	return plaintext, nil
}

// DeriveKey derives a KeySize key from password and salt with
// PBKDF2-SHA256.
func DeriveKey(password, salt []byte) []byte {
	return pbkdf2.Key(password, salt, pbkdf2Iterations, KeySize, sha256.New)
}

// SealWithPassword encrypts plaintext under a password-derived key.
// The random salt is prepended to the nonce and ciphertext.
func SealWithPassword(c Cipher, password, plaintext []byte) ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}

	sealed, err := Seal(c, DeriveKey(password, salt), plaintext)
	if err != nil {
		return nil, err
	}

	return append(salt, sealed...), nil
}

// OpenWithPassword decrypts ciphertext produced by SealWithPassword.
func OpenWithPassword(c Cipher, password, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < SaltSize {
		return nil, ErrCiphertextTooShort
	}

	salt := ciphertext[:SaltSize]

	return Open(c, DeriveKey(password, salt), ciphertext[SaltSize:])
}

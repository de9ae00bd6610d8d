// Package crypto bundles the cryptographic primitives of the join
// framework: message digests, HMAC, authenticated encryption, digital
// signatures, Base64 helpers and randomness.
package crypto

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
)

// ErrUnknownAlgorithm indicates an unsupported digest algorithm name.
var ErrUnknownAlgorithm = errors.New("unknown digest algorithm")

// Algorithm names a supported digest.
type Algorithm string

const (
	MD5    Algorithm = "md5"
	SHA1   Algorithm = "sha1"
	SHA224 Algorithm = "sha224"
	SHA256 Algorithm = "sha256"
	SHA384 Algorithm = "sha384"
	SHA512 Algorithm = "sha512"
)

// NewHash returns a fresh hash.Hash for the named algorithm.
func NewHash(alg Algorithm) (hash.Hash, error) {
	switch alg {
	case MD5:
		return md5.New(), nil
	case SHA1:
		return sha1.New(), nil
	case SHA224:
		return sha256.New224(), nil
	case SHA256:
		return sha256.New(), nil
	case SHA384:
		return sha512.New384(), nil
	case SHA512:
		return sha512.New(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, alg)
	}
}

// Sum computes the digest of data with the named algorithm.
func Sum(alg Algorithm, data []byte) ([]byte, error) {
	h, err := NewHash(alg)
	if err != nil {
		return nil, err
	}
	h.Write(data)

	return h.Sum(nil), nil
}

// SumReader computes the digest of everything read from r.
func SumReader(alg Algorithm, r io.Reader) ([]byte, error) {
	h, err := NewHash(alg)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(h, r); err != nil {
		return nil, fmt.Errorf("hashing stream: %w", err)
	}

	return h.Sum(nil), nil
}

// SumFile computes the digest of the file at path.
func SumFile(alg Algorithm, path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	return SumReader(alg, f)
}

// HMAC computes the keyed digest of data with the named algorithm.
func HMAC(alg Algorithm, key, data []byte) ([]byte, error) {
	newFn, err := hashConstructor(alg)
	if err != nil {
		return nil, err
	}

	mac := hmac.New(newFn, key)
	mac.Write(data)

	return mac.Sum(nil), nil
}

// VerifyHMAC reports whether sum is the valid HMAC of data under key.
// The comparison is constant time.
func VerifyHMAC(alg Algorithm, key, data, sum []byte) (bool, error) {
	want, err := HMAC(alg, key, data)
	if err != nil {
		return false, err
	}

	return hmac.Equal(want, sum), nil
}

func hashConstructor(alg Algorithm) (func() hash.Hash, error) {
	switch alg {
	case MD5:
		return md5.New, nil
	case SHA1:
		return sha1.New, nil
	case SHA224:
		return sha256.New224, nil
	case SHA256:
		return sha256.New, nil
	case SHA384:
		return sha512.New384, nil
	case SHA512:
		return sha512.New, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, alg)
	}
}

package crypto

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSumKnownVectors(t *testing.T) {
	cases := []struct {
		alg    Algorithm
		input  string
		expect string
	}{
		{MD5, "abc", "900150983cd24fb0d6963f7d28e17f72"},
		{SHA1, "abc", "a9993e364706816aba3e25717850c26c9cd0d89d"},
		{
			SHA256,
			"abc",
			"ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		},
		{
			SHA512,
			"abc",
			"ddaf35a193617abacc417349ae20413112e6fa4e89a97ea20a9eeee64b55d39a" +
				"2192992a274fc1a836ba3c23a3feebbd454d4423643ce80e2a9ac94fa54ca49f",
		},
	}

	for _, c := range cases {
		sum, err := Sum(c.alg, []byte(c.input))
		require.NoError(t, err)
		require.Equal(t, c.expect, hex.EncodeToString(sum), "algorithm %s", c.alg)
	}
}

func TestSumUnknownAlgorithm(t *testing.T) {
	_, err := Sum("whirlpool", []byte("abc"))
	require.ErrorIs(t, err, ErrUnknownAlgorithm)
}

func TestSumReader(t *testing.T) {
	sum, err := SumReader(SHA256, strings.NewReader("abc"))
	require.NoError(t, err)

	direct, err := Sum(SHA256, []byte("abc"))
	require.NoError(t, err)
	require.Equal(t, direct, sum)
}

func TestSumFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.txt")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o600))

	sum, err := SumFile(SHA256, path)
	require.NoError(t, err)

	direct, err := Sum(SHA256, []byte("abc"))
	require.NoError(t, err)
	require.Equal(t, direct, sum)
}

func TestSumFileMissing(t *testing.T) {
	_, err := SumFile(SHA256, filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestHMAC(t *testing.T) {
	key := []byte("secret key")
	data := []byte("message")

	sum, err := HMAC(SHA256, key, data)
	require.NoError(t, err)
	require.Len(t, sum, 32)

	ok, err := VerifyHMAC(SHA256, key, data, sum)
	require.NoError(t, err)
	require.True(t, ok)

	// Tampered payload fails verification.
	ok, err = VerifyHMAC(SHA256, key, []byte("messagE"), sum)
	require.NoError(t, err)
	require.False(t, ok)

	// Wrong key fails verification.
	ok, err = VerifyHMAC(SHA256, []byte("other key"), data, sum)
	require.NoError(t, err)
	require.False(t, ok)
}

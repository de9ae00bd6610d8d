package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSealOpenRoundTrip(t *testing.T) {
	for _, c := range []Cipher{AESGCM, ChaCha20Poly1305} {
		t.Run(string(c), func(t *testing.T) {
			key, err := RandomBytes(KeySize)
			require.NoError(t, err)

			plaintext := []byte("the quick brown fox")

			sealed, err := Seal(c, key, plaintext)
			require.NoError(t, err)
			require.NotEqual(t, plaintext, sealed)

			opened, err := Open(c, key, sealed)
			require.NoError(t, err)
			require.Equal(t, plaintext, opened)
		})
	}
}

func TestOpenWrongKey(t *testing.T) {
	key, err := RandomBytes(KeySize)
	require.NoError(t, err)
	other, err := RandomBytes(KeySize)
	require.NoError(t, err)

	sealed, err := Seal(AESGCM, key, []byte("secret"))
	require.NoError(t, err)

	_, err = Open(AESGCM, other, sealed)
	require.Error(t, err)
}

func TestOpenTruncated(t *testing.T) {
	key, err := RandomBytes(KeySize)
	require.NoError(t, err)

	_, err = Open(AESGCM, key, []byte{0x01, 0x02})
	require.ErrorIs(t, err, ErrCiphertextTooShort)
}

func TestSealInvalidKeySize(t *testing.T) {
	_, err := Seal(AESGCM, []byte("short"), []byte("data"))
	require.ErrorIs(t, err, ErrInvalidKeySize)
}

func TestSealUnknownCipher(t *testing.T) {
	key, err := RandomBytes(KeySize)
	require.NoError(t, err)

	_, err = Seal("des", key, []byte("data"))
	require.ErrorIs(t, err, ErrUnknownCipher)
}

func TestPasswordRoundTrip(t *testing.T) {
	password := []byte("correct horse battery staple")
	plaintext := []byte("password protected")

	sealed, err := SealWithPassword(ChaCha20Poly1305, password, plaintext)
	require.NoError(t, err)

	opened, err := OpenWithPassword(ChaCha20Poly1305, password, sealed)
	require.NoError(t, err)
	require.Equal(t, plaintext, opened)

	_, err = OpenWithPassword(ChaCha20Poly1305, []byte("wrong"), sealed)
	require.Error(t, err)
}

func TestDeriveKeyDeterministic(t *testing.T) {
	salt := []byte("0123456789abcdef")

	k1 := DeriveKey([]byte("pw"), salt)
	k2 := DeriveKey([]byte("pw"), salt)
	require.Equal(t, k1, k2)
	require.Len(t, k1, KeySize)

	k3 := DeriveKey([]byte("pw"), []byte("fedcba9876543210"))
	require.NotEqual(t, k1, k3)
}

package crypto

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEd25519SignVerify(t *testing.T) {
	pub, priv, err := GenerateEd25519()
	require.NoError(t, err)

	message := []byte("sign me")
	sig := SignEd25519(priv, message)

	require.True(t, VerifyEd25519(pub, message, sig))
	require.False(t, VerifyEd25519(pub, []byte("other"), sig))
	require.False(t, VerifyEd25519(pub, message, sig[:16]))
	require.False(t, VerifyEd25519(pub[:8], message, sig))
}

func TestECDSASignVerify(t *testing.T) {
	priv, err := GenerateECDSA()
	require.NoError(t, err)

	message := []byte("sign me too")
	sig, err := SignECDSA(priv, message)
	require.NoError(t, err)

	require.True(t, VerifyECDSA(&priv.PublicKey, message, sig))
	require.False(t, VerifyECDSA(&priv.PublicKey, []byte("other"), sig))
	require.False(t, VerifyECDSA(&priv.PublicKey, message, []byte("garbage")))
	require.False(t, VerifyECDSA(nil, message, sig))
}

func TestPrivateKeyPEMRoundTrip(t *testing.T) {
	_, priv, err := GenerateEd25519()
	require.NoError(t, err)

	pemBytes, err := MarshalPrivateKeyPEM(priv)
	require.NoError(t, err)
	require.Contains(t, string(pemBytes), "PRIVATE KEY")

	parsed, err := ParsePrivateKeyPEM(pemBytes)
	require.NoError(t, err)

	parsedKey, ok := parsed.(ed25519.PrivateKey)
	require.True(t, ok)
	require.Equal(t, priv, parsedKey)
}

func TestPublicKeyPEMRoundTrip(t *testing.T) {
	priv, err := GenerateECDSA()
	require.NoError(t, err)

	pemBytes, err := MarshalPublicKeyPEM(&priv.PublicKey)
	require.NoError(t, err)
	require.Contains(t, string(pemBytes), "PUBLIC KEY")

	parsed, err := ParsePublicKeyPEM(pemBytes)
	require.NoError(t, err)

	parsedKey, ok := parsed.(*ecdsa.PublicKey)
	require.True(t, ok)
	require.True(t, priv.PublicKey.Equal(parsedKey))
}

func TestParsePEMInvalid(t *testing.T) {
	_, err := ParsePrivateKeyPEM([]byte("not pem at all"))
	require.ErrorIs(t, err, ErrInvalidPEM)

	_, err = ParsePublicKeyPEM([]byte("-----BEGIN GARBAGE-----\n-----END GARBAGE-----\n"))
	require.ErrorIs(t, err, ErrInvalidPEM)
}

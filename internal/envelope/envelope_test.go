package envelope_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kasupel/internal/envelope"
)

func TestLoadKeyPairGeneratesKeyOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rsa_key.pem")
	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))

	kp, err := envelope.LoadKeyPair(path)
	require.NoError(t, err)
	assert.NotNil(t, kp)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())
}

func TestLoadKeyPairReloadsPersistedKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rsa_key.pem")
	first, err := envelope.LoadKeyPair(path)
	require.NoError(t, err)

	second, err := envelope.LoadKeyPair(path)
	require.NoError(t, err)

	pub1, err := first.PublicKeyPEM()
	require.NoError(t, err)
	pub2, err := second.PublicKeyPEM()
	require.NoError(t, err)
	assert.Equal(t, pub1, pub2, "reloading the same file must not mint a new key")
}

func TestDecryptRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rsa_key.pem")
	kp, err := envelope.LoadKeyPair(path)
	require.NoError(t, err)

	pubPEM, err := kp.PublicKeyPEM()
	require.NoError(t, err)
	pub, err := parsePublicKey(pubPEM)
	require.NoError(t, err)

	plaintext := []byte("hunter2")
	ciphertext, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, plaintext, nil)
	require.NoError(t, err)

	decrypted, err := kp.Decrypt(base64.StdEncoding.EncodeToString(ciphertext))
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestDecryptRejectsGarbageInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rsa_key.pem")
	kp, err := envelope.LoadKeyPair(path)
	require.NoError(t, err)

	_, err = kp.Decrypt("not-valid-base64!!!")
	assert.Error(t, err)
}

func parsePublicKey(pemBytes []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemBytes)
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	return key.(*rsa.PublicKey), nil
}

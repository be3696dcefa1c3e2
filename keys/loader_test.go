package keys

import (
	"context"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anchorageoss/turnkeycrypto/crypto"
	"github.com/anchorageoss/turnkeycrypto/cryptoerr"
)

const (
	validPublic  = "02f739f8c77b32f4d5f13265861febd76e7a9c61a1140d296b8c16302508870316"
	validPrivate = "487f361ddfd73440e707f4daa6775b376859e8a3c9f29b3bb694a12927c0213c"
)

func writeKeyFiles(t *testing.T, dir, name, public, private string) {
	t.Helper()
	if public != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name+".public"), []byte(public), 0o600))
	}
	if private != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name+".private"), []byte(private), 0o600))
	}
}

func TestLoadAPIKey(t *testing.T) {
	dir := t.TempDir()
	writeKeyFiles(t, dir, "valid", validPublic+"\n", validPrivate+":p256\n")
	writeKeyFiles(t, dir, "missing_private", validPublic, "")
	writeKeyFiles(t, dir, "invalid_hex", validPublic, "zz7f361d:p256")
	writeKeyFiles(t, dir, "wrong_curve", validPublic, validPrivate+":secp256k1")
	writeKeyFiles(t, dir, "bad_format", validPublic, validPrivate)
	writeKeyFiles(t, dir, "extra_field", validPublic, validPrivate+":p256:x")
	writeKeyFiles(t, dir, "bad_public", "02abcd", validPrivate+":p256")
	writeKeyFiles(t, dir, "zero_scalar", validPublic, "0000000000000000000000000000000000000000000000000000000000000000:p256")

	other, err := crypto.GenerateP256KeyPair(rand.Reader)
	require.NoError(t, err)
	writeKeyFiles(t, dir, "mismatched", validPublic, hex.EncodeToString(other.PrivateKey)+":p256")

	t.Run("valid key", func(t *testing.T) {
		key, err := LoadAPIKey(dir, "valid")
		require.NoError(t, err)
		assert.Equal(t, validPublic, key.PublicKey)
		assert.Equal(t, elliptic.P256(), key.PrivateKey.Curve)

		expectedD, _ := new(big.Int).SetString(validPrivate, 16)
		assert.Equal(t, 0, expectedD.Cmp(key.PrivateKey.D))
		assert.True(t, elliptic.P256().IsOnCurve(key.PrivateKey.X, key.PrivateKey.Y))
	})

	tests := []struct {
		name    string
		key     string
		message string
	}{
		{"missing public key", "missing_public", "failed to read public key file"},
		{"missing private key", "missing_private", "failed to read private key file"},
		{"invalid hex in private key", "invalid_hex", "failed to decode private key"},
		{"wrong curve", "wrong_curve", "unsupported curve: secp256k1"},
		{"bad format", "bad_format", "invalid private key format"},
		{"extra field", "extra_field", "invalid private key format"},
		{"bad public key", "bad_public", "failed to parse public key file"},
		{"zero scalar", "zero_scalar", "failed to decode private key"},
		{"mismatched pair", "mismatched", "does not match"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadAPIKey(dir, tt.key)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}

	t.Run("mismatch is a consistency error", func(t *testing.T) {
		_, err := LoadAPIKey(dir, "mismatched")
		require.ErrorIs(t, err, cryptoerr.ErrConsistency)
	})
}

func TestFileKeyProvider(t *testing.T) {
	dir := t.TempDir()
	writeKeyFiles(t, dir, "test-key", validPublic, validPrivate+":p256")

	provider := &FileKeyProvider{KeyName: "test-key", Dir: dir, OrganizationID: "org-1"}
	key, err := provider.GetAPIKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, validPublic, key.PublicKey)
	assert.Equal(t, "org-1", key.OrganizationID)

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := provider.GetAPIKey(ctx)
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("default directory", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)
		keyDir := filepath.Join(home, ".config", "turnkey", "keys")
		require.NoError(t, os.MkdirAll(keyDir, 0o700))
		writeKeyFiles(t, keyDir, "home-key", validPublic, validPrivate+":p256")

		key, err := (&FileKeyProvider{KeyName: "home-key"}).GetAPIKey(context.Background())
		require.NoError(t, err)
		assert.Equal(t, validPublic, key.PublicKey)

		key, err = LoadAPIKeyFromFile("home-key")
		require.NoError(t, err)
		assert.Equal(t, validPublic, key.PublicKey)
	})
}

func TestWriteAPIKey(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "keys")
	kp, err := crypto.GenerateP256KeyPair(rand.Reader)
	require.NoError(t, err)

	require.NoError(t, WriteAPIKey(dir, "generated", kp))

	info, err := os.Stat(filepath.Join(dir, "generated.private"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	key, err := LoadAPIKey(dir, "generated")
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(kp.PublicKey), key.PublicKey)
	assert.Equal(t, kp.PrivateKey, crypto.PrivateKeyBytes(key.PrivateKey))

	err = WriteAPIKey(dir, "generated", kp)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrExist)
}

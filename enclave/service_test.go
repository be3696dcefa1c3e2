package enclave

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"testing"

	nitroverifier "github.com/anchorageoss/awsnitroverifier"
	"github.com/near/borsh-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anchorageoss/turnkeycrypto/cryptoerr"
	"github.com/anchorageoss/turnkeycrypto/manifest"
	"github.com/anchorageoss/turnkeycrypto/point"
)

type mockAttestationVerifier struct {
	result *nitroverifier.ValidationResult
	err    error
	calls  int
}

func (m *mockAttestationVerifier) Validate(attestationDocument string) (*nitroverifier.ValidationResult, error) {
	m.calls++
	return m.result, m.err
}

func generatePoint(t *testing.T) *point.ECPoint {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	p, err := point.FromECDSA(&key.PublicKey)
	require.NoError(t, err)
	return p
}

func pcr(b byte) []byte {
	return bytes.Repeat([]byte{b}, 48)
}

type fixture struct {
	manifestB64 string
	userData    []byte
	quorumKey   *manifest.QuorumKey
	pcrs        map[uint][]byte
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	qk := &manifest.QuorumKey{Encryption: generatePoint(t), Signing: generatePoint(t)}
	m := manifest.Manifest{
		Namespace: manifest.Namespace{Name: "preprod/export", Nonce: 7, QuorumKey: qk.Bytes()},
		Pivot:     manifest.PivotConfig{Restart: manifest.RestartPolicyNever},
		Enclave: manifest.NitroConfig{
			Pcr0:      pcr(0xa0),
			Pcr1:      pcr(0xa1),
			Pcr2:      pcr(0xa2),
			Pcr3:      pcr(0xa3),
			QosCommit: "deadbeef",
		},
	}
	manifestBytes, err := borsh.Serialize(m)
	require.NoError(t, err)
	envelopeBytes, err := borsh.Serialize(manifest.ManifestEnvelope{Manifest: m})
	require.NoError(t, err)
	digest := sha256.Sum256(manifestBytes)

	return &fixture{
		manifestB64: base64.StdEncoding.EncodeToString(envelopeBytes),
		userData:    digest[:],
		quorumKey:   qk,
		pcrs: map[uint][]byte{
			0: pcr(0xa0), 1: pcr(0xa1), 2: pcr(0xa2), 3: pcr(0xa3), 4: pcr(0xb4),
		},
	}
}

func (f *fixture) verifier() *mockAttestationVerifier {
	return &mockAttestationVerifier{
		result: &nitroverifier.ValidationResult{
			Valid: true,
			Document: &nitroverifier.AttestationDocument{
				ModuleID: "i-0123456789abcdef0-enc0123456789abcd",
				PCRs:     f.pcrs,
				UserData: f.userData,
			},
		},
	}
}

func TestResolveQuorumKey(t *testing.T) {
	f := newFixture(t)
	verifier := f.verifier()
	svc := NewService(verifier, zerolog.Nop())

	resolved, err := svc.ResolveQuorumKey(context.Background(), BootProof{
		AttestationDocument: "attestation",
		ManifestB64:         f.manifestB64,
		ExpectedPCRs:        []nitroverifier.PCRRule{{Index: 4, Value: pcr(0xb4)}},
		CheckManifestPCRs:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, verifier.calls)
	assert.Equal(t, f.quorumKey.Signing.Bytes(false), resolved.SigningKey())
	assert.Equal(t, f.quorumKey.Encryption.Bytes(false), resolved.EncryptionKey())
	assert.Equal(t, "preprod/export", resolved.Namespace)
	assert.Equal(t, "i-0123456789abcdef0-enc0123456789abcd", resolved.ModuleID)
	require.Len(t, resolved.PCRResults, 5)
	assert.Equal(t, "expected", resolved.PCRResults[0].Source)
	assert.Equal(t, "manifest", resolved.PCRResults[4].Source)
	for _, r := range resolved.PCRResults {
		assert.True(t, r.Valid, "PCR[%d]", r.Index)
	}

	formatted := FormatResolution(resolved)
	assert.Contains(t, formatted, resolved.ManifestHash)
	assert.Contains(t, formatted, f.quorumKey.Signing.Hex(false))
}

func TestResolveQuorumKeyFailures(t *testing.T) {
	t.Run("cancelled context", func(t *testing.T) {
		f := newFixture(t)
		verifier := f.verifier()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewService(verifier, zerolog.Nop()).ResolveQuorumKey(ctx, BootProof{ManifestB64: f.manifestB64})
		require.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, verifier.calls)
	})

	t.Run("verifier error", func(t *testing.T) {
		verifier := &mockAttestationVerifier{err: errors.New("bad certificate chain")}
		_, err := NewService(verifier, zerolog.Nop()).ResolveQuorumKey(context.Background(), BootProof{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad certificate chain")
	})

	t.Run("invalid attestation", func(t *testing.T) {
		verifier := &mockAttestationVerifier{result: &nitroverifier.ValidationResult{Valid: false}}
		_, err := NewService(verifier, zerolog.Nop()).ResolveQuorumKey(context.Background(), BootProof{})
		require.ErrorIs(t, err, cryptoerr.ErrAttestationInvalid)
		require.ErrorIs(t, err, cryptoerr.ErrAuthentication)
	})

	t.Run("user data mismatch", func(t *testing.T) {
		f := newFixture(t)
		f.userData = make([]byte, sha256.Size)
		_, err := NewService(f.verifier(), zerolog.Nop()).ResolveQuorumKey(context.Background(), BootProof{
			ManifestB64: f.manifestB64,
		})
		require.ErrorIs(t, err, cryptoerr.ErrManifestMismatch)
	})

	t.Run("manifest from another enclave", func(t *testing.T) {
		f := newFixture(t)
		other := newFixture(t)
		_, err := NewService(f.verifier(), zerolog.Nop()).ResolveQuorumKey(context.Background(), BootProof{
			ManifestB64: other.manifestB64,
		})
		require.ErrorIs(t, err, cryptoerr.ErrManifestMismatch)
	})

	t.Run("malformed manifest", func(t *testing.T) {
		f := newFixture(t)
		_, err := NewService(f.verifier(), zerolog.Nop()).ResolveQuorumKey(context.Background(), BootProof{
			ManifestB64: "!!!",
		})
		require.ErrorIs(t, err, cryptoerr.ErrFormat)
	})

	t.Run("expected PCR mismatch", func(t *testing.T) {
		f := newFixture(t)
		_, err := NewService(f.verifier(), zerolog.Nop()).ResolveQuorumKey(context.Background(), BootProof{
			ManifestB64:  f.manifestB64,
			ExpectedPCRs: []nitroverifier.PCRRule{{Index: 0, Value: pcr(0xff)}},
		})
		require.ErrorIs(t, err, cryptoerr.ErrPCRMismatch)
	})

	t.Run("expected PCR missing from document", func(t *testing.T) {
		f := newFixture(t)
		_, err := NewService(f.verifier(), zerolog.Nop()).ResolveQuorumKey(context.Background(), BootProof{
			ManifestB64:  f.manifestB64,
			ExpectedPCRs: []nitroverifier.PCRRule{{Index: 8, Value: pcr(0x00)}},
		})
		require.ErrorIs(t, err, cryptoerr.ErrPCRMismatch)
	})

	t.Run("manifest PCR mismatch", func(t *testing.T) {
		f := newFixture(t)
		f.pcrs[2] = pcr(0x00)
		_, err := NewService(f.verifier(), zerolog.Nop()).ResolveQuorumKey(context.Background(), BootProof{
			ManifestB64:       f.manifestB64,
			CheckManifestPCRs: true,
		})
		require.ErrorIs(t, err, cryptoerr.ErrPCRMismatch)
	})
}

func TestFormatPCRValues(t *testing.T) {
	out := FormatPCRValues(map[uint][]byte{
		0: {0x01, 0x02},
		5: pcr(0), 6: pcr(0), 7: pcr(0),
		8:  {0xff},
		10: pcr(0),
		11: {},
	}, "")

	assert.Equal(t, "PCR[0]: 0102 (enclave image)\n"+
		"PCR[5-7]: all zeros\n"+
		"PCR[8]: ff\n"+
		"PCR[10]: all zeros\n", out)
}

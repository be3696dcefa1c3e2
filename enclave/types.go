// Package enclave resolves the enclave quorum key that export and import bundles must be
// signed by.
//
// Bundles carry the public key of their signer, so that key cannot be trusted on its own.
// An enclave proves which key it holds with its boot evidence: an AWS Nitro attestation
// document whose UserData is the SHA-256 digest of the QuorumOS manifest it booted with, and
// that manifest, which names the quorum key.
//
// # Resolution Flow
//
//	svc := enclave.NewService(nitroverifier.NewVerifier(nitroverifier.AWSNitroVerifierOptions{}), logger)
//	resolved, err := svc.ResolveQuorumKey(ctx, enclave.BootProof{
//		AttestationDocument: bootAttestationB64,
//		ManifestB64:         manifestB64,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	decryptor, err := bundle.NewDecryptor(resolved.SigningKey(), logger)
//
// # PCR Pinning
//
// ExpectedPCRs pins attested PCR values supplied by the caller. CheckManifestPCRs
// additionally requires attested PCR0 to PCR3 to equal the values the manifest commits to.
package enclave

import (
	nitroverifier "github.com/anchorageoss/awsnitroverifier"

	"github.com/anchorageoss/turnkeycrypto/manifest"
)

// BootProof is the evidence an enclave publishes about its boot
type BootProof struct {
	// AttestationDocument is the base64 COSE_Sign1 Nitro attestation document
	AttestationDocument string
	// ManifestB64 is the base64 manifest or manifest envelope
	ManifestB64 string

	ExpectedPCRs      []nitroverifier.PCRRule
	CheckManifestPCRs bool
}

// PCRValidationResult is the outcome of one PCR comparison
type PCRValidationResult struct {
	Index    uint   `json:"index"`
	Source   string `json:"source"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Valid    bool   `json:"valid"`
}

// Resolution is an attested quorum key together with the evidence it was resolved from
type Resolution struct {
	ModuleID     string                `json:"moduleId"`
	ManifestHash string                `json:"manifestHash"`
	Namespace    string                `json:"namespace"`
	QuorumKey    *manifest.QuorumKey   `json:"-"`
	PCRResults   []PCRValidationResult `json:"pcrResults,omitempty"`
	PCRs         map[uint][]byte       `json:"-"`
	Manifest     *manifest.Manifest    `json:"-"`
}

// SigningKey returns the uncompressed quorum signing key
func (r *Resolution) SigningKey() []byte {
	return r.QuorumKey.Signing.Bytes(false)
}

// EncryptionKey returns the uncompressed quorum encryption key
func (r *Resolution) EncryptionKey() []byte {
	return r.QuorumKey.Encryption.Bytes(false)
}

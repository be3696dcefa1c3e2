package enclave

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"

	nitroverifier "github.com/anchorageoss/awsnitroverifier"
	"github.com/rs/zerolog"

	"github.com/anchorageoss/turnkeycrypto/cryptoerr"
	"github.com/anchorageoss/turnkeycrypto/manifest"
)

// AttestationVerifier validates Nitro attestation documents
type AttestationVerifier interface {
	Validate(attestationDocument string) (*nitroverifier.ValidationResult, error)
}

// Service resolves attested quorum keys
type Service struct {
	attestationVerifier AttestationVerifier
	logger              zerolog.Logger
}

// NewService creates a new resolution service
func NewService(attestationVerifier AttestationVerifier, logger zerolog.Logger) *Service {
	return &Service{
		attestationVerifier: attestationVerifier,
		logger:              logger,
	}
}

// ResolveQuorumKey validates the boot proof and returns the quorum key the manifest names.
// The manifest is only trusted once its digest equals the attested UserData.
func (s *Service) ResolveQuorumKey(ctx context.Context, proof BootProof) (*Resolution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	validation, err := s.attestationVerifier.Validate(proof.AttestationDocument)
	if err != nil {
		return nil, fmt.Errorf("failed to verify attestation document: %w", err)
	}
	if !validation.Valid || validation.Document == nil {
		return nil, cryptoerr.Wrap(cryptoerr.ErrAttestationInvalid, "%v", validation.Errors)
	}
	doc := validation.Document
	s.logger.Debug().
		Str("module_id", doc.ModuleID).
		Int("pcr_count", len(doc.PCRs)).
		Msg("attestation document valid")

	decoded, err := manifest.DecodeBase64(proof.ManifestB64)
	if err != nil {
		return nil, cryptoerr.Wrap(cryptoerr.ErrFormat, "manifest: %v", err)
	}
	if !decoded.MatchesUserData(doc.UserData) {
		return nil, cryptoerr.Wrap(cryptoerr.ErrManifestMismatch, "manifest %s, user data %s",
			decoded.HashHex(), hex.EncodeToString(doc.UserData))
	}

	result := &Resolution{
		ModuleID:     doc.ModuleID,
		ManifestHash: decoded.HashHex(),
		Namespace:    decoded.Manifest.Namespace.Name,
		PCRs:         doc.PCRs,
		Manifest:     decoded.Manifest,
	}

	rules := append([]nitroverifier.PCRRule(nil), proof.ExpectedPCRs...)
	sources := make([]string, len(rules))
	for i := range sources {
		sources[i] = "expected"
	}
	if proof.CheckManifestPCRs {
		pinned := manifestPCRs(decoded.Manifest)
		rules = append(rules, pinned...)
		for range pinned {
			sources = append(sources, "manifest")
		}
	}
	result.PCRResults = comparePCRs(doc.PCRs, rules, sources)
	for _, r := range result.PCRResults {
		if !r.Valid {
			return nil, cryptoerr.Wrap(cryptoerr.ErrPCRMismatch, "PCR[%d] (%s)", r.Index, r.Source)
		}
	}

	quorumKey, err := decoded.Manifest.Namespace.QuorumKeys()
	if err != nil {
		return nil, err
	}
	result.QuorumKey = quorumKey

	s.logger.Debug().
		Str("namespace", result.Namespace).
		Str("manifest_hash", result.ManifestHash).
		Str("signing_key", quorumKey.Signing.Hex(false)).
		Msg("quorum key resolved")

	return result, nil
}

func manifestPCRs(m *manifest.Manifest) []nitroverifier.PCRRule {
	values := [][]byte{m.Enclave.Pcr0, m.Enclave.Pcr1, m.Enclave.Pcr2, m.Enclave.Pcr3}
	rules := make([]nitroverifier.PCRRule, 0, len(values))
	for i, v := range values {
		rules = append(rules, nitroverifier.PCRRule{Index: uint(i), Value: v})
	}
	return rules
}

func comparePCRs(actual map[uint][]byte, rules []nitroverifier.PCRRule, sources []string) []PCRValidationResult {
	results := make([]PCRValidationResult, len(rules))
	for i, rule := range rules {
		got, ok := actual[rule.Index]
		results[i] = PCRValidationResult{
			Index:    rule.Index,
			Source:   sources[i],
			Expected: hex.EncodeToString(rule.Value),
			Actual:   hex.EncodeToString(got),
			Valid:    ok && bytes.Equal(got, rule.Value),
		}
	}
	return results
}

package bundle

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/anchorageoss/turnkeycrypto/crypto"
	"github.com/anchorageoss/turnkeycrypto/cryptoerr"
	"github.com/anchorageoss/turnkeycrypto/point"
)

// SignedBundleVersion is the only envelope version understood
const SignedBundleVersion = "v1.0.0"

// SignedBundle is the envelope the enclave wraps export and import payloads in.
type SignedBundle struct {
	Version             string `json:"version"`
	Data                string `json:"data"`          // hex of the signed JSON payload
	DataSignature       string `json:"dataSignature"` // hex DER
	EnclaveQuorumPublic string `json:"enclaveQuorumPublic"`
}

// ParseSignedBundle decodes the JSON envelope
func ParseSignedBundle(raw string) (*SignedBundle, error) {
	var b SignedBundle
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		return nil, cryptoerr.Wrap(cryptoerr.ErrInvalidBundle, "invalid envelope JSON")
	}
	if b.Version != SignedBundleVersion {
		return nil, cryptoerr.Wrap(cryptoerr.ErrInvalidBundle, "unsupported version %q", b.Version)
	}
	if b.Data == "" || b.DataSignature == "" || b.EnclaveQuorumPublic == "" {
		return nil, cryptoerr.Wrap(cryptoerr.ErrInvalidBundle, "missing envelope field")
	}
	return &b, nil
}

// Verify checks that the envelope was signed by trustedSigner and returns the signed
// payload bytes.
func (b *SignedBundle) Verify(trustedSigner *point.ECPoint) ([]byte, error) {
	signer, err := point.ParseHex(b.EnclaveQuorumPublic)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %w", cryptoerr.ErrInvalidEnclaveSignature, cryptoerr.ErrUntrustedSigner, err)
	}
	if !bytes.Equal(signer.Bytes(false), trustedSigner.Bytes(false)) {
		return nil, fmt.Errorf("%w: %w", cryptoerr.ErrInvalidEnclaveSignature, cryptoerr.ErrUntrustedSigner)
	}

	data, err := hex.DecodeString(b.Data)
	if err != nil {
		return nil, cryptoerr.Wrap(cryptoerr.ErrInvalidHex, "data")
	}
	sig, err := hex.DecodeString(b.DataSignature)
	if err != nil {
		return nil, cryptoerr.Wrap(cryptoerr.ErrInvalidHex, "dataSignature")
	}

	if err := crypto.VerifyDERSignature(trustedSigner.ECDSA(), data, crypto.NormalizeDER(sig)); err != nil {
		return nil, fmt.Errorf("%w: %w", cryptoerr.ErrInvalidEnclaveSignature, err)
	}
	return data, nil
}

// SignBundle builds an envelope over data, signing it with signer. It is the enclave-side
// counterpart of Verify.
func SignBundle(data []byte, signer *ecdsa.PrivateKey) (*SignedBundle, error) {
	pub, err := point.FromECDSA(&signer.PublicKey)
	if err != nil {
		return nil, err
	}
	sig, err := crypto.SignWithECDSA(signer, data)
	if err != nil {
		return nil, err
	}
	return &SignedBundle{
		Version:             SignedBundleVersion,
		Data:                hex.EncodeToString(data),
		DataSignature:       hex.EncodeToString(sig),
		EnclaveQuorumPublic: pub.Hex(false),
	}, nil
}

// JSON returns the serialized envelope
func (b *SignedBundle) JSON() (string, error) {
	raw, err := json.Marshal(b)
	if err != nil {
		return "", fmt.Errorf("failed to marshal bundle: %w", err)
	}
	return string(raw), nil
}

// Package stamp creates and verifies Turnkey request stamps and enclave-issued tokens.
//
// # Request stamps
//
// Every authenticated API request carries an X-Stamp header: the base64url encoding of a
// JSON object holding the caller's compressed public key, a DER signature over the request
// body, and the signature scheme.
//
//	stamper := stamp.NewStamper(apiKey)
//	header, err := stamper.Header(body)
//	if err != nil {
//		log.Fatal(err)
//	}
//	req.Header.Set(stamp.HeaderName, header)
//
// # Tokens
//
// Session JWTs are signed by the notarizer key and verified with
// [VerifySessionJWTSignature]; OTP verification tokens are signed by the enclave signer
// key and verified, including expiry, with [VerifyEnclaveVerificationToken].
package stamp

import (
	"context"
	"crypto/ecdsa"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/anchorageoss/turnkeycrypto/crypto"
	"github.com/anchorageoss/turnkeycrypto/cryptoerr"
	"github.com/anchorageoss/turnkeycrypto/point"
)

const (
	// HeaderName is the HTTP header the stamp travels in
	HeaderName = "X-Stamp"

	// SchemeP256 identifies ECDSA P-256 over SHA-256 with a DER signature
	SchemeP256 = "SIGNATURE_SCHEME_TK_API_P256"
)

// APIKey is a Turnkey API key pair
type APIKey struct {
	PublicKey      string // hex compressed
	PrivateKey     *ecdsa.PrivateKey
	OrganizationID string
}

// KeyProvider supplies API keys
type KeyProvider interface {
	GetAPIKey(ctx context.Context) (*APIKey, error)
}

// Stamp is the decoded X-Stamp payload
type Stamp struct {
	PublicKey string `json:"publicKey"`
	Signature string `json:"signature"`
	Scheme    string `json:"scheme"`
}

// Stamper signs request bodies with an API key
type Stamper struct {
	APIKey *APIKey
}

// NewStamper creates a Stamper for key
func NewStamper(key *APIKey) *Stamper {
	return &Stamper{APIKey: key}
}

// Stamp signs body and returns the stamp
func (s *Stamper) Stamp(body []byte) (*Stamp, error) {
	if s.APIKey == nil || s.APIKey.PrivateKey == nil {
		return nil, cryptoerr.Wrap(cryptoerr.ErrInvalidPrivateKey, "stamper has no API key")
	}
	signature, err := crypto.SignWithECDSA(s.APIKey.PrivateKey, body)
	if err != nil {
		return nil, fmt.Errorf("failed to sign request: %w", err)
	}

	return &Stamp{
		PublicKey: s.APIKey.PublicKey,
		Signature: hex.EncodeToString(signature),
		Scheme:    SchemeP256,
	}, nil
}

// Header returns the base64url-encoded stamp for body
func (s *Stamper) Header(body []byte) (string, error) {
	st, err := s.Stamp(body)
	if err != nil {
		return "", err
	}
	return st.Encode()
}

// Encode serializes the stamp for the X-Stamp header
func (st *Stamp) Encode() (string, error) {
	stampJSON, err := json.Marshal(st)
	if err != nil {
		return "", fmt.Errorf("failed to marshal stamp: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(stampJSON), nil
}

// DecodeStamp parses an X-Stamp header value
func DecodeStamp(header string) (*Stamp, error) {
	raw, err := base64.RawURLEncoding.DecodeString(header)
	if err != nil {
		return nil, cryptoerr.Wrap(cryptoerr.ErrFormat, "invalid stamp encoding")
	}
	var st Stamp
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, cryptoerr.Wrap(cryptoerr.ErrFormat, "invalid stamp JSON")
	}
	return &st, nil
}

// Verify checks the stamp against the request body
func (st *Stamp) Verify(body []byte) error {
	if st.Scheme != SchemeP256 {
		return cryptoerr.Wrap(cryptoerr.ErrFormat, "unsupported scheme %q", st.Scheme)
	}
	return VerifyStampSignature(st.PublicKey, st.Signature, string(body))
}

// VerifyStampSignature verifies a hex DER signature over signedData under a hex public key
// in either point encoding. Zero bytes trailing the DER structure are tolerated.
func VerifyStampSignature(publicKeyHex, signatureHex, signedData string) error {
	pub, err := point.ParseHex(publicKeyHex)
	if err != nil {
		return err
	}
	sig, err := hex.DecodeString(signatureHex)
	if err != nil {
		return cryptoerr.Wrap(cryptoerr.ErrInvalidHex, "signature")
	}
	return crypto.VerifyDERSignature(pub.ECDSA(), []byte(signedData), crypto.NormalizeDER(sig))
}

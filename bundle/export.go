package bundle

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/rs/zerolog"

	"github.com/anchorageoss/turnkeycrypto/crypto"
	"github.com/anchorageoss/turnkeycrypto/cryptoerr"
	"github.com/anchorageoss/turnkeycrypto/hpke"
	"github.com/anchorageoss/turnkeycrypto/point"
)

// KeyFormat selects how a raw private key is rendered or parsed
type KeyFormat string

// Supported key formats
const (
	KeyFormatHexadecimal KeyFormat = "HEXADECIMAL"
	KeyFormatSolana      KeyFormat = "SOLANA"
)

// ExportRequest describes one export bundle to decrypt.
type ExportRequest struct {
	ExportBundle   string // signed JSON envelope
	EmbeddedKey    string // hex P-256 private key the bundle was encrypted to
	OrganizationID string
	KeyFormat      KeyFormat
	ReturnMnemonic bool
}

type exportPayload struct {
	OrganizationID string `json:"organizationId"`
	EncappedPublic string `json:"encappedPublic"`
	Ciphertext     string `json:"ciphertext"`
}

// Decryptor opens export bundles signed by a trusted enclave key.
type Decryptor struct {
	TrustedSigner *point.ECPoint
	Capabilities  hpke.Capabilities
	Logger        zerolog.Logger
}

// NewDecryptor creates a Decryptor trusting the given enclave signing key, compressed or
// uncompressed.
func NewDecryptor(trustedSigner []byte, logger zerolog.Logger) (*Decryptor, error) {
	signer, err := point.Parse(trustedSigner)
	if err != nil {
		return nil, fmt.Errorf("failed to parse trusted signer: %w", err)
	}
	return &Decryptor{
		TrustedSigner: signer,
		Capabilities:  hpke.DefaultCapabilities(),
		Logger:        logger,
	}, nil
}

// DecryptExportBundle verifies and decrypts an export bundle.
//
// The enclave signature is checked first, then the organization id, and only then is the
// ciphertext decrypted. The organization id is read from the signed data; an organizationId
// field outside it is ignored. A mnemonic is returned as text; other keys are returned as hex,
// or as a base58 keypair when KeyFormat is SOLANA.
func (d *Decryptor) DecryptExportBundle(req ExportRequest) (string, error) {
	envelope, err := ParseSignedBundle(req.ExportBundle)
	if err != nil {
		return "", err
	}

	data, err := envelope.Verify(d.TrustedSigner)
	if err != nil {
		d.Logger.Debug().Err(err).Msg("export bundle signature rejected")
		return "", err
	}
	d.Logger.Debug().Int("data_len", len(data)).Msg("export bundle signature verified")

	var payload exportPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", cryptoerr.Wrap(cryptoerr.ErrInvalidBundle, "invalid signed data JSON")
	}
	if err := checkID(payload.OrganizationID, req.OrganizationID, cryptoerr.ErrOrganizationMismatch); err != nil {
		return "", err
	}

	var encrypted hpke.EncryptedBundle
	if err := json.Unmarshal(data, &encrypted); err != nil {
		return "", err
	}

	key, err := crypto.ParsePrivateKeyHex(req.EmbeddedKey)
	if err != nil {
		return "", err
	}
	defer crypto.ZeroPrivateKey(key)

	plaintext, err := hpke.Decrypt(d.Capabilities, &encrypted, key)
	if err != nil {
		return "", err
	}
	defer crypto.Zero(plaintext)
	d.Logger.Debug().
		Str("organization_id", payload.OrganizationID).
		Int("plaintext_len", len(plaintext)).
		Msg("export bundle decrypted")

	if req.ReturnMnemonic {
		if !utf8.Valid(plaintext) {
			return "", cryptoerr.Wrap(cryptoerr.ErrInvalidBundle, "mnemonic is not valid UTF-8")
		}
		return string(plaintext), nil
	}
	return encodePrivateKey(plaintext, req.KeyFormat)
}

func encodePrivateKey(key []byte, format KeyFormat) (string, error) {
	switch format {
	case "", KeyFormatHexadecimal:
		return hex.EncodeToString(key), nil
	case KeyFormatSolana:
		if len(key) != ed25519.SeedSize {
			return "", cryptoerr.Wrap(cryptoerr.ErrInvalidKeyFormat, "solana key must be %d bytes, got %d", ed25519.SeedSize, len(key))
		}
		keypair := ed25519.NewKeyFromSeed(key)
		defer crypto.Zero(keypair)
		return base58.Encode(keypair), nil
	default:
		return "", cryptoerr.Wrap(cryptoerr.ErrInvalidKeyFormat, "%q", format)
	}
}

// checkID compares two UUIDs, ignoring case and formatting differences.
func checkID(got, want string, mismatch error) error {
	gotID, err := uuid.Parse(got)
	if err != nil {
		return cryptoerr.Wrap(cryptoerr.ErrInvalidBundle, "invalid id in signed data")
	}
	wantID, err := uuid.Parse(want)
	if err != nil {
		return cryptoerr.Wrap(mismatch, "expected id is not a UUID")
	}
	if gotID != wantID {
		return cryptoerr.Wrap(mismatch, "bundle is for %s", gotID)
	}
	return nil
}

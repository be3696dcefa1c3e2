package bundle

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/rs/zerolog"
	"github.com/tyler-smith/go-bip39"

	"github.com/anchorageoss/turnkeycrypto/crypto"
	"github.com/anchorageoss/turnkeycrypto/cryptoerr"
	"github.com/anchorageoss/turnkeycrypto/hpke"
	"github.com/anchorageoss/turnkeycrypto/point"
)

// ImportRequest describes the signed import bundle key material is encrypted against.
type ImportRequest struct {
	ImportBundle   string // signed JSON envelope
	OrganizationID string
	UserID         string
}

type importPayload struct {
	OrganizationID string `json:"organizationId"`
	UserID         string `json:"userId"`
	TargetPublic   string `json:"targetPublic"`
}

// Encryptor encrypts key material to the target key of a trusted import bundle.
type Encryptor struct {
	TrustedSigner *point.ECPoint
	Capabilities  hpke.Capabilities
	Logger        zerolog.Logger
}

// NewEncryptor creates an Encryptor trusting the given enclave signing key
func NewEncryptor(trustedSigner []byte, logger zerolog.Logger) (*Encryptor, error) {
	signer, err := point.Parse(trustedSigner)
	if err != nil {
		return nil, fmt.Errorf("failed to parse trusted signer: %w", err)
	}
	return &Encryptor{
		TrustedSigner: signer,
		Capabilities:  hpke.DefaultCapabilities(),
		Logger:        logger,
	}, nil
}

// EncryptPrivateKeyToBundle encrypts a private key for import. HEXADECIMAL keys may carry
// a 0x prefix; SOLANA keys are a base58 64-byte keypair of which the first 32 bytes are
// imported.
func (e *Encryptor) EncryptPrivateKeyToBundle(req ImportRequest, privateKey string, format KeyFormat) (string, error) {
	raw, err := decodePrivateKey(privateKey, format)
	if err != nil {
		return "", err
	}
	defer crypto.Zero(raw)
	return e.encrypt(req, raw)
}

// EncryptWalletToBundle encrypts a BIP-39 mnemonic for import.
func (e *Encryptor) EncryptWalletToBundle(req ImportRequest, mnemonic string) (string, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return "", cryptoerr.ErrInvalidMnemonic
	}
	raw := []byte(mnemonic)
	defer crypto.Zero(raw)
	return e.encrypt(req, raw)
}

func (e *Encryptor) encrypt(req ImportRequest, plaintext []byte) (string, error) {
	envelope, err := ParseSignedBundle(req.ImportBundle)
	if err != nil {
		return "", err
	}
	data, err := envelope.Verify(e.TrustedSigner)
	if err != nil {
		e.Logger.Debug().Err(err).Msg("import bundle signature rejected")
		return "", err
	}

	var payload importPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", cryptoerr.Wrap(cryptoerr.ErrInvalidBundle, "invalid signed data JSON")
	}
	if err := checkID(payload.OrganizationID, req.OrganizationID, cryptoerr.ErrOrganizationMismatch); err != nil {
		return "", err
	}
	if err := checkID(payload.UserID, req.UserID, cryptoerr.ErrUserMismatch); err != nil {
		return "", err
	}

	target, err := hex.DecodeString(payload.TargetPublic)
	if err != nil {
		return "", cryptoerr.Wrap(cryptoerr.ErrInvalidHex, "targetPublic")
	}
	encrypted, err := hpke.Encrypt(e.Capabilities, plaintext, target)
	if err != nil {
		return "", err
	}
	e.Logger.Debug().
		Str("organization_id", payload.OrganizationID).
		Int("plaintext_len", len(plaintext)).
		Msg("import bundle encrypted")

	out, err := json.Marshal(encrypted)
	if err != nil {
		return "", fmt.Errorf("failed to marshal encrypted bundle: %w", err)
	}
	return string(out), nil
}

const solanaKeypairSize = 64

func decodePrivateKey(privateKey string, format KeyFormat) ([]byte, error) {
	switch format {
	case "", KeyFormatHexadecimal:
		raw, err := hex.DecodeString(strings.TrimPrefix(privateKey, "0x"))
		if err != nil {
			return nil, cryptoerr.Wrap(cryptoerr.ErrInvalidHex, "private key")
		}
		return raw, nil
	case KeyFormatSolana:
		raw, err := base58.Decode(privateKey)
		if err != nil {
			return nil, cryptoerr.Wrap(cryptoerr.ErrInvalidKeyFormat, "invalid base58")
		}
		defer crypto.Zero(raw)
		if len(raw) != solanaKeypairSize {
			return nil, cryptoerr.Wrap(cryptoerr.ErrInvalidKeyFormat, "solana keypair must be %d bytes, got %d", solanaKeypairSize, len(raw))
		}
		return append([]byte(nil), raw[:32]...), nil
	default:
		return nil, cryptoerr.Wrap(cryptoerr.ErrInvalidKeyFormat, "%q", format)
	}
}

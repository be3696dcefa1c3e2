// Package bundle implements the enclave bundle protocols built on top of hpke.
//
// # Credential bundles
//
// A credential bundle carries a P-256 private key (for example an API key minted by an
// email authentication flow) encrypted to a client's embedded key. On the wire it is the
// base58check encoding of the encapsulated key, compressed or uncompressed, followed by
// the ciphertext:
//
//	privHex, err := bundle.DecryptCredentialBundle(credentialBundle, embeddedKeyHex)
//
// # Export and import bundles
//
// Export bundles are signed by the enclave quorum key and carry an encrypted wallet
// mnemonic or private key. [Decryptor] verifies the signature against a trusted signer
// before it looks at anything else in the bundle. Import bundles run the other way: the
// enclave signs a target key, and [EncryptPrivateKeyToBundle] or [EncryptWalletToBundle]
// encrypt key material to it.
package bundle

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"

	"github.com/mr-tron/base58"

	"github.com/anchorageoss/turnkeycrypto/crypto"
	"github.com/anchorageoss/turnkeycrypto/cryptoerr"
	"github.com/anchorageoss/turnkeycrypto/hpke"
)

const checksumSize = 4

func checksum(payload []byte) []byte {
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	return second[:checksumSize]
}

// encodeBase58Check appends a double SHA-256 checksum and base58-encodes the result.
func encodeBase58Check(payload []byte) string {
	return base58.Encode(append(bytes.Clone(payload), checksum(payload)...))
}

// decodeBase58Check reverses encodeBase58Check.
func decodeBase58Check(s string) ([]byte, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return nil, cryptoerr.Wrap(cryptoerr.ErrInvalidBundle, "invalid base58")
	}
	if len(raw) <= checksumSize {
		return nil, cryptoerr.Wrap(cryptoerr.ErrInvalidBundle, "bundle too short")
	}
	payload, sum := raw[:len(raw)-checksumSize], raw[len(raw)-checksumSize:]
	if !bytes.Equal(checksum(payload), sum) {
		return nil, cryptoerr.ErrInvalidChecksum
	}
	return payload, nil
}

// DecryptCredentialBundle decrypts a base58check credential bundle with the embedded
// private key and returns the hex of the recovered plaintext.
func DecryptCredentialBundle(credentialBundle, embeddedKeyHex string) (string, error) {
	payload, err := decodeBase58Check(credentialBundle)
	if err != nil {
		return "", err
	}

	encrypted, err := hpke.ParseEncryptedBundle(payload)
	if err != nil {
		return "", err
	}

	key, err := crypto.ParsePrivateKeyHex(embeddedKeyHex)
	if err != nil {
		return "", err
	}
	defer crypto.ZeroPrivateKey(key)

	plaintext, err := hpke.Decrypt(hpke.DefaultCapabilities(), encrypted, key)
	if err != nil {
		return "", err
	}
	defer crypto.Zero(plaintext)

	return hex.EncodeToString(plaintext), nil
}

// EncryptCredentialBundle encrypts plaintext to receiverPub and returns a credential bundle
// with a compressed encapsulated key.
func EncryptCredentialBundle(caps hpke.Capabilities, plaintext, receiverPub []byte) (string, error) {
	encrypted, err := hpke.Encrypt(caps, plaintext, receiverPub)
	if err != nil {
		return "", err
	}
	raw, err := encrypted.Bytes(true)
	if err != nil {
		return "", err
	}
	return encodeBase58Check(raw), nil
}

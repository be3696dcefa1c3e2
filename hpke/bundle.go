package hpke

import (
	"encoding/hex"
	"encoding/json"

	"github.com/anchorageoss/turnkeycrypto/cryptoerr"
	"github.com/anchorageoss/turnkeycrypto/point"
)

// minCiphertextSize is the AES-GCM tag size
const minCiphertextSize = 16

// EncryptedBundle is the output of Encrypt and AuthEncrypt.
type EncryptedBundle struct {
	// EncappedPublic is the 65-byte uncompressed encapsulation key
	EncappedPublic []byte
	Ciphertext     []byte
}

// Bytes concatenates the encapsulated key, compressed if requested, with the ciphertext.
func (b *EncryptedBundle) Bytes(compressed bool) ([]byte, error) {
	enc, err := point.Parse(b.EncappedPublic)
	if err != nil {
		return nil, err
	}
	return concat(enc.Bytes(compressed), b.Ciphertext), nil
}

// ParseEncryptedBundle splits raw bytes produced by Bytes. The encapsulated key is
// uncompressed when it starts with 0x04 and compressed otherwise.
func ParseEncryptedBundle(raw []byte) (*EncryptedBundle, error) {
	if len(raw) == 0 {
		return nil, cryptoerr.Wrap(cryptoerr.ErrInvalidBundle, "empty bundle")
	}
	size := point.CompressedSize
	if raw[0] == point.UncompressedPointTag {
		size = point.UncompressedSize
	}
	if len(raw) < size+minCiphertextSize {
		return nil, cryptoerr.Wrap(cryptoerr.ErrInvalidBundle, "bundle too short: %d bytes", len(raw))
	}

	enc, err := point.Parse(raw[:size])
	if err != nil {
		return nil, cryptoerr.Wrap(err, "encapsulated key")
	}
	return &EncryptedBundle{
		EncappedPublic: enc.Bytes(false),
		Ciphertext:     append([]byte(nil), raw[size:]...),
	}, nil
}

type encryptedBundleJSON struct {
	EncappedPublic string `json:"encappedPublic"`
	Ciphertext     string `json:"ciphertext"`
}

// MarshalJSON encodes both fields as lowercase hex
func (b EncryptedBundle) MarshalJSON() ([]byte, error) {
	return json.Marshal(encryptedBundleJSON{
		EncappedPublic: hex.EncodeToString(b.EncappedPublic),
		Ciphertext:     hex.EncodeToString(b.Ciphertext),
	})
}

// UnmarshalJSON decodes the hex fields. The encapsulated key is validated on Decrypt.
func (b *EncryptedBundle) UnmarshalJSON(data []byte) error {
	var raw encryptedBundleJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return cryptoerr.Wrap(cryptoerr.ErrInvalidBundle, "invalid JSON")
	}
	enc, err := hex.DecodeString(raw.EncappedPublic)
	if err != nil {
		return cryptoerr.Wrap(cryptoerr.ErrInvalidHex, "encappedPublic")
	}
	ciphertext, err := hex.DecodeString(raw.Ciphertext)
	if err != nil {
		return cryptoerr.Wrap(cryptoerr.ErrInvalidHex, "ciphertext")
	}
	b.EncappedPublic = enc
	b.Ciphertext = ciphertext
	return nil
}

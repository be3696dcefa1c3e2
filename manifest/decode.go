package manifest

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/near/borsh-go"
)

// Decoded is a parsed manifest together with the canonical bytes its digest covers.
type Decoded struct {
	// Envelope is nil when the input was a bare manifest
	Envelope      *ManifestEnvelope
	Manifest      *Manifest
	ManifestBytes []byte
}

// Decode parses either a manifest envelope or a bare manifest. Envelopes are tried first.
func Decode(raw []byte) (*Decoded, error) {
	var env ManifestEnvelope
	if err := borsh.Deserialize(&env, raw); err == nil {
		manifestBytes, err := borsh.Serialize(env.Manifest)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize manifest: %w", err)
		}
		return &Decoded{Envelope: &env, Manifest: &env.Manifest, ManifestBytes: manifestBytes}, nil
	}

	var m Manifest
	if err := borsh.Deserialize(&m, raw); err != nil {
		return nil, fmt.Errorf("failed to deserialize as envelope or manifest: %w", err)
	}
	return &Decoded{Manifest: &m, ManifestBytes: raw}, nil
}

// DecodeBase64 is Decode for standard base64 input
func DecodeBase64(manifestB64 string) (*Decoded, error) {
	raw, err := base64.StdEncoding.DecodeString(manifestB64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}
	return Decode(raw)
}

// DecodeFile is Decode for a binary file
func DecodeFile(path string) (*Decoded, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Decode(raw)
}

// Hash returns SHA-256 of the manifest bytes
func (d *Decoded) Hash() [sha256.Size]byte {
	return sha256.Sum256(d.ManifestBytes)
}

// HashHex returns the hex of Hash
func (d *Decoded) HashHex() string {
	h := d.Hash()
	return hex.EncodeToString(h[:])
}

// MatchesUserData reports whether userData is exactly the manifest digest.
func (d *Decoded) MatchesUserData(userData []byte) bool {
	h := d.Hash()
	return subtle.ConstantTimeCompare(h[:], userData) == 1
}

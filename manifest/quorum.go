package manifest

import (
	"github.com/anchorageoss/turnkeycrypto/cryptoerr"
	"github.com/anchorageoss/turnkeycrypto/point"
)

// QuorumKeySize is the length of a QuorumOS quorum public key
const QuorumKeySize = 2 * point.UncompressedSize

// QuorumKey is the quorum public key split into its two P-256 halves.
type QuorumKey struct {
	Encryption *point.ECPoint
	Signing    *point.ECPoint
}

// QuorumKeys splits the namespace quorum key into its encryption and signing keys. Both
// halves are uncompressed points and both must be on the curve.
func (n Namespace) QuorumKeys() (*QuorumKey, error) {
	if len(n.QuorumKey) != QuorumKeySize {
		return nil, cryptoerr.Wrap(cryptoerr.ErrInvalidLength, "quorum key is %d bytes, want %d", len(n.QuorumKey), QuorumKeySize)
	}
	enc, err := point.Parse(n.QuorumKey[:point.UncompressedSize])
	if err != nil {
		return nil, cryptoerr.Wrap(err, "quorum encryption key")
	}
	sign, err := point.Parse(n.QuorumKey[point.UncompressedSize:])
	if err != nil {
		return nil, cryptoerr.Wrap(err, "quorum signing key")
	}
	return &QuorumKey{Encryption: enc, Signing: sign}, nil
}

// Bytes joins the halves back into the 130-byte wire form
func (q *QuorumKey) Bytes() []byte {
	return append(q.Encryption.Bytes(false), q.Signing.Bytes(false)...)
}

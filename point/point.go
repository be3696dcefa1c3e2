// Package point encodes, decodes and validates P-256 public keys.
//
// # Wire forms
//
// A public key travels either compressed (33 bytes, prefix 0x02 or 0x03 followed by X) or
// uncompressed (65 bytes, prefix 0x04 followed by X and Y). Coordinates are always exactly
// 32 bytes, left padded with zeros.
//
// # Decoding
//
// Decode is the single entry point for raw bytes and yields either a [Compressed] or an
// [Uncompressed] value. Neither is trusted until converted to an [ECPoint]:
//
//	p, err := point.Decode(raw)
//	if err != nil {
//		return err
//	}
//	ec, err := p.ECPoint()
//	if err != nil {
//		return err // off-curve or out-of-range
//	}
//
// Uncompressed input is always range checked and run through the curve equation, which
// defends against invalid-curve point substitution.
package point

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/anchorageoss/turnkeycrypto/cryptoerr"
	"github.com/anchorageoss/turnkeycrypto/field"
)

// Encoding sizes and prefixes
const (
	CoordinateSize   = 32
	CompressedSize   = 1 + CoordinateSize
	UncompressedSize = 1 + 2*CoordinateSize

	CompressedEvenTag    = 0x02
	CompressedOddTag     = 0x03
	UncompressedPointTag = 0x04
)

// Point is a decoded but not yet validated public key. Its only implementations are
// Compressed and Uncompressed.
type Point interface {
	// ECPoint validates the encoding and returns the affine point
	ECPoint() (*ECPoint, error)
	// Bytes returns the wire encoding
	Bytes() []byte

	sealed()
}

// Compressed is a 33-byte SEC1 compressed point
type Compressed [CompressedSize]byte

// Uncompressed is a 65-byte SEC1 uncompressed point
type Uncompressed [UncompressedSize]byte

func (Compressed) sealed()   {}
func (Uncompressed) sealed() {}

// Bytes returns a copy of the encoding
func (c Compressed) Bytes() []byte {
	return append([]byte(nil), c[:]...)
}

// Bytes returns a copy of the encoding
func (u Uncompressed) Bytes() []byte {
	return append([]byte(nil), u[:]...)
}

// ECPoint recovers Y from X using the parity in the prefix.
func (c Compressed) ECPoint() (*ECPoint, error) {
	x := new(big.Int).SetBytes(c[1:])
	if !field.InRange(x) {
		return nil, cryptoerr.ErrCoordinateOutOfRange
	}
	y, err := field.YFromX(x, c[0] == CompressedOddTag)
	if err != nil {
		return nil, err
	}
	return &ECPoint{X: x, Y: y}, nil
}

// ECPoint checks the coordinate ranges and the curve equation.
func (u Uncompressed) ECPoint() (*ECPoint, error) {
	x := new(big.Int).SetBytes(u[1 : 1+CoordinateSize])
	y := new(big.Int).SetBytes(u[1+CoordinateSize:])
	if !field.InRange(x) || !field.InRange(y) {
		return nil, cryptoerr.ErrCoordinateOutOfRange
	}
	if !field.IsOnCurve(x, y) {
		return nil, cryptoerr.ErrInvalidPoint
	}
	return &ECPoint{X: x, Y: y}, nil
}

// Decode classifies raw bytes as a compressed or uncompressed point by length and prefix.
func Decode(b []byte) (Point, error) {
	switch len(b) {
	case CompressedSize:
		if b[0] != CompressedEvenTag && b[0] != CompressedOddTag {
			return nil, cryptoerr.Wrap(cryptoerr.ErrInvalidPrefix, "compressed point prefix 0x%02x", b[0])
		}
		var c Compressed
		copy(c[:], b)
		return c, nil
	case UncompressedSize:
		if b[0] != UncompressedPointTag {
			return nil, cryptoerr.Wrap(cryptoerr.ErrInvalidPrefix, "uncompressed point prefix 0x%02x", b[0])
		}
		var u Uncompressed
		copy(u[:], b)
		return u, nil
	default:
		return nil, cryptoerr.Wrap(cryptoerr.ErrInvalidLength, "expected %d or %d bytes, got %d",
			CompressedSize, UncompressedSize, len(b))
	}
}

// Parse decodes and validates a public key in either wire form.
func Parse(b []byte) (*ECPoint, error) {
	p, err := Decode(b)
	if err != nil {
		return nil, err
	}
	return p.ECPoint()
}

// ParseHex is Parse for hex-encoded keys
func ParseHex(s string) (*ECPoint, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, cryptoerr.Wrap(cryptoerr.ErrInvalidHex, "public key")
	}
	return Parse(b)
}

// Compress converts a public key to its 33-byte form.
func Compress(b []byte) ([]byte, error) {
	p, err := Parse(b)
	if err != nil {
		return nil, err
	}
	return p.Bytes(true), nil
}

// Uncompress converts a public key to its 65-byte form.
func Uncompress(b []byte) ([]byte, error) {
	p, err := Parse(b)
	if err != nil {
		return nil, err
	}
	return p.Bytes(false), nil
}

// ECPoint is a validated affine point on P-256.
type ECPoint struct {
	X, Y *big.Int
}

// FromECDSA validates an ecdsa public key and converts it.
func FromECDSA(pub *ecdsa.PublicKey) (*ECPoint, error) {
	if pub == nil || pub.X == nil || pub.Y == nil {
		return nil, cryptoerr.Wrap(cryptoerr.ErrInvalidPoint, "missing coordinates")
	}
	if pub.Curve != nil && pub.Curve.Params().Name != elliptic.P256().Params().Name {
		return nil, cryptoerr.Wrap(cryptoerr.ErrInvalidPoint, "unsupported curve %s", pub.Curve.Params().Name)
	}
	if !field.IsOnCurve(pub.X, pub.Y) {
		return nil, cryptoerr.ErrInvalidPoint
	}
	return &ECPoint{X: new(big.Int).Set(pub.X), Y: new(big.Int).Set(pub.Y)}, nil
}

// Compressed returns the 33-byte encoding
func (p *ECPoint) Compressed() Compressed {
	var c Compressed
	c[0] = CompressedEvenTag
	if p.Y.Bit(0) == 1 {
		c[0] = CompressedOddTag
	}
	p.X.FillBytes(c[1:])
	return c
}

// Uncompressed returns the 65-byte encoding
func (p *ECPoint) Uncompressed() Uncompressed {
	var u Uncompressed
	u[0] = UncompressedPointTag
	p.X.FillBytes(u[1 : 1+CoordinateSize])
	p.Y.FillBytes(u[1+CoordinateSize:])
	return u
}

// Bytes returns the compressed or uncompressed encoding.
func (p *ECPoint) Bytes(compressed bool) []byte {
	if compressed {
		c := p.Compressed()
		return c[:]
	}
	u := p.Uncompressed()
	return u[:]
}

// Hex returns the hex of Bytes(compressed)
func (p *ECPoint) Hex(compressed bool) string {
	return hex.EncodeToString(p.Bytes(compressed))
}

// Equal compares coordinates
func (p *ECPoint) Equal(other *ECPoint) bool {
	if p == nil || other == nil {
		return p == other
	}
	return p.X.Cmp(other.X) == 0 && p.Y.Cmp(other.Y) == 0
}

// ECDSA returns the point as an ecdsa public key
func (p *ECPoint) ECDSA() *ecdsa.PublicKey {
	return &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     new(big.Int).Set(p.X),
		Y:     new(big.Int).Set(p.Y),
	}
}

// ECDH returns the point as an ecdh public key
func (p *ECPoint) ECDH() (*ecdh.PublicKey, error) {
	pub, err := ecdh.P256().NewPublicKey(p.Bytes(false))
	if err != nil {
		return nil, fmt.Errorf("failed to load ECDH public key: %w", cryptoerr.ErrInvalidPoint)
	}
	return pub, nil
}

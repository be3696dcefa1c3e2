package point

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/anchorageoss/turnkeycrypto/cryptoerr"
)

// JWK is the public JSON Web Key form of a P-256 point
type JWK struct {
	KeyType string `json:"kty"`
	Curve   string `json:"crv"`
	X       string `json:"x"` // base64url, no padding, always 32 bytes
	Y       string `json:"y"` // base64url, no padding, always 32 bytes
	Use     string `json:"use,omitempty"`
}

// JWK returns the key as an EC P-256 JWK. Coordinates keep their leading zero bytes.
func (p *ECPoint) JWK() JWK {
	u := p.Uncompressed()
	return JWK{
		KeyType: "EC",
		Curve:   "P-256",
		X:       base64.RawURLEncoding.EncodeToString(u[1 : 1+CoordinateSize]),
		Y:       base64.RawURLEncoding.EncodeToString(u[1+CoordinateSize:]),
	}
}

// ParseJWK validates a JWK and returns its point.
func ParseJWK(jwk JWK) (*ECPoint, error) {
	if jwk.KeyType != "EC" || jwk.Curve != "P-256" {
		return nil, cryptoerr.Wrap(cryptoerr.ErrFormat, "unsupported JWK kty=%s crv=%s", jwk.KeyType, jwk.Curve)
	}
	x, err := base64.RawURLEncoding.DecodeString(jwk.X)
	if err != nil {
		return nil, cryptoerr.Wrap(cryptoerr.ErrFormat, "invalid JWK x encoding")
	}
	y, err := base64.RawURLEncoding.DecodeString(jwk.Y)
	if err != nil {
		return nil, cryptoerr.Wrap(cryptoerr.ErrFormat, "invalid JWK y encoding")
	}
	if len(x) != CoordinateSize || len(y) != CoordinateSize {
		return nil, cryptoerr.Wrap(cryptoerr.ErrInvalidLength, "JWK coordinates must be %d bytes", CoordinateSize)
	}

	var u Uncompressed
	u[0] = UncompressedPointTag
	copy(u[1:1+CoordinateSize], x)
	copy(u[1+CoordinateSize:], y)
	return u.ECPoint()
}

// ParseJWKBytes parses a JSON-serialized JWK
func ParseJWKBytes(b []byte) (*ECPoint, error) {
	var jwk JWK
	if err := json.Unmarshal(b, &jwk); err != nil {
		return nil, fmt.Errorf("failed to parse JWK JSON: %w", cryptoerr.ErrFormat)
	}
	return ParseJWK(jwk)
}

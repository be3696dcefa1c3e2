package crypto

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"

	"github.com/anchorageoss/turnkeycrypto/cryptoerr"
	"github.com/anchorageoss/turnkeycrypto/point"
)

// PrivateKeySize is the size of a raw P-256 scalar
const PrivateKeySize = 32

// KeyPair is a P-256 key pair in raw encodings.
type KeyPair struct {
	PrivateKey            []byte // 32-byte scalar
	PublicKey             []byte // 33-byte compressed
	PublicKeyUncompressed []byte
}

// Destroy zeroes the private scalar.
func (kp *KeyPair) Destroy() {
	Zero(kp.PrivateKey)
}

// GenerateP256KeyPair creates a key pair using entropy from r.
func GenerateP256KeyPair(r io.Reader) (*KeyPair, error) {
	priv, err := ecdh.P256().GenerateKey(r)
	if err != nil {
		return nil, fmt.Errorf("failed to generate P-256 key: %w", err)
	}
	pub, err := point.Parse(priv.PublicKey().Bytes())
	if err != nil {
		return nil, err
	}
	return &KeyPair{
		PrivateKey:            priv.Bytes(),
		PublicKey:             pub.Bytes(true),
		PublicKeyUncompressed: pub.Bytes(false),
	}, nil
}

// ParsePrivateKey loads a 32-byte scalar. The scalar must be in [1, n-1].
func ParsePrivateKey(b []byte) (*ecdsa.PrivateKey, error) {
	if len(b) != PrivateKeySize {
		return nil, cryptoerr.Wrap(cryptoerr.ErrInvalidPrivateKey, "expected %d bytes, got %d", PrivateKeySize, len(b))
	}
	ek, err := ecdh.P256().NewPrivateKey(b)
	if err != nil {
		return nil, cryptoerr.Wrap(cryptoerr.ErrInvalidPrivateKey, "scalar out of range")
	}
	pub, err := point.Parse(ek.PublicKey().Bytes())
	if err != nil {
		return nil, err
	}
	return &ecdsa.PrivateKey{
		PublicKey: *pub.ECDSA(),
		D:         new(big.Int).SetBytes(b),
	}, nil
}

// ParsePrivateKeyHex is ParsePrivateKey for hex input
func ParsePrivateKeyHex(s string) (*ecdsa.PrivateKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, cryptoerr.Wrap(cryptoerr.ErrInvalidHex, "private key")
	}
	defer Zero(b)
	return ParsePrivateKey(b)
}

// GetPublicKey derives the public key of a raw private scalar
func GetPublicKey(privateKey []byte, compressed bool) ([]byte, error) {
	key, err := ParsePrivateKey(privateKey)
	if err != nil {
		return nil, err
	}
	defer ZeroPrivateKey(key)

	pub, err := point.FromECDSA(&key.PublicKey)
	if err != nil {
		return nil, err
	}
	return pub.Bytes(compressed), nil
}

// PrivateKeyBytes returns the 32-byte scalar of key
func PrivateKeyBytes(key *ecdsa.PrivateKey) []byte {
	b := make([]byte, PrivateKeySize)
	key.D.FillBytes(b)
	return b
}

// Zero overwrites b with zeros.
func Zero(b []byte) {
	clear(b)
}

// ZeroPrivateKey clears the words backing the private scalar.
func ZeroPrivateKey(key *ecdsa.PrivateKey) {
	if key == nil || key.D == nil {
		return
	}
	clear(key.D.Bits())
	key.D.SetInt64(0)
}

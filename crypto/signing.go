// Package crypto provides P-256 signing, verification and signature encoding.
//
// This package provides:
//   - ECDSA P-256 signing and verification over SHA-256 digests
//   - Conversion between DER and IEEE-P1363 (r || s) signatures
//   - Private key parsing, generation and zeroing
//
// # Signing
//
// Sign a message with a hex private key, yielding a low-S r || s signature:
//
//	sigHex, err := crypto.SignP256(message, privateKeyHex)
//	if err != nil {
//		log.Fatal(err)
//	}
//
// # Verification
//
// Verify signatures in either encoding:
//
//	valid := crypto.VerifyECDSASignature(publicKey, data, rawSig)
//	err := crypto.VerifyDERSignature(publicKey, data, derSig)
//
// # Serialization
//
// Convert between encodings:
//
//	der, err := crypto.ToDER(rawSig)
//	raw, err := crypto.FromDER(der)
package crypto

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/anchorageoss/turnkeycrypto/cryptoerr"
	"github.com/anchorageoss/turnkeycrypto/field"
)

// SignWithECDSA signs data with an ECDSA private key using SHA256 and returns DER
func SignWithECDSA(privateKey *ecdsa.PrivateKey, data []byte) ([]byte, error) {
	hash := sha256.Sum256(data)

	r, s, err := ecdsa.Sign(rand.Reader, privateKey, hash[:])
	if err != nil {
		return nil, fmt.Errorf("failed to sign with ECDSA: %w", err)
	}

	return MarshalECDSASignatureDER(r, s)
}

// SignP256 signs the SHA-256 digest of message and returns the hex of the 64-byte r || s
// signature. s is normalized to the lower half of the group order.
func SignP256(message []byte, privateKeyHex string) (string, error) {
	key, err := ParsePrivateKeyHex(privateKeyHex)
	if err != nil {
		return "", err
	}
	defer ZeroPrivateKey(key)

	hash := sha256.Sum256(message)
	r, s, err := ecdsa.Sign(rand.Reader, key, hash[:])
	if err != nil {
		return "", fmt.Errorf("failed to sign with ECDSA: %w", err)
	}

	n := field.N()
	if s.Cmp(new(big.Int).Rsh(n, 1)) > 0 {
		s.Sub(n, s)
	}

	sig := make([]byte, SignatureSize)
	r.FillBytes(sig[:scalarSize])
	s.FillBytes(sig[scalarSize:])
	return hex.EncodeToString(sig), nil
}

// VerifyECDSASignature verifies a 64-byte r || s signature over SHA256(data)
func VerifyECDSASignature(publicKey *ecdsa.PublicKey, data []byte, signature []byte) bool {
	hash := sha256.Sum256(data)

	if len(signature) != SignatureSize {
		return false
	}

	r := new(big.Int).SetBytes(signature[:scalarSize])
	s := new(big.Int).SetBytes(signature[scalarSize:])

	return ecdsa.Verify(publicKey, hash[:], r, s)
}

// VerifyDERSignature verifies a DER signature over SHA256(data).
//
// Malformed DER is reported as a signature format error; a well-formed signature that does
// not verify returns cryptoerr.ErrInvalidSignature.
func VerifyDERSignature(publicKey *ecdsa.PublicKey, data []byte, der []byte) error {
	raw, err := FromDER(der)
	if err != nil {
		return err
	}
	if !VerifyECDSASignature(publicKey, data, raw) {
		return cryptoerr.ErrInvalidSignature
	}
	return nil
}

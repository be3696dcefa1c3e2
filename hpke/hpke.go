// Package hpke encrypts and decrypts payloads to a P-256 public key using HPKE base mode
// (RFC 9180) with DHKEM(P-256, HKDF-SHA256), HKDF-SHA256 and AES-256-GCM.
//
// # Modes
//
// [Encrypt] generates a fresh ephemeral key for every call and discards it before
// returning. [AuthEncrypt] uses a supplied sender key as the encapsulation key instead, so
// the recipient can tell who produced the bundle. A fixed sender and receiver always derive
// the same AEAD key and nonce, so the sender is passed as a [SenderKey] that is consumed by
// its first AuthEncrypt and rejects any further use with cryptoerr.ErrSealerUsed.
//
// # Additional data
//
// The AEAD additional data is the uncompressed encapsulated key followed by the
// uncompressed receiver key. Decryption fails with cryptoerr.ErrDecryptionFailed whenever
// the tag does not verify or the encapsulated key is not a valid P-256 point.
//
// # Capabilities
//
// Randomness, the AEAD constructor and the hash are supplied through [Capabilities] so that
// callers can substitute deterministic sources in tests:
//
//	bundle, err := hpke.Encrypt(hpke.DefaultCapabilities(), plaintext, receiverPub)
//	if err != nil {
//		return err
//	}
//	plaintext, err := hpke.Decrypt(hpke.DefaultCapabilities(), bundle, receiverPriv)
package hpke

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"
	"io"
	"sync"

	"github.com/anchorageoss/turnkeycrypto/cryptoerr"
	"github.com/anchorageoss/turnkeycrypto/point"
)

// Capabilities are the primitives every operation draws on.
type Capabilities struct {
	Rand    io.Reader
	NewAEAD func(key []byte) (cipher.AEAD, error)
	Hash    func() hash.Hash
}

// DefaultCapabilities returns crypto/rand, AES-GCM and SHA-256.
func DefaultCapabilities() Capabilities {
	return Capabilities{
		Rand:    rand.Reader,
		NewAEAD: newAESGCM,
		Hash:    sha256.New,
	}
}

func newAESGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func (c Capabilities) validate() error {
	if c.Rand == nil || c.NewAEAD == nil || c.Hash == nil {
		return errors.New("incomplete capabilities")
	}
	return nil
}

// Encrypt seals plaintext to receiverPub, which may be compressed or uncompressed.
func Encrypt(caps Capabilities, plaintext, receiverPub []byte) (*EncryptedBundle, error) {
	if err := caps.validate(); err != nil {
		return nil, err
	}
	ephemeral, err := ecdh.P256().GenerateKey(caps.Rand)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ephemeral key: %w", err)
	}
	return seal(caps, plaintext, receiverPub, ephemeral)
}

// SenderKey is a sender private key that can encapsulate exactly one AuthEncrypt bundle.
type SenderKey struct {
	mu  sync.Mutex
	key *ecdh.PrivateKey
}

// NewSenderKey wraps a P-256 private key for a single AuthEncrypt call.
func NewSenderKey(priv *ecdsa.PrivateKey) (*SenderKey, error) {
	if priv == nil {
		return nil, cryptoerr.Wrap(cryptoerr.ErrInvalidPrivateKey, "missing sender key")
	}
	key, err := priv.ECDH()
	if err != nil || key.Curve() != ecdh.P256() {
		return nil, cryptoerr.Wrap(cryptoerr.ErrInvalidPrivateKey, "sender key is not P-256")
	}
	return &SenderKey{key: key}, nil
}

// PublicKey returns the uncompressed sender public key, or nil once the key is consumed.
func (k *SenderKey) PublicKey() []byte {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.key == nil {
		return nil
	}
	return k.key.PublicKey().Bytes()
}

// take hands out the private key once and drops the reference.
func (k *SenderKey) take() (*ecdh.PrivateKey, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.key == nil {
		return nil, cryptoerr.Wrap(cryptoerr.ErrSealerUsed, "sender key already consumed")
	}
	key := k.key
	k.key = nil
	return key, nil
}

// AuthEncrypt seals plaintext to receiverPub using sender as the encapsulation key. The
// sender is consumed even when sealing fails.
func AuthEncrypt(caps Capabilities, plaintext, receiverPub []byte, sender *SenderKey) (*EncryptedBundle, error) {
	if err := caps.validate(); err != nil {
		return nil, err
	}
	if sender == nil {
		return nil, cryptoerr.Wrap(cryptoerr.ErrInvalidPrivateKey, "missing sender key")
	}
	senderKey, err := sender.take()
	if err != nil {
		return nil, err
	}
	return seal(caps, plaintext, receiverPub, senderKey)
}

func seal(caps Capabilities, plaintext, receiverPub []byte, encKey *ecdh.PrivateKey) (*EncryptedBundle, error) {
	receiver, err := point.Parse(receiverPub)
	if err != nil {
		return nil, cryptoerr.Wrap(err, "receiver public key")
	}
	receiverKey, err := receiver.ECDH()
	if err != nil {
		return nil, err
	}

	dh, err := encKey.ECDH(receiverKey)
	if err != nil {
		return nil, fmt.Errorf("failed to compute shared secret: %w", err)
	}
	defer clear(dh)

	enc := encKey.PublicKey().Bytes()
	pkR := receiverKey.Bytes()
	s, err := keySchedule(caps, dh, enc, pkR)
	if err != nil {
		return nil, err
	}
	ciphertext, err := s.seal(plaintext, concat(enc, pkR))
	if err != nil {
		return nil, err
	}
	return &EncryptedBundle{EncappedPublic: enc, Ciphertext: ciphertext}, nil
}

// Decrypt opens bundle with the receiver's private key.
func Decrypt(caps Capabilities, bundle *EncryptedBundle, receiver *ecdsa.PrivateKey) ([]byte, error) {
	if err := caps.validate(); err != nil {
		return nil, err
	}
	if bundle == nil {
		return nil, cryptoerr.Wrap(cryptoerr.ErrInvalidBundle, "missing bundle")
	}
	if receiver == nil {
		return nil, cryptoerr.Wrap(cryptoerr.ErrInvalidPrivateKey, "missing receiver key")
	}
	receiverKey, err := receiver.ECDH()
	if err != nil || receiverKey.Curve() != ecdh.P256() {
		return nil, cryptoerr.Wrap(cryptoerr.ErrInvalidPrivateKey, "receiver key is not P-256")
	}

	// A malformed encapsulated key is rejected before ECDH but reported like a bad tag.
	encPoint, err := point.Parse(bundle.EncappedPublic)
	if err != nil {
		return nil, cryptoerr.ErrDecryptionFailed
	}
	encKey, err := encPoint.ECDH()
	if err != nil {
		return nil, cryptoerr.ErrDecryptionFailed
	}

	dh, err := receiverKey.ECDH(encKey)
	if err != nil {
		return nil, fmt.Errorf("failed to compute shared secret: %w", err)
	}
	defer clear(dh)

	enc := encKey.Bytes()
	pkR := receiverKey.PublicKey().Bytes()
	s, err := keySchedule(caps, dh, enc, pkR)
	if err != nil {
		return nil, err
	}
	return s.open(bundle.Ciphertext, concat(enc, pkR))
}

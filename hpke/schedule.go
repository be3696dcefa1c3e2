package hpke

import (
	"crypto/cipher"
	"encoding/binary"
	"fmt"
	"hash"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/anchorageoss/turnkeycrypto/cryptoerr"
)

// Algorithm identifiers for DHKEM(P-256, HKDF-SHA256), HKDF-SHA256 and AES-256-GCM
const (
	KEMID  uint16 = 0x0010
	KDFID  uint16 = 0x0001
	AEADID uint16 = 0x0002
)

const (
	modeBase byte = 0x00

	keySize    = 32
	nonceSize  = 12
	secretSize = 32
)

var versionLabel = []byte("HPKE-v1")

var (
	kemSuiteID  = binary.BigEndian.AppendUint16([]byte("KEM"), KEMID)
	hpkeSuiteID = binary.BigEndian.AppendUint16(
		binary.BigEndian.AppendUint16(
			binary.BigEndian.AppendUint16([]byte("HPKE"), KEMID), KDFID), AEADID)
)

func concat(parts ...[]byte) []byte {
	var n int
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func labeledExtract(h func() hash.Hash, suite, salt []byte, label string, ikm []byte) []byte {
	return hkdf.Extract(h, concat(versionLabel, suite, []byte(label), ikm), salt)
}

func labeledExpand(h func() hash.Hash, suite, prk []byte, label string, info []byte, length int) ([]byte, error) {
	labeledInfo := concat(binary.BigEndian.AppendUint16(nil, uint16(length)), versionLabel, suite, []byte(label), info)
	out := make([]byte, length)
	if _, err := io.ReadFull(hkdf.Expand(h, prk, labeledInfo), out); err != nil {
		return nil, fmt.Errorf("failed to expand %s: %w", label, err)
	}
	return out, nil
}

// extractAndExpand turns a raw ECDH output into the KEM shared secret.
func extractAndExpand(h func() hash.Hash, dh, kemContext []byte) ([]byte, error) {
	prk := labeledExtract(h, kemSuiteID, nil, "eae_prk", dh)
	defer clear(prk)
	return labeledExpand(h, kemSuiteID, prk, "shared_secret", kemContext, secretSize)
}

// keySchedule derives the AEAD key and base nonce for base mode with empty info and psk.
func keySchedule(caps Capabilities, dh, enc, receiverPub []byte) (*sealer, error) {
	shared, err := extractAndExpand(caps.Hash, dh, concat(enc, receiverPub))
	if err != nil {
		return nil, err
	}
	defer clear(shared)

	pskIDHash := labeledExtract(caps.Hash, hpkeSuiteID, nil, "psk_id_hash", nil)
	infoHash := labeledExtract(caps.Hash, hpkeSuiteID, nil, "info_hash", nil)
	keyContext := concat([]byte{modeBase}, pskIDHash, infoHash)

	secret := labeledExtract(caps.Hash, hpkeSuiteID, shared, "secret", nil)
	defer clear(secret)

	key, err := labeledExpand(caps.Hash, hpkeSuiteID, secret, "key", keyContext, keySize)
	if err != nil {
		return nil, err
	}
	nonce, err := labeledExpand(caps.Hash, hpkeSuiteID, secret, "base_nonce", keyContext, nonceSize)
	if err != nil {
		clear(key)
		return nil, err
	}
	return &sealer{newAEAD: caps.NewAEAD, key: key, nonce: nonce}, nil
}

// sealer holds one derived key and nonce. It seals or opens at most once and then
// zeroes both.
type sealer struct {
	newAEAD func(key []byte) (cipher.AEAD, error)
	key     []byte
	nonce   []byte
	used    bool
}

func (s *sealer) aead() (cipher.AEAD, error) {
	if s.used {
		return nil, cryptoerr.ErrSealerUsed
	}
	s.used = true
	aead, err := s.newAEAD(s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AEAD: %w", err)
	}
	if aead.NonceSize() != len(s.nonce) {
		return nil, fmt.Errorf("AEAD nonce size %d, derived %d", aead.NonceSize(), len(s.nonce))
	}
	return aead, nil
}

func (s *sealer) seal(plaintext, aad []byte) ([]byte, error) {
	defer s.destroy()
	aead, err := s.aead()
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, s.nonce, plaintext, aad), nil
}

func (s *sealer) open(ciphertext, aad []byte) ([]byte, error) {
	defer s.destroy()
	aead, err := s.aead()
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, s.nonce, ciphertext, aad)
	if err != nil {
		return nil, cryptoerr.ErrDecryptionFailed
	}
	return plaintext, nil
}

func (s *sealer) destroy() {
	clear(s.key)
	clear(s.nonce)
}

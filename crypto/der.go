package crypto

import (
	"math/big"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"

	"github.com/anchorageoss/turnkeycrypto/cryptoerr"
)

const (
	// SignatureSize is the size of an IEEE-P1363 (r || s) P-256 signature
	SignatureSize = 64

	scalarSize = 32

	derSequenceTag = 0x30
	derIntegerTag  = 0x02
	derLongForm    = 0x80
)

// ToDER converts a 64-byte IEEE-P1363 signature to ASN.1 DER.
//
// Each INTEGER is minimal: leading zero bytes are stripped and a single 0x00 is prepended
// when the high bit of the remaining first byte is set.
func ToDER(sig []byte) ([]byte, error) {
	if len(sig) != SignatureSize {
		return nil, cryptoerr.Wrap(cryptoerr.ErrInvalidSignatureLength, "got %d bytes", len(sig))
	}
	r := new(big.Int).SetBytes(sig[:scalarSize])
	s := new(big.Int).SetBytes(sig[scalarSize:])
	return MarshalECDSASignatureDER(r, s)
}

// MarshalECDSASignatureDER converts ECDSA signature components to DER format
func MarshalECDSASignatureDER(r, s *big.Int) ([]byte, error) {
	if r == nil || s == nil {
		return nil, cryptoerr.Wrap(cryptoerr.ErrInvalidSignatureFormat, "missing signature component")
	}
	var b cryptobyte.Builder
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1BigInt(r)
		b.AddASN1BigInt(s)
	})
	der, err := b.Bytes()
	if err != nil {
		return nil, cryptoerr.Wrap(cryptoerr.ErrInvalidSignatureFormat, "failed to build DER: %v", err)
	}
	return der, nil
}

// FromDER converts a DER signature to 64-byte IEEE-P1363 form.
//
// Only the subset of DER used by ECDSA signatures is understood. Lengths must use the
// short form; a long-form length byte fails with ErrUnsupportedLengthEncoding. INTEGERs are
// at most 33 bytes and a 33-byte INTEGER must start with 0x00. Bytes following s inside
// the declared SEQUENCE must be zero.
func FromDER(der []byte) ([]byte, error) {
	if len(der) < 2 {
		return nil, cryptoerr.ErrInsufficientLength
	}
	if der[0] != derSequenceTag {
		return nil, cryptoerr.Wrap(cryptoerr.ErrInvalidSignatureFormat, "missing SEQUENCE tag")
	}
	if der[1]&derLongForm != 0 {
		return nil, cryptoerr.Wrap(cryptoerr.ErrUnsupportedLengthEncoding, "SEQUENCE length byte 0x%02x", der[1])
	}
	seqLen := int(der[1])
	body := der[2:]
	if len(body) < seqLen {
		return nil, cryptoerr.Wrap(cryptoerr.ErrInsufficientLength, "SEQUENCE declares %d bytes, have %d", seqLen, len(body))
	}
	if len(body) > seqLen {
		return nil, cryptoerr.Wrap(cryptoerr.ErrInvalidSignatureFormat, "%d bytes after SEQUENCE", len(body)-seqLen)
	}

	r, body, err := readInteger(body)
	if err != nil {
		return nil, cryptoerr.Wrap(err, "r")
	}
	s, body, err := readInteger(body)
	if err != nil {
		return nil, cryptoerr.Wrap(err, "s")
	}
	for _, b := range body {
		if b != 0 {
			return nil, cryptoerr.Wrap(cryptoerr.ErrInvalidSignatureFormat, "unexpected data after s")
		}
	}

	out := make([]byte, SignatureSize)
	copy(out[scalarSize-len(r):scalarSize], r)
	copy(out[SignatureSize-len(s):], s)
	return out, nil
}

// readInteger reads one INTEGER and returns its value without the sign padding byte
func readInteger(b []byte) (value, rest []byte, err error) {
	if len(b) < 2 {
		return nil, nil, cryptoerr.ErrInsufficientLength
	}
	if b[0] != derIntegerTag {
		return nil, nil, cryptoerr.Wrap(cryptoerr.ErrInvalidIntegerTag, "tag 0x%02x", b[0])
	}
	if b[1]&derLongForm != 0 {
		return nil, nil, cryptoerr.Wrap(cryptoerr.ErrUnsupportedLengthEncoding, "INTEGER length byte 0x%02x", b[1])
	}
	n := int(b[1])
	if n == 0 || n > scalarSize+1 {
		return nil, nil, cryptoerr.Wrap(cryptoerr.ErrUnexpectedIntegerLength, "length %d", n)
	}
	if len(b) < 2+n {
		return nil, nil, cryptoerr.ErrInsufficientLength
	}
	value = b[2 : 2+n]
	if n == scalarSize+1 {
		if value[0] != 0x00 {
			return nil, nil, cryptoerr.ErrInvalidPadding
		}
		value = value[1:]
	}
	return value, b[2+n:], nil
}

// NormalizeDER trims zero bytes that some platform ECDSA implementations append after the
// declared DER length. If any extra byte is non-zero, or the header cannot be read, der is
// returned untouched.
func NormalizeDER(der []byte) []byte {
	if len(der) < 2 || der[0] != derSequenceTag || der[1]&derLongForm != 0 {
		return der
	}
	total := 2 + int(der[1])
	if len(der) <= total {
		return der
	}
	for _, b := range der[total:] {
		if b != 0 {
			return der
		}
	}
	return der[:total]
}

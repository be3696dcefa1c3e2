package crypto

import (
	"bytes"
	"crypto/rand"
	"encoding/asn1"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anchorageoss/turnkeycrypto/cryptoerr"
)

func derInt(v []byte) []byte {
	return append([]byte{derIntegerTag, byte(len(v))}, v...)
}

func derSeq(body ...[]byte) []byte {
	b := bytes.Join(body, nil)
	return append([]byte{derSequenceTag, byte(len(b))}, b...)
}

func filled(n int, v byte) []byte {
	return bytes.Repeat([]byte{v}, n)
}

func TestToDER(t *testing.T) {
	t.Run("high bit gets a zero pad", func(t *testing.T) {
		sig := append(filled(32, 0x80), filled(32, 0x01)...)
		der, err := ToDER(sig)
		require.NoError(t, err)

		want := derSeq(derInt(append([]byte{0x00}, filled(32, 0x80)...)), derInt(filled(32, 0x01)))
		assert.Equal(t, want, der)
	})

	t.Run("leading zeros are stripped", func(t *testing.T) {
		r := append([]byte{0x00, 0x00}, filled(30, 0x11)...)
		sig := append(r, filled(32, 0x22)...)
		der, err := ToDER(sig)
		require.NoError(t, err)

		want := derSeq(derInt(filled(30, 0x11)), derInt(filled(32, 0x22)))
		assert.Equal(t, want, der)
	})

	t.Run("wrong length", func(t *testing.T) {
		_, err := ToDER(make([]byte, 63))
		require.ErrorIs(t, err, cryptoerr.ErrInvalidSignatureLength)
	})

	t.Run("matches encoding/asn1", func(t *testing.T) {
		type ecdsaSignature struct{ R, S *big.Int }
		for i := 0; i < 64; i++ {
			sig := make([]byte, SignatureSize)
			_, err := rand.Read(sig)
			require.NoError(t, err)

			der, err := ToDER(sig)
			require.NoError(t, err)

			want, err := asn1.Marshal(ecdsaSignature{
				R: new(big.Int).SetBytes(sig[:32]),
				S: new(big.Int).SetBytes(sig[32:]),
			})
			require.NoError(t, err)
			assert.Equal(t, want, der)
		}
	})
}

func TestDERRoundTrip(t *testing.T) {
	for i := 0; i < 256; i++ {
		sig := make([]byte, SignatureSize)
		_, err := rand.Read(sig)
		require.NoError(t, err)
		// force short integers in some iterations
		if i%4 == 0 {
			sig[0], sig[1] = 0, 0
		}
		if i%8 == 0 {
			sig[32] = 0
		}

		der, err := ToDER(sig)
		require.NoError(t, err)
		back, err := FromDER(der)
		require.NoError(t, err)
		require.Equal(t, sig, back)
	}
}

func TestFromDER(t *testing.T) {
	r := filled(32, 0x11)
	s := filled(32, 0x22)
	want := append(append([]byte{}, r...), s...)

	t.Run("maximal short-form length with zero padding", func(t *testing.T) {
		body := append(append(derInt(r), derInt(s)...), make([]byte, 0x7F-68)...)
		der := append([]byte{derSequenceTag, 0x7F}, body...)

		got, err := FromDER(der)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("33-byte integers with zero pad", func(t *testing.T) {
		hr := filled(32, 0x90)
		der := derSeq(derInt(append([]byte{0x00}, hr...)), derInt(s))
		got, err := FromDER(der)
		require.NoError(t, err)
		assert.Equal(t, append(append([]byte{}, hr...), s...), got)
	})

	tests := []struct {
		name    string
		der     []byte
		wantErr error
	}{
		{"empty", nil, cryptoerr.ErrInsufficientLength},
		{"wrong outer tag", append([]byte{0x31}, derSeq(derInt(r), derInt(s))[1:]...), cryptoerr.ErrInvalidSignatureFormat},
		{"long form sequence length", append([]byte{derSequenceTag, 0x81, 0x44}, append(derInt(r), derInt(s)...)...), cryptoerr.ErrUnsupportedLengthEncoding},
		{"long form integer length", derSeq(append([]byte{derIntegerTag, 0x81, 0x20}, r...), derInt(s)), cryptoerr.ErrUnsupportedLengthEncoding},
		{"truncated", derSeq(derInt(r), derInt(s))[:40], cryptoerr.ErrInsufficientLength},
		{"wrong integer tag", derSeq(append([]byte{0x03, 0x20}, r...), derInt(s)), cryptoerr.ErrInvalidIntegerTag},
		{"zero-length integer", derSeq(derInt(nil), derInt(s)), cryptoerr.ErrUnexpectedIntegerLength},
		{"34-byte integer", derSeq(derInt(filled(34, 0x00)), derInt(s)), cryptoerr.ErrUnexpectedIntegerLength},
		{"33-byte integer without zero pad", derSeq(derInt(filled(33, 0x01)), derInt(s)), cryptoerr.ErrInvalidPadding},
		{"missing s", derSeq(derInt(r)), cryptoerr.ErrInsufficientLength},
		{"non-zero data after s", derSeq(derInt(r), derInt(s), []byte{0x01}), cryptoerr.ErrInvalidSignatureFormat},
		{"bytes after sequence", append(derSeq(derInt(r), derInt(s)), 0x00), cryptoerr.ErrInvalidSignatureFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromDER(tt.der)
			require.ErrorIs(t, err, tt.wantErr)
			require.ErrorIs(t, err, cryptoerr.ErrSignatureFormat)
		})
	}
}

func TestNormalizeDER(t *testing.T) {
	der := derSeq(derInt(filled(32, 0x11)), derInt(filled(32, 0x22)))

	t.Run("trailing zeros trimmed", func(t *testing.T) {
		padded := append(append([]byte{}, der...), 0x00, 0x00, 0x00)
		got := NormalizeDER(padded)
		assert.Equal(t, der, got)

		_, err := FromDER(got)
		assert.NoError(t, err)
	})

	t.Run("non-zero trailing bytes kept", func(t *testing.T) {
		padded := append(append([]byte{}, der...), 0x00, 0x01)
		assert.Equal(t, padded, NormalizeDER(padded))
	})

	t.Run("exact length untouched", func(t *testing.T) {
		assert.Equal(t, der, NormalizeDER(der))
	})

	t.Run("garbage untouched", func(t *testing.T) {
		assert.Equal(t, []byte{0x01}, NormalizeDER([]byte{0x01}))
	})
}

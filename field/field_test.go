package field

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anchorageoss/turnkeycrypto/cryptoerr"
)

func TestModPow(t *testing.T) {
	tests := []struct {
		name               string
		base, exp, modulus int64
		want               int64
	}{
		{"small", 4, 13, 497, 445},
		{"zero exponent", 7, 0, 13, 1},
		{"modulus one", 7, 5, 1, 0},
		{"modulus zero", 7, 5, 0, 0},
		{"base larger than modulus", 30, 3, 7, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ModPow(big.NewInt(tt.base), big.NewInt(tt.exp), big.NewInt(tt.modulus))
			assert.Equal(t, big.NewInt(tt.want).String(), got.String())
		})
	}

	t.Run("matches big.Int Exp on field prime", func(t *testing.T) {
		base, err := rand.Int(rand.Reader, P())
		require.NoError(t, err)
		exp, err := rand.Int(rand.Reader, P())
		require.NoError(t, err)
		assert.Equal(t, new(big.Int).Exp(base, exp, P()), ModPow(base, exp, P()))
	})
}

func TestModSqrt(t *testing.T) {
	t.Run("square has a root", func(t *testing.T) {
		v, err := rand.Int(rand.Reader, P())
		require.NoError(t, err)
		sq := new(big.Int).Mul(v, v)
		sq.Mod(sq, P())

		root, err := ModSqrt(sq, P())
		require.NoError(t, err)

		check := new(big.Int).Mul(root, root)
		assert.Equal(t, sq, check.Mod(check, P()))
	})

	t.Run("non residue fails", func(t *testing.T) {
		// -1 is a non-residue for every p ≡ 3 (mod 4)
		minusOne := new(big.Int).Sub(P(), big.NewInt(1))
		_, err := ModSqrt(minusOne, P())
		require.ErrorIs(t, err, cryptoerr.ErrNoSquareRoot)
		require.ErrorIs(t, err, cryptoerr.ErrCurveValidation)
	})

	t.Run("modulus 1 mod 4 rejected", func(t *testing.T) {
		_, err := ModSqrt(big.NewInt(4), big.NewInt(13))
		require.ErrorIs(t, err, cryptoerr.ErrNoSquareRoot)
	})
}

func TestIsOnCurve(t *testing.T) {
	params := elliptic.P256().Params()

	t.Run("generator", func(t *testing.T) {
		assert.True(t, IsOnCurve(params.Gx, params.Gy))
	})

	t.Run("random key", func(t *testing.T) {
		key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		require.NoError(t, err)
		assert.True(t, IsOnCurve(key.X, key.Y))
	})

	t.Run("perturbed y", func(t *testing.T) {
		y := new(big.Int).Add(params.Gy, big.NewInt(1))
		assert.False(t, IsOnCurve(params.Gx, y))
	})

	t.Run("coordinate equal to p", func(t *testing.T) {
		y := new(big.Int).Add(params.Gy, params.P)
		assert.False(t, IsOnCurve(params.Gx, y))
	})
}

func TestYFromX(t *testing.T) {
	params := elliptic.P256().Params()
	odd := params.Gy.Bit(0) == 1

	y, err := YFromX(params.Gx, odd)
	require.NoError(t, err)
	assert.Equal(t, params.Gy, y)

	other, err := YFromX(params.Gx, !odd)
	require.NoError(t, err)
	assert.Equal(t, new(big.Int).Sub(params.P, params.Gy), other)

	_, err = YFromX(P(), false)
	require.ErrorIs(t, err, cryptoerr.ErrCoordinateOutOfRange)
}

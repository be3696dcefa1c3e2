// Package field implements the P-256 prime field arithmetic needed to decompress and
// validate curve points.
//
// None of these functions are constant time. They are only ever applied to public values
// (point coordinates), never to private scalars.
package field

import (
	"crypto/elliptic"
	"math/big"

	"github.com/anchorageoss/turnkeycrypto/cryptoerr"
)

var (
	params = elliptic.P256().Params()
	three  = big.NewInt(3)
	four   = big.NewInt(4)
)

// P returns the field prime of P-256
func P() *big.Int {
	return new(big.Int).Set(params.P)
}

// B returns the curve constant b of P-256
func B() *big.Int {
	return new(big.Int).Set(params.B)
}

// N returns the order of the P-256 base point
func N() *big.Int {
	return new(big.Int).Set(params.N)
}

// ModPow computes base^exp mod modulus by left-to-right square-and-multiply. exp must be
// non-negative. A zero or unit modulus yields 0.
func ModPow(base, exp, modulus *big.Int) *big.Int {
	result := big.NewInt(1)
	if modulus.Sign() == 0 || modulus.CmpAbs(result) == 0 {
		return new(big.Int)
	}
	b := new(big.Int).Mod(base, modulus)
	for i := exp.BitLen() - 1; i >= 0; i-- {
		result.Mul(result, result)
		result.Mod(result, modulus)
		if exp.Bit(i) == 1 {
			result.Mul(result, b)
			result.Mod(result, modulus)
		}
	}
	return result
}

// ModSqrt returns a square root of x modulo p. p must satisfy p ≡ 3 (mod 4).
//
// The candidate x^((p+1)/4) is squared and compared against x; when it does not reproduce x
// there is no root and ErrNoSquareRoot is returned.
func ModSqrt(x, p *big.Int) (*big.Int, error) {
	if new(big.Int).Mod(p, four).Cmp(three) != 0 {
		return nil, cryptoerr.Wrap(cryptoerr.ErrNoSquareRoot, "modulus is not 3 mod 4")
	}
	xm := new(big.Int).Mod(x, p)
	exp := new(big.Int).Add(p, big.NewInt(1))
	exp.Rsh(exp, 2)
	root := ModPow(xm, exp, p)

	check := new(big.Int).Mul(root, root)
	check.Mod(check, p)
	if check.Cmp(xm) != 0 {
		return nil, cryptoerr.ErrNoSquareRoot
	}
	return root, nil
}

// InRange reports whether 0 <= v < p
func InRange(v *big.Int) bool {
	return v != nil && v.Sign() >= 0 && v.Cmp(params.P) < 0
}

// curveRHS evaluates x³ − 3x + b mod p
func curveRHS(x *big.Int) *big.Int {
	p := params.P
	rhs := new(big.Int).Mul(x, x)
	rhs.Mul(rhs, x)

	threeX := new(big.Int).Mul(x, three)
	rhs.Sub(rhs, threeX)
	rhs.Add(rhs, params.B)
	return rhs.Mod(rhs, p)
}

// IsOnCurve reports whether (x, y) satisfies y² ≡ x³ − 3x + b (mod p) with both
// coordinates inside the field.
func IsOnCurve(x, y *big.Int) bool {
	if !InRange(x) || !InRange(y) {
		return false
	}
	lhs := new(big.Int).Mul(y, y)
	lhs.Mod(lhs, params.P)
	return lhs.Cmp(curveRHS(x)) == 0
}

// YFromX recovers the y coordinate for x, choosing the root whose parity matches odd.
func YFromX(x *big.Int, odd bool) (*big.Int, error) {
	if !InRange(x) {
		return nil, cryptoerr.ErrCoordinateOutOfRange
	}
	y, err := ModSqrt(curveRHS(x), params.P)
	if err != nil {
		return nil, err
	}
	if (y.Bit(0) == 1) != odd {
		y.Sub(params.P, y)
		// y == 0 has no odd counterpart
		y.Mod(y, params.P)
		if (y.Bit(0) == 1) != odd {
			return nil, cryptoerr.ErrInvalidPoint
		}
	}
	return y, nil
}

package stamp

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/anchorageoss/turnkeycrypto/cryptoerr"
	"github.com/anchorageoss/turnkeycrypto/point"
)

var supportedAlgs = []string{jwt.SigningMethodES256.Alg()}

// VerificationClaims are the claims of an OTP verification token
type VerificationClaims struct {
	jwt.RegisteredClaims

	TokenID          string `json:"id"`
	VerificationType string `json:"verification_type"`
	Contact          string `json:"contact"`
	PublicKey        string `json:"public_key,omitempty"`
}

func staticKey(pub []byte) (jwt.Keyfunc, error) {
	p, err := point.Parse(pub)
	if err != nil {
		return nil, err
	}
	key := p.ECDSA()
	return func(*jwt.Token) (any, error) { return key, nil }, nil
}

// VerifySessionJWTSignature checks the ES256 signature of a session JWT against the
// notarizer key. Claims, including expiry, are not inspected.
func VerifySessionJWTSignature(token string, notarizerPub []byte) error {
	keyFunc, err := staticKey(notarizerPub)
	if err != nil {
		return err
	}
	parser := jwt.NewParser(jwt.WithValidMethods(supportedAlgs), jwt.WithoutClaimsValidation())
	if _, err := parser.Parse(token, keyFunc); err != nil {
		return tokenError(err)
	}
	return nil
}

// VerifyEnclaveVerificationToken checks the signature and expiry of an OTP verification
// token and returns its claims.
func VerifyEnclaveVerificationToken(token string, signerPub []byte) (*VerificationClaims, error) {
	keyFunc, err := staticKey(signerPub)
	if err != nil {
		return nil, err
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods(supportedAlgs),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(5*time.Second),
	)
	var claims VerificationClaims
	if _, err := parser.ParseWithClaims(token, &claims, keyFunc); err != nil {
		return nil, tokenError(err)
	}
	return &claims, nil
}

func tokenError(err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
		return fmt.Errorf("%w: %w", cryptoerr.ErrInvalidSignature, err)
	}
	return fmt.Errorf("%w: %w", cryptoerr.ErrInvalidToken, err)
}

// Package cryptoerr defines the error taxonomy shared by every package in this module.
//
// Each failure is reported as a reason (for example [ErrInvalidPoint]) that belongs to
// exactly one class (for example [ErrCurveValidation]). Both can be matched with errors.Is:
//
//	_, err := point.Parse(raw)
//	if errors.Is(err, cryptoerr.ErrCurveValidation) {
//		// any off-curve or out-of-range input
//	}
//	if errors.Is(err, cryptoerr.ErrInvalidPoint) {
//		// specifically the curve equation check
//	}
//
// Error strings never contain key material or plaintext.
package cryptoerr

import (
	"errors"
	"fmt"
)

// Error classes
var (
	// ErrFormat indicates malformed bytes, JSON, hex, or ASN.1 input
	ErrFormat = errors.New("format error")

	// ErrCurveValidation indicates an off-curve point or out-of-range coordinate
	ErrCurveValidation = errors.New("curve validation error")

	// ErrSignatureFormat indicates a malformed DER or IEEE-P1363 signature
	ErrSignatureFormat = errors.New("signature format error")

	// ErrAuthentication indicates an AEAD tag or signature failed to verify
	ErrAuthentication = errors.New("authentication error")

	// ErrConsistency indicates a well-formed value that does not match what the caller expected
	ErrConsistency = errors.New("consistency error")
)

// Error is a failure reason tagged with its class.
type Error struct {
	Class  error
	Reason string
}

// New creates a reason belonging to class.
func New(class error, reason string) *Error {
	return &Error{Class: class, Reason: reason}
}

// Error returns the reason text
func (e *Error) Error() string {
	return e.Reason
}

// Unwrap returns the class so errors.Is matches both the reason and its class
func (e *Error) Unwrap() error {
	return e.Class
}

// Wrap annotates err with a formatted message while keeping reason and class matchable.
func Wrap(err error, format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Field and point errors
var (
	ErrNoSquareRoot         = New(ErrCurveValidation, "no modular square root exists")
	ErrInvalidLength        = New(ErrFormat, "invalid public key length")
	ErrInvalidPrefix        = New(ErrFormat, "invalid public key prefix")
	ErrCoordinateOutOfRange = New(ErrCurveValidation, "coordinate out of field range")
	ErrInvalidPoint         = New(ErrCurveValidation, "point is not on the P-256 curve")
)

// Signature codec errors
var (
	ErrInvalidSignatureFormat    = New(ErrSignatureFormat, "invalid DER signature format")
	ErrInsufficientLength        = New(ErrSignatureFormat, "insufficient signature length")
	ErrUnsupportedLengthEncoding = New(ErrSignatureFormat, "long-form length encoding not supported")
	ErrInvalidIntegerTag         = New(ErrSignatureFormat, "invalid INTEGER tag")
	ErrUnexpectedIntegerLength   = New(ErrSignatureFormat, "unexpected INTEGER length")
	ErrInvalidPadding            = New(ErrSignatureFormat, "invalid INTEGER padding")
	ErrInvalidSignatureLength    = New(ErrSignatureFormat, "IEEE-P1363 signature must be 64 bytes")
)

// Key errors
var (
	ErrInvalidPrivateKey = New(ErrFormat, "invalid P-256 private key")
	ErrInvalidHex        = New(ErrFormat, "invalid hex encoding")
	ErrInvalidKeyFormat  = New(ErrFormat, "unsupported key format")
	ErrInvalidMnemonic   = New(ErrFormat, "invalid BIP-39 mnemonic")
)

// Bundle errors
var (
	ErrInvalidBundle           = New(ErrFormat, "invalid bundle")
	ErrInvalidChecksum         = New(ErrFormat, "invalid bundle checksum")
	ErrDecryptionFailed        = New(ErrAuthentication, "bundle decryption failed")
	ErrInvalidEnclaveSignature = New(ErrAuthentication, "invalid enclave signature")
	ErrUntrustedSigner         = New(ErrAuthentication, "enclave signer is not trusted")
	ErrInvalidSignature        = New(ErrAuthentication, "signature verification failed")
	ErrOrganizationMismatch    = New(ErrConsistency, "organization id does not match")
	ErrUserMismatch            = New(ErrConsistency, "user id does not match")
	ErrSealerUsed              = New(ErrConsistency, "sealing context already used")
)

// ErrInvalidToken reports a JWT rejected for a reason other than its signature
var ErrInvalidToken = New(ErrAuthentication, "token rejected")

// Attestation errors
var (
	ErrAttestationInvalid = New(ErrAuthentication, "attestation document rejected")
	ErrManifestMismatch   = New(ErrConsistency, "manifest digest does not match attested user data")
	ErrPCRMismatch        = New(ErrConsistency, "PCR value does not match")
)

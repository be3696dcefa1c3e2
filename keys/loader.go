// Package keys loads and stores Turnkey API keys.
//
// This package implements the stamp.KeyProvider interface for the Turnkey CLI key storage
// layout.
//
// # Key File Format
//
// Keys live in ~/.config/turnkey/keys/ by default, two files per key:
//
//	<key-name>.public  - Hex-encoded compressed public key
//	<key-name>.private - Format: "hexkey:p256" where hexkey is the private scalar
//
// # Loading Keys
//
//	provider := &keys.FileKeyProvider{KeyName: "my-key"}
//	apiKey, err := provider.GetAPIKey(context.Background())
//	if err != nil {
//		log.Fatal(err)
//	}
//
// The public key file must match the key derived from the private scalar.
package keys

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/anchorageoss/turnkeycrypto/crypto"
	"github.com/anchorageoss/turnkeycrypto/cryptoerr"
	"github.com/anchorageoss/turnkeycrypto/point"
	"github.com/anchorageoss/turnkeycrypto/stamp"
)

const curveP256 = "p256"

// FileKeyProvider implements stamp.KeyProvider by reading from files
type FileKeyProvider struct {
	KeyName        string
	Dir            string // defaults to DefaultDir
	OrganizationID string
}

// GetAPIKey loads the API key from files
func (f *FileKeyProvider) GetAPIKey(ctx context.Context) (*stamp.APIKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir := f.Dir
	if dir == "" {
		var err error
		if dir, err = DefaultDir(); err != nil {
			return nil, err
		}
	}
	key, err := LoadAPIKey(dir, f.KeyName)
	if err != nil {
		return nil, err
	}
	key.OrganizationID = f.OrganizationID
	return key, nil
}

// DefaultDir is the Turnkey CLI key directory
func DefaultDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "turnkey", "keys"), nil
}

// LoadAPIKeyFromFile loads the API key from the Turnkey CLI configuration
func LoadAPIKeyFromFile(keyName string) (*stamp.APIKey, error) {
	dir, err := DefaultDir()
	if err != nil {
		return nil, err
	}
	return LoadAPIKey(dir, keyName)
}

// LoadAPIKey loads <keyName>.public and <keyName>.private from dir
func LoadAPIKey(dir, keyName string) (*stamp.APIKey, error) {
	publicKeyBytes, err := os.ReadFile(filepath.Join(dir, keyName+".public"))
	if err != nil {
		return nil, fmt.Errorf("failed to read public key file: %w", err)
	}
	publicKey, err := point.ParseHex(strings.TrimSpace(string(publicKeyBytes)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key file: %w", err)
	}

	privateKeyBytes, err := os.ReadFile(filepath.Join(dir, keyName+".private"))
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}
	defer crypto.Zero(privateKeyBytes)

	privateKeyHex, curve, ok := strings.Cut(strings.TrimSpace(string(privateKeyBytes)), ":")
	if !ok || strings.Contains(curve, ":") {
		return nil, errors.New("invalid private key format, expected 'hexkey:curve'")
	}
	if curve != curveP256 {
		return nil, fmt.Errorf("unsupported curve: %s, only p256 is supported", curve)
	}

	privateKey, err := crypto.ParsePrivateKeyHex(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}

	derived, err := point.FromECDSA(&privateKey.PublicKey)
	if err != nil {
		return nil, err
	}
	if !derived.Equal(publicKey) {
		crypto.ZeroPrivateKey(privateKey)
		return nil, cryptoerr.Wrap(cryptoerr.ErrConsistency, "public key file does not match private key")
	}

	return &stamp.APIKey{
		PublicKey:  derived.Hex(true),
		PrivateKey: privateKey,
	}, nil
}

// WriteAPIKey stores a key pair in the CLI layout. Existing keys are never overwritten.
func WriteAPIKey(dir, keyName string, kp *crypto.KeyPair) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}
	pub, err := point.Parse(kp.PublicKey)
	if err != nil {
		return err
	}

	files := []struct {
		name    string
		content string
	}{
		{keyName + ".public", pub.Hex(true) + "\n"},
		{keyName + ".private", fmt.Sprintf("%x:%s\n", kp.PrivateKey, curveP256)},
	}
	for _, file := range files {
		f, err := os.OpenFile(filepath.Join(dir, file.name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", file.name, err)
		}
		_, werr := f.WriteString(file.content)
		if cerr := f.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			return fmt.Errorf("failed to write %s: %w", file.name, werr)
		}
	}
	return nil
}

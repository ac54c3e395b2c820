// Package envelope decrypts the RSA-OAEP(MGF1-SHA256) request bodies
// spec.md §6 requires for [E] endpoints (password and email fields, which
// must never appear in server logs or access logs in plaintext). Pure
// stdlib crypto/rsa — there is no third-party OAEP implementation in the
// pack to prefer over the standard library's own (see DESIGN.md).
package envelope

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"kasupel/internal/apierr"
)

// KeyPair holds the server's RSA private key, loaded once at startup.
type KeyPair struct {
	private *rsa.PrivateKey
}

// LoadKeyPair reads a PEM-encoded PKCS#1 or PKCS#8 RSA private key from
// path, generating and persisting a fresh 2048-bit key there if the file
// doesn't exist yet — mirroring the teacher's auto-created JWT_SECRET file
// (main.go's init), so a first run needs no separate key-generation step.
func LoadKeyPair(path string) (*KeyPair, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		key, genErr := rsa.GenerateKey(rand.Reader, 2048)
		if genErr != nil {
			return nil, fmt.Errorf("envelope: generate key: %w", genErr)
		}
		der, marshalErr := x509.MarshalPKCS8PrivateKey(key)
		if marshalErr != nil {
			return nil, fmt.Errorf("envelope: marshal key: %w", marshalErr)
		}
		pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
		if writeErr := os.WriteFile(path, pemBytes, 0o600); writeErr != nil {
			return nil, fmt.Errorf("envelope: write key: %w", writeErr)
		}
		return &KeyPair{private: key}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("envelope: read key: %w", err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("envelope: no PEM block found in %s", path)
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return &KeyPair{private: key}, nil
	}
	generic, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("envelope: parse key: %w", err)
	}
	key, ok := generic.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("envelope: key is not RSA")
	}
	return &KeyPair{private: key}, nil
}

// Decrypt unwraps a base64-encoded RSA-OAEP(SHA-256) ciphertext into its
// plaintext bytes, per spec.md §6's [E] envelope.
func (k *KeyPair) Decrypt(base64Ciphertext string) ([]byte, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(base64Ciphertext)
	if err != nil {
		return nil, apierr.Of(apierr.BadEncryptedData)
	}
	plaintext, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, k.private, ciphertext, nil)
	if err != nil {
		return nil, apierr.Of(apierr.BadEncryptedData)
	}
	return plaintext, nil
}

// PublicKeyPEM returns the PKIX-encoded public key, for the [E] endpoints'
// discovery route that lets clients fetch it to encrypt against.
func (k *KeyPair) PublicKeyPEM() ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(&k.private.PublicKey)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

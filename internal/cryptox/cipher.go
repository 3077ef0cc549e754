// Package cryptox encrypts single text fields with AES-256-GCM.
//
// Each field is stored as three base64 strings: the ciphertext, a random
// 16-byte IV and the 16-byte GCM authentication tag. The key is the SHA-256
// digest of the user's private key, so it is always 32 bytes.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

const (
	KeySize   = 32
	IVSize    = 16
	TagSize   = 16
	Algorithm = "aes-256-gcm"
)

var (
	// ErrDecrypt is returned for every decryption failure, including tag mismatch.
	ErrDecrypt    = errors.New("cannot decrypt field")
	ErrInvalidKey = errors.New("encryption key must be 32 bytes")
)

// Field is the (ciphertext, iv, tag) triple for one encrypted value.
type Field struct {
	Ciphertext string `json:"ciphertext"`
	IV         string `json:"iv"`
	AuthTag    string `json:"auth_tag"`
}

// DeriveKey hashes the private key string into an AES-256 key.
func DeriveKey(privateKey string) []byte {
	sum := sha256.Sum256([]byte(privateKey))
	return sum[:]
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCMWithNonceSize(block, IVSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// Encrypt seals plaintext under key with a fresh IV.
func Encrypt(plaintext string, key []byte) (Field, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return Field{}, err
	}

	iv := make([]byte, IVSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return Field{}, fmt.Errorf("failed to generate iv: %w", err)
	}

	sealed := gcm.Seal(nil, iv, []byte(plaintext), nil)
	split := len(sealed) - TagSize

	return Field{
		Ciphertext: base64.StdEncoding.EncodeToString(sealed[:split]),
		IV:         base64.StdEncoding.EncodeToString(iv),
		AuthTag:    base64.StdEncoding.EncodeToString(sealed[split:]),
	}, nil
}

// Decrypt verifies the tag and returns the plaintext.
func Decrypt(f Field, key []byte) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecrypt, err)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(f.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: malformed ciphertext", ErrDecrypt)
	}
	iv, err := base64.StdEncoding.DecodeString(f.IV)
	if err != nil || len(iv) != IVSize {
		return "", fmt.Errorf("%w: malformed iv", ErrDecrypt)
	}
	tag, err := base64.StdEncoding.DecodeString(f.AuthTag)
	if err != nil || len(tag) != TagSize {
		return "", fmt.Errorf("%w: malformed auth tag", ErrDecrypt)
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: authentication failed", ErrDecrypt)
	}
	return string(plaintext), nil
}

// EncryptPair encrypts a secret's name and value independently.
func EncryptPair(name, value string, key []byte) (Field, Field, error) {
	nameField, err := Encrypt(name, key)
	if err != nil {
		return Field{}, Field{}, fmt.Errorf("failed to encrypt name: %w", err)
	}
	valueField, err := Encrypt(value, key)
	if err != nil {
		return Field{}, Field{}, fmt.Errorf("failed to encrypt value: %w", err)
	}
	return nameField, valueField, nil
}

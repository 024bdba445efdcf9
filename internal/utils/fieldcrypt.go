package utils

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

var ErrCiphertextTooShort = errors.New("ciphertext too short")

// FieldCipher encrypts individual column values before they reach
// storage. Output is base64(nonce || ciphertext || tag) under
// XChaCha20-Poly1305, so a random nonce per value is safe.
type FieldCipher struct {
	key []byte
}

// NewFieldCipher expects a 32-byte key, raw or base64 encoded. A key
// that is already 32 bytes is used as-is, so raw keys that happen to be
// decodable base64 are not mangled.
func NewFieldCipher(masterKey string) (*FieldCipher, error) {
	keyBytes := []byte(masterKey)
	if len(keyBytes) != chacha20poly1305.KeySize {
		if decoded, err := base64.StdEncoding.DecodeString(masterKey); err == nil {
			keyBytes = decoded
		}
	}
	if len(keyBytes) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("field cipher key must be %d bytes, got %d", chacha20poly1305.KeySize, len(keyBytes))
	}
	return &FieldCipher{key: keyBytes}, nil
}

func (c *FieldCipher) Encrypt(plaintext string) (string, error) {
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, chacha20poly1305.NonceSizeX, chacha20poly1305.NonceSizeX+len(plaintext)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("nonce generation failed: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *FieldCipher) Decrypt(encoded string) (string, error) {
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("base64 decode failed: %w", err)
	}
	if len(decoded) < chacha20poly1305.NonceSizeX+chacha20poly1305.Overhead {
		return "", ErrCiphertextTooShort
	}

	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", err
	}

	nonce, ciphertext := decoded[:chacha20poly1305.NonceSizeX], decoded[chacha20poly1305.NonceSizeX:]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decryption failed: %w", err)
	}
	return string(plaintext), nil
}

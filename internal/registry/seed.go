package registry

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

// SeedCipher encrypts and decrypts distribution account seeds with AES-GCM.
// The key comes from configuration; plaintext seeds exist only in memory.
type SeedCipher struct {
	aead cipher.AEAD
}

// NewSeedCipher builds a cipher from a hex-encoded 32-byte key.
func NewSeedCipher(hexKey string) (*SeedCipher, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decode seed key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("seed key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	return &SeedCipher{aead: aead}, nil
}

// Encrypt seals the seed with a random nonce. The nonce is prepended to the
// ciphertext.
func (c *SeedCipher) Encrypt(seed string) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return c.aead.Seal(nonce, nonce, []byte(seed), nil), nil
}

// Decrypt opens a ciphertext produced by Encrypt.
func (c *SeedCipher) Decrypt(ciphertext []byte) (string, error) {
	if len(ciphertext) < c.aead.NonceSize() {
		return "", fmt.Errorf("ciphertext shorter than nonce")
	}
	nonce, sealed := ciphertext[:c.aead.NonceSize()], ciphertext[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt seed: %w", err)
	}
	return string(plain), nil
}

package persistence

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/crabritto/arbor/pkg/domain"
)

// ErrDecrypt is returned when no configured key opens a stored snapshot.
var ErrDecrypt = errors.New("decryption failed with all available keys")

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys are tried when the active key cannot open a snapshot,
	// so keys can be rotated without dropping live sessions.
	FallbackKeys [][]byte
}

// ParseKeys decodes base64 keys as written in configuration.
func ParseKeys(active string, fallback []string) (EncryptionConfig, error) {
	var cfg EncryptionConfig
	key, err := base64.StdEncoding.DecodeString(active)
	if err != nil {
		return cfg, fmt.Errorf("invalid encryption key: %w", err)
	}
	cfg.ActiveKey = key
	for i, f := range fallback {
		key, err := base64.StdEncoding.DecodeString(f)
		if err != nil {
			return cfg, fmt.Errorf("invalid fallback key %d: %w", i, err)
		}
		cfg.FallbackKeys = append(cfg.FallbackKeys, key)
	}
	return cfg, nil
}

type encryptedCodec struct {
	inner  Codec
	config EncryptionConfig
}

// NewEncryptedCodec seals what inner produces with AES-256-GCM.
// The stored form is nonce||ciphertext.
func NewEncryptedCodec(inner Codec, config EncryptionConfig) (Codec, error) {
	if len(config.ActiveKey) != 32 {
		return nil, errors.New("active key must be 32 bytes (AES-256)")
	}
	for i, k := range config.FallbackKeys {
		if len(k) != 32 {
			return nil, fmt.Errorf("fallback key %d must be 32 bytes (AES-256)", i)
		}
	}
	if inner == nil {
		inner = JSONCodec{}
	}
	return &encryptedCodec{inner: inner, config: config}, nil
}

func (c *encryptedCodec) Marshal(tree *domain.Tree) ([]byte, error) {
	plain, err := c.inner.Marshal(tree)
	if err != nil {
		return nil, err
	}
	sealed, err := encrypt(plain, c.config.ActiveKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt tree: %w", err)
	}
	return sealed, nil
}

func (c *encryptedCodec) Unmarshal(data []byte) (*domain.Tree, error) {
	plain, err := decryptWithRotation(data, c.config.ActiveKey, c.config.FallbackKeys)
	if err != nil {
		return nil, err
	}
	return c.inner.Unmarshal(plain)
}

// Helpers

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}
	return nil, ErrDecrypt
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, body := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, body, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

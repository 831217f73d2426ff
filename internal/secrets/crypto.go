package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 16
	keySize    = 32 // AES-256
	iterations = 100000
)

// Crypto handles encryption and decryption of stored secrets, currently the
// per-account oracle API keys.
type Crypto struct {
	passphrase string
}

// NewCrypto creates a new Crypto instance
func NewCrypto(passphrase string) (*Crypto, error) {
	if passphrase == "" {
		// Basic obfuscation only; deployments should set SECRETS_PASSPHRASE
		passphrase = getDefaultPassphrase()
	}
	return &Crypto{passphrase: passphrase}, nil
}

// getDefaultPassphrase generates a default passphrase
func getDefaultPassphrase() string {
	return "paper-trader-default-key-2026"
}

// deriveKey derives an AES key from passphrase and salt using PBKDF2
func (c *Crypto) deriveKey(salt []byte) []byte {
	return pbkdf2.Key([]byte(c.passphrase), salt, iterations, keySize, sha256.New)
}

// Encrypt encrypts plaintext using AES-256-GCM
func (c *Crypto) Encrypt(plaintext []byte) ([]byte, error) {
	// Generate random salt
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}

	// Derive key from passphrase
	key := c.deriveKey(salt)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	ciphertext := gcm.Seal(nonce, nonce, plaintext, nil)

	// Prepend salt to ciphertext
	result := make([]byte, saltSize+len(ciphertext))
	copy(result, salt)
	copy(result[saltSize:], ciphertext)

	return result, nil
}

// Decrypt decrypts ciphertext encrypted with Encrypt
func (c *Crypto) Decrypt(data []byte) ([]byte, error) {
	if len(data) < saltSize {
		return nil, errors.New("ciphertext too short")
	}

	salt := data[:saltSize]
	ciphertext := data[saltSize:]

	key := c.deriveKey(salt)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	ciphertext = ciphertext[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errors.New("decryption failed: invalid passphrase or corrupted data")
	}

	return plaintext, nil
}

// EncryptString encrypts a string and encodes it as base64 for column storage
func (c *Crypto) EncryptString(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	data, err := c.Encrypt([]byte(plaintext))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecryptString reverses EncryptString
func (c *Crypto) DecryptString(encoded string) (string, error) {
	if encoded == "" {
		return "", nil
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", errors.New("invalid encrypted value encoding")
	}
	plaintext, err := c.Decrypt(data)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

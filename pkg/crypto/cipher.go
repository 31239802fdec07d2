package crypto

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

// ErrMalformed is returned for payloads that cannot be decoded or authenticated.
var ErrMalformed = errors.New("crypto: malformed payload")

// deriveKey normalizes key material to 32 bytes using SHA-256.
func deriveKey(secret string) []byte {
	sum := sha256.Sum256([]byte("techvault:" + secret))
	return sum[:]
}

func newGCM(secret string) (cipher.AEAD, error) {
	if secret == "" {
		return nil, errors.New("crypto: empty secret")
	}
	block, err := aes.NewCipher(deriveKey(secret))
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Seal encrypts plaintext with AES-GCM, binding it to aad. The nonce is
// prepended to the ciphertext.
func Seal(secret string, plaintext, aad []byte) ([]byte, error) {
	gcm, err := newGCM(secret)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, aad), nil
}

// Open reverses Seal.
func Open(secret string, payload, aad []byte) ([]byte, error) {
	gcm, err := newGCM(secret)
	if err != nil {
		return nil, err
	}
	nonceSize := gcm.NonceSize()
	if len(payload) < nonceSize {
		return nil, ErrMalformed
	}
	plain, err := gcm.Open(nil, payload[:nonceSize], payload[nonceSize:], aad)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return plain, nil
}

// SealToken encrypts plaintext and returns URL-safe text suitable for a cookie value.
func SealToken(secret, plaintext, aad string) (string, error) {
	sealed, err := Seal(secret, []byte(plaintext), []byte(aad))
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// OpenToken decrypts a value produced by SealToken.
func OpenToken(secret, token, aad string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	plain, err := Open(secret, raw, []byte(aad))
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

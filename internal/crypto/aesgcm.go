package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltLen    = 16
	gcmIVLen   = 12
	gcmTagLen  = 16
	keyLen     = 32
	iterations = 100_000
)

func deriveKey(secret string, salt []byte) []byte {
	return pbkdf2.Key([]byte(secret), salt, iterations, keyLen, sha256.New)
}

// Seal encrypts plain with AES-256-GCM under a key derived from secret.
// Output layout: base64(salt | iv | ciphertext+tag).
func Seal(secret string, plain []byte) (string, error) {
	if secret == "" {
		return "", errors.New("secret required")
	}
	if len(plain) == 0 {
		return "", errors.New("plaintext required")
	}

	buf := make([]byte, saltLen+gcmIVLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	salt, iv := buf[:saltLen], buf[saltLen:]

	block, err := aes.NewCipher(deriveKey(secret, salt))
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	payload := gcm.Seal(buf, iv, plain, nil)
	return base64.StdEncoding.EncodeToString(payload), nil
}

// Open reverses Seal. A wrong secret or tampered blob fails authentication.
func Open(secret, sealed string) ([]byte, error) {
	if secret == "" {
		return nil, errors.New("secret required")
	}
	data, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, err
	}
	if len(data) < saltLen+gcmIVLen+gcmTagLen {
		return nil, errors.New("ciphertext too short")
	}

	salt := data[:saltLen]
	iv := data[saltLen : saltLen+gcmIVLen]
	ciphertext := data[saltLen+gcmIVLen:]

	block, err := aes.NewCipher(deriveKey(secret, salt))
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return gcm.Open(nil, iv, ciphertext, nil)
}

// Package crypto seals client credentials (CMS app passwords, social profile keys) before they hit the database.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"strings"
	"sync"
)

// sealedPrefix marks values written by Seal; anything without it is treated as legacy plain text.
const sealedPrefix = "enc:v1:"

var ErrNoKey = errors.New("value is encrypted but no secret key is configured")

var (
	mu   sync.RWMutex
	aead cipher.AEAD
)

// SetEncryptionKey derives an AES-256 key from secret. An empty secret disables sealing.
func SetEncryptionKey(secret string) error {
	mu.Lock()
	defer mu.Unlock()

	if secret == "" {
		aead = nil
		return nil
	}
	sum := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(sum[:])
	if err != nil {
		return err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return err
	}
	aead = gcm
	return nil
}

func current() cipher.AEAD {
	mu.RLock()
	defer mu.RUnlock()
	return aead
}

// Seal encrypts plain with AES-GCM. Without a key the value is stored as is.
func Seal(plain string) (string, error) {
	gcm := current()
	if plain == "" || gcm == nil {
		return plain, nil
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	out := gcm.Seal(nonce, nonce, []byte(plain), nil)
	return sealedPrefix + base64.StdEncoding.EncodeToString(out), nil
}

// Open reverses Seal. Values without the sealed prefix are returned unchanged.
func Open(stored string) (string, error) {
	if !IsSealed(stored) {
		return stored, nil
	}
	gcm := current()
	if gcm == nil {
		return "", ErrNoKey
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, sealedPrefix))
	if err != nil {
		return "", err
	}
	if len(data) < gcm.NonceSize() {
		return "", errors.New("sealed value too short")
	}
	nonce, ciphertext := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func IsSealed(v string) bool {
	return strings.HasPrefix(v, sealedPrefix)
}

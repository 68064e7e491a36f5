// Package cryptostore encrypts byte blobs at rest. Each blob uses a
// fresh random salt and IV, a key derived from the master key via
// HKDF-SHA-256, and AES-256-GCM. The wire layout is:
//
//	salt(16) || iv(12) || tag(16) || ciphertext
//
// The HKDF info string separates key derivation paths: the same master
// key produces unrelated keys for different stores.
package cryptostore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	saltSize = 16
	ivSize   = 12
	tagSize  = 16
	keySize  = 32

	// minBlobSize is salt + iv + tag; anything shorter is rejected
	// before key derivation.
	minBlobSize = saltSize + ivSize + tagSize
)

// DefaultInfo is the HKDF context used for general persisted state.
const DefaultInfo = "openclaw-store"

var (
	// ErrNoKey indicates a missing master key. This is a configuration
	// error and fails at point of use, not at startup.
	ErrNoKey = errors.New("cryptostore: encryption key required")

	// ErrTooShort indicates a blob below the minimum encrypted size.
	ErrTooShort = errors.New("cryptostore: encrypted blob too short")

	// ErrDecrypt is the single generic failure for any authentication
	// error: wrong key, wrong info, or tampering anywhere in the blob.
	ErrDecrypt = errors.New("cryptostore: decryption failed")
)

// deriveKey stretches masterKey into a purpose-specific AES key.
func deriveKey(masterKey string, salt []byte, info string) ([]byte, error) {
	key := make([]byte, keySize)
	r := hkdf.New(sha256.New, []byte(masterKey), salt, []byte(info))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("cryptostore: derive key: %w", err)
	}
	return key, nil
}

// Encrypt seals plaintext under masterKey. Two calls with identical
// inputs produce different output: salt and IV are never reused.
func Encrypt(plaintext []byte, masterKey, info string) ([]byte, error) {
	if masterKey == "" {
		return nil, ErrNoKey
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("cryptostore: generate salt: %w", err)
	}
	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("cryptostore: generate iv: %w", err)
	}

	key, err := deriveKey(masterKey, salt, info)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cryptostore: cipher init: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cryptostore: gcm init: %w", err)
	}

	// Seal appends the tag after the ciphertext; the wire layout puts
	// the tag before it.
	sealed := gcm.Seal(nil, iv, plaintext, nil)
	ct := sealed[:len(sealed)-tagSize]
	tag := sealed[len(sealed)-tagSize:]

	out := make([]byte, 0, minBlobSize+len(ct))
	out = append(out, salt...)
	out = append(out, iv...)
	out = append(out, tag...)
	out = append(out, ct...)
	return out, nil
}

// Decrypt opens a blob produced by Encrypt. Any authentication failure
// surfaces as ErrDecrypt; partial plaintext is never returned.
func Decrypt(blob []byte, masterKey, info string) ([]byte, error) {
	if masterKey == "" {
		return nil, ErrNoKey
	}
	if len(blob) < minBlobSize {
		return nil, ErrTooShort
	}

	salt := blob[:saltSize]
	iv := blob[saltSize : saltSize+ivSize]
	tag := blob[saltSize+ivSize : minBlobSize]
	ct := blob[minBlobSize:]

	key, err := deriveKey(masterKey, salt, info)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cryptostore: cipher init: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cryptostore: gcm init: %w", err)
	}

	sealed := make([]byte, 0, len(ct)+tagSize)
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)

	plaintext, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}

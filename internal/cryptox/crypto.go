// Package cryptox seals small values at rest: a passphrase is stretched
// with argon2id and values are JSON-encoded and encrypted with AES-GCM.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/json"
	"errors"

	"github.com/hefi-app/hefi/internal/common"
	"golang.org/x/crypto/argon2"
)

// SaltSize is the salt length expected by DeriveKey callers.
const SaltSize = 16

// ErrDecrypt is returned when a sealed value cannot be opened, usually
// because the passphrase is wrong.
var ErrDecrypt = errors.New("cannot decrypt value")

// DeriveKey stretches passphrase into a 32-byte AES-256 key.
func DeriveKey(passphrase []byte, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, 32)
}

// NewSalt returns SaltSize random bytes.
func NewSalt() []byte {
	return common.GenerateRandByteArray(SaltSize)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Seal JSON-encodes v and encrypts it with key under a fresh nonce.
func Seal(v any, key []byte) (ciphertext, nonce []byte, err error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, nil, err
	}
	defer common.WipeByteArray(plaintext)

	aead, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}
	nonce = common.GenerateRandByteArray(aead.NonceSize())

	return aead.Seal(nil, nonce, plaintext, nil), nonce, nil
}

// Open reverses Seal into v. Authentication failures yield ErrDecrypt.
func Open(ciphertext, nonce, key []byte, v any) error {
	aead, err := newGCM(key)
	if err != nil {
		return err
	}
	if len(nonce) != aead.NonceSize() {
		return ErrDecrypt
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return ErrDecrypt
	}
	defer common.WipeByteArray(plaintext)

	return json.Unmarshal(plaintext, v)
}

// This package seals and unseals record envelopes. An envelope is a single opaque
// blob laid out as nonce || ciphertext || tag, so no separate nonce storage is needed.
package crypto

import (
	crypto_rand "crypto/rand"
	"errors"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// Returned whenever an envelope fails its integrity or authenticity check.
var ErrAuthentication = errors.New("crypto: envelope authentication failed")

const KeySize = chacha20poly1305.KeySize

func Seal(key, plaintext []byte) ([]byte, error) {
	if len(key) != KeySize {
		panic("key is wrong length")
	}
	cipher, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	envelope := make([]byte, chacha20poly1305.NonceSize, chacha20poly1305.NonceSize+len(plaintext)+chacha20poly1305.Overhead)
	if _, err := io.ReadFull(crypto_rand.Reader, envelope); err != nil {
		return nil, err
	}
	return cipher.Seal(envelope, envelope, plaintext, nil), nil
}

func Unseal(key, envelope []byte) ([]byte, error) {
	if len(key) != KeySize {
		panic("key is wrong length")
	}
	if len(envelope) < chacha20poly1305.NonceSize+chacha20poly1305.Overhead {
		return nil, ErrAuthentication
	}
	cipher, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := cipher.Open(nil, envelope[:chacha20poly1305.NonceSize], envelope[chacha20poly1305.NonceSize:], nil)
	if err != nil {
		return nil, ErrAuthentication
	}
	return plaintext, nil
}

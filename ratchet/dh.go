// Package ratchet implements the Double Ratchet key-agreement and
// message-encryption algorithm: a DH ratchet composed with two symmetric-key
// KDF chains, following the Signal specification with a fixed
// AES-256-CBC+HMAC-SHA256 ciphersuite.
package ratchet

import (
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/curve25519"
)

// KeyPair is an X25519 key pair.
type KeyPair struct {
	Private [32]byte
	Public  [32]byte
}

// generateDH produces a fresh X25519 key pair using the system CSPRNG.
func generateDH() (KeyPair, error) {
	var kp KeyPair
	if _, err := io.ReadFull(rand.Reader, kp.Private[:]); err != nil {
		return KeyPair{}, fmt.Errorf("ratchet: generate dh key: %w", err)
	}
	kp.Private[0] &= 248
	kp.Private[31] &= 127
	kp.Private[31] |= 64

	pub, err := curve25519.X25519(kp.Private[:], curve25519.Basepoint)
	if err != nil {
		return KeyPair{}, fmt.Errorf("ratchet: derive public key: %w", err)
	}
	copy(kp.Public[:], pub)
	return kp, nil
}

// dh performs the X25519 Diffie-Hellman operation between a local secret
// and a remote public key.
func dh(priv [32]byte, pub [32]byte) ([]byte, error) {
	out, err := curve25519.X25519(priv[:], pub[:])
	if err != nil {
		return nil, fmt.Errorf("ratchet: dh: %w", err)
	}
	return out, nil
}

// wipe overwrites a secret buffer with zeroes. Declared noinline so the
// compiler cannot elide the store as dead code once the buffer is no longer
// read from.
//
//go:noinline
func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

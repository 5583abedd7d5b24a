package ratchet

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// ErrAuthFailed is returned by Receive when the HMAC over the associated
// data and ciphertext does not match.
var ErrAuthFailed = errors.New("ratchet: message authentication failed")

// ErrSkipLimitExceeded is returned when a header requests skipping further
// than maxSkip messages ahead of the current receiving chain position.
var ErrSkipLimitExceeded = errors.New("ratchet: skip limit exceeded")

// maxSkip bounds the number of skipped-message keys retained per DH ratchet
// step, guarding against unbounded memory growth from a malicious peer.
const maxSkip = 100

var rootKDFInfo = []byte("sOsforEPFL")
var encryptKDFInfo = []byte("sOsEncrypt")

type rootKey = [32]byte
type chainKey = [32]byte
type messageKey = [32]byte

// kdfRK derives the next root key and receiving/sending chain key from the
// current root key and a fresh DH output.
func kdfRK(rk rootKey, dhOut []byte) (rootKey, chainKey, error) {
	hk := hkdf.New(sha256.New, dhOut, rk[:], rootKDFInfo)
	var okm [64]byte
	if _, err := io.ReadFull(hk, okm[:]); err != nil {
		return rootKey{}, chainKey{}, fmt.Errorf("ratchet: kdf_rk: %w", err)
	}
	var newRK rootKey
	var newCK chainKey
	copy(newRK[:], okm[0:32])
	copy(newCK[:], okm[32:64])
	return newRK, newCK, nil
}

// kdfCK advances a chain key and derives the message key for this step.
func kdfCK(ck chainKey) (chainKey, messageKey) {
	macMsg := hmac.New(sha256.New, ck[:])
	macMsg.Write([]byte("01"))
	var mk messageKey
	copy(mk[:], macMsg.Sum(nil))

	macChain := hmac.New(sha256.New, ck[:])
	macChain.Write([]byte("02"))
	var newCK chainKey
	copy(newCK[:], macChain.Sum(nil))

	return newCK, mk
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	pad := bytes.Repeat([]byte{byte(padLen)}, padLen)
	return append(data, pad...)
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	n := len(data)
	if n == 0 {
		return nil, fmt.Errorf("ratchet: pkcs7 unpad: empty input")
	}
	padLen := int(data[n-1])
	if padLen == 0 || padLen > n {
		return nil, fmt.Errorf("ratchet: pkcs7 unpad: invalid padding")
	}
	return data[:n-padLen], nil
}

// encrypt derives encryption/auth keys and an IV from mk via HKDF, then
// performs AES-256-CBC followed by HMAC-SHA256 (encrypt-then-MAC) over
// associatedData || ciphertext, appending the tag.
func encrypt(mk messageKey, plaintext, associatedData []byte) ([]byte, error) {
	var salt [32]byte
	hk := hkdf.New(sha256.New, mk[:], salt[:], encryptKDFInfo)
	var okm [80]byte
	if _, err := io.ReadFull(hk, okm[:]); err != nil {
		return nil, fmt.Errorf("ratchet: encrypt kdf: %w", err)
	}
	encKey := okm[0:32]
	authKey := okm[32:64]
	iv := okm[64:80]

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, fmt.Errorf("ratchet: new cipher: %w", err)
	}
	padded := pkcs7Pad(append([]byte(nil), plaintext...), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cbc := cipher.NewCBCEncrypter(block, iv)
	cbc.CryptBlocks(ciphertext, padded)

	mac := hmac.New(sha256.New, authKey)
	mac.Write(associatedData)
	mac.Write(ciphertext)
	tag := mac.Sum(nil)

	return append(ciphertext, tag...), nil
}

// decrypt verifies the HMAC tag in constant time before decrypting.
func decrypt(mk messageKey, ciphertextWithTag, associatedData []byte) ([]byte, error) {
	if len(ciphertextWithTag) < sha256.Size {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrAuthFailed)
	}
	ciphertext := ciphertextWithTag[:len(ciphertextWithTag)-sha256.Size]
	tag := ciphertextWithTag[len(ciphertextWithTag)-sha256.Size:]

	var salt [32]byte
	hk := hkdf.New(sha256.New, mk[:], salt[:], encryptKDFInfo)
	var okm [80]byte
	if _, err := io.ReadFull(hk, okm[:]); err != nil {
		return nil, fmt.Errorf("ratchet: decrypt kdf: %w", err)
	}
	decKey := okm[0:32]
	authKey := okm[32:64]
	iv := okm[64:80]

	mac := hmac.New(sha256.New, authKey)
	mac.Write(associatedData)
	mac.Write(ciphertext)
	expected := mac.Sum(nil)
	if subtle.ConstantTimeCompare(expected, tag) != 1 {
		return nil, ErrAuthFailed
	}

	if len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext not block aligned", ErrAuthFailed)
	}
	block, err := aes.NewCipher(decKey)
	if err != nil {
		return nil, fmt.Errorf("ratchet: new cipher: %w", err)
	}
	padded := make([]byte, len(ciphertext))
	cbc := cipher.NewCBCDecrypter(block, iv)
	cbc.CryptBlocks(padded, ciphertext)

	return pkcs7Unpad(padded)
}

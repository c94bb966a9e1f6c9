package securestore

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Seed envelopes seal the wallet seed under a passphrase with Argon2id +
// XChaCha20-Poly1305 before it touches the store.
//
// Binary format: salt(32) | memory(4) | iterations(4) | parallelism(1) |
// nonce(24) | ciphertext. Stored base64-encoded.
const (
	saltSize   = 32
	headerSize = saltSize + 4 + 4 + 1
)

// ErrAuthFailed is returned when a passphrase fails to open an envelope.
var ErrAuthFailed = errors.New("envelope authentication failed")

// KDFParams holds Argon2id parameters.
type KDFParams struct {
	Memory      uint32 // in KiB
	Iterations  uint32
	Parallelism uint8
}

// DefaultKDFParams returns recommended Argon2id parameters.
func DefaultKDFParams() KDFParams {
	return KDFParams{
		Memory:      64 * 1024, // 64 MB
		Iterations:  3,
		Parallelism: 4,
	}
}

func deriveKey(passphrase, salt []byte, params KDFParams) []byte {
	return argon2.IDKey(
		passphrase,
		salt,
		params.Iterations,
		params.Memory,
		params.Parallelism,
		chacha20poly1305.KeySize,
	)
}

// Seal encrypts data under a passphrase and returns a storable string.
func Seal(data, passphrase []byte, params KDFParams) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := deriveKey(passphrase, salt, params)
	defer zeroBytes(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := aead.Seal(nil, nonce, data, nil)

	out := make([]byte, 0, headerSize+len(nonce)+len(ciphertext))
	out = append(out, salt...)
	out = binary.LittleEndian.AppendUint32(out, params.Memory)
	out = binary.LittleEndian.AppendUint32(out, params.Iterations)
	out = append(out, params.Parallelism)
	out = append(out, nonce...)
	out = append(out, ciphertext...)

	return base64.StdEncoding.EncodeToString(out), nil
}

// Open decrypts an envelope produced by Seal with the given passphrase.
func Open(envelope string, passphrase []byte) ([]byte, error) {
	encrypted, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	nonceSize := chacha20poly1305.NonceSizeX
	minSize := headerSize + nonceSize + chacha20poly1305.Overhead
	if len(encrypted) < minSize {
		return nil, fmt.Errorf("envelope too short: %d bytes, need at least %d", len(encrypted), minSize)
	}

	salt := encrypted[:saltSize]
	params := KDFParams{
		Memory:      binary.LittleEndian.Uint32(encrypted[saltSize:]),
		Iterations:  binary.LittleEndian.Uint32(encrypted[saltSize+4:]),
		Parallelism: encrypted[saltSize+8],
	}

	nonce := encrypted[headerSize : headerSize+nonceSize]
	ciphertext := encrypted[headerSize+nonceSize:]

	key := deriveKey(passphrase, salt, params)
	defer zeroBytes(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

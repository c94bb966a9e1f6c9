package messaging

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/zeroa-labs/lasko-core/pkg/crypto"
)

// Message encryption is ECIES-style: an ephemeral secp256k1 key agrees a
// shared secret with the recipient's real public key, HKDF-SHA256 expands it
// into an AEAD key, and XChaCha20-Poly1305 seals the plaintext.
//
// Envelope layout: ephemeralPub(33) | nonce(24) | ciphertext.
const (
	ephPubSize  = 33
	kdfInfo     = "lasko/msg/v1"
	minEnvelope = ephPubSize + chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead
)

// Encrypt seals plaintext to the holder of recipientPub. Each call uses a
// fresh ephemeral key, so identical plaintexts produce unrelated envelopes.
func Encrypt(plaintext, recipientPub []byte) ([]byte, error) {
	eph, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("ephemeral key: %w", err)
	}
	defer eph.Zero()

	secret, err := crypto.SharedSecret(eph, recipientPub)
	if err != nil {
		return nil, fmt.Errorf("ecdh: %w", err)
	}

	key, err := expandKey(secret)
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	out := make([]byte, 0, ephPubSize+len(nonce)+len(plaintext)+chacha20poly1305.Overhead)
	out = append(out, eph.PublicKey()...)
	out = append(out, nonce...)
	out = aead.Seal(out, nonce, plaintext, nil)
	return out, nil
}

// Decrypt opens an envelope with the recipient's private key. Any parse or
// authentication failure yields ErrDecryptionFailure.
func Decrypt(envelope []byte, recipientPriv *crypto.PrivateKey) ([]byte, error) {
	if len(envelope) < minEnvelope {
		return nil, ErrDecryptionFailure
	}

	ephPub := envelope[:ephPubSize]
	nonce := envelope[ephPubSize : ephPubSize+chacha20poly1305.NonceSizeX]
	ciphertext := envelope[ephPubSize+chacha20poly1305.NonceSizeX:]

	secret, err := crypto.SharedSecret(recipientPriv, ephPub)
	if err != nil {
		return nil, ErrDecryptionFailure
	}

	key, err := expandKey(secret)
	if err != nil {
		return nil, ErrDecryptionFailure
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, ErrDecryptionFailure
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailure
	}
	return plaintext, nil
}

// PlaintextDigest is the digest messages are signed over.
func PlaintextDigest(plaintext []byte) [32]byte {
	return crypto.DoubleSHA256(plaintext)
}

func expandKey(secret []byte) ([]byte, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, secret, nil, []byte(kdfInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("hkdf: %w", err)
	}
	return key, nil
}

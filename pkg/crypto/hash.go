// Package crypto provides the hashing and signing primitives shared by the
// wallet and messaging layers.
package crypto

import (
	"crypto/sha256"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // RIPEMD-160 is required by the Bitcoin address format (Hash160).
)

// DoubleSHA256 computes SHA256(SHA256(data)), the txid digest for
// Bitcoin-shaped chains.
func DoubleSHA256(data []byte) [32]byte {
	first := sha256.Sum256(data)
	return sha256.Sum256(first[:])
}

// Hash160 computes RIPEMD160(SHA256(data)), the P2PKH address digest.
func Hash160(data []byte) []byte {
	sha := sha256.Sum256(data)
	ripe := ripemd160.New()
	ripe.Write(sha[:])
	return ripe.Sum(nil)
}

// StoreKey computes a BLAKE3-256 digest of the input. Used to derive fixed-size
// secure-store keys from variable-length identifiers (addresses, conversation
// ids) so stored keys never leak their plaintext form.
func StoreKey(parts ...string) [32]byte {
	h := blake3.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

package keys

import (
	"errors"

	"github.com/btcsuite/btcd/btcutil/base58"

	"github.com/zeroa-labs/lasko-core/pkg/coin"
	"github.com/zeroa-labs/lasko-core/pkg/crypto"
)

// ErrInvalidAddress is returned when an address fails its coin's format or
// checksum validation.
var ErrInvalidAddress = errors.New("invalid address")

const hash160Size = 20

// AddressFromPubKey derives a P2PKH address from a compressed public key:
// Base58Check(version || HASH160(pubkey)).
func AddressFromPubKey(pubKey []byte, c coin.Coin) string {
	return base58.CheckEncode(crypto.Hash160(pubKey), c.P2PKHVersion)
}

// ValidateAddress checks an address against the coin's version byte,
// Base58Check checksum, payload size, and address regexp.
func ValidateAddress(addr string, c coin.Coin) bool {
	if !c.MatchesAddressFormat(addr) {
		return false
	}
	payload, version, err := base58.CheckDecode(addr)
	if err != nil {
		return false
	}
	return version == c.P2PKHVersion && len(payload) == hash160Size
}

// DeriveAddress derives the receiving address at the given index for a coin
// from a mnemonic. Deterministic for identical (mnemonic, coin, index).
func DeriveAddress(mnemonic, passphrase string, c coin.Coin, index uint32) (string, error) {
	key, err := DeriveKey(mnemonic, passphrase, c, index)
	if err != nil {
		return "", err
	}
	defer key.Zero()
	return AddressFromPubKey(key.PublicKey(), c), nil
}

// PubKeyMatchesAddress reports whether a compressed public key hashes to the
// given address for the coin. Used to verify that a message author's claimed
// sender address owns the embedded public key.
func PubKeyMatchesAddress(pubKey []byte, addr string, c coin.Coin) bool {
	return AddressFromPubKey(pubKey, c) == addr
}

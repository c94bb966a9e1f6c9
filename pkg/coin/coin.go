// Package coin defines the static per-coin metadata the rest of the core
// keys off. Coin parameters are data, not code: adding a coin of the same
// shape means adding a row here, not a new implementation.
package coin

import (
	"fmt"
	"regexp"

	"github.com/tyler-smith/go-bip32"
)

// Coin describes one supported blockchain.
type Coin struct {
	Symbol         string
	Name           string
	BIP44Type      uint32 // Coin type field of the BIP-44 path (unhardened value).
	DerivationPath string // Display form of the account path.
	P2PKHVersion   byte   // Base58Check version byte for P2PKH addresses.
	Decimals       int    // Base-unit decimal places (8 for BTC-likes).
	addressRe      *regexp.Regexp
}

// The compile-time set of supported coins. All are Bitcoin-shaped UTXO
// chains with Base58Check P2PKH addresses.
var (
	Bitcoin = Coin{
		Symbol:         "BTC",
		Name:           "Bitcoin",
		BIP44Type:      0,
		DerivationPath: "m/44'/0'/0'/0",
		P2PKHVersion:   0x00,
		Decimals:       8,
		addressRe:      regexp.MustCompile(`^1[1-9A-HJ-NP-Za-km-z]{25,34}$`),
	}
	Litecoin = Coin{
		Symbol:         "LTC",
		Name:           "Litecoin",
		BIP44Type:      2,
		DerivationPath: "m/44'/2'/0'/0",
		P2PKHVersion:   0x30,
		Decimals:       8,
		addressRe:      regexp.MustCompile(`^L[1-9A-HJ-NP-Za-km-z]{25,34}$`),
	}
	Dogecoin = Coin{
		Symbol:         "DOGE",
		Name:           "Dogecoin",
		BIP44Type:      3,
		DerivationPath: "m/44'/3'/0'/0",
		P2PKHVersion:   0x1e,
		Decimals:       8,
		addressRe:      regexp.MustCompile(`^D[1-9A-HJ-NP-Za-km-z]{25,34}$`),
	}
)

// All lists every supported coin.
var All = []Coin{Bitcoin, Litecoin, Dogecoin}

// BySymbol returns the coin with the given symbol.
func BySymbol(symbol string) (Coin, error) {
	for _, c := range All {
		if c.Symbol == symbol {
			return c, nil
		}
	}
	return Coin{}, fmt.Errorf("unknown coin %q", symbol)
}

// HardenedBIP44Type returns the hardened coin-type index for BIP-32 derivation.
func (c Coin) HardenedBIP44Type() uint32 {
	return bip32.FirstHardenedChild + c.BIP44Type
}

// MatchesAddressFormat reports whether addr has this coin's address shape.
// This is a format check only; checksum validation lives in the keys package.
func (c Coin) MatchesAddressFormat(addr string) bool {
	return c.addressRe.MatchString(addr)
}

func (c Coin) String() string {
	return c.Symbol
}

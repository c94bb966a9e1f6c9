// Package securestore defines the secure key-value collaborator the wallet
// and messaging layers persist through, plus a durable Badger-backed
// implementation and an in-memory one for tests.
//
// Each key's read-modify-write is atomic per key; no cross-key transaction
// is offered or required.
package securestore

// Store is the secure key-value contract. Implementations must be safe for
// concurrent use and durable across restarts (MemStore excepted, for tests).
type Store interface {
	// Save stores a value under a key, overwriting any previous value.
	Save(key, value string) error
	// Read returns the value for a key and whether it was present.
	Read(key string) (string, bool, error)
	// Delete removes a key. Deleting an absent key is not an error.
	Delete(key string) error
}

// Well-known key prefixes. Values under "seed/" and "groupkey/" are always
// sealed envelopes (see envelope.go), never plaintext.
const (
	KeySeed           = "seed/default"
	KeyAddressPrefix  = "addr/"     // addr/{symbol} -> derived receiving address
	KeyGroupKeyPrefix = "groupkey/" // groupkey/{address} -> sealed group chat key
	KeyGroupIndex     = "group/index"
	KeyConvIndex      = "conv/index"
	KeyConvPrefix     = "conv/"    // conv/{digest} -> conversation record
	KeyMsgLogPrefix   = "msglog/"  // msglog/{digest} -> append-only message log
	KeyPubKeyPrefix   = "pubkey/"  // pubkey/{address} -> known public key, hex
	KeyScanSeenPrefix = "scanned/" // scanned/{symbol} -> processed txid set
	KeyLastPayment    = "wallet/last-payment"
	KeyPriceCache     = "price/cache"
)

package wallet

import (
	"encoding/json"
	"fmt"

	"github.com/zeroa-labs/lasko-core/internal/keys"
	"github.com/zeroa-labs/lasko-core/internal/securestore"
	"github.com/zeroa-labs/lasko-core/pkg/coin"
	"github.com/zeroa-labs/lasko-core/pkg/crypto"
)

// KeyResolver resolves the signing key for an address. The wallet never
// holds raw key material between calls; keys are derived on demand and
// zeroed by the caller.
type KeyResolver interface {
	ResolveKey(c coin.Coin, address string) (*crypto.PrivateKey, error)
}

// StoreKeyResolver resolves signing keys from the secure store: imported
// group chat keys first, then derivation from the sealed seed. The
// passphrase callback is invoked per resolution so the embedding
// application controls how long the passphrase stays in memory.
type StoreKeyResolver struct {
	store      securestore.Store
	passphrase func() ([]byte, error)
	gapLimit   uint32
}

// NewStoreKeyResolver creates a resolver over the given store.
func NewStoreKeyResolver(store securestore.Store, passphrase func() ([]byte, error)) *StoreKeyResolver {
	return &StoreKeyResolver{
		store:      store,
		passphrase: passphrase,
		gapLimit:   20, // BIP-44 address gap limit.
	}
}

// StoreSeed seals a mnemonic under the passphrase and persists it.
func StoreSeed(store securestore.Store, mnemonic string, passphrase []byte) error {
	if !keys.ValidateMnemonic(mnemonic) {
		return keys.ErrInvalidMnemonic
	}
	sealed, err := securestore.Seal([]byte(mnemonic), passphrase, securestore.DefaultKDFParams())
	if err != nil {
		return fmt.Errorf("seal seed: %w", err)
	}
	return store.Save(securestore.KeySeed, sealed)
}

// ImportGroupKey seals a shared group chat key under the passphrase and
// persists it, keyed by the group address. The key must hash to the
// address. Joined groups are tracked in an index so the scanner can be
// pointed at them on startup.
func ImportGroupKey(store securestore.Store, c coin.Coin, address string, priv, passphrase []byte) error {
	if !keys.ValidateAddress(address, c) {
		return fmt.Errorf("%w: %s", keys.ErrInvalidAddress, address)
	}
	key, err := crypto.PrivateKeyFromBytes(priv)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSigningFailure, err)
	}
	defer key.Zero()
	if !keys.PubKeyMatchesAddress(key.PublicKey(), address, c) {
		return fmt.Errorf("%w: key does not hash to %s", keys.ErrInvalidAddress, address)
	}

	sealed, err := securestore.Seal(priv, passphrase, securestore.DefaultKDFParams())
	if err != nil {
		return fmt.Errorf("seal group key: %w", err)
	}
	if err := store.Save(securestore.KeyGroupKeyPrefix+address, sealed); err != nil {
		return fmt.Errorf("store group key: %w", err)
	}
	return groupIndexAdd(store, address)
}

// GroupAddresses lists the group addresses with imported keys.
func GroupAddresses(store securestore.Store) ([]string, error) {
	raw, ok, err := store.Read(securestore.KeyGroupIndex)
	if err != nil {
		return nil, fmt.Errorf("read group index: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var addrs []string
	if err := json.Unmarshal([]byte(raw), &addrs); err != nil {
		return nil, fmt.Errorf("parse group index: %w", err)
	}
	return addrs, nil
}

func groupIndexAdd(store securestore.Store, address string) error {
	addrs, err := GroupAddresses(store)
	if err != nil {
		return err
	}
	for _, a := range addrs {
		if a == address {
			return nil
		}
	}
	addrs = append(addrs, address)
	data, err := json.Marshal(addrs)
	if err != nil {
		return fmt.Errorf("marshal group index: %w", err)
	}
	return store.Save(securestore.KeyGroupIndex, string(data))
}

// ResolveKey resolves the key for an address: an imported group key when one
// exists, otherwise a scan of the sealed seed's receiving indices up to the
// gap limit. Returns ErrSigningFailure when no key material matches.
func (r *StoreKeyResolver) ResolveKey(c coin.Coin, address string) (*crypto.PrivateKey, error) {
	if key, ok, err := r.groupKey(address); err != nil {
		return nil, err
	} else if ok {
		return key, nil
	}

	sealed, ok, err := r.store.Read(securestore.KeySeed)
	if err != nil {
		return nil, fmt.Errorf("%w: read seed: %v", ErrSigningFailure, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: no seed stored", ErrSigningFailure)
	}

	pass, err := r.passphrase()
	if err != nil {
		return nil, fmt.Errorf("%w: passphrase: %v", ErrSigningFailure, err)
	}

	mnemonic, err := securestore.Open(sealed, pass)
	if err != nil {
		return nil, fmt.Errorf("%w: open seed: %v", ErrSigningFailure, err)
	}

	for index := uint32(0); index < r.gapLimit; index++ {
		key, err := keys.DeriveKey(string(mnemonic), "", c, index)
		if err != nil {
			return nil, fmt.Errorf("%w: derive: %v", ErrSigningFailure, err)
		}
		if keys.PubKeyMatchesAddress(key.PublicKey(), address, c) {
			return key, nil
		}
		key.Zero()
	}
	return nil, fmt.Errorf("%w: no key for address %s", ErrSigningFailure, address)
}

// groupKey opens the sealed group key for an address, when one was imported.
func (r *StoreKeyResolver) groupKey(address string) (*crypto.PrivateKey, bool, error) {
	sealed, ok, err := r.store.Read(securestore.KeyGroupKeyPrefix + address)
	if err != nil {
		return nil, false, fmt.Errorf("%w: read group key: %v", ErrSigningFailure, err)
	}
	if !ok {
		return nil, false, nil
	}

	pass, err := r.passphrase()
	if err != nil {
		return nil, false, fmt.Errorf("%w: passphrase: %v", ErrSigningFailure, err)
	}
	raw, err := securestore.Open(sealed, pass)
	if err != nil {
		return nil, false, fmt.Errorf("%w: open group key: %v", ErrSigningFailure, err)
	}
	key, err := crypto.PrivateKeyFromBytes(raw)
	if err != nil {
		return nil, false, fmt.Errorf("%w: group key: %v", ErrSigningFailure, err)
	}
	return key, true, nil
}

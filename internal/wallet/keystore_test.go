package wallet

import (
	"errors"
	"strings"
	"testing"

	"github.com/zeroa-labs/lasko-core/internal/keys"
	"github.com/zeroa-labs/lasko-core/internal/securestore"
	"github.com/zeroa-labs/lasko-core/pkg/coin"
	"github.com/zeroa-labs/lasko-core/pkg/crypto"
)

var testMnemonic = strings.Repeat("abandon ", 23) + "art"

func TestStoreSeed_SealedAtRest(t *testing.T) {
	store := securestore.NewMem()
	if err := StoreSeed(store, testMnemonic, []byte("pass")); err != nil {
		t.Fatalf("StoreSeed: %v", err)
	}

	raw, ok, err := store.Read(securestore.KeySeed)
	if err != nil || !ok {
		t.Fatalf("Read seed: ok=%v err=%v", ok, err)
	}
	if strings.Contains(raw, "abandon") {
		t.Error("stored seed must never contain mnemonic words")
	}
}

func TestStoreSeed_RejectsInvalidMnemonic(t *testing.T) {
	store := securestore.NewMem()
	err := StoreSeed(store, "twelve bogus words that fail the checksum entirely here ok then", []byte("pass"))
	if !errors.Is(err, keys.ErrInvalidMnemonic) {
		t.Errorf("err = %v, want ErrInvalidMnemonic", err)
	}
	if store.Len() != 0 {
		t.Error("nothing should be stored on failure")
	}
}

func TestResolveKey(t *testing.T) {
	store := securestore.NewMem()
	if err := StoreSeed(store, testMnemonic, []byte("pass")); err != nil {
		t.Fatalf("StoreSeed: %v", err)
	}
	resolver := NewStoreKeyResolver(store, func() ([]byte, error) {
		return []byte("pass"), nil
	})

	// An address inside the gap limit resolves to its matching key.
	addr, err := keys.DeriveAddress(testMnemonic, "", coin.Bitcoin, 3)
	if err != nil {
		t.Fatalf("DeriveAddress: %v", err)
	}
	key, err := resolver.ResolveKey(coin.Bitcoin, addr)
	if err != nil {
		t.Fatalf("ResolveKey: %v", err)
	}
	defer key.Zero()
	if !keys.PubKeyMatchesAddress(key.PublicKey(), addr, coin.Bitcoin) {
		t.Error("resolved key does not own the address")
	}
}

func TestResolveKey_UnknownAddress(t *testing.T) {
	store := securestore.NewMem()
	if err := StoreSeed(store, testMnemonic, []byte("pass")); err != nil {
		t.Fatalf("StoreSeed: %v", err)
	}
	resolver := NewStoreKeyResolver(store, func() ([]byte, error) {
		return []byte("pass"), nil
	})

	// Same coin, different seed: no derived index can match.
	foreign, err := keys.DeriveAddress(strings.Repeat("zoo ", 23)+"vote", "", coin.Bitcoin, 0)
	if err != nil {
		t.Fatalf("DeriveAddress: %v", err)
	}
	if _, err := resolver.ResolveKey(coin.Bitcoin, foreign); !errors.Is(err, ErrSigningFailure) {
		t.Errorf("err = %v, want ErrSigningFailure", err)
	}
}

func TestResolveKey_WrongPassphrase(t *testing.T) {
	store := securestore.NewMem()
	if err := StoreSeed(store, testMnemonic, []byte("right")); err != nil {
		t.Fatalf("StoreSeed: %v", err)
	}
	resolver := NewStoreKeyResolver(store, func() ([]byte, error) {
		return []byte("wrong"), nil
	})

	addr, _ := keys.DeriveAddress(testMnemonic, "", coin.Bitcoin, 0)
	if _, err := resolver.ResolveKey(coin.Bitcoin, addr); !errors.Is(err, ErrSigningFailure) {
		t.Errorf("err = %v, want ErrSigningFailure", err)
	}
}

func TestImportGroupKey(t *testing.T) {
	store := securestore.NewMem()
	groupKey, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	groupAddr := keys.AddressFromPubKey(groupKey.PublicKey(), coin.Bitcoin)

	if err := ImportGroupKey(store, coin.Bitcoin, groupAddr, groupKey.Serialize(), []byte("pass")); err != nil {
		t.Fatalf("ImportGroupKey: %v", err)
	}

	// The group key is sealed at rest, never raw.
	raw, ok, err := store.Read(securestore.KeyGroupKeyPrefix + groupAddr)
	if err != nil || !ok {
		t.Fatalf("Read group key: ok=%v err=%v", ok, err)
	}
	if strings.Contains(raw, string(groupKey.Serialize())) {
		t.Error("stored group key must be sealed")
	}

	// A resolver finds it by address, with no seed stored at all.
	resolver := NewStoreKeyResolver(store, func() ([]byte, error) {
		return []byte("pass"), nil
	})
	key, err := resolver.ResolveKey(coin.Bitcoin, groupAddr)
	if err != nil {
		t.Fatalf("ResolveKey: %v", err)
	}
	defer key.Zero()
	if !keys.PubKeyMatchesAddress(key.PublicKey(), groupAddr, coin.Bitcoin) {
		t.Error("resolved key does not own the group address")
	}

	// Joined groups are listed; re-importing does not duplicate.
	if err := ImportGroupKey(store, coin.Bitcoin, groupAddr, groupKey.Serialize(), []byte("pass")); err != nil {
		t.Fatalf("repeat ImportGroupKey: %v", err)
	}
	addrs, err := GroupAddresses(store)
	if err != nil {
		t.Fatalf("GroupAddresses: %v", err)
	}
	if len(addrs) != 1 || addrs[0] != groupAddr {
		t.Errorf("groups = %v, want [%s]", addrs, groupAddr)
	}
}

func TestImportGroupKey_RejectsMismatchedAddress(t *testing.T) {
	store := securestore.NewMem()
	groupKey, _ := crypto.GenerateKey()
	stranger, _ := crypto.GenerateKey()
	otherAddr := keys.AddressFromPubKey(stranger.PublicKey(), coin.Bitcoin)

	err := ImportGroupKey(store, coin.Bitcoin, otherAddr, groupKey.Serialize(), []byte("pass"))
	if !errors.Is(err, keys.ErrInvalidAddress) {
		t.Errorf("err = %v, want ErrInvalidAddress", err)
	}
	if addrs, _ := GroupAddresses(store); len(addrs) != 0 {
		t.Error("a rejected key must not be indexed")
	}
}

func TestResolveKey_GroupWrongPassphrase(t *testing.T) {
	store := securestore.NewMem()
	groupKey, _ := crypto.GenerateKey()
	groupAddr := keys.AddressFromPubKey(groupKey.PublicKey(), coin.Bitcoin)
	if err := ImportGroupKey(store, coin.Bitcoin, groupAddr, groupKey.Serialize(), []byte("right")); err != nil {
		t.Fatalf("ImportGroupKey: %v", err)
	}

	resolver := NewStoreKeyResolver(store, func() ([]byte, error) {
		return []byte("wrong"), nil
	})
	if _, err := resolver.ResolveKey(coin.Bitcoin, groupAddr); !errors.Is(err, ErrSigningFailure) {
		t.Errorf("err = %v, want ErrSigningFailure", err)
	}
}

func TestResolveKey_NoSeed(t *testing.T) {
	resolver := NewStoreKeyResolver(securestore.NewMem(), func() ([]byte, error) {
		return []byte("pass"), nil
	})
	addr, _ := keys.DeriveAddress(testMnemonic, "", coin.Bitcoin, 0)
	if _, err := resolver.ResolveKey(coin.Bitcoin, addr); !errors.Is(err, ErrSigningFailure) {
		t.Errorf("err = %v, want ErrSigningFailure", err)
	}
}

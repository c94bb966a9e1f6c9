package messaging

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/zeroa-labs/lasko-core/internal/chain"
	"github.com/zeroa-labs/lasko-core/internal/keys"
	"github.com/zeroa-labs/lasko-core/pkg/coin"
	"github.com/zeroa-labs/lasko-core/pkg/crypto"
)

// fakeChain is an in-memory chain.Adapter for messaging tests: it serves a
// canned transaction feed and captures broadcasts.
type fakeChain struct {
	mu         sync.Mutex
	txs        []chain.TransactionInfo
	broadcasts []string
}

func (f *fakeChain) Coin() coin.Coin { return coin.Bitcoin }

func (f *fakeChain) AddressInfo(ctx context.Context, addr string) (*chain.AddressInfo, error) {
	return &chain.AddressInfo{Address: addr, Confirmed: 100_000}, nil
}

func (f *fakeChain) ListUnspent(ctx context.Context, addr string) ([]chain.UTXO, error) {
	return []chain.UTXO{{TxID: strings.Repeat("cd", 32), Vout: 0, Value: 100_000, Confirmations: 12}}, nil
}

func (f *fakeChain) TransactionInfo(ctx context.Context, txid string) (*chain.TransactionInfo, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeChain) AddressTransactions(ctx context.Context, addr string) ([]chain.TransactionInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]chain.TransactionInfo(nil), f.txs...), nil
}

func (f *fakeChain) BlockInfo(ctx context.Context, height uint64) (*chain.BlockInfo, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeChain) TipHeight(ctx context.Context) (uint64, error) { return 800_000, nil }

func (f *fakeChain) Broadcast(ctx context.Context, rawHex string) (*chain.BroadcastResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcasts = append(f.broadcasts, rawHex)
	return &chain.BroadcastResult{}, nil
}

func (f *fakeChain) FeeEstimates(ctx context.Context) (*chain.FeeEstimates, error) {
	return &chain.FeeEstimates{Low: 1, Medium: 2, High: 5}, nil
}

func (f *fakeChain) lastBroadcast() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.broadcasts) == 0 {
		return "", false
	}
	return f.broadcasts[len(f.broadcasts)-1], true
}

func (f *fakeChain) setTxs(txs []chain.TransactionInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txs = txs
}

// fixedResolver hands out copies of one key for any address.
type fixedResolver struct {
	priv []byte
}

func (r *fixedResolver) ResolveKey(c coin.Coin, address string) (*crypto.PrivateKey, error) {
	return crypto.PrivateKeyFromBytes(r.priv)
}

// newParty generates a key, its BTC address, and a resolver for it.
func newParty(t *testing.T) (*crypto.PrivateKey, string, *fixedResolver) {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	addr := keys.AddressFromPubKey(key.PublicKey(), coin.Bitcoin)
	return key, addr, &fixedResolver{priv: key.Serialize()}
}

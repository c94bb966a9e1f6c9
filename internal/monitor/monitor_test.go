package monitor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zeroa-labs/lasko-core/internal/chain"
	"github.com/zeroa-labs/lasko-core/pkg/coin"
)

// stubAdapter implements chain.Adapter with a programmable tip height.
type stubAdapter struct {
	height atomic.Uint64
	fail   atomic.Bool
}

func (s *stubAdapter) Coin() coin.Coin { return coin.Bitcoin }

func (s *stubAdapter) TipHeight(ctx context.Context) (uint64, error) {
	if s.fail.Load() {
		return 0, errors.New("explorer unreachable")
	}
	return s.height.Load(), nil
}

func (s *stubAdapter) AddressInfo(ctx context.Context, addr string) (*chain.AddressInfo, error) {
	return nil, errors.New("not implemented")
}
func (s *stubAdapter) ListUnspent(ctx context.Context, addr string) ([]chain.UTXO, error) {
	return nil, errors.New("not implemented")
}
func (s *stubAdapter) TransactionInfo(ctx context.Context, txid string) (*chain.TransactionInfo, error) {
	return nil, errors.New("not implemented")
}
func (s *stubAdapter) AddressTransactions(ctx context.Context, addr string) ([]chain.TransactionInfo, error) {
	return nil, errors.New("not implemented")
}
func (s *stubAdapter) BlockInfo(ctx context.Context, height uint64) (*chain.BlockInfo, error) {
	return nil, errors.New("not implemented")
}
func (s *stubAdapter) Broadcast(ctx context.Context, rawHex string) (*chain.BroadcastResult, error) {
	return nil, errors.New("not implemented")
}
func (s *stubAdapter) FeeEstimates(ctx context.Context) (*chain.FeeEstimates, error) {
	return nil, errors.New("not implemented")
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestMonitor_ImmediatePoll(t *testing.T) {
	adapter := &stubAdapter{}
	adapter.height.Store(42)

	m := New(adapter, 10*time.Millisecond)
	m.Start()
	defer m.Stop()

	waitFor(t, func() bool { return m.Last().Connected })
	if got := m.Last().Height; got != 42 {
		t.Errorf("height = %d, want 42", got)
	}
}

func TestMonitor_DisconnectOnError(t *testing.T) {
	adapter := &stubAdapter{}
	adapter.height.Store(42)

	m := New(adapter, 10*time.Millisecond)
	m.Start()
	defer m.Stop()
	waitFor(t, func() bool { return m.Last().Connected })

	adapter.fail.Store(true)
	waitFor(t, func() bool { return !m.Last().Connected })
	if m.Last().Height != 0 {
		t.Errorf("height = %d, want 0 while disconnected", m.Last().Height)
	}
}

func TestMonitor_ZeroHeightIsDisconnected(t *testing.T) {
	adapter := &stubAdapter{} // height 0, no error

	m := New(adapter, 10*time.Millisecond)
	m.Start()
	defer m.Stop()

	waitFor(t, func() bool { return !m.Last().CheckedAt.IsZero() })
	if m.Last().Connected {
		t.Error("height 0 must report disconnected")
	}
}

func TestMonitor_Subscribe(t *testing.T) {
	adapter := &stubAdapter{}
	adapter.height.Store(7)

	m := New(adapter, 10*time.Millisecond)
	updates, cancel := m.Subscribe()
	defer cancel()

	m.Start()
	defer m.Stop()

	select {
	case st := <-updates:
		if !st.Connected || st.Height != 7 {
			t.Errorf("status = %+v", st)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no status delivered")
	}
}

func TestMonitor_SlowSubscriberDoesNotBlock(t *testing.T) {
	adapter := &stubAdapter{}
	adapter.height.Store(1)

	m := New(adapter, 5*time.Millisecond)
	updates, cancel := m.Subscribe()
	defer cancel()

	m.Start()
	defer m.Stop()

	// Never drain; the loop must keep advancing height observations anyway.
	adapter.height.Store(9)
	waitFor(t, func() bool { return m.Last().Height == 9 })

	// The buffered channel holds the latest status, not the first.
	waitFor(t, func() bool {
		select {
		case st := <-updates:
			return st.Height == 9
		default:
			return false
		}
	})
}

func TestMonitor_StopIdempotent(t *testing.T) {
	adapter := &stubAdapter{}
	adapter.height.Store(1)

	m := New(adapter, 10*time.Millisecond)
	m.Stop() // Stop before Start is a no-op.
	m.Start()
	m.Start() // Double Start is a no-op.
	m.Stop()
	m.Stop()

	last := m.Last()
	if last.CheckedAt.IsZero() {
		t.Error("last status should survive Stop")
	}
}

func TestMonitor_RestartAfterStop(t *testing.T) {
	adapter := &stubAdapter{}
	adapter.height.Store(5)

	m := New(adapter, 10*time.Millisecond)
	m.Start()
	waitFor(t, func() bool { return m.Last().Height == 5 })
	m.Stop()

	adapter.height.Store(6)
	m.Start()
	defer m.Stop()
	waitFor(t, func() bool { return m.Last().Height == 6 })
}

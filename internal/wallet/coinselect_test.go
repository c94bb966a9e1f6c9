package wallet

import (
	"errors"
	"testing"

	"github.com/zeroa-labs/lasko-core/internal/chain"
)

func utxos(values ...uint64) []chain.UTXO {
	out := make([]chain.UTXO, len(values))
	for i, v := range values {
		out[i] = chain.UTXO{TxID: "tx", Vout: uint32(i), Value: v}
	}
	return out
}

func TestSelectCoins(t *testing.T) {
	tests := []struct {
		name       string
		utxos      []chain.UTXO
		target     uint64
		wantInputs int
		wantChange uint64
	}{
		{
			name:       "exact single match",
			utxos:      utxos(1000, 5000, 20000),
			target:     5000,
			wantInputs: 1,
			wantChange: 0,
		},
		{
			name:       "smallest covering single",
			utxos:      utxos(1000, 5000, 20000),
			target:     4000,
			wantInputs: 1,
			wantChange: 1000,
		},
		{
			name:       "accumulation when no single covers",
			utxos:      utxos(1000, 5000, 20000),
			target:     24000,
			wantInputs: 2, // 20000 + 5000
			wantChange: 1000,
		},
		{
			name:       "accumulation beats wasteful single",
			utxos:      utxos(300, 700, 100000),
			target:     1000,
			wantInputs: 2, // 700 + 300 exactly, against 99000 change
			wantChange: 0,
		},
		{
			name:       "zero-value utxos ignored",
			utxos:      utxos(0, 0, 2000),
			target:     1500,
			wantInputs: 1,
			wantChange: 500,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := SelectCoins(tt.utxos, tt.target)
			if err != nil {
				t.Fatalf("SelectCoins: %v", err)
			}
			if len(sel.Inputs) != tt.wantInputs {
				t.Errorf("inputs = %d, want %d", len(sel.Inputs), tt.wantInputs)
			}
			if sel.Change != tt.wantChange {
				t.Errorf("change = %d, want %d", sel.Change, tt.wantChange)
			}
			if sel.Total != tt.target+tt.wantChange {
				t.Errorf("total = %d, want %d", sel.Total, tt.target+tt.wantChange)
			}
		})
	}
}

func TestSelectCoins_Errors(t *testing.T) {
	if _, err := SelectCoins(nil, 100); !errors.Is(err, ErrNoUTXOs) {
		t.Errorf("nil utxos: err = %v, want ErrNoUTXOs", err)
	}
	if _, err := SelectCoins(utxos(0, 0), 100); !errors.Is(err, ErrNoUTXOs) {
		t.Errorf("all zero: err = %v, want ErrNoUTXOs", err)
	}
	if _, err := SelectCoins(utxos(50, 60), 500); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("short: err = %v, want ErrInsufficientFunds", err)
	}
	if _, err := SelectCoins(utxos(100), 0); err == nil {
		t.Error("zero target should fail")
	}
}

func TestSelectCoins_AccumulationBoundary(t *testing.T) {
	// All UTXOs together exactly meet the target.
	sel, err := SelectCoins(utxos(100, 200, 300), 600)
	if err != nil {
		t.Fatalf("SelectCoins: %v", err)
	}
	if len(sel.Inputs) != 3 || sel.Change != 0 {
		t.Errorf("inputs = %d change = %d, want 3 and 0", len(sel.Inputs), sel.Change)
	}
}

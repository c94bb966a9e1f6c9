package chain

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zeroa-labs/lasko-core/pkg/coin"
)

func newTestAdapter(t *testing.T, handler http.Handler) *HTTPAdapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTP(coin.Bitcoin, HTTPOptions{BaseURL: srv.URL})
}

func TestAddressInfo(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/address/addr1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"address": "addr1",
			"chain_stats": {"funded_txo_sum": 150000, "spent_txo_sum": 50000, "tx_count": 4},
			"mempool_stats": {"funded_txo_sum": 2000, "spent_txo_sum": 0, "tx_count": 1}
		}`)
	})
	a := newTestAdapter(t, mux)

	info, err := a.AddressInfo(context.Background(), "addr1")
	if err != nil {
		t.Fatalf("AddressInfo: %v", err)
	}
	if info.Confirmed != 100000 {
		t.Errorf("confirmed = %d, want 100000", info.Confirmed)
	}
	if info.Unconfirmed != 2000 {
		t.Errorf("unconfirmed = %d, want 2000", info.Unconfirmed)
	}
	if info.TxCount != 5 {
		t.Errorf("tx count = %d, want 5", info.TxCount)
	}
}

func TestAddressInfo_SpentExceedsFunded(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/address/addr1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chain_stats": {"funded_txo_sum": 10, "spent_txo_sum": 25}}`)
	})
	a := newTestAdapter(t, mux)

	info, err := a.AddressInfo(context.Background(), "addr1")
	if err != nil {
		t.Fatalf("AddressInfo: %v", err)
	}
	if info.Confirmed != 0 {
		t.Errorf("confirmed = %d, want 0 (saturating)", info.Confirmed)
	}
}

func TestAddressInfo_ServerError(t *testing.T) {
	a := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend down", http.StatusBadGateway)
	}))

	// A failed query is an absent result, never a zero balance.
	if _, err := a.AddressInfo(context.Background(), "addr1"); err == nil {
		t.Fatal("expected error on 502")
	}
}

func TestListUnspent_Confirmations(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/address/addr1/utxo", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"txid": "aa", "vout": 0, "value": 5000, "status": {"confirmed": true, "block_height": 95}},
			{"txid": "bb", "vout": 1, "value": 700, "status": {"confirmed": false}}
		]`)
	})
	mux.HandleFunc("/blocks/tip/height", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "100")
	})
	a := newTestAdapter(t, mux)

	utxos, err := a.ListUnspent(context.Background(), "addr1")
	if err != nil {
		t.Fatalf("ListUnspent: %v", err)
	}
	if len(utxos) != 2 {
		t.Fatalf("len = %d, want 2", len(utxos))
	}
	if utxos[0].Confirmations != 6 {
		t.Errorf("confirmations = %d, want 6 (tip 100, height 95)", utxos[0].Confirmations)
	}
	if utxos[1].Confirmations != 0 {
		t.Errorf("mempool utxo confirmations = %d, want 0", utxos[1].Confirmations)
	}
}

func TestTipHeight(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/blocks/tip/height", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "  812345\n")
	})
	a := newTestAdapter(t, mux)

	h, err := a.TipHeight(context.Background())
	if err != nil {
		t.Fatalf("TipHeight: %v", err)
	}
	if h != 812345 {
		t.Errorf("height = %d, want 812345", h)
	}
}

func TestTipHeight_Garbage(t *testing.T) {
	a := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>maintenance</html>")
	}))
	if _, err := a.TipHeight(context.Background()); err == nil {
		t.Error("expected error for non-numeric body")
	}
}

func TestAddressTransactions_Normalize(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/address/addr1/txs", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{
			"txid": "cc",
			"block_height": 90,
			"confirmations": 11,
			"fee": 420,
			"block_time": 1700000000,
			"vin": [{"address": "sender", "value": 6000}],
			"vout": [{"address": "addr1", "value": 5000}],
			"payload": "5a524d31"
		}]`)
	})
	a := newTestAdapter(t, mux)

	txs, err := a.AddressTransactions(context.Background(), "addr1")
	if err != nil {
		t.Fatalf("AddressTransactions: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("len = %d, want 1", len(txs))
	}
	got := txs[0]
	if got.TxID != "cc" || got.Confirmations != 11 || got.Fee != 420 {
		t.Errorf("normalized = %+v", got)
	}
	if got.PayloadHex != "5a524d31" {
		t.Errorf("payload hex = %q", got.PayloadHex)
	}
	if got.Time.IsZero() {
		t.Error("block_time should map to a non-zero Time")
	}
	if len(got.Inputs) != 1 || got.Inputs[0].Address != "sender" {
		t.Errorf("inputs = %+v", got.Inputs)
	}
}

func TestBroadcast_TextAndJSON(t *testing.T) {
	t.Run("bare txid", func(t *testing.T) {
		var gotBody string
		mux := http.NewServeMux()
		mux.HandleFunc("/tx", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("method = %s, want POST", r.Method)
			}
			b, _ := io.ReadAll(r.Body)
			gotBody = string(b)
			fmt.Fprint(w, "deadbeef\n")
		})
		a := newTestAdapter(t, mux)

		res, err := a.Broadcast(context.Background(), "0100ff")
		if err != nil {
			t.Fatalf("Broadcast: %v", err)
		}
		if res.TxID != "deadbeef" {
			t.Errorf("txid = %q, want deadbeef", res.TxID)
		}
		if gotBody != "0100ff" {
			t.Errorf("posted body = %q", gotBody)
		}
	})

	t.Run("json", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/tx", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"txid": "cafe"}`)
		})
		a := newTestAdapter(t, mux)

		res, err := a.Broadcast(context.Background(), "0100ff")
		if err != nil {
			t.Fatalf("Broadcast: %v", err)
		}
		if res.TxID != "cafe" {
			t.Errorf("txid = %q, want cafe", res.TxID)
		}
	})

	t.Run("rejected", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/tx", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "txn-mempool-conflict", http.StatusBadRequest)
		})
		a := newTestAdapter(t, mux)

		if _, err := a.Broadcast(context.Background(), "0100ff"); err == nil {
			t.Error("expected error on rejection")
		}
	})
}

func TestFeeEstimates(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/fee-estimates", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"low": 1, "medium": 5, "high": 20}`)
	})
	a := newTestAdapter(t, mux)

	est, err := a.FeeEstimates(context.Background())
	if err != nil {
		t.Fatalf("FeeEstimates: %v", err)
	}
	if est.Low != 1 || est.Medium != 5 || est.High != 20 {
		t.Errorf("estimates = %+v", est)
	}
}

func TestContextCancellation(t *testing.T) {
	a := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := a.TipHeight(ctx); err == nil {
		t.Error("expected error for cancelled context")
	}
}

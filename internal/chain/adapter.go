// Package chain provides per-coin adapters to block-explorer-style HTTP
// APIs, normalizing their responses into common shapes.
//
// Failure policy: a network error, timeout, or non-success status yields an
// error ("absent result") that callers must treat as unknown — never as a
// zero balance or empty history.
package chain

import (
	"context"
	"time"

	"github.com/zeroa-labs/lasko-core/pkg/coin"
)

// AddressInfo is the normalized view of an address.
type AddressInfo struct {
	Address     string
	Confirmed   uint64 // Confirmed balance in base units.
	Unconfirmed uint64 // Unconfirmed (mempool) balance in base units.
	TxCount     int
}

// UTXO is an unspent output owned by an address.
type UTXO struct {
	TxID          string
	Vout          uint32
	Value         uint64
	Confirmations int64
}

// TxEndpoint is one side of a transaction (an input's source or an
// output's destination).
type TxEndpoint struct {
	Address string
	Value   uint64
}

// TransactionInfo is the normalized view of a transaction.
type TransactionInfo struct {
	TxID          string
	BlockHeight   uint64 // 0 while unconfirmed.
	Confirmations int64
	Fee           uint64
	Time          time.Time
	Rejected      bool // Reported by the explorer for dropped/invalid transactions.
	Inputs        []TxEndpoint
	Outputs       []TxEndpoint
	PayloadHex    string // Hex of the embedded message payload, empty if none.
}

// BlockInfo is the normalized view of a block.
type BlockInfo struct {
	Hash    string
	Height  uint64
	Time    time.Time
	TxCount int
}

// FeeEstimates holds fee rates in base units per byte, by priority.
type FeeEstimates struct {
	Low    uint64
	Medium uint64
	High   uint64
}

// BroadcastResult is the explorer's acknowledgement of a raw transaction.
type BroadcastResult struct {
	TxID string
}

// Adapter is the per-coin chain access contract. Every call is a suspension
// point: it blocks only the calling goroutine and honors ctx cancellation.
type Adapter interface {
	Coin() coin.Coin
	AddressInfo(ctx context.Context, addr string) (*AddressInfo, error)
	ListUnspent(ctx context.Context, addr string) ([]UTXO, error)
	TransactionInfo(ctx context.Context, txid string) (*TransactionInfo, error)
	AddressTransactions(ctx context.Context, addr string) ([]TransactionInfo, error)
	BlockInfo(ctx context.Context, height uint64) (*BlockInfo, error)
	TipHeight(ctx context.Context) (uint64, error)
	Broadcast(ctx context.Context, rawHex string) (*BroadcastResult, error)
	FeeEstimates(ctx context.Context) (*FeeEstimates, error)
}

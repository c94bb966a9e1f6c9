package wallet

import (
	"time"

	"github.com/zeroa-labs/lasko-core/pkg/coin"
)

// Priority selects a fee tier.
type Priority string

// Fee priorities.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Balance is a point-in-time view of an address. Never persisted;
// recomputed per query.
type Balance struct {
	Coin        coin.Coin
	Confirmed   uint64
	Unconfirmed uint64
	ObservedAt  time.Time
}

// Total returns the spendable total. Computed, so the
// total == confirmed + unconfirmed invariant cannot drift.
func (b Balance) Total() uint64 {
	return b.Confirmed + b.Unconfirmed
}

// TxType is the direction of a wallet transaction.
type TxType string

// Transaction directions.
const (
	TxSend    TxType = "send"
	TxReceive TxType = "receive"
	TxUnknown TxType = "unknown"
)

// TxStatus is the lifecycle state of a wallet transaction.
// pending -> confirmed (confirmations reach the threshold) and
// pending -> failed (explorer-reported rejection) are the only
// transitions; both right-hand states are terminal.
type TxStatus string

// Transaction states.
const (
	StatusPending   TxStatus = "pending"
	StatusConfirmed TxStatus = "confirmed"
	StatusFailed    TxStatus = "failed"
)

// Transaction is the normalized wallet view of a chain transaction.
type Transaction struct {
	Coin          coin.Coin
	TxID          string
	Amount        int64 // Base units, signed by direction (negative = outgoing).
	Fee           uint64
	Confirmations int64
	Time          time.Time
	Type          TxType
	FromAddress   string
	ToAddress     string
	BlockHeight   uint64 // 0 while unconfirmed.
	Status        TxStatus
}

// SendRequest describes an outgoing transfer.
type SendRequest struct {
	FromAddress string
	ToAddress   string
	Amount      uint64 // Base units. Zero is allowed for pure message carriers.
	Fee         uint64 // Explicit fee; 0 means estimate from Priority.
	Priority    Priority
	Payload     []byte // Optional embedded message payload.
}

// SendResult is the outcome of a successful broadcast.
type SendResult struct {
	TxID          string
	Fee           uint64
	Confirmations int64 // Always 0 at broadcast time.
}

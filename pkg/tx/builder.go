package tx

import (
	"fmt"

	"github.com/zeroa-labs/lasko-core/pkg/crypto"
)

// Builder constructs carrier transactions incrementally.
type Builder struct {
	tx *Transaction
}

// NewBuilder creates a new transaction builder.
func NewBuilder() *Builder {
	return &Builder{
		tx: &Transaction{Version: 1},
	}
}

// AddInput adds an input referencing a previous output.
func (b *Builder) AddInput(prevOut Outpoint) *Builder {
	b.tx.Inputs = append(b.tx.Inputs, Input{PrevOut: prevOut})
	return b
}

// AddOutput adds an output paying value to an address.
func (b *Builder) AddOutput(address string, value uint64) *Builder {
	b.tx.Outputs = append(b.tx.Outputs, Output{Value: value, Address: address})
	return b
}

// SetPayload attaches an encoded message payload.
func (b *Builder) SetPayload(payload []byte) *Builder {
	b.tx.Payload = payload
	return b
}

// SetLockTime sets the transaction lock time.
func (b *Builder) SetLockTime(lockTime uint64) *Builder {
	b.tx.LockTime = lockTime
	return b
}

// Sign signs all inputs with the provided private key.
// Each input gets the same signature (single-key spending).
func (b *Builder) Sign(key *crypto.PrivateKey) error {
	if len(b.tx.Inputs) == 0 {
		return fmt.Errorf("cannot sign transaction with no inputs")
	}
	digest := b.tx.TxID()
	sig, err := key.Sign(digest[:])
	if err != nil {
		return fmt.Errorf("sign tx: %w", err)
	}
	pubKey := key.PublicKey()
	for i := range b.tx.Inputs {
		b.tx.Inputs[i].Signature = sig
		b.tx.Inputs[i].PubKey = pubKey
	}
	return nil
}

// Build returns the constructed transaction.
// Does NOT validate — call Validate separately.
func (b *Builder) Build() *Transaction {
	return b.tx
}

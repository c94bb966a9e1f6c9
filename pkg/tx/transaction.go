// Package tx defines the carrier transaction format: a minimal UTXO
// transaction that can optionally embed an encrypted message payload in a
// field of its own, distinct from the value transfer.
package tx

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/zeroa-labs/lasko-core/pkg/crypto"
)

// Hash is a 32-byte transaction id.
type Hash [32]byte

// Hex returns the lowercase hex encoding of the hash.
func (h Hash) Hex() string {
	return hex.EncodeToString(h[:])
}

// ParseHash parses a 64-character hex string into a Hash.
func ParseHash(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("invalid hash hex: %w", err)
	}
	if len(b) != 32 {
		return h, fmt.Errorf("hash must be 32 bytes, got %d", len(b))
	}
	copy(h[:], b)
	return h, nil
}

// Outpoint references an unspent output being consumed.
type Outpoint struct {
	TxID Hash
	Vout uint32
}

// Input spends one outpoint.
type Input struct {
	PrevOut   Outpoint
	Signature []byte // DER-encoded ECDSA signature over the transaction digest.
	PubKey    []byte // Compressed 33-byte public key of the spender.
}

// Output creates value at a destination address.
type Output struct {
	Value   uint64 // Base units. Zero is allowed for pure message carriers.
	Address string
}

// Transaction is the carrier transaction.
type Transaction struct {
	Version  uint32
	Inputs   []Input
	Outputs  []Output
	Payload  []byte // Optional embedded message payload (see payload.go).
	LockTime uint64
}

// SigningBytes returns the canonical byte representation used for signing and
// for the transaction id. Signatures and public keys are excluded to avoid a
// circular dependency during signing.
//
// Layout: version(4) | inCount(4) | [txid(32) vout(4)]... | outCount(4) |
// [value(8) addrLen(1) addr]... | payloadLen(4) payload | locktime(8)
func (t *Transaction) SigningBytes() []byte {
	var buf []byte
	buf = binary.LittleEndian.AppendUint32(buf, t.Version)

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(t.Inputs)))
	for _, in := range t.Inputs {
		buf = append(buf, in.PrevOut.TxID[:]...)
		buf = binary.LittleEndian.AppendUint32(buf, in.PrevOut.Vout)
	}

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(t.Outputs)))
	for _, out := range t.Outputs {
		buf = binary.LittleEndian.AppendUint64(buf, out.Value)
		buf = append(buf, byte(len(out.Address)))
		buf = append(buf, out.Address...)
	}

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(t.Payload)))
	buf = append(buf, t.Payload...)

	buf = binary.LittleEndian.AppendUint64(buf, t.LockTime)
	return buf
}

// TxID computes the transaction id: double-SHA256 of the signing bytes.
func (t *Transaction) TxID() Hash {
	return Hash(crypto.DoubleSHA256(t.SigningBytes()))
}

// Encode serializes the full transaction (including signatures) to hex for
// broadcast.
//
// Layout: signing prefix fields interleaved with per-input sigLen(2) sig
// pubLen(1) pub after each outpoint.
func (t *Transaction) Encode() (string, error) {
	var buf []byte
	buf = binary.LittleEndian.AppendUint32(buf, t.Version)

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(t.Inputs)))
	for i, in := range t.Inputs {
		if len(in.Signature) > math.MaxUint16 {
			return "", fmt.Errorf("input %d: signature too long", i)
		}
		if len(in.PubKey) > math.MaxUint8 {
			return "", fmt.Errorf("input %d: pubkey too long", i)
		}
		buf = append(buf, in.PrevOut.TxID[:]...)
		buf = binary.LittleEndian.AppendUint32(buf, in.PrevOut.Vout)
		buf = binary.LittleEndian.AppendUint16(buf, uint16(len(in.Signature)))
		buf = append(buf, in.Signature...)
		buf = append(buf, byte(len(in.PubKey)))
		buf = append(buf, in.PubKey...)
	}

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(t.Outputs)))
	for i, out := range t.Outputs {
		if len(out.Address) > math.MaxUint8 {
			return "", fmt.Errorf("output %d: address too long", i)
		}
		buf = binary.LittleEndian.AppendUint64(buf, out.Value)
		buf = append(buf, byte(len(out.Address)))
		buf = append(buf, out.Address...)
	}

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(t.Payload)))
	buf = append(buf, t.Payload...)

	buf = binary.LittleEndian.AppendUint64(buf, t.LockTime)

	if len(buf) > MaxTxBytes {
		return "", fmt.Errorf("transaction too large: %d bytes (max %d)", len(buf), MaxTxBytes)
	}
	return hex.EncodeToString(buf), nil
}

// Decode parses a hex-encoded transaction produced by Encode.
func Decode(hexStr string) (*Transaction, error) {
	raw, err := hex.DecodeString(hexStr)
	if err != nil {
		return nil, fmt.Errorf("invalid tx hex: %w", err)
	}
	r := reader{buf: raw}

	var t Transaction
	t.Version = r.uint32()

	nIn := r.uint32()
	if nIn > maxTxInputs {
		return nil, fmt.Errorf("too many inputs: %d", nIn)
	}
	for i := uint32(0); i < nIn; i++ {
		var in Input
		copy(in.PrevOut.TxID[:], r.bytes(32))
		in.PrevOut.Vout = r.uint32()
		in.Signature = r.bytes(int(r.uint16()))
		in.PubKey = r.bytes(int(r.byte()))
		t.Inputs = append(t.Inputs, in)
	}

	nOut := r.uint32()
	if nOut > maxTxOutputs {
		return nil, fmt.Errorf("too many outputs: %d", nOut)
	}
	for i := uint32(0); i < nOut; i++ {
		var out Output
		out.Value = r.uint64()
		out.Address = string(r.bytes(int(r.byte())))
		t.Outputs = append(t.Outputs, out)
	}

	payloadLen := r.uint32()
	if payloadLen > MaxPayloadBytes {
		return nil, fmt.Errorf("payload too large: %d bytes", payloadLen)
	}
	if payloadLen > 0 {
		t.Payload = r.bytes(int(payloadLen))
	}

	t.LockTime = r.uint64()

	if r.err != nil {
		return nil, fmt.Errorf("truncated transaction: %w", r.err)
	}
	if r.pos != len(raw) {
		return nil, fmt.Errorf("trailing bytes after transaction")
	}
	return &t, nil
}

// TotalOutputValue returns the sum of all output values.
// Returns an error if the sum overflows uint64.
func (t *Transaction) TotalOutputValue() (uint64, error) {
	var total uint64
	for _, out := range t.Outputs {
		if total > math.MaxUint64-out.Value {
			return 0, fmt.Errorf("output value overflow")
		}
		total += out.Value
	}
	return total, nil
}

// reader is a bounds-checked little-endian byte reader.
type reader struct {
	buf []byte
	pos int
	err error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.pos+n > len(r.buf) {
		r.err = fmt.Errorf("need %d bytes at offset %d, have %d", n, r.pos, len(r.buf)-r.pos)
		return nil
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *reader) bytes(n int) []byte {
	b := r.take(n)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

func (r *reader) byte() byte {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) uint16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *reader) uint32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *reader) uint64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

package tx

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Message payloads are carried in an explicit transaction field, never
// inferred from transfer amounts. The format is versioned and fully
// length-prefixed so unknown future versions can be skipped cleanly.
//
// Layout: "ZRM1"(4) | version(1) | msgType(1) | senderPub(33) |
// sigLen(2) sig | ctLen(4) ciphertext
const (
	// PayloadVersion is the current message payload format version.
	PayloadVersion = 1

	// MaxTxBytes bounds an encoded carrier transaction.
	MaxTxBytes = 100_000

	// MaxPayloadBytes bounds an embedded message payload.
	MaxPayloadBytes = 16_384

	maxTxInputs  = 1_000
	maxTxOutputs = 1_000

	payloadMagic  = "ZRM1"
	senderPubSize = 33
	maxSigBytes   = 80
)

// ErrNoPayload is returned when a transaction carries no message payload.
var ErrNoPayload = errors.New("no message payload")

// Payload is a decoded embedded message.
type Payload struct {
	Version    byte
	MsgType    byte
	SenderPub  []byte // Compressed public key of the message author.
	Signature  []byte // Signature over the plaintext digest.
	Ciphertext []byte
}

// EncodePayload serializes a message payload for embedding.
func EncodePayload(p Payload) ([]byte, error) {
	if len(p.SenderPub) != senderPubSize {
		return nil, fmt.Errorf("sender pubkey must be %d bytes, got %d", senderPubSize, len(p.SenderPub))
	}
	if len(p.Signature) == 0 || len(p.Signature) > maxSigBytes {
		return nil, fmt.Errorf("signature length %d out of range", len(p.Signature))
	}
	if len(p.Ciphertext) == 0 {
		return nil, fmt.Errorf("empty ciphertext")
	}

	buf := make([]byte, 0, len(payloadMagic)+2+senderPubSize+2+len(p.Signature)+4+len(p.Ciphertext))
	buf = append(buf, payloadMagic...)
	buf = append(buf, p.Version, p.MsgType)
	buf = append(buf, p.SenderPub...)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(p.Signature)))
	buf = append(buf, p.Signature...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(p.Ciphertext)))
	buf = append(buf, p.Ciphertext...)

	if len(buf) > MaxPayloadBytes {
		return nil, fmt.Errorf("payload too large: %d bytes (max %d)", len(buf), MaxPayloadBytes)
	}
	return buf, nil
}

// ParsePayload decodes an embedded message payload. Transactions without a
// payload (or with foreign data in the field) yield ErrNoPayload so scanners
// can skip them without treating it as a failure.
func ParsePayload(raw []byte) (*Payload, error) {
	if len(raw) < len(payloadMagic) || string(raw[:len(payloadMagic)]) != payloadMagic {
		return nil, ErrNoPayload
	}
	r := reader{buf: raw, pos: len(payloadMagic)}

	var p Payload
	p.Version = r.byte()
	p.MsgType = r.byte()
	p.SenderPub = r.bytes(senderPubSize)

	sigLen := int(r.uint16())
	if sigLen == 0 || sigLen > maxSigBytes {
		return nil, fmt.Errorf("signature length %d out of range", sigLen)
	}
	p.Signature = r.bytes(sigLen)

	ctLen := int(r.uint32())
	if ctLen <= 0 || ctLen > MaxPayloadBytes {
		return nil, fmt.Errorf("ciphertext length %d out of range", ctLen)
	}
	p.Ciphertext = r.bytes(ctLen)

	if r.err != nil {
		return nil, fmt.Errorf("truncated payload: %w", r.err)
	}
	if r.pos != len(raw) {
		return nil, fmt.Errorf("trailing bytes after payload")
	}
	if p.Version != PayloadVersion {
		return nil, fmt.Errorf("unsupported payload version %d", p.Version)
	}
	return &p, nil
}

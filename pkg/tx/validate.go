package tx

import (
	"fmt"
)

// ValidateHex performs structural sanity checks on an encoded transaction:
// non-empty, even length, valid hex alphabet, within size bounds. It does not
// decode or verify signatures.
func ValidateHex(hexStr string) bool {
	if len(hexStr) == 0 || len(hexStr)%2 != 0 {
		return false
	}
	if len(hexStr) > MaxTxBytes*2 {
		return false
	}
	for _, c := range hexStr {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// Validate performs structural checks on a built transaction: at least one
// input and one output, signatures present on every input, payload within
// bounds, and no output value overflow.
func (t *Transaction) Validate() error {
	if len(t.Inputs) == 0 {
		return fmt.Errorf("transaction has no inputs")
	}
	if len(t.Outputs) == 0 {
		return fmt.Errorf("transaction has no outputs")
	}
	for i, in := range t.Inputs {
		if len(in.Signature) == 0 {
			return fmt.Errorf("input %d is unsigned", i)
		}
		if len(in.PubKey) != senderPubSize {
			return fmt.Errorf("input %d: pubkey must be %d bytes", i, senderPubSize)
		}
	}
	for i, out := range t.Outputs {
		if out.Address == "" {
			return fmt.Errorf("output %d has empty address", i)
		}
	}
	if len(t.Payload) > MaxPayloadBytes {
		return fmt.Errorf("payload too large: %d bytes", len(t.Payload))
	}
	if _, err := t.TotalOutputValue(); err != nil {
		return err
	}
	return nil
}

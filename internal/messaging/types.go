// Package messaging embeds encrypted application messages inside
// minimal-value carrier transactions and reconstructs ordered, deduplicated
// conversations from the unordered transaction feed.
package messaging

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// MessageType classifies a message.
type MessageType string

// Message types.
const (
	TypeText     MessageType = "text"
	TypePayment  MessageType = "payment"
	TypeIdentity MessageType = "identity"
	TypeSystem   MessageType = "system"
	TypeGroup    MessageType = "group"
)

// Wire codes for the payload msgType byte.
var wireTypes = map[MessageType]byte{
	TypeText:     1,
	TypePayment:  2,
	TypeIdentity: 3,
	TypeSystem:   4,
	TypeGroup:    5,
}

// WireCode returns the payload byte for a message type.
func (t MessageType) WireCode() (byte, bool) {
	c, ok := wireTypes[t]
	return c, ok
}

// TypeFromWire maps a payload byte back to a message type.
func TypeFromWire(code byte) (MessageType, bool) {
	for t, c := range wireTypes {
		if c == code {
			return t, true
		}
	}
	return "", false
}

// MessageStatus is the lifecycle state of a message.
// Composed -> Encrypting -> Submitted(pending) -> {ConfirmedOnChain | BroadcastFailed}.
// The two right-hand states are terminal; a failed send is never retried
// automatically.
type MessageStatus string

// Message states. Only the persisted ones appear here; Composed and
// Encrypting exist within a single SendMessage call.
const (
	StatusPending   MessageStatus = "pending"
	StatusConfirmed MessageStatus = "confirmed"
	StatusFailed    MessageStatus = "failed"
)

// Message is one application message, local plaintext plus its on-chain
// identity.
type Message struct {
	ID            string        `json:"id"` // Carrier transaction id.
	Sender        string        `json:"sender"`
	Receiver      string        `json:"receiver"`
	Plaintext     string        `json:"plaintext"` // Local only; never leaves the store.
	Type          MessageType   `json:"type"`
	Timestamp     time.Time     `json:"timestamp"`
	SenderPub     []byte        `json:"sender_pub"`
	Signature     []byte        `json:"signature"` // Over the plaintext digest.
	Confirmations int64         `json:"confirmations"`
	Status        MessageStatus `json:"status"`
	Inbound       bool          `json:"inbound"`
}

// Conversation is a message thread identified by its fixed participant set.
type Conversation struct {
	ID           string    `json:"id"`
	Participants []string  `json:"participants"`
	LastMessage  *Message  `json:"last_message,omitempty"`
	UnreadCount  int       `json:"unread_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	IsGroup      bool      `json:"is_group"`
	GroupName    string    `json:"group_name,omitempty"`
}

// ConversationID builds the order-independent id for a 1:1 thread:
// the sorted participant pair joined with ":". Symmetric in its arguments.
// Group threads use the group address itself as the id.
func ConversationID(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return strings.Join(pair, ":")
}

// Messaging errors.
var (
	// ErrDecryptionFailure means a ciphertext could not be opened with the
	// local key.
	ErrDecryptionFailure = errors.New("decryption failed")

	// ErrRecipientKeyUnknown means no public key is known for the
	// recipient address, so nothing can be encrypted to them yet.
	ErrRecipientKeyUnknown = errors.New("no public key known for recipient")
)

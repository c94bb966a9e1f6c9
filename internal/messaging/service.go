package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/zeroa-labs/lasko-core/internal/keys"
	"github.com/zeroa-labs/lasko-core/internal/log"
	"github.com/zeroa-labs/lasko-core/internal/wallet"
	"github.com/zeroa-labs/lasko-core/pkg/crypto"
	"github.com/zeroa-labs/lasko-core/pkg/tx"
)

// Service is the messaging send path: encrypt, sign, embed, broadcast,
// record. Discovery of inbound messages is the Scanner's job.
type Service struct {
	wallet      *wallet.Service
	store       *Store
	resolver    wallet.KeyResolver
	selfAddress string
	logger      zerolog.Logger
}

// NewService creates the messaging service for one wallet address.
func NewService(w *wallet.Service, store *Store, resolver wallet.KeyResolver, selfAddress string) *Service {
	return &Service{
		wallet:      w,
		store:       store,
		resolver:    resolver,
		selfAddress: selfAddress,
		logger:      log.Messaging.With().Str("coin", w.Coin().Symbol).Logger(),
	}
}

// Store exposes the conversation store for read access and MarkRead.
func (s *Service) Store() *Store {
	return s.store
}

// RegisterContact records a counterpart's public key so messages can be
// encrypted to them. Typically fed from an identity message or manual
// exchange.
func (s *Service) RegisterContact(addr string, pub []byte) error {
	if !s.wallet.ValidateAddress(addr) {
		return fmt.Errorf("%w: %s", keys.ErrInvalidAddress, addr)
	}
	if !keys.PubKeyMatchesAddress(pub, addr, s.wallet.Coin()) {
		return fmt.Errorf("%w: key does not hash to %s", keys.ErrInvalidAddress, addr)
	}
	return s.store.LearnPubKey(addr, pub)
}

// SendMessage encrypts content to the recipient, signs it, and submits a
// zero-value carrier transaction holding the ciphertext. On broadcast
// success the message is appended locally as pending. A failed send is
// terminal; composing again is the caller's decision.
func (s *Service) SendMessage(ctx context.Context, to, content string, msgType MessageType) (*Message, error) {
	return s.send(ctx, to, content, msgType, 0)
}

// SendPayment sends a payment-attached message: same path as SendMessage
// but the carrier moves real value.
func (s *Service) SendPayment(ctx context.Context, to, content string, amount uint64) (*Message, error) {
	if amount == 0 {
		return nil, fmt.Errorf("%w: payment amount must be positive", wallet.ErrBuildFailure)
	}
	msg, err := s.send(ctx, to, content, TypePayment, amount)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetLastPayment(msg.ID); err != nil {
		s.logger.Warn().Err(err).Msg("record last payment marker")
	}
	return msg, nil
}

func (s *Service) send(ctx context.Context, to, content string, msgType MessageType, amount uint64) (*Message, error) {
	code, ok := msgType.WireCode()
	if !ok {
		return nil, fmt.Errorf("%w: unknown message type %q", wallet.ErrBuildFailure, msgType)
	}

	recipientPub, ok, err := s.store.PubKey(to)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRecipientKeyUnknown, to)
	}

	key, err := s.resolver.ResolveKey(s.wallet.Coin(), s.selfAddress)
	if err != nil {
		return nil, err
	}
	defer key.Zero()

	digest := PlaintextDigest([]byte(content))
	sig, err := key.Sign(digest[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", wallet.ErrSigningFailure, err)
	}

	ciphertext, err := Encrypt([]byte(content), recipientPub)
	if err != nil {
		return nil, fmt.Errorf("encrypt message: %w", err)
	}

	payload, err := tx.EncodePayload(tx.Payload{
		Version:    tx.PayloadVersion,
		MsgType:    code,
		SenderPub:  key.PublicKey(),
		Signature:  sig,
		Ciphertext: ciphertext,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", wallet.ErrBuildFailure, err)
	}

	res, err := s.wallet.Send(ctx, wallet.SendRequest{
		FromAddress: s.selfAddress,
		ToAddress:   to,
		Amount:      amount,
		Priority:    wallet.PriorityLow,
		Payload:     payload,
	})
	if err != nil {
		return nil, err
	}

	msg := Message{
		ID:            res.TxID,
		Sender:        s.selfAddress,
		Receiver:      to,
		Plaintext:     content,
		Type:          msgType,
		Timestamp:     time.Now().UTC(),
		SenderPub:     key.PublicKey(),
		Signature:     sig,
		Confirmations: 0,
		Status:        StatusPending,
		Inbound:       false,
	}

	isGroup := msgType == TypeGroup
	convID := ConversationID(s.selfAddress, to)
	if isGroup {
		convID = to
	}
	if _, err := s.store.Append(convID, msg, isGroup); err != nil {
		// The broadcast already happened; surface the local recording
		// failure but hand the message back so the caller has the txid.
		return &msg, fmt.Errorf("record sent message: %w", err)
	}
	// Our own carrier will show up in the history feed; mark it so the
	// scanner does not try to decrypt an envelope we hold no key for.
	if err := s.store.MarkSeen(s.wallet.Coin().Symbol, msg.ID); err != nil {
		s.logger.Warn().Err(err).Str("txid", msg.ID).Msg("mark own transaction seen")
	}

	s.logger.Info().Str("txid", msg.ID).Str("type", string(msgType)).Msg("message sent")
	return &msg, nil
}

// VerifyMessageSignature cryptographically verifies a message: the embedded
// public key must hash to the claimed sender address and the signature must
// verify over the plaintext digest.
func (s *Service) VerifyMessageSignature(msg Message) bool {
	if !keys.PubKeyMatchesAddress(msg.SenderPub, msg.Sender, s.wallet.Coin()) {
		return false
	}
	digest := PlaintextDigest([]byte(msg.Plaintext))
	return crypto.VerifySignature(digest[:], msg.Signature, msg.SenderPub)
}

// Conversations lists all known conversations, most recent first.
func (s *Service) Conversations() ([]Conversation, error) {
	return s.store.Conversations()
}

// Messages returns the message log of a conversation, oldest first.
func (s *Service) Messages(convID string) ([]Message, error) {
	return s.store.Messages(convID)
}

// MarkRead clears a conversation's unread counter.
func (s *Service) MarkRead(convID string) error {
	return s.store.MarkRead(convID)
}

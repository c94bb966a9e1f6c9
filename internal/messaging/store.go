package messaging

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/zeroa-labs/lasko-core/internal/log"
	"github.com/zeroa-labs/lasko-core/internal/securestore"
	"github.com/zeroa-labs/lasko-core/pkg/crypto"
)

// Store owns the Message and Conversation sets, persisted through the
// secure store as an append-only log keyed by conversation id. The store
// mutex makes every read-modify-write atomic; the underlying secure store
// only guarantees per-key atomicity.
type Store struct {
	mu sync.Mutex
	kv securestore.Store
}

// NewStore creates a conversation store over a secure key-value store.
func NewStore(kv securestore.Store) *Store {
	return &Store{kv: kv}
}

func convKey(id string) string {
	d := crypto.StoreKey("conversation", id)
	return securestore.KeyConvPrefix + hex.EncodeToString(d[:])
}

func msgLogKey(id string) string {
	d := crypto.StoreKey("msglog", id)
	return securestore.KeyMsgLogPrefix + hex.EncodeToString(d[:])
}

// Append records a message in its conversation, creating the conversation
// on first contact. Messages are deduplicated by transaction id: appending
// an already-known id is a no-op and reports added=false. Unread count
// increments only for inbound messages.
func (s *Store) Append(convID string, msg Message, isGroup bool) (added bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs, err := s.readLog(convID)
	if err != nil {
		return false, err
	}
	for _, m := range msgs {
		if m.ID == msg.ID {
			return false, nil
		}
	}
	msgs = append(msgs, msg)
	if err := s.writeLog(convID, msgs); err != nil {
		return false, err
	}

	conv, exists, err := s.readConv(convID)
	if err != nil {
		return false, err
	}
	now := time.Now().UTC()
	if !exists {
		conv = Conversation{
			ID:           convID,
			Participants: participantsOf(convID, msg, isGroup),
			CreatedAt:    now,
			IsGroup:      isGroup,
		}
		if err := s.indexAdd(convID); err != nil {
			return false, err
		}
	}
	last := msg
	conv.LastMessage = &last
	conv.UpdatedAt = now
	if msg.Inbound {
		conv.UnreadCount++
	}
	if err := s.writeConv(conv); err != nil {
		return false, err
	}
	return true, nil
}

// UpdateStatus sets the status and confirmation count of a message.
// Terminal states never transition again.
func (s *Store) UpdateStatus(convID, msgID string, status MessageStatus, confirmations int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs, err := s.readLog(convID)
	if err != nil {
		return err
	}
	changed := false
	for i := range msgs {
		if msgs[i].ID != msgID {
			continue
		}
		if msgs[i].Status == StatusPending && status != msgs[i].Status {
			msgs[i].Status = status
			changed = true
		}
		if confirmations > msgs[i].Confirmations {
			msgs[i].Confirmations = confirmations
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.writeLog(convID, msgs)
}

// Messages returns the full message log of a conversation, oldest first.
func (s *Store) Messages(convID string) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs, err := s.readLog(convID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
	return msgs, nil
}

// Conversation returns one conversation by id.
func (s *Store) Conversation(id string) (Conversation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readConv(id)
}

// Conversations returns every conversation, most recently updated first.
func (s *Store) Conversations() ([]Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.readIndex()
	if err != nil {
		return nil, err
	}
	out := make([]Conversation, 0, len(ids))
	for _, id := range ids {
		conv, ok, err := s.readConv(id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, conv)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// MarkRead clears the unread counter of a conversation.
func (s *Store) MarkRead(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok, err := s.readConv(id)
	if err != nil || !ok {
		return err
	}
	if conv.UnreadCount == 0 {
		return nil
	}
	conv.UnreadCount = 0
	return s.writeConv(conv)
}

// LearnPubKey remembers a counterpart's public key, observed from an
// inbound message payload or registered explicitly.
func (s *Store) LearnPubKey(addr string, pub []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.Save(securestore.KeyPubKeyPrefix+addr, hex.EncodeToString(pub))
}

// PubKey looks up a counterpart's known public key.
func (s *Store) PubKey(addr string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok, err := s.kv.Read(securestore.KeyPubKeyPrefix + addr)
	if err != nil || !ok {
		return nil, false, err
	}
	pub, err := hex.DecodeString(v)
	if err != nil {
		log.Store.Warn().Str("addr", addr).Msg("corrupt stored pubkey, ignoring")
		return nil, false, nil
	}
	return pub, true, nil
}

// SetLastPayment records the most recent payment-carrying transaction id.
func (s *Store) SetLastPayment(txid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.Save(securestore.KeyLastPayment, txid)
}

// LastPayment returns the most recent payment-carrying transaction id.
func (s *Store) LastPayment() (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.Read(securestore.KeyLastPayment)
}

// Seen reports whether the scanner already processed a transaction.
func (s *Store) Seen(symbol, txid string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, err := s.readSeen(symbol)
	if err != nil {
		return false, err
	}
	_, ok := set[txid]
	return ok, nil
}

// MarkSeen records a transaction as processed.
func (s *Store) MarkSeen(symbol, txid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, err := s.readSeen(symbol)
	if err != nil {
		return err
	}
	if _, ok := set[txid]; ok {
		return nil
	}
	set[txid] = struct{}{}
	return s.writeSeen(symbol, set)
}

// --- storage plumbing ---

func (s *Store) readLog(convID string) ([]Message, error) {
	raw, ok, err := s.kv.Read(msgLogKey(convID))
	if err != nil {
		return nil, fmt.Errorf("read message log: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var msgs []Message
	if err := json.Unmarshal([]byte(raw), &msgs); err != nil {
		return nil, fmt.Errorf("parse message log: %w", err)
	}
	return msgs, nil
}

func (s *Store) writeLog(convID string, msgs []Message) error {
	data, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("marshal message log: %w", err)
	}
	return s.kv.Save(msgLogKey(convID), string(data))
}

func (s *Store) readConv(id string) (Conversation, bool, error) {
	raw, ok, err := s.kv.Read(convKey(id))
	if err != nil {
		return Conversation{}, false, fmt.Errorf("read conversation: %w", err)
	}
	if !ok {
		return Conversation{}, false, nil
	}
	var conv Conversation
	if err := json.Unmarshal([]byte(raw), &conv); err != nil {
		return Conversation{}, false, fmt.Errorf("parse conversation: %w", err)
	}
	return conv, true, nil
}

func (s *Store) writeConv(conv Conversation) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("marshal conversation: %w", err)
	}
	return s.kv.Save(convKey(conv.ID), string(data))
}

func (s *Store) readIndex() ([]string, error) {
	raw, ok, err := s.kv.Read(securestore.KeyConvIndex)
	if err != nil {
		return nil, fmt.Errorf("read conversation index: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("parse conversation index: %w", err)
	}
	return ids, nil
}

func (s *Store) indexAdd(id string) error {
	ids, err := s.readIndex()
	if err != nil {
		return err
	}
	for _, existing := range ids {
		if existing == id {
			return nil
		}
	}
	ids = append(ids, id)
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("marshal conversation index: %w", err)
	}
	return s.kv.Save(securestore.KeyConvIndex, string(data))
}

func (s *Store) readSeen(symbol string) (map[string]struct{}, error) {
	raw, ok, err := s.kv.Read(securestore.KeyScanSeenPrefix + symbol)
	if err != nil {
		return nil, fmt.Errorf("read seen set: %w", err)
	}
	set := make(map[string]struct{})
	if !ok {
		return set, nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("parse seen set: %w", err)
	}
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

func (s *Store) writeSeen(symbol string, set map[string]struct{}) error {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("marshal seen set: %w", err)
	}
	return s.kv.Save(securestore.KeyScanSeenPrefix+symbol, string(data))
}

func participantsOf(convID string, msg Message, isGroup bool) []string {
	if isGroup {
		return []string{convID}
	}
	pair := []string{msg.Sender, msg.Receiver}
	sort.Strings(pair)
	return pair
}

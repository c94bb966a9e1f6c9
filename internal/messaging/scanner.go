package messaging

import (
	"context"
	"encoding/hex"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/zeroa-labs/lasko-core/internal/chain"
	"github.com/zeroa-labs/lasko-core/internal/keys"
	"github.com/zeroa-labs/lasko-core/internal/log"
	"github.com/zeroa-labs/lasko-core/internal/metrics"
	"github.com/zeroa-labs/lasko-core/internal/wallet"
	"github.com/zeroa-labs/lasko-core/pkg/crypto"
	"github.com/zeroa-labs/lasko-core/pkg/tx"
)

// defaultScanInterval is the poll period when none is configured.
const defaultScanInterval = 10 * time.Second

// Scanner polls the transaction history of watched addresses, extracts
// message payloads from new carrier transactions, decrypts and verifies
// them, and appends them to their conversations. Processed transaction ids
// are remembered so each carrier is handled exactly once; already-known
// messages only get their confirmation state refreshed.
type Scanner struct {
	adapter  chain.Adapter
	store    *Store
	resolver wallet.KeyResolver
	interval time.Duration
	logger   zerolog.Logger

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}

	watchMu sync.Mutex
	self    string
	groups  []string
}

// NewScanner creates a scanner for one wallet address on one chain.
func NewScanner(adapter chain.Adapter, store *Store, resolver wallet.KeyResolver, selfAddress string, interval time.Duration) *Scanner {
	if interval <= 0 {
		interval = defaultScanInterval
	}
	return &Scanner{
		adapter:  adapter,
		store:    store,
		resolver: resolver,
		interval: interval,
		logger:   log.Scanner.With().Str("coin", adapter.Coin().Symbol).Logger(),
		self:     selfAddress,
	}
}

// WatchGroup adds a shared group address to the scan set. Messages arriving
// at a group address land in the conversation identified by that address.
func (s *Scanner) WatchGroup(addr string) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	for _, g := range s.groups {
		if g == addr {
			return
		}
	}
	s.groups = append(s.groups, addr)
}

// Start launches the scan loop. One immediate pass, then one per interval.
func (s *Scanner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.loop()
	s.logger.Info().Dur("interval", s.interval).Msg("scanner started")
}

// Stop halts the scan loop and waits for the in-flight pass to finish.
// Idempotent.
func (s *Scanner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	done := s.done
	s.mu.Unlock()

	<-done
	s.logger.Info().Msg("scanner stopped")
}

func (s *Scanner) loop() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.scanAll()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.scanAll()
		}
	}
}

func (s *Scanner) scanAll() {
	s.watchMu.Lock()
	targets := make([]scanTarget, 0, 1+len(s.groups))
	targets = append(targets, scanTarget{addr: s.self})
	for _, g := range s.groups {
		targets = append(targets, scanTarget{addr: g, group: true})
	}
	s.watchMu.Unlock()

	// Each target gets its own time budget so a slow explorer response on
	// one address cannot starve the rest of the pass.
	for _, t := range targets {
		ctx, cancel := context.WithTimeout(context.Background(), s.interval)
		err := s.scanAddress(ctx, t)
		cancel()
		if err != nil {
			s.logger.Warn().Err(err).Str("addr", t.addr).Msg("scan pass failed")
		}
	}
}

type scanTarget struct {
	addr  string
	group bool
}

// scanAddress runs one scan pass over a watched address. Network failure
// aborts the pass; the next tick retries from the durable seen-set, so
// nothing is lost or double-processed.
func (s *Scanner) scanAddress(ctx context.Context, target scanTarget) error {
	c := s.adapter.Coin()

	key, err := s.resolver.ResolveKey(c, target.addr)
	if err != nil {
		return err
	}
	defer key.Zero()

	infos, err := s.adapter.AddressTransactions(ctx, target.addr)
	if err != nil {
		return err
	}

	byID := make(map[string]chain.TransactionInfo, len(infos))
	for _, info := range infos {
		byID[info.TxID] = info

		seen, err := s.store.Seen(c.Symbol, info.TxID)
		if err != nil {
			return err
		}
		if seen {
			continue
		}
		s.processCarrier(target, key, info)
	}

	return s.refreshStatuses(byID)
}

// processCarrier extracts, decrypts, and records one new carrier
// transaction. Every outcome marks the transaction seen: a carrier that
// cannot be decoded today will not decode tomorrow either.
func (s *Scanner) processCarrier(target scanTarget, key *crypto.PrivateKey, info chain.TransactionInfo) {
	c := s.adapter.Coin()
	defer func() {
		if err := s.store.MarkSeen(c.Symbol, info.TxID); err != nil {
			s.logger.Warn().Err(err).Str("txid", info.TxID).Msg("mark seen")
		}
	}()

	if info.PayloadHex == "" {
		return
	}
	// Our own sends were recorded at broadcast time; the envelope is
	// encrypted to the counterpart, not to us.
	for _, in := range info.Inputs {
		if in.Address == target.addr {
			return
		}
	}

	raw, err := hex.DecodeString(info.PayloadHex)
	if err != nil {
		s.logger.Debug().Str("txid", info.TxID).Msg("malformed payload hex")
		return
	}
	p, err := tx.ParsePayload(raw)
	if err != nil {
		s.logger.Debug().Err(err).Str("txid", info.TxID).Msg("unparseable payload")
		return
	}

	sender := ""
	for _, in := range info.Inputs {
		if in.Address != "" {
			sender = in.Address
			break
		}
	}
	if sender == "" {
		s.logger.Debug().Str("txid", info.TxID).Msg("carrier has no sender address")
		return
	}
	if !keys.PubKeyMatchesAddress(p.SenderPub, sender, c) {
		s.logger.Warn().Str("txid", info.TxID).Str("sender", sender).Msg("sender key does not match address, dropping")
		return
	}

	plaintext, err := Decrypt(p.Ciphertext, key)
	if err != nil {
		// Not addressed to this key. Normal for multi-recipient feeds.
		s.logger.Debug().Str("txid", info.TxID).Msg("envelope not decryptable with local key")
		return
	}

	digest := PlaintextDigest(plaintext)
	if !crypto.VerifySignature(digest[:], p.Signature, p.SenderPub) {
		s.logger.Warn().Str("txid", info.TxID).Str("sender", sender).Msg("bad message signature, dropping")
		return
	}

	msgType, ok := TypeFromWire(p.MsgType)
	if !ok {
		s.logger.Debug().Uint8("wire_type", p.MsgType).Str("txid", info.TxID).Msg("unknown message type")
		return
	}

	if err := s.store.LearnPubKey(sender, p.SenderPub); err != nil {
		s.logger.Warn().Err(err).Str("sender", sender).Msg("record sender key")
	}

	ts := info.Time
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	status := StatusPending
	if info.Confirmations >= 1 {
		status = StatusConfirmed
	}

	msg := Message{
		ID:            info.TxID,
		Sender:        sender,
		Receiver:      target.addr,
		Plaintext:     string(plaintext),
		Type:          msgType,
		Timestamp:     ts,
		SenderPub:     p.SenderPub,
		Signature:     p.Signature,
		Confirmations: info.Confirmations,
		Status:        status,
		Inbound:       true,
	}

	convID := ConversationID(sender, target.addr)
	if target.group {
		convID = target.addr
	}
	added, err := s.store.Append(convID, msg, target.group)
	if err != nil {
		s.logger.Error().Err(err).Str("txid", info.TxID).Msg("record inbound message")
		return
	}
	if added {
		metrics.ScannedMessages.WithLabelValues(c.Symbol).Inc()
		s.logger.Info().Str("txid", info.TxID).Str("sender", sender).Str("type", string(msgType)).Msg("message received")
	}
}

// refreshStatuses walks pending messages and advances their confirmation
// state from the freshly fetched transaction set. A message confirms at its
// first confirmation; rejection is terminal.
func (s *Scanner) refreshStatuses(byID map[string]chain.TransactionInfo) error {
	convs, err := s.store.Conversations()
	if err != nil {
		return err
	}
	for _, conv := range convs {
		msgs, err := s.store.Messages(conv.ID)
		if err != nil {
			return err
		}
		for _, m := range msgs {
			if m.Status != StatusPending {
				continue
			}
			info, ok := byID[m.ID]
			if !ok {
				continue
			}
			status := StatusPending
			switch {
			case info.Rejected:
				status = StatusFailed
			case info.Confirmations >= 1:
				status = StatusConfirmed
			}
			if status == StatusPending && info.Confirmations <= m.Confirmations {
				continue
			}
			if err := s.store.UpdateStatus(conv.ID, m.ID, status, info.Confirmations); err != nil {
				return err
			}
		}
	}
	return nil
}

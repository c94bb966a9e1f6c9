// Package wallet orchestrates key derivation, transaction construction, and
// chain access into per-coin balance/send/history/fee operations.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/zeroa-labs/lasko-core/config"
	"github.com/zeroa-labs/lasko-core/internal/chain"
	"github.com/zeroa-labs/lasko-core/internal/keys"
	"github.com/zeroa-labs/lasko-core/internal/log"
	"github.com/zeroa-labs/lasko-core/internal/monitor"
	"github.com/zeroa-labs/lasko-core/pkg/coin"
	"github.com/zeroa-labs/lasko-core/pkg/tx"
)

// Service is the per-coin wallet engine. One instance per coin, constructed
// with explicit dependencies; no shared globals.
type Service struct {
	coin     coin.Coin
	adapter  chain.Adapter
	resolver KeyResolver
	monitor  *monitor.Monitor
	cfg      *config.Config
	logger   zerolog.Logger
	locks    *addressLocks

	mu          sync.Mutex
	initialized bool
	closed      bool

	stateMu   sync.RWMutex
	connected bool
	height    uint64
}

// NewService creates a wallet service for one coin.
func NewService(c coin.Coin, adapter chain.Adapter, resolver KeyResolver, cfg *config.Config) *Service {
	return &Service{
		coin:     c,
		adapter:  adapter,
		resolver: resolver,
		monitor:  monitor.New(adapter, cfg.MonitorInterval),
		cfg:      cfg,
		logger:   log.Wallet.With().Str("coin", c.Symbol).Logger(),
		locks:    newAddressLocks(),
	}
}

// Coin returns the coin this service operates on.
func (s *Service) Coin() coin.Coin {
	return s.coin
}

// Monitor exposes the service's network monitor for subscribers.
func (s *Service) Monitor() *monitor.Monitor {
	return s.monitor
}

// Initialize probes connectivity, records the observed state, and starts the
// network monitor. Idempotent; safe to call repeatedly.
func (s *Service) Initialize(ctx context.Context) error {
	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return nil
	}
	s.initialized = true
	s.closed = false
	s.mu.Unlock()

	height, err := s.adapter.TipHeight(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("connectivity probe failed")
		s.setState(false, 0)
	} else {
		s.setState(height > 0, height)
	}

	s.monitor.Start()
	updates, _ := s.monitor.Subscribe()
	go func() {
		for st := range updates {
			s.setState(st.Connected, st.Height)
		}
	}()

	s.logger.Info().Bool("connected", s.IsConnected()).Uint64("height", s.LastBlockHeight()).Msg("initialized")
	return nil
}

// IsConnected reports the last observed connectivity.
func (s *Service) IsConnected() bool {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.connected
}

// LastBlockHeight reports the last observed chain height.
func (s *Service) LastBlockHeight() uint64 {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.height
}

func (s *Service) setState(connected bool, height uint64) {
	s.stateMu.Lock()
	s.connected = connected
	if height > 0 {
		s.height = height
	}
	s.stateMu.Unlock()
}

// DeriveAddress derives the first receiving address for this coin from a
// mnemonic. Pure and deterministic; fails with keys.ErrInvalidMnemonic when
// the seed phrase fails its checksum.
func (s *Service) DeriveAddress(mnemonic string) (string, error) {
	return keys.DeriveAddress(mnemonic, "", s.coin, 0)
}

// ValidateAddress checks an address against this coin's format and checksum.
func (s *Service) ValidateAddress(addr string) bool {
	return keys.ValidateAddress(addr, s.coin)
}

// Balance queries the current balance of an address. An adapter failure
// yields ErrNetworkUnavailable — never a fabricated zero balance.
func (s *Service) Balance(ctx context.Context, addr string) (Balance, error) {
	if !s.ValidateAddress(addr) {
		return Balance{}, fmt.Errorf("%w: %s", keys.ErrInvalidAddress, addr)
	}
	info, err := s.adapter.AddressInfo(ctx, addr)
	if err != nil {
		return Balance{}, fmt.Errorf("%w: %v", ErrNetworkUnavailable, err)
	}
	return Balance{
		Coin:        s.coin,
		Confirmed:   info.Confirmed,
		Unconfirmed: info.Unconfirmed,
		ObservedAt:  time.Now().UTC(),
	}, nil
}

// EstimateFeeRate returns the fee rate (base units per byte) for a priority,
// from the chain's fee table with a static per-coin fallback.
func (s *Service) EstimateFeeRate(ctx context.Context, priority Priority) uint64 {
	fallback := s.cfg.Coins[s.coin.Symbol].FeeFallback
	est, err := s.adapter.FeeEstimates(ctx)
	if err != nil {
		s.logger.Debug().Err(err).Msg("fee estimate unavailable, using fallback")
		est = &chain.FeeEstimates{Low: fallback.Low, Medium: fallback.Medium, High: fallback.High}
	}
	var rate uint64
	switch priority {
	case PriorityLow:
		rate = est.Low
	case PriorityHigh:
		rate = est.High
	default:
		rate = est.Medium
	}
	if rate == 0 {
		switch priority {
		case PriorityLow:
			rate = fallback.Low
		case PriorityHigh:
			rate = fallback.High
		default:
			rate = fallback.Medium
		}
	}
	return rate
}

// Transaction shape assumed when estimating a fee before coin selection
// has run.
const (
	estimatedInputs  = 2
	estimatedOutputs = 2 // destination + change
)

// EstimateFee returns an absolute fee for a typical send at the priority.
func (s *Service) EstimateFee(ctx context.Context, priority Priority, payloadLen int) uint64 {
	rate := s.EstimateFeeRate(ctx, priority)
	return tx.EstimateFee(estimatedInputs, estimatedOutputs, payloadLen, rate)
}

// Send builds, signs, and broadcasts a transfer. The whole
// balance-check-then-broadcast sequence is serialized per source address.
// Each failure point is terminal for this call; nothing retries internally.
// Cancelling ctx before the broadcast step prevents submission; an already
// broadcast transaction cannot be recalled.
func (s *Service) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	if !s.ValidateAddress(req.FromAddress) {
		return nil, fmt.Errorf("%w: from %s", keys.ErrInvalidAddress, req.FromAddress)
	}
	if !s.ValidateAddress(req.ToAddress) {
		return nil, fmt.Errorf("%w: to %s", keys.ErrInvalidAddress, req.ToAddress)
	}

	release := s.locks.acquire(req.FromAddress)
	defer release()

	info, err := s.adapter.AddressInfo(ctx, req.FromAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkUnavailable, err)
	}

	fee := req.Fee
	if fee == 0 {
		fee = s.EstimateFee(ctx, req.Priority, len(req.Payload))
	}

	// amount+fee is checked without wrapping: a request whose total exceeds
	// uint64 exceeds any balance by definition.
	spendable := info.Confirmed + info.Unconfirmed
	if req.Amount > math.MaxUint64-fee {
		return nil, fmt.Errorf("%w: amount %d plus fee %d exceeds representable funds", ErrInsufficientBalance, req.Amount, fee)
	}
	if req.Amount+fee > spendable {
		return nil, fmt.Errorf("%w: need %d, have %d", ErrInsufficientBalance, req.Amount+fee, spendable)
	}

	utxos, err := s.adapter.ListUnspent(ctx, req.FromAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkUnavailable, err)
	}

	sel, err := SelectCoins(utxos, req.Amount+fee)
	if err != nil {
		if errors.Is(err, ErrInsufficientFunds) || errors.Is(err, ErrNoUTXOs) {
			return nil, fmt.Errorf("%w: %v", ErrInsufficientBalance, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrBuildFailure, err)
	}

	builder := tx.NewBuilder()
	for _, u := range sel.Inputs {
		txid, err := tx.ParseHash(u.TxID)
		if err != nil {
			return nil, fmt.Errorf("%w: utxo %s: %v", ErrBuildFailure, u.TxID, err)
		}
		builder.AddInput(tx.Outpoint{TxID: txid, Vout: u.Vout})
	}
	builder.AddOutput(req.ToAddress, req.Amount)
	if sel.Change > 0 {
		builder.AddOutput(req.FromAddress, sel.Change)
	}
	if len(req.Payload) > 0 {
		builder.SetPayload(req.Payload)
	}

	key, err := s.resolver.ResolveKey(s.coin, req.FromAddress)
	if err != nil {
		return nil, err
	}
	defer key.Zero()

	if err := builder.Sign(key); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigningFailure, err)
	}

	built := builder.Build()
	if err := built.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBuildFailure, err)
	}
	raw, err := built.Encode()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBuildFailure, err)
	}
	if !tx.ValidateHex(raw) {
		return nil, fmt.Errorf("%w: encoded transaction failed sanity check", ErrBuildFailure)
	}

	// Last cancellation point: after this, the transaction is on the wire.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := s.adapter.Broadcast(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBroadcastFailure, err)
	}

	txid := res.TxID
	if txid == "" {
		txid = built.TxID().Hex()
	}
	s.logger.Info().
		Str("txid", txid).
		Uint64("amount", req.Amount).
		Uint64("fee", fee).
		Int("payload_bytes", len(req.Payload)).
		Msg("transaction broadcast")

	return &SendResult{TxID: txid, Fee: fee, Confirmations: 0}, nil
}

// History returns the normalized transaction history of an address, with
// direction taken from the signed net amount and status from the
// confirmation threshold rule.
func (s *Service) History(ctx context.Context, addr string) ([]Transaction, error) {
	if !s.ValidateAddress(addr) {
		return nil, fmt.Errorf("%w: %s", keys.ErrInvalidAddress, addr)
	}
	infos, err := s.adapter.AddressTransactions(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkUnavailable, err)
	}

	out := make([]Transaction, 0, len(infos))
	for _, info := range infos {
		out = append(out, s.normalize(addr, info))
	}
	return out, nil
}

func (s *Service) normalize(addr string, info chain.TransactionInfo) Transaction {
	var received, spent uint64
	var from, to string
	for _, in := range info.Inputs {
		if from == "" {
			from = in.Address
		}
		if in.Address == addr {
			spent += in.Value
		}
	}
	for _, o := range info.Outputs {
		if o.Address == addr {
			received += o.Value
		} else if to == "" {
			to = o.Address
		}
	}

	amount := int64(received) - int64(spent)
	var typ TxType
	switch {
	case spent > 0:
		typ = TxSend
	case received > 0:
		typ = TxReceive
		to = addr
	default:
		typ = TxUnknown
	}

	status := StatusPending
	switch {
	case info.Rejected:
		status = StatusFailed
	case info.Confirmations >= s.cfg.ConfirmationThreshold:
		status = StatusConfirmed
	}

	return Transaction{
		Coin:          s.coin,
		TxID:          info.TxID,
		Amount:        amount,
		Fee:           info.Fee,
		Confirmations: info.Confirmations,
		Time:          info.Time,
		Type:          typ,
		FromAddress:   from,
		ToAddress:     to,
		BlockHeight:   info.BlockHeight,
		Status:        status,
	}
}

// Close stops the network monitor and releases subscriptions. Idempotent.
func (s *Service) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.initialized = false
	s.mu.Unlock()

	s.monitor.Stop()
	s.logger.Info().Msg("service closed")
}

package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/zeroa-labs/lasko-core/internal/log"
	"github.com/zeroa-labs/lasko-core/internal/metrics"
	"github.com/zeroa-labs/lasko-core/pkg/coin"
)

// HTTPAdapter implements Adapter against an explorer-style REST API.
// One instance per coin; the coin-specific pieces (base URL, symbol) are
// configuration, not code.
type HTTPAdapter struct {
	coin    coin.Coin
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// HTTPOptions configures an HTTPAdapter.
type HTTPOptions struct {
	BaseURL string
	Timeout time.Duration // Per-request timeout; default 10s.
	// RequestsPerSecond caps outbound calls to the explorer. Zero means
	// no client-side limit.
	RequestsPerSecond float64
	Burst             int
}

// NewHTTP creates an adapter for the given coin and explorer endpoint.
func NewHTTP(c coin.Coin, opts HTTPOptions) *HTTPAdapter {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return &HTTPAdapter{
		coin:    c,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		limiter: limiter,
		logger:  log.Chain.With().Str("coin", c.Symbol).Logger(),
	}
}

// Coin returns the coin this adapter serves.
func (a *HTTPAdapter) Coin() coin.Coin {
	return a.coin
}

// Explorer JSON schemas. These mirror the upstream explorer responses and
// are mapped to the normalized shapes before leaving this package.

type addressJSON struct {
	Address string `json:"address"`
	Chain   struct {
		FundedSum uint64 `json:"funded_txo_sum"`
		SpentSum  uint64 `json:"spent_txo_sum"`
		TxCount   int    `json:"tx_count"`
	} `json:"chain_stats"`
	Mempool struct {
		FundedSum uint64 `json:"funded_txo_sum"`
		SpentSum  uint64 `json:"spent_txo_sum"`
		TxCount   int    `json:"tx_count"`
	} `json:"mempool_stats"`
}

type utxoJSON struct {
	TxID  string `json:"txid"`
	Vout  uint32 `json:"vout"`
	Value uint64 `json:"value"`
	Status struct {
		Confirmed   bool   `json:"confirmed"`
		BlockHeight uint64 `json:"block_height"`
	} `json:"status"`
}

type txEndpointJSON struct {
	Address string `json:"address"`
	Value   uint64 `json:"value"`
}

type txJSON struct {
	TxID          string           `json:"txid"`
	BlockHeight   uint64           `json:"block_height"`
	Confirmations int64            `json:"confirmations"`
	Fee           uint64           `json:"fee"`
	BlockTime     int64            `json:"block_time"`
	Rejected      bool             `json:"rejected"`
	Inputs        []txEndpointJSON `json:"vin"`
	Outputs       []txEndpointJSON `json:"vout"`
	Payload       string           `json:"payload"`
}

type blockJSON struct {
	Hash    string `json:"id"`
	Height  uint64 `json:"height"`
	Time    int64  `json:"timestamp"`
	TxCount int    `json:"tx_count"`
}

type feeJSON struct {
	Low    uint64 `json:"low"`
	Medium uint64 `json:"medium"`
	High   uint64 `json:"high"`
}

type broadcastJSON struct {
	TxID string `json:"txid"`
}

// AddressInfo fetches and normalizes address balances.
func (a *HTTPAdapter) AddressInfo(ctx context.Context, addr string) (*AddressInfo, error) {
	var resp addressJSON
	if err := a.getJSON(ctx, "/address/"+addr, &resp); err != nil {
		return nil, err
	}

	confirmed := saturatingSub(resp.Chain.FundedSum, resp.Chain.SpentSum)
	unconfirmed := saturatingSub(resp.Mempool.FundedSum, resp.Mempool.SpentSum)
	return &AddressInfo{
		Address:     addr,
		Confirmed:   confirmed,
		Unconfirmed: unconfirmed,
		TxCount:     resp.Chain.TxCount + resp.Mempool.TxCount,
	}, nil
}

// ListUnspent fetches the unspent outputs of an address.
func (a *HTTPAdapter) ListUnspent(ctx context.Context, addr string) ([]UTXO, error) {
	var resp []utxoJSON
	if err := a.getJSON(ctx, "/address/"+addr+"/utxo", &resp); err != nil {
		return nil, err
	}

	tip, err := a.TipHeight(ctx)
	if err != nil {
		return nil, err
	}

	utxos := make([]UTXO, 0, len(resp))
	for _, u := range resp {
		utxos = append(utxos, UTXO{
			TxID:          u.TxID,
			Vout:          u.Vout,
			Value:         u.Value,
			Confirmations: confirmationsAt(tip, u.Status.Confirmed, u.Status.BlockHeight),
		})
	}
	return utxos, nil
}

// TransactionInfo fetches and normalizes a single transaction.
func (a *HTTPAdapter) TransactionInfo(ctx context.Context, txid string) (*TransactionInfo, error) {
	var resp txJSON
	if err := a.getJSON(ctx, "/tx/"+txid, &resp); err != nil {
		return nil, err
	}
	info := normalizeTx(resp)
	return &info, nil
}

// AddressTransactions fetches the transaction history of an address,
// newest first.
func (a *HTTPAdapter) AddressTransactions(ctx context.Context, addr string) ([]TransactionInfo, error) {
	var resp []txJSON
	if err := a.getJSON(ctx, "/address/"+addr+"/txs", &resp); err != nil {
		return nil, err
	}
	out := make([]TransactionInfo, 0, len(resp))
	for _, t := range resp {
		out = append(out, normalizeTx(t))
	}
	return out, nil
}

// BlockInfo fetches a block by height.
func (a *HTTPAdapter) BlockInfo(ctx context.Context, height uint64) (*BlockInfo, error) {
	var resp blockJSON
	if err := a.getJSON(ctx, fmt.Sprintf("/block-height/%d", height), &resp); err != nil {
		return nil, err
	}
	return &BlockInfo{
		Hash:    resp.Hash,
		Height:  resp.Height,
		Time:    time.Unix(resp.Time, 0).UTC(),
		TxCount: resp.TxCount,
	}, nil
}

// TipHeight fetches the current chain tip height.
func (a *HTTPAdapter) TipHeight(ctx context.Context) (uint64, error) {
	body, err := a.get(ctx, "/blocks/tip/height")
	if err != nil {
		return 0, err
	}
	var height uint64
	if _, err := fmt.Sscanf(strings.TrimSpace(string(body)), "%d", &height); err != nil {
		return 0, fmt.Errorf("parse tip height %q: %w", body, err)
	}
	return height, nil
}

// Broadcast submits a raw transaction and returns the explorer's txid.
func (a *HTTPAdapter) Broadcast(ctx context.Context, rawHex string) (*BroadcastResult, error) {
	body, err := a.do(ctx, http.MethodPost, "/tx", strings.NewReader(rawHex))
	if err != nil {
		metrics.Broadcasts.WithLabelValues(a.coin.Symbol, "error").Inc()
		return nil, err
	}
	metrics.Broadcasts.WithLabelValues(a.coin.Symbol, "ok").Inc()

	// Some explorers answer with bare txid text, others with JSON.
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "{") {
		var resp broadcastJSON
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("decode broadcast response: %w", err)
		}
		return &BroadcastResult{TxID: resp.TxID}, nil
	}
	return &BroadcastResult{TxID: trimmed}, nil
}

// FeeEstimates fetches the explorer's fee table.
func (a *HTTPAdapter) FeeEstimates(ctx context.Context) (*FeeEstimates, error) {
	var resp feeJSON
	if err := a.getJSON(ctx, "/fee-estimates", &resp); err != nil {
		return nil, err
	}
	return &FeeEstimates{Low: resp.Low, Medium: resp.Medium, High: resp.High}, nil
}

func (a *HTTPAdapter) getJSON(ctx context.Context, path string, out interface{}) error {
	body, err := a.get(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (a *HTTPAdapter) get(ctx context.Context, path string) ([]byte, error) {
	return a.do(ctx, http.MethodGet, path, nil)
}

func (a *HTTPAdapter) do(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "text/plain")
	}

	resp, err := a.http.Do(req)
	if err != nil {
		a.logger.Debug().Err(err).Str("path", path).Msg("explorer request failed")
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, truncate(data, 200))
	}
	return data, nil
}

func normalizeTx(t txJSON) TransactionInfo {
	info := TransactionInfo{
		TxID:          t.TxID,
		BlockHeight:   t.BlockHeight,
		Confirmations: t.Confirmations,
		Fee:           t.Fee,
		Rejected:      t.Rejected,
		PayloadHex:    t.Payload,
	}
	if t.BlockTime > 0 {
		info.Time = time.Unix(t.BlockTime, 0).UTC()
	}
	for _, in := range t.Inputs {
		info.Inputs = append(info.Inputs, TxEndpoint{Address: in.Address, Value: in.Value})
	}
	for _, out := range t.Outputs {
		info.Outputs = append(info.Outputs, TxEndpoint{Address: out.Address, Value: out.Value})
	}
	return info
}

func confirmationsAt(tip uint64, confirmed bool, blockHeight uint64) int64 {
	if !confirmed || blockHeight == 0 || tip < blockHeight {
		return 0
	}
	return int64(tip-blockHeight) + 1
}

func saturatingSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// lasko-cli is the operator front-end for the lasko core: wallet setup,
// balances and sends per coin, and the encrypted messaging channel riding on
// carrier transactions.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/term"

	"github.com/zeroa-labs/lasko-core/config"
	"github.com/zeroa-labs/lasko-core/internal/chain"
	"github.com/zeroa-labs/lasko-core/internal/keys"
	"github.com/zeroa-labs/lasko-core/internal/log"
	"github.com/zeroa-labs/lasko-core/internal/messaging"
	"github.com/zeroa-labs/lasko-core/internal/securestore"
	"github.com/zeroa-labs/lasko-core/internal/wallet"
	"github.com/zeroa-labs/lasko-core/pkg/coin"
	"github.com/zeroa-labs/lasko-core/pkg/crypto"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	// Parse global flags that appear before the subcommand.
	dataDir := ""
	symbol := "BTC"

	args := os.Args[1:]
	for len(args) > 0 {
		switch {
		case args[0] == "--datadir" && len(args) > 1:
			dataDir = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--datadir="):
			dataDir = args[0][len("--datadir="):]
			args = args[1:]
		case args[0] == "--coin" && len(args) > 1:
			symbol = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--coin="):
			symbol = args[0][len("--coin="):]
			args = args[1:]
		default:
			goto dispatch
		}
	}

dispatch:
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	cfg := config.Default()
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	values, err := config.LoadFile(cfg.ConfigFile())
	if err != nil {
		fatal("load config: %v", err)
	}
	if err := config.Apply(cfg, values); err != nil {
		fatal("apply config: %v", err)
	}
	if err := log.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File); err != nil {
		fatal("init logging: %v", err)
	}

	c, err := coin.BySymbol(strings.ToUpper(symbol))
	if err != nil {
		fatal("unsupported coin %q (BTC, LTC, DOGE)", symbol)
	}

	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "wallet":
		cmdWallet(cfg, c, cmdArgs)
	case "status":
		cmdStatus(cfg, c)
	case "balance":
		cmdBalance(cfg, c, cmdArgs)
	case "send":
		cmdSend(cfg, c, cmdArgs)
	case "history":
		cmdHistory(cfg, c, cmdArgs)
	case "fee":
		cmdFee(cfg, c, cmdArgs)
	case "msg":
		cmdMsg(cfg, c, cmdArgs)
	case "contact":
		cmdContact(cfg, c, cmdArgs)
	case "watch":
		cmdWatch(cfg, c, cmdArgs)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: lasko-cli [global flags] <command> [flags]

Global flags:
  --datadir <path>    Data directory (default: ~/.lasko)
  --coin <sym>        BTC (default), LTC, or DOGE

Commands:
  wallet create                   Generate a mnemonic and store the sealed seed
  wallet import --mnemonic "..."  Import an existing mnemonic
  wallet address                  Show the receiving address for the coin

  status                          Show chain connectivity and height
  balance [address]               Show address balance
  send --to <addr> --amount <n> [--priority low|medium|high]
                                  Send coins
  history [address]               Show transaction history
  fee [--priority <p>] [--payload-bytes <n>]
                                  Estimate the fee for a typical send

  msg send --to <addr> --text "..."
                                  Send an encrypted message
  msg pay --to <addr> --amount <n> --text "..."
                                  Send a payment with an attached message
  msg list                        List conversations
  msg show <conversation-id>      Show a conversation's messages
  msg read <conversation-id>      Mark a conversation read
  msg group join --address <addr> --key <hex>
                                  Join a group chat with its shared key
  msg group list                  List joined groups

  contact add --address <addr> --pubkey <hex>
                                  Register a recipient's public key

  watch [--metrics <addr>]        Run the monitor and message scanner over
                                  the wallet address and all joined groups
                                  until interrupted; optionally serve
                                  Prometheus metrics
`)
}

// ── wallet setup ────────────────────────────────────────────────────────

func cmdWallet(cfg *config.Config, c coin.Coin, args []string) {
	if len(args) < 1 {
		fatal("Usage: lasko-cli wallet <create|import|address>")
	}
	switch args[0] {
	case "create":
		mnemonic, err := keys.GenerateMnemonic()
		if err != nil {
			fatal("generate mnemonic: %v", err)
		}
		storeSeed(cfg, mnemonic)
		fmt.Println("Write this mnemonic down. It is shown exactly once:")
		fmt.Println()
		fmt.Printf("  %s\n\n", mnemonic)
		printAddresses(mnemonic)
	case "import":
		mnemonic := flagValue(args[1:], "--mnemonic")
		if mnemonic == "" {
			fatal("Usage: lasko-cli wallet import --mnemonic \"...\"")
		}
		if !keys.ValidateMnemonic(mnemonic) {
			fatal("mnemonic failed its checksum")
		}
		storeSeed(cfg, mnemonic)
		printAddresses(mnemonic)
	case "address":
		store := openStore(cfg)
		defer store.Close()
		addr, ok, err := store.Read(securestore.KeyAddressPrefix + c.Symbol)
		if err != nil {
			fatal("read address: %v", err)
		}
		if !ok {
			fatal("no wallet yet; run `lasko-cli wallet create` first")
		}
		fmt.Println(addr)
	default:
		fatal("Unknown wallet command: %s", args[0])
	}
}

func storeSeed(cfg *config.Config, mnemonic string) {
	pass, err := readPassword("Passphrase for the seed: ")
	if err != nil {
		fatal("read passphrase: %v", err)
	}
	confirm, err := readPassword("Confirm passphrase: ")
	if err != nil {
		fatal("read passphrase: %v", err)
	}
	if string(pass) != string(confirm) {
		fatal("passphrases do not match")
	}

	store := openStore(cfg)
	defer store.Close()
	if _, ok, _ := store.Read(securestore.KeySeed); ok {
		fatal("a seed already exists in %s; refusing to overwrite", cfg.StoreDir())
	}
	if err := wallet.StoreSeed(store, mnemonic, pass); err != nil {
		fatal("store seed: %v", err)
	}
	for _, c := range coin.All {
		addr, err := keys.DeriveAddress(mnemonic, "", c, 0)
		if err != nil {
			fatal("derive %s address: %v", c.Symbol, err)
		}
		if err := store.Save(securestore.KeyAddressPrefix+c.Symbol, addr); err != nil {
			fatal("save %s address: %v", c.Symbol, err)
		}
	}
}

func printAddresses(mnemonic string) {
	fmt.Println("Receiving addresses:")
	for _, c := range coin.All {
		addr, err := keys.DeriveAddress(mnemonic, "", c, 0)
		if err != nil {
			fatal("derive %s address: %v", c.Symbol, err)
		}
		fmt.Printf("  %-5s %s\n", c.Symbol, addr)
	}
}

// ── chain operations ────────────────────────────────────────────────────

func cmdStatus(cfg *config.Config, c coin.Coin) {
	adapter := newAdapter(cfg, c)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTPTimeout)
	defer cancel()

	height, err := adapter.TipHeight(ctx)
	if err != nil {
		fmt.Printf("Coin:      %s\n", c.Symbol)
		fmt.Printf("Connected: no (%v)\n", err)
		os.Exit(1)
	}
	fmt.Printf("Coin:      %s\n", c.Symbol)
	fmt.Printf("Connected: yes\n")
	fmt.Printf("Height:    %d\n", height)
}

func cmdBalance(cfg *config.Config, c coin.Coin, args []string) {
	core := openCore(cfg, c)
	defer core.close()

	addr := core.self
	if len(args) > 0 && !strings.HasPrefix(args[0], "--") {
		addr = args[0]
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTPTimeout)
	defer cancel()
	bal, err := core.wallet.Balance(ctx, addr)
	if err != nil {
		fatal("balance: %v", err)
	}
	fmt.Printf("Address:     %s\n", addr)
	fmt.Printf("Confirmed:   %s %s\n", formatAmount(bal.Confirmed, c), c.Symbol)
	fmt.Printf("Unconfirmed: %s %s\n", formatAmount(bal.Unconfirmed, c), c.Symbol)
	fmt.Printf("Total:       %s %s\n", formatAmount(bal.Total(), c), c.Symbol)
}

func cmdSend(cfg *config.Config, c coin.Coin, args []string) {
	to := flagValue(args, "--to")
	amountStr := flagValue(args, "--amount")
	priority := flagValue(args, "--priority")
	if to == "" || amountStr == "" {
		fatal("Usage: lasko-cli send --to <addr> --amount <n> [--priority low|medium|high]")
	}
	amount, err := parseAmount(amountStr, c)
	if err != nil {
		fatal("amount: %v", err)
	}

	core := openCore(cfg, c)
	defer core.close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.HTTPTimeout)
	defer cancel()
	res, err := core.wallet.Send(ctx, wallet.SendRequest{
		FromAddress: core.self,
		ToAddress:   to,
		Amount:      amount,
		Priority:    parsePriority(priority),
	})
	if err != nil {
		fatal("send: %v", err)
	}
	fmt.Printf("TxID: %s\n", res.TxID)
	fmt.Printf("Fee:  %s %s\n", formatAmount(res.Fee, c), c.Symbol)
}

func cmdHistory(cfg *config.Config, c coin.Coin, args []string) {
	core := openCore(cfg, c)
	defer core.close()

	addr := core.self
	if len(args) > 0 && !strings.HasPrefix(args[0], "--") {
		addr = args[0]
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTPTimeout)
	defer cancel()
	txs, err := core.wallet.History(ctx, addr)
	if err != nil {
		fatal("history: %v", err)
	}
	if len(txs) == 0 {
		fmt.Println("No transactions.")
		return
	}
	for _, t := range txs {
		sign := ""
		if t.Amount > 0 {
			sign = "+"
		}
		amt := t.Amount
		if amt < 0 {
			amt = -amt
			sign = "-"
		}
		fmt.Printf("%s  %-7s %-9s %s%s %s  conf=%d\n",
			t.Time.Format(time.RFC3339), t.Type, t.Status,
			sign, formatAmount(uint64(amt), c), c.Symbol, t.Confirmations)
	}
}

func cmdFee(cfg *config.Config, c coin.Coin, args []string) {
	priority := parsePriority(flagValue(args, "--priority"))
	payloadBytes := 0
	if v := flagValue(args, "--payload-bytes"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			fatal("invalid --payload-bytes %q", v)
		}
		payloadBytes = n
	}

	adapter := newAdapter(cfg, c)
	svc := wallet.NewService(c, adapter, nil, cfg)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTPTimeout)
	defer cancel()
	fee := svc.EstimateFee(ctx, priority, payloadBytes)
	fmt.Printf("Estimated fee: %s %s\n", formatAmount(fee, c), c.Symbol)
}

// ── messaging ───────────────────────────────────────────────────────────

func cmdMsg(cfg *config.Config, c coin.Coin, args []string) {
	if len(args) < 1 {
		fatal("Usage: lasko-cli msg <send|pay|list|show|read|group>")
	}
	core := openCore(cfg, c)
	defer core.close()
	svc := messaging.NewService(core.wallet, core.msgs, core.resolver, core.self)

	switch args[0] {
	case "send":
		to := flagValue(args[1:], "--to")
		text := flagValue(args[1:], "--text")
		if to == "" || text == "" {
			fatal("Usage: lasko-cli msg send --to <addr> --text \"...\"")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.HTTPTimeout)
		defer cancel()
		msg, err := svc.SendMessage(ctx, to, text, messaging.TypeText)
		if err != nil {
			fatal("send message: %v", err)
		}
		fmt.Printf("Message sent. TxID: %s\n", msg.ID)
	case "pay":
		to := flagValue(args[1:], "--to")
		text := flagValue(args[1:], "--text")
		amountStr := flagValue(args[1:], "--amount")
		if to == "" || amountStr == "" {
			fatal("Usage: lasko-cli msg pay --to <addr> --amount <n> --text \"...\"")
		}
		amount, err := parseAmount(amountStr, c)
		if err != nil {
			fatal("amount: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.HTTPTimeout)
		defer cancel()
		msg, err := svc.SendPayment(ctx, to, text, amount)
		if err != nil {
			fatal("send payment: %v", err)
		}
		fmt.Printf("Payment sent. TxID: %s\n", msg.ID)
	case "list":
		convs, err := svc.Conversations()
		if err != nil {
			fatal("list conversations: %v", err)
		}
		if len(convs) == 0 {
			fmt.Println("No conversations.")
			return
		}
		for _, conv := range convs {
			preview := ""
			if conv.LastMessage != nil {
				preview = conv.LastMessage.Plaintext
				if len(preview) > 40 {
					preview = preview[:40] + "…"
				}
			}
			fmt.Printf("%s  unread=%d  %s\n", conv.ID, conv.UnreadCount, preview)
		}
	case "show":
		if len(args) < 2 {
			fatal("Usage: lasko-cli msg show <conversation-id>")
		}
		msgs, err := svc.Messages(args[1])
		if err != nil {
			fatal("show conversation: %v", err)
		}
		for _, m := range msgs {
			dir := "->"
			if m.Inbound {
				dir = "<-"
			}
			verified := ""
			if m.Inbound && !svc.VerifyMessageSignature(m) {
				verified = "  [UNVERIFIED]"
			}
			fmt.Printf("%s %s %s [%s conf=%d]%s\n  %s\n",
				m.Timestamp.Format(time.RFC3339), dir, m.Sender,
				m.Status, m.Confirmations, verified, m.Plaintext)
		}
	case "read":
		if len(args) < 2 {
			fatal("Usage: lasko-cli msg read <conversation-id>")
		}
		if err := svc.MarkRead(args[1]); err != nil {
			fatal("mark read: %v", err)
		}
	case "group":
		cmdMsgGroup(c, core, svc, args[1:])
	default:
		fatal("Unknown msg command: %s", args[0])
	}
}

func cmdMsgGroup(c coin.Coin, core *core, svc *messaging.Service, args []string) {
	if len(args) < 1 {
		fatal("Usage: lasko-cli msg group <join|list>")
	}
	switch args[0] {
	case "join":
		addr := flagValue(args[1:], "--address")
		keyHex := flagValue(args[1:], "--key")
		if addr == "" || keyHex == "" {
			fatal("Usage: lasko-cli msg group join --address <addr> --key <hex>")
		}
		priv, err := hex.DecodeString(keyHex)
		if err != nil {
			fatal("group key is not valid hex")
		}
		pass, err := core.pass()
		if err != nil {
			fatal("read passphrase: %v", err)
		}
		if err := wallet.ImportGroupKey(core.store, c, addr, priv, pass); err != nil {
			fatal("import group key: %v", err)
		}
		// Register the group's public key so sends to it encrypt correctly.
		key, err := crypto.PrivateKeyFromBytes(priv)
		if err != nil {
			fatal("group key: %v", err)
		}
		pub := key.PublicKey()
		key.Zero()
		if err := svc.RegisterContact(addr, pub); err != nil {
			fatal("register group key: %v", err)
		}
		fmt.Printf("Joined group %s\n", addr)
	case "list":
		addrs, err := wallet.GroupAddresses(core.store)
		if err != nil {
			fatal("list groups: %v", err)
		}
		if len(addrs) == 0 {
			fmt.Println("No groups joined.")
			return
		}
		for _, a := range addrs {
			fmt.Println(a)
		}
	default:
		fatal("Unknown msg group command: %s", args[0])
	}
}

func cmdContact(cfg *config.Config, c coin.Coin, args []string) {
	if len(args) < 1 || args[0] != "add" {
		fatal("Usage: lasko-cli contact add --address <addr> --pubkey <hex>")
	}
	addr := flagValue(args[1:], "--address")
	pubHex := flagValue(args[1:], "--pubkey")
	if addr == "" || pubHex == "" {
		fatal("Usage: lasko-cli contact add --address <addr> --pubkey <hex>")
	}
	pub, err := hex.DecodeString(pubHex)
	if err != nil {
		fatal("pubkey is not valid hex")
	}

	core := openCore(cfg, c)
	defer core.close()
	svc := messaging.NewService(core.wallet, core.msgs, core.resolver, core.self)
	if err := svc.RegisterContact(addr, pub); err != nil {
		fatal("register contact: %v", err)
	}
	fmt.Printf("Registered %s\n", addr)
}

// ── watch loop ──────────────────────────────────────────────────────────

func cmdWatch(cfg *config.Config, c coin.Coin, args []string) {
	metricsAddr := flagValue(args, "--metrics")

	core := openCore(cfg, c)
	defer core.close()

	ctx := context.Background()
	if err := core.wallet.Initialize(ctx); err != nil {
		fatal("initialize wallet: %v", err)
	}
	scanner := messaging.NewScanner(core.adapter, core.msgs, core.resolver, core.self, cfg.ScanInterval)
	groups, err := wallet.GroupAddresses(core.store)
	if err != nil {
		fatal("list groups: %v", err)
	}
	for _, g := range groups {
		scanner.WatchGroup(g)
	}
	scanner.Start()
	defer scanner.Stop()

	if metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				log.Logger.Error().Err(err).Msg("metrics server stopped")
			}
		}()
		fmt.Printf("Serving metrics on %s/metrics\n", metricsAddr)
	}

	fmt.Printf("Watching %s on %s. Ctrl-C to stop.\n", core.self, c.Symbol)
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	fmt.Println("\nShutting down.")
}

// ── wiring ──────────────────────────────────────────────────────────────

// core bundles the per-coin collaborators a command needs.
type core struct {
	store    *securestore.BadgerStore
	adapter  chain.Adapter
	resolver wallet.KeyResolver
	wallet   *wallet.Service
	msgs     *messaging.Store
	self     string
	pass     func() ([]byte, error)
}

func openCore(cfg *config.Config, c coin.Coin) *core {
	store := openStore(cfg)

	self, ok, err := store.Read(securestore.KeyAddressPrefix + c.Symbol)
	if err != nil {
		fatal("read address: %v", err)
	}
	if !ok {
		fatal("no wallet yet; run `lasko-cli wallet create` first")
	}

	// The passphrase is prompted at most once per invocation.
	var cached []byte
	passphrase := func() ([]byte, error) {
		if cached == nil {
			p, err := readPassword("Seed passphrase: ")
			if err != nil {
				return nil, err
			}
			cached = p
		}
		return cached, nil
	}

	adapter := newAdapter(cfg, c)
	resolver := wallet.NewStoreKeyResolver(store, passphrase)
	return &core{
		store:    store,
		adapter:  adapter,
		resolver: resolver,
		wallet:   wallet.NewService(c, adapter, resolver, cfg),
		msgs:     messaging.NewStore(store),
		self:     self,
		pass:     passphrase,
	}
}

func (c *core) close() {
	c.wallet.Close()
	if err := c.store.Close(); err != nil {
		log.Logger.Warn().Err(err).Msg("close store")
	}
}

func openStore(cfg *config.Config) *securestore.BadgerStore {
	if err := os.MkdirAll(cfg.StoreDir(), 0700); err != nil {
		fatal("create store dir: %v", err)
	}
	store, err := securestore.NewBadger(cfg.StoreDir())
	if err != nil {
		fatal("open store: %v", err)
	}
	return store
}

func newAdapter(cfg *config.Config, c coin.Coin) chain.Adapter {
	cc := cfg.Coins[c.Symbol]
	if cc.APIBaseURL == "" {
		fatal("no explorer endpoint configured for %s", c.Symbol)
	}
	return chain.NewHTTP(c, chain.HTTPOptions{
		BaseURL:           cc.APIBaseURL,
		Timeout:           cfg.HTTPTimeout,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
	})
}

// ── parsing and formatting ──────────────────────────────────────────────

func flagValue(args []string, name string) string {
	for i := 0; i < len(args); i++ {
		if args[i] == name && i+1 < len(args) {
			return args[i+1]
		}
		if strings.HasPrefix(args[i], name+"=") {
			return args[i][len(name)+1:]
		}
	}
	return ""
}

func parsePriority(s string) wallet.Priority {
	switch strings.ToLower(s) {
	case "low":
		return wallet.PriorityLow
	case "high":
		return wallet.PriorityHigh
	default:
		return wallet.PriorityMedium
	}
}

// parseAmount converts a decimal coin amount ("0.015") to base units.
func parseAmount(s string, c coin.Coin) (uint64, error) {
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > c.Decimals {
		return 0, fmt.Errorf("more than %d decimal places", c.Decimals)
	}
	frac += strings.Repeat("0", c.Decimals-len(frac))

	w, err := strconv.ParseUint(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	var f uint64
	if frac != "" {
		f, err = strconv.ParseUint(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid amount %q", s)
		}
	}
	unit := uint64(1)
	for i := 0; i < c.Decimals; i++ {
		unit *= 10
	}
	if w > (1<<63)/unit {
		return 0, fmt.Errorf("amount %q overflows", s)
	}
	return w*unit + f, nil
}

// formatAmount renders base units as a decimal coin amount.
func formatAmount(v uint64, c coin.Coin) string {
	unit := uint64(1)
	for i := 0; i < c.Decimals; i++ {
		unit *= 10
	}
	whole := v / unit
	frac := v % unit
	if frac == 0 {
		return strconv.FormatUint(whole, 10)
	}
	s := fmt.Sprintf("%d.%0*d", whole, c.Decimals, frac)
	return strings.TrimRight(s, "0")
}

// ── helpers ─────────────────────────────────────────────────────────────

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, err
	}
	return password, nil
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadFile loads configuration from a .conf file.
// Format: key = value (one per line, # for comments)
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		values[key] = value
	}

	return values, scanner.Err()
}

// Apply applies file configuration to a Config struct.
func Apply(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

func setValue(cfg *Config, key, value string) error {
	// Per-coin keys: {symbol}.api, {symbol}.fee.{low|medium|high}
	if sym, rest, ok := splitCoinKey(key); ok {
		cc := cfg.Coins[sym]
		var err error
		switch rest {
		case "api":
			cc.APIBaseURL = value
		case "fee.low":
			err = setFee(&cc.FeeFallback.Low, value)
		case "fee.medium":
			err = setFee(&cc.FeeFallback.Medium, value)
		case "fee.high":
			err = setFee(&cc.FeeFallback.High, value)
		default:
			return fmt.Errorf("unknown key")
		}
		if err != nil {
			return err
		}
		if cfg.Coins == nil {
			cfg.Coins = make(map[string]CoinConfig)
		}
		cfg.Coins[sym] = cc
		return nil
	}

	switch key {
	case "datadir":
		cfg.DataDir = value
	case "confirmations":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < 1 {
			return fmt.Errorf("invalid confirmation threshold %q", value)
		}
		cfg.ConfirmationThreshold = n
	case "monitor.interval":
		return setDuration(&cfg.MonitorInterval, value)
	case "scan.interval":
		return setDuration(&cfg.ScanInterval, value)
	case "http.timeout":
		return setDuration(&cfg.HTTPTimeout, value)
	case "rate.rps":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("invalid rate %q", value)
		}
		cfg.RateLimit.RequestsPerSecond = f
	case "rate.burst":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid burst %q", value)
		}
		cfg.RateLimit.Burst = n
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid bool %q", value)
		}
		cfg.Log.JSON = b
	default:
		return fmt.Errorf("unknown key")
	}
	return nil
}

func splitCoinKey(key string) (symbol, rest string, ok bool) {
	parts := strings.SplitN(key, ".", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	switch strings.ToUpper(parts[0]) {
	case "BTC", "LTC", "DOGE":
		return strings.ToUpper(parts[0]), parts[1], true
	}
	return "", "", false
}

func setDuration(dst *time.Duration, value string) error {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fmt.Errorf("invalid duration %q", value)
	}
	*dst = d
	return nil
}

func setFee(dst *uint64, value string) error {
	n, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid fee rate %q", value)
	}
	*dst = n
	return nil
}

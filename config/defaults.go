package config

import "time"

// Default returns the default core configuration.
func Default() *Config {
	return &Config{
		DataDir:               DefaultDataDir(),
		ConfirmationThreshold: 6,
		MonitorInterval:       30 * time.Second,
		ScanInterval:          10 * time.Second,
		HTTPTimeout:           10 * time.Second,
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 4,
			Burst:             8,
		},
		Coins: map[string]CoinConfig{
			"BTC": {
				APIBaseURL: "https://blockstream.info/api",
				FeeFallback: FeeTable{
					Low:    1,
					Medium: 5,
					High:   20,
				},
			},
			"LTC": {
				APIBaseURL: "https://litecoinspace.org/api",
				FeeFallback: FeeTable{
					Low:    1,
					Medium: 2,
					High:   5,
				},
			},
			"DOGE": {
				APIBaseURL: "https://dogechain.info/api/v1",
				FeeFallback: FeeTable{
					Low:    100,
					Medium: 500,
					High:   1000,
				},
			},
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

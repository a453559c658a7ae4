package bybit

import (
	bybit_api "github.com/bybit-exchange/bybit.go.api"
)

// Client wraps the Bybit API client for market data access. Public kline
// endpoints work without credentials; keys are only needed so the same
// client can be pointed at the demo environment.
type Client struct {
	httpClient *bybit_api.Client
	testnet    bool
}

// Config holds the connection settings for the Bybit client.
type Config struct {
	APIKey    string
	APISecret string
	Testnet   bool
}

// NewClient creates a Bybit client for mainnet or testnet.
func NewClient(config Config) *Client {
	baseURL := bybit_api.MAINNET
	if config.Testnet {
		baseURL = bybit_api.TESTNET
	}

	httpClient := bybit_api.NewBybitHttpClient(
		config.APIKey,
		config.APISecret,
		bybit_api.WithBaseURL(baseURL),
	)

	return &Client{
		httpClient: httpClient,
		testnet:    config.Testnet,
	}
}

// IsTestnet reports whether the client talks to the testnet.
func (c *Client) IsTestnet() bool {
	return c.testnet
}

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"pkdindustries/retort/internal/config"
)

const defaultPriceURL = "https://api.coingecko.com/api/v3/simple/price"

// symbolToID maps common ticker symbols to coingecko coin ids. Unlisted
// symbols are passed through lowercased, which works for full coin names.
var symbolToID = map[string]string{
	"btc":  "bitcoin",
	"eth":  "ethereum",
	"sol":  "solana",
	"doge": "dogecoin",
	"ada":  "cardano",
	"xrp":  "ripple",
	"ltc":  "litecoin",
	"dot":  "polkadot",
	"link": "chainlink",
	"xmr":  "monero",
}

// CryptoPriceTool fetches spot prices from a coingecko-compatible endpoint.
type CryptoPriceTool struct {
	BaseNativeTool
	baseURL string
	client  *http.Client
}

func NewCryptoPriceTool(cfg config.ToolsConfig) *CryptoPriceTool {
	baseURL := cfg.PriceURL
	if baseURL == "" {
		baseURL = defaultPriceURL
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CryptoPriceTool{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (t *CryptoPriceTool) GetSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Title:       "crypto_price",
		Description: "Get the current USD price of a cryptocurrency by ticker symbol or name",
		Type:        "object",
		Properties: map[string]*jsonschema.Schema{
			"symbol": {
				Type:        "string",
				Description: "Ticker symbol or coin name, e.g. 'BTC' or 'ethereum'",
			},
		},
		Required: []string{"symbol"},
	}
}

func (t *CryptoPriceTool) GetName() string {
	return "crypto_price"
}

func (t *CryptoPriceTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	symbol, ok := args["symbol"].(string)
	if !ok {
		return "", fmt.Errorf("symbol must be a string")
	}

	id := strings.ToLower(strings.TrimSpace(symbol))
	if mapped, ok := symbolToID[id]; ok {
		id = mapped
	}
	if id == "" {
		return "", fmt.Errorf("symbol cannot be empty")
	}

	reqURL := fmt.Sprintf("%s?ids=%s&vs_currencies=usd", t.baseURL, url.QueryEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("build price request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch price: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("price api returned %s", resp.Status)
	}

	var payload map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode price response: %w", err)
	}

	quote, ok := payload[id]
	if !ok {
		return fmt.Sprintf("No price data for %q", symbol), nil
	}
	price, ok := quote["usd"]
	if !ok {
		return fmt.Sprintf("No USD quote for %q", symbol), nil
	}
	return fmt.Sprintf("%s is currently $%.2f USD", strings.ToUpper(symbol), price), nil
}

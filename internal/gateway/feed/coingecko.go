package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// CoinGecko 通过 /simple/price 查询现货价。不需要 API Key。
type CoinGecko struct {
	BaseURL string
	httpc   *http.Client
}

func NewCoinGecko(baseURL string, timeout time.Duration) *CoinGecko {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CoinGecko{
		BaseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
	}
}

func (c *CoinGecko) Name() string { return "coingecko" }

func (c *CoinGecko) ETHPriceUSD(ctx context.Context) (float64, error) {
	endpoint := fmt.Sprintf("%s/simple/price?ids=ethereum&vs_currencies=usd", c.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, err
	}
	if resp.StatusCode/100 != 2 {
		return 0, fmt.Errorf("coingecko status=%d", resp.StatusCode)
	}
	price := gjson.GetBytes(raw, "ethereum.usd").Float()
	if price <= 0 {
		return 0, fmt.Errorf("coingecko: missing ethereum.usd in response")
	}
	return price, nil
}

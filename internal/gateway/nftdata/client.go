package nftdata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"concord/internal/logger"
)

// Source 提供 NFT 元数据与销售历史。
type Source interface {
	Fetch(ctx context.Context, contractAddress, tokenID string) (*NFTData, error)
}

// 中文说明：
// Client 组合两个上游：
//   - Moralis deep-index（/nft/{address}/{token_id}）拉取元数据；
//   - Reservoir（/sales/v5）分页拉取销售历史。
type Client struct {
	MoralisBaseURL   string
	MoralisAPIKey    string
	ReservoirBaseURL string
	ReservoirAPIKey  string

	httpc *http.Client
}

func NewClient(moralisURL, moralisKey, reservoirURL, reservoirKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		MoralisBaseURL:   strings.TrimRight(moralisURL, "/"),
		MoralisAPIKey:    moralisKey,
		ReservoirBaseURL: strings.TrimRight(reservoirURL, "/"),
		ReservoirAPIKey:  reservoirKey,
		httpc:            &http.Client{Timeout: timeout},
	}
}

func (c *Client) Fetch(ctx context.Context, contractAddress, tokenID string) (*NFTData, error) {
	contractAddress = strings.TrimSpace(contractAddress)
	tokenID = strings.TrimSpace(tokenID)
	if contractAddress == "" || tokenID == "" {
		return nil, fmt.Errorf("nftdata: contract_address and token_id are required")
	}

	nft, err := c.fetchMetadata(ctx, contractAddress, tokenID)
	if err != nil {
		return nil, err
	}
	sales, err := c.fetchSalesHistory(ctx, contractAddress, tokenID)
	if err != nil {
		// 元数据可用但销售历史失败：保留元数据，记录告警
		logger.Warnf("[NFTData] 获取销售历史失败 %s:%s: %v", contractAddress, tokenID, err)
		sales = nil
	}
	nft.SalesHistory = sales
	return nft, nil
}

func (c *Client) fetchMetadata(ctx context.Context, contractAddress, tokenID string) (*NFTData, error) {
	q := url.Values{}
	q.Set("chain", "eth")
	q.Set("format", "decimal")
	q.Set("normalizeMetadata", "true")
	q.Set("media_items", "false")
	endpoint := fmt.Sprintf("%s/nft/%s/%s?%s", c.MoralisBaseURL, contractAddress, tokenID, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-API-Key", c.MoralisAPIKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nftdata: moralis request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		msg := gjson.GetBytes(raw, "message").String()
		if msg == "" {
			msg = resp.Status
		}
		return nil, fmt.Errorf("nftdata: moralis status=%d: %s", resp.StatusCode, msg)
	}

	body := gjson.ParseBytes(raw)
	nft := &NFTData{
		Name:         body.Get("name").String(),
		Owner:        body.Get("owner_of").String(),
		TokenID:      body.Get("token_id").String(),
		TokenAddress: body.Get("token_address").String(),
		Metadata: Metadata{
			Symbol:           body.Get("symbol").String(),
			RarityRank:       body.Get("rarity_rank").String(),
			RarityPercentage: body.Get("rarity_percentage").String(),
			Amount:           body.Get("amount").String(),
		},
	}
	// metadata 字段是内嵌 JSON 字符串，image 藏在里面
	if meta := body.Get("metadata").String(); meta != "" {
		nft.Image = gjson.Get(meta, "image").String()
	}
	if nft.TokenID == "" {
		nft.TokenID = tokenID
	}
	if nft.TokenAddress == "" {
		nft.TokenAddress = contractAddress
	}
	return nft, nil
}

func (c *Client) fetchSalesHistory(ctx context.Context, contractAddress, tokenID string) ([]Sale, error) {
	var out []Sale
	continuation := ""
	for {
		q := url.Values{}
		q.Set("tokens", fmt.Sprintf("%s:%s", contractAddress, tokenID))
		if continuation != "" {
			q.Set("continuation", continuation)
		}
		endpoint := fmt.Sprintf("%s/sales/v5?%s", c.ReservoirBaseURL, q.Encode())

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if c.ReservoirAPIKey != "" {
			req.Header.Set("x-api-key", c.ReservoirAPIKey)
		}

		resp, err := c.httpc.Do(req)
		if err != nil {
			return nil, fmt.Errorf("nftdata: reservoir request: %w", err)
		}
		raw, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}
		if resp.StatusCode/100 != 2 {
			return nil, fmt.Errorf("nftdata: reservoir status=%d", resp.StatusCode)
		}

		body := gjson.ParseBytes(raw)
		sales := body.Get("sales").Array()
		if len(sales) == 0 {
			break
		}
		for _, s := range sales {
			sale := Sale{
				PriceEthereum: decimal.NewFromFloat(s.Get("price.amount.native").Float()),
				PriceUSD:      decimal.NewFromFloat(s.Get("price.amount.usd").Float()),
			}
			if ts := s.Get("timestamp").Int(); ts > 0 {
				sale.Date = time.Unix(ts, 0).UTC().Format(saleDateLayout)
			}
			out = append(out, sale)
		}
		continuation = body.Get("continuation").String()
		if continuation == "" {
			break
		}
	}
	logger.Debugf("[NFTData] %s:%s 销售记录=%d", contractAddress, tokenID, len(out))
	return out, nil
}

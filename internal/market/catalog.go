package market

import (
	"sort"
	"strings"
)

// 中文说明：
// 行情 feed 目录。feed_id 形如 "ETH/USD"，每个条目映射到一个现货交易对，
// 历史数据从现货源拉取。

// Feed 单个可查询的行情 feed。
type Feed struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

var catalog = map[string]Feed{
	"BTC/USD":  {ID: "BTC/USD", Name: "Bitcoin", Symbol: "BTCUSDT"},
	"ETH/USD":  {ID: "ETH/USD", Name: "Ethereum", Symbol: "ETHUSDT"},
	"XRP/USD":  {ID: "XRP/USD", Name: "XRP", Symbol: "XRPUSDT"},
	"DOGE/USD": {ID: "DOGE/USD", Name: "Dogecoin", Symbol: "DOGEUSDT"},
	"SOL/USD":  {ID: "SOL/USD", Name: "Solana", Symbol: "SOLUSDT"},
	"AVAX/USD": {ID: "AVAX/USD", Name: "Avalanche", Symbol: "AVAXUSDT"},
	"BNB/USD":  {ID: "BNB/USD", Name: "Binance Coin", Symbol: "BNBUSDT"},
	"USDC/USD": {ID: "USDC/USD", Name: "USD Coin", Symbol: "USDCUSDT"},
}

// Feeds 返回按 ID 排序的完整目录。
func Feeds() []Feed {
	out := make([]Feed, 0, len(catalog))
	for _, f := range catalog {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Lookup 按 feed_id 查找条目（大小写不敏感）。
func Lookup(feedID string) (Feed, bool) {
	f, ok := catalog[strings.ToUpper(strings.TrimSpace(feedID))]
	return f, ok
}

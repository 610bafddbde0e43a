package feed

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/adshao/go-binance/v2"
)

// Binance 现货备用源（ETHUSDT 末价）。
type Binance struct {
	client *binance.Client
}

func NewBinance() *Binance {
	return &Binance{client: binance.NewClient("", "")}
}

func (b *Binance) Name() string { return "binance" }

func (b *Binance) ETHPriceUSD(ctx context.Context) (float64, error) {
	prices, err := b.client.NewListPricesService().Symbol("ETHUSDT").Do(ctx)
	if err != nil {
		return 0, err
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("binance: empty price list for ETHUSDT")
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(prices[0].Price), 64)
	if err != nil {
		return 0, fmt.Errorf("binance: parse price %q: %w", prices[0].Price, err)
	}
	if f <= 0 {
		return 0, fmt.Errorf("binance: non-positive price %v", f)
	}
	return f, nil
}

// FetchKlines 拉取现货 K 线（feed 历史用）。
func (b *Binance) FetchKlines(ctx context.Context, symbol, interval string, limit int) ([]Kline, error) {
	if limit <= 0 {
		limit = 100
	}
	symbol = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(symbol), "/", ""))
	if symbol == "" {
		return nil, fmt.Errorf("binance: symbol is required")
	}
	kls, err := b.client.NewKlinesService().Symbol(symbol).Interval(interval).Limit(limit).Do(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Kline, 0, len(kls))
	for _, kl := range kls {
		if kl == nil {
			continue
		}
		out = append(out, Kline{
			OpenTime:  kl.OpenTime,
			CloseTime: kl.CloseTime,
			Open:      parseFloat(kl.Open),
			High:      parseFloat(kl.High),
			Low:       parseFloat(kl.Low),
			Close:     parseFloat(kl.Close),
			Volume:    parseFloat(kl.Volume),
		})
	}
	return out, nil
}

// Kline 现货 K 线条目。
type Kline struct {
	OpenTime  int64
	CloseTime int64
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

func parseFloat(v string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
	return f
}

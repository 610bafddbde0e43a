package market

import (
	"context"
	"fmt"
	"strings"

	talib "github.com/markcheno/go-talib"

	"concord/internal/gateway/feed"
)

// HistoryPoint 一根历史 K 线的收盘快照。
type HistoryPoint struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// IndicatorSummary 历史区间的技术指标摘要。
type IndicatorSummary struct {
	SMA20  float64 `json:"sma_20,omitempty"`
	SMA50  float64 `json:"sma_50,omitempty"`
	RSI14  float64 `json:"rsi_14,omitempty"`
	Change float64 `json:"change_pct"`
}

// FeedHistory feed 历史响应。
type FeedHistory struct {
	Feed       Feed             `json:"feed"`
	Interval   string           `json:"interval"`
	Points     []HistoryPoint   `json:"points"`
	Indicators IndicatorSummary `json:"indicators"`
}

// HistoryService 从现货源拉取 feed 历史并计算指标摘要。
type HistoryService struct {
	source *feed.Binance
}

func NewHistoryService(source *feed.Binance) *HistoryService {
	return &HistoryService{source: source}
}

// FetchHistory 拉取指定 feed 的 K 线历史。interval 缺省 1d，limit 缺省 100。
func (s *HistoryService) FetchHistory(ctx context.Context, feedID, interval string, limit int) (*FeedHistory, error) {
	entry, ok := Lookup(feedID)
	if !ok {
		return nil, fmt.Errorf("market: unknown feed_id %q", feedID)
	}
	if s == nil || s.source == nil {
		return nil, fmt.Errorf("market: history source not configured")
	}
	interval = strings.ToLower(strings.TrimSpace(interval))
	if interval == "" {
		interval = "1d"
	}
	if limit <= 0 {
		limit = 100
	}

	klines, err := s.source.FetchKlines(ctx, entry.Symbol, interval, limit)
	if err != nil {
		return nil, fmt.Errorf("market: fetch %s history: %w", entry.ID, err)
	}

	points := make([]HistoryPoint, 0, len(klines))
	closes := make([]float64, 0, len(klines))
	for _, kl := range klines {
		points = append(points, HistoryPoint{
			Timestamp: kl.CloseTime,
			Open:      kl.Open,
			High:      kl.High,
			Low:       kl.Low,
			Close:     kl.Close,
			Volume:    kl.Volume,
		})
		closes = append(closes, kl.Close)
	}

	return &FeedHistory{
		Feed:       entry,
		Interval:   interval,
		Points:     points,
		Indicators: summarize(closes),
	}, nil
}

// summarize 对收盘序列计算 SMA/RSI 摘要。样本不足时相应指标留零。
func summarize(closes []float64) IndicatorSummary {
	out := IndicatorSummary{}
	n := len(closes)
	if n == 0 {
		return out
	}
	if first := closes[0]; first != 0 {
		out.Change = (closes[n-1] - first) / first * 100
	}
	if n > 20 {
		out.SMA20 = lastValue(talib.Sma(closes, 20))
	}
	if n > 50 {
		out.SMA50 = lastValue(talib.Sma(closes, 50))
	}
	if n > 14 {
		out.RSI14 = lastValue(talib.Rsi(closes, 14))
	}
	return out
}

func lastValue(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1]
}

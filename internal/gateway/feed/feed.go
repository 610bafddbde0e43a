package feed

import (
	"context"
	"fmt"

	"concord/internal/logger"
)

// SpotFeed 现货价格源。
type SpotFeed interface {
	Name() string
	ETHPriceUSD(ctx context.Context) (float64, error)
}

// Chain 依次尝试多个价格源，首个成功者生效。
type Chain struct {
	feeds []SpotFeed
}

func NewChain(feeds ...SpotFeed) *Chain {
	out := make([]SpotFeed, 0, len(feeds))
	for _, f := range feeds {
		if f != nil {
			out = append(out, f)
		}
	}
	return &Chain{feeds: out}
}

func (c *Chain) Name() string { return "chain" }

func (c *Chain) ETHPriceUSD(ctx context.Context) (float64, error) {
	var lastErr error
	for _, f := range c.feeds {
		price, err := f.ETHPriceUSD(ctx)
		if err == nil && price > 0 {
			return price, nil
		}
		if err != nil {
			logger.Warnf("[Feed] %s 获取 ETH/USD 失败: %v", f.Name(), err)
			lastErr = err
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("feed: no spot source configured")
	}
	return 0, lastErr
}

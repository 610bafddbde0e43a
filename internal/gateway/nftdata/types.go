package nftdata

import (
	"time"

	"github.com/shopspring/decimal"
)

const saleDateLayout = "2006-01-02 15:04:05"

// Sale 单笔成交记录。PriceUSD 为成交时按当时汇率折算的美元价。
type Sale struct {
	PriceEthereum decimal.Decimal `json:"price_ethereum"`
	PriceUSD      decimal.Decimal `json:"price_usd"`
	Date          string          `json:"date"`
}

// DateTime 解析 Date 字段，失败时返回零值。
func (s Sale) DateTime() time.Time {
	t, err := time.Parse(saleDateLayout, s.Date)
	if err != nil {
		return time.Time{}
	}
	return t
}

type Metadata struct {
	Symbol           string `json:"symbol"`
	RarityRank       string `json:"rarity_rank"`
	RarityPercentage string `json:"rarity_percentage"`
	Amount           string `json:"amount"`
}

// NFTData 聚合 Moralis 元数据与 Reservoir 销售历史。
// SalesHistory 按时间倒序（最新在前）。
type NFTData struct {
	Name         string   `json:"name"`
	Owner        string   `json:"owner,omitempty"`
	Image        string   `json:"image,omitempty"`
	TokenID      string   `json:"token_id"`
	TokenAddress string   `json:"token_address"`
	Metadata     Metadata `json:"metadata"`
	SalesHistory []Sale   `json:"sales_history"`
}

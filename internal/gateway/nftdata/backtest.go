package nftdata

const predictDateLayout = "January, 2006"

// BacktestContext 回测上下文：弹出的最新成交作为真值，其日期作为预测目标日期。
type BacktestContext struct {
	Enabled        bool
	ActualPriceUSD float64
	TargetDate     string
}

// PrepareBacktest 从销售历史弹出最新一笔成交并构造回测上下文。
// 弹出后剩余的历史才会交给模型，避免真值泄漏进提示词。
// 没有销售历史时返回 Enabled=false，数据保持原样。
func PrepareBacktest(nft *NFTData) BacktestContext {
	if nft == nil || len(nft.SalesHistory) == 0 {
		return BacktestContext{}
	}
	latest := nft.SalesHistory[0]
	nft.SalesHistory = nft.SalesHistory[1:]

	ctx := BacktestContext{
		Enabled:        true,
		ActualPriceUSD: latest.PriceUSD.InexactFloat64(),
	}
	if t := latest.DateTime(); !t.IsZero() {
		ctx.TargetDate = t.Format(predictDateLayout)
	}
	return ctx
}

// TargetDateFromHistory 返回（弹出真值后）剩余历史中最新成交的月份，
// 用于未显式指定预测日期的场景。
func TargetDateFromHistory(nft *NFTData) string {
	if nft == nil || len(nft.SalesHistory) == 0 {
		return ""
	}
	if t := nft.SalesHistory[0].DateTime(); !t.IsZero() {
		return t.Format(predictDateLayout)
	}
	return ""
}

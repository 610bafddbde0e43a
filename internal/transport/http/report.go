package http

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"concord/internal/consensus"
	"concord/internal/store/resultstore"
)

// handleRunReport 渲染单次评估的可视化报告（模型权重与价格分布）。
func (s *Server) handleRunReport(c *gin.Context) {
	if s.runs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "result store not configured"})
		return
	}
	id := c.Param("id")
	run, err := s.runs.GetRun(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}

	html, err := renderRunReport(run)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}

func renderRunReport(run *resultstore.RunModel) ([]byte, error) {
	breakdown := run.Breakdown()
	models := make([]string, 0, len(breakdown))
	for id := range breakdown {
		models = append(models, id)
	}
	sort.Strings(models)

	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(buildWeightChart(run, models, breakdown), buildConfidenceChart(models, breakdown))

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return buf.Bytes(), nil
}

func buildWeightChart(run *resultstore.RunModel, models []string, breakdown map[string]consensus.ModelBreakdown) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Consensus Weights — %s #%s", run.ContractAddress, run.TokenID),
			Subtitle: fmt.Sprintf("final price $%.2f", run.Price),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "weight"}),
	)

	weights := make([]opts.BarData, len(models))
	for i, id := range models {
		weights[i] = opts.BarData{Value: breakdown[id].Weight}
	}
	bar.SetXAxis(models).AddSeries("weight", weights)
	return bar
}

func buildConfidenceChart(models []string, breakdown map[string]consensus.ModelBreakdown) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: "Stability vs Similarity"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)

	similarity := make([]opts.BarData, len(models))
	change := make([]opts.BarData, len(models))
	for i, id := range models {
		similarity[i] = opts.BarData{Value: breakdown[id].TextSimilarity}
		change[i] = opts.BarData{Value: breakdown[id].PriceChange}
	}
	bar.SetXAxis(models).
		AddSeries("text_similarity", similarity).
		AddSeries("price_change", change)
	return bar
}

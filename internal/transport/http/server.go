package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"concord/internal/consensus"
	"concord/internal/market"
	"concord/internal/store/resultstore"
	"concord/internal/store/transcript"
)

// Server 提供评估与查询相关的 HTTP API。
type Server struct {
	addr        string
	engine      *consensus.Engine
	runs        *resultstore.Store
	transcripts *transcript.Store
	history     *market.HistoryService
	router      *gin.Engine
}

// Config 描述 HTTP Server 的依赖。
type Config struct {
	Addr        string
	Engine      *consensus.Engine
	Runs        *resultstore.Store
	Transcripts *transcript.Store
	History     *market.HistoryService
}

// NewServer 构建 HTTP Server。
func NewServer(cfg Config) (*Server, error) {
	if cfg.Engine == nil {
		return nil, errors.New("engine 不能为空")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8082"
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		addr:        cfg.Addr,
		engine:      cfg.Engine,
		runs:        cfg.Runs,
		transcripts: cfg.Transcripts,
		history:     cfg.History,
		router:      router,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.router.GET("/healthz", s.handleHealth)

	api := s.router.Group("/api")
	api.GET("/appraise/confidence", s.handleAppraiseConfidence)
	api.POST("/appraise", s.handleAppraise)
	api.GET("/runs", s.handleRunList)
	api.GET("/runs/:id", s.handleRunDetail)
	api.GET("/runs/:id/report", s.handleRunReport)
	api.GET("/feeds", s.handleFeeds)
	api.GET("/feeds/history", s.handleFeedHistory)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "ts": time.Now().Unix()})
}

func (s *Server) handleAppraiseConfidence(c *gin.Context) {
	contract := strings.TrimSpace(c.Query("contract_address"))
	tokenID := strings.TrimSpace(c.Query("token_id"))
	if contract == "" || tokenID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing contract_address or token_id parameters"})
		return
	}
	req := consensus.Request{ContractAddress: contract, TokenID: tokenID}
	if v := c.Query("challenges"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			req.Challenges = n
		}
	}
	s.runAppraisal(c, req)
}

func (s *Server) handleAppraise(c *gin.Context) {
	var body struct {
		ContractAddress string   `json:"contract_address" binding:"required"`
		TokenID         string   `json:"token_id" binding:"required"`
		Challenges      int      `json:"challenges"`
		DateToPredict   string   `json:"date_to_predict"`
		ActualValue     *float64 `json:"actual_value"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.runAppraisal(c, consensus.Request{
		ContractAddress: body.ContractAddress,
		TokenID:         body.TokenID,
		Challenges:      body.Challenges,
		DateToPredict:   body.DateToPredict,
		ActualValue:     body.ActualValue,
	})
}

// runAppraisal 执行评估并总是返回结构化 JSON；流水线失败时返回 500 + 结构化结果。
func (s *Server) runAppraisal(c *gin.Context, req consensus.Request) {
	result := s.engine.Appraise(c.Request.Context(), req)
	if result.Error != "" {
		c.JSON(http.StatusInternalServerError, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleRunList(c *gin.Context) {
	if s.runs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "result store not configured"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	runs, err := s.runs.ListRuns(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) handleRunDetail(c *gin.Context) {
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
	resp := gin.H{"run": run, "models": run.Breakdown()}
	if s.transcripts != nil {
		if entries, err := s.transcripts.ListByRun(c.Request.Context(), id); err == nil {
			resp["transcript"] = entries
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleFeeds(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"available_feeds": market.Feeds(), "status": "success"})
}

func (s *Server) handleFeedHistory(c *gin.Context) {
	feedID := strings.TrimSpace(c.Query("feed_id"))
	if feedID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required parameter: feed_id", "status": "failed"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	history, err := s.history.FetchHistory(c.Request.Context(), feedID, c.Query("interval"), limit)
	if err != nil {
		status := http.StatusInternalServerError
		if strings.Contains(err.Error(), "unknown feed_id") {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error(), "status": "failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"feed_data": history, "status": "success"})
}

// Start 启动 HTTP 服务，阻塞直到 ctx 取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

// Router 暴露底层 gin 路由，测试用。
func (s *Server) Router() *gin.Engine { return s.router }

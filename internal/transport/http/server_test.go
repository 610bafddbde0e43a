package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"concord/internal/consensus"
	"concord/internal/gateway/nftdata"
	"concord/internal/gateway/provider"
	"concord/internal/market"
	"concord/internal/store/resultstore"
	"concord/internal/store/transcript"
)

type fixedProvider struct {
	id    string
	reply string
}

func (p *fixedProvider) ID() string    { return p.id }
func (p *fixedProvider) Enabled() bool { return true }
func (p *fixedProvider) Call(context.Context, provider.ChatPayload) (string, error) {
	return p.reply, nil
}

type fixedNFTSource struct{}

func (fixedNFTSource) Fetch(context.Context, string, string) (*nftdata.NFTData, error) {
	return &nftdata.NFTData{Name: "Test NFT", TokenID: "1", TokenAddress: "0xabc"}, nil
}

type fixedPrompts struct{}

func (fixedPrompts) AppraisalSystem(string) string { return "system" }
func (fixedPrompts) AppraisalUser(string) string   { return "user" }
func (fixedPrompts) ChallengePrompts() []string    { return []string{"reconsider"} }

func newTestServer(t *testing.T) (*Server, *resultstore.Store) {
	t.Helper()
	dir := t.TempDir()
	results, err := resultstore.NewStore(filepath.Join(dir, "runs.db"))
	require.NoError(t, err)
	transcripts, err := transcript.NewStore(filepath.Join(dir, "transcripts.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = transcripts.Close()
		_ = results.Close()
	})

	providers := []provider.ModelProvider{
		&fixedProvider{id: "gpt", reply: `{"price": 105, "explanation": "steady"}`},
		&fixedProvider{id: "deepseek", reply: `{"price": 108, "explanation": "steady"}`},
	}
	engine := consensus.NewEngine(
		consensus.EngineConfig{Challenges: 1, PriceWeight: 0.5},
		consensus.NewRounds(providers, 1),
		consensus.NewSimilarityScorer(nil),
		consensus.NewAggregator(nil),
		fixedPrompts{},
		fixedNFTSource{},
		nil,
		results,
		nil,
	)

	srv, err := NewServer(Config{
		Addr:        ":0",
		Engine:      engine,
		Runs:        results,
		Transcripts: transcripts,
		History:     market.NewHistoryService(nil),
	})
	require.NoError(t, err)
	return srv, results
}

func doRequest(srv *Server, method, target, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	w := doRequest(srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestAppraiseConfidenceMissingParams(t *testing.T) {
	srv, _ := newTestServer(t)
	w := doRequest(srv, http.MethodGet, "/api/appraise/confidence?token_id=1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "contract_address")
}

func TestAppraiseConfidenceSuccess(t *testing.T) {
	srv, results := newTestServer(t)
	w := doRequest(srv, http.MethodGet, "/api/appraise/confidence?contract_address=0xabc&token_id=1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var result consensus.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.InDelta(t, 106.5, result.Price, 1e-9)
	assert.Len(t, result.Models, 2)
	assert.Empty(t, result.Error)

	// 评估结果同时进入历史
	runs, err := results.ListRuns(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestAppraisePostBody(t *testing.T) {
	srv, _ := newTestServer(t)
	w := doRequest(srv, http.MethodPost, "/api/appraise",
		`{"contract_address": "0xabc", "token_id": "1", "actual_value": 106.5}`)
	require.Equal(t, http.StatusOK, w.Code)

	var result consensus.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.NotNil(t, result.Accuracy)
	assert.InDelta(t, 1.0, *result.Accuracy, 1e-9)
}

func TestAppraisePostMissingFields(t *testing.T) {
	srv, _ := newTestServer(t)
	w := doRequest(srv, http.MethodPost, "/api/appraise", `{"token_id": "1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRunDetailNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	w := doRequest(srv, http.MethodGet, "/api/runs/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRunListAndDetail(t *testing.T) {
	srv, _ := newTestServer(t)
	// 先跑一次评估制造历史
	w := doRequest(srv, http.MethodGet, "/api/appraise/confidence?contract_address=0xabc&token_id=1", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(srv, http.MethodGet, "/api/runs", "")
	require.Equal(t, http.StatusOK, w.Code)
	var listResp struct {
		Runs []resultstore.RunModel `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listResp))
	require.Len(t, listResp.Runs, 1)

	w = doRequest(srv, http.MethodGet, "/api/runs/"+listResp.Runs[0].ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"models"`)
}

func TestRunReport(t *testing.T) {
	srv, _ := newTestServer(t)
	w := doRequest(srv, http.MethodGet, "/api/appraise/confidence?contract_address=0xabc&token_id=1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var listResp struct {
		Runs []resultstore.RunModel `json:"runs"`
	}
	w = doRequest(srv, http.MethodGet, "/api/runs", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listResp))
	require.Len(t, listResp.Runs, 1)

	w = doRequest(srv, http.MethodGet, "/api/runs/"+listResp.Runs[0].ID+"/report", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Consensus Weights")
}

func TestFeedsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	w := doRequest(srv, http.MethodGet, "/api/feeds", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ETH/USD")
	assert.Contains(t, w.Body.String(), `"status":"success"`)
}

func TestFeedHistoryMissingFeedID(t *testing.T) {
	srv, _ := newTestServer(t)
	w := doRequest(srv, http.MethodGet, "/api/feeds/history", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFeedHistoryUnknownFeed(t *testing.T) {
	srv, _ := newTestServer(t)
	w := doRequest(srv, http.MethodGet, "/api/feeds/history?feed_id=NOPE/USD", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

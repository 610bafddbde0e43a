package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFeed struct {
	name  string
	price float64
	err   error
	calls int
}

func (f *fakeFeed) Name() string { return f.name }
func (f *fakeFeed) ETHPriceUSD(context.Context) (float64, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.price, nil
}

func TestCoinGeckoETHPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		assert.Equal(t, "ethereum", r.URL.Query().Get("ids"))
		fmt.Fprint(w, `{"ethereum": {"usd": 3421.55}}`)
	}))
	defer srv.Close()

	cg := NewCoinGecko(srv.URL, 5*time.Second)
	price, err := cg.ETHPriceUSD(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 3421.55, price, 1e-9)
}

func TestCoinGeckoMissingPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	cg := NewCoinGecko(srv.URL, 5*time.Second)
	_, err := cg.ETHPriceUSD(context.Background())
	require.Error(t, err)
}

func TestChainFirstSuccessWins(t *testing.T) {
	broken := &fakeFeed{name: "broken", err: errors.New("unreachable")}
	good := &fakeFeed{name: "good", price: 3000}
	spare := &fakeFeed{name: "spare", price: 9999}

	chain := NewChain(broken, good, spare)
	price, err := chain.ETHPriceUSD(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 3000, price, 1e-9)
	assert.Equal(t, 1, broken.calls)
	assert.Equal(t, 1, good.calls)
	assert.Equal(t, 0, spare.calls)
}

func TestChainAllFail(t *testing.T) {
	chain := NewChain(&fakeFeed{name: "a", err: errors.New("x")}, &fakeFeed{name: "b", err: errors.New("y")})
	_, err := chain.ETHPriceUSD(context.Background())
	require.Error(t, err)
}

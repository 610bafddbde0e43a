package nftdata

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const moralisResponse = `{
	"token_address": "0xa7d8d9ef8d8ce8992df33d8b8cf4aebabd5bd270",
	"token_id": "9712",
	"owner_of": "0xowner",
	"amount": "1",
	"name": "Art Blocks",
	"symbol": "BLOCKS",
	"rarity_rank": "123",
	"rarity_percentage": "1.2",
	"metadata": "{\"image\": \"https://media.example/9712.png\"}"
}`

func TestFetchMetadataAndSales(t *testing.T) {
	moralis := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/nft/0xa7d/9712", r.URL.Path)
		assert.Equal(t, "eth", r.URL.Query().Get("chain"))
		assert.Equal(t, "moralis-key", r.Header.Get("X-API-Key"))
		fmt.Fprint(w, moralisResponse)
	}))
	defer moralis.Close()

	page := 0
	reservoir := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sales/v5", r.URL.Path)
		assert.Equal(t, "0xa7d:9712", r.URL.Query().Get("tokens"))
		page++
		if page == 1 {
			fmt.Fprint(w, `{"sales": [{"price": {"amount": {"native": 24.61, "usd": 61914.78}}, "timestamp": 1710072000}], "continuation": "next"}`)
			return
		}
		assert.Equal(t, "next", r.URL.Query().Get("continuation"))
		fmt.Fprint(w, `{"sales": [{"price": {"amount": {"native": 0.17, "usd": 422.72}}, "timestamp": 1500000000}]}`)
	}))
	defer reservoir.Close()

	client := NewClient(moralis.URL, "moralis-key", reservoir.URL, "reservoir-key", 5*time.Second)
	nft, err := client.Fetch(context.Background(), "0xa7d", "9712")
	require.NoError(t, err)

	assert.Equal(t, "Art Blocks", nft.Name)
	assert.Equal(t, "0xowner", nft.Owner)
	assert.Equal(t, "https://media.example/9712.png", nft.Image)
	assert.Equal(t, "BLOCKS", nft.Metadata.Symbol)
	assert.Equal(t, "123", nft.Metadata.RarityRank)

	require.Len(t, nft.SalesHistory, 2)
	assert.Equal(t, "24.61", nft.SalesHistory[0].PriceEthereum.String())
	assert.Equal(t, "61914.78", nft.SalesHistory[0].PriceUSD.String())
	assert.NotEmpty(t, nft.SalesHistory[0].Date)
}

func TestFetchKeepsMetadataWhenSalesFail(t *testing.T) {
	moralis := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, moralisResponse)
	}))
	defer moralis.Close()

	reservoir := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer reservoir.Close()

	client := NewClient(moralis.URL, "", reservoir.URL, "", 5*time.Second)
	nft, err := client.Fetch(context.Background(), "0xa7d", "9712")
	require.NoError(t, err)
	assert.Equal(t, "Art Blocks", nft.Name)
	assert.Empty(t, nft.SalesHistory)
}

func TestFetchMetadataError(t *testing.T) {
	moralis := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message": "invalid api key"}`)
	}))
	defer moralis.Close()

	client := NewClient(moralis.URL, "bad", moralis.URL, "", 5*time.Second)
	_, err := client.Fetch(context.Background(), "0xa7d", "9712")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestFetchRequiresParams(t *testing.T) {
	client := NewClient("http://unused", "", "http://unused", "", time.Second)
	_, err := client.Fetch(context.Background(), "", "1")
	assert.Error(t, err)
	_, err = client.Fetch(context.Background(), "0xabc", "  ")
	assert.Error(t, err)
}

package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/text-embedding-004:embedContent", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		var body struct {
			Model   string `json:"model"`
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "models/text-embedding-004", body.Model)
		require.Len(t, body.Content.Parts, 1)
		assert.Equal(t, "some explanation", body.Content.Parts[0].Text)

		fmt.Fprint(w, `{"embedding": {"values": [0.1, 0.2, 0.3]}}`)
	}))
	defer srv.Close()

	client := NewGeminiClient(srv.URL, "test-key", "", 5*time.Second)
	vec, err := client.Embed(context.Background(), "some explanation")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, vec)
}

func TestEmbedEmptyText(t *testing.T) {
	client := NewGeminiClient("http://unused", "k", "m", time.Second)
	_, err := client.Embed(context.Background(), "   ")
	assert.Error(t, err)
}

func TestEmbedAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error": {"message": "API key not valid"}}`)
	}))
	defer srv.Close()

	client := NewGeminiClient(srv.URL, "bad", "m", 5*time.Second)
	_, err := client.Embed(context.Background(), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key not valid")
}

func TestEmbedMissingVector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	client := NewGeminiClient(srv.URL, "k", "m", 5*time.Second)
	_, err := client.Embed(context.Background(), "text")
	assert.Error(t, err)
}

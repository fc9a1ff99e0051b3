package guestregistry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck_ReportsMissingCodes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body struct {
			Codes []string `json:"codes"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"ABC123", "DEF456", "GHI789"}, body.Codes)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":{"ABC123":true,"DEF456":false}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, zerolog.Nop())
	res := client.Check(context.Background(), []string{"ABC123", "DEF456", "GHI789"})

	assert.False(t, res.Degraded)
	assert.True(t, res.Results["ABC123"])
	assert.False(t, res.Results["GHI789"])
	assert.Equal(t, []string{"DEF456", "GHI789"}, res.Missing)
}

func TestCheck_ServerErrorIsDegraded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	res := NewClient(server.URL, time.Second, zerolog.Nop()).Check(context.Background(), []string{"ABC123"})
	assert.True(t, res.Degraded)
	assert.Contains(t, res.Error, "502")
	assert.Empty(t, res.Results)
}

func TestCheck_MalformedBodyIsDegraded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	res := NewClient(server.URL, time.Second, zerolog.Nop()).Check(context.Background(), []string{"ABC123"})
	assert.True(t, res.Degraded)
}

func TestCheck_Unconfigured(t *testing.T) {
	res := NewClient("", 0, zerolog.Nop()).Check(context.Background(), []string{"ABC123"})
	assert.True(t, res.Degraded)
}

func TestCheck_NoCodes(t *testing.T) {
	res := NewClient("", 0, zerolog.Nop()).Check(context.Background(), nil)
	assert.False(t, res.Degraded)
	assert.Empty(t, res.Missing)
}

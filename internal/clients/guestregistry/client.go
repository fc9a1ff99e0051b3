// Package guestregistry checks confirmation codes against the external guest
// registry. It is read-only and never part of matching.
package guestregistry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// Client for the guest registry lookup endpoint.
type Client struct {
	url    string
	client *http.Client
	log    zerolog.Logger
}

// NewClient creates a registry client. An empty url leaves it unconfigured:
// every check then comes back degraded.
func NewClient(url string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		url:    url,
		client: &http.Client{Timeout: timeout},
		log:    log.With().Str("client", "guest-registry").Logger(),
	}
}

// Result maps each code to whether the registry knows it. Degraded means the
// registry could not be asked; Results is then empty.
type Result struct {
	Results  map[string]bool `json:"results"`
	Missing  []string        `json:"missing"`
	Degraded bool            `json:"degraded"`
	Error    string          `json:"error,omitempty"`
}

// Check posts {codes} and reads {results}. Registry failures are returned as a
// degraded Result, not as an error.
func (c *Client) Check(ctx context.Context, codes []string) *Result {
	if len(codes) == 0 {
		return &Result{Results: map[string]bool{}, Missing: []string{}}
	}
	if c.url == "" {
		return degraded(fmt.Errorf("guest registry url not configured"))
	}

	body, err := json.Marshal(struct {
		Codes []string `json:"codes"`
	}{Codes: codes})
	if err != nil {
		return degraded(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return degraded(err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.log.Debug().Str("url", c.url).Int("codes", len(codes)).Msg("Checking codes")
	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Msg("Registry request failed")
		return degraded(fmt.Errorf("registry request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn().Int("status", resp.StatusCode).Msg("Registry returned error status")
		return degraded(fmt.Errorf("registry returned status %d", resp.StatusCode))
	}

	var payload struct {
		Results map[string]bool `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.log.Warn().Err(err).Msg("Failed to parse registry response")
		return degraded(fmt.Errorf("failed to parse response: %w", err))
	}

	out := &Result{Results: make(map[string]bool, len(codes)), Missing: []string{}}
	for _, code := range codes {
		known := payload.Results[code]
		out.Results[code] = known
		if !known {
			out.Missing = append(out.Missing, code)
		}
	}
	sort.Strings(out.Missing)

	c.log.Info().Int("codes", len(codes)).Int("missing", len(out.Missing)).Msg("Checked codes")
	return out
}

func degraded(err error) *Result {
	return &Result{Results: map[string]bool{}, Missing: []string{}, Degraded: true, Error: err.Error()}
}

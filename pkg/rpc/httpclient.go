// Package rpc is a small HTTP client for the consensus node's query
// endpoints, used by the stake-table and node-directory collaborators.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/sveitser/node-telemetry/pkg/chain"
)

// ErrNoEndpoints is returned when no request could be attempted because
// every configured endpoint's circuit breaker is open.
var ErrNoEndpoints = errors.New("all endpoints unavailable")

const (
	stakeTablePath = "/v1/stake-table"
	nodesPath      = "/v1/nodes"
)

// HTTPClient is a wrapper around an http.Client with endpoint failover and
// a per-endpoint circuit breaker.
type HTTPClient struct {
	endpoints []string
	client    *http.Client

	// circuit-breaker
	mu       sync.Mutex
	failures map[string]int
	opened   map[string]time.Time

	breakerThreshold int
	breakerCooldown  time.Duration
}

// Opts is the set of options for a new HTTPClient.
type Opts struct {
	Endpoints       []string
	Timeout         time.Duration
	BreakerFailures int
	BreakerCooldown time.Duration
	HTTPClient      *http.Client
}

// NewHTTPWithOpts creates a new HTTPClient with the given options.
func NewHTTPWithOpts(o Opts) *HTTPClient {
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}
	if o.BreakerFailures <= 0 {
		o.BreakerFailures = 3
	}
	if o.BreakerCooldown <= 0 {
		o.BreakerCooldown = 5 * time.Second
	}

	client := o.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: o.Timeout}
	}

	return &HTTPClient{
		endpoints:        dedup(o.Endpoints),
		client:           client,
		failures:         map[string]int{},
		opened:           map[string]time.Time{},
		breakerThreshold: o.BreakerFailures,
		breakerCooldown:  o.BreakerCooldown,
	}
}

// NewHTTP creates an HTTPClient with default options.
func NewHTTP(endpoints ...string) *HTTPClient {
	return NewHTTPWithOpts(Opts{Endpoints: endpoints})
}

func dedup(ss []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(ss))
	for _, s := range ss {
		if !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	return result
}

func (c *HTTPClient) isOpen(ep string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	until, ok := c.opened[ep]
	if !ok {
		return false
	}
	if time.Now().After(until) {
		delete(c.opened, ep)
		c.failures[ep] = 0
		return false
	}
	return true
}

func (c *HTTPClient) noteFailure(ep string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[ep]++
	if c.failures[ep] >= c.breakerThreshold {
		c.opened[ep] = time.Now().Add(c.breakerCooldown)
	}
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path string, payload any, out any) error {
	if len(c.endpoints) == 0 {
		return fmt.Errorf("no endpoints configured")
	}

	var lastErr error
	for i := 0; i < len(c.endpoints); i++ {
		ep := c.endpoints[i%len(c.endpoints)]
		if c.isOpen(ep) {
			continue
		}

		var body *bytes.Reader
		if payload != nil {
			b, mErr := json.Marshal(payload)
			if mErr != nil {
				return mErr
			}
			body = bytes.NewReader(b)
		} else {
			body = bytes.NewReader(nil)
		}

		req, reqErr := http.NewRequestWithContext(ctx, method, ep+path, body)
		if reqErr != nil {
			return reqErr
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			c.noteFailure(ep)
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server %d", resp.StatusCode)
			c.noteFailure(ep)
			resp.Body.Close()
			continue
		}
		if resp.StatusCode >= 300 {
			lastErr = fmt.Errorf("http %d", resp.StatusCode)
			resp.Body.Close()
			continue
		}

		if out != nil {
			rawBody, err := io.ReadAll(resp.Body)
			if err != nil {
				resp.Body.Close()
				lastErr = err
				continue
			}

			slog.Debug("rpc", "path", path, "len", len(rawBody))

			if err := json.Unmarshal(rawBody, out); err != nil {
				resp.Body.Close()
				lastErr = fmt.Errorf("json unmarshal: %w", err)
				continue
			}
		}

		resp.Body.Close()
		return nil
	}

	// All endpoints skipped by the breaker: lastErr is still nil, and
	// returning it would hand the caller a zero-value result as success.
	if lastErr == nil {
		return ErrNoEndpoints
	}
	return lastErr
}

// StakeTable fetches the node's current stake table, with both the head and
// last-epoch-start views.
func (c *HTTPClient) StakeTable(ctx context.Context) (*chain.EpochStakeTable, error) {
	var resp chain.EpochStakeTable
	if err := c.doJSON(ctx, http.MethodGet, stakeTablePath, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// NodeIdentities fetches the node directory: the identities of all known
// validators.
func (c *HTTPClient) NodeIdentities(ctx context.Context) ([]chain.NodeIdentity, error) {
	var resp struct {
		Nodes []chain.NodeIdentity `json:"nodes"`
	}
	if err := c.doJSON(ctx, http.MethodGet, nodesPath, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Nodes, nil
}

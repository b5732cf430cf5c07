// Package api holds clients for external collaborators. The identity
// registry maps display names to stable cross-game ids; it is optional and
// the core works standalone without it.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"duel-tracker/internal/config"

	"github.com/valyala/fasthttp"
)

type RegistryClient struct {
	baseURL string
	client  *fasthttp.Client
}

type identityResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func NewRegistryClient(cfg *config.Config) *RegistryClient {
	return &RegistryClient{
		baseURL: cfg.RegistryBaseURL,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         10 * time.Second,
			WriteTimeout:        10 * time.Second,
			MaxIdleConnDuration: 1 * time.Minute,
		},
	}
}

// Enabled reports whether a registry endpoint is configured.
func (c *RegistryClient) Enabled() bool {
	return c.baseURL != ""
}

// ResolveIdentity looks a name up in the registry. Returns "" without error
// when the registry has no identity for the name (or is not configured);
// the caller then mints a fresh local id.
func (c *RegistryClient) ResolveIdentity(ctx context.Context, name string) (string, error) {
	if !c.Enabled() {
		return "", nil
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fmt.Sprintf("%s/v1/identities?name=%s", c.baseURL, url.QueryEscape(name)))
	req.Header.SetMethod(fasthttp.MethodGet)

	deadline, ok := ctx.Deadline()
	if ok {
		if err := c.client.DoDeadline(req, resp, deadline); err != nil {
			return "", err
		}
	} else {
		if err := c.client.Do(req, resp); err != nil {
			return "", err
		}
	}

	if resp.StatusCode() == fasthttp.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return "", fmt.Errorf("registry error: %d", resp.StatusCode())
	}

	var result identityResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", fmt.Errorf("failed to decode registry response: %w", err)
	}
	return result.ID, nil
}

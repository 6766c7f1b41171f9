// Package client talks to other biblion nodes over HTTP.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/totegamma/biblion"
)

const (
	defaultTimeout = 3 * time.Second

	// ResourceEndpoint is the well-known endpoint name of the resource lookup.
	ResourceEndpoint = "biblion.resource"
)

type Client struct {
	client    *http.Client
	cache     *cache.Cache
	userAgent string
	scheme    string
}

func New(userAgent string) *Client {
	httpClient := http.Client{
		Timeout: defaultTimeout,
	}

	c := &Client{
		client:    &httpClient,
		cache:     cache.New(10*time.Minute, 15*time.Minute),
		userAgent: userAgent,
		scheme:    "https",
	}
	httpClient.Transport = c
	return c
}

// WithScheme switches the transport scheme, plain http is used against test servers.
func (c *Client) WithScheme(scheme string) *Client {
	c.scheme = scheme
	return c
}

func (c *Client) RoundTrip(req *http.Request) (*http.Response, error) {
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return http.DefaultTransport.RoundTrip(req)
}

func (c *Client) do(ctx context.Context, method, host, path, accept string) (*http.Response, error) {
	if host == "" {
		return nil, fmt.Errorf("host cannot be empty")
	}

	target := c.scheme + "://" + host + path
	slog.DebugContext(ctx, "outgoing request", slog.String("url", target), slog.String("module", "client"))

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to perform request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return resp, nil
}

func (c *Client) HttpRequest(ctx context.Context, method, host, path string, response any) error {
	resp, err := c.do(ctx, method, host, path, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	err = json.NewDecoder(resp.Body).Decode(response)
	if err != nil {
		return fmt.Errorf("failed to decode response: %v", err)
	}
	return nil
}

func (c *Client) HttpRequestText(ctx context.Context, method, host, path string) (string, error) {
	resp, err := c.do(ctx, method, host, path, "")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	bytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %v", err)
	}
	return string(bytes), nil
}

// GetServer fetches the node descriptor of host. Descriptors are cached.
func (c *Client) GetServer(ctx context.Context, host string) (biblion.WellKnownBiblion, error) {
	cacheKey := "server:" + host
	if x, found := c.cache.Get(cacheKey); found {
		return x.(biblion.WellKnownBiblion), nil
	}

	var wkb biblion.WellKnownBiblion
	err := c.HttpRequest(ctx, http.MethodGet, host, "/.well-known/biblion", &wkb)
	if err != nil {
		return biblion.WellKnownBiblion{}, fmt.Errorf("failed to get well-known biblion of %s: %v", host, err)
	}

	c.cache.Set(cacheKey, wkb, cache.DefaultExpiration)
	return wkb, nil
}

// GetResource resolves a bib URI on the node that hosts it.
func (c *Client) GetResource(ctx context.Context, uri string, accept string, result any) error {
	host, _, err := biblion.ParseURI(uri)
	if err != nil {
		return fmt.Errorf("failed to parse bib uri: %v", err)
	}

	info, err := c.GetServer(ctx, host)
	if err != nil {
		return err
	}

	endpoint, ok := info.Endpoints[ResourceEndpoint]
	if !ok {
		return fmt.Errorf("resource endpoint not found on %s", host)
	}
	path := strings.ReplaceAll(endpoint.Template, "{uri}", url.QueryEscape(uri))

	domain := info.Domain
	if domain == "" {
		domain = host
	}

	resp, err := c.do(ctx, http.MethodGet, domain, path, accept)
	if err != nil {
		return fmt.Errorf("failed to get resource: %v", err)
	}
	defer resp.Body.Close()

	err = json.NewDecoder(resp.Body).Decode(result)
	if err != nil {
		return fmt.Errorf("failed to decode resource: %v", err)
	}
	return nil
}

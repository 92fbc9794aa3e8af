package cellservice

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/aurae-runtime/auraed/internal/aeerror"
	"github.com/aurae-runtime/auraed/internal/transport"
)

// Client is the typed Go client for CellService/ObserveService,
// grounded on canonical-lxd/client's httpsLXD wrapping a per-connection
// *http.Client. A fresh Client is built for every hop; nothing is
// cached across RPCs.
type Client struct {
	http    *http.Client
	baseURL string
}

// NewClient dials cfg.System (a Unix socket path or host:port) and
// returns a ready client. TLS material is loaded fresh every call;
// nothing is cached across client creations.
func NewClient(cfg transport.Config) (*Client, error) {
	httpClient, err := transport.NewClient(cfg)
	if err != nil {
		return nil, err
	}

	return &Client{http: httpClient, baseURL: transport.BaseURL(cfg)}, nil
}

func (c *Client) do(method, path string, reqBody, respBody any) error {
	var body io.Reader

	if reqBody != nil {
		encoded, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}

		body = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr apiError
		if jsonErr := json.Unmarshal(payload, &apiErr); jsonErr == nil && apiErr.Code != "" {
			return &aeerror.Error{Code: aeerror.Code(apiErr.Code), Message: apiErr.Message}
		}

		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if respBody == nil || len(payload) == 0 {
		return nil
	}

	if err := json.Unmarshal(payload, respBody); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

// Allocate calls CellService.Allocate on the connected daemon.
func (c *Client) Allocate(req AllocateRequest) (*AllocateResponse, error) {
	var resp AllocateResponse
	if err := c.do(http.MethodPost, "/v1/cell/allocate", req, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

// Free calls CellService.Free on the connected daemon.
func (c *Client) Free(req FreeRequest) error {
	return c.do(http.MethodPost, "/v1/cell/free", req, nil)
}

// Start calls CellService.Start on the connected daemon.
func (c *Client) Start(req StartRequest) (*StartResponse, error) {
	var resp StartResponse
	if err := c.do(http.MethodPost, "/v1/cell/start", req, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

// Stop calls CellService.Stop on the connected daemon.
func (c *Client) Stop(req StopRequest) error {
	return c.do(http.MethodPost, "/v1/cell/stop", req, nil)
}

// Discover calls the supplemented health/version endpoint.
func (c *Client) Discover() (*DiscoverResponse, error) {
	var resp DiscoverResponse
	if err := c.do(http.MethodGet, "/v1/discover", nil, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

// Package api is the HTTP client for the contracts data-explorer backend.
//
// Two underlying http.Clients are used: a short-timeout client for estimate,
// search and filter-options calls, and a streaming client with only a
// response-header timeout for export transfers, which may legitimately run
// for minutes and are bounded by the caller's context instead.
package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/chipview/pkg/debug"
	"github.com/vanderheijden86/chipview/pkg/model"
)

// Default timeouts. EstimateTimeout is deliberately short: estimation failing
// fast is preferable to blocking the confirmation step.
const (
	DefaultEstimateTimeout = 15 * time.Second
	DefaultHeaderTimeout   = 30 * time.Second
)

// ClientConfig configures a Client.
type ClientConfig struct {
	// BaseURL is the server root, e.g. "https://philgeps.example.org".
	BaseURL string
	// EstimateTimeout bounds estimate/search/filter-options requests.
	EstimateTimeout time.Duration
	// HeaderTimeout bounds how long an export request may take to return
	// response headers. The body read has no deadline.
	HeaderTimeout time.Duration
	UserAgent     string
}

// Client talks to the contracts API.
type Client struct {
	base      string
	client    *http.Client // short requests with overall timeout
	streamCli *http.Client // export streams, header timeout only
	userAgent string
}

// NewClient creates a Client from cfg, applying defaults for zero fields.
func NewClient(cfg ClientConfig) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		return nil, fmt.Errorf("api: base URL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("api: invalid base URL: %w", err)
	}
	if cfg.EstimateTimeout == 0 {
		cfg.EstimateTimeout = DefaultEstimateTimeout
	}
	if cfg.HeaderTimeout == 0 {
		cfg.HeaderTimeout = DefaultHeaderTimeout
	}

	return &Client{
		base: base,
		client: &http.Client{
			Timeout: cfg.EstimateTimeout,
		},
		streamCli: &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: cfg.HeaderTimeout,
			},
		},
		userAgent: cfg.UserAgent,
	}, nil
}

// StatusError is a non-2xx response. The body is captured (truncated) so the
// UI can show what the server said.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("server returned %d", e.Code)
	}
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Body)
}

const maxErrorBody = 512

func (c *Client) endpoint(path string) string {
	return c.base + "/api/v1/contracts/" + strings.TrimLeft(path, "/")
}

// postJSON issues a short POST and decodes the JSON response into out.
func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	debug.Log("POST %s (%d bytes)", path, len(payload))
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return readStatusError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func readStatusError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
}

// EstimateExport returns the row/byte estimate for a contract export.
func (c *Client) EstimateExport(ctx context.Context, filters model.ChipFilters) (model.Estimate, error) {
	var est model.Estimate
	err := c.postJSON(ctx, "chip-export-estimate", filters, &est)
	return est, err
}

// EstimateAggregatedExport returns the estimate for an aggregated export
// along the given dimension.
func (c *Client) EstimateAggregatedExport(ctx context.Context, filters model.ChipFilters, dim model.Dimension) (model.Estimate, error) {
	var est model.Estimate
	err := c.postJSON(ctx, "chip-export-aggregated-estimate", aggregatedRequest{ChipFilters: filters, Dimension: dim}, &est)
	return est, err
}

// ExportStream is an open export transfer. Body must be closed by the caller.
// ContentLength is -1 when the server streams without declaring a size, which
// is the normal case for this backend.
type ExportStream struct {
	Body          io.ReadCloser
	ContentLength int64
	Filename      string // from Content-Disposition, may be empty
}

type exportRequest struct {
	model.ChipFilters
	StartRank int64 `json:"startRank"`
	EndRank   int64 `json:"endRank"`
}

type aggregatedRequest struct {
	model.ChipFilters
	Dimension model.Dimension `json:"dimension"`
}

type aggregatedExportRequest struct {
	aggregatedRequest
	StartRank int64 `json:"startRank"`
	EndRank   int64 `json:"endRank"`
}

// OpenExport starts a contract CSV export transfer bound to ctx. Cancelling
// ctx aborts the underlying request mid-body.
func (c *Client) OpenExport(ctx context.Context, filters model.ChipFilters, startRank, endRank int64) (*ExportStream, error) {
	return c.openStream(ctx, "chip-export", exportRequest{ChipFilters: filters, StartRank: startRank, EndRank: endRank})
}

// OpenAggregatedExport starts an aggregated CSV export transfer bound to ctx.
func (c *Client) OpenAggregatedExport(ctx context.Context, filters model.ChipFilters, dim model.Dimension, startRank, endRank int64) (*ExportStream, error) {
	return c.openStream(ctx, "chip-export-aggregated", aggregatedExportRequest{
		aggregatedRequest: aggregatedRequest{ChipFilters: filters, Dimension: dim},
		StartRank:         startRank,
		EndRank:           endRank,
	})
}

func (c *Client) openStream(ctx context.Context, path string, body any) (*ExportStream, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/csv")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.streamCli.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, readStatusError(resp)
	}

	return &ExportStream{
		Body:          resp.Body,
		ContentLength: resp.ContentLength,
		Filename:      dispositionFilename(resp.Header.Get("Content-Disposition")),
	}, nil
}

// dispositionFilename extracts filename="..." from a Content-Disposition
// header. Returns "" when absent or unparseable.
func dispositionFilename(h string) string {
	const marker = "filename="
	i := strings.Index(h, marker)
	if i < 0 {
		return ""
	}
	name := h[i+len(marker):]
	if j := strings.IndexByte(name, ';'); j >= 0 {
		name = name[:j]
	}
	return strings.Trim(strings.TrimSpace(name), `"`)
}

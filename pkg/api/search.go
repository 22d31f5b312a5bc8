package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/chipview/pkg/model"
)

type searchRequest struct {
	model.ChipFilters
	Page          int    `json:"page"`
	PageSize      int    `json:"page_size"`
	SortBy        string `json:"sortBy,omitempty"`
	SortDirection string `json:"sortDirection,omitempty"`
}

type searchResponse struct {
	Data       []model.Contract `json:"data"`
	Pagination model.Pagination `json:"pagination"`
}

type aggregatesPageRequest struct {
	aggregatedRequest
	Page          int    `json:"page"`
	PageSize      int    `json:"page_size"`
	SortBy        string `json:"sortBy,omitempty"`
	SortDirection string `json:"sortDirection,omitempty"`
}

type aggregatesResponse struct {
	Data       []model.AggregateRow `json:"data"`
	Pagination model.Pagination     `json:"pagination"`
}

// ChipSearch fetches one page of contract rows matching the filters, newest
// award first (the backend's export ordering, so ranks line up).
func (c *Client) ChipSearch(ctx context.Context, filters model.ChipFilters, page, pageSize int) ([]model.Contract, model.Pagination, error) {
	var out searchResponse
	err := c.postJSON(ctx, "chip-search", searchRequest{
		ChipFilters:   filters,
		Page:          page,
		PageSize:      pageSize,
		SortBy:        "award_date",
		SortDirection: "desc",
	}, &out)
	return out.Data, out.Pagination, err
}

// ChipAggregates fetches one page of aggregated rows for the given dimension,
// largest total value first.
func (c *Client) ChipAggregates(ctx context.Context, filters model.ChipFilters, dim model.Dimension, page, pageSize int) ([]model.AggregateRow, model.Pagination, error) {
	var out aggregatesResponse
	err := c.postJSON(ctx, "chip-aggregates-paginated", aggregatesPageRequest{
		aggregatedRequest: aggregatedRequest{ChipFilters: filters, Dimension: dim},
		Page:              page,
		PageSize:          pageSize,
		SortBy:            "total_value",
		SortDirection:     "desc",
	}, &out)
	return out.Data, out.Pagination, err
}

// FilterOptions fetches the available filter values for pickers.
func (c *Client) FilterOptions(ctx context.Context) (model.FilterOptions, error) {
	var opts model.FilterOptions

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("filter-options"), nil)
	if err != nil {
		return opts, fmt.Errorf("create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return opts, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return opts, readStatusError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(&opts); err != nil {
		return opts, fmt.Errorf("decode response: %w", err)
	}
	return opts, nil
}

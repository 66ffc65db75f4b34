// Copyright (c) 2025 BVK Chaitanya

package seller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// HTTPError is returned for api responses with a non-2xx status code.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %s %s returned %d", e.Method, e.URL, e.StatusCode)
}

// Client issues supply-manager api requests on behalf of an identity.
type Client struct {
	opts Options

	identity *Identity

	client *http.Client

	limiter *rate.Limiter

	// now is the clock for the acceptance costs date window.
	now func() time.Time
}

// New creates a client that authenticates with the given identity.
func New(identity *Identity, opts *Options) (*Client, error) {
	if opts == nil {
		opts = new(Options)
	}
	c := &Client{
		opts:     *opts,
		identity: identity,
		now:      time.Now,
	}
	c.opts.setDefaults()
	if err := c.opts.Check(); err != nil {
		return nil, err
	}
	c.client = &http.Client{Timeout: c.opts.HttpClientTimeout}
	c.limiter = rate.NewLimiter(rate.Limit(c.opts.RequestsPerSecond), 1)
	return c, nil
}

// Identity returns the identity used by the client.
func (c *Client) Identity() *Identity {
	return c.identity
}

// ListSupplies returns the first page of supplies with the given status,
// newest first.
func (c *Client) ListSupplies(ctx context.Context, statusID int) (*ListSuppliesResponse, error) {
	request := &rpcRequest{
		Params: &listSuppliesParams{
			PageNumber:    1,
			PageSize:      100,
			SortBy:        "createDate",
			SortDirection: "desc",
			StatusID:      statusID,
		},
		JSONRPC: "2.0",
		ID:      "json-rpc_33",
	}
	resp := new(ListSuppliesResponse)
	if err := c.httpPostJSON(ctx, "listSupplies", request, resp); err != nil {
		return nil, fmt.Errorf("could not list supplies with status %d: %w", statusID, err)
	}
	return resp, nil
}

// NotPlannedSupplies returns supplies that are not yet scheduled.
func (c *Client) NotPlannedSupplies(ctx context.Context) (*ListSuppliesResponse, error) {
	return c.ListSupplies(ctx, StatusNotPlanned)
}

// AllSupplies returns supplies in every status.
func (c *Client) AllSupplies(ctx context.Context) (*ListSuppliesResponse, error) {
	return c.ListSupplies(ctx, StatusAll)
}

// AcceptanceCosts returns the per-date acceptance costs of a supply, from now
// through the given number of days.
func (c *Client) AcceptanceCosts(ctx context.Context, preorderID int64, days int) (*AcceptanceCostsResponse, error) {
	from, to := dateWindow(c.now(), days)
	request := &rpcRequest{
		Params: &acceptanceCostsParams{
			DateFrom:   from,
			DateTo:     to,
			PreorderID: preorderID,
		},
		JSONRPC: "2.0",
		ID:      "json-rpc_39",
	}
	resp := new(AcceptanceCostsResponse)
	if err := c.httpPostJSON(ctx, "getAcceptanceCosts", request, resp); err != nil {
		return nil, fmt.Errorf("could not get acceptance costs for preorder %d: %w", preorderID, err)
	}
	return resp, nil
}

// AcceptanceCostsForSupplies fetches the acceptance costs of every supply
// that has a preorder id, one request at a time. A failed lookup yields an
// empty list for that supply only.
func (c *Client) AcceptanceCostsForSupplies(ctx context.Context, days int, supplies []*Supply) (map[int64][]*Cost, error) {
	result := make(map[int64][]*Cost, len(supplies))
	for _, s := range supplies {
		if s == nil || s.PreorderID == nil {
			continue
		}
		id := *s.PreorderID
		resp, err := c.AcceptanceCosts(ctx, id, days)
		if err != nil {
			if ctx.Err() != nil {
				return nil, context.Cause(ctx)
			}
			slog.Warn("could not fetch acceptance costs (ignored)", "preorder", id, "err", err)
			result[id] = []*Cost{}
			continue
		}
		costs := make([]*Cost, 0, len(resp.Result.Costs))
		for _, cost := range resp.Result.Costs {
			if cost != nil {
				costs = append(costs, cost)
			}
		}
		result[id] = costs
	}
	return result, nil
}

// dateWindow returns the dateFrom and dateTo values for the given number of
// days starting at now. Window ends at the midnight (utc) of the last day.
func dateWindow(now time.Time, days int) (string, string) {
	const layout = "2006-01-02T15:04:05.000Z07:00"

	now = now.UTC()
	last := now.AddDate(0, 0, max(days, 1)-1)
	midnight := time.Date(last.Year(), last.Month(), last.Day(), 0, 0, 0, 0, time.UTC)
	return now.Format(layout), midnight.Format(layout)
}

func (c *Client) endpoint(method string) string {
	return strings.TrimSuffix(c.opts.BaseURL, "/") + "/" + url.PathEscape(method)
}

func (c *Client) httpPostJSON(ctx context.Context, method string, request, resultPtr any) error {
	payload, err := json.Marshal(request)
	if err != nil {
		return err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	addr := c.endpoint(method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, addr, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", c.opts.Origin)
	req.Header.Set("Referer", strings.TrimSuffix(c.opts.Origin, "/")+"/")
	req.Header.Set("User-Agent", c.opts.UserAgent)
	if c.identity != nil {
		req.Header.Set("Authorizev3", c.identity.Token())
		req.Header.Set("Cookie", c.identity.CookieHeader())
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &HTTPError{
			Method:     http.MethodPost,
			URL:        addr,
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(resultPtr); err != nil {
		return fmt.Errorf("could not decode response to json: %w", err)
	}
	return nil
}

// SupplyURL returns the portal page of a supply.
func SupplyURL(preorderID int64) string {
	values := make(url.Values)
	values.Set("preorderId", strconv.FormatInt(preorderID, 10))
	return PortalURL + "/supplies-management/all-supplies/supply-detail?" + values.Encode()
}

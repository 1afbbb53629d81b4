package siteinfo

import (
	"context"
	"net/url"

	"github.com/ziadkadry99/revlens/internal/fetch"
)

// Getter performs Action API requests. *fetch.Client implements it.
type Getter interface {
	Get(ctx context.Context, params url.Values, out any) error
}

// Client fetches siteinfo from the Action API.
type Client struct {
	api Getter
}

// NewClient creates a siteinfo client on top of an API getter.
func NewClient(api Getter) *Client {
	return &Client{api: api}
}

// Fetch requests the general, namespace and special-page alias sections.
func (c *Client) Fetch(ctx context.Context) (*Info, error) {
	params := url.Values{
		"action": {"query"},
		"meta":   {"siteinfo"},
		"siprop": {"general|namespaces|namespacealiases|specialpagealiases"},
	}
	var resp struct {
		Query *Info `json:"query"`
	}
	if err := c.api.Get(ctx, params, &resp); err != nil {
		return nil, err
	}
	if resp.Query == nil {
		return nil, fetch.Errorf("badresponse", "siteinfo response has no query object")
	}
	return resp.Query, nil
}

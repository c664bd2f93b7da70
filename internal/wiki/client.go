package wiki

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"wikifinder/internal/config"
)

const defaultPageLimit = 100

// Client talks to a Confluence-style wiki REST API
type Client struct {
	baseURL  string
	username string
	apiToken string
	client   *http.Client
}

// Space is a wiki space
type Space struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Page is a wiki page with its rendered body
type Page struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  struct {
		View struct {
			Value string `json:"value"`
		} `json:"view"`
	} `json:"body"`
	Version struct {
		Number int `json:"number"`
	} `json:"version"`
}

// NewClient creates a wiki client from config
func NewClient(cfg config.WikiConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("wiki base_url is required")
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		username: cfg.Username,
		apiToken: cfg.APIToken,
		client:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Spaces lists all spaces
func (c *Client) Spaces(ctx context.Context) ([]Space, error) {
	var result struct {
		Results []Space `json:"results"`
	}
	if err := c.get(ctx, "/wiki/rest/api/space", nil, &result); err != nil {
		return nil, fmt.Errorf("failed to get spaces: %w", err)
	}
	return result.Results, nil
}

// PagesInSpace lists pages in a space with their rendered bodies
func (c *Client) PagesInSpace(ctx context.Context, spaceKey string) ([]Page, error) {
	params := url.Values{
		"spaceKey": {spaceKey},
		"limit":    {strconv.Itoa(defaultPageLimit)},
		"expand":   {"body.view,version"},
	}
	var result struct {
		Results []Page `json:"results"`
	}
	if err := c.get(ctx, "/wiki/rest/api/content", params, &result); err != nil {
		return nil, fmt.Errorf("failed to get pages in space %s: %w", spaceKey, err)
	}
	return result.Results, nil
}

// PageContent fetches a single page with its rendered body
func (c *Client) PageContent(ctx context.Context, pageID string) (*Page, error) {
	params := url.Values{"expand": {"body.view,version"}}
	var page Page
	if err := c.get(ctx, "/wiki/rest/api/content/"+url.PathEscape(pageID), params, &page); err != nil {
		return nil, fmt.Errorf("failed to get page %s: %w", pageID, err)
	}
	return &page, nil
}

// PageURL returns the canonical view URL for a page
func (c *Client) PageURL(pageID string) string {
	return fmt.Sprintf("%s/wiki/pages/viewpage.action?pageId=%s", c.baseURL, pageID)
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.username, c.apiToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

package zotero

import (
	"context"
	stdjson "encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/encoding/json"

	"github.com/slub/lisztbib/internal/core/domain"
	"github.com/slub/lisztbib/internal/core/ports/driven"
)

const (
	// APIVersion is the Zotero Web API version requested.
	APIVersion = "3"

	// HeaderAPIKey carries the API key.
	HeaderAPIKey = "Zotero-API-Key"

	// HeaderAPIVersion selects the API version.
	HeaderAPIVersion = "Zotero-API-Version"

	// HeaderTotalResults holds the size of the full result set.
	HeaderTotalResults = "Total-Results"

	// UserAgent identifies the client.
	UserAgent = "lisztbib"

	// maxErrorBody bounds how much of an error response is kept.
	maxErrorBody = 512
)

// Ensure Client implements the interface.
var _ driven.BibliographySource = (*Client)(nil)

// Doer executes HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client reads a Zotero group library.
type Client struct {
	http        Doer
	apiURL      string
	schemaURL   string
	apiKey      string
	rateLimiter *RateLimiter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(d Doer) Option {
	return func(c *Client) {
		c.http = d
	}
}

// WithRateLimiter replaces the rate limiter.
func WithRateLimiter(r *RateLimiter) Option {
	return func(c *Client) {
		c.rateLimiter = r
	}
}

// NewClient creates a client for the configured API and schema endpoints.
// Each request is bounded by timeout; zero means no timeout.
func NewClient(cfg domain.ZoteroConfig, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		http:        &http.Client{Timeout: timeout},
		apiURL:      strings.TrimRight(cfg.APIURL, "/"),
		schemaURL:   cfg.SchemaURL,
		apiKey:      cfg.APIKey,
		rateLimiter: NewRateLimiter(cfg.RequestsPerSecond),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// schema is the part of the item schema the client reads.
type schema struct {
	Locales map[string]stdjson.RawMessage `json:"locales"`
}

// envelope wraps one item of an items response.
type envelope struct {
	Key  string             `json:"key"`
	Data stdjson.RawMessage `json:"data"`
}

// itemKey reads the key field of an item's data object.
type itemKey struct {
	Key string `json:"key"`
}

// FetchLocales returns the locale table of the item schema, sorted by code.
func (c *Client) FetchLocales(ctx context.Context) (domain.Locales, error) {
	resp, err := c.get(ctx, c.schemaURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var s schema
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: decode schema: %v", domain.ErrMalformedResponse, err)
	}
	if s.Locales == nil {
		return nil, fmt.Errorf("%w: schema has no locales", domain.ErrMalformedResponse)
	}

	locales := make(domain.Locales, 0, len(s.Locales))
	for code, raw := range s.Locales {
		locales = append(locales, domain.LocaleEntry{Code: code, Raw: raw})
	}
	sort.Slice(locales, func(i, j int) bool {
		return locales[i].Code < locales[j].Code
	})
	return locales, nil
}

// FetchTotalCount returns the number of top-level items in the group,
// read from the Total-Results header of a one-item request.
func (c *Client) FetchTotalCount(ctx context.Context, groupID string) (int, error) {
	resp, err := c.get(ctx, c.itemsURL(groupID, url.Values{"limit": {"1"}}))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	header := resp.Header.Get(HeaderTotalResults)
	if header == "" {
		return 0, fmt.Errorf("%w: %s header missing", domain.ErrMalformedResponse, HeaderTotalResults)
	}
	total, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || total < 0 {
		return 0, fmt.Errorf("%w: invalid %s header %q", domain.ErrMalformedResponse, HeaderTotalResults, header)
	}
	return total, nil
}

// FetchPage returns up to limit top-level items starting at offset.
// Each item is the data object of its envelope, kept verbatim.
func (c *Client) FetchPage(ctx context.Context, groupID string, offset, limit int) ([]domain.BibliographyItem, error) {
	params := url.Values{
		"start": {strconv.Itoa(offset)},
		"limit": {strconv.Itoa(limit)},
	}
	resp, err := c.get(ctx, c.itemsURL(groupID, params))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var envelopes []envelope
	if err := json.NewDecoder(resp.Body).Decode(&envelopes); err != nil {
		return nil, fmt.Errorf("%w: decode items at offset %d: %v", domain.ErrMalformedResponse, offset, err)
	}

	items := make([]domain.BibliographyItem, 0, len(envelopes))
	for i, env := range envelopes {
		item, err := toItem(env)
		if err != nil {
			return nil, fmt.Errorf("item %d at offset %d: %w", i, offset, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func toItem(env envelope) (domain.BibliographyItem, error) {
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return domain.BibliographyItem{}, fmt.Errorf("%w: item has no data", domain.ErrMalformedResponse)
	}
	var k itemKey
	if err := json.Unmarshal(env.Data, &k); err != nil {
		return domain.BibliographyItem{}, fmt.Errorf("%w: item data is not an object: %v", domain.ErrMalformedResponse, err)
	}
	key := k.Key
	if key == "" {
		key = env.Key
	}
	if key == "" {
		return domain.BibliographyItem{}, fmt.Errorf("%w: item has no key", domain.ErrMalformedResponse)
	}
	return domain.BibliographyItem{Key: key, Raw: env.Data}, nil
}

func (c *Client) itemsURL(groupID string, params url.Values) string {
	params.Set("format", "json")
	return fmt.Sprintf("%s/groups/%s/items/top?%s", c.apiURL, url.PathEscape(groupID), params.Encode())
}

// get issues one throttled GET. The caller closes the body of a
// successful response.
func (c *Client) get(ctx context.Context, rawURL string) (*http.Response, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set(HeaderAPIVersion, APIVersion)
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(HeaderAPIKey, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %w", domain.ErrSourceUnavailable, rawURL, err)
	}

	if rlErr := c.rateLimiter.CheckRateLimit(resp); rlErr != nil {
		resp.Body.Close()
		return nil, rlErr
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg, URL: rawURL}
	}
	return resp, nil
}

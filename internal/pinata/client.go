// Package pinata stores response blobs as pinned JSON on Pinata and reads
// them back through the IPFS gateway.
package pinata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/abhisek/actprep/internal/logger"
	"github.com/abhisek/actprep/internal/store"
)

const (
	DefaultAPIURL     = "https://api.pinata.cloud"
	DefaultGatewayURL = "https://gateway.pinata.cloud"
	DefaultFetchLimit = 25
)

// Config configures a Client. JWT is required.
type Config struct {
	JWT        string
	APIURL     string
	GatewayURL string
	Timeout    time.Duration
}

// Pin is one row of the pinList response.
type Pin struct {
	ID         string `json:"id"`
	CID        string `json:"ipfs_pin_hash"`
	Size       int64  `json:"size"`
	DatePinned string `json:"date_pinned"`
}

// PinResult is the pinJSONToIPFS response.
type PinResult struct {
	CID       string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

// Client talks to the Pinata pinning API and gateway. It implements
// store.BlobSource and store.BlobSink.
type Client struct {
	log   *logger.Logger
	cfg   Config
	http  *http.Client
	cache Cache
}

var (
	_ store.BlobSource = (*Client)(nil)
	_ store.BlobSink   = (*Client)(nil)
)

// Option configures a Client.
type Option func(*Client)

// WithCache stores gateway content by CID. Pinned content is immutable so
// entries never need invalidation.
func WithCache(c Cache) Option {
	return func(cl *Client) { cl.cache = c }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(cl *Client) { cl.http = h }
}

func New(log *logger.Logger, cfg Config, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.JWT) == "" {
		return nil, fmt.Errorf("missing Pinata JWT")
	}
	if strings.TrimSpace(cfg.APIURL) == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if strings.TrimSpace(cfg.GatewayURL) == "" {
		cfg.GatewayURL = DefaultGatewayURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	c := &Client{
		log:  logger.OrNop(log).With("client", "PinataClient"),
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListPins returns pinned items, newest first.
func (c *Client) ListPins(ctx context.Context) ([]Pin, error) {
	u := strings.TrimRight(c.cfg.APIURL, "/") + "/data/pinList?status=pinned"
	raw, err := c.do(ctx, http.MethodGet, u, nil, true)
	if err != nil {
		return nil, fmt.Errorf("pinata pin_list: %w", err)
	}

	var out struct {
		Count int   `json:"count"`
		Rows  []Pin `json:"rows"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("pinata pin_list decode: %w", err)
	}

	sort.SliceStable(out.Rows, func(i, j int) bool {
		return out.Rows[i].DatePinned > out.Rows[j].DatePinned
	})
	return out.Rows, nil
}

// Content fetches the JSON content of cid from the gateway.
func (c *Client) Content(ctx context.Context, cid string) (json.RawMessage, error) {
	cid = strings.TrimSpace(cid)
	if cid == "" {
		return nil, fmt.Errorf("cid required")
	}

	if c.cache != nil {
		if b, ok, err := c.cache.Get(ctx, cid); err != nil {
			c.log.Warn("pin cache read failed", "cid", cid, "error", err)
		} else if ok {
			return b, nil
		}
	}

	u := strings.TrimRight(c.cfg.GatewayURL, "/") + "/ipfs/" + url.PathEscape(cid)
	raw, err := c.do(ctx, http.MethodGet, u, nil, false)
	if err != nil {
		return nil, fmt.Errorf("pinata gateway %s: %w", cid, err)
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("pinata gateway %s: content is not JSON", cid)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, cid, raw); err != nil {
			c.log.Warn("pin cache write failed", "cid", cid, "error", err)
		}
	}
	return raw, nil
}

// FetchBlobs returns the content of the newest limit pins. Pins whose
// content cannot be fetched are skipped. limit <= 0 uses DefaultFetchLimit.
func (c *Client) FetchBlobs(ctx context.Context, limit int) ([]json.RawMessage, error) {
	if limit <= 0 {
		limit = DefaultFetchLimit
	}

	pins, err := c.ListPins(ctx)
	if err != nil {
		return nil, &store.StoreError{Op: "fetch", Err: err}
	}
	if len(pins) > limit {
		pins = pins[:limit]
	}

	blobs := make([]json.RawMessage, 0, len(pins))
	for _, p := range pins {
		b, err := c.Content(ctx, p.CID)
		if err != nil {
			if ctx.Err() != nil {
				return blobs, &store.StoreError{Op: "fetch", Err: ctx.Err()}
			}
			c.log.Warn("skipping unreadable pin", "cid", p.CID, "error", err)
			continue
		}
		blobs = append(blobs, b)
	}
	return blobs, nil
}

// Pin uploads blob with pinJSONToIPFS.
func (c *Client) Pin(ctx context.Context, blob json.RawMessage) (*PinResult, error) {
	u := strings.TrimRight(c.cfg.APIURL, "/") + "/pinning/pinJSONToIPFS"
	raw, err := c.do(ctx, http.MethodPost, u, blob, true)
	if err != nil {
		return nil, fmt.Errorf("pinata pin_json: %w", err)
	}
	var out PinResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("pinata pin_json decode: %w", err)
	}
	return &out, nil
}

// AppendBlob pins blob. Errors are wrapped in *store.StoreError.
func (c *Client) AppendBlob(ctx context.Context, blob json.RawMessage) error {
	if !json.Valid(blob) {
		return &store.StoreError{Op: "append", Err: fmt.Errorf("blob is not valid JSON")}
	}
	res, err := c.Pin(ctx, blob)
	if err != nil {
		return &store.StoreError{Op: "append", Err: err}
	}
	c.log.Debug("pinned response", "cid", res.CID)
	return nil
}

func (c *Client) do(ctx context.Context, method, u string, body []byte, auth bool) ([]byte, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return nil, err
	}
	if auth {
		req.Header.Set("Authorization", "Bearer "+c.cfg.JWT)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return raw, nil
}

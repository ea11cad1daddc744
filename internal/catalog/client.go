// Package catalog is a read-only client for the external vehicle catalog
// API used by the browse experience.  It sits outside the publication
// invariant: nothing here can affect listing status.
package catalog

import (
    "context"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "net/url"
    "strconv"
    "time"

    "github.com/doyensec/safeurl"
)

// Vehicle is one catalog entry as returned by the upstream API.
type Vehicle struct {
    ID            string   `json:"id"`
    Year          int      `json:"year"`
    Make          string   `json:"make"`
    Model         string   `json:"model"`
    Trim          string   `json:"trim"`
    PriceCents    int64    `json:"price_cents"`
    Mileage       int      `json:"mileage"`
    ExteriorColor string   `json:"exterior_color"`
    InteriorColor string   `json:"interior_color"`
    City          string   `json:"city"`
    State         string   `json:"state"`
    Images        []string `json:"images"`
}

// SearchParams narrows a catalog search.  Zero values mean "no filter".
type SearchParams struct {
    Zip        string
    MinYear    int
    MaxYear    int
    MinPrice   int64
    MaxPrice   int64
    MaxMileage int
    Page       int
    Limit      int
}

// Client calls the catalog API over an SSRF-guarded HTTP client.  The
// guard blocks private, loopback and link-local destinations at the
// dialer level, so a misconfigured base URL cannot be used to reach
// internal services.
type Client struct {
    http    *http.Client
    baseURL string
    apiKey  string
}

// New builds a Client for the given base URL.  apiKey may be empty for
// providers that allow anonymous browsing.
func New(baseURL, apiKey string) *Client {
    cfg := safeurl.GetConfigBuilder().
        SetTimeout(10 * time.Second).
        SetAllowedSchemes("http", "https").
        SetAllowedPorts(80, 443).
        Build()
    return &Client{
        http:    safeurl.Client(cfg).Client,
        baseURL: baseURL,
        apiKey:  apiKey,
    }
}

// Search queries the catalog listings endpoint.
func (c *Client) Search(ctx context.Context, p SearchParams) ([]Vehicle, error) {
    v := url.Values{}
    if p.Zip != "" {
        v.Set("zip", p.Zip)
    }
    if p.MinYear > 0 {
        v.Set("year_min", strconv.Itoa(p.MinYear))
    }
    if p.MaxYear > 0 {
        v.Set("year_max", strconv.Itoa(p.MaxYear))
    }
    if p.MinPrice > 0 {
        v.Set("price_min", strconv.FormatInt(p.MinPrice, 10))
    }
    if p.MaxPrice > 0 {
        v.Set("price_max", strconv.FormatInt(p.MaxPrice, 10))
    }
    if p.MaxMileage > 0 {
        v.Set("mileage_max", strconv.Itoa(p.MaxMileage))
    }
    if p.Page > 0 {
        v.Set("page", strconv.Itoa(p.Page))
    }
    if p.Limit > 0 {
        v.Set("limit", strconv.Itoa(p.Limit))
    }

    var out struct {
        Records []Vehicle `json:"records"`
    }
    if err := c.get(ctx, "/listings?"+v.Encode(), &out); err != nil {
        return nil, err
    }
    return out.Records, nil
}

// VehicleByID fetches per-vehicle detail.
func (c *Client) VehicleByID(ctx context.Context, id string) (*Vehicle, error) {
    var out Vehicle
    if err := c.get(ctx, "/listings/"+url.PathEscape(id), &out); err != nil {
        return nil, err
    }
    return &out, nil
}

func (c *Client) get(ctx context.Context, path string, into interface{}) error {
    req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
    if err != nil {
        return err
    }
    if c.apiKey != "" {
        req.Header.Set("Authorization", "Bearer "+c.apiKey)
    }
    req.Header.Set("Accept", "application/json")

    resp, err := c.http.Do(req)
    if err != nil {
        return err
    }
    defer resp.Body.Close()

    if resp.StatusCode != http.StatusOK {
        // Cap the body read; upstream error pages can be large.
        b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
        return fmt.Errorf("catalog: %s returned %d: %s", path, resp.StatusCode, string(b))
    }
    return json.NewDecoder(resp.Body).Decode(into)
}

// Package export pulls follow-up data out of a running API instance and
// renders it to CSV or XLSX. It talks to the HTTP API rather than the
// database so exports see exactly what the dashboard sees, owner scoping
// included.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/medstats/postop-followup/internal/metric"
)

// fetchPageSize is the page size used when draining list endpoints.
const fetchPageSize = 100

// Window is the date window forwarded to the list endpoints. Values are
// passed through verbatim; the server owns validation and the
// from/to-over-since precedence. Zero value means the server default
// (trailing 30 days).
type Window struct {
	From  string
	To    string
	Since string
}

func (w Window) apply(v url.Values) {
	if w.From != "" {
		v.Set("from", w.From)
	}
	if w.To != "" {
		v.Set("to", w.To)
	}
	if w.Since != "" {
		v.Set("since", w.Since)
	}
}

// Client is a minimal API client for the export tool.
type Client struct {
	BaseURL string
	Token   string
	Window  Window
	HTTP    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: baseURL,
		Token:   token,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Dataset is a rendered table: a header row plus data rows, ready for any
// writer. Missing values are empty strings.
type Dataset struct {
	Header []string
	Rows   [][]string
}

// Login exchanges credentials for an access token and stores it on the
// client.
func (c *Client) Login(ctx context.Context, email, password string) error {
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/auth/login", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login failed: status %d", resp.StatusCode)
	}

	var out struct {
		Access struct {
			Token string `json:"token"`
		} `json:"access"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return err
	}
	if out.Access.Token == "" {
		return fmt.Errorf("login response carried no access token")
	}
	c.Token = out.Access.Token
	return nil
}

// listPage is the common envelope of the list endpoints.
type listPage struct {
	Total int64            `json:"total"`
	Items []map[string]any `json:"items"`
}

func (c *Client) getPage(ctx context.Context, path string, page int) (*listPage, error) {
	v := url.Values{}
	v.Set("page", strconv.Itoa(page))
	v.Set("pageSize", strconv.Itoa(fetchPageSize))
	c.Window.apply(v)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path+"?"+v.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}

	var out listPage
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// drain pages through a list endpoint until a page comes back short or the
// reported total is reached, whichever happens first. Both stops matter:
// the short page ends the loop when rows are deleted mid-export, the total
// bounds it when rows are inserted mid-export.
func (c *Client) drain(ctx context.Context, path string) ([]map[string]any, error) {
	var items []map[string]any
	for page := 1; ; page++ {
		p, err := c.getPage(ctx, path, page)
		if err != nil {
			return nil, err
		}
		items = append(items, p.Items...)
		if len(p.Items) < fetchPageSize || int64(len(items)) >= p.Total {
			return items, nil
		}
	}
}

// FetchTable drains one metric table and lays it out with one column per
// schema field, dates first.
func (c *Client) FetchTable(ctx context.Context, s metric.Schema) (*Dataset, error) {
	items, err := c.drain(ctx, "/v1/"+s.Route)
	if err != nil {
		return nil, err
	}

	header := []string{"id", "date"}
	for _, col := range s.Columns() {
		header = append(header, col.Field)
	}

	ds := &Dataset{Header: header, Rows: make([][]string, 0, len(items))}
	for _, it := range items {
		row := make([]string, 0, len(header))
		row = append(row, cellString(it["id"]), dateCell(it["date"]))
		for _, col := range s.Columns() {
			row = append(row, cellString(it[col.Field]))
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds, nil
}

// FetchJoined drains the cross-table overview and flattens the nested
// per-table sections into prefixed columns.
func (c *Client) FetchJoined(ctx context.Context) (*Dataset, error) {
	items, err := c.drain(ctx, "/v1/table-joined")
	if err != nil {
		return nil, err
	}

	header := []string{"date"}
	for _, s := range metric.All {
		for _, col := range s.Columns() {
			header = append(header, s.Name+"."+col.Field)
		}
	}

	ds := &Dataset{Header: header, Rows: make([][]string, 0, len(items))}
	for _, it := range items {
		row := make([]string, 0, len(header))
		row = append(row, dateCell(it["date"]))
		for _, s := range metric.All {
			section, _ := it[s.Name].(map[string]any)
			for _, col := range s.Columns() {
				if section == nil {
					row = append(row, "")
					continue
				}
				row = append(row, cellString(section[col.Field]))
			}
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds, nil
}

// cellString renders a decoded JSON value for a spreadsheet cell. Numbers
// drop the float artifacts encoding/json introduces; nil becomes empty.
func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatInt(int64(x), 10)
	case json.Number:
		return x.String()
	default:
		return fmt.Sprintf("%v", x)
	}
}

// dateCell trims RFC3339 timestamps down to the date part.
func dateCell(v any) string {
	s, _ := v.(string)
	if len(s) >= 10 {
		return s[:10]
	}
	return s
}

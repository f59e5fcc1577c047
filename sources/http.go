package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/warp/bizops-engine/generic"
)

// =============================================================================
// HTTP FEED - JSON rows over HTTP
// =============================================================================

// TokenSource supplies a bearer token for each request.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// StaticToken is a fixed API token, such as a personal access token for
// the time-tracking system. Credential names the variable it came from.
type StaticToken struct {
	Credential string
	Value      string
}

func (s StaticToken) AccessToken(context.Context) (string, error) {
	if s.Value == "" {
		return "", &generic.MissingCredentialError{Name: s.Credential}
	}
	return s.Value, nil
}

// HTTPFeed fetches a year of rows from Endpoint?year=<year>. The body is
// either a JSON array of flat objects or {"rows": [...]}. Columns are the
// union of object keys, sorted.
type HTTPFeed struct {
	FeedName string
	Endpoint string
	Tokens   TokenSource // optional
	Client   *http.Client
}

func NewHTTPFeed(name, endpoint string, tokens TokenSource) *HTTPFeed {
	return &HTTPFeed{
		FeedName: name,
		Endpoint: endpoint,
		Tokens:   tokens,
		Client:   &http.Client{Timeout: 60 * time.Second},
	}
}

func (f *HTTPFeed) Name() string { return f.FeedName }

func (f *HTTPFeed) TimeEntries(ctx context.Context, year int) (generic.Table, error) {
	return f.fetch(ctx, year)
}

func (f *HTTPFeed) Invoices(ctx context.Context, year int) (generic.Table, error) {
	return f.fetch(ctx, year)
}

func (f *HTTPFeed) fetch(ctx context.Context, year int) (generic.Table, error) {
	u, err := url.Parse(f.Endpoint)
	if err != nil {
		return generic.Table{}, &generic.UpstreamError{Feed: f.FeedName, Err: err}
	}
	q := u.Query()
	q.Set("year", strconv.Itoa(year))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return generic.Table{}, &generic.UpstreamError{Feed: f.FeedName, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	if f.Tokens != nil {
		token, err := f.Tokens.AccessToken(ctx)
		if err != nil {
			// credential errors keep their own category
			return generic.Table{}, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return generic.Table{}, &generic.UpstreamError{Feed: f.FeedName, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return generic.Table{}, &generic.UpstreamError{Feed: f.FeedName, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return generic.Table{}, &generic.UpstreamError{
			Feed: f.FeedName,
			Err:  fmt.Errorf("status %d: %s", resp.StatusCode, truncate(body, 200)),
		}
	}

	rows, err := decodeRows(body)
	if err != nil {
		return generic.Table{}, &generic.UpstreamError{Feed: f.FeedName, Err: err}
	}
	t := TableFromRecords(rows)
	t.Name = fmt.Sprintf("%s_%d", f.FeedName, year)
	return t, nil
}

func decodeRows(body []byte) ([]map[string]any, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	if body[0] == '[' {
		var rows []map[string]any
		if err := dec.Decode(&rows); err != nil {
			return nil, fmt.Errorf("decode rows: %w", err)
		}
		return rows, nil
	}

	var envelope struct {
		Rows []map[string]any `json:"rows"`
	}
	if err := dec.Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	return envelope.Rows, nil
}

// TableFromRecords flattens JSON objects into a Table. Nested values are
// re-encoded as JSON text; nulls become empty cells.
func TableFromRecords(records []map[string]any) generic.Table {
	seen := make(map[string]bool)
	var columns []string
	for _, rec := range records {
		for k := range rec {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
	}
	sort.Strings(columns)

	t := generic.Table{Columns: columns, Rows: make([][]string, 0, len(records))}
	for _, rec := range records {
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = cellString(rec[col])
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

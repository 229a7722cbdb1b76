// Package sheets provides a client for a Sheets-style spreadsheet ranges
// API: batched value reads by named range and document metadata lookup.
package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the spreadsheet read operations the pipeline needs.
type Client interface {
	// BatchGetValues fetches multiple named ranges from one document in a
	// single call, preserving range order.
	BatchGetValues(ctx context.Context, documentID string, ranges []string) ([]ValueRange, error)
	// GetDocument fetches document metadata (title, sheet tabs).
	GetDocument(ctx context.Context, documentID string) (*Document, error)
}

// ValueRange is one fetched range as a row matrix. Cells are stringified;
// trailing empty cells may be absent per row.
type ValueRange struct {
	Range  string
	Values [][]string
}

// Document describes a spreadsheet document.
type Document struct {
	ID     string
	Title  string
	Sheets []SheetInfo
}

// SheetInfo describes one tab of a document.
type SheetInfo struct {
	Title    string
	RowCount int
}

// APIError is a non-2xx response from the remote API.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sheets: status %d (%s): %s", e.StatusCode, e.Status, e.Message)
}

// StatusOf extracts the HTTP status code from an APIError in the chain,
// or 0 when the error is not an API error.
func StatusOf(err error) int {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.StatusCode
	}
	return 0
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom API base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = u }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithTimeout bounds each request independently of the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) { c.timeout = d }
}

type httpClient struct {
	apiKey  string
	baseURL string
	timeout time.Duration
	http    *http.Client
}

// NewClient creates a spreadsheet API client authenticated by API key.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://sheets.googleapis.com/v4/spreadsheets",
		timeout: 30 * time.Second,
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) get(ctx context.Context, reqURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sheets: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "sheets: request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "sheets: read response body")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseAPIError(resp.StatusCode, body)
	}
	return body, nil
}

func parseAPIError(statusCode int, body []byte) error {
	var envelope struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	ae := &APIError{StatusCode: statusCode, Status: http.StatusText(statusCode)}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		ae.Message = envelope.Error.Message
		if envelope.Error.Status != "" {
			ae.Status = envelope.Error.Status
		}
	} else {
		ae.Message = string(body)
	}
	return ae
}

func (c *httpClient) BatchGetValues(ctx context.Context, documentID string, ranges []string) ([]ValueRange, error) {
	q := url.Values{}
	for _, r := range ranges {
		q.Add("ranges", r)
	}
	q.Set("majorDimension", "ROWS")
	q.Set("key", c.apiKey)

	reqURL := fmt.Sprintf("%s/%s/values:batchGet?%s", c.baseURL, url.PathEscape(documentID), q.Encode())

	body, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		ValueRanges []struct {
			Range  string  `json:"range"`
			Values [][]any `json:"values"`
		} `json:"valueRanges"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "sheets: unmarshal batch response")
	}

	out := make([]ValueRange, 0, len(parsed.ValueRanges))
	for _, vr := range parsed.ValueRanges {
		rows := make([][]string, 0, len(vr.Values))
		for _, row := range vr.Values {
			cells := make([]string, len(row))
			for i, cell := range row {
				cells[i] = stringCell(cell)
			}
			rows = append(rows, cells)
		}
		out = append(out, ValueRange{Range: vr.Range, Values: rows})
	}
	return out, nil
}

func (c *httpClient) GetDocument(ctx context.Context, documentID string) (*Document, error) {
	q := url.Values{}
	q.Set("fields", "properties.title,sheets.properties")
	q.Set("key", c.apiKey)

	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, url.PathEscape(documentID), q.Encode())

	body, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Properties struct {
			Title string `json:"title"`
		} `json:"properties"`
		Sheets []struct {
			Properties struct {
				Title          string `json:"title"`
				GridProperties struct {
					RowCount int `json:"rowCount"`
				} `json:"gridProperties"`
			} `json:"properties"`
		} `json:"sheets"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "sheets: unmarshal document response")
	}

	doc := &Document{ID: documentID, Title: parsed.Properties.Title}
	for _, s := range parsed.Sheets {
		doc.Sheets = append(doc.Sheets, SheetInfo{
			Title:    s.Properties.Title,
			RowCount: s.Properties.GridProperties.RowCount,
		})
	}
	return doc, nil
}

// stringCell renders a JSON cell value the way it appears in the sheet.
func stringCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

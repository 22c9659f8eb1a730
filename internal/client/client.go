// Package client talks to a memofeed server over its JSON API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/lazypower/memofeed/internal/pager"
	"github.com/lazypower/memofeed/internal/store"
)

const (
	DefaultServerURL = "http://127.0.0.1:37778"
	httpTimeout      = 10 * time.Second
)

// StatusError is returned for responses with a 4xx or 5xx status.
type StatusError struct {
	Method  string
	Path    string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// Client talks to the memofeed server.
type Client struct {
	http      *http.Client
	serverURL string
}

// New creates a client for serverURL, falling back to DefaultServerURL.
func New(serverURL string) *Client {
	if serverURL == "" {
		serverURL = DefaultServerURL
	}
	return &Client{
		http:      &http.Client{Timeout: httpTimeout},
		serverURL: serverURL,
	}
}

// URL returns the server base URL.
func (c *Client) URL() string {
	return c.serverURL
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.serverURL+path, body)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response %s: %w", path, err)
	}
	if resp.StatusCode >= 400 {
		msg := string(bytes.TrimSpace(data))
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Message: msg}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// ListQuery selects a page of memos.
type ListQuery struct {
	Filter    string
	OrderBy   string
	State     string
	PageSize  int
	PageToken string
}

func (q ListQuery) encode() string {
	v := url.Values{}
	if q.Filter != "" {
		v.Set("filter", q.Filter)
	}
	if q.OrderBy != "" {
		v.Set("order_by", q.OrderBy)
	}
	if q.State != "" {
		v.Set("state", q.State)
	}
	if q.PageSize > 0 {
		v.Set("page_size", strconv.Itoa(q.PageSize))
	}
	if q.PageToken != "" {
		v.Set("page_token", q.PageToken)
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

// ListMemos fetches one page of memos.
func (c *Client) ListMemos(ctx context.Context, q ListQuery) (*store.ListResult, error) {
	var res store.ListResult
	if err := c.do(ctx, http.MethodGet, "/api/memos"+q.encode(), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// GetMemo fetches a memo by uid.
func (c *Client) GetMemo(ctx context.Context, uid string) (*store.Memo, error) {
	var m store.Memo
	if err := c.do(ctx, http.MethodGet, "/api/memos/"+url.PathEscape(uid), nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// NewMemo is the body of a create request.
type NewMemo struct {
	Content     string `json:"content"`
	Creator     string `json:"creator,omitempty"`
	Visibility  string `json:"visibility,omitempty"`
	Pinned      bool   `json:"pinned,omitempty"`
	DisplayTime int64  `json:"display_time,omitempty"`
}

// CreateMemo creates a memo and returns it as stored.
func (c *Client) CreateMemo(ctx context.Context, m NewMemo) (*store.Memo, error) {
	var out store.Memo
	if err := c.do(ctx, http.MethodPost, "/api/memos", m, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateMemo applies a partial update.
func (c *Client) UpdateMemo(ctx context.Context, uid string, u store.MemoUpdate) (*store.Memo, error) {
	var out store.Memo
	if err := c.do(ctx, http.MethodPatch, "/api/memos/"+url.PathEscape(uid), u, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteMemo deletes a memo and its comments.
func (c *Client) DeleteMemo(ctx context.Context, uid string) error {
	return c.do(ctx, http.MethodDelete, "/api/memos/"+url.PathEscape(uid), nil, nil)
}

// ListComments returns the comments on a memo.
func (c *Client) ListComments(ctx context.Context, uid string) ([]store.Memo, error) {
	var resp struct {
		Comments []store.Memo `json:"comments"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/memos/"+url.PathEscape(uid)+"/comments", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Comments, nil
}

// CreateComment adds a comment to a memo.
func (c *Client) CreateComment(ctx context.Context, parentUID string, m NewMemo) (*store.Memo, error) {
	var out store.Memo
	if err := c.do(ctx, http.MethodPost, "/api/memos/"+url.PathEscape(parentUID)+"/comments", m, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListRelations returns the references to and from a memo.
func (c *Client) ListRelations(ctx context.Context, uid string) (*store.Relations, error) {
	var rel store.Relations
	if err := c.do(ctx, http.MethodGet, "/api/memos/"+url.PathEscape(uid)+"/relations", nil, &rel); err != nil {
		return nil, err
	}
	return &rel, nil
}

// AddReference records that uid references relatedUID.
func (c *Client) AddReference(ctx context.Context, uid, relatedUID string) error {
	body := map[string]string{"related_uid": relatedUID}
	return c.do(ctx, http.MethodPost, "/api/memos/"+url.PathEscape(uid)+"/relations", body, nil)
}

// RemoveReference deletes the reference from uid to relatedUID.
func (c *Client) RemoveReference(ctx context.Context, uid, relatedUID string) error {
	return c.do(ctx, http.MethodDelete, "/api/memos/"+url.PathEscape(uid)+"/relations/"+url.PathEscape(relatedUID), nil, nil)
}

// Healthy checks if the server is reachable.
func (c *Client) Healthy(ctx context.Context) bool {
	return c.do(ctx, http.MethodGet, "/api/health", nil, nil) == nil
}

// Feed returns a page source over the memo listing selected by q. The
// query's PageToken is ignored; the driver supplies cursors.
func (c *Client) Feed(q ListQuery) pager.Source[store.Memo] {
	return pager.SourceFunc[store.Memo](func(ctx context.Context, cursor string) (pager.Page[store.Memo], error) {
		q := q
		q.PageToken = cursor
		res, err := c.ListMemos(ctx, q)
		if err != nil {
			return pager.Page[store.Memo]{}, err
		}
		return pager.Page[store.Memo]{Items: res.Memos, NextCursor: res.NextPageToken}, nil
	})
}

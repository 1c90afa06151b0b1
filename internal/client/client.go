// Package client is a Go client for the grocery item HTTP API. Each method
// maps to one endpoint; failures are logged and returned as *Error.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/dukerupert/grocerylist/internal/model"
)

var (
	// ErrNotFound matches any *Error carrying a 404 status.
	ErrNotFound = errors.New("item not found")
	// ErrEmptyName is returned by NewItem for a blank name.
	ErrEmptyName = errors.New("item name is required")
)

// Config holds client configuration.
type Config struct {
	// BaseURL is the service root, e.g. http://localhost:8080. The /api
	// prefix is added by the client.
	BaseURL string
	// HTTPClient defaults to http.DefaultClient, which has no timeout.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Error describes a failed call. StatusCode is 0 when the request never got
// a response.
type Error struct {
	Op         string
	StatusCode int
	Message    string
	Detail     string
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Client talks to the item service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/") + "/api/items",
		httpClient: hc,
		logger:     logger.With("component", "client"),
	}
}

// NewItem returns the fields for a new item with the usual defaults: one of
// it, uncategorized, low priority, not completed.
func NewItem(name string) (model.ItemFields, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.ItemFields{}, ErrEmptyName
	}
	return model.ItemFields{
		Name:      model.Ptr(name),
		Quantity:  model.Ptr("1"),
		Category:  model.Ptr("Uncategorized"),
		Priority:  model.Ptr(model.PriorityLow),
		Completed: model.Ptr(false),
	}, nil
}

// List returns every item.
func (c *Client) List(ctx context.Context) ([]model.GroceryItem, error) {
	var items []model.GroceryItem
	if err := c.do(ctx, "list", http.MethodGet, "", nil, &items, "Failed to fetch items"); err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.GroceryItem{}
	}
	return items, nil
}

// Get returns one item. A missing item yields an error matching ErrNotFound.
func (c *Client) Get(ctx context.Context, id string) (*model.GroceryItem, error) {
	var item model.GroceryItem
	if err := c.do(ctx, "get", http.MethodGet, id, nil, &item, "Failed to fetch item with ID "+id); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) Create(ctx context.Context, f model.ItemFields) (*model.GroceryItem, error) {
	var item model.GroceryItem
	if err := c.do(ctx, "create", http.MethodPost, "", f, &item, "Failed to create item"); err != nil {
		return nil, err
	}
	return &item, nil
}

// Update replaces all writable fields of an item. Nil fields are stored as
// null by the service.
func (c *Client) Update(ctx context.Context, id string, f model.ItemFields) (*model.GroceryItem, error) {
	var item model.GroceryItem
	if err := c.do(ctx, "update", http.MethodPut, id, f, &item, "Failed to update item with ID "+id); err != nil {
		return nil, err
	}
	return &item, nil
}

// Patch changes only the non-nil fields of f. Nil fields travel as null,
// which the service reads as "keep".
func (c *Client) Patch(ctx context.Context, id string, f model.ItemFields) (*model.GroceryItem, error) {
	var item model.GroceryItem
	if err := c.do(ctx, "patch", http.MethodPatch, id, f, &item, "Failed to update item with ID "+id); err != nil {
		return nil, err
	}
	return &item, nil
}

// Delete removes an item. Deleting an unknown id succeeds.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, "delete", http.MethodDelete, id, nil, nil, "Failed to delete item with ID "+id)
}

func (c *Client) do(ctx context.Context, op, method, id string, in, out any, msg string) error {
	u := c.baseURL
	if id != "" {
		u += "/" + url.PathEscape(id)
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return c.fail(&Error{Op: op, Message: msg, Err: fmt.Errorf("marshal request: %w", err)})
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return c.fail(&Error{Op: op, Message: msg, Err: fmt.Errorf("create request: %w", err)})
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.fail(&Error{Op: op, Message: msg, Err: err})
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.fail(&Error{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    msg,
			Detail:     readDetail(resp.Body),
		})
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return c.fail(&Error{Op: op, StatusCode: resp.StatusCode, Message: msg, Err: fmt.Errorf("decode response: %w", err)})
	}
	return nil
}

func (c *Client) fail(e *Error) error {
	c.logger.Error(e.Message, "op", e.Op, "status", e.StatusCode, "error", e)
	return e
}

// readDetail extracts the "error" or "message" field from a JSON error body,
// falling back to the raw text.
func readDetail(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 64<<10))
	if err != nil || len(data) == 0 {
		return ""
	}
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &body) == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return strings.TrimSpace(string(data))
}

// Package postgrest stores grocery items in a hosted PostgREST backend such
// as Supabase. The endpoint URL is the project URL and the credential is the
// API key, sent both as the apikey header and as a bearer token.
package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dukerupert/grocerylist/internal/model"
)

// Config holds the connection settings for a PostgREST datastore.
type Config struct {
	EndpointURL string
	Credential  string
	Table       string
	Timeout     time.Duration
}

// APIError is an error response returned by PostgREST.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details"`
	Hint       string `json:"hint"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("datastore returned status %d", e.StatusCode)
	}
	return e.Message
}

// ItemStore talks to the grocery_items table through the PostgREST API.
type ItemStore struct {
	baseURL    string
	credential string
	httpClient *http.Client
}

// NewItemStore creates a store for the table under cfg.EndpointURL.
func NewItemStore(cfg Config) *ItemStore {
	if cfg.Table == "" {
		cfg.Table = "grocery_items"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &ItemStore{
		baseURL:    strings.TrimRight(cfg.EndpointURL, "/") + "/rest/v1/" + url.PathEscape(cfg.Table),
		credential: cfg.Credential,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// row mirrors a table row. The id is kept raw because hosted tables use
// either uuid or bigint identity keys.
type row struct {
	ID        json.RawMessage `json:"id"`
	Name      *string         `json:"name"`
	Quantity  *string         `json:"quantity"`
	Category  *string         `json:"category"`
	Priority  *model.Priority `json:"priority"`
	Completed *bool           `json:"completed"`
	CreatedAt time.Time       `json:"created_at"`
}

func (r row) item() model.GroceryItem {
	id := string(r.ID)
	var s string
	if err := json.Unmarshal(r.ID, &s); err == nil {
		id = s
	}
	return model.GroceryItem{
		ID:        id,
		Name:      r.Name,
		Quantity:  r.Quantity,
		Category:  r.Category,
		Priority:  r.Priority,
		Completed: r.Completed,
		CreatedAt: r.CreatedAt,
	}
}

func byID(id string) url.Values {
	return url.Values{"select": {"*"}, "id": {"eq." + id}}
}

// do sends a request and decodes the returned rows, if any.
func (s *ItemStore) do(ctx context.Context, method string, query url.Values, body any) ([]row, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	target := s.baseURL
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apikey", s.credential)
	req.Header.Set("Authorization", "Bearer "+s.credential)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		json.NewDecoder(resp.Body).Decode(apiErr)
		return nil, apiErr
	}

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	var rows []row
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return rows, nil
}

func (s *ItemStore) List(ctx context.Context) ([]model.GroceryItem, error) {
	rows, err := s.do(ctx, http.MethodGet, url.Values{"select": {"*"}}, nil)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	items := make([]model.GroceryItem, len(rows))
	for i, r := range rows {
		items[i] = r.item()
	}
	return items, nil
}

// Get returns the item with the given id, or nil if there is none.
func (s *ItemStore) Get(ctx context.Context, id string) (*model.GroceryItem, error) {
	rows, err := s.do(ctx, http.MethodGet, byID(id), nil)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	item := rows[0].item()
	return &item, nil
}

func (s *ItemStore) Create(ctx context.Context, f model.ItemFields) (*model.GroceryItem, error) {
	rows, err := s.do(ctx, http.MethodPost, url.Values{"select": {"*"}}, []model.ItemFields{f})
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("insert item: datastore returned no row")
	}
	item := rows[0].item()
	return &item, nil
}

// Update writes all five fields, sending explicit nulls for nil fields. It
// returns nil when no row matched.
func (s *ItemStore) Update(ctx context.Context, id string, f model.ItemFields) (*model.GroceryItem, error) {
	rows, err := s.do(ctx, http.MethodPatch, byID(id), f)
	if err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	item := rows[0].item()
	return &item, nil
}

// Patch sends only the supplied fields. It returns nil when no row matched.
func (s *ItemStore) Patch(ctx context.Context, id string, f model.ItemFields) (*model.GroceryItem, error) {
	body := map[string]any{}
	if f.Name != nil {
		body["name"] = *f.Name
	}
	if f.Quantity != nil {
		body["quantity"] = *f.Quantity
	}
	if f.Category != nil {
		body["category"] = *f.Category
	}
	if f.Priority != nil {
		body["priority"] = *f.Priority
	}
	if f.Completed != nil {
		body["completed"] = *f.Completed
	}

	// An empty PATCH is rejected by PostgREST; report the current row instead.
	if len(body) == 0 {
		return s.Get(ctx, id)
	}

	rows, err := s.do(ctx, http.MethodPatch, byID(id), body)
	if err != nil {
		return nil, fmt.Errorf("patch item: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	item := rows[0].item()
	return &item, nil
}

// Delete removes the item; a missing id is not an error.
func (s *ItemStore) Delete(ctx context.Context, id string) error {
	if _, err := s.do(ctx, http.MethodDelete, url.Values{"id": {"eq." + id}}, nil); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

// Ping issues a one-row select to check that the endpoint and key work.
func (s *ItemStore) Ping(ctx context.Context) error {
	if _, err := s.do(ctx, http.MethodGet, url.Values{"select": {"id"}, "limit": {"1"}}, nil); err != nil {
		return fmt.Errorf("ping datastore: %w", err)
	}
	return nil
}

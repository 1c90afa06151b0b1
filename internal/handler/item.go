package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/dukerupert/grocerylist/internal/model"
	"github.com/dukerupert/grocerylist/internal/websocket"
)

// ItemStore persists grocery items. Get, Update and Patch return a nil item
// with a nil error when the id does not exist.
type ItemStore interface {
	List(ctx context.Context) ([]model.GroceryItem, error)
	Get(ctx context.Context, id string) (*model.GroceryItem, error)
	Create(ctx context.Context, f model.ItemFields) (*model.GroceryItem, error)
	Update(ctx context.Context, id string, f model.ItemFields) (*model.GroceryItem, error)
	Patch(ctx context.Context, id string, f model.ItemFields) (*model.GroceryItem, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

type ItemHandler struct {
	store  ItemStore
	hub    *websocket.Hub
	logger *slog.Logger
}

// NewItemHandler creates an ItemHandler. hub may be nil to disable change
// notifications.
func NewItemHandler(s ItemStore, hub *websocket.Hub, logger *slog.Logger) *ItemHandler {
	return &ItemHandler{store: s, hub: hub, logger: logger}
}

func (h *ItemHandler) broadcast(action, id string, item *model.GroceryItem) {
	if h.hub != nil {
		var payload any
		if item != nil {
			payload = item
		}
		h.hub.Broadcast(websocket.NewMessage(websocket.EntityGroceryItem, action, id, payload))
	}
}

// storeError logs a datastore failure and reports its message to the caller.
func (h *ItemHandler) storeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.Error(op, "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Item not found"})
}

// decodeFields reads the writable fields from the body. An empty body is an
// empty field set.
func decodeFields(w http.ResponseWriter, r *http.Request) (model.ItemFields, bool) {
	var f model.ItemFields
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return f, false
	}
	return f, true
}

func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.List(r.Context())
	if err != nil {
		h.storeError(w, r, "list items", err)
		return
	}
	if items == nil {
		items = []model.GroceryItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.storeError(w, r, "get item", err)
		return
	}
	if item == nil {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	f, ok := decodeFields(w, r)
	if !ok {
		return
	}

	item, err := h.store.Create(r.Context(), f)
	if err != nil {
		h.storeError(w, r, "create item", err)
		return
	}
	if item == nil {
		h.storeError(w, r, "create item", errors.New("created item not found"))
		return
	}

	h.broadcast("created", item.ID, item)
	writeJSON(w, http.StatusCreated, item)
}

// Update overwrites every writable field. Fields missing from the body are
// stored as null.
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, "update item", h.store.Update)
}

// Patch changes only the fields present in the body.
func (h *ItemHandler) Patch(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, "patch item", h.store.Patch)
}

type writeFunc func(ctx context.Context, id string, f model.ItemFields) (*model.GroceryItem, error)

func (h *ItemHandler) write(w http.ResponseWriter, r *http.Request, op string, fn writeFunc) {
	id := r.PathValue("id")

	f, ok := decodeFields(w, r)
	if !ok {
		return
	}

	item, err := fn(r.Context(), id, f)
	if err != nil {
		h.storeError(w, r, op, err)
		return
	}
	if item == nil {
		notFound(w)
		return
	}

	h.broadcast("updated", id, item)
	writeJSON(w, http.StatusOK, item)
}

// Delete removes an item. Unknown ids are not an error.
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.store.Delete(r.Context(), id); err != nil {
		h.storeError(w, r, "delete item", err)
		return
	}

	h.broadcast("deleted", id, nil)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Item deleted successfully"})
}

func (h *ItemHandler) Welcome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the Grocery Items API"})
}

// Health reports whether the datastore is reachable.
func (h *ItemHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.Warn("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/grocerylist/internal/backup"
)

type backupRunner interface {
	RunNow(ctx context.Context) (string, error)
	Status() backup.Status
	Fetch(ctx context.Context, key string) (*backup.Snapshot, error)
	Restore(ctx context.Context, key string, target backup.Target) (int, error)
}

type BackupHandler struct {
	manager backupRunner
	store   backup.Target
	logger  *slog.Logger
}

// NewBackupHandler creates a BackupHandler. Restores write into store.
func NewBackupHandler(m backupRunner, store backup.Target, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{manager: m, store: store, logger: logger}
}

func (h *BackupHandler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, backup.ErrDisabled):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	case errors.Is(err, backup.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		h.logger.Error(op, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

// Create takes a snapshot immediately.
func (h *BackupHandler) Create(w http.ResponseWriter, r *http.Request) {
	key, err := h.manager.RunNow(r.Context())
	if err != nil {
		h.fail(w, "backup failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"key": key})
}

func (h *BackupHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.Status())
}

// Get returns the decrypted snapshot stored under the key in the path.
func (h *BackupHandler) Get(w http.ResponseWriter, r *http.Request) {
	snap, err := h.manager.Fetch(r.Context(), r.PathValue("key"))
	if err != nil {
		h.fail(w, "fetch backup", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type restoreRequest struct {
	Key string `json:"key"`
}

// Restore replaces the grocery list with the snapshot named in the body.
func (h *BackupHandler) Restore(w http.ResponseWriter, r *http.Request) {
	var req restoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Key == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "key is required"})
		return
	}

	n, err := h.manager.Restore(r.Context(), req.Key, h.store)
	if err != nil {
		h.fail(w, "restore backup", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"restored": n})
}

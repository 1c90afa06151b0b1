package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/grocerylist/internal/backup"
	"github.com/dukerupert/grocerylist/internal/config"
	"github.com/dukerupert/grocerylist/internal/handler"
	"github.com/dukerupert/grocerylist/internal/middleware"
	ws "github.com/dukerupert/grocerylist/internal/websocket"
)

type Server struct {
	itemH         *handler.ItemHandler
	backupH       *handler.BackupHandler
	hub           *ws.Hub
	rateLimiter   *middleware.RateLimiter
	backupManager *backup.Manager
	cfg           config.Config
	logger        *slog.Logger
}

// New wires the HTTP surface over store. The websocket hub is created only
// when realtime notifications are enabled. The backup manager always exists
// and stays disabled unless a backup bucket is configured.
func New(store handler.ItemStore, cfg config.Config, logger *slog.Logger) *Server {
	var hub *ws.Hub
	if cfg.Realtime.Enabled {
		hub = ws.NewHub(logger.With("component", "websocket"))
	}

	s := &Server{
		itemH:  handler.NewItemHandler(store, hub, logger.With("component", "items")),
		hub:    hub,
		cfg:    cfg,
		logger: logger,
	}
	if cfg.RateLimit.RequestsPerMinute > 0 {
		s.rateLimiter = middleware.NewRateLimiter()
	}
	s.backupManager = backup.NewManager(backup.Config{
		S3: backup.S3Config{
			Endpoint:  cfg.Backup.Endpoint,
			Bucket:    cfg.Backup.Bucket,
			Region:    cfg.Backup.Region,
			AccessKey: cfg.Backup.AccessKey,
			SecretKey: cfg.Backup.SecretKey,
		},
		Prefix:     cfg.Backup.Prefix,
		Passphrase: cfg.Backup.Passphrase,
		Interval:   cfg.Backup.Interval,
		Retention:  cfg.Backup.Retention,
	}, store, s.broadcastBackup, logger.With("component", "backup"))
	s.backupH = handler.NewBackupHandler(s.backupManager, store, logger.With("component", "backup_handler"))
	return s
}

func (s *Server) broadcastBackup(st backup.Status) {
	if s.hub != nil {
		s.hub.Broadcast(ws.NewMessage(ws.EntityBackup, string(st.State), "", st))
	}
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

// Hub returns the websocket hub, or nil when realtime is disabled.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// RateLimiter returns the rate limiter for cleanup tasks, or nil when rate
// limiting is disabled.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.itemH.Welcome)
	mux.HandleFunc("GET /health", s.itemH.Health)

	api := http.NewServeMux()
	api.HandleFunc("GET /api/items", s.itemH.List)
	api.HandleFunc("POST /api/items", s.itemH.Create)
	api.HandleFunc("GET /api/items/{id}", s.itemH.Get)
	api.HandleFunc("PUT /api/items/{id}", s.itemH.Update)
	api.HandleFunc("PATCH /api/items/{id}", s.itemH.Patch)
	api.HandleFunc("DELETE /api/items/{id}", s.itemH.Delete)
	api.HandleFunc("POST /api/backups", s.backupH.Create)
	api.HandleFunc("GET /api/backups/status", s.backupH.Status)
	api.HandleFunc("GET /api/backups/{key...}", s.backupH.Get)
	api.HandleFunc("POST /api/backups/restore", s.backupH.Restore)

	var apiHandler http.Handler = api
	if s.rateLimiter != nil {
		apiHandler = middleware.RateLimit(s.rateLimiter, middleware.RealIP, s.cfg.RateLimit.RequestsPerMinute, time.Minute)(api)
	}
	mux.Handle("/api/", apiHandler)

	if s.hub != nil {
		mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.cfg.CORS.Origins(), s.logger.With("component", "websocket")))
	}

	return middleware.Chain(mux,
		middleware.Recovery(s.logger.With("component", "recovery")),
		middleware.RequestLogger(s.logger.With("component", "http")),
		middleware.CORS(s.cfg.CORS),
	)
}

package websocket

import (
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"
)

// HandleWebSocket returns an HTTP handler that upgrades connections to
// WebSocket and runs them as Hub clients.
//
// originPatterns lists the cross-origin hosts allowed to connect, in the
// form accepted by the websocket library: host globs such as "*" or
// "app.example.com", or full origins like "https://app.example.com".
// Same-host requests are always accepted; rejected origins get 403.
func HandleWebSocket(hub *Hub, originPatterns []string, logger *slog.Logger) http.HandlerFunc {
	opts := &ws.AcceptOptions{OriginPatterns: originPatterns}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Accept(w, r, opts)
		if err != nil {
			logger.Warn("websocket accept", "origin", r.Header.Get("Origin"), "error", err)
			return
		}

		client := NewClient(hub, conn)
		client.Run(r.Context())
	}
}

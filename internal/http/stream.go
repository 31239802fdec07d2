package httpx

import (
	"net/http"
	"strings"
	"time"

	"github.com/titanite07/TechVault/internal/ws"
)

// withQueryToken lets browser websocket clients, which cannot set headers,
// pass the session token as ?token=.
func (r *Router) withQueryToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Header.Get("Authorization") == "" {
			if token := strings.TrimSpace(req.URL.Query().Get("token")); token != "" {
				req.Header.Set("Authorization", "Bearer "+token)
			}
		}
		next(w, req)
	}
}

func (r *Router) handleStream(w http.ResponseWriter, req *http.Request) {
	if r.hub == nil {
		r.writeError(w, http.StatusServiceUnavailable, "event stream unavailable", nil)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		r.writeError(w, http.StatusInternalServerError, "streaming unsupported", nil)
		return
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	client := ws.NewSSEClient(w, flusher, r.logger)
	if err := client.Hello(); err != nil {
		return
	}
	r.hub.Register(client)
	defer r.hub.Unregister(client)

	ticker := time.NewTicker(sseHeartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-req.Context().Done():
			client.Close()
			return
		case <-client.Done():
			return
		case <-ticker.C:
			if time.Since(client.LastActivity()) < sseHeartbeat/2 {
				continue
			}
			if err := client.Heartbeat(); err != nil {
				client.Close()
				return
			}
		}
	}
}

func (r *Router) handleAssetsWS(w http.ResponseWriter, req *http.Request) {
	if r.hub == nil {
		r.writeError(w, http.StatusServiceUnavailable, "event stream unavailable", nil)
		return
	}
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	client := ws.NewClient(conn, r.logger)
	r.hub.Register(client)
	defer func() {
		r.hub.Unregister(client)
		client.Close()
	}()
	client.Wait()
}

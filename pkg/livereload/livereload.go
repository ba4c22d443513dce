// Package livereload pushes reload notifications to browsers over WebSocket.
package livereload

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// Script is injected into HTML pages served through InjectMiddleware.
const Script = `<script>(function(){var p=location.protocol==="https:"?"wss://":"ws://";var ws=new WebSocket(p+location.host+"/livereload");ws.onmessage=function(){location.reload()};})();</script>`

const writeTimeout = 5 * time.Second

type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	logger  *slog.Logger
	origins []string
}

// NewHub accepts connections from the listed origin patterns in addition to
// same-origin requests.
func NewHub(logger *slog.Logger, origins ...string) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{clients: make(map[*websocket.Conn]struct{}), logger: logger, origins: origins}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		h.logger.Warn("⚠️  Live reload upgrade failed", "error", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("live reload client connected", "remote", r.RemoteAddr)

	// Clients never send; reading drives close handling.
	ctx := conn.CloseRead(r.Context())
	<-ctx.Done()

	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close(websocket.StatusNormalClosure, "")
}

// Broadcast sends msg to every connected client, dropping the ones that fail.
func (h *Hub) Broadcast(msg string) int {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	sent := 0
	for _, c := range conns {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := c.Write(ctx, websocket.MessageText, []byte(msg))
		cancel()
		if err != nil {
			h.mu.Lock()
			delete(h.clients, c)
			h.mu.Unlock()
			c.Close(websocket.StatusGoingAway, "write failed")
			continue
		}
		sent++
	}
	return sent
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.Close(websocket.StatusGoingAway, "shutting down")
		delete(h.clients, c)
	}
}

// InjectMiddleware appends Script before </body> of HTML responses.
func InjectMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &bufferedWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		body := rec.buf.Bytes()
		if strings.Contains(w.Header().Get("Content-Type"), "text/html") {
			if i := bytes.LastIndex(body, []byte("</body>")); i >= 0 {
				body = append(body[:i:i], append([]byte(Script), body[i:]...)...)
			} else {
				body = append(body, Script...)
			}
			w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		}
		w.WriteHeader(rec.status)
		w.Write(body)
	})
}

type bufferedWriter struct {
	http.ResponseWriter
	buf    bytes.Buffer
	status int
}

func (b *bufferedWriter) WriteHeader(code int) { b.status = code }

func (b *bufferedWriter) Write(p []byte) (int, error) { return b.buf.Write(p) }

package middleware

import (
	"bufio"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
)

// BlockList holds client IPs the preview server refuses.
type BlockList struct {
	mu      sync.RWMutex
	blocked map[string]bool
	logger  *slog.Logger
}

func NewBlockList(logger *slog.Logger, ips ...string) *BlockList {
	b := &BlockList{blocked: make(map[string]bool), logger: logger}
	for _, ip := range ips {
		if ip = strings.TrimSpace(ip); ip != "" {
			b.blocked[ip] = true
		}
	}
	return b
}

// Load reads one IP per line; blank lines and # comments are skipped.
func (b *BlockList) Load(r io.Reader) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		ip := strings.TrimSpace(scanner.Text())
		if ip != "" && !strings.HasPrefix(ip, "#") {
			b.blocked[ip] = true
		}
	}
	return scanner.Err()
}

func (b *BlockList) IsBlocked(ip string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.blocked[ip]
}

func (b *BlockList) Add(ip string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blocked[ip] = true
	b.logger.Warn("🚫 IP Blocked", "ip", ip)
}

func (b *BlockList) Remove(ip string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.blocked, ip)
	b.logger.Info("✅ IP Unblocked", "ip", ip)
}

// Middleware answers blocked clients with 403.
func (b *BlockList) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if b.IsBlocked(ip) {
			b.logger.Warn("🚫 Request Blocked", "ip", ip, "path", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error":"Access Denied (IP Blocked)"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

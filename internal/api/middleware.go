package api

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"resource-site-backend/internal/auth"

	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

// structuredLogger logs one line per request with its status, size and duration.
func (h *Handler) structuredLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		h.log.Log(r.Context(), level, "request completed",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"remote_addr", r.RemoteAddr,
			"duration", time.Since(start).String(),
		)
	})
}

// recoverer turns a panic into a JSON 500.
func (h *Handler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			if rvr == http.ErrAbortHandler {
				panic(rvr)
			}
			h.log.ErrorContext(r.Context(), "panic recovered",
				"panic", fmt.Sprint(rvr),
				"stack", string(debug.Stack()),
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", middleware.GetReqID(r.Context()),
			)
			respondError(w, r, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		}()

		next.ServeHTTP(w, r)
	})
}

// bearerToken extracts the token of an "Authorization: Bearer <token>" header.
func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", auth.ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
		return "", fmt.Errorf("malformed authorization header: %w", auth.ErrInvalidToken)
	}
	return token, nil
}

// authenticate resolves the Principal for rt. It writes a 401 and returns
// false when rt requires a token that is missing or invalid.
func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request, rt Route) (auth.Principal, bool) {
	if !rt.AuthRequired && !rt.OptionalAuth {
		return auth.Anonymous, true
	}

	token, err := bearerToken(r)
	if err == nil {
		var p auth.Principal
		p, err = h.tokens.Validate(r.Context(), token)
		if err == nil {
			return p, true
		}
	}

	if !rt.AuthRequired {
		return auth.Anonymous, true
	}
	h.log.DebugContext(r.Context(), "rejected unauthenticated request",
		"path", r.URL.Path,
		"error", err)
	respondError(w, r, http.StatusUnauthorized, clientMessage(err))
	return auth.Anonymous, false
}

// requirePrincipal answers 401 for an anonymous principal. The gate already
// guarantees this for protected routes.
func requirePrincipal(w http.ResponseWriter, r *http.Request, p auth.Principal) bool {
	if p.Authenticated() {
		return true
	}
	respondError(w, r, http.StatusUnauthorized, auth.ErrMissingToken.Error())
	return false
}

const (
	limiterIdleTTL   = 10 * time.Minute
	limiterSweepSize = 1024
)

type limitedClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter throttles requests per client address.
type rateLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	clients map[string]*limitedClient
	log     *slog.Logger
	now     func() time.Time
}

// newRateLimiter returns nil when rps is not positive, which disables limiting.
func newRateLimiter(rps float64, burst int, log *slog.Logger) *rateLimiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &rateLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		clients: make(map[string]*limitedClient),
		log:     log,
		now:     time.Now,
	}
}

func (l *rateLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if len(l.clients) >= limiterSweepSize {
		for k, c := range l.clients {
			if now.Sub(c.lastSeen) > limiterIdleTTL {
				delete(l.clients, k)
			}
		}
	}

	c, ok := l.clients[key]
	if !ok {
		c = &limitedClient{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

// wrap limits next. A nil limiter passes every request through.
func (l *rateLimiter) wrap(next RouteHandler) RouteHandler {
	if l == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request, p auth.Principal) {
		if !l.allow(clientKey(r)) {
			l.log.WarnContext(r.Context(), "rate limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)
			w.Header().Set("Retry-After", "1")
			respondError(w, r, http.StatusTooManyRequests, "rate limit exceeded, retry later")
			return
		}
		next(w, r, p)
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

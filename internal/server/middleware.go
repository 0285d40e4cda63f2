// Copyright (c) 2025 Thomas Phan
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"crypto/subtle"
	"fmt"
	"log"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/thomasmphan/inference-proxy/internal/config"
)

// ============================================================================
// Auth Configuration and Middleware
// ============================================================================

// AuthConfig contains authentication configuration options.
type AuthConfig struct {
	// Token is the expected bearer token, compared in constant time.
	Token string

	// TokenHash is a bcrypt hash of the expected token, used instead of
	// Token so the plaintext never has to live on disk.
	TokenHash string
}

// AuthConfigFrom builds an AuthConfig from the server configuration.
// Returns nil when no authentication is configured.
func AuthConfigFrom(cfg *config.ServerConfig) *AuthConfig {
	if cfg.AuthToken == "" && cfg.AuthTokenHash == "" {
		return nil
	}
	return &AuthConfig{Token: cfg.AuthToken, TokenHash: cfg.AuthTokenHash}
}

// ValidateBearerToken checks a presented token against the configuration.
// Plaintext tokens compare in constant time to prevent timing attacks;
// hashed tokens go through bcrypt.
func (c *AuthConfig) ValidateBearerToken(token string) bool {
	if token == "" {
		return false
	}
	if c.TokenHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(c.TokenHash), []byte(token)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(c.Token)) == 1
}

// AuthMiddleware returns HTTP middleware that requires a valid bearer token.
// Returns 401 Unauthorized if authentication fails.
func AuthMiddleware(cfg *AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := GetClientIP(r)

			authHeader := r.Header.Get("Authorization")
			token, found := strings.CutPrefix(authHeader, "Bearer ")
			if !found {
				log.Printf("AUTH_DENIED | ip=%s reason=missing_bearer", clientIP)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if !cfg.ValidateBearerToken(token) {
				log.Printf("AUTH_DENIED | ip=%s reason=invalid_token", clientIP)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ============================================================================
// Rate Limiter
// ============================================================================

// ClientLimiter enforces a per-client token bucket rate limit.
type ClientLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientBucket
	rps     rate.Limit
	burst   int
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// staleAfter is how long an idle client's bucket survives.
const staleAfter = 10 * time.Minute

// NewClientLimiter creates a limiter allowing rps requests per second with
// the given burst per client IP.
func NewClientLimiter(rps float64, burst int) *ClientLimiter {
	if burst <= 0 {
		burst = 1
	}
	cl := &ClientLimiter{
		clients: make(map[string]*clientBucket),
		rps:     rate.Limit(rps),
		burst:   burst,
	}
	go cl.cleanup()
	return cl
}

// Allow reports whether a request from ip may proceed.
func (cl *ClientLimiter) Allow(ip string) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	bucket, ok := cl.clients[ip]
	if !ok {
		bucket = &clientBucket{limiter: rate.NewLimiter(cl.rps, cl.burst)}
		cl.clients[ip] = bucket
	}
	bucket.lastSeen = time.Now()
	return bucket.limiter.Allow()
}

// cleanup periodically drops buckets for clients that went quiet.
func (cl *ClientLimiter) cleanup() {
	ticker := time.NewTicker(staleAfter)
	defer ticker.Stop()

	for range ticker.C {
		cl.mu.Lock()
		cutoff := time.Now().Add(-staleAfter)
		for ip, bucket := range cl.clients {
			if bucket.lastSeen.Before(cutoff) {
				delete(cl.clients, ip)
			}
		}
		cl.mu.Unlock()
	}
}

// RateLimitMiddleware returns HTTP middleware that enforces rate limiting.
// Returns 429 Too Many Requests when the limit is exceeded.
func RateLimitMiddleware(limiter *ClientLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := GetClientIP(r)

			if !limiter.Allow(clientIP) {
				w.Header().Set("Retry-After", "1")
				log.Printf("RATE_LIMIT_EXCEEDED | ip=%s", clientIP)
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ============================================================================
// Request Logging Middleware
// ============================================================================

// responseWriter wraps http.ResponseWriter to capture the status code.
// Flush passes through so streaming handlers keep working.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// LoggingMiddleware returns HTTP middleware that logs all requests with a
// short request ID for correlating entries from the same request.
func LoggingMiddleware(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := uuid.NewString()[:8]
			w.Header().Set("X-Request-Id", requestID)

			wrapped := newResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			logger.Printf("REQUEST | id=%s method=%s path=%s status=%d duration=%.3fs",
				requestID,
				r.Method,
				r.URL.Path,
				wrapped.statusCode,
				time.Since(start).Seconds(),
			)
		})
	}
}

// ============================================================================
// Security Headers Middleware
// ============================================================================

// SecurityHeadersMiddleware returns HTTP middleware that adds security headers.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			next.ServeHTTP(w, r)
		})
	}
}

// ============================================================================
// Recovery Middleware
// ============================================================================

// RecoveryMiddleware returns HTTP middleware that recovers from panics,
// logs the stack trace, and returns 500 to the client.
func RecoveryMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Printf("PANIC_RECOVERED | method=%s path=%s error=%v\n%s",
						r.Method, r.URL.Path, err, debug.Stack())
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// ============================================================================
// Middleware Chain Helper
// ============================================================================

// Chain composes multiple middleware functions into a single middleware.
// Middlewares are applied in the order provided.
func Chain(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// ============================================================================
// IP Extraction Helper
// ============================================================================

// trustedProxyCIDRs are the ranges whose X-Forwarded-For / X-Real-IP
// headers are believed. Anything else could be spoofing them.
var trustedProxyCIDRs = []string{
	"127.0.0.1/32",
	"::1/128",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
}

var (
	parsedTrustedProxies []*net.IPNet
	trustedProxiesOnce   sync.Once
)

func isTrustedProxy(ipStr string) bool {
	trustedProxiesOnce.Do(func() {
		for _, cidr := range trustedProxyCIDRs {
			if _, ipNet, err := net.ParseCIDR(cidr); err == nil {
				parsedTrustedProxies = append(parsedTrustedProxies, ipNet)
			}
		}
	})

	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	for _, cidr := range parsedTrustedProxies {
		if cidr.Contains(ip) {
			return true
		}
	}
	return false
}

// GetClientIP extracts the client IP address from an HTTP request.
// Forwarded headers are honored only when the direct connection comes from
// a trusted proxy range, so untrusted clients cannot spoof their identity
// past the rate limiter.
func GetClientIP(r *http.Request) string {
	connIP := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		connIP = host
	}

	if !isTrustedProxy(connIP) {
		return connIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(first) != nil {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if net.ParseIP(xri) != nil {
			return xri
		}
	}
	return connIP
}

// HashToken produces a bcrypt hash suitable for the auth_token_hash
// config field.
func HashToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash token: %w", err)
	}
	return string(hash), nil
}

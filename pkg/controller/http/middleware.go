package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/ctxlog"

	"github.com/civicpulse/pulse/pkg/cli/config"
)

type contextKey string

const operatorContextKey contextKey = "operator"

// OperatorFrom returns the authenticated operator subject, if any
func OperatorFrom(ctx context.Context) (string, bool) {
	operator, ok := ctx.Value(operatorContextKey).(string)
	return operator, ok
}

// Middleware provides common HTTP middleware
type Middleware struct {
	authConfig *config.Auth
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(authConfig *config.Auth) *Middleware {
	return &Middleware{
		authConfig: authConfig,
	}
}

// RequireOperator gates the reset and export endpoints behind a bearer
// token signed with the operator secret
func (m *Middleware) RequireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.authConfig == nil || !m.authConfig.IsConfigured() {
			http.Error(w, "Operator authentication is not configured", http.StatusServiceUnavailable)
			return
		}

		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			http.Error(w, "Unauthorized: missing bearer token", http.StatusUnauthorized)
			return
		}

		parsed, err := jwt.Parse([]byte(token),
			jwt.WithKey(jwa.HS256, []byte(m.authConfig.Secret)),
			jwt.WithValidate(true),
		)
		if err != nil {
			ctxlog.From(r.Context()).Debug("Operator token rejected", "error", err)
			http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), operatorContextKey, parsed.Subject())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LoggingMiddleware creates a chi-compatible logging middleware
func LoggingMiddleware(ctx context.Context) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Embed logger from the initial context into request context
			r = r.WithContext(ctxlog.With(r.Context(), ctxlog.From(ctx)))

			logger := ctxlog.From(r.Context())
			start := time.Now()

			// Wrap response writer to capture status
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
			)
		})
	}
}

package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	apierrors "github.com/maruel/pmboard/internal/errors"
	"github.com/maruel/pmboard/internal/server/ratelimit"
	"github.com/maruel/pmboard/internal/storage/git"
)

// MintToken returns an HS256 token for subject signed with secret. ttl <= 0
// means the token never expires.
func MintToken(secret, subject string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt_secret is not configured")
	}
	if subject == "" {
		return "", errors.New("subject is required")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:  subject,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return s, nil
}

// parseToken validates a bearer token and returns its subject.
func parseToken(secret []byte, tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	sub, err := token.Claims.GetSubject()
	if err != nil {
		return "", err
	}
	if sub == "" {
		return "", errors.New("missing sub claim")
	}
	return sub, nil
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

// WriteGuard protects mutating requests: bearer authentication when secret
// is set, per-client rate limiting when limiter is not nil, and a body size
// limit when maxBody > 0. Read requests pass through untouched.
func WriteGuard(secret string, limiter *ratelimit.Limiter, maxBody int64) func(http.Handler) http.Handler {
	key := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isWrite(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			subject := ""
			if len(key) != 0 {
				tokenString, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
				if !ok || tokenString == "" {
					writeError(ctx, w, apierrors.Unauthorized())
					return
				}
				sub, err := parseToken(key, tokenString)
				if err != nil {
					writeError(ctx, w, apierrors.Unauthorized().Wrap(err))
					return
				}
				subject = sub
				ctx = git.WithAuthor(ctx, git.Author{Name: sub})
			}
			if limiter != nil {
				result := limiter.Allow(ratelimit.ClientKey(r, subject))
				ratelimit.WriteHeaders(w, result)
				if !result.Allowed {
					writeError(ctx, w, apierrors.RateLimited().WithDetail("retryAfter", int(result.RetryAfter.Seconds())))
					return
				}
			}
			if maxBody > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, maxBody)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

// Unwrap returns the underlying ResponseWriter for http.ResponseController.
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// LoggingMiddleware logs every request with its status and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		slog.InfoContext(r.Context(), "http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"dur", time.Since(start).Round(time.Microsecond),
		)
	})
}

package http

import (
	"context"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"registrar/internal/apperr"
	"registrar/internal/auth"
)

var (
	corsMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}
	corsHeaders = []string{"Content-Type", "Authorization"}
)

type ctxKeyLog struct{}
type claimsKey struct{}

type responseRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rr *responseRecorder) WriteHeader(status int) {
	if rr.status == 0 {
		rr.status = status
	}
	rr.ResponseWriter.WriteHeader(status)
}

func (rr *responseRecorder) Write(p []byte) (int, error) {
	if rr.status == 0 {
		rr.status = http.StatusOK
	}
	n, err := rr.ResponseWriter.Write(p)
	rr.bytes += n
	return n, err
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		w.Header().Set("X-Request-Id", requestID)

		log := s.log.WithFields(logrus.Fields{
			"http.req.path":   r.URL.Path,
			"http.req.method": r.Method,
			"http.req.id":     requestID,
		})
		rr := &responseRecorder{ResponseWriter: w}
		ctx := context.WithValue(r.Context(), ctxKeyLog{}, log)
		next.ServeHTTP(rr, r.WithContext(ctx))

		if rr.status == 0 {
			rr.status = http.StatusOK
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		took := time.Since(start)
		s.metrics.observe(r.Method, route, rr.status, took)
		log.WithFields(logrus.Fields{
			"http.route":        route,
			"http.resp.status":  rr.status,
			"http.resp.bytes":   rr.bytes,
			"http.resp.took_ms": took.Milliseconds(),
		}).Debug("request complete")
	})
}

func requestLogger(ctx context.Context, fallback *logrus.Logger) logrus.FieldLogger {
	if log, ok := ctx.Value(ctxKeyLog{}).(*logrus.Entry); ok {
		return log
	}
	return fallback
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				requestLogger(r.Context(), s.log).WithFields(logrus.Fields{
					"panic": rec,
					"stack": string(debug.Stack()),
				}).Error("panic recovered")
				writeError(w, http.StatusInternalServerError, apperr.InternalMessage)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// preflight answers every OPTIONS request with 204 before authentication runs.
func preflight(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", strings.Join(corsHeaders, ", "))
		h.Set("Access-Control-Allow-Methods", strings.Join(corsMethods, ", "))
		h.Set("Access-Control-Max-Age", "86400")
		w.WriteHeader(http.StatusNoContent)
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.authenticate(r)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) authenticate(r *http.Request) (*auth.Claims, error) {
	token := auth.BearerToken(r.Header.Get("Authorization"))
	if token == "" {
		return nil, apperr.Unauthorized("Authorization token is required.")
	}
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, apperr.Unauthorized("Authorization token is invalid or expired.")
	}
	return claims, nil
}

func claimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey{}).(*auth.Claims)
	return claims
}

// throttle limits credential endpoints per client address. Limiter failures
// let the request through.
func (s *Server) throttle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 200*time.Millisecond)
		defer cancel()

		allowed, err := s.limiter.Allow(ctx, "auth:"+clientIP(r))
		if err != nil {
			requestLogger(r.Context(), s.log).WithError(err).Warn("rate limiter unavailable")
		} else if !allowed {
			s.writeAppError(w, r, apperr.TooManyRequests())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func statusLabel(status int) string {
	return strconv.Itoa(status)
}

package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/logger"
	"github.com/example/storefront/internal/session"
)

const requestIDHeader = "X-Request-ID"

type ctxKey int

const sessionKey ctxKey = iota

// withSession выдаёт покупателю cookie с UUID сессии, если её нет или она испорчена.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if c, err := r.Cookie(s.opts.CookieName); err == nil {
			if u, err := uuid.Parse(c.Value); err == nil {
				id = u.String()
			}
		}
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     s.opts.CookieName,
				Value:    id,
				Path:     "/",
				MaxAge:   int(s.opts.CookieMaxAge / time.Second),
				HttpOnly: true,
				Secure:   s.opts.SecureCookie,
				SameSite: http.SameSiteLaxMode,
			})
		}
		ctx := context.WithValue(r.Context(), sessionKey, id)
		ctx = logger.WithContext(ctx, logger.FromContext(ctx).With(zap.String("session_id", id)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) session(r *http.Request) *session.Session {
	id, _ := r.Context().Value(sessionKey).(string)
	if id == "" {
		id = uuid.NewString()
	}
	return s.Sessions.Get(id)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap открывает http.ResponseController доступ к Flush исходного writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := r.Header.Get(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, reqID)

		log := s.Logger.With(zap.String("request_id", reqID))
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(logger.WithContext(r.Context(), log)))

		log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	muralerrs "github.com/muralapp/mural/internal/errors"
	"github.com/muralapp/mural/logger"
)

func accessLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slog.Info("request received", "method", r.Method, "path", r.URL.Path)
		start := time.Now()

		writer := &respCodeWriter{ResponseWriter: w}
		next.ServeHTTP(writer, r)

		slog.Info("request completed",
			"method", r.Method,
			"url", r.URL.String(),
			"duration", time.Since(start),
			"status_code", writer.code,
		)
	})
}

// To trap the response status code for logging later.
type respCodeWriter struct {
	http.ResponseWriter
	code int
}

func (w *respCodeWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

type ctxKey string

const userIDKey ctxKey = "userID"

// requireIdentityMiddleware reads the identity the fronting auth layer
// resolved for us. Requests arriving without one get a 401; this
// service never does its own authentication.
func requireIdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid := r.Header.Get("X-User-ID")
		if uid == "" {
			writeJSON(w, http.StatusUnauthorized, muralerrs.E("missing identity", http.StatusUnauthorized))
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, uid)
		ctx = logger.Ctx(ctx, slog.String("user_id", uid))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// userID pulls the authenticated user's id out of the request context.
func userID(r *http.Request) string {
	uid, _ := r.Context().Value(userIDKey).(string)
	return uid
}

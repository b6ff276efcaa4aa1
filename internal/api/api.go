// Package api is the HTTP surface: the cron trigger that kicks off a
// sync cycle, feed management, post listing, and the enrichment routes.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/muralapp/mural/internal/enrich"
	muralerrs "github.com/muralapp/mural/internal/errors"
	"github.com/muralapp/mural/internal/mural"
	"github.com/muralapp/mural/internal/syncer"
)

func writeJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("error encoding json response: %s", err)
	}

	return nil
}

// validator is a surface that can validate itself and return an error
// if something is wrong.
type validator interface {
	Validate() error
}

// decodeValid decodes a request and then validates it.
func decodeValid[V validator](r io.Reader) (V, error) {
	var v V
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		return v, fmt.Errorf("error decoding request: %w", err)
	}
	if err := v.Validate(); err != nil {
		return v, fmt.Errorf("error validating request: %w", err)
	}

	return v, nil
}

// HandlerFuncE is a modified type of [http.HandlerFunc] that returns an error.
type HandlerFuncE func(w http.ResponseWriter, r *http.Request) error

func (f HandlerFuncE) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	err := f(w, r)
	if err == nil {
		return
	}

	// Either it's already a structured error, or coerce it to one
	sErr := &muralerrs.Error{}
	if !errors.As(err, &sErr) {
		slog.Error("unstructured handler error", "error", err)
		sErr = muralerrs.E(http.StatusInternalServerError, "internal server error")
	}

	if err := writeJSON(w, sErr.Status, sErr); err != nil {
		slog.Error("error writing response", "error", err)
	}
}

// errRouter is a newtype around a mux router that allows attaching handlers that return errors.
type errRouter struct {
	*mux.Router
}

func (r errRouter) HandleFuncE(path string, f HandlerFuncE) *mux.Route {
	return r.Handle(path, f)
}

type (
	// Server serves the pipeline over HTTP.
	Server struct {
		*http.Server

		repo     mural.Repository
		syncer   *syncer.Syncer
		enricher *enrich.Service

		cronSecret string
	}

	ServerConfig struct {
		Port       int
		CronSecret string
		CorsOrigin string
	}
)

func NewServer(config ServerConfig, repo mural.Repository, sync *syncer.Syncer, enricher *enrich.Service) *Server {
	r := errRouter{Router: mux.NewRouter()}

	srvr := Server{
		repo:       repo,
		syncer:     sync,
		enricher:   enricher,
		cronSecret: config.CronSecret,
		Server: &http.Server{
			Addr:        fmt.Sprintf(":%d", config.Port),
			ReadTimeout: 5 * time.Second,
			// No write timeout: the cron trigger runs a whole sync cycle
			// in-request and can legitimately take a while.
			Handler: handlers.CORS(
				handlers.AllowedOrigins([]string{config.CorsOrigin}),
				handlers.AllowCredentials(),
				handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
				handlers.AllowedHeaders([]string{"content-type", "x-user-id"}),
			)(r),
		},
	}

	r.Use(accessLogMiddleware) // Log everything

	// Scheduler-facing trigger, gated by the shared secret
	r.HandleFuncE("/api/cron/trigger", srvr.postCronTrigger).Methods(http.MethodPost)

	authed := errRouter{Router: r.NewRoute().Subrouter()}
	authed.Use(requireIdentityMiddleware)

	// Feed management
	authed.HandleFuncE("/api/feeds", srvr.getFeeds).Methods(http.MethodGet)
	authed.HandleFuncE("/api/feeds", srvr.postFeed).Methods(http.MethodPost)
	authed.HandleFuncE("/api/feeds/{feedID}", srvr.deleteFeed).Methods(http.MethodDelete)

	// Unified feed view
	authed.HandleFuncE("/api/posts", srvr.getPosts).Methods(http.MethodGet)

	// Enrichment
	authed.HandleFuncE("/api/gemini/summarize-feed", srvr.postSummarizeFeed).Methods(http.MethodPost)
	authed.HandleFuncE("/api/posts/{postID}/summarize", srvr.postSummarizePost).Methods(http.MethodPost)
	authed.HandleFuncE("/api/posts/{postID}/replies", srvr.postSuggestReplies).Methods(http.MethodPost)

	slog.Debug("configured api server", "port", config.Port)

	return &srvr
}

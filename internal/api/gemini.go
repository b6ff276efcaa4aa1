package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	muralerrs "github.com/muralapp/mural/internal/errors"
	"github.com/muralapp/mural/internal/gemini"
	"github.com/muralapp/mural/internal/mural"
)

type SummaryResp struct {
	Summary string `json:"summary"`
}

type SuggestionsResp struct {
	Suggestions string `json:"suggestions"`
}

func (s *Server) postSummarizeFeed(w http.ResponseWriter, r *http.Request) error {
	summary, err := s.enricher.SummarizeFeedForUser(r.Context(), userID(r))
	if err != nil {
		return coerceEnrichErr(err)
	}

	return writeJSON(w, http.StatusOK, SummaryResp{Summary: summary})
}

func (s *Server) postSummarizePost(w http.ResponseWriter, r *http.Request) error {
	postID := mux.Vars(r)["postID"]

	summary, err := s.enricher.SummarizePost(r.Context(), postID, userID(r))
	if err != nil {
		return coerceEnrichErr(err)
	}

	return writeJSON(w, http.StatusOK, SummaryResp{Summary: summary})
}

func (s *Server) postSuggestReplies(w http.ResponseWriter, r *http.Request) error {
	postID := mux.Vars(r)["postID"]

	suggestions, err := s.enricher.SuggestReplies(r.Context(), postID, userID(r))
	if err != nil {
		return coerceEnrichErr(err)
	}

	return writeJSON(w, http.StatusOK, SuggestionsResp{Suggestions: suggestions})
}

// coerceEnrichErr maps enrichment failures onto response statuses.
func coerceEnrichErr(err error) error {
	var completionErr *gemini.CompletionError
	switch {
	case errors.Is(err, mural.ErrNotFoundOrUnauthorized):
		return muralerrs.E(err, http.StatusNotFound)
	case errors.Is(err, mural.ErrMissingAPIKey):
		return muralerrs.E(err, http.StatusServiceUnavailable)
	case errors.As(err, &completionErr):
		return muralerrs.E(err, http.StatusBadGateway)
	}

	return err
}

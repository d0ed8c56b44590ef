package api

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/clipdeck/clipdeck-agent/internal/jobs"
	"github.com/clipdeck/clipdeck-agent/internal/upload"
)

func uploadHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UploadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.FilePath == "" {
			WriteError(w, http.StatusBadRequest, "file_path is required", "BAD_REQUEST")
			return
		}
		if info, err := os.Stat(req.FilePath); err != nil || info.IsDir() {
			WriteError(w, http.StatusBadRequest, "file_path does not exist", "BAD_REQUEST")
			return
		}
		if cfg.Authenticator == nil || !cfg.Authenticator.Authenticated() {
			WriteError(w, http.StatusConflict, "not authenticated with YouTube", "NOT_AUTHENTICATED")
			return
		}

		title := req.Title
		if title == "" {
			title = strings.TrimSuffix(filepath.Base(req.FilePath), filepath.Ext(req.FilePath))
		}

		job, err := jobs.NewUploadJob(req.FilePath, upload.Metadata{
			Title:       title,
			Description: req.Description,
			Privacy:     req.Privacy,
			Keywords:    req.Keywords,
		})
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if err := cfg.Repository.CreateJob(r.Context(), job); err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to queue job", "INTERNAL_ERROR")
			return
		}

		WriteJSON(w, http.StatusAccepted, UploadResponse{JobID: job.ID})
	}
}

func getGameHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if cfg.Games == nil {
			WriteError(w, http.StatusServiceUnavailable, "game resolver not available", "UNAVAILABLE")
			return
		}

		WriteJSON(w, http.StatusOK, GameResponse{
			GameID: id,
			Name:   cfg.Games.Resolve(r.Context(), id),
		})
	}
}

func refreshGameHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if cfg.Games == nil {
			WriteError(w, http.StatusServiceUnavailable, "game resolver not available", "UNAVAILABLE")
			return
		}

		name, err := cfg.Games.Refresh(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusBadGateway, err.Error(), "LOOKUP_FAILED")
			return
		}
		WriteJSON(w, http.StatusOK, GameResponse{GameID: id, Name: name})
	}
}

func refreshGamesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Games == nil {
			WriteError(w, http.StatusServiceUnavailable, "game resolver not available", "UNAVAILABLE")
			return
		}

		WriteJSON(w, http.StatusOK, RefreshGamesResponse{
			StillFailing: cfg.Games.RefreshAll(r.Context()),
		})
	}
}

func authURLHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Authenticator == nil {
			WriteError(w, http.StatusConflict, "client secrets not installed", "NOT_CONFIGURED")
			return
		}
		WriteJSON(w, http.StatusOK, AuthURLResponse{URL: cfg.Authenticator.AuthURL("state")})
	}
}

func authCodeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Authenticator == nil {
			WriteError(w, http.StatusConflict, "client secrets not installed", "NOT_CONFIGURED")
			return
		}

		var req AuthCodeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
			WriteError(w, http.StatusBadRequest, "code is required", "BAD_REQUEST")
			return
		}

		if err := cfg.Authenticator.Exchange(r.Context(), req.Code); err != nil {
			WriteError(w, http.StatusBadGateway, err.Error(), "EXCHANGE_FAILED")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

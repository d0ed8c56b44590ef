package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clipdeck/clipdeck-agent/internal/config"
	"github.com/clipdeck/clipdeck-agent/internal/jobs"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/status", statusHandler(cfg))

		r.Get("/accounts", listAccountsHandler(cfg))
		r.Get("/accounts/{id}/clips", listClipsHandler(cfg))
		r.Get("/accounts/{id}/clips/invalid", listInvalidClipsHandler(cfg))
		r.Post("/accounts/{id}/clips/invalid/delete", deleteInvalidClipsHandler(cfg))

		r.Post("/convert", convertHandler(cfg))
		r.Post("/uploads", uploadHandler(cfg))

		r.Get("/jobs", listJobsHandler(cfg))
		r.Get("/jobs/{id}", getJobHandler(cfg))
		r.Post("/jobs/{id}/cancel", cancelJobHandler(cfg))

		r.Get("/games/{id}", getGameHandler(cfg))
		r.Post("/games/{id}/refresh", refreshGameHandler(cfg))
		r.Post("/games/refresh", refreshGamesHandler(cfg))

		r.Get("/preview/thumbnail", thumbnailHandler(cfg))
		r.Get("/preview/file", previewFileHandler(cfg))

		r.Get("/auth/url", authURLHandler(cfg))
		r.Post("/auth/code", authCodeHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:   "ok",
			Version:  config.Version,
			UptimeS:  uptime,
			DeviceID: cfg.DeviceID,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		accounts, _ := listAccounts(cfg)
		clipsCount := 0
		for _, acct := range accounts {
			clipsCount += len(cfg.Scanner.Scan(acct.Roots))
		}

		recent, _ := cfg.Repository.ListJobs(ctx, 10)

		state := "idle"
		if cfg.Runner != nil && cfg.Runner.IsPaused() {
			state = "paused"
		}

		var activeJob *JobResponse
		jobsRunning := 0
		lastError := ""
		for _, j := range recent {
			if j.Status == jobs.StatusRunning {
				state = "working"
				resp := JobToResponse(j)
				activeJob = &resp
				jobsRunning++
			}
			if j.Status == jobs.StatusFailed && lastError == "" {
				lastError = j.Error
			}
		}
		if lastError != "" && state == "idle" {
			state = "error"
		}

		authenticated := false
		if cfg.Authenticator != nil {
			authenticated = cfg.Authenticator.Authenticated()
		}

		WriteJSON(w, http.StatusOK, StatusResponse{
			State:         state,
			LastError:     lastError,
			AccountsCount: len(accounts),
			ClipsCount:    clipsCount,
			JobsRunning:   jobsRunning,
			ActiveJob:     activeJob,
			Authenticated: authenticated,
		})
	}
}

func listJobsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all, err := cfg.Repository.ListJobs(r.Context(), 50)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list jobs", "INTERNAL_ERROR")
			return
		}

		resp := JobsResponse{Jobs: make([]JobResponse, len(all))}
		for i, j := range all {
			resp.Jobs[i] = JobToResponse(j)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getJobHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "job id required", "BAD_REQUEST")
			return
		}

		job, err := cfg.Repository.GetJob(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if job == nil {
			WriteError(w, http.StatusNotFound, "job not found", "NOT_FOUND")
			return
		}

		WriteJSON(w, http.StatusOK, JobToResponse(job))
	}
}

func cancelJobHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "job id required", "BAD_REQUEST")
			return
		}
		if cfg.Runner == nil {
			WriteError(w, http.StatusServiceUnavailable, "job runner not available", "UNAVAILABLE")
			return
		}

		if err := cfg.Runner.Cancel(r.Context(), id); err != nil {
			WriteError(w, http.StatusConflict, err.Error(), "CONFLICT")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

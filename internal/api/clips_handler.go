package api

import (
	"encoding/json"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/clipdeck/clipdeck-agent/internal/assembly"
	"github.com/clipdeck/clipdeck-agent/internal/jobs"
	"github.com/clipdeck/clipdeck-agent/internal/steam"
)

func listAccounts(cfg ServerConfig) ([]steam.Account, error) {
	return steam.ListAccounts(cfg.UserdataDir)
}

func findAccount(cfg ServerConfig, id string) (*steam.Account, error) {
	accounts, err := listAccounts(cfg)
	if err != nil {
		return nil, err
	}
	for i := range accounts {
		if accounts[i].ID == id {
			return &accounts[i], nil
		}
	}
	return nil, nil
}

func listAccountsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accounts, err := listAccounts(cfg)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "cannot read Steam userdata", "INTERNAL_ERROR")
			return
		}

		resp := AccountsResponse{Accounts: make([]AccountResponse, len(accounts))}
		for i, a := range accounts {
			resp.Accounts[i] = AccountResponse{ID: a.ID, RootCount: len(a.Roots)}
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func listClipsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, err := findAccount(cfg, chi.URLParam(r, "id"))
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "cannot read Steam userdata", "INTERNAL_ERROR")
			return
		}
		if account == nil {
			WriteError(w, http.StatusNotFound, "account not found", "NOT_FOUND")
			return
		}

		var kinds []steam.MediaKind
		switch r.URL.Query().Get("kind") {
		case "":
		case string(steam.KindManual):
			kinds = append(kinds, steam.KindManual)
		case string(steam.KindBackground):
			kinds = append(kinds, steam.KindBackground)
		default:
			WriteError(w, http.StatusBadRequest, "kind must be manual or background", "BAD_REQUEST")
			return
		}

		clips := cfg.Scanner.Scan(account.Roots, kinds...)
		resp := ClipsResponse{Clips: make([]ClipResponse, len(clips))}
		for i, c := range clips {
			gameName := ""
			if c.GameID != "" && cfg.Games != nil {
				gameName = cfg.Games.Resolve(r.Context(), c.GameID)
			}
			resp.Clips[i] = ClipToResponse(c, gameName)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func listInvalidClipsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, err := findAccount(cfg, chi.URLParam(r, "id"))
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "cannot read Steam userdata", "INTERNAL_ERROR")
			return
		}
		if account == nil {
			WriteError(w, http.StatusNotFound, "account not found", "NOT_FOUND")
			return
		}

		WriteJSON(w, http.StatusOK, InvalidClipsResponse{
			Paths: cfg.Scanner.FindInvalid(account.Roots),
		})
	}
}

// deleteInvalidClipsHandler deletes the requested broken clips, but only
// after re-checking that each one is still invalid right now. A clip that
// Steam finished writing between the listing and the delete request
// survives.
func deleteInvalidClipsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, err := findAccount(cfg, chi.URLParam(r, "id"))
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "cannot read Steam userdata", "INTERNAL_ERROR")
			return
		}
		if account == nil {
			WriteError(w, http.StatusNotFound, "account not found", "NOT_FOUND")
			return
		}

		var req DeleteInvalidRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if len(req.Paths) == 0 {
			WriteError(w, http.StatusBadRequest, "paths is required", "BAD_REQUEST")
			return
		}

		stillInvalid := make(map[string]bool)
		for _, p := range cfg.Scanner.FindInvalid(account.Roots) {
			stillInvalid[p] = true
		}

		var confirmed, skipped []string
		for _, p := range req.Paths {
			if stillInvalid[filepath.Clean(p)] {
				confirmed = append(confirmed, filepath.Clean(p))
			} else {
				skipped = append(skipped, p)
			}
		}

		deleted, failed := cfg.Scanner.DeleteInvalid(confirmed)
		WriteJSON(w, http.StatusOK, DeleteInvalidResponse{
			Deleted: deleted,
			Failed:  failed,
			Skipped: skipped,
		})
	}
}

func convertHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ConvertRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if len(req.ClipPaths) == 0 {
			WriteError(w, http.StatusBadRequest, "clip_paths is required", "BAD_REQUEST")
			return
		}

		outDir := req.OutputDir
		if outDir == "" {
			outDir = cfg.ExportDir
		}
		if err := assembly.ValidateOutputDir(outDir); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		resp := ConvertResponse{JobIDs: make([]string, 0, len(req.ClipPaths))}
		for _, clipPath := range req.ClipPaths {
			if _, ok := steam.FindManifest(clipPath); !ok {
				WriteError(w, http.StatusBadRequest, "not a valid clip: "+filepath.Base(clipPath), "BAD_REQUEST")
				return
			}
			job, err := jobs.NewConvertJob(req.AccountID, clipPath, outDir)
			if err != nil {
				WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
				return
			}
			if err := cfg.Repository.CreateJob(r.Context(), job); err != nil {
				WriteError(w, http.StatusInternalServerError, "failed to queue job", "INTERNAL_ERROR")
				return
			}
			resp.JobIDs = append(resp.JobIDs, job.ID)
		}

		WriteJSON(w, http.StatusAccepted, resp)
	}
}

func thumbnailHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clipPath := r.URL.Query().Get("clip_path")
		if clipPath == "" {
			WriteError(w, http.StatusBadRequest, "clip_path is required", "BAD_REQUEST")
			return
		}
		if cfg.Assembler == nil {
			WriteError(w, http.StatusServiceUnavailable, "assembler not available", "UNAVAILABLE")
			return
		}

		thumb, err := cfg.Assembler.Thumbnail(r.Context(), steam.Clip{Path: clipPath}, cfg.CacheDir)
		if err != nil {
			WriteError(w, http.StatusNotFound, "cannot render thumbnail", "NOT_FOUND")
			return
		}

		if err := cfg.Preview.ServeFile(w, r, thumb); err != nil {
			cfg.Logger.Error("thumbnail serve error", "error", err)
		}
	}
}

func previewFileHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Query().Get("path")
		if path == "" {
			WriteError(w, http.StatusBadRequest, "path is required", "BAD_REQUEST")
			return
		}

		if err := cfg.Preview.ServeFile(w, r, path); err != nil {
			cfg.Logger.Error("preview serve error", "error", err)
		}
	}
}

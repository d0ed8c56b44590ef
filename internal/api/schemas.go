package api

import (
	"time"

	"github.com/clipdeck/clipdeck-agent/internal/jobs"
	"github.com/clipdeck/clipdeck-agent/internal/steam"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	UptimeS  int64  `json:"uptime_s"`
	DeviceID string `json:"device_id"`
}

type StatusResponse struct {
	State         string       `json:"state"`
	LastError     string       `json:"last_error,omitempty"`
	AccountsCount int          `json:"accounts_count"`
	ClipsCount    int          `json:"clips_count"`
	JobsRunning   int          `json:"jobs_running"`
	ActiveJob     *JobResponse `json:"active_job,omitempty"`
	Authenticated bool         `json:"youtube_authenticated"`
}

type AccountResponse struct {
	ID        string `json:"id"`
	RootCount int    `json:"root_count"`
}

type AccountsResponse struct {
	Accounts []AccountResponse `json:"accounts"`
}

type ClipResponse struct {
	Path       string `json:"path"`
	AccountID  string `json:"account_id"`
	GameID     string `json:"game_id,omitempty"`
	GameName   string `json:"game_name,omitempty"`
	RecordedAt string `json:"recorded_at,omitempty"`
	Kind       string `json:"kind"`
}

type ClipsResponse struct {
	Clips []ClipResponse `json:"clips"`
}

type InvalidClipsResponse struct {
	Paths []string `json:"paths"`
}

type DeleteInvalidRequest struct {
	AccountID string   `json:"account_id"`
	Paths     []string `json:"paths"`
}

type DeleteInvalidResponse struct {
	Deleted int      `json:"deleted"`
	Failed  []string `json:"failed,omitempty"`
	Skipped []string `json:"skipped,omitempty"`
}

type ConvertRequest struct {
	AccountID string   `json:"account_id"`
	ClipPaths []string `json:"clip_paths"`
	OutputDir string   `json:"output_dir,omitempty"`
}

type ConvertResponse struct {
	JobIDs []string `json:"job_ids"`
}

type UploadRequest struct {
	FilePath    string   `json:"file_path"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Privacy     string   `json:"privacy,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
}

type UploadResponse struct {
	JobID string `json:"job_id"`
}

type JobResponse struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Status     string `json:"status"`
	AccountID  string `json:"account_id,omitempty"`
	ClipPath   string `json:"clip_path,omitempty"`
	OutputPath string `json:"output_path,omitempty"`
	Progress   int    `json:"progress"`
	Error      string `json:"error,omitempty"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

type JobsResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

type GameResponse struct {
	GameID string `json:"game_id"`
	Name   string `json:"name"`
}

type RefreshGamesResponse struct {
	StillFailing []string `json:"still_failing,omitempty"`
}

type AuthURLResponse struct {
	URL string `json:"url"`
}

type AuthCodeRequest struct {
	Code string `json:"code"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func ClipToResponse(c steam.Clip, gameName string) ClipResponse {
	resp := ClipResponse{
		Path:      c.Path,
		AccountID: c.AccountID,
		GameID:    c.GameID,
		GameName:  gameName,
		Kind:      string(c.Kind),
	}
	if !c.RecordedAt.IsZero() {
		resp.RecordedAt = c.RecordedAt.Format(time.RFC3339)
	}
	return resp
}

func JobToResponse(j *jobs.Job) JobResponse {
	return JobResponse{
		ID:         j.ID,
		Type:       j.Type,
		Status:     j.Status,
		AccountID:  j.AccountID,
		ClipPath:   j.ClipPath,
		OutputPath: j.OutputPath,
		Progress:   j.Progress,
		Error:      j.Error,
		CreatedAt:  j.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  j.UpdatedAt.Format(time.RFC3339),
	}
}

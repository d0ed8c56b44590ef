// Package jobs is the persistent work queue: converting clips to MP4 and
// uploading finished files. Jobs survive restarts; anything mid-flight when
// the process dies is marked failed on the next startup.
package jobs

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"time"

	"github.com/clipdeck/clipdeck-agent/internal/upload"
)

const (
	TypeConvert = "convert"
	TypeUpload  = "upload"

	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

type Job struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Status     string    `json:"status"`
	AccountID  string    `json:"account_id,omitempty"`
	ClipPath   string    `json:"clip_path,omitempty"`
	OutputPath string    `json:"output_path,omitempty"`
	Payload    string    `json:"-"`
	Progress   int       `json:"progress"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ConvertPayload is the job-specific data for a convert job.
type ConvertPayload struct {
	OutputDir string `json:"output_dir"`
}

// UploadPayload is the job-specific data for an upload job.
type UploadPayload struct {
	FilePath string          `json:"file_path"`
	Meta     upload.Metadata `json:"metadata"`
}

func NewConvertJob(accountID, clipPath, outputDir string) (*Job, error) {
	payload, err := json.Marshal(ConvertPayload{OutputDir: outputDir})
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &Job{
		ID:        NewID(),
		Type:      TypeConvert,
		Status:    StatusPending,
		AccountID: accountID,
		ClipPath:  clipPath,
		Payload:   string(payload),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func NewUploadJob(filePath string, meta upload.Metadata) (*Job, error) {
	payload, err := json.Marshal(UploadPayload{FilePath: filePath, Meta: meta})
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &Job{
		ID:        NewID(),
		Type:      TypeUpload,
		Status:    StatusPending,
		ClipPath:  filePath,
		Payload:   string(payload),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Terminal reports whether the job can no longer change state.
func (j *Job) Terminal() bool {
	switch j.Status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

func NewID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:])
}

package upload

import "sync/atomic"

// Status is the lifecycle state of an upload task.
type Status string

const (
	StatusPending        Status = "pending"
	StatusAuthenticating Status = "authenticating"
	StatusUploading      Status = "uploading"
	StatusRetrying       Status = "retrying"
	StatusCompleted      Status = "completed"
	StatusFailed         Status = "failed"
	StatusCancelled      Status = "cancelled"
)

// Terminal reports whether no further transitions can happen.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Metadata is the video description sent alongside the file.
type Metadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	CategoryID  string   `json:"category_id"`
	Privacy     string   `json:"privacy"`
	Keywords    []string `json:"keywords,omitempty"`
}

// Task is one file to upload. Cancellation is a one-way flag, safe to set
// from any goroutine; the dispatcher observes it between chunks and during
// backoff waits.
type Task struct {
	ID       string
	FilePath string
	Meta     Metadata

	cancelled atomic.Bool
}

func NewTask(id, filePath string, meta Metadata) *Task {
	if meta.Title == "" {
		meta.Title = "Untitled clip"
	}
	if meta.CategoryID == "" {
		meta.CategoryID = "20" // Gaming
	}
	if meta.Privacy == "" {
		meta.Privacy = "private"
	}
	return &Task{ID: id, FilePath: filePath, Meta: meta}
}

// Cancel requests that the upload stop. It never blocks and is idempotent.
func (t *Task) Cancel() {
	t.cancelled.Store(true)
}

// Cancelled reports whether Cancel has been called.
func (t *Task) Cancelled() bool {
	return t.cancelled.Load()
}

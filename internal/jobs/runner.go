package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/clipdeck/clipdeck-agent/internal/steam"
	"github.com/clipdeck/clipdeck-agent/internal/upload"
)

// Converter turns one clip directory into an MP4.
type Converter interface {
	Assemble(ctx context.Context, clip steam.Clip, outDir string) (string, error)
}

// Uploader pushes one file to the video service.
type Uploader interface {
	Run(ctx context.Context, task *upload.Task, events upload.Events) error
}

// Runner polls the queue and executes one job at a time.
type Runner struct {
	repo         Repository
	converter    Converter
	uploader     Uploader
	logger       *slog.Logger
	pollInterval time.Duration
	running      atomic.Bool
	paused       atomic.Bool

	mu      sync.Mutex
	cancels map[string]func()
}

func NewRunner(repo Repository, converter Converter, uploader Uploader, logger *slog.Logger) *Runner {
	return &Runner{
		repo:         repo,
		converter:    converter,
		uploader:     uploader,
		logger:       logger,
		pollInterval: 2 * time.Second,
		cancels:      make(map[string]func()),
	}
}

func (r *Runner) Start(ctx context.Context) {
	if r.running.Swap(true) {
		return
	}

	r.logger.Info("job runner started")

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("job runner stopping")
			r.running.Store(false)
			return
		case <-ticker.C:
			if !r.paused.Load() {
				r.processNextJob(ctx)
			}
		}
	}
}

func (r *Runner) Pause() {
	r.paused.Store(true)
	r.logger.Info("job runner paused")
}

func (r *Runner) Resume() {
	r.paused.Store(false)
	r.logger.Info("job runner resumed")
}

func (r *Runner) IsPaused() bool {
	return r.paused.Load()
}

func (r *Runner) IsRunning() bool {
	return r.running.Load()
}

// Cancel stops a job. A pending job is marked cancelled in place; a running
// one is interrupted and marks itself once it unwinds.
func (r *Runner) Cancel(ctx context.Context, jobID string) error {
	r.mu.Lock()
	cancel, active := r.cancels[jobID]
	r.mu.Unlock()
	if active {
		cancel()
		return nil
	}

	job, err := r.repo.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("job %s not found", jobID)
	}
	if job.Terminal() {
		return fmt.Errorf("job %s is already %s", jobID, job.Status)
	}
	return r.repo.UpdateJobStatus(ctx, jobID, StatusCancelled, "")
}

func (r *Runner) processNextJob(ctx context.Context) {
	pending, err := r.repo.ListPendingJobs(ctx)
	if err != nil {
		r.logger.Error("failed to list pending jobs", "error", err)
		return
	}
	if len(pending) == 0 {
		return
	}

	job := pending[0]
	r.logger.Info("processing job", "job_id", job.ID, "type", job.Type)

	if err := r.repo.UpdateJobStatus(ctx, job.ID, StatusRunning, ""); err != nil {
		r.logger.Error("failed to mark job running", "job_id", job.ID, "error", err)
		return
	}

	jobCtx, cancel := context.WithCancel(ctx)
	r.registerCancel(job.ID, cancel)
	defer func() {
		r.unregisterCancel(job.ID)
		cancel()
	}()

	switch job.Type {
	case TypeConvert:
		r.processConvertJob(jobCtx, job)
	case TypeUpload:
		r.processUploadJob(jobCtx, job)
	default:
		r.logger.Warn("unknown job type", "type", job.Type)
		r.repo.UpdateJobStatus(ctx, job.ID, StatusFailed, "unknown job type")
	}
}

func (r *Runner) processConvertJob(ctx context.Context, job *Job) {
	if r.converter == nil {
		r.repo.UpdateJobStatus(ctx, job.ID, StatusFailed, "clip assembly unavailable (ffmpeg not found)")
		return
	}

	var payload ConvertPayload
	if err := json.Unmarshal([]byte(job.Payload), &payload); err != nil {
		r.repo.UpdateJobStatus(ctx, job.ID, StatusFailed, "malformed job payload")
		return
	}

	meta := steam.ExtractMeta(filepath.Base(job.ClipPath))
	clip := steam.Clip{
		Path:       job.ClipPath,
		AccountID:  job.AccountID,
		GameID:     meta.GameID,
		RecordedAt: meta.RecordedAt,
		Valid:      true,
	}

	out, err := r.converter.Assemble(ctx, clip, payload.OutputDir)
	if err != nil {
		if ctx.Err() != nil {
			r.finishCancelled(job)
			return
		}
		r.logger.Error("convert failed", "job_id", job.ID, "error", err)
		r.repo.UpdateJobStatus(context.Background(), job.ID, StatusFailed, err.Error())
		return
	}

	r.repo.UpdateJobOutput(context.Background(), job.ID, out)
	r.repo.UpdateJobProgress(context.Background(), job.ID, 100)
	r.repo.UpdateJobStatus(context.Background(), job.ID, StatusCompleted, "")
	r.logger.Info("convert job completed", "job_id", job.ID, "output", filepath.Base(out))
}

func (r *Runner) processUploadJob(ctx context.Context, job *Job) {
	if r.uploader == nil {
		r.repo.UpdateJobStatus(ctx, job.ID, StatusFailed, "uploads unavailable (client secrets not installed)")
		return
	}

	var payload UploadPayload
	if err := json.Unmarshal([]byte(job.Payload), &payload); err != nil {
		r.repo.UpdateJobStatus(ctx, job.ID, StatusFailed, "malformed job payload")
		return
	}

	task := upload.NewTask(job.ID, payload.FilePath, payload.Meta)
	go func() {
		<-ctx.Done()
		task.Cancel()
	}()

	events := upload.Events{
		OnProgress: func(sent, total int64) {
			if total > 0 {
				r.repo.UpdateJobProgress(context.Background(), job.ID, int(sent*100/total))
			}
		},
	}

	err := r.uploader.Run(ctx, task, events)
	switch {
	case err == nil:
		r.repo.UpdateJobStatus(context.Background(), job.ID, StatusCompleted, "")
		r.logger.Info("upload job completed", "job_id", job.ID)
	case errors.Is(err, upload.ErrUploadInFlight):
		// Another upload won the slot; requeue and let the next poll retry.
		r.repo.UpdateJobStatus(context.Background(), job.ID, StatusPending, "")
	case errors.Is(err, context.Canceled) || ctx.Err() != nil:
		r.finishCancelled(job)
	default:
		r.logger.Error("upload failed", "job_id", job.ID, "error", err)
		r.repo.UpdateJobStatus(context.Background(), job.ID, StatusFailed, err.Error())
	}
}

func (r *Runner) finishCancelled(job *Job) {
	r.repo.UpdateJobStatus(context.Background(), job.ID, StatusCancelled, "")
	r.logger.Info("job cancelled", "job_id", job.ID)
}

func (r *Runner) registerCancel(jobID string, cancel func()) {
	r.mu.Lock()
	r.cancels[jobID] = cancel
	r.mu.Unlock()
}

func (r *Runner) unregisterCancel(jobID string) {
	r.mu.Lock()
	delete(r.cancels, jobID)
	r.mu.Unlock()
}

// ActiveJobCount reports how many jobs are currently running.
func (r *Runner) ActiveJobCount(ctx context.Context) int {
	all, err := r.repo.ListJobs(ctx, 100)
	if err != nil {
		return 0
	}
	count := 0
	for _, j := range all {
		if j.Status == StatusRunning {
			count++
		}
	}
	return count
}

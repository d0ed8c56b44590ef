package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"sync"
	"time"
)

const (
	// maxRetries bounds transient failures across the whole task, not per
	// chunk; the counter never resets once a chunk succeeds.
	maxRetries = 10

	// cancelPollInterval is how often a backoff wait re-checks for
	// cancellation, keeping cancel latency bounded even during long waits.
	cancelPollInterval = 100 * time.Millisecond

	defaultChunkBytes = 8 * 1024 * 1024
)

// Session is one resumable upload in progress on the remote service.
type Session interface {
	// Put sends one chunk starting at offset. total is the full file size.
	Put(ctx context.Context, chunk []byte, offset, total int64) (*ChunkResult, error)

	// Offset asks the service how many bytes it has durably received, for
	// resynchronising after a network failure mid-chunk. A service that
	// committed the final byte before the failed response reports Done.
	Offset(ctx context.Context, total int64) (*ChunkResult, error)
}

// ChunkResult is the service's answer to one chunk.
type ChunkResult struct {
	Done      bool   // the service accepted the final byte
	VideoID   string // set when Done
	Confirmed int64  // bytes the service has durably received
}

// Client abstracts the upload service so the dispatcher can be tested
// without network access.
type Client interface {
	// Authenticate validates credentials before any bytes move. A failure
	// here is permanent; the dispatcher never retries it.
	Authenticate(ctx context.Context) error

	// Begin opens a resumable session for the file.
	Begin(ctx context.Context, meta Metadata, size int64) (Session, error)
}

// Events receives task lifecycle notifications. All callbacks are optional
// and are invoked from the dispatcher's goroutine. OnDone fires exactly
// once per task.
type Events struct {
	OnStatus   func(Status)
	OnProgress func(sent, total int64)
	OnDone     func(videoID string, err error)
}

// Dispatcher drives upload tasks one at a time.
type Dispatcher struct {
	client      Client
	chunkBytes  int64
	logger      *slog.Logger
	backoffUnit time.Duration // scaled down in tests

	mu     sync.Mutex
	active *Task
}

func NewDispatcher(client Client, chunkBytes int64, logger *slog.Logger) *Dispatcher {
	if chunkBytes <= 0 {
		chunkBytes = defaultChunkBytes
	}
	return &Dispatcher{
		client:      client,
		chunkBytes:  chunkBytes,
		logger:      logger,
		backoffUnit: time.Second,
	}
}

// Active returns the task currently uploading, or nil.
func (d *Dispatcher) Active() *Task {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// Run uploads one task to completion, blocking the caller. It returns
// ErrUploadInFlight when another task is already running. The returned
// error mirrors what OnDone was given.
func (d *Dispatcher) Run(ctx context.Context, task *Task, events Events) error {
	d.mu.Lock()
	if d.active != nil {
		d.mu.Unlock()
		return ErrUploadInFlight
	}
	d.active = task
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.active = nil
		d.mu.Unlock()
	}()

	var doneOnce sync.Once
	finish := func(status Status, videoID string, err error) error {
		doneOnce.Do(func() {
			d.emitStatus(events, status)
			if events.OnDone != nil {
				events.OnDone(videoID, err)
			}
		})
		return err
	}

	log := d.logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	log = log.With("task_id", task.ID)

	d.emitStatus(events, StatusAuthenticating)
	if err := d.client.Authenticate(ctx); err != nil {
		log.Error("upload authentication failed", "error", err)
		return finish(StatusFailed, "", fmt.Errorf("authenticate: %w", err))
	}

	file, err := os.Open(task.FilePath)
	if err != nil {
		return finish(StatusFailed, "", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return finish(StatusFailed, "", err)
	}
	total := info.Size()
	if total == 0 {
		return finish(StatusFailed, "", fmt.Errorf("%s is empty", task.FilePath))
	}

	d.emitStatus(events, StatusUploading)
	log.Info("upload starting", "bytes", total, "title", task.Meta.Title)

	var (
		sess    Session
		offset  int64
		retries int
		buf     = make([]byte, d.chunkBytes)
	)

	// retryOrFail decides the fate of a transient failure: wait and go
	// around again, or give up once the cumulative budget is spent.
	retryOrFail := func(cause error) error {
		retries++
		if retries > maxRetries {
			log.Error("upload failed after retries", "retries", retries-1, "error", cause)
			return fmt.Errorf("giving up after %d retries: %w", maxRetries, cause)
		}
		d.emitStatus(events, StatusRetrying)
		log.Warn("transient upload failure, backing off",
			"retry", retries, "error", cause)
		if !d.backoff(ctx, task, retries) {
			return nil // cancelled during backoff; loop re-checks
		}
		d.emitStatus(events, StatusUploading)
		return nil
	}

	for {
		if task.Cancelled() || ctx.Err() != nil {
			log.Info("upload cancelled", "sent", offset, "total", total)
			return finish(StatusCancelled, "", context.Canceled)
		}

		if sess == nil {
			s, err := d.client.Begin(ctx, task.Meta, total)
			if err != nil {
				if !retryable(err) {
					return finish(StatusFailed, "", err)
				}
				if failErr := retryOrFail(err); failErr != nil {
					return finish(StatusFailed, "", failErr)
				}
				continue
			}
			sess = s
			offset = 0
		}

		n, err := file.ReadAt(buf, offset)
		if err != nil && err != io.EOF {
			return finish(StatusFailed, "", fmt.Errorf("read %s: %w", task.FilePath, err))
		}
		if n == 0 {
			return finish(StatusFailed, "", fmt.Errorf("no data at offset %d of %d", offset, total))
		}

		res, err := sess.Put(ctx, buf[:n], offset, total)
		if err != nil {
			if !retryable(err) {
				log.Error("upload rejected", "error", err)
				return finish(StatusFailed, "", err)
			}
			if failErr := retryOrFail(err); failErr != nil {
				return finish(StatusFailed, "", failErr)
			}
			// After a network-level failure the service may have kept
			// some or all of the chunk, or even finished the upload if
			// only the final response was lost. Ask before resending.
			if state, offErr := sess.Offset(ctx, total); offErr == nil {
				if state.Done {
					d.emitProgress(events, total, total)
					log.Info("upload complete", "video_id", state.VideoID, "bytes", total)
					return finish(StatusCompleted, state.VideoID, nil)
				}
				offset = state.Confirmed
			}
			continue
		}

		if res.Done {
			d.emitProgress(events, total, total)
			log.Info("upload complete", "video_id", res.VideoID, "bytes", total)
			return finish(StatusCompleted, res.VideoID, nil)
		}

		offset = res.Confirmed
		d.emitProgress(events, offset, total)
	}
}

// backoff sleeps for a jittered exponential delay, polling for cancellation.
// It returns false when the wait was cut short by cancellation.
func (d *Dispatcher) backoff(ctx context.Context, task *Task, retry int) bool {
	delay := time.Duration(rand.Float64() * math.Pow(2, float64(retry)) * float64(d.backoffUnit))
	deadline := time.Now().Add(delay)
	for time.Now().Before(deadline) {
		if task.Cancelled() || ctx.Err() != nil {
			return false
		}
		remaining := time.Until(deadline)
		if remaining > cancelPollInterval {
			remaining = cancelPollInterval
		}
		time.Sleep(remaining)
	}
	return true
}

func (d *Dispatcher) emitStatus(events Events, s Status) {
	if events.OnStatus != nil {
		events.OnStatus(s)
	}
}

func (d *Dispatcher) emitProgress(events Events, sent, total int64) {
	if events.OnProgress != nil {
		events.OnProgress(sent, total)
	}
}

// retryable classifies an error from Begin or Put. HTTP errors follow the
// status code; anything else is assumed to be a network hiccup and retried.
func retryable(err error) bool {
	var uerr *UploadError
	if errors.As(err, &uerr) {
		return uerr.IsRetryable()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/clipdeck/clipdeck-agent/internal/db"
	"github.com/clipdeck/clipdeck-agent/internal/jobs"
	"github.com/clipdeck/clipdeck-agent/internal/preview"
	"github.com/clipdeck/clipdeck-agent/internal/steam"
)

const testToken = "test-token"

type testEnv struct {
	cfg         ServerConfig
	repo        *jobs.SQLiteRepository
	userdataDir string
	exportDir   string
	server      *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	database, err := db.New(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { database.Close() })

	repo := jobs.NewRepository(database.Conn())
	if err := repo.SetConfig(context.Background(), "auth_token", testToken); err != nil {
		t.Fatal(err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	userdataDir := t.TempDir()
	exportDir := t.TempDir()

	cfg := ServerConfig{
		Port:        0,
		UserdataDir: userdataDir,
		ExportDir:   exportDir,
		CacheDir:    t.TempDir(),
		Repository:  repo,
		Scanner:     steam.NewScanner(logger),
		Preview:     preview.NewServer(logger, exportDir),
		Logger:      logger,
		StartTime:   time.Now(),
		DeviceID:    "dev-1",
	}

	env := &testEnv{cfg: cfg, repo: repo, userdataDir: userdataDir, exportDir: exportDir}
	env.server = httptest.NewServer(NewRouter(cfg))
	t.Cleanup(env.server.Close)
	return env
}

func (e *testEnv) request(t *testing.T, method, path string, body any, authed bool) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatal(err)
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	return out
}

// addClip creates a clip directory for an account, valid or not.
func (e *testEnv) addClip(t *testing.T, accountID, name string, valid bool) string {
	t.Helper()
	dir := filepath.Join(e.userdataDir, accountID, "gamerecordings", "clips", name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if valid {
		if err := os.WriteFile(filepath.Join(dir, "session.mpd"), []byte("<MPD/>"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestHealthNoAuthRequired(t *testing.T) {
	env := newTestEnv(t)
	resp := env.request(t, http.MethodGet, "/health", nil, false)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	health := decodeBody[HealthResponse](t, resp)
	if health.Status != "ok" || health.DeviceID != "dev-1" {
		t.Errorf("health = %+v", health)
	}
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodGet, "/status", nil, false)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, env.server.URL+"/status", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong token: status = %d, want 401", resp2.StatusCode)
	}

	resp3 := env.request(t, http.MethodGet, "/status", nil, true)
	resp3.Body.Close()
	if resp3.StatusCode != http.StatusOK {
		t.Errorf("valid token: status = %d, want 200", resp3.StatusCode)
	}
}

func TestListAccountsAndClips(t *testing.T) {
	env := newTestEnv(t)
	env.addClip(t, "1001", "clip_730_20240101120000", true)
	env.addClip(t, "1001", "clip_730_20240102120000", false)

	resp := env.request(t, http.MethodGet, "/accounts", nil, true)
	accounts := decodeBody[AccountsResponse](t, resp)
	if len(accounts.Accounts) != 1 || accounts.Accounts[0].ID != "1001" {
		t.Fatalf("accounts = %+v", accounts)
	}

	resp = env.request(t, http.MethodGet, "/accounts/1001/clips", nil, true)
	clips := decodeBody[ClipsResponse](t, resp)
	if len(clips.Clips) != 1 {
		t.Fatalf("clips = %+v, want just the valid one", clips)
	}
	if clips.Clips[0].GameID != "730" || clips.Clips[0].Kind != "manual" {
		t.Errorf("clip = %+v", clips.Clips[0])
	}

	resp = env.request(t, http.MethodGet, "/accounts/1001/clips?kind=background", nil, true)
	clips = decodeBody[ClipsResponse](t, resp)
	if len(clips.Clips) != 0 {
		t.Errorf("background filter leaked manual clips: %+v", clips)
	}

	resp = env.request(t, http.MethodGet, "/accounts/1001/clips?kind=bogus", nil, true)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bogus kind: status = %d, want 400", resp.StatusCode)
	}

	resp = env.request(t, http.MethodGet, "/accounts/9999/clips", nil, true)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown account: status = %d, want 404", resp.StatusCode)
	}
}

func TestInvalidClipsLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.addClip(t, "1001", "clip_730_20240101120000", true)
	broken := env.addClip(t, "1001", "clip_730_20240102120000", false)
	healed := env.addClip(t, "1001", "clip_730_20240103120000", false)

	resp := env.request(t, http.MethodGet, "/accounts/1001/clips/invalid", nil, true)
	invalid := decodeBody[InvalidClipsResponse](t, resp)
	if len(invalid.Paths) != 2 {
		t.Fatalf("invalid = %+v, want 2", invalid)
	}

	// Steam finishes writing one of them before the user confirms.
	if err := os.WriteFile(filepath.Join(healed, "session.mpd"), []byte("<MPD/>"), 0o644); err != nil {
		t.Fatal(err)
	}

	resp = env.request(t, http.MethodPost, "/accounts/1001/clips/invalid/delete",
		DeleteInvalidRequest{Paths: []string{broken, healed}}, true)
	result := decodeBody[DeleteInvalidResponse](t, resp)
	if result.Deleted != 1 || len(result.Skipped) != 1 {
		t.Fatalf("delete = %+v, want 1 deleted 1 skipped", result)
	}

	if _, err := os.Stat(broken); !os.IsNotExist(err) {
		t.Error("broken clip still present")
	}
	if _, err := os.Stat(healed); err != nil {
		t.Error("healed clip was deleted")
	}
}

func TestConvertQueuesJobs(t *testing.T) {
	env := newTestEnv(t)
	clip := env.addClip(t, "1001", "clip_730_20240101120000", true)

	resp := env.request(t, http.MethodPost, "/convert",
		ConvertRequest{AccountID: "1001", ClipPaths: []string{clip}}, true)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	result := decodeBody[ConvertResponse](t, resp)
	if len(result.JobIDs) != 1 {
		t.Fatalf("job ids = %v", result.JobIDs)
	}

	job, err := env.repo.GetJob(context.Background(), result.JobIDs[0])
	if err != nil || job == nil {
		t.Fatalf("queued job not found: %v", err)
	}
	if job.Type != jobs.TypeConvert || job.Status != jobs.StatusPending || job.ClipPath != clip {
		t.Errorf("job = %+v", job)
	}
}

func TestConvertValidation(t *testing.T) {
	env := newTestEnv(t)
	clip := env.addClip(t, "1001", "clip_730_20240101120000", true)
	invalid := env.addClip(t, "1001", "clip_730_20240102120000", false)

	resp := env.request(t, http.MethodPost, "/convert", ConvertRequest{ClipPaths: nil}, true)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty paths: status = %d, want 400", resp.StatusCode)
	}

	resp = env.request(t, http.MethodPost, "/convert",
		ConvertRequest{ClipPaths: []string{invalid}}, true)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid clip: status = %d, want 400", resp.StatusCode)
	}

	resp = env.request(t, http.MethodPost, "/convert",
		ConvertRequest{ClipPaths: []string{clip}, OutputDir: filepath.Join(env.exportDir, "missing")}, true)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad output dir: status = %d, want 400", resp.StatusCode)
	}
}

func TestUploadRequiresYouTubeAuth(t *testing.T) {
	env := newTestEnv(t)
	file := filepath.Join(env.exportDir, "clip.mp4")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	// No authenticator configured: queueing an upload must be refused.
	resp := env.request(t, http.MethodPost, "/uploads", UploadRequest{FilePath: file}, true)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", resp.StatusCode)
	}

	resp = env.request(t, http.MethodPost, "/uploads", UploadRequest{FilePath: ""}, true)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing file_path: status = %d, want 400", resp.StatusCode)
	}
}

func TestJobsEndpoints(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	job, _ := jobs.NewConvertJob("1001", "/clips/clip_730_20240101120000", "/out")
	if err := env.repo.CreateJob(ctx, job); err != nil {
		t.Fatal(err)
	}

	resp := env.request(t, http.MethodGet, "/jobs", nil, true)
	list := decodeBody[JobsResponse](t, resp)
	if len(list.Jobs) != 1 || list.Jobs[0].ID != job.ID {
		t.Fatalf("jobs = %+v", list)
	}

	resp = env.request(t, http.MethodGet, "/jobs/"+job.ID, nil, true)
	got := decodeBody[JobResponse](t, resp)
	if got.ID != job.ID || got.Status != jobs.StatusPending {
		t.Errorf("job = %+v", got)
	}

	resp = env.request(t, http.MethodGet, "/jobs/nope", nil, true)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown job: status = %d, want 404", resp.StatusCode)
	}
}

func TestPreviewFileEndpoint(t *testing.T) {
	env := newTestEnv(t)
	file := filepath.Join(env.exportDir, "clip.mp4")
	if err := os.WriteFile(file, []byte("0123456789"), 0o644); err != nil {
		t.Fatal(err)
	}

	resp := env.request(t, http.MethodGet, "/preview/file?path="+file, nil, true)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "0123456789" {
		t.Errorf("body = %q", body)
	}

	outside := filepath.Join(t.TempDir(), "secret.mp4")
	if err := os.WriteFile(outside, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	resp = env.request(t, http.MethodGet, "/preview/file?path="+outside, nil, true)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("outside export dir: status = %d, want 403", resp.StatusCode)
	}
}

func TestStatusReportsCounts(t *testing.T) {
	env := newTestEnv(t)
	env.addClip(t, "1001", "clip_730_20240101120000", true)
	env.addClip(t, "1001", fmt.Sprintf("clip_730_%s", time.Now().Format("20060102150405")), true)

	resp := env.request(t, http.MethodGet, "/status", nil, true)
	status := decodeBody[StatusResponse](t, resp)
	if status.State != "idle" {
		t.Errorf("state = %q", status.State)
	}
	if status.AccountsCount != 1 || status.ClipsCount != 2 {
		t.Errorf("counts = %+v", status)
	}
	if status.Authenticated {
		t.Error("authenticated should be false without an authenticator")
	}
}

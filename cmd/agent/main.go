package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/clipdeck/clipdeck-agent/internal/api"
	"github.com/clipdeck/clipdeck-agent/internal/assembly"
	"github.com/clipdeck/clipdeck-agent/internal/config"
	"github.com/clipdeck/clipdeck-agent/internal/db"
	"github.com/clipdeck/clipdeck-agent/internal/games"
	"github.com/clipdeck/clipdeck-agent/internal/jobs"
	"github.com/clipdeck/clipdeck-agent/internal/logging"
	"github.com/clipdeck/clipdeck-agent/internal/preview"
	"github.com/clipdeck/clipdeck-agent/internal/steam"
	"github.com/clipdeck/clipdeck-agent/internal/ui"
	"github.com/clipdeck/clipdeck-agent/internal/upload"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	if err := os.MkdirAll(cfg.CacheDir(), 0755); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting clipdeck agent",
		"version", config.Version,
		"data_dir", cfg.DataDir(),
		"userdata_dir", cfg.UserdataDir(),
	)

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := jobs.NewRepository(database.Conn())

	deviceID, err := ensureDeviceID(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure device ID: %w", err)
	}

	authToken, err := ensureAuthToken(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Printf("║                   CLIPDECK AGENT v%-8s                ║\n", config.Version)
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-27d ║\n", cfg.Port())
	fmt.Printf("║  Auth Token: %-45s ║\n", authToken)
	fmt.Printf("║  Device ID:  %-45s ║\n", deviceID[:16]+"...")
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	scanner := steam.NewScanner(logging.WithComponent(logger, "steam"))

	nameCache, err := games.OpenCache(cfg.GameNamesPath())
	if err != nil {
		return fmt.Errorf("failed to open game name cache: %w", err)
	}
	resolver := games.NewResolver(nameCache, games.NewClient(""), logging.WithComponent(logger, "games"))

	var assembler *assembly.Assembler
	var converter jobs.Converter
	asm, err := assembly.New(assembly.Config{
		FFmpegPath: cfg.FFmpegPath(),
		WorkDir:    filepath.Join(cfg.DataDir(), "work"),
		Names:      resolver,
		Logger:     logging.WithComponent(logger, "assembly"),
	})
	if err != nil {
		logger.Warn("ffmpeg unavailable, clip assembly disabled", "error", err)
	} else {
		assembler = asm
		converter = asm
	}

	var authenticator *upload.Authenticator
	var uploader jobs.Uploader
	uploadLogger := logging.WithComponent(logger, "upload")
	auth, err := upload.NewAuthenticator(cfg.ClientSecretsPath(), cfg.OAuthTokenPath(), uploadLogger)
	if err != nil {
		logger.Warn("client secrets not installed, uploads disabled",
			"path", cfg.ClientSecretsPath(), "error", err)
	} else {
		authenticator = auth
		ytClient := upload.NewYouTubeClient(auth, uploadLogger)
		uploader = upload.NewDispatcher(ytClient, cfg.UploadChunkBytes(), uploadLogger)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := jobs.NewRunner(repo, converter, uploader, logging.WithComponent(logger, "jobs"))
	go runner.Start(ctx)

	previewSrv := preview.NewServer(logging.WithComponent(logger, "preview"),
		cfg.UserdataDir(), cfg.ExportDir(), cfg.CacheDir())

	apiServer := api.NewServer(api.ServerConfig{
		Port:          cfg.Port(),
		UserdataDir:   cfg.UserdataDir(),
		ExportDir:     cfg.ExportDir(),
		CacheDir:      cfg.CacheDir(),
		Repository:    repo,
		Runner:        runner,
		Scanner:       scanner,
		Assembler:     assembler,
		Games:         resolver,
		Authenticator: authenticator,
		Preview:       previewSrv,
		Logger:        logging.WithComponent(logger, "api"),
		StartTime:     startTime,
		DeviceID:      deviceID,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// A signal and a tray quit can race; the once guard keeps the second
	// trigger from closing the channel again.
	quitCh, requestQuit := newQuitChannel()

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			requestQuit()
		case <-quitCh:
		}
	}()

	if cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray := ui.NewTray(ui.TrayConfig{
			Runner: runner,
			Logger: logger,
			OnOpenExports: func() error {
				return exec.Command("xdg-open", cfg.ExportDir()).Start()
			},
			OnQuit: requestQuit,
		})
		go tray.Run()
	}

	<-quitCh

	logger.Info("initiating graceful shutdown")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// newQuitChannel returns a channel closed by the first call to the trigger.
// Later calls are no-ops, so concurrent shutdown paths cannot double-close.
func newQuitChannel() (chan struct{}, func()) {
	ch := make(chan struct{})
	var once sync.Once
	return ch, func() {
		once.Do(func() { close(ch) })
	}
}

func ensureDeviceID(repo jobs.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "device_id")
	if err == nil && existing != "" {
		return existing, nil
	}

	idBytes := make([]byte, 16)
	if _, err := rand.Read(idBytes); err != nil {
		return "", err
	}
	deviceID := hex.EncodeToString(idBytes)

	if err := repo.SetConfig(ctx, "device_id", deviceID); err != nil {
		return "", err
	}

	return deviceID, nil
}

func ensureAuthToken(repo jobs.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "auth_token")
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, "auth_token", token); err != nil {
		return "", err
	}

	return token, nil
}

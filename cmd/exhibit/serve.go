package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/exhibit"
	"github.com/aretw0/exhibit/internal/config"
	"github.com/aretw0/exhibit/internal/logging"
	"github.com/aretw0/exhibit/pkg/adapters/audio"
	httpAdapter "github.com/aretw0/exhibit/pkg/adapters/http"
	"github.com/aretw0/exhibit/pkg/adapters/memory"
	"github.com/aretw0/exhibit/pkg/adapters/redis"
	"github.com/aretw0/exhibit/pkg/domain"
	"github.com/aretw0/exhibit/pkg/observability"
	"github.com/aretw0/exhibit/pkg/persistence/middleware"
	"github.com/aretw0/exhibit/pkg/ports"
	"github.com/aretw0/exhibit/pkg/session"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve [scene]",
	Short: "Start the HTTP server",
	Long: `Starts the engine as an HTTP server exposing navigation, trigger volumes,
messages and a live event stream (SSE).

Configuration is read from EXHIBIT_* environment variables. When
EXHIBIT_REDIS_ADDR is set, navigation checkpoints and tour locks go to Redis;
otherwise they are kept in memory. EXHIBIT_AUDIO_DIR enables WAV playback
through the software mixer.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadServer()
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); cmd.Flags().Changed("addr") {
			cfg.Addr = addr
		}
		if level, _ := cmd.Flags().GetString("log-level"); cmd.Flags().Changed("log-level") {
			cfg.LogLevel = level
		}
		tour, _ := cmd.Flags().GetString("tour")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, scenePath(cmd, args), tour, cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Address to listen on (overrides EXHIBIT_ADDR)")
	serveCmd.Flags().String("tour", "default", "Tour id navigation is checkpointed under")
}

func runServe(ctx context.Context, path, tour string, cfg config.Server) error {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := logging.New(level)

	sessions, closeStore, err := newSessions(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	streams := httpAdapter.NewStreamManager(logger)
	var metrics *observability.Metrics
	if cfg.Metrics {
		metrics = observability.NewMetrics()
	}

	// Checkpoints are written once the engine exists; hooks fire only after New returns.
	var ex *exhibit.Exhibit
	checkpoint := func(ctx context.Context) {
		if ex == nil {
			return
		}
		if err := sessions.Checkpoint(context.WithoutCancel(ctx), tour, ex.Navigator()); err != nil {
			logger.Error("Checkpoint failed", "tour", tour, "err", err)
		}
	}

	opts := []exhibit.Option{
		exhibit.WithLogger(logger),
		exhibit.WithLifecycleHooks(domain.CombineHooks(streams.Hooks(), domain.LifecycleHooks{
			OnNodeSwitch:   func(ctx context.Context, _ *domain.TransitionEvent) { checkpoint(ctx) },
			OnHistoryClear: checkpoint,
		})),
	}
	if metrics != nil {
		opts = append(opts, exhibit.WithMetrics(metrics))
	}
	if cfg.AudioDir != "" {
		lib := audio.NewLibrary(cfg.AudioDir, audio.WithLogger(logger))
		mixer := audio.NewMixer(lib)
		go mixer.Run(ctx, 50*time.Millisecond)

		opts = append(opts,
			exhibit.WithMixer(mixer),
			exhibit.WithPlayers(func(ref string) ports.AudioPlayer { return mixer.NamedVoice(ports.ChannelSFX, ref) }),
			exhibit.WithClips(func(ctx context.Context, path string) (ports.Clip, error) {
				clip, err := lib.Load(ctx, path)
				if err != nil {
					return nil, err
				}
				return clip, nil
			}),
		)
		logger.Info("Audio enabled", "dir", cfg.AudioDir)
	}

	ex, err = exhibit.New(path, opts...)
	if err != nil {
		return fmt.Errorf("failed to load scene: %w", err)
	}

	resumed, err := sessions.Resume(ctx, tour, ex.Navigator())
	if err != nil {
		logger.Warn("Tour not resumed", "tour", tour, "err", err)
	} else if resumed {
		logger.Info("Tour resumed", "tour", tour)
	}

	handlerOpts := []httpAdapter.Option{
		httpAdapter.WithStreams(streams),
		httpAdapter.WithLogger(logger),
	}
	if metrics != nil {
		handlerOpts = append(handlerOpts, httpAdapter.WithMetrics(metrics.Handler()))
	}
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpAdapter.NewHandler(ex, handlerOpts...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Starting exhibit server", "addr", srv.Addr, "scene", ex.Scene().Name, "tour", tour)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil

	case <-ctx.Done():
		logger.Info("Start shutdown")

		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
			if err := srv.Close(); err != nil {
				logger.Error("Error killing server", "err", err)
			}
		}
		checkpoint(shutdownCtx)
		if err := ex.Close(shutdownCtx); err != nil {
			logger.Error("Scene teardown failed", "err", err)
		}
		logger.Info("Exhibit server stopped gracefully")
		return nil
	}
}

// newSessions picks Redis when configured and the in-memory store otherwise. Checkpoints are
// sealed when snapshot keys are configured.
func newSessions(cfg config.Server, logger *slog.Logger) (*session.Manager, func(), error) {
	var store ports.SnapshotStore = memory.NewStore()
	opts := []session.Option{session.WithLogger(logger)}
	closeFunc := func() {}
	if cfg.UseRedis() {
		rs := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, redis.WithTTL(cfg.SnapshotTTL))
		store = rs
		opts = append(opts, session.WithLocker(redis.NewLocker(rs.Client(), redis.DefaultPrefix)))
		closeFunc = func() { _ = rs.Client().Close() }
		logger.Info("Using redis", "addr", cfg.RedisAddr)
	}

	if len(cfg.SnapshotKeys) > 0 {
		keys := make([][]byte, 0, len(cfg.SnapshotKeys))
		for i, raw := range cfg.SnapshotKeys {
			key, err := middleware.ParseKey(raw)
			if err != nil {
				closeFunc()
				return nil, nil, fmt.Errorf("EXHIBIT_SNAPSHOT_KEYS[%d]: %w", i, err)
			}
			keys = append(keys, key)
		}
		seal, err := middleware.NewEncryption(middleware.EncryptionConfig{ActiveKey: keys[0], FallbackKeys: keys[1:]})
		if err != nil {
			closeFunc()
			return nil, nil, err
		}
		store = middleware.Chain(store, seal)
	}
	return session.NewManager(store, opts...), closeFunc, nil
}

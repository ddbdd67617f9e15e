package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	comfy "pixelforge/generation-engine/api/comfy/client"
	"pixelforge/generation-engine/api/rest"
	"pixelforge/generation-engine/internal/config"
	"pixelforge/generation-engine/internal/metrics"
	"pixelforge/generation-engine/internal/processor"
	"pixelforge/generation-engine/internal/scheduler"
	"pixelforge/generation-engine/internal/topics"
	"pixelforge/generation-engine/pkg/logger"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the engine and its control surface",
	RunE:  runEngine,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// bootstrap loads configuration and wires the core components shared by
// the run and generate commands.
type engineParts struct {
	cfg        *config.Config
	client     *comfy.Client
	repo       *topics.Repository
	dispatcher *scheduler.Dispatcher
	recorder   *metrics.Recorder
}

func bootstrap() (*engineParts, error) {
	// Optional .env; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	logger.SetLevelFromString(cfg.Logging.Level)

	repo := topics.NewRepository(cfg.Paths.TopicsDir)
	if err := repo.Reload(); err != nil {
		return nil, err
	}
	if len(repo.All()) == 0 {
		logger.Warn("no topics loaded from %s", cfg.Paths.TopicsDir)
	}

	client := comfy.NewClient(&comfy.Config{
		BaseURL:        cfg.Engine.BaseURL,
		APIKey:         cfg.Engine.APIKey,
		EventTimeout:   cfg.Engine.EventTimeout,
		RunTimeout:     cfg.Engine.RunTimeout,
		RequestTimeout: cfg.Engine.RunTimeout,
	})

	recorder := metrics.NewRecorder()
	dispatcher := scheduler.New(&scheduler.Config{
		MaxWorkers:    cfg.Limits.MaxWorkers,
		PerTopicLimit: cfg.Limits.PerTopic,
		QueueSize:     cfg.Limits.QueueSize,
	})

	deliverer, err := processor.NewFileDeliverer(cfg.Paths.OutputDir)
	if err != nil {
		return nil, err
	}
	pipeline := processor.New(client, repo, deliverer, recorder)
	dispatcher.SetProcessor(pipeline.Process)

	return &engineParts{
		cfg:        cfg,
		client:     client,
		repo:       repo,
		dispatcher: dispatcher,
		recorder:   recorder,
	}, nil
}

func runEngine(cmd *cobra.Command, args []string) error {
	parts, err := bootstrap()
	if err != nil {
		return err
	}
	defer parts.dispatcher.Shutdown()

	if !parts.client.HealthCheck(cmd.Context()) {
		logger.Warn("remote engine at %s is not responding", parts.cfg.Engine.BaseURL)
	}

	var server *rest.Server
	if parts.cfg.Server.Enabled {
		server = rest.NewServer(
			&rest.Config{Address: parts.cfg.Server.Address},
			parts.dispatcher,
			parts.recorder,
			func(ctx context.Context) bool { return parts.client.HealthCheck(ctx) },
		)
		go func() {
			if err := server.Start(); err != nil {
				logger.Error("control surface stopped: %v", err)
			}
		}()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	fmt.Fprintf(os.Stderr, "\nreceived %s, shutting down\n", s)

	if server != nil {
		_ = server.Shutdown()
	}
	return nil
}

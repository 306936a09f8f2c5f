package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/alexanderramin/sitepilot/internal/cli"
	"github.com/alexanderramin/sitepilot/internal/cms"
	"github.com/alexanderramin/sitepilot/internal/config"
	"github.com/alexanderramin/sitepilot/internal/db"
	"github.com/alexanderramin/sitepilot/internal/llm"
	"github.com/alexanderramin/sitepilot/internal/logging"
	"github.com/alexanderramin/sitepilot/internal/metrics"
	"github.com/alexanderramin/sitepilot/internal/redisstore"
	"github.com/alexanderramin/sitepilot/internal/repository"
	"github.com/alexanderramin/sitepilot/internal/session"
	"github.com/alexanderramin/sitepilot/internal/siteintel"
	"github.com/alexanderramin/sitepilot/internal/wizard"
	"github.com/alexanderramin/sitepilot/internal/worker"
	"github.com/mattn/go-isatty"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func configPath() string {
	if p := os.Getenv("SITEPILOT_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".sitepilot", "config.yaml")
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func run() error {
	cfg, err := config.Load(configPath())
	if err != nil {
		return err
	}

	level := logging.ParseLevel(cfg.LogLevel)
	logger := logging.New(level, os.Stderr)
	if !isTerminal(os.Stderr) {
		logger = logging.NewJSON(level, os.Stderr)
	}

	// Open database
	database, err := db.OpenDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	// Wire repositories
	projectRepo := repository.NewSQLiteProjectRepo(database)
	articleRepo := repository.NewSQLiteArticleRepo(database)
	imageRepo := repository.NewSQLiteImageRepo(database)

	m := metrics.New()

	// Generative backends
	llmCfg := cfg.LLMConfig()
	observers := llm.MultiObserver{m}
	if llmCfg.LogCalls {
		observers = append(observers, llm.NewLogObserver(logger))
	}
	llmClient := llm.NewClient(llmCfg, observers)

	var vision llm.ImageDescriber
	if llmCfg.VisionAPIKey != "" {
		describer, err := llm.NewGeminiDescriber(context.Background(), llmCfg, observers)
		if err != nil {
			return err
		}
		vision = describer
	}

	// Sessions and the per-project pool; Redis shares both across processes.
	var sessions session.Store = session.NewMemoryStore()
	poolOpts := []worker.Option{worker.WithLogger(logger), worker.WithObserver(m)}
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		sessions = redisstore.NewFromClient(client,
			redisstore.WithPrefix(cfg.Redis.Prefix),
			redisstore.WithTTL(cfg.Redis.SessionTTL),
		)
		poolOpts = append(poolOpts, worker.WithLocker(redisstore.NewLocker(client, cfg.Redis.Prefix), 10*time.Minute))
		logger.Info("redis_enabled", "addr", cfg.Redis.Addr)
	}
	pool := worker.New(cfg.Workers, poolOpts...)

	site := siteintel.New(
		siteintel.WithLogger(logger),
		siteintel.WithSearchLocale(cfg.Search.Region, cfg.Search.Lang),
	)

	app := &cli.App{
		Config:   cfg,
		Projects: projectRepo,
		Articles: articleRepo,
		Pool:     pool,
		Metrics:  m,
		NewWizard: func(tr wizard.Transport) (*wizard.Wizard, error) {
			return wizard.New(wizard.Deps{
				Projects:  projectRepo,
				Articles:  articleRepo,
				Images:    imageRepo,
				Transport: tr,
				Site:      site,
				LLM:       llmClient,
				Vision:    vision,
				CMS:       cms.NewWordPress(nil),
				Sessions:  sessions,
				Runner:    pool,
				Recorder:  m,
				Logger:    logger,
			})
		},
		IsInteractive: func() bool { return isTerminal(os.Stdin) },
	}
	slog.SetDefault(logger)

	return cli.NewRootCmd(app).Execute()
}

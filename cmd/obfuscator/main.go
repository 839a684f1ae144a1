package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"obfuscator/internal/config"
	"obfuscator/internal/engine"
	"obfuscator/internal/job"
	"obfuscator/internal/notify"
	"obfuscator/internal/server"
	"obfuscator/internal/sweep"

	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:     "obfuscator",
		Short:   "Web-facing obfuscation job runner",
		Long:    "Accepts JavaScript uploads, applies a named transformation preset plus optional anti-tamper and password-gate wrapping, and streams job progress over a websocket.",
		Version: version,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.obfuscator/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(runCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func loadConfig() *config.Config {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Warn("config not found, using defaults", "path", cfgPath, "err", err)
		cfg = config.Defaults()
		cfg.General.DataDir = config.ExpandPath(cfg.General.DataDir)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.General.LogLevel)); err == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}
	return cfg
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write the default config and create the data directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg := config.Defaults()
			if err := config.Save(cfgPath, cfg); err != nil {
				return err
			}
			dataDir := config.ExpandPath(cfg.General.DataDir)
			cfg.General.DataDir = dataDir
			for _, dir := range []string{cfg.UploadDir(), cfg.OutputDir()} {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return err
				}
			}
			logger.Info("initialized", "config", cfgPath, "data", dataDir)
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web server, progress channel, and retention sweeper",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	for _, dir := range []string{cfg.UploadDir(), cfg.OutputDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := job.NewStore(cfg.DBPath(), logger)
	if err != nil {
		return err
	}
	defer store.Close()

	eng := engine.NewExec(engine.ExecConfig{
		Command:        cfg.Engine.Command,
		Args:           cfg.Engine.Args,
		Timeout:        time.Duration(cfg.Engine.TimeoutSeconds) * time.Second,
		MaxOutputBytes: cfg.Engine.MaxOutputBytes,
		Logger:         logger,
	})

	var notifier job.Notifier
	if cfg.Notify.Telegram.Enabled {
		tg, err := notify.NewTelegram(notify.TelegramConfig{
			Token:  cfg.Notify.Telegram.Token,
			ChatID: cfg.Notify.Telegram.ChatID,
			Logger: logger,
		})
		if err != nil {
			logger.Warn("telegram notifier disabled", "err", err)
		} else {
			notifier = tg
		}
	}

	runner := job.NewRunner(job.RunnerConfig{
		UploadDir: cfg.UploadDir(),
		OutputDir: cfg.OutputDir(),
		Engine:    eng,
		Store:     store,
		Notifier:  notifier,
		Logger:    logger,
	})

	sweeper := sweep.New(sweep.Config{
		Dirs:          []string{cfg.UploadDir(), cfg.OutputDir()},
		RetentionDays: cfg.Retention.Days,
		Interval:      time.Duration(cfg.Retention.IntervalHours) * time.Hour,
		Logger:        logger,
	})
	go sweeper.Start(ctx)

	srv := server.New(server.Config{
		Host:      cfg.Server.Host,
		Port:      cfg.Server.Port,
		UploadDir: cfg.UploadDir(),
		OutputDir: cfg.OutputDir(),
		Runner:    runner,
		History:   store,
		Logger:    logger,
	})
	return srv.Start(ctx)
}

func runCmd() *cobra.Command {
	var presetName, password, outDir string
	var antiBypass bool

	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Obfuscate a single local file without the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()

			abs, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}

			eng := engine.NewExec(engine.ExecConfig{
				Command:        cfg.Engine.Command,
				Args:           cfg.Engine.Args,
				Timeout:        time.Duration(cfg.Engine.TimeoutSeconds) * time.Second,
				MaxOutputBytes: cfg.Engine.MaxOutputBytes,
				Logger:         logger,
			})

			runner := job.NewRunner(job.RunnerConfig{
				UploadDir: filepath.Dir(abs),
				OutputDir: outDir,
				Engine:    eng,
				Logger:    logger,
			})

			base := filepath.Base(abs)
			req := job.Request{
				File:       base,
				Preset:     presetName,
				Password:   password,
				AntiBypass: antiBypass,
				Prefix:     strings.TrimSuffix(base, filepath.Ext(base)),
			}
			return runner.Run(cmd.Context(), req, &cliSink{})
		},
	}

	cmd.Flags().StringVarP(&presetName, "preset", "p", "", "preset name (default: ultra-safe)")
	cmd.Flags().StringVar(&password, "password", "", "wrap output in a password gate")
	cmd.Flags().BoolVar(&antiBypass, "antibypass", false, "prepend the anti-bypass guard")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "output directory")
	return cmd
}

// cliSink prints progress to stderr for the one-shot command.
type cliSink struct{}

func (c *cliSink) Progress(status string, percent int) {
	fmt.Fprintf(os.Stderr, "%3d%% %s\n", percent, status)
}

func (c *cliSink) Done(filename, _ string) {
	fmt.Fprintf(os.Stderr, "wrote %s\n", filename)
}

func (c *cliSink) Failed(message string) {
	fmt.Fprintf(os.Stderr, "failed: %s\n", message)
}

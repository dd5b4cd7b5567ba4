package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"hyprpilot/internal/actions"
	"hyprpilot/internal/ai"
	"hyprpilot/internal/config"
	"hyprpilot/internal/daemon"
	"hyprpilot/internal/hypr"
	"hyprpilot/internal/logging"
	"hyprpilot/internal/store"
	"hyprpilot/internal/telemetry"
	"hyprpilot/internal/web"
)

var version = "0.3.0"

var (
	configPath string
	verbose    bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "hyprpilot",
	Short: "hyprpilot - natural-language automation daemon for Hyprland",
	Long: `hyprpilot is a daemon that drives a Hyprland desktop from natural
language. Queries arrive over a local WebSocket, get turned into an
action plan by Gemini, and execute against the compositor, the input
layer, and the shell.

Run without arguments to start the daemon.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the automation daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("hyprpilot " + version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(serveCmd, versionCmd)
}

func runDaemon() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	compositor, err := hypr.New(logging.Component(logger, "hypr"))
	if err != nil {
		return fmt.Errorf("connect to Hyprland: %w", err)
	}

	ctxStore, err := store.Open(logging.Component(logger, "store"),
		cfg.Store.DatabasePath, cfg.Store.HyprlandConfigPath)
	if err != nil {
		return fmt.Errorf("open context store: %w", err)
	}
	defer func() {
		if err := ctxStore.Close(); err != nil {
			logger.Warn("closing store", zap.Error(err))
		}
	}()

	planner, err := ai.NewClient(ctx, logging.Component(logger, "ai"),
		cfg.AI.APIKey, cfg.AI.Model)
	if err != nil {
		return fmt.Errorf("create model client: %w", err)
	}

	sampler := telemetry.NewSampler(logging.Component(logger, "telemetry"), cfg.Telemetry.Interval())
	executor := actions.NewExecutor(logging.Component(logger, "actions"), compositor)

	d := daemon.New(logging.Component(logger, "daemon"), daemon.Options{
		Compositor:      compositor,
		Sampler:         sampler,
		Store:           ctxStore,
		Planner:         planner,
		Executor:        executor,
		PersistInterval: cfg.Telemetry.PersistInterval(),
	})

	addr := net.JoinHostPort(cfg.Web.Host, strconv.Itoa(cfg.Web.Port))
	server := web.New(logging.Component(logger, "web"), d, addr)

	logger.Info("hyprpilot starting",
		zap.String("version", version),
		zap.String("addr", addr),
		zap.String("model", cfg.AI.Model))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.Run(ctx) })
	g.Go(func() error { return server.Run(ctx) })

	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}
	logger.Info("hyprpilot stopped")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

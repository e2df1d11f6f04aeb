package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"docintel/internal/config"
	"docintel/internal/logger"
	"docintel/internal/metrics"
	"docintel/internal/service"
	"docintel/internal/tui"
)

type options struct {
	input       string
	output      string
	configPath  string
	logLevel    string
	metricsFile string
	browse      bool
}

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:           "docintel",
		Short:         "Rank PDF sections for a persona and job, and write a JSON digest",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.input, "input", "", "path to the input JSON request")
	f.StringVar(&opts.output, "output", "", "path to write the output JSON digest")
	f.StringVar(&opts.configPath, "config", "", "path to YAML config file (default ./docintel.yaml or ~/.config/docintel/config.yaml)")
	f.StringVar(&opts.logLevel, "log-level", "", "log level override: debug, info, warn, error")
	f.StringVar(&opts.metricsFile, "metrics-file", "", "write run metrics in Prometheus text format to this file")
	f.BoolVar(&opts.browse, "browse", false, "browse the digest in a terminal UI after writing it")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")

	cmd.AddCommand(newConfigCmd())
	return cmd
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the docintel configuration file",
	}
	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration (default ./docintel.yaml)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "docintel.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.Save(path, config.Default()); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Default configuration written to %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)
	return cmd
}

func run(ctx context.Context, opts options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg *config.AppConfig
	var err error
	if opts.configPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(opts.configPath)
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.NewLogger(cfg.Logging.Env, firstNonEmpty(opts.logLevel, cfg.Logging.Level))
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	m := metrics.NewRun()
	app, err := buildApp(cfg, log, m)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Warn("close scorer", zap.Error(err))
		}
	}()

	req, err := service.LoadRequest(opts.input)
	if err != nil {
		return err
	}
	log.Info("processing request",
		zap.Int("documents", len(req.Documents)),
		zap.String("persona", req.Persona),
		zap.String("embedder", cfg.Embedder.Type),
	)

	digest, err := app.Process(ctx, req)
	if err != nil {
		return fmt.Errorf("process: %w", err)
	}
	if err := service.WriteDigest(opts.output, digest); err != nil {
		return err
	}
	fmt.Printf("Processing complete. Output saved to %s\n", opts.output)

	if opts.metricsFile != "" {
		if err := m.WriteTextfile(opts.metricsFile); err != nil {
			log.Warn("write metrics", zap.String("path", opts.metricsFile), zap.Error(err))
		}
	}

	if opts.browse {
		if _, err := tea.NewProgram(tui.New(digest), tea.WithAltScreen()).Run(); err != nil {
			return fmt.Errorf("tui: %w", err)
		}
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Package cli builds the taskboard command line: serve, seed, version,
// config and healthcheck.
package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/nimburion/taskboard/pkg/app"
	"github.com/nimburion/taskboard/pkg/config"
	"github.com/nimburion/taskboard/pkg/observability/logger"
	"github.com/nimburion/taskboard/pkg/version"
)

// Options configures the root command.
type Options struct {
	Name        string
	Description string
	// ConfigPath is the default --config value.
	ConfigPath string
	// EnvPrefix defaults to config.DefaultEnvPrefix.
	EnvPrefix string
}

// flagKeys maps command-line flags to the configuration keys they override.
var flagKeys = map[string]string{
	"port":            "http.port",
	"management-port": "management.port",
	"log-level":       "observability.log_level",
	"database":        "database.type",
}

// NewRootCommand creates the taskboard CLI. Running it without a subcommand
// serves the API.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.Name == "" {
		opts.Name = "taskboard"
	}
	if opts.EnvPrefix == "" {
		opts.EnvPrefix = config.DefaultEnvPrefix
	}

	rootCmd := &cobra.Command{
		Use:           opts.Name,
		Short:         opts.Description,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var cfgPath, secretFilePath string
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", opts.ConfigPath, "config file path")
	rootCmd.PersistentFlags().StringVar(&secretFilePath, "secret-file", "", "path to secrets file (sets "+strings.ToUpper(opts.EnvPrefix)+"_SECRETS_FILE)")
	rootCmd.PersistentFlags().Int("port", 0, "public API port")
	rootCmd.PersistentFlags().Int("management-port", 0, "management server port")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("database", "", "storage backend (memory, mongodb)")

	loadConfig := func(flags *pflag.FlagSet) (*config.Config, logger.Logger, error) {
		return LoadConfigAndLogger(cfgPath, opts.EnvPrefix, secretFilePath, flags)
	}

	rootCmd.AddCommand(
		newServeCommand(loadConfig),
		newSeedCommand(loadConfig),
		newVersionCommand(opts.Name),
		newConfigCommand(func(flags *pflag.FlagSet) (*config.Config, error) {
			if err := applySecretFileFlag(opts.EnvPrefix, secretFilePath); err != nil {
				return nil, err
			}
			return newLoader(cfgPath, opts.EnvPrefix, flags).Load()
		}),
		newHealthcheckCommand(func(flags *pflag.FlagSet) (*config.Config, error) {
			if err := applySecretFileFlag(opts.EnvPrefix, secretFilePath); err != nil {
				return nil, err
			}
			return newLoader(cfgPath, opts.EnvPrefix, flags).Load()
		}),
	)
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runServe(cmd, loadConfig)
	}
	return rootCmd
}

type configLoader func(flags *pflag.FlagSet) (*config.Config, logger.Logger, error)

func newServeCommand(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the public API and management servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, load)
		},
	}
}

func runServe(cmd *cobra.Command, load configLoader) error {
	cfg, log, err := load(cmd.Flags())
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error("failed to release resources", "error", err)
		}
	}()
	log.Info("starting taskboard", "version", a.Version.Version, "http_port", cfg.HTTP.Port, "management_port", cfg.Management.Port)
	return a.Run(ctx)
}

func newSeedCommand(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the builtin roles, the admin account and sample todos",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load(cmd.Flags())
			if err != nil {
				return err
			}
			if cfg.Seed.AdminPassword == "" {
				return fmt.Errorf("seed.admin_password is required (set %s_SEED_ADMIN_PASSWORD)", config.DefaultEnvPrefix)
			}
			if cfg.Database.Type == config.DatabaseTypeMemory {
				log.Warn("seeding the in-memory store; data is discarded when the command exits")
			}
			a, err := app.New(commandContext(cmd), cfg, log)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			res, err := a.Seed(commandContext(cmd))
			if err != nil {
				return fmt.Errorf("seed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d roles, %d users, %d todos\n", res.Roles, res.Users, res.Todos)
			return nil
		},
	}
}

func newVersionCommand(name string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			info := version.Current(name)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Service:    %s\n", info.Service)
			fmt.Fprintf(out, "Version:    %s\n", info.Version)
			fmt.Fprintf(out, "Commit:     %s\n", info.Commit)
			fmt.Fprintf(out, "Build Time: %s\n", info.BuildTime)
			fmt.Fprintf(out, "Go:         %s\n", info.GoVersion)
		},
	}
}

func newConfigCommand(load func(*pflag.FlagSet) (*config.Config, error)) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management commands",
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := load(cmd.Flags()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid")
			return nil
		},
	})
	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load(cmd.Flags())
			if err != nil {
				return err
			}
			out, err := cfg.Redacted()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	})
	return configCmd
}

func newHealthcheckCommand(load func(*pflag.FlagSet) (*config.Config, error)) *cobra.Command {
	var (
		url     string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Probe the management server, exiting non-zero unless it is healthy",
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				cfg, err := load(cmd.Flags())
				if err != nil {
					return err
				}
				url = fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Management.Port)
			}
			return probe(commandContext(cmd), cmd.OutOrStdout(), url, timeout)
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "endpoint to probe (default: the management /health endpoint)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "probe timeout")
	return cmd
}

func probe(ctx context.Context, out io.Writer, url string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build probe request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("probe %s: %w", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("probe %s: status %d: %s", url, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	fmt.Fprintf(out, "%s: %s\n", url, strings.TrimSpace(string(body)))
	return nil
}

// LoadConfigAndLogger loads and validates the configuration and builds the
// zap logger it describes.
func LoadConfigAndLogger(cfgPath, envPrefix, secretFilePath string, flags *pflag.FlagSet) (*config.Config, logger.Logger, error) {
	if err := applySecretFileFlag(envPrefix, secretFilePath); err != nil {
		return nil, nil, err
	}
	cfg, err := newLoader(cfgPath, envPrefix, flags).Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.NewZapLogger(logger.Config{
		Level:  logger.LogLevel(cfg.Observability.LogLevel),
		Format: logger.LogFormat(cfg.Observability.LogFormat),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}
	return cfg, log, nil
}

func newLoader(cfgPath, envPrefix string, flags *pflag.FlagSet) *config.ViperLoader {
	loader := config.NewViperLoader(cfgPath, envPrefix)
	if flags == nil {
		return loader
	}
	for name, key := range flagKeys {
		if f := flags.Lookup(name); f != nil && f.Changed {
			loader.WithFlag(key, f)
		}
	}
	return loader
}

func applySecretFileFlag(envPrefix, secretFilePath string) error {
	if secretFilePath == "" {
		return nil
	}
	info, err := os.Stat(secretFilePath)
	if err != nil {
		return fmt.Errorf("secret file %s is not accessible: %w", secretFilePath, err)
	}
	if info.IsDir() {
		return fmt.Errorf("secret file %s must not be a directory", secretFilePath)
	}
	return os.Setenv(strings.ToUpper(envPrefix)+"_SECRETS_FILE", filepath.Clean(secretFilePath))
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// Execute runs the command and exits with a non-zero status on failure.
func Execute(cmd *cobra.Command) {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

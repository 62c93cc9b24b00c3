// Package cli wires the taxest command tree: configuration, logging,
// repository selection and the estimate engine.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rpgo/estimated-tax/internal/calculation"
	"github.com/rpgo/estimated-tax/internal/config"
	"github.com/rpgo/estimated-tax/internal/domain"
	"github.com/rpgo/estimated-tax/internal/logging"
	"github.com/rpgo/estimated-tax/internal/output"
	"github.com/rpgo/estimated-tax/internal/refdata"
	"github.com/rpgo/estimated-tax/internal/repository"
	"github.com/rpgo/estimated-tax/internal/repository/memory"
	"github.com/rpgo/estimated-tax/internal/repository/postgres"
	"github.com/rpgo/estimated-tax/internal/repository/sqlite"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// skipRepository marks commands that never touch storage.
const skipRepository = "skip-repository"

// DefaultRegistry knows every built-in backend.
func DefaultRegistry() *repository.Registry {
	r := repository.NewRegistry()
	r.Register(memory.Factory{}, sqlite.Factory{}, postgres.Factory{})
	return r
}

type options struct {
	envFile   string
	backend   string
	dsn       string
	logLevel  string
	logFormat string
}

// app carries state shared by one command invocation.
type app struct {
	opts     options
	registry *repository.Registry
	cfg      config.AppConfig
	logger   *logrus.Logger
	repo     repository.Repository
}

// Run executes the command tree with args and releases the repository
// afterwards, whether or not the command succeeded.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root, a := newRootCommand(DefaultRegistry())
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	defer a.close()
	return root.ExecuteContext(ctx)
}

// ExitCode maps an error to a process exit status: 2 for bad input, 1 otherwise.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, output.ErrUnsupportedFormat):
		return 2
	default:
		return 1
	}
}

func newRootCommand(registry *repository.Registry) (*cobra.Command, *app) {
	a := &app{registry: registry}

	root := &cobra.Command{
		Use:   "taxest",
		Short: "Estimate quarterly federal tax payments (Form 1040-ES)",
		Long: "taxest computes the 1040-ES Estimated Tax Worksheet and the Self-Employment\n" +
			"Tax and Deduction Worksheet from reference tables held in a pluggable store.",
		SilenceUsage:       true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: func(*cobra.Command, []string) error { return a.close() },
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.opts.envFile, "env-file", ".env", "dotenv file with TAXEST_* settings (optional)")
	flags.StringVar(&a.opts.backend, "backend", "", "repository backend: "+fmt.Sprint(registry.AvailableBackends()))
	flags.StringVar(&a.opts.dsn, "dsn", "", "backend connection string (sqlite path or postgres URL)")
	flags.StringVar(&a.opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&a.opts.logFormat, "log-format", "", "log format (text or json)")

	root.AddCommand(
		a.calculateCommand(),
		a.batchCommand(),
		a.referenceCommand(),
		a.seedCommand(),
		a.estimatesCommand(),
		a.exampleCommand(),
	)
	return root, a
}

// setup resolves configuration (flags over environment over defaults),
// builds the logger and opens the repository.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadAppConfig(a.opts.envFile)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Backend = strings.ToLower(a.opts.backend)
	}
	if flags.Changed("dsn") {
		cfg.DSN = a.opts.dsn
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.opts.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = a.opts.logFormat
	}
	a.cfg = cfg

	logger, err := logging.NewLogger(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.logger = logger

	if cmd.Annotations[skipRepository] != "" {
		return nil
	}

	ctx := cmd.Context()
	repo, err := a.registry.Open(ctx, repository.DBConfig{Backend: cfg.Backend, DSN: cfg.DSN})
	if err != nil {
		return err
	}
	a.repo = repo
	logging.Component(logger, "repository").Debugf("opened %s backend", cfg.Backend)

	if cfg.Backend == memory.BackendName {
		if _, err := refdata.SeedDefault(ctx, repo); err != nil {
			return fmt.Errorf("failed to seed memory backend: %w", err)
		}
	}
	return nil
}

func (a *app) close() error {
	if a.repo == nil {
		return nil
	}
	err := a.repo.Close()
	a.repo = nil
	return err
}

func (a *app) engine() *calculation.Engine {
	engine := calculation.NewEngine(a.repo)
	engine.SetLogger(logging.Component(a.logger, "engine"))
	return engine
}

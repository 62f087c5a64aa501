package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/targetbuilder/internal/build"
	"git.home.luguber.info/inful/targetbuilder/internal/config"
	"git.home.luguber.info/inful/targetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/targetbuilder/internal/history"
	"git.home.luguber.info/inful/targetbuilder/internal/logfields"
	"git.home.luguber.info/inful/targetbuilder/internal/metrics"
	"git.home.luguber.info/inful/targetbuilder/internal/observability"
	"git.home.luguber.info/inful/targetbuilder/internal/util/fsutil"
)

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
	// Stdout receives command output; nil means os.Stdout.
	Stdout io.Writer
}

func (g *Global) stdout() io.Writer {
	if g.Stdout == nil {
		return os.Stdout
	}
	return g.Stdout
}

// CLI definition & global flags.
type CLI struct {
	Config    string           `short:"c" help:"Configuration file path" default:"targetbuilder.yaml"`
	Verbose   bool             `short:"v" help:"Enable verbose logging"`
	LogFormat string           `name:"log-format" help:"Override logging.format (text|json)"`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`

	Init    InitCmd    `cmd:"" help:"Initialize a new configuration file"`
	Build   BuildCmd   `cmd:"" help:"Build a target"`
	Clean   CleanCmd   `cmd:"" help:"Delete the products and intermediates of a target"`
	Receipt ReceiptCmd `cmd:"" help:"Print a target receipt with expanded paths"`
	Export  ExportCmd  `cmd:"" help:"Export the binaries and modules of a target as JSON"`
	History HistoryCmd `cmd:"" help:"List recent builds"`
	Engine  EngineCmd  `cmd:"" name:"engine-version" help:"Print the engine build version"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply(g *Global) error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	g.Logger = observability.NewLogger(os.Stderr, string(config.NormalizeLogFormat(c.LogFormat)), level)
	slog.SetDefault(g.Logger)
	return nil
}

// loadConfig reads the configuration and applies its logging section unless
// the command line already chose the level or format.
func (c *CLI) loadConfig(g *Global) (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "load config").
			AtPath(c.Config).Build()
	}
	level := cfg.Logging.Level.SlogLevel()
	if c.Verbose {
		level = slog.LevelDebug
	}
	format := cfg.Logging.Format
	if c.LogFormat != "" {
		format = config.NormalizeLogFormat(c.LogFormat)
	}
	g.Logger = observability.NewLogger(os.Stderr, string(format), level)
	slog.SetDefault(g.Logger)
	return cfg, nil
}

// session is a build service wired to the configured metrics and history.
type session struct {
	svc     *build.DefaultBuildService
	cfg     *config.Config
	prom    *metrics.PrometheusRecorder
	history *history.SQLiteStore
	logger  *slog.Logger
}

func (c *CLI) newSession(g *Global) (*session, error) {
	cfg, err := c.loadConfig(g)
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, logger: g.Logger}
	s.svc = build.NewBuildService(fsutil.NewOS(), cfg).WithLogger(g.Logger)

	if cfg.Metrics.Textfile != "" {
		s.prom = metrics.NewPrometheusRecorder(prometheus.NewRegistry())
		s.svc.WithRecorder(s.prom)
	}
	if cfg.History.Enabled {
		if err := os.MkdirAll(filepath.Dir(cfg.History.Path), 0o750); err != nil {
			return nil, errors.WrapError(err, errors.CategoryHistory, "create history directory").
				AtPath(cfg.History.Path).Build()
		}
		store, err := history.NewSQLiteStore(cfg.History.Path)
		if err != nil {
			return nil, err
		}
		s.history = store
		s.svc.WithHistory(store)
	}
	return s, nil
}

// Close flushes metrics and closes the history store.
func (s *session) Close() {
	if s.prom != nil {
		if err := metrics.WriteTextfile(s.cfg.Metrics.Textfile, s.prom); err != nil {
			s.logger.Warn("Failed to write metrics textfile", logfields.Path(s.cfg.Metrics.Textfile), logfields.Error(err))
		}
	}
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			s.logger.Warn("Failed to close history store", logfields.Error(err))
		}
	}
}

// projectDir is the directory that $(ProjectDir) expands to.
func projectDir(cfg *config.Config) string {
	if cfg.ProjectFile == "" {
		return cfg.EngineDir
	}
	return filepath.Dir(cfg.ProjectFile)
}

func (g *Global) printf(format string, args ...any) {
	g.fprintf(g.stdout(), format, args...)
}

func (g *Global) fprintf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}

// Vars are the interpolation variables of the command line.
func Vars(version string) kong.Vars {
	return kong.Vars{
		"version":       version,
		"host_platform": config.HostPlatformFor(runtime.GOOS),
	}
}

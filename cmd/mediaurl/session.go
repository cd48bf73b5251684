package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/forem/mediaurl/core/bpcache"
	"github.com/forem/mediaurl/core/breakpoints"
	"github.com/forem/mediaurl/core/config"
	"github.com/forem/mediaurl/core/delivery"
	coreerrors "github.com/forem/mediaurl/core/errors"
	"github.com/forem/mediaurl/core/schema"
	"github.com/forem/mediaurl/core/schema/validate"
	"github.com/forem/mediaurl/core/transformation"
)

// commonFlags are accepted by every command.
type commonFlags struct {
	configPath      string
	envFile         string
	metricsTextfile string
	verbose         bool
	jsonOutput      bool
	helpFlag        bool
}

func newFlagSet(name string, common *commonFlags) *flag.FlagSet {
	flagSet := flag.NewFlagSet(name, flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVar(&common.configPath, "config", config.DefaultPath, "path to mediaurl.yaml")
	flagSet.StringVar(&common.envFile, "env-file", config.DefaultEnvFile, "dotenv file loaded before the environment is read")
	flagSet.StringVar(&common.metricsTextfile, "metrics-textfile", "", "write Prometheus metrics to this file on exit")
	flagSet.BoolVar(&common.verbose, "verbose", false, "log diagnostics to stderr")
	flagSet.BoolVar(&common.jsonOutput, "json", false, "emit JSON output")
	flagSet.BoolVar(&common.helpFlag, "help", false, "show help")
	return flagSet
}

// settings loads the env file, the config file and the environment, in that
// order of increasing precedence.
func (c commonFlags) settings() (config.Config, error) {
	if err := config.LoadEnvFile(c.envFile); err != nil {
		return config.Config{}, err
	}
	// The default path is optional; an explicit one must exist.
	allowMissing := strings.TrimSpace(c.configPath) == config.DefaultPath
	settings, err := config.Load(c.configPath, allowMissing)
	if err != nil {
		return config.Config{}, err
	}
	if err := settings.ApplyEnv(os.LookupEnv); err != nil {
		return config.Config{}, err
	}
	textfile := c.metricsTextfile
	if textfile == "" {
		textfile = settings.MetricsTextfile
	}
	setMetricsTextfile(textfile)
	return settings, nil
}

func (c commonFlags) delivery() (delivery.Config, error) {
	settings, err := c.settings()
	if err != nil {
		return delivery.Config{}, err
	}
	return settings.Delivery()
}

func (c commonFlags) logger() *slog.Logger {
	if !c.verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})).
		With("correlation_id", currentCorrelationID())
}

// openEngine builds a breakpoint engine over the configured cache. The
// returned close func is never nil.
func openEngine(settings config.Config, logger *slog.Logger) (*breakpoints.Engine, func(), error) {
	backend, err := bpcache.Open(settings.Cache)
	if err != nil {
		return nil, func() {}, err
	}
	options := breakpoints.EngineOptions{Logger: logger}
	closeBackend := func() {}
	if backend != nil {
		options.Cache = backend
		options.CacheName = strings.ToLower(strings.TrimSpace(settings.Cache.Backend))
		closeBackend = func() {
			if err := backend.Close(); err != nil {
				logger.Warn("close breakpoint cache", "error", err)
			}
		}
	}
	return breakpoints.NewEngine(options), closeBackend, nil
}

// readDocument returns inline JSON, or the contents of path when inline is
// empty. "-" reads stdin.
func readDocument(inline, path string) ([]byte, error) {
	if strings.TrimSpace(inline) != "" {
		return []byte(inline), nil
	}
	switch strings.TrimSpace(path) {
	case "":
		return nil, nil
	case "-":
		return io.ReadAll(os.Stdin)
	}
	// #nosec G304 -- document path is explicit local user input.
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, coreerrors.Wrap(fmt.Errorf("read %s: %w", path, err), coreerrors.CategoryInvalidInput, "input_unreadable", "check the input file path", false)
	}
	return content, nil
}

// parseOptions validates and decodes an options document. An empty document
// yields an empty chain.
func parseOptions(data []byte) ([]transformation.Options, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	if err := validate.Document(schema.Options, data); err != nil {
		return nil, err
	}
	return transformation.ParseChain(data)
}

func unexpectedArguments(args []string) error {
	return coreerrors.Wrap(fmt.Errorf("unexpected positional arguments: %s", strings.Join(args, " ")), coreerrors.CategoryInvalidInput, "unexpected_arguments", "check command usage", false)
}

func missingArgument(name string) error {
	return coreerrors.Wrap(fmt.Errorf("missing required %s", name), coreerrors.CategoryInvalidInput, "missing_argument", "check command usage", false)
}

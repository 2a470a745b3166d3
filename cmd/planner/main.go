// Command planner solves a classical planning task given as YAML domain and
// problem documents.
//
//	planner <domain-file> <problem-file> <grounded:0|1> <debug:0|1> [flags]
//
// The plan is printed to stdout, one action per line followed by its cost.
// Logs go to stderr. Exit codes: 0 solved, 1 usage or input error,
// 2 unsolvable or exhausted, 3 budget exceeded.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/gitrdm/goplanner/internal/config"
	"github.com/gitrdm/goplanner/internal/taskfile"
	"github.com/gitrdm/goplanner/internal/telemetry"
	"github.com/gitrdm/goplanner/pkg/aag"
	"github.com/gitrdm/goplanner/pkg/search"
	"github.com/gitrdm/goplanner/pkg/statestore"
)

const (
	exitSolved     = 0
	exitInputError = 1
	exitNoPlan     = 2
	exitTimeout    = 3
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

type flags struct {
	configPath    string
	algorithm     string
	heuristic     string
	maxExpansions int
	timeLimit     time.Duration
	maxWidth      int
	metricsFile   string
	trace         bool
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	code := exitInputError
	var f flags
	cmd := &cobra.Command{
		Use:   "planner <domain-file> <problem-file> <grounded:0|1> <debug:0|1>",
		Short: "Find a plan for a classical planning task",
		Long: `planner searches the state space of a planning task described by a
YAML domain and problem. Applicable actions are generated lifted (0) or
from a precomputed grounding (1); debug (1) enables per-state logging.`,
		Args:          cobra.ExactArgs(4),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			grounded, err := parseSwitch("grounded", args[2])
			if err != nil {
				return err
			}
			debug, err := parseSwitch("debug", args[3])
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd, f, grounded, debug)
			if err != nil {
				return err
			}
			code, err = solve(cmd.Context(), cfg, args[0], args[1], stdout, stderr)
			return err
		},
	}
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	fs := cmd.Flags()
	fs.StringVar(&f.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&f.algorithm, "algorithm", "", "search algorithm: brfs, astar or iw")
	fs.StringVar(&f.heuristic, "heuristic", "", "A* heuristic: blind or goalcount")
	fs.IntVar(&f.maxExpansions, "max-expansions", 0, "stop after this many expansions (0 = unlimited)")
	fs.DurationVar(&f.timeLimit, "time-limit", 0, "stop after this much wall time (0 = unlimited)")
	fs.IntVar(&f.maxWidth, "max-width", 0, "largest IW width")
	fs.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics to this file")
	fs.BoolVar(&f.trace, "trace", false, "export an OpenTelemetry trace to stderr")

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "planner: %v\n", err)
		return exitInputError
	}
	return code
}

func parseSwitch(name, value string) (bool, error) {
	switch value {
	case "0":
		return false, nil
	case "1":
		return true, nil
	default:
		return false, fmt.Errorf("%s must be 0 or 1, got %q", name, value)
	}
}

// loadConfig layers command-line flags over the configuration file.
func loadConfig(cmd *cobra.Command, f flags, grounded, debug bool) (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return cfg, err
	}
	changed := cmd.Flags().Changed
	if changed("algorithm") {
		cfg.Search.Algorithm = f.algorithm
	}
	if changed("heuristic") {
		cfg.Search.Heuristic = f.heuristic
	}
	if changed("max-expansions") {
		cfg.Search.MaxExpansions = f.maxExpansions
	}
	if changed("time-limit") {
		cfg.Search.TimeLimit = f.timeLimit
	}
	if changed("max-width") {
		cfg.Search.MaxWidth = f.maxWidth
	}
	if changed("metrics-file") {
		cfg.Observability.MetricsEnabled = true
		cfg.Observability.MetricsFile = f.metricsFile
	}
	if changed("trace") {
		cfg.Observability.TracingEnabled = f.trace
	}
	if grounded {
		cfg.Generator.Mode = string(aag.ModeGrounded)
	} else {
		cfg.Generator.Mode = string(aag.ModeLifted)
	}
	if debug {
		cfg.Observability.LogLevel = "debug"
	}
	return cfg, cfg.Validate()
}

func solve(ctx context.Context, cfg config.Config, domainPath, problemPath string, stdout, stderr io.Writer) (int, error) {
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.Observability.Level()}))

	problem, err := taskfile.Load(domainPath, problemPath)
	if err != nil {
		return exitInputError, err
	}
	logger.Info("task loaded",
		"problem", problem.Name,
		"domain", problem.Domain.Name,
		"objects", len(problem.Objects()),
		"actions", len(problem.Domain.Actions()),
		"axioms", len(problem.Domain.Axioms()),
	)

	gen, err := aag.New(ctx, aag.Mode(cfg.Generator.Mode), problem, cfg.Generator.Options())
	if err != nil {
		return exitInputError, err
	}
	stats := gen.Statistics()
	logger.Info("generator ready",
		"mode", stats.Mode,
		"ground_actions", stats.GroundActions,
		"ground_axioms", stats.GroundAxioms,
		"reachable_atoms", stats.ReachableAtoms,
	)
	store := statestore.NewStore(problem, gen.AxiomEvaluator(), statestore.WithChunkWords(cfg.Store.ChunkWords))

	handlers := search.MultiEventHandler{search.NewLoggingEventHandler(logger, store)}
	var registry *prometheus.Registry
	if cfg.Observability.MetricsEnabled {
		registry = prometheus.NewRegistry()
		handlers = append(handlers, telemetry.NewMetricsEventHandler(registry))
	}
	if cfg.Observability.TracingEnabled {
		provider, err := telemetry.NewStdoutTracerProvider(stderr)
		if err != nil {
			return exitInputError, err
		}
		defer func() {
			if err := provider.Shutdown(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("trace export failed", "error", err)
			}
		}()
		handlers = append(handlers, telemetry.NewTracingEventHandler(ctx, provider))
	}

	algorithm := newAlgorithm(cfg.Search, store, gen,
		search.WithEventHandler(handlers),
		search.WithBudget(cfg.Search.Budget()),
	)
	result := algorithm.FindSolution(ctx, nil)

	if registry != nil {
		if err := telemetry.WriteTextfile(cfg.Observability.MetricsFile, registry); err != nil {
			logger.Warn("metrics not written", "error", err)
		}
	}

	switch result.Status {
	case search.Solved:
		fmt.Fprint(stdout, result.Plan.String())
		return exitSolved, nil
	case search.Timeout:
		fmt.Fprintf(stdout, "; %s\n", result.Status)
		return exitTimeout, nil
	default:
		fmt.Fprintf(stdout, "; %s\n", result.Status)
		return exitNoPlan, nil
	}
}

func newAlgorithm(cfg config.SearchConfig, store *statestore.Store, gen aag.Generator, opts ...search.Option) search.Algorithm {
	switch cfg.Algorithm {
	case "astar":
		var h search.Heuristic = search.Blind{}
		if cfg.Heuristic == "goalcount" {
			h = search.NewGoalCount(store.Problem())
		}
		return search.NewAStar(store, gen, h, opts...)
	case "iw":
		return search.NewIW(store, gen, cfg.MaxWidth, opts...)
	default:
		return search.NewBrFS(store, gen, opts...)
	}
}

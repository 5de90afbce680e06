package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	app "github.com/kode4food/vellum"
	"github.com/kode4food/vellum/internal/config"
	"github.com/kode4food/vellum/internal/eval"
	"github.com/kode4food/vellum/internal/graph"
	"github.com/kode4food/vellum/internal/runner"
	"github.com/kode4food/vellum/internal/script"
	"github.com/kode4food/vellum/internal/table"
	"github.com/kode4food/vellum/pkg/api"
	"github.com/kode4food/vellum/pkg/log"
)

type vellum struct {
	cfg       *config.Config
	evaluator *eval.Evaluator
	scripts   *script.Engine
	tables    *table.Runner
	runner    *runner.Runner

	graphFile    string
	inputsFile   string
	tenantID     string
	debug        bool
	preview      bool
	validateOnly bool
}

var (
	ErrMissingGraphFile = errors.New("graph file argument required")
	ErrCreateTableStore = errors.New("failed to open table store")
)

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func main() {
	cfg := config.NewDefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}

	v := &vellum{cfg: cfg}
	v.parseFlags()
	v.setupLogging()

	if err := v.run(); err != nil {
		slog.Error("Run failed", log.Error(err))
		os.Exit(1)
	}
}

func (v *vellum) parseFlags() {
	flag.StringVar(&v.inputsFile, "inputs", "", "JSON file of node answers")
	flag.StringVar(&v.tenantID, "tenant", "", "tenant owning table access")
	flag.BoolVar(&v.debug, "debug", false, "collect step trace and lineage")
	flag.BoolVar(&v.preview, "preview", false, "skip table persistence")
	flag.BoolVar(&v.validateOnly, "validate", false,
		"validate the graph and exit")
	flag.Parse()
	v.graphFile = flag.Arg(0)
}

func (v *vellum) setupLogging() {
	level, ok := logLevels[v.cfg.LogLevel]
	if !ok {
		level = slog.LevelInfo
	}

	env := os.Getenv("ENV")
	logger := log.NewWithLevel(app.Name, env, app.Version, level)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level)
}

func (v *vellum) run() error {
	if v.graphFile == "" {
		return ErrMissingGraphFile
	}

	g, err := loadGraph(v.graphFile)
	if err != nil {
		return err
	}

	if res := graph.ValidateGraph(g); !res.Valid {
		return emitJSON(res)
	}
	if res := graph.ValidateNodeConditions(g); !res.Valid {
		for _, msg := range res.Errors {
			slog.Warn("Graph lint", slog.String("problem", msg))
		}
	}
	if v.validateOnly {
		return emitJSON(api.NewValidationResult())
	}

	if err := v.initializeEngine(g); err != nil {
		return err
	}

	inputs, err := loadInputs(v.inputsFile)
	if err != nil {
		return err
	}

	input := &runner.RunInput{
		WorkflowID: v.graphFile,
		RunID:      os.Getenv("RUN_ID"),
		TenantID:   v.tenantID,
		Inputs:     inputs,
		Preview:    v.preview,
	}

	var opts []runner.RunOption
	if v.debug {
		opts = append(opts, runner.WithDebug())
	}

	result := v.runner.Run(context.Background(), g, input, opts...)
	return emitJSON(result)
}

func (v *vellum) initializeEngine(g *api.Graph) error {
	v.evaluator = eval.NewEvaluator(
		eval.WithCacheSize(v.cfg.ProgramCacheSize),
	)
	v.scripts = script.NewEngine(
		script.WithDefaultTimeout(v.cfg.ScriptTimeout),
		script.WithMaxCodeSize(v.cfg.MaxScriptSize),
		script.WithPythonBin(v.cfg.PythonBin),
	)

	if usesTables(g) {
		if err := v.cfg.RequireTableStore(); err != nil {
			return err
		}
		store, err := table.OpenPostgresStore(v.cfg.TableDSN)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCreateTableStore, err)
		}
		v.tables = table.NewRunner(store)
	}

	v.runner = runner.NewRunner(v.evaluator, v.scripts, v.tables)
	return nil
}

func usesTables(g *api.Graph) bool {
	for _, n := range g.Nodes {
		if n.Type == api.NodeTypeWrite || n.Type == api.NodeTypeQuery {
			return true
		}
	}
	return false
}

func loadGraph(path string) (*api.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var g api.Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("invalid graph file: %w", err)
	}
	return &g, nil
}

func loadInputs(path string) (map[api.NodeID]any, error) {
	if path == "" {
		return map[api.NodeID]any{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var inputs map[api.NodeID]any
	if err := json.Unmarshal(data, &inputs); err != nil {
		return nil, fmt.Errorf("invalid inputs file: %w", err)
	}
	return inputs, nil
}

func emitJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

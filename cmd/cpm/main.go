package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/tariqshihadah/cpm/hsm"
	"github.com/tariqshihadah/cpm/internal/cli"
	"github.com/tariqshihadah/cpm/internal/ctxlog"
	"github.com/tariqshihadah/cpm/internal/tabular"
	"github.com/tariqshihadah/cpm/model"
)

// main is the entrypoint for the cpm command.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(os.Stdout, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error handling.
func run(outW io.Writer, args []string) error {
	config, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	logger := newLogger(config.LogLevel, config.LogFormat, os.Stderr)
	ctx := ctxlog.WithLogger(context.Background(), logger)

	if config.List {
		for _, name := range hsm.Names() {
			fmt.Fprintln(outW, name)
		}
		return nil
	}

	m, err := hsm.New(config.Model)
	if err != nil {
		return err
	}
	logger.Debug("Model loaded.", "model", m.Name(), "layers", len(m.Layers()))

	out, closeOut, err := openOutput(outW, config.Output)
	if err != nil {
		return err
	}
	defer closeOut()

	switch {
	case config.Describe:
		fmt.Fprint(out, m.Describe())
		return nil
	case config.Template > 0:
		return tabular.WriteTable(out, m.Template(config.Template))
	case config.Feasible > 0:
		table, err := m.InitFeasible(ctx, config.Feasible, config.Attempts, config.Seed)
		if err != nil {
			return err
		}
		return tabular.WriteTable(out, table)
	default:
		return predict(ctx, out, m, config)
	}
}

// predict loads the input records, runs the batch, and writes results.
func predict(ctx context.Context, out io.Writer, m *model.Model, config *cli.Config) error {
	records, err := readRecords(config.Input)
	if err != nil {
		return err
	}

	logger := ctxlog.FromContext(ctx)
	logger.Info("Running batch prediction.",
		"model", m.Name(), "rows", len(records), "workers", config.Workers)

	rows := m.PredictTable(ctx, records, config.Workers)

	failed := 0
	for _, row := range rows {
		if row.Err != nil {
			failed++
			logger.Warn("Row failed.", "row", row.Index, "error", row.Err)
		}
	}
	if failed > 0 {
		logger.Warn("Batch finished with failures.", "failed", failed, "total", len(rows))
	}

	return tabular.WriteResults(out, resultNames(m), rows)
}

// readRecords loads input records from a .csv table or a single-record
// .hcl file.
func readRecords(path string) ([]map[string]cty.Value, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		records, _, err := tabular.ReadCSV(f)
		return records, err
	case ".hcl":
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		rec, err := tabular.ReadHCLRecord(path, src)
		if err != nil {
			return nil, err
		}
		return []map[string]cty.Value{rec}, nil
	default:
		return nil, fmt.Errorf("unsupported input format %q", path)
	}
}

// resultNames collects the model's result element names in layer order.
func resultNames(m *model.Model) []string {
	var names []string
	for _, layer := range m.Layers() {
		names = append(names, layer.OfKind(model.KindResult)...)
	}
	return names
}

// openOutput returns the destination writer: the provided default when no
// output path is set, otherwise a newly created file.
func openOutput(def io.Writer, path string) (io.Writer, func(), error) {
	if path == "" {
		return def, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

// newLogger creates and configures a new slog.Logger instance. It does not
// set the global logger, allowing for isolated logger instances.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler

	if formatStr == "json" {
		handler = slog.NewJSONHandler(outW, handlerOpts)
	} else {
		handler = slog.NewTextHandler(outW, handlerOpts)
	}

	return slog.New(handler)
}

package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Config holds the validated command-line settings for a single invocation.
type Config struct {
	Model    string
	List     bool
	Describe bool
	Template int
	Feasible int
	Input    string
	Output   string
	Workers  int
	Seed     int64
	Attempts int

	LogFormat string
	LogLevel  string
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("cpm", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
cpm - Crash prediction models as layered computation graphs.

Usage:
  cpm [options]
  cpm -list
  cpm -model NAME -describe
  cpm -model NAME -template N
  cpm -model NAME -feasible N [-seed S]
  cpm -model NAME -input FILE [-output FILE] [-workers N]

Options:
`)
		flagSet.PrintDefaults()
	}

	listFlag := flagSet.Bool("list", false, "List the available models and exit.")
	modelFlag := flagSet.String("model", "", "Name of the prediction model to load.")
	describeFlag := flagSet.Bool("describe", false, "Print the model's layers, references, and inputs.")
	templateFlag := flagSet.Int("template", 0, "Write an empty input table with N rows.")
	feasibleFlag := flagSet.Int("feasible", 0, "Synthesize N feasible input records.")
	inputFlag := flagSet.String("input", "", "Input records: a .csv table or a single-record .hcl file.")
	outputFlag := flagSet.String("output", "", "Output file. Defaults to stdout.")
	workersFlag := flagSet.Int("workers", 0, "Number of concurrent prediction workers. 0 uses one per CPU.")
	seedFlag := flagSet.Int64("seed", 0, "Random seed for feasible record synthesis.")
	attemptsFlag := flagSet.Int("attempts", 10, "Synthesis attempts per record before giving up.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	if !*listFlag && *modelFlag == "" {
		slog.Debug("No model selected, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	actions := 0
	for _, on := range []bool{*listFlag, *describeFlag, *templateFlag > 0, *feasibleFlag > 0, *inputFlag != ""} {
		if on {
			actions++
		}
	}
	if actions == 0 {
		return nil, false, &ExitError{Code: 2, Message: "nothing to do: pass one of -describe, -template, -feasible, or -input"}
	}
	if actions > 1 {
		return nil, false, &ExitError{Code: 2, Message: "choose exactly one of -list, -describe, -template, -feasible, or -input"}
	}

	if *inputFlag != "" {
		switch strings.ToLower(filepath.Ext(*inputFlag)) {
		case ".csv", ".hcl":
			// supported
		default:
			return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("unsupported input format %q: must be .csv or .hcl", *inputFlag)}
		}
	}
	if *templateFlag < 0 || *feasibleFlag < 0 {
		return nil, false, &ExitError{Code: 2, Message: "row counts must not be negative"}
	}
	slog.Debug("CLI parameter validation complete.")

	config := &Config{
		Model:     *modelFlag,
		List:      *listFlag,
		Describe:  *describeFlag,
		Template:  *templateFlag,
		Feasible:  *feasibleFlag,
		Input:     *inputFlag,
		Output:    *outputFlag,
		Workers:   *workersFlag,
		Seed:      *seedFlag,
		Attempts:  *attemptsFlag,
		LogFormat: logFormat,
		LogLevel:  logLevel,
	}
	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

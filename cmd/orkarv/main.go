// Command orkarv runs a bare-metal RV32I firmware image until it reports
// a result through the debug peripheral.
//
// Usage:
//
//	orkarv [flags] <image>
//
// Flags:
//
//	--config       TOML-style board configuration file
//	--ram-base     First address of RAM (default: 0x01000000)
//	--ram-size     RAM size in bytes (default: 0x10000)
//	--debug-base   Debug peripheral address (default: 0x03000000)
//	--load-offset  Offset added to ELF segment addresses (default: 0)
//	--format       Image format: auto, elf, flat (default: auto)
//	--max-steps    Stop after this many instructions, 0 for no limit
//	--verbosity    0-1 error, 2 warn, 3 info, 4+ debug (default: config level)
//	--log-format   Log encoding: json, text (default: json)
//	--trace        Write the execution trace to this file
//	--expect-trace Compare the run against a previously written trace
//	--dump         Print the final CPU state
//	--metrics      Print execution metrics on exit
//	--version      Print version and exit
//
// The exit code is 0 when the firmware reports success, 1 when it reports
// failure or the run faults, and 2 on a usage error.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/davecgh/go-spew/spew"

	"github.com/calebfletcher/OrkaRV/bus"
	"github.com/calebfletcher/OrkaRV/cpu"
	"github.com/calebfletcher/OrkaRV/log"
	"github.com/calebfletcher/OrkaRV/metrics"
	"github.com/calebfletcher/OrkaRV/platform"
)

// Build-time version info, overridable with ldflags:
//
//	go build -ldflags "-X main.version=v0.2.0 -X main.commit=abc1234"
var (
	version = "v0.1.0-dev"
	commit  = "unknown"
)

// options holds everything parsed from the command line.
type options struct {
	cfg       platform.Config
	verbosity int

	// verbositySet is true when --verbosity overrides cfg.LogLevel.
	verbositySet bool

	image       string
	trace       string
	expectTrace string
	dump        bool
	metrics     bool
}

// tracing reports whether the run must record a trace.
func (o options) tracing() bool { return o.trace != "" || o.expectTrace != "" }

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run is the actual entry point, returning an exit code. Accepts CLI
// arguments (without the program name) so it can be tested in isolation.
func run(args []string, stdout, stderr io.Writer) int {
	opts, exit, code := parseFlags(args, stdout, stderr)
	if exit {
		return code
	}
	cfg := opts.cfg

	base, err := newLogger(opts, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	log.SetDefault(base)
	logger := base.With("image", opts.image)

	// Validate configuration before doing any work.
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "err", err)
		return 1
	}

	// Metrics describe this invocation only.
	metrics.DefaultRegistry.Reset()

	logger.Info("orkarv starting",
		"version", version,
		"format", cfg.Format,
		"ram_base", fmt.Sprintf("0x%08X", cfg.RAMBase),
		"ram_size", cfg.RAMSize,
		"debug_base", fmt.Sprintf("0x%08X", cfg.DebugBase),
		"max_steps", cfg.MaxSteps,
	)

	var expected *cpu.Trace
	if opts.expectTrace != "" {
		if expected, err = readTrace(opts.expectTrace); err != nil {
			logger.Error("failed to read expected trace", "err", err)
			return 1
		}
	}

	data, err := os.ReadFile(opts.image)
	if err != nil {
		logger.Error("failed to read image", "err", err)
		return 1
	}
	c, err := cpu.FromImage(data, cfg)
	if err != nil {
		logger.Error("failed to load image", "err", err)
		return 1
	}
	c.SetLogger(base.Module("cpu").With("image", opts.image))
	for _, r := range c.Board().Space.Regions() {
		logger.Debug("region", "name", r.Name(),
			"base", fmt.Sprintf("0x%08X", r.Base()), "size", r.Size())
	}
	if opts.tracing() {
		c.SetTrace(cpu.NewTrace(int(min(cfg.MaxSteps, maxTracePrealloc))))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	status, runErr := c.Run(ctx, cfg.MaxSteps)
	if runErr != nil {
		logger.Error("cpu stopped", "err", runErr, "pc", fmt.Sprintf("%08X", c.PC()), "steps", c.Steps())
	} else {
		fmt.Fprintf(stdout, "cpu stopped with status: %s\n", status)
		logger.Info("cpu stopped", "status", status.String(), "steps", c.Steps())
	}

	if opts.dump {
		spew.Fdump(stdout, c.Snapshot())
	}
	failed := runErr != nil || status != bus.StatusSuccess
	if opts.trace != "" {
		if err := writeTrace(opts.trace, c.Trace(), logger); err != nil {
			logger.Error("failed to write trace", "err", err)
			failed = true
		}
	}
	if expected != nil && !matchTrace(expected, c.Trace(), logger) {
		failed = true
	}
	if opts.metrics {
		if err := metrics.WriteText(stderr, metrics.DefaultRegistry, "orkarv"); err != nil {
			logger.Error("failed to write metrics", "err", err)
		}
	}

	if failed {
		return 1
	}
	return 0
}

// maxTracePrealloc bounds the steps a trace reserves up front.
const maxTracePrealloc = 1 << 16

func newLogger(opts options, w io.Writer) (*log.Logger, error) {
	level := log.VerbosityToLevel(opts.verbosity)
	if !opts.verbositySet {
		var err error
		if level, err = log.ParseLevel(opts.cfg.LogLevel); err != nil {
			return nil, err
		}
	}
	return log.NewWithFormat(w, level, opts.cfg.LogFormat)
}

func readTrace(path string) (*cpu.Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return cpu.DeserializeTrace(data)
}

// matchTrace compares the recorded trace against a reference run and logs
// the first differing step on mismatch.
func matchTrace(want, got *cpu.Trace, logger *log.Logger) bool {
	wantRoot, gotRoot := want.Commitment(), got.Commitment()
	if wantRoot == gotRoot {
		logger.Info("trace matches", "steps", got.Len(), "commitment", gotRoot.Hex())
		return true
	}
	step, _ := want.Divergence(got)
	logger.Error("trace mismatch",
		"step", step,
		"want_steps", want.Len(),
		"got_steps", got.Len(),
		"want", wantRoot.Hex(),
		"got", gotRoot.Hex(),
	)
	return false
}

func writeTrace(path string, tr *cpu.Trace, logger *log.Logger) error {
	if err := os.WriteFile(path, tr.Serialize(), 0o644); err != nil {
		return err
	}
	logger.Info("trace written",
		"path", path,
		"steps", tr.Len(),
		"commitment", tr.Commitment().Hex(),
	)
	return nil
}

// parseFlags parses CLI arguments into options. Values from --config are
// applied first and explicit flags override them. Returns the options,
// whether the caller should exit immediately, and the exit code.
func parseFlags(args []string, stdout, stderr io.Writer) (options, bool, int) {
	opts := options{cfg: platform.DefaultConfig(), verbosity: 3}
	fs := newFlagSet(&opts)
	fs.SetOutput(stderr)

	configPath := fs.String("config", "", "board configuration file")
	showVersion := fs.Bool("version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return opts, true, 2
	}

	if *showVersion {
		fmt.Fprintf(stdout, "orkarv %s (commit %s)\n", version, commit)
		return opts, true, 0
	}

	if *configPath != "" {
		set := fs.setFlags()
		cfg, err := platform.LoadConfigFile(*configPath, platform.DefaultConfig())
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return opts, true, 2
		}
		opts.cfg = cfg
		for name, val := range set {
			if err := fs.Set(name, val); err != nil {
				fmt.Fprintf(stderr, "Error: %v\n", err)
				return opts, true, 2
			}
		}
	}
	_, opts.verbositySet = fs.setFlags()["verbosity"]

	// A trace holds every step, so it needs a bound.
	if opts.tracing() && opts.cfg.MaxSteps == 0 {
		fmt.Fprintf(stderr, "Error: --trace and --expect-trace require --max-steps\n")
		return opts, true, 2
	}

	if fs.NArg() != 1 {
		fmt.Fprintf(stderr, "Usage: orkarv [flags] <image>\n")
		fs.PrintDefaults()
		return opts, true, 2
	}
	opts.image = fs.Arg(0)
	return opts, false, 0
}

// newFlagSet creates a flagSet that binds all CLI flags to opts. The
// FlagSet uses ContinueOnError so callers control the error handling
// behavior.
func newFlagSet(opts *options) *flagSet {
	cfg := &opts.cfg
	fs := newCustomFlagSet("orkarv")
	fs.AddrVar(&cfg.RAMBase, "ram-base", cfg.RAMBase, "first address of RAM")
	fs.AddrVar(&cfg.RAMSize, "ram-size", cfg.RAMSize, "RAM size in bytes")
	fs.AddrVar(&cfg.DebugBase, "debug-base", cfg.DebugBase, "debug peripheral address")
	fs.AddrVar(&cfg.LoadOffset, "load-offset", cfg.LoadOffset, "offset added to ELF segment addresses")
	fs.StringVar(&cfg.Format, "format", cfg.Format, "image format (auto, elf, flat)")
	fs.Uint64Var(&cfg.MaxSteps, "max-steps", cfg.MaxSteps, "instruction limit, 0 for no limit")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log encoding (json, text)")
	fs.IntVar(&opts.verbosity, "verbosity", opts.verbosity, "log verbosity: 0-1 error, 2 warn, 3 info, 4+ debug; overrides the configured level")
	fs.StringVar(&opts.trace, "trace", "", "write the execution trace to this file (requires --max-steps)")
	fs.StringVar(&opts.expectTrace, "expect-trace", "", "compare the run against a trace file; exit 1 on mismatch (requires --max-steps)")
	fs.BoolVar(&opts.dump, "dump", false, "print the final CPU state")
	fs.BoolVar(&opts.metrics, "metrics", false, "print execution metrics on exit")
	return fs
}

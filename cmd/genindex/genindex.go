// genindex writes a static index.html directory listing into every non-empty directory under ROOT,
// and a 404 page at the root.
//
//	usage:
//	   genindex [flags] ROOT
//
// every flag defaults to an environment variable; see -h.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/google/uuid"
	"gitlab.com/efronlicht/dirindex/generate"
	"gitlab.com/efronlicht/dirindex/listing"
	"gitlab.com/efronlicht/enve"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	os.Exit(Run(os.Args[1:], os.Stderr))
}

// Config is everything a run needs, after flags and environment have been merged.
type Config struct {
	Root     string
	Prefix   string
	NotFound string
	Metadata bool
	MTime    string // "git" or "fs"
	Width    int
	Readme   bool
	Debug    bool
}

// errUsage marks errors that should print usage and exit 2.
var errUsage = errors.New("usage")

// ParseConfig reads flags from args. Defaults come from GENINDEX_* environment variables.
func ParseConfig(args []string, stderr io.Writer) (Config, error) {
	var cfg Config
	fs := flag.NewFlagSet("genindex", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.Prefix, "prefix", enve.StringOr("GENINDEX_PREFIX", "/"), "URL prefix used in page titles and linked from the 404 page")
	fs.StringVar(&cfg.NotFound, "404", envNotFound(), "path to the 404 page, relative to ROOT; empty disables it")
	fs.BoolVar(&cfg.Metadata, "metadata", enve.BoolOr("GENINDEX_METADATA", true), "list modification time and size next to each name")
	fs.StringVar(&cfg.MTime, "mtime", enve.StringOr("GENINDEX_MTIME", "git"), `where modification times come from: "git" (last commit, falling back to the filesystem) or "fs"`)
	fs.IntVar(&cfg.Width, "width", enve.IntOr("GENINDEX_WIDTH", listing.DefaultWidth), "width of the name column; longer names are truncated")
	fs.BoolVar(&cfg.Readme, "readme", enve.BoolOr("GENINDEX_README", false), "render README.md below each listing")
	fs.BoolVar(&cfg.Debug, "v", enve.BoolOr("GENINDEX_DEBUG", false), "debug logging")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: genindex [flags] ROOT")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return cfg, fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return cfg, fmt.Errorf("%w: expected exactly one ROOT argument, got %d", errUsage, fs.NArg())
	}
	cfg.Root = fs.Arg(0)
	switch cfg.MTime {
	case "git", "fs":
	default:
		return cfg, fmt.Errorf("%w: -mtime must be \"git\" or \"fs\", not %q", errUsage, cfg.MTime)
	}
	return cfg, nil
}

// setupLogger logs to w through a console encoder. Output from the standard library's log package
// (enve reports its fallbacks there) is redirected at debug level.
func setupLogger(w io.Writer, level zap.AtomicLevel) (*zap.Logger, func()) {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.RFC3339TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.EncodeDuration = zapcore.StringDurationEncoder
	logger := zap.New(zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.AddSync(w), level))
	undoGlobals := zap.ReplaceGlobals(logger)
	undoStdLog, err := zap.RedirectStdLogAt(logger, zapcore.DebugLevel)
	if err != nil {
		undoStdLog = func() {}
	}
	return logger, func() {
		_ = logger.Sync()
		undoStdLog()
		undoGlobals()
	}
}

// Run the generator with the given command-line arguments (not including the program name), logging to stderr.
// It returns the process exit code.
func Run(args []string, stderr io.Writer) int {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	logger, cleanup := setupLogger(stderr, level)
	defer cleanup()

	cfg, err := ParseConfig(args, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "genindex: %v\n", err)
		return 2
	}
	if cfg.Debug {
		level.SetLevel(zapcore.DebugLevel)
	}

	start := time.Now()
	logger = logger.With(zap.String("run_id", uuid.New().String()))
	logger.Debug("metadata dump",
		zap.String("root", cfg.Root),
		zap.String("go", runtime.Version()),
		zap.Int("pid", os.Getpid()),
		zap.Reflect("config", cfg),
	)

	var modTimer listing.ModTimer = listing.FSModTimer{}
	if cfg.MTime == "git" {
		modTimer = listing.GitModTimer{Logger: logger}
	}
	g, err := generate.New(generate.Config{
		Root:     cfg.Root,
		Prefix:   cfg.Prefix,
		NotFound: cfg.NotFound,
		Width:    cfg.Width,
		Metadata: cfg.Metadata,
		Readme:   cfg.Readme,
		ModTimer: modTimer,
	}, logger)
	if err != nil {
		logger.Error("invalid configuration", zap.Error(err))
		return 1
	}
	stats, err := g.Run()
	if err != nil {
		logger.Error("generation failed", zap.Error(err), zap.Int("pages_written", stats.Pages))
		return 1
	}
	logger.Info("done",
		zap.Int("pages", stats.Pages),
		zap.Int("skipped", stats.Skipped),
		zap.Bool("404", stats.NotFound),
		zap.Duration("elapsed", time.Since(start)),
	)
	return 0
}

// envNotFound is GENINDEX_404 if it's set (even to "", which disables the 404 page), generate.DefaultNotFound otherwise.
// enve.StringOr treats "" as missing, which is exactly wrong here.
func envNotFound() string {
	v, err := enve.Lookup(func(s string) (string, error) { return s, nil }, "GENINDEX_404")
	if err != nil {
		return generate.DefaultNotFound
	}
	return v
}

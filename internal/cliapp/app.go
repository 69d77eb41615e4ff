package cliapp

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"geneagrapher/internal/traverse"
)

// NewCommand builds the geneagrapher root command: parse flags into
// an Invocation, run Execute, print the resulting graph as JSON.
func NewCommand() *cli.Command {
	return &cli.Command{
		Name:  "geneagrapher",
		Usage: "build an academic genealogy graph from a set of starting ids",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "ids", Usage: "comma-separated starting record ids (required)"},
			&cli.StringFlag{Name: "direction", Value: "both", Usage: "advisors|descendants|both"},
			&cli.IntFlag{Name: "max-records", Usage: "cap on records in the output graph (0 = unbounded)"},
			&cli.FloatFlag{Name: "rate", Usage: "max requests per second (0 = unlimited)"},
			&cli.StringFlag{Name: "base-url", Usage: "genealogy database root URL (default: mathgenealogy.org)"},
			&cli.StringFlag{Name: "user-agent", Value: "geneagrapher/1 (+https://github.com/)", Usage: "User-Agent header sent with every request"},
			&cli.StringFlag{Name: "cache", Value: "none", Usage: "none|memory|lru|file"},
			&cli.StringFlag{Name: "cache-dir", Usage: "directory for --cache=file"},
			&cli.IntFlag{Name: "cache-size", Value: 1024, Usage: "entry cap for --cache=lru"},
			&cli.StringFlag{Name: "output", Usage: "write graph JSON here instead of stdout"},
			&cli.BoolFlag{Name: "verbose", Usage: "enable debug-level logging"},
		},
		Action: runAction,
	}
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	inv, err := invocationFromCommand(cmd)
	if err != nil {
		return err
	}

	level := zerolog.InfoLevel
	if inv.Verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	graph, runErr := Execute(ctx, inv, traverse.Options{
		Logger: &logger,
		ReportCallback: func(ctx context.Context, todo, doing, done int) {
			logger.Debug().Int("todo", todo).Int("doing", doing).Int("done", done).Msg("progress")
		},
	})
	if graph == nil {
		return runErr
	}

	out := os.Stdout
	if inv.Output != "" {
		f, ferr := os.Create(inv.Output)
		if ferr != nil {
			return &InvocationError{ExitCode: ExitInternalError, Message: fmt.Sprintf("opening --output: %v", ferr)}
		}
		defer f.Close()
		out = f
	}

	if err := WriteGraph(out, graph); err != nil {
		return &InvocationError{ExitCode: ExitInternalError, Message: err.Error()}
	}

	return runErr
}

func invocationFromCommand(cmd *cli.Command) (Invocation, error) {
	seeds, err := parseSeeds(cmd.String("ids"), cmd.String("direction"))
	if err != nil {
		return Invocation{}, err
	}
	cacheKind, err := parseCacheKind(cmd.String("cache"))
	if err != nil {
		return Invocation{}, err
	}

	return Invocation{
		Seeds:      seeds,
		MaxRecords: int(cmd.Int("max-records")),
		RatePerSec: cmd.Float("rate"),
		BaseURL:    cmd.String("base-url"),
		UserAgent:  cmd.String("user-agent"),
		Cache:      cacheKind,
		CacheDir:   cmd.String("cache-dir"),
		CacheSize:  int(cmd.Int("cache-size")),
		Output:     cmd.String("output"),
		Verbose:    cmd.Bool("verbose"),
	}, nil
}

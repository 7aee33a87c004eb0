package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"reduction.dev/linedup/config"
	"reduction.dev/linedup/dedup"
	"reduction.dev/linedup/logging"
	"reduction.dev/linedup/storage"
	"reduction.dev/linedup/telemetry"
	"reduction.dev/linedup/util/fileu"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newApp(os.Stdin, os.Stdout, os.Stderr).RunContext(ctx, os.Args)
	stop()
	if err != nil {
		log.Fatal(err)
	}
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "linedup",
		Usage:     "Sort and deduplicate the lines of inputs larger than memory",
		Reader:    stdin,
		Writer:    stdout,
		ErrWriter: stderr,
		Before: func(c *cli.Context) error {
			slog.SetDefault(slog.New(logging.NewTextHandlerWithWriter(c.App.ErrWriter)))
			return nil
		},
		Commands: []*cli.Command{{
			Name:      "run",
			Usage:     "Write the sorted distinct lines of the input to the output",
			ArgsUsage: "[input [output]]",
			Flags:     append(commonFlags(), runFlags()...),
			Action:    runAction,
		}, {
			Name:      "verify",
			Usage:     "Check that a file is sorted with no duplicate lines",
			ArgsUsage: "[file]",
			Flags:     commonFlags(),
			Action:    verifyAction,
		}, {
			Name:  "sweep",
			Usage: "Delete spill units left behind by interrupted runs",
			Flags: append(commonFlags(),
				&cli.StringFlag{
					Name:    "temp-location",
					Usage:   "the temporary storage location to clean",
					EnvVars: []string{"LINEDUP_TEMP_LOCATION"},
				},
				&cli.BoolFlag{
					Name:  "dry-run",
					Usage: "list the spill units without deleting them",
				},
			),
			Action: sweepAction,
		}},
	}
}

// loadConfig applies the config file, then environment variables and flags.
// urfave/cli gives flags precedence over their environment variables.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.Context, c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", dedup.ErrConfig, err)
	}

	setString := func(name string, dst *string) {
		if c.IsSet(name) {
			*dst = c.String(name)
		}
	}
	setInt := func(name string, dst *int) {
		if c.IsSet(name) {
			*dst = c.Int(name)
		}
	}
	setBool := func(name string, dst *bool) {
		if c.IsSet(name) {
			*dst = c.Bool(name)
		}
	}
	setString("input", &cfg.Input)
	setString("output", &cfg.Output)
	setString("temp-location", &cfg.TempLocation)
	setInt("chunk-capacity", &cfg.ChunkCapacity)
	setInt("sort-workers", &cfg.SortWorkers)
	setString("chunk-strategy", &cfg.ChunkStrategy)
	setString("delimiter", &cfg.Delimiter)
	setString("log-level", &cfg.LogLevel)
	setString("metrics-addr", &cfg.MetricsAddr)
	setBool("progress", &cfg.Progress)
	setString("s3-region", &cfg.S3.Region)
	setString("s3-endpoint", &cfg.S3.Endpoint)
	setString("s3-access-key-id", &cfg.S3.AccessKeyID)
	setString("s3-secret-access-key", &cfg.S3.SecretAccessKey)
	setBool("s3-path-style", &cfg.S3.UsePathStyle)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	level, _ := logging.ParseLevel(cfg.LogLevel)
	logging.SetLevel(level)
	return cfg, nil
}

// setArgs assigns positional arguments to the named flags, in order.
func setArgs(c *cli.Context, names ...string) error {
	for i, name := range names {
		if i >= c.NArg() {
			return nil
		}
		if err := c.Set(name, c.Args().Get(i)); err != nil {
			return fmt.Errorf("%w: %w", dedup.ErrConfig, err)
		}
	}
	return nil
}

func runAction(c *cli.Context) error {
	if c.NArg() > 2 {
		return fmt.Errorf("%w: expected at most 2 arguments, got %d", dedup.ErrConfig, c.NArg())
	}
	if err := setArgs(c, "input", "output"); err != nil {
		return err
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ctx := c.Context
	delimiter, _ := config.ParseDelimiter(cfg.Delimiter)
	opts := fileu.Options{S3: cfg.S3Options(), Stdin: c.App.Reader, Stdout: c.App.Writer}

	fs, err := storage.NewFileSystemFromLocation(ctx, cfg.TempLocation, cfg.S3Options())
	if err != nil {
		return fmt.Errorf("%w: opening temp location: %w", dedup.ErrStorage, err)
	}
	in, err := fileu.OpenInput(ctx, cfg.Input, opts)
	if err != nil {
		return fmt.Errorf("%w: opening input: %w", dedup.ErrInput, err)
	}
	defer in.Close()
	out, err := fileu.CreateOutput(ctx, cfg.Output, opts)
	if err != nil {
		return fmt.Errorf("%w: creating output: %w", dedup.ErrOutput, err)
	}

	serveCtx, stopServing := context.WithCancel(ctx)
	defer stopServing()
	if cfg.MetricsAddr != "" {
		server, err := telemetry.ListenMetrics(cfg.MetricsAddr)
		if err != nil {
			out.Discard()
			return fmt.Errorf("%w: metrics address: %w", dedup.ErrConfig, err)
		}
		server.Start(serveCtx)
	}

	var progress *telemetry.Progress
	params := dedup.Params{
		Input:         in,
		Output:        out,
		FileSystem:    fs,
		ChunkCapacity: cfg.ChunkCapacity,
		Strategy:      dedup.ChunkStrategy(cfg.ChunkStrategy),
		SortWorkers:   cfg.SortWorkers,
		Delimiter:     delimiter,
	}
	if cfg.Progress {
		progress = telemetry.NewProgress(telemetry.ProgressParams{Writer: c.App.ErrWriter})
		progress.Start(serveCtx)
		params.Observer = progress
	}

	stats, err := dedup.Run(ctx, params)
	if err == nil {
		if commitErr := out.Commit(); commitErr != nil {
			err = fmt.Errorf("%w: %w", dedup.ErrOutput, commitErr)
		}
	} else if discardErr := out.Discard(); discardErr != nil {
		slog.Warn("discarding output", "err", discardErr)
	}
	if progress != nil {
		progress.Finish(stats, err)
	}
	if err != nil {
		return err
	}

	slog.Info("run complete",
		"linesRead", stats.LinesRead,
		"linesWritten", stats.LinesWritten,
		"duplicates", stats.Duplicates,
		"spillUnits", stats.SpillUnits,
		"leakedUnits", stats.LeakedUnits)
	if s3fs, ok := fs.(*storage.S3FileSystem); ok {
		slog.Info("spill storage cost", "usd", s3fs.USDCost())
	}
	return nil
}

func verifyAction(c *cli.Context) error {
	if c.NArg() > 1 {
		return fmt.Errorf("%w: expected at most 1 argument, got %d", dedup.ErrConfig, c.NArg())
	}
	if err := setArgs(c, "input"); err != nil {
		return err
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	delimiter, _ := config.ParseDelimiter(cfg.Delimiter)

	in, err := fileu.OpenInput(c.Context, cfg.Input, fileu.Options{S3: cfg.S3Options(), Stdin: c.App.Reader})
	if err != nil {
		return fmt.Errorf("%w: opening input: %w", dedup.ErrInput, err)
	}
	defer in.Close()

	lines, err := dedup.Verify(c.Context, in, delimiter)
	if err != nil {
		return fmt.Errorf("%s: %w", cfg.Input, err)
	}
	fmt.Fprintf(c.App.Writer, "%s: %d lines, sorted and distinct\n", cfg.Input, lines)
	return nil
}

func sweepAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	fs, err := storage.NewFileSystemFromLocation(c.Context, cfg.TempLocation, cfg.S3Options())
	if err != nil {
		return fmt.Errorf("%w: opening temp location: %w", dedup.ErrStorage, err)
	}

	dryRun := c.Bool("dry-run")
	swept, err := dedup.Sweep(c.Context, fs, dryRun)
	for _, uri := range swept {
		fmt.Fprintln(c.App.Writer, uri)
	}
	if err != nil {
		return err
	}
	slog.Info("sweep complete", "location", cfg.TempLocation, "units", len(swept), "dryRun", dryRun)
	return nil
}

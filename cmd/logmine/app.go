package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm/logger"

	"github.com/thebtf/logmine/internal/config"
	"github.com/thebtf/logmine/internal/db/gorm"
	"github.com/thebtf/logmine/internal/output"
	"github.com/thebtf/logmine/internal/privacy"
	"github.com/thebtf/logmine/internal/processor"
	"github.com/thebtf/logmine/internal/source"
	"github.com/thebtf/logmine/internal/telemetry"
	"github.com/thebtf/logmine/internal/worker"
	"github.com/thebtf/logmine/pkg/models"
)

var (
	// ErrCancelled is returned when a run is interrupted before it completes.
	ErrCancelled = errors.New("run cancelled before completion")

	errFollowArgs = errors.New("follow expects exactly one file path")
)

// cliEnv holds the state shared by all commands of one invocation.
type cliEnv struct {
	cfg      *config.Config
	shutdown telemetry.ShutdownFunc
	stdin    io.Reader
	stdout   io.Writer
}

func newApp() *cli.App {
	env := &cliEnv{stdin: os.Stdin, stdout: os.Stdout}
	return env.app()
}

func (env *cliEnv) app() *cli.App {
	return &cli.App{
		Name:    "logmine",
		Usage:   "Cluster log lines into patterns",
		Version: Version,
		Description: `Groups near-duplicate log lines into clusters, each represented by a
pattern marking the positions that vary between members.

Examples:
  logmine import app.log
  logmine run --max-dist 0.3 -v '<num>:/\d+/'
  tail -f app.log | logmine pipe`,
		DisableSliceFlagSeparator: true,
		Flags:                     globalFlags(),
		Before:                    env.before,
		After:                     env.after,
		Commands: []*cli.Command{
			env.runCommand(),
			env.pipeCommand(),
			env.followCommand(),
			env.importCommand(),
		},
	}
}

func (env *cliEnv) before(c *cli.Context) error {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if c.Bool("debug") {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: !output.IsTerminal(os.Stderr)})

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	env.cfg = cfg
	if c.IsSet("metrics-exporter") {
		cfg.MetricsExporter = c.String("metrics-exporter")
	}

	shutdown, err := telemetry.Setup(cfg.MetricsExporter, os.Stderr, Version)
	if err != nil {
		return err
	}
	env.shutdown = shutdown
	return nil
}

func (env *cliEnv) after(c *cli.Context) error {
	if env.shutdown == nil {
		return nil
	}
	return env.shutdown(c.Context)
}

// prepare overlays the command flags on the loaded config and validates it.
func (env *cliEnv) prepare(c *cli.Context) (*config.Config, error) {
	applyFlags(c, env.cfg)
	if err := env.cfg.Validate(); err != nil {
		return nil, err
	}
	return env.cfg, nil
}

func (env *cliEnv) storeConfig(c *cli.Context, cfg *config.Config) gorm.Config {
	st := cfg.Store()
	st.LogLevel = logger.Silent
	if c.Bool("debug") {
		st.LogLevel = logger.Info
	}
	return st
}

func (env *cliEnv) runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Cluster every line of the log table (or a log file)",
		Flags: concat(sourceFlags(), []cli.Flag{
			&cli.StringFlag{
				Name:  "file",
				Usage: "Read lines from a log file instead of the log table",
			},
		}, clusteringFlags(), processingFlags(), outputFlags()),
		Action: func(c *cli.Context) error {
			cfg, err := env.prepare(c)
			if err != nil {
				return err
			}

			var open source.Opener
			if path := c.String("file"); path != "" {
				if open, err = source.FileOpener(path); err != nil {
					return err
				}
			} else {
				if err := cfg.ValidateDatabase(); err != nil {
					return err
				}
				open = gorm.Opener(env.storeConfig(c, cfg))
			}

			pool := worker.NewPool(cfg.Workers)
			defer pool.Close()
			ctx := worker.WithPool(c.Context, pool)

			p, err := processor.New(ctx, cfg.Processor(), open)
			if err != nil {
				return err
			}
			clusters, ok, err := p.Run(ctx)
			if err != nil {
				return err
			}
			if !ok {
				return ErrCancelled
			}
			return env.write(cfg, clusters)
		},
	}
}

func (env *cliEnv) pipeCommand() *cli.Command {
	return &cli.Command{
		Name:  "pipe",
		Usage: "Cluster lines read from stdin until EOF or interrupt",
		Flags: concat(clusteringFlags(), outputFlags()),
		Action: func(c *cli.Context) error {
			cfg, err := env.prepare(c)
			if err != nil {
				return err
			}
			s, err := processor.NewStreamer(cfg.Processor())
			if err != nil {
				return err
			}
			clusters, err := s.Run(c.Context, env.stdin)
			if werr := env.write(cfg, clusters); werr != nil {
				return errors.Join(err, werr)
			}
			return err
		},
	}
}

func (env *cliEnv) followCommand() *cli.Command {
	return &cli.Command{
		Name:      "follow",
		Usage:     "Cluster a growing log file until interrupted",
		ArgsUsage: "<path>",
		Flags:     concat(clusteringFlags(), outputFlags()),
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return errFollowArgs
			}
			cfg, err := env.prepare(c)
			if err != nil {
				return err
			}
			s, err := processor.NewStreamer(cfg.Processor())
			if err != nil {
				return err
			}
			clusters, err := s.Follow(c.Context, c.Args().First())
			if werr := env.write(cfg, clusters); werr != nil {
				return errors.Join(err, werr)
			}
			return err
		},
	}
}

func (env *cliEnv) importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Load log files (or stdin) into the log table",
		ArgsUsage: "[path...]",
		Flags: concat(sourceFlags(), []cli.Flag{
			&cli.IntFlag{
				Name:  "import-batch",
				Usage: "Rows inserted per statement",
				Value: gorm.DefaultImportBatch,
			},
			&cli.BoolFlag{
				Name:  "redact",
				Usage: "Mask passwords, tokens and URL credentials before storing",
			},
		}),
		Action: func(c *cli.Context) error {
			applyFlags(c, env.cfg)
			if err := env.cfg.ValidateDatabase(); err != nil {
				return err
			}
			st := env.storeConfig(c, env.cfg)
			st.Create = true

			store, err := gorm.NewStore(st)
			if err != nil {
				return err
			}
			defer store.Close()

			var fns []gorm.LineFunc
			if c.Bool("redact") {
				fns = append(fns, privacy.Clean)
			}

			if c.NArg() == 0 {
				_, err := store.Import(c.Context, env.stdin, c.Int("import-batch"), fns...)
				return err
			}
			for _, path := range c.Args().Slice() {
				if err := importFile(c, store, path, fns); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func importFile(c *cli.Context, store *gorm.Store, path string, fns []gorm.LineFunc) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	n, err := store.Import(c.Context, f, c.Int("import-batch"), fns...)
	if err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}
	log.Info().Str("path", path).Int64("rows", n).Str("table", store.Table()).Msg("Imported log file")
	return nil
}

func (env *cliEnv) write(cfg *config.Config, clusters models.ClusterList) error {
	if cfg.Output == "" || cfg.Output == "-" {
		return output.NewWriter(env.stdout, cfg.OutputOptions()).Write(clusters)
	}

	f, err := output.Create(cfg.Output)
	if err != nil {
		return err
	}
	return writeAndClose(f, cfg.Output, cfg.OutputOptions(), clusters)
}

// writeAndClose writes clusters to wc and closes it. A close failure is
// reported when the write itself succeeded.
func writeAndClose(wc io.WriteCloser, name string, opts output.Options, clusters models.ClusterList) (err error) {
	defer func() {
		if cerr := wc.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", name, cerr)
		}
	}()
	return output.NewWriter(wc, opts).Write(clusters)
}

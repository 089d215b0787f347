package main

import (
	"github.com/urfave/cli/v2"

	"github.com/thebtf/logmine/internal/config"
)

func concat(groups ...[]cli.Flag) []cli.Flag {
	var out []cli.Flag
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Settings file (default: ~/.logmine/config.yaml)",
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "Enable debug logging",
		},
		&cli.StringFlag{
			Name:  "metrics-exporter",
			Usage: "Metrics exporter: none or stdout",
		},
	}
}

func sourceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "db-url",
			Usage: "sqlite path, sqlite:/// URL or postgres:// URL (env: " + config.EnvDBURL + ")",
		},
		&cli.StringFlag{
			Name:  "table",
			Usage: "Log table name (env: " + config.EnvTable + ")",
		},
	}
}

func clusteringFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Float64Flag{
			Name:  "k1",
			Usage: "Weight of an equal literal pair",
		},
		&cli.Float64Flag{
			Name:  "k2",
			Usage: "Weight of an equal variable pair",
		},
		&cli.Float64Flag{
			Name:    "max-dist",
			Aliases: []string{"m"},
			Usage:   "Largest distance at which a line joins a cluster",
		},
		&cli.Uint64Flag{
			Name:    "min-members",
			Aliases: []string{"n"},
			Usage:   "Hide clusters with fewer members",
		},
		&cli.StringFlag{
			Name:    "delimiter",
			Aliases: []string{"d"},
			Usage:   "Regular expression separating fields",
		},
		&cli.StringSliceFlag{
			Name:    "variable",
			Aliases: []string{"v"},
			Usage:   "Variable rule name:/regex/, repeatable, first match wins",
		},
	}
}

func processingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "batch-size",
			Aliases: []string{"b"},
			Usage:   "Rows per shard, 0 picks one from the row count",
		},
		&cli.IntFlag{
			Name:    "workers",
			Aliases: []string{"w"},
			Usage:   "Worker goroutines, 0 uses every CPU",
		},
		&cli.BoolFlag{
			Name:  "single-core",
			Usage: "Cluster on one goroutine without sharding",
		},
	}
}

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output file, - for stdout (env: " + config.EnvOutput + ")",
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: text or json",
		},
		&cli.StringFlag{
			Name:    "sorted",
			Aliases: []string{"s"},
			Usage:   "Sort by count: none, asc or desc",
		},
		&cli.BoolFlag{
			Name:  "number-align",
			Usage: "Right-align the count column",
		},
		&cli.StringFlag{
			Name:    "pattern-placeholder",
			Aliases: []string{"p"},
			Usage:   "Text for varying positions, empty shows the original token",
		},
		&cli.BoolFlag{
			Name:  "mask-variables",
			Usage: "Show variable rule names instead of raw tokens",
		},
		&cli.BoolFlag{
			Name:  "highlight-patterns",
			Usage: "Color varying positions (terminal only)",
		},
		&cli.BoolFlag{
			Name:  "highlight-variables",
			Usage: "Color variables (terminal only)",
		},
	}
}

// applyFlags copies every flag set on the command line onto cfg.
func applyFlags(c *cli.Context, cfg *config.Config) {
	setString := func(name string, dst *string) {
		if c.IsSet(name) {
			*dst = c.String(name)
		}
	}
	setFloat := func(name string, dst *float64) {
		if c.IsSet(name) {
			*dst = c.Float64(name)
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

	setString("db-url", &cfg.DBURL)
	setString("table", &cfg.Table)
	setString("output", &cfg.Output)
	setString("format", &cfg.Format)
	setString("sorted", &cfg.Sorted)
	setString("pattern-placeholder", &cfg.Placeholder)
	setString("delimiter", &cfg.Delimiter)

	setFloat("k1", &cfg.K1)
	setFloat("k2", &cfg.K2)
	setFloat("max-dist", &cfg.MaxDist)
	if c.IsSet("min-members") {
		cfg.MinMembers = c.Uint64("min-members")
	}
	if c.IsSet("variable") {
		cfg.Variables = c.StringSlice("variable")
	}

	setInt("batch-size", &cfg.BatchSize)
	setInt("workers", &cfg.Workers)

	setBool("single-core", &cfg.SingleCore)
	setBool("number-align", &cfg.NumberAlign)
	setBool("mask-variables", &cfg.MaskVariables)
	setBool("highlight-patterns", &cfg.HighlightPatterns)
	setBool("highlight-variables", &cfg.HighlightVariables)
}

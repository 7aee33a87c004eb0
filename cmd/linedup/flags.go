package main

import "github.com/urfave/cli/v2"

// Flags carry no Value so that a value from the config file is only replaced
// when the flag or its environment variable is set.

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "a YAML config file, local or s3://",
			EnvVars: []string{"LINEDUP_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "input",
			Aliases: []string{"i"},
			Usage:   "the input path, s3://bucket/key, or - for stdin (default -)",
			EnvVars: []string{"LINEDUP_INPUT"},
		},
		&cli.StringFlag{
			Name:    "delimiter",
			Aliases: []string{"d"},
			Usage:   `the byte ending each line, literal or escaped like \t or \x00 (default \n)`,
			EnvVars: []string{"LINEDUP_DELIMITER"},
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "debug, info, warn or error (default info)",
			EnvVars: []string{"LINEDUP_LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:     "s3-region",
			Category: "S3",
			EnvVars:  []string{"LINEDUP_S3_REGION"},
		},
		&cli.StringFlag{
			Name:     "s3-endpoint",
			Category: "S3",
			Usage:    "an S3-compatible endpoint URL",
			EnvVars:  []string{"LINEDUP_S3_ENDPOINT"},
		},
		&cli.StringFlag{
			Name:     "s3-access-key-id",
			Category: "S3",
			EnvVars:  []string{"LINEDUP_S3_ACCESS_KEY_ID"},
		},
		&cli.StringFlag{
			Name:     "s3-secret-access-key",
			Category: "S3",
			EnvVars:  []string{"LINEDUP_S3_SECRET_ACCESS_KEY"},
		},
		&cli.BoolFlag{
			Name:     "s3-path-style",
			Category: "S3",
			Usage:    "address buckets by path instead of subdomain",
			EnvVars:  []string{"LINEDUP_S3_PATH_STYLE"},
		},
	}
}

func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "the output path, s3://bucket/key, or - for stdout (default -)",
			EnvVars: []string{"LINEDUP_OUTPUT"},
		},
		&cli.StringFlag{
			Name:    "temp-location",
			Aliases: []string{"t"},
			Usage:   "where spill units are written: a directory, s3://bucket/prefix or memory://",
			EnvVars: []string{"LINEDUP_TEMP_LOCATION"},
		},
		&cli.IntFlag{
			Name:    "chunk-capacity",
			Aliases: []string{"n"},
			Usage:   "the number of lines sorted in memory per spill unit (default 1000000)",
			EnvVars: []string{"LINEDUP_CHUNK_CAPACITY"},
		},
		&cli.IntFlag{
			Name:    "sort-workers",
			Usage:   "goroutines sorting each chunk (default GOMAXPROCS)",
			EnvVars: []string{"LINEDUP_SORT_WORKERS"},
		},
		&cli.StringFlag{
			Name:    "chunk-strategy",
			Usage:   "sort, or btree to drop duplicates while reading (default sort)",
			EnvVars: []string{"LINEDUP_CHUNK_STRATEGY"},
		},
		&cli.StringFlag{
			Name:    "metrics-addr",
			Usage:   "serve prometheus metrics at this address during the run",
			EnvVars: []string{"LINEDUP_METRICS_ADDR"},
		},
		&cli.BoolFlag{
			Name:    "progress",
			Usage:   "print progress to stderr",
			EnvVars: []string{"LINEDUP_PROGRESS"},
		},
	}
}

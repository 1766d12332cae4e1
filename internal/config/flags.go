package config

import (
	"flag"
	"time"

	"github.com/ormvat/dossierflow/internal/flagx"
)

// Flags lists every command-line flag owned by the configuration, the
// config-file flags included. Subcommands receive the arguments with these
// removed (see flagx.StripArgs).
var Flags = []string{
	"-c", "-config",
	"-db-driver", "-db-dsn", "-db-timeout",
	"-catalog", "-tz",
	"-log-format", "-log-level",
	"-s3-user", "-s3-password", "-s3-bucket", "-s3-region", "-s3-endpoint",
	"-otlp-endpoint",
}

// parseFlags populates Config fields from command-line flags.
//
//	-db-driver string     postgres | sqlite
//	-db-dsn string        database DSN
//	-db-timeout duration  per storage call timeout (e.g. "5s")
//	-catalog string       phase catalog YAML file
//	-tz string            IANA time zone of the working-day calendar
//	-log-format string    json | text | zerolog
//	-log-level string     debug | info | warn | error
//	-s3-user, -s3-password, -s3-bucket, -s3-region, -s3-endpoint
//	-otlp-endpoint string OTLP/gRPC metrics collector
//
// Only the flags above are parsed, so subcommand flags never collide.
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args, Flags)

	fs := flag.NewFlagSet("dossierflow", flag.ContinueOnError)

	var configFile string
	fs.StringVar(&configFile, "c", "", "config file")
	fs.StringVar(&configFile, "config", "", "config file")

	fs.StringVar(&config.DatabaseDriver, "db-driver", config.DatabaseDriver, "database driver (postgres|sqlite)")
	fs.StringVar(&config.DatabaseDSN, "db-dsn", config.DatabaseDSN, "database DSN")
	dbTimeout := fs.Duration("db-timeout", config.DBTimeout, "storage call timeout")
	fs.StringVar(&config.CatalogFile, "catalog", config.CatalogFile, "phase catalog YAML file")
	fs.StringVar(&config.TimeZone, "tz", config.TimeZone, "calendar time zone")
	fs.StringVar(&config.LogFormat, "log-format", config.LogFormat, "log format (json|text|zerolog)")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level")
	fs.StringVar(&config.S3RootUser, "s3-user", config.S3RootUser, "S3 user")
	fs.StringVar(&config.S3RootPassword, "s3-password", config.S3RootPassword, "S3 password")
	fs.StringVar(&config.S3Bucket, "s3-bucket", config.S3Bucket, "S3 bucket for audit exports")
	fs.StringVar(&config.S3Region, "s3-region", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "s3-endpoint", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.OTLPEndpoint, "otlp-endpoint", config.OTLPEndpoint, "OTLP/gRPC metrics endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.DBTimeout = time.Duration(*dbTimeout)
}

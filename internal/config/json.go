package config

import (
	"encoding/json"
	"os"

	"github.com/ormvat/dossierflow/internal/flagx"
	"github.com/ormvat/dossierflow/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "5s" and integer nanoseconds are accepted. Absent
// keys leave the corresponding Config field untouched.
type JsonConfig struct {
	DatabaseDriver string         `json:"database_driver"`
	DatabaseDSN    string         `json:"database_dsn"`
	DBTimeout      timex.Duration `json:"db_timeout"`
	CatalogFile    string         `json:"catalog_file"`
	TimeZone       string         `json:"time_zone"`
	LogFormat      string         `json:"log_format"`
	LogLevel       string         `json:"log_level"`
	S3RootUser     string         `json:"s3_root_user"`
	S3RootPassword string         `json:"s3_root_password"`
	S3Bucket       string         `json:"s3_bucket"`
	S3Region       string         `json:"s3_region"`
	S3BaseEndpoint string         `json:"s3_base_endpoint"`
	OTLPEndpoint   string         `json:"otlp_endpoint"`
}

// parseJson overlays the JSON file named by -c/-config onto config. Nothing
// happens when no file is given; an unreadable or invalid file panics.
func parseJson(config *Config, args []string) {
	path := flagx.ConfigFile(args)
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	overlay(&config.DatabaseDriver, c.DatabaseDriver)
	overlay(&config.DatabaseDSN, c.DatabaseDSN)
	if c.DBTimeout.Duration > 0 {
		config.DBTimeout = c.DBTimeout.Duration
	}
	overlay(&config.CatalogFile, c.CatalogFile)
	overlay(&config.TimeZone, c.TimeZone)
	overlay(&config.LogFormat, c.LogFormat)
	overlay(&config.LogLevel, c.LogLevel)
	overlay(&config.S3RootUser, c.S3RootUser)
	overlay(&config.S3RootPassword, c.S3RootPassword)
	overlay(&config.S3Bucket, c.S3Bucket)
	overlay(&config.S3Region, c.S3Region)
	overlay(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	overlay(&config.OTLPEndpoint, c.OTLPEndpoint)
}

func overlay(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

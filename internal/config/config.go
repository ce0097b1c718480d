package config

import (
	"fmt"
	"runtime/debug"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
)

// Prefix is prepended to every environment variable read by ParseConfig.
const Prefix = "KRONJOB"

type Config struct {
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info" desc:"Log level (trace, debug, info, warn, error)"`
	LogPrettyPrint bool   `envconfig:"LOG_PRETTY" default:"false" desc:"Human readable log output on stderr"`

	KubernetesVersion string `envconfig:"K8S_API_VERSION" default:"1.21" desc:"Target Kubernetes version, selects the CronJob API group"`
	DisableCronJobs   bool   `envconfig:"DISABLE_CRONJOBS" default:"false" desc:"Reject recurring schedules"`
	Permissive        bool   `envconfig:"PERMISSIVE" default:"false" desc:"Ignore unknown fields in input documents"`
	DefaultsFile      string `envconfig:"DEFAULTS_FILE" default:"" desc:"Document merged beneath every job"`
}

// ParseConfig reads the configuration from KRONJOB_* environment variables.
func ParseConfig() (Config, error) {
	var s Config
	if err := envconfig.Process(Prefix, &s); err != nil {
		return Config{}, fmt.Errorf("failed to read configuration from environment: %w", err)
	}
	if _, err := s.Level(); err != nil {
		return Config{}, err
	}
	return s, nil
}

// Usage prints the recognised environment variables.
func Usage() error {
	var s Config
	return envconfig.Usage(Prefix, &s)
}

// Level parses LogLevel.
func (c Config) Level() (zerolog.Level, error) {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

func ParseVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "dev (no build info)"
	}

	commit := "unknown"
	modified := ""
	version := "dev"

	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		version = info.Main.Version
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			commit = setting.Value
		case "vcs.modified":
			if setting.Value == "true" {
				modified = "-modified"
			}
		}
	}

	return fmt.Sprintf("%s (%s%s)", version, commit, modified)
}

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override (REPOCRAWL_HOST_TOKEN, ...)
const EnvPrefix = "REPOCRAWL"

// Load loads configuration from file, environment, and defaults.
// Uses the global viper instance to access CLI flag bindings.
func Load(configFile string) (*Config, error) {
	return LoadWithViper(viper.GetViper(), configFile)
}

// LoadWithViper loads configuration into v. An explicit configFile must
// exist; otherwise ~/.repocrawl/config.yaml and ./config.yaml are tried.
func LoadWithViper(v *viper.Viper, configFile string) (*Config, error) {
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(ConfigDir())
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default values in viper
func setDefaults(v *viper.Viper) {
	// Host defaults
	v.SetDefault("host.kind", DefaultHostKind)
	v.SetDefault("host.domain", "")
	v.SetDefault("host.protocol", "")
	v.SetDefault("host.token", "")

	// Crawl defaults
	v.SetDefault("crawl.max_file_size", DefaultMaxFileSize)
	v.SetDefault("crawl.relative_paths", false)
	v.SetDefault("crawl.include", []string{})
	v.SetDefault("crawl.exclude", []string{})
	v.SetDefault("crawl.ref", "")
	v.SetDefault("crawl.default_patterns", false)

	// Rate limit defaults
	v.SetDefault("rate_limit.max_retries", DefaultMaxRetries)
	v.SetDefault("rate_limit.initial_interval", DefaultInitialInterval)
	v.SetDefault("rate_limit.max_interval", DefaultMaxInterval)
	v.SetDefault("rate_limit.multiplier", DefaultMultiplier)
	v.SetDefault("rate_limit.min_wait", DefaultMinWait)
	v.SetDefault("rate_limit.requests_per_second", 0.0)

	// Output defaults
	v.SetDefault("output.directory", "")
	v.SetDefault("output.format", DefaultOutputFormat)
	v.SetDefault("output.force", false)
	v.SetDefault("output.dry_run", false)

	// Logging defaults
	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.format", DefaultLogFormat)
}

package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config represents the application configuration
type Config struct {
	Host      HostConfig      `mapstructure:"host" yaml:"host"`
	Crawl     CrawlConfig     `mapstructure:"crawl" yaml:"crawl"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
	Output    OutputConfig    `mapstructure:"output" yaml:"output"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
}

// HostConfig selects the code-hosting service
type HostConfig struct {
	// Kind is gitlab, github or auto
	Kind     string `mapstructure:"kind" yaml:"kind"`
	Domain   string `mapstructure:"domain" yaml:"domain"`
	Protocol string `mapstructure:"protocol" yaml:"protocol"`
	Token    string `mapstructure:"token" yaml:"token"`
}

// CrawlConfig contains crawl settings
type CrawlConfig struct {
	MaxFileSize   string   `mapstructure:"max_file_size" yaml:"max_file_size"`
	RelativePaths bool     `mapstructure:"relative_paths" yaml:"relative_paths"`
	Include       []string `mapstructure:"include" yaml:"include"`
	Exclude       []string `mapstructure:"exclude" yaml:"exclude"`
	Ref           string   `mapstructure:"ref" yaml:"ref"`
	// DefaultPatterns fills empty include/exclude lists with the built-in
	// source-code pattern sets
	DefaultPatterns bool `mapstructure:"default_patterns" yaml:"default_patterns"`
}

// RateLimitConfig contains retry settings for rate-limited requests
type RateLimitConfig struct {
	// MaxRetries caps retries of one request. Zero retries forever.
	MaxRetries        int           `mapstructure:"max_retries" yaml:"max_retries"`
	InitialInterval   time.Duration `mapstructure:"initial_interval" yaml:"initial_interval"`
	MaxInterval       time.Duration `mapstructure:"max_interval" yaml:"max_interval"`
	Multiplier        float64       `mapstructure:"multiplier" yaml:"multiplier"`
	MinWait           time.Duration `mapstructure:"min_wait" yaml:"min_wait"`
	// RequestsPerSecond throttles host requests. Zero is unthrottled.
	RequestsPerSecond float64       `mapstructure:"requests_per_second" yaml:"requests_per_second"`
}

// OutputConfig contains output-related settings
type OutputConfig struct {
	// Directory receives the crawled files. Empty streams to stdout.
	Directory string `mapstructure:"directory" yaml:"directory"`
	// Format is json or yaml
	Format string `mapstructure:"format" yaml:"format"`
	Force  bool   `mapstructure:"force" yaml:"force"`
	DryRun bool   `mapstructure:"dry_run" yaml:"dry_run"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Validate validates the configuration, replacing out-of-range values with
// defaults
func (c *Config) Validate() error {
	switch strings.ToLower(c.Host.Kind) {
	case "":
		c.Host.Kind = DefaultHostKind
	case "gitlab", "github", "auto":
		c.Host.Kind = strings.ToLower(c.Host.Kind)
	default:
		return fmt.Errorf("invalid host.kind %q: must be gitlab, github or auto", c.Host.Kind)
	}

	if c.Crawl.MaxFileSize == "" {
		c.Crawl.MaxFileSize = DefaultMaxFileSize
	} else if _, err := ParseSize(c.Crawl.MaxFileSize); err != nil {
		return fmt.Errorf("invalid crawl.max_file_size: %w", err)
	}

	if c.RateLimit.MaxRetries < 0 {
		c.RateLimit.MaxRetries = DefaultMaxRetries
	}
	if c.RateLimit.InitialInterval <= 0 {
		c.RateLimit.InitialInterval = DefaultInitialInterval
	}
	if c.RateLimit.MaxInterval < c.RateLimit.InitialInterval {
		c.RateLimit.MaxInterval = DefaultMaxInterval
	}
	if c.RateLimit.Multiplier < 1 {
		c.RateLimit.Multiplier = DefaultMultiplier
	}
	if c.RateLimit.MinWait <= 0 {
		c.RateLimit.MinWait = DefaultMinWait
	}
	if c.RateLimit.RequestsPerSecond < 0 {
		c.RateLimit.RequestsPerSecond = 0
	}

	switch strings.ToLower(c.Output.Format) {
	case "":
		c.Output.Format = DefaultOutputFormat
	case "json", "yaml":
		c.Output.Format = strings.ToLower(c.Output.Format)
	default:
		return fmt.Errorf("invalid output.format %q: must be json or yaml", c.Output.Format)
	}

	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
	return nil
}

// MaxFileSizeBytes returns the parsed crawl.max_file_size
func (c *Config) MaxFileSizeBytes() int64 {
	n, err := ParseSize(c.Crawl.MaxFileSize)
	if err != nil || n <= 0 {
		n, _ = ParseSize(DefaultMaxFileSize)
	}
	return n
}

// Patterns returns the include and exclude globs, filling empty lists with
// the built-in sets when crawl.default_patterns is on
func (c *Config) Patterns() (include, exclude []string) {
	include, exclude = c.Crawl.Include, c.Crawl.Exclude
	if c.Crawl.DefaultPatterns {
		if len(include) == 0 {
			include = DefaultIncludePatterns
		}
		if len(exclude) == 0 {
			exclude = DefaultExcludePatterns
		}
	}
	return include, exclude
}

// ParseSize parses sizes like "512", "100KB", "1MB" or "2GB"
func ParseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	var multiplier int64 = 1
	if strings.HasSuffix(s, "GB") {
		multiplier = 1024 * 1024 * 1024
		s = strings.TrimSuffix(s, "GB")
	} else if strings.HasSuffix(s, "MB") {
		multiplier = 1024 * 1024
		s = strings.TrimSuffix(s, "MB")
	} else if strings.HasSuffix(s, "KB") {
		multiplier = 1024
		s = strings.TrimSuffix(s, "KB")
	} else if strings.HasSuffix(s, "B") {
		s = strings.TrimSuffix(s, "B")
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("no numeric value in size string")
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric value: %w", err)
	}

	if n < 0 {
		return 0, fmt.Errorf("negative size not allowed")
	}

	return n * multiplier, nil
}

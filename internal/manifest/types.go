package manifest

import (
	"fmt"

	"github.com/quantmind-br/repocrawl-go/internal/config"
)

// Config represents the complete manifest configuration
type Config struct {
	Sources []Source `yaml:"sources" json:"sources"`
	Options Options  `yaml:"options" json:"options"`
}

// Source represents one repository to crawl
type Source struct {
	URL           string   `yaml:"url" json:"url"`
	Ref           string   `yaml:"ref,omitempty" json:"ref,omitempty"`
	Token         string   `yaml:"token,omitempty" json:"token,omitempty"`
	Include       []string `yaml:"include,omitempty" json:"include,omitempty"`
	Exclude       []string `yaml:"exclude,omitempty" json:"exclude,omitempty"`
	MaxFileSize   string   `yaml:"max_file_size,omitempty" json:"max_file_size,omitempty"`
	RelativePaths *bool    `yaml:"relative_paths,omitempty" json:"relative_paths,omitempty"`
}

// MaxFileSizeBytes returns the parsed size ceiling, or 0 when unset
func (s *Source) MaxFileSizeBytes() int64 {
	if s.MaxFileSize == "" {
		return 0
	}
	n, err := config.ParseSize(s.MaxFileSize)
	if err != nil {
		return 0
	}
	return n
}

// Options represents global manifest options
type Options struct {
	ContinueOnError bool   `yaml:"continue_on_error" json:"continue_on_error"`
	Output          string `yaml:"output,omitempty" json:"output,omitempty"`
	Format          string `yaml:"format,omitempty" json:"format,omitempty"`
	// Concurrency is how many sources are crawled at once
	Concurrency int `yaml:"concurrency,omitempty" json:"concurrency,omitempty"`
}

// Validate validates the manifest configuration
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return ErrNoSources
	}
	for i, src := range c.Sources {
		if src.URL == "" {
			return fmt.Errorf("source %d: %w", i, ErrEmptyURL)
		}
		if src.MaxFileSize != "" {
			if _, err := config.ParseSize(src.MaxFileSize); err != nil {
				return fmt.Errorf("source %d: %w: %v", i, ErrInvalidSize, err)
			}
		}
	}
	switch c.Options.Format {
	case "", "json", "yaml":
	default:
		return fmt.Errorf("%w: %s", ErrInvalidOutputFormat, c.Options.Format)
	}
	return nil
}

// DefaultOptions returns options with sensible defaults
func DefaultOptions() Options {
	return Options{
		ContinueOnError: false,
		Output:          "./crawls",
		Format:          "json",
		Concurrency:     1,
	}
}

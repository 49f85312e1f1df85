package config

import (
	"os"
	"path/filepath"
	"time"
)

// Default values
const (
	// Host defaults
	DefaultHostKind = "auto"

	// Crawl defaults
	DefaultMaxFileSize = "1MB"

	// Rate limit defaults
	DefaultMaxRetries      = 10
	DefaultInitialInterval = 1 * time.Second
	DefaultMaxInterval     = 60 * time.Second
	DefaultMultiplier      = 2.0
	DefaultMinWait         = 1 * time.Second

	// Output defaults
	DefaultOutputFormat = "json"

	// Logging defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "pretty"
)

// DefaultIncludePatterns selects source code and project documentation
var DefaultIncludePatterns = []string{
	"*.py", "*.js", "*.jsx", "*.ts", "*.tsx", "*.go", "*.java", "*.pyi", "*.pyx",
	"*.c", "*.cc", "*.cpp", "*.h", "*.md", "*.rst", "*Dockerfile",
	"*Makefile", "*.yaml", "*.yml",
}

// DefaultExcludePatterns skips assets, vendored code, tests and build output
var DefaultExcludePatterns = []string{
	"assets/*", "data/*", "images/*", "public/*", "static/*", "temp/*",
	"*docs/*",
	"*venv/*",
	"*.venv/*",
	"*test*",
	"*tests/*",
	"*examples/*",
	"v1/*",
	"*dist/*",
	"*build/*",
	"*experimental/*",
	"*deprecated/*",
	"*misc/*",
	"*legacy/*",
	".git/*", ".github/*", ".next/*", ".vscode/*",
	"*obj/*",
	"*bin/*",
	"*node_modules/*",
	"*.log",
}

// ConfigDir returns the config directory path
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".repocrawl"
	}
	return filepath.Join(home, ".repocrawl")
}

// ConfigFilePath returns the config file path
func ConfigFilePath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Host: HostConfig{
			Kind: DefaultHostKind,
		},
		Crawl: CrawlConfig{
			MaxFileSize: DefaultMaxFileSize,
		},
		RateLimit: RateLimitConfig{
			MaxRetries:      DefaultMaxRetries,
			InitialInterval: DefaultInitialInterval,
			MaxInterval:     DefaultMaxInterval,
			Multiplier:      DefaultMultiplier,
			MinWait:         DefaultMinWait,
		},
		Output: OutputConfig{
			Format: DefaultOutputFormat,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

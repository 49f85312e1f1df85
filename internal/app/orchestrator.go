package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/quantmind-br/repocrawl-go/internal/config"
	"github.com/quantmind-br/repocrawl-go/internal/crawler"
	"github.com/quantmind-br/repocrawl-go/internal/domain"
	"github.com/quantmind-br/repocrawl-go/internal/hostapi"
	"github.com/quantmind-br/repocrawl-go/internal/manifest"
	"github.com/quantmind-br/repocrawl-go/internal/output"
	"github.com/quantmind-br/repocrawl-go/internal/repourl"
	"github.com/quantmind-br/repocrawl-go/internal/utils"
)

// ErrCrawlFailed is returned when the reference of a repository could not be
// resolved. The result is still written so the stats can be inspected.
var ErrCrawlFailed = errors.New("crawl failed")

// Orchestrator coordinates configuration, crawling and output
type Orchestrator struct {
	config     *config.Config
	logger     *utils.Logger
	stdout     io.Writer
	progress   func(crawler.Event)
	httpClient *http.Client
	apiURL     string
	getenv     func(string) string
}

// OrchestratorOptions contains options for creating an orchestrator
type OrchestratorOptions struct {
	Config  *config.Config
	Verbose bool
	// Logger replaces the logger built from the logging config
	Logger *utils.Logger
	// Stdout receives streamed results when no output directory is set
	Stdout   io.Writer
	Progress func(crawler.Event)

	HTTPClient *http.Client
	APIURL     string
	Getenv     func(string) string
}

// Source overrides the configured crawl settings for one repository.
// Zero values keep the configuration.
type Source struct {
	URL           string
	Ref           string
	Token         string
	Include       []string
	Exclude       []string
	MaxFileSize   int64
	RelativePaths *bool
	// OutputDir replaces output.directory
	OutputDir string
}

// Result is the outcome of one Run
type Result struct {
	Crawl     *domain.CrawlResult
	Write     *output.WriteSummary
	OutputDir string
}

// NewOrchestrator creates a new orchestrator with the given configuration
func NewOrchestrator(opts OrchestratorOptions) (*Orchestrator, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logLevel := config.DefaultLogLevel
		logFormat := config.DefaultLogFormat
		if cfg.Logging.Level != "" {
			logLevel = cfg.Logging.Level
		}
		if cfg.Logging.Format != "" {
			logFormat = cfg.Logging.Format
		}
		if opts.Verbose {
			logLevel = "debug"
		}
		logger = utils.NewLogger(utils.LoggerOptions{
			Level:   logLevel,
			Format:  logFormat,
			Verbose: opts.Verbose,
		})
	}

	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	return &Orchestrator{
		config:     cfg,
		logger:     logger.WithComponent("app"),
		stdout:     stdout,
		progress:   opts.Progress,
		httpClient: opts.HTTPClient,
		apiURL:     opts.APIURL,
		getenv:     opts.Getenv,
	}, nil
}

// CrawlOptions merges the configuration with the per-source overrides
func (o *Orchestrator) CrawlOptions(src Source) crawler.Options {
	cfg := o.config
	include, exclude := cfg.Patterns()
	if len(src.Include) > 0 {
		include = src.Include
	}
	if len(src.Exclude) > 0 {
		exclude = src.Exclude
	}

	maxFileSize := cfg.MaxFileSizeBytes()
	if src.MaxFileSize > 0 {
		maxFileSize = src.MaxFileSize
	}

	relative := cfg.Crawl.RelativePaths
	if src.RelativePaths != nil {
		relative = *src.RelativePaths
	}

	token := cfg.Host.Token
	if src.Token != "" {
		token = src.Token
	}

	ref := cfg.Crawl.Ref
	if src.Ref != "" {
		ref = src.Ref
	}

	kind := domain.HostKind(cfg.Host.Kind)
	if kind == "" {
		kind = domain.HostAuto
	}

	return crawler.Options{
		RepositoryURL:    src.URL,
		Token:            token,
		HostKind:         kind,
		HostDomain:       cfg.Host.Domain,
		HostProtocol:     cfg.Host.Protocol,
		MaxFileSize:      maxFileSize,
		UseRelativePaths: relative,
		Include:          include,
		Exclude:          exclude,
		Ref:              ref,
		Debug:            cfg.Logging.Level == "debug",
		Logger:           o.logger,
		RateLimit: &hostapi.RetrierOptions{
			MaxRetries:        cfg.RateLimit.MaxRetries,
			InitialInterval:   cfg.RateLimit.InitialInterval,
			MaxInterval:       cfg.RateLimit.MaxInterval,
			Multiplier:        cfg.RateLimit.Multiplier,
			MinWait:           cfg.RateLimit.MinWait,
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		},
		HTTPClient: o.httpClient,
		APIURL:     o.apiURL,
		Progress:   o.progress,
		Getenv:     o.getenv,
	}
}

// Run crawls one repository and writes the result to the output directory,
// or streams it to stdout when no directory is configured
func (o *Orchestrator) Run(ctx context.Context, src Source) (*Result, error) {
	startTime := time.Now()

	outputDir := src.OutputDir
	if outputDir == "" {
		outputDir = o.config.Output.Directory
	}
	outputDir = utils.ExpandPath(outputDir)

	o.logger.Info().
		Str("url", src.URL).
		Str("output", outputDir).
		Msg("Starting repository crawl")

	if IsFileURL(src.URL) {
		o.logger.Warn().
			Str("url", src.URL).
			Msg("URL points at a single file; it carries no tree reference and the default branch is crawled")
	}

	crawlResult, err := crawler.Crawl(ctx, o.CrawlOptions(src))
	if err != nil {
		if ctx.Err() != nil {
			o.logger.Warn().Msg("Crawl cancelled")
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("crawl %s: %w", src.URL, err)
	}

	res := &Result{Crawl: crawlResult, OutputDir: outputDir}

	if outputDir == "" {
		if err := output.Encode(o.stdout, crawlResult, o.config.Output.Format); err != nil {
			return res, fmt.Errorf("failed to encode result: %w", err)
		}
	} else {
		writer := output.NewWriter(output.WriterOptions{
			BaseDir: outputDir,
			Format:  o.config.Output.Format,
			Force:   o.config.Output.Force,
			DryRun:  o.config.Output.DryRun,
		})
		summary, err := writer.Write(ctx, crawlResult)
		res.Write = summary
		if err != nil {
			return res, fmt.Errorf("failed to write result: %w", err)
		}
		o.logger.Info().
			Int("written", summary.Written).
			Int("existing", summary.Existing).
			Bool("dry_run", o.config.Output.DryRun).
			Str("stats", writer.StatsPath()).
			Msg("Wrote crawl result")
	}

	if crawlResult.Failed() {
		return res, fmt.Errorf("%w: %s", ErrCrawlFailed, crawlResult.Stats.Error)
	}

	o.logger.Info().
		Dur("duration", time.Since(startTime)).
		Int("downloaded", crawlResult.Stats.DownloadedCount).
		Int("skipped", crawlResult.Stats.SkippedCount).
		Msg("Repository crawl completed")

	return res, nil
}

// SourceDir returns the batch output directory of a repository,
// "<base>/<namespace>-<project>"
func (o *Orchestrator) SourceDir(base, rawURL string) (string, error) {
	identifier, err := repourl.Normalize(rawURL, o.config.Host.Protocol)
	if err != nil {
		identifier = rawURL
	}
	loc, err := repourl.Parse(identifier, repourl.Options{
		Kind:     domain.HostKind(o.config.Host.Kind),
		Domain:   o.config.Host.Domain,
		Protocol: o.config.Host.Protocol,
		Getenv:   o.getenv,
	})
	if err != nil {
		return "", err
	}
	return filepath.Join(utils.ExpandPath(base), utils.RepositoryDirName(loc.Namespace, loc.Project)), nil
}

// ManifestResult represents the result of processing one manifest source
type ManifestResult struct {
	Source   manifest.Source
	Result   *Result
	Error    error
	Duration time.Duration
	// NotRun is set for sources never started because the batch stopped
	NotRun bool
}

// RunManifest crawls every source of a manifest into its own directory
// under the manifest output and writes a batch summary next to them
func (o *Orchestrator) RunManifest(ctx context.Context, manifestCfg *manifest.Config) ([]ManifestResult, error) {
	startTime := time.Now()
	totalSources := len(manifestCfg.Sources)

	o.logger.Info().
		Int("sources", totalSources).
		Bool("continue_on_error", manifestCfg.Options.ContinueOnError).
		Str("output", manifestCfg.Options.Output).
		Msg("Starting manifest execution")

	results := make([]ManifestResult, totalSources)
	if totalSources == 0 {
		return results, nil
	}
	for i, source := range manifestCfg.Sources {
		results[i] = ManifestResult{Source: source, NotRun: true}
	}

	collector := output.NewSummaryCollector(output.CollectorOptions{
		BaseDir: utils.ExpandPath(manifestCfg.Options.Output),
		Format:  manifestCfg.Options.Format,
		Enabled: !o.config.Output.DryRun,
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	indexes := make([]int, totalSources)
	for i := range indexes {
		indexes[i] = i
	}

	errs := utils.ParallelForEach(runCtx, indexes, manifestCfg.Options.Concurrency, func(ctx context.Context, idx int) error {
		if ctx.Err() != nil {
			return nil
		}
		source := manifestCfg.Sources[idx]
		sourceStart := time.Now()

		o.logger.Info().
			Int("source_idx", idx).
			Str("source_url", source.URL).
			Int("total", totalSources).
			Msg("Processing source")

		res, err := o.runSource(ctx, manifestCfg, source)
		results[idx] = ManifestResult{
			Source:   source,
			Result:   res,
			Error:    err,
			Duration: time.Since(sourceStart),
		}
		collector.Add(outcome(source, res, err, results[idx].Duration))

		if err != nil {
			o.logger.Error().
				Err(err).
				Int("source_idx", idx).
				Str("source_url", source.URL).
				Msg("Source crawl failed")
			if !manifestCfg.Options.ContinueOnError {
				cancel()
			}
			return err
		}
		return nil
	})

	if err := collector.Flush(); err != nil {
		o.logger.Warn().Err(err).Msg("Failed to write batch summary")
	}

	if ctx.Err() != nil {
		o.logger.Warn().Msg("Manifest execution cancelled")
		return results, ctx.Err()
	}

	failed := utils.CollectErrors(errs)
	notRun := 0
	for _, r := range results {
		if r.NotRun {
			notRun++
		}
	}
	o.logger.Info().
		Dur("total_duration", time.Since(startTime)).
		Int("total", totalSources).
		Int("success", totalSources-len(failed)-notRun).
		Int("failed", len(failed)).
		Int("not_run", notRun).
		Msg("Manifest execution completed")

	if len(failed) > 0 {
		if !manifestCfg.Options.ContinueOnError {
			return results, fmt.Errorf("stopping after failed source (continue_on_error=false): %w", utils.FirstError(errs))
		}
		return results, fmt.Errorf("manifest completed with %d/%d failures: %w",
			len(failed), totalSources, utils.FirstError(errs))
	}
	return results, nil
}

func (o *Orchestrator) runSource(ctx context.Context, manifestCfg *manifest.Config, source manifest.Source) (*Result, error) {
	dir, err := o.SourceDir(manifestCfg.Options.Output, source.URL)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", source.URL, err)
	}

	return o.Run(ctx, Source{
		URL:           source.URL,
		Ref:           source.Ref,
		Token:         source.Token,
		Include:       source.Include,
		Exclude:       source.Exclude,
		MaxFileSize:   source.MaxFileSizeBytes(),
		RelativePaths: source.RelativePaths,
		OutputDir:     dir,
	})
}

func outcome(source manifest.Source, res *Result, err error, d time.Duration) output.SourceOutcome {
	o := output.SourceOutcome{URL: source.URL, Duration: d}
	if res != nil {
		o.OutputDir = res.OutputDir
		if res.Crawl != nil {
			o.Downloaded = res.Crawl.Stats.DownloadedCount
			o.Skipped = res.Crawl.Stats.SkippedCount
		}
		if res.Write != nil {
			o.Written = res.Write.Written
		}
	}
	if err != nil {
		o.Error = err.Error()
	}
	return o
}

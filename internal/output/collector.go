package output

import (
	"os"
	"path/filepath"
	"sync"
	"time"
)

// SourceOutcome is the batch summary entry for one crawled source
type SourceOutcome struct {
	URL        string        `json:"url" yaml:"url"`
	OutputDir  string        `json:"output_dir,omitempty" yaml:"output_dir,omitempty"`
	Downloaded int           `json:"downloaded" yaml:"downloaded"`
	Skipped    int           `json:"skipped" yaml:"skipped"`
	Written    int           `json:"written" yaml:"written"`
	Duration   time.Duration `json:"duration" yaml:"duration"`
	Error      string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// BatchSummary is the index written after a batch run
type BatchSummary struct {
	GeneratedAt  time.Time       `json:"generated_at" yaml:"generated_at"`
	TotalSources int             `json:"total_sources" yaml:"total_sources"`
	Succeeded    int             `json:"succeeded" yaml:"succeeded"`
	Failed       int             `json:"failed" yaml:"failed"`
	Sources      []SourceOutcome `json:"sources" yaml:"sources"`
}

// SummaryCollector gathers per-source outcomes of a batch run
type SummaryCollector struct {
	mu       sync.RWMutex
	outcomes []SourceOutcome
	baseDir  string
	filename string
	format   string
	enabled  bool
}

type CollectorOptions struct {
	BaseDir  string
	Filename string
	Format   string
	Enabled  bool
}

func NewSummaryCollector(opts CollectorOptions) *SummaryCollector {
	format := opts.Format
	if format == "" {
		format = FormatJSON
	}
	filename := opts.Filename
	if filename == "" {
		filename = "batch-summary." + format
	}
	return &SummaryCollector{
		outcomes: make([]SourceOutcome, 0),
		baseDir:  opts.BaseDir,
		filename: filename,
		format:   format,
		enabled:  opts.Enabled,
	}
}

func (c *SummaryCollector) Add(outcome SourceOutcome) {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes = append(c.outcomes, outcome)
}

// Flush writes the summary file. Nothing is written when the collector is
// disabled or empty.
func (c *SummaryCollector) Flush() error {
	if !c.enabled {
		return nil
	}

	summary := c.Summary()
	if summary.TotalSources == 0 {
		return nil
	}

	if err := os.MkdirAll(c.baseDir, 0755); err != nil {
		return err
	}
	f, err := os.Create(c.Path())
	if err != nil {
		return err
	}
	defer f.Close()

	return Encode(f, summary, c.format)
}

// Path returns the summary file location
func (c *SummaryCollector) Path() string {
	return filepath.Join(c.baseDir, c.filename)
}

func (c *SummaryCollector) Summary() *BatchSummary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	sources := make([]SourceOutcome, len(c.outcomes))
	copy(sources, c.outcomes)

	summary := &BatchSummary{
		GeneratedAt:  time.Now(),
		TotalSources: len(sources),
		Sources:      sources,
	}
	for _, o := range sources {
		if o.Error != "" {
			summary.Failed++
		} else {
			summary.Succeeded++
		}
	}
	return summary
}

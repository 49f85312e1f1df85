package output

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/quantmind-br/repocrawl-go/internal/domain"
	"github.com/quantmind-br/repocrawl-go/internal/utils"
)

// Supported encodings for stats files and streamed results
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// StatsBaseName is the stats file written next to the crawled files. A
// crawled file of the same name keeps it; the stats then go to
// crawl-stats-1.<format>, crawl-stats-2.<format> and so on.
const StatsBaseName = "crawl-stats"

// Writer handles writing crawl results to the filesystem
type Writer struct {
	baseDir   string
	format    string
	force     bool
	dryRun    bool
	statsPath string
}

// WriterOptions contains options for the writer
type WriterOptions struct {
	BaseDir string
	Format  string
	Force   bool
	DryRun  bool
}

// WriteSummary counts what Write did with each file of a result
type WriteSummary struct {
	Written  int
	Existing int
	Paths    []string
}

// NewWriter creates a new output writer
func NewWriter(opts WriterOptions) *Writer {
	if opts.BaseDir == "" {
		opts.BaseDir = "./crawl"
	}
	if opts.Format == "" {
		opts.Format = FormatJSON
	}

	return &Writer{
		baseDir: opts.BaseDir,
		format:  opts.Format,
		force:   opts.Force,
		dryRun:  opts.DryRun,
	}
}

// BaseDir returns the directory files are written under
func (w *Writer) BaseDir() string {
	return w.baseDir
}

// Write saves every file of result under the base directory, followed by
// the stats file. Existing files are kept unless force is set.
func (w *Writer) Write(ctx context.Context, result *domain.CrawlResult) (*WriteSummary, error) {
	if result == nil {
		return nil, fmt.Errorf("nil crawl result")
	}

	summary := &WriteSummary{}
	taken := make(map[string]bool, len(result.Files))
	for _, rel := range SortedPaths(result.Files) {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		path, err := utils.SafeJoin(w.baseDir, rel)
		if err != nil {
			return summary, err
		}
		taken[path] = true

		if !w.force {
			if _, err := os.Stat(path); err == nil {
				summary.Existing++
				continue
			}
		}

		summary.Paths = append(summary.Paths, path)
		if w.dryRun {
			continue
		}

		if err := utils.EnsureDir(path); err != nil {
			return summary, err
		}
		if err := os.WriteFile(path, []byte(result.Files[rel]), 0644); err != nil {
			return summary, fmt.Errorf("write %s: %w", rel, err)
		}
		summary.Written++
	}

	w.statsPath = w.freeStatsPath(taken)
	if w.dryRun {
		return summary, nil
	}
	if err := w.writeStats(&result.Stats); err != nil {
		return summary, err
	}
	return summary, nil
}

// StatsPath returns where the stats file of the last Write went
func (w *Writer) StatsPath() string {
	if w.statsPath != "" {
		return w.statsPath
	}
	return filepath.Join(w.baseDir, StatsBaseName+"."+w.format)
}

// freeStatsPath picks the first stats file name no crawled file occupies
func (w *Writer) freeStatsPath(taken map[string]bool) string {
	name := StatsBaseName + "." + w.format
	for i := 1; ; i++ {
		path := filepath.Join(w.baseDir, name)
		if !taken[path] {
			return path
		}
		name = StatsBaseName + "-" + strconv.Itoa(i) + "." + w.format
	}
}

func (w *Writer) writeStats(stats *domain.CrawlStats) error {
	if err := os.MkdirAll(w.baseDir, 0755); err != nil {
		return err
	}

	f, err := os.Create(w.StatsPath())
	if err != nil {
		return err
	}
	defer f.Close()

	return Encode(f, stats, w.format)
}

// Encode writes v to out as JSON or YAML
func Encode(out io.Writer, v any, format string) error {
	switch strings.ToLower(format) {
	case "", FormatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(v)
	case FormatYAML, "yml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// SortedPaths returns the keys of files in lexical order
func SortedPaths(files map[string]string) []string {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

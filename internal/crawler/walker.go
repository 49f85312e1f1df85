package crawler

import (
	"context"
	"strings"

	"github.com/quantmind-br/repocrawl-go/internal/domain"
	"github.com/quantmind-br/repocrawl-go/internal/hostapi"
	"github.com/quantmind-br/repocrawl-go/internal/pattern"
	"github.com/quantmind-br/repocrawl-go/internal/utils"
)

// EventKind classifies what happened to a file during a walk
type EventKind string

const (
	EventDownloaded EventKind = "downloaded"
	EventOversize   EventKind = "oversize"
	EventFiltered   EventKind = "filtered"
	EventBinary     EventKind = "binary"
	EventFailed     EventKind = "failed"
)

// Event reports the outcome for one file
type Event struct {
	Kind EventKind
	Path string
	Size int64
}

// Accumulator collects the results of a walk
type Accumulator struct {
	Files   map[string]string
	Skipped []domain.SkippedFile
}

// NewAccumulator creates an empty Accumulator
func NewAccumulator() *Accumulator {
	return &Accumulator{Files: map[string]string{}}
}

// WalkerOptions configures a Walker
type WalkerOptions struct {
	Host        domain.Host
	Ref         domain.ReferenceSpec
	Patterns    *pattern.Set
	MaxFileSize int64
	// UseRelativePaths keys files relative to Ref.SpecificPath
	UseRelativePaths bool
	HasToken         bool
	Logger           *utils.Logger
	Progress         func(Event)
}

// Walker walks a repository tree depth-first. It holds no per-walk state;
// results go into the Accumulator passed to Walk.
type Walker struct {
	host        domain.Host
	ref         domain.ReferenceSpec
	patterns    *pattern.Set
	maxFileSize int64
	relative    bool
	hasToken    bool
	logger      *utils.Logger
	progress    func(Event)
}

// NewWalker creates a Walker
func NewWalker(opts WalkerOptions) *Walker {
	if opts.Patterns == nil {
		opts.Patterns = pattern.MustNew(nil, nil)
	}
	if opts.Progress == nil {
		opts.Progress = func(Event) {}
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}

	return &Walker{
		host:        opts.Host,
		ref:         opts.Ref,
		patterns:    opts.Patterns,
		maxFileSize: opts.MaxFileSize,
		relative:    opts.UseRelativePaths,
		hasToken:    opts.HasToken,
		logger:      opts.Logger.OrNop().WithComponent("walker"),
		progress:    opts.Progress,
	}
}

// Walk crawls dir and everything below it. Failed listings and downloads
// are logged and skipped; only context cancellation stops the walk.
func (w *Walker) Walk(ctx context.Context, dir string, acc *Accumulator) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := w.host.ListTree(ctx, dir, w.ref)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.logger.Error().
			Err(err).
			Str("path", dir).
			Str("hint", hostapi.DiagnoseError(w.host.Kind(), err, w.hasToken, dir)).
			Msg("Failed to list directory")
		return nil
	}

	for _, entry := range entries {
		rel := w.RelativePath(entry.Path)

		switch entry.Type {
		case domain.EntryBlob:
			if err := w.visitFile(ctx, entry, rel, acc); err != nil {
				return err
			}
		case domain.EntryTree:
			if w.patterns.ExcludesDir(entry.Path, rel) {
				w.logger.Debug().Str("path", entry.Path).Msg("Pruning excluded directory")
				continue
			}
			if err := w.Walk(ctx, entry.Path, acc); err != nil {
				return err
			}
		}
	}
	return nil
}

// RelativePath strips the crawl root from path when relative keys are
// requested. Paths outside the root are returned unchanged.
func (w *Walker) RelativePath(path string) string {
	root := w.ref.SpecificPath
	if !w.relative || root == "" {
		return path
	}
	rest, ok := strings.CutPrefix(path, root)
	if !ok {
		return path
	}
	return strings.TrimLeft(rest, "/")
}

func (w *Walker) visitFile(ctx context.Context, entry domain.TreeEntry, rel string, acc *Accumulator) error {
	if !w.patterns.Matches(rel, entry.BaseName()) {
		w.logger.Debug().Str("path", rel).Msg("Skipping: does not match include/exclude patterns")
		w.progress(Event{Kind: EventFiltered, Path: rel})
		return nil
	}

	w.logger.Debug().Str("path", entry.Path).Msg("Downloading file")
	content, err := w.host.FetchFile(ctx, entry.Path, w.ref, w.maxFileSize)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.logger.Warn().
			Err(err).
			Str("path", rel).
			Str("hint", hostapi.DiagnoseError(w.host.Kind(), err, w.hasToken, entry.Path)).
			Msg("Failed to download file")
		w.progress(Event{Kind: EventFailed, Path: rel})
		return nil
	}

	if content.Size > w.maxFileSize {
		acc.Skipped = append(acc.Skipped, domain.SkippedFile{Path: entry.Path, Size: content.Size})
		w.logger.Info().
			Str("path", rel).
			Int64("size", content.Size).
			Int64("limit", w.maxFileSize).
			Msg("Skipping: file size exceeds limit")
		w.progress(Event{Kind: EventOversize, Path: rel, Size: content.Size})
		return nil
	}

	text, err := DecodeText(content)
	if err != nil {
		w.logger.Info().Err(err).Str("path", rel).Msg("Skipping: binary file or encoding issue")
		w.progress(Event{Kind: EventBinary, Path: rel, Size: content.Size})
		return nil
	}

	acc.Files[rel] = text
	w.logger.Info().Str("path", rel).Int64("size", content.Size).Msg("Downloaded")
	w.progress(Event{Kind: EventDownloaded, Path: rel, Size: content.Size})
	return nil
}

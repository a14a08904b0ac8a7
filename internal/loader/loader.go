// Package loader reads input files and turns them into documents.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jacoelho/treeview/internal/docerr"
	"github.com/jacoelho/treeview/internal/format"
	"github.com/jacoelho/treeview/internal/logging"
	"github.com/jacoelho/treeview/internal/parquet"
	"github.com/jacoelho/treeview/internal/parse"
	"github.com/jacoelho/treeview/internal/ratelimit"
	"github.com/jacoelho/treeview/internal/tree"
)

const (
	// DefaultMaxInputBytes bounds file and decompressed sizes.
	DefaultMaxInputBytes = 1 << 30
	// DefaultLazyThreshold is the Parquet row count above which trees are
	// built on demand.
	DefaultLazyThreshold = 10_000
)

type Options struct {
	// MaxInputBytes bounds the size of a file before and after
	// decompression. Negative disables the check; zero selects the default.
	MaxInputBytes int64
	// Format forces a format instead of detecting one.
	Format format.Format
	// LazyThreshold is the Parquet row count above which the tree is lazy.
	// Negative makes every Parquet tree eager; zero selects the default.
	LazyThreshold int
	Parse         parse.Options
	Parquet       parquet.Options
	Tree          tree.Options
	// Workers bounds concurrent loads in LoadAll. Zero or less means one.
	Workers int
	// RateLimit is the number of loads started per second; zero is unlimited.
	RateLimit float64
	Logger    *logging.Logger
}

// Loader is safe for concurrent use.
type Loader struct {
	opts    Options
	limiter *ratelimit.Limiter
	log     *logging.Logger
}

func New(opts Options) *Loader {
	if opts.MaxInputBytes == 0 {
		opts.MaxInputBytes = DefaultMaxInputBytes
	}
	if opts.LazyThreshold == 0 {
		opts.LazyThreshold = DefaultLazyThreshold
	}
	if opts.Tree.MaxNodes <= 0 {
		opts.Tree.MaxNodes = tree.DefaultMaxNodes
	}
	if opts.Parse.MaxNodes <= 0 {
		opts.Parse.MaxNodes = opts.Tree.MaxNodes
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	return &Loader{
		opts:    opts,
		limiter: ratelimit.New(opts.RateLimit, opts.Workers),
		log:     log,
	}
}

// Load reads, detects, parses and builds the document stored at path.
func (l *Loader) Load(ctx context.Context, path string) (*tree.Document, error) {
	start := time.Now()
	doc, err := l.load(ctx, path)
	if err != nil {
		err = fmt.Errorf("%s: %w", path, err)
	}
	ld := loadStats(doc)
	ld.Elapsed = time.Since(start)
	l.log.WithFile(path).LogLoad(ctx, ld, err)
	return doc, err
}

func (l *Loader) load(ctx context.Context, path string) (*tree.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := l.readFile(path)
	if err != nil {
		return nil, err
	}
	return l.Bytes(filepath.Base(path), data)
}

func (l *Loader) readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, docerr.Wrap(docerr.IOError, unwrapPath(err), "open")
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, docerr.Wrap(docerr.IOError, unwrapPath(err), "stat")
	}
	if info.IsDir() {
		return nil, docerr.New(docerr.IOError, "is a directory")
	}
	if limit := l.opts.MaxInputBytes; limit > 0 && info.Size() > limit {
		return nil, docerr.New(docerr.ResourceLimit, "file is %d bytes, limit %d", info.Size(), limit)
	}
	return readLimited(f, l.opts.MaxInputBytes)
}

// Bytes builds a document from content already in memory. name is used for
// format detection and as the document name.
func (l *Loader) Bytes(name string, data []byte) (*tree.Document, error) {
	if limit := l.opts.MaxInputBytes; limit > 0 && int64(len(data)) > limit {
		return nil, docerr.New(docerr.ResourceLimit, "input is %d bytes, limit %d", len(data), limit)
	}

	data, err := decompress(DetectCompression(name, data), data, l.opts.MaxInputBytes)
	if err != nil {
		return nil, err
	}

	f := l.opts.Format
	if f == format.Unknown {
		if f, err = format.Detect(name, data); err != nil {
			return nil, err
		}
	}
	meta := tree.Meta{Format: f, Name: name}

	if f == format.Parquet {
		src, err := parquet.Open(data, l.opts.Parquet)
		if err != nil {
			return nil, err
		}
		l.log.WithFile(name).LogParquet(src.Len(), src.NumRowGroups(), src.Columns())
		opts := l.opts.Tree
		if l.opts.LazyThreshold > 0 && src.Len() > l.opts.LazyThreshold {
			opts.Lazy = true
		}
		return tree.Build(meta, src, opts)
	}

	roots, err := parse.Parse(f, data, l.opts.Parse)
	if err != nil {
		return nil, err
	}
	return tree.Build(meta, tree.Roots(roots), l.opts.Tree)
}

// Result is the outcome of loading one path.
type Result struct {
	Path string
	Doc  *tree.Document
	Err  error
}

// LoadAll loads every path with up to Workers loads in flight. Results are in
// the order of paths; a failed file does not stop the others.
func (l *Loader) LoadAll(ctx context.Context, paths []string) []Result {
	results := make([]Result, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.opts.Workers)
	for i, path := range paths {
		results[i].Path = path
		g.Go(func() error {
			if err := l.limiter.Wait(gctx); err != nil {
				results[i].Err = fmt.Errorf("%s: %w", path, err)
				return nil
			}
			results[i].Doc, results[i].Err = l.Load(gctx, path)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	l.log.LogBatch(ctx, len(paths), failed)
	return results
}

// unwrapPath drops the *fs.PathError wrapper; the path is added by Load.
func unwrapPath(err error) error {
	var pe *fs.PathError
	if errors.As(err, &pe) {
		return pe.Err
	}
	return err
}

func loadStats(doc *tree.Document) logging.Load {
	if doc == nil {
		return logging.Load{}
	}
	return logging.Load{
		Format: doc.Format.String(),
		Roots:  doc.Len(),
		Nodes:  doc.NodeCount(),
		Lazy:   doc.Lazy(),
	}
}

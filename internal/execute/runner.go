// Package execute runs one treeview invocation: load, search, query and
// print.
package execute

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jacoelho/treeview/internal/boundary"
	"github.com/jacoelho/treeview/internal/config"
	"github.com/jacoelho/treeview/internal/exit"
	"github.com/jacoelho/treeview/internal/loader"
	"github.com/jacoelho/treeview/internal/logging"
	"github.com/jacoelho/treeview/internal/query"
	"github.com/jacoelho/treeview/internal/render"
	"github.com/jacoelho/treeview/internal/search"
	"github.com/jacoelho/treeview/internal/tree"
)

type Runner struct {
	config    *config.Config
	loader    *loader.Loader
	query     *query.Query
	log       *logging.Logger
	output    io.Writer
	errOutput io.Writer
	color     bool
}

func New(cfg *config.Config) (*Runner, *exit.Result) {
	// Load failures are printed by Run; logs only add detail under -debug.
	log := logging.Nop()
	if cfg.Debug {
		log = logging.NewText(os.Stderr, slog.LevelDebug)
	}

	var q *query.Query
	if cfg.Query != "" {
		var err error
		if q, err = query.Compile(cfg.Query); err != nil {
			return nil, exit.Usagef("Error: %v\n", err)
		}
	}

	opts := cfg.LoaderOptions()
	opts.Logger = log

	return &Runner{
		config:    cfg,
		loader:    loader.New(opts),
		query:     q,
		log:       log,
		output:    os.Stdout,
		errOutput: os.Stderr,
		color:     render.UseColor(cfg.Color, os.Stdout),
	}, nil
}

func (r *Runner) SetOutput(w io.Writer) {
	r.output = w
	r.color = r.config.Color == config.ColorAlways
}

func (r *Runner) SetErrorOutput(w io.Writer) {
	r.errOutput = w
}

func (r *Runner) payloadWriter() io.Writer {
	if r.output == nil {
		return io.Discard
	}
	return r.output
}

func (r *Runner) errorWriter() io.Writer {
	if r.errOutput == nil {
		return io.Discard
	}
	return r.errOutput
}

// Run loads every configured file and prints it. The exit code tells
// whether all, some or none of the files could be shown.
func (r *Runner) Run(ctx context.Context) int {
	results := r.loader.LoadAll(ctx, r.config.Files)

	if r.config.Output == config.OutputPayload {
		return r.runPayload(results)
	}

	errs := render.New(r.errorWriter(), false)
	docs := make([]*tree.Document, 0, len(results))
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			errs.Failure(res.Err)
			failed++
			continue
		}
		docs = append(docs, res.Doc)
	}
	_ = errs.Flush()

	out := render.New(r.payloadWriter(), r.color)
	code := exit.ForLoads(len(results), failed)
	if err := r.print(ctx, out, docs); err != nil {
		errs.Failure(err)
		_ = errs.Flush()
		code = exit.CodeFailure
	}
	if err := out.Flush(); err != nil {
		return exit.CodeFailure
	}
	return code
}

func (r *Runner) print(ctx context.Context, out *render.Printer, docs []*tree.Document) error {
	var sess *search.Session
	if r.config.Search != "" {
		var err error
		sess, err = search.Search(ctx, docs, r.config.Search, search.Options{CaseSensitive: r.config.CaseSensitive})
		r.log.LogSearch(ctx, r.config.Search, sessionLen(sess), err)
		if err != nil {
			return err
		}
	}

	for i, doc := range docs {
		if len(docs) > 1 {
			out.Header(doc)
		}

		switch {
		case r.query != nil:
			results, err := r.query.Select(ctx, doc)
			r.log.LogQuery(ctx, r.query.String(), len(results), err)
			if err != nil {
				return fmt.Errorf("%s: %w", doc.Name, err)
			}
			out.Results(results, r.config.Output == config.OutputJSON, r.config.Preview)
		case r.config.Output == config.OutputJSON:
			if err := out.JSON(doc); err != nil {
				return fmt.Errorf("%s: %w", doc.Name, err)
			}
		default:
			opts := render.TreeOptions{Depth: r.config.Depth, Search: sess, DocIndex: i}
			if err := out.Tree(doc, opts); err != nil {
				return fmt.Errorf("%s: %w", doc.Name, err)
			}
		}
		r.log.WithFile(doc.Name).LogRendered(ctx, doc.Materialized(), doc.Len(), doc.NodeCount())
	}

	if sess != nil {
		out.SearchSummary(sess)
	}
	return nil
}

// runPayload writes one boundary payload per file, one per line.
func (r *Runner) runPayload(results []loader.Result) int {
	w := r.payloadWriter()
	failed := 0
	for _, res := range results {
		var data []byte
		if res.Err != nil {
			failed++
			data = boundary.EncodeError(res.Err)
		} else {
			var err error
			if data, err = boundary.Encode(res.Doc); err != nil {
				failed++
				data = boundary.EncodeError(err)
			}
		}
		if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
			return exit.CodeFailure
		}
	}
	return exit.ForLoads(len(results), failed)
}

func sessionLen(s *search.Session) int {
	if s == nil {
		return 0
	}
	return s.Len()
}

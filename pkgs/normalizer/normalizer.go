// Package normalizer runs the whole pipeline for one command: text
// pre-pass, bash parse, tree building and operator folding. Every failure
// comes back as a tagged *errors.NormalizeError; nothing panics through.
package normalizer

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/aledsdavies/cmdtree/core/invariant"
	"github.com/aledsdavies/cmdtree/pkgs/builder"
	"github.com/aledsdavies/cmdtree/pkgs/catalogue"
	"github.com/aledsdavies/cmdtree/pkgs/errors"
	"github.com/aledsdavies/cmdtree/pkgs/rawtree"
	"github.com/aledsdavies/cmdtree/pkgs/tree"
	"github.com/aledsdavies/cmdtree/pkgs/value"
)

// Normalizer is safe for concurrent use: each call builds a private tree.
type Normalizer struct {
	cfg Config
}

// Result is a successfully normalized command
type Result struct {
	// Command is the pre-passed text the tree was built from
	Command string
	Tree    *tree.Node
	// Warnings lists recoverable problems, such as dangling unary
	// operators left unfolded
	Warnings []error
}

// Partial reports whether the tree was returned despite warnings
func (r *Result) Partial() bool {
	return len(r.Warnings) > 0
}

// New creates a Normalizer
func New(opts ...Option) *Normalizer {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = DefaultLogger()
	}
	if cfg.catalogue == nil {
		cfg.catalogue = catalogue.Default()
	}
	if cfg.parser == nil {
		cfg.parser = rawtree.NewShellParser()
	}
	return &Normalizer{cfg: cfg}
}

// Normalize builds the normalized tree of cmd
func (n *Normalizer) Normalize(cmd string) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, recovered(r)
		}
		if err != nil {
			var ne *errors.NormalizeError
			if stderrors.As(err, &ne) {
				ne.WithContext(errors.CtxCommand, cmd)
			}
			n.cfg.logger.Warn("skipping command", "reason", errors.TypeOf(err), "command", cmd, "error", err.Error())
		}
	}()

	text := value.Prepass(cmd)
	if text == "" {
		return nil, errors.NewParseFailure("empty command", rawtree.ErrEmpty)
	}

	roots, err := n.cfg.parser.Parse(text)
	if err != nil {
		return nil, errors.NewParseFailure("cannot parse command", err)
	}
	if len(roots) == 0 {
		return nil, errors.NewParseFailure("parser returned no command", rawtree.ErrEmpty)
	}
	if len(roots) > 1 {
		n.cfg.logger.Warn("multiple top-level commands; normalizing only the first", "roots", len(roots), "command", text)
	}

	b := builder.New(text, builder.Config{
		Catalogue: n.cfg.catalogue,
		Values: value.Options{
			FoldDigits:    n.cfg.foldDigits,
			RecoverQuotes: n.cfg.recoverQuotes,
		},
		MaxDepth: n.cfg.maxDepth,
		Logger:   n.cfg.logger,
	})
	root, err := b.Build(roots[0])
	if err != nil {
		var ne *errors.NormalizeError
		if !stderrors.As(err, &ne) {
			err = errors.Wrap(errors.ErrStructuralInconsistency, "tree builder failed", err)
		}
		return nil, err
	}

	n.cfg.logger.Debug("normalized command", "command", text, "heads", tree.HeadCommands(root))
	return &Result{Command: text, Tree: root, Warnings: b.Warnings()}, nil
}

// recovered turns a panic inside the pipeline into a tagged failure
func recovered(r interface{}) *errors.NormalizeError {
	var v *invariant.Violation
	if e, ok := r.(error); ok {
		if stderrors.As(e, &v) {
			return errors.Wrap(errors.ErrStructuralInconsistency, "internal contract violated", v)
		}
		return errors.Wrap(errors.ErrStructuralInconsistency, "normalizer panicked", e)
	}
	return errors.Newf(errors.ErrStructuralInconsistency, "normalizer panicked: %v", r)
}

// Outcome is the result of one command in a batch
type Outcome struct {
	Index   int
	Command string
	Result  *Result
	Err     error
}

// Stats counts batch outcomes
type Stats struct {
	Total      int
	Normalized int
	Partial    int
	// Skipped counts failures by error type
	Skipped map[string]int
}

func (s Stats) String() string {
	skipped := 0
	for _, c := range s.Skipped {
		skipped += c
	}
	return fmt.Sprintf("%d commands: %d normalized (%d partial), %d skipped", s.Total, s.Normalized, s.Partial, skipped)
}

// Batch normalizes cmds in order and hands every outcome to fn. A failing
// command never stops the batch; an error from fn or a cancelled ctx does.
func (n *Normalizer) Batch(ctx context.Context, cmds []string, fn func(Outcome) error) (Stats, error) {
	stats := Stats{Skipped: make(map[string]int)}
	for i, cmd := range cmds {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		res, err := n.Normalize(cmd)

		stats.Total++
		switch {
		case err != nil:
			stats.Skipped[errors.TypeOf(err)]++
		case res.Partial():
			stats.Normalized++
			stats.Partial++
		default:
			stats.Normalized++
		}

		if fn == nil {
			continue
		}
		if err := fn(Outcome{Index: i, Command: cmd, Result: res, Err: err}); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

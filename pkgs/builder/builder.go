// Package builder translates a raw shell syntax tree into a normalized
// command tree by recursive descent.
package builder

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/aledsdavies/cmdtree/core/invariant"
	"github.com/aledsdavies/cmdtree/pkgs/errors"
	"github.com/aledsdavies/cmdtree/pkgs/grammar"
	"github.com/aledsdavies/cmdtree/pkgs/rawtree"
	"github.com/aledsdavies/cmdtree/pkgs/tree"
	"github.com/aledsdavies/cmdtree/pkgs/value"
)

// DefaultMaxDepth bounds raw-tree recursion
const DefaultMaxDepth = 64

// Catalogue classifies tokens
type Catalogue interface {
	IsHeadCommand(token string) bool
	IsOption(token string) bool
}

// Suggester is optionally implemented by a Catalogue to name the closest
// known utility for an unrecognised one.
type Suggester interface {
	Suggest(token string) string
}

// Config configures a Builder
type Config struct {
	Catalogue Catalogue
	Values    value.Options
	MaxDepth  int          // 0 means DefaultMaxDepth
	Logger    *slog.Logger // nil discards diagnostics
}

// Builder normalizes one command. It is not safe for concurrent use;
// create one per command.
type Builder struct {
	cfg      Config
	source   string
	depth    int
	warnings []error
}

// unsupportedKinds are raw kinds outside the command grammar, even when
// they carry parts.
var unsupportedKinds = map[rawtree.Kind]bool{
	rawtree.KindRedirect:    true,
	rawtree.KindHeredoc:     true,
	rawtree.KindParameter:   true,
	rawtree.KindTilde:       true,
	rawtree.KindOperator:    true,
	rawtree.KindPipe:        true,
	rawtree.KindAssignment:  true,
	rawtree.KindCompound:    true,
	rawtree.KindArithmetic:  true,
	rawtree.KindFor:         true,
	rawtree.KindIf:          true,
	rawtree.KindWhile:       true,
	rawtree.KindUntil:       true,
	rawtree.KindCase:        true,
	rawtree.KindFunction:    true,
	rawtree.KindTest:        true,
	rawtree.KindDeclaration: true,
	rawtree.KindNegation:    true,
}

// New returns a Builder for the command text source. Raw node spans index
// into source.
func New(source string, cfg Config) *Builder {
	invariant.NotNil(cfg.Catalogue, "catalogue")
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Builder{cfg: cfg, source: source}
}

// Build normalizes one raw top-level node under a fresh root. The returned
// error is nil when only recoverable problems occurred; those are listed
// by Warnings.
func (b *Builder) Build(raw *rawtree.Node) (*tree.Node, error) {
	invariant.NotNil(raw, "raw node")
	root := tree.NewRoot()
	if err := b.normalize(raw, root, grammar.Argument); err != nil {
		return nil, err
	}
	if err := grammar.CheckComplete(root.Kind, root.Len()); err != nil {
		return nil, errors.Wrap(errors.ErrStructuralInconsistency, "command produced no tree", err)
	}
	return root, nil
}

// Warnings returns the recoverable problems met by Build
func (b *Builder) Warnings() []error {
	return b.warnings
}

func (b *Builder) warn(err error) {
	b.warnings = append(b.warnings, err)
	b.cfg.Logger.Warn("recoverable normalization problem", "error", err.Error(), "command", b.source)
}

// normalize attaches the translation of n to current. kind is the node
// kind a plain word becomes.
func (b *Builder) normalize(n *rawtree.Node, current *tree.Node, kind grammar.Kind) error {
	b.depth++
	defer func() { b.depth-- }()
	if b.depth > b.cfg.MaxDepth {
		return errors.NewUnsupported("nesting-depth").
			WithContext("max_depth", b.cfg.MaxDepth)
	}

	switch n.Kind {
	case rawtree.KindWord:
		_, err := b.word(n, current, kind)
		return err
	case rawtree.KindPipeline:
		return b.pipeline(n, current)
	case rawtree.KindList:
		return b.list(n, current, kind)
	case rawtree.KindCommandSubstitution, rawtree.KindProcessSubstitution:
		return b.parts(n, current, kind)
	case rawtree.KindCommand:
		return b.command(n, current)
	}

	if unsupportedKinds[n.Kind] || len(n.Parts) == 0 {
		return errors.NewUnsupported(string(n.Kind)).WithContext(errors.CtxToken, n.Word)
	}
	return b.parts(n, current, kind)
}

// parts flattens a wrapper node into current
func (b *Builder) parts(n *rawtree.Node, current *tree.Node, kind grammar.Kind) error {
	for _, p := range n.Parts {
		if err := b.normalize(p, current, kind); err != nil {
			return err
		}
	}
	return nil
}

// word translates a word into a leaf of the given kind, or into a
// substitution node. It returns the node it attached, if exactly one.
func (b *Builder) word(n *rawtree.Node, current *tree.Node, kind grammar.Kind) (*tree.Node, error) {
	if len(n.Parts) == 0 {
		return b.leaf(n, current, kind)
	}

	lead := n.Parts[0]
	switch lead.Kind {
	case rawtree.KindProcessSubstitution:
		dir, err := substitutionDirection(lead)
		if err != nil {
			return nil, err
		}
		return b.substitution(n, current, tree.New(grammar.ProcessSubstitution, dir), kind)
	case rawtree.KindCommandSubstitution:
		return b.substitution(n, current, tree.New(grammar.CommandSubstitution, ""), kind)
	case rawtree.KindParameter, rawtree.KindTilde:
		// not expanded: the surface text is the literal
		return b.leaf(n, current, kind)
	}
	return nil, b.parts(n, current, kind)
}

func substitutionDirection(n *rawtree.Node) (string, error) {
	switch {
	case strings.HasPrefix(n.Word, ">"):
		return ">", nil
	case strings.HasPrefix(n.Word, "<"):
		return "<", nil
	case strings.Contains(n.Word, ">"):
		return ">", nil
	case strings.Contains(n.Word, "<"):
		return "<", nil
	}
	return "", errors.NewStructural("process substitution %q has no direction", n.Word)
}

func (b *Builder) substitution(n *rawtree.Node, current, sub *tree.Node, kind grammar.Kind) (*tree.Node, error) {
	if err := b.attach(current, sub, n); err != nil {
		return nil, err
	}
	if err := b.parts(n, sub, kind); err != nil {
		return nil, err
	}
	if err := grammar.CheckComplete(sub.Kind, sub.Len()); err != nil {
		return nil, errors.Wrap(errors.ErrStructuralInconsistency, fmt.Sprintf("substitution %q", n.Word), err)
	}
	return sub, nil
}

func (b *Builder) leaf(n *rawtree.Node, current *tree.Node, kind grammar.Kind) (*tree.Node, error) {
	exempt := func(s string) bool {
		return kind == grammar.HeadCommand || b.cfg.Catalogue.IsOption(s)
	}
	node := tree.New(kind, value.Leaf(b.source, n, b.cfg.Values, exempt))
	if err := b.attach(current, node, n); err != nil {
		return nil, err
	}
	return node, nil
}

// attach adds child under parent. A word that lands where a command must
// start is reported as an unrecognised head command.
func (b *Builder) attach(parent, child *tree.Node, raw *rawtree.Node) error {
	err := parent.Attach(child)
	if err == nil {
		return nil
	}
	if child.Kind == grammar.Argument && commandScope(parent.Kind) {
		se := errors.Wrap(errors.ErrStructuralInconsistency,
			fmt.Sprintf("unrecognized head command %q", raw.Word), err).
			WithContext(errors.CtxToken, raw.Word)
		if s, ok := b.cfg.Catalogue.(Suggester); ok {
			if hint := s.Suggest(raw.Word); hint != "" {
				se.WithContext(errors.CtxSuggestion, hint)
			}
		}
		return se
	}
	return err
}

// commandScope reports kinds whose children must be whole commands
func commandScope(k grammar.Kind) bool {
	switch k {
	case grammar.Root, grammar.Pipeline, grammar.CommandSubstitution, grammar.ProcessSubstitution:
		return true
	}
	return false
}

func (b *Builder) pipeline(n *rawtree.Node, current *tree.Node) error {
	if len(n.Parts)%2 == 0 {
		return errors.NewStructural("pipeline must have an odd number of parts, has %d", len(n.Parts))
	}

	pipe := tree.New(grammar.Pipeline, "")
	if err := current.Attach(pipe); err != nil {
		return err
	}
	for i, p := range n.Parts {
		if i%2 == 1 {
			if p.Kind != rawtree.KindPipe {
				return errors.NewStructural("expected a pipe separator, got %s", p.Kind)
			}
			if p.Word != "|" {
				return errors.NewUnsupported("pipe " + p.Word)
			}
			continue
		}
		if p.Kind != rawtree.KindCommand {
			return errors.NewStructural("unrecognized pipeline element %s", p.Kind)
		}
		if err := b.normalize(p, pipe, grammar.Argument); err != nil {
			return err
		}
	}
	if err := grammar.CheckComplete(pipe.Kind, pipe.Len()); err != nil {
		return errors.Wrap(errors.ErrStructuralInconsistency, "pipeline", err)
	}
	return nil
}

// list passes a single-element list through. Longer lists are several
// commands: a bare ';' separator is a terminator without a sub-utility to
// end, anything else is an unsupported compound list.
func (b *Builder) list(n *rawtree.Node, current *tree.Node, kind grammar.Kind) error {
	if len(n.Parts) == 1 {
		return b.normalize(n.Parts[0], current, kind)
	}
	var ops []string
	for _, p := range n.Parts {
		if p.Kind == rawtree.KindOperator {
			ops = append(ops, p.Word)
		}
	}
	for _, op := range ops {
		if op == ";" {
			return errors.NewStructural("bare command separator ';' outside a sub-utility terminator context").
				WithContext(errors.CtxToken, op)
		}
	}
	return errors.NewUnsupported("list").
		WithContext(errors.CtxToken, strings.Join(ops, " "))
}

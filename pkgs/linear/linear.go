// Package linear converts command trees to and from their linearized
// symbol sequence, the alphabet of the translation model.
//
// A tree linearizes depth-first in pre-order: each node emits its symbol,
// then its children, then one EndMarker. The sequence therefore starts
// with the root symbol and ends with the root's EndMarker.
package linear

import (
	"strings"

	"github.com/aledsdavies/cmdtree/pkgs/errors"
	"github.com/aledsdavies/cmdtree/pkgs/grammar"
	"github.com/aledsdavies/cmdtree/pkgs/tree"
)

const (
	// EndMarker closes the children of the most recent open node
	EndMarker = "<NO_EXPAND>"
	// Padding fills fixed-length sequences after the root has closed
	Padding = "<PAD>"
)

// Linearize returns the symbol sequence of root
func Linearize(root *tree.Node) []string {
	var out []string
	var walk func(n *tree.Node)
	walk = func(n *tree.Node) {
		out = append(out, n.Symbol())
		for _, c := range n.Children() {
			walk(c)
		}
		out = append(out, EndMarker)
	}
	walk(root)
	return out
}

// Pad extends symbols with Padding up to length n. Longer sequences are
// returned unchanged.
func Pad(symbols []string, n int) []string {
	out := make([]string, len(symbols), max(n, len(symbols)))
	copy(out, symbols)
	for len(out) < n {
		out = append(out, Padding)
	}
	return out
}

// ParseSymbol splits a KIND_value symbol. The value may itself contain
// underscores.
func ParseSymbol(symbol string) (grammar.Kind, string, bool) {
	name, value, ok := strings.Cut(symbol, "_")
	if !ok {
		return 0, "", false
	}
	kind, ok := grammar.ParseKind(name)
	if !ok || name != strings.ToUpper(name) {
		return 0, "", false
	}
	return kind, value, true
}

// Delinearize rebuilds the tree of a sequence produced by Linearize,
// optionally followed by Padding. Nodes are attached without grammar
// checks: model output may be ungrammatical and still render loosely.
func Delinearize(symbols []string) (*tree.Node, error) {
	if len(symbols) == 0 {
		return nil, errors.NewMalformedSequence(0, "empty sequence")
	}
	kind, value, ok := ParseSymbol(symbols[0])
	if !ok || kind != grammar.Root {
		return nil, errors.NewMalformedSequence(0, "sequence must start with a root symbol, got %q", symbols[0])
	}

	root := tree.New(grammar.Root, value)
	open := []*tree.Node{root}
	for i := 1; i < len(symbols); i++ {
		s := symbols[i]
		switch {
		case len(open) == 0:
			if s != Padding {
				return nil, errors.NewMalformedSequence(i, "symbol %q after the root closed", s)
			}
		case s == Padding:
			return nil, errors.NewMalformedSequence(i, "padding inside an open sequence")
		case s == EndMarker:
			open = open[:len(open)-1]
		default:
			n, err := node(i, s)
			if err != nil {
				return nil, err
			}
			open[len(open)-1].Append(n)
			open = append(open, n)
		}
	}
	if len(open) > 0 {
		return nil, errors.NewMalformedSequence(len(symbols), "sequence ends with %d unclosed nodes", len(open))
	}
	return root, nil
}

func node(i int, symbol string) (*tree.Node, error) {
	kind, value, ok := ParseSymbol(symbol)
	if !ok {
		return nil, errors.NewMalformedSequence(i, "unknown symbol %q", symbol).
			WithContext(errors.CtxToken, symbol)
	}
	switch kind {
	case grammar.Root:
		return nil, errors.NewMalformedSequence(i, "root symbol below the root")
	case grammar.ProcessSubstitution:
		if value != "<" && value != ">" {
			return nil, errors.NewMalformedSequence(i, "process substitution direction must be '<' or '>', got %q", value)
		}
	}
	return tree.New(kind, value), nil
}

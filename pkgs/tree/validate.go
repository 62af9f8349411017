package tree

import (
	"fmt"
	"strings"

	"github.com/aledsdavies/cmdtree/pkgs/errors"
	"github.com/aledsdavies/cmdtree/pkgs/grammar"
)

// Validate checks a finished tree against the full grammar: allowed child
// kinds per position, exact arities, and single ownership of every node.
func Validate(root *Node) error {
	seen := make(map[*Node]bool)
	var firstErr error
	Walk(root, func(n *Node, _ int) bool {
		if firstErr != nil {
			return false
		}
		if seen[n] {
			firstErr = errors.Newf(errors.ErrGrammarViolation, "node %s has more than one owner", n.Symbol())
			return false
		}
		seen[n] = true

		for i, c := range n.children {
			if err := grammar.CheckAttach(n.Kind, i, c.Kind); err != nil {
				firstErr = errors.Wrap(errors.ErrGrammarViolation, "invalid child of "+n.Symbol(), err)
				return false
			}
		}
		if err := grammar.CheckComplete(n.Kind, len(n.children)); err != nil {
			firstErr = errors.Wrap(errors.ErrGrammarViolation, "incomplete "+n.Symbol(), err)
			return false
		}
		return true
	})
	return firstErr
}

// Dump pretty-prints the tree one node per line as KIND(value), indented
// four spaces per level.
func Dump(root *Node) string {
	var b strings.Builder
	Walk(root, func(n *Node, depth int) bool {
		fmt.Fprintf(&b, "%s%s(%s)\n", strings.Repeat("    ", depth), strings.ToUpper(n.Kind.String()), n.Value)
		return true
	})
	return b.String()
}

// Equal reports whether two trees have the same shape, kinds and values
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind || a.Value != b.Value || len(a.children) != len(b.children) {
		return false
	}
	for i := range a.children {
		if !Equal(a.children[i], b.children[i]) {
			return false
		}
	}
	return true
}

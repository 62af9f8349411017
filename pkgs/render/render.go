// Package render turns a command tree back into a command string.
package render

import (
	"fmt"
	"strings"

	"github.com/aledsdavies/cmdtree/pkgs/errors"
	"github.com/aledsdavies/cmdtree/pkgs/grammar"
	"github.com/aledsdavies/cmdtree/pkgs/tree"
)

// Mode selects how arity violations are handled
type Mode int

const (
	// Strict fails on any node that breaks its arity contract
	Strict Mode = iota
	// Loose renders whatever is there, for decoded model output
	Loose
)

func (m Mode) String() string {
	if m == Loose {
		return "loose"
	}
	return "strict"
}

// Render returns the command string of the tree rooted at n
func Render(n *tree.Node, mode Mode) (string, error) {
	r := renderer{loose: mode == Loose}
	return r.node(n)
}

type renderer struct {
	loose bool
}

func (r renderer) fail(n *tree.Node, format string, args ...interface{}) error {
	return errors.Newf(errors.ErrRender, "%s: %s", n.Symbol(), fmt.Sprintf(format, args...)).
		WithContext(errors.CtxToken, n.Value)
}

// expect enforces a child-count contract in strict mode
func (r renderer) expect(n *tree.Node, ok bool, want string) error {
	if ok || r.loose {
		return nil
	}
	return r.fail(n, "expected %s children, has %d", want, n.Len())
}

func (r renderer) children(n *tree.Node) ([]string, error) {
	out := make([]string, 0, n.Len())
	for _, c := range n.Children() {
		s, err := r.node(c)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// join space-separates the non-empty parts
func join(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

func (r renderer) node(n *tree.Node) (string, error) {
	switch n.Kind {
	case grammar.Root:
		return r.root(n)
	case grammar.Pipeline:
		return r.pipeline(n)
	case grammar.CommandSubstitution:
		return r.substitution(n, "$")
	case grammar.ProcessSubstitution:
		if n.Value != "<" && n.Value != ">" && !r.loose {
			return "", r.fail(n, "direction must be '<' or '>'")
		}
		return r.substitution(n, n.Value)
	case grammar.HeadCommand:
		return r.prefix(n)
	case grammar.Flag:
		args := 0
		for _, c := range n.Children() {
			if c.Kind == grammar.Argument {
				args++
			}
		}
		if err := r.expect(n, args <= 1, "at most one argument among"); err != nil {
			return "", err
		}
		return r.prefix(n)
	case grammar.BinaryLogicOp:
		return r.binary(n)
	case grammar.UnaryLogicOp:
		return r.unary(n)
	case grammar.Argument:
		if err := r.expect(n, n.Len() == 0, "no"); err != nil {
			return "", err
		}
		if !r.loose {
			return n.Value, nil
		}
		return r.prefix(n)
	}
	return "", r.fail(n, "unknown node kind")
}

func (r renderer) root(n *tree.Node) (string, error) {
	if err := r.expect(n, n.Len() == 1, "exactly 1"); err != nil {
		return "", err
	}
	parts, err := r.children(n)
	if err != nil {
		return "", err
	}
	return join(parts...), nil
}

func (r renderer) pipeline(n *tree.Node) (string, error) {
	if err := r.expect(n, n.Len() > 1, "more than 1"); err != nil {
		return "", err
	}
	parts, err := r.children(n)
	if err != nil {
		return "", err
	}
	switch len(parts) {
	case 0:
		return "|", nil
	case 1:
		// a one-branch pipeline is an atomic command
		return parts[0], nil
	}
	return strings.Join(parts, " | "), nil
}

func (r renderer) substitution(n *tree.Node, open string) (string, error) {
	if err := r.expect(n, n.Len() == 1, "exactly 1"); err != nil {
		return "", err
	}
	if n.Len() == 0 {
		return open + "()", nil
	}
	inner, err := r.node(n.Child(0))
	if err != nil {
		return "", err
	}
	return open + "(" + inner + ")", nil
}

// prefix renders the node's value followed by its children
func (r renderer) prefix(n *tree.Node) (string, error) {
	parts, err := r.children(n)
	if err != nil {
		return "", err
	}
	return join(append([]string{n.Value}, parts...)...), nil
}

func (r renderer) binary(n *tree.Node) (string, error) {
	if err := r.expect(n, n.Len() == 2, "exactly 2"); err != nil {
		return "", err
	}
	parts, err := r.children(n)
	if err != nil {
		return "", err
	}
	if len(parts) < 2 {
		return join(parts...), nil
	}
	return join(parts[0], n.Value, join(parts[1:]...)), nil
}

func (r renderer) unary(n *tree.Node) (string, error) {
	if err := r.expect(n, n.Len() == 1, "exactly 1"); err != nil {
		return "", err
	}
	if n.Len() == 0 {
		return n.Value, nil
	}
	operand, err := r.node(n.Child(0))
	if err != nil {
		return "", err
	}
	return join(n.Value, operand), nil
}

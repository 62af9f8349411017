// Package tree is the normalized command-tree node model.
//
// A node stores only its kind, its value and its ordered children. Owners
// and siblings are derived by walking from a known ancestor, so the logic
// operator rewrite can never leave a stale back-reference behind.
package tree

import (
	"strings"

	"github.com/aledsdavies/cmdtree/core/invariant"
	"github.com/aledsdavies/cmdtree/pkgs/errors"
	"github.com/aledsdavies/cmdtree/pkgs/grammar"
)

// Node is one element of a command tree. Kind and Value never change after
// creation; children change only while the builder owns the tree.
type Node struct {
	Kind  grammar.Kind
	Value string

	children []*Node
}

// OptionClassifier decides whether a token is an option string
type OptionClassifier interface {
	IsOption(token string) bool
}

// New creates a detached node. It always succeeds: arity is only checked
// when children are attached.
func New(kind grammar.Kind, value string) *Node {
	invariant.Precondition(kind.Valid(), "unknown node kind %d", uint8(kind))
	return &Node{Kind: kind, Value: value}
}

// NewRoot creates an empty tree root
func NewRoot() *Node {
	return New(grammar.Root, "")
}

// Symbol is the linearization alphabet element KIND_value
func (n *Node) Symbol() string {
	return strings.ToUpper(n.Kind.String()) + "_" + n.Value
}

// Len returns the number of children
func (n *Node) Len() int {
	return len(n.children)
}

// Child returns the i-th child, or nil when out of range
func (n *Node) Child(i int) *Node {
	if i < 0 || i >= len(n.children) {
		return nil
	}
	return n.children[i]
}

// Children returns a copy of the ordered child list
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// RightChild returns the last child, or nil
func (n *Node) RightChild() *Node {
	return n.Child(len(n.children) - 1)
}

// SecondRightChild returns the second-to-last child, or nil
func (n *Node) SecondRightChild() *Node {
	return n.Child(len(n.children) - 2)
}

// Attach appends child at the tail after checking it against the grammar
// table. A violation leaves n unchanged.
func (n *Node) Attach(child *Node) error {
	invariant.NotNil(child, "child")
	invariant.Precondition(child != n, "%s node cannot own itself", n.Kind)

	if err := grammar.CheckAttach(n.Kind, len(n.children), child.Kind); err != nil {
		return errors.Wrap(errors.ErrGrammarViolation,
			"cannot attach "+child.Symbol()+" to "+n.Symbol(), err).
			WithContext(errors.CtxToken, child.Value)
	}
	n.children = append(n.children, child)
	return nil
}

// Append attaches child without consulting the grammar table. Decoded
// model output may be ungrammatical and is still rendered loosely.
func (n *Node) Append(child *Node) {
	invariant.NotNil(child, "child")
	n.children = append(n.children, child)
}

// IndexOf returns the position of child by identity, or -1
func (n *Node) IndexOf(child *Node) int {
	for i, c := range n.children {
		if c == child {
			return i
		}
	}
	return -1
}

// DetachAt removes and returns the i-th child
func (n *Node) DetachAt(i int) *Node {
	invariant.Precondition(i >= 0 && i < len(n.children), "detach index %d out of range [0, %d)", i, len(n.children))
	child := n.children[i]
	n.children = append(n.children[:i:i], n.children[i+1:]...)
	return child
}

// Detach removes child by identity and reports whether it was present
func (n *Node) Detach(child *Node) bool {
	i := n.IndexOf(child)
	if i < 0 {
		return false
	}
	n.DetachAt(i)
	return true
}

// IsOption reports whether the node's value is an option string
func (n *Node) IsOption(c OptionClassifier) bool {
	return c.IsOption(n.Value)
}

// Owner finds the node directly owning target below root, together with
// target's index. It returns nil, -1 when target is root or absent.
func Owner(root, target *Node) (*Node, int) {
	path := Path(root, target)
	if len(path) < 2 {
		return nil, -1
	}
	owner := path[len(path)-2]
	return owner, owner.IndexOf(target)
}

// Path returns the chain of nodes from root down to target inclusive, or
// nil when target is not in the tree.
func Path(root, target *Node) []*Node {
	if root == target {
		return []*Node{root}
	}
	for _, c := range root.children {
		if p := Path(c, target); p != nil {
			return append([]*Node{root}, p...)
		}
	}
	return nil
}

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the node's children.
func Walk(n *Node, fn func(n *Node, depth int) bool) {
	walk(n, 0, fn)
}

func walk(n *Node, depth int, fn func(*Node, int) bool) {
	if !fn(n, depth) {
		return
	}
	for _, c := range n.children {
		walk(c, depth+1, fn)
	}
}

// HeadCommands lists the head-command names of the tree in source order
func HeadCommands(root *Node) []string {
	var names []string
	Walk(root, func(n *Node, _ int) bool {
		if n.Kind == grammar.HeadCommand {
			names = append(names, n.Value)
		}
		return true
	})
	return names
}

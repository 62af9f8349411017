// Package rawtree is the generic shell syntax tree the normalizer consumes.
//
// The shape follows the classic bash AST: words carry their quote-removed
// surface text plus only their expansion parts, commands and pipelines
// carry their token sequence as parts, and every node records the byte
// span it covers in the command string.
package rawtree

import (
	"fmt"
	"strings"
)

// Kind tags a raw node
type Kind string

const (
	KindWord                Kind = "word"
	KindCommand             Kind = "command"
	KindPipeline            Kind = "pipeline"
	KindPipe                Kind = "pipe"
	KindList                Kind = "list"
	KindOperator            Kind = "operator"
	KindCommandSubstitution Kind = "commandsubstitution"
	KindProcessSubstitution Kind = "processsubstitution"
	KindParameter           Kind = "parameter"
	KindTilde               Kind = "tilde"
	KindAssignment          Kind = "assignment"
	KindRedirect            Kind = "redirect"
	KindHeredoc             Kind = "heredoc"
	KindCompound            Kind = "compound"
	KindArithmetic          Kind = "arithmetic"
	KindFor                 Kind = "for"
	KindIf                  Kind = "if"
	KindWhile               Kind = "while"
	KindUntil               Kind = "until"
	KindCase                Kind = "case"
	KindFunction            Kind = "function"
	KindTest                Kind = "test"
	KindDeclaration         Kind = "declaration"
	KindNegation            Kind = "negation"
	KindUnknown             Kind = "unknown"
)

// Span is a half-open byte range [Start, End) into the command string
type Span struct {
	Start int
	End   int
}

// Len returns the number of bytes covered
func (s Span) Len() int {
	return s.End - s.Start
}

// Node is one element of the raw tree. It is read-only to consumers.
type Node struct {
	Kind  Kind
	Word  string // quote-removed surface text; set for words, operators and pipes
	Parts []*Node
	Pos   Span
}

// Parser turns command text into raw top-level nodes
type Parser interface {
	Parse(cmd string) ([]*Node, error)
}

// ParserFunc adapts a function to Parser
type ParserFunc func(cmd string) ([]*Node, error)

// Parse calls f(cmd)
func (f ParserFunc) Parse(cmd string) ([]*Node, error) {
	return f(cmd)
}

// String renders a compact one-line description, e.g.
// command(word("find") word("."))
func (n *Node) String() string {
	var b strings.Builder
	n.format(&b)
	return b.String()
}

func (n *Node) format(b *strings.Builder) {
	b.WriteString(string(n.Kind))
	if n.Word != "" && len(n.Parts) == 0 {
		fmt.Fprintf(b, "(%q)", n.Word)
		return
	}
	b.WriteByte('(')
	if n.Word != "" {
		fmt.Fprintf(b, "%q", n.Word)
		if len(n.Parts) > 0 {
			b.WriteString(": ")
		}
	}
	for i, p := range n.Parts {
		if i > 0 {
			b.WriteByte(' ')
		}
		p.format(b)
	}
	b.WriteByte(')')
}

// Word builds a literal word node; handy for hand-built trees in tests
func Word(word string, start, end int, parts ...*Node) *Node {
	return &Node{Kind: KindWord, Word: word, Pos: Span{start, end}, Parts: parts}
}

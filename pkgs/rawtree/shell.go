package rawtree

import (
	stderrors "errors"
	"sort"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// ErrEmpty is returned for command text without any statement
var ErrEmpty = stderrors.New("empty command")

// ShellParser parses bash with mvdan.cc/sh and reshapes the result into a
// raw tree. It holds no state between calls.
type ShellParser struct {
	variant syntax.LangVariant
}

// NewShellParser returns a bash-dialect parser
func NewShellParser() *ShellParser {
	return &ShellParser{variant: syntax.LangBash}
}

// Parse implements Parser. Statements chained with ';', '&', '&&' or '||'
// form one list root; a statement without a trailing separator closes the
// current root.
func (p *ShellParser) Parse(cmd string) ([]*Node, error) {
	f, err := syntax.NewParser(syntax.Variant(p.variant)).Parse(strings.NewReader(cmd), "")
	if err != nil {
		return nil, err
	}
	if len(f.Stmts) == 0 {
		return nil, ErrEmpty
	}

	c := &converter{src: cmd}
	var roots []*Node
	var group []*syntax.Stmt
	for i, s := range f.Stmts {
		group = append(group, s)
		if (s.Semicolon.IsValid() || s.Background) && i < len(f.Stmts)-1 {
			continue
		}
		roots = append(roots, c.sequence(group))
		group = nil
	}
	return roots, nil
}

type converter struct {
	src string
}

func (c *converter) span(n syntax.Node) Span {
	return Span{Start: int(n.Pos().Offset()), End: int(n.End().Offset())}
}

func (c *converter) text(n syntax.Node) string {
	s := c.span(n)
	if s.Start < 0 || s.End > len(c.src) || s.Start > s.End {
		return ""
	}
	return c.src[s.Start:s.End]
}

// sequence converts statements separated by ';' or '&'. A lone statement
// is returned as is; a trailing ';' is a plain terminator and dropped.
func (c *converter) sequence(stmts []*syntax.Stmt) *Node {
	last := stmts[len(stmts)-1]
	if len(stmts) == 1 && !last.Background {
		return c.stmt(last)
	}

	list := &Node{Kind: KindList, Pos: Span{Start: int(stmts[0].Pos().Offset()), End: int(last.End().Offset())}}
	for i, s := range stmts {
		list.Parts = append(list.Parts, c.stmt(s))
		op := ";"
		switch {
		case s.Background:
			op = "&"
		case !s.Semicolon.IsValid() || i == len(stmts)-1:
			continue
		}
		off := int(s.End().Offset()) - 1
		if s.Semicolon.IsValid() {
			off = int(s.Semicolon.Offset())
		}
		list.Parts = append(list.Parts, &Node{Kind: KindOperator, Word: op, Pos: Span{off, off + len(op)}})
	}
	return list
}

func (c *converter) stmt(s *syntax.Stmt) *Node {
	if s.Negated {
		return &Node{Kind: KindNegation, Word: "!", Pos: c.span(s), Parts: []*Node{c.command(s)}}
	}
	return c.command(s)
}

func (c *converter) command(s *syntax.Stmt) *Node {
	var n *Node
	switch cmd := s.Cmd.(type) {
	case *syntax.CallExpr:
		n = &Node{Kind: KindCommand, Pos: c.span(s)}
		for _, a := range cmd.Assigns {
			n.Parts = append(n.Parts, &Node{Kind: KindAssignment, Word: c.text(a), Pos: c.span(a)})
		}
		for _, w := range cmd.Args {
			n.Parts = append(n.Parts, c.word(w))
		}
		for _, r := range s.Redirs {
			n.Parts = append(n.Parts, c.redirect(r))
		}
		// redirections may appear anywhere among the words
		sort.SliceStable(n.Parts, func(i, j int) bool { return n.Parts[i].Pos.Start < n.Parts[j].Pos.Start })
		return n
	case *syntax.BinaryCmd:
		switch cmd.Op {
		case syntax.Pipe, syntax.PipeAll:
			n = &Node{Kind: KindPipeline, Pos: c.span(s)}
			c.flatten(n, s, KindPipe)
		default:
			n = &Node{Kind: KindList, Pos: c.span(s)}
			c.flatten(n, s, KindOperator)
		}
	case *syntax.Subshell, *syntax.Block:
		n = &Node{Kind: KindCompound, Word: c.text(s), Pos: c.span(s)}
	case *syntax.IfClause:
		n = &Node{Kind: KindIf, Word: c.text(s), Pos: c.span(s)}
	case *syntax.WhileClause:
		kind := KindWhile
		if cmd.Until {
			kind = KindUntil
		}
		n = &Node{Kind: kind, Word: c.text(s), Pos: c.span(s)}
	case *syntax.ForClause:
		n = &Node{Kind: KindFor, Word: c.text(s), Pos: c.span(s)}
	case *syntax.CaseClause:
		n = &Node{Kind: KindCase, Word: c.text(s), Pos: c.span(s)}
	case *syntax.FuncDecl:
		n = &Node{Kind: KindFunction, Word: c.text(s), Pos: c.span(s)}
	case *syntax.ArithmCmd, *syntax.LetClause:
		n = &Node{Kind: KindArithmetic, Word: c.text(s), Pos: c.span(s)}
	case *syntax.TestClause:
		n = &Node{Kind: KindTest, Word: c.text(s), Pos: c.span(s)}
	case *syntax.DeclClause:
		n = &Node{Kind: KindDeclaration, Word: c.text(s), Pos: c.span(s)}
	default:
		n = &Node{Kind: KindUnknown, Word: c.text(s), Pos: c.span(s)}
	}

	// redirections on anything but a simple command wrap it
	if len(s.Redirs) > 0 {
		r := c.redirect(s.Redirs[0])
		r.Parts = append(r.Parts, n)
		return r
	}
	return n
}

// flatten walks a chain of binary commands sharing one precedence level
// into dst.Parts, interleaving separator nodes of kind sep.
func (c *converter) flatten(dst *Node, s *syntax.Stmt, sep Kind) {
	bin, ok := s.Cmd.(*syntax.BinaryCmd)
	if !ok || s.Negated || len(s.Redirs) > 0 || separatorKind(bin.Op) != sep {
		dst.Parts = append(dst.Parts, c.stmt(s))
		return
	}
	c.flatten(dst, bin.X, sep)
	op := bin.Op.String()
	off := int(bin.OpPos.Offset())
	dst.Parts = append(dst.Parts, &Node{Kind: sep, Word: op, Pos: Span{off, off + len(op)}})
	c.flatten(dst, bin.Y, sep)
}

func separatorKind(op syntax.BinCmdOperator) Kind {
	if op == syntax.Pipe || op == syntax.PipeAll {
		return KindPipe
	}
	return KindOperator
}

func (c *converter) redirect(r *syntax.Redirect) *Node {
	kind := KindRedirect
	if r.Op == syntax.Hdoc || r.Op == syntax.DashHdoc {
		kind = KindHeredoc
	}
	return &Node{Kind: kind, Word: c.text(r), Pos: c.span(r)}
}

// word converts a shell word. Parts keeps only the expansions, with a
// leading tilde reported first.
func (c *converter) word(w *syntax.Word) *Node {
	n := &Node{Kind: KindWord, Word: c.unquote(w.Parts, false), Pos: c.span(w)}
	if len(w.Parts) > 0 {
		if lit, ok := w.Parts[0].(*syntax.Lit); ok && strings.HasPrefix(lit.Value, "~") {
			end := int(lit.Pos().Offset()) + 1
			n.Parts = append(n.Parts, &Node{Kind: KindTilde, Word: "~", Pos: Span{int(lit.Pos().Offset()), end}})
		}
	}
	n.Parts = append(n.Parts, c.expansions(w.Parts)...)
	return n
}

func (c *converter) expansions(parts []syntax.WordPart) []*Node {
	var out []*Node
	for _, part := range parts {
		switch p := part.(type) {
		case *syntax.ParamExp:
			out = append(out, &Node{Kind: KindParameter, Word: c.text(p), Pos: c.span(p)})
		case *syntax.CmdSubst:
			n := &Node{Kind: KindCommandSubstitution, Word: c.text(p), Pos: c.span(p)}
			if len(p.Stmts) > 0 {
				n.Parts = []*Node{c.sequence(p.Stmts)}
			}
			out = append(out, n)
		case *syntax.ProcSubst:
			n := &Node{Kind: KindProcessSubstitution, Word: c.text(p), Pos: c.span(p)}
			if len(p.Stmts) > 0 {
				n.Parts = []*Node{c.sequence(p.Stmts)}
			}
			out = append(out, n)
		case *syntax.ArithmExp:
			out = append(out, &Node{Kind: KindArithmetic, Word: c.text(p), Pos: c.span(p)})
		case *syntax.DblQuoted:
			out = append(out, c.expansions(p.Parts)...)
		}
	}
	return out
}

// unquote produces the quote-removed surface of word parts. Expansions
// keep their source text.
func (c *converter) unquote(parts []syntax.WordPart, inDouble bool) string {
	var b strings.Builder
	for _, part := range parts {
		switch p := part.(type) {
		case *syntax.Lit:
			b.WriteString(unescape(p.Value, inDouble))
		case *syntax.SglQuoted:
			b.WriteString(p.Value)
		case *syntax.DblQuoted:
			b.WriteString(c.unquote(p.Parts, true))
		default:
			b.WriteString(c.text(part))
		}
	}
	return b.String()
}

// unescape drops quoting backslashes. Inside double quotes only \$ \` \"
// and \\ are escapes.
func unescape(s string, inDouble bool) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i == len(s)-1 {
			b.WriteByte(s[i])
			continue
		}
		next := s[i+1]
		if inDouble && !strings.ContainsRune("$`\"\\", rune(next)) {
			b.WriteByte(s[i])
			continue
		}
		b.WriteByte(next)
		i++
	}
	return b.String()
}

package builder

import (
	"github.com/aledsdavies/cmdtree/core/invariant"
	"github.com/aledsdavies/cmdtree/pkgs/errors"
	"github.com/aledsdavies/cmdtree/pkgs/grammar"
	"github.com/aledsdavies/cmdtree/pkgs/rawtree"
	"github.com/aledsdavies/cmdtree/pkgs/tree"
	"github.com/aledsdavies/cmdtree/pkgs/value"
)

const (
	endOfOptionsToken = "--"
	terminatorToken   = ";"
)

// unaryOperators are negations. "!" is only an operator inside find.
var unaryOperators = map[string]bool{
	"!":    true,
	"-not": true,
}

// binaryOperators are conjunctions and disjunctions. The short forms are
// only operators inside find and are rewritten to their long spelling.
var binaryOperators = map[string]bool{
	"-and": true,
	"-or":  true,
	"&&":   true,
	"||":   true,
	"-a":   true,
	"-o":   true,
}

var findOnly = map[string]string{
	"!":  "!",
	"-a": "-and",
	"-o": "-or",
}

const findCommand = "find"

// cursor tracks the attach point of a command as the path from the
// command's scope down to it. Owners along the path are therefore always
// current, even while the operator rewrite moves nodes around.
type cursor struct {
	path []*tree.Node
}

func (c *cursor) point() *tree.Node {
	return c.path[len(c.path)-1]
}

// owner returns the node owning path[i], or nil for the scope itself
func (c *cursor) owner(i int) *tree.Node {
	if i < 1 {
		return nil
	}
	return c.path[i-1]
}

func (c *cursor) descend(n *tree.Node) {
	invariant.Precondition(c.point().IndexOf(n) >= 0, "descend target %s is not a child of %s", n.Symbol(), c.point().Symbol())
	c.path = append(c.path, n)
}

func (c *cursor) ascendTo(i int) {
	c.path = c.path[:i+1]
}

// flagPoint moves to the head command that options attach to: the attach
// point itself, or the owner of a flag attach point.
func (c *cursor) flagPoint() (*tree.Node, error) {
	last := len(c.path) - 1
	p := c.path[last]
	switch p.Kind {
	case grammar.HeadCommand:
		return p, nil
	case grammar.Flag:
		owner := c.owner(last)
		invariant.Invariant(owner != nil && owner.Kind == grammar.HeadCommand, "flag %q is not owned by a head command", p.Value)
		c.ascendTo(last - 1)
		return owner, nil
	}
	return nil, errors.NewStructural("cannot decide where to attach an option below %s", p.Kind)
}

// closeSubUtility ends a sub-utility after its ';' terminator. The nearest
// head command on the path is the sub-utility; when a flag such as -exec
// owns it, the flag's head command resumes, and when a head command owns
// it, that one resumes.
func (c *cursor) closeSubUtility() error {
	for i := len(c.path) - 1; i >= 0; i-- {
		if c.path[i].Kind != grammar.HeadCommand {
			continue
		}
		owner := c.owner(i)
		switch {
		case owner == nil:
		case owner.Kind == grammar.Flag:
			c.ascendTo(i - 2)
			return nil
		case owner.Kind == grammar.HeadCommand:
			c.ascendTo(i - 1)
			return nil
		}
		return errors.NewStructural("terminator ';' ends %q which no option owns; compound commands are not supported", c.path[i].Value).
			WithContext(errors.CtxToken, terminatorToken)
	}
	return errors.NewStructural("terminator ';' outside any command")
}

// commandState is the per-command classification state
type commandState struct {
	cur          cursor
	endOfOptions bool
	endOfCommand bool
	unary        []*tree.Node
	binary       []*tree.Node
}

// command runs the token state machine over one simple command and then
// folds the logic operators it recorded.
func (b *Builder) command(n *rawtree.Node, scope *tree.Node) error {
	st := &commandState{cur: cursor{path: []*tree.Node{scope}}}

	for _, tok := range n.Parts {
		if tok.Kind != rawtree.KindWord {
			return errors.NewUnsupported(string(tok.Kind)).WithContext(errors.CtxToken, tok.Word)
		}
		if st.endOfCommand {
			if err := st.cur.closeSubUtility(); err != nil {
				return err
			}
			st.endOfCommand = false
			st.endOfOptions = false
		}
		if err := b.token(st, tok); err != nil {
			return err
		}
	}

	return b.fold(scope, st.unary, st.binary)
}

func (b *Builder) token(st *commandState, tok *rawtree.Node) error {
	w := tok.Word
	switch {
	case w == endOfOptionsToken && !st.endOfOptions:
		st.endOfOptions = true
		return nil
	case w == terminatorToken:
		st.endOfCommand = true
		return nil
	case st.endOfOptions:
		return b.argument(st, tok)
	case unaryOperators[w]:
		return b.operator(st, tok, grammar.UnaryLogicOp)
	case binaryOperators[w]:
		return b.operator(st, tok, grammar.BinaryLogicOp)
	case b.cfg.Catalogue.IsHeadCommand(w) && !value.Quoted(w, tok.Pos):
		return b.headCommand(st, tok)
	case b.cfg.Catalogue.IsOption(w):
		return b.option(st, tok)
	}
	return b.argument(st, tok)
}

// operator attaches a logic operator to the current head command. Tokens
// that are only operators inside find fall back to plain options
// elsewhere.
func (b *Builder) operator(st *commandState, tok *rawtree.Node, kind grammar.Kind) error {
	head, err := st.cur.flagPoint()
	if err != nil {
		return err
	}
	val := tok.Word
	if long, ok := findOnly[val]; ok {
		if head.Value != findCommand {
			return b.option(st, tok)
		}
		val = long
	}

	op := tree.New(kind, val)
	if err := head.Attach(op); err != nil {
		return err
	}
	if kind == grammar.UnaryLogicOp {
		st.unary = append(st.unary, op)
	} else {
		st.binary = append(st.binary, op)
	}
	return nil
}

// headCommand starts a (sub-)utility at the attach point and descends into
// it.
func (b *Builder) headCommand(st *commandState, tok *rawtree.Node) error {
	node, err := b.word(tok, st.cur.point(), grammar.HeadCommand)
	if err != nil {
		return err
	}
	if node == nil {
		return errors.NewStructural("head command %q produced no node", tok.Word)
	}
	st.cur.descend(node)
	return nil
}

// option attaches a flag to the current head command and makes it the
// attach point. Flags are literal leaves.
func (b *Builder) option(st *commandState, tok *rawtree.Node) error {
	head, err := st.cur.flagPoint()
	if err != nil {
		return err
	}
	flag, err := b.leaf(tok, head, grammar.Flag)
	if err != nil {
		return err
	}
	st.cur.descend(flag)
	return nil
}

// argument attaches a positional token. A flag that already holds an
// argument gives way to its head command.
func (b *Builder) argument(st *commandState, tok *rawtree.Node) error {
	if p := st.cur.point(); p.Kind == grammar.Flag && p.Len() >= 1 {
		st.cur.ascendTo(len(st.cur.path) - 2)
	}
	_, err := b.word(tok, st.cur.point(), grammar.Argument)
	return err
}

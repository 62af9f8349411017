// Package grammar holds the static arity and child-type table of the
// normalized command grammar:
//
//	Command             ::= HeadCommand | Pipeline
//	Pipeline            ::= Command '|' Command
//	HeadCommand         ::= name [Option ...]
//	Option              ::= Flag [Argument] | LogicOp Option
//	Argument            ::= literal | CommandSubstitution | ProcessSubstitution
//	CommandSubstitution ::= $( Command )
//	ProcessSubstitution ::= <( Command ) | >( Command )
package grammar

import (
	"fmt"
	"strings"
)

// Kind is the closed tag set of command-tree nodes.
//
// IMPORTANT: add new kinds at the END of the enum. The names are part of the
// linearized training alphabet.
type Kind uint8

const (
	Root Kind = iota
	Pipeline
	HeadCommand
	Flag
	Argument
	UnaryLogicOp
	BinaryLogicOp
	CommandSubstitution
	ProcessSubstitution

	numKinds
)

var kindNames = [numKinds]string{
	Root:                "root",
	Pipeline:            "pipeline",
	HeadCommand:         "headcommand",
	Flag:                "flag",
	Argument:            "argument",
	UnaryLogicOp:        "unarylogicop",
	BinaryLogicOp:       "binarylogicop",
	CommandSubstitution: "commandsubstitution",
	ProcessSubstitution: "processsubstitution",
}

func (k Kind) String() string {
	if k < numKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Valid reports whether k is one of the declared kinds
func (k Kind) Valid() bool {
	return k < numKinds
}

// ParseKind maps a kind name, in any case, back to its Kind
func ParseKind(name string) (Kind, bool) {
	lower := strings.ToLower(name)
	for k, n := range kindNames {
		if n == lower {
			return Kind(k), true
		}
	}
	return 0, false
}

// Kinds returns every declared kind in tag order
func Kinds() []Kind {
	out := make([]Kind, numKinds)
	for i := range out {
		out[i] = Kind(i)
	}
	return out
}

// KindSet is a bitset of kinds
type KindSet uint16

// SetOf builds a KindSet
func SetOf(kinds ...Kind) KindSet {
	var s KindSet
	for _, k := range kinds {
		s |= 1 << k
	}
	return s
}

// Has reports whether k is in the set
func (s KindSet) Has(k Kind) bool {
	return k < numKinds && s&(1<<k) != 0
}

func (s KindSet) String() string {
	var names []string
	for _, k := range Kinds() {
		if s.Has(k) {
			names = append(names, k.String())
		}
	}
	return "{" + strings.Join(names, ", ") + "}"
}

// Unbounded marks a rule without a fixed child count
const Unbounded = -1

// Rule is one entry of the grammar table.
type Rule struct {
	// Arity is the exact number of children the kind holds when complete,
	// or Unbounded.
	Arity int
	// Min is the smallest complete child count.
	Min int
	// Children lists the allowed kinds per child position. Unbounded rules
	// use a single set for every position.
	Children []KindSet
}

// Operands are the kinds a logic operator may join: flags, bare arguments
// such as find's parentheses, nested operators and substitutions.
var Operands = SetOf(Flag, Argument, HeadCommand, UnaryLogicOp, BinaryLogicOp, CommandSubstitution, ProcessSubstitution)

var commands = SetOf(HeadCommand, Pipeline)

var table = [numKinds]Rule{
	Root:                {Arity: 1, Min: 1, Children: []KindSet{commands}},
	Pipeline:            {Arity: Unbounded, Min: 2, Children: []KindSet{SetOf(HeadCommand)}},
	HeadCommand:         {Arity: Unbounded, Children: []KindSet{SetOf(Flag, Argument, HeadCommand, UnaryLogicOp, BinaryLogicOp, CommandSubstitution, ProcessSubstitution)}},
	Flag:                {Arity: Unbounded, Children: []KindSet{SetOf(Argument, HeadCommand, CommandSubstitution, ProcessSubstitution)}},
	Argument:            {Arity: 0},
	UnaryLogicOp:        {Arity: 1, Min: 1, Children: []KindSet{Operands}},
	BinaryLogicOp:       {Arity: 2, Min: 2, Children: []KindSet{Operands, Operands}},
	CommandSubstitution: {Arity: 1, Min: 1, Children: []KindSet{commands}},
	ProcessSubstitution: {Arity: 1, Min: 1, Children: []KindSet{commands}},
}

// Lookup returns the rule for k
func Lookup(k Kind) Rule {
	if !k.Valid() {
		return Rule{}
	}
	return table[k]
}

// Bounded reports whether the rule fixes its child count
func (r Rule) Bounded() bool {
	return r.Arity != Unbounded
}

// Allowed returns the kinds admitted at child position pos
func (r Rule) Allowed(pos int) KindSet {
	if len(r.Children) == 0 {
		return 0
	}
	if !r.Bounded() {
		return r.Children[0]
	}
	if pos < 0 || pos >= len(r.Children) {
		return 0
	}
	return r.Children[pos]
}

// CheckAttach reports whether a child of kind child may be attached to a
// node of kind parent that already holds have children.
func CheckAttach(parent Kind, have int, child Kind) error {
	r := Lookup(parent)
	if r.Bounded() && have >= r.Arity {
		return fmt.Errorf("%s holds at most %d children", parent, r.Arity)
	}
	if allowed := r.Allowed(have); !allowed.Has(child) {
		return fmt.Errorf("%s cannot hold %s at position %d (allowed %s)", parent, child, have, allowed)
	}
	return nil
}

// CheckComplete reports whether a node of kind k with n children satisfies
// its arity once construction is finished.
func CheckComplete(k Kind, n int) error {
	r := Lookup(k)
	if n < r.Min {
		return fmt.Errorf("%s needs at least %d children, has %d", k, r.Min, n)
	}
	if r.Bounded() && n > r.Arity {
		return fmt.Errorf("%s holds at most %d children, has %d", k, r.Arity, n)
	}
	return nil
}

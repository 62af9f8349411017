package builder

import (
	"github.com/aledsdavies/cmdtree/core/invariant"
	"github.com/aledsdavies/cmdtree/pkgs/errors"
	"github.com/aledsdavies/cmdtree/pkgs/tree"
)

// fold rewrites the flat operator/operand sequence under each head command
// into operator subtrees. Unary operators bind first, so a negation is
// already an operand when a binary operator takes its neighbours. Each
// group is folded in recording order.
func (b *Builder) fold(scope *tree.Node, unary, binary []*tree.Node) error {
	for _, op := range unary {
		owner, i := tree.Owner(scope, op)
		invariant.Invariant(owner != nil, "unary operator %q is not under its command", op.Value)

		if i+1 >= owner.Len() {
			b.warn(errors.NewDanglingUnary(op.Value))
			continue
		}
		operand := owner.DetachAt(i + 1)
		if err := op.Attach(operand); err != nil {
			return err
		}
	}

	for _, op := range binary {
		owner, i := tree.Owner(scope, op)
		invariant.Invariant(owner != nil, "binary operator %q is not under its command", op.Value)

		if i == 0 || i+1 >= owner.Len() {
			return errors.NewStructural("binary logic operator %q needs an operand on both sides", op.Value).
				WithContext(errors.CtxToken, op.Value)
		}
		right := owner.DetachAt(i + 1)
		left := owner.DetachAt(i - 1)
		if err := op.Attach(left); err != nil {
			return err
		}
		if err := op.Attach(right); err != nil {
			return err
		}
	}
	return nil
}

package tree

import (
	"errors"
	"fmt"
	"math/bits"

	"go.uber.org/multierr"

	"github.com/benz9527/xtree/lib/infra"
)

var (
	ErrRBTreeRedViolation   = errors.New("[rbtree] red violation")
	ErrRBTreeBlackViolation = errors.New("[rbtree] black violation")
	ErrRBTreeSizeViolation  = errors.New("[rbtree] size violation")
	ErrRBTreeOrderViolation = errors.New("[rbtree] order violation")
)

func isRed[K infra.OrderedKey, V any](node RBNode[K, V]) bool {
	return node != nil && node.Color() == Red
}

// rbtree rule validation utilities.

// References:
// https://github1s.com/minghu6/rust-minghu6/blob/master/coll_st/src/bst/rb.rs

// RedViolationValidate checks no red node has a red child by the
// pre-order traversal.
func RedViolationValidate[K infra.OrderedKey, V any](tree RBTree[K, V]) error {
	root := tree.Root()
	if root == nil {
		return nil
	}

	stack := make([]RBNode[K, V], 0, 64)
	defer func() {
		clear(stack)
	}()
	stack = append(stack, root)

	for size := len(stack); size > 0; size = len(stack) {
		aux := stack[size-1]
		stack = stack[:size-1]
		l, r := aux.Left(), aux.Right()
		if isRed[K, V](aux) && (isRed[K, V](l) || isRed[K, V](r)) {
			return fmt.Errorf("%w at key %v", ErrRBTreeRedViolation, aux.Key())
		}
		if l != nil {
			stack = append(stack, l)
		}
		if r != nil {
			stack = append(stack, r)
		}
	}
	return nil
}

/*
<X> is a RED node.
[X] is a BLACK node (or NIL).

	        [13]
	        /  \
	     <8>    [15]
	     / \    /  \
	  [6] [11] [14] [17]
	  /              /
	<1>            [16]

2-3-4 tree like:

	       <8> --- [13] --- <15>
	      /  \             /    \
	     /    \           /      \
	  <1>-[6][11]      [14] <16>-[17]

Each empty slot to root node black depth are equal.
*/
func BlackViolationValidate[K infra.OrderedKey, V any](tree RBTree[K, V]) error {
	type frame struct {
		node  RBNode[K, V]
		depth int
	}

	root := tree.Root()
	if root == nil {
		return nil
	}

	stack := make([]frame, 0, 64)
	defer func() {
		clear(stack)
	}()
	stack = append(stack, frame{node: root})

	expected := -1
	for size := len(stack); size > 0; size = len(stack) {
		f := stack[size-1]
		stack = stack[:size-1]
		if /* empty slot */ f.node == nil {
			if expected < 0 {
				expected = f.depth
			} else if f.depth != expected {
				return fmt.Errorf("%w expected black depth %d, got %d", ErrRBTreeBlackViolation, expected, f.depth)
			}
			continue
		}
		depth := f.depth
		if f.node.Color() == Black {
			depth++
		}
		stack = append(stack, frame{node: f.node.Left(), depth: depth}, frame{node: f.node.Right(), depth: depth})
	}
	return nil
}

// SizeValidate checks the reachable nodes are equal to the tree size
// and each child points back to its parent.
func SizeValidate[K infra.OrderedKey, V any](tree RBTree[K, V]) error {
	root := tree.Root()
	if root == nil {
		if tree.Len() != 0 || !tree.IsEmpty() {
			return fmt.Errorf("%w empty root with size %d", ErrRBTreeSizeViolation, tree.Len())
		}
		return nil
	}
	if root.Parent() != nil {
		return fmt.Errorf("%w root has a parent", ErrRBTreeSizeViolation)
	}

	stack := make([]RBNode[K, V], 0, 64)
	defer func() {
		clear(stack)
	}()
	stack = append(stack, root)

	reachable := int64(0)
	for size := len(stack); size > 0; size = len(stack) {
		aux := stack[size-1]
		stack = stack[:size-1]
		reachable++
		for _, child := range []RBNode[K, V]{aux.Left(), aux.Right()} {
			if child == nil {
				continue
			}
			if p := child.Parent(); p == nil || p != aux {
				return fmt.Errorf("%w key %v parent link broken", ErrRBTreeSizeViolation, child.Key())
			}
			stack = append(stack, child)
		}
	}
	if reachable != tree.Len() {
		return fmt.Errorf("%w reachable %d, size %d", ErrRBTreeSizeViolation, reachable, tree.Len())
	}
	return nil
}

// OrderValidate checks the in-order keys are strictly increasing
// under the tree comparator.
func OrderValidate[K infra.OrderedKey, V any](tree RBTree[K, V]) error {
	kcmp := infra.AscendingKeyComparator[K]()
	if t, ok := tree.(interface {
		comparator() infra.OrderedKeyComparator[K]
	}); ok {
		kcmp = t.comparator()
	}

	var (
		prev  K
		first = true
		err   error
	)
	for key := range tree.Keys() {
		if !first && kcmp(prev, key) >= 0 {
			err = fmt.Errorf("%w %v is not before %v", ErrRBTreeOrderViolation, prev, key)
			break
		}
		prev, first = key, false
	}
	return err
}

// Height returns the number of nodes on the longest root to leaf path.
func Height[K infra.OrderedKey, V any](tree RBTree[K, V]) int {
	type frame struct {
		node  RBNode[K, V]
		depth int
	}

	root := tree.Root()
	if root == nil {
		return 0
	}

	stack := []frame{{node: root, depth: 1}}
	height := 0
	for size := len(stack); size > 0; size = len(stack) {
		f := stack[size-1]
		stack = stack[:size-1]
		height = max(height, f.depth)
		if l := f.node.Left(); l != nil {
			stack = append(stack, frame{node: l, depth: f.depth + 1})
		}
		if r := f.node.Right(); r != nil {
			stack = append(stack, frame{node: r, depth: f.depth + 1})
		}
	}
	return height
}

// MaxHeight rounds 2*log2(n+1), the height bound of a red-black tree
// with n nodes, up to the next even integer.
func MaxHeight(n int64) int {
	if n <= 0 {
		return 0
	}
	return 2 * bits.Len64(uint64(n))
}

// Validate combines all the rbtree rule validations.
func Validate[K infra.OrderedKey, V any](tree RBTree[K, V]) error {
	return multierr.Combine(
		RedViolationValidate[K, V](tree),
		BlackViolationValidate[K, V](tree),
		SizeValidate[K, V](tree),
		OrderValidate[K, V](tree),
	)
}

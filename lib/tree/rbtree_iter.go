package tree

import (
	"iter"

	"github.com/benz9527/xtree/lib/infra"
)

// RBIterator is an in-order cursor with an explicit stack, the stack
// holds at most the tree height indices.
// Any structural mutation of the tree invalidates the iterator.
type RBIterator[K infra.OrderedKey, V any] struct {
	tree  *rbTree[K, V]
	stack []uint32
	cur   uint32
}

func (it *RBIterator[K, V]) pushLefts(idx uint32) {
	for ; idx != nilIdx; idx = it.tree.node(idx).left {
		it.stack = append(it.stack, idx)
	}
}

// Next advances to the next node in key order and reports whether
// there is one.
func (it *RBIterator[K, V]) Next() bool {
	size := len(it.stack)
	if size <= 0 {
		it.cur = nilIdx
		return false
	}
	it.cur = it.stack[size-1]
	it.stack = it.stack[:size-1]
	it.pushLefts(it.tree.node(it.cur).right)
	return true
}

func (it *RBIterator[K, V]) current() *rbNode[K, V] {
	if it.cur == nilIdx {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] iterator is not positioned at a node")
	}
	return it.tree.node(it.cur)
}

func (it *RBIterator[K, V]) Key() K {
	return it.current().key
}

func (it *RBIterator[K, V]) Val() V {
	return it.current().val
}

// ValRef returns the mutable reference of the current value.
func (it *RBIterator[K, V]) ValRef() *V {
	return &it.current().val
}

func (tree *rbTree[K, V]) Iterator() *RBIterator[K, V] {
	it := &RBIterator[K, V]{
		tree:  tree,
		stack: make([]uint32, 0, MaxHeight(tree.count)),
		cur:   nilIdx,
	}
	it.pushLefts(tree.root)
	return it
}

func (tree *rbTree[K, V]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		for it := tree.Iterator(); it.Next(); {
			if !yield(it.Key()) {
				return
			}
		}
	}
}

func (tree *rbTree[K, V]) Values() iter.Seq[*V] {
	return func(yield func(*V) bool) {
		for it := tree.Iterator(); it.Next(); {
			if !yield(it.ValRef()) {
				return
			}
		}
	}
}

func (tree *rbTree[K, V]) Entries() iter.Seq2[K, *V] {
	return func(yield func(K, *V) bool) {
		for it := tree.Iterator(); it.Next(); {
			if !yield(it.Key(), it.ValRef()) {
				return
			}
		}
	}
}

// Foreach visits the nodes in key order until the action returns false.
func (tree *rbTree[K, V]) Foreach(action func(idx int64, color RBColor, key K, val V) bool) {
	var idx int64 = 0
	for it := tree.Iterator(); it.Next(); idx++ {
		node := it.current()
		if !action(idx, node.color, node.key, node.val) {
			return
		}
	}
}

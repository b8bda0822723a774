package tree

import (
	"errors"
	"io"
	"iter"

	"github.com/benz9527/xtree/lib/infra"
)

// go install golang.org/x/tools/cmd/stringer@latest

//go:generate stringer -type=RBColor
type RBColor uint8

const (
	Black RBColor = iota
	Red
)

//go:generate stringer -type=RBDirection
type RBDirection int8

const (
	Left RBDirection = -1 + iota
	Root
	Right
)

func (dir RBDirection) opposite() RBDirection {
	return -dir
}

var (
	ErrRBTreeKeyNotFound     = errors.New("[rbtree] key not found")
	ErrRBTreeEmpty           = errors.New("[rbtree] empty element to remove")
	ErrRBTreeReplaceDisabled = errors.New("[rbtree] replace disabled")
)

// RBNode is a read-only view of a tree node. It is only valid until
// the next structural mutation of the tree.
type RBNode[K infra.OrderedKey, V any] interface {
	Key() K
	Val() V
	Color() RBColor
	Left() RBNode[K, V]
	Right() RBNode[K, V]
	Parent() RBNode[K, V]
}

// RBTree is an ordered map. It is not safe for concurrent use,
// callers have to provide their own mutual exclusion.
type RBTree[K infra.OrderedKey, V any] interface {
	Len() int64
	IsEmpty() bool
	Root() RBNode[K, V]

	Lookup(key K) (V, bool)
	Get(key K) (V, error)
	GetOrElse(key K, def V) V
	GetOrInsert(key K, factory func() V) *V
	Set(key K, val V) *V
	Insert(key K, val V, ifNotPresent ...bool) error
	Remove(key K) bool
	RemoveMin() (K, V, error)

	Iterator() *RBIterator[K, V]
	Keys() iter.Seq[K]
	Values() iter.Seq[*V]
	Entries() iter.Seq2[K, *V]
	Foreach(action func(idx int64, color RBColor, key K, val V) bool)

	Dump(w io.Writer, opts ...RBDumpOpt) error
	Release()
}

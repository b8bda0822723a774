package tree

import (
	"math"
	"math/bits"

	"github.com/benz9527/xtree/lib/infra"
)

const (
	// nilIdx is the reserved empty slot. No live node owns it.
	nilIdx                 uint32 = 0
	defaultRBArenaPageSize uint32 = 1 << 8
	maxRBArenaPageSize     uint32 = 1 << 20
	maxRBArenaNodeIdx      uint32 = math.MaxUint32
)

type rbNode[K infra.OrderedKey, V any] struct {
	key    K
	val    V
	parent uint32 // non-owning back reference
	left   uint32
	right  uint32
	color  RBColor
}

// rbArena stores the tree nodes in fixed size pages addressed by
// stable uint32 indices.
// A page is never reallocated once it has been appended, so the
// address of a node (and its value) does not change until its slot
// is recycled.
type rbArena[K infra.OrderedKey, V any] struct {
	pages     [][]rbNode[K, V]
	recycled  []uint32
	pageSize  uint32
	pageShift uint32
	next      uint32 // next never allocated index
	used      int64
}

func newRBArena[K infra.OrderedKey, V any](pageSize uint32) *rbArena[K, V] {
	if pageSize < 2 {
		pageSize = defaultRBArenaPageSize
	} else if pageSize > maxRBArenaPageSize {
		pageSize = maxRBArenaPageSize
	}
	// Round up to the power of 2.
	shift := uint32(bits.Len32(pageSize - 1))
	pageSize = 1 << shift

	arena := &rbArena[K, V]{
		pages:     make([][]rbNode[K, V], 0, 8),
		recycled:  make([]uint32, 0, 64),
		pageSize:  pageSize,
		pageShift: shift,
		next:      nilIdx + 1, // zero is reserved
	}
	arena.pages = append(arena.pages, make([]rbNode[K, V], pageSize))
	return arena
}

func (arena *rbArena[K, V]) node(idx uint32) *rbNode[K, V] {
	if idx == nilIdx {
		return nil
	}
	return &arena.pages[idx>>arena.pageShift][idx&(arena.pageSize-1)]
}

// malloc returns the index of a fresh red leaf.
func (arena *rbArena[K, V]) malloc(key K, val V, parent uint32) uint32 {
	var idx uint32
	if l := len(arena.recycled); l > 0 {
		idx = arena.recycled[l-1]
		arena.recycled = arena.recycled[:l-1]
	} else {
		if arena.next == maxRBArenaNodeIdx {
			panic( /* debug assertion */ "[rbtree] arena has reached the maximum number of nodes")
		}
		idx = arena.next
		arena.next++
		if int(idx>>arena.pageShift) >= len(arena.pages) {
			arena.pages = append(arena.pages, make([]rbNode[K, V], arena.pageSize))
		}
	}

	node := arena.node(idx)
	node.key = key
	node.val = val
	node.color = Red
	node.parent = parent
	node.left = nilIdx
	node.right = nilIdx
	arena.used++
	return idx
}

func (arena *rbArena[K, V]) free(idx uint32) {
	if idx == nilIdx || idx >= arena.next {
		panic( /* debug assertion */ "[rbtree] free an unallocated arena slot")
	}
	// Drop the key and value references for GC.
	*arena.node(idx) = rbNode[K, V]{}
	arena.recycled = append(arena.recycled, idx)
	arena.used--
}

// reset keeps the first page only. All indices become invalid.
func (arena *rbArena[K, V]) reset() {
	clear(arena.pages[0])
	clear(arena.pages[1:])
	arena.pages = arena.pages[:1]
	arena.recycled = arena.recycled[:0]
	arena.next = nilIdx + 1
	arena.used = 0
}

func (arena *rbArena[K, V]) len() int64 {
	return arena.used
}

func (arena *rbArena[K, V]) cap() int64 {
	return int64(len(arena.pages)) * int64(arena.pageSize)
}

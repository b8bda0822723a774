package tree

import (
	"fmt"

	"github.com/benz9527/xtree/lib/infra"
)

var _ RBTree[uint8, uint8] = (*rbTree[uint8, uint8])(nil)

type rbNodeRef[K infra.OrderedKey, V any] struct {
	tree *rbTree[K, V]
	idx  uint32
}

func (ref rbNodeRef[K, V]) Key() K {
	return ref.tree.node(ref.idx).key
}

func (ref rbNodeRef[K, V]) Val() V {
	return ref.tree.node(ref.idx).val
}

func (ref rbNodeRef[K, V]) Color() RBColor {
	return ref.tree.node(ref.idx).color
}

func (ref rbNodeRef[K, V]) Left() RBNode[K, V] {
	return ref.tree.nodeRef(ref.tree.node(ref.idx).left)
}

func (ref rbNodeRef[K, V]) Right() RBNode[K, V] {
	return ref.tree.nodeRef(ref.tree.node(ref.idx).right)
}

func (ref rbNodeRef[K, V]) Parent() RBNode[K, V] {
	return ref.tree.nodeRef(ref.tree.node(ref.idx).parent)
}

type rbTree[K infra.OrderedKey, V any] struct {
	arena          *rbArena[K, V]
	kcmp           infra.OrderedKeyComparator[K]
	stats          *rbTreeStats
	root           uint32
	count          int64
	version        uint64 // bumped by every link or unlink
	isDesc         bool
	isRmBorrowSucc bool
}

func (tree *rbTree[K, V]) node(idx uint32) *rbNode[K, V] {
	return tree.arena.node(idx)
}

func (tree *rbTree[K, V]) nodeRef(idx uint32) RBNode[K, V] {
	if idx == nilIdx {
		return nil
	}
	return rbNodeRef[K, V]{tree: tree, idx: idx}
}

func (tree *rbTree[K, V]) comparator() infra.OrderedKeyComparator[K] {
	return tree.kcmp
}

func (tree *rbTree[K, V]) isRed(idx uint32) bool {
	return idx != nilIdx && tree.node(idx).color == Red
}

// All empty slots are considered black.
func (tree *rbTree[K, V]) isBlack(idx uint32) bool {
	return !tree.isRed(idx)
}

func (tree *rbTree[K, V]) direction(idx uint32) RBDirection {
	if idx == nilIdx {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] nil leaf node without direction")
	}

	p := tree.node(idx).parent
	if p == nilIdx {
		return Root
	}
	if tree.node(p).left == idx {
		return Left
	}
	return Right
}

func (tree *rbTree[K, V]) sibling(idx uint32) uint32 {
	switch dir := tree.direction(idx); dir {
	case Left:
		return tree.node(tree.node(idx).parent).right
	case Right:
		return tree.node(tree.node(idx).parent).left
	default:
	}
	return nilIdx
}

func (tree *rbTree[K, V]) minimum(idx uint32) uint32 {
	for idx != nilIdx && tree.node(idx).left != nilIdx {
		idx = tree.node(idx).left
	}
	return idx
}

func (tree *rbTree[K, V]) maximum(idx uint32) uint32 {
	for idx != nilIdx && tree.node(idx).right != nilIdx {
		idx = tree.node(idx).right
	}
	return idx
}

// replaceNode reattaches rep (may be empty) to the position of old.
// The links of old are left untouched.
func (tree *rbTree[K, V]) replaceNode(old, rep uint32) {
	p := tree.node(old).parent
	switch dir := tree.direction(old); dir {
	case Root:
		tree.root = rep
	case Left:
		tree.node(p).left = rep
	case Right:
		tree.node(p).right = rep
	default:
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] unknown node direction to replace")
	}
	if rep != nilIdx {
		tree.node(rep).parent = p
	}
}

func (tree *rbTree[K, V]) Len() int64 {
	return tree.count
}

func (tree *rbTree[K, V]) IsEmpty() bool {
	return tree.count == 0
}

func (tree *rbTree[K, V]) Root() RBNode[K, V] {
	return tree.nodeRef(tree.root)
}

// References:
// https://elixir.bootlin.com/linux/latest/source/lib/rbtree.c
// rbtree properties:
// https://en.wikipedia.org/wiki/Red%E2%80%93black_tree#Properties
// p1. Every node is either red or black.
// p2. All NIL nodes are considered black.
// p3. A red node does not have a red child. (red-violation)
// p4. Every path from a given node to any of its descendant
//   NIL nodes goes through the same number of black nodes. (black-violation)
// p5. The root is black. It is repainted lazily, a red root is
//   fixed by the first insert rebalance reaching it.
// (Conclusion) If a node X has exactly one child, it must be a red child,
//   because if it were black, its NIL descendants would sit at a different
//   black depth than X's NIL child, violating p4.

/*
		 |                         |
		 X                         S
		/ \     leftRotate(X)     / \
	   L   S    ============>    X   Sd
		  / \                   / \
		Sc   Sd                L   Sc
*/
func (tree *rbTree[K, V]) leftRotate(x uint32) {
	if x == nilIdx || tree.node(x).right == nilIdx {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] left rotate node x is nil or x.right is nil")
	}

	xn := tree.node(x)
	y := xn.right
	yn := tree.node(y)
	tree.replaceNode(x, y)
	xn.right = yn.left
	if xn.right != nilIdx {
		tree.node(xn.right).parent = x
	}
	yn.left = x
	xn.parent = y
	tree.stats.IncreaseRotationCount(Left)
}

/*
			 |                         |
			 X                         S
			/ \     rightRotate(S)    / \
	       L   S    <============    X   R
			  / \                   / \
			Sc   Sd               Sc   Sd
*/
func (tree *rbTree[K, V]) rightRotate(x uint32) {
	if x == nilIdx || tree.node(x).left == nilIdx {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] right rotate node x is nil or x.left is nil")
	}

	xn := tree.node(x)
	y := xn.left
	yn := tree.node(y)
	tree.replaceNode(x, y)
	xn.left = yn.right
	if xn.left != nilIdx {
		tree.node(xn.left).parent = x
	}
	yn.right = x
	xn.parent = y
	tree.stats.IncreaseRotationCount(Right)
}

func (tree *rbTree[K, V]) rotate(x uint32, dir RBDirection) {
	switch dir {
	case Left:
		tree.leftRotate(x)
	case Right:
		tree.rightRotate(x)
	default:
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] unknown rotate direction")
	}
}

func (tree *rbTree[K, V]) search(key K) uint32 {
	if idx, _, found := tree.descend(key); found {
		return idx
	}
	return nilIdx
}

func (tree *rbTree[K, V]) Lookup(key K) (V, bool) {
	if idx := tree.search(key); idx != nilIdx {
		return tree.node(idx).val, true
	}
	var zero V
	return zero, false
}

func (tree *rbTree[K, V]) Get(key K) (V, error) {
	val, ok := tree.Lookup(key)
	if !ok {
		return val, infra.WrapErrorStackWithMessage(ErrRBTreeKeyNotFound, fmt.Sprintf("key %v", key))
	}
	return val, nil
}

func (tree *rbTree[K, V]) GetOrElse(key K, def V) V {
	if val, ok := tree.Lookup(key); ok {
		return val
	}
	return def
}

// GetOrInsert returns the reference of the stored value. The factory
// is only invoked if the key is absent, it is allowed to modify the tree.
// The reference is valid until the next Remove or Release.
func (tree *rbTree[K, V]) GetOrInsert(key K, factory func() V) *V {
	idx, _ := tree.getOrInsert(key, factory)
	return &tree.node(idx).val
}

// Set inserts the value if the key is absent, otherwise the existing
// value is left unchanged.
func (tree *rbTree[K, V]) Set(key K, val V) *V {
	return tree.GetOrInsert(key, func() V {
		return val
	})
}

// Insert replaces the existing value unless the ifNotPresent is enabled.
func (tree *rbTree[K, V]) Insert(key K, val V, ifNotPresent ...bool) error {
	idx, inserted := tree.getOrInsert(key, func() V {
		return val
	})
	if inserted {
		return nil
	}
	if /* disabled */ len(ifNotPresent) > 0 && ifNotPresent[0] {
		return ErrRBTreeReplaceDisabled
	}
	tree.node(idx).val = val
	return nil
}

// descend returns the node holding the key, or the parent to link a
// new node under and the last comparison result.
func (tree *rbTree[K, V]) descend(key K) (y uint32, res int64, found bool) {
	for x := tree.root; x != nilIdx; {
		y = x
		node := tree.node(x)
		res = tree.kcmp(key, node.key)
		if /* equal */ res == 0 {
			return x, res, true
		} else /* less */ if res < 0 {
			x = node.left
		} else /* greater */ {
			x = node.right
		}
	}
	return y, res, false
}

// i1: Empty rbtree, the new node becomes the root.
// The factory may change the tree, then the position is searched again.
// If the factory inserted the key itself, its value is kept.
func (tree *rbTree[K, V]) getOrInsert(key K, factory func() V) (idx uint32, inserted bool) {
	y, res, found := tree.descend(key)
	if found {
		return y, false
	}

	version := tree.version
	val := factory()
	if version != tree.version {
		if y, res, found = tree.descend(key); found {
			return y, false
		}
	}

	z := tree.arena.malloc(key, val, y)
	if /* i1 */ y == nilIdx {
		tree.root = z
	} else /* less */ if res < 0 {
		tree.node(y).left = z
	} else /* greater */ {
		tree.node(y).right = z
	}

	tree.count++
	tree.version++
	tree.stats.RecordNodeCount(1)
	tree.insertRebalance(z)
	return z, true
}

/*
New node X is red by default.

<X> is a RED node.
[X] is a BLACK node (or NIL).
{X} is either a RED node or a BLACK node.

im1: Current node X has no parent (empty tree, or X is the root reached
by im4). Nothing to fix.

im2: Current node X's parent P is black. Nothing to fix.

im3: Current node X's parent P is red and P is root, repaint P into black.

im4: If both the parent P and the uncle U are red, grandpa G is black.
(red-violation)
After repainted G into red may be still red-violation.
Loop to fix grandpa.

	    [G]             <G>
	    / \             / \
	  <P> <U>  ====>  [P] [U]
	  /               /
	<X>             <X>

im5: The parent P is red but the uncle U is black. (red-violation)
(1) X is opposite direction to P. Rotate P to P's direction, then
X takes the position of P.

	  [G]                 [G]
	  / \    rotate(P)    / \
	<P> [U]  ========>  <X> [U]
	  \                 /
	  <X>             <P>

(2) Current node is the same direction as parent. Rotate G to the
opposite direction of P, the new subtree root is painted into black.

	    [G]                 <P>               [P]
	    / \    rotate(G)    / \    repaint    / \
	  <P> [U]  ========>  <X> [G]  ======>  <X> <G>
	  /                         \                 \
	<X>                         [U]               [U]
*/
func (tree *rbTree[K, V]) insertRebalance(x uint32) {
	for {
		p := tree.node(x).parent
		if /* im1 */ p == nilIdx {
			tree.stats.IncreaseInsertFixupCount(im1)
			return
		}

		if /* im2 */ tree.isBlack(p) {
			tree.stats.IncreaseInsertFixupCount(im2)
			return
		}

		gp := tree.node(p).parent
		if /* im3 */ gp == nilIdx {
			tree.node(p).color = Black
			tree.stats.IncreaseInsertFixupCount(im3)
			return
		}

		if uncle := tree.sibling(p); /* im4 */ tree.isRed(uncle) {
			tree.node(p).color = Black
			tree.node(uncle).color = Black
			tree.node(gp).color = Red
			tree.stats.IncreaseInsertFixupCount(im4)
			x = gp
			continue
		}

		/* im5 */
		parentDir := tree.direction(p)
		if /* (1) */ tree.direction(x) != parentDir {
			tree.rotate(p, parentDir)
			p = x
		}
		/* (2) */
		tree.rotate(gp, parentDir.opposite())
		tree.node(p).color = Black
		tree.node(gp).color = Red
		tree.stats.IncreaseInsertFixupCount(im5)
		return
	}
}

func (tree *rbTree[K, V]) Remove(key K) bool {
	z := tree.search(key)
	if z == nilIdx {
		return false
	}
	tree.removeNode(z)
	return true
}

func (tree *rbTree[K, V]) RemoveMin() (key K, val V, err error) {
	if tree.count <= 0 {
		return key, val, ErrRBTreeEmpty
	}
	key, val = tree.removeNode(tree.minimum(tree.root))
	return key, val, nil
}

/*
r1: Only a root node, remove directly.

r2: Current node X has left and right node.
Find node X's pred (or succ) to replace it to be removed.
Copy the key and value only, the pred (succ) node is removed instead.
The pred (succ) node has one child at most.

Find pred:

	  |                    |
	  X                    L
	 / \                  / \
	L  ..   copy(L, X)   X  ..
		|   =========>       |
		P                    P
	   / \                  / \
	  S  ..                S  ..

r3: Current node X contains only one child node.
The child node must be red and X must be black. (See conclusion)
Splice the child into X's position and paint it into black.

r4: (1) Current node X is a red leaf node, remove directly.

r4: (2) Current node X is a black leaf node, we have to rebalance
before unlinking it. (black-violation)
*/
func (tree *rbTree[K, V]) removeNode(z uint32) (key K, val V) {
	if tree.count <= 0 || z == nilIdx {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] remove a node from an empty tree")
	}

	zn := tree.node(z)
	key, val = zn.key, zn.val
	tree.version++
	defer func() {
		tree.count--
		tree.stats.RecordNodeCount(-1)
	}()

	if /* r1 */ tree.count == 1 {
		if z != tree.root {
			// impossible run to here
			panic( /* debug assertion */ "[rbtree] the only node is not the root, violate (r1)")
		}
		tree.root = nilIdx
		tree.arena.free(z)
		return key, val
	}

	y := z
	if /* r2 */ zn.left != nilIdx && zn.right != nilIdx {
		if tree.isRmBorrowSucc {
			y = tree.minimum(zn.right)
		} else {
			y = tree.maximum(zn.left)
		}
		yn := tree.node(y)
		zn.key, zn.val = yn.key, yn.val
	}

	yn := tree.node(y)
	child := yn.left
	if child == nilIdx {
		child = yn.right
	}

	if /* r3 */ child != nilIdx {
		tree.replaceNode(y, child)
		tree.node(child).color = Black
	} else /* r4 */ {
		if /* r4 (2) */ yn.color == Black {
			tree.removeRebalance(y)
		}
		tree.replaceNode(y, nilIdx)
	}
	tree.arena.free(y)
	return key, val
}

/*
<X> is a RED node.
[X] is a BLACK node (or NIL).
{X} is either a RED node or a BLACK node.

Sc is the same direction to X and it X's sibling's child node.
Sd is the opposite direction to X and it X's sibling's child node.

rm1: Current node X's sibling S is red, so the parent P, nephew node Sc and Sd
must be black. (Otherwise, red-violation)
(1) X is left node of P, left rotate P
(2) X is right node of P, right rotate P.
(3) repaint S into black, P into red.

	  [P]                   <S>               [S]
	  / \    l-rotate(P)    / \    repaint    / \
	[X] <S>  ==========>  [P] [D]  ======>  <P> [Sd]
	    / \               / \               / \
	 [Sc] [Sd]          [X] [Sc]          [X] [Sc]

rm2: Current node X's parent P is red, the sibling S, nephew node Sc and Sd
is black.
Repaint S into red and P into black.

	  <P>             [P]
	  / \             / \
	[X] [S]  ====>  [X] <S>
	    / \             / \
	 [Sc] [Sd]       [Sc] [Sd]

rm3: All of current node X's parent P, the sibling S, nephew node Sc and Sd
are black.
Unable to satisfy p3 and p4. We have to paint the S into red to satisfy
p4 locally. Then loop to handle P.

	  [P]             [P]
	  / \             / \
	[X] [S]  ====>  [X] <S>
	    / \             / \
	 [Sc] [Sd]       [Sc] [Sd]

rm4: Current node X's sibling S is black, nephew node Sc is red.
Ignore X's parent P's color (red or black is okay)
(1) If X is left node of P, right rotate S.
(2) If X is right node of P, left rotate S.
(3) Repaint S into red, Sc into black
Sc becomes the sibling, S becomes the Sd. Enter into rm5 to fix.

	                        {P}                {P}
	  {P}                   / \                / \
	  / \    r-rotate(S)  [X] <Sc>   repaint  [X] [Sc]
	[X] [S]  ==========>        \    ======>       \
	    / \                     [S]                <S>
	  <Sc> [Sd]                   \                  \
	                              [Sd]               [Sd]

rm5: Current node X's sibling S is black, nephew node Sd is red.
Ignore X's parent P's color (red or black is okay)
(1) If X is left node of P, left rotate P.
(2) If X is right node of P, right rotate P.
(3) S takes P's color, P is painted into black.
(4) Repaint Sd into black.

	  {P}                   [S]                {S}
	  / \    l-rotate(P)    / \     repaint    / \
	[X] [S]  ==========>  {P} <Sd>  ======>  [P] [Sd]
	    / \               / \                / \
	 [Sc] <Sd>          [X] [Sc]           [X] [Sc]
*/
func (tree *rbTree[K, V]) removeRebalance(x uint32) {
	for {
		p := tree.node(x).parent
		if p == nilIdx {
			return
		}

		dir := tree.direction(x)
		sibling := tree.sibling(x)
		if sibling == nilIdx {
			// impossible run to here
			panic( /* debug assertion */ "[rbtree] black node without sibling, violate (p4)")
		}

		if /* rm1 */ tree.isRed(sibling) {
			tree.rotate(p, dir)
			tree.node(sibling).color = Black
			tree.node(p).color = Red // ready to enter rm2
			tree.stats.IncreaseRemoveFixupCount(rm1)
			sibling = tree.sibling(x)
		}

		var sc, sd uint32
		switch sn := tree.node(sibling); dir {
		case Left:
			sc, sd = sn.left, sn.right
		case Right:
			sc, sd = sn.right, sn.left
		default:
			// impossible run to here
			panic( /* debug assertion */ "[rbtree] remove violate (rm2)")
		}

		if tree.isBlack(sc) && tree.isBlack(sd) {
			if /* rm2 */ tree.isRed(p) {
				tree.node(sibling).color = Red
				tree.node(p).color = Black
				tree.stats.IncreaseRemoveFixupCount(rm2)
				return
			}
			/* rm3 */
			tree.node(sibling).color = Red
			tree.stats.IncreaseRemoveFixupCount(rm3)
			x = p
			continue
		}

		if /* rm4 */ tree.isRed(sc) {
			tree.rotate(sibling, dir.opposite())
			tree.node(sc).color = Black
			tree.node(sibling).color = Red
			tree.stats.IncreaseRemoveFixupCount(rm4)
			sibling, sd = sc, sibling
		}

		/* rm5 */
		tree.rotate(p, dir)
		tree.node(sibling).color = tree.node(p).color
		tree.node(p).color = Black
		tree.node(sd).color = Black
		tree.stats.IncreaseRemoveFixupCount(rm5)
		return
	}
}

// Release destroys every node exactly once from the top down.
// The tree is empty and reusable afterward.
func (tree *rbTree[K, V]) Release() {
	if tree.root == nilIdx {
		return
	}

	stack := make([]uint32, 0, 64)
	defer func() {
		clear(stack)
	}()
	stack = append(stack, tree.root)
	tree.root = nilIdx
	tree.version++

	released := int64(0)
	for size := len(stack); size > 0; size = len(stack) {
		aux := stack[size-1]
		stack = stack[:size-1]
		node := tree.node(aux)
		node.parent = nilIdx
		if node.left != nilIdx {
			stack = append(stack, node.left)
		}
		if node.right != nilIdx {
			stack = append(stack, node.right)
		}
		tree.arena.free(aux)
		released++
	}

	if released != tree.count {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] released nodes are not equal to the tree size")
	}
	tree.stats.RecordNodeCount(-released)
	tree.count = 0
	tree.arena.reset()
}

type RBTreeOpt[K infra.OrderedKey, V any] func(*rbTree[K, V])

func WithRBTreeDesc[K infra.OrderedKey, V any]() RBTreeOpt[K, V] {
	return func(tree *rbTree[K, V]) {
		tree.isDesc = true
	}
}

// WithRBTreeRemoveBorrowSucc copies the successor instead of the
// predecessor into a removed node which has two children.
func WithRBTreeRemoveBorrowSucc[K infra.OrderedKey, V any]() RBTreeOpt[K, V] {
	return func(tree *rbTree[K, V]) {
		tree.isRmBorrowSucc = true
	}
}

func WithRBTreeArenaPageSize[K infra.OrderedKey, V any](size uint32) RBTreeOpt[K, V] {
	return func(tree *rbTree[K, V]) {
		tree.arena = newRBArena[K, V](size)
	}
}

// WithRBTreeStats records the tree metrics by the global otel meter
// provider.
func WithRBTreeStats[K infra.OrderedKey, V any](name string) RBTreeOpt[K, V] {
	return func(tree *rbTree[K, V]) {
		tree.stats = newRBTreeStats(name)
	}
}

func NewRBTree[K infra.OrderedKey, V any](opts ...RBTreeOpt[K, V]) RBTree[K, V] {
	tree := &rbTree[K, V]{
		root:           nilIdx,
		count:          0,
		isDesc:         false,
		isRmBorrowSucc: false,
	}

	for _, o := range opts {
		o(tree)
	}

	if tree.arena == nil {
		tree.arena = newRBArena[K, V](defaultRBArenaPageSize)
	}
	if tree.isDesc {
		tree.kcmp = infra.DescendingKeyComparator[K]()
	} else {
		tree.kcmp = infra.AscendingKeyComparator[K]()
	}
	return tree
}

package tree

import (
	"bytes"
	randv2 "math/rand/v2"
	"slices"
	"strings"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

type checkData struct {
	color RBColor
	key   uint64
}

func requireForeach[V any](t *testing.T, tree RBTree[uint64, V], expected []checkData) {
	count := int64(0)
	tree.Foreach(func(idx int64, color RBColor, key uint64, val V) bool {
		require.Equal(t, expected[idx].color, color)
		require.Equal(t, expected[idx].key, key)
		count++
		return true
	})
	require.Equal(t, int64(len(expected)), count)
	require.NoError(t, Validate[uint64, V](tree))
}

func plainDump[K int | uint64, V any](t *testing.T, tree RBTree[K, V]) string {
	buf := &bytes.Buffer{}
	require.NoError(t, tree.Dump(buf, WithRBDumpNoColor()))
	return buf.String()
}

func TestNilRoot(t *testing.T) {
	tree := NewRBTree[uint64, uint64]()
	require.Nil(t, tree.Root())
	require.True(t, tree.Root() == nil)
	require.True(t, tree.IsEmpty())
	require.Equal(t, int64(0), tree.Len())
	require.NoError(t, Validate[uint64, uint64](tree))
	require.False(t, tree.Remove(1))
}

func TestRBTree_InsertRebalance(t *testing.T) {
	tree := NewRBTree[uint64, uint64]()

	// The root is painted into black lazily.
	require.NoError(t, tree.Insert(52, 1))
	requireForeach(t, tree, []checkData{
		{Red, 52},
	})

	require.NoError(t, tree.Insert(47, 1))
	requireForeach(t, tree, []checkData{
		{Red, 47}, {Black, 52},
	})

	require.NoError(t, tree.Insert(3, 1))
	requireForeach(t, tree, []checkData{
		{Red, 3}, {Black, 47}, {Red, 52},
	})
	require.Equal(t, uint64(47), tree.Root().Key())
	require.Equal(t, Black, tree.Root().Color())

	require.NoError(t, tree.Insert(35, 1))
	requireForeach(t, tree, []checkData{
		{Black, 3}, {Red, 35}, {Red, 47}, {Black, 52},
	})

	require.NoError(t, tree.Insert(24, 1))
	requireForeach(t, tree, []checkData{
		{Red, 3}, {Black, 24}, {Red, 35}, {Red, 47}, {Black, 52},
	})
	require.Equal(t, uint64(47), tree.Root().Key())
	require.Equal(t, uint64(24), tree.Root().Left().Key())
	require.Equal(t, uint64(47), tree.Root().Left().Parent().Key())
	require.Nil(t, tree.Root().Parent())
}

func TestRBTree_RemoveMin(t *testing.T) {
	tree := NewRBTree[uint64, uint64]()
	for _, key := range []uint64{52, 47, 3, 35, 24} {
		require.NoError(t, tree.Insert(key, key*10))
	}

	expected := [][]checkData{
		{{Black, 24}, {Red, 35}, {Red, 47}, {Black, 52}},
		{{Black, 35}, {Red, 47}, {Black, 52}},
		{{Black, 47}, {Red, 52}},
		{{Black, 52}},
		{},
	}
	for i, key := range []uint64{3, 24, 35, 47, 52} {
		k, v, err := tree.RemoveMin()
		require.NoError(t, err)
		require.Equal(t, key, k)
		require.Equal(t, key*10, v)
		requireForeach(t, tree, expected[i])
	}
	require.True(t, tree.IsEmpty())

	_, _, err := tree.RemoveMin()
	require.ErrorIs(t, err, ErrRBTreeEmpty)
}

func TestRBTree_Scenarios(t *testing.T) {
	newSquares := func() RBTree[int, int] {
		tree := NewRBTree[int, int]()
		for _, key := range []int{1, 2, 3, 4, 8, 7, 6, 5} {
			tree.Set(key, key*key)
			require.NoError(t, Validate[int, int](tree))
		}
		return tree
	}

	t.Run("A insert squares", func(tt *testing.T) {
		tree := newSquares()
		require.Equal(tt, int64(8), tree.Len())
		val, err := tree.Get(7)
		require.NoError(tt, err)
		require.Equal(tt, 49, val)
		require.Equal(tt, strings.Join([]string{
			"4(B)",
			"  2(R)",
			"    1(B)",
			"    3(B)",
			"  7(R)",
			"    6(B)",
			"      5(R)",
			"      ∅",
			"    8(B)",
		}, "\n")+"\n", plainDump[int, int](tt, tree))
	})
	t.Run("B remove", func(tt *testing.T) {
		tree := newSquares()
		require.True(tt, tree.Remove(8))
		require.NoError(tt, Validate[int, int](tree))
		require.Equal(tt, int64(7), tree.Len())
		require.Equal(tt, -1, tree.GetOrElse(8, -1))
		require.False(tt, tree.Remove(8))
		require.Equal(tt, strings.Join([]string{
			"4(B)",
			"  2(R)",
			"    1(B)",
			"    3(B)",
			"  6(R)",
			"    5(B)",
			"    7(B)",
		}, "\n")+"\n", plainDump[int, int](tt, tree))
	})
	t.Run("C not found", func(tt *testing.T) {
		tree := newSquares()
		_, err := tree.Get(9)
		require.Error(tt, err)
		require.ErrorIs(tt, err, ErrRBTreeKeyNotFound)
		require.Contains(tt, err.Error(), "key 9")
		_, ok := tree.Lookup(9)
		require.False(tt, ok)
	})
	t.Run("D sequential height", func(tt *testing.T) {
		tree := NewRBTree[int, int]()
		n := 1 << 12
		for i := 1; i <= n; i++ {
			tree.Set(i, i)
		}
		require.NoError(tt, Validate[int, int](tree))
		require.Equal(tt, int64(n), tree.Len())
		require.LessOrEqual(tt, Height[int, int](tree), MaxHeight(int64(n)))
	})
	t.Run("E remove all", func(tt *testing.T) {
		tree := NewRBTree[int, int]()
		keys := randv2.Perm(512)
		for _, key := range keys {
			tree.Set(key, key)
		}
		randv2.Shuffle(len(keys), func(i, j int) {
			keys[i], keys[j] = keys[j], keys[i]
		})
		for i, key := range keys {
			require.True(tt, tree.Remove(key))
			require.Equal(tt, int64(len(keys)-i-1), tree.Len())
			require.NoError(tt, Validate[int, int](tree))
		}
		require.True(tt, tree.IsEmpty())
		require.Nil(tt, tree.Root())
	})
}

func TestRBTree_RemoveBorrowPredOrSucc(t *testing.T) {
	type testcase struct {
		name     string
		opts     []RBTreeOpt[uint64, uint64]
		expected []string
	}
	testcases := []testcase{
		{
			name: "rm by pred",
			expected: []string{
				"6(R)",
				"  3(B)",
				"    2(B)",
				"      1(R)",
				"      ∅",
				"    5(B)",
				"  8(B)",
				"    7(B)",
				"    9(B)",
				"      ∅",
				"      10(R)",
			},
		},
		{
			name: "rm by succ",
			opts: []RBTreeOpt[uint64, uint64]{
				WithRBTreeRemoveBorrowSucc[uint64, uint64](),
			},
			expected: []string{
				"5(R)",
				"  2(B)",
				"    1(B)",
				"    3(B)",
				"  8(B)",
				"    6(B)",
				"      ∅",
				"      7(R)",
				"    9(B)",
				"      ∅",
				"      10(R)",
			},
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			tree := NewRBTree[uint64, uint64](tc.opts...)
			for i := uint64(1); i <= 10; i++ {
				tree.Set(i, i)
			}
			require.Equal(tt, uint64(4), tree.Root().Key())
			require.True(tt, tree.Remove(4))
			require.NoError(tt, Validate[uint64, uint64](tree))
			require.Equal(tt, strings.Join(tc.expected, "\n")+"\n", plainDump[uint64, uint64](tt, tree))
			for i := uint64(1); i <= 10; i++ {
				val, ok := tree.Lookup(i)
				require.Equal(tt, i != 4, ok)
				if ok {
					require.Equal(tt, i, val)
				}
			}
		})
	}
}

func TestRBTree_GetOrInsert(t *testing.T) {
	tree := NewRBTree[string, []string]()
	calls := 0
	factory := func() []string {
		calls++
		return make([]string, 0, 4)
	}

	ref := tree.GetOrInsert("fruits", factory)
	*ref = append(*ref, "apple")
	ref = tree.GetOrInsert("fruits", factory)
	*ref = append(*ref, "banana")
	require.Equal(t, 1, calls)
	require.Equal(t, int64(1), tree.Len())

	val, err := tree.Get("fruits")
	require.NoError(t, err)
	require.Equal(t, []string{"apple", "banana"}, val)
}

func TestRBTree_GetOrInsertFactoryMutation(t *testing.T) {
	newTree := func() RBTree[int, int] {
		tree := NewRBTree[int, int]()
		for key := 10; key <= 50; key += 10 {
			tree.Set(key, key)
		}
		return tree
	}

	t.Run("factory inserts the neighbors", func(tt *testing.T) {
		tree := newTree()
		ref := tree.GetOrInsert(35, func() int {
			tree.Set(36, 36)
			tree.Set(37, 37)
			return 35
		})
		require.Equal(tt, 35, *ref)
		require.NoError(tt, Validate[int, int](tree))
		require.Equal(tt, int64(8), tree.Len())
		for _, key := range []int{35, 36, 37} {
			require.Equal(tt, key, tree.GetOrElse(key, -1))
		}
		require.Equal(tt, []int{10, 20, 30, 35, 36, 37, 40, 50}, slices.Collect(tree.Keys()))
	})
	t.Run("factory removes the parent", func(tt *testing.T) {
		tree := newTree()
		ref := tree.GetOrInsert(45, func() int {
			require.True(tt, tree.Remove(40))
			require.True(tt, tree.Remove(50))
			return 45
		})
		require.Equal(tt, 45, *ref)
		require.NoError(tt, Validate[int, int](tree))
		require.Equal(tt, []int{10, 20, 30, 45}, slices.Collect(tree.Keys()))
	})
	t.Run("factory inserts the same key", func(tt *testing.T) {
		tree := newTree()
		ref := tree.GetOrInsert(25, func() int {
			tree.Set(25, 1)
			return 2
		})
		require.Equal(tt, 1, *ref)
		require.Equal(tt, int64(6), tree.Len())
		require.NoError(tt, Validate[int, int](tree))
	})
	t.Run("factory releases the tree", func(tt *testing.T) {
		tree := newTree()
		ref := tree.GetOrInsert(5, func() int {
			tree.Release()
			return 5
		})
		require.Equal(tt, 5, *ref)
		require.Equal(tt, int64(1), tree.Len())
		require.NoError(tt, Validate[int, int](tree))
	})
}

func TestRBTree_SetAndInsert(t *testing.T) {
	tree := NewRBTree[int, string]()

	ref := tree.Set(1, "a")
	require.Equal(t, "a", *ref)
	// Set never overwrites.
	ref = tree.Set(1, "b")
	require.Equal(t, "a", *ref)
	*ref = "c"
	require.Equal(t, "c", tree.GetOrElse(1, ""))

	require.NoError(t, tree.Insert(1, "d"))
	require.Equal(t, "d", tree.GetOrElse(1, ""))
	require.ErrorIs(t, tree.Insert(1, "e", true), ErrRBTreeReplaceDisabled)
	require.Equal(t, "d", tree.GetOrElse(1, ""))
	require.NoError(t, tree.Insert(2, "f", true))
	require.Equal(t, int64(2), tree.Len())
}

func TestRBTree_GetOrElseIdempotence(t *testing.T) {
	tree := NewRBTree[int, int]()
	for i := 0; i < 64; i += 2 {
		tree.Set(i, i)
	}
	before := plainDump[int, int](t, tree)
	for i := 0; i < 8; i++ {
		require.Equal(t, -1, tree.GetOrElse(33, -1))
	}
	require.Equal(t, int64(32), tree.Len())
	require.Equal(t, before, plainDump[int, int](t, tree))
}

func TestRBTree_InsertThenRemoveRoundTrip(t *testing.T) {
	tree := NewRBTree[int, int]()
	for _, key := range randv2.Perm(256) {
		tree.Set(key*2, key)
	}
	entries := func() []lo.Entry[int, int] {
		res := make([]lo.Entry[int, int], 0, tree.Len())
		for k, v := range tree.Entries() {
			res = append(res, lo.Entry[int, int]{Key: k, Value: *v})
		}
		return res
	}
	before := entries()
	for i := 0; i < 64; i++ {
		key := randv2.IntN(512)*2 + 1
		tree.Set(key, key)
		require.NoError(t, Validate[int, int](tree))
		require.True(t, tree.Remove(key))
		require.NoError(t, Validate[int, int](tree))
		require.Equal(t, before, entries())
	}
}

func TestRBTree_Release(t *testing.T) {
	tree := NewRBTree[uint64, uint64](WithRBTreeArenaPageSize[uint64, uint64](16))
	insertTotal := uint64(10_000)
	rand := uint64(randv2.Uint32() % 1_000)
	for i := uint64(0); i < insertTotal; i++ {
		require.NoError(t, tree.Insert(i, 1))
		if i%1000 == rand {
			require.NoError(t, Validate[uint64, uint64](tree))
		}
	}
	tree.Foreach(func(idx int64, color RBColor, key uint64, val uint64) bool {
		require.Equal(t, uint64(idx), key)
		return true
	})
	tree.Release()
	require.Equal(t, int64(0), tree.Len())
	require.Nil(t, tree.Root())
	require.Equal(t, int64(0), tree.(*rbTree[uint64, uint64]).arena.len())

	// Reusable after release.
	tree.Set(7, 49)
	require.Equal(t, uint64(49), tree.GetOrElse(7, 0))
	require.NoError(t, Validate[uint64, uint64](tree))
	tree.Release()
	tree.Release()
	require.True(t, tree.IsEmpty())
}

func rbtreeRandomInsertAndRemoveSequentialNumberRunCore(t *testing.T, opts ...RBTreeOpt[uint64, uint64]) {
	total := uint64(1000)
	insertTotal := uint64(float64(total) * 0.8)
	removeTotal := uint64(float64(total) * 0.2)

	tree := NewRBTree[uint64, uint64](opts...)
	isDesc := tree.(*rbTree[uint64, uint64]).isDesc

	for i := uint64(0); i < insertTotal+removeTotal; i++ {
		require.NoError(t, tree.Insert(i, 1))
		require.NoError(t, Validate[uint64, uint64](tree))
	}
	require.LessOrEqual(t, Height[uint64, uint64](tree), MaxHeight(tree.Len()))

	for i := insertTotal; i < removeTotal+insertTotal; i++ {
		require.True(t, tree.Remove(i))
		require.NoError(t, Validate[uint64, uint64](tree))
	}
	tree.Foreach(func(idx int64, color RBColor, key uint64, val uint64) bool {
		if isDesc {
			require.Equal(t, insertTotal-1-uint64(idx), key)
		} else {
			require.Equal(t, uint64(idx), key)
		}
		return true
	})
}

func TestRBTreeRandomInsertAndRemove_SequentialNumber(t *testing.T) {
	type testcase struct {
		name string
		opts []RBTreeOpt[uint64, uint64]
	}
	testcases := []testcase{
		{
			name: "rm by pred",
		},
		{
			name: "rm by succ",
			opts: []RBTreeOpt[uint64, uint64]{
				WithRBTreeRemoveBorrowSucc[uint64, uint64](),
			},
		},
		{
			name: "desc rm by pred",
			opts: []RBTreeOpt[uint64, uint64]{
				WithRBTreeDesc[uint64, uint64](),
			},
		},
		{
			name: "desc rm by succ small page",
			opts: []RBTreeOpt[uint64, uint64]{
				WithRBTreeDesc[uint64, uint64](),
				WithRBTreeRemoveBorrowSucc[uint64, uint64](),
				WithRBTreeArenaPageSize[uint64, uint64](3),
			},
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			rbtreeRandomInsertAndRemoveSequentialNumberRunCore(tt, tc.opts...)
		})
	}
}

func rbtreeRandomInsertAndRemoveRandomNumberRunCore(t *testing.T, total int, rbRmBySucc bool, violationCheck bool) {
	insertTotal := int(float64(total) * 0.8)

	elements := randv2.Perm(total * 4)[:total]
	insertElements := slices.Clone(elements[:insertTotal])
	removeElements := slices.Clone(elements[insertTotal:])

	opts := make([]RBTreeOpt[int, int], 0, 1)
	if rbRmBySucc {
		opts = append(opts, WithRBTreeRemoveBorrowSucc[int, int]())
	}
	tree := NewRBTree[int, int](opts...)

	for i, key := range insertElements {
		require.NoError(t, tree.Insert(key, i))
		if violationCheck {
			require.NoError(t, Validate[int, int](tree))
		}
	}
	for _, key := range removeElements {
		require.NoError(t, tree.Insert(key, -1))
		if violationCheck {
			require.NoError(t, Validate[int, int](tree))
		}
	}
	require.NoError(t, Validate[int, int](tree))
	require.Equal(t, int64(total), tree.Len())

	for _, key := range removeElements {
		require.Truef(t, tree.Remove(key), "key %d", key)
		if violationCheck {
			require.NoError(t, Validate[int, int](tree))
		}
	}
	require.NoError(t, Validate[int, int](tree))

	for i, key := range insertElements {
		val, err := tree.Get(key)
		require.NoError(t, err)
		require.Equal(t, i, val)
	}
	slices.Sort(insertElements)
	require.Equal(t, insertElements, slices.Collect(tree.Keys()))
}

func TestRBTreeRandomInsertAndRemove_RandomNumber(t *testing.T) {
	type testcase struct {
		name           string
		rbRmBySucc     bool
		total          int
		violationCheck bool
	}
	testcases := []testcase{
		{
			name:  "rm by pred 100000",
			total: 100000,
		},
		{
			name:       "rm by succ 100000",
			rbRmBySucc: true,
			total:      100000,
		},
		{
			name:           "violation check rm by pred 2000",
			total:          2000,
			violationCheck: true,
		},
		{
			name:           "violation check rm by succ 2000",
			rbRmBySucc:     true,
			total:          2000,
			violationCheck: true,
		},
	}
	t.Parallel()
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			rbtreeRandomInsertAndRemoveRandomNumberRunCore(tt, tc.total, tc.rbRmBySucc, tc.violationCheck)
		})
	}
}

func BenchmarkRBTree_Random(b *testing.B) {
	testByBytes := []byte(`abc`)

	b.StopTimer()
	tree := NewRBTree[int, []byte]()

	rngArr := make([]int, 0, b.N)
	for i := 0; i < b.N; i++ {
		rngArr = append(rngArr, randv2.Int())
	}

	b.StartTimer()
	for i := 0; i < b.N; i++ {
		err := tree.Insert(rngArr[i], testByBytes)
		if err != nil {
			panic(err)
		}
	}
}

func BenchmarkRBTree_Serial(b *testing.B) {
	testByBytes := []byte(`abc`)

	b.StopTimer()
	tree := NewRBTree[int, []byte]()

	b.StartTimer()
	for i := 0; i < b.N; i++ {
		tree.Set(i, testByBytes)
	}
}

func BenchmarkRBTree_RemoveMin(b *testing.B) {
	b.StopTimer()
	tree := NewRBTree[int, int]()
	for i := 0; i < b.N; i++ {
		tree.Set(i, i)
	}

	b.StartTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := tree.RemoveMin(); err != nil {
			panic(err)
		}
	}
}

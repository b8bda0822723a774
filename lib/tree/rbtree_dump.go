package tree

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

const rbDumpEmptySlot = "∅"

type rbDumpOptions struct {
	indent  string
	noColor bool
}

type RBDumpOpt func(*rbDumpOptions)

func WithRBDumpIndent(indent string) RBDumpOpt {
	return func(opts *rbDumpOptions) {
		opts.indent = indent
	}
}

func WithRBDumpNoColor() RBDumpOpt {
	return func(opts *rbDumpOptions) {
		opts.noColor = true
	}
}

/*
Dump writes the tree in pre-order, one node per line and indented by
the depth. The left child is written before the right child, an
empty slot is written as ∅ if its sibling is not empty.

	4(B)
	  2(R)
	    1(B)
	    3(B)
	  7(R)
	    6(B)
	      5(R)
	      ∅
	    8(B)
*/
func (tree *rbTree[K, V]) Dump(w io.Writer, opts ...RBDumpOpt) error {
	o := &rbDumpOptions{
		indent: "  ",
	}
	for _, opt := range opts {
		opt(o)
	}

	red, black := color.New(color.FgRed), color.New(color.FgHiBlack)
	if o.noColor {
		red.DisableColor()
		black.DisableColor()
	} else {
		red.EnableColor()
		black.EnableColor()
	}

	type frame struct {
		idx   uint32
		depth int
	}
	if tree.root == nilIdx {
		_, err := fmt.Fprintln(w, rbDumpEmptySlot)
		return err
	}

	stack := make([]frame, 0, MaxHeight(tree.count)+1)
	defer func() {
		clear(stack)
	}()
	stack = append(stack, frame{idx: tree.root})

	for size := len(stack); size > 0; size = len(stack) {
		f := stack[size-1]
		stack = stack[:size-1]
		prefix := strings.Repeat(o.indent, f.depth)
		if f.idx == nilIdx {
			if _, err := fmt.Fprintln(w, prefix+rbDumpEmptySlot); err != nil {
				return err
			}
			continue
		}

		node := tree.node(f.idx)
		var line string
		if node.color == Red {
			line = red.Sprintf("%v(R)", node.key)
		} else {
			line = black.Sprintf("%v(B)", node.key)
		}
		if _, err := fmt.Fprintln(w, prefix+line); err != nil {
			return err
		}
		if node.left == nilIdx && node.right == nilIdx {
			continue
		}
		// Right first, the left child is popped first.
		stack = append(stack,
			frame{idx: node.right, depth: f.depth + 1},
			frame{idx: node.left, depth: f.depth + 1},
		)
	}
	return nil
}

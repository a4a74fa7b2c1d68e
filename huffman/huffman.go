// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package huffman builds Huffman prefix codes
// from symbol statistics.
package huffman

import (
	"time"

	"github.com/SnellerInc/entropy/heap"
	"github.com/SnellerInc/entropy/prefix"
	"github.com/SnellerInc/entropy/symbols"
)

// Algorithm is the name recorded in results.
const Algorithm = "huffman"

const none = -1

// node is one node of a Tree.
// Leaves have left == right == none.
type node struct {
	sym         rune
	freq        int
	left, right int32
}

func (n *node) leaf() bool { return n.left == none }

// Tree is a Huffman code tree.
// Nodes are stored in an arena and refer to
// their children by index; the root is the
// last node added.
type Tree struct {
	nodes []node
}

// Build constructs the Huffman tree for recs.
//
// Leaves enter a min-heap in record order.
// The two lowest-frequency nodes are removed
// repeatedly and joined under a new node,
// the first removed becoming the left child.
// Nodes of equal frequency leave the heap in
// the order they entered it.
func Build(recs []symbols.Record) *Tree {
	t := &Tree{nodes: make([]node, 0, 2*len(recs))}
	if len(recs) == 0 {
		return t
	}
	q := heap.New(len(recs), func(x, y int32) bool {
		return t.nodes[x].freq < t.nodes[y].freq
	})
	for i := range recs {
		t.nodes = append(t.nodes, node{
			sym:   recs[i].Symbol,
			freq:  recs[i].Count,
			left:  none,
			right: none,
		})
		q.Push(int32(len(t.nodes) - 1))
	}
	for q.Len() > 1 {
		left := q.Pop()
		right := q.Pop()
		t.nodes = append(t.nodes, node{
			freq:  t.nodes[left].freq + t.nodes[right].freq,
			left:  left,
			right: right,
		})
		q.Push(int32(len(t.nodes) - 1))
	}
	return t
}

func (t *Tree) root() int32 { return int32(len(t.nodes) - 1) }

// Len returns the number of nodes in t.
func (t *Tree) Len() int { return len(t.nodes) }

// Weight returns the combined frequency of
// all leaves of t.
func (t *Tree) Weight() int {
	if len(t.nodes) == 0 {
		return 0
	}
	return t.nodes[t.root()].freq
}

// Codes assigns a code to every leaf of t.
// A left branch contributes "0" and a right
// branch "1". A tree consisting of a single
// leaf assigns "0" to it.
func (t *Tree) Codes() prefix.Table {
	codes := make(prefix.Table, (t.Len()+1)/2)
	if len(t.nodes) == 0 {
		return codes
	}
	root := &t.nodes[t.root()]
	if root.leaf() {
		codes[root.sym] = "0"
		return codes
	}
	buf := make([]byte, 0, 32)
	t.walk(t.root(), buf, codes)
	return codes
}

func (t *Tree) walk(i int32, path []byte, codes prefix.Table) {
	n := &t.nodes[i]
	if n.leaf() {
		codes[n.sym] = string(path)
		return
	}
	t.walk(n.left, append(path, '0'), codes)
	t.walk(n.right, append(path, '1'), codes)
}

// Encode builds the Huffman code for st and
// measures it against the distribution.
func Encode(st *symbols.Stats) (*prefix.Result, error) {
	start := time.Now()
	codes := Build(st.Symbols).Codes()
	return prefix.NewResult(Algorithm, st, codes, time.Since(start))
}

package merkle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Tree is a keccak-256 merkle tree over 32-byte leaf hashes.
//
// Leaves are sorted bytewise before construction and sibling pairs are
// sorted before hashing, so the root depends only on the leaf set and
// proofs verify without position information. The same leaf set always
// yields the same root regardless of insertion order.
//
// Nodes are stored as a flat array of length 2n-1: the root at index 0,
// children of node i at 2i+1 and 2i+2, leaves occupying the tail.
type Tree struct {
	nodes  [][]byte
	leaves int
	index  map[string]int
}

// NewTree builds a tree over the given leaf hashes. Duplicate leaves are
// kept; an empty leaf set is an error since it has no meaningful root.
func NewTree(leaves [][]byte) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, ErrEmptyLeaves
	}

	sorted := make([][]byte, len(leaves))
	for i, l := range leaves {
		if len(l) != 32 {
			return nil, fmt.Errorf("%w: leaf %d is %d bytes", ErrInvalidLeaf, i, len(l))
		}
		sorted[i] = make([]byte, 32)
		copy(sorted[i], l)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i], sorted[j]) < 0
	})

	n := len(sorted)
	nodes := make([][]byte, 2*n-1)
	for i, l := range sorted {
		nodes[len(nodes)-1-i] = l
	}
	for i := len(nodes) - 1 - n; i >= 0; i-- {
		nodes[i] = hashPair(nodes[2*i+1], nodes[2*i+2])
	}

	return &Tree{nodes: nodes, leaves: n, index: leafIndex(nodes, n)}, nil
}

// hashPair hashes two sibling nodes, smaller one first.
func hashPair(a, b []byte) []byte {
	if bytes.Compare(a, b) > 0 {
		a, b = b, a
	}
	return Keccak256(a, b)
}

// leafIndex maps each leaf hash to its node position. For duplicate
// leaves the first position wins; their proofs are interchangeable.
func leafIndex(nodes [][]byte, leaves int) map[string]int {
	idx := make(map[string]int, leaves)
	for i := len(nodes) - leaves; i < len(nodes); i++ {
		k := string(nodes[i])
		if _, ok := idx[k]; !ok {
			idx[k] = i
		}
	}
	return idx
}

// Root returns the tree root as a 0x-prefixed hex string.
func (t *Tree) Root() string {
	return hexHash(t.nodes[0])
}

// Proof returns the sibling-hash path proving membership of the given
// leaf, bottom-up. The second return is false when the leaf is not in
// the tree; that is a lookup miss, not a tree error.
func (t *Tree) Proof(leaf []byte) ([]string, bool) {
	i, ok := t.index[string(leaf)]
	if !ok {
		return nil, false
	}
	var path []string
	for i > 0 {
		sibling := i + 1
		if i%2 == 0 {
			sibling = i - 1
		}
		path = append(path, hexHash(t.nodes[sibling]))
		i = (i - 1) / 2
	}
	if path == nil {
		path = []string{}
	}
	return path, true
}

// Verify checks a proof produced by Proof against a root.
func Verify(root string, leaf []byte, proof []string) bool {
	want, err := decodeHash(root)
	if err != nil || len(leaf) != 32 {
		return false
	}
	h := leaf
	for _, p := range proof {
		sib, err := decodeHash(p)
		if err != nil {
			return false
		}
		h = hashPair(h, sib)
	}
	return bytes.Equal(h, want)
}

// treeDump is the serialized tree representation.
type treeDump struct {
	Format string   `json:"format"`
	Leaves int      `json:"leaves"`
	Nodes  []string `json:"nodes"`
}

const dumpFormat = "vebribe-simple-v1"

// Dump serializes the tree so proofs can later be regenerated without
// recomputing vote power.
func (t *Tree) Dump() ([]byte, error) {
	d := treeDump{Format: dumpFormat, Leaves: t.leaves, Nodes: make([]string, len(t.nodes))}
	for i, n := range t.nodes {
		d.Nodes[i] = hexHash(n)
	}
	return json.Marshal(d)
}

// Load reconstructs a tree from Dump output.
func Load(data []byte) (*Tree, error) {
	var d treeDump
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDump, err)
	}
	if d.Format != dumpFormat {
		return nil, fmt.Errorf("%w: unknown format %q", ErrInvalidDump, d.Format)
	}
	if d.Leaves < 1 || len(d.Nodes) != 2*d.Leaves-1 {
		return nil, fmt.Errorf("%w: %d nodes for %d leaves", ErrInvalidDump, len(d.Nodes), d.Leaves)
	}
	nodes := make([][]byte, len(d.Nodes))
	for i, s := range d.Nodes {
		n, err := decodeHash(s)
		if err != nil {
			return nil, fmt.Errorf("%w: node %d", ErrInvalidDump, i)
		}
		nodes[i] = n
	}
	return &Tree{nodes: nodes, leaves: d.Leaves, index: leafIndex(nodes, d.Leaves)}, nil
}

package testutil

import (
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// Tree is a reference Merkle tree used to produce proof fixtures in tests.
// It follows the layout of the standard off-chain tree builder: the tree is a
// flat array with the root at index 0, the children of node i at 2i+1 and
// 2i+2, and leaf i stored at index len(nodes)-1-i.
type Tree struct {
	nodes     []common.Hash
	leafCount int
}

// MultiProof is a multiproof fixture as emitted by the tree builder.
type MultiProof struct {
	Leaves     []common.Hash
	Proof      []common.Hash
	ProofFlags []bool
}

// BuildTree builds a tree over the given leaf hashes in the given order.
func BuildTree(leaves []common.Hash, hasher func(a, b common.Hash) common.Hash) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, fmt.Errorf("cannot build merkle tree from empty leaf list")
	}

	nodes := make([]common.Hash, 2*len(leaves)-1)
	for i, leaf := range leaves {
		nodes[len(nodes)-1-i] = leaf
	}
	for i := len(nodes) - 1 - len(leaves); i >= 0; i-- {
		nodes[i] = hasher(nodes[leftChildIndex(i)], nodes[rightChildIndex(i)])
	}

	return &Tree{nodes: nodes, leafCount: len(leaves)}, nil
}

// Root returns the tree root.
func (t *Tree) Root() common.Hash {
	return t.nodes[0]
}

// Leaf returns the leaf at the given position.
func (t *Tree) Leaf(leafIndex int) common.Hash {
	return t.nodes[t.treeIndex(leafIndex)]
}

// LeafCount returns the number of leaves.
func (t *Tree) LeafCount() int {
	return t.leafCount
}

// GetProof returns the sibling path from the given leaf to the root.
func (t *Tree) GetProof(leafIndex int) ([]common.Hash, error) {
	if leafIndex < 0 || leafIndex >= t.leafCount {
		return nil, fmt.Errorf("leaf index %d out of bounds (tree has %d leaves)", leafIndex, t.leafCount)
	}

	proof := make([]common.Hash, 0)
	for i := t.treeIndex(leafIndex); i > 0; i = parentIndex(i) {
		proof = append(proof, t.nodes[siblingIndex(i)])
	}
	return proof, nil
}

// GetMultiProof returns a multiproof for the given leaves. Leaves in the result
// are ordered by descending tree index, which is the order the verifier expects.
func (t *Tree) GetMultiProof(leafIndices []int) (*MultiProof, error) {
	indices := make([]int, 0, len(leafIndices))
	for _, leafIndex := range leafIndices {
		if leafIndex < 0 || leafIndex >= t.leafCount {
			return nil, fmt.Errorf("leaf index %d out of bounds (tree has %d leaves)", leafIndex, t.leafCount)
		}
		indices = append(indices, t.treeIndex(leafIndex))
	}
	sort.Sort(sort.Reverse(sort.IntSlice(indices)))
	for i := 1; i < len(indices); i++ {
		if indices[i] == indices[i-1] {
			return nil, fmt.Errorf("cannot prove duplicated leaf index")
		}
	}

	stack := append([]int(nil), indices...)
	proof := make([]common.Hash, 0)
	proofFlags := make([]bool, 0)

	for len(stack) > 0 && stack[0] > 0 {
		j := stack[0]
		stack = stack[1:]
		s := siblingIndex(j)

		if len(stack) > 0 && stack[0] == s {
			proofFlags = append(proofFlags, true)
			stack = stack[1:]
		} else {
			proofFlags = append(proofFlags, false)
			proof = append(proof, t.nodes[s])
		}
		stack = append(stack, parentIndex(j))
	}

	if len(indices) == 0 {
		proof = append(proof, t.nodes[0])
	}

	leaves := make([]common.Hash, len(indices))
	for i, idx := range indices {
		leaves[i] = t.nodes[idx]
	}

	return &MultiProof{
		Leaves:     leaves,
		Proof:      proof,
		ProofFlags: proofFlags,
	}, nil
}

func (t *Tree) treeIndex(leafIndex int) int {
	return len(t.nodes) - 1 - leafIndex
}

func leftChildIndex(i int) int  { return 2*i + 1 }
func rightChildIndex(i int) int { return 2*i + 2 }
func parentIndex(i int) int     { return (i - 1) / 2 }

func siblingIndex(i int) int {
	if i%2 == 0 {
		return i - 1
	}
	return i + 1
}

package merkle_test

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/Layr-Labs/merkle-verifier-go/pkg/merkle"
)

func exampleLeaves() []common.Hash {
	return []common.Hash{
		crypto.Keccak256Hash([]byte("a")),
		crypto.Keccak256Hash([]byte("b")),
		crypto.Keccak256Hash([]byte("c")),
		crypto.Keccak256Hash([]byte("d")),
	}
}

func ExampleVerify() {
	l := exampleLeaves()
	h := merkle.CommutativeKeccak256
	root := h(h(l[0], l[1]), h(l[2], l[3]))

	// Proof for l[3]: its sibling, then the other subtree
	proof := []common.Hash{l[2], h(l[0], l[1])}

	fmt.Println(merkle.Verify(proof, root, l[3]))
	fmt.Println(merkle.Verify(proof, root, l[1]))
	// Output:
	// true
	// false
}

func ExampleMultiProofVerify() {
	l := exampleLeaves()
	h := merkle.CommutativeKeccak256
	root := h(h(l[0], l[1]), h(l[2], l[3]))

	// Prove l[0] and l[2] together. Two leaf/proof pairs, then the two
	// computed hashes are combined.
	valid, err := merkle.MultiProofVerify(
		[]common.Hash{l[1], l[3]},
		[]bool{false, false, true},
		root,
		[]common.Hash{l[0], l[2]},
	)
	fmt.Println(valid, err)

	// One flag too many breaks the length invariant
	_, err = merkle.MultiProofVerify(
		[]common.Hash{l[1], l[3]},
		[]bool{false, false, true, true},
		root,
		[]common.Hash{l[0], l[2]},
	)
	fmt.Println(err != nil)
	// Output:
	// true <nil>
	// true
}

/*
Package merkle verifies binary Merkle tree proofs against an expected root.

Two proof shapes are supported.

A single proof is the list of sibling hashes from a leaf up to the root. Siblings
are consumed left to right and combined with a commutative pair hasher, so the
proof does not record which side each sibling sits on.

A multiproof proves several leaves at once and is a triple (leaves, proof,
proofFlags). It rebuilds the root with two queues: the node queue, which yields
the leaves first and then the hashes computed by earlier steps, and the proof
queue. For every flag one internal node is computed. Its first operand comes
from the node queue; its second comes from the node queue when the flag is true
and from the proof queue when it is false.

Leaf ordering is a protocol contract with the tree builder and cannot be derived
by the verifier. The builder stores the tree as an array with the root at index
0, the children of i at 2i+1 and 2i+2, and the leaves at the tail in reverse
order. Multiproof leaves must be supplied in descending array index order, and
the builder walks that same order with a stack to emit the proof and flags:

	tree (leaves L0..L3)      multiproof for {L0, L2}
	        0                 leaves     = [L0, L2]
	    1       2             proof      = [L1, L3]
	  3   4   5   6           proofFlags = [false, false, true]
	 L3  L2  L1  L0

Leaves are never hashed by this package. Callers hash their data first, for
example with StandardLeafHash.
*/
package merkle

package engine

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// zeroRoot is the sentinel committed for rounds with no matches.
var zeroRoot = common.Hash{}

type merkleTree struct {
	root   common.Hash
	proofs [][]common.Hash
}

// buildMerkleTree folds the leaves bottom-up, recording the sibling path of
// every leaf as it goes. Leaves are taken in emission order and never
// re-sorted. An odd trailing node at any level is paired with itself, and the
// proof records that self-duplicate so verification replays the exact same
// fold.
func buildMerkleTree(leaves []common.Hash) *merkleTree {
	if len(leaves) == 0 {
		return &merkleTree{root: zeroRoot}
	}

	proofs := make([][]common.Hash, len(leaves))
	pos := make([]int, len(leaves)) // position of leaf i's ancestor in the current level
	for i := range pos {
		pos[i] = i
	}

	level := append([]common.Hash(nil), leaves...)
	for len(level) > 1 {
		for i := range proofs {
			sib := pos[i] ^ 1
			if sib >= len(level) {
				sib = pos[i]
			}
			proofs[i] = append(proofs[i], level[sib])
			pos[i] /= 2
		}

		next := make([]common.Hash, (len(level)+1)/2)
		for j := 0; j < len(level); j += 2 {
			r := j + 1
			if r == len(level) {
				r = j
			}
			next[j/2] = hashPair(level[j], level[r])
		}
		level = next
	}

	return &merkleTree{root: level[0], proofs: proofs}
}

// hashPair is the commutative pairing rule: children are ordered by unsigned
// byte value before hashing, so the verifier never tracks left/right.
func hashPair(a, b common.Hash) common.Hash {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return crypto.Keccak256Hash(a[:], b[:])
}

// VerifyProof replays a sibling path against a committed root under the
// sorted-pair rule. This mirrors what the on-chain verifier executes.
func VerifyProof(leaf common.Hash, proof []common.Hash, root common.Hash) bool {
	h := leaf
	for _, sib := range proof {
		h = hashPair(h, sib)
	}
	return h == root
}

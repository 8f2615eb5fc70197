package merkle

import (
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/Layr-Labs/verified-messages-go/pkg/types"
)

// BuildMerkleTree creates a binary merkle tree from registry keys.
// The keys are sorted ascending before building the tree so every replica
// holding the same registry computes the same root.
//
// If there's an odd number of nodes at any level, the last node is duplicated.
func BuildMerkleTree(keys []types.RegistryKey) (*MerkleTree, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("cannot build merkle tree from empty key list")
	}

	sortedKeys := SortKeys(keys)
	for i := 1; i < len(sortedKeys); i++ {
		if sortedKeys[i] == sortedKeys[i-1] {
			return nil, fmt.Errorf("duplicate registry key %s", sortedKeys[i])
		}
	}

	leaves := make([]common.Hash, len(sortedKeys))
	for i, key := range sortedKeys {
		leaves[i] = HashLeaf(key)
	}

	// Build tree levels bottom-up
	levels := make([][]common.Hash, 0)
	levels = append(levels, leaves)

	currentLevel := leaves
	for len(currentLevel) > 1 {
		nextLevel := make([]common.Hash, 0, (len(currentLevel)+1)/2)

		for i := 0; i < len(currentLevel); i += 2 {
			left := currentLevel[i]
			right := left
			if i+1 < len(currentLevel) {
				right = currentLevel[i+1]
			}
			nextLevel = append(nextLevel, hashPair(left, right))
		}

		levels = append(levels, nextLevel)
		currentLevel = nextLevel
	}

	return &MerkleTree{
		Keys:   sortedKeys,
		Leaves: leaves,
		Root:   currentLevel[0],
		levels: levels,
	}, nil
}

// IndexOf returns the leaf index of key, or false if the key is not in the tree.
func (mt *MerkleTree) IndexOf(key types.RegistryKey) (int, bool) {
	i := sort.Search(len(mt.Keys), func(i int) bool {
		return !mt.Keys[i].Less(key)
	})
	if i < len(mt.Keys) && mt.Keys[i] == key {
		return i, true
	}
	return 0, false
}

// GenerateProof creates a merkle proof for the leaf at the given index.
// The proof consists of sibling hashes along the path from leaf to root.
func (mt *MerkleTree) GenerateProof(leafIndex int) (*MerkleProof, error) {
	if leafIndex < 0 || leafIndex >= len(mt.Leaves) {
		return nil, fmt.Errorf("leaf index %d out of bounds (tree has %d leaves)", leafIndex, len(mt.Leaves))
	}

	proof := make([]common.Hash, 0, len(mt.levels)-1)
	index := leafIndex

	for level := 0; level < len(mt.levels)-1; level++ {
		currentLevel := mt.levels[level]

		siblingIndex := index + 1
		if index%2 == 1 {
			siblingIndex = index - 1
		}
		// Last node on an odd level is paired with itself
		if siblingIndex >= len(currentLevel) {
			siblingIndex = index
		}

		proof = append(proof, currentLevel[siblingIndex])
		index = index / 2
	}

	return &MerkleProof{
		LeafIndex: leafIndex,
		Leaf:      mt.Leaves[leafIndex],
		Proof:     proof,
	}, nil
}

// VerifyProof verifies that a leaf is included in the merkle tree with the given root.
func VerifyProof(proof *MerkleProof, root common.Hash) bool {
	if proof == nil || proof.LeafIndex < 0 {
		return false
	}

	currentHash := proof.Leaf
	index := proof.LeafIndex

	for _, siblingHash := range proof.Proof {
		if index%2 == 0 {
			currentHash = hashPair(currentHash, siblingHash)
		} else {
			currentHash = hashPair(siblingHash, currentHash)
		}
		index = index / 2
	}

	return currentHash == root
}

// HashLeaf returns keccak256(key), the leaf committed for a posted record.
func HashLeaf(key types.RegistryKey) common.Hash {
	return crypto.Keccak256Hash(key[:])
}

// SortKeys returns a sorted copy of keys.
func SortKeys(keys []types.RegistryKey) []types.RegistryKey {
	sorted := make([]types.RegistryKey, len(keys))
	copy(sorted, keys)

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Less(sorted[j])
	})

	return sorted
}

// hashPair computes keccak256(left || right) for two 32-byte hashes.
func hashPair(left, right common.Hash) common.Hash {
	return crypto.Keccak256Hash(left[:], right[:])
}

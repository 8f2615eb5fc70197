package merkle

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/Layr-Labs/verified-messages-go/pkg/types"
)

// MerkleTree represents a binary merkle tree built over posted record keys.
// The tree uses keccak256 hashing for Solidity compatibility.
type MerkleTree struct {
	// Keys contains the registry keys in leaf order (ascending)
	Keys []types.RegistryKey

	// Leaves contains the leaf hashes, one per key
	Leaves []common.Hash

	// Root is the merkle root hash
	Root common.Hash

	// levels stores all tree levels for proof generation
	// levels[0] = leaves, levels[len-1] = root
	levels [][]common.Hash
}

// MerkleProof represents a proof that a leaf is included in the tree.
// The proof consists of sibling hashes along the path from leaf to root.
type MerkleProof struct {
	// LeafIndex is the index of the leaf in the sorted leaves array
	LeafIndex int `json:"leafIndex"`

	// Leaf is the hash of the leaf being proven
	Leaf common.Hash `json:"leaf"`

	// Proof contains the sibling hashes from leaf to root
	// proof[0] is the sibling of the leaf, proof[len-1] is near the root
	Proof []common.Hash `json:"proof"`
}

package merkle

import (
	"fmt"
	"testing"
)

// BenchmarkMerkleTreeBuild benchmarks merkle tree construction with various sizes
func BenchmarkMerkleTreeBuild(b *testing.B) {
	sizes := []int{10, 100, 1000, 10000}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("Keys_%d", size), func(b *testing.B) {
			keys := createTestKeys(size)
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				_, _ = BuildMerkleTree(keys)
			}
		})
	}
}

// BenchmarkMerkleProofGeneration benchmarks proof generation
func BenchmarkMerkleProofGeneration(b *testing.B) {
	sizes := []int{10, 100, 1000}

	for _, size := range sizes {
		tree, _ := BuildMerkleTree(createTestKeys(size))

		b.Run(fmt.Sprintf("Keys_%d", size), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				_, _ = tree.GenerateProof(i % size)
			}
		})
	}
}

// BenchmarkMerkleProofVerification benchmarks proof verification
func BenchmarkMerkleProofVerification(b *testing.B) {
	sizes := []int{10, 100, 1000}

	for _, size := range sizes {
		tree, _ := BuildMerkleTree(createTestKeys(size))
		proof, _ := tree.GenerateProof(0)

		b.Run(fmt.Sprintf("Keys_%d", size), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				_ = VerifyProof(proof, tree.Root)
			}
		})
	}
}

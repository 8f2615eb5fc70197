// Package hasher produces the domain-separated digest that signers sign and the
// verifier recovers against.
package hasher

import (
	"crypto/sha256"

	"github.com/Layr-Labs/verified-messages-go/pkg/types"
)

// DomainPrefix scopes signatures to this protocol. A signature made over any
// other payload, such as a transaction sighash, never hashes to the same digest.
const DomainPrefix = "Stacks Signed Message: "

// Prefixed returns DomainPrefix ‖ message, the exact bytes that are hashed.
func Prefixed(message []byte) []byte {
	out := make([]byte, 0, len(DomainPrefix)+len(message))
	out = append(out, DomainPrefix...)
	return append(out, message...)
}

// HashMessage computes sha256(DomainPrefix ‖ message).
func HashMessage(message []byte) types.Digest {
	return types.Digest(sha256.Sum256(Prefixed(message)))
}

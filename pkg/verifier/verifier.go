// Package verifier checks a recoverable secp256k1 signature against a claimed
// signer identity.
//
// Verification is total: malformed signatures, failed recovery and identity
// mismatches all yield false, never an error or panic, so Check is safe to call
// from read-only paths.
package verifier

import (
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/Layr-Labs/verified-messages-go/pkg/address"
	"github.com/Layr-Labs/verified-messages-go/pkg/config"
	"github.com/Layr-Labs/verified-messages-go/pkg/signature"
	"github.com/Layr-Labs/verified-messages-go/pkg/types"
)

// SignatureVerifier is implemented by anything that can answer "did claimed sign digest".
type SignatureVerifier interface {
	Check(digest types.Digest, sig []byte, claimed string) bool
}

// Verifier binds Check to one network.
type Verifier struct {
	network config.Network
}

var _ SignatureVerifier = (*Verifier)(nil)

// NewVerifier creates a verifier deriving identities under network.
func NewVerifier(network config.Network) (*Verifier, error) {
	if _, err := network.AddressVersion(); err != nil {
		return nil, err
	}
	return &Verifier{network: network}, nil
}

// Network returns the network identities are derived under
func (v *Verifier) Network() config.Network {
	return v.network
}

// Check implements SignatureVerifier
func (v *Verifier) Check(digest types.Digest, sig []byte, claimed string) bool {
	return Check(digest, sig, claimed, v.network)
}

// Recover recovers the signer address of an RSV signature over digest.
func Recover(digest types.Digest, sig []byte, network config.Network) (address.Address, error) {
	parsed, err := signature.Parse(sig)
	if err != nil {
		return address.Address{}, err
	}

	pub, err := crypto.SigToPub(digest.Bytes(), parsed.Bytes())
	if err != nil {
		return address.Address{}, fmt.Errorf("signature recovery failed: %w", err)
	}

	return address.FromPublicKey(pub, network)
}

// Check reports whether sig over digest recovers to exactly claimed under network.
func Check(digest types.Digest, sig []byte, claimed string, network config.Network) bool {
	recovered, err := Recover(digest, sig, network)
	if err != nil {
		return false
	}
	return recovered.String() == claimed
}

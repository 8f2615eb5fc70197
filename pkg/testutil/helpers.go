package testutil

import (
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/Layr-Labs/verified-messages-go/pkg/config"
	"github.com/Layr-Labs/verified-messages-go/pkg/signature"
	"github.com/Layr-Labs/verified-messages-go/pkg/signer"
)

// TestSigner is a deterministic signing key together with its address on one network
type TestSigner struct {
	Key     *signer.PrivateKey
	Address string
}

// Sign signs message, failing the test on error
func (s *TestSigner) Sign(t *testing.T, message []byte) signature.Signature {
	t.Helper()
	sig, err := s.Key.SignMessage(message)
	if err != nil {
		t.Fatalf("Failed to sign message: %v", err)
	}
	return sig
}

// CreateTestSigners creates n deterministic signers with addresses on network.
// Keys are keccak256("test-signer-<i>") so runs are reproducible.
func CreateTestSigners(t *testing.T, n int, network config.Network) []*TestSigner {
	t.Helper()

	signers := make([]*TestSigner, n)
	for i := 0; i < n; i++ {
		key, err := signer.NewPrivateKey(crypto.Keccak256([]byte(fmt.Sprintf("test-signer-%d", i+1))))
		if err != nil {
			t.Fatalf("Failed to create signer %d: %v", i+1, err)
		}
		addr, err := key.Address(network)
		if err != nil {
			t.Fatalf("Failed to derive address for signer %d: %v", i+1, err)
		}
		signers[i] = &TestSigner{Key: key, Address: addr.String()}
	}
	return signers
}

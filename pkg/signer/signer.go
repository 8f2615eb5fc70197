// Package signer is the off-chain counterpart of the verifier: it signs ASCII
// messages with the domain prefix and byte order the registry expects.
package signer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	decredecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/Layr-Labs/verified-messages-go/pkg/address"
	"github.com/Layr-Labs/verified-messages-go/pkg/config"
	"github.com/Layr-Labs/verified-messages-go/pkg/hasher"
	"github.com/Layr-Labs/verified-messages-go/pkg/signature"
	"github.com/Layr-Labs/verified-messages-go/pkg/types"
)

// compressedKeySuffix marks a 33-byte private key whose public key is used compressed.
const compressedKeySuffix = 0x01

var privateKeyPattern = regexp.MustCompile(`^(0x)?[0-9a-fA-F]{64}([0-9a-fA-F]{2})?$`)

// PrivateKey is a secp256k1 signing key.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// ParsePrivateKey parses a hex private key of 32 bytes, or 33 bytes ending in
// the 0x01 compression flag. The 0x prefix is optional.
func ParsePrivateKey(s string) (*PrivateKey, error) {
	s = strings.TrimSpace(s)
	if !privateKeyPattern.MatchString(s) {
		return nil, fmt.Errorf("improperly formatted private key, it should be a hex string of 32 or 33 bytes")
	}
	if !strings.HasPrefix(s, "0x") {
		s = "0x" + s
	}
	raw, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}
	if len(raw) == 33 {
		if raw[32] != compressedKeySuffix {
			return nil, fmt.Errorf("33-byte private key must end with 0x01, got 0x%02x", raw[32])
		}
		raw = raw[:32]
	}
	return NewPrivateKey(raw)
}

// NewPrivateKey wraps a raw 32-byte scalar.
func NewPrivateKey(raw []byte) (*PrivateKey, error) {
	if len(raw) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(raw))
	}
	var scalar secp256k1.ModNScalar
	if overflow := scalar.SetByteSlice(raw); overflow || scalar.IsZero() {
		return nil, fmt.Errorf("private key is not a valid secp256k1 scalar")
	}
	return &PrivateKey{key: secp256k1.NewPrivateKey(&scalar)}, nil
}

// PublicKey returns the 33-byte compressed public key.
func (k *PrivateKey) PublicKey() []byte {
	return k.key.PubKey().SerializeCompressed()
}

// Address derives the signer identity of this key on network.
func (k *PrivateKey) Address(network config.Network) (address.Address, error) {
	return address.FromCompressedPubkey(k.PublicKey(), network)
}

// Addresses returns the mainnet and testnet identities of this key.
func (k *PrivateKey) Addresses() (mainnet, testnet address.Address, err error) {
	mainnet, err = k.Address(config.NetworkMainnet)
	if err != nil {
		return
	}
	testnet, err = k.Address(config.NetworkTestnet)
	return
}

// SignDigestVRS signs digest and returns recoveryId ‖ r ‖ s, the order a generic
// signing routine produces.
func (k *PrivateKey) SignDigestVRS(digest types.Digest) []byte {
	// SignCompact returns (27 + recoveryId + 4) ‖ r ‖ s for compressed keys.
	compact := decredecdsa.SignCompact(k.key, digest.Bytes(), true)
	compact[0] -= 27 + 4
	return compact
}

// SignDigest signs digest and returns the signature in recovery order.
func (k *PrivateKey) SignDigest(digest types.Digest) (signature.Signature, error) {
	rsv, err := signature.ToRecoveryOrder(k.SignDigestVRS(digest))
	if err != nil {
		return signature.Signature{}, err
	}
	return signature.Parse(rsv)
}

// SignMessage hashes message with the domain prefix and signs the digest.
func (k *PrivateKey) SignMessage(message []byte) (signature.Signature, error) {
	return k.SignDigest(hasher.HashMessage(message))
}

package address

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // hash160 is part of the address format

	"github.com/Layr-Labs/verified-messages-go/pkg/config"
)

// Hash160Length is the length of RIPEMD160(SHA256(pubkey)).
const Hash160Length = 20

// Address is a single-sig signer identity: a version byte plus the hash160 of
// a compressed secp256k1 public key.
type Address struct {
	Version byte
	Hash160 [Hash160Length]byte
}

// Hash160 computes RIPEMD160(SHA256(data)).
func Hash160(data []byte) [Hash160Length]byte {
	sha := sha256.Sum256(data)
	r := ripemd160.New()
	_, _ = r.Write(sha[:])
	var out [Hash160Length]byte
	copy(out[:], r.Sum(nil))
	return out
}

// FromCompressedPubkey derives the address of a 33-byte compressed public key.
func FromCompressedPubkey(pub []byte, network config.Network) (Address, error) {
	if len(pub) != 33 || (pub[0] != 0x02 && pub[0] != 0x03) {
		return Address{}, fmt.Errorf("invalid compressed public key")
	}
	version, err := network.AddressVersion()
	if err != nil {
		return Address{}, err
	}
	return Address{Version: version, Hash160: Hash160(pub)}, nil
}

// FromPublicKey derives the address of pub under network.
func FromPublicKey(pub *ecdsa.PublicKey, network config.Network) (Address, error) {
	if pub == nil {
		return Address{}, fmt.Errorf("public key is nil")
	}
	return FromCompressedPubkey(crypto.CompressPubkey(pub), network)
}

// Parse decodes an address string, accepting lower case and the c32 aliases.
func Parse(s string) (Address, error) {
	if len(s) < 5 || (s[0] != 'S' && s[0] != 's') {
		return Address{}, fmt.Errorf("invalid address %q: must start with 'S'", s)
	}
	version, data, err := c32CheckDecode(s[1:])
	if err != nil {
		return Address{}, fmt.Errorf("invalid address %q: %w", s, err)
	}
	if len(data) != Hash160Length {
		return Address{}, fmt.Errorf("invalid address %q: expected %d byte hash, got %d", s, Hash160Length, len(data))
	}
	a := Address{Version: version}
	copy(a.Hash160[:], data)
	return a, nil
}

// ParseCanonical is Parse, additionally requiring s to be the exact encoding
// String would produce.
func ParseCanonical(s string) (Address, error) {
	a, err := Parse(s)
	if err != nil {
		return Address{}, err
	}
	if a.String() != s {
		return Address{}, fmt.Errorf("address %q is not in canonical form (%s)", s, a.String())
	}
	return a, nil
}

// String renders the address as 'S' ‖ c32check(version, hash160).
func (a Address) String() string {
	encoded, err := c32CheckEncode(a.Version, a.Hash160[:])
	if err != nil {
		return ""
	}
	return "S" + encoded
}

// Bytes returns version ‖ hash160, a fixed 21-byte encoding.
func (a Address) Bytes() []byte {
	return append([]byte{a.Version}, a.Hash160[:]...)
}

// Network reports which network the address version belongs to.
func (a Address) Network() (config.Network, bool) {
	switch a.Version {
	case config.AddressVersionMainnetSingleSig:
		return config.NetworkMainnet, true
	case config.AddressVersionTestnetSingleSig:
		return config.NetworkTestnet, true
	default:
		return "", false
	}
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

package types

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Digest is the 32-byte domain-separated hash of a message.
type Digest [32]byte

// Bytes returns the digest as a byte slice
func (d Digest) Bytes() []byte {
	return d[:]
}

// Hex returns the 0x-prefixed hex encoding of the digest
func (d Digest) Hex() string {
	return hexutil.Encode(d[:])
}

// RegistryKey identifies a (message, signer) pair in the posted-message registry.
type RegistryKey [32]byte

// Bytes returns the key as a byte slice
func (k RegistryKey) Bytes() []byte {
	return k[:]
}

// Hex returns the 0x-prefixed hex encoding of the key
func (k RegistryKey) Hex() string {
	return hexutil.Encode(k[:])
}

// String implements fmt.Stringer
func (k RegistryKey) String() string {
	return k.Hex()
}

// Less orders keys bytewise
func (k RegistryKey) Less(other RegistryKey) bool {
	return bytes.Compare(k[:], other[:]) < 0
}

// MarshalText encodes the key as 0x-prefixed hex
func (k RegistryKey) MarshalText() ([]byte, error) {
	return []byte(k.Hex()), nil
}

// UnmarshalText decodes a 0x-prefixed hex key
func (k *RegistryKey) UnmarshalText(text []byte) error {
	b, err := hexutil.Decode(string(text))
	if err != nil {
		return fmt.Errorf("invalid registry key: %w", err)
	}
	if len(b) != len(k) {
		return fmt.Errorf("invalid registry key length: expected %d bytes, got %d", len(k), len(b))
	}
	copy(k[:], b)
	return nil
}

// RegistryKeyFromHex parses a 0x-prefixed hex registry key
func RegistryKeyFromHex(s string) (RegistryKey, error) {
	var k RegistryKey
	err := k.UnmarshalText([]byte(s))
	return k, err
}

// PostedMessageRecord marks that Signer attested to Message. Its existence is the
// only thing that matters; records are never mutated or removed.
type PostedMessageRecord struct {
	Key      RegistryKey   `json:"key"`
	Message  hexutil.Bytes `json:"message"`
	Signer   string        `json:"signer"`
	PostedAt int64         `json:"postedAt"` // Unix seconds
}

// PostedMessageEvent is emitted exactly once, in the same commit as its record.
type PostedMessageEvent struct {
	ID string `json:"id"`

	// Sequence is the 1-based commit order, assigned by the store on commit.
	Sequence uint64 `json:"sequence"`

	Key      RegistryKey   `json:"key"`
	Message  hexutil.Bytes `json:"message"`
	Signer   string        `json:"signer"`
	PostedAt int64         `json:"postedAt"`
}

// Record returns the record committed together with this event
func (e *PostedMessageEvent) Record() *PostedMessageRecord {
	return &PostedMessageRecord{
		Key:      e.Key,
		Message:  append(hexutil.Bytes{}, e.Message...),
		Signer:   e.Signer,
		PostedAt: e.PostedAt,
	}
}

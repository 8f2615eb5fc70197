package signature

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	// Length is the size of a recoverable secp256k1 signature: r(32) ‖ s(32) ‖ recovery id(1).
	Length = 65

	// MaxRecoveryID is the largest recovery id accepted.
	MaxRecoveryID = 3
)

// ErrMalformedSignature is returned for signatures of the wrong length or with
// an out-of-range recovery id.
var ErrMalformedSignature = errors.New("malformed signature")

// Signature is a recoverable signature in recovery (RSV) order: r ‖ s ‖ recoveryId.
type Signature [Length]byte

// Parse validates rsv and returns it as a Signature.
func Parse(rsv []byte) (Signature, error) {
	var sig Signature
	if len(rsv) != Length {
		return sig, fmt.Errorf("%w: expected %d bytes, got %d", ErrMalformedSignature, Length, len(rsv))
	}
	if rsv[Length-1] > MaxRecoveryID {
		return sig, fmt.Errorf("%w: recovery id %d out of range", ErrMalformedSignature, rsv[Length-1])
	}
	copy(sig[:], rsv)
	return sig, nil
}

// Decode parses a hex string, with or without 0x prefix, in recovery order.
func Decode(s string) (Signature, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	raw, err := hexutil.Decode(s)
	if err != nil {
		return Signature{}, fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}
	return Parse(raw)
}

func (s Signature) R() []byte { return append([]byte{}, s[0:32]...) }
func (s Signature) S() []byte { return append([]byte{}, s[32:64]...) }

// RecoveryID returns the trailing recovery indicator.
func (s Signature) RecoveryID() byte { return s[64] }

// Bytes returns a copy of the signature in recovery order.
func (s Signature) Bytes() []byte { return append([]byte{}, s[:]...) }

// String returns the 0x-prefixed hex encoding.
func (s Signature) String() string { return hexutil.Encode(s[:]) }

// MarshalJSON encodes the signature as a hex string.
func (s Signature) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes and validates a hex string.
func (s *Signature) UnmarshalJSON(data []byte) error {
	var hexStr string
	if err := json.Unmarshal(data, &hexStr); err != nil {
		return err
	}
	parsed, err := Decode(hexStr)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

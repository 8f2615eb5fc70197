package signature

import "fmt"

// Generic signing routines emit recoveryId ‖ r ‖ s (VRS); recovery consumes
// r ‖ s ‖ recoveryId (RSV). Producers and consumers must agree: a signature in
// the wrong order recovers some unrelated key instead of failing.

// ToRecoveryOrder moves the leading recovery id of a VRS signature to the tail.
func ToRecoveryOrder(vrs []byte) ([]byte, error) {
	if len(vrs) != Length {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrMalformedSignature, Length, len(vrs))
	}
	out := make([]byte, Length)
	copy(out, vrs[1:])
	out[Length-1] = vrs[0]
	return out, nil
}

// FromRecoveryOrder moves the trailing recovery id of an RSV signature to the head.
func FromRecoveryOrder(rsv []byte) ([]byte, error) {
	if len(rsv) != Length {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrMalformedSignature, Length, len(rsv))
	}
	out := make([]byte, Length)
	out[0] = rsv[Length-1]
	copy(out[1:], rsv[:Length-1])
	return out, nil
}

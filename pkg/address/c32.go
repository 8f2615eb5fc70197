package address

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// c32 is Crockford base32 as used by Stacks addresses.
const c32Alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

var (
	ErrInvalidCharacter = errors.New("invalid c32 character")
	ErrInvalidChecksum  = errors.New("invalid c32check checksum")
)

var (
	bigRadix = big.NewInt(32)
	bigZero  = big.NewInt(0)
)

// c32Encode encodes data as a big-endian number in base 32, with one leading
// '0' per leading zero byte.
func c32Encode(data []byte) string {
	n := new(big.Int).SetBytes(data)
	var digits []byte
	mod := new(big.Int)
	for n.Cmp(bigZero) > 0 {
		n.DivMod(n, bigRadix, mod)
		digits = append(digits, c32Alphabet[mod.Int64()])
	}
	for _, b := range data {
		if b != 0 {
			break
		}
		digits = append(digits, c32Alphabet[0])
	}
	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}
	return string(digits)
}

// c32Normalize upper-cases s and folds the Crockford aliases O→0 and I,L→1.
func c32Normalize(s string) string {
	return strings.NewReplacer("O", "0", "L", "1", "I", "1").Replace(strings.ToUpper(s))
}

func c32Decode(s string) ([]byte, error) {
	s = c32Normalize(s)
	n := new(big.Int)
	leadingZeros := 0
	counting := true
	for i := 0; i < len(s); i++ {
		idx := strings.IndexByte(c32Alphabet, s[i])
		if idx < 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCharacter, s[i])
		}
		if counting && idx == 0 {
			leadingZeros++
		} else {
			counting = false
		}
		n.Mul(n, bigRadix)
		n.Add(n, big.NewInt(int64(idx)))
	}
	out := make([]byte, leadingZeros, leadingZeros+len(s))
	return append(out, n.Bytes()...), nil
}

func c32Checksum(version byte, data []byte) []byte {
	first := sha256.Sum256(append([]byte{version}, data...))
	second := sha256.Sum256(first[:])
	return second[:4]
}

// c32CheckEncode returns c32(version) ‖ c32(data ‖ checksum).
func c32CheckEncode(version byte, data []byte) (string, error) {
	if version >= 32 {
		return "", fmt.Errorf("invalid c32check version %d", version)
	}
	payload := append(append([]byte{}, data...), c32Checksum(version, data)...)
	return string(c32Alphabet[version]) + c32Encode(payload), nil
}

func c32CheckDecode(s string) (byte, []byte, error) {
	s = c32Normalize(s)
	if len(s) < 2 {
		return 0, nil, fmt.Errorf("c32check string too short")
	}
	version := strings.IndexByte(c32Alphabet, s[0])
	if version < 0 {
		return 0, nil, fmt.Errorf("%w: %q", ErrInvalidCharacter, s[0])
	}
	payload, err := c32Decode(s[1:])
	if err != nil {
		return 0, nil, err
	}
	if len(payload) < 4 {
		return 0, nil, fmt.Errorf("c32check payload too short")
	}
	data, checksum := payload[:len(payload)-4], payload[len(payload)-4:]
	expected := c32Checksum(byte(version), data)
	for i := range checksum {
		if checksum[i] != expected[i] {
			return 0, nil, ErrInvalidChecksum
		}
	}
	return byte(version), data, nil
}

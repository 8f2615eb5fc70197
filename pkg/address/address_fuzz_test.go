package address

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Layr-Labs/verified-messages-go/pkg/config"
)

func FuzzAddressRoundTrip(f *testing.F) {
	f.Add(config.AddressVersionMainnetSingleSig, make([]byte, Hash160Length))
	f.Add(config.AddressVersionTestnetSingleSig, []byte("01234567890123456789"))
	f.Add(byte(0), []byte{0xff, 0x00, 0x01})

	f.Fuzz(func(t *testing.T, version byte, b []byte) {
		if version >= 32 || len(b) < Hash160Length {
			return
		}
		a := Address{Version: version}
		copy(a.Hash160[:], b[:Hash160Length])

		parsed, err := ParseCanonical(a.String())
		require.NoError(t, err)
		require.Equal(t, a, parsed)
	})
}

func FuzzParseNeverPanics(f *testing.F) {
	f.Add("ST1SJ3DTE5DN7X54YDH5D64R3BCB6A2AG2ZQ8YPD5")
	f.Add("st1sj3dte5dn7x54ydh5d64r3bcb6a2ag2zq8ypd5")
	f.Add("SP")
	f.Add("")

	f.Fuzz(func(t *testing.T, s string) {
		a, err := Parse(s)
		if err != nil {
			return
		}
		// Anything accepted re-encodes to a form that parses to the same address
		again, err := ParseCanonical(a.String())
		require.NoError(t, err)
		require.Equal(t, a, again)
	})
}

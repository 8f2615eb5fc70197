package signer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Layr-Labs/verified-messages-go/pkg/config"
	"github.com/Layr-Labs/verified-messages-go/pkg/hasher"
	"github.com/Layr-Labs/verified-messages-go/pkg/signature"
	"github.com/Layr-Labs/verified-messages-go/pkg/verifier"
)

const examplePrivateKey = "753b7cc01a1a2e86221266a154af739463fce51219d97e4f856cd7200c3bd2a601"

func TestParsePrivateKey(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"33 bytes with compression flag", examplePrivateKey, false},
		{"33 bytes with 0x", "0x" + examplePrivateKey, false},
		{"32 bytes", examplePrivateKey[:64], false},
		{"33 bytes without compression flag", examplePrivateKey[:64] + "02", true},
		{"odd length", examplePrivateKey[:65], true},
		{"too short", "abcd", true},
		{"not hex", "zz3b7cc01a1a2e86221266a154af739463fce51219d97e4f856cd7200c3bd2a6", true},
		{"zero scalar", "0000000000000000000000000000000000000000000000000000000000000000", true},
		{"scalar overflow", "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			k, err := ParsePrivateKey(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, k)
		})
	}
}

func TestPrivateKey_Addresses(t *testing.T) {
	k, err := ParsePrivateKey(examplePrivateKey)
	require.NoError(t, err)

	mainnet, testnet, err := k.Addresses()
	require.NoError(t, err)
	assert.Equal(t, "SP1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRCBGD7R", mainnet.String())
	assert.Equal(t, "ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM", testnet.String())

	short, err := ParsePrivateKey(examplePrivateKey[:64])
	require.NoError(t, err)
	assert.Equal(t, k.PublicKey(), short.PublicKey())
}

func TestSignMessage_VerifiesOnBothNetworks(t *testing.T) {
	k, err := ParsePrivateKey(examplePrivateKey)
	require.NoError(t, err)

	msg := []byte("Hello Clarity")
	sig, err := k.SignMessage(msg)
	require.NoError(t, err)
	assert.LessOrEqual(t, sig.RecoveryID(), byte(1))

	for _, network := range []config.Network{config.NetworkMainnet, config.NetworkTestnet} {
		addr, err := k.Address(network)
		require.NoError(t, err)
		assert.True(t, verifier.Check(hasher.HashMessage(msg), sig.Bytes(), addr.String(), network), network.String())
	}
}

func TestSignMessage_Deterministic(t *testing.T) {
	k, err := ParsePrivateKey(examplePrivateKey)
	require.NoError(t, err)

	a, err := k.SignMessage([]byte("same"))
	require.NoError(t, err)
	b, err := k.SignMessage([]byte("same"))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSignDigestVRS_MatchesCodec(t *testing.T) {
	k, err := ParsePrivateKey(examplePrivateKey)
	require.NoError(t, err)

	digest := hasher.HashMessage([]byte("order matters"))
	vrs := k.SignDigestVRS(digest)
	require.Len(t, vrs, signature.Length)
	assert.LessOrEqual(t, vrs[0], byte(1))

	sig, err := k.SignDigest(digest)
	require.NoError(t, err)

	back, err := signature.FromRecoveryOrder(sig.Bytes())
	require.NoError(t, err)
	assert.Equal(t, vrs, back)

	testnet, err := k.Address(config.NetworkTestnet)
	require.NoError(t, err)
	// A VRS-ordered signature handed to the verifier must not verify.
	assert.False(t, verifier.Check(digest, vrs, testnet.String(), config.NetworkTestnet))
}

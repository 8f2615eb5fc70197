package verifier

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Layr-Labs/verified-messages-go/pkg/config"
	"github.com/Layr-Labs/verified-messages-go/pkg/hasher"
	"github.com/Layr-Labs/verified-messages-go/pkg/signature"
	"github.com/Layr-Labs/verified-messages-go/pkg/signer"
)

const (
	fixtureMessage       = "Hello Clarity"
	fixtureSignature     = "0xba81fcf2352d66fef730d726be484842f4eb2c1f2bde8c27724fa96a5851b41a566c2481da26d841f703ea846adcdc29e6effeb1293b6527b44cb7f20e8b5ea800"
	fixtureSigner        = "ST1SJ3DTE5DN7X54YDH5D64R3BCB6A2AG2ZQ8YPD5"
	fixtureMainnetSigner = "SP1SJ3DTE5DN7X54YDH5D64R3BCB6A2AG2XG1V316"
	otherSigner          = "ST2CY5V39NHDPWSXMW9QDT3HC3GD6Q6XX4CFRK9AG"
)

func fixtureSig(t *testing.T) []byte {
	t.Helper()
	sig, err := signature.Decode(fixtureSignature)
	require.NoError(t, err)
	return sig.Bytes()
}

func testKey(t *testing.T, seed string) *signer.PrivateKey {
	t.Helper()
	k, err := signer.NewPrivateKey(crypto.Keccak256([]byte(seed)))
	require.NoError(t, err)
	return k
}

func TestCheck_Fixture(t *testing.T) {
	sig := fixtureSig(t)

	t.Run("valid", func(t *testing.T) {
		assert.True(t, Check(hasher.HashMessage([]byte(fixtureMessage)), sig, fixtureSigner, config.NetworkTestnet))
	})

	t.Run("wrong message", func(t *testing.T) {
		assert.False(t, Check(hasher.HashMessage([]byte("Hello Clarity INVALID")), sig, fixtureSigner, config.NetworkTestnet))
	})

	t.Run("wrong signer", func(t *testing.T) {
		assert.False(t, Check(hasher.HashMessage([]byte(fixtureMessage)), sig, otherSigner, config.NetworkTestnet))
	})

	t.Run("mainnet identity", func(t *testing.T) {
		digest := hasher.HashMessage([]byte(fixtureMessage))
		assert.True(t, Check(digest, sig, fixtureMainnetSigner, config.NetworkMainnet))
		assert.False(t, Check(digest, sig, fixtureSigner, config.NetworkMainnet))
		assert.False(t, Check(digest, sig, fixtureMainnetSigner, config.NetworkTestnet))
	})
}

func TestRecover_Fixture(t *testing.T) {
	addr, err := Recover(hasher.HashMessage([]byte(fixtureMessage)), fixtureSig(t), config.NetworkTestnet)
	require.NoError(t, err)
	assert.Equal(t, fixtureSigner, addr.String())
}

func TestCheck_MalformedIsFalse(t *testing.T) {
	digest := hasher.HashMessage([]byte(fixtureMessage))
	sig := fixtureSig(t)

	testCases := []struct {
		name string
		sig  []byte
	}{
		{"nil", nil},
		{"empty", []byte{}},
		{"too short", sig[:64]},
		{"too long", append(append([]byte{}, sig...), 0x00)},
		{"recovery id 4", append(append([]byte{}, sig[:64]...), 4)},
		{"recovery id 27", append(append([]byte{}, sig[:64]...), 27)},
		{"zero r and s", make([]byte, 65)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.False(t, Check(digest, tc.sig, fixtureSigner, config.NetworkTestnet))
			})
		})
	}
}

func TestCheck_UnsupportedNetwork(t *testing.T) {
	digest := hasher.HashMessage([]byte(fixtureMessage))
	assert.False(t, Check(digest, fixtureSig(t), fixtureSigner, config.Network("devnet")))
}

func TestCheck_SignThenVerify(t *testing.T) {
	messages := [][]byte{
		{},
		[]byte("a"),
		[]byte("Hello Clarity"),
		[]byte("a somewhat longer message that spans more than one sha256 block of input, to be safe"),
		{0x00, 0xff, 0x10, 0x80},
	}

	for i, seed := range []string{"alice", "bob", "carol"} {
		k := testKey(t, seed)
		addr, err := k.Address(config.NetworkTestnet)
		require.NoError(t, err)
		other, err := testKey(t, seed+"-other").Address(config.NetworkTestnet)
		require.NoError(t, err)

		for _, msg := range messages {
			sig, err := k.SignMessage(msg)
			require.NoError(t, err)
			digest := hasher.HashMessage(msg)

			assert.True(t, Check(digest, sig.Bytes(), addr.String(), config.NetworkTestnet), "key %d", i)
			assert.False(t, Check(digest, sig.Bytes(), other.String(), config.NetworkTestnet), "key %d", i)

			for j := range msg {
				mutated := append([]byte{}, msg...)
				mutated[j] ^= 0x80
				assert.False(t, Check(hasher.HashMessage(mutated), sig.Bytes(), addr.String(), config.NetworkTestnet))
			}
		}
	}
}

func TestCheck_RawDigestSignatureIsRejected(t *testing.T) {
	// A signature over the bare message hash, without the domain prefix, must
	// not verify as a signed message.
	k := testKey(t, "cross-protocol")
	addr, err := k.Address(config.NetworkTestnet)
	require.NoError(t, err)

	msg := []byte("transfer 100")
	var bare [32]byte
	copy(bare[:], crypto.Keccak256(msg))
	sig, err := k.SignDigest(bare)
	require.NoError(t, err)

	assert.False(t, Check(hasher.HashMessage(msg), sig.Bytes(), addr.String(), config.NetworkTestnet))
}

func TestVerifier(t *testing.T) {
	v, err := NewVerifier(config.NetworkTestnet)
	require.NoError(t, err)
	assert.Equal(t, config.NetworkTestnet, v.Network())
	assert.True(t, v.Check(hasher.HashMessage([]byte(fixtureMessage)), fixtureSig(t), fixtureSigner))

	_, err = NewVerifier(config.Network("devnet"))
	require.Error(t, err)
}

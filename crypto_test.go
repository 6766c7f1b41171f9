package biblion

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/cosmos/cosmos-sdk/types/bech32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPrivateKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestPrivKeyToAddr(t *testing.T) {
	addr, err := PrivKeyToAddr(testPrivateKey, AccountPrefix)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(addr, AccountPrefix+"1"))
	assert.True(t, IsAddress(addr))

	node, err := PrivKeyToAddr(testPrivateKey, NodePrefix)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(node, NodePrefix+"1"))
	assert.NotEqual(t, addr, node)
}

func TestSignAndVerify(t *testing.T) {
	addr, err := PrivKeyToAddr(testPrivateKey, AccountPrefix)
	require.NoError(t, err)

	data := []byte(`{"value":{"tokenId":0}}`)
	sig, err := SignBytes(data, testPrivateKey)
	require.NoError(t, err)
	assert.Len(t, sig, 65)

	require.NoError(t, VerifySignature(data, sig, addr))

	recovered, err := RecoverAddress(data, sig, AccountPrefix)
	require.NoError(t, err)
	assert.Equal(t, addr, recovered)

	assert.Error(t, VerifySignature([]byte("tampered"), sig, addr))
	assert.Error(t, VerifySignature(data, sig[:64], addr))
}

func TestSignDocument(t *testing.T) {
	sd, err := SignDocument(`{"signer":"x"}`, testPrivateKey)
	require.NoError(t, err)
	assert.Equal(t, ProofTypeSecp256k1, sd.Proof.Type)

	sig, err := hex.DecodeString(sd.Proof.Signature)
	require.NoError(t, err)

	addr, err := PrivKeyToAddr(testPrivateKey, AccountPrefix)
	require.NoError(t, err)
	assert.NoError(t, VerifySignature([]byte(sd.Document), sig, addr))
}

func TestNormalizeAddress(t *testing.T) {
	hexAddr := "0x" + strings.Repeat("ab", 20)

	fromHex, err := NormalizeAddress(hexAddr)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(fromHex, "bib1"))

	again, err := NormalizeAddress(strings.ToUpper(fromHex))
	require.NoError(t, err)
	assert.Equal(t, fromHex, again)

	node, err := bech32.ConvertAndEncode(NodePrefix, bytes.Repeat([]byte{0xab}, 20))
	require.NoError(t, err)
	fromNode, err := NormalizeAddress(node)
	require.NoError(t, err)
	assert.Equal(t, fromHex, fromNode, "node prefix names the same identity")

	for _, bad := range []string{"", "0x1234", "cosmos1qqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqnrql8a", "not-an-address"} {
		_, err := NormalizeAddress(bad)
		assert.Error(t, err, bad)
	}
}

func TestGetHash(t *testing.T) {
	// keccak256 of the empty string
	assert.Equal(t,
		"c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470",
		GetHashHex(nil),
	)
}

func TestVerifySignatureAcceptsEitherPrefix(t *testing.T) {
	data := []byte("payload")
	sig, err := SignBytes(data, testPrivateKey)
	require.NoError(t, err)

	account, err := PrivKeyToAddr(testPrivateKey, AccountPrefix)
	require.NoError(t, err)
	node, err := PrivKeyToAddr(testPrivateKey, NodePrefix)
	require.NoError(t, err)

	assert.NoError(t, VerifySignature(data, sig, account))
	assert.NoError(t, VerifySignature(data, sig, node))

	normalized, err := NormalizeAddress(node)
	require.NoError(t, err)
	assert.Equal(t, account, normalized)
}

// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package envelope

import (
	"crypto/rsa"
	"math/big"
	"testing"

	"github.com/luxfi/envelope/action"
	"github.com/stretchr/testify/require"
)

func TestPipelinePushPreambleBlocksOnMissingTransform(t *testing.T) {
	p := New(DirectionEnvelope, action.NewScheduler(nil))
	_, err := p.Push([]byte("header bytes"))
	require.NoError(t, err) // preamble accepts bytes even before MarkPreambleBuilt

	p.MarkPreambleBuilt()
	_, err = p.Push(nil)
	require.Error(t, err) // still no transform installed
}

func TestPipelineFullLifecycle(t *testing.T) {
	p := New(DirectionEnvelope, action.NewScheduler(nil))
	p.MarkPreambleBuilt()
	p.SetBodyTransform(func(chunk []byte) ([]byte, error) { return chunk, nil })

	_, err := p.Push(nil) // drives Preamble -> Body
	require.NoError(t, err)
	require.Equal(t, StateBody, p.State())

	n, err := p.Push([]byte("plaintext"))
	require.NoError(t, err)
	require.Equal(t, 9, n)

	out := make([]byte, 64)
	n, err = p.Pop(out)
	require.NoError(t, err)
	require.Equal(t, "plaintext", string(out[:n]))

	require.NoError(t, p.Flush())
	require.Equal(t, StatePostamble, p.State())

	p.MarkPostambleBuilt()
	require.NoError(t, p.Flush())
	require.Equal(t, StateFinished, p.State())
}

func TestPipelinePreambleWaitsOnUnresolvedRequirement(t *testing.T) {
	p := New(DirectionDeenvelope, action.NewScheduler(nil))
	req := p.AddRequirement(RequirementPrivateKey, "recipient key for cert CN=test")
	p.MarkPreambleBuilt()
	p.SetBodyTransform(func(chunk []byte) ([]byte, error) { return chunk, nil })

	_, err := p.Push(nil)
	require.Error(t, err)
	require.Equal(t, StatePreamble, p.State())

	req.Resolve(nil)
	_, err = p.Push(nil)
	require.NoError(t, err)
	require.Equal(t, StateBody, p.State())
}

func TestKeyIdentifierTruncation(t *testing.T) {
	full := KeyIdentifier([]byte("some public key bytes"))
	trunc := TruncatedKeyIdentifier([]byte("some public key bytes"), 8)
	require.Len(t, trunc, 8)
	require.Equal(t, full[:8], trunc)
}

func TestSSHRSAPublicKeyRoundTrip(t *testing.T) {
	pub := &rsa.PublicKey{N: big.NewInt(0).SetBytes([]byte{0xFF, 0x01, 0x02, 0x03}), E: 65537}
	blob := MarshalSSHRSAPublicKey(pub)

	parsed, err := ParseSSHRSAPublicKey(blob)
	require.NoError(t, err)
	require.Equal(t, pub.E, parsed.E)
	require.Equal(t, 0, pub.N.Cmp(parsed.N))
}

// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package certchain

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func makeCert(t *testing.T, subject, issuer string, isCA bool, maxPathLen int, parent *x509.Certificate, parentKey *ecdsa.PrivateKey) (*x509.Certificate, *ecdsa.PrivateKey) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano() % 1_000_000),
		Subject:               pkix.Name{CommonName: subject},
		NotBefore:             time.Unix(0, 0),
		NotAfter:              time.Unix(0, 0).Add(365 * 24 * time.Hour),
		BasicConstraintsValid: true,
		IsCA:                  isCA,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
	}
	if isCA && maxPathLen >= 0 {
		tmpl.MaxPathLen = maxPathLen
		tmpl.MaxPathLenZero = maxPathLen == 0
	}

	signer := key
	parentTmpl := tmpl
	if parent != nil {
		parentTmpl = parent
		signer = parentKey
	} else {
		tmpl.Subject.CommonName = issuer // self-signed: subject==issuer
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, parentTmpl, &key.PublicKey, signer)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert, key
}

func buildTestChain(t *testing.T) (root, intermediate, leaf *x509.Certificate) {
	t.Helper()
	root, rootKey := makeCert(t, "Test Root CA", "Test Root CA", true, 1, nil, nil)
	intermediate, intKey := makeCert(t, "Test Intermediate CA", "", true, 0, root, rootKey)
	leaf, _ = makeCert(t, "leaf.example.com", "", false, -1, intermediate, intKey)
	return root, intermediate, leaf
}

func TestBuildChainOrdersShuffledBag(t *testing.T) {
	root, intermediate, leaf := buildTestChain(t)

	bag := []*x509.Certificate{intermediate, root}
	chain, err := BuildChain(bag, leaf)
	require.NoError(t, err)
	require.Len(t, chain.Certs, 3)
	require.Equal(t, leaf.Raw, chain.Certs[0].Raw)
	require.Equal(t, intermediate.Raw, chain.Certs[1].Raw)
	require.Equal(t, root.Raw, chain.Certs[2].Raw)
}

func TestBuildChainDiscardsUnrelatedCert(t *testing.T) {
	root, intermediate, leaf := buildTestChain(t)
	unrelated, _ := makeCert(t, "Unrelated Root", "Unrelated Root", true, 1, nil, nil)

	bag := []*x509.Certificate{intermediate, root, unrelated}
	chain, err := BuildChain(bag, leaf)
	require.NoError(t, err)
	require.Len(t, chain.Certs, 3)
}

func TestFindLeafNodeWithoutExplicitLeaf(t *testing.T) {
	root, intermediate, leaf := buildTestChain(t)

	bag := []*x509.Certificate{root, intermediate, leaf}
	chain, err := BuildChain(bag, nil)
	require.NoError(t, err)
	require.Equal(t, leaf.Raw, chain.Leaf().Raw)
}

func TestCheckConstraintsPathLengthViolation(t *testing.T) {
	root, rootKey := makeCert(t, "Root", "Root", true, 0, nil, nil) // pathlen 0: no intermediates allowed
	intermediate, intKey := makeCert(t, "Intermediate", "", true, 1, root, rootKey)
	leaf, _ := makeCert(t, "leaf.example.com", "", false, -1, intermediate, intKey)

	chain, err := BuildChain([]*x509.Certificate{root, intermediate}, leaf)
	require.NoError(t, err)

	err = CheckConstraints(chain)
	require.Error(t, err)
}

func TestCheckConstraintsSatisfiedChain(t *testing.T) {
	root, intermediate, leaf := buildTestChain(t)
	chain, err := BuildChain([]*x509.Certificate{root, intermediate}, leaf)
	require.NoError(t, err)
	require.NoError(t, CheckConstraints(chain))
}

func TestIsSelfSigned(t *testing.T) {
	root, _, leaf := buildTestChain(t)
	require.True(t, IsSelfSigned(root))
	require.False(t, IsSelfSigned(leaf))
}

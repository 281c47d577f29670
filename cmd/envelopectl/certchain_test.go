// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func makeTestCert(t *testing.T, subject string, isCA bool, parent *x509.Certificate, parentKey *ecdsa.PrivateKey) (*x509.Certificate, *ecdsa.PrivateKey) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(int64(len(subject)) + 1),
		Subject:               pkix.Name{CommonName: subject},
		NotBefore:             time.Unix(0, 0),
		NotAfter:              time.Unix(0, 0).Add(365 * 24 * time.Hour),
		BasicConstraintsValid: true,
		IsCA:                  isCA,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
	}

	signer := key
	parentTmpl := tmpl
	if parent != nil {
		parentTmpl = parent
		signer = parentKey
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, parentTmpl, &key.PublicKey, signer)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert, key
}

func writePEMBundle(t *testing.T, path string, certs ...*x509.Certificate) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	for _, cert := range certs {
		require.NoError(t, pem.Encode(f, &pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw}))
	}
}

func TestCertchainVerifyCommandOrdersAndChecksChain(t *testing.T) {
	root, rootKey := makeTestCert(t, "Test Root CA", true, nil, nil)
	leaf, _ := makeTestCert(t, "leaf.example.com", false, root, rootKey)

	dir := t.TempDir()
	bundlePath := filepath.Join(dir, "bundle.pem")
	writePEMBundle(t, bundlePath, leaf, root)

	cmd := certchainVerifyCmd
	require.NoError(t, cmd.Flags().Set("bundle", bundlePath))
	require.NoError(t, cmd.Flags().Set("leaf", ""))
	require.NoError(t, cmd.RunE(cmd, nil))
}

func TestCertchainVerifyCommandMissingBundleFails(t *testing.T) {
	cmd := certchainVerifyCmd
	require.NoError(t, cmd.Flags().Set("bundle", ""))
	require.Error(t, cmd.RunE(cmd, nil))
}

// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/envelope/capability"
	"github.com/luxfi/envelope/codec"
)

func resetSignFlags() {
	signIn, signOut, signPrivKeyFile, signPrivKeyOut, signKeyID = "", "", "", "", "default"
	signLabelPolicy, signLabelClass = "", "secret"
	verifyIn, verifyPubKeyFile = "", ""
}

// publicKeyFor imports priv into a fresh RSA context and clones off a
// public-only context to export, since ExportKey on a private-key-loaded
// context returns the private key bytes.
func publicKeyFor(t *testing.T, priv []byte) []byte {
	t.Helper()
	ctx, err := reg.CreateContext(codec.AlgoRSA, codec.ModePKC)
	require.NoError(t, err)
	require.NoError(t, reg.ImportKey(ctx, priv))
	pubCtx, err := reg.CloneContext(ctx, true)
	require.NoError(t, err)
	pub, err := reg.ExportKey(pubCtx)
	require.NoError(t, err)
	return pub
}

func TestSignVerifyRoundTrip(t *testing.T) {
	reg = capability.NewDefaultRegistry()
	resetSignFlags()

	dir := t.TempDir()
	inPath := filepath.Join(dir, "plaintext.txt")
	signedPath := filepath.Join(dir, "signed.der")
	privPath := filepath.Join(dir, "priv.key")
	pubPath := filepath.Join(dir, "pub.key")

	require.NoError(t, os.WriteFile(inPath, []byte("the quick brown fox jumps over the lazy dog"), 0o644))

	signIn, signOut, signPrivKeyOut, signKeyID = inPath, signedPath, privPath, "signer-1"
	require.NoError(t, signCmdRun.RunE(signCmdRun, nil))

	priv, err := os.ReadFile(privPath)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(pubPath, publicKeyFor(t, priv), 0o600))

	var out bytes.Buffer
	verifyIn, verifyPubKeyFile = signedPath, pubPath
	verifyCmdRun.SetOut(&out)
	require.NoError(t, verifyCmdRun.RunE(verifyCmdRun, nil))
	require.Contains(t, out.String(), "Ok:")
}

func TestSignVerifyWithSecurityLabel(t *testing.T) {
	reg = capability.NewDefaultRegistry()
	resetSignFlags()

	dir := t.TempDir()
	inPath := filepath.Join(dir, "plaintext.txt")
	signedPath := filepath.Join(dir, "signed.der")
	privPath := filepath.Join(dir, "priv.key")
	pubPath := filepath.Join(dir, "pub.key")

	require.NoError(t, os.WriteFile(inPath, []byte("classified payload"), 0o644))

	signIn, signOut, signPrivKeyOut = inPath, signedPath, privPath
	signLabelPolicy, signLabelClass = "1.3.6.1.4.1.9999.1", "secret"
	require.NoError(t, signCmdRun.RunE(signCmdRun, nil))

	priv, err := os.ReadFile(privPath)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(pubPath, publicKeyFor(t, priv), 0o600))

	var out bytes.Buffer
	verifyIn, verifyPubKeyFile = signedPath, pubPath
	verifyCmdRun.SetOut(&out)
	require.NoError(t, verifyCmdRun.RunE(verifyCmdRun, nil))
	require.Contains(t, out.String(), "policy=1.3.6.1.4.1.9999.1")
	require.Contains(t, out.String(), "classification=4")
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	reg = capability.NewDefaultRegistry()
	resetSignFlags()

	dir := t.TempDir()
	inPath := filepath.Join(dir, "plaintext.txt")
	signedPath := filepath.Join(dir, "signed.der")
	wrongPubPath := filepath.Join(dir, "wrong_pub.key")

	require.NoError(t, os.WriteFile(inPath, []byte("payload"), 0o644))

	signIn, signOut = inPath, signedPath
	require.NoError(t, signCmdRun.RunE(signCmdRun, nil))

	task, err := reg.GenerateKeyAsync(codec.AlgoRSA, codec.ModePKC)
	require.NoError(t, err)
	otherPriv, _, err := task.Wait(context.Background())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(wrongPubPath, publicKeyFor(t, otherPriv), 0o600))

	verifyIn, verifyPubKeyFile = signedPath, wrongPubPath
	require.Error(t, verifyCmdRun.RunE(verifyCmdRun, nil))
}

func TestParseOID(t *testing.T) {
	oid, err := parseOID("1.3.6.1.4.1.9999.1")
	require.NoError(t, err)
	require.Equal(t, "1.3.6.1.4.1.9999.1", oid.String())

	_, err = parseOID("1.bogus.3")
	require.Error(t, err)
}

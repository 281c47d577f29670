// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/envelope/capability"
)

func TestEnvelopeSealOpenRoundTrip(t *testing.T) {
	reg = capability.NewDefaultRegistry()

	dir := t.TempDir()
	inPath := filepath.Join(dir, "plaintext.txt")
	kekPath := filepath.Join(dir, "kek.bin")
	sealedPath := filepath.Join(dir, "sealed.der")
	outPath := filepath.Join(dir, "recovered.txt")

	require.NoError(t, os.WriteFile(inPath, []byte("the quick brown fox jumps over the lazy dog"), 0o644))
	kek := make([]byte, 32)
	_, err := rand.Read(kek)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(kekPath, kek, 0o600))

	envPassword = ""
	envIn, envOut, envKEKFile, envKEKID = inPath, sealedPath, kekPath, "test-kek"
	require.NoError(t, envelopeSealCmd.RunE(envelopeSealCmd, nil))

	envIn, envOut, envKEKFile = sealedPath, outPath, kekPath
	require.NoError(t, envelopeOpenCmd.RunE(envelopeOpenCmd, nil))

	recovered, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Equal(t, "the quick brown fox jumps over the lazy dog", string(recovered))
}

func TestEnvelopeOpenRejectsWrongKEK(t *testing.T) {
	reg = capability.NewDefaultRegistry()

	dir := t.TempDir()
	inPath := filepath.Join(dir, "plaintext.txt")
	kekPath := filepath.Join(dir, "kek.bin")
	wrongKEKPath := filepath.Join(dir, "wrong.bin")
	sealedPath := filepath.Join(dir, "sealed.der")
	outPath := filepath.Join(dir, "recovered.txt")

	require.NoError(t, os.WriteFile(inPath, []byte("secret"), 0o644))
	kek := make([]byte, 32)
	_, _ = rand.Read(kek)
	require.NoError(t, os.WriteFile(kekPath, kek, 0o600))
	wrongKEK := make([]byte, 32)
	_, _ = rand.Read(wrongKEK)
	require.NoError(t, os.WriteFile(wrongKEKPath, wrongKEK, 0o600))

	envPassword = ""
	envIn, envOut, envKEKFile, envKEKID = inPath, sealedPath, kekPath, "test-kek"
	require.NoError(t, envelopeSealCmd.RunE(envelopeSealCmd, nil))

	envIn, envOut, envKEKFile = sealedPath, outPath, wrongKEKPath
	require.Error(t, envelopeOpenCmd.RunE(envelopeOpenCmd, nil))
}

func TestEnvelopeSealOpenPasswordRoundTrip(t *testing.T) {
	reg = capability.NewDefaultRegistry()
	cfg = Config{Hash: "sha256", KDFIterationsMax: 1000}

	dir := t.TempDir()
	inPath := filepath.Join(dir, "plaintext.txt")
	sealedPath := filepath.Join(dir, "sealed.der")
	outPath := filepath.Join(dir, "recovered.txt")

	require.NoError(t, os.WriteFile(inPath, []byte("Some test data\x00"), 0o644))

	envKEKFile = ""
	envPassword = "Password"
	envIn, envOut, envKEKID = inPath, sealedPath, "password-kek"
	require.NoError(t, envelopeSealCmd.RunE(envelopeSealCmd, nil))

	envIn, envOut = sealedPath, outPath
	require.NoError(t, envelopeOpenCmd.RunE(envelopeOpenCmd, nil))

	recovered, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Equal(t, "Some test data\x00", string(recovered))
}

func TestEnvelopeOpenPasswordRejectsWrongPassword(t *testing.T) {
	reg = capability.NewDefaultRegistry()
	cfg = Config{Hash: "sha256", KDFIterationsMax: 1000}

	dir := t.TempDir()
	inPath := filepath.Join(dir, "plaintext.txt")
	sealedPath := filepath.Join(dir, "sealed.der")
	outPath := filepath.Join(dir, "recovered.txt")

	require.NoError(t, os.WriteFile(inPath, []byte("secret"), 0o644))

	envKEKFile = ""
	envPassword = "correct horse battery staple"
	envIn, envOut, envKEKID = inPath, sealedPath, "password-kek"
	require.NoError(t, envelopeSealCmd.RunE(envelopeSealCmd, nil))

	envPassword = "wrong password"
	envIn, envOut = sealedPath, outPath
	require.Error(t, envelopeOpenCmd.RunE(envelopeOpenCmd, nil))
}

func TestEnvelopeSealRejectsMissingKEKSource(t *testing.T) {
	reg = capability.NewDefaultRegistry()
	cfg = Config{Hash: "sha256"}

	dir := t.TempDir()
	inPath := filepath.Join(dir, "plaintext.txt")
	require.NoError(t, os.WriteFile(inPath, []byte("secret"), 0o644))

	envKEKFile, envPassword = "", ""
	envIn, envOut, envKEKID = inPath, filepath.Join(dir, "sealed.der"), "test-kek"
	require.Error(t, envelopeSealCmd.RunE(envelopeSealCmd, nil))
}

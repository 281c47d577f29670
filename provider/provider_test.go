// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package provider

import (
	"crypto/rand"
	"testing"

	"github.com/luxfi/envelope/codec"
	"github.com/stretchr/testify/require"
)

func TestSoftwareAESCBCRoundTrip(t *testing.T) {
	s := NewSoftware()
	ctx, err := s.CreateContext(codec.AlgoAES, codec.ModeCBC)
	require.NoError(t, err)

	key := make([]byte, 32)
	_, err = rand.Read(key)
	require.NoError(t, err)
	require.NoError(t, s.LoadKey(ctx, key))

	iv := make([]byte, 16)
	_, err = rand.Read(iv)
	require.NoError(t, err)
	require.NoError(t, s.LoadIV(ctx, iv))

	plaintext := []byte("sixteen byte msg")
	ciphertext, err := s.Encrypt(ctx, plaintext)
	require.NoError(t, err)
	require.NotEqual(t, plaintext, ciphertext)

	recovered, err := s.Decrypt(ctx, ciphertext)
	require.NoError(t, err)
	require.Equal(t, plaintext, recovered)
}

func TestSoftwareDES3ECBRejectsUnalignedInput(t *testing.T) {
	s := NewSoftware()
	ctx, err := s.CreateContext(codec.Algo3DES, codec.ModeECB)
	require.NoError(t, err)
	require.NoError(t, s.LoadKey(ctx, make([]byte, 24)))

	_, err = s.Encrypt(ctx, []byte("not a multiple of eight!"))
	require.Error(t, err)
}

func TestSoftwareUnavailableAlgorithmFailsFast(t *testing.T) {
	s := NewSoftware()
	_, err := s.CreateContext(codec.AlgoDSA, codec.ModePKC)
	require.Error(t, err)

	cap, err := s.QueryCapability(codec.AlgoDSA, codec.ModePKC)
	require.Error(t, err)
	require.False(t, cap.Available)
}

func TestSoftwareSHA256Hash(t *testing.T) {
	s := NewSoftware()
	ctx, err := s.CreateContext(codec.AlgoSHA256, codec.ModeNone)
	require.NoError(t, err)

	digest, err := s.Hash(ctx, []byte("hello world"), true)
	require.NoError(t, err)
	require.Len(t, digest, 32)

	partial, err := s.Hash(ctx, []byte("hello world"), false)
	require.NoError(t, err)
	require.Nil(t, partial)
}

func TestSoftwareHMACSHA(t *testing.T) {
	s := NewSoftware()
	ctx, err := s.CreateContext(codec.AlgoHMACSHA, codec.ModeNone)
	require.NoError(t, err)
	require.NoError(t, s.LoadKey(ctx, []byte("a shared hmac key")))

	mac1, err := s.Hash(ctx, []byte("message"), true)
	require.NoError(t, err)
	mac2, err := s.Hash(ctx, []byte("message"), true)
	require.NoError(t, err)
	require.Equal(t, mac1, mac2)
}

func TestSoftwareDeriveKeyIsDeterministic(t *testing.T) {
	s := NewSoftware()
	ctx, err := s.CreateContext(codec.AlgoAES, codec.ModeCBC)
	require.NoError(t, err)

	kdf := KDFParams{Algorithm: codec.AlgoSHA256, Iterations: 1000, Salt: []byte("salt")}
	require.NoError(t, s.DeriveKey(ctx, []byte("passphrase"), kdf))
	first := append([]byte(nil), ctx.keyBytes()...)

	ctx2, err := s.CreateContext(codec.AlgoAES, codec.ModeCBC)
	require.NoError(t, err)
	require.NoError(t, s.DeriveKey(ctx2, []byte("passphrase"), kdf))
	require.Equal(t, first, ctx2.keyBytes())
}

func TestSoftwareRSASignVerifyAndEncryptDecrypt(t *testing.T) {
	s := NewSoftware()
	priv, pub, err := s.GenerateKeyPair(codec.AlgoRSA)
	require.NoError(t, err)

	signCtx, err := s.CreateContext(codec.AlgoRSA, codec.ModePKC)
	require.NoError(t, err)
	require.NoError(t, s.ImportKey(signCtx, priv))

	digest := make([]byte, 32)
	_, err = rand.Read(digest)
	require.NoError(t, err)

	sig, err := s.Sign(signCtx, digest)
	require.NoError(t, err)

	verifyCtx, err := s.CreateContext(codec.AlgoRSA, codec.ModePKC)
	require.NoError(t, err)
	require.NoError(t, s.ImportKey(verifyCtx, pub))
	require.NoError(t, s.Verify(verifyCtx, digest, sig))

	plaintext := []byte("key transport payload")
	ciphertext, err := s.Encrypt(verifyCtx, plaintext)
	require.NoError(t, err)
	recovered, err := s.Decrypt(signCtx, ciphertext)
	require.NoError(t, err)
	require.Equal(t, plaintext, recovered)
}

func TestSoftwareMLKEMEncapsulateDecapsulate(t *testing.T) {
	s := NewSoftware()
	priv, pub, err := s.GenerateKeyPair(codec.AlgoMLKEM)
	require.NoError(t, err)

	encCtx, err := s.CreateContext(codec.AlgoMLKEM, codec.ModePKC)
	require.NoError(t, err)
	require.NoError(t, s.ImportKey(encCtx, pub))

	sessionKey := make([]byte, 32)
	_, err = rand.Read(sessionKey)
	require.NoError(t, err)

	wrapped, err := s.Encrypt(encCtx, sessionKey)
	require.NoError(t, err)

	decCtx, err := s.CreateContext(codec.AlgoMLKEM, codec.ModePKC)
	require.NoError(t, err)
	require.NoError(t, s.ImportKey(decCtx, priv))

	recovered, err := s.Decrypt(decCtx, wrapped)
	require.NoError(t, err)
	require.Equal(t, sessionKey, recovered)
}

func TestSoftwareMLDSASignVerify(t *testing.T) {
	s := NewSoftware()
	priv, pub, err := s.GenerateKeyPair(codec.AlgoMLDSA)
	require.NoError(t, err)

	signCtx, err := s.CreateContext(codec.AlgoMLDSA, codec.ModePKC)
	require.NoError(t, err)
	require.NoError(t, s.ImportKey(signCtx, priv))

	message := []byte("message bound for ML-DSA")
	sig, err := s.Sign(signCtx, message)
	require.NoError(t, err)

	verifyCtx, err := s.CreateContext(codec.AlgoMLDSA, codec.ModePKC)
	require.NoError(t, err)
	require.NoError(t, s.ImportKey(verifyCtx, pub))
	require.NoError(t, s.Verify(verifyCtx, message, sig))

	require.Error(t, s.Verify(verifyCtx, []byte("tampered message"), sig))
}

func TestSoftwareHPKESealOpen(t *testing.T) {
	s := NewSoftware()
	priv, pub, err := s.GenerateKeyPair(codec.AlgoHPKE)
	require.NoError(t, err)

	sealCtx, err := s.CreateContext(codec.AlgoHPKE, codec.ModePKC)
	require.NoError(t, err)
	sealCtx.LoadPublicKey(pub)

	plaintext := []byte("hybrid public key encryption payload")
	ciphertext, err := s.Encrypt(sealCtx, plaintext)
	require.NoError(t, err)

	openCtx, err := s.CreateContext(codec.AlgoHPKE, codec.ModePKC)
	require.NoError(t, err)
	require.NoError(t, s.ImportKey(openCtx, priv))

	recovered, err := s.Decrypt(openCtx, ciphertext)
	require.NoError(t, err)
	require.Equal(t, plaintext, recovered)
}

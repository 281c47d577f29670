// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package provider

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"

	"github.com/luxfi/envelope/cerr"
)

func marshalRSAPrivate(priv *rsa.PrivateKey) []byte { return x509.MarshalPKCS1PrivateKey(priv) }

func marshalRSAPublic(pub *rsa.PublicKey) []byte { return x509.MarshalPKCS1PublicKey(pub) }

func parseRSAPrivateKey(der []byte) (*rsa.PrivateKey, error) {
	return x509.ParsePKCS1PrivateKey(der)
}

func parseRSAPublicKey(der []byte) (*rsa.PublicKey, error) {
	return x509.ParsePKCS1PublicKey(der)
}

func rsaPrivateKey(ctx *Context) (*rsa.PrivateKey, error) {
	key := ctx.keyBytes()
	if key == nil {
		return nil, cerr.New(cerr.WrongKey)
	}
	priv, err := parseRSAPrivateKey(key)
	if err != nil {
		return nil, cerr.Wrap(cerr.WrongKey, err)
	}
	return priv, nil
}

// generateRSAKeyPair creates a fresh RSA keypair at the given modulus
// size, DER-encoded the same way ImportKey/ExportKey expect.
func generateRSAKeyPair(bits int) (priv, pub []byte, err error) {
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, nil, cerr.Wrap(cerr.NotInitialized, err)
	}
	return marshalRSAPrivate(key), marshalRSAPublic(&key.PublicKey), nil
}

func rsaPublicKey(ctx *Context) (*rsa.PublicKey, error) {
	if pub := ctx.publicKeyBytes(); pub != nil {
		parsed, err := parseRSAPublicKey(pub)
		if err != nil {
			return nil, cerr.Wrap(cerr.WrongKey, err)
		}
		return parsed, nil
	}
	priv, err := rsaPrivateKey(ctx)
	if err != nil {
		return nil, err
	}
	return &priv.PublicKey, nil
}

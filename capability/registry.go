// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package capability implements the CapabilityRegistry spec §4.6 names:
// a thin trait-object façade over a provider.CryptoProvider that the
// envelope pipeline talks to without knowing whether a software library,
// a PKCS #11 device, or a threshold/MPC session is servicing a context.
package capability

import (
	"github.com/luxfi/envelope/cerr"
	"github.com/luxfi/envelope/codec"
	"github.com/luxfi/envelope/provider"
)

// Registry is the CapabilityRegistry façade. It forwards every call to
// the CryptoProvider it wraps, adding nothing but the single point the
// envelope package depends on.
type Registry struct {
	provider provider.CryptoProvider
	keystore provider.KeyStore
}

// NewRegistry builds a Registry over backend, using store to resolve
// auto-lookup requests the envelope's KeysetEncrypt/Decrypt/Sigcheck
// info kind registers (spec §6).
func NewRegistry(backend provider.CryptoProvider, store provider.KeyStore) *Registry {
	return &Registry{provider: backend, keystore: store}
}

// NewDefaultRegistry builds a Registry over the default software
// provider and an in-memory keystore, the combination cmd/envelopectl
// starts with absent an explicit PKCS #11 or file-backed configuration.
func NewDefaultRegistry() *Registry {
	return NewRegistry(provider.NewSoftware(), provider.NewMemoryKeyStore())
}

func (r *Registry) QueryCapability(algo codec.AlgorithmID, mode codec.Mode) (provider.Capability, error) {
	return r.provider.QueryCapability(algo, mode)
}

func (r *Registry) CreateContext(algo codec.AlgorithmID, mode codec.Mode) (*provider.Context, error) {
	return r.provider.CreateContext(algo, mode)
}

func (r *Registry) CloneContext(ctx *provider.Context, publicOnly bool) (*provider.Context, error) {
	return r.provider.CloneContext(ctx, publicOnly)
}

func (r *Registry) LoadIV(ctx *provider.Context, iv []byte) error {
	return r.provider.LoadIV(ctx, iv)
}

func (r *Registry) LoadKey(ctx *provider.Context, key []byte) error {
	return r.provider.LoadKey(ctx, key)
}

func (r *Registry) DeriveKey(ctx *provider.Context, passphrase []byte, kdf provider.KDFParams) error {
	return r.provider.DeriveKey(ctx, passphrase, kdf)
}

func (r *Registry) Encrypt(ctx *provider.Context, plaintext []byte) ([]byte, error) {
	return r.provider.Encrypt(ctx, plaintext)
}

func (r *Registry) Decrypt(ctx *provider.Context, ciphertext []byte) ([]byte, error) {
	return r.provider.Decrypt(ctx, ciphertext)
}

func (r *Registry) Hash(ctx *provider.Context, data []byte, final bool) ([]byte, error) {
	return r.provider.Hash(ctx, data, final)
}

func (r *Registry) Sign(ctx *provider.Context, digest []byte) ([]byte, error) {
	return r.provider.Sign(ctx, digest)
}

func (r *Registry) Verify(ctx *provider.Context, digest, signature []byte) error {
	return r.provider.Verify(ctx, digest, signature)
}

func (r *Registry) ImportKey(ctx *provider.Context, wireKey []byte) error {
	return r.provider.ImportKey(ctx, wireKey)
}

func (r *Registry) ExportKey(ctx *provider.Context) ([]byte, error) {
	return r.provider.ExportKey(ctx)
}

// RegisterKeyset installs store as the keyset the registry consults for
// auto-lookup, implementing the envelope info kind
// `KeysetEncrypt/Decrypt/Sigcheck` (spec §6): "Registers a keystore the
// pipeline may consult for auto-lookup."
func (r *Registry) RegisterKeyset(store provider.KeyStore) {
	r.keystore = store
}

// ResolveByKeyID looks up a key by its truncated-SHA-1 identifier in the
// registered keyset and imports it into a freshly created context,
// servicing the de-envelope side's auto-lookup path when a RecipientInfo
// or SignerInfo names a key the caller hasn't supplied directly.
func (r *Registry) ResolveByKeyID(algo codec.AlgorithmID, mode codec.Mode, keyID []byte) (*provider.Context, error) {
	if r.keystore == nil {
		return nil, cerr.New(cerr.DataNotFound)
	}
	wireKey, err := r.keystore.Get(keyID)
	if err != nil {
		return nil, err
	}
	ctx, err := r.provider.CreateContext(algo, mode)
	if err != nil {
		return nil, err
	}
	if err := r.provider.ImportKey(ctx, wireKey); err != nil {
		return nil, err
	}
	return ctx, nil
}

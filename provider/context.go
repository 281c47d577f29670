// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package provider implements the default CryptoProvider capability
// backend: a software-only implementation of the primitive operations
// capability.Registry dispatches to, built on stdlib crypto/* plus the
// post-quantum and hybrid algorithms the domain stack wires in
// (cloudflare/circl's HPKE/ML-KEM/ML-DSA, luxfi/threshold's MPC
// protocols). It also defines the KeyStore boundary trait spec §1 calls
// out as non-goal scope (file/database/LDAP/HTTP/smart-card keysets) and
// ships the one implementation that IS in scope: an in-memory store.
package provider

import (
	"sync"

	"github.com/luxfi/envelope/action"
	"github.com/luxfi/envelope/codec"
	"github.com/luxfi/envelope/secret"
)

// Context is a handle into a CryptoProvider bound to (algorithm, mode),
// optionally holding a loaded key, an IV, and algorithm-specific
// tunables (spec §3's CryptoContext entity). Contexts are reference
// counted externally by the action list; Clone shares public key
// material but never the private half.
type Context struct {
	mu sync.Mutex

	Algorithm codec.AlgorithmID
	Mode      codec.Mode
	Sub       codec.SubAlgorithmID

	key       *secret.Buffer // private/symmetric key material, nil until loaded
	publicKey []byte         // public half, for PKC contexts; never secret
	iv        []byte

	// Tunables carries algorithm-specific knobs the spec names (RC5
	// round count, Safer key-schedule variant) as opaque key/value pairs
	// since they're per-algorithm and the provider, not the registry,
	// interprets them.
	Tunables map[string]int

	refs int32
}

// NewContext creates an unkeyed Context bound to (algo, mode).
func NewContext(algo codec.AlgorithmID, mode codec.Mode) *Context {
	return &Context{Algorithm: algo, Mode: mode, refs: 1}
}

// SameKeyAs implements action.Handle: two Contexts are the same handle
// only if they carry byte-identical key material (public key for PKC
// contexts, private key for conventional ones) and agree on algorithm.
func (c *Context) SameKeyAs(other action.Handle) bool {
	o, ok := other.(*Context)
	if !ok {
		return false
	}
	mine, mineOK := c.sameKeyBytes()
	theirs, theirOK := o.sameKeyBytes()
	if !mineOK || !theirOK || c.Algorithm != o.Algorithm {
		return false
	}
	if len(mine) != len(theirs) {
		return false
	}
	for i := range mine {
		if mine[i] != theirs[i] {
			return false
		}
	}
	return true
}

func (c *Context) sameKeyBytes() ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.publicKey != nil {
		return c.publicKey, true
	}
	if c.key != nil {
		return c.key.Bytes(), true
	}
	return nil, false
}

// Retain increments the external reference count the envelope's action
// entries share, per spec §3's ownership note.
func (c *Context) Retain() { c.mu.Lock(); c.refs++; c.mu.Unlock() }

// Release decrements the reference count, destroying the held key
// material once it reaches zero.
func (c *Context) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refs--
	if c.refs <= 0 && c.key != nil {
		c.key.Destroy()
		c.key = nil
	}
}

// Clone duplicates the context; if publicOnly, only the public key (if
// any) carries over, matching spec §4.6's clone_context(ctx, publicOnly).
func (c *Context) Clone(publicOnly bool) *Context {
	c.mu.Lock()
	defer c.mu.Unlock()

	clone := &Context{
		Algorithm: c.Algorithm,
		Mode:      c.Mode,
		Sub:       c.Sub,
		publicKey: append([]byte(nil), c.publicKey...),
		iv:        append([]byte(nil), c.iv...),
		refs:      1,
	}
	if c.Tunables != nil {
		clone.Tunables = make(map[string]int, len(c.Tunables))
		for k, v := range c.Tunables {
			clone.Tunables[k] = v
		}
	}
	if !publicOnly && c.key != nil {
		clone.key = secret.New(c.key.Bytes())
	}
	return clone
}

// LoadKey installs private/symmetric key bytes, replacing any prior key.
func (c *Context) LoadKey(key []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.key != nil {
		c.key.Destroy()
	}
	c.key = secret.New(key)
}

// LoadPublicKey installs the public half of a PKC context.
func (c *Context) LoadPublicKey(pub []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.publicKey = append([]byte(nil), pub...)
}

// LoadIV installs the context's initialization vector.
func (c *Context) LoadIV(iv []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.iv = append([]byte(nil), iv...)
}

func (c *Context) keyBytes() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.key == nil {
		return nil
	}
	return c.key.Bytes()
}

func (c *Context) ivBytes() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.iv
}

func (c *Context) publicKeyBytes() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.publicKey
}

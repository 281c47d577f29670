// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package provider

import (
	"github.com/luxfi/envelope/cerr"
	"github.com/luxfi/envelope/codec"
)

// Capability describes what a provider can do for one (algorithm, mode)
// pair: minimum/maximum key and IV sizes and whether the operation is
// available at all. A zero-value Capability with Available == false is
// what query_capability returns for an algorithm the provider has no
// handler for, per spec §9's "PKCS #11 capability table with placeholder
// entries" open question: a listed-but-unimplemented capability must
// fail fast at use, not silently appear usable.
type Capability struct {
	Algorithm  codec.AlgorithmID
	Mode       codec.Mode
	Available  bool
	MinKeySize int
	MaxKeySize int
	MinIVSize  int
	MaxIVSize  int
}

// DefaultPBKDF2IterationCap is the iteration count DeriveKey enforces when
// a caller doesn't supply KDFParams.MaxIterations, matching spec §4.2's
// "iteration count bounded at 20000 on read" for a password-derived
// KEKRecipientInfo.
const DefaultPBKDF2IterationCap = 20000

// KDFParams names the password-based key-derivation parameters
// DeriveKey uses to turn a passphrase into a session key.
type KDFParams struct {
	Algorithm     codec.AlgorithmID // digest used as PBKDF2's PRF, e.g. AlgoSHA256
	Iterations    int
	Salt          []byte
	MaxIterations int // iteration count above which DeriveKey refuses to run; 0 means DefaultPBKDF2IterationCap
}

// CryptoProvider is the trait-object façade spec §4.6 names: the set of
// primitive operations a concrete backend (this package's software
// implementation, or in principle a PKCS #11 device) must support so the
// envelope pipeline stays unaware of which is servicing a Context.
type CryptoProvider interface {
	QueryCapability(algo codec.AlgorithmID, mode codec.Mode) (Capability, error)
	CreateContext(algo codec.AlgorithmID, mode codec.Mode) (*Context, error)
	CloneContext(ctx *Context, publicOnly bool) (*Context, error)

	LoadIV(ctx *Context, iv []byte) error
	LoadKey(ctx *Context, key []byte) error
	DeriveKey(ctx *Context, passphrase []byte, kdf KDFParams) error

	Encrypt(ctx *Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx *Context, ciphertext []byte) ([]byte, error)
	Hash(ctx *Context, data []byte, final bool) ([]byte, error)
	Sign(ctx *Context, digest []byte) ([]byte, error)
	Verify(ctx *Context, digest, signature []byte) error

	ImportKey(ctx *Context, wireKey []byte) error
	ExportKey(ctx *Context) ([]byte, error)
}

// KeyPairGenerator is an optional capability a CryptoProvider may offer
// beyond the fixed spec §4.6 method set: generating a fresh keypair for
// algo rather than importing one from elsewhere. Software implements it;
// capability.Registry type-asserts for it when driving async keygen,
// since a PKCS #11 device might generate keys on-card without ever
// exposing private key bytes to this process at all.
type KeyPairGenerator interface {
	GenerateKeyPair(algo codec.AlgorithmID) (priv, pub []byte, err error)
}

// requireAvailable is the shared "fail fast, don't silently misbehave"
// check every software-provider operation runs before touching ctx.
func requireAvailable(algo codec.AlgorithmID, mode codec.Mode, cap Capability) error {
	if !cap.Available {
		return cerr.WithLocus(cerr.NoAlgorithm, cerr.Locus{Detail: algoLabel(algo, mode)}, nil)
	}
	return nil
}

// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package provider

import (
	"crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/des" //nolint:staticcheck // DES/3DES are legacy CMS bulk ciphers this codec must still interoperate with
	"crypto/hmac"
	"crypto/md5" //nolint:gosec // legacy hash this codec must still decode per spec §3
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1" //nolint:gosec // legacy hash this codec must still decode per spec §3
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"

	"github.com/luxfi/crypto/mldsa"
	"github.com/luxfi/crypto/mlkem"
	"github.com/luxfi/envelope/cerr"
	"github.com/luxfi/envelope/codec"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/pbkdf2"
)

// Software is the default CryptoProvider: every operation runs in this
// process using stdlib crypto/* plus the domain-stack hash/PKC additions
// (BLAKE3, ML-KEM, ML-DSA — see pq.go). It never talks to an external
// device; a PKCS #11 or smart-card backend would implement the same
// CryptoProvider interface, which is the whole point of the façade.
type Software struct{}

// NewSoftware constructs the default software-backed provider.
func NewSoftware() *Software { return &Software{} }

var softwareCapabilities = []Capability{
	{Algorithm: codec.AlgoDES, Mode: codec.ModeCBC, Available: true, MinKeySize: 8, MaxKeySize: 8, MinIVSize: 8, MaxIVSize: 8},
	{Algorithm: codec.AlgoDES, Mode: codec.ModeCFB, Available: true, MinKeySize: 8, MaxKeySize: 8, MinIVSize: 8, MaxIVSize: 8},
	{Algorithm: codec.AlgoDES, Mode: codec.ModeOFB, Available: true, MinKeySize: 8, MaxKeySize: 8, MinIVSize: 8, MaxIVSize: 8},
	{Algorithm: codec.AlgoDES, Mode: codec.ModeECB, Available: true, MinKeySize: 8, MaxKeySize: 8},
	{Algorithm: codec.Algo3DES, Mode: codec.ModeCBC, Available: true, MinKeySize: 24, MaxKeySize: 24, MinIVSize: 8, MaxIVSize: 8},
	{Algorithm: codec.Algo3DES, Mode: codec.ModeCFB, Available: true, MinKeySize: 24, MaxKeySize: 24, MinIVSize: 8, MaxIVSize: 8},
	{Algorithm: codec.AlgoAES, Mode: codec.ModeCBC, Available: true, MinKeySize: 16, MaxKeySize: 32, MinIVSize: 16, MaxIVSize: 16},
	{Algorithm: codec.AlgoAES, Mode: codec.ModeCFB, Available: true, MinKeySize: 16, MaxKeySize: 32, MinIVSize: 16, MaxIVSize: 16},
	{Algorithm: codec.AlgoAES, Mode: codec.ModeOFB, Available: true, MinKeySize: 16, MaxKeySize: 32, MinIVSize: 16, MaxIVSize: 16},
	{Algorithm: codec.AlgoAES, Mode: codec.ModeECB, Available: true, MinKeySize: 16, MaxKeySize: 32},

	{Algorithm: codec.AlgoMD2, Mode: codec.ModeNone},
	{Algorithm: codec.AlgoMD4, Mode: codec.ModeNone},
	{Algorithm: codec.AlgoMD5, Mode: codec.ModeNone, Available: true},
	{Algorithm: codec.AlgoSHA1, Mode: codec.ModeNone, Available: true},
	{Algorithm: codec.AlgoRIPEMD160, Mode: codec.ModeNone},
	{Algorithm: codec.AlgoMDC2, Mode: codec.ModeNone},
	{Algorithm: codec.AlgoSHA256, Mode: codec.ModeNone, Available: true},
	{Algorithm: codec.AlgoSHA384, Mode: codec.ModeNone, Available: true},
	{Algorithm: codec.AlgoSHA512, Mode: codec.ModeNone, Available: true},
	{Algorithm: codec.AlgoBLAKE3, Mode: codec.ModeNone, Available: true},

	{Algorithm: codec.AlgoHMACMD5, Mode: codec.ModeNone, Available: true},
	{Algorithm: codec.AlgoHMACSHA, Mode: codec.ModeNone, Available: true},
	{Algorithm: codec.AlgoHMACRIPEMD160, Mode: codec.ModeNone},

	{Algorithm: codec.AlgoRSA, Mode: codec.ModePKC, Available: true, MinKeySize: 64},
	{Algorithm: codec.AlgoDSA, Mode: codec.ModePKC},
	{Algorithm: codec.AlgoDH, Mode: codec.ModePKC},
	{Algorithm: codec.AlgoElgamal, Mode: codec.ModePKC},

	{Algorithm: codec.AlgoMLKEM, Mode: codec.ModePKC, Available: true},
	{Algorithm: codec.AlgoMLDSA, Mode: codec.ModePKC, Available: true},
	{Algorithm: codec.AlgoHPKE, Mode: codec.ModePKC, Available: true},
}

func lookupCapability(algo codec.AlgorithmID, mode codec.Mode) Capability {
	for _, c := range softwareCapabilities {
		if c.Algorithm == algo && c.Mode == mode {
			return c
		}
	}
	return Capability{Algorithm: algo, Mode: mode}
}

func algoLabel(algo codec.AlgorithmID, mode codec.Mode) string {
	return fmt.Sprintf("algo=%d mode=%d", algo, mode)
}

// QueryCapability reports what the software provider can do for (algo,
// mode) without attempting the operation, per spec §4.6.
func (s *Software) QueryCapability(algo codec.AlgorithmID, mode codec.Mode) (Capability, error) {
	cap := lookupCapability(algo, mode)
	if !cap.Available {
		return cap, cerr.New(cerr.NoAlgorithm)
	}
	return cap, nil
}

// CreateContext allocates a fresh, unkeyed Context after confirming the
// provider actually supports (algo, mode).
func (s *Software) CreateContext(algo codec.AlgorithmID, mode codec.Mode) (*Context, error) {
	if err := requireAvailable(algo, mode, lookupCapability(algo, mode)); err != nil {
		return nil, err
	}
	return NewContext(algo, mode), nil
}

// CloneContext duplicates ctx, sharing public key material only when
// publicOnly is requested.
func (s *Software) CloneContext(ctx *Context, publicOnly bool) (*Context, error) {
	if ctx == nil {
		return nil, cerr.New(cerr.NotInitialized)
	}
	return ctx.Clone(publicOnly), nil
}

func (s *Software) LoadIV(ctx *Context, iv []byte) error {
	cap := lookupCapability(ctx.Algorithm, ctx.Mode)
	if cap.MaxIVSize > 0 && (len(iv) < cap.MinIVSize || len(iv) > cap.MaxIVSize) {
		return cerr.New(cerr.BadData)
	}
	ctx.LoadIV(iv)
	return nil
}

func (s *Software) LoadKey(ctx *Context, key []byte) error {
	cap := lookupCapability(ctx.Algorithm, ctx.Mode)
	if cap.MaxKeySize > 0 && (len(key) < cap.MinKeySize || len(key) > cap.MaxKeySize) {
		return cerr.New(cerr.BadData)
	}
	ctx.LoadKey(key)
	return nil
}

// DeriveKey turns a passphrase into session-key bytes via RFC 8018 PBKDF2
// over the configured digest (used as the HMAC PRF), then loads the
// result as ctx's key. Iteration counts above kdf.MaxIterations (or
// DefaultPBKDF2IterationCap if unset) are refused, matching spec §4.2's
// "iteration count bounded at 20000 on read" for a password-derived
// KEKRecipientInfo.
func (s *Software) DeriveKey(ctx *Context, passphrase []byte, kdf KDFParams) error {
	if kdf.Iterations <= 0 {
		return cerr.New(cerr.BadData)
	}
	cap := kdf.MaxIterations
	if cap <= 0 {
		cap = DefaultPBKDF2IterationCap
	}
	if kdf.Iterations > cap {
		return cerr.New(cerr.Overflow)
	}
	h, err := newHash(kdf.Algorithm)
	if err != nil {
		return err
	}
	derived := pbkdf2.Key(passphrase, kdf.Salt, kdf.Iterations, h().Size(), h)
	ctx.LoadKey(derived)
	return nil
}

func newHash(algo codec.AlgorithmID) (func() hash.Hash, error) {
	switch algo {
	case codec.AlgoMD5:
		return md5.New, nil
	case codec.AlgoSHA1:
		return sha1.New, nil
	case codec.AlgoSHA256:
		return sha256.New, nil
	case codec.AlgoSHA384:
		return sha512.New384, nil
	case codec.AlgoSHA512:
		return sha512.New, nil
	case codec.AlgoBLAKE3:
		return func() hash.Hash { return blake3.New() }, nil
	default:
		return nil, cerr.New(cerr.NoAlgorithm)
	}
}

func cryptoHashFor(algo codec.AlgorithmID) (crypto.Hash, error) {
	switch algo {
	case codec.AlgoMD5:
		return crypto.MD5, nil
	case codec.AlgoSHA1:
		return crypto.SHA1, nil
	case codec.AlgoSHA256:
		return crypto.SHA256, nil
	case codec.AlgoSHA384:
		return crypto.SHA384, nil
	case codec.AlgoSHA512:
		return crypto.SHA512, nil
	default:
		return 0, cerr.New(cerr.NoAlgorithm)
	}
}

func blockCipher(ctx *Context) (cipher.Block, error) {
	key := ctx.keyBytes()
	if key == nil {
		return nil, cerr.New(cerr.WrongKey)
	}
	switch ctx.Algorithm {
	case codec.AlgoDES:
		return des.NewCipher(key)
	case codec.Algo3DES:
		return des.NewTripleDESCipher(key)
	case codec.AlgoAES:
		return aes.NewCipher(key)
	default:
		return nil, cerr.New(cerr.NoAlgorithm)
	}
}

// Encrypt runs the bulk cipher in Ctx.Mode over plaintext. For PKC
// contexts (RSA key transport) it performs a single public-key encrypt
// operation instead of a streamed block-cipher pass.
func (s *Software) Encrypt(ctx *Context, plaintext []byte) ([]byte, error) {
	if ctx.Mode == codec.ModePKC {
		return s.pkcEncrypt(ctx, plaintext)
	}
	block, err := blockCipher(ctx)
	if err != nil {
		return nil, err
	}
	iv := ctx.ivBytes()
	return runBlockMode(ctx.Mode, block, iv, plaintext, true)
}

// Decrypt is Encrypt's inverse.
func (s *Software) Decrypt(ctx *Context, ciphertext []byte) ([]byte, error) {
	if ctx.Mode == codec.ModePKC {
		return s.pkcDecrypt(ctx, ciphertext)
	}
	block, err := blockCipher(ctx)
	if err != nil {
		return nil, err
	}
	iv := ctx.ivBytes()
	return runBlockMode(ctx.Mode, block, iv, ciphertext, false)
}

func runBlockMode(mode codec.Mode, block cipher.Block, iv, data []byte, encrypt bool) ([]byte, error) {
	bs := block.BlockSize()
	out := make([]byte, len(data))
	switch mode {
	case codec.ModeCBC:
		if len(data)%bs != 0 || len(iv) != bs {
			return nil, cerr.New(cerr.BadData)
		}
		if encrypt {
			cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, data)
		} else {
			cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, data)
		}
	case codec.ModeCFB:
		if len(iv) != bs {
			return nil, cerr.New(cerr.BadData)
		}
		if encrypt {
			cipher.NewCFBEncrypter(block, iv).XORKeyStream(out, data) //nolint:staticcheck // CMS-era CFB mode, kept for interop
		} else {
			cipher.NewCFBDecrypter(block, iv).XORKeyStream(out, data) //nolint:staticcheck // CMS-era CFB mode, kept for interop
		}
	case codec.ModeOFB:
		if len(iv) != bs {
			return nil, cerr.New(cerr.BadData)
		}
		cipher.NewOFB(block, iv).XORKeyStream(out, data)
	case codec.ModeECB:
		if len(data)%bs != 0 {
			return nil, cerr.New(cerr.BadData)
		}
		for off := 0; off < len(data); off += bs {
			if encrypt {
				block.Encrypt(out[off:off+bs], data[off:off+bs])
			} else {
				block.Decrypt(out[off:off+bs], data[off:off+bs])
			}
		}
	default:
		return nil, cerr.New(cerr.NoMode)
	}
	return out, nil
}

func (s *Software) pkcEncrypt(ctx *Context, plaintext []byte) ([]byte, error) {
	switch ctx.Algorithm {
	case codec.AlgoRSA:
		pub, err := rsaPublicKey(ctx)
		if err != nil {
			return nil, err
		}
		ct, err := rsa.EncryptPKCS1v15(rand.Reader, pub, plaintext)
		if err != nil {
			return nil, cerr.Wrap(cerr.BadData, err)
		}
		return ct, nil
	case codec.AlgoMLKEM:
		return mlkemEncrypt(ctx, plaintext)
	case codec.AlgoHPKE:
		return hpkeEncrypt(ctx, plaintext)
	default:
		return nil, cerr.New(cerr.NoAlgorithm)
	}
}

func (s *Software) pkcDecrypt(ctx *Context, ciphertext []byte) ([]byte, error) {
	switch ctx.Algorithm {
	case codec.AlgoRSA:
		priv, err := rsaPrivateKey(ctx)
		if err != nil {
			return nil, err
		}
		pt, err := rsa.DecryptPKCS1v15(rand.Reader, priv, ciphertext)
		if err != nil {
			return nil, cerr.Wrap(cerr.WrongKey, err)
		}
		return pt, nil
	case codec.AlgoMLKEM:
		return mlkemDecrypt(ctx, ciphertext)
	case codec.AlgoHPKE:
		return hpkeDecrypt(ctx, ciphertext)
	default:
		return nil, cerr.New(cerr.NoAlgorithm)
	}
}

// Hash feeds data into ctx's running digest, returning the final value
// once final is true. Non-final calls return nil; the Context itself
// does not retain streaming state here since the digest function is
// re-entered fresh each call is impractical for a streamed hash — the
// caller (action package's scheduler-driven transform) is expected to
// buffer across Push calls and call Hash once per flush boundary with
// the accumulated bytes, matching the codec's own buffered-chunk idiom.
func (s *Software) Hash(ctx *Context, data []byte, final bool) ([]byte, error) {
	if !final {
		return nil, nil
	}
	h, err := newHash(ctx.Algorithm)
	if err != nil {
		if ctx.Algorithm == codec.AlgoHMACMD5 || ctx.Algorithm == codec.AlgoHMACSHA || ctx.Algorithm == codec.AlgoHMACRIPEMD160 {
			return s.mac(ctx, data)
		}
		return nil, err
	}
	sum := h()
	sum.Write(data)
	return sum.Sum(nil), nil
}

func (s *Software) mac(ctx *Context, data []byte) ([]byte, error) {
	key := ctx.keyBytes()
	if key == nil {
		return nil, cerr.New(cerr.WrongKey)
	}
	var base func() hash.Hash
	switch ctx.Algorithm {
	case codec.AlgoHMACMD5:
		base = md5.New
	case codec.AlgoHMACSHA:
		base = sha1.New
	default:
		return nil, cerr.New(cerr.NoAlgorithm)
	}
	mac := hmac.New(base, key)
	mac.Write(data)
	return mac.Sum(nil), nil
}

// Sign produces an RSA PKCS#1 v1.5 signature over digest, the scheme the
// object model's SignerInfo round-trip (spec §8 invariant 5) exercises.
func (s *Software) Sign(ctx *Context, digest []byte) ([]byte, error) {
	switch ctx.Algorithm {
	case codec.AlgoRSA:
		priv, err := rsaPrivateKey(ctx)
		if err != nil {
			return nil, err
		}
		h, err := cryptoHashFor(digestAlgo(ctx))
		if err != nil {
			return nil, err
		}
		sig, err := rsa.SignPKCS1v15(rand.Reader, priv, h, digest)
		if err != nil {
			return nil, cerr.Wrap(cerr.BadSignature, err)
		}
		return sig, nil
	case codec.AlgoMLDSA:
		return mldsaSign(ctx, digest)
	default:
		return nil, cerr.New(cerr.NoAlgorithm)
	}
}

// Verify checks an RSA PKCS#1 v1.5 signature, or an ML-DSA one for PQ
// contexts.
func (s *Software) Verify(ctx *Context, digest, signature []byte) error {
	switch ctx.Algorithm {
	case codec.AlgoRSA:
		pub, err := rsaPublicKey(ctx)
		if err != nil {
			return err
		}
		h, err := cryptoHashFor(digestAlgo(ctx))
		if err != nil {
			return err
		}
		if err := rsa.VerifyPKCS1v15(pub, h, digest, signature); err != nil {
			return cerr.Wrap(cerr.BadSignature, err)
		}
		return nil
	case codec.AlgoMLDSA:
		return mldsaVerify(ctx, digest, signature)
	default:
		return cerr.New(cerr.NoAlgorithm)
	}
}

// digestAlgo reads which hash a sign/verify context should assume the
// digest argument was produced with, defaulting to SHA-256 for contexts
// that never set the tunable explicitly.
func digestAlgo(ctx *Context) codec.AlgorithmID {
	if ctx.Sub != codec.SubNone {
		return codec.AlgoSHA1
	}
	return codec.AlgoSHA256
}

// ImportKey loads a DER-encoded PKCS#1/SubjectPublicKeyInfo key (public
// or private, inferred from the wire form) into ctx.
func (s *Software) ImportKey(ctx *Context, wireKey []byte) error {
	switch ctx.Algorithm {
	case codec.AlgoRSA:
		if priv, err := parseRSAPrivateKey(wireKey); err == nil {
			ctx.LoadKey(marshalRSAPrivate(priv))
			ctx.LoadPublicKey(marshalRSAPublic(&priv.PublicKey))
			return nil
		}
		pub, err := parseRSAPublicKey(wireKey)
		if err != nil {
			return cerr.Wrap(cerr.BadData, err)
		}
		ctx.LoadPublicKey(marshalRSAPublic(pub))
		return nil
	case codec.AlgoMLKEM:
		return mlkemImportKey(ctx, wireKey)
	case codec.AlgoMLDSA:
		return mldsaImportKey(ctx, wireKey)
	case codec.AlgoHPKE:
		return hpkeImportKey(ctx, wireKey)
	default:
		return cerr.New(cerr.NoAlgorithm)
	}
}

// ExportKey serializes ctx's key material back to wire form: the public
// key if that's all ctx holds, the private key otherwise.
func (s *Software) ExportKey(ctx *Context) ([]byte, error) {
	switch ctx.Algorithm {
	case codec.AlgoAES, codec.AlgoDES, codec.Algo3DES:
		if key := ctx.keyBytes(); key != nil {
			return key, nil
		}
		return nil, cerr.New(cerr.NotInitialized)
	case codec.AlgoRSA:
		if key := ctx.keyBytes(); key != nil {
			return key, nil
		}
		if pub := ctx.publicKeyBytes(); pub != nil {
			return pub, nil
		}
		return nil, cerr.New(cerr.NotInitialized)
	case codec.AlgoMLKEM:
		return mlkemExportKey(ctx)
	case codec.AlgoMLDSA:
		return mldsaExportKey(ctx)
	case codec.AlgoHPKE:
		return hpkeExportKey(ctx)
	default:
		return nil, cerr.New(cerr.NoAlgorithm)
	}
}

// GenerateKeyPair produces a fresh keypair for PQ algorithms, returning
// wire-form private and public key bytes ImportKey/ExportKey round-trip.
// RSA keys are generated through rsa.go's own helper since
// crypto/rsa.GenerateKey needs no algorithm-specific parameter set; this
// method exists for the async keygen task capability.Registry drives.
func (s *Software) GenerateKeyPair(algo codec.AlgorithmID) (priv, pub []byte, err error) {
	switch algo {
	case codec.AlgoRSA:
		return generateRSAKeyPair(2048)
	case codec.AlgoMLKEM:
		return generateMLKEMKeyPair(mlkem.MLKEM768)
	case codec.AlgoMLDSA:
		return generateMLDSAKeyPair(mldsa.MLDSA65)
	case codec.AlgoHPKE:
		return generateHPKEKeyPair()
	default:
		return nil, nil, cerr.New(cerr.NoAlgorithm)
	}
}

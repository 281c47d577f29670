// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package provider

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"

	"github.com/cloudflare/circl/hpke"
	"github.com/cloudflare/circl/kem"
	"github.com/luxfi/crypto/mldsa"
	"github.com/luxfi/crypto/mlkem"
	"github.com/luxfi/envelope/cerr"
)

// The OID table registers exactly one parameter set per post-quantum
// algorithm (mlkem768, mldsa65, hpke-base); that is also what this
// provider generates and expects on import unless a context's Tunables
// name a different one.
const (
	pqTunableMLKEMMode = "mlkemMode"
	pqTunableMLDSAMode = "mldsaMode"
)

func mlkemMode(ctx *Context) mlkem.Mode {
	switch ctx.Tunables[pqTunableMLKEMMode] {
	case 512:
		return mlkem.MLKEM512
	case 1024:
		return mlkem.MLKEM1024
	default:
		return mlkem.MLKEM768
	}
}

func mldsaMode(ctx *Context) mldsa.Mode {
	switch ctx.Tunables[pqTunableMLDSAMode] {
	case 44:
		return mldsa.MLDSA44
	case 87:
		return mldsa.MLDSA87
	default:
		return mldsa.MLDSA65
	}
}

func mlkemPublicKey(ctx *Context) (*mlkem.PublicKey, error) {
	pub := ctx.publicKeyBytes()
	if pub == nil {
		return nil, cerr.New(cerr.NotInitialized)
	}
	pk, err := mlkem.PublicKeyFromBytes(pub, mlkemMode(ctx))
	if err != nil {
		return nil, cerr.Wrap(cerr.BadData, err)
	}
	return pk, nil
}

func mlkemPrivateKey(ctx *Context) (*mlkem.PrivateKey, error) {
	key := ctx.keyBytes()
	if key == nil {
		return nil, cerr.New(cerr.WrongKey)
	}
	sk, err := mlkem.PrivateKeyFromBytes(key, mlkemMode(ctx))
	if err != nil {
		return nil, cerr.Wrap(cerr.WrongKey, err)
	}
	return sk, nil
}

func mldsaPublicKey(ctx *Context) (*mldsa.PublicKey, error) {
	pub := ctx.publicKeyBytes()
	if pub == nil {
		return nil, cerr.New(cerr.NotInitialized)
	}
	pk, err := mldsa.PublicKeyFromBytes(pub, mldsaMode(ctx))
	if err != nil {
		return nil, cerr.Wrap(cerr.BadData, err)
	}
	return pk, nil
}

// hpkeSuite is the one cipher suite the registered hpke-base OID names:
// X25519 KEM, HKDF-SHA256, AES-256-GCM.
func hpkeSuite() hpke.Suite {
	return hpke.NewSuite(hpke.KEM_X25519_HKDF_SHA256, hpke.KDF_HKDF_SHA256, hpke.AEAD_AES256GCM)
}

func hpkePublicKey(ctx *Context) (kem.PublicKey, error) {
	pub := ctx.publicKeyBytes()
	if pub == nil {
		return nil, cerr.New(cerr.NotInitialized)
	}
	pk, err := hpkeSuite().KEM.Scheme().UnmarshalBinaryPublicKey(pub)
	if err != nil {
		return nil, cerr.Wrap(cerr.BadData, err)
	}
	return pk, nil
}

func hpkePrivateKey(ctx *Context) (kem.PrivateKey, error) {
	key := ctx.keyBytes()
	if key == nil {
		return nil, cerr.New(cerr.WrongKey)
	}
	sk, err := hpkeSuite().KEM.Scheme().UnmarshalBinaryPrivateKey(key)
	if err != nil {
		return nil, cerr.Wrap(cerr.WrongKey, err)
	}
	return sk, nil
}

// mlkemEncrypt wraps plaintext (normally a content-encryption key, per
// spec §3's RecipientInfo) under a key encapsulated to ctx's public key,
// the same KEM-DEM shape CMS's key-wrap-via-KEK idiom uses for
// conventional RecipientInfo: encapsulate a one-time shared secret, then
// seal plaintext under it with AES-256-GCM. Output is
// [2-byte ciphertext length][KEM ciphertext][12-byte nonce][sealed data].
func mlkemEncrypt(ctx *Context, plaintext []byte) ([]byte, error) {
	pk, err := mlkemPublicKey(ctx)
	if err != nil {
		return nil, err
	}
	kemCiphertext, sharedSecret, err := pk.Encapsulate()
	if err != nil {
		return nil, cerr.Wrap(cerr.BadData, err)
	}
	return sealWithSharedSecret(kemCiphertext, sharedSecret, plaintext)
}

func mlkemDecrypt(ctx *Context, wire []byte) ([]byte, error) {
	sk, err := mlkemPrivateKey(ctx)
	if err != nil {
		return nil, err
	}
	kemCiphertext, sealed, err := splitSealedEnvelope(wire)
	if err != nil {
		return nil, err
	}
	sharedSecret, err := sk.Decapsulate(kemCiphertext)
	if err != nil {
		return nil, cerr.Wrap(cerr.WrongKey, err)
	}
	return openWithSharedSecret(sharedSecret, sealed)
}

func hpkeEncrypt(ctx *Context, plaintext []byte) ([]byte, error) {
	pk, err := hpkePublicKey(ctx)
	if err != nil {
		return nil, err
	}
	sender, err := hpkeSuite().NewSender(pk, nil)
	if err != nil {
		return nil, cerr.Wrap(cerr.BadData, err)
	}
	enc, sealer, err := sender.Setup(rand.Reader)
	if err != nil {
		return nil, cerr.Wrap(cerr.BadData, err)
	}
	ciphertext, err := sealer.Seal(plaintext, nil)
	if err != nil {
		return nil, cerr.Wrap(cerr.BadData, err)
	}
	return lengthPrefix(enc, ciphertext), nil
}

func hpkeDecrypt(ctx *Context, wire []byte) ([]byte, error) {
	sk, err := hpkePrivateKey(ctx)
	if err != nil {
		return nil, err
	}
	enc, ciphertext, err := splitSealedEnvelope(wire)
	if err != nil {
		return nil, err
	}
	receiver, err := hpkeSuite().NewReceiver(sk, nil)
	if err != nil {
		return nil, cerr.Wrap(cerr.WrongKey, err)
	}
	opener, err := receiver.Setup(enc)
	if err != nil {
		return nil, cerr.Wrap(cerr.WrongKey, err)
	}
	plaintext, err := opener.Open(ciphertext, nil)
	if err != nil {
		return nil, cerr.Wrap(cerr.BadSignature, err)
	}
	return plaintext, nil
}

func mldsaSign(ctx *Context, digest []byte) ([]byte, error) {
	key := ctx.keyBytes()
	if key == nil {
		return nil, cerr.New(cerr.WrongKey)
	}
	priv, err := mldsa.PrivateKeyFromBytes(key, mldsaMode(ctx))
	if err != nil {
		return nil, cerr.Wrap(cerr.WrongKey, err)
	}
	sig, err := priv.Sign(rand.Reader, digest, nil)
	if err != nil {
		return nil, cerr.Wrap(cerr.BadSignature, err)
	}
	return sig, nil
}

func mldsaVerify(ctx *Context, digest, signature []byte) error {
	pub, err := mldsaPublicKey(ctx)
	if err != nil {
		return err
	}
	if !pub.Verify(digest, signature, nil) {
		return cerr.New(cerr.BadSignature)
	}
	return nil
}

// sealWithSharedSecret uses a KEM-derived shared secret as an AES-256-GCM
// key to wrap plaintext, prefixing the KEM ciphertext and nonce so the
// whole thing round-trips through a single opaque wire blob.
func sealWithSharedSecret(kemCiphertext, sharedSecret, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(sharedSecret)
	if err != nil {
		return nil, cerr.Wrap(cerr.BadData, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, cerr.Wrap(cerr.BadData, err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, cerr.Wrap(cerr.BadData, err)
	}
	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	return lengthPrefix(kemCiphertext, append(nonce, sealed...)), nil
}

func openWithSharedSecret(sharedSecret, nonceAndSealed []byte) ([]byte, error) {
	block, err := aes.NewCipher(sharedSecret)
	if err != nil {
		return nil, cerr.Wrap(cerr.WrongKey, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, cerr.Wrap(cerr.WrongKey, err)
	}
	if len(nonceAndSealed) < gcm.NonceSize() {
		return nil, cerr.New(cerr.BadData)
	}
	nonce, sealed := nonceAndSealed[:gcm.NonceSize()], nonceAndSealed[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, cerr.Wrap(cerr.BadSignature, err)
	}
	return plaintext, nil
}

func lengthPrefix(head, tail []byte) []byte {
	out := make([]byte, 2+len(head)+len(tail))
	out[0] = byte(len(head) >> 8)
	out[1] = byte(len(head))
	copy(out[2:], head)
	copy(out[2+len(head):], tail)
	return out
}

func splitSealedEnvelope(wire []byte) (head, tail []byte, err error) {
	if len(wire) < 2 {
		return nil, nil, cerr.New(cerr.BadData)
	}
	n := int(wire[0])<<8 | int(wire[1])
	if len(wire) < 2+n {
		return nil, nil, cerr.New(cerr.BadData)
	}
	return wire[2 : 2+n], wire[2+n:], nil
}

// generateMLKEMKeyPair produces a fresh ML-KEM keypair, returning the
// wire-form private and public key bytes ImportKey/ExportKey expect.
func generateMLKEMKeyPair(mode mlkem.Mode) (priv, pub []byte, err error) {
	pk, sk, err := mlkem.GenerateKey(mode)
	if err != nil {
		return nil, nil, cerr.Wrap(cerr.NotInitialized, err)
	}
	return sk.Bytes(), pk.Bytes(), nil
}

// generateMLDSAKeyPair produces a fresh ML-DSA keypair.
func generateMLDSAKeyPair(mode mldsa.Mode) (priv, pub []byte, err error) {
	sk, genErr := mldsa.GenerateKey(rand.Reader, mode)
	if genErr != nil {
		return nil, nil, cerr.Wrap(cerr.NotInitialized, genErr)
	}
	return sk.Bytes(), sk.PublicKey.Bytes(), nil
}

// mlkemImportKey loads a wire-form ML-KEM key into ctx, trying the
// (larger) private-key encoding before falling back to public-only.
func mlkemImportKey(ctx *Context, wireKey []byte) error {
	mode := mlkemMode(ctx)
	if sk, err := mlkem.PrivateKeyFromBytes(wireKey, mode); err == nil {
		ctx.LoadKey(sk.Bytes())
		return nil
	}
	pk, err := mlkem.PublicKeyFromBytes(wireKey, mode)
	if err != nil {
		return cerr.Wrap(cerr.BadData, err)
	}
	ctx.LoadPublicKey(pk.Bytes())
	return nil
}

func mlkemExportKey(ctx *Context) ([]byte, error) {
	if key := ctx.keyBytes(); key != nil {
		return key, nil
	}
	if pub := ctx.publicKeyBytes(); pub != nil {
		return pub, nil
	}
	return nil, cerr.New(cerr.NotInitialized)
}

func mldsaImportKey(ctx *Context, wireKey []byte) error {
	mode := mldsaMode(ctx)
	if sk, err := mldsa.PrivateKeyFromBytes(wireKey, mode); err == nil {
		ctx.LoadKey(sk.Bytes())
		ctx.LoadPublicKey(sk.PublicKey.Bytes())
		return nil
	}
	pk, err := mldsa.PublicKeyFromBytes(wireKey, mode)
	if err != nil {
		return cerr.Wrap(cerr.BadData, err)
	}
	ctx.LoadPublicKey(pk.Bytes())
	return nil
}

func mldsaExportKey(ctx *Context) ([]byte, error) {
	if key := ctx.keyBytes(); key != nil {
		return key, nil
	}
	if pub := ctx.publicKeyBytes(); pub != nil {
		return pub, nil
	}
	return nil, cerr.New(cerr.NotInitialized)
}

// hpkeImportKey loads wireKey as ctx's private key. X25519 public and
// private halves are both opaque 32-byte strings with no structural tag
// to tell them apart (unlike RSA's DER encodings above), so ImportKey
// can't disambiguate by trying to parse one then the other the way the
// RSA case does: it always means "this is my private key", matching
// spec §4.6's import_key as the keystore-loading side of a pair. A
// recipient's public key arrives already tagged (from a certificate or
// another party) and is loaded with Context.LoadPublicKey directly.
func hpkeImportKey(ctx *Context, wireKey []byte) error {
	scheme := hpkeSuite().KEM.Scheme()
	sk, err := scheme.UnmarshalBinaryPrivateKey(wireKey)
	if err != nil {
		return cerr.Wrap(cerr.BadData, err)
	}
	privBytes, err := sk.MarshalBinary()
	if err != nil {
		return cerr.Wrap(cerr.BadData, err)
	}
	ctx.LoadKey(privBytes)
	return nil
}

func hpkeExportKey(ctx *Context) ([]byte, error) {
	if key := ctx.keyBytes(); key != nil {
		return key, nil
	}
	if pub := ctx.publicKeyBytes(); pub != nil {
		return pub, nil
	}
	return nil, cerr.New(cerr.NotInitialized)
}

// generateHPKEKeyPair produces a fresh X25519 HPKE keypair.
func generateHPKEKeyPair() (priv, pub []byte, err error) {
	pk, sk, genErr := hpkeSuite().KEM.Scheme().GenerateKeyPair()
	if genErr != nil {
		return nil, nil, cerr.Wrap(cerr.NotInitialized, genErr)
	}
	privBytes, err := sk.MarshalBinary()
	if err != nil {
		return nil, nil, cerr.Wrap(cerr.NotInitialized, err)
	}
	pubBytes, err := pk.MarshalBinary()
	if err != nil {
		return nil, nil, cerr.Wrap(cerr.NotInitialized, err)
	}
	return privBytes, pubBytes, nil
}

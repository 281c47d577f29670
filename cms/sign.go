// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cms

import (
	"encoding/asn1"
	"time"
)

// HashFunc computes data's digest under whatever algorithm the caller's
// digestAlgorithm AlgorithmIdentifier names.
type HashFunc func(data []byte) ([]byte, error)

// SignFunc signs digest, returning the raw signature bytes
// CryptoProvider.Sign produces.
type SignFunc func(digest []byte) ([]byte, error)

// VerifyFunc checks signature against digest, returning a non-nil error
// (conventionally cerr.BadSignature) on mismatch, the same contract
// CryptoProvider.Verify exposes.
type VerifyFunc func(digest, signature []byte) error

// SignContent assembles a complete SignerInfo over content: it digests
// content, builds the default signed-attribute set (content-type,
// message-digest, signing-time) required by spec §4.2 plus any
// caller-supplied extraAttrs, digests the DER form
// Attributes.MarshalForSigning produces, and signs that digest. cms stays
// provider-agnostic by taking hash/sign as callbacks rather than
// importing a CryptoProvider directly — the caller (capability.Registry's
// driving code) supplies them, the same boundary cms/provider already
// draws everywhere else.
func SignContent(contentType asn1.ObjectIdentifier, content []byte, digestAlgorithm, signatureAlgorithm asn1.RawValue, sid SignerIdentifier, signingTime time.Time, hash HashFunc, sign SignFunc, extraAttrs Attributes) (SignerInfo, error) {
	contentDigest, err := hash(content)
	if err != nil {
		return SignerInfo{}, err
	}

	attrs, err := DefaultSignedAttrs(contentType, contentDigest, signingTime)
	if err != nil {
		return SignerInfo{}, err
	}
	attrs = append(attrs, extraAttrs...)

	forSigning, err := attrs.MarshalForSigning()
	if err != nil {
		return SignerInfo{}, err
	}
	attrsDigest, err := hash(forSigning)
	if err != nil {
		return SignerInfo{}, err
	}
	signature, err := sign(attrsDigest)
	if err != nil {
		return SignerInfo{}, err
	}

	return SignerInfo{
		Version:            sid.version(),
		Sid:                sid,
		DigestAlgorithm:    digestAlgorithm,
		SignedAttrs:        attrs,
		SignatureAlgorithm: signatureAlgorithm,
		Signature:          signature,
	}, nil
}

// VerifyContent recomputes content's digest, checks the default
// signed-attribute rule spec §4.2 requires (the decoded content-type
// attribute must equal enclosingType, and the message-digest attribute
// must equal content's actual digest), then verifies the signature over
// SignedAttrs.MarshalForSigning's digest. The degenerate RawX509 shape
// (no SignedAttrs at all) instead verifies the signature directly over
// content's digest.
func VerifyContent(si SignerInfo, enclosingType asn1.ObjectIdentifier, content []byte, hash HashFunc, verify VerifyFunc) error {
	contentDigest, err := hash(content)
	if err != nil {
		return err
	}

	if si.RawX509 {
		return verify(contentDigest, si.Signature)
	}

	if err := VerifyDefaultSignedAttrs(si.SignedAttrs, enclosingType, contentDigest); err != nil {
		return err
	}

	forSigning, err := si.SignedAttrs.MarshalForSigning()
	if err != nil {
		return err
	}
	attrsDigest, err := hash(forSigning)
	if err != nil {
		return err
	}
	return verify(attrsDigest, si.Signature)
}

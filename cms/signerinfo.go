// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cms

import (
	"encoding/asn1"
	"math/big"

	"github.com/luxfi/envelope/cerr"
)

// IssuerAndSerialNumber identifies a signer/recipient certificate by its
// issuer DN plus serial number (the CMS v1 SignerIdentifier/RecipientIdentifier
// shape).
type IssuerAndSerialNumber struct {
	Issuer       asn1.RawValue // the certificate's Name, kept raw for DN-equality per certdn rules
	SerialNumber *big.Int
}

// SignerIdentifierKind distinguishes the two SignerIdentifier CHOICE arms.
type SignerIdentifierKind int

const (
	// SignerByIssuerAndSerial is the CMS v1 shape (spec §4.2 "SignerInfo
	// variants": issuer DN + serial number).
	SignerByIssuerAndSerial SignerIdentifierKind = iota
	// SignerBySubjectKeyIdentifier is the cryptlib-extended v3 shape:
	// identify the signer by a raw subjectKeyIdentifier octet string
	// rather than by chasing an issuer DN, the shape this library needs
	// when the signer's certificate chain isn't available at verify time.
	SignerBySubjectKeyIdentifier
)

// SignerIdentifier is SignerIdentifier ::= CHOICE { issuerAndSerialNumber
// IssuerAndSerialNumber, subjectKeyIdentifier [0] SubjectKeyIdentifier }.
type SignerIdentifier struct {
	Kind                  SignerIdentifierKind
	IssuerAndSerialNumber IssuerAndSerialNumber
	SubjectKeyIdentifier  []byte
}

// version reports the SignerInfo.Version this identifier shape requires.
func (s SignerIdentifier) version() int {
	if s.Kind == SignerBySubjectKeyIdentifier {
		return 3
	}
	return 1
}

// signerIdentifierASN1 mirrors the CHOICE for encoding/asn1, which has no
// native CHOICE support: RawValue lets us branch on the observed tag.
type signerIdentifierASN1 struct {
	Value asn1.RawValue
}

func marshalSignerIdentifier(s SignerIdentifier) (asn1.RawValue, error) {
	switch s.Kind {
	case SignerByIssuerAndSerial:
		der, err := asn1.Marshal(s.IssuerAndSerialNumber)
		if err != nil {
			return asn1.RawValue{}, cerr.Wrap(cerr.BadData, err)
		}
		var rv asn1.RawValue
		if _, err := asn1.Unmarshal(der, &rv); err != nil {
			return asn1.RawValue{}, cerr.Wrap(cerr.BadData, err)
		}
		return rv, nil
	case SignerBySubjectKeyIdentifier:
		return asn1.RawValue{Class: asn1.ClassContextSpecific, Tag: 0, Bytes: s.SubjectKeyIdentifier}, nil
	default:
		return asn1.RawValue{}, cerr.New(cerr.BadData)
	}
}

func parseSignerIdentifier(rv asn1.RawValue) (SignerIdentifier, error) {
	if rv.Class == asn1.ClassContextSpecific && rv.Tag == 0 {
		return SignerIdentifier{Kind: SignerBySubjectKeyIdentifier, SubjectKeyIdentifier: rv.Bytes}, nil
	}
	var iasn IssuerAndSerialNumber
	if _, err := asn1.Unmarshal(rv.FullBytes, &iasn); err != nil {
		return SignerIdentifier{}, cerr.Wrap(cerr.BadData, err)
	}
	return SignerIdentifier{Kind: SignerByIssuerAndSerial, IssuerAndSerialNumber: iasn}, nil
}

// SignerInfo is the per-signer record inside SignedData's signerInfos SET.
// The Version/Sid pairing follows spec §4.2's three variants: CMS v1 (sid =
// issuerAndSerialNumber), the cryptlib-extended v3 (sid =
// subjectKeyIdentifier), and a raw-X.509 variant where the signature covers
// the certificate itself rather than a separate SignedAttrs set (handled by
// RawX509 below, since it changes what gets digested rather than the wire
// shape of SignerInfo).
type SignerInfo struct {
	Version            int
	Sid                SignerIdentifier
	DigestAlgorithm    asn1.RawValue // AlgorithmIdentifier, kept raw: codec.AlgorithmIdentifier handles interpretation
	SignedAttrs        Attributes    `asn1:"optional,tag:0"`
	SignatureAlgorithm asn1.RawValue
	Signature          []byte
	UnsignedAttrs      Attributes `asn1:"optional,tag:1"`

	// RawX509 marks the degenerate variant (spec §4.2) where no
	// SignedAttrs set is present and the signature is computed directly
	// over EncapsulatedContentInfo's content — used by bare PKCS#7-style
	// messages that never adopted the CMS attribute-digest indirection.
	RawX509 bool
}

type signerInfoASN1 struct {
	Version            int
	Sid                asn1.RawValue
	DigestAlgorithm    asn1.RawValue
	SignedAttrs        asn1.RawValue `asn1:"optional,tag:0"`
	SignatureAlgorithm asn1.RawValue
	Signature          []byte
	UnsignedAttrs      asn1.RawValue `asn1:"optional,tag:1"`
}

// Marshal encodes the SignerInfo to DER.
func (si SignerInfo) Marshal() ([]byte, error) {
	sid, err := marshalSignerIdentifier(si.Sid)
	if err != nil {
		return nil, err
	}

	raw := signerInfoASN1{
		Version:            si.Version,
		Sid:                sid,
		DigestAlgorithm:    si.DigestAlgorithm,
		SignatureAlgorithm: si.SignatureAlgorithm,
		Signature:          si.Signature,
	}
	if len(si.SignedAttrs) > 0 {
		der, err := si.SignedAttrs.Marshal(asn1.ClassContextSpecific, 0)
		if err != nil {
			return nil, err
		}
		if _, err := asn1.Unmarshal(der, &raw.SignedAttrs); err != nil {
			return nil, cerr.Wrap(cerr.BadData, err)
		}
	}
	if len(si.UnsignedAttrs) > 0 {
		der, err := si.UnsignedAttrs.Marshal(asn1.ClassContextSpecific, 1)
		if err != nil {
			return nil, err
		}
		if _, err := asn1.Unmarshal(der, &raw.UnsignedAttrs); err != nil {
			return nil, cerr.Wrap(cerr.BadData, err)
		}
	}

	der, err := asn1.Marshal(raw)
	if err != nil {
		return nil, cerr.Wrap(cerr.BadData, err)
	}
	return der, nil
}

// ParseSignerInfo decodes a SignerInfo, inferring the RawX509 degenerate
// shape from the absence of a [0] SignedAttrs field.
func ParseSignerInfo(der []byte) (SignerInfo, error) {
	var raw signerInfoASN1
	rest, err := asn1.Unmarshal(der, &raw)
	if err != nil {
		return SignerInfo{}, cerr.Wrap(cerr.BadData, err)
	}
	if len(rest) > 0 {
		return SignerInfo{}, cerr.New(cerr.BadData)
	}

	sid, err := parseSignerIdentifier(raw.Sid)
	if err != nil {
		return SignerInfo{}, err
	}

	si := SignerInfo{
		Version:            raw.Version,
		Sid:                sid,
		DigestAlgorithm:    raw.DigestAlgorithm,
		SignatureAlgorithm: raw.SignatureAlgorithm,
		Signature:          raw.Signature,
	}

	if raw.SignedAttrs.FullBytes != nil {
		attrs, err := parseAttributeSet(raw.SignedAttrs)
		if err != nil {
			return SignerInfo{}, err
		}
		si.SignedAttrs = attrs
	} else {
		si.RawX509 = true
	}
	if raw.UnsignedAttrs.FullBytes != nil {
		attrs, err := parseAttributeSet(raw.UnsignedAttrs)
		if err != nil {
			return SignerInfo{}, err
		}
		si.UnsignedAttrs = attrs
	}

	if expected := sid.version(); si.RawX509 {
		// The raw-X.509 variant always reports version 1 regardless of sid
		// shape; nothing further to check.
		_ = expected
	} else if si.Version != expected {
		return SignerInfo{}, cerr.New(cerr.BadData)
	}

	return si, nil
}

// parseAttributeSet reinterprets an IMPLICIT [n] SET OF Attribute RawValue
// as a plain SET OF for asn1.Unmarshal, then decodes each Attribute.
func parseAttributeSet(rv asn1.RawValue) (Attributes, error) {
	universalSet := asn1.RawValue{
		Class:      asn1.ClassUniversal,
		Tag:        asn1.TagSet,
		IsCompound: true,
		Bytes:      rv.Bytes,
	}
	der, err := asn1.Marshal(universalSet)
	if err != nil {
		return nil, cerr.Wrap(cerr.BadData, err)
	}
	var attrs []Attribute
	if _, err := asn1.Unmarshal(der, &attrs); err != nil {
		return nil, cerr.Wrap(cerr.BadData, err)
	}
	return attrs, nil
}

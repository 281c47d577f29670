// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cms

import (
	"bytes"
	"encoding/asn1"
	"sort"
	"time"

	"github.com/luxfi/envelope/cerr"
)

var (
	// OIDAttributeContentType is id-contentType.
	OIDAttributeContentType = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 3}
	// OIDAttributeMessageDigest is id-messageDigest.
	OIDAttributeMessageDigest = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 4}
	// OIDAttributeSigningTime is id-signingTime.
	OIDAttributeSigningTime = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 5}
	// OIDAttributeESSSecurityLabel is id-aa-securityLabel (RFC 2634 §3.2).
	OIDAttributeESSSecurityLabel = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 16, 2, 2}
)

// SecurityClassification mirrors RFC 2634's ESSSecurityLabel
// SecurityClassification enumeration.
type SecurityClassification int

const (
	ClassificationUnmarked SecurityClassification = iota
	ClassificationUnclassified
	ClassificationRestricted
	ClassificationConfidential
	ClassificationSecret
	ClassificationTopSecret
)

// SecurityLabel is the decoded form of an ESS security-label signed
// attribute: a security policy OID plus a classification level. This
// models only the two fields spec §8's ESS scenario exercises, not RFC
// 2634's full ESSSecurityLabel SET (privacy marks, category
// information) — nothing in spec needs those.
type SecurityLabel struct {
	Policy         asn1.ObjectIdentifier
	Classification SecurityClassification
}

type essSecurityLabelASN1 struct {
	SecurityPolicyIdentifier asn1.ObjectIdentifier
	SecurityClassification   int
}

// NewSecurityLabelAttribute builds the ESS security-label signed
// attribute.
func NewSecurityLabelAttribute(label SecurityLabel) (Attribute, error) {
	der, err := asn1.Marshal(essSecurityLabelASN1{
		SecurityPolicyIdentifier: label.Policy,
		SecurityClassification:   int(label.Classification),
	})
	if err != nil {
		return Attribute{}, cerr.Wrap(cerr.BadData, err)
	}
	return NewAttribute(OIDAttributeESSSecurityLabel, der)
}

// GetSecurityLabel retrieves and decodes the ESS security-label attribute
// from attrs, if present.
func (attrs Attributes) GetSecurityLabel() (SecurityLabel, error) {
	var raw essSecurityLabelASN1
	if err := attrs.GetOnlyAttribute(OIDAttributeESSSecurityLabel, &raw); err != nil {
		return SecurityLabel{}, err
	}
	return SecurityLabel{
		Policy:         raw.SecurityPolicyIdentifier,
		Classification: SecurityClassification(raw.SecurityClassification),
	}, nil
}

// Attribute is SEQUENCE { attrType, attrValues SET OF ANY }.
type Attribute struct {
	Type   asn1.ObjectIdentifier
	Values asn1.RawValue `asn1:"set"`
}

// Attributes is a SET OF Attribute, kept in wire order (decode) but sorted
// into DER canonical order (by encoded tag bytes) on Marshal.
type Attributes []Attribute

// MarshalForSigning re-wraps the SET OF Attribute with an explicit SET tag
// for digest computation, per RFC 5652 §5.4: the signed attributes are
// digested using the SET OF tag and length rather than the [0] IMPLICIT
// tag the wire encoding actually uses. This is the one quirk in the CMS
// object model that trips up naive re-implementations and the reason this
// method exists as a distinct entry point from Marshal.
func (attrs Attributes) MarshalForSigning() ([]byte, error) {
	der, err := attrs.marshalElements()
	if err != nil {
		return nil, err
	}
	return asn1.Marshal(asn1.RawValue{
		Class:      asn1.ClassUniversal,
		Tag:        asn1.TagSet,
		IsCompound: true,
		Bytes:      der,
	})
}

// Marshal encodes Attributes with an IMPLICIT [0] SET OF tag, the form used
// when embedding signed/unsigned attributes inside a SignerInfo.
func (attrs Attributes) Marshal(class int, tag int) ([]byte, error) {
	der, err := attrs.marshalElements()
	if err != nil {
		return nil, err
	}
	return asn1.Marshal(asn1.RawValue{
		Class:      class,
		Tag:        tag,
		IsCompound: true,
		Bytes:      der,
	})
}

// marshalElements encodes each Attribute and sorts the results into DER's
// canonical SET-OF ordering (ascending by encoded octets), matching the
// approach taken by the pack's CMS implementations (sorted bytes.Compare on
// the encoded elements, rather than a semantic sort on attribute type).
func (attrs Attributes) marshalElements() ([]byte, error) {
	encoded := make([][]byte, 0, len(attrs))
	for _, a := range attrs {
		b, err := asn1.Marshal(a)
		if err != nil {
			return nil, cerr.Wrap(cerr.BadData, err)
		}
		encoded = append(encoded, b)
	}
	sort.Slice(encoded, func(i, j int) bool { return bytes.Compare(encoded[i], encoded[j]) < 0 })

	var out bytes.Buffer
	for _, b := range encoded {
		out.Write(b)
	}
	return out.Bytes(), nil
}

// GetOnlyAttribute returns the single value of a single-valued attribute
// (contentType, messageDigest, signingTime), erroring if the attribute is
// absent, repeated, or multi-valued.
func (attrs Attributes) GetOnlyAttribute(oid asn1.ObjectIdentifier, out interface{}) error {
	var found *Attribute
	for i := range attrs {
		if attrs[i].Type.Equal(oid) {
			if found != nil {
				return cerr.New(cerr.DataDuplicate)
			}
			found = &attrs[i]
		}
	}
	if found == nil {
		return cerr.New(cerr.DataNotFound)
	}

	var values []asn1.RawValue
	if _, err := asn1.Unmarshal(found.Values.Bytes, &values); err != nil {
		return cerr.Wrap(cerr.BadData, err)
	}
	if len(values) != 1 {
		return cerr.New(cerr.BadData)
	}
	if _, err := asn1.Unmarshal(values[0].FullBytes, out); err != nil {
		return cerr.Wrap(cerr.BadData, err)
	}
	return nil
}

// NewAttribute builds a single-valued Attribute from an already-marshaled
// DER value.
func NewAttribute(oid asn1.ObjectIdentifier, valueDER []byte) (Attribute, error) {
	set, err := asn1.Marshal([]asn1.RawValue{{FullBytes: valueDER}})
	if err != nil {
		return Attribute{}, cerr.Wrap(cerr.BadData, err)
	}
	var rv asn1.RawValue
	if _, err := asn1.Unmarshal(set, &rv); err != nil {
		return Attribute{}, cerr.Wrap(cerr.BadData, err)
	}
	return Attribute{Type: oid, Values: rv}, nil
}

// NewContentTypeAttribute builds the id-contentType signed attribute.
func NewContentTypeAttribute(contentType asn1.ObjectIdentifier) (Attribute, error) {
	der, err := asn1.Marshal(contentType)
	if err != nil {
		return Attribute{}, cerr.Wrap(cerr.BadData, err)
	}
	return NewAttribute(OIDAttributeContentType, der)
}

// NewMessageDigestAttribute builds the id-messageDigest signed attribute.
func NewMessageDigestAttribute(digest []byte) (Attribute, error) {
	der, err := asn1.Marshal(digest)
	if err != nil {
		return Attribute{}, cerr.Wrap(cerr.BadData, err)
	}
	return NewAttribute(OIDAttributeMessageDigest, der)
}

// NewSigningTimeAttribute builds the id-signingTime signed attribute,
// encoding t as GeneralizedTime to match the convention KEKIdentifier.Date
// already uses elsewhere in this package.
func NewSigningTimeAttribute(t time.Time) (Attribute, error) {
	der, err := asn1.MarshalWithParams(t, "generalized")
	if err != nil {
		return Attribute{}, cerr.Wrap(cerr.BadData, err)
	}
	return NewAttribute(OIDAttributeSigningTime, der)
}

// DefaultSignedAttrs assembles the three signed attributes spec §4.2
// requires a SignerInfo to carry: content-type, message-digest, and
// signing-time, in that order (Attributes.Marshal re-sorts them into DER
// canonical SET-OF order on the wire regardless).
func DefaultSignedAttrs(contentType asn1.ObjectIdentifier, contentDigest []byte, signingTime time.Time) (Attributes, error) {
	ctAttr, err := NewContentTypeAttribute(contentType)
	if err != nil {
		return nil, err
	}
	mdAttr, err := NewMessageDigestAttribute(contentDigest)
	if err != nil {
		return nil, err
	}
	stAttr, err := NewSigningTimeAttribute(signingTime)
	if err != nil {
		return nil, err
	}
	return Attributes{ctAttr, mdAttr, stAttr}, nil
}

// VerifyDefaultSignedAttrs checks the two default signed attributes spec
// §4.2 mandates a verifier confirm: the decoded content-type attribute
// must equal the enclosing ContentInfo's type, and the message-digest
// attribute must equal the digest actually computed over the signed
// content. Either mismatch, or either attribute's absence, is a
// BadSignature per spec §4.2, not a structural BadData: an attacker who
// swaps in a differently-typed or differently-digested signed payload
// produces a well-formed SignerInfo that simply doesn't match.
func VerifyDefaultSignedAttrs(attrs Attributes, enclosingType asn1.ObjectIdentifier, contentDigest []byte) error {
	var ct asn1.ObjectIdentifier
	if err := attrs.GetOnlyAttribute(OIDAttributeContentType, &ct); err != nil {
		return cerr.New(cerr.BadSignature)
	}
	if !ct.Equal(enclosingType) {
		return cerr.New(cerr.BadSignature)
	}
	var md []byte
	if err := attrs.GetOnlyAttribute(OIDAttributeMessageDigest, &md); err != nil {
		return cerr.New(cerr.BadSignature)
	}
	if !bytes.Equal(md, contentDigest) {
		return cerr.New(cerr.BadSignature)
	}
	return nil
}

// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package certdn

import (
	"encoding/asn1"
	"strings"

	"github.com/luxfi/envelope/cerr"
)

// AddAVA inserts a new single-valued RDN at its sorted position (spec
// §4.3.2's C < ST < L < O < OU < CN table, unknown types last in caller
// order), rejecting a second AVA of a type already present in n with
// DataDuplicate ("AlreadyPresent" in the original's terms). A country-code
// value is upper-cased and checked against the ISO 3166 alpha-2 table;
// an invalid code is rejected with BadData.
func (n Name) AddAVA(ava AVA) (Name, error) {
	for _, rdn := range n.RDNs {
		for _, existing := range rdn {
			if existing.Type.Equal(ava.Type) {
				return Name{}, cerr.New(cerr.DataDuplicate)
			}
		}
	}

	if ava.Type.Equal(OIDCountryName) {
		code := strings.ToUpper(string(ava.ValueBytes))
		if len(code) != 2 || !validCountryCode(code) {
			return Name{}, cerr.New(cerr.BadData)
		}
		ava.ValueBytes = []byte(code)
		if ava.ValueType == StringTypeNone {
			ava.ValueType = StringTypePrintable
		}
	}

	out := Name{Raw: n.Raw}
	out.RDNs = append(out.RDNs, n.RDNs...)
	idx := insertionIndex(out.RDNs, ava.Type)
	out.RDNs = append(out.RDNs, RDN{})
	copy(out.RDNs[idx+1:], out.RDNs[idx:])
	out.RDNs[idx] = RDN{ava}
	return out, nil
}

// MigrateEmailToAltNames implements spec §4.3.2's certificate-assembly
// rule: an email address found in a pkcs9-emailAddress or rfc822Mailbox
// RDN is pulled out of the DN and migrated to subjectAltName.rfc822Name.
// existingAltNames is the rfc822Name set already planned for the SAN
// extension; an email already present there is dropped from the DN
// without being added to the returned list again. It returns the cleaned
// Name (empty RDNs produced by removing their only AVA are dropped) and
// the additional rfc822Name values the caller should append to the SAN.
func MigrateEmailToAltNames(n Name, existingAltNames []string) (Name, []string) {
	present := make(map[string]bool, len(existingAltNames))
	for _, e := range existingAltNames {
		present[e] = true
	}

	var additions []string
	var out Name
	for _, rdn := range n.RDNs {
		var kept RDN
		for _, ava := range rdn {
			if ava.Type.Equal(OIDEmailAddress) || ava.Type.Equal(OIDRFC822Mailbox) {
				email := string(ava.ValueBytes)
				if !present[email] {
					additions = append(additions, email)
					present[email] = true
				}
				continue
			}
			kept = append(kept, ava)
		}
		if len(kept) > 0 {
			out.RDNs = append(out.RDNs, kept)
		}
	}
	return out, additions
}

// AVA is one AttributeTypeAndValue: SEQUENCE { type OID, value ANY }.
type AVA struct {
	Type       asn1.ObjectIdentifier
	ValueType  StringType
	ValueBytes []byte // raw characters, not the ASN.1-tagged encoding
}

// RDN is a RelativeDistinguishedName: SET OF AttributeTypeAndValue. Most
// certificates use single-valued RDNs, but multi-valued RDNs (e.g.
// CN+serialNumber) are valid and preserved here as a slice.
type RDN []AVA

// Name is a DistinguishedName: SEQUENCE OF RelativeDistinguishedName,
// ordered most-significant (e.g. "C") first, matching RFC 4514 and this
// codec's DER encoding order.
type Name struct {
	RDNs []RDN
	// Raw holds the exact DER this Name was parsed from, when parsed,
	// preserved for signature/digest computations that must cover the
	// original bytes rather than a re-encoding (spec §5.1: "issuer DNs
	// participate in signed data and must never be silently
	// re-canonicalized on the wire").
	Raw []byte
}

type rdnASN1 []avaASN1

type avaASN1 struct {
	Type  asn1.ObjectIdentifier
	Value asn1.RawValue
}

// ParseName decodes a DER-encoded Name (SEQUENCE OF RDN).
func ParseName(der []byte) (Name, error) {
	var rdns []rdnASN1
	rest, err := asn1.Unmarshal(der, &rdns)
	if err != nil {
		return Name{}, cerr.Wrap(cerr.BadData, err)
	}
	if len(rest) > 0 {
		return Name{}, cerr.New(cerr.BadData)
	}

	name := Name{Raw: append([]byte(nil), der...)}
	for _, rdn := range rdns {
		var out RDN
		for _, ava := range rdn {
			st := tagToStringType(ava.Value.Tag)
			out = append(out, AVA{Type: ava.Type, ValueType: st, ValueBytes: ava.Value.Bytes})
		}
		name.RDNs = append(name.RDNs, out)
	}
	return name, nil
}

// Marshal encodes the Name to DER, choosing each AVA's wire tag from
// InferStringType when ValueType isn't already pinned.
func (n Name) Marshal() ([]byte, error) {
	var rdns []rdnASN1
	for _, rdn := range n.RDNs {
		var out rdnASN1
		for _, ava := range rdn {
			st := ava.ValueType
			if st == StringTypeNone {
				st = InferStringType(ava.ValueBytes)
			}
			tag, err := stringTypeToTag(st)
			if err != nil {
				return nil, err
			}
			out = append(out, avaASN1{
				Type:  ava.Type,
				Value: asn1.RawValue{Class: asn1.ClassUniversal, Tag: tag, Bytes: ava.ValueBytes},
			})
		}
		rdns = append(rdns, out)
	}
	der, err := asn1.Marshal(rdns)
	if err != nil {
		return nil, cerr.Wrap(cerr.BadData, err)
	}
	return der, nil
}

func tagToStringType(tag int) StringType {
	switch tag {
	case asn1.TagPrintableString:
		return StringTypePrintable
	case asn1.TagIA5String:
		return StringTypeIA5
	case asn1.TagT61String:
		return StringTypeT61
	case asn1.TagUTF8String:
		return StringTypeUTF8
	case 30: // BMPString, not a named constant in encoding/asn1
		return StringTypeBMP
	default:
		return StringTypeNone
	}
}

func stringTypeToTag(st StringType) (int, error) {
	switch st {
	case StringTypePrintable:
		return asn1.TagPrintableString, nil
	case StringTypeIA5:
		return asn1.TagIA5String, nil
	case StringTypeT61:
		return asn1.TagT61String, nil
	case StringTypeUTF8:
		return asn1.TagUTF8String, nil
	case StringTypeBMP:
		return 30, nil
	default:
		return 0, cerr.New(cerr.BadData)
	}
}

// Equal implements the DN comparison rule spec §5.1 requires: RDN count
// and AVA type must match exactly, and each value is compared after
// collapsing internal runs of whitespace to a single space, trimming
// leading/trailing whitespace, and folding ASCII case — the rule X.500
// calls "caseIgnoreMatch with insignificant space handling," the same
// accommodation CERTCHN.C's chain-reconstruction comparisons rely on to
// tolerate CAs that re-encode an issuer/subject DN with different spacing
// or string type between certificates in the same chain.
func (n Name) Equal(other Name) bool {
	if len(n.RDNs) != len(other.RDNs) {
		return false
	}
	for i := range n.RDNs {
		if !rdnEqual(n.RDNs[i], other.RDNs[i]) {
			return false
		}
	}
	return true
}

func rdnEqual(a, b RDN) bool {
	if len(a) != len(b) {
		return false
	}
	// Multi-valued RDNs: match order-independently, since SET OF has no
	// canonical order guarantee across implementations.
	used := make([]bool, len(b))
	for _, ava := range a {
		found := false
		for j, other := range b {
			if used[j] {
				continue
			}
			if ava.Type.Equal(other.Type) && normalizeDNValue(ava.ValueBytes) == normalizeDNValue(other.ValueBytes) {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// normalizeDNValue collapses internal whitespace runs, trims the ends, and
// lowercases — the caseIgnoreMatch + insignificant-space-handling rule.
func normalizeDNValue(v []byte) string {
	fields := strings.Fields(string(v))
	return strings.ToLower(strings.Join(fields, " "))
}

// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package certdn

import "encoding/asn1"

// Well-known attribute type OIDs used in RDNs (RFC 4519 / RFC 5280).
var (
	OIDCommonName             = asn1.ObjectIdentifier{2, 5, 4, 3}
	OIDSerialNumber           = asn1.ObjectIdentifier{2, 5, 4, 5}
	OIDCountryName            = asn1.ObjectIdentifier{2, 5, 4, 6}
	OIDLocalityName           = asn1.ObjectIdentifier{2, 5, 4, 7}
	OIDStateOrProvinceName    = asn1.ObjectIdentifier{2, 5, 4, 8}
	OIDStreetAddress          = asn1.ObjectIdentifier{2, 5, 4, 9}
	OIDOrganizationName       = asn1.ObjectIdentifier{2, 5, 4, 10}
	OIDOrganizationalUnitName = asn1.ObjectIdentifier{2, 5, 4, 11}
	OIDDomainComponent        = asn1.ObjectIdentifier{0, 9, 2342, 19200300, 100, 1, 25}
	OIDEmailAddress           = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 1} // pkcs9-emailAddress
	OIDRFC822Mailbox          = asn1.ObjectIdentifier{0, 9, 2342, 19200300, 100, 1, 3}
)

// Label returns the short attribute-type label (RFC 4514) for a
// well-known OID, or the dotted OID string otherwise.
func Label(oid asn1.ObjectIdentifier) string {
	for _, e := range dnComponentOrder {
		if e.oid.Equal(oid) {
			return e.label
		}
	}
	switch {
	case oid.Equal(OIDSerialNumber):
		return "serialNumber"
	case oid.Equal(OIDDomainComponent):
		return "DC"
	case oid.Equal(OIDEmailAddress):
		return "emailAddress"
	case oid.Equal(OIDRFC822Mailbox):
		return "rfc822Mailbox"
	default:
		return oid.String()
	}
}

// NewSingleValuedName builds a Name by inserting each component through
// AddAVA, so the resulting RDN order follows the sort table (spec
// §4.3.2: "insertion point is computed from the sort table") rather than
// caller order, and duplicate attribute types / invalid country codes are
// rejected the same way a later AddAVA call would reject them.
func NewSingleValuedName(components ...AVA) (Name, error) {
	n := Name{}
	for _, c := range components {
		var err error
		n, err = n.AddAVA(c)
		if err != nil {
			return Name{}, err
		}
	}
	return n, nil
}

// NewAVA builds an AVA, inferring its string type from the value bytes.
func NewAVA(oid asn1.ObjectIdentifier, value string) AVA {
	return AVA{Type: oid, ValueType: InferStringType([]byte(value)), ValueBytes: []byte(value)}
}

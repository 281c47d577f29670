// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cms

import (
	"encoding/asn1"

	"github.com/luxfi/envelope/cerr"
)

// SignedData ::= SEQUENCE { version, digestAlgorithms SET OF
// AlgorithmIdentifier, encapContentInfo, certificates [0] OPTIONAL, crls
// [1] OPTIONAL, signerInfos SET OF SignerInfo }.
type SignedData struct {
	Version          int
	DigestAlgorithms []asn1.RawValue
	EncapContentInfo EncapsulatedContentInfo
	Certificates     []asn1.RawValue // raw Certificate DER, left opaque for the certchain package to parse
	CRLs             []asn1.RawValue
	SignerInfos      []SignerInfo
}

type signedDataASN1 struct {
	Version          int
	DigestAlgorithms []asn1.RawValue `asn1:"set"`
	EncapContentInfo EncapsulatedContentInfo
	Certificates     []asn1.RawValue `asn1:"optional,tag:0,set"`
	CRLs             []asn1.RawValue `asn1:"optional,tag:1,set"`
	SignerInfos      []asn1.RawValue `asn1:"set"`
}

// Marshal encodes the SignedData.
func (sd SignedData) Marshal() ([]byte, error) {
	raw := signedDataASN1{
		Version:          sd.Version,
		DigestAlgorithms: sd.DigestAlgorithms,
		EncapContentInfo: sd.EncapContentInfo,
		Certificates:     sd.Certificates,
		CRLs:             sd.CRLs,
	}
	for _, si := range sd.SignerInfos {
		der, err := si.Marshal()
		if err != nil {
			return nil, err
		}
		var rv asn1.RawValue
		if _, err := asn1.Unmarshal(der, &rv); err != nil {
			return nil, cerr.Wrap(cerr.BadData, err)
		}
		raw.SignerInfos = append(raw.SignerInfos, rv)
	}

	der, err := asn1.Marshal(raw)
	if err != nil {
		return nil, cerr.Wrap(cerr.BadData, err)
	}
	return der, nil
}

// ParseSignedData decodes a SignedData, expanding each entry of
// signerInfos via ParseSignerInfo.
func ParseSignedData(der []byte) (*SignedData, error) {
	var raw signedDataASN1
	rest, err := asn1.Unmarshal(der, &raw)
	if err != nil {
		return nil, cerr.Wrap(cerr.BadData, err)
	}
	if len(rest) > 0 {
		return nil, cerr.New(cerr.BadData)
	}

	sd := &SignedData{
		Version:          raw.Version,
		DigestAlgorithms: raw.DigestAlgorithms,
		EncapContentInfo: raw.EncapContentInfo,
		Certificates:     raw.Certificates,
		CRLs:             raw.CRLs,
	}
	for _, rv := range raw.SignerInfos {
		si, err := ParseSignerInfo(rv.FullBytes)
		if err != nil {
			return nil, err
		}
		sd.SignerInfos = append(sd.SignerInfos, si)
	}
	return sd, nil
}

// ContentInfo wraps the SignedData into a top-level ContentInfo.
func (sd SignedData) ContentInfo() (ContentInfo, error) {
	der, err := sd.Marshal()
	if err != nil {
		return ContentInfo{}, err
	}
	return ContentInfo{
		ContentType: OIDSignedData,
		Content:     asn1.RawValue{Class: asn1.ClassContextSpecific, Tag: 0, IsCompound: true, Bytes: der},
	}, nil
}

// NewSignedData builds a SignedData envelope around already-digested
// content; version is chosen from the highest SignerInfo version present
// plus the eContentType (non-data content type bumps the minimum version
// to 3, per RFC 5652 §5.1).
func NewSignedData(eci EncapsulatedContentInfo, digestAlgorithms []asn1.RawValue, signers []SignerInfo, certs []asn1.RawValue) SignedData {
	version := 1
	if !eci.IsTypeData() {
		version = 3
	}
	for _, si := range signers {
		if si.Sid.Kind == SignerBySubjectKeyIdentifier && version < 3 {
			version = 3
		}
	}
	return SignedData{
		Version:          version,
		DigestAlgorithms: digestAlgorithms,
		EncapContentInfo: eci,
		Certificates:     certs,
		SignerInfos:      signers,
	}
}

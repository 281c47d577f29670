// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cms

import (
	"encoding/asn1"

	"github.com/luxfi/envelope/cerr"
)

// EncryptedContentInfo ::= SEQUENCE { contentType, contentEncryptionAlgorithm,
// encryptedContent [0] IMPLICIT OCTET STRING OPTIONAL }.
type EncryptedContentInfo struct {
	ContentType                asn1.ObjectIdentifier
	ContentEncryptionAlgorithm asn1.RawValue
	EncryptedContent           []byte `asn1:"optional,tag:0"`
}

// EnvelopedData ::= SEQUENCE { version, originatorInfo [0] OPTIONAL,
// recipientInfos SET OF RecipientInfo, encryptedContentInfo, unprotectedAttrs
// [1] OPTIONAL }.
type EnvelopedData struct {
	Version              int
	RecipientInfos       []RecipientInfo
	EncryptedContentInfo EncryptedContentInfo
	UnprotectedAttrs     Attributes
}

type envelopedDataASN1 struct {
	Version              int
	RecipientInfos       []asn1.RawValue `asn1:"set"`
	EncryptedContentInfo EncryptedContentInfo
	UnprotectedAttrs     Attributes `asn1:"optional,tag:1"`
}

// Marshal encodes the EnvelopedData.
func (ed EnvelopedData) Marshal() ([]byte, error) {
	raw := envelopedDataASN1{
		Version:              ed.Version,
		EncryptedContentInfo: ed.EncryptedContentInfo,
		UnprotectedAttrs:     ed.UnprotectedAttrs,
	}
	for _, ri := range ed.RecipientInfos {
		der, err := ri.Marshal()
		if err != nil {
			return nil, err
		}
		var rv asn1.RawValue
		if _, err := asn1.Unmarshal(der, &rv); err != nil {
			return nil, cerr.Wrap(cerr.BadData, err)
		}
		raw.RecipientInfos = append(raw.RecipientInfos, rv)
	}

	der, err := asn1.Marshal(raw)
	if err != nil {
		return nil, cerr.Wrap(cerr.BadData, err)
	}
	return der, nil
}

// ParseEnvelopedData decodes an EnvelopedData, expanding each entry of
// recipientInfos via ParseRecipientInfo.
func ParseEnvelopedData(der []byte) (*EnvelopedData, error) {
	var raw envelopedDataASN1
	rest, err := asn1.Unmarshal(der, &raw)
	if err != nil {
		return nil, cerr.Wrap(cerr.BadData, err)
	}
	if len(rest) > 0 {
		return nil, cerr.New(cerr.BadData)
	}

	ed := &EnvelopedData{
		Version:              raw.Version,
		EncryptedContentInfo: raw.EncryptedContentInfo,
		UnprotectedAttrs:     raw.UnprotectedAttrs,
	}
	for _, rv := range raw.RecipientInfos {
		ri, err := ParseRecipientInfo(rv.FullBytes)
		if err != nil {
			return nil, err
		}
		ed.RecipientInfos = append(ed.RecipientInfos, ri)
	}
	return ed, nil
}

// ContentInfo wraps the EnvelopedData into a top-level ContentInfo.
func (ed EnvelopedData) ContentInfo() (ContentInfo, error) {
	der, err := ed.Marshal()
	if err != nil {
		return ContentInfo{}, err
	}
	return ContentInfo{
		ContentType: OIDEnvelopedData,
		Content:     asn1.RawValue{Class: asn1.ClassContextSpecific, Tag: 0, IsCompound: true, Bytes: der},
	}, nil
}

// NewEnvelopedData builds an EnvelopedData; version 2 is used whenever any
// recipient is a KeyAgreeRecipientInfo or the content type isn't id-data,
// version 0 otherwise (RFC 5652 §6.1).
func NewEnvelopedData(recipients []RecipientInfo, eci EncryptedContentInfo) EnvelopedData {
	version := 0
	if !eci.ContentType.Equal(OIDData) {
		version = 2
	}
	for _, ri := range recipients {
		if ri.Kind == RecipientKeyAgree && version < 2 {
			version = 2
		}
	}
	return EnvelopedData{Version: version, RecipientInfos: recipients, EncryptedContentInfo: eci}
}

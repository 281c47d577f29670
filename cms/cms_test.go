// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cms

import (
	"encoding/asn1"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/envelope/cerr"
)

func nullAlgID(t *testing.T, oid asn1.ObjectIdentifier) asn1.RawValue {
	t.Helper()
	der, err := asn1.Marshal(struct {
		Algorithm  asn1.ObjectIdentifier
		Parameters asn1.RawValue `asn1:"optional"`
	}{Algorithm: oid, Parameters: asn1.RawValue{FullBytes: []byte{5, 0}}})
	require.NoError(t, err)
	var rv asn1.RawValue
	_, err = asn1.Unmarshal(der, &rv)
	require.NoError(t, err)
	return rv
}

func TestEncapsulatedContentInfoRoundTrip(t *testing.T) {
	eci, err := NewDataEncapsulatedContentInfo([]byte("hello world"))
	require.NoError(t, err)
	require.True(t, eci.IsTypeData())

	content, err := eci.EContentValue()
	require.NoError(t, err)
	require.Equal(t, []byte("hello world"), content)
}

func TestAttributesMarshalForSigningUsesUniversalSet(t *testing.T) {
	ctAttr, err := NewContentTypeAttribute(OIDData)
	require.NoError(t, err)
	mdAttr, err := NewMessageDigestAttribute([]byte{1, 2, 3, 4})
	require.NoError(t, err)

	attrs := Attributes{ctAttr, mdAttr}
	der, err := attrs.MarshalForSigning()
	require.NoError(t, err)

	var rv asn1.RawValue
	_, err = asn1.Unmarshal(der, &rv)
	require.NoError(t, err)
	require.Equal(t, asn1.ClassUniversal, rv.Class)
	require.Equal(t, asn1.TagSet, rv.Tag)
}

func TestAttributesGetOnlyAttribute(t *testing.T) {
	attr, err := NewMessageDigestAttribute([]byte{9, 9, 9})
	require.NoError(t, err)
	attrs := Attributes{attr}

	var digest []byte
	require.NoError(t, attrs.GetOnlyAttribute(OIDAttributeMessageDigest, &digest))
	require.Equal(t, []byte{9, 9, 9}, digest)

	var missing []byte
	require.Error(t, attrs.GetOnlyAttribute(OIDAttributeSigningTime, &missing))
}

func TestSignerInfoIssuerAndSerialRoundTrip(t *testing.T) {
	sid := SignerIdentifier{
		Kind: SignerByIssuerAndSerial,
		IssuerAndSerialNumber: IssuerAndSerialNumber{
			Issuer:       asn1.RawValue{FullBytes: []byte{0x30, 0x00}},
			SerialNumber: big.NewInt(42),
		},
	}
	digestAlg := nullAlgID(t, asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 1})
	sigAlg := nullAlgID(t, asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 1})

	si := SignerInfo{
		Version:            1,
		Sid:                sid,
		DigestAlgorithm:    digestAlg,
		SignatureAlgorithm: sigAlg,
		Signature:          []byte{0xAA, 0xBB},
	}

	der, err := si.Marshal()
	require.NoError(t, err)

	parsed, err := ParseSignerInfo(der)
	require.NoError(t, err)
	require.Equal(t, 1, parsed.Version)
	require.Equal(t, SignerByIssuerAndSerial, parsed.Sid.Kind)
	require.True(t, parsed.RawX509)
	require.Equal(t, int64(42), parsed.Sid.IssuerAndSerialNumber.SerialNumber.Int64())
}

func TestSignerInfoSubjectKeyIdentifierRoundTrip(t *testing.T) {
	sid := SignerIdentifier{Kind: SignerBySubjectKeyIdentifier, SubjectKeyIdentifier: []byte{1, 2, 3, 4, 5}}
	digestAlg := nullAlgID(t, asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 1})
	sigAlg := nullAlgID(t, asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 1})

	ctAttr, err := NewContentTypeAttribute(OIDData)
	require.NoError(t, err)
	mdAttr, err := NewMessageDigestAttribute([]byte{1, 2, 3})
	require.NoError(t, err)

	si := SignerInfo{
		Version:            3,
		Sid:                sid,
		DigestAlgorithm:    digestAlg,
		SignedAttrs:        Attributes{ctAttr, mdAttr},
		SignatureAlgorithm: sigAlg,
		Signature:          []byte{0xCC},
	}

	der, err := si.Marshal()
	require.NoError(t, err)

	parsed, err := ParseSignerInfo(der)
	require.NoError(t, err)
	require.False(t, parsed.RawX509)
	require.Equal(t, SignerBySubjectKeyIdentifier, parsed.Sid.Kind)
	require.Equal(t, []byte{1, 2, 3, 4, 5}, parsed.Sid.SubjectKeyIdentifier)
	require.Len(t, parsed.SignedAttrs, 2)
}

func TestRecipientInfoKEKRoundTrip(t *testing.T) {
	kekAlg := nullAlgID(t, asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 1, 5})
	ri := RecipientInfo{
		Kind: RecipientKEK,
		KEK: KEKRecipientInfo{
			Version:                4,
			Kekid:                  KEKIdentifier{KeyIdentifier: []byte{1, 2, 3}},
			KeyEncryptionAlgorithm: kekAlg,
			EncryptedKey:           []byte{4, 5, 6},
		},
	}

	der, err := ri.Marshal()
	require.NoError(t, err)

	parsed, err := ParseRecipientInfo(der)
	require.NoError(t, err)
	require.Equal(t, RecipientKEK, parsed.Kind)
	require.Equal(t, []byte{1, 2, 3}, parsed.KEK.Kekid.KeyIdentifier)
	require.Equal(t, []byte{4, 5, 6}, parsed.KEK.EncryptedKey)
}

func TestRecipientInfoKEKPasswordDerivedRoundTrip(t *testing.T) {
	kekAlg := nullAlgID(t, asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 1, 5})
	ri := RecipientInfo{
		Kind: RecipientKEK,
		KEK: KEKRecipientInfo{
			Version: 4,
			Kekid:   KEKIdentifier{KeyIdentifier: []byte("password")},
			KeyDerivation: &KeyDerivationAlgorithmIdentifier{
				Algorithm:      OIDPBKDF2,
				Salt:           []byte{9, 9, 9, 9},
				IterationCount: 2000,
			},
			KeyEncryptionAlgorithm: kekAlg,
			EncryptedKey:           []byte{4, 5, 6},
		},
	}

	der, err := ri.Marshal()
	require.NoError(t, err)

	parsed, err := ParseRecipientInfo(der)
	require.NoError(t, err)
	require.Equal(t, RecipientKEK, parsed.Kind)
	require.NotNil(t, parsed.KEK.KeyDerivation)
	require.True(t, OIDPBKDF2.Equal(parsed.KEK.KeyDerivation.Algorithm))
	require.Equal(t, []byte{9, 9, 9, 9}, parsed.KEK.KeyDerivation.Salt)
	require.Equal(t, 2000, parsed.KEK.KeyDerivation.IterationCount)
}

func TestRecipientInfoKEKPasswordDerivedRejectsExcessiveIterationsOnRead(t *testing.T) {
	kekAlg := nullAlgID(t, asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 1, 5})
	ri := RecipientInfo{
		Kind: RecipientKEK,
		KEK: KEKRecipientInfo{
			Version: 4,
			Kekid:   KEKIdentifier{KeyIdentifier: []byte("password")},
			KeyDerivation: &KeyDerivationAlgorithmIdentifier{
				Algorithm:      OIDPBKDF2,
				Salt:           []byte{1, 2, 3, 4},
				IterationCount: MaxPasswordKDFIterationsOnRead + 1,
			},
			KeyEncryptionAlgorithm: kekAlg,
			EncryptedKey:           []byte{4, 5, 6},
		},
	}

	der, err := ri.Marshal()
	require.NoError(t, err)

	_, err = ParseRecipientInfo(der)
	require.Error(t, err)
	require.True(t, cerr.Is(err, cerr.Overflow))
}

func TestRecipientInfoKeyTransRoundTrip(t *testing.T) {
	keyAlg := nullAlgID(t, asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 1})
	ri := RecipientInfo{
		Kind: RecipientKeyTrans,
		KeyTrans: KeyTransRecipientInfo{
			Version: 0,
			Rid: SignerIdentifier{
				Kind: SignerByIssuerAndSerial,
				IssuerAndSerialNumber: IssuerAndSerialNumber{
					Issuer:       asn1.RawValue{FullBytes: []byte{0x30, 0x00}},
					SerialNumber: big.NewInt(7),
				},
			},
			KeyEncryptionAlgorithm: keyAlg,
			EncryptedKey:           []byte{0x01, 0x02},
		},
	}

	der, err := ri.Marshal()
	require.NoError(t, err)

	parsed, err := ParseRecipientInfo(der)
	require.NoError(t, err)
	require.Equal(t, RecipientKeyTrans, parsed.Kind)
	require.Equal(t, int64(7), parsed.KeyTrans.Rid.IssuerAndSerialNumber.SerialNumber.Int64())
}

func TestContentInfoMarshalEnvelopedDataRoundTrip(t *testing.T) {
	kekAlg := nullAlgID(t, asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 1, 5})
	ed := NewEnvelopedData([]RecipientInfo{{
		Kind: RecipientKEK,
		KEK: KEKRecipientInfo{
			Version:                4,
			Kekid:                  KEKIdentifier{KeyIdentifier: []byte{9, 9}},
			KeyEncryptionAlgorithm: kekAlg,
			EncryptedKey:           []byte{1, 2, 3, 4},
		},
	}}, EncryptedContentInfo{
		ContentType:                OIDData,
		ContentEncryptionAlgorithm: kekAlg,
		EncryptedContent:           []byte("ciphertext"),
	})

	ci, err := ed.ContentInfo()
	require.NoError(t, err)

	der, err := ci.Marshal()
	require.NoError(t, err)

	parsed, err := ParseContentInfo(der)
	require.NoError(t, err)
	require.True(t, parsed.ContentType.Equal(OIDEnvelopedData))

	parsedED, err := parsed.EnvelopedDataContent()
	require.NoError(t, err)
	require.Len(t, parsedED.RecipientInfos, 1)
	require.Equal(t, []byte("ciphertext"), parsedED.EncryptedContentInfo.EncryptedContent)
	require.Equal(t, []byte{1, 2, 3, 4}, parsedED.RecipientInfos[0].KEK.EncryptedKey)
}

func TestContentInfoDispatchUnknownType(t *testing.T) {
	der, err := asn1.Marshal(struct {
		ContentType asn1.ObjectIdentifier
	}{ContentType: asn1.ObjectIdentifier{9, 9, 9, 9}})
	require.NoError(t, err)

	_, err = ParseContentInfo(der)
	require.Error(t, err)
}

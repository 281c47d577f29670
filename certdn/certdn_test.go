// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package certdn

import (
	"encoding/asn1"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInferStringTypePrintable(t *testing.T) {
	require.Equal(t, StringTypePrintable, InferStringType([]byte("Lux Industries")))
}

func TestInferStringTypeIA5(t *testing.T) {
	require.Equal(t, StringTypeIA5, InferStringType([]byte("user@example.com")))
}

func TestInferStringTypeT61OnHighBitLatin1(t *testing.T) {
	// 0xE9 alone is not valid UTF-8 continuation/lead, so this falls back
	// to T61/Latin-1.
	require.Equal(t, StringTypeT61, InferStringType([]byte{'J', 0xE9, 'r', 'e', 'm', 'y'}))
}

func TestInferStringTypeUTF8(t *testing.T) {
	require.Equal(t, StringTypeUTF8, InferStringType([]byte("Jérémy")))
}

func TestInferStringTypeNoneOnControlChar(t *testing.T) {
	require.Equal(t, StringTypeNone, InferStringType([]byte{0x01, 0x02}))
}

func TestNameMarshalRoundTrip(t *testing.T) {
	n, err := NewSingleValuedName(
		NewAVA(OIDCountryName, "US"),
		NewAVA(OIDOrganizationName, "Lux Industries"),
		NewAVA(OIDCommonName, "Test CA"),
	)
	require.NoError(t, err)

	der, err := n.Marshal()
	require.NoError(t, err)

	parsed, err := ParseName(der)
	require.NoError(t, err)
	require.Len(t, parsed.RDNs, 3)
	require.Equal(t, "US", string(parsed.RDNs[0][0].ValueBytes))
	require.True(t, n.Equal(parsed))
}

func TestNameEqualIgnoresWhitespaceAndCase(t *testing.T) {
	a, err := NewSingleValuedName(NewAVA(OIDOrganizationName, "Lux  Industries"))
	require.NoError(t, err)
	b, err := NewSingleValuedName(NewAVA(OIDOrganizationName, "lux industries "))
	require.NoError(t, err)
	require.True(t, a.Equal(b))
}

func TestNameEqualRejectsMismatchedRDNCount(t *testing.T) {
	a, err := NewSingleValuedName(NewAVA(OIDCountryName, "US"))
	require.NoError(t, err)
	b, err := NewSingleValuedName(NewAVA(OIDCountryName, "US"), NewAVA(OIDCommonName, "x"))
	require.NoError(t, err)
	require.False(t, a.Equal(b))
}

func TestLabelKnownAndUnknownOID(t *testing.T) {
	require.Equal(t, "CN", Label(OIDCommonName))
	require.Equal(t, "DC", Label(OIDDomainComponent))
	require.Equal(t, "1.2.3.4", Label(asn1.ObjectIdentifier{1, 2, 3, 4}))
}

func TestAddAVASortsByDNTable(t *testing.T) {
	var n Name
	var err error
	n, err = n.AddAVA(NewAVA(OIDCommonName, "Test CA"))
	require.NoError(t, err)
	n, err = n.AddAVA(NewAVA(OIDCountryName, "us"))
	require.NoError(t, err)
	n, err = n.AddAVA(NewAVA(OIDOrganizationName, "Lux Industries"))
	require.NoError(t, err)

	require.Equal(t, "C", Label(n.RDNs[0][0].Type))
	require.Equal(t, "US", string(n.RDNs[0][0].ValueBytes))
	require.Equal(t, "O", Label(n.RDNs[1][0].Type))
	require.Equal(t, "CN", Label(n.RDNs[2][0].Type))
}

func TestAddAVARejectsDuplicateType(t *testing.T) {
	var n Name
	n, err := n.AddAVA(NewAVA(OIDCommonName, "a"))
	require.NoError(t, err)
	_, err = n.AddAVA(NewAVA(OIDCommonName, "b"))
	require.Error(t, err)
}

func TestAddAVARejectsInvalidCountryCode(t *testing.T) {
	var n Name
	_, err := n.AddAVA(NewAVA(OIDCountryName, "ZZ"))
	require.Error(t, err)

	_, err = n.AddAVA(NewAVA(OIDCountryName, "USA"))
	require.Error(t, err)
}

func TestMigrateEmailToAltNamesExtractsAndDrops(t *testing.T) {
	n, err := NewSingleValuedName(
		NewAVA(OIDCountryName, "US"),
		NewAVA(OIDCommonName, "Test Leaf"),
	)
	require.NoError(t, err)
	n, err = n.AddAVA(NewAVA(OIDEmailAddress, "new@example.com"))
	require.NoError(t, err)

	cleaned, additions := MigrateEmailToAltNames(n, []string{"already@example.com"})
	require.Len(t, cleaned.RDNs, 2)
	require.Equal(t, []string{"new@example.com"}, additions)
}

func TestMigrateEmailToAltNamesDropsAlreadyPresent(t *testing.T) {
	n, err := NewSingleValuedName(NewAVA(OIDCommonName, "Test Leaf"))
	require.NoError(t, err)
	n, err = n.AddAVA(NewAVA(OIDRFC822Mailbox, "dup@example.com"))
	require.NoError(t, err)

	cleaned, additions := MigrateEmailToAltNames(n, []string{"dup@example.com"})
	require.Len(t, cleaned.RDNs, 1)
	require.Empty(t, additions)
}

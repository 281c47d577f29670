// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package certdn

import "encoding/asn1"

// dnComponentOrder is the sort table spec §4.3.2 requires for computing an
// RDN's insertion point: C < SP < L < O < OU < CN, then anything else in
// caller-supplied order after the known types. Ported from
// original_source/Cryptl21a/KEYMGMT/CERTSTR.C's per-locale DN-component
// type table.
var dnComponentOrder = []struct {
	oid   asn1.ObjectIdentifier
	label string
	rank  int
}{
	{OIDCountryName, "C", 0},
	{OIDStateOrProvinceName, "ST", 1},
	{OIDLocalityName, "L", 2},
	{OIDOrganizationName, "O", 3},
	{OIDOrganizationalUnitName, "OU", 4},
	{OIDCommonName, "CN", 5},
}

// unknownRank is the sort rank assigned to an attribute type not listed in
// dnComponentOrder: it sorts after every known type, in caller order
// relative to other unknown types.
const unknownRank = 1 << 30

// dnRank returns the sort rank for an attribute type OID, per
// dnComponentOrder.
func dnRank(oid asn1.ObjectIdentifier) int {
	for _, e := range dnComponentOrder {
		if e.oid.Equal(oid) {
			return e.rank
		}
	}
	return unknownRank
}

// insertionIndex returns the index in rdns a new RDN of the given type
// should be inserted at to keep the list ordered by dnRank. Ties (an
// existing RDN of the same or unknown rank) insert after the last
// equal-or-lower-rank entry, preserving caller order among unknown types.
func insertionIndex(rdns []RDN, oid asn1.ObjectIdentifier) int {
	rank := dnRank(oid)
	i := 0
	for i < len(rdns) {
		if len(rdns[i]) == 0 || dnRank(rdns[i][0].Type) > rank {
			break
		}
		i++
	}
	return i
}

// iso3166Alpha2 is the ISO 3166-1 alpha-2 officially assigned country-code
// table, ported from CERTSTR.C's locale table (spec §4.3.2: "Country code
// (C=) is validated against the ISO 3166 alpha-2 table").
var iso3166Alpha2 = buildISO3166Alpha2()

func buildISO3166Alpha2() map[string]struct{} {
	codes := []string{
		"AD", "AE", "AF", "AG", "AI", "AL", "AM", "AO", "AQ", "AR", "AS", "AT", "AU", "AW", "AX", "AZ",
		"BA", "BB", "BD", "BE", "BF", "BG", "BH", "BI", "BJ", "BL", "BM", "BN", "BO", "BQ", "BR", "BS", "BT", "BV", "BW", "BY", "BZ",
		"CA", "CC", "CD", "CF", "CG", "CH", "CI", "CK", "CL", "CM", "CN", "CO", "CR", "CU", "CV", "CW", "CX", "CY", "CZ",
		"DE", "DJ", "DK", "DM", "DO", "DZ",
		"EC", "EE", "EG", "EH", "ER", "ES", "ET",
		"FI", "FJ", "FK", "FM", "FO", "FR",
		"GA", "GB", "GD", "GE", "GF", "GG", "GH", "GI", "GL", "GM", "GN", "GP", "GQ", "GR", "GS", "GT", "GU", "GW", "GY",
		"HK", "HM", "HN", "HR", "HT", "HU",
		"ID", "IE", "IL", "IM", "IN", "IO", "IQ", "IR", "IS", "IT",
		"JE", "JM", "JO", "JP",
		"KE", "KG", "KH", "KI", "KM", "KN", "KP", "KR", "KW", "KY", "KZ",
		"LA", "LB", "LC", "LI", "LK", "LR", "LS", "LT", "LU", "LV", "LY",
		"MA", "MC", "MD", "ME", "MF", "MG", "MH", "MK", "ML", "MM", "MN", "MO", "MP", "MQ", "MR", "MS", "MT", "MU", "MV", "MW", "MX", "MY", "MZ",
		"NA", "NC", "NE", "NF", "NG", "NI", "NL", "NO", "NP", "NR", "NU", "NZ",
		"OM",
		"PA", "PE", "PF", "PG", "PH", "PK", "PL", "PM", "PN", "PR", "PS", "PT", "PW", "PY",
		"QA",
		"RE", "RO", "RS", "RU", "RW",
		"SA", "SB", "SC", "SD", "SE", "SG", "SH", "SI", "SJ", "SK", "SL", "SM", "SN", "SO", "SR", "SS", "ST", "SV", "SX", "SY", "SZ",
		"TC", "TD", "TF", "TG", "TH", "TJ", "TK", "TL", "TM", "TN", "TO", "TR", "TT", "TV", "TW", "TZ",
		"UA", "UG", "UM", "US", "UY", "UZ",
		"VA", "VC", "VE", "VG", "VI", "VN", "VU",
		"WF", "WS",
		"YE", "YT",
		"ZA", "ZM", "ZW",
	}
	m := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		m[c] = struct{}{}
	}
	return m
}

// validCountryCode reports whether code (already upper-cased) is a known
// ISO 3166-1 alpha-2 entry.
func validCountryCode(code string) bool {
	_, ok := iso3166Alpha2[code]
	return ok
}

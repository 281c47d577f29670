// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package codec

import (
	"encoding/asn1"

	"github.com/luxfi/envelope/cerr"
)

// AlgorithmIdentifier is SEQUENCE { OID, parameters? } (RFC 5280 §4.1.1.2).
// Parameters is NULL when the algorithm takes none but the wire convention
// demands an explicit absent-value marker, and omitted entirely when the
// triple's registration says the algorithm never carries parameters.
type AlgorithmIdentifier struct {
	Algorithm  OID
	Mode       Mode
	Sub        SubAlgorithmID
	Parameters []byte // raw DER of the parameters field, nil if absent/NULL
}

// pkixParams mirrors crypto/x509/pkix.AlgorithmIdentifier's ANY-typed
// parameters field for round-tripping through encoding/asn1, the way the
// wider pack's CMS implementations (ietf-cms, smallstep pkcs7) do.
type pkixAlgID struct {
	Algorithm  asn1.ObjectIdentifier
	Parameters asn1.RawValue `asn1:"optional"`
}

// Marshal encodes the AlgorithmIdentifier. RC5 and Safer-style algorithms
// carry extended parameters (round count, key-schedule variant) in the
// Parameters field as an opaque DER blob the caller has already built;
// every other registered algorithm gets NULL parameters unless Parameters
// is explicitly set.
func (a AlgorithmIdentifier) Marshal() ([]byte, error) {
	oid := a.Algorithm
	if (oid == OID{}) {
		var err error
		oid, err = Lookup(AlgoNone, a.Mode, a.Sub)
		if err != nil {
			return nil, err
		}
	}

	pa := pkixAlgID{Algorithm: oid.Asn1()}
	switch {
	case a.Parameters != nil:
		if _, err := asn1.Unmarshal(a.Parameters, &pa.Parameters); err != nil {
			return nil, cerr.Wrap(cerr.BadData, err)
		}
	default:
		pa.Parameters = asn1.RawValue{FullBytes: []byte{TagNull, 0x00}}
	}

	der, err := asn1.Marshal(pa)
	if err != nil {
		return nil, cerr.Wrap(cerr.BadData, err)
	}
	return der, nil
}

// ParseAlgorithmIdentifier decodes an AlgorithmIdentifier and resolves its
// OID to a (algorithm, mode, subAlgorithm) triple via the OID table.
func ParseAlgorithmIdentifier(der []byte) (AlgorithmIdentifier, AlgorithmID, error) {
	var pa pkixAlgID
	rest, err := asn1.Unmarshal(der, &pa)
	if err != nil {
		return AlgorithmIdentifier{}, AlgoNone, cerr.Wrap(cerr.BadData, err)
	}
	if len(rest) > 0 {
		return AlgorithmIdentifier{}, AlgoNone, cerr.New(cerr.BadData)
	}

	oid := FromAsn1(pa.Algorithm)
	algo, mode, sub, err := Resolve(oid)
	if err != nil {
		return AlgorithmIdentifier{}, AlgoNone, err
	}

	a := AlgorithmIdentifier{Algorithm: oid, Mode: mode, Sub: sub}
	if pa.Parameters.FullBytes != nil && pa.Parameters.Tag != TagNull {
		a.Parameters = pa.Parameters.FullBytes
	}
	return a, algo, nil
}

// EncryptionAlgorithmParams carries the PKCS#7 bulk-cipher parameters that
// ride in an AlgorithmIdentifier's parameters field — an IV for CBC-style
// modes, plus the handful of legacy encodings this codec tolerates on
// decode (spec §4.1: EncryptionAlgorithmIdentifier).
type EncryptionAlgorithmParams struct {
	IV []byte

	// DES-CFB carries an (r, k, j) tuple; per spec, on decode all three
	// must equal 64 or the parameters are rejected. Not applicable to
	// other modes.
	DESCFBParams *DESCFBParams

	// RC2 ties a "key size magic" integer to the effective key length; 58
	// historically signified a 128-bit key. Not applicable to other
	// algorithms.
	RC2EffectiveKeyBits int
}

// DESCFBParams is the rarely-seen DES-CFB parameter tuple.
type DESCFBParams struct {
	R, K, J int
}

type desCFBParamsASN1 struct {
	IV []byte
	R  int
	K  int
	J  int
}

// MarshalEncryptionParams encodes the cipher-specific parameters for the
// given algorithm, producing the canonical form for each supported
// (algorithm, mode) — legacy alternates are accepted on decode only.
func MarshalEncryptionParams(algo AlgorithmID, mode Mode, p EncryptionAlgorithmParams) ([]byte, error) {
	switch {
	case algo == AlgoDES && mode == ModeCFB:
		if p.DESCFBParams == nil {
			return nil, cerr.New(cerr.BadData)
		}
		if p.DESCFBParams.R != 64 || p.DESCFBParams.K != 64 || p.DESCFBParams.J != 64 {
			return nil, cerr.New(cerr.BadData)
		}
		return asn1.Marshal(desCFBParamsASN1{
			IV: p.IV, R: p.DESCFBParams.R, K: p.DESCFBParams.K, J: p.DESCFBParams.J,
		})
	case algo == AlgoRC2 && mode == ModeCBC:
		type rc2Params struct {
			EffectiveKeyBits int
			IV               []byte
		}
		magic := rc2KeyBitsToMagic(p.RC2EffectiveKeyBits)
		return asn1.Marshal(rc2Params{EffectiveKeyBits: magic, IV: p.IV})
	default:
		// Plain IV-only OCTET STRING, the common case for CBC/OFB/CFB
		// ciphers other than the two legacy exceptions above.
		return asn1.Marshal(p.IV)
	}
}

// ParseEncryptionParams decodes cipher parameters, tolerating the legacy
// encodings spec §4.1 calls out.
func ParseEncryptionParams(algo AlgorithmID, mode Mode, der []byte) (EncryptionAlgorithmParams, error) {
	switch {
	case algo == AlgoDES && mode == ModeCFB:
		var p desCFBParamsASN1
		if _, err := asn1.Unmarshal(der, &p); err != nil {
			return EncryptionAlgorithmParams{}, cerr.Wrap(cerr.BadData, err)
		}
		if p.R != 64 || p.K != 64 || p.J != 64 {
			return EncryptionAlgorithmParams{}, cerr.New(cerr.BadData)
		}
		return EncryptionAlgorithmParams{IV: p.IV, DESCFBParams: &DESCFBParams{R: p.R, K: p.K, J: p.J}}, nil

	case algo == AlgoRC2 && mode == ModeCBC:
		type rc2Params struct {
			EffectiveKeyBits int
			IV               []byte
		}
		var p rc2Params
		if _, err := asn1.Unmarshal(der, &p); err != nil {
			return EncryptionAlgorithmParams{}, cerr.Wrap(cerr.BadData, err)
		}
		return EncryptionAlgorithmParams{IV: p.IV, RC2EffectiveKeyBits: rc2MagicToKeyBits(p.EffectiveKeyBits)}, nil

	default:
		var iv []byte
		if _, err := asn1.Unmarshal(der, &iv); err != nil {
			return EncryptionAlgorithmParams{}, cerr.Wrap(cerr.BadData, err)
		}
		return EncryptionAlgorithmParams{IV: iv}, nil
	}
}

// rc2KeyBitsToMagic maps an effective RC2 key size to the wire "magic"
// integer RFC 2268 / PKCS#7 implementations use; 58 historically signified
// a 128-bit key, 120 a 64-bit key, 160 a 40-bit key. Anything else is
// encoded as the literal bit count (RFC 8018's later, saner convention).
func rc2KeyBitsToMagic(bits int) int {
	switch bits {
	case 128:
		return 58
	case 64:
		return 120
	case 40:
		return 160
	default:
		return bits
	}
}

func rc2MagicToKeyBits(magic int) int {
	switch magic {
	case 58:
		return 128
	case 120:
		return 64
	case 160:
		return 40
	default:
		return magic
	}
}

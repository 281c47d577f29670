// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package codec implements the BER/DER subset needed for CMS/PKCS#7 and
// X.509: tag/length primitives, the OID-to-algorithm table, and
// AlgorithmIdentifier encoding, including the legacy PKCS#7 cipher-parameter
// quirks cryptlib's ENCR_ASN1.C tolerated on read.
package codec

import (
	"encoding/asn1"
	"strconv"
	"strings"

	"github.com/luxfi/envelope/cerr"
)

// OID is an immutable, interned sequence of non-negative integers compared
// by its DER byte image (via asn1.ObjectIdentifier.Equal semantics).
type OID struct {
	arcs []int
}

// NewOID interns a dotted-integer sequence.
func NewOID(arcs ...int) OID {
	cp := make([]int, len(arcs))
	copy(cp, arcs)
	return OID{arcs: cp}
}

// ParseOID parses a dotted-decimal string ("1.2.840.113549.1.7.1").
func ParseOID(s string) (OID, error) {
	parts := strings.Split(s, ".")
	arcs := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return OID{}, cerr.Wrap(cerr.BadData, err)
		}
		arcs = append(arcs, n)
	}
	return NewOID(arcs...), nil
}

// String renders the dotted-decimal form.
func (o OID) String() string {
	return o.Asn1().String()
}

// Asn1 converts to the standard library's representation for marshaling.
func (o OID) Asn1() asn1.ObjectIdentifier {
	cp := make(asn1.ObjectIdentifier, len(o.arcs))
	copy(cp, o.arcs)
	return cp
}

// FromAsn1 wraps a stdlib OID value.
func FromAsn1(o asn1.ObjectIdentifier) OID {
	return NewOID([]int(o)...)
}

// Equal compares by DER byte image (arc-by-arc equality).
func (o OID) Equal(other OID) bool {
	return o.Asn1().Equal(other.Asn1())
}

// AlgorithmID is a closed enumeration of the algorithm families the codec
// understands, per spec §3.
type AlgorithmID int

const (
	AlgoNone AlgorithmID = iota

	// Public-key
	AlgoRSA
	AlgoDSA
	AlgoDH
	AlgoElgamal

	// Conventional (block/stream)
	AlgoDES
	Algo3DES
	AlgoIDEA
	AlgoCAST
	AlgoRC2
	AlgoRC4
	AlgoRC5
	AlgoBlowfish
	AlgoSkipjack
	AlgoAES

	// Hash
	AlgoMD2
	AlgoMD4
	AlgoMD5
	AlgoSHA1
	AlgoRIPEMD160
	AlgoMDC2
	AlgoSHA256
	AlgoSHA384
	AlgoSHA512
	AlgoBLAKE3

	// MAC
	AlgoHMACMD5
	AlgoHMACSHA
	AlgoHMACRIPEMD160

	// Post-quantum extensions (SPEC_FULL §11) — new enum members, the
	// legacy set above is untouched.
	AlgoMLKEM
	AlgoMLDSA
	AlgoHPKE
)

// Mode is a closed enumeration of cipher/signature modes, per spec §3.
type Mode int

const (
	ModeNone Mode = iota
	ModeECB
	ModeCBC
	ModeCFB
	ModeOFB
	ModeStream
	ModePKC
)

// SubAlgorithmID distinguishes variants that share an AlgorithmID — e.g.
// SHA-1 vs the historical SHA-0, or an RC5 round count family.
type SubAlgorithmID int

const (
	SubNone SubAlgorithmID = iota
	SubSHA0
	SubSHA1
)

// triple is the (algorithm, mode, subAlgorithm) key used for OID lookup.
type triple struct {
	algo AlgorithmID
	mode Mode
	sub  SubAlgorithmID
}

// oidEntry binds one wire OID to a triple, in both directions.
type oidEntry struct {
	oid   OID
	algo  AlgorithmID
	mode  Mode
	sub   SubAlgorithmID
	label string
}

// oidTable is the process-wide, read-only, compile-time-initialized table
// mapping (algorithm, mode, subAlgorithm) to a DER OID and back. Per spec
// §5 this is one of the only two pieces of module-level state, and it is
// never mutated after init().
var oidTable []oidEntry

func register(label string, algo AlgorithmID, mode Mode, sub SubAlgorithmID, arcs ...int) {
	oidTable = append(oidTable, oidEntry{
		oid:   NewOID(arcs...),
		algo:  algo,
		mode:  mode,
		sub:   sub,
		label: label,
	})
}

func init() {
	// Public-key algorithms (PKC mode only).
	register("rsaEncryption", AlgoRSA, ModePKC, SubNone, 1, 2, 840, 113549, 1, 1, 1)
	register("dsa", AlgoDSA, ModePKC, SubNone, 1, 2, 840, 10040, 4, 1)
	register("dhKeyAgreement", AlgoDH, ModePKC, SubNone, 1, 2, 840, 113549, 1, 3, 1)
	register("elgamal", AlgoElgamal, ModePKC, SubNone, 1, 3, 14, 7, 2, 1, 1)

	// Conventional ciphers, per mode.
	register("desCBC", AlgoDES, ModeCBC, SubNone, 1, 3, 14, 3, 2, 7)
	register("desECB", AlgoDES, ModeECB, SubNone, 1, 3, 14, 3, 2, 6)
	register("desCFB", AlgoDES, ModeCFB, SubNone, 1, 3, 14, 3, 2, 9)
	register("desOFB", AlgoDES, ModeOFB, SubNone, 1, 3, 14, 3, 2, 8)
	register("des-EDE3-CBC", Algo3DES, ModeCBC, SubNone, 1, 2, 840, 113549, 3, 7)
	register("des-EDE3-CFB", Algo3DES, ModeCFB, SubNone, 1, 2, 840, 113549, 3, 9)
	register("cast5CBC", AlgoCAST, ModeCBC, SubNone, 1, 2, 840, 113533, 7, 66, 10)
	register("rc2CBC", AlgoRC2, ModeCBC, SubNone, 1, 2, 840, 113549, 3, 2)
	register("rc4", AlgoRC4, ModeStream, SubNone, 1, 2, 840, 113549, 3, 4)
	register("rc5CBC", AlgoRC5, ModeCBC, SubNone, 1, 2, 840, 113549, 3, 9)
	register("blowfishCBC", AlgoBlowfish, ModeCBC, SubNone, 1, 3, 6, 1, 4, 1, 3029, 1, 2)
	register("skipjackCBC", AlgoSkipjack, ModeCBC, SubNone, 2, 16, 840, 1, 101, 2, 1, 1, 4)
	register("aes256CBC", AlgoAES, ModeCBC, SubNone, 2, 16, 840, 1, 101, 3, 4, 1, 42)

	// IDEA historically registered several OIDs on different wires; all
	// decode to the same triple, the canonical one (Ascom Systec's arc) is
	// used on encode.
	register("idea-cbc (ascom)", AlgoIDEA, ModeCBC, SubNone, 1, 3, 36, 3, 1, 2, 1, 1)
	register("idea-cbc (oiw)", AlgoIDEA, ModeCBC, SubNone, 1, 1, 1, 1, 1)

	// Hashes.
	register("md2", AlgoMD2, ModeNone, SubNone, 1, 2, 840, 113549, 2, 2)
	register("md4", AlgoMD4, ModeNone, SubNone, 1, 2, 840, 113549, 2, 4)
	register("md5", AlgoMD5, ModeNone, SubNone, 1, 2, 840, 113549, 2, 5)
	register("sha1", AlgoSHA1, ModeNone, SubSHA1, 1, 3, 14, 3, 2, 26)
	register("sha0", AlgoSHA1, ModeNone, SubSHA0, 1, 3, 14, 3, 2, 18)
	register("ripemd160", AlgoRIPEMD160, ModeNone, SubNone, 1, 3, 36, 3, 2, 1)
	register("mdc2", AlgoMDC2, ModeNone, SubNone, 2, 5, 8, 3, 101)
	register("sha256", AlgoSHA256, ModeNone, SubNone, 2, 16, 840, 1, 101, 3, 4, 2, 1)
	register("sha384", AlgoSHA384, ModeNone, SubNone, 2, 16, 840, 1, 101, 3, 4, 2, 2)
	register("sha512", AlgoSHA512, ModeNone, SubNone, 2, 16, 840, 1, 101, 3, 4, 2, 3)
	// BLAKE3 has no registered PKIX arc; we mint one under a private
	// enterprise number the way cryptlib did for nonstandard additions.
	register("blake3", AlgoBLAKE3, ModeNone, SubNone, 1, 3, 6, 1, 4, 1, 99999, 3, 1)

	// MACs.
	register("hmacMD5", AlgoHMACMD5, ModeNone, SubNone, 1, 3, 6, 1, 5, 5, 8, 1, 1)
	register("hmacSHA1", AlgoHMACSHA, ModeNone, SubSHA1, 1, 2, 840, 113549, 2, 7)
	register("hmacRIPEMD160", AlgoHMACRIPEMD160, ModeNone, SubNone, 1, 3, 6, 1, 5, 5, 8, 1, 4)

	// Post-quantum (SPEC_FULL §11, new arcs - not legacy PKIX assignments).
	register("mlkem768", AlgoMLKEM, ModePKC, SubNone, 1, 3, 6, 1, 4, 1, 99999, 4, 1)
	register("mldsa65", AlgoMLDSA, ModePKC, SubNone, 1, 3, 6, 1, 4, 1, 99999, 4, 2)
	register("hpke-base", AlgoHPKE, ModePKC, SubNone, 1, 3, 6, 1, 4, 1, 99999, 4, 3)
}

// Lookup returns the OID registered for a given triple. Per spec §3's
// invariant, a triple either maps to exactly one OID or lookup fails with
// NoAlgorithm/NoMode so the caller can fail encoding cleanly.
func Lookup(algo AlgorithmID, mode Mode, sub SubAlgorithmID) (OID, error) {
	for _, e := range oidTable {
		if e.algo == algo && e.sub == sub && (e.mode == mode || e.mode == ModeNone) {
			return e.oid, nil
		}
	}
	// Try without mode match narrowed to algorithm-only hashes/MACs.
	for _, e := range oidTable {
		if e.algo == algo && e.sub == sub {
			return e.oid, nil
		}
	}
	return OID{}, cerr.New(cerr.NoAlgorithm)
}

// Resolve maps a wire OID back to a triple. The first registered entry
// wins, so encode-time canonical choices (e.g. IDEA's Ascom arc) remain
// the preferred round-trip while legacy alternates still decode.
func Resolve(oid OID) (AlgorithmID, Mode, SubAlgorithmID, error) {
	for _, e := range oidTable {
		if e.oid.Equal(oid) {
			return e.algo, e.mode, e.sub, nil
		}
	}
	return AlgoNone, ModeNone, SubNone, cerr.New(cerr.NoAlgorithm)
}

// Label returns the human-readable name registered for an OID, used only
// for diagnostics (e.g. logging, CLI output).
func Label(oid OID) string {
	for _, e := range oidTable {
		if e.oid.Equal(oid) {
			return e.label
		}
	}
	return oid.String()
}

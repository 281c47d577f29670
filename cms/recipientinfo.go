// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cms

import (
	"encoding/asn1"
	"time"

	"github.com/luxfi/envelope/cerr"
)

// RecipientInfoKind discriminates the RecipientInfo CHOICE arms spec §4.2
// names: KeyTransRecipientInfo (RSA/KEM key wrap under the recipient's
// public key), KeyAgreeRecipientInfo (ECDH/static-ephemeral key agreement),
// and KEKRecipientInfo (wrap under a pre-shared key-encryption key).
type RecipientInfoKind int

const (
	RecipientKeyTrans RecipientInfoKind = iota
	RecipientKeyAgree
	RecipientKEK
)

// KeyTransRecipientInfo ::= SEQUENCE { version, rid, keyEncryptionAlgorithm,
// encryptedKey }.
type KeyTransRecipientInfo struct {
	Version                int
	Rid                    SignerIdentifier // RecipientIdentifier reuses the same CHOICE shape as SignerIdentifier
	KeyEncryptionAlgorithm asn1.RawValue
	EncryptedKey           []byte
}

// RecipientEncryptedKey ::= SEQUENCE { rid, encryptedKey }, one entry of a
// KeyAgreeRecipientInfo's recipientEncryptedKeys.
type RecipientEncryptedKey struct {
	Rid          SignerIdentifier
	EncryptedKey []byte
}

// OriginatorIdentifierOrKey carries the ephemeral or static public key the
// sender used for the agreement; spec §4.2 only requires the
// originatorKey (ephemeral public key) arm, so that's the only one modeled.
type OriginatorIdentifierOrKey struct {
	PublicKeyAlgorithm asn1.RawValue
	PublicKey          asn1.BitString
}

// KeyAgreeRecipientInfo ::= SEQUENCE { version, originator [0], ukm [1]
// OPTIONAL, keyEncryptionAlgorithm, recipientEncryptedKeys }.
type KeyAgreeRecipientInfo struct {
	Version                int
	Originator             OriginatorIdentifierOrKey
	UKM                    []byte // user keying material, optional
	KeyEncryptionAlgorithm asn1.RawValue
	RecipientEncryptedKeys []RecipientEncryptedKey
}

// KEKIdentifier ::= SEQUENCE { keyIdentifier, date GeneralizedTime OPTIONAL,
// other OPTIONAL }.
type KEKIdentifier struct {
	KeyIdentifier []byte
	Date          time.Time `asn1:"optional,generalized"`
}

// OIDPBKDF2 is id-PBKDF2 (RFC 8018), the only key-derivation algorithm a
// password-derived KEKRecipientInfo's KeyDerivation.Algorithm carries.
var OIDPBKDF2 = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 5, 12}

// MaxPasswordKDFIterationsOnRead is the iteration-count ceiling spec §4.2
// enforces when decoding a password-derived KEKRecipientInfo's
// key-derivation block: "iteration count bounded at 20000 on read".
const MaxPasswordKDFIterationsOnRead = 20000

// KeyDerivationAlgorithmIdentifier ::= SEQUENCE { algorithm OID, salt
// OCTET STRING, iterationCount INTEGER }, the PBKDF2 parameters spec
// §4.2 requires alongside a password-derived KEKRecipientInfo.
type KeyDerivationAlgorithmIdentifier struct {
	Algorithm      asn1.ObjectIdentifier
	Salt           []byte
	IterationCount int
}

// KEKRecipientInfo ::= SEQUENCE { version, kekid, [0] keyDerivationAlgorithm
// OPTIONAL, keyEncryptionAlgorithm, encryptedKey }. KeyDerivation is
// present for a password-derived recipient (spec §4.2) and nil for a
// pre-shared KEK.
type KEKRecipientInfo struct {
	Version                int
	Kekid                  KEKIdentifier
	KeyDerivation          *KeyDerivationAlgorithmIdentifier
	KeyEncryptionAlgorithm asn1.RawValue
	EncryptedKey           []byte
}

// RecipientInfo is the tagged union of the three shapes above, dispatched
// on the CHOICE's outer tag the way CertChain dispatches on OID elsewhere
// in this package.
type RecipientInfo struct {
	Kind      RecipientInfoKind
	KeyTrans  KeyTransRecipientInfo
	KeyAgree  KeyAgreeRecipientInfo
	KEK       KEKRecipientInfo
}

type keyAgreeRecipientInfoASN1 struct {
	Version                int
	Originator             asn1.RawValue `asn1:"tag:0"`
	UKM                     []byte        `asn1:"optional,tag:1"`
	KeyEncryptionAlgorithm  asn1.RawValue
	RecipientEncryptedKeys  []RecipientEncryptedKey
}

type kekRecipientInfoASN1 struct {
	Version                int
	Kekid                  KEKIdentifier                     `asn1:"tag:4"`
	KeyDerivation          *KeyDerivationAlgorithmIdentifier `asn1:"optional,explicit,tag:0"`
	KeyEncryptionAlgorithm asn1.RawValue
	EncryptedKey           []byte
}

// Marshal encodes the RecipientInfo, tagging the KeyAgree and KEK arms
// with their [1]/[2] implicit CHOICE tags; KeyTrans is untagged (the
// default CHOICE arm).
func (ri RecipientInfo) Marshal() ([]byte, error) {
	switch ri.Kind {
	case RecipientKeyTrans:
		sid, err := marshalSignerIdentifier(ri.KeyTrans.Rid)
		if err != nil {
			return nil, err
		}
		return asn1.Marshal(struct {
			Version                int
			Rid                    asn1.RawValue
			KeyEncryptionAlgorithm asn1.RawValue
			EncryptedKey           []byte
		}{ri.KeyTrans.Version, sid, ri.KeyTrans.KeyEncryptionAlgorithm, ri.KeyTrans.EncryptedKey})

	case RecipientKeyAgree:
		origDER, err := asn1.Marshal(ri.KeyAgree.Originator)
		if err != nil {
			return nil, cerr.Wrap(cerr.BadData, err)
		}
		var origRV asn1.RawValue
		if _, err := asn1.Unmarshal(origDER, &origRV); err != nil {
			return nil, cerr.Wrap(cerr.BadData, err)
		}
		origRV.Class, origRV.Tag, origRV.IsCompound = asn1.ClassContextSpecific, 0, true

		raw := keyAgreeRecipientInfoASN1{
			Version:                ri.KeyAgree.Version,
			Originator:             origRV,
			UKM:                    ri.KeyAgree.UKM,
			KeyEncryptionAlgorithm: ri.KeyAgree.KeyEncryptionAlgorithm,
			RecipientEncryptedKeys: ri.KeyAgree.RecipientEncryptedKeys,
		}
		der, err := asn1.Marshal(raw)
		if err != nil {
			return nil, cerr.Wrap(cerr.BadData, err)
		}
		return wrapChoiceTag(der, 1)

	case RecipientKEK:
		der, err := asn1.Marshal(kekRecipientInfoASN1{
			Version:                ri.KEK.Version,
			Kekid:                  ri.KEK.Kekid,
			KeyDerivation:          ri.KEK.KeyDerivation,
			KeyEncryptionAlgorithm: ri.KEK.KeyEncryptionAlgorithm,
			EncryptedKey:           ri.KEK.EncryptedKey,
		})
		if err != nil {
			return nil, cerr.Wrap(cerr.BadData, err)
		}
		return wrapChoiceTag(der, 2)

	default:
		return nil, cerr.New(cerr.BadData)
	}
}

// wrapChoiceTag re-tags an already-encoded SEQUENCE's outer tag from
// UNIVERSAL SEQUENCE to the given IMPLICIT context-specific tag number,
// the encoding/asn1 idiom for CHOICE arms it has no first-class support
// for.
func wrapChoiceTag(der []byte, tag int) ([]byte, error) {
	var rv asn1.RawValue
	if _, err := asn1.Unmarshal(der, &rv); err != nil {
		return nil, cerr.Wrap(cerr.BadData, err)
	}
	rv.Class, rv.Tag = asn1.ClassContextSpecific, tag
	out, err := asn1.Marshal(rv)
	if err != nil {
		return nil, cerr.Wrap(cerr.BadData, err)
	}
	return out, nil
}

// ParseRecipientInfo decodes one RecipientInfo CHOICE element, dispatching
// on its outer tag: untagged SEQUENCE is KeyTransRecipientInfo, [1] is
// KeyAgreeRecipientInfo, [2] is KEKRecipientInfo (spec §4.2).
func ParseRecipientInfo(der []byte) (RecipientInfo, error) {
	var rv asn1.RawValue
	if _, err := asn1.Unmarshal(der, &rv); err != nil {
		return RecipientInfo{}, cerr.Wrap(cerr.BadData, err)
	}

	switch {
	case rv.Class == asn1.ClassUniversal && rv.Tag == asn1.TagSequence:
		var kt struct {
			Version                int
			Rid                    asn1.RawValue
			KeyEncryptionAlgorithm asn1.RawValue
			EncryptedKey           []byte
		}
		if _, err := asn1.Unmarshal(rv.FullBytes, &kt); err != nil {
			return RecipientInfo{}, cerr.Wrap(cerr.BadData, err)
		}
		sid, err := parseSignerIdentifier(kt.Rid)
		if err != nil {
			return RecipientInfo{}, err
		}
		return RecipientInfo{Kind: RecipientKeyTrans, KeyTrans: KeyTransRecipientInfo{
			Version: kt.Version, Rid: sid,
			KeyEncryptionAlgorithm: kt.KeyEncryptionAlgorithm, EncryptedKey: kt.EncryptedKey,
		}}, nil

	case rv.Class == asn1.ClassContextSpecific && rv.Tag == 1:
		inner, err := untagAsUniversalSequence(rv)
		if err != nil {
			return RecipientInfo{}, err
		}
		var raw keyAgreeRecipientInfoASN1
		if _, err := asn1.Unmarshal(inner, &raw); err != nil {
			return RecipientInfo{}, cerr.Wrap(cerr.BadData, err)
		}
		var orig OriginatorIdentifierOrKey
		origSeq, err := untagAsUniversalSequence(raw.Originator)
		if err != nil {
			return RecipientInfo{}, err
		}
		if _, err := asn1.Unmarshal(origSeq, &orig); err != nil {
			return RecipientInfo{}, cerr.Wrap(cerr.BadData, err)
		}
		return RecipientInfo{Kind: RecipientKeyAgree, KeyAgree: KeyAgreeRecipientInfo{
			Version: raw.Version, Originator: orig, UKM: raw.UKM,
			KeyEncryptionAlgorithm: raw.KeyEncryptionAlgorithm,
			RecipientEncryptedKeys: raw.RecipientEncryptedKeys,
		}}, nil

	case rv.Class == asn1.ClassContextSpecific && rv.Tag == 2:
		inner, err := untagAsUniversalSequence(rv)
		if err != nil {
			return RecipientInfo{}, err
		}
		var raw kekRecipientInfoASN1
		if _, err := asn1.Unmarshal(inner, &raw); err != nil {
			return RecipientInfo{}, cerr.Wrap(cerr.BadData, err)
		}
		if raw.KeyDerivation != nil && raw.KeyDerivation.IterationCount > MaxPasswordKDFIterationsOnRead {
			return RecipientInfo{}, cerr.New(cerr.Overflow)
		}
		return RecipientInfo{Kind: RecipientKEK, KEK: KEKRecipientInfo{
			Version: raw.Version, Kekid: raw.Kekid, KeyDerivation: raw.KeyDerivation,
			KeyEncryptionAlgorithm: raw.KeyEncryptionAlgorithm, EncryptedKey: raw.EncryptedKey,
		}}, nil

	default:
		return RecipientInfo{}, cerr.New(cerr.BadData)
	}
}

func untagAsUniversalSequence(rv asn1.RawValue) ([]byte, error) {
	rv.Class, rv.Tag, rv.IsCompound = asn1.ClassUniversal, asn1.TagSequence, true
	der, err := asn1.Marshal(rv)
	if err != nil {
		return nil, cerr.Wrap(cerr.BadData, err)
	}
	return der, nil
}

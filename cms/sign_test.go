// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cms

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/asn1"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func rsaHashSignVerify(t *testing.T) (HashFunc, SignFunc, VerifyFunc) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	hash := func(data []byte) ([]byte, error) {
		sum := sha256.Sum256(data)
		return sum[:], nil
	}
	sign := func(digest []byte) ([]byte, error) {
		return rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA256, digest)
	}
	verify := func(digest, signature []byte) error {
		return rsa.VerifyPKCS1v15(&priv.PublicKey, crypto.SHA256, digest, signature)
	}
	return hash, sign, verify
}

func TestSignContentVerifyContentRoundTrip(t *testing.T) {
	hash, sign, verify := rsaHashSignVerify(t)

	content := []byte("the quick brown fox jumps over the lazy dog")
	digestAlg := nullAlgID(t, asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 1})
	sigAlg := nullAlgID(t, asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 1})
	sid := SignerIdentifier{Kind: SignerBySubjectKeyIdentifier, SubjectKeyIdentifier: []byte("key-1")}

	si, err := SignContent(OIDData, content, digestAlg, sigAlg, sid, time.Now(), hash, sign, nil)
	require.NoError(t, err)
	require.Equal(t, 3, si.Version)
	require.Len(t, si.SignedAttrs, 3)

	require.NoError(t, VerifyContent(si, OIDData, content, hash, verify))
}

func TestSignContentDefaultAttrsAreContentTypeDigestSigningTime(t *testing.T) {
	hash, sign, _ := rsaHashSignVerify(t)
	content := []byte("hello world")
	digestAlg := nullAlgID(t, asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 1})
	sigAlg := nullAlgID(t, asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 1})
	sid := SignerIdentifier{Kind: SignerBySubjectKeyIdentifier, SubjectKeyIdentifier: []byte("key-1")}

	si, err := SignContent(OIDData, content, digestAlg, sigAlg, sid, time.Now(), hash, sign, nil)
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, a := range si.SignedAttrs {
		seen[a.Type.String()] = true
	}
	require.True(t, seen[OIDAttributeContentType.String()])
	require.True(t, seen[OIDAttributeMessageDigest.String()])
	require.True(t, seen[OIDAttributeSigningTime.String()])
	require.Len(t, si.SignedAttrs, 3)
}

func TestSignContentWithSecurityLabel(t *testing.T) {
	hash, sign, verify := rsaHashSignVerify(t)
	content := []byte("classified payload")
	digestAlg := nullAlgID(t, asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 1})
	sigAlg := nullAlgID(t, asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 1})
	sid := SignerIdentifier{Kind: SignerBySubjectKeyIdentifier, SubjectKeyIdentifier: []byte("key-1")}

	label := SecurityLabel{Policy: asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 9999, 1}, Classification: ClassificationSecret}
	labelAttr, err := NewSecurityLabelAttribute(label)
	require.NoError(t, err)

	si, err := SignContent(OIDData, content, digestAlg, sigAlg, sid, time.Now(), hash, sign, Attributes{labelAttr})
	require.NoError(t, err)
	require.NoError(t, VerifyContent(si, OIDData, content, hash, verify))

	got, err := si.SignedAttrs.GetSecurityLabel()
	require.NoError(t, err)
	require.True(t, got.Policy.Equal(label.Policy))
	require.Equal(t, ClassificationSecret, got.Classification)
}

func TestVerifyContentRejectsTamperedContent(t *testing.T) {
	hash, sign, verify := rsaHashSignVerify(t)
	content := []byte("original content")
	digestAlg := nullAlgID(t, asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 1})
	sigAlg := nullAlgID(t, asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 1})
	sid := SignerIdentifier{Kind: SignerBySubjectKeyIdentifier, SubjectKeyIdentifier: []byte("key-1")}

	si, err := SignContent(OIDData, content, digestAlg, sigAlg, sid, time.Now(), hash, sign, nil)
	require.NoError(t, err)

	require.Error(t, VerifyContent(si, OIDData, []byte("tampered content"), hash, verify))
}

func TestVerifyContentRejectsContentTypeMismatch(t *testing.T) {
	hash, sign, verify := rsaHashSignVerify(t)
	content := []byte("payload")
	digestAlg := nullAlgID(t, asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 1})
	sigAlg := nullAlgID(t, asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 1})
	sid := SignerIdentifier{Kind: SignerBySubjectKeyIdentifier, SubjectKeyIdentifier: []byte("key-1")}

	si, err := SignContent(OIDData, content, digestAlg, sigAlg, sid, time.Now(), hash, sign, nil)
	require.NoError(t, err)

	require.Error(t, VerifyContent(si, OIDSignedData, content, hash, verify))
}

func TestVerifyContentRawX509SkipsAttributes(t *testing.T) {
	hash, sign, verify := rsaHashSignVerify(t)
	content := []byte("degenerate signature payload")
	digest, err := hash(content)
	require.NoError(t, err)
	signature, err := sign(digest)
	require.NoError(t, err)

	si := SignerInfo{
		Version:   1,
		Sid:       SignerIdentifier{Kind: SignerBySubjectKeyIdentifier, SubjectKeyIdentifier: []byte("key-1")},
		RawX509:   true,
		Signature: signature,
	}
	require.NoError(t, VerifyContent(si, OIDData, content, hash, verify))
}

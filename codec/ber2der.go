// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package codec

import (
	"bytes"

	"github.com/luxfi/envelope/cerr"
)

// BERToDER re-encodes a BER buffer (which may use indefinite-length
// constructed encodings) into the canonical definite-length DER form
// encoding/asn1 requires, the way the pack's PKCS#7 implementations do
// before handing a message to asn1.Unmarshal. Tag ordering and content
// bytes are preserved; only the length encoding is canonicalized.
func BERToDER(ber []byte) ([]byte, error) {
	r := NewReader(bytes.NewReader(ber))
	var out bytes.Buffer
	if err := reencodeOne(r, &out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func reencodeOne(r *Reader, out *bytes.Buffer) error {
	tag, err := r.ReadTag()
	if err != nil {
		return err
	}
	length, err := r.ReadLength()
	if err != nil {
		return err
	}

	if length != Indefinite {
		content, err := r.ReadBytes(length)
		if err != nil {
			return err
		}
		if tag.Compound {
			reencoded, err := reencodeSequence(content)
			if err != nil {
				return err
			}
			content = reencoded
		}
		return WriteTLV(out, tag.Class, tag.Compound, tag.Number, content)
	}

	if !tag.Compound {
		return cerr.New(cerr.BadData)
	}
	var inner bytes.Buffer
	for {
		done, err := r.IsEOC()
		if err != nil {
			return err
		}
		if done {
			break
		}
		if err := reencodeOne(r, &inner); err != nil {
			return err
		}
	}
	return WriteTLV(out, tag.Class, tag.Compound, tag.Number, inner.Bytes())
}

// reencodeSequence re-runs definite-length canonicalization over a
// compound value's already-extracted content octets (itself a sequence of
// zero or more TLVs, possibly indefinite-length, e.g. a constructed
// OCTET STRING's substrings).
func reencodeSequence(content []byte) ([]byte, error) {
	r := NewReader(bytes.NewReader(content))
	var out bytes.Buffer
	for {
		tag, err := r.ReadTag()
		if err != nil {
			if cerr.Is(err, cerr.Underflow) {
				return out.Bytes(), nil
			}
			return nil, err
		}
		length, err := r.ReadLength()
		if err != nil {
			return nil, err
		}
		if length != Indefinite {
			childContent, err := r.ReadBytes(length)
			if err != nil {
				return nil, err
			}
			if tag.Compound {
				childContent, err = reencodeSequence(childContent)
				if err != nil {
					return nil, err
				}
			}
			if err := WriteTLV(&out, tag.Class, tag.Compound, tag.Number, childContent); err != nil {
				return nil, err
			}
			continue
		}
		if !tag.Compound {
			return nil, cerr.New(cerr.BadData)
		}
		var inner bytes.Buffer
		for {
			done, err := r.IsEOC()
			if err != nil {
				return nil, err
			}
			if done {
				break
			}
			if err := reencodeOne(r, &inner); err != nil {
				return nil, err
			}
		}
		if err := WriteTLV(&out, tag.Class, tag.Compound, tag.Number, inner.Bytes()); err != nil {
			return nil, err
		}
	}
}

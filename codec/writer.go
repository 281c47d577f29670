// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package codec

import (
	"bytes"
	"io"

	"github.com/luxfi/envelope/cerr"
)

// sizeSink is a length-predicting null sink: writes are counted but
// discarded. Compound objects compute their length with a sizeSink pass
// matched to the real emit pass, the idiom the spec calls out (§4.1) for
// CMS encrypted-content headers whose length can't be known up front
// without re-deriving it from the child writers.
type sizeSink struct{ n int64 }

func (s *sizeSink) Write(p []byte) (int, error) {
	s.n += int64(len(p))
	return len(p), nil
}

// Size returns the encoded length of a write function's output without
// materializing the bytes.
func Size(write func(io.Writer) error) (int64, error) {
	s := &sizeSink{}
	if err := write(s); err != nil {
		return 0, err
	}
	return s.n, nil
}

// WriteTag emits one identifier octet. This codec's universe never needs
// the high-tag-number form (every tag used is < 31).
func WriteTag(w io.Writer, class Class, compound bool, number int) error {
	if number > 30 {
		return cerr.New(cerr.Overflow)
	}
	b := byte(number)
	switch class {
	case ClassApplication:
		b |= 0x40
	case ClassContextSpecific:
		b |= 0x80
	case ClassPrivate:
		b |= 0xC0
	}
	if compound {
		b |= 0x20
	}
	_, err := w.Write([]byte{b})
	return err
}

// WriteLength emits a length in definite form (DER requires this: short
// form under 128, minimal-octet long form otherwise), or the
// indefinite-length octet (0x80) when length is Indefinite.
func WriteLength(w io.Writer, length int64) error {
	if length == Indefinite {
		_, err := w.Write([]byte{0x80})
		return err
	}
	if length < 0 {
		return cerr.New(cerr.BadData)
	}
	if length < 0x80 {
		_, err := w.Write([]byte{byte(length)})
		return err
	}
	var octets []byte
	for n := length; n > 0; n >>= 8 {
		octets = append([]byte{byte(n)}, octets...)
	}
	if _, err := w.Write([]byte{0x80 | byte(len(octets))}); err != nil {
		return err
	}
	_, err := w.Write(octets)
	return err
}

// WriteEOC emits the end-of-contents marker that closes an
// indefinite-length value.
func WriteEOC(w io.Writer) error {
	_, err := w.Write([]byte{0x00, 0x00})
	return err
}

// WriteTLV emits a definite-length tag/length/value in one call — the
// common case once the content has already been built into a byte slice.
func WriteTLV(w io.Writer, class Class, compound bool, number int, content []byte) error {
	if err := WriteTag(w, class, compound, number); err != nil {
		return err
	}
	if err := WriteLength(w, int64(len(content))); err != nil {
		return err
	}
	_, err := w.Write(content)
	return err
}

// BuildTLV is a convenience for the common "encode children into a buffer,
// then wrap with a definite-length tag" pattern used throughout the CMS
// object model.
func BuildTLV(class Class, compound bool, number int, build func(*bytes.Buffer) error) ([]byte, error) {
	var inner bytes.Buffer
	if err := build(&inner); err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := WriteTLV(&out, class, compound, number, inner.Bytes()); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package codec

import (
	"bufio"
	"io"

	"github.com/luxfi/envelope/cerr"
)

// Reader incrementally parses BER from an underlying byte source. Unlike
// encoding/asn1 (which requires the whole buffer up front), Reader is built
// for the envelope pipeline's push/pop model: ReadTag/ReadLength report
// Underflow rather than blocking, so a caller that has only received a
// partial header can retry once more bytes arrive.
type Reader struct {
	r *bufio.Reader
}

// NewReader wraps an io.Reader for tag/length/value decoding.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// ReadTag reads one identifier octet. EOF maps to Underflow (more input may
// arrive later); a non-EOF read error or an unsupported high-tag-number
// form maps to BadData.
func (r *Reader) ReadTag() (Tag, error) {
	b, err := r.r.ReadByte()
	if err != nil {
		if err == io.EOF {
			return Tag{}, cerr.New(cerr.Underflow)
		}
		return Tag{}, cerr.Wrap(cerr.BadData, err)
	}

	t := Tag{RawIdOctet: b}
	switch b & 0xC0 {
	case 0x00:
		t.Class = ClassUniversal
	case 0x40:
		t.Class = ClassApplication
	case 0x80:
		t.Class = ClassContextSpecific
	case 0xC0:
		t.Class = ClassPrivate
	}
	t.Compound = b&0x20 != 0
	number := int(b & 0x1F)
	if number == 0x1F {
		// High-tag-number form: this codec's CMS/X.509 subset never emits
		// tags >= 31, so treat its presence on read as malformed input
		// rather than silently truncating it.
		return Tag{}, cerr.New(cerr.BadData)
	}
	t.Number = number
	return t, nil
}

// ReadLength reads the length octets following a tag. It returns Indefinite
// for the BER indefinite-length form (0x80); callers must then scan for an
// end-of-contents marker (ReadEOC/PeekEOC).
func (r *Reader) ReadLength() (int64, error) {
	b, err := r.r.ReadByte()
	if err != nil {
		if err == io.EOF {
			return 0, cerr.New(cerr.Underflow)
		}
		return 0, cerr.Wrap(cerr.BadData, err)
	}

	if b == 0x80 {
		return Indefinite, nil
	}
	if b&0x80 == 0 {
		// Short form: the byte itself is the length.
		return int64(b), nil
	}

	numOctets := int(b & 0x7F)
	if numOctets > 8 {
		return 0, cerr.New(cerr.Overflow)
	}
	var length int64
	for i := 0; i < numOctets; i++ {
		nb, err := r.r.ReadByte()
		if err != nil {
			if err == io.EOF {
				return 0, cerr.New(cerr.Underflow)
			}
			return 0, cerr.Wrap(cerr.BadData, err)
		}
		length = (length << 8) | int64(nb)
	}
	if length < 0 {
		return 0, cerr.New(cerr.Overflow)
	}
	return length, nil
}

// ReadBytes reads exactly n bytes of content, mapping a short read to
// Underflow so the caller can ask again once more data is available.
func (r *Reader) ReadBytes(n int64) ([]byte, error) {
	if n < 0 {
		return nil, cerr.New(cerr.BadData)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, cerr.New(cerr.Underflow)
		}
		return nil, cerr.Wrap(cerr.BadData, err)
	}
	return buf, nil
}

// IsEOC reports whether the next two bytes are the end-of-contents marker
// (0x00 0x00) that terminates an indefinite-length value, consuming them
// if so.
func (r *Reader) IsEOC() (bool, error) {
	peek, err := r.r.Peek(2)
	if err != nil {
		if err == io.EOF || err == bufio.ErrBufferFull {
			return false, nil
		}
		return false, cerr.Wrap(cerr.BadData, err)
	}
	if peek[0] == 0x00 && peek[1] == 0x00 {
		_, _ = r.r.Discard(2)
		return true, nil
	}
	return false, nil
}

// ReadTLV reads one complete tag-length-value unit, resolving an
// indefinite-length compound value by recursively consuming nested TLVs
// until an EOC marker is found; the returned bytes are the raw content
// octets (concatenated, for the constructed-indefinite case).
func (r *Reader) ReadTLV() (Tag, []byte, error) {
	tag, err := r.ReadTag()
	if err != nil {
		return Tag{}, nil, err
	}
	length, err := r.ReadLength()
	if err != nil {
		return Tag{}, nil, err
	}
	if length != Indefinite {
		content, err := r.ReadBytes(length)
		return tag, content, err
	}
	if !tag.Compound {
		// Primitive encodings may not use the indefinite form.
		return Tag{}, nil, cerr.New(cerr.BadData)
	}
	var content []byte
	for {
		done, err := r.IsEOC()
		if err != nil {
			return Tag{}, nil, err
		}
		if done {
			break
		}
		_, childContent, err := r.ReadTLV()
		if err != nil {
			return Tag{}, nil, err
		}
		content = append(content, childContent...)
	}
	return tag, content, nil
}

// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package envelope

import "github.com/luxfi/envelope/cerr"

// Push feeds input bytes into the pipeline. It consumes as much of data
// as the current phase can process and returns the number of bytes
// consumed; a short consume count means the caller should retain the
// remainder and call Push again once more input (or a resolved
// ContentListEntry) is available — the same backpressure contract
// codec.Reader's Underflow signals, one layer up.
func (p *Pipeline) Push(data []byte) (int, error) {
	switch p.Phase {
	case StatePreamble:
		return p.pushPreamble(data)
	case StateBody:
		return p.pushBody(data)
	case StatePostamble:
		return p.pushPostamble(data)
	case StateFinished:
		return 0, cerr.New(cerr.NotAllowed)
	default:
		return 0, cerr.New(cerr.IncompleteOperation)
	}
}

func (p *Pipeline) pushPreamble(data []byte) (int, error) {
	p.pending.Write(data)
	consumed := len(data)

	if !p.preambleBuilt {
		// The concrete preamble parser (cms.ParseContentInfo plus
		// RecipientInfo/SignerInfo walking) lives in the de-envelope
		// driver built on top of Pipeline; from the state machine's
		// point of view, a caller marks the preamble complete via
		// MarkPreambleBuilt once it has consumed p.pending fully.
		return consumed, nil
	}

	if err := p.advanceFromPreamble(); err != nil {
		return consumed, err
	}
	return consumed, nil
}

// pushBody feeds data through the Body-phase transform. When blockSize is
// unset it passes chunks through as received (hash updates, stream
// ciphers tolerate any size); otherwise it buffers across calls so
// transform only ever sees whole blocks, withholding the trailing
// (envelope) or most recent (de-envelope) block until Flush, since only
// Flush knows which block is actually last.
func (p *Pipeline) pushBody(data []byte) (int, error) {
	if p.blockSize <= 1 {
		out, err := p.transform(data)
		if err != nil {
			return 0, err
		}
		p.pending.Write(out)
		return len(data), nil
	}

	p.bodyBuf = append(p.bodyBuf, data...)

	hold := 0
	if p.direction == DirectionDeenvelope {
		hold = p.blockSize
	}
	n := len(p.bodyBuf) - hold
	n -= n % p.blockSize
	if n <= 0 {
		return len(data), nil
	}

	out, err := p.transform(p.bodyBuf[:n])
	if err != nil {
		return 0, err
	}
	p.pending.Write(out)
	p.bodyBuf = append([]byte(nil), p.bodyBuf[n:]...)
	return len(data), nil
}

// finishBody transforms whatever Body-phase bytes pushBody withheld,
// applying PKCS#7 padding on the envelope side (content length is rarely
// block-aligned) and verifying/stripping it on de-envelope.
func (p *Pipeline) finishBody() error {
	defer func() { p.bodyBuf = nil }()

	switch p.direction {
	case DirectionEnvelope:
		out, err := p.transform(pkcs7Pad(p.bodyBuf, p.blockSize))
		if err != nil {
			return err
		}
		p.pending.Write(out)
		return nil
	case DirectionDeenvelope:
		if len(p.bodyBuf) == 0 || len(p.bodyBuf)%p.blockSize != 0 {
			return cerr.New(cerr.BadData)
		}
		out, err := p.transform(p.bodyBuf)
		if err != nil {
			return err
		}
		unpadded, err := pkcs7Unpad(out, p.blockSize)
		if err != nil {
			return err
		}
		p.pending.Write(unpadded)
		return nil
	default:
		return cerr.New(cerr.IncompleteOperation)
	}
}

func (p *Pipeline) pushPostamble(data []byte) (int, error) {
	p.pending.Write(data)
	return len(data), nil
}

// MarkPreambleBuilt signals that the caller has finished constructing
// (envelope) or parsing (de-envelope) the preamble bytes held in
// p.pending, allowing the state machine to check whether every
// ContentListEntry is resolved and a body transform is installed before
// advancing to StateBody.
func (p *Pipeline) MarkPreambleBuilt() {
	p.preambleBuilt = true
}

// MarkPostambleBuilt is the StatePostamble counterpart of
// MarkPreambleBuilt.
func (p *Pipeline) MarkPostambleBuilt() {
	p.postambleBuilt = true
}

// Flush signals end-of-content for the current phase, advancing
// StateBody -> StatePostamble (most common case) or StatePostamble ->
// StateFinished if the postamble has already been built.
func (p *Pipeline) Flush() error {
	switch p.Phase {
	case StateBody:
		return p.advanceFromBody()
	case StatePostamble:
		return p.advanceFromPostamble()
	default:
		return cerr.New(cerr.IncompleteOperation)
	}
}

// Pop drains up to len(buf) bytes of processed output into buf, returning
// the number of bytes copied. Output accumulates in p.pending as Push and
// the phase transitions produce it (preamble/postamble bytes, transformed
// body chunks).
func (p *Pipeline) Pop(buf []byte) (int, error) {
	if p.pending.Len() == 0 {
		if p.Phase == StateFinished {
			return 0, nil
		}
		return 0, cerr.New(cerr.Underflow)
	}
	return p.pending.Read(buf)
}

// Pending reports how many bytes are currently buffered for Pop.
func (p *Pipeline) Pending() int { return p.pending.Len() }

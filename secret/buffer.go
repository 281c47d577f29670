// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package secret provides SecretBuffer, a byte container for key material
// and other sensitive data that needs best-effort zeroing once it is no
// longer needed. The source this library is modeled on pairs every
// sensitive allocation with a malloc/zeroise/free trio; Go has no
// destructors, so the same intent is carried here as an explicit Destroy
// plus a runtime.SetFinalizer backstop for buffers a caller forgets to
// close (the finalizer zeroes on GC, it does not guarantee zeroing before
// the next GC cycle — Destroy is still the primary contract).
package secret

import (
	"runtime"
	"sync"
)

// Buffer holds a byte slice that is zeroed before being released, either
// explicitly via Destroy or, as a backstop, when the garbage collector
// reclaims a Buffer the caller never destroyed.
type Buffer struct {
	mu        sync.Mutex
	data      []byte
	destroyed bool
}

// New copies src into a new Buffer. The caller's src is left untouched;
// callers holding sensitive bytes outside a Buffer are still responsible
// for wiping them.
func New(src []byte) *Buffer {
	b := &Buffer{data: append([]byte(nil), src...)}
	runtime.SetFinalizer(b, (*Buffer).finalize)
	return b
}

// NewOfSize allocates a zero-filled Buffer of n bytes, for callers that
// fill it in place (e.g. a KDF writing derived key bytes directly).
func NewOfSize(n int) *Buffer {
	b := &Buffer{data: make([]byte, n)}
	runtime.SetFinalizer(b, (*Buffer).finalize)
	return b
}

// Bytes returns the live contents. The returned slice aliases the
// Buffer's internal storage and becomes invalid after Destroy.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return nil
	}
	return b.data
}

// Len reports the buffer's current length, 0 once destroyed.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// Destroy zeroes the buffer's contents and releases the backing slice.
// Safe to call more than once. Callers must call Destroy as soon as the
// sensitive bytes are no longer needed rather than relying on the
// finalizer, whose timing is not under the caller's control.
func (b *Buffer) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.wipeLocked()
}

func (b *Buffer) wipeLocked() {
	if b.destroyed {
		return
	}
	for i := range b.data {
		b.data[i] = 0
	}
	b.data = nil
	b.destroyed = true
}

func (b *Buffer) finalize() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.wipeLocked()
}

// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/envelope/action"
)

// cbcPipeline builds an envelope/de-envelope Pipeline whose Body-phase
// transform is real AES-CBC under key/iv, wired the way a caller resolving
// a TypeCrypt action would: one aes.NewCipher per direction, block-buffered
// through Pipeline rather than handed whole blocks by the caller.
func cbcPipeline(t *testing.T, direction Direction, key, iv []byte) *Pipeline {
	t.Helper()
	block, err := aes.NewCipher(key)
	require.NoError(t, err)

	var mode cipher.BlockMode
	if direction == DirectionEnvelope {
		mode = cipher.NewCBCEncrypter(block, iv)
	} else {
		mode = cipher.NewCBCDecrypter(block, iv)
	}

	p := New(direction, action.NewScheduler(nil))
	p.SetBlockSize(aes.BlockSize)
	p.SetBodyTransform(func(chunk []byte) ([]byte, error) {
		out := make([]byte, len(chunk))
		mode.CryptBlocks(out, chunk)
		return out, nil
	})
	p.MarkPreambleBuilt()
	_, err = p.Push(nil)
	require.NoError(t, err)
	require.Equal(t, StateBody, p.State())
	return p
}

func drain(t *testing.T, p *Pipeline) []byte {
	t.Helper()
	var out []byte
	buf := make([]byte, 4096)
	for p.Pending() > 0 {
		n, err := p.Pop(buf)
		require.NoError(t, err)
		out = append(out, buf[:n]...)
	}
	return out
}

// pushChunked feeds plaintext into p one chunk at a time per chunkSizes,
// exercising chunk boundaries that don't line up with the cipher's block
// size.
func pushChunked(t *testing.T, p *Pipeline, data []byte, chunkSizes []int) []byte {
	t.Helper()
	var out []byte
	off := 0
	for _, size := range chunkSizes {
		end := off + size
		if end > len(data) {
			end = len(data)
		}
		n, err := p.Push(data[off:end])
		require.NoError(t, err)
		require.Equal(t, end-off, n)
		out = append(out, drain(t, p)...)
		off = end
		if off >= len(data) {
			break
		}
	}
	if off < len(data) {
		n, err := p.Push(data[off:])
		require.NoError(t, err)
		require.Equal(t, len(data)-off, n)
		out = append(out, drain(t, p)...)
	}
	return out
}

func TestBlockBufferRoundTripAcrossOddChunkBoundaries(t *testing.T) {
	key := make([]byte, 16)
	iv := make([]byte, aes.BlockSize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	_, err = rand.Read(iv)
	require.NoError(t, err)

	plaintext := []byte("the quick brown fox jumps over the lazy dog, 36 bytes more data")

	enc := cbcPipeline(t, DirectionEnvelope, key, iv)
	ciphertext := pushChunked(t, enc, plaintext, []int{1, 5, 3, 40, 7})
	require.NoError(t, enc.Flush())
	ciphertext = append(ciphertext, drain(t, enc)...)
	require.Equal(t, StatePostamble, enc.State())
	require.Zero(t, len(ciphertext)%aes.BlockSize)

	dec := cbcPipeline(t, DirectionDeenvelope, key, iv)
	recovered := pushChunked(t, dec, ciphertext, []int{2, 30, 1, 100})
	require.NoError(t, dec.Flush())
	recovered = append(recovered, drain(t, dec)...)
	require.Equal(t, StatePostamble, dec.State())

	require.Equal(t, plaintext, recovered)
}

func TestBlockBufferRoundTripSingleByteChunks(t *testing.T) {
	key := make([]byte, 16)
	iv := make([]byte, aes.BlockSize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	_, err = rand.Read(iv)
	require.NoError(t, err)

	plaintext := []byte("short")

	enc := cbcPipeline(t, DirectionEnvelope, key, iv)
	sizes := make([]int, len(plaintext))
	for i := range sizes {
		sizes[i] = 1
	}
	ciphertext := pushChunked(t, enc, plaintext, sizes)
	require.NoError(t, enc.Flush())
	ciphertext = append(ciphertext, drain(t, enc)...)
	require.Len(t, ciphertext, aes.BlockSize) // one pad block for 5 bytes of input

	dec := cbcPipeline(t, DirectionDeenvelope, key, iv)
	recovered := pushChunked(t, dec, ciphertext, []int{aes.BlockSize})
	require.NoError(t, dec.Flush())
	recovered = append(recovered, drain(t, dec)...)

	require.Equal(t, plaintext, recovered)
}

func TestFinishBodyRejectsNonBlockAlignedDeenvelopeInput(t *testing.T) {
	key := make([]byte, 16)
	iv := make([]byte, aes.BlockSize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	_, err = rand.Read(iv)
	require.NoError(t, err)

	dec := cbcPipeline(t, DirectionDeenvelope, key, iv)
	n, err := dec.Push(make([]byte, 5))
	require.NoError(t, err)
	require.Equal(t, 5, n)

	require.Error(t, dec.Flush())
}

// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package envelope

import (
	"github.com/luxfi/envelope/cerr"
)

// pkcs7Pad appends a PKCS#7 padding block to data, always adding at least
// one byte (a full blockSize pad block when data is already aligned), the
// same convention cmd/envelopectl's AES-CBC helpers use.
func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

// pkcs7Unpad validates and strips a PKCS#7 padding block.
func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, cerr.New(cerr.BadData)
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize || padLen > len(data) {
		return nil, cerr.New(cerr.BadData)
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, cerr.New(cerr.BadData)
		}
	}
	return data[:len(data)-padLen], nil
}

// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"bytes"
	"crypto/rand"
	"fmt"

	"github.com/luxfi/envelope/codec"
)

const aesBlockSize = 16

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padding := bytes.Repeat([]byte{byte(padLen)}, padLen)
	return append(append([]byte(nil), data...), padding...)
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 || len(data)%aesBlockSize != 0 {
		return nil, fmt.Errorf("invalid padded length %d", len(data))
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > aesBlockSize || padLen > len(data) {
		return nil, fmt.Errorf("invalid PKCS#7 padding")
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, fmt.Errorf("invalid PKCS#7 padding")
		}
	}
	return data[:len(data)-padLen], nil
}

// aesCBCEncryptPadded PKCS#7-pads plaintext and encrypts it under key with
// a fresh random IV, via the active capability registry rather than
// reaching for crypto/cipher directly — the CLI drives the same provider
// façade the envelope pipeline does.
func aesCBCEncryptPadded(key, plaintext []byte) (ciphertext, iv []byte, err error) {
	iv = make([]byte, aesBlockSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, nil, err
	}
	ctx, err := reg.CreateContext(codec.AlgoAES, codec.ModeCBC)
	if err != nil {
		return nil, nil, err
	}
	if err := reg.LoadKey(ctx, key); err != nil {
		return nil, nil, err
	}
	if err := reg.LoadIV(ctx, iv); err != nil {
		return nil, nil, err
	}
	ciphertext, err = reg.Encrypt(ctx, pkcs7Pad(plaintext, aesBlockSize))
	if err != nil {
		return nil, nil, err
	}
	return ciphertext, iv, nil
}

func aesCBCDecryptPadded(key, iv, ciphertext []byte) ([]byte, error) {
	ctx, err := reg.CreateContext(codec.AlgoAES, codec.ModeCBC)
	if err != nil {
		return nil, err
	}
	if err := reg.LoadKey(ctx, key); err != nil {
		return nil, err
	}
	if err := reg.LoadIV(ctx, iv); err != nil {
		return nil, err
	}
	padded, err := reg.Decrypt(ctx, ciphertext)
	if err != nil {
		return nil, err
	}
	return pkcs7Unpad(padded)
}

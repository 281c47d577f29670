// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"
	"strings"

	"github.com/luxfi/envelope/codec"
)

var algorithmsByName = map[string]codec.AlgorithmID{
	"rsa":    codec.AlgoRSA,
	"dsa":    codec.AlgoDSA,
	"des":    codec.AlgoDES,
	"3des":   codec.Algo3DES,
	"aes":    codec.AlgoAES,
	"rc2":    codec.AlgoRC2,
	"rc4":    codec.AlgoRC4,
	"sha1":   codec.AlgoSHA1,
	"sha256": codec.AlgoSHA256,
	"sha384": codec.AlgoSHA384,
	"sha512": codec.AlgoSHA512,
	"blake3": codec.AlgoBLAKE3,
	"mlkem":  codec.AlgoMLKEM,
	"mldsa":  codec.AlgoMLDSA,
	"hpke":   codec.AlgoHPKE,
}

var modesByName = map[string]codec.Mode{
	"none":   codec.ModeNone,
	"ecb":    codec.ModeECB,
	"cbc":    codec.ModeCBC,
	"cfb":    codec.ModeCFB,
	"ofb":    codec.ModeOFB,
	"stream": codec.ModeStream,
	"pkc":    codec.ModePKC,
}

func parseAlgorithm(name string) (codec.AlgorithmID, error) {
	algo, ok := algorithmsByName[strings.ToLower(name)]
	if !ok {
		return codec.AlgoNone, fmt.Errorf("unknown algorithm %q", name)
	}
	return algo, nil
}

func parseMode(name string) (codec.Mode, error) {
	mode, ok := modesByName[strings.ToLower(name)]
	if !ok {
		return codec.ModeNone, fmt.Errorf("unknown mode %q", name)
	}
	return mode, nil
}

// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package envelope

import (
	"crypto/rsa"
	"encoding/binary"
	"math/big"

	"github.com/luxfi/envelope/cerr"
)

// sshRSAAlgName is the wire algorithm name RFC 4253 §6.6 defines for an
// SSH RSA public key blob.
const sshRSAAlgName = "ssh-rsa"

// MarshalSSHRSAPublicKey encodes an RSA public key in the legacy SSH wire
// blob format (string "ssh-rsa", mpint e, mpint n) that some older
// key-transport deployments this library still has to interoperate with
// use as an ad-hoc alternative to a SubjectPublicKeyInfo (spec §6.2). This
// is a narrow, fixed wire format with no ASN.1 structure to it, so it's
// built directly on encoding/binary rather than reaching for a general SSH
// protocol library merely to frame four length-prefixed fields.
func MarshalSSHRSAPublicKey(pub *rsa.PublicKey) []byte {
	var buf []byte
	buf = appendSSHString(buf, []byte(sshRSAAlgName))
	buf = appendSSHMpint(buf, big.NewInt(int64(pub.E)))
	buf = appendSSHMpint(buf, pub.N)
	return buf
}

// ParseSSHRSAPublicKey decodes the blob MarshalSSHRSAPublicKey produces.
func ParseSSHRSAPublicKey(blob []byte) (*rsa.PublicKey, error) {
	alg, rest, err := readSSHString(blob)
	if err != nil {
		return nil, err
	}
	if string(alg) != sshRSAAlgName {
		return nil, cerr.New(cerr.BadData)
	}
	e, rest, err := readSSHMpint(rest)
	if err != nil {
		return nil, err
	}
	n, rest, err := readSSHMpint(rest)
	if err != nil {
		return nil, err
	}
	if len(rest) > 0 {
		return nil, cerr.New(cerr.BadData)
	}
	return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
}

func appendSSHString(buf []byte, s []byte) []byte {
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(s)))
	buf = append(buf, length[:]...)
	return append(buf, s...)
}

// appendSSHMpint encodes a big.Int per RFC 4251 §5: two's-complement,
// with a leading zero byte inserted if the high bit of the first byte
// would otherwise be set (so the value is never misread as negative).
func appendSSHMpint(buf []byte, v *big.Int) []byte {
	b := v.Bytes()
	if len(b) > 0 && b[0]&0x80 != 0 {
		b = append([]byte{0}, b...)
	}
	return appendSSHString(buf, b)
}

func readSSHString(buf []byte) ([]byte, []byte, error) {
	if len(buf) < 4 {
		return nil, nil, cerr.New(cerr.Underflow)
	}
	n := binary.BigEndian.Uint32(buf[:4])
	buf = buf[4:]
	if uint64(len(buf)) < uint64(n) {
		return nil, nil, cerr.New(cerr.Underflow)
	}
	return buf[:n], buf[n:], nil
}

func readSSHMpint(buf []byte) (*big.Int, []byte, error) {
	raw, rest, err := readSSHString(buf)
	if err != nil {
		return nil, nil, err
	}
	return new(big.Int).SetBytes(raw), rest, nil
}

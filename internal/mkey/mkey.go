// Package mkey implements the narrow slice of multicodec/multibase this
// module needs: base58-btc multibase strings carrying a two-byte codec
// prefix for Ed25519, X25519 and secp256k1 public keys, plus the Edwards to
// Montgomery point conversion used to derive an X25519 key-agreement key
// from an Ed25519 signing key.
package mkey

import (
	"crypto/ed25519"
	"math/big"

	"github.com/mr-tron/base58"

	"github.com/webvh-go/did/diderr"
)

// p25519 is the Curve25519/Ed25519 field prime 2^255-19.
var p25519 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(19))

// Codec names a multicodec public-key prefix.
type Codec int

const (
	Ed25519 Codec = iota
	X25519
	Secp256k1
)

// prefix returns the two-byte multicodec varint prefix for c.
func (c Codec) prefix() [2]byte {
	switch c {
	case Ed25519:
		return [2]byte{0xed, 0x01}
	case X25519:
		return [2]byte{0xec, 0x01}
	case Secp256k1:
		return [2]byte{0xe7, 0x01}
	default:
		return [2]byte{0, 0}
	}
}

// Encode wraps raw key bytes with c's codec prefix and base58-btc multibase.
func Encode(c Codec, raw []byte) string {
	p := c.prefix()
	buf := make([]byte, 0, 2+len(raw))
	buf = append(buf, p[0], p[1])
	buf = append(buf, raw...)
	return "z" + base58.Encode(buf)
}

// Decode reverses Encode, returning the codec and the raw key bytes.
func Decode(s string) (Codec, []byte, error) {
	if len(s) < 2 || s[0] != 'z' {
		return 0, nil, diderr.New(diderr.KindInvalidPublicKey, "multibase key must start with 'z'")
	}
	buf, err := base58.Decode(s[1:])
	if err != nil {
		return 0, nil, diderr.Wrap(diderr.KindInvalidPublicKey, "base58btc decode failed", err)
	}
	if len(buf) < 3 {
		return 0, nil, diderr.New(diderr.KindInvalidPublicKey, "multibase key too short")
	}

	switch [2]byte{buf[0], buf[1]} {
	case Ed25519.prefix():
		return Ed25519, buf[2:], nil
	case X25519.prefix():
		return X25519, buf[2:], nil
	case Secp256k1.prefix():
		return Secp256k1, buf[2:], nil
	default:
		return 0, nil, diderr.New(diderr.KindInvalidPublicKey, "unrecognized multicodec prefix")
	}
}

// DeriveX25519 converts an Ed25519 public key to its X25519 (Curve25519)
// Montgomery-form counterpart: decompress the Edwards Y point and take the
// resulting Montgomery u-coordinate u = (1+y)/(1-y) mod 2^255-19 (RFC 7748).
// Mirrors trustbloc/did-go's cryptoutil.PublicEd25519toCurve25519 and
// aries-framework-go's vdr/key creator, both doing the identical conversion
// for the same purpose.
func DeriveX25519(ed25519Pub []byte) ([]byte, error) {
	if len(ed25519Pub) != ed25519.PublicKeySize {
		return nil, diderr.New(diderr.KindInvalidKey, "ed25519 public key must be 32 bytes")
	}

	// little-endian wire encoding -> big-endian big.Int, high bit cleared
	// (it encodes X's parity and is not part of Y).
	le := make([]byte, 32)
	copy(le, ed25519Pub)
	be := make([]byte, 32)
	for i := 0; i < 32; i++ {
		be[i] = le[31-i]
	}
	be[0] &= 0x7f

	y := new(big.Int).SetBytes(be)
	one := big.NewInt(1)

	numerator := new(big.Int).Add(one, y)
	numerator.Mod(numerator, p25519)
	denominator := new(big.Int).Sub(one, y)
	denominator.Mod(denominator, p25519)
	denominatorInv := new(big.Int).ModInverse(denominator, p25519)
	if denominatorInv == nil {
		return nil, diderr.New(diderr.KindInvalidKey, "ed25519 public key is not convertible to x25519 (y=1)")
	}

	u := new(big.Int).Mul(numerator, denominatorInv)
	u.Mod(u, p25519)

	// big-endian big.Int -> little-endian 32-byte wire encoding.
	ub := u.FillBytes(make([]byte, 32))
	out := make([]byte, 32)
	for i := 0; i < 32; i++ {
		out[i] = ub[31-i]
	}
	return out, nil
}

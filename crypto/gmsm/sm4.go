package gmsm

// [GM/T] SM4 GB/T 32907-2016

import (
	"crypto/cipher"
	"encoding/binary"
	"fmt"
	"math/bits"
)

// SM4_BlockSize the block size of SM4 in bytes.
const SM4_BlockSize = 16

// SM4_KeySize the key size of SM4 in bytes.
const SM4_KeySize = 16

const sm4_rounds = 32

var sm4_fk = [4]uint32{0xa3b1bac6, 0x56aa3350, 0x677d9197, 0xb27022dc}

// sm4_ck[i] packs the bytes (4i+j)·7 mod 256 for j = 0..3.
var sm4_ck = func() (ck [sm4_rounds]uint32) {
	for i := range ck {
		for j := 0; j < 4; j++ {
			ck[i] = ck[i]<<8 | uint32(byte((4*i+j)*7))
		}
	}
	return
}()

var sm4_sbox = [256]byte{
	0xd6, 0x90, 0xe9, 0xfe, 0xcc, 0xe1, 0x3d, 0xb7, 0x16, 0xb6, 0x14, 0xc2, 0x28, 0xfb, 0x2c, 0x05,
	0x2b, 0x67, 0x9a, 0x76, 0x2a, 0xbe, 0x04, 0xc3, 0xaa, 0x44, 0x13, 0x26, 0x49, 0x86, 0x06, 0x99,
	0x9c, 0x42, 0x50, 0xf4, 0x91, 0xef, 0x98, 0x7a, 0x33, 0x54, 0x0b, 0x43, 0xed, 0xcf, 0xac, 0x62,
	0xe4, 0xb3, 0x1c, 0xa9, 0xc9, 0x08, 0xe8, 0x95, 0x80, 0xdf, 0x94, 0xfa, 0x75, 0x8f, 0x3f, 0xa6,
	0x47, 0x07, 0xa7, 0xfc, 0xf3, 0x73, 0x17, 0xba, 0x83, 0x59, 0x3c, 0x19, 0xe6, 0x85, 0x4f, 0xa8,
	0x68, 0x6b, 0x81, 0xb2, 0x71, 0x64, 0xda, 0x8b, 0xf8, 0xeb, 0x0f, 0x4b, 0x70, 0x56, 0x9d, 0x35,
	0x1e, 0x24, 0x0e, 0x5e, 0x63, 0x58, 0xd1, 0xa2, 0x25, 0x22, 0x7c, 0x3b, 0x01, 0x21, 0x78, 0x87,
	0xd4, 0x00, 0x46, 0x57, 0x9f, 0xd3, 0x27, 0x52, 0x4c, 0x36, 0x02, 0xe7, 0xa0, 0xc4, 0xc8, 0x9e,
	0xea, 0xbf, 0x8a, 0xd2, 0x40, 0xc7, 0x38, 0xb5, 0xa3, 0xf7, 0xf2, 0xce, 0xf9, 0x61, 0x15, 0xa1,
	0xe0, 0xae, 0x5d, 0xa4, 0x9b, 0x34, 0x1a, 0x55, 0xad, 0x93, 0x32, 0x30, 0xf5, 0x8c, 0xb1, 0xe3,
	0x1d, 0xf6, 0xe2, 0x2e, 0x82, 0x66, 0xca, 0x60, 0xc0, 0x29, 0x23, 0xab, 0x0d, 0x53, 0x4e, 0x6f,
	0xd5, 0xdb, 0x37, 0x45, 0xde, 0xfd, 0x8e, 0x2f, 0x03, 0xff, 0x6a, 0x72, 0x6d, 0x6c, 0x5b, 0x51,
	0x8d, 0x1b, 0xaf, 0x92, 0xbb, 0xdd, 0xbc, 0x7f, 0x11, 0xd9, 0x5c, 0x41, 0x1f, 0x10, 0x5a, 0xd8,
	0x0a, 0xc1, 0x31, 0x88, 0xa5, 0xcd, 0x7b, 0xbd, 0x2d, 0x74, 0xd0, 0x12, 0xb8, 0xe5, 0xb4, 0xb0,
	0x89, 0x69, 0x97, 0x4a, 0x0c, 0x96, 0x77, 0x7e, 0x65, 0xb9, 0xf1, 0x09, 0xc5, 0x6e, 0xc6, 0x84,
	0x18, 0xf0, 0x7d, 0xec, 0x3a, 0xdc, 0x4d, 0x20, 0x79, 0xee, 0x5f, 0x3e, 0xd7, 0xcb, 0x39, 0x48,
}

// sm4_sboxWords is the S-box packed eight entries per word, entry x in
// byte x&7 of word x>>3.
var sm4_sboxWords = func() (w [32]uint64) {
	for i, v := range sm4_sbox {
		w[i>>3] |= uint64(v) << (8 * uint(i&7))
	}
	return
}()

// sm4_tau applies the S-box to each byte of a. Every lookup reads all 32
// packed words and keeps the wanted one by mask.
func sm4_tau(a uint32) uint32 {
	x0, x1, x2, x3 := a>>24, (a>>16)&0xff, (a>>8)&0xff, a&0xff
	w0, w1, w2, w3 := uint64(x0>>3), uint64(x1>>3), uint64(x2>>3), uint64(x3>>3)
	var v0, v1, v2, v3 uint64
	for i, w := range sm4_sboxWords {
		idx := uint64(i)
		v0 |= w & sm4_eqMask(idx, w0)
		v1 |= w & sm4_eqMask(idx, w1)
		v2 |= w & sm4_eqMask(idx, w2)
		v3 |= w & sm4_eqMask(idx, w3)
	}
	b0 := uint32(v0>>(8*(x0&7))) & 0xff
	b1 := uint32(v1>>(8*(x1&7))) & 0xff
	b2 := uint32(v2>>(8*(x2&7))) & 0xff
	b3 := uint32(v3>>(8*(x3&7))) & 0xff
	return b0<<24 | b1<<16 | b2<<8 | b3
}

// sm4_eqMask returns all ones if a == b and zero otherwise.
func sm4_eqMask(a, b uint64) uint64 {
	d := a ^ b
	return ((d | -d) >> 63) - 1
}

// sm4_l is the linear transform of the round function.
func sm4_l(b uint32) uint32 {
	return b ^ bits.RotateLeft32(b, 2) ^ bits.RotateLeft32(b, 10) ^ bits.RotateLeft32(b, 18) ^ bits.RotateLeft32(b, 24)
}

// sm4_lk is the linear transform of the key schedule.
func sm4_lk(b uint32) uint32 {
	return b ^ bits.RotateLeft32(b, 13) ^ bits.RotateLeft32(b, 23)
}

type sm4Cipher struct {
	enc [sm4_rounds]uint32
	dec [sm4_rounds]uint32
}

// NewCipher creates and returns a new cipher.Block implementing SM4.
// The key must be exactly 16 bytes.
func NewCipher(key []byte) (cipher.Block, error) {
	return newSM4Cipher(key)
}

func newSM4Cipher(key []byte) (*sm4Cipher, error) {
	if len(key) != SM4_KeySize {
		return nil, fmt.Errorf("sm4: key must be %d bytes, got %d: %w", SM4_KeySize, len(key), ErrInvalidKey)
	}
	c := new(sm4Cipher)
	sm4_expandKey(key, &c.enc, &c.dec)
	return c, nil
}

func sm4_expandKey(key []byte, enc, dec *[sm4_rounds]uint32) {
	var k [4]uint32
	for i := range k {
		k[i] = binary.BigEndian.Uint32(key[4*i:]) ^ sm4_fk[i]
	}
	for i := 0; i < sm4_rounds; i++ {
		rk := k[0] ^ sm4_lk(sm4_tau(k[1]^k[2]^k[3]^sm4_ck[i]))
		enc[i] = rk
		dec[sm4_rounds-1-i] = rk
		k[0], k[1], k[2], k[3] = k[1], k[2], k[3], rk
	}
}

func (c *sm4Cipher) BlockSize() int { return SM4_BlockSize }

func (c *sm4Cipher) Encrypt(dst, src []byte) {
	sm4_checkBlock(dst, src)
	sm4_crypt(&c.enc, dst, src)
}

func (c *sm4Cipher) Decrypt(dst, src []byte) {
	sm4_checkBlock(dst, src)
	sm4_crypt(&c.dec, dst, src)
}

// sm4ECB runs the round function straight over the schedule, one block at a
// time, without going through the cipher.Block interface.
type sm4ECB struct {
	rk *[sm4_rounds]uint32
}

func (c *sm4Cipher) NewECBEncrypter() cipher.BlockMode { return sm4ECB{&c.enc} }
func (c *sm4Cipher) NewECBDecrypter() cipher.BlockMode { return sm4ECB{&c.dec} }

func (x sm4ECB) BlockSize() int { return SM4_BlockSize }

func (x sm4ECB) CryptBlocks(dst, src []byte) {
	validate(SM4_BlockSize, dst, src)
	for len(src) > 0 {
		sm4_crypt(x.rk, dst, src)
		src = src[SM4_BlockSize:]
		dst = dst[SM4_BlockSize:]
	}
}

// Destroy zeroes the round keys. The cipher must not be used afterwards.
func (c *sm4Cipher) Destroy() {
	c.enc = [sm4_rounds]uint32{}
	c.dec = [sm4_rounds]uint32{}
}

func sm4_checkBlock(dst, src []byte) {
	if len(src) < SM4_BlockSize {
		panic("sm4: input not full block")
	}
	if len(dst) < SM4_BlockSize {
		panic("sm4: output not full block")
	}
	if inexactOverlap(dst[:SM4_BlockSize], src[:SM4_BlockSize]) {
		panic("sm4: invalid buffer overlap")
	}
}

func sm4_crypt(rk *[sm4_rounds]uint32, dst, src []byte) {
	x0 := binary.BigEndian.Uint32(src[0:])
	x1 := binary.BigEndian.Uint32(src[4:])
	x2 := binary.BigEndian.Uint32(src[8:])
	x3 := binary.BigEndian.Uint32(src[12:])
	for i := 0; i < sm4_rounds; i += 4 {
		x0 ^= sm4_l(sm4_tau(x1 ^ x2 ^ x3 ^ rk[i]))
		x1 ^= sm4_l(sm4_tau(x2 ^ x3 ^ x0 ^ rk[i+1]))
		x2 ^= sm4_l(sm4_tau(x3 ^ x0 ^ x1 ^ rk[i+2]))
		x3 ^= sm4_l(sm4_tau(x0 ^ x1 ^ x2 ^ rk[i+3]))
	}
	binary.BigEndian.PutUint32(dst[0:], x3)
	binary.BigEndian.PutUint32(dst[4:], x2)
	binary.BigEndian.PutUint32(dst[8:], x1)
	binary.BigEndian.PutUint32(dst[12:], x0)
}

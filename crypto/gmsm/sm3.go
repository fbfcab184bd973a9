package gmsm

// [GM/T] SM3 GB/T 32905-2016

import (
	"crypto/hmac"
	"encoding/binary"
	"fmt"
	"hash"
	"math/bits"
)

// SM3_Size the size of a SM3 checksum in bytes.
const SM3_Size int = 32

// SM3_BlockSize the blocksize of SM3 in bytes.
const SM3_BlockSize int = 64

const (
	sm3_chunk = 64
	sm3_init0 = 0x7380166f
	sm3_init1 = 0x4914b2b9
	sm3_init2 = 0x172442d7
	sm3_init3 = 0xda8a0600
	sm3_init4 = 0xa96f30bc
	sm3_init5 = 0x163138aa
	sm3_init6 = 0xe38dee4d
	sm3_init7 = 0xb0fb0e4e

	sm3_t0 = 0x79cc4519
	sm3_t1 = 0x7a879d8a
)

// sm3_digest represents the partial evaluation of a checksum.
type sm3_digest struct {
	h   [8]uint32
	x   [sm3_chunk]byte
	nx  int
	len uint64
}

const (
	sm3_magic         = "sm3\x03"
	sm3_marshaledSize = len(sm3_magic) + 8*4 + sm3_chunk + 8
)

// MarshalBinary snapshots the running state so hashing can resume later.
func (d *sm3_digest) MarshalBinary() ([]byte, error) {
	b := make([]byte, 0, sm3_marshaledSize)
	b = append(b, sm3_magic...)
	for _, v := range d.h {
		b = binary.BigEndian.AppendUint32(b, v)
	}
	b = append(b, d.x[:d.nx]...)
	b = b[:len(b)+len(d.x)-d.nx]
	b = binary.BigEndian.AppendUint64(b, d.len)
	return b, nil
}

func (d *sm3_digest) UnmarshalBinary(b []byte) error {
	if len(b) < len(sm3_magic) || string(b[:len(sm3_magic)]) != sm3_magic {
		return fmt.Errorf("sm3: invalid hash state identifier: %w", ErrInvalidParameter)
	}
	if len(b) != sm3_marshaledSize {
		return fmt.Errorf("sm3: invalid hash state size: %w", ErrInvalidParameter)
	}
	b = b[len(sm3_magic):]
	for i := range d.h {
		d.h[i] = binary.BigEndian.Uint32(b)
		b = b[4:]
	}
	b = b[copy(d.x[:], b):]
	d.len = binary.BigEndian.Uint64(b)
	d.nx = int(d.len % sm3_chunk)
	return nil
}

// NewSM3 returns a new hash.Hash computing the SM3 checksum. The Hash
// also implements encoding.BinaryMarshaler and
// encoding.BinaryUnmarshaler to marshal and unmarshal the internal
// state of the hash.
func NewSM3() hash.Hash {
	d := new(sm3_digest)
	d.Reset()
	return d
}

// Sum appends the current hash to in and returns the resulting slice.
// It does not change the underlying hash state.
func (d *sm3_digest) Sum(in []byte) []byte {
	d0 := *d
	hash := d0.checkSum()
	return append(in, hash[:]...)
}

func (d *sm3_digest) checkSum() [SM3_Size]byte {
	n := d.len
	// Padding. Add a 1 bit and 0 bits until 56 bytes mod 64.
	var tmp [64 + 8]byte
	tmp[0] = 0x80
	var t uint64
	if n%64 < 56 {
		t = 56 - n%64
	} else {
		t = 64 + 56 - n%64
	}
	padlen := tmp[:t+8]
	binary.BigEndian.PutUint64(padlen[t:], n<<3)
	d.Write(padlen)

	if d.nx != 0 {
		panic("sm3: internal error: d.nx != 0")
	}

	var digest [SM3_Size]byte
	for i, v := range d.h {
		binary.BigEndian.PutUint32(digest[i*4:], v)
	}
	return digest
}

func (d *sm3_digest) Write(p []byte) (nn int, err error) {
	nn = len(p)
	d.len += uint64(nn)
	if d.nx > 0 {
		n := copy(d.x[d.nx:], p)
		d.nx += n
		if d.nx == sm3_chunk {
			sm3_block(d, d.x[:])
			d.nx = 0
		}
		p = p[n:]
	}
	if len(p) >= sm3_chunk {
		n := len(p) &^ (sm3_chunk - 1)
		sm3_block(d, p[:n])
		p = p[n:]
	}
	if len(p) > 0 {
		d.nx = copy(d.x[:], p)
	}
	return
}

func (d *sm3_digest) Size() int { return SM3_Size }

func (d *sm3_digest) BlockSize() int { return SM3_BlockSize }

// Reset resets the Hash to its initial state.
func (d *sm3_digest) Reset() {
	d.h = [8]uint32{sm3_init0, sm3_init1, sm3_init2, sm3_init3, sm3_init4, sm3_init5, sm3_init6, sm3_init7}
	d.x = [sm3_chunk]byte{}
	d.nx = 0
	d.len = 0
}

// SM3_Sum returns the SM3 checksum of the data.
func SM3_Sum(data []byte) [SM3_Size]byte {
	var d sm3_digest
	d.Reset()
	d.Write(data)
	return d.checkSum()
}

// HmacSM3 returns HMAC-SM3(key, data).
func HmacSM3(key, data []byte) []byte {
	mac := hmac.New(NewSM3, key)
	mac.Write(data)
	return mac.Sum(nil)
}

func sm3_p0(x uint32) uint32 {
	return x ^ bits.RotateLeft32(x, 9) ^ bits.RotateLeft32(x, 17)
}

func sm3_p1(x uint32) uint32 {
	return x ^ bits.RotateLeft32(x, 15) ^ bits.RotateLeft32(x, 23)
}

// sm3_block compresses every whole 64-byte block of p into dig.h.
func sm3_block(dig *sm3_digest, p []byte) {
	var w [68]uint32
	var w1 [64]uint32
	h := dig.h

	for len(p) >= sm3_chunk {
		for i := 0; i < 16; i++ {
			w[i] = binary.BigEndian.Uint32(p[4*i:])
		}
		for i := 16; i < 68; i++ {
			w[i] = sm3_p1(w[i-16]^w[i-9]^bits.RotateLeft32(w[i-3], 15)) ^ bits.RotateLeft32(w[i-13], 7) ^ w[i-6]
		}
		for i := 0; i < 64; i++ {
			w1[i] = w[i] ^ w[i+4]
		}

		a, b, c, d, e, f, g, hh := h[0], h[1], h[2], h[3], h[4], h[5], h[6], h[7]
		for j := 0; j < 64; j++ {
			var ff, gg, tj uint32
			if j < 16 {
				ff = a ^ b ^ c
				gg = e ^ f ^ g
				tj = sm3_t0
			} else {
				ff = (a & b) | (a & c) | (b & c)
				gg = (e & f) | (^e & g)
				tj = sm3_t1
			}
			a12 := bits.RotateLeft32(a, 12)
			ss1 := bits.RotateLeft32(a12+e+bits.RotateLeft32(tj, j), 7)
			ss2 := ss1 ^ a12
			tt1 := ff + d + ss2 + w1[j]
			tt2 := gg + hh + ss1 + w[j]
			d = c
			c = bits.RotateLeft32(b, 9)
			b = a
			a = tt1
			hh = g
			g = bits.RotateLeft32(f, 19)
			f = e
			e = sm3_p0(tt2)
		}
		h[0] ^= a
		h[1] ^= b
		h[2] ^= c
		h[3] ^= d
		h[4] ^= e
		h[5] ^= f
		h[6] ^= g
		h[7] ^= hh

		p = p[sm3_chunk:]
	}
	dig.h = h
}

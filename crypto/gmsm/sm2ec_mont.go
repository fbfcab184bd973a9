package gmsm

import (
	"encoding/binary"
	"math/big"
	"math/bits"
)

// sm2p256Limbs holds a 256-bit integer as four little-endian 64-bit words.
type sm2p256Limbs = [4]uint64

// montModulus carries the constants of Montgomery arithmetic with R = 2^256
// for one odd modulus.
type montModulus struct {
	m   sm2p256Limbs
	k0  uint64       // -m⁻¹ mod 2^64
	rr  sm2p256Limbs // R² mod m
	one sm2p256Limbs // R mod m
	exp sm2p256Limbs // m - 2, the Fermat inversion exponent
}

func newMontModulus(hexModulus string) *montModulus {
	mb, ok := new(big.Int).SetString(hexModulus, 16)
	if !ok {
		panic("sm2ec: bad modulus constant")
	}
	var mm montModulus
	limbsFromBig(&mm.m, mb)

	// Newton iteration doubles the number of correct low bits each round;
	// m⁻¹ = m holds mod 8 for any odd m.
	inv := mm.m[0]
	for i := 0; i < 5; i++ {
		inv *= 2 - mm.m[0]*inv
	}
	mm.k0 = -inv

	r := new(big.Int).Lsh(big.NewInt(1), 256)
	limbsFromBig(&mm.one, new(big.Int).Mod(r, mb))
	limbsFromBig(&mm.rr, new(big.Int).Mod(new(big.Int).Mul(r, r), mb))
	limbsFromBig(&mm.exp, new(big.Int).Sub(mb, big.NewInt(2)))
	return &mm
}

func limbsFromBig(z *sm2p256Limbs, x *big.Int) {
	var buf [32]byte
	x.FillBytes(buf[:])
	limbsFromBytes(z, &buf)
}

func limbsFromBytes(z *sm2p256Limbs, b *[32]byte) {
	z[3] = binary.BigEndian.Uint64(b[0:8])
	z[2] = binary.BigEndian.Uint64(b[8:16])
	z[1] = binary.BigEndian.Uint64(b[16:24])
	z[0] = binary.BigEndian.Uint64(b[24:32])
}

func limbsToBytes(out *[32]byte, x *sm2p256Limbs) {
	binary.BigEndian.PutUint64(out[0:8], x[3])
	binary.BigEndian.PutUint64(out[8:16], x[2])
	binary.BigEndian.PutUint64(out[16:24], x[1])
	binary.BigEndian.PutUint64(out[24:32], x[0])
}

// montMul sets z = x * y * R⁻¹ mod m using coarsely integrated operand
// scanning. x and y must be reduced; z may alias either.
func montMul(z, x, y *sm2p256Limbs, mod *montModulus) {
	var t [6]uint64
	for i := 0; i < 4; i++ {
		var c, cc, hi, lo uint64
		for j := 0; j < 4; j++ {
			hi, lo = bits.Mul64(x[j], y[i])
			lo, cc = bits.Add64(lo, t[j], 0)
			hi += cc
			lo, cc = bits.Add64(lo, c, 0)
			hi += cc
			t[j] = lo
			c = hi
		}
		t[4], cc = bits.Add64(t[4], c, 0)
		t[5] = cc

		q := t[0] * mod.k0
		hi, lo = bits.Mul64(q, mod.m[0])
		_, cc = bits.Add64(lo, t[0], 0)
		c = hi + cc
		for j := 1; j < 4; j++ {
			hi, lo = bits.Mul64(q, mod.m[j])
			lo, cc = bits.Add64(lo, t[j], 0)
			hi += cc
			lo, cc = bits.Add64(lo, c, 0)
			hi += cc
			t[j-1] = lo
			c = hi
		}
		t[3], cc = bits.Add64(t[4], c, 0)
		t[4] = t[5] + cc
	}
	reduceOnce(z, &sm2p256Limbs{t[0], t[1], t[2], t[3]}, t[4], mod)
}

// reduceOnce sets z = (carry·2^256 + x) mod m for inputs below 2m.
func reduceOnce(z, x *sm2p256Limbs, carry uint64, mod *montModulus) {
	var d sm2p256Limbs
	var b uint64
	d[0], b = bits.Sub64(x[0], mod.m[0], 0)
	d[1], b = bits.Sub64(x[1], mod.m[1], b)
	d[2], b = bits.Sub64(x[2], mod.m[2], b)
	d[3], b = bits.Sub64(x[3], mod.m[3], b)
	_, b = bits.Sub64(carry, 0, b)
	// b == 0 means x >= m, so keep the difference.
	limbsSelect(z, &d, x, b^1)
}

func modAdd(z, x, y *sm2p256Limbs, mod *montModulus) {
	var s sm2p256Limbs
	var c uint64
	s[0], c = bits.Add64(x[0], y[0], 0)
	s[1], c = bits.Add64(x[1], y[1], c)
	s[2], c = bits.Add64(x[2], y[2], c)
	s[3], c = bits.Add64(x[3], y[3], c)
	reduceOnce(z, &s, c, mod)
}

func modSub(z, x, y *sm2p256Limbs, mod *montModulus) {
	var d sm2p256Limbs
	var b, c uint64
	d[0], b = bits.Sub64(x[0], y[0], 0)
	d[1], b = bits.Sub64(x[1], y[1], b)
	d[2], b = bits.Sub64(x[2], y[2], b)
	d[3], b = bits.Sub64(x[3], y[3], b)
	mask := -b
	d[0], c = bits.Add64(d[0], mod.m[0]&mask, 0)
	d[1], c = bits.Add64(d[1], mod.m[1]&mask, c)
	d[2], c = bits.Add64(d[2], mod.m[2]&mask, c)
	d[3], _ = bits.Add64(d[3], mod.m[3]&mask, c)
	*z = d
}

// limbsSelect sets z to a if cond == 1 and to b if cond == 0.
func limbsSelect(z, a, b *sm2p256Limbs, cond uint64) {
	mask := -cond
	z[0] = (a[0] & mask) | (b[0] &^ mask)
	z[1] = (a[1] & mask) | (b[1] &^ mask)
	z[2] = (a[2] & mask) | (b[2] &^ mask)
	z[3] = (a[3] & mask) | (b[3] &^ mask)
}

// limbsIsZero returns 1 if x == 0 and 0 otherwise.
func limbsIsZero(x *sm2p256Limbs) int {
	v := x[0] | x[1] | x[2] | x[3]
	return int(1 ^ ((v | -v) >> 63))
}

func limbsEqual(x, y *sm2p256Limbs) int {
	d := sm2p256Limbs{x[0] ^ y[0], x[1] ^ y[1], x[2] ^ y[2], x[3] ^ y[3]}
	return limbsIsZero(&d)
}

// limbsLess returns 1 if x < m and 0 otherwise.
func limbsLess(x, m *sm2p256Limbs) uint64 {
	var b uint64
	_, b = bits.Sub64(x[0], m[0], 0)
	_, b = bits.Sub64(x[1], m[1], b)
	_, b = bits.Sub64(x[2], m[2], b)
	_, b = bits.Sub64(x[3], m[3], b)
	return b
}

// montExp sets z = x^e in the Montgomery domain. e is public, so
// branching on its bits leaks nothing about x.
func montExp(z, x, e *sm2p256Limbs, mod *montModulus) {
	acc := mod.one
	base := *x
	for i := 255; i >= 0; i-- {
		montMul(&acc, &acc, &acc, mod)
		if (e[i/64]>>(uint(i)%64))&1 == 1 {
			montMul(&acc, &acc, &base, mod)
		}
	}
	*z = acc
}

// montFromBytes decodes a big-endian value; the bool is false if it is not
// below m. With reduce set, one conditional subtraction brings any 256-bit
// value into range instead.
func montFromBytes(z *sm2p256Limbs, b []byte, reduce bool, mod *montModulus) bool {
	if len(b) != 32 {
		return false
	}
	var buf [32]byte
	copy(buf[:], b)
	var l sm2p256Limbs
	limbsFromBytes(&l, &buf)
	if reduce {
		reduceOnce(&l, &l, 0, mod)
	} else if limbsLess(&l, &mod.m) == 0 {
		return false
	}
	montMul(z, &l, &mod.rr, mod)
	return true
}

func montToBytes(out *[32]byte, x *sm2p256Limbs, mod *montModulus) {
	var l sm2p256Limbs
	montMul(&l, x, &sm2p256Limbs{1}, mod)
	limbsToBytes(out, &l)
}

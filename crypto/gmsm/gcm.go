package gmsm

import (
	"crypto/cipher"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
	"math/bits"
)

const (
	gcmBlockSize         = 16
	gcmStandardNonceSize = 12
	gcmTagSize           = 16
	gcmMinimumTagSize    = 12
	// Plaintext is limited to 2^39 - 256 bits per invocation.
	gcmMaxPlaintext = 1<<36 - 32
)

// ghash.go

// ghash is the GCM universal hash over GF(2^128) reduced by
// x^128 + x^7 + x^2 + x + 1. Multiplication is carry-less and uses integer
// multiplies on operands with four-bit holes, so no table is indexed by
// secret data.
type ghash struct {
	h0, h1, h2    uint64
	h0r, h1r, h2r uint64
	y0, y1        uint64
	buf           [gcmBlockSize]byte
	n             int
}

func (g *ghash) init(h *[gcmBlockSize]byte) {
	g.h1 = binary.BigEndian.Uint64(h[:8])
	g.h0 = binary.BigEndian.Uint64(h[8:])
	g.h0r = bits.Reverse64(g.h0)
	g.h1r = bits.Reverse64(g.h1)
	g.h2 = g.h0 ^ g.h1
	g.h2r = g.h0r ^ g.h1r
	g.reset()
}

func (g *ghash) reset() {
	g.y0, g.y1 = 0, 0
	g.buf = [gcmBlockSize]byte{}
	g.n = 0
}

// bmul64 returns the low 64 bits of the carry-less product of x and y.
func bmul64(x, y uint64) uint64 {
	const (
		m0 = 0x1111111111111111
		m1 = 0x2222222222222222
		m2 = 0x4444444444444444
		m3 = 0x8888888888888888
	)
	x0, x1, x2, x3 := x&m0, x&m1, x&m2, x&m3
	y0, y1, y2, y3 := y&m0, y&m1, y&m2, y&m3
	z0 := (x0 * y0) ^ (x1 * y3) ^ (x2 * y2) ^ (x3 * y1)
	z1 := (x0 * y1) ^ (x1 * y0) ^ (x2 * y3) ^ (x3 * y2)
	z2 := (x0 * y2) ^ (x1 * y1) ^ (x2 * y0) ^ (x3 * y3)
	z3 := (x0 * y3) ^ (x1 * y2) ^ (x2 * y1) ^ (x3 * y0)
	return (z0 & m0) | (z1 & m1) | (z2 & m2) | (z3 & m3)
}

// mul folds one 16-byte block into the accumulator: y = (y ^ b) * H.
func (g *ghash) mul(b []byte) {
	y1 := g.y1 ^ binary.BigEndian.Uint64(b[:8])
	y0 := g.y0 ^ binary.BigEndian.Uint64(b[8:16])

	y0r := bits.Reverse64(y0)
	y1r := bits.Reverse64(y1)
	y2 := y0 ^ y1
	y2r := y0r ^ y1r

	// Karatsuba on the low halves, and on the bit-reversed operands for the
	// high halves.
	z0 := bmul64(y0, g.h0)
	z1 := bmul64(y1, g.h1)
	z2 := bmul64(y2, g.h2)
	z0h := bmul64(y0r, g.h0r)
	z1h := bmul64(y1r, g.h1r)
	z2h := bmul64(y2r, g.h2r)
	z2 ^= z0 ^ z1
	z2h ^= z0h ^ z1h
	z0h = bits.Reverse64(z0h) >> 1
	z1h = bits.Reverse64(z1h) >> 1
	z2h = bits.Reverse64(z2h) >> 1

	v0 := z0
	v1 := z0h ^ z2
	v2 := z1 ^ z2h
	v3 := z1h

	// The operands are bit-reflected, so shift the 256-bit product left once.
	v3 = v3<<1 | v2>>63
	v2 = v2<<1 | v1>>63
	v1 = v1<<1 | v0>>63
	v0 = v0 << 1

	v2 ^= v0 ^ v0>>1 ^ v0>>2 ^ v0>>7
	v1 ^= v0<<63 ^ v0<<62 ^ v0<<57
	v3 ^= v1 ^ v1>>1 ^ v1>>2 ^ v1>>7
	v2 ^= v1<<63 ^ v1<<62 ^ v1<<57

	g.y0 = v2
	g.y1 = v3
}

func (g *ghash) write(p []byte) {
	if g.n > 0 {
		k := copy(g.buf[g.n:], p)
		g.n += k
		p = p[k:]
		if g.n < gcmBlockSize {
			return
		}
		g.mul(g.buf[:])
		g.n = 0
	}
	for len(p) >= gcmBlockSize {
		g.mul(p[:gcmBlockSize])
		p = p[gcmBlockSize:]
	}
	if len(p) > 0 {
		g.n = copy(g.buf[:], p)
	}
}

// pad completes a pending partial block with zeros.
func (g *ghash) pad() {
	if g.n == 0 {
		return
	}
	for i := g.n; i < gcmBlockSize; i++ {
		g.buf[i] = 0
	}
	g.mul(g.buf[:])
	g.n = 0
}

func (g *ghash) sum(out *[gcmBlockSize]byte) {
	binary.BigEndian.PutUint64(out[:8], g.y1)
	binary.BigEndian.PutUint64(out[8:], g.y0)
}

func (g *ghash) destroy() {
	*g = ghash{}
}

// gcm_stream.go

// gcmState is one GCM invocation: counter, GHASH accumulator and lengths.
// It accepts data incrementally in the order AAD, then text.
type gcmState struct {
	b       cipher.Block
	tagSize int
	key     [gcmBlockSize]byte // H = E_K(0^128)
	hash    ghash
	j0      [gcmBlockSize]byte
	ctr     [gcmBlockSize]byte
	ks      [gcmBlockSize]byte
	ksUsed  int
	aadLen  uint64
	textLen uint64
	inText  bool
}

func newGCMState(b cipher.Block, tagSize int) *gcmState {
	s := &gcmState{b: b, tagSize: tagSize}
	b.Encrypt(s.key[:], s.key[:])
	s.hash.init(&s.key)
	return s
}

// reset starts a new invocation under iv.
func (s *gcmState) reset(iv []byte) {
	s.hash.reset()
	if len(iv) == gcmStandardNonceSize {
		copy(s.j0[:], iv)
		s.j0[12], s.j0[13], s.j0[14], s.j0[15] = 0, 0, 0, 1
	} else {
		// J0 = GHASH(IV ‖ 0^s ‖ 0^64 ‖ [len(IV)]_64)
		s.hash.write(iv)
		s.hash.pad()
		var lens [gcmBlockSize]byte
		binary.BigEndian.PutUint64(lens[8:], uint64(len(iv))*8)
		s.hash.mul(lens[:])
		s.hash.sum(&s.j0)
		s.hash.reset()
	}
	s.ctr = s.j0
	gcmInc32(&s.ctr)
	s.ksUsed = gcmBlockSize
	s.aadLen, s.textLen = 0, 0
	s.inText = false
}

func gcmInc32(ctr *[gcmBlockSize]byte) {
	binary.BigEndian.PutUint32(ctr[12:], binary.BigEndian.Uint32(ctr[12:])+1)
}

func (s *gcmState) updateAAD(aad []byte) error {
	if s.inText {
		return fmt.Errorf("gcm: additional data after text: %w", ErrInvalidParameter)
	}
	s.aadLen += uint64(len(aad))
	s.hash.write(aad)
	return nil
}

func (s *gcmState) startText(n int) error {
	if !s.inText {
		s.hash.pad()
		s.inText = true
	}
	if s.textLen+uint64(n) > gcmMaxPlaintext {
		return fmt.Errorf("gcm: message too large: %w", ErrInvalidInputLength)
	}
	s.textLen += uint64(n)
	return nil
}

// xorKeyStream applies the counter keystream, continuing across calls.
func (s *gcmState) xorKeyStream(dst, src []byte) {
	for len(src) > 0 {
		if s.ksUsed == gcmBlockSize {
			s.b.Encrypt(s.ks[:], s.ctr[:])
			gcmInc32(&s.ctr)
			s.ksUsed = 0
		}
		n := subtle.XORBytes(dst, src, s.ks[s.ksUsed:])
		s.ksUsed += n
		dst = dst[n:]
		src = src[n:]
	}
}

func (s *gcmState) encrypt(dst, src []byte) error {
	if err := s.startText(len(src)); err != nil {
		return err
	}
	s.xorKeyStream(dst, src)
	s.hash.write(dst[:len(src)])
	return nil
}

// absorb hashes ciphertext without decrypting it.
func (s *gcmState) absorb(ciphertext []byte) error {
	if err := s.startText(len(ciphertext)); err != nil {
		return err
	}
	s.hash.write(ciphertext)
	return nil
}

// tag finishes GHASH and returns E(J0) ⊕ S truncated to the tag size.
func (s *gcmState) tag() []byte {
	s.hash.pad()
	var lens [gcmBlockSize]byte
	binary.BigEndian.PutUint64(lens[:8], s.aadLen*8)
	binary.BigEndian.PutUint64(lens[8:], s.textLen*8)
	s.hash.mul(lens[:])

	var sum, ek [gcmBlockSize]byte
	s.hash.sum(&sum)
	s.b.Encrypt(ek[:], s.j0[:])
	subtle.XORBytes(sum[:], sum[:], ek[:])
	return sum[:s.tagSize]
}

// rewind restarts the keystream at the first text counter block, so text
// hashed by absorb can be decrypted once the tag checks out.
func (s *gcmState) rewind() {
	s.ctr = s.j0
	gcmInc32(&s.ctr)
	s.ksUsed = gcmBlockSize
}

func (s *gcmState) destroy() {
	s.hash.destroy()
	s.key = [gcmBlockSize]byte{}
	s.j0 = [gcmBlockSize]byte{}
	s.ctr = [gcmBlockSize]byte{}
	s.ks = [gcmBlockSize]byte{}
}

// gcm.go

type gcmAEAD struct {
	b         cipher.Block
	nonceSize int
	tagSize   int
}

// NewGCM returns SM4-GCM with a 12-byte nonce and a 16-byte tag.
func NewGCM(b cipher.Block) (cipher.AEAD, error) {
	return NewGCMWithSizes(b, gcmStandardNonceSize, gcmTagSize)
}

// NewGCMWithSizes returns GCM over b for nonces of nonceSize bytes (at
// least one) and tags of tagSize bytes (12 to 16).
func NewGCMWithSizes(b cipher.Block, nonceSize, tagSize int) (cipher.AEAD, error) {
	if b.BlockSize() != gcmBlockSize {
		return nil, fmt.Errorf("gcm: requires 128-bit block cipher: %w", ErrInvalidParameter)
	}
	if nonceSize < 1 {
		return nil, fmt.Errorf("gcm: nonce size %d: %w", nonceSize, ErrInvalidParameter)
	}
	if tagSize < gcmMinimumTagSize || tagSize > gcmTagSize {
		return nil, fmt.Errorf("gcm: tag size %d: %w", tagSize, ErrInvalidParameter)
	}
	return &gcmAEAD{b: b, nonceSize: nonceSize, tagSize: tagSize}, nil
}

func (g *gcmAEAD) NonceSize() int { return g.nonceSize }

func (g *gcmAEAD) Overhead() int { return g.tagSize }

func (g *gcmAEAD) Seal(dst, nonce, plaintext, additionalData []byte) []byte {
	if len(nonce) != g.nonceSize {
		panic("gcm: incorrect nonce length given to GCM")
	}
	if uint64(len(plaintext)) > gcmMaxPlaintext {
		panic("gcm: message too large for GCM")
	}
	ret, out := sliceForAppend(dst, len(plaintext)+g.tagSize)
	if inexactOverlap(out, plaintext) {
		panic("gcm: invalid buffer overlap")
	}

	s := newGCMState(g.b, g.tagSize)
	defer s.destroy()
	s.reset(nonce)
	s.updateAAD(additionalData)
	s.encrypt(out[:len(plaintext)], plaintext)
	copy(out[len(plaintext):], s.tag())
	return ret
}

func (g *gcmAEAD) Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error) {
	if len(nonce) != g.nonceSize {
		panic("gcm: incorrect nonce length given to GCM")
	}
	if len(ciphertext) < g.tagSize {
		return nil, ErrAuthenticationFailed
	}
	if uint64(len(ciphertext)) > gcmMaxPlaintext+uint64(g.tagSize) {
		return nil, ErrAuthenticationFailed
	}
	tag := ciphertext[len(ciphertext)-g.tagSize:]
	ciphertext = ciphertext[:len(ciphertext)-g.tagSize]

	s := newGCMState(g.b, g.tagSize)
	defer s.destroy()
	s.reset(nonce)
	s.updateAAD(additionalData)
	s.absorb(ciphertext)
	if subtle.ConstantTimeCompare(s.tag(), tag) != 1 {
		return nil, ErrAuthenticationFailed
	}

	ret, out := sliceForAppend(dst, len(ciphertext))
	if inexactOverlap(out, ciphertext) {
		panic("gcm: invalid buffer overlap")
	}
	s.rewind()
	s.xorKeyStream(out, ciphertext)
	return ret, nil
}

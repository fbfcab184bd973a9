package gmsm

import "fmt"

const sm2p256ElementLength = 32

var sm2p256P = newMontModulus("FFFFFFFEFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF00000000FFFFFFFFFFFFFFFF")

// SM2P256Element is an integer modulo p = 2^256 - 2^224 - 2^96 + 2^64 - 1.
//
// The zero value is a valid zero element. Values are held in the Montgomery
// domain and converted in Bytes and SetBytes; every operation runs in time
// independent of the values involved.
type SM2P256Element struct {
	x sm2p256Limbs
}

// One sets e = 1, and returns e.
func (e *SM2P256Element) One() *SM2P256Element {
	e.x = sm2p256P.one
	return e
}

// Set sets e = t, and returns e.
func (e *SM2P256Element) Set(t *SM2P256Element) *SM2P256Element {
	e.x = t.x
	return e
}

// Equal returns 1 if e == t, and zero otherwise.
func (e *SM2P256Element) Equal(t *SM2P256Element) int {
	return limbsEqual(&e.x, &t.x)
}

// IsZero returns 1 if e == 0, and zero otherwise.
func (e *SM2P256Element) IsZero() int {
	return limbsIsZero(&e.x)
}

// SetBytes sets e = v, where v is a big-endian 32-byte encoding, and returns e.
// If v is not 32 bytes or it encodes a value higher than p, SetBytes returns
// nil and an error, and e is unchanged.
func (e *SM2P256Element) SetBytes(v []byte) (*SM2P256Element, error) {
	var x sm2p256Limbs
	if !montFromBytes(&x, v, false, sm2p256P) {
		return nil, fmt.Errorf("sm2ec: invalid field element encoding: %w", ErrInvalidParameter)
	}
	e.x = x
	return e, nil
}

// SetReducedBytes sets e = v mod p for any 32-byte big-endian v.
func (e *SM2P256Element) SetReducedBytes(v []byte) (*SM2P256Element, error) {
	var x sm2p256Limbs
	if !montFromBytes(&x, v, true, sm2p256P) {
		return nil, fmt.Errorf("sm2ec: invalid field element length: %w", ErrInvalidParameter)
	}
	e.x = x
	return e, nil
}

// Bytes returns the 32-byte big-endian encoding of e.
func (e *SM2P256Element) Bytes() []byte {
	var out [sm2p256ElementLength]byte
	montToBytes(&out, &e.x, sm2p256P)
	return out[:]
}

// Add sets e = t1 + t2, and returns e.
func (e *SM2P256Element) Add(t1, t2 *SM2P256Element) *SM2P256Element {
	modAdd(&e.x, &t1.x, &t2.x, sm2p256P)
	return e
}

// Sub sets e = t1 - t2, and returns e.
func (e *SM2P256Element) Sub(t1, t2 *SM2P256Element) *SM2P256Element {
	modSub(&e.x, &t1.x, &t2.x, sm2p256P)
	return e
}

// Mul sets e = t1 * t2, and returns e.
func (e *SM2P256Element) Mul(t1, t2 *SM2P256Element) *SM2P256Element {
	montMul(&e.x, &t1.x, &t2.x, sm2p256P)
	return e
}

// Square sets e = t * t, and returns e.
func (e *SM2P256Element) Square(t *SM2P256Element) *SM2P256Element {
	montMul(&e.x, &t.x, &t.x, sm2p256P)
	return e
}

// Select sets e to a if cond == 1, and to b if cond == 0.
func (e *SM2P256Element) Select(a, b *SM2P256Element, cond int) *SM2P256Element {
	limbsSelect(&e.x, &a.x, &b.x, uint64(cond))
	return e
}

// Invert sets e = 1/x, and returns e. The exponentiation by p - 2 always
// runs in full; only the final zero check branches.
func (e *SM2P256Element) Invert(x *SM2P256Element) (*SM2P256Element, error) {
	var z sm2p256Limbs
	montExp(&z, &x.x, &sm2p256P.exp, sm2p256P)
	if x.IsZero() == 1 {
		return nil, fmt.Errorf("sm2ec: invert zero field element: %w", ErrInvalidOperand)
	}
	e.x = z
	return e, nil
}

// sm2p256Sqrt sets e to a square root of x. If x is not a square, sm2p256Sqrt
// returns false and e is unchanged. e and x can overlap.
func sm2p256Sqrt(e, x *SM2P256Element) (isSquare bool) {
	// p = 3 mod 4, so x^((p+1)/4) is a root candidate.
	var candidate SM2P256Element
	montExp(&candidate.x, &x.x, &sm2p256SqrtExp, sm2p256P)
	square := new(SM2P256Element).Square(&candidate)
	if square.Equal(x) != 1 {
		return false
	}
	e.Set(&candidate)
	return true
}

var sm2p256SqrtExp = sm2p256Limbs{
	0x4000000000000000, 0xffffffffc0000000, 0xffffffffffffffff, 0x3fffffffbfffffff,
}

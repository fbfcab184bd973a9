package gmsm

import "fmt"

var sm2p256N = newMontModulus("FFFFFFFEFFFFFFFFFFFFFFFFFFFFFFFF7203DF6B21C6052B53BBF40939D54123")

// SM2P256OrderElement is an integer modulo the order n of the SM2 base point.
//
// The zero value is a valid zero element.
type SM2P256OrderElement struct {
	x sm2p256Limbs
}

func (e *SM2P256OrderElement) One() *SM2P256OrderElement {
	e.x = sm2p256N.one
	return e
}

func (e *SM2P256OrderElement) Set(t *SM2P256OrderElement) *SM2P256OrderElement {
	e.x = t.x
	return e
}

func (e *SM2P256OrderElement) Equal(t *SM2P256OrderElement) int {
	return limbsEqual(&e.x, &t.x)
}

func (e *SM2P256OrderElement) IsZero() int {
	return limbsIsZero(&e.x)
}

// SetBytes sets e = v for a 32-byte big-endian v < n.
func (e *SM2P256OrderElement) SetBytes(v []byte) (*SM2P256OrderElement, error) {
	var x sm2p256Limbs
	if !montFromBytes(&x, v, false, sm2p256N) {
		return nil, fmt.Errorf("sm2ec: invalid scalar encoding: %w", ErrInvalidParameter)
	}
	e.x = x
	return e, nil
}

// SetReducedBytes sets e = v mod n for any 32-byte big-endian v. It is how a
// digest or an x-coordinate enters the scalar field.
func (e *SM2P256OrderElement) SetReducedBytes(v []byte) (*SM2P256OrderElement, error) {
	var x sm2p256Limbs
	if !montFromBytes(&x, v, true, sm2p256N) {
		return nil, fmt.Errorf("sm2ec: invalid scalar length: %w", ErrInvalidParameter)
	}
	e.x = x
	return e, nil
}

func (e *SM2P256OrderElement) Bytes() []byte {
	var out [sm2p256ElementLength]byte
	montToBytes(&out, &e.x, sm2p256N)
	return out[:]
}

func (e *SM2P256OrderElement) Add(t1, t2 *SM2P256OrderElement) *SM2P256OrderElement {
	modAdd(&e.x, &t1.x, &t2.x, sm2p256N)
	return e
}

func (e *SM2P256OrderElement) Sub(t1, t2 *SM2P256OrderElement) *SM2P256OrderElement {
	modSub(&e.x, &t1.x, &t2.x, sm2p256N)
	return e
}

func (e *SM2P256OrderElement) Mul(t1, t2 *SM2P256OrderElement) *SM2P256OrderElement {
	montMul(&e.x, &t1.x, &t2.x, sm2p256N)
	return e
}

func (e *SM2P256OrderElement) Square(t *SM2P256OrderElement) *SM2P256OrderElement {
	montMul(&e.x, &t.x, &t.x, sm2p256N)
	return e
}

func (e *SM2P256OrderElement) Select(a, b *SM2P256OrderElement, cond int) *SM2P256OrderElement {
	limbsSelect(&e.x, &a.x, &b.x, uint64(cond))
	return e
}

// Invert sets e = 1/x mod n by Fermat's little theorem.
func (e *SM2P256OrderElement) Invert(x *SM2P256OrderElement) (*SM2P256OrderElement, error) {
	var z sm2p256Limbs
	montExp(&z, &x.x, &sm2p256N.exp, sm2p256N)
	if x.IsZero() == 1 {
		return nil, fmt.Errorf("sm2ec: invert zero scalar: %w", ErrInvalidOperand)
	}
	e.x = z
	return e, nil
}

// Destroy zeroes e.
func (e *SM2P256OrderElement) Destroy() {
	e.x = sm2p256Limbs{}
}

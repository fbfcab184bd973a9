package gmsm

import (
	"crypto/subtle"
	"fmt"
	"sync"
)

// SM2P256Point is a point on the SM2 curve y² = x³ - 3x + b over GF(p),
// in projective coordinates (X:Y:Z) with x = X/Z and y = Y/Z.
// The zero value is NOT valid; use NewSM2P256Point.
type SM2P256Point struct {
	x, y, z SM2P256Element
}

// NewSM2P256Point returns the point at infinity.
func NewSM2P256Point() *SM2P256Point {
	p := new(SM2P256Point)
	p.y.One()
	return p
}

var (
	sm2p256GxBytes = []byte{0x32, 0xc4, 0xae, 0x2c, 0x1f, 0x19, 0x81, 0x19, 0x5f, 0x99, 0x04, 0x46, 0x6a, 0x39, 0xc9, 0x94, 0x8f, 0xe3, 0x0b, 0xbf, 0xf2, 0x66, 0x0b, 0xe1, 0x71, 0x5a, 0x45, 0x89, 0x33, 0x4c, 0x74, 0xc7}
	sm2p256GyBytes = []byte{0xbc, 0x37, 0x36, 0xa2, 0xf4, 0xf6, 0x77, 0x9c, 0x59, 0xbd, 0xce, 0xe3, 0x6b, 0x69, 0x21, 0x53, 0xd0, 0xa9, 0x87, 0x7c, 0xc6, 0x2a, 0x47, 0x40, 0x02, 0xdf, 0x32, 0xe5, 0x21, 0x39, 0xf0, 0xa0}
	sm2p256BBytes  = []byte{0x28, 0xe9, 0xfa, 0x9e, 0x9d, 0x9f, 0x5e, 0x34, 0x4d, 0x5a, 0x9e, 0x4b, 0xcf, 0x65, 0x09, 0xa7, 0xf3, 0x97, 0x89, 0xf5, 0x15, 0xab, 0x8f, 0x92, 0xdd, 0xbc, 0xbd, 0x41, 0x4d, 0x94, 0x0e, 0x93}
	sm2p256ABytes  = []byte{0xff, 0xff, 0xff, 0xfe, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xfc}
)

var sm2p256B = func() *SM2P256Element {
	b, err := new(SM2P256Element).SetBytes(sm2p256BBytes)
	if err != nil {
		panic("sm2ec: bad curve constant b")
	}
	return b
}()

// SetGenerator sets p to the canonical generator and returns p.
func (p *SM2P256Point) SetGenerator() *SM2P256Point {
	p.x.SetBytes(sm2p256GxBytes)
	p.y.SetBytes(sm2p256GyBytes)
	p.z.One()
	return p
}

// Set sets p = q and returns p.
func (p *SM2P256Point) Set(q *SM2P256Point) *SM2P256Point {
	*p = *q
	return p
}

// SetBytes sets p to the uncompressed (04‖X‖Y) or compressed (02/03‖X)
// point encoded in b. If the point is not on the curve, it returns nil and
// an error, and the receiver is unchanged.
func (p *SM2P256Point) SetBytes(b []byte) (*SM2P256Point, error) {
	switch {
	case len(b) == 1+2*sm2p256ElementLength && b[0] == 4:
		x, err := new(SM2P256Element).SetBytes(b[1 : 1+sm2p256ElementLength])
		if err != nil {
			return nil, fmt.Errorf("sm2ec: x coordinate: %w", ErrNotOnCurve)
		}
		y, err := new(SM2P256Element).SetBytes(b[1+sm2p256ElementLength:])
		if err != nil {
			return nil, fmt.Errorf("sm2ec: y coordinate: %w", ErrNotOnCurve)
		}
		if err := sm2p256CheckOnCurve(x, y); err != nil {
			return nil, err
		}
		p.x.Set(x)
		p.y.Set(y)
		p.z.One()
		return p, nil
	case len(b) == 1+sm2p256ElementLength && (b[0] == 2 || b[0] == 3):
		x, err := new(SM2P256Element).SetBytes(b[1:])
		if err != nil {
			return nil, fmt.Errorf("sm2ec: x coordinate: %w", ErrNotOnCurve)
		}
		y := sm2p256Polynomial(new(SM2P256Element), x)
		if !sm2p256Sqrt(y, y) {
			return nil, fmt.Errorf("sm2ec: compressed point has no root: %w", ErrNotOnCurve)
		}
		otherRoot := new(SM2P256Element).Sub(new(SM2P256Element), y)
		cond := y.Bytes()[sm2p256ElementLength-1]&1 ^ b[0]&1
		y.Select(otherRoot, y, int(cond))
		p.x.Set(x)
		p.y.Set(y)
		p.z.One()
		return p, nil
	default:
		return nil, fmt.Errorf("sm2ec: invalid point encoding: %w", ErrInvalidParameter)
	}
}

// sm2p256Polynomial sets y2 to x³ - 3x + b, and returns y2.
func sm2p256Polynomial(y2, x *SM2P256Element) *SM2P256Element {
	y2.Square(x)
	y2.Mul(y2, x)
	threeX := new(SM2P256Element).Add(x, x)
	threeX.Add(threeX, x)
	y2.Sub(y2, threeX)
	return y2.Add(y2, sm2p256B)
}

func sm2p256CheckOnCurve(x, y *SM2P256Element) error {
	rhs := sm2p256Polynomial(new(SM2P256Element), x)
	lhs := new(SM2P256Element).Square(y)
	if rhs.Equal(lhs) != 1 {
		return ErrNotOnCurve
	}
	return nil
}

// IsOnCurve reports whether the 65-byte uncompressed encoding b is a point of
// the curve. It never accepts the point at infinity.
func IsOnCurve(b []byte) error {
	if len(b) != 1+2*sm2p256ElementLength || b[0] != 4 {
		return fmt.Errorf("sm2ec: want 65-byte uncompressed point: %w", ErrInvalidParameter)
	}
	_, err := NewSM2P256Point().SetBytes(b)
	return err
}

func (p *SM2P256Point) affine() (x, y *SM2P256Element, err error) {
	zinv, err := new(SM2P256Element).Invert(&p.z)
	if err != nil {
		return nil, nil, ErrPointAtInfinity
	}
	x = new(SM2P256Element).Mul(&p.x, zinv)
	y = new(SM2P256Element).Mul(&p.y, zinv)
	return x, y, nil
}

// Bytes returns the uncompressed encoding 04‖X‖Y of p.
func (p *SM2P256Point) Bytes() ([]byte, error) {
	x, y, err := p.affine()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, 1+2*sm2p256ElementLength)
	out = append(out, 4)
	out = append(out, x.Bytes()...)
	return append(out, y.Bytes()...), nil
}

// BytesX returns the 32-byte affine x-coordinate of p.
func (p *SM2P256Point) BytesX() ([]byte, error) {
	x, _, err := p.affine()
	if err != nil {
		return nil, err
	}
	return x.Bytes(), nil
}

// BytesCompressed returns the 33-byte compressed encoding of p.
func (p *SM2P256Point) BytesCompressed() ([]byte, error) {
	x, y, err := p.affine()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, 1+sm2p256ElementLength)
	out = append(out, 2|y.Bytes()[sm2p256ElementLength-1]&1)
	return append(out, x.Bytes()...), nil
}

// IsInfinity returns 1 if p is the point at infinity, and zero otherwise.
func (p *SM2P256Point) IsInfinity() int {
	return p.z.IsZero()
}

// Negate sets q = -p, and returns q.
func (q *SM2P256Point) Negate(p *SM2P256Point) *SM2P256Point {
	q.x.Set(&p.x)
	q.y.Sub(new(SM2P256Element), &p.y)
	q.z.Set(&p.z)
	return q
}

// Add sets q = p1 + p2, and returns q. The points may overlap.
func (q *SM2P256Point) Add(p1, p2 *SM2P256Point) *SM2P256Point {
	// Complete addition formula for a = -3 from "Complete addition formulas for
	// prime order elliptic curves" (https://eprint.iacr.org/2015/1060), §A.2.
	var t0, t1, t2, t3, t4, x3, y3, z3 SM2P256Element
	t0.Mul(&p1.x, &p2.x)  // t0 := X1 * X2
	t1.Mul(&p1.y, &p2.y)  // t1 := Y1 * Y2
	t2.Mul(&p1.z, &p2.z)  // t2 := Z1 * Z2
	t3.Add(&p1.x, &p1.y)  // t3 := X1 + Y1
	t4.Add(&p2.x, &p2.y)  // t4 := X2 + Y2
	t3.Mul(&t3, &t4)      // t3 := t3 * t4
	t4.Add(&t0, &t1)      // t4 := t0 + t1
	t3.Sub(&t3, &t4)      // t3 := t3 - t4
	t4.Add(&p1.y, &p1.z)  // t4 := Y1 + Z1
	x3.Add(&p2.y, &p2.z)  // X3 := Y2 + Z2
	t4.Mul(&t4, &x3)      // t4 := t4 * X3
	x3.Add(&t1, &t2)      // X3 := t1 + t2
	t4.Sub(&t4, &x3)      // t4 := t4 - X3
	x3.Add(&p1.x, &p1.z)  // X3 := X1 + Z1
	y3.Add(&p2.x, &p2.z)  // Y3 := X2 + Z2
	x3.Mul(&x3, &y3)      // X3 := X3 * Y3
	y3.Add(&t0, &t2)      // Y3 := t0 + t2
	y3.Sub(&x3, &y3)      // Y3 := X3 - Y3
	z3.Mul(sm2p256B, &t2) // Z3 := b * t2
	x3.Sub(&y3, &z3)      // X3 := Y3 - Z3
	z3.Add(&x3, &x3)      // Z3 := X3 + X3
	x3.Add(&x3, &z3)      // X3 := X3 + Z3
	z3.Sub(&t1, &x3)      // Z3 := t1 - X3
	x3.Add(&t1, &x3)      // X3 := t1 + X3
	y3.Mul(sm2p256B, &y3) // Y3 := b * Y3
	t1.Add(&t2, &t2)      // t1 := t2 + t2
	t2.Add(&t1, &t2)      // t2 := t1 + t2
	y3.Sub(&y3, &t2)      // Y3 := Y3 - t2
	y3.Sub(&y3, &t0)      // Y3 := Y3 - t0
	t1.Add(&y3, &y3)      // t1 := Y3 + Y3
	y3.Add(&t1, &y3)      // Y3 := t1 + Y3
	t1.Add(&t0, &t0)      // t1 := t0 + t0
	t0.Add(&t1, &t0)      // t0 := t1 + t0
	t0.Sub(&t0, &t2)      // t0 := t0 - t2
	t1.Mul(&t4, &y3)      // t1 := t4 * Y3
	t2.Mul(&t0, &y3)      // t2 := t0 * Y3
	y3.Mul(&x3, &z3)      // Y3 := X3 * Z3
	y3.Add(&y3, &t2)      // Y3 := Y3 + t2
	x3.Mul(&t3, &x3)      // X3 := t3 * X3
	x3.Sub(&x3, &t1)      // X3 := X3 - t1
	z3.Mul(&t4, &z3)      // Z3 := t4 * Z3
	t1.Mul(&t3, &t0)      // t1 := t3 * t0
	z3.Add(&z3, &t1)      // Z3 := Z3 + t1

	q.x, q.y, q.z = x3, y3, z3
	return q
}

// Double sets q = p + p, and returns q. The points may overlap.
func (q *SM2P256Point) Double(p *SM2P256Point) *SM2P256Point {
	var t0, t1, t2, t3, x3, y3, z3 SM2P256Element
	t0.Square(&p.x)       // t0 := X ^ 2
	t1.Square(&p.y)       // t1 := Y ^ 2
	t2.Square(&p.z)       // t2 := Z ^ 2
	t3.Mul(&p.x, &p.y)    // t3 := X * Y
	t3.Add(&t3, &t3)      // t3 := t3 + t3
	z3.Mul(&p.x, &p.z)    // Z3 := X * Z
	z3.Add(&z3, &z3)      // Z3 := Z3 + Z3
	y3.Mul(sm2p256B, &t2) // Y3 := b * t2
	y3.Sub(&y3, &z3)      // Y3 := Y3 - Z3
	x3.Add(&y3, &y3)      // X3 := Y3 + Y3
	y3.Add(&x3, &y3)      // Y3 := X3 + Y3
	x3.Sub(&t1, &y3)      // X3 := t1 - Y3
	y3.Add(&t1, &y3)      // Y3 := t1 + Y3
	y3.Mul(&x3, &y3)      // Y3 := X3 * Y3
	x3.Mul(&x3, &t3)      // X3 := X3 * t3
	t3.Add(&t2, &t2)      // t3 := t2 + t2
	t2.Add(&t2, &t3)      // t2 := t2 + t3
	z3.Mul(sm2p256B, &z3) // Z3 := b * Z3
	z3.Sub(&z3, &t2)      // Z3 := Z3 - t2
	z3.Sub(&z3, &t0)      // Z3 := Z3 - t0
	t3.Add(&z3, &z3)      // t3 := Z3 + Z3
	z3.Add(&z3, &t3)      // Z3 := Z3 + t3
	t3.Add(&t0, &t0)      // t3 := t0 + t0
	t0.Add(&t3, &t0)      // t0 := t3 + t0
	t0.Sub(&t0, &t2)      // t0 := t0 - t2
	t0.Mul(&t0, &z3)      // t0 := t0 * Z3
	y3.Add(&y3, &t0)      // Y3 := Y3 + t0
	t0.Mul(&p.y, &p.z)    // t0 := Y * Z
	t0.Add(&t0, &t0)      // t0 := t0 + t0
	z3.Mul(&t0, &z3)      // Z3 := t0 * Z3
	x3.Sub(&x3, &z3)      // X3 := X3 - Z3
	z3.Mul(&t0, &t1)      // Z3 := t0 * t1
	z3.Add(&z3, &z3)      // Z3 := Z3 + Z3
	z3.Add(&z3, &z3)      // Z3 := Z3 + Z3

	q.x, q.y, q.z = x3, y3, z3
	return q
}

// Select sets q to p1 if cond == 1, and to p2 if cond == 0.
func (q *SM2P256Point) Select(p1, p2 *SM2P256Point, cond int) *SM2P256Point {
	q.x.Select(&p1.x, &p2.x, cond)
	q.y.Select(&p1.y, &p2.y, cond)
	q.z.Select(&p1.z, &p2.z, cond)
	return q
}

// Equal returns 1 if p and q are the same point, and zero otherwise.
func (p *SM2P256Point) Equal(q *SM2P256Point) int {
	// X1·Z2 == X2·Z1 and Y1·Z2 == Y2·Z1; two identities compare equal too.
	var a, b, c, d SM2P256Element
	a.Mul(&p.x, &q.z)
	b.Mul(&q.x, &p.z)
	c.Mul(&p.y, &q.z)
	d.Mul(&q.y, &p.z)
	return a.Equal(&b) & c.Equal(&d)
}

// sm2p256Table holds [1]P through [15]P; [0]P is the implicit identity.
type sm2p256Table [15]SM2P256Point

// Select copies the n-th multiple of the table base point into p, scanning
// every entry so the memory access pattern does not depend on n.
func (table *sm2p256Table) Select(p *SM2P256Point, n uint8) {
	if n >= 16 {
		panic("sm2ec: internal error: sm2p256Table called with out-of-bounds value")
	}
	p.Set(NewSM2P256Point())
	for i := range table {
		cond := subtle.ConstantTimeByteEq(uint8(i+1), n)
		p.Select(&table[i], p, cond)
	}
}

func checkScalarLength(scalar []byte) error {
	if len(scalar) != sm2p256ElementLength {
		return fmt.Errorf("sm2ec: scalar must be %d bytes: %w", sm2p256ElementLength, ErrInvalidParameter)
	}
	return nil
}

// ScalarMult sets p = scalar * q, and returns p. The scalar is a 32-byte
// big-endian integer; it is not reduced and need not be below n.
func (p *SM2P256Point) ScalarMult(q *SM2P256Point, scalar []byte) (*SM2P256Point, error) {
	if err := checkScalarLength(scalar); err != nil {
		return nil, err
	}
	var table sm2p256Table
	table[0].Set(q)
	for i := 1; i < 15; i += 2 {
		table[i].Double(&table[i/2])
		table[i+1].Add(&table[i], q)
	}

	t := NewSM2P256Point()
	acc := NewSM2P256Point()
	for i, b := range scalar {
		if i != 0 {
			acc.Double(acc)
			acc.Double(acc)
			acc.Double(acc)
			acc.Double(acc)
		}
		table.Select(t, b>>4)
		acc.Add(acc, t)

		acc.Double(acc)
		acc.Double(acc)
		acc.Double(acc)
		acc.Double(acc)
		table.Select(t, b&0b1111)
		acc.Add(acc, t)
	}
	return p.Set(acc), nil
}

var (
	sm2p256GeneratorTable     *[sm2p256ElementLength * 2]sm2p256Table
	sm2p256GeneratorTableOnce sync.Once
)

// generatorTable returns 64 tables; table i holds multiples of 16^i·G.
func generatorTable() *[sm2p256ElementLength * 2]sm2p256Table {
	sm2p256GeneratorTableOnce.Do(func() {
		tables := new([sm2p256ElementLength * 2]sm2p256Table)
		base := NewSM2P256Point().SetGenerator()
		for i := range tables {
			tables[i][0].Set(base)
			for j := 1; j < 15; j++ {
				tables[i][j].Add(&tables[i][j-1], base)
			}
			base.Double(base)
			base.Double(base)
			base.Double(base)
			base.Double(base)
		}
		sm2p256GeneratorTable = tables
	})
	return sm2p256GeneratorTable
}

// ScalarBaseMult sets p = scalar * G, and returns p.
func (p *SM2P256Point) ScalarBaseMult(scalar []byte) (*SM2P256Point, error) {
	if err := checkScalarLength(scalar); err != nil {
		return nil, err
	}
	tables := generatorTable()

	t := NewSM2P256Point()
	acc := NewSM2P256Point()
	idx := len(tables) - 1
	for _, b := range scalar {
		tables[idx].Select(t, b>>4)
		acc.Add(acc, t)
		idx--
		tables[idx].Select(t, b&0b1111)
		acc.Add(acc, t)
		idx--
	}
	return p.Set(acc), nil
}

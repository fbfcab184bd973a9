package gmsm

import (
	"crypto/rand"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	bigP, _ = new(big.Int).SetString("FFFFFFFEFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF00000000FFFFFFFFFFFFFFFF", 16)
	bigN, _ = new(big.Int).SetString("FFFFFFFEFFFFFFFFFFFFFFFFFFFFFFFF7203DF6B21C6052B53BBF40939D54123", 16)
)

func randBelow(t *testing.T, m *big.Int) *big.Int {
	v, err := rand.Int(rand.Reader, m)
	require.NoError(t, err)
	return v
}

func bytes32(v *big.Int) []byte {
	return v.FillBytes(make([]byte, 32))
}

func TestMontgomeryConstants(t *testing.T) {
	// -m⁻¹ mod 2^64 is 1 for p, whose low word is all ones.
	require.Equal(t, uint64(1), sm2p256P.k0)
	require.Equal(t, uint64(0), sm2p256P.m[0]*sm2p256P.k0+1)
	require.Equal(t, uint64(0), sm2p256N.m[0]*sm2p256N.k0+1)
}

func TestFieldArithmeticMatchesBig(t *testing.T) {
	for i := 0; i < 64; i++ {
		a, b := randBelow(t, bigP), randBelow(t, bigP)
		x, err := new(SM2P256Element).SetBytes(bytes32(a))
		require.NoError(t, err)
		y, err := new(SM2P256Element).SetBytes(bytes32(b))
		require.NoError(t, err)

		sum := new(big.Int).Add(a, b)
		require.Equal(t, bytes32(sum.Mod(sum, bigP)), new(SM2P256Element).Add(x, y).Bytes())
		diff := new(big.Int).Sub(a, b)
		require.Equal(t, bytes32(diff.Mod(diff, bigP)), new(SM2P256Element).Sub(x, y).Bytes())
		prod := new(big.Int).Mul(a, b)
		require.Equal(t, bytes32(prod.Mod(prod, bigP)), new(SM2P256Element).Mul(x, y).Bytes())
		sq := new(big.Int).Mul(a, a)
		require.Equal(t, bytes32(sq.Mod(sq, bigP)), new(SM2P256Element).Square(x).Bytes())

		if a.Sign() != 0 {
			inv, err := new(SM2P256Element).Invert(x)
			require.NoError(t, err)
			require.Equal(t, bytes32(new(big.Int).ModInverse(a, bigP)), inv.Bytes())
			require.Equal(t, 1, new(SM2P256Element).Mul(x, inv).Equal(new(SM2P256Element).One()))
		}
	}
}

func TestScalarArithmeticMatchesBig(t *testing.T) {
	for i := 0; i < 64; i++ {
		a, b := randBelow(t, bigN), randBelow(t, bigN)
		x, err := new(SM2P256OrderElement).SetBytes(bytes32(a))
		require.NoError(t, err)
		y, err := new(SM2P256OrderElement).SetBytes(bytes32(b))
		require.NoError(t, err)

		sum := new(big.Int).Add(a, b)
		require.Equal(t, bytes32(sum.Mod(sum, bigN)), new(SM2P256OrderElement).Add(x, y).Bytes())
		diff := new(big.Int).Sub(a, b)
		require.Equal(t, bytes32(diff.Mod(diff, bigN)), new(SM2P256OrderElement).Sub(x, y).Bytes())
		prod := new(big.Int).Mul(a, b)
		require.Equal(t, bytes32(prod.Mod(prod, bigN)), new(SM2P256OrderElement).Mul(x, y).Bytes())

		if a.Sign() != 0 {
			inv, err := new(SM2P256OrderElement).Invert(x)
			require.NoError(t, err)
			require.Equal(t, bytes32(new(big.Int).ModInverse(a, bigN)), inv.Bytes())
		}
	}
}

func TestEdgeValues(t *testing.T) {
	pm1 := bytes32(new(big.Int).Sub(bigP, big.NewInt(1)))
	x, err := new(SM2P256Element).SetBytes(pm1)
	require.NoError(t, err)
	one := new(SM2P256Element).One()
	require.Equal(t, 1, new(SM2P256Element).Add(x, one).IsZero())
	require.Equal(t, 1, new(SM2P256Element).Mul(x, x).Equal(one))
	require.Equal(t, pm1, new(SM2P256Element).Sub(new(SM2P256Element), one).Bytes())

	_, err = new(SM2P256Element).SetBytes(bytes32(bigP))
	require.ErrorIs(t, err, ErrInvalidParameter)
	_, err = new(SM2P256OrderElement).SetBytes(bytes32(bigN))
	require.ErrorIs(t, err, ErrInvalidParameter)

	r, err := new(SM2P256OrderElement).SetReducedBytes(bytes32(new(big.Int).Add(bigN, big.NewInt(5))))
	require.NoError(t, err)
	require.Equal(t, bytes32(big.NewInt(5)), r.Bytes())

	all := make([]byte, 32)
	for i := range all {
		all[i] = 0xff
	}
	f, err := new(SM2P256Element).SetReducedBytes(all)
	require.NoError(t, err)
	want := new(big.Int).Mod(new(big.Int).SetBytes(all), bigP)
	require.Equal(t, bytes32(want), f.Bytes())
}

func TestInvertZero(t *testing.T) {
	_, err := new(SM2P256Element).Invert(new(SM2P256Element))
	require.True(t, errors.Is(err, ErrInvalidOperand))
	_, err = new(SM2P256OrderElement).Invert(new(SM2P256OrderElement))
	require.True(t, errors.Is(err, ErrInvalidOperand))
}

func TestSelect(t *testing.T) {
	a, _ := new(SM2P256Element).SetBytes(bytes32(big.NewInt(7)))
	b, _ := new(SM2P256Element).SetBytes(bytes32(big.NewInt(9)))
	require.Equal(t, 1, new(SM2P256Element).Select(a, b, 1).Equal(a))
	require.Equal(t, 1, new(SM2P256Element).Select(a, b, 0).Equal(b))
}

func TestGeneratorOnCurve(t *testing.T) {
	g := NewSM2P256Point().SetGenerator()
	enc, err := g.Bytes()
	require.NoError(t, err)
	require.NoError(t, IsOnCurve(enc))
	require.Equal(t, sm2p256GxBytes, enc[1:33])
	require.Equal(t, sm2p256GyBytes, enc[33:])

	enc[64] ^= 1
	require.ErrorIs(t, IsOnCurve(enc), ErrNotOnCurve)
}

func TestPointGroupLaw(t *testing.T) {
	g := NewSM2P256Point().SetGenerator()
	inf := NewSM2P256Point()

	two := NewSM2P256Point().Double(g)
	require.Equal(t, 1, NewSM2P256Point().Add(g, g).Equal(two))
	require.Equal(t, 1, NewSM2P256Point().Add(g, inf).Equal(g))
	require.Equal(t, 1, NewSM2P256Point().Add(inf, inf).IsInfinity())

	neg := NewSM2P256Point().Negate(g)
	require.Equal(t, 1, NewSM2P256Point().Add(g, neg).IsInfinity())

	three := NewSM2P256Point().Add(two, g)
	k3, err := NewSM2P256Point().ScalarBaseMult(bytes32(big.NewInt(3)))
	require.NoError(t, err)
	require.Equal(t, 1, k3.Equal(three))

	k3g, err := NewSM2P256Point().ScalarMult(g, bytes32(big.NewInt(3)))
	require.NoError(t, err)
	require.Equal(t, 1, k3g.Equal(three))
}

func TestScalarMultOrder(t *testing.T) {
	p, err := NewSM2P256Point().ScalarBaseMult(bytes32(bigN))
	require.NoError(t, err)
	require.Equal(t, 1, p.IsInfinity())
	_, err = p.BytesX()
	require.ErrorIs(t, err, ErrPointAtInfinity)
	_, err = p.Bytes()
	require.ErrorIs(t, err, ErrPointAtInfinity)

	zero, err := NewSM2P256Point().ScalarMult(NewSM2P256Point().SetGenerator(), make([]byte, 32))
	require.NoError(t, err)
	require.Equal(t, 1, zero.IsInfinity())

	_, err = NewSM2P256Point().ScalarBaseMult(make([]byte, 31))
	require.ErrorIs(t, err, ErrInvalidParameter)
}

func TestScalarMultMatchesBaseMult(t *testing.T) {
	g := NewSM2P256Point().SetGenerator()
	for i := 0; i < 8; i++ {
		k := bytes32(randBelow(t, bigN))
		a, err := NewSM2P256Point().ScalarBaseMult(k)
		require.NoError(t, err)
		b, err := NewSM2P256Point().ScalarMult(g, k)
		require.NoError(t, err)
		require.Equal(t, 1, a.Equal(b))
	}
}

func TestCompressedRoundTrip(t *testing.T) {
	p, err := NewSM2P256Point().ScalarBaseMult(bytes32(big.NewInt(12345)))
	require.NoError(t, err)
	c, err := p.BytesCompressed()
	require.NoError(t, err)
	q, err := NewSM2P256Point().SetBytes(c)
	require.NoError(t, err)
	require.Equal(t, 1, q.Equal(p))
}

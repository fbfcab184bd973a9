package gmsm_test

import (
	"crypto/cipher"
	"testing"

	emsm4 "github.com/emmansun/gmsm/sm4"
	"github.com/stretchr/testify/require"

	"github.com/opentoys/smcrypto/crypto/gmsm"
)

func TestGCMEmptyTagIsEncryptedJ0(t *testing.T) {
	block, err := gmsm.NewCipher(testKey)
	require.NoError(t, err)
	aead, err := gmsm.NewGCM(block)
	require.NoError(t, err)

	nonce := make([]byte, 12)
	tag := aead.Seal(nil, nonce, nil, nil)
	require.Len(t, tag, 16)

	j0 := make([]byte, 16)
	j0[15] = 1
	want := make([]byte, 16)
	block.Encrypt(want, j0)
	require.Equal(t, want, tag)

	out, err := aead.Open(nil, nonce, tag, nil)
	require.NoError(t, err)
	require.Empty(t, out)

	tag[0] ^= 0x01
	_, err = aead.Open(nil, nonce, tag, nil)
	require.ErrorIs(t, err, gmsm.ErrAuthenticationFailed)
}

func TestGCMMatchesStdlib(t *testing.T) {
	ours, err := gmsm.NewCipher(testKey)
	require.NoError(t, err)
	ref, err := emsm4.NewCipher(testKey)
	require.NoError(t, err)

	for _, nonceSize := range []int{1, 8, 12, 16, 60} {
		for _, tagSize := range []int{12, 13, 16} {
			a, err := gmsm.NewGCMWithSizes(ours, nonceSize, tagSize)
			require.NoError(t, err)
			var b cipher.AEAD
			switch {
			case nonceSize == 12:
				b, err = cipher.NewGCMWithTagSize(ref, tagSize)
			case tagSize == 16:
				b, err = cipher.NewGCMWithNonceSize(ref, nonceSize)
			default:
				continue
			}
			require.NoError(t, err)

			nonce := sequence(nonceSize)
			for _, n := range []int{0, 1, 16, 31, 64, 200} {
				msg := sequence(n)
				aad := sequence(n / 3)
				got := a.Seal(nil, nonce, msg, aad)
				require.Equal(t, b.Seal(nil, nonce, msg, aad), got, "nonce %d tag %d len %d", nonceSize, tagSize, n)
				require.Len(t, got, n+tagSize)

				pt, err := a.Open(nil, nonce, got, aad)
				require.NoError(t, err)
				require.Equal(t, msg, append([]byte{}, pt...))
			}
		}
	}
}

func TestGCMTamper(t *testing.T) {
	block, err := gmsm.NewCipher(testKey)
	require.NoError(t, err)
	aead, err := gmsm.NewGCM(block)
	require.NoError(t, err)
	nonce := sequence(12)
	aad := []byte("header")
	sealed := aead.Seal(nil, nonce, []byte("attack at dawn"), aad)

	flip := func(b []byte, i int) []byte {
		c := append([]byte{}, b...)
		c[i] ^= 0x80
		return c
	}
	for i := range sealed {
		_, err = aead.Open(nil, nonce, flip(sealed, i), aad)
		require.ErrorIs(t, err, gmsm.ErrAuthenticationFailed, "byte %d", i)
	}
	_, err = aead.Open(nil, flip(nonce, 3), sealed, aad)
	require.ErrorIs(t, err, gmsm.ErrAuthenticationFailed)
	_, err = aead.Open(nil, nonce, sealed, []byte("Header"))
	require.ErrorIs(t, err, gmsm.ErrAuthenticationFailed)
	_, err = aead.Open(nil, nonce, sealed[:11], aad)
	require.ErrorIs(t, err, gmsm.ErrAuthenticationFailed)
}

func TestGCMSizes(t *testing.T) {
	block, err := gmsm.NewCipher(testKey)
	require.NoError(t, err)
	for _, c := range []struct{ nonce, tag int }{{0, 16}, {12, 11}, {12, 17}, {12, 0}} {
		_, err := gmsm.NewGCMWithSizes(block, c.nonce, c.tag)
		require.ErrorIs(t, err, gmsm.ErrInvalidParameter, "%+v", c)
	}
	aead, err := gmsm.NewGCMWithSizes(block, 7, 12)
	require.NoError(t, err)
	require.Equal(t, 7, aead.NonceSize())
	require.Equal(t, 12, aead.Overhead())
	require.Panics(t, func() { aead.Seal(nil, make([]byte, 12), nil, nil) })
}

func TestGCMCrypterMatchesAEAD(t *testing.T) {
	block, err := gmsm.NewCipher(testKey)
	require.NoError(t, err)
	nonce := sequence(20)
	aead, err := gmsm.NewGCMWithSizes(block, len(nonce), 14)
	require.NoError(t, err)
	msg := sequence(77)
	aad := []byte("associated")
	want := aead.Seal(nil, nonce, msg, aad)

	opts := []gmsm.Sm4Option{gmsm.WithSM4IV(nonce), gmsm.WithSM4AAD(aad), gmsm.WithSM4TagSize(14)}
	got, err := feed(newCrypter(t, "SM4/GCM/NoPadding", gmsm.DirectionEncrypt, opts...), msg, 9)
	require.NoError(t, err)
	require.Equal(t, want, got)

	dec := newCrypter(t, "SM4/GCM/NoPadding", gmsm.DirectionDecrypt, opts...)
	bad := append([]byte{}, got...)
	bad[len(bad)-1] ^= 1
	pt, err := feed(dec, bad, 9)
	require.ErrorIs(t, err, gmsm.ErrAuthenticationFailed)
	require.Nil(t, pt)

	// A failed tag check resets the session with its configured additional data.
	pt, err = feed(dec, got, 9)
	require.NoError(t, err)
	require.Equal(t, msg, pt)
}

func TestGCMConfiguredAADSurvivesFinal(t *testing.T) {
	iv := make([]byte, 12)
	opts := []gmsm.Sm4Option{gmsm.WithSM4IV(iv), gmsm.WithSM4AAD([]byte("hdr"))}
	s, err := gmsm.NewSM4Transformation("SM4/GCM/NoPadding", testKey, opts...)
	require.NoError(t, err)
	sealed, err := s.Encrypt([]byte("payload"))
	require.NoError(t, err)

	dec, err := s.NewCrypter(gmsm.DirectionDecrypt)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		pt, err := dec.Final(sealed)
		require.NoError(t, err, "message %d", i)
		require.Equal(t, "payload", string(pt))
	}

	// Per-message data is added on top of the configured header.
	enc, err := s.NewCrypter(gmsm.DirectionEncrypt)
	require.NoError(t, err)
	require.NoError(t, enc.UpdateAAD([]byte("extra")))
	withExtra, err := enc.Final([]byte("payload"))
	require.NoError(t, err)
	_, err = dec.Final(withExtra)
	require.ErrorIs(t, err, gmsm.ErrAuthenticationFailed)
	require.NoError(t, dec.UpdateAAD([]byte("extra")))
	pt, err := dec.Final(withExtra)
	require.NoError(t, err)
	require.Equal(t, "payload", string(pt))

	// The next message under a fresh IV carries the header again.
	next := sequence(12)
	require.NoError(t, enc.Reset(next))
	resealed, err := enc.Final([]byte("payload"))
	require.NoError(t, err)
	block, err := gmsm.NewCipher(testKey)
	require.NoError(t, err)
	aead, err := gmsm.NewGCM(block)
	require.NoError(t, err)
	pt, err = aead.Open(nil, next, resealed, []byte("hdr"))
	require.NoError(t, err)
	require.Equal(t, "payload", string(pt))
}

func TestGCMEncrypterRefusesIVReuse(t *testing.T) {
	iv := sequence(12)
	c := newCrypter(t, "SM4/GCM/NoPadding", gmsm.DirectionEncrypt, gmsm.WithSM4IV(iv))
	first, err := c.Final([]byte("one"))
	require.NoError(t, err)

	_, err = c.Update([]byte("two"))
	require.ErrorIs(t, err, gmsm.ErrInvalidParameter)
	_, err = c.Final(nil)
	require.ErrorIs(t, err, gmsm.ErrInvalidParameter)
	require.ErrorIs(t, c.Reset(iv), gmsm.ErrInvalidParameter)

	next := sequence(13)[1:]
	require.NoError(t, c.Reset(next))
	second, err := c.Final([]byte("one"))
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	// Every earlier IV stays spent, not just the last one.
	require.ErrorIs(t, c.Reset(iv), gmsm.ErrInvalidParameter)
	require.ErrorIs(t, c.Reset(next), gmsm.ErrInvalidParameter)
	require.NoError(t, c.Reset(sequence(14)[2:]))

	// Decrypters may repeat an IV.
	d := newCrypter(t, "SM4/GCM/NoPadding", gmsm.DirectionDecrypt, gmsm.WithSM4IV(iv))
	for i := 0; i < 2; i++ {
		pt, err := d.Final(first)
		require.NoError(t, err)
		require.Equal(t, "one", string(pt))
	}
}

func TestGCMFacadeScenario(t *testing.T) {
	s, err := gmsm.NewSM4Transformation("SM4/GCM/NoPadding", sm4StandardKey, gmsm.WithSM4IV(make([]byte, 12)))
	require.NoError(t, err)
	tag, err := s.Encrypt(nil)
	require.NoError(t, err)
	require.Len(t, tag, 16)

	pt, err := s.Decrypt(tag)
	require.NoError(t, err)
	require.Empty(t, pt)

	tag[15] ^= 0x01
	_, err = s.Decrypt(tag)
	require.ErrorIs(t, err, gmsm.ErrAuthenticationFailed)
}

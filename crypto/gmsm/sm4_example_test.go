package gmsm_test

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"testing"

	emsm4 "github.com/emmansun/gmsm/sm4"
	"github.com/stretchr/testify/require"
	tjsm4 "github.com/tjfoc/gmsm/sm4"

	"github.com/opentoys/smcrypto/crypto/gmsm"
)

func mustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

var sm4StandardKey = mustHex("0123456789abcdeffedcba9876543210")

func TestSM4StandardVector(t *testing.T) {
	block, err := gmsm.NewCipher(sm4StandardKey)
	require.NoError(t, err)
	require.Equal(t, gmsm.SM4_BlockSize, block.BlockSize())

	dst := make([]byte, 16)
	block.Encrypt(dst, sm4StandardKey)
	require.Equal(t, "681edf34d206965e86b3e94f536e4246", hex.EncodeToString(dst))

	block.Decrypt(dst, dst)
	require.Equal(t, sm4StandardKey, dst)
}

func TestSM4MillionRounds(t *testing.T) {
	if testing.Short() {
		t.Skip("slow")
	}
	block, err := gmsm.NewCipher(sm4StandardKey)
	require.NoError(t, err)
	buf := append([]byte(nil), sm4StandardKey...)
	for i := 0; i < 1000000; i++ {
		block.Encrypt(buf, buf)
	}
	require.Equal(t, "595298c7c6fd271f0402f804c33d3f66", hex.EncodeToString(buf))
}

func TestSM4KeyLength(t *testing.T) {
	for _, n := range []int{0, 15, 17, 24, 32} {
		_, err := gmsm.NewCipher(make([]byte, n))
		require.ErrorIs(t, err, gmsm.ErrInvalidKey, "len %d", n)
	}
}

func TestSM4MatchesOtherImplementations(t *testing.T) {
	key := []byte("1234567890abcdef")
	ours, err := gmsm.NewCipher(key)
	require.NoError(t, err)
	em, err := emsm4.NewCipher(key)
	require.NoError(t, err)
	tj, err := tjsm4.NewCipher(key)
	require.NoError(t, err)

	src := make([]byte, 16)
	a, b, c := make([]byte, 16), make([]byte, 16), make([]byte, 16)
	for i := 0; i < 32; i++ {
		ours.Encrypt(a, src)
		em.Encrypt(b, src)
		tj.Encrypt(c, src)
		require.Equal(t, b, a)
		require.Equal(t, c, a)

		ours.Decrypt(a, b)
		require.Equal(t, src, a)
		copy(src, b)
	}
}

func TestSM4DestroyZeroesSchedule(t *testing.T) {
	block, err := gmsm.NewCipher(sm4StandardKey)
	require.NoError(t, err)
	d, ok := block.(interface{ Destroy() })
	require.True(t, ok)
	d.Destroy()

	zero, err := gmsm.NewCipher(sm4StandardKey)
	require.NoError(t, err)
	x, y := make([]byte, 16), make([]byte, 16)
	block.Encrypt(x, sm4StandardKey)
	zero.Encrypt(y, sm4StandardKey)
	require.NotEqual(t, y, x)
}

func ExampleNewCipher() {
	key, _ := hex.DecodeString("0123456789abcdeffedcba9876543210")
	block, err := gmsm.NewCipher(key)
	if err != nil {
		panic(err)
	}
	dst := make([]byte, gmsm.SM4_BlockSize)
	block.Encrypt(dst, key)
	fmt.Printf("%x\n", dst)
	// Output: 681edf34d206965e86b3e94f536e4246
}

func ExampleNewSM4() {
	key := []byte("1234567890123456")
	iv := make([]byte, gmsm.SM4_BlockSize)
	s := gmsm.NewSM4(key, gmsm.WithSM4IV(iv), gmsm.WithSM4Padding(gmsm.SM4_Padding_PKCS7))

	ciphertext, err := s.Encrypt([]byte("12345678"))
	if err != nil {
		panic(err)
	}
	plaintext, err := s.Decrypt(ciphertext)
	if err != nil {
		panic(err)
	}
	fmt.Println(len(ciphertext), string(plaintext))
	// Output: 16 12345678
}

func ExampleNewGCM() {
	key := []byte("1234567890123456")
	block, err := gmsm.NewCipher(key)
	if err != nil {
		panic(err)
	}
	aead, err := gmsm.NewGCM(block)
	if err != nil {
		panic(err)
	}
	nonce := make([]byte, aead.NonceSize())
	sealed := aead.Seal(nil, nonce, []byte("sm4 gcm"), []byte("header"))
	opened, err := aead.Open(nil, nonce, sealed, []byte("header"))
	if err != nil {
		panic(err)
	}
	fmt.Println(bytes.Equal(opened, []byte("sm4 gcm")), len(sealed))
	// Output: true 23
}

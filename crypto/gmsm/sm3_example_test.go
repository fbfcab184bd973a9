package gmsm_test

import (
	"crypto/hmac"
	"encoding"
	"encoding/hex"
	"fmt"
	"strings"
	"testing"

	emsm3 "github.com/emmansun/gmsm/sm3"
	"github.com/stretchr/testify/require"
	tjsm3 "github.com/tjfoc/gmsm/sm3"

	"github.com/opentoys/smcrypto/crypto/gmsm"
)

var sm3Vectors = []struct {
	in  string
	out string
}{
	{"", "1ab21d8355cfa17f8e61194831e81a8f22bec8c728fefb747ed035eb5082aa2b"},
	{"abc", "66c7f0f462eeedd9d1f2d46bdc10e4e24167c4875cf2f7a2297da02b8f4ba8e0"},
	{strings.Repeat("abcd", 16), "debe9ff92275b8a138604889c18e5a4d6fdb70e5387e5765293dcba39c0c5732"},
}

func TestSM3Vectors(t *testing.T) {
	for _, v := range sm3Vectors {
		sum := gmsm.SM3_Sum([]byte(v.in))
		require.Equal(t, v.out, hex.EncodeToString(sum[:]), "SM3(%q)", v.in)
		require.Equal(t, v.out, hex.EncodeToString(gmsm.Sm3([]byte(v.in))))

		h := gmsm.NewSM3()
		h.Write([]byte(v.in))
		require.Equal(t, v.out, hex.EncodeToString(h.Sum(nil)))
	}
}

func TestSM3Chunking(t *testing.T) {
	msg := make([]byte, 1000)
	for i := range msg {
		msg[i] = byte(i * 31)
	}
	want := gmsm.SM3_Sum(msg)
	for _, step := range []int{1, 3, 55, 56, 63, 64, 65, 128, 999} {
		h := gmsm.NewSM3()
		for i := 0; i < len(msg); i += step {
			end := i + step
			if end > len(msg) {
				end = len(msg)
			}
			h.Write(msg[i:end])
		}
		require.Equal(t, want[:], h.Sum(nil), "step %d", step)
	}
}

func TestSM3SumKeepsState(t *testing.T) {
	h := gmsm.NewSM3()
	h.Write([]byte("ab"))
	first := h.Sum(nil)
	h.Write([]byte("c"))
	require.Equal(t, sm3Vectors[1].out, hex.EncodeToString(h.Sum(nil)))
	require.NotEqual(t, first, h.Sum(nil))

	h.Reset()
	require.Equal(t, sm3Vectors[0].out, hex.EncodeToString(h.Sum(nil)))
	require.Equal(t, gmsm.SM3_Size, h.Size())
	require.Equal(t, gmsm.SM3_BlockSize, h.BlockSize())
}

func TestSM3MarshalResume(t *testing.T) {
	msg := []byte(strings.Repeat("0123456789", 20))
	h := gmsm.NewSM3()
	h.Write(msg[:77])
	state, err := h.(encoding.BinaryMarshaler).MarshalBinary()
	require.NoError(t, err)

	h2 := gmsm.NewSM3()
	require.NoError(t, h2.(encoding.BinaryUnmarshaler).UnmarshalBinary(state))
	h2.Write(msg[77:])
	want := gmsm.SM3_Sum(msg)
	require.Equal(t, want[:], h2.Sum(nil))

	require.ErrorIs(t, h2.(encoding.BinaryUnmarshaler).UnmarshalBinary(state[:10]), gmsm.ErrInvalidParameter)
	require.ErrorIs(t, h2.(encoding.BinaryUnmarshaler).UnmarshalBinary([]byte("nope")), gmsm.ErrInvalidParameter)
}

func TestSM3MatchesOtherImplementations(t *testing.T) {
	for _, n := range []int{0, 1, 63, 64, 65, 1000, 4096} {
		msg := make([]byte, n)
		for i := range msg {
			msg[i] = byte(i ^ n)
		}
		ours := gmsm.SM3_Sum(msg)
		require.Equal(t, emsm3.Sum(msg), ours, "emmansun, len %d", n)
		require.Equal(t, tjsm3.Sm3Sum(msg), ours[:], "tjfoc, len %d", n)
	}
}

func TestHmacSM3(t *testing.T) {
	key := []byte("sm3 hmac key")
	data := []byte("message to authenticate")
	mac := hmac.New(emsm3.New, key)
	mac.Write(data)
	require.Equal(t, mac.Sum(nil), gmsm.HmacSM3(key, data))
}

func Example_sm3Sum() {
	sum := gmsm.SM3_Sum([]byte("abc"))
	fmt.Printf("%x\n", sum)
	// Output: 66c7f0f462eeedd9d1f2d46bdc10e4e24167c4875cf2f7a2297da02b8f4ba8e0
}

func ExampleNewSM3() {
	h := gmsm.NewSM3()
	h.Write([]byte("a"))
	h.Write([]byte("bc"))
	fmt.Printf("%x\n", h.Sum(nil))
	// Output: 66c7f0f462eeedd9d1f2d46bdc10e4e24167c4875cf2f7a2297da02b8f4ba8e0
}

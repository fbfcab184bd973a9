package gmsm_test

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/opentoys/smcrypto/crypto/gmsm"
)

var (
	facadeKey = []byte("1234567890123456")
	facadeIV  = []byte("1234567890123456")

	facadeMsg = []byte("hello world sadkjaskjads")
)

func TestSM3(t *testing.T) {
	buf := gmsm.Sm3(facadeMsg)
	if len(buf) != gmsm.SM3_Size {
		t.Fatalf("digest length %d", len(buf))
	}
	sum := gmsm.SM3_Sum(facadeMsg)
	if !bytes.Equal(buf, sum[:]) {
		t.Fatal("Sm3 and SM3_Sum disagree")
	}
}

func roundTrip(t *testing.T, opts ...gmsm.Sm4Option) []byte {
	t.Helper()
	sm4 := gmsm.NewSM4(facadeKey, opts...)
	defer sm4.Destroy()

	buf, e := sm4.Encrypt(facadeMsg)
	if e != nil {
		t.Fatal(e)
	}
	msg, e := sm4.Decrypt(buf)
	if e != nil {
		t.Fatal(e)
	}
	if !bytes.Equal(msg, facadeMsg) {
		t.Fatalf("got %q", msg)
	}
	return buf
}

func TestCBC(t *testing.T) {
	buf := roundTrip(t, gmsm.WithSM4IV(facadeIV), gmsm.WithSM4Padding(gmsm.SM4_Padding_PKCS7))
	if len(buf) != 32 {
		t.Fatalf("ciphertext length %d", len(buf))
	}
}

func TestGCM(t *testing.T) {
	buf := roundTrip(t, gmsm.WithSM4IV(facadeIV[:12]), gmsm.WithSM4Mode(gmsm.SM4_Mode_GCM), gmsm.WithSM4AAD([]byte("aad")))
	if len(buf) != len(facadeMsg)+16 {
		t.Fatalf("ciphertext length %d", len(buf))
	}
	buf = roundTrip(t, gmsm.WithSM4IV(facadeIV), gmsm.WithSM4Mode(gmsm.SM4_Mode_GCM), gmsm.WithSM4TagSize(12))
	if len(buf) != len(facadeMsg)+12 {
		t.Fatalf("ciphertext length %d", len(buf))
	}
}

func TestCTR(t *testing.T) {
	buf := roundTrip(t, gmsm.WithSM4IV(facadeIV), gmsm.WithSM4Mode(gmsm.SM4_Mode_CTR))
	if len(buf) != len(facadeMsg) {
		t.Fatalf("ciphertext length %d", len(buf))
	}
}

func TestECB(t *testing.T) {
	buf := roundTrip(t, gmsm.WithSM4Mode(gmsm.SM4_Mode_ECB))
	if len(buf) != 32 {
		t.Fatalf("ciphertext length %d", len(buf))
	}
}

func TestSM2Key(t *testing.T) {
	priv, e := gmsm.GenerateKey(rand.Reader)
	if e != nil {
		t.Fatal(e)
	}

	privkey := priv.Bytes()
	pubkey, e := priv.PublicKey.Bytes()
	if e != nil {
		t.Fatal(e)
	}

	priv2, e := gmsm.NewPrivateKey(privkey)
	if e != nil {
		t.Fatal(e)
	}
	if !priv2.Equal(priv) {
		t.Fatal("private key did not round-trip")
	}

	pub2, e := gmsm.NewPublicKey(pubkey)
	if e != nil {
		t.Fatal(e)
	}
	if !pub2.Equal(&priv.PublicKey) {
		t.Fatal("public key did not round-trip")
	}
}

func TestSm2(t *testing.T) {
	priv, e := gmsm.GenerateKey(rand.Reader)
	if e != nil {
		t.Fatal(e)
	}
	t.Log(hex.EncodeToString(priv.Bytes()))

	sm2 := gmsm.NewSM2(priv, gmsm.WithSM2UID([]byte("alice")))
	sigend, e := sm2.Signature(facadeMsg)
	if e != nil {
		t.Fatal(e)
	}
	if !sm2.Verify(facadeMsg, sigend) {
		t.Fatal("signature does not verify")
	}
	if gmsm.NewSM2(priv).Verify(facadeMsg, sigend) {
		t.Fatal("signature verified under the default uid")
	}
}

func benchmarkSizes() []struct {
	name string
	n    int
} {
	return []struct {
		name string
		n    int
	}{{"128B", 128}, {"1KiB", 1 << 10}, {"1MiB", 1 << 20}}
}

func BenchmarkSM3(b *testing.B) {
	for _, size := range benchmarkSizes() {
		size := size
		buf := make([]byte, size.n)
		b.Run(size.name, func(b *testing.B) {
			b.SetBytes(int64(size.n))
			for i := 0; i < b.N; i++ {
				gmsm.SM3_Sum(buf)
			}
		})
	}
}

func BenchmarkSM4(b *testing.B) {
	buf := make([]byte, 1<<10)
	for _, name := range []string{"SM4/ECB/NoPadding", "SM4/CBC/PKCS7Padding", "SM4/CTR/NoPadding", "SM4/GCM/NoPadding"} {
		s, err := gmsm.NewSM4Transformation(name, facadeKey, gmsm.WithSM4IV(facadeIV))
		if err != nil {
			b.Fatal(err)
		}
		b.Run(name, func(b *testing.B) {
			b.SetBytes(int64(len(buf)))
			for i := 0; i < b.N; i++ {
				c, err := s.NewCrypter(gmsm.DirectionEncrypt)
				if err != nil {
					b.Fatal(err)
				}
				if _, err = c.Final(buf); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkSM2Sign(b *testing.B) {
	n, _ := new(big.Int).SetString("FFFFFFFEFFFFFFFFFFFFFFFFFFFFFFFF7203DF6B21C6052B53BBF40939D54123", 16)
	keys := []struct {
		name string
		d    *big.Int
	}{
		{"Small", big.NewInt(1)},
		{"Mid", new(big.Int).Rsh(n, 1)},
		{"Big", new(big.Int).Sub(n, big.NewInt(2))},
	}
	for _, k := range keys {
		priv, err := gmsm.NewPrivateKey(k.d.FillBytes(make([]byte, 32)))
		if err != nil {
			b.Fatal(err)
		}
		signer, err := gmsm.NewSigner(priv)
		if err != nil {
			b.Fatal(err)
		}
		for _, size := range []struct {
			name string
			n    int
		}{{"1KiB", 1 << 10}, {"512KiB", 512 << 10}, {"1MiB", 1 << 20}} {
			size := size
			msg := make([]byte, size.n)
			b.Run(k.name+"/"+size.name, func(b *testing.B) {
				b.SetBytes(int64(size.n))
				for i := 0; i < b.N; i++ {
					signer.Write(msg)
					if _, err := signer.Sign(); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}

func BenchmarkSM2Verify(b *testing.B) {
	priv, err := gmsm.GenerateKey(rand.Reader)
	if err != nil {
		b.Fatal(err)
	}
	sm2 := gmsm.NewSM2(priv)
	sig, err := sm2.Signature(facadeMsg)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if !sm2.Verify(facadeMsg, sig) {
			b.Fatal("verify failed")
		}
	}
}

package gmsm

import (
	"crypto/rand"
	"fmt"
	"io"
)

func Sm3(buf []byte) (data []byte) {
	sum := SM3_Sum(buf)
	return sum[:]
}

type sm4 struct {
	block      *sm4Cipher
	err        error
	iv         []byte
	aad        []byte
	tagSize    int
	mode       sm4_mode
	padding    sm4_pkcs
	paddingSet bool
}

type Sm4Option func(*sm4)

func WithSM4Mode(mode sm4_mode) Sm4Option {
	return func(s *sm4) {
		s.mode = mode
	}
}

func WithSM4IV(iv []byte) Sm4Option {
	return func(s *sm4) {
		s.iv = append([]byte(nil), iv...)
	}
}

func WithSM4Padding(padding sm4_pkcs) Sm4Option {
	return func(s *sm4) {
		s.padding = padding
		s.paddingSet = true
	}
}

// WithSM4AAD sets the additional authenticated data for GCM.
func WithSM4AAD(aad []byte) Sm4Option {
	return func(s *sm4) {
		s.aad = append([]byte(nil), aad...)
	}
}

// WithSM4TagSize sets the GCM tag length, 12 to 16 bytes. The default is 16.
func WithSM4TagSize(size int) Sm4Option {
	return func(s *sm4) {
		s.tagSize = size
	}
}

// NewSM4 expands key once for every later call. A bad key or option is
// reported by the first Encrypt, Decrypt or NewCrypter.
func NewSM4(key []byte, opts ...Sm4Option) *sm4 {
	var s = &sm4{}
	for _, v := range opts {
		v(s)
	}
	s.block, s.err = newSM4Cipher(key)
	return s
}

// NewSM4Transformation configures SM4 from an algorithm name such as
// "SM4/CBC/PKCS7Padding". The name wins over mode and padding options.
func NewSM4Transformation(name string, key []byte, opts ...Sm4Option) (*sm4, error) {
	alg, err := ParseAlgorithm(name)
	if err != nil {
		return nil, err
	}
	if alg.Kind != KindSM4 {
		return nil, fmt.Errorf("%s is not a cipher: %w", alg, ErrInvalidParameter)
	}
	s := NewSM4(key, append(opts, WithSM4Mode(alg.Mode), WithSM4Padding(alg.Padding))...)
	if s.err != nil {
		return nil, s.err
	}
	return s, nil
}

// Algorithm resolves the configured mode and padding.
func (s *sm4) Algorithm() (Algorithm, error) {
	a := Algorithm{Kind: KindSM4, Mode: s.mode, Padding: s.padding}
	switch s.mode {
	case SM4_Mode_CBC, SM4_Mode_ECB:
	case SM4_Mode_CTR, SM4_Mode_GCM:
		if s.paddingSet && s.padding != SM4_Padding_None {
			return a, fmt.Errorf("sm4 %s does not take padding: %w", s.mode, ErrInvalidParameter)
		}
		a.Padding = SM4_Padding_None
	default:
		return a, fmt.Errorf("sm4: unknown mode %d: %w", int(s.mode), ErrInvalidParameter)
	}
	return a, nil
}

// NewCrypter opens an incremental session with its own copy of the key
// schedule.
func (s *sm4) NewCrypter(dir Direction) (*Crypter, error) {
	if s.err != nil {
		return nil, s.err
	}
	alg, err := s.Algorithm()
	if err != nil {
		return nil, err
	}
	block := *s.block
	c, err := newCrypter(alg, dir, &block, s.iv, s.aad, s.tagSize)
	if err != nil {
		block.Destroy()
		return nil, err
	}
	return c, nil
}

func (s *sm4) crypt(dir Direction, buf []byte) (dst []byte, e error) {
	c, e := s.NewCrypter(dir)
	if e != nil {
		return
	}
	defer c.Destroy()
	return c.Final(buf)
}

func (s *sm4) Encrypt(buf []byte) (dst []byte, e error) {
	return s.crypt(DirectionEncrypt, buf)
}

func (s *sm4) Decrypt(buf []byte) (dst []byte, e error) {
	return s.crypt(DirectionDecrypt, buf)
}

// Destroy zeroes the expanded key.
func (s *sm4) Destroy() {
	if s.block != nil {
		s.block.Destroy()
	}
}

type sm2 struct {
	priv   *PrivateKey
	pub    *PublicKey
	uid    []byte
	enc    SignatureEncoding
	random io.Reader
}

type Sm2Option func(*sm2)

// WithSM2UID sets the signer identity hashed into Z_A.
func WithSM2UID(uid []byte) Sm2Option {
	return func(s *sm2) {
		s.uid = append([]byte(nil), uid...)
	}
}

// WithSM2Encoding selects DER or raw r‖s signatures.
func WithSM2Encoding(enc SignatureEncoding) Sm2Option {
	return func(s *sm2) {
		s.enc = enc
	}
}

// WithSM2Rand replaces crypto/rand as the nonce source.
func WithSM2Rand(r io.Reader) Sm2Option {
	return func(s *sm2) {
		s.random = r
	}
}

func GenerateSM2Key() (priv []byte, pub []byte, e error) {
	key, e := GenerateKey(rand.Reader)
	if e != nil {
		return
	}
	priv = key.Bytes()
	pub, e = key.PublicKey.Bytes()
	return
}

// NewSM2 wraps a key pair for one-shot signing. priv may be nil for a
// verify-only instance built with NewSM2Verifier.
func NewSM2(priv *PrivateKey, opts ...Sm2Option) *sm2 {
	s := &sm2{priv: priv, uid: defaultUID, enc: EncodingDER, random: rand.Reader}
	if priv != nil {
		s.pub = &priv.PublicKey
	}
	for _, v := range opts {
		v(s)
	}
	return s
}

// NewSM2Verifier wraps a public key for one-shot verification.
func NewSM2Verifier(pub *PublicKey, opts ...Sm2Option) *sm2 {
	s := NewSM2(nil, opts...)
	s.pub = pub
	return s
}

func (s *sm2) Verify(buf, signed []byte) bool {
	if s.pub == nil {
		return false
	}
	v, err := NewVerifier(s.pub, WithUID(s.uid), WithEncoding(s.enc))
	if err != nil {
		return false
	}
	v.Write(buf)
	return v.Verify(signed)
}

func (s *sm2) Signature(buf []byte) ([]byte, error) {
	if s.priv == nil {
		return nil, fmt.Errorf("sm2: no private key: %w", ErrInvalidKey)
	}
	signer, err := NewSigner(s.priv, WithUID(s.uid), WithEncoding(s.enc), WithRand(s.random))
	if err != nil {
		return nil, err
	}
	if _, err = signer.Write(buf); err != nil {
		return nil, err
	}
	return signer.Sign()
}

package gmsm

import (
	"crypto/rand"
	"fmt"
	"hash"
	"io"
)

// SignatureEncoding is the wire form of an SM2 signature.
type SignatureEncoding int

const (
	// EncodingDER is SEQUENCE { INTEGER r, INTEGER s }.
	EncodingDER SignatureEncoding = iota
	// EncodingRaw is r ‖ s, 32 big-endian bytes each.
	EncodingRaw
)

func (e SignatureEncoding) valid() bool {
	return e == EncodingDER || e == EncodingRaw
}

type signerConfig struct {
	uid    []byte
	pub    *PublicKey
	enc    SignatureEncoding
	random io.Reader
}

type SignerOption func(*signerConfig)

// WithUID sets the identity hashed into Z_A. The default is
// "1234567812345678"; an empty, non-nil uid hashes a zero-length ID.
func WithUID(uid []byte) SignerOption {
	return func(c *signerConfig) {
		if uid == nil {
			c.uid = defaultUID
			return
		}
		c.uid = append([]byte{}, uid...)
	}
}

// WithPublicKey supplies the public key used for Z_A. For a Signer it must
// match the private key.
func WithPublicKey(pub *PublicKey) SignerOption {
	return func(c *signerConfig) {
		c.pub = pub
	}
}

func WithEncoding(enc SignatureEncoding) SignerOption {
	return func(c *signerConfig) {
		c.enc = enc
	}
}

// WithRand sets the source of signing nonces. The default is crypto/rand.
func WithRand(r io.Reader) SignerOption {
	return func(c *signerConfig) {
		c.random = r
	}
}

func newSignerConfig(opts []SignerOption) (signerConfig, error) {
	c := signerConfig{uid: defaultUID, enc: EncodingDER, random: rand.Reader}
	for _, v := range opts {
		v(&c)
	}
	if !c.enc.valid() {
		return c, fmt.Errorf("sm2: unknown signature encoding %d: %w", int(c.enc), ErrInvalidParameter)
	}
	if len(c.uid) >= 0x2000 {
		return c, fmt.Errorf("sm2: uid of %d bytes is too long: %w", len(c.uid), ErrInvalidParameter)
	}
	if c.random == nil {
		return c, fmt.Errorf("sm2: nil random source: %w", ErrInvalidParameter)
	}
	return c, nil
}

// zaDigest is the message state shared by Signer and Verifier: Z_A is
// computed on first use and cached, then each message is hashed after it.
type zaDigest struct {
	pub     *PublicKey
	uid     []byte
	za      []byte
	md      hash.Hash
	writing bool
}

func (z *zaDigest) begin() error {
	if z.writing {
		return nil
	}
	if z.za == nil {
		za, err := CalculateZA(z.pub, z.uid)
		if err != nil {
			return err
		}
		z.za = za
		z.md = NewSM3()
	}
	z.md.Reset()
	z.md.Write(z.za)
	z.writing = true
	return nil
}

func (z *zaDigest) write(p []byte) (int, error) {
	if err := z.begin(); err != nil {
		return 0, err
	}
	return z.md.Write(p)
}

// finish returns e = SM3(Z_A ‖ M) and rewinds to an empty message.
func (z *zaDigest) finish() ([]byte, error) {
	if err := z.begin(); err != nil {
		return nil, err
	}
	e := z.md.Sum(nil)
	z.writing = false
	return e, nil
}

func (z *zaDigest) reset() {
	z.writing = false
}

// Signer produces SM2 signatures over streamed messages. The zero value is
// unconfigured and fails every call; NewSigner returns a configured one.
// Sign ends the message and leaves the Signer ready for the next.
type Signer struct {
	priv   *PrivateKey
	enc    SignatureEncoding
	random io.Reader
	digest zaDigest
}

func NewSigner(priv *PrivateKey, opts ...SignerOption) (*Signer, error) {
	if priv == nil {
		return nil, fmt.Errorf("sm2: nil private key: %w", ErrInvalidKey)
	}
	c, err := newSignerConfig(opts)
	if err != nil {
		return nil, err
	}
	if c.pub != nil && !c.pub.Equal(&priv.PublicKey) {
		return nil, fmt.Errorf("sm2: public key does not match private key: %w", ErrInvalidKey)
	}
	if _, err = priv.inverseOfPrivateKeyPlus1(); err != nil {
		return nil, err
	}
	return &Signer{
		priv:   priv,
		enc:    c.enc,
		random: c.random,
		digest: zaDigest{pub: &priv.PublicKey, uid: c.uid},
	}, nil
}

// Write appends p to the message being signed.
func (s *Signer) Write(p []byte) (int, error) {
	if s.priv == nil {
		return 0, fmt.Errorf("sm2: signer not initialised: %w", ErrInvalidParameter)
	}
	return s.digest.write(p)
}

// Sign signs the message written so far.
func (s *Signer) Sign() ([]byte, error) {
	if s.priv == nil {
		return nil, fmt.Errorf("sm2: signer not initialised: %w", ErrInvalidParameter)
	}
	e, err := s.digest.finish()
	if err != nil {
		return nil, err
	}
	r, ss, err := signDigest(s.random, s.priv, e)
	if err != nil {
		return nil, err
	}
	if s.enc == EncodingRaw {
		return encodeRawSignature(r, ss), nil
	}
	return encodeSignature(r, ss)
}

// Reset discards the message written so far.
func (s *Signer) Reset() {
	s.digest.reset()
}

// Verifier checks SM2 signatures over streamed messages, mirroring Signer.
type Verifier struct {
	pub    *PublicKey
	enc    SignatureEncoding
	digest zaDigest
}

func NewVerifier(pub *PublicKey, opts ...SignerOption) (*Verifier, error) {
	if pub == nil {
		return nil, fmt.Errorf("sm2: nil public key: %w", ErrInvalidKey)
	}
	c, err := newSignerConfig(opts)
	if err != nil {
		return nil, err
	}
	return &Verifier{
		pub:    pub,
		enc:    c.enc,
		digest: zaDigest{pub: pub, uid: c.uid},
	}, nil
}

func (v *Verifier) Write(p []byte) (int, error) {
	if v.pub == nil {
		return 0, fmt.Errorf("sm2: verifier not initialised: %w", ErrInvalidParameter)
	}
	return v.digest.write(p)
}

// Verify reports whether sig signs the message written so far, and rewinds
// to an empty message either way.
func (v *Verifier) Verify(sig []byte) bool {
	if v.pub == nil {
		return false
	}
	e, err := v.digest.finish()
	if err != nil {
		return false
	}
	var r, s []byte
	if v.enc == EncodingRaw {
		r, s, err = parseRawSignature(sig)
	} else {
		r, s, err = parseSignature(sig)
	}
	if err != nil {
		return false
	}
	return verifyDigest(v.pub, e, r, s)
}

func (v *Verifier) Reset() {
	v.digest.reset()
}

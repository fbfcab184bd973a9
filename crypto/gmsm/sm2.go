package gmsm

// [GM/T] SM2 GB/T 32918.2-2016 digital signature

import (
	"crypto"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

const maxRetryLimit = 100

// defaultUID is the GB/T 35276 default signer identity "1234567812345678".
var defaultUID = []byte{0x31, 0x32, 0x33, 0x34, 0x35, 0x36, 0x37, 0x38, 0x31, 0x32, 0x33, 0x34, 0x35, 0x36, 0x37, 0x38}

// PublicKey is an SM2 public key: a curve point other than the identity.
type PublicKey struct {
	q       SM2P256Point
	encoded [1 + 2*sm2p256ElementLength]byte
}

// PrivateKey is an SM2 private key d with 1 <= d <= n-2.
type PrivateKey struct {
	PublicKey
	d SM2P256OrderElement

	inverseOfKeyPlus1     SM2P256OrderElement
	inverseOfKeyPlus1Err  error
	inverseOfKeyPlus1Once sync.Once
}

var errInvalidPrivateKey = fmt.Errorf("sm2: private key out of range: %w", ErrInvalidKey)

// NewPublicKey decodes an uncompressed 65-byte point.
func NewPublicKey(key []byte) (*PublicKey, error) {
	if len(key) != 1+2*sm2p256ElementLength || key[0] != 4 {
		return nil, fmt.Errorf("sm2: public key must be a 65-byte uncompressed point: %w", ErrInvalidKey)
	}
	pub := new(PublicKey)
	if _, err := pub.q.SetBytes(key); err != nil {
		return nil, fmt.Errorf("sm2: invalid public key: %w", err)
	}
	copy(pub.encoded[:], key)
	return pub, nil
}

func newPublicKeyFromPoint(q *SM2P256Point) (*PublicKey, error) {
	b, err := q.Bytes()
	if err != nil {
		return nil, err
	}
	return NewPublicKey(b)
}

// Bytes returns the uncompressed encoding 04‖X‖Y.
func (pub *PublicKey) Bytes() ([]byte, error) {
	if pub.encoded[0] != 4 {
		return nil, fmt.Errorf("sm2: uninitialised public key: %w", ErrPointAtInfinity)
	}
	return append([]byte(nil), pub.encoded[:]...), nil
}

// Equal reports whether pub and x hold the same point.
func (pub *PublicKey) Equal(x crypto.PublicKey) bool {
	xx, ok := x.(*PublicKey)
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare(pub.encoded[:], xx.encoded[:]) == 1
}

// NewPrivateKey decodes a 32-byte big-endian scalar and derives its public key.
func NewPrivateKey(key []byte) (*PrivateKey, error) {
	if len(key) != sm2p256ElementLength {
		return nil, fmt.Errorf("sm2: private key must be %d bytes: %w", sm2p256ElementLength, ErrInvalidKey)
	}
	priv := new(PrivateKey)
	if _, err := priv.d.SetBytes(key); err != nil {
		return nil, errInvalidPrivateKey
	}
	// d + 1 == 0 rejects n - 1, whose (1+d)⁻¹ does not exist.
	dp1 := new(SM2P256OrderElement).Add(&priv.d, new(SM2P256OrderElement).One())
	if priv.d.IsZero()|dp1.IsZero() == 1 {
		return nil, errInvalidPrivateKey
	}
	q, err := NewSM2P256Point().ScalarBaseMult(key)
	if err != nil {
		return nil, err
	}
	pub, err := newPublicKeyFromPoint(q)
	if err != nil {
		return nil, err
	}
	priv.PublicKey = *pub
	return priv, nil
}

// GenerateKey returns a fresh key pair with d drawn uniformly from [1, n-2].
func GenerateKey(rand io.Reader) (*PrivateKey, error) {
	b := make([]byte, sm2p256ElementLength)
	defer destroyBytes(b)
	for i := 0; i < maxRetryLimit; i++ {
		if _, err := io.ReadFull(rand, b); err != nil {
			return nil, fmt.Errorf("sm2: read key material: %v: %w", err, ErrEntropyFailure)
		}
		priv, err := NewPrivateKey(b)
		if err == nil {
			return priv, nil
		}
	}
	return nil, fmt.Errorf("sm2: key generation exhausted retries: %w", ErrEntropyFailure)
}

// Bytes returns the 32-byte big-endian scalar d.
func (priv *PrivateKey) Bytes() []byte {
	return priv.d.Bytes()
}

// Public returns the public key as a crypto.PublicKey.
func (priv *PrivateKey) Public() crypto.PublicKey {
	return &priv.PublicKey
}

// Equal reports whether priv and x hold the same scalar.
func (priv *PrivateKey) Equal(x crypto.PrivateKey) bool {
	xx, ok := x.(*PrivateKey)
	if !ok {
		return false
	}
	return priv.d.Equal(&xx.d) == 1
}

// Destroy zeroes the secret scalar and the cached (1+d)⁻¹.
func (priv *PrivateKey) Destroy() {
	priv.d.Destroy()
	priv.inverseOfKeyPlus1.Destroy()
}

// SM2SignerOption marks the input of PrivateKey.Sign as a raw message to be
// hashed with Z_A(UID) rather than a finished digest.
type SM2SignerOption struct {
	UID []byte
}

func (*SM2SignerOption) HashFunc() crypto.Hash { return crypto.Hash(0) }

// DefaultSM2SignerOpts signs raw messages under the default UID.
var DefaultSM2SignerOpts = &SM2SignerOption{UID: defaultUID}

// Sign implements crypto.Signer with a DER signature. With *SM2SignerOption,
// msg is the message itself; any other opts means msg is already e.
func (priv *PrivateKey) Sign(rand io.Reader, msg []byte, opts crypto.SignerOpts) ([]byte, error) {
	if o, ok := opts.(*SM2SignerOption); ok {
		uid := o.UID
		if uid == nil {
			uid = defaultUID
		}
		digest, err := CalculateSM2Hash(&priv.PublicKey, msg, uid)
		if err != nil {
			return nil, err
		}
		msg = digest
	}
	return SignASN1(rand, priv, msg)
}

// CalculateZA ZA = SM3(ENTL ‖ ID ‖ a ‖ b ‖ xG ‖ yG ‖ xA ‖ yA), where ENTL is
// the bit length of ID as two big-endian bytes. An empty uid is hashed as is.
func CalculateZA(pub *PublicKey, uid []byte) ([]byte, error) {
	uidLen := len(uid)
	if uidLen >= 0x2000 {
		return nil, fmt.Errorf("sm2: uid of %d bytes is too long: %w", uidLen, ErrInvalidParameter)
	}
	if pub.encoded[0] != 4 {
		return nil, fmt.Errorf("sm2: uninitialised public key: %w", ErrInvalidKey)
	}
	entla := uint16(uidLen) << 3
	md := NewSM3()
	md.Write([]byte{byte(entla >> 8), byte(entla)})
	md.Write(uid)
	md.Write(sm2p256ABytes)
	md.Write(sm2p256BBytes)
	md.Write(sm2p256GxBytes)
	md.Write(sm2p256GyBytes)
	md.Write(pub.encoded[1:])
	return md.Sum(nil), nil
}

// CalculateSM2Hash returns e = SM3(Z_A ‖ data).
func CalculateSM2Hash(pub *PublicKey, data, uid []byte) ([]byte, error) {
	za, err := CalculateZA(pub, uid)
	if err != nil {
		return nil, err
	}
	md := NewSM3()
	md.Write(za)
	md.Write(data)
	return md.Sum(nil), nil
}

// hashToScalar maps a digest into the scalar field: the leftmost 256 bits,
// left-padded when shorter, reduced mod n.
func hashToScalar(e *SM2P256OrderElement, hash []byte) {
	var buf [sm2p256ElementLength]byte
	if len(hash) > len(buf) {
		hash = hash[:len(buf)]
	}
	copy(buf[len(buf)-len(hash):], hash)
	e.SetReducedBytes(buf[:])
}

func (priv *PrivateKey) inverseOfPrivateKeyPlus1() (*SM2P256OrderElement, error) {
	priv.inverseOfKeyPlus1Once.Do(func() {
		dp1 := new(SM2P256OrderElement).Add(&priv.d, new(SM2P256OrderElement).One())
		if _, err := priv.inverseOfKeyPlus1.Invert(dp1); err != nil {
			priv.inverseOfKeyPlus1Err = errInvalidPrivateKey
		}
	})
	if priv.inverseOfKeyPlus1Err != nil {
		return nil, priv.inverseOfKeyPlus1Err
	}
	return &priv.inverseOfKeyPlus1, nil
}

// randomScalar draws k uniformly from [1, n-1] by rejection sampling.
func randomScalar(rand io.Reader) (*SM2P256OrderElement, error) {
	b := make([]byte, sm2p256ElementLength)
	defer destroyBytes(b)
	k := new(SM2P256OrderElement)
	for i := 0; i < maxRetryLimit; i++ {
		if _, err := io.ReadFull(rand, b); err != nil {
			return nil, fmt.Errorf("sm2: read nonce: %v: %w", err, ErrEntropyFailure)
		}
		if _, err := k.SetBytes(b); err == nil && k.IsZero() == 0 {
			return k, nil
		}
	}
	return nil, fmt.Errorf("sm2: nonce sampling exhausted retries: %w", ErrEntropyFailure)
}

// SignASN1 signs the digest e with priv and returns a DER signature.
func SignASN1(rand io.Reader, priv *PrivateKey, hash []byte) ([]byte, error) {
	r, s, err := signDigest(rand, priv, hash)
	if err != nil {
		return nil, err
	}
	return encodeSignature(r, s)
}

// signDigest returns the big-endian r and s for the digest e.
func signDigest(rand io.Reader, priv *PrivateKey, hash []byte) (r, s []byte, err error) {
	dp1Inv, err := priv.inverseOfPrivateKeyPlus1()
	if err != nil {
		return nil, nil, err
	}

	e := new(SM2P256OrderElement)
	hashToScalar(e, hash)

	rr := new(SM2P256OrderElement)
	ss := new(SM2P256OrderElement)
	t := new(SM2P256OrderElement)
	R := NewSM2P256Point()
	for i := 0; i < maxRetryLimit; i++ {
		k, err := randomScalar(rand)
		if err != nil {
			return nil, nil, err
		}
		if _, err = R.ScalarBaseMult(k.Bytes()); err != nil {
			return nil, nil, err
		}
		x1, err := R.BytesX()
		if err != nil {
			return nil, nil, err
		}
		// r = (e + x1) mod n
		rr.SetReducedBytes(x1)
		rr.Add(rr, e)
		t.Add(rr, k)
		if rr.IsZero()|t.IsZero() == 1 {
			k.Destroy()
			continue
		}
		// s = (1+d)⁻¹ · (k - r·d) mod n
		ss.Mul(rr, &priv.d)
		ss.Sub(k, ss)
		ss.Mul(dp1Inv, ss)
		k.Destroy()
		if ss.IsZero() == 1 {
			continue
		}
		return rr.Bytes(), ss.Bytes(), nil
	}
	return nil, nil, fmt.Errorf("sm2: signing exhausted nonce retries: %w", ErrEntropyFailure)
}

// VerifyASN1 reports whether sig is a valid DER signature of the digest e.
func VerifyASN1(pub *PublicKey, hash, sig []byte) bool {
	r, s, err := parseSignature(sig)
	if err != nil {
		return false
	}
	return verifyDigest(pub, hash, r, s)
}

func verifyDigest(pub *PublicKey, hash, rBytes, sBytes []byte) bool {
	if pub.encoded[0] != 4 {
		return false
	}
	r, err := scalarFromInteger(rBytes)
	if err != nil {
		return false
	}
	s, err := scalarFromInteger(sBytes)
	if err != nil {
		return false
	}

	e := new(SM2P256OrderElement)
	hashToScalar(e, hash)

	t := new(SM2P256OrderElement).Add(r, s)
	if t.IsZero() == 1 {
		return false
	}

	// (x1, y1) = [s]G + [t]Q
	p1, err := NewSM2P256Point().ScalarBaseMult(s.Bytes())
	if err != nil {
		return false
	}
	p2, err := NewSM2P256Point().ScalarMult(&pub.q, t.Bytes())
	if err != nil {
		return false
	}
	x1, err := p1.Add(p1, p2).BytesX()
	if err != nil {
		return false
	}

	v := new(SM2P256OrderElement)
	v.SetReducedBytes(x1)
	v.Add(v, e)
	return v.Equal(r) == 1
}

// scalarFromInteger accepts a minimal big-endian integer in [1, n-1].
func scalarFromInteger(b []byte) (*SM2P256OrderElement, error) {
	for len(b) > 0 && b[0] == 0 {
		b = b[1:]
	}
	if len(b) == 0 || len(b) > sm2p256ElementLength {
		return nil, ErrInvalidParameter
	}
	var buf [sm2p256ElementLength]byte
	copy(buf[len(buf)-len(b):], b)
	k, err := new(SM2P256OrderElement).SetBytes(buf[:])
	if err != nil {
		return nil, err
	}
	if k.IsZero() == 1 {
		return nil, ErrInvalidParameter
	}
	return k, nil
}

func encodeSignature(r, s []byte) ([]byte, error) {
	var b cryptobyte.Builder
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		addASN1IntBytes(b, r)
		addASN1IntBytes(b, s)
	})
	return b.Bytes()
}

// addASN1IntBytes encodes in ASN.1 a positive integer represented as
// a big-endian byte slice with zero or more leading zeroes.
func addASN1IntBytes(b *cryptobyte.Builder, bytes []byte) {
	for len(bytes) > 0 && bytes[0] == 0 {
		bytes = bytes[1:]
	}
	if len(bytes) == 0 {
		b.SetError(errors.New("invalid integer"))
		return
	}
	b.AddASN1(asn1.INTEGER, func(c *cryptobyte.Builder) {
		if bytes[0]&0x80 != 0 {
			c.AddUint8(0)
		}
		c.AddBytes(bytes)
	})
}

func parseSignature(sig []byte) (r, s []byte, err error) {
	var inner cryptobyte.String
	input := cryptobyte.String(sig)
	if !input.ReadASN1(&inner, asn1.SEQUENCE) ||
		!input.Empty() ||
		!inner.ReadASN1Integer(&r) ||
		!inner.ReadASN1Integer(&s) ||
		!inner.Empty() {
		return nil, nil, fmt.Errorf("sm2: invalid ASN.1 signature: %w", ErrInvalidParameter)
	}
	return r, s, nil
}

func encodeRawSignature(r, s []byte) []byte {
	out := make([]byte, 2*sm2p256ElementLength)
	copy(out[sm2p256ElementLength-len(r):sm2p256ElementLength], r)
	copy(out[2*sm2p256ElementLength-len(s):], s)
	return out
}

func parseRawSignature(sig []byte) (r, s []byte, err error) {
	if len(sig) != 2*sm2p256ElementLength {
		return nil, nil, fmt.Errorf("sm2: raw signature must be %d bytes: %w", 2*sm2p256ElementLength, ErrInvalidParameter)
	}
	return sig[:sm2p256ElementLength], sig[sm2p256ElementLength:], nil
}

// VerifyASN1WithSM2 verifies the DER signature sig of the raw msg under uid.
// A nil uid means the default UID.
func VerifyASN1WithSM2(pub *PublicKey, uid, msg, sig []byte) bool {
	if uid == nil {
		uid = defaultUID
	}
	digest, err := CalculateSM2Hash(pub, msg, uid)
	if err != nil {
		return false
	}
	return VerifyASN1(pub, digest, sig)
}

func destroyBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

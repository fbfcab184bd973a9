package gmsm

import (
	"crypto/subtle"
	"fmt"
)

// Padding adds and strips a block trailer.
type Padding interface {
	BlockSize() int
	Pad(src []byte) []byte
	Unpad(src []byte) ([]byte, error)
}

type pkcs7Padding uint8

// NewPKCS7Padding returns PKCS#7 padding for blocks of blockSize bytes,
// which must be in [1, 255].
func NewPKCS7Padding(blockSize uint) Padding {
	if blockSize == 0 || blockSize > 255 {
		panic("padding: invalid block size")
	}
	return pkcs7Padding(blockSize)
}

func (p pkcs7Padding) BlockSize() int { return int(p) }

// Pad appends k = blockSize - len(src)%blockSize bytes of value k, so k is
// never zero and a full extra block is added to aligned input.
func (p pkcs7Padding) Pad(src []byte) []byte {
	k := int(p) - len(src)%int(p)
	out, tail := sliceForAppend(append([]byte(nil), src...), k)
	for i := range tail {
		tail[i] = byte(k)
	}
	return out
}

// Unpad validates and strips the trailer. All trailer checks run without
// early exit so a padding oracle learns nothing from timing.
func (p pkcs7Padding) Unpad(src []byte) ([]byte, error) {
	n := len(src)
	if n == 0 || n%int(p) != 0 {
		return nil, fmt.Errorf("padding: input length %d: %w", n, ErrInvalidInputLength)
	}
	k := int(src[n-1])
	// good stays 1 while 1 <= k <= blockSize and the last k bytes all equal k.
	good := subtle.ConstantTimeLessOrEq(1, k) & subtle.ConstantTimeLessOrEq(k, int(p))
	for i := 1; i <= int(p); i++ {
		inTrailer := subtle.ConstantTimeLessOrEq(i, k)
		match := subtle.ConstantTimeByteEq(src[n-i], byte(k))
		good &= match | (inTrailer ^ 1)
	}
	if good != 1 {
		return nil, ErrBadPadding
	}
	return src[:n-k], nil
}

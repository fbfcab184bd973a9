package gmsm

import (
	"crypto/cipher"
	"crypto/subtle"
	"fmt"
)

// Direction selects whether a Crypter encrypts or decrypts.
type Direction int

const (
	DirectionEncrypt Direction = iota
	DirectionDecrypt
)

// Crypter is an incremental SM4 session. Update may be called any number of
// times with arbitrary chunks; Final flushes the tail and returns the session
// to its initial state under the same IV. For GCM that state includes the
// additional data configured on the SM4; data passed to UpdateAAD covers one
// message only.
//
// A GCM encrypter is the exception: after Final it refuses further input
// until Reset supplies an IV it has not used before, so one encrypter never
// seals two messages under the same IV. A GCM decrypter releases nothing
// before the tag verifies.
type Crypter struct {
	alg   Algorithm
	dir   Direction
	block *sm4Cipher
	iv    []byte
	aad   []byte

	padding Padding
	mode    cipher.BlockMode
	stream  cipher.Stream
	gcm     *gcmState
	buf     []byte // pending partial block, or GCM ciphertext awaiting its tag
	sealed  bool
	usedIVs map[string]struct{} // GCM encrypter only
}

func newCrypter(alg Algorithm, dir Direction, block *sm4Cipher, iv, aad []byte, tagSize int) (*Crypter, error) {
	if alg.Kind != KindSM4 {
		return nil, fmt.Errorf("crypter: %s is not a cipher: %w", alg, ErrInvalidParameter)
	}
	if len(aad) > 0 && alg.Mode != SM4_Mode_GCM {
		return nil, fmt.Errorf("crypter: %s takes no additional data: %w", alg, ErrInvalidParameter)
	}
	c := &Crypter{alg: alg, dir: dir, block: block, aad: append([]byte(nil), aad...)}
	if alg.Padding == SM4_Padding_PKCS7 {
		c.padding = NewPKCS7Padding(SM4_BlockSize)
	}
	if alg.Mode == SM4_Mode_GCM {
		if tagSize == 0 {
			tagSize = gcmTagSize
		}
		if tagSize < gcmMinimumTagSize || tagSize > gcmTagSize {
			return nil, fmt.Errorf("crypter: gcm tag size %d: %w", tagSize, ErrInvalidParameter)
		}
		c.gcm = newGCMState(block, tagSize)
		if dir == DirectionEncrypt {
			c.usedIVs = make(map[string]struct{})
		}
	}
	if err := c.reset(iv); err != nil {
		return nil, err
	}
	return c, nil
}

func checkIV(mode sm4_mode, iv []byte) error {
	switch mode {
	case SM4_Mode_CBC, SM4_Mode_CTR:
		if len(iv) != SM4_BlockSize {
			return fmt.Errorf("sm4 %s: iv must be %d bytes, got %d: %w", mode, SM4_BlockSize, len(iv), ErrInvalidParameter)
		}
	case SM4_Mode_GCM:
		if len(iv) == 0 {
			return fmt.Errorf("sm4 GCM: iv must not be empty: %w", ErrInvalidParameter)
		}
	}
	return nil
}

func (c *Crypter) reset(iv []byte) error {
	if err := checkIV(c.alg.Mode, iv); err != nil {
		return err
	}
	c.iv = append(c.iv[:0], iv...)
	c.clearBuf()
	c.sealed = false
	switch c.alg.Mode {
	case SM4_Mode_ECB:
		if c.dir == DirectionEncrypt {
			c.mode = NewECBEncrypter(c.block)
		} else {
			c.mode = NewECBDecrypter(c.block)
		}
	case SM4_Mode_CBC:
		if c.dir == DirectionEncrypt {
			c.mode = cipher.NewCBCEncrypter(c.block, c.iv)
		} else {
			c.mode = cipher.NewCBCDecrypter(c.block, c.iv)
		}
	case SM4_Mode_CTR:
		c.stream = cipher.NewCTR(c.block, c.iv)
	case SM4_Mode_GCM:
		c.gcm.reset(c.iv)
		if c.usedIVs != nil {
			c.usedIVs[string(c.iv)] = struct{}{}
		}
		if len(c.aad) > 0 {
			return c.gcm.updateAAD(c.aad)
		}
	}
	return nil
}

func (c *Crypter) clearBuf() {
	for i := range c.buf {
		c.buf[i] = 0
	}
	c.buf = c.buf[:0]
}

// Algorithm returns the session's algorithm.
func (c *Crypter) Algorithm() Algorithm { return c.alg }

// Reset restarts the session under a new IV. A GCM encrypter rejects every
// IV it has used before.
func (c *Crypter) Reset(iv []byte) error {
	if c.block == nil {
		return fmt.Errorf("crypter: not initialised: %w", ErrInvalidParameter)
	}
	if _, used := c.usedIVs[string(iv)]; used {
		return fmt.Errorf("crypter: gcm iv reuse: %w", ErrInvalidParameter)
	}
	return c.reset(iv)
}

func (c *Crypter) ready() error {
	if c.block == nil {
		return fmt.Errorf("crypter: not initialised: %w", ErrInvalidParameter)
	}
	if c.sealed {
		return fmt.Errorf("crypter: gcm encrypter needs a new iv: %w", ErrInvalidParameter)
	}
	return nil
}

// UpdateAAD feeds additional authenticated data. Only GCM takes it, and only
// before the first text byte.
func (c *Crypter) UpdateAAD(aad []byte) error {
	if err := c.ready(); err != nil {
		return err
	}
	if c.gcm == nil {
		return fmt.Errorf("crypter: %s takes no additional data: %w", c.alg, ErrInvalidParameter)
	}
	return c.gcm.updateAAD(aad)
}

// Update processes src and returns whatever output is complete.
func (c *Crypter) Update(src []byte) ([]byte, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	switch c.alg.Mode {
	case SM4_Mode_CTR:
		dst := make([]byte, len(src))
		c.stream.XORKeyStream(dst, src)
		return dst, nil
	case SM4_Mode_GCM:
		if c.dir == DirectionDecrypt {
			c.buf = append(c.buf, src...)
			return nil, nil
		}
		dst := make([]byte, len(src))
		if err := c.gcm.encrypt(dst, src); err != nil {
			return nil, err
		}
		return dst, nil
	}

	c.buf = append(c.buf, src...)
	n := len(c.buf) &^ (SM4_BlockSize - 1)
	// Decryption with padding keeps the last whole block back for Final.
	if c.dir == DirectionDecrypt && c.padding != nil && n == len(c.buf) && n > 0 {
		n -= SM4_BlockSize
	}
	if n == 0 {
		return nil, nil
	}
	dst := make([]byte, n)
	c.mode.CryptBlocks(dst, c.buf[:n])
	rest := copy(c.buf, c.buf[n:])
	c.buf = c.buf[:rest]
	return dst, nil
}

// Final processes src, completes the message and returns the remaining
// output. Errors leave the session reset as if Final had succeeded.
func (c *Crypter) Final(src []byte) ([]byte, error) {
	head, err := c.Update(src)
	if err != nil {
		return nil, err
	}
	tail, err := c.final()
	if c.alg.Mode == SM4_Mode_GCM && c.dir == DirectionEncrypt {
		c.sealed = true
	} else {
		c.reset(c.iv)
	}
	if err != nil {
		return nil, err
	}
	return append(head, tail...), nil
}

func (c *Crypter) final() ([]byte, error) {
	switch c.alg.Mode {
	case SM4_Mode_CTR:
		return nil, nil
	case SM4_Mode_GCM:
		if c.dir == DirectionEncrypt {
			return append([]byte(nil), c.gcm.tag()...), nil
		}
		return c.openGCM()
	}

	if c.dir == DirectionEncrypt {
		if c.padding == nil {
			if len(c.buf) != 0 {
				return nil, fmt.Errorf("crypter: %d trailing bytes: %w", len(c.buf), ErrInvalidInputLength)
			}
			return nil, nil
		}
		padded := c.padding.Pad(c.buf)
		c.mode.CryptBlocks(padded, padded)
		return padded, nil
	}

	if len(c.buf)%SM4_BlockSize != 0 {
		return nil, fmt.Errorf("crypter: %d trailing bytes: %w", len(c.buf), ErrInvalidInputLength)
	}
	if c.padding == nil {
		return nil, nil
	}
	if len(c.buf) == 0 {
		return nil, fmt.Errorf("crypter: missing padding block: %w", ErrInvalidInputLength)
	}
	last := make([]byte, len(c.buf))
	c.mode.CryptBlocks(last, c.buf)
	return c.padding.Unpad(last)
}

func (c *Crypter) openGCM() ([]byte, error) {
	tagSize := c.gcm.tagSize
	if len(c.buf) < tagSize {
		return nil, ErrAuthenticationFailed
	}
	ct := c.buf[:len(c.buf)-tagSize]
	tag := c.buf[len(c.buf)-tagSize:]
	if err := c.gcm.absorb(ct); err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare(c.gcm.tag(), tag) != 1 {
		return nil, ErrAuthenticationFailed
	}
	c.gcm.rewind()
	dst := make([]byte, len(ct))
	c.gcm.xorKeyStream(dst, ct)
	return dst, nil
}

// Destroy zeroes the key schedule and all buffered state. The Crypter is
// unusable afterwards.
func (c *Crypter) Destroy() {
	if c.block != nil {
		c.block.Destroy()
	}
	if c.gcm != nil {
		c.gcm.destroy()
	}
	c.clearBuf()
	for i := range c.aad {
		c.aad[i] = 0
	}
	c.block = nil
	c.mode = nil
	c.stream = nil
	c.usedIVs = nil
}

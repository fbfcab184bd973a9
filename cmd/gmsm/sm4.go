package main

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/opentoys/smcrypto/crypto/gmsm"
)

const sm4ChunkSize = 32 << 10

func decodeHexFlag(name, v string) ([]byte, error) {
	b, err := hex.DecodeString(v)
	if err != nil {
		return nil, fmt.Errorf("-%s: %w", name, err)
	}
	return b, nil
}

func (e *env) sm4(args []string) (err error) {
	fs := newFlagSet(e, "sm4")
	alg := fs.String("alg", "SM4/CBC/PKCS7Padding", "transformation `name`")
	keyHex := fs.String("key", "", "16-byte hex key")
	ivHex := fs.String("iv", "", "hex IV (16 bytes for CBC and CTR, any non-empty length for GCM)")
	aadHex := fs.String("aad", "", "hex additional data for GCM")
	tag := fs.Int("tag", 16, "GCM tag length in bytes, 12 to 16")
	decrypt := fs.Bool("d", false, "decrypt")
	inName := fs.String("in", "-", "input `file`")
	outName := fs.String("out", "-", "output `file`")
	if err = parseFlags(fs, args); err != nil {
		return err
	}
	if *keyHex == "" {
		fs.Usage()
		return fmt.Errorf("%w: -key is required", errUsage)
	}

	key, err := decodeHexFlag("key", *keyHex)
	if err != nil {
		return err
	}
	iv, err := decodeHexFlag("iv", *ivHex)
	if err != nil {
		return err
	}
	aad, err := decodeHexFlag("aad", *aadHex)
	if err != nil {
		return err
	}

	s, err := gmsm.NewSM4Transformation(*alg, key,
		gmsm.WithSM4IV(iv), gmsm.WithSM4AAD(aad), gmsm.WithSM4TagSize(*tag))
	if err != nil {
		return err
	}
	defer s.Destroy()
	dir := gmsm.DirectionEncrypt
	if *decrypt {
		dir = gmsm.DirectionDecrypt
	}
	c, err := s.NewCrypter(dir)
	if err != nil {
		return err
	}
	defer c.Destroy()

	in, err := e.openInput(*inName)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := e.openOutput(*outName)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	n, err := pipeCrypter(c, dir, in, out)
	if err != nil {
		return err
	}
	e.log.Info("sm4", "alg", c.Algorithm().String(), "decrypt", *decrypt, "bytes", n)
	return nil
}

// pipeCrypter streams in through c to out and returns the input length.
// Decrypted output is held until Final succeeds, so a bad padding or tag
// writes nothing.
func pipeCrypter(c *gmsm.Crypter, dir gmsm.Direction, in io.Reader, out io.Writer) (int64, error) {
	dst := out
	var held bytes.Buffer
	if dir == gmsm.DirectionDecrypt {
		dst = &held
	}
	var total int64
	buf := make([]byte, sm4ChunkSize)
	for {
		n, rerr := in.Read(buf)
		if n > 0 {
			total += int64(n)
			part, err := c.Update(buf[:n])
			if err != nil {
				return total, err
			}
			if _, err = dst.Write(part); err != nil {
				return total, err
			}
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return total, rerr
		}
	}
	tail, err := c.Final(nil)
	if err != nil {
		return total, err
	}
	if _, err = dst.Write(tail); err != nil {
		return total, err
	}
	if dir == gmsm.DirectionDecrypt {
		_, err = held.WriteTo(out)
	}
	return total, err
}

package main

import (
	"context"
	"crypto/hmac"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"runtime"

	"github.com/opentoys/smcrypto/crypto/gmsm"
	"github.com/opentoys/smcrypto/gopool"
)

func (e *env) sm3(ctx context.Context, args []string) error {
	fs := newFlagSet(e, "sm3")
	hmacKey := fs.String("hmac", "", "hex `key`: print HMAC-SM3 instead of SM3")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	var key []byte
	if *hmacKey != "" {
		var err error
		if key, err = hex.DecodeString(*hmacKey); err != nil {
			return fmt.Errorf("sm3: -hmac: %w", err)
		}
	}
	newHash := func() hash.Hash {
		if key != nil {
			return hmac.New(gmsm.NewSM3, key)
		}
		return gmsm.NewSM3()
	}

	files := fs.Args()
	if len(files) == 0 {
		files = []string{"-"}
	}
	sums := make([][]byte, len(files))
	// Each file gets its own digest; output keeps argument order.
	err := gopool.AllContext(ctx, runtime.GOMAXPROCS(0), func(ctx context.Context, i int) error {
		in, err := e.openInput(files[i])
		if err != nil {
			return err
		}
		defer in.Close()
		h := newHash()
		n, err := io.Copy(h, in)
		if err != nil {
			return fmt.Errorf("%s: %w", files[i], err)
		}
		sums[i] = h.Sum(nil)
		e.log.Debug("sm3", "file", files[i], "bytes", n, "hmac", key != nil)
		return nil
	}, len(files))
	if err != nil {
		return err
	}
	for i, sum := range sums {
		fmt.Fprintf(e.stdout, "%x  %s\n", sum, files[i])
	}
	return nil
}

package main

import (
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/opentoys/smcrypto/crypto/gmsm"
)

var errVerifyFailed = errors.New("signature verification failed")

func (e *env) sm2(args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(e.stderr, "usage: gmsm sm2 keygen|sign|verify [flags]")
		return errUsage
	}
	switch args[0] {
	case "keygen":
		return e.sm2Keygen(args[1:])
	case "sign":
		return e.sm2Sign(args[1:])
	case "verify":
		return e.sm2Verify(args[1:])
	}
	fmt.Fprintf(e.stderr, "gmsm sm2: unknown command %q\n", args[0])
	return errUsage
}

func (e *env) sm2Keygen(args []string) error {
	fs := newFlagSet(e, "sm2 keygen")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	priv, err := gmsm.GenerateKey(rand.Reader)
	if err != nil {
		return err
	}
	defer priv.Destroy()
	pub, err := priv.PublicKey.Bytes()
	if err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "private: %x\npublic:  %x\n", priv.Bytes(), pub)
	e.log.Info("sm2 keygen")
	return nil
}

// sigFlags are shared by sign and verify.
type sigFlags struct {
	uid    *string
	uidSet bool
	raw    *bool
	in     *string
}

func (f *sigFlags) options() []gmsm.SignerOption {
	opts := []gmsm.SignerOption{}
	if f.uidSet {
		opts = append(opts, gmsm.WithUID([]byte(*f.uid)))
	}
	if *f.raw {
		opts = append(opts, gmsm.WithEncoding(gmsm.EncodingRaw))
	}
	return opts
}

func (e *env) sigFlagSet(name string) (*flag.FlagSet, *sigFlags) {
	fs := newFlagSet(e, name)
	return fs, &sigFlags{
		uid: fs.String("uid", "", "signer identity (default \"1234567812345678\")"),
		raw: fs.Bool("raw", false, "64-byte r||s signature instead of DER"),
		in:  fs.String("in", "-", "message `file`"),
	}
}

func (f *sigFlags) parse(fs *flag.FlagSet, args []string) error {
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	fs.Visit(func(fl *flag.Flag) {
		if fl.Name == "uid" {
			f.uidSet = true
		}
	})
	return nil
}

func (e *env) sm2Sign(args []string) error {
	fs, f := e.sigFlagSet("sm2 sign")
	keyHex := fs.String("key", "", "32-byte hex private key")
	if err := f.parse(fs, args); err != nil {
		return err
	}
	d, err := decodeHexFlag("key", *keyHex)
	if err != nil {
		return err
	}
	priv, err := gmsm.NewPrivateKey(d)
	if err != nil {
		return err
	}
	defer priv.Destroy()

	signer, err := gmsm.NewSigner(priv, f.options()...)
	if err != nil {
		return err
	}
	n, err := e.copyMessage(signer, *f.in)
	if err != nil {
		return err
	}
	sig, err := signer.Sign()
	if err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "%x\n", sig)
	e.log.Info("sm2 sign", "bytes", n, "raw", *f.raw)
	return nil
}

func (e *env) sm2Verify(args []string) error {
	fs, f := e.sigFlagSet("sm2 verify")
	pubHex := fs.String("pub", "", "65-byte hex public key")
	sigHex := fs.String("sig", "", "hex signature")
	if err := f.parse(fs, args); err != nil {
		return err
	}
	q, err := decodeHexFlag("pub", *pubHex)
	if err != nil {
		return err
	}
	sig, err := decodeHexFlag("sig", *sigHex)
	if err != nil {
		return err
	}
	pub, err := gmsm.NewPublicKey(q)
	if err != nil {
		return err
	}
	v, err := gmsm.NewVerifier(pub, f.options()...)
	if err != nil {
		return err
	}
	n, err := e.copyMessage(v, *f.in)
	if err != nil {
		return err
	}
	if !v.Verify(sig) {
		fmt.Fprintln(e.stdout, "FAIL")
		e.log.Warn("sm2 verify failed", "bytes", n)
		return errVerifyFailed
	}
	fmt.Fprintln(e.stdout, "OK")
	e.log.Info("sm2 verify", "bytes", n)
	return nil
}

func (e *env) copyMessage(w io.Writer, name string) (int64, error) {
	in, err := e.openInput(name)
	if err != nil {
		return 0, err
	}
	defer in.Close()
	return io.Copy(w, in)
}

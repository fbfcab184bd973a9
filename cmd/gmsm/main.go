// Command gmsm hashes, encrypts and signs with the ShangMi algorithms.
//
//	gmsm [-v] sm3 [-hmac hexkey] [file...]
//	gmsm [-v] sm4 -key hex [-alg SM4/CBC/PKCS7Padding] [-iv hex] [-aad hex] [-tag n] [-d] [-in f] [-out f]
//	gmsm [-v] sm2 keygen
//	gmsm [-v] sm2 sign -key hex [-uid s] [-raw] [-in f]
//	gmsm [-v] sm2 verify -pub hex -sig hex [-uid s] [-raw] [-in f]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/opentoys/smcrypto/logx"
)

// errUsage is returned for bad command lines; the message is already printed.
var errUsage = errors.New("usage")

type env struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	log    *slog.Logger
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("gmsm", flag.ContinueOnError)
	fs.SetOutput(stderr)
	verbose := fs.Bool("v", false, "log every operation")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: gmsm [-v] sm3|sm4|sm2 [flags] [args]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	e := &env{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		log:    logx.NewLogger(stderr, logx.WithLevel(level), logx.WithSecrets("key", "priv")),
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return 2
	}
	var err error
	switch rest[0] {
	case "sm3":
		err = e.sm3(ctx, rest[1:])
	case "sm4":
		err = e.sm4(rest[1:])
	case "sm2":
		err = e.sm2(rest[1:])
	default:
		fs.Usage()
		return 2
	}
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
		return 2
	case errors.Is(err, errVerifyFailed):
		return 1
	}
	e.log.Error("gmsm failed", "cmd", rest[0], "err", err.Error())
	return 1
}

func newFlagSet(e *env, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	return fs
}

// parseFlags wraps flag parsing errors so run exits with status 2.
func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	return nil
}

// openInput returns stdin for "" or "-".
func (e *env) openInput(name string) (io.ReadCloser, error) {
	if name == "" || name == "-" {
		return io.NopCloser(e.stdin), nil
	}
	return os.Open(name)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func (e *env) openOutput(name string) (io.WriteCloser, error) {
	if name == "" || name == "-" {
		return nopWriteCloser{e.stdout}, nil
	}
	return os.Create(name)
}

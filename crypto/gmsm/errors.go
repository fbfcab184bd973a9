package gmsm

import "errors"

var (
	// ErrInvalidKey reports a key of the wrong length or out of range.
	ErrInvalidKey = errors.New("gmsm: invalid key")
	// ErrInvalidParameter reports a bad IV, tag size, uid, option or a misuse of a session.
	ErrInvalidParameter = errors.New("gmsm: invalid parameter")
	// ErrInvalidInputLength reports input that is not a whole number of blocks.
	ErrInvalidInputLength = errors.New("gmsm: invalid input length")
	// ErrBadPadding reports a malformed PKCS#7 trailer.
	ErrBadPadding = errors.New("gmsm: bad padding")
	// ErrAuthenticationFailed reports a GCM tag mismatch. No plaintext is released.
	ErrAuthenticationFailed = errors.New("gmsm: message authentication failed")
	// ErrEntropyFailure reports that the random source could not deliver bytes.
	ErrEntropyFailure = errors.New("gmsm: entropy source failure")
	// ErrInvalidOperand reports the inversion of zero.
	ErrInvalidOperand = errors.New("gmsm: invalid operand")
	// ErrPointAtInfinity reports an attempt to encode or use the identity point.
	ErrPointAtInfinity = errors.New("gmsm: point at infinity")
	// ErrNotOnCurve reports coordinates that do not satisfy the SM2 curve equation.
	ErrNotOnCurve = errors.New("gmsm: point not on curve")
)

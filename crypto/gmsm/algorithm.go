package gmsm

import (
	"fmt"
	"strings"
)

type sm4_mode int
type sm4_pkcs int

const (
	SM4_Mode_CBC sm4_mode = iota
	SM4_Mode_GCM
	SM4_Mode_CTR
	SM4_Mode_ECB
)

const (
	SM4_Padding_PKCS7 sm4_pkcs = iota
	SM4_Padding_None
)

func (m sm4_mode) String() string {
	switch m {
	case SM4_Mode_CBC:
		return "CBC"
	case SM4_Mode_GCM:
		return "GCM"
	case SM4_Mode_CTR:
		return "CTR"
	case SM4_Mode_ECB:
		return "ECB"
	}
	return fmt.Sprintf("sm4_mode(%d)", int(m))
}

// streaming reports whether the mode needs no padding at all.
func (m sm4_mode) streaming() bool {
	return m == SM4_Mode_CTR || m == SM4_Mode_GCM
}

func (p sm4_pkcs) String() string {
	switch p {
	case SM4_Padding_PKCS7:
		return "PKCS7Padding"
	case SM4_Padding_None:
		return "NoPadding"
	}
	return fmt.Sprintf("sm4_pkcs(%d)", int(p))
}

// AlgorithmKind names the primitive family of an Algorithm.
type AlgorithmKind int

const (
	KindSM2 AlgorithmKind = iota + 1
	KindSM3
	KindSM4
)

// Algorithm is one of the supported primitives. For SM4 it also carries the
// mode and padding; the combination is always valid once parsed.
type Algorithm struct {
	Kind    AlgorithmKind
	Mode    sm4_mode
	Padding sm4_pkcs
}

// ParseAlgorithm accepts "SM2", "SM3" and "SM4/<mode>/<padding>" where mode
// is ECB, CBC, CTR or GCM and padding is NoPadding or PKCS7Padding. Names
// are case-insensitive. CTR and GCM only take NoPadding.
func ParseAlgorithm(name string) (Algorithm, error) {
	parts := strings.Split(strings.TrimSpace(name), "/")
	switch {
	case len(parts) == 1 && strings.EqualFold(parts[0], "SM2"):
		return Algorithm{Kind: KindSM2}, nil
	case len(parts) == 1 && strings.EqualFold(parts[0], "SM3"):
		return Algorithm{Kind: KindSM3}, nil
	case len(parts) == 3 && strings.EqualFold(parts[0], "SM4"):
	default:
		return Algorithm{}, fmt.Errorf("unsupported algorithm %q: %w", name, ErrInvalidParameter)
	}

	a := Algorithm{Kind: KindSM4}
	switch strings.ToUpper(parts[1]) {
	case "ECB":
		a.Mode = SM4_Mode_ECB
	case "CBC":
		a.Mode = SM4_Mode_CBC
	case "CTR":
		a.Mode = SM4_Mode_CTR
	case "GCM":
		a.Mode = SM4_Mode_GCM
	default:
		return Algorithm{}, fmt.Errorf("unsupported sm4 mode %q: %w", parts[1], ErrInvalidParameter)
	}
	switch strings.ToUpper(parts[2]) {
	case "NOPADDING":
		a.Padding = SM4_Padding_None
	case "PKCS7PADDING":
		if a.Mode.streaming() {
			return Algorithm{}, fmt.Errorf("sm4 %s does not take padding: %w", a.Mode, ErrInvalidParameter)
		}
		a.Padding = SM4_Padding_PKCS7
	default:
		return Algorithm{}, fmt.Errorf("unsupported sm4 padding %q: %w", parts[2], ErrInvalidParameter)
	}
	return a, nil
}

func (a Algorithm) String() string {
	switch a.Kind {
	case KindSM2:
		return "SM2"
	case KindSM3:
		return "SM3"
	case KindSM4:
		return "SM4/" + a.Mode.String() + "/" + a.Padding.String()
	}
	return "unknown"
}

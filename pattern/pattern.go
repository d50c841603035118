// Package pattern builds search patterns and matches them against byte buffers
package pattern

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"memedit/process"
)

// Kind selects how a pattern is built and matched
type Kind int

const (
	KindExact Kind = iota
	KindFuzzy
	KindString
	KindInteger
)

func (k Kind) String() string {
	switch k {
	case KindExact:
		return "exact"
	case KindFuzzy:
		return "fuzzy"
	case KindString:
		return "string"
	case KindInteger:
		return "number"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind maps a mode name to a Kind
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "exact", "":
		return KindExact, nil
	case "fuzzy":
		return KindFuzzy, nil
	case "string", "text":
		return KindString, nil
	case "number", "integer", "int":
		return KindInteger, nil
	}
	return 0, fmt.Errorf("%w: unknown mode %q", process.ErrInvalidPattern, name)
}

// Spec is an immutable search pattern.
// Exact and fuzzy specs match identically; wildcards are allowed in both.
type Spec struct {
	kind          Kind
	aob           process.AOB
	text          string
	caseSensitive bool
	value         int64
	m             matcher
}

// NewExact builds an exact byte pattern from an AOB
func NewExact(aob process.AOB) (Spec, error) {
	return newBytes(KindExact, aob)
}

// NewFuzzy builds a fuzzy byte pattern from an AOB
func NewFuzzy(aob process.AOB) (Spec, error) {
	return newBytes(KindFuzzy, aob)
}

func newBytes(kind Kind, aob process.AOB) (Spec, error) {
	if aob.Len() == 0 {
		return Spec{}, fmt.Errorf("%w: empty pattern", process.ErrInvalidPattern)
	}
	if !aob.IsValid() {
		return Spec{}, fmt.Errorf("%w: mask length (%d) doesn't match pattern length (%d)",
			process.ErrInvalidPattern, len(aob.Mask), len(aob.Pattern))
	}

	pattern := make([]byte, aob.Len())
	mask := make([]byte, aob.Len())
	copy(pattern, aob.Pattern)
	copy(mask, aob.Mask)
	aob = process.AOB{Pattern: pattern, Mask: mask}

	return Spec{kind: kind, aob: aob, m: newMatcher(pattern, mask, false)}, nil
}

// NewString builds a UTF-8 text pattern. When caseSensitive is false ASCII letters are folded.
func NewString(text string, caseSensitive bool) (Spec, error) {
	if text == "" {
		return Spec{}, fmt.Errorf("%w: empty string", process.ErrInvalidPattern)
	}
	encoded := []byte(text)
	aob := process.ExactAOB(encoded)
	return Spec{
		kind:          KindString,
		aob:           aob,
		text:          text,
		caseSensitive: caseSensitive,
		m:             newMatcher(encoded, aob.Mask, !caseSensitive),
	}, nil
}

// NewInteger builds a pattern matching v as 8 little-endian bytes
func NewInteger(v int64) Spec {
	encoded := make([]byte, 8)
	binary.LittleEndian.PutUint64(encoded, uint64(v))
	aob := process.ExactAOB(encoded)
	return Spec{kind: KindInteger, aob: aob, value: v, m: newMatcher(encoded, aob.Mask, false)}
}

// ParseAOB parses whitespace separated two digit hex tokens where "??" is a wildcard
func ParseAOB(text string) (process.AOB, error) {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return process.AOB{}, fmt.Errorf("%w: empty pattern", process.ErrInvalidPattern)
	}

	aob := process.AOB{
		Pattern: make([]byte, len(tokens)),
		Mask:    make([]byte, len(tokens)),
	}
	for i, tok := range tokens {
		if tok == "??" {
			continue
		}
		if len(tok) != 2 {
			return process.AOB{}, fmt.Errorf("%w: token %d %q is not two hex digits", process.ErrInvalidPattern, i, tok)
		}
		b, err := strconv.ParseUint(tok, 16, 8)
		if err != nil {
			return process.AOB{}, fmt.Errorf("%w: token %d %q is not two hex digits", process.ErrInvalidPattern, i, tok)
		}
		aob.Pattern[i] = byte(b)
		aob.Mask[i] = 0xFF
	}
	return aob, nil
}

// ParseHex parses the hex grammar into an exact or fuzzy spec
func ParseHex(kind Kind, text string) (Spec, error) {
	aob, err := ParseAOB(text)
	if err != nil {
		return Spec{}, err
	}
	switch kind {
	case KindExact:
		return NewExact(aob)
	case KindFuzzy:
		return NewFuzzy(aob)
	}
	return Spec{}, fmt.Errorf("%w: %s is not a byte mode", process.ErrInvalidPattern, kind)
}

// ParseInteger accepts decimal, 0x hex, 0o octal and 0b binary, optionally signed
func ParseInteger(text string) (Spec, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Spec{}, fmt.Errorf("%w: empty number", process.ErrInvalidPattern)
	}
	v, err := strconv.ParseInt(text, 0, 64)
	if err != nil {
		return Spec{}, fmt.Errorf("%w: %w", process.ErrInvalidPattern, err)
	}
	return NewInteger(v), nil
}

// Parse builds a spec of the given kind from operator text
func Parse(kind Kind, text string, caseSensitive bool) (Spec, error) {
	switch kind {
	case KindExact, KindFuzzy:
		return ParseHex(kind, text)
	case KindString:
		return NewString(text, caseSensitive)
	case KindInteger:
		return ParseInteger(text)
	}
	return Spec{}, fmt.Errorf("%w: unknown kind %d", process.ErrInvalidPattern, int(kind))
}

func (s Spec) Kind() Kind {
	return s.kind
}

// Len is the number of bytes a match spans
func (s Spec) Len() int {
	return s.aob.Len()
}

// AOB returns a copy of the byte pattern and mask
func (s Spec) AOB() process.AOB {
	pattern := make([]byte, s.aob.Len())
	mask := make([]byte, s.aob.Len())
	copy(pattern, s.aob.Pattern)
	copy(mask, s.aob.Mask)
	return process.AOB{Pattern: pattern, Mask: mask}
}

// Bytes returns the concrete encoding of the pattern. Wildcard positions are zero.
func (s Spec) Bytes() []byte {
	out := make([]byte, s.aob.Len())
	copy(out, s.aob.Pattern)
	return out
}

// CaseSensitive reports whether a string spec compares letters exactly
func (s Spec) CaseSensitive() bool {
	return s.kind != KindString || s.caseSensitive
}

func (s Spec) String() string {
	switch s.kind {
	case KindString:
		return strconv.Quote(s.text)
	case KindInteger:
		return strconv.FormatInt(s.value, 10)
	}

	var sb strings.Builder
	for i := 0; i < s.aob.Len(); i++ {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if s.aob.IsWildcard(i) {
			sb.WriteString("??")
		} else {
			fmt.Fprintf(&sb, "%02X", s.aob.Pattern[i])
		}
	}
	return sb.String()
}

// Find returns every offset in buf where the pattern matches, overlapping matches included.
// A pattern longer than buf yields no matches.
func (s Spec) Find(buf []byte) []int {
	return s.m.find(buf)
}

package pattern

import "bytes"

type matcher struct {
	pattern []byte
	mask    []byte
	fold    bool
	anchor  int // index of a concrete byte usable with bytes.IndexByte, -1 if none
}

func newMatcher(pattern, mask []byte, fold bool) matcher {
	m := matcher{pattern: pattern, mask: mask, fold: fold, anchor: -1}
	if fold {
		folded := make([]byte, len(pattern))
		for i, b := range pattern {
			folded[i] = lower(b)
		}
		m.pattern = folded
	}

	for i := range m.pattern {
		if m.mask[i] == 0 {
			continue
		}
		if fold && isLetter(m.pattern[i]) {
			continue
		}
		m.anchor = i
		break
	}
	return m
}

func (m matcher) find(buf []byte) []int {
	n := len(m.pattern)
	if n == 0 || len(buf) < n {
		return nil
	}
	last := len(buf) - n

	var matches []int
	if m.anchor < 0 {
		for i := 0; i <= last; i++ {
			if m.matchAt(buf, i) {
				matches = append(matches, i)
			}
		}
		return matches
	}

	a, b := m.anchor, m.pattern[m.anchor]
	for i := 0; i <= last; i++ {
		j := bytes.IndexByte(buf[i+a:last+a+1], b)
		if j < 0 {
			break
		}
		i += j
		if m.matchAt(buf, i) {
			matches = append(matches, i)
		}
	}
	return matches
}

func (m matcher) matchAt(buf []byte, i int) bool {
	for j, p := range m.pattern {
		if m.mask[j] == 0 {
			continue
		}
		c := buf[i+j]
		if m.fold {
			c = lower(c)
		}
		if c != p {
			return false
		}
	}
	return true
}

func isLetter(b byte) bool {
	return ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}

func lower(b byte) byte {
	if 'A' <= b && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}

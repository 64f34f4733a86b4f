package entity

import (
	"strconv"
	"strings"
)

// Candidate returns the nth name tried for a player asking for base. The
// first candidate is base itself; later ones carry a numeric suffix.
func Candidate(base string, n int) string {
	if n <= 1 {
		return base
	}
	return base + "(" + strconv.Itoa(n) + ")"
}

// NamedAfter reports whether name is one of the candidates for base.
func NamedAfter(name, base string) bool {
	if name == base {
		return true
	}
	rest, ok := strings.CutPrefix(name, base+"(")
	if !ok {
		return false
	}
	digits, ok := strings.CutSuffix(rest, ")")
	if !ok {
		return false
	}
	n, err := strconv.Atoi(digits)
	return err == nil && n >= 2 && strconv.Itoa(n) == digits
}

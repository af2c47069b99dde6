package apo

import (
	"strings"
	"unicode"
)

// Classifier decides whether a query is gibberish. The grader short-circuits
// for gibberish: the correct agent behavior there is to call no tool at all.
//
// This is a heuristic placeholder; swapping in a model-backed classifier only
// requires providing a different function.
type Classifier func(query string) bool

// denylist holds keyboard-mash strings the heuristics alone miss.
var denylist = map[string]bool{
	"asdf":      true,
	"asdfgh":    true,
	"qwerty":    true,
	"zxcvbn":    true,
	"foo":       true,
	"foobar":    true,
	"test":      true,
	"testing":   true,
	"hello":     true,
	"hi":        true,
	"aaa":       true,
	"lorem":     true,
	"blah":      true,
	"gibberish": true,
}

// IsGibberish is the default Classifier: very short input, all digits, low
// character diversity, or a denylisted token.
func IsGibberish(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if len(q) < 3 {
		return true
	}
	if denylist[q] {
		return true
	}

	allDigits := true
	distinct := make(map[rune]bool)
	for _, r := range q {
		if !unicode.IsDigit(r) {
			allDigits = false
		}
		if !unicode.IsSpace(r) {
			distinct[r] = true
		}
	}
	if allDigits {
		return true
	}

	// "aaaaaaa" or "ababab": long input drawing on almost no alphabet.
	if len(q) >= 8 && len(distinct) <= 3 {
		return true
	}
	return false
}

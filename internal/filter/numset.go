package filter

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ParseError reports a malformed token in a number filter list.
type ParseError struct {
	Token string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid number token %q: %v", e.Token, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var rangeRe = regexp.MustCompile(`^\s*(-?\d+)\s*-\s*(-?\d+)\s*$`)

// ParseNumberSet expands a list of integer and range tokens into a sorted,
// deduplicated slice of integers. A token of the form "beg-end" (whitespace
// around the dash allowed) expands to the inclusive range [beg, end]; a range
// with beg > end is empty. Any other token must parse as a single integer.
func ParseNumberSet(tokens []string) ([]int, error) {
	seen := make(map[int]struct{})
	for _, tok := range tokens {
		if m := rangeRe.FindStringSubmatch(tok); m != nil {
			beg, err := strconv.Atoi(m[1])
			if err != nil {
				return nil, &ParseError{Token: tok, Err: err}
			}
			end, err := strconv.Atoi(m[2])
			if err != nil {
				return nil, &ParseError{Token: tok, Err: err}
			}
			for n := beg; n <= end; n++ {
				seen[n] = struct{}{}
			}
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(tok))
		if err != nil {
			return nil, &ParseError{Token: tok, Err: err}
		}
		seen[n] = struct{}{}
	}

	out := make([]int, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Ints(out)
	return out, nil
}

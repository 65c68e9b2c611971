// Package filter decides which fetched records survive a target's configured
// filter stages. The numbers, labels, and strings predicates run in that
// fixed order; each predicate only runs while the record is still appendable,
// so a drop decision short-circuits the rest of the chain.
package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gh2csv/gh2csv/internal/models"
)

// Spec holds the optional filter stages configured for one target. The State
// value is forwarded verbatim to the data source as a query constraint and is
// never evaluated locally.
type Spec struct {
	State   string
	Numbers []string
	Labels  []string
	Strings []string
}

// decision is the outcome of one predicate for one record.
type decision int

const (
	// pass leaves the appendable flag untouched.
	pass decision = iota
	keep
	drop
)

// allRe matches the sentinel that disables a predicate ("all" anywhere in the
// joined configured list, case-insensitive).
var allRe = regexp.MustCompile(`(?i)all`)

func matchesAll(tokens []string) bool {
	return allRe.MatchString(strings.Join(tokens, ";"))
}

// stringToken is a compiled strings-predicate entry.
type stringToken struct {
	re        *regexp.Regexp
	exclusion bool
}

// Engine evaluates records against one compiled Spec. Compile once per
// target; a malformed spec surfaces here, before any record is examined.
type Engine struct {
	hasNumbers bool
	numbersAll bool
	numbers    map[int]struct{}

	hasLabels bool
	labelsAll bool
	labels    []string

	hasStrings bool
	stringsAll bool
	strings    []stringToken
}

// NewEngine compiles spec into an Engine. A nil spec keeps every record.
// Number tokens are expanded through ParseNumberSet; string tokens are
// treated as regular expressions after stripping a leading "-" exclusion
// prefix.
func NewEngine(spec *Spec) (*Engine, error) {
	e := &Engine{}
	if spec == nil {
		return e, nil
	}

	if len(spec.Numbers) > 0 {
		e.hasNumbers = true
		e.numbersAll = matchesAll(spec.Numbers)
		if !e.numbersAll {
			nums, err := ParseNumberSet(spec.Numbers)
			if err != nil {
				return nil, err
			}
			e.numbers = make(map[int]struct{}, len(nums))
			for _, n := range nums {
				e.numbers[n] = struct{}{}
			}
		}
	}

	if len(spec.Labels) > 0 {
		e.hasLabels = true
		e.labelsAll = matchesAll(spec.Labels)
		e.labels = spec.Labels
	}

	if len(spec.Strings) > 0 {
		e.hasStrings = true
		e.stringsAll = matchesAll(spec.Strings)
		for _, s := range spec.Strings {
			tok := stringToken{}
			if strings.HasPrefix(s, "-") {
				tok.exclusion = true
				s = strings.TrimLeft(s, "-")
			}
			re, err := regexp.Compile(s)
			if err != nil {
				return nil, fmt.Errorf("invalid string filter %q: %w", s, err)
			}
			tok.re = re
			e.strings = append(e.strings, tok)
		}
	}

	return e, nil
}

// Keep reports whether rec survives the compiled filter stages. The record
// starts appendable; each enabled predicate runs only while it still is, and
// folds its decision into the flag.
func (e *Engine) Keep(rec *models.Record) bool {
	appendable := true

	if appendable && e.hasNumbers {
		appendable = fold(appendable, e.evalNumbers(rec))
	}
	if appendable && e.hasLabels {
		appendable = fold(appendable, e.evalLabels(rec))
	}
	if appendable && e.hasStrings {
		appendable = fold(appendable, e.evalStrings(rec))
	}

	return appendable
}

func fold(appendable bool, d decision) bool {
	switch d {
	case keep:
		return true
	case drop:
		return false
	}
	return appendable
}

// evalNumbers keeps a record only if its number is a member of the configured
// set. The "all" sentinel turns the predicate into a no-op.
func (e *Engine) evalNumbers(rec *models.Record) decision {
	if e.numbersAll {
		return pass
	}
	if _, ok := e.numbers[rec.Number]; ok {
		return keep
	}
	return drop
}

// evalLabels defaults to drop (keep under the "all" sentinel), then walks the
// record's label names in order: an exclusion match ("-name" configured)
// drops immediately, a plain match flips the decision to keep but stays open
// to a later exclusion.
func (e *Engine) evalLabels(rec *models.Record) decision {
	d := drop
	if e.labelsAll {
		d = keep
	}
	for _, name := range rec.LabelNames {
		if contains(e.labels, "-"+name) {
			return drop
		}
		if contains(e.labels, name) {
			d = keep
		}
	}
	return d
}

// evalStrings defaults to drop (keep under the "all" sentinel), then tests
// each configured pattern against title and body: an exclusion match drops
// immediately, a plain match flips the decision to keep.
func (e *Engine) evalStrings(rec *models.Record) decision {
	d := drop
	if e.stringsAll {
		d = keep
	}
	for _, tok := range e.strings {
		if tok.re.MatchString(rec.Title) || tok.re.MatchString(rec.Body) {
			if tok.exclusion {
				return drop
			}
			d = keep
		}
	}
	return d
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

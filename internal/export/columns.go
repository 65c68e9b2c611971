package export

import (
	"fmt"
	"regexp"
)

// Row is anything that can resolve a source field name to a string value.
// Normalized records and time-series summaries both satisfy it.
type Row interface {
	Field(name string) (string, bool)
}

// Column maps a record source field to the header written for it.
type Column struct {
	Field  string
	Header string
}

// MissingFieldError reports an export column referencing a field the record
// does not have.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("record has no field %q", e.Field)
}

var colSplitRe = regexp.MustCompile(`\s*;\s*`)

// ParseColumns turns configured "sourceField[; displayHeader]" tokens into
// ordered columns. A token without a header uses the field name as header.
func ParseColumns(tokens []string) []Column {
	cols := make([]Column, 0, len(tokens))
	for _, tok := range tokens {
		parts := colSplitRe.Split(tok, -1)
		col := Column{Field: parts[0], Header: parts[0]}
		if len(parts) >= 2 && parts[1] != "" {
			col.Header = parts[1]
		}
		cols = append(cols, col)
	}
	return cols
}

// Package export writes filtered records and time-series summaries to
// delimited output files. In time-series append mode the last persisted row's
// date/time columns are read back so a run landing in the same slot does not
// produce a duplicate row.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// Exporter writes rows for one target to its destination file.
type Exporter struct {
	// Path is the destination file.
	Path string
	// Encoding is an IANA charset name for the output; empty or "utf-8"
	// writes plain UTF-8.
	Encoding string
	// TimeSeries enables append mode with last-row deduplication once the
	// destination exists.
	TimeSeries bool

	Logger *slog.Logger
}

// Export writes rows in the configured column order and returns the number of
// rows written. Outside time-series mode, or when the destination does not
// exist yet, the file is truncated and a header row is written first. In
// time-series append mode rows whose date/time columns both equal the last
// persisted row's values are skipped.
func (e *Exporter) Export(rows []Row, cols []Column) (int, error) {
	enc, err := e.lookupEncoding()
	if err != nil {
		return 0, err
	}

	appendMode := false
	lastDate, lastTime := "", ""
	dateIdx, timeIdx := dateTimeColumns(cols)
	if e.TimeSeries {
		if _, err := os.Stat(e.Path); err == nil {
			appendMode = true
			lastDate, lastTime, err = e.readLastRow(enc, dateIdx, timeIdx)
			if err != nil {
				return 0, err
			}
		}
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if appendMode {
		flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	}
	f, err := os.OpenFile(e.Path, flags, 0644)
	if err != nil {
		return 0, fmt.Errorf("failed to open output file: %w", err)
	}
	defer f.Close()

	var out io.Writer = f
	if enc != nil {
		out = transform.NewWriter(f, enc.NewEncoder())
	}
	w := csv.NewWriter(out)

	if !appendMode {
		headers := make([]string, len(cols))
		for i, col := range cols {
			headers[i] = col.Header
		}
		if err := w.Write(headers); err != nil {
			return 0, fmt.Errorf("failed to write header: %w", err)
		}
	}

	written := 0
	for _, row := range rows {
		values, err := assemble(row, cols)
		if err != nil {
			w.Flush()
			return written, err
		}
		if skip(values, dateIdx, timeIdx, lastDate, lastTime) {
			continue
		}
		if err := w.Write(values); err != nil {
			return written, fmt.Errorf("failed to write row: %w", err)
		}
		written++
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return written, fmt.Errorf("failed to flush output: %w", err)
	}

	verb := "generated"
	if appendMode {
		verb = "updated"
	}
	e.logger().Info("output file "+verb, "path", e.Path, "rows", written)
	return written, nil
}

func (e *Exporter) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

func (e *Exporter) lookupEncoding() (encoding.Encoding, error) {
	name := strings.ToLower(strings.TrimSpace(e.Encoding))
	if name == "" || name == "utf-8" || name == "utf8" {
		return nil, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown output encoding %q: %w", e.Encoding, err)
	}
	return enc, nil
}

// assemble resolves every configured column against the row before anything
// is written, so a missing field never leaves a partial row behind.
func assemble(row Row, cols []Column) ([]string, error) {
	values := make([]string, len(cols))
	for i, col := range cols {
		v, ok := row.Field(col.Field)
		if !ok {
			return nil, &MissingFieldError{Field: col.Field}
		}
		values[i] = v
	}
	return values, nil
}

// dateTimeColumns finds the first configured column whose source field name
// contains "date" and the first whose name contains "time", case-insensitive.
// At most one of each is tracked for deduplication.
func dateTimeColumns(cols []Column) (dateIdx, timeIdx int) {
	dateIdx, timeIdx = -1, -1
	for i, col := range cols {
		name := strings.ToLower(col.Field)
		if dateIdx < 0 && strings.Contains(name, "date") {
			dateIdx = i
		}
		if timeIdx < 0 && strings.Contains(name, "time") {
			timeIdx = i
		}
	}
	return dateIdx, timeIdx
}

// skip reports whether a row duplicates the last persisted row. With both a
// date and a time column present, both must match; with only one, that one
// decides; with neither, nothing is ever skipped.
func skip(values []string, dateIdx, timeIdx int, lastDate, lastTime string) bool {
	sameDate := false
	hasDate := false
	if lastDate != "" && dateIdx >= 0 && dateIdx < len(values) && values[dateIdx] != "" {
		hasDate = true
		sameDate = values[dateIdx] == lastDate
	}
	sameTime := false
	hasTime := false
	if lastTime != "" && timeIdx >= 0 && timeIdx < len(values) && values[timeIdx] != "" {
		hasTime = true
		sameTime = values[timeIdx] == lastTime
	}

	switch {
	case hasDate && hasTime:
		return sameDate && sameTime
	case hasDate:
		return sameDate
	case hasTime:
		return sameTime
	}
	return false
}

// readLastRow recovers the date/time column values from the destination's
// final line.
func (e *Exporter) readLastRow(enc encoding.Encoding, dateIdx, timeIdx int) (string, string, error) {
	data, err := os.ReadFile(e.Path)
	if err != nil {
		return "", "", fmt.Errorf("failed to read output file: %w", err)
	}
	if enc != nil {
		data, err = enc.NewDecoder().Bytes(data)
		if err != nil {
			return "", "", fmt.Errorf("failed to decode output file: %w", err)
		}
	}

	lines := strings.Split(strings.TrimRight(string(data), "\r\n"), "\n")
	last := strings.TrimRight(lines[len(lines)-1], "\r")
	if last == "" {
		return "", "", nil
	}

	fields, err := csv.NewReader(strings.NewReader(last)).Read()
	if err != nil {
		return "", "", fmt.Errorf("failed to parse last row: %w", err)
	}

	lastDate, lastTime := "", ""
	if dateIdx >= 0 && dateIdx < len(fields) {
		lastDate = strings.TrimSpace(fields[dateIdx])
	}
	if timeIdx >= 0 && timeIdx < len(fields) {
		lastTime = strings.TrimSpace(fields[timeIdx])
	}
	return lastDate, lastTime, nil
}

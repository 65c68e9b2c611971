// Package timeseries collapses a run's kept records into a single timestamped
// summary of counts by state.
package timeseries

import (
	"strings"
	"time"

	"github.com/gh2csv/gh2csv/internal/models"
)

// Layouts used for the summary's date and time columns.
const (
	DateLayout = "2006/01/02"
	TimeLayout = "15:04:05"
)

// Aggregate counts records by state and returns one summary record stamped
// with now. State matching is a substring search, not equality: any state
// value containing "open" counts as open, and likewise for "closed".
func Aggregate(records []*models.Record, now time.Time) *models.Summary {
	s := &models.Summary{
		Date: now.Format(DateLayout),
		Time: now.Format(TimeLayout),
	}
	for _, rec := range records {
		s.NumAll++
		if strings.Contains(rec.State, "open") {
			s.NumOpen++
		}
		if strings.Contains(rec.State, "closed") {
			s.NumClosed++
		}
	}
	return s
}

package models

import (
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is how shifted timestamps are rendered in exported rows.
const TimestampLayout = "2006-01-02 15:04:05"

// Label represents a label attached to a fetched record.
type Label struct {
	ID    int64
	Name  string
	Color string
}

// RawRecord is a provider record (issue or pull request) as fetched from the
// source, before normalization. Timestamps are the source's UTC instants.
type RawRecord struct {
	ID        int64
	Number    int
	Title     string
	Body      string
	State     string
	Labels    []Label
	User      string
	URL       string
	HTMLURL   string
	Comments  int
	Milestone string
	CreatedAt *time.Time
	UpdatedAt *time.Time
	ClosedAt  *time.Time
}

// Record is a normalized record: timestamps shifted to the configured UTC
// offset, labels flattened into a display string plus an ordered name list.
type Record struct {
	ID         int64
	Number     int
	Title      string
	Body       string
	State      string
	Labels     string
	LabelNames []string
	User       string
	URL        string
	HTMLURL    string
	Comments   int
	Milestone  string
	CreatedAt  *time.Time
	UpdatedAt  *time.Time
	ClosedAt   *time.Time
}

// Normalize shifts the record's timestamps by utcOffsetHours and flattens its
// labels. The label-object list is discarded in favor of LabelNames and the
// comma-joined Labels display string. Normalization happens exactly once per
// record, before any filtering.
func (r *RawRecord) Normalize(utcOffsetHours int) *Record {
	names := make([]string, 0, len(r.Labels))
	for _, lab := range r.Labels {
		names = append(names, lab.Name)
	}

	return &Record{
		ID:         r.ID,
		Number:     r.Number,
		Title:      r.Title,
		Body:       r.Body,
		State:      r.State,
		Labels:     strings.Join(names, ", "),
		LabelNames: names,
		User:       r.User,
		URL:        r.URL,
		HTMLURL:    r.HTMLURL,
		Comments:   r.Comments,
		Milestone:  r.Milestone,
		CreatedAt:  shift(r.CreatedAt, utcOffsetHours),
		UpdatedAt:  shift(r.UpdatedAt, utcOffsetHours),
		ClosedAt:   shift(r.ClosedAt, utcOffsetHours),
	}
}

func shift(t *time.Time, hours int) *time.Time {
	if t == nil {
		return nil
	}
	shifted := t.Add(time.Duration(hours) * time.Hour)
	return &shifted
}

// Field returns the record attribute named by the source field name used in
// export column specs. The names match the provider's JSON attribute names.
func (r *Record) Field(name string) (string, bool) {
	switch name {
	case "id":
		return strconv.FormatInt(r.ID, 10), true
	case "number":
		return strconv.Itoa(r.Number), true
	case "title":
		return r.Title, true
	case "body":
		return r.Body, true
	case "state":
		return r.State, true
	case "labels":
		return r.Labels, true
	case "user":
		return r.User, true
	case "url":
		return r.URL, true
	case "html_url":
		return r.HTMLURL, true
	case "comments":
		return strconv.Itoa(r.Comments), true
	case "milestone":
		return r.Milestone, true
	case "created_at":
		return formatTimestamp(r.CreatedAt), true
	case "updated_at":
		return formatTimestamp(r.UpdatedAt), true
	case "closed_at":
		return formatTimestamp(r.ClosedAt), true
	}
	return "", false
}

func formatTimestamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(TimestampLayout)
}

// Summary is the single synthetic record produced per run in time-series
// mode: a timestamped snapshot of record counts by state.
type Summary struct {
	Date      string
	Time      string
	NumAll    int
	NumOpen   int
	NumClosed int
}

// Field returns the summary attribute named by the source field name used in
// export column specs.
func (s *Summary) Field(name string) (string, bool) {
	switch name {
	case "date":
		return s.Date, true
	case "time":
		return s.Time, true
	case "num_iss_all":
		return strconv.Itoa(s.NumAll), true
	case "num_iss_open":
		return strconv.Itoa(s.NumOpen), true
	case "num_iss_closed":
		return strconv.Itoa(s.NumClosed), true
	}
	return "", false
}

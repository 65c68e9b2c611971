package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func utc(value string) *time.Time {
	t, err := time.Parse("2006-01-02T15:04:05Z", value)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestNormalize_ShiftsTimestamps(t *testing.T) {
	raw := &RawRecord{
		Number:    7,
		CreatedAt: utc("2024-01-01T20:30:00Z"),
		UpdatedAt: utc("2024-01-02T01:00:00Z"),
	}

	rec := raw.Normalize(9)

	require.NotNil(t, rec.CreatedAt)
	assert.Equal(t, "2024-01-02 05:30:00", rec.CreatedAt.Format(TimestampLayout))
	require.NotNil(t, rec.UpdatedAt)
	assert.Equal(t, "2024-01-02 10:00:00", rec.UpdatedAt.Format(TimestampLayout))
	assert.Nil(t, rec.ClosedAt)
}

func TestNormalize_NegativeOffset(t *testing.T) {
	raw := &RawRecord{CreatedAt: utc("2024-06-15T03:00:00Z")}

	rec := raw.Normalize(-5)

	assert.Equal(t, "2024-06-14 22:00:00", rec.CreatedAt.Format(TimestampLayout))
}

func TestNormalize_FlattensLabels(t *testing.T) {
	raw := &RawRecord{
		Labels: []Label{
			{Name: "bug"},
			{Name: "help wanted"},
			{Name: "p1"},
		},
	}

	rec := raw.Normalize(0)

	assert.Equal(t, []string{"bug", "help wanted", "p1"}, rec.LabelNames)
	assert.Equal(t, "bug, help wanted, p1", rec.Labels)
}

func TestNormalize_NoLabels(t *testing.T) {
	rec := (&RawRecord{}).Normalize(0)

	assert.Empty(t, rec.LabelNames)
	assert.Equal(t, "", rec.Labels)
}

func TestRecordField(t *testing.T) {
	rec := (&RawRecord{
		ID:       42,
		Number:   7,
		Title:    "a title",
		Body:     "a body",
		State:    "open",
		User:     "octocat",
		Comments: 3,
		Labels:   []Label{{Name: "bug"}},
		ClosedAt: utc("2024-03-01T12:00:00Z"),
	}).Normalize(0)

	cases := map[string]string{
		"id":         "42",
		"number":     "7",
		"title":      "a title",
		"body":       "a body",
		"state":      "open",
		"user":       "octocat",
		"comments":   "3",
		"labels":     "bug",
		"closed_at":  "2024-03-01 12:00:00",
		"created_at": "",
	}
	for name, want := range cases {
		v, ok := rec.Field(name)
		require.True(t, ok, "field %q", name)
		assert.Equal(t, want, v, "field %q", name)
	}

	_, ok := rec.Field("nonexistent")
	assert.False(t, ok)
}

func TestSummaryField(t *testing.T) {
	s := &Summary{
		Date:      "2024/01/02",
		Time:      "03:04:05",
		NumAll:    10,
		NumOpen:   6,
		NumClosed: 4,
	}

	cases := map[string]string{
		"date":           "2024/01/02",
		"time":           "03:04:05",
		"num_iss_all":    "10",
		"num_iss_open":   "6",
		"num_iss_closed": "4",
	}
	for name, want := range cases {
		v, ok := s.Field(name)
		require.True(t, ok, "field %q", name)
		assert.Equal(t, want, v, "field %q", name)
	}

	_, ok := s.Field("number")
	assert.False(t, ok)
}

package timeseries

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/gh2csv/gh2csv/internal/models"
)

func stated(states ...string) []*models.Record {
	recs := make([]*models.Record, len(states))
	for i, s := range states {
		recs[i] = &models.Record{State: s}
	}
	return recs
}

func TestAggregate_Counts(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	s := Aggregate(stated("open", "open", "closed"), now)

	assert.Equal(t, 3, s.NumAll)
	assert.Equal(t, 2, s.NumOpen)
	assert.Equal(t, 1, s.NumClosed)
	assert.Equal(t, "2024/01/02", s.Date)
	assert.Equal(t, "03:04:05", s.Time)
}

func TestAggregate_LooseStateMatching(t *testing.T) {
	// State matching is a substring search, so "reopened" counts as open.
	s := Aggregate(stated("reopened", "half-closed", "weird"), time.Now())

	assert.Equal(t, 3, s.NumAll)
	assert.Equal(t, 1, s.NumOpen)
	assert.Equal(t, 1, s.NumClosed)
}

func TestAggregate_Empty(t *testing.T) {
	s := Aggregate(nil, time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC))

	assert.Equal(t, 0, s.NumAll)
	assert.Equal(t, 0, s.NumOpen)
	assert.Equal(t, 0, s.NumClosed)
	assert.Equal(t, "2024/05/06", s.Date)
}

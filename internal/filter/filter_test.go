package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gh2csv/gh2csv/internal/models"
)

func record(number int, title, body string, labels ...string) *models.Record {
	return &models.Record{
		Number:     number,
		Title:      title,
		Body:       body,
		LabelNames: labels,
	}
}

func engine(t *testing.T, spec *Spec) *Engine {
	t.Helper()
	e, err := NewEngine(spec)
	require.NoError(t, err)
	return e
}

func TestKeep_NilSpecKeepsEverything(t *testing.T) {
	e := engine(t, nil)
	assert.True(t, e.Keep(record(1, "anything", "")))
}

func TestKeep_NumbersMembership(t *testing.T) {
	e := engine(t, &Spec{Numbers: []string{"1", "7-9"}})

	assert.True(t, e.Keep(record(7, "", "")))
	assert.True(t, e.Keep(record(1, "", "")))
	assert.False(t, e.Keep(record(10, "", "")))
}

func TestKeep_NumbersAllSentinel(t *testing.T) {
	e := engine(t, &Spec{Numbers: []string{"all"}})

	assert.True(t, e.Keep(record(1, "", "")))
	assert.True(t, e.Keep(record(424242, "", "")))
}

func TestKeep_NumbersAllSentinelIsCaseInsensitive(t *testing.T) {
	e := engine(t, &Spec{Numbers: []string{"ALL"}})
	assert.True(t, e.Keep(record(3, "", "")))
}

func TestKeep_LabelsInclusion(t *testing.T) {
	e := engine(t, &Spec{Labels: []string{"bug"}})

	assert.True(t, e.Keep(record(1, "", "", "bug", "wontfix")))
	assert.False(t, e.Keep(record(2, "", "", "enhancement")))
	assert.False(t, e.Keep(record(3, "", "")))
}

func TestKeep_LabelsExclusionWinsOverEarlierKeep(t *testing.T) {
	e := engine(t, &Spec{Labels: []string{"bug", "-wontfix"}})

	// "bug" matches first and flips the decision to keep, but the later
	// "wontfix" exclusion force-drops regardless.
	assert.False(t, e.Keep(record(1, "", "", "bug", "wontfix")))
	assert.True(t, e.Keep(record(2, "", "", "bug")))
}

func TestKeep_LabelsAllSentinelWithExclusion(t *testing.T) {
	e := engine(t, &Spec{Labels: []string{"all", "-invalid"}})

	assert.True(t, e.Keep(record(1, "", "", "anything")))
	assert.True(t, e.Keep(record(2, "", "")))
	assert.False(t, e.Keep(record(3, "", "", "invalid")))
}

func TestKeep_StringsInclusion(t *testing.T) {
	e := engine(t, &Spec{Strings: []string{"DCPS"}})

	assert.True(t, e.Keep(record(1, "DCPS converter", "")))
	assert.True(t, e.Keep(record(2, "", "about DCPS timing")))
	assert.False(t, e.Keep(record(3, "unrelated", "nothing")))
}

func TestKeep_StringsExclusionShortCircuits(t *testing.T) {
	e := engine(t, &Spec{Strings: []string{"-BT", "DCPS"}})

	// The exclusion token matches the body and drops the record even though
	// the inclusion token also matches the title.
	assert.False(t, e.Keep(record(1, "DCPS notes", "uses BT internally")))
	assert.True(t, e.Keep(record(2, "DCPS notes", "clean")))
}

func TestKeep_StringsAreRegularExpressions(t *testing.T) {
	e := engine(t, &Spec{Strings: []string{`v[0-9]+\.[0-9]+`}})

	assert.True(t, e.Keep(record(1, "crash in v1.2", "")))
	assert.False(t, e.Keep(record(2, "crash in version two", "")))
}

func TestKeep_DropShortCircuitsLaterPredicates(t *testing.T) {
	// The record's label would satisfy the labels predicate, but the numbers
	// predicate drops first and the chain never reaches it.
	e := engine(t, &Spec{
		Numbers: []string{"5"},
		Labels:  []string{"bug"},
	})

	assert.False(t, e.Keep(record(1, "", "", "bug")))
	assert.True(t, e.Keep(record(5, "", "", "bug")))
}

func TestKeep_LaterPredicateCanDropAKeptRecord(t *testing.T) {
	e := engine(t, &Spec{
		Numbers: []string{"1-10"},
		Strings: []string{"-secret"},
	})

	assert.False(t, e.Keep(record(5, "contains secret", "")))
	assert.True(t, e.Keep(record(5, "ordinary", "")))
}

func TestNewEngine_InvalidNumberToken(t *testing.T) {
	_, err := NewEngine(&Spec{Numbers: []string{"abc"}})
	require.Error(t, err)
}

func TestNewEngine_InvalidStringPattern(t *testing.T) {
	_, err := NewEngine(&Spec{Strings: []string{"("}})
	require.Error(t, err)
}

func TestKeep_DoesNotTouchTitleOrBody(t *testing.T) {
	e := engine(t, &Spec{Strings: []string{"-BT"}})
	rec := record(1, "title BT", "body BT")
	e.Keep(rec)

	assert.Equal(t, "title BT", rec.Title)
	assert.Equal(t, "body BT", rec.Body)
}

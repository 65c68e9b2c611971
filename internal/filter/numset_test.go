package filter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumberSet_SinglesAndRange(t *testing.T) {
	nums, err := ParseNumberSet([]string{"1", "3-5", "5"})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 4, 5}, nums)
}

func TestParseNumberSet_WhitespaceAroundDash(t *testing.T) {
	nums, err := ParseNumberSet([]string{" 2 - 4 "})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 4}, nums)
}

func TestParseNumberSet_DedupAndSort(t *testing.T) {
	nums, err := ParseNumberSet([]string{"9", "1", "9", "2-3", "2"})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 9}, nums)
}

func TestParseNumberSet_ReversedRangeIsEmpty(t *testing.T) {
	nums, err := ParseNumberSet([]string{"5-3"})
	require.NoError(t, err)
	assert.Empty(t, nums)
}

func TestParseNumberSet_InvalidToken(t *testing.T) {
	_, err := ParseNumberSet([]string{"1", "x"})
	require.Error(t, err)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "x", parseErr.Token)
}

func TestParseNumberSet_Empty(t *testing.T) {
	nums, err := ParseNumberSet(nil)
	require.NoError(t, err)
	assert.Empty(t, nums)
}

package core_test

import (
	"errors"
	"testing"

	"github.com/book-expert/specter-content/internal/core"
	"github.com/stretchr/testify/assert"
)

func TestTally_Counts(t *testing.T) {
	t.Parallel()

	tally := core.Tally{RunID: "run-1"}
	tally.Succeed()
	tally.Succeed()
	tally.Skip()
	tally.Miss()
	tally.Fail("a.png", errors.New("boom"))

	assert.Equal(t, 2, tally.Succeeded)
	assert.Equal(t, 1, tally.Skipped)
	assert.Equal(t, 1, tally.Missing)
	assert.Equal(t, 1, tally.Failed())
	assert.Equal(t, 5, tally.Total())
	assert.Equal(t, "a.png", tally.Failures[0].Item)
	assert.Equal(t, "run run-1: 2 succeeded, 1 skipped, 1 missing, 1 failed", tally.String())
}

package core

import "fmt"

// Failure records a single item that could not be processed.
type Failure struct {
	Item string
	Err  error
}

// Tally counts the outcome of a batch run. Every batch loop records one
// outcome per item and keeps going.
type Tally struct {
	RunID     string
	Succeeded int
	Skipped   int
	Missing   int
	Failures  []Failure
}

// Succeed records a processed item.
func (t *Tally) Succeed() {
	t.Succeeded++
}

// Skip records an item that needed no work.
func (t *Tally) Skip() {
	t.Skipped++
}

// Miss records an item whose input was absent.
func (t *Tally) Miss() {
	t.Missing++
}

// Fail records an item that failed.
func (t *Tally) Fail(item string, err error) {
	t.Failures = append(t.Failures, Failure{Item: item, Err: err})
}

// Failed returns the number of failed items.
func (t *Tally) Failed() int {
	return len(t.Failures)
}

// Total returns the number of items that were recorded.
func (t *Tally) Total() int {
	return t.Succeeded + t.Skipped + t.Missing + t.Failed()
}

func (t *Tally) String() string {
	return fmt.Sprintf("run %s: %d succeeded, %d skipped, %d missing, %d failed",
		t.RunID, t.Succeeded, t.Skipped, t.Missing, t.Failed())
}

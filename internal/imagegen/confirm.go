package imagegen

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/book-expert/specter-content/internal/core"
)

// LineConfirmer asks on out and reads the answer from in. Only "y",
// trimmed and in any case, is a yes. End of input counts as no.
type LineConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

var _ core.Confirmer = (*LineConfirmer)(nil)

// NewLineConfirmer creates a confirmer over the given streams.
func NewLineConfirmer(in io.Reader, out io.Writer) *LineConfirmer {
	return &LineConfirmer{in: bufio.NewReader(in), out: out}
}

// Confirm prints prompt and reads one line.
func (c *LineConfirmer) Confirm(prompt string) (bool, error) {
	fmt.Fprint(c.out, prompt)

	line, err := c.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}

	return strings.EqualFold(strings.TrimSpace(line), "y"), nil
}

// AutoConfirm answers yes without asking.
type AutoConfirm struct{}

// Confirm always returns true.
func (AutoConfirm) Confirm(string) (bool, error) {
	return true, nil
}

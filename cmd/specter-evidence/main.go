// Command specter-evidence links generated images to the evidence records.
package main

import (
	"os"

	"github.com/book-expert/specter-content/internal/cli"
)

func main() {
	deps := cli.DefaultDeps()
	os.Exit(cli.Execute(cli.NewEvidenceCommand(deps), deps.Stderr))
}

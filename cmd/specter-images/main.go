// Command specter-images generates the evidence images that are still missing.
package main

import (
	"os"

	"github.com/book-expert/specter-content/internal/cli"
)

func main() {
	deps := cli.DefaultDeps()
	os.Exit(cli.Execute(cli.NewImagesCommand(deps), deps.Stderr))
}

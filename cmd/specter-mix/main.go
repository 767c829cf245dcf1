// Command specter-mix assembles the Blackwood recording.
package main

import (
	"os"

	"github.com/book-expert/specter-content/internal/cli"
)

func main() {
	deps := cli.DefaultDeps()
	os.Exit(cli.Execute(cli.NewMixCommand(deps), deps.Stderr))
}

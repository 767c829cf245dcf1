// Command specter-voices lists speech voices and generates the dialogue clips.
package main

import (
	"os"

	"github.com/book-expert/specter-content/internal/cli"
)

func main() {
	deps := cli.DefaultDeps()
	os.Exit(cli.Execute(cli.NewVoicesCommand(deps), deps.Stderr))
}

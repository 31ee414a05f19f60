// Command sandexec supervises shell processes behind a Unix socket daemon.
package main

import (
	"os"

	"github.com/tessro/sandexec/internal/cli"
)

func main() {
	os.Exit(cli.ExitCode(cli.Execute()))
}

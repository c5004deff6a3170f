package main

import (
	"os"

	"github.com/docsweep/docsweep/cli"
)

func main() {
	os.Exit(cli.Run())
}

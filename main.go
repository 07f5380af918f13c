package main

import (
	"os"

	"github.com/macsnap/macsnap/pkg/cli"
)

var version = "1.0.0"

func main() {
	if err := cli.Execute(version); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/grovetools/exports/cli"
	"github.com/grovetools/exports/cmd"
)

func main() {
	os.Exit(cli.Execute(cmd.NewRootCmd()))
}

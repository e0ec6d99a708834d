package main

import (
	"os"

	"pinch/cmd/pinch/commands"
)

func main() {
	os.Exit(commands.Execute(os.Args, os.Stdin, os.Stdout, os.Stderr))
}

package main

import (
	"os"

	"apisurface/internal/ui/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}

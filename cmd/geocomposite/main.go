package main

import (
	"os"

	"github.com/forest-guardian/geocomposite/cmd/geocomposite/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/code-payments/memo-server/cmd/memo/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

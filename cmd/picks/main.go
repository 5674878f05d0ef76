package main

import (
	"os"

	"github.com/tradepulse/backend/cmd/picks/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

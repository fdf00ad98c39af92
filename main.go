package main

import (
	"os"

	"github.com/pavanpakhare/javanotes/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

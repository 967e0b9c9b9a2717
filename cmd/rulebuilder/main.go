package main

import (
	"os"

	"github.com/solatis/rulebuilder/cmd/rulebuilder/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// Package main is the entry point for the slotferry CLI.
package main

import (
	"os"

	"github.com/slotferry/slotferry/cmd/slotferry/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/r8qxq969n9-ship-it/trading-system/cmd/trading/commands"
)

// main is the entry point for the trading CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/trading [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

// Package main implements the transcheck server, which reviews spreadsheet
// translations in background tasks and streams their progress to clients.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

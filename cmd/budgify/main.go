// Command budgify imports bank statements into a deduplicated yearly ledger
// and reports on it from the terminal or a dashboard API.
package main

import (
	"os"

	"github.com/ArionMiles/budgify/pkg/logging"
)

func main() {
	logging.Setup(logging.DefaultConfig())
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

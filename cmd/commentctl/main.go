// Command commentctl runs maintenance tasks against the comments database:
// purging stale subscriptions, approving held comments, managing members
// and webhooks.
package main

import (
	"os"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// Command campaignctl uploads recipient lists and sends test messages from the shell.
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}

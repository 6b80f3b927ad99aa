// Command carectl exercises the chat provider and the medication lookup from
// a terminal, without the HTTP server.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(defaultApp()).Execute(); err != nil {
		os.Exit(1)
	}
}

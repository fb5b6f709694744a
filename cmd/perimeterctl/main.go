// Command perimeterctl is the operator CLI: signing key generation and
// token issue/verify against the configured key.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

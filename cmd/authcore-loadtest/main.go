// Command authcore-loadtest drives an authcore Engine under concurrent load.
//
// It seeds confirmed identities, then runs an authorize phase (random access
// tokens through Engine.Authorize) and a refresh-race phase (several goroutines
// presenting the same refresh token at once). Each race round must produce
// exactly one winner.
//
// Redis defaults to an embedded miniredis and identities to the in-memory store;
// pass --redis-addr and --database-url to test real backends.
package main

import (
	"os"
)

var version = "dev"

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

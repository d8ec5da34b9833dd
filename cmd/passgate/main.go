// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command passgate runs the authentication service and its maintenance tasks.
//
// # Commands
//
//   - serve (default): HTTP API with graceful shutdown.
//   - migrate: apply (or roll back) the embedded schema migrations.
//   - user: promote, create-admin and set-password for operators.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"fmt"
	"os"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd := NewRootCmd()
	cmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// Command auraed is the Aurae runtime daemon: it runs as PID 1 (or
// nested within itself) and exposes a TLS-authenticated control API for
// allocating Cells and running Executables inside them.
//
// Grounded on canonical-lxd/lxd-user/main.go's cobra wiring: a daemon
// root command plus a subcommand (spawn, standing in for lxd-user's
// callhook), with global flags bound on the root app.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	daemon := cmdDaemon{}
	app := daemon.command()
	app.Use = "auraed"
	app.Short = "Aurae runtime daemon"
	app.Long = `Description:
  auraed is a distributed-systems runtime daemon. It runs as PID 1 on a
  Linux host (or nested within itself) and exposes a TLS-authenticated
  RPC surface for creating isolation domains ("Cells"), launching
  executables inside them, and observing POSIX signals delivered to
  those processes.
`
	app.SilenceUsage = true
	app.SilenceErrors = true
	app.CompletionOptions = cobra.CompletionOptions{DisableDefaultCmd: true}

	spawn := cmdSpawn{}
	app.AddCommand(spawn.command())

	if err := app.Execute(); err != nil {
		os.Exit(1)
	}
}

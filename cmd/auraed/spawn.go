package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aurae-runtime/auraed/internal/oci"
)

// cmdSpawn implements `auraed spawn --output <dir>`: the OCI-bundle
// packager that writes a self-hosting rootfs, standing in for
// lxd-user's callhook subcommand in the cobra wiring shape.
type cmdSpawn struct {
	flagOutput string
}

func (c *cmdSpawn) command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spawn",
		Short: "Write a self-hosting OCI bundle for this auraed binary",
		RunE:  c.run,
	}

	cmd.Flags().StringVar(&c.flagOutput, "output", "", "Output directory for the OCI bundle")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func (c *cmdSpawn) run(cmd *cobra.Command, args []string) error {
	auraedPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve auraed binary path: %w", err)
	}

	if err := os.MkdirAll(c.flagOutput, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	return oci.WriteBundle(c.flagOutput, auraedPath)
}

package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var pushCmd = &cobra.Command{
	Use:   "push <project> <file>",
	Short: "Encrypt a file and store it on the server",
	Long: `Encrypts the file with the project's local key and stores the
ciphertext on the server. The first push of a project makes the server
issue an access key, which is saved in the local registry. Pushing a
project that already exists on the server fails; use update instead.`,
	Args: usageArgs(cobra.ExactArgs(2)),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, path := args[0], args[1]
		c, err := buildClient()
		if err != nil {
			return err
		}

		spin, cleanup := startSpinner("Pushing " + path + "...")
		defer cleanup()

		if err := c.Push(cmd.Context(), project, path); err != nil {
			return fmt.Errorf("push %s: %w", project, err)
		}

		// A successful store always issues a key, duplicates get 409.
		spin.FinalMSG = color.CyanString("→") + " New access key generated and stored\n" +
			color.GreenString("✓") + " File pushed successfully"
		return nil
	},
}

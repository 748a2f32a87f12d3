package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:   "update <project> <file>",
	Short: "Replace the server copy of an already pushed file",
	Args:  usageArgs(cobra.ExactArgs(2)),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, path := args[0], args[1]
		c, err := buildClient()
		if err != nil {
			return err
		}

		spin, cleanup := startSpinner("Updating " + project + "...")
		defer cleanup()

		if err := c.Update(cmd.Context(), project, path); err != nil {
			return fmt.Errorf("update %s: %w", project, err)
		}
		spin.FinalMSG = color.GreenString("✓") + " File updated successfully"
		return nil
	},
}

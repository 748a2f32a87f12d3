package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <project>",
	Short: "Delete a project from the server and the local registry",
	Long: `Deletes the remote record. The access key dies with it; storing
the project again later issues a fresh one. The local registry entry is
removed once the server confirmed the delete.`,
	Args: usageArgs(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		project := args[0]
		c, err := buildClient()
		if err != nil {
			return err
		}

		spin, cleanup := startSpinner("Deleting " + project + "...")
		defer cleanup()

		if err := c.Delete(cmd.Context(), project); err != nil {
			return fmt.Errorf("delete %s: %w", project, err)
		}
		spin.FinalMSG = color.GreenString("✓") + " File deleted successfully\n" +
			color.CyanString("→") + fmt.Sprintf(" Project %q removed from local registry", project)
		return nil
	},
}

package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var pullForce bool

func init() {
	pullCmd.Flags().BoolVar(&pullForce, "force", false, "overwrite the output file if it already exists")
}

var pullCmd = &cobra.Command{
	Use:   "pull <project> <output-file>",
	Short: "Retrieve a file from the server and decrypt it",
	Args:  usageArgs(cobra.ExactArgs(2)),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, out := args[0], args[1]
		c, err := buildClient()
		if err != nil {
			return err
		}

		spin, cleanup := startSpinner("Pulling " + project + "...")
		defer cleanup()

		if err := c.Pull(cmd.Context(), project, out, pullForce); err != nil {
			return fmt.Errorf("pull %s: %w", project, err)
		}
		spin.FinalMSG = color.GreenString("✓") + fmt.Sprintf(" File pulled successfully and saved to %s", out)
		return nil
	},
}

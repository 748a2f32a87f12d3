package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects in the local registry",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := buildClient()
		if err != nil {
			return err
		}
		names, err := c.Projects()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Println("No projects found in local registry")
			return nil
		}
		fmt.Println("Projects in local registry:")
		for _, name := range names {
			fmt.Println("- " + name)
		}
		return nil
	},
}

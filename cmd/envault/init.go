package main

import (
	"fmt"
	"os"

	"github.com/envault/envault/internal/config"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Prepare the current directory for envault",
	Long: `Writes envault.yaml with the server URL, and makes sure the local
registry is listed in .gitignore. The registry holds the encryption keys
and must never be committed.`,
	Args: usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		added, err := config.EnsureGitignore(".", cfg.Registry)
		if err != nil {
			return err
		}
		if added {
			fmt.Println(color.GreenString("✓") + " " + cfg.Registry + " added to .gitignore")
		}

		if _, err := os.Stat(config.DefaultFile); os.IsNotExist(err) {
			if err := config.Save(config.DefaultFile, cfg); err != nil {
				return err
			}
			fmt.Println(color.GreenString("✓") + " " + config.DefaultFile + " created")
		} else {
			fmt.Println(color.CyanString("→") + " " + config.DefaultFile + " already exists, leaving it unchanged")
		}

		fmt.Println(color.CyanString("→") + " Run " + color.YellowString("envault push <project> <file>") + " to store your first secret file")
		return nil
	},
}

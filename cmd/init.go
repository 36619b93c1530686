package cmd

import (
	"fmt"
	"log"

	"github.com/josephlewis42/pipesh/core/config"
	"github.com/spf13/cobra"
)

// initCmd writes a default configuration and host key
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the configuration in the config directory.",
	Long: `Write a default config.yaml and an SSH host key into the config
directory. Files that already exist are left alone, so init can be re-run to
restore a deleted host key.`,
	Args: cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		configuration, err := config.Initialize(cfgPath, log.New(cmd.ErrOrStderr(), "", 0))
		if err != nil {
			return err
		}

		w := cmd.ErrOrStderr()
		fmt.Fprintf(w, "External programs run in %s mode.\n", configuration.External.Mode)
		if len(configuration.SSH.Passwords) == 0 {
			fmt.Fprintf(w, "Add ssh.passwords to %s before running serve.\n", config.ConfigurationName)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "orgfs",
	Short: "Mount remote calendars and task lists as org-mode files",
	Long:  `orgfs exposes your calendars and task lists as a FUSE filesystem, rendering each as an editable org-mode file.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (currently ignored: mount always reads $XDG_CONFIG_HOME/orgfs/config.yaml or ~/.config/orgfs/config.yaml)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "enable debug logging")
}

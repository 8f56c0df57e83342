package main

import (
	"fmt"

	"github.com/carlmjohnson/versioninfo"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("blueair2mqtt %s (%s)\n", versioninfo.Short(), versioninfo.LastCommit.Format("2006-01-02"))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

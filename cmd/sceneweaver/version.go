package main

import (
	"fmt"

	"github.com/aretw0/sceneweaver"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of sceneweaver",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sceneweaver version %s\n", sceneweaver.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/litsearch/internal/storage"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of litsearch",
	// Skip config loading so version works with a broken config
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("litsearch %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", storage.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", storage.DriverName)
		fmt.Printf("Vector Extension: %v\n", storage.VectorExtensionAvailable)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

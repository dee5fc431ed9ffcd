// Package main is the FrameForge command line: the HTTP server plus
// one-shot recommendation, backup and restore commands.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	devLogging bool
)

var rootCmd = &cobra.Command{
	Use:   "frameforge",
	Short: "Budget-driven PC build assistant",
	Long: "FrameForge walks a build through motherboard, CPU, memory, GPU, storage, case, " +
		"cooler and PSU, recommending compatible parts that fit the budget.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().BoolVar(&devLogging, "dev", false, "human-readable debug logging")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

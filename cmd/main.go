package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "stock-analyst",
	Short: "A CLI for managing the Golang Stock Analyst services",
	Long:  `Golang Stock Analyst schedules and runs technical indicator and report pipelines over a stock universe...`,
}

func main() {

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Whoops. There was an error while executing your CLI '%s'", err)
		os.Exit(1)
	}
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	serverAddr string
	authToken  string
)

var rootCmd = &cobra.Command{
	Use:   "sentinel-cli",
	Short: "A CLI client to interact with the ScamSentinel services",
	Long:  `A command-line interface for submitting suspicious messages for investigation and streaming verdicts and progress in real time.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Whoops. There was an error while executing your CLI: %s", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", "localhost:8080", "host:port of the investigation service")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", os.Getenv("SENTINEL_TOKEN"), "JWT bearer token (defaults to $SENTINEL_TOKEN)")
}

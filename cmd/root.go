package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the forcerelay application
var rootCmd = &cobra.Command{
	Use:   "forcerelay",
	Short: "Stateless MCP front end for the Salesforce REST API",
	Long: `forcerelay exposes Salesforce query, metadata and record tools over the
Model Context Protocol (MCP) streamable HTTP transport.

Every request carries its own Salesforce bearer token; the server holds no
credentials of its own and keeps only in-memory protocol sessions.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "forcerelay version %s\n" .Version}}`)

	// If no subcommand is provided, run the serve command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/billminder/billminder/cmd/configure/commands"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "billminder-configure",
		Short: "Configuration tool for the BillMinder API",
		Long:  "CLI tool for configuring OIDC providers, CORS, rate limits, and notification defaults",
	}

	rootCmd.AddCommand(commands.NewOIDCCmd())
	rootCmd.AddCommand(commands.NewListCmd())
	rootCmd.AddCommand(commands.NewTestCmd())
	rootCmd.AddCommand(commands.NewCorsCmd())
	rootCmd.AddCommand(commands.NewRatelimitCmd())
	rootCmd.AddCommand(commands.NewNotificationsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

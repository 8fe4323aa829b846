package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"aum/internal/config"
	"aum/internal/umapi"
)

var rootCmd = &cobra.Command{
	Use:   "aum",
	Short: "Adobe User Management Tool",
	Long: `AUM is a fast CLI tool for managing users, products, and groups through
the Adobe User Management API.

It caches API responses locally, limits concurrent requests, and retries
transient failures with exponential backoff, so bulk operations against
large organizations stay fast and within rate limits.

Common usage:
  aum users list                       # List all users in the organization
  aum users get alice@example.com      # Show one user as JSON
  aum provision -f users.csv           # Create users from a CSV file
  aum deprovision -f leavers.csv       # Remove users listed in a CSV file
  aum browse                           # Interactive user browser
  aum history list                     # Audit past bulk runs`,
	Version: "1.0.0",
}

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: $XDG_CONFIG_HOME/aum/config.json)")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newClient loads configuration and builds an API client. Every command
// that talks to the API goes through here so flags and env overrides
// behave identically everywhere.
func newClient() (*umapi.Client, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return umapi.NewClient(cfg), nil
}

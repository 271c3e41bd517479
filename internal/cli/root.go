package cli

import (
	"github.com/spf13/cobra"
)

var serverURL string

var rootCmd = &cobra.Command{
	Use:   "sentinelctl",
	Short: "MFA Sentinel CLI",
	Long: `sentinelctl is the command-line interface for MFA Sentinel.

Seed synthetic MFA security incidents, inspect stored incidents,
and trigger remediation passes against a running sentinel server.`,
	Version: "0.1.0",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8087", "sentinel server base URL")
}

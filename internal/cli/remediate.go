package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var remediateCmd = &cobra.Command{
	Use:   "remediate",
	Short: "Trigger a remediation pass",
	Long:  "Ask the server to run one remediation pass over open rate limiting incidents whose cooldown has elapsed.",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := NewClient(serverURL)
		summary, err := client.RunRemediation()
		if err != nil {
			return err
		}

		fmt.Printf("Remediation pass complete:\n")
		fmt.Printf("  Eligible:  %d\n", summary.Eligible)
		fmt.Printf("  Processed: %d\n", summary.Processed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(remediateCmd)
}

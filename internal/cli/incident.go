package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var incidentJSON bool

var incidentCmd = &cobra.Command{
	Use:   "incident",
	Short: "Incident commands",
}

var incidentGetCmd = &cobra.Command{
	Use:   "get <incident-id>",
	Short: "Fetch a stored incident by ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := NewClient(serverURL)
		inc, err := client.GetIncident(args[0])
		if err != nil {
			return err
		}

		if incidentJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(inc)
		}

		fmt.Printf("Incident:    %s\n", inc.IncidentID)
		fmt.Printf("Scenario:    %s\n", inc.Scenario)
		fmt.Printf("Severity:    %s\n", inc.Severity)
		fmt.Printf("Status:      %s\n", inc.Status)
		fmt.Printf("User:        %s\n", inc.User)
		fmt.Printf("Source IP:   %s\n", inc.SourceIP)
		fmt.Printf("Created:     %s\n", inc.Timestamp)
		if inc.ResolvedAt != "" {
			fmt.Printf("Resolved:    %s\n", inc.ResolvedAt)
		}
		fmt.Printf("Action:      %s\n", inc.RecommendedAction)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(incidentCmd)
	incidentCmd.AddCommand(incidentGetCmd)

	incidentGetCmd.Flags().BoolVar(&incidentJSON, "json", false, "print the raw incident record")
}

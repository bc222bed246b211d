package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List fleet endpoints and their readiness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := newManagerFromFlags(cmd)
			if err != nil {
				return err
			}

			statuses, err := manager.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list endpoints: %w", err)
			}

			if len(statuses) == 0 {
				fmt.Println("No fleet endpoints found.")
				return nil
			}

			fmt.Printf("Fleet endpoints:\n\n")
			for _, s := range statuses {
				state := "pending"
				if s.Ready {
					state = "ready"
				}
				fmt.Printf("  - %s (%s)\n", s.Name, state)
				if s.ModelName != "" {
					fmt.Printf("    Model: %s\n", s.ModelName)
				}
				if s.EndpointURL != "" {
					fmt.Printf("    Endpoint: %s\n", s.EndpointURL)
				}
				if s.CreatedAt != "" {
					fmt.Printf("    Created: %s\n", s.CreatedAt)
				}
				fmt.Println()
			}

			return nil
		},
	}

	return cmd
}

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/giantswarm/llm-fleet/internal/registry"
)

func newRegistryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Print the currently published fleet registry document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kubeClient, err := newKubeClient(cmd)
			if err != nil {
				return err
			}
			namespace, _ := cmd.Flags().GetString("namespace")

			publisher := registry.NewPublisher(kubeClient, namespace)
			entries, err := publisher.Fetch(cmd.Context())
			if err != nil {
				return err
			}
			if entries == nil {
				fmt.Println("No registry document published.")
				return nil
			}

			data, err := json.MarshalIndent(entries, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal registry: %w", err)
			}
			fmt.Println(string(data))
			return nil
		},
	}

	return cmd
}

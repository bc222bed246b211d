package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/giantswarm/llm-fleet/internal/schedule"
)

func newTeardownCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "teardown <endpoint>",
		Short: "Delete one fleet endpoint and its schedule triggers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name := args[0]

			manager, err := newManagerFromFlags(cmd)
			if err != nil {
				return err
			}
			if err := manager.Teardown(ctx, name); err != nil {
				return err
			}

			kubeClient, err := newKubeClient(cmd)
			if err != nil {
				return err
			}
			namespace, _ := cmd.Flags().GetString("namespace")
			scheduler := schedule.NewScheduler(kubeClient, namespace, "")
			if err := scheduler.Detach(ctx, name); err != nil {
				return fmt.Errorf("endpoint deleted but trigger cleanup failed: %w", err)
			}

			fmt.Printf("Endpoint %q deleted.\n", name)
			return nil
		},
	}

	return cmd
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newStartCmd scales an endpoint up. Schedule trigger jobs run this command
// in-cluster; it is also handy for manual intervention.
func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <endpoint>",
		Short: "Scale a fleet endpoint up",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := newManagerFromFlags(cmd)
			if err != nil {
				return err
			}
			if err := manager.Scale(cmd.Context(), args[0], 1); err != nil {
				return err
			}
			fmt.Printf("Endpoint %q starting.\n", args[0])
			return nil
		},
	}
}

// newStopCmd scales an endpoint down to zero.
func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop <endpoint>",
		Short: "Scale a fleet endpoint down to zero",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := newManagerFromFlags(cmd)
			if err != nil {
				return err
			}
			if err := manager.Scale(cmd.Context(), args[0], 0); err != nil {
				return err
			}
			fmt.Printf("Endpoint %q stopping.\n", args[0])
			return nil
		},
	}
}

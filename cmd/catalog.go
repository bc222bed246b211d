package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/giantswarm/llm-fleet/internal/catalog"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the models the fleet catalog can deploy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat := catalog.Default()

			fmt.Printf("Known models (%d):\n\n", cat.Len())
			for _, id := range cat.IDs() {
				desc, _ := cat.Lookup(id)

				in := make([]string, 0, len(desc.InputModalities))
				for _, m := range desc.InputModalities {
					in = append(in, string(m))
				}

				fmt.Printf("  - %s\n", desc.ModelID)
				fmt.Printf("    Compute: %s (%d GPU)\n", desc.ComputeClass, desc.ComputeClass.GPUCount())
				fmt.Printf("    Interface: %s, input: %s\n", desc.Interface, strings.Join(in, "+"))
				fmt.Printf("    RAG: %t", desc.RAGSupported)
				if desc.Gated {
					fmt.Printf(", gated (hub token required)")
				}
				fmt.Printf("\n\n")
			}

			return nil
		},
	}

	return cmd
}

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/giantswarm/llm-fleet/internal/llm"
	"github.com/giantswarm/llm-fleet/internal/registry"
)

func newVerifyCmd() *cobra.Command {
	var (
		apiKey  string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Smoke-check every endpoint in the published registry",
		Long: `Read the published registry document and send one trivial chat completion
to each endpoint, reporting which endpoints answer. Requires network access
to the endpoints (run in-cluster or with port-forwarding in place).`,
		Args: cobra.NoArgs,
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
			if len(entries) == 0 {
				fmt.Println("No registry document published, nothing to verify.")
				return nil
			}

			failed := 0
			for _, e := range entries {
				opts := []llm.Option{llm.WithBaseURL(e.Endpoint)}
				if apiKey != "" {
					opts = append(opts, llm.WithAPIKey(apiKey))
				}
				client := llm.NewOpenAIClient(opts...)

				ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
				err := llm.Probe(ctx, client, e.Name)
				cancel()

				if err != nil {
					failed++
					fmt.Printf("  FAIL %s: %v\n", e.Name, err)
					continue
				}
				fmt.Printf("  ok   %s\n", e.Name)
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d endpoints failed verification", failed, len(entries))
			}
			fmt.Printf("\nAll %d endpoints answered.\n", len(entries))
			return nil
		},
	}

	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key sent to the endpoints, if any")
	cmd.Flags().DurationVar(&timeout, "timeout", 60*time.Second, "Per-endpoint probe timeout")

	return cmd
}

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/giantswarm/llm-fleet/internal/catalog"
	"github.com/giantswarm/llm-fleet/internal/config"
	"github.com/giantswarm/llm-fleet/internal/fleet"
	"github.com/giantswarm/llm-fleet/internal/provision"
	"github.com/giantswarm/llm-fleet/internal/registry"
)

// dryRunProvisioner resolves endpoints without touching the cluster. Handles
// are the URLs the endpoints would get.
type dryRunProvisioner struct {
	namespace string
}

func (p dryRunProvisioner) EnsureEndpoint(_ context.Context, req fleet.EndpointRequest) (string, error) {
	return provision.EndpointURL(req.Name, p.namespace), nil
}

func newPlanCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Preview a provisioning pass without side effects",
		Long: `Resolve the configured model ids against the catalog and print the
registry document an apply would publish, without creating any resource.

Gated-model token checks are skipped; plan never reads cluster secrets.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			resolver := fleet.NewResolver(catalog.Default(),
				dryRunProvisioner{namespace: cfg.Namespace}, planTokens{})

			resolved, resErrs, err := resolver.Resolve(cmd.Context(), cfg.Models)
			if err != nil {
				return fmt.Errorf("resolution would abort: %w", err)
			}

			doc, err := registry.Render(resolved)
			if err != nil {
				return err
			}

			fmt.Printf("Registry document (%d endpoint(s)):\n%s\n", len(resolved.Endpoints), doc)

			if len(resErrs) > 0 {
				fmt.Printf("\nResolution errors: %d\n", len(resErrs))
				for i := range resErrs {
					fmt.Printf("  - %s\n", resErrs[i].Error())
				}
			}

			if cfg.Scheduling.Enabled {
				fmt.Printf("\nScheduling: %d trigger(s) would be installed (start %q, stop %q)\n",
					2*len(resolved.Endpoints), cfg.Scheduling.Start, cfg.Scheduling.Stop)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "fleet.yaml", "Fleet configuration file")

	return cmd
}

// planTokens satisfies gated-model checks during a dry run.
type planTokens struct{}

func (planTokens) TokenFor(context.Context, string) (string, error) {
	return "dry-run", nil
}

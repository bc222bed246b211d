package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/giantswarm/llm-fleet/internal/catalog"
	"github.com/giantswarm/llm-fleet/internal/config"
	"github.com/giantswarm/llm-fleet/internal/fleet"
	"github.com/giantswarm/llm-fleet/internal/provision"
	"github.com/giantswarm/llm-fleet/internal/registry"
	"github.com/giantswarm/llm-fleet/internal/schedule"
)

func newApplyCmd() *cobra.Command {
	var (
		configPath  string
		wait        bool
		waitTimeout time.Duration
		noSchedule  bool
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Run one provisioning pass over the configured fleet",
		Long: `Resolve the configured model ids against the catalog, provision one
inference endpoint per model, publish the fleet registry document, and attach
start/stop schedule triggers when scheduling is enabled.

The pass is idempotent: re-applying an unchanged configuration converges on
the same endpoints, triggers, and registry document. Unknown model ids and
per-endpoint provisioning failures are reported but do not abort the pass;
duplicate derived names abort before any side effect.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			namespace := cfg.Namespace

			kubeconfig, _ := cmd.Flags().GetString("kubeconfig")
			inCluster, _ := cmd.Flags().GetBool("in-cluster")

			manager, err := provision.NewManager(namespace, kubeconfig, inCluster, provision.Placement{
				NodeSelector:     cfg.Shared.NodeSelector,
				ServiceAccount:   cfg.Shared.ServiceAccount,
				EncryptionKeyRef: cfg.Shared.EncryptionKey,
			})
			if err != nil {
				return err
			}
			if err := manager.CheckCRDAvailable(ctx); err != nil {
				return err
			}

			kubeClient, err := newKubeClient(cmd)
			if err != nil {
				return err
			}

			var tokens fleet.TokenSource
			if !cfg.HubSecret.Empty() {
				tokens = provision.NewSecretTokenSource(kubeClient, namespace,
					cfg.HubSecret.Name, cfg.HubSecret.Key)
			}

			resolver := fleet.NewResolver(catalog.Default(), manager, tokens)

			fmt.Printf("Resolving fleet: %d model(s) requested\n", len(cfg.Models))
			resolved, resErrs, err := resolver.Resolve(ctx, cfg.Models)
			if err != nil {
				return fmt.Errorf("resolution aborted, nothing published: %w", err)
			}

			if wait {
				for _, e := range resolved.Endpoints {
					fmt.Printf("  waiting for %s...\n", e.ResourceName)
					if err := manager.WaitReady(ctx, e.ResourceName, waitTimeout); err != nil {
						fmt.Printf("  warning: %v\n", err)
					}
				}
			}

			publisher := registry.NewPublisher(kubeClient, namespace)
			if err := publisher.Publish(ctx, resolved); err != nil {
				return err
			}

			var bindings []schedule.Binding
			if cfg.Scheduling.Enabled && !noSchedule {
				scheduler := schedule.NewScheduler(kubeClient, namespace, cfg.RunnerImage)
				bindings, err = scheduler.Attach(ctx, resolved, schedule.Window{
					StartExpr: cfg.Scheduling.Start,
					StopExpr:  cfg.Scheduling.Stop,
				})
				if err != nil {
					return fmt.Errorf("failed to attach schedules: %w", err)
				}
			}

			printApplySummary(resolved, resErrs, bindings)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "fleet.yaml", "Fleet configuration file")
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for each endpoint to become ready")
	cmd.Flags().DurationVar(&waitTimeout, "wait-timeout", 15*time.Minute, "Per-endpoint readiness timeout with --wait")
	cmd.Flags().BoolVar(&noSchedule, "no-schedule", false, "Skip schedule trigger installation for this pass")

	return cmd
}

func printApplySummary(resolved fleet.ResolvedFleet, resErrs []fleet.ResolutionError, bindings []schedule.Binding) {
	fmt.Printf("\nResolved endpoints: %d\n", len(resolved.Endpoints))
	for _, e := range resolved.Endpoints {
		fmt.Printf("  - %s -> %s\n", e.Name, e.EndpointHandle)
	}

	if len(resErrs) > 0 {
		fmt.Printf("\nResolution errors: %d\n", len(resErrs))
		for i := range resErrs {
			fmt.Printf("  - %s\n", resErrs[i].Error())
		}
	}

	if len(bindings) > 0 {
		fmt.Printf("\nSchedule bindings: %d\n", len(bindings))
		for _, b := range bindings {
			if b.Err != nil {
				fmt.Printf("  - %s: FAILED: %v\n", b.EndpointName, b.Err)
				continue
			}
			fmt.Printf("  - %s: %s, %s (role %s)\n",
				b.EndpointName, b.StartTrigger, b.StopTrigger, b.Role)
		}
	}
}

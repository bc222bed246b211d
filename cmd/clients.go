package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/giantswarm/llm-fleet/internal/provision"
)

// restConfigFromFlags builds a Kubernetes REST config from the persistent
// --kubeconfig and --in-cluster flags.
func restConfigFromFlags(cmd *cobra.Command) (*rest.Config, error) {
	kubeconfig, _ := cmd.Flags().GetString("kubeconfig")
	inCluster, _ := cmd.Flags().GetBool("in-cluster")

	if inCluster {
		config, err := rest.InClusterConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to create in-cluster config: %w", err)
		}
		return config, nil
	}

	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfig != "" {
		loadingRules.ExplicitPath = kubeconfig
	}
	config, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
		loadingRules, &clientcmd.ConfigOverrides{},
	).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes config: %w", err)
	}
	return config, nil
}

// newManagerFromFlags builds an endpoint manager from the persistent flags.
// Placement handles are left empty; commands that create endpoints take them
// from the fleet configuration instead.
func newManagerFromFlags(cmd *cobra.Command) (*provision.Manager, error) {
	namespace, _ := cmd.Flags().GetString("namespace")
	kubeconfig, _ := cmd.Flags().GetString("kubeconfig")
	inCluster, _ := cmd.Flags().GetBool("in-cluster")
	return provision.NewManager(namespace, kubeconfig, inCluster, provision.Placement{})
}

// newKubeClient builds a typed clientset for the registry, scheduler, and
// secret token source.
func newKubeClient(cmd *cobra.Command) (kubernetes.Interface, error) {
	config, err := restConfigFromFlags(cmd)
	if err != nil {
		return nil, err
	}
	client, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}
	return client, nil
}

// Package provision manages KServe InferenceService resources backing the
// model fleet.
package provision

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/giantswarm/llm-fleet/internal/fleet"
)

var isvcGVR = schema.GroupVersionResource{
	Group:    "serving.kserve.io",
	Version:  "v1beta1",
	Resource: "inferenceservices",
}

// EndpointStatus represents the observed state of a deployed endpoint.
type EndpointStatus struct {
	Name        string `json:"name"`
	ModelName   string `json:"model_name,omitempty"`
	Ready       bool   `json:"ready"`
	EndpointURL string `json:"endpoint_url,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	Message     string `json:"message,omitempty"`
}

// Manager handles InferenceService lifecycle for the fleet. It implements
// fleet.Provisioner.
type Manager struct {
	client    dynamic.Interface
	namespace string
	placement Placement
}

// NewManager creates a new endpoint manager.
func NewManager(namespace string, kubeconfig string, inCluster bool, placement Placement) (*Manager, error) {
	var config *rest.Config
	var err error

	if inCluster {
		config, err = rest.InClusterConfig()
	} else {
		loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
		if kubeconfig != "" {
			loadingRules.ExplicitPath = kubeconfig
		}
		config, err = clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
			loadingRules, &clientcmd.ConfigOverrides{},
		).ClientConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes config: %w", err)
	}

	client, err := dynamic.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic client: %w", err)
	}

	return &Manager{
		client:    client,
		namespace: namespace,
		placement: placement,
	}, nil
}

// NewManagerWithClient creates a Manager with an existing dynamic client (for testing).
func NewManagerWithClient(client dynamic.Interface, namespace string, placement Placement) *Manager {
	return &Manager{
		client:    client,
		namespace: namespace,
		placement: placement,
	}
}

// CheckCRDAvailable verifies that the InferenceService CRD is installed in the cluster.
// Returns nil if the CRD is available, or an error describing why it is not.
func (m *Manager) CheckCRDAvailable(ctx context.Context) error {
	_, err := m.client.Resource(isvcGVR).Namespace(m.namespace).List(ctx, metav1.ListOptions{
		Limit: 1,
	})
	if err != nil {
		return fmt.Errorf("KServe InferenceService CRD is not available in the cluster: %w", err)
	}
	return nil
}

// EnsureEndpoint creates or updates the InferenceService for one resolved
// model and returns its endpoint handle. Re-applying an unchanged request
// converges on the same resource.
func (m *Manager) EnsureEndpoint(ctx context.Context, req fleet.EndpointRequest) (string, error) {
	isvc := BuildInferenceService(req, m.namespace, m.placement)

	obj, err := toUnstructured(isvc)
	if err != nil {
		return "", fmt.Errorf("failed to convert InferenceService: %w", err)
	}

	slog.Info("ensuring InferenceService",
		"name", req.Name,
		"model_id", req.ModelID,
		"gpu_count", req.GPUCount,
	)

	_, err = m.client.Resource(isvcGVR).Namespace(m.namespace).Create(
		ctx, obj, metav1.CreateOptions{},
	)
	if apierrors.IsAlreadyExists(err) {
		err = m.updateSpec(ctx, req.Name, obj)
	}
	if err != nil {
		return "", fmt.Errorf("failed to ensure InferenceService %s: %w", req.Name, err)
	}

	return EndpointURL(req.Name, m.namespace), nil
}

// updateSpec overwrites the spec of an existing InferenceService, keeping its
// metadata so the update does not fight the API server over resourceVersion.
func (m *Manager) updateSpec(ctx context.Context, name string, desired *unstructured.Unstructured) error {
	existing, err := m.client.Resource(isvcGVR).Namespace(m.namespace).Get(
		ctx, name, metav1.GetOptions{},
	)
	if err != nil {
		return err
	}

	spec, ok, err := unstructured.NestedMap(desired.Object, "spec")
	if err != nil || !ok {
		return fmt.Errorf("desired InferenceService %s has no spec", name)
	}
	if err := unstructured.SetNestedMap(existing.Object, spec, "spec"); err != nil {
		return err
	}
	existing.SetLabels(desired.GetLabels())
	existing.SetAnnotations(desired.GetAnnotations())

	_, err = m.client.Resource(isvcGVR).Namespace(m.namespace).Update(
		ctx, existing, metav1.UpdateOptions{},
	)
	return err
}

// Scale sets the predictor replica bounds for an endpoint. Scaling to zero
// stops the endpoint; scaling to one or more starts it.
func (m *Manager) Scale(ctx context.Context, name string, replicas int32) error {
	item, err := m.client.Resource(isvcGVR).Namespace(m.namespace).Get(
		ctx, name, metav1.GetOptions{},
	)
	if err != nil {
		return fmt.Errorf("failed to get InferenceService %s: %w", name, err)
	}

	if err := unstructured.SetNestedField(item.Object, int64(replicas),
		"spec", "predictor", "minReplicas"); err != nil {
		return fmt.Errorf("failed to set minReplicas on %s: %w", name, err)
	}
	maxReplicas := replicas
	if maxReplicas < 1 {
		maxReplicas = 1
	}
	if err := unstructured.SetNestedField(item.Object, int64(maxReplicas),
		"spec", "predictor", "maxReplicas"); err != nil {
		return fmt.Errorf("failed to set maxReplicas on %s: %w", name, err)
	}

	_, err = m.client.Resource(isvcGVR).Namespace(m.namespace).Update(
		ctx, item, metav1.UpdateOptions{},
	)
	if err != nil {
		return fmt.Errorf("failed to scale InferenceService %s: %w", name, err)
	}

	slog.Info("scaled InferenceService", "name", name, "replicas", replicas)
	return nil
}

// Teardown deletes an InferenceService with graceful shutdown.
func (m *Manager) Teardown(ctx context.Context, name string) error {
	slog.Info("tearing down InferenceService", "name", name)

	gracePeriod := int64(30)
	propagation := metav1.DeletePropagationForeground

	err := m.client.Resource(isvcGVR).Namespace(m.namespace).Delete(
		ctx, name, metav1.DeleteOptions{
			GracePeriodSeconds: &gracePeriod,
			PropagationPolicy:  &propagation,
		},
	)
	if err != nil {
		if apierrors.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to delete InferenceService %s: %w", name, err)
	}

	return nil
}

// List returns all InferenceService resources managed by llm-fleet.
func (m *Manager) List(ctx context.Context) ([]EndpointStatus, error) {
	list, err := m.client.Resource(isvcGVR).Namespace(m.namespace).List(ctx, metav1.ListOptions{
		LabelSelector: "app.kubernetes.io/managed-by=" + managedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list InferenceServices: %w", err)
	}

	statuses := make([]EndpointStatus, 0, len(list.Items))
	for _, item := range list.Items {
		isvc, err := fromUnstructured(&item)
		if err != nil {
			slog.Warn("failed to convert InferenceService", "name", item.GetName(), "error", err)
			continue
		}
		statuses = append(statuses, m.statusFromISVC(isvc))
	}

	return statuses, nil
}

// Get returns the status of a specific InferenceService.
func (m *Manager) Get(ctx context.Context, name string) (*EndpointStatus, error) {
	item, err := m.client.Resource(isvcGVR).Namespace(m.namespace).Get(
		ctx, name, metav1.GetOptions{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get InferenceService %s: %w", name, err)
	}

	isvc, err := fromUnstructured(item)
	if err != nil {
		return nil, fmt.Errorf("failed to convert InferenceService %s: %w", name, err)
	}

	status := m.statusFromISVC(isvc)
	return &status, nil
}

// statusFromISVC extracts an EndpointStatus from a typed InferenceService.
func (m *Manager) statusFromISVC(isvc *InferenceService) EndpointStatus {
	status := EndpointStatus{
		Name:      isvc.Name,
		ModelName: isvc.Labels[modelIDLabel],
		CreatedAt: isvc.CreationTimestamp.Format(time.RFC3339),
	}

	if isvc.Status.IsReady() {
		status.Ready = true
		status.EndpointURL = endpointURL(isvc, m.namespace)
	} else {
		status.Message = "pending"
	}

	return status
}

// WaitReady blocks until the named InferenceService reports Ready or the
// timeout elapses.
func (m *Manager) WaitReady(ctx context.Context, name string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	watcher, err := m.client.Resource(isvcGVR).Namespace(m.namespace).Watch(ctx, metav1.ListOptions{
		FieldSelector: "metadata.name=" + name,
	})
	if err != nil {
		return fmt.Errorf("failed to watch InferenceService: %w", err)
	}
	defer watcher.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for InferenceService %s to become ready", name)
		case event, ok := <-watcher.ResultChan():
			if !ok {
				return fmt.Errorf("watch channel closed for InferenceService %s", name)
			}

			if event.Type == watch.Modified || event.Type == watch.Added {
				obj, ok := event.Object.(*unstructured.Unstructured)
				if !ok {
					continue
				}

				isvc, err := fromUnstructured(obj)
				if err != nil {
					slog.Warn("failed to convert watch event", "error", err)
					continue
				}

				if isvc.Status.IsReady() {
					slog.Info("InferenceService ready", "name", name)
					return nil
				}

				if cond := isvc.Status.GetReadyCondition(); cond != nil && cond.Status == "False" {
					slog.Debug("InferenceService not ready yet",
						"name", name,
						"reason", cond.Reason,
						"message", cond.Message,
					)
				}
			}
		}
	}
}

func endpointURL(isvc *InferenceService, namespace string) string {
	if isvc.Status.URL != "" {
		return isvc.Status.URL
	}
	return EndpointURL(isvc.Name, namespace)
}

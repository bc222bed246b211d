package provision

import (
	"fmt"
	"sort"
	"strconv"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"

	"github.com/giantswarm/llm-fleet/internal/fleet"
)

const (
	apiVersion = "serving.kserve.io/v1beta1"
	kind       = "InferenceService"
	managedBy  = "llm-fleet"

	// progressDeadlineAnnotation bounds endpoint startup per the catalog's
	// startup timeout.
	progressDeadlineAnnotation = "serving.knative.dev/progress-deadline"

	// encryptionKeyAnnotation carries the opaque encryption key handle from
	// the shared infrastructure configuration.
	encryptionKeyAnnotation = "llm-fleet.giantswarm.io/encryption-key"

	modelIDLabel = "llm-fleet.giantswarm.io/model"
)

// Placement holds the opaque handles supplied by the shared infrastructure
// layer. They are threaded into every deployment request unmodified.
type Placement struct {
	// NodeSelector pins predictor pods to the GPU node pool.
	NodeSelector map[string]string

	// ServiceAccount is the identity predictor pods run as.
	ServiceAccount string

	// EncryptionKeyRef is an opaque encryption key reference recorded on
	// every endpoint for the storage layer to honor.
	EncryptionKeyRef string
}

// BuildInferenceService creates a typed InferenceService from an endpoint
// deployment request and the shared placement handles.
func BuildInferenceService(req fleet.EndpointRequest, namespace string, placement Placement) *InferenceService {
	annotations := map[string]string{
		progressDeadlineAnnotation: req.StartupTimeout.String(),
	}
	if placement.EncryptionKeyRef != "" {
		annotations[encryptionKeyAnnotation] = placement.EncryptionKeyRef
	}

	one := int32(1)
	isvc := &InferenceService{
		TypeMeta: metav1.TypeMeta{
			APIVersion: apiVersion,
			Kind:       kind,
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      req.Name,
			Namespace: namespace,
			Labels: map[string]string{
				"app.kubernetes.io/managed-by": managedBy,
				"app.kubernetes.io/name":       req.Name,
				modelIDLabel:                   req.DisplayName,
			},
			Annotations: annotations,
		},
		Spec: InferenceServiceSpec{
			Predictor: PredictorSpec{
				Model: &ISvcModelSpec{
					ModelFormat: ModelFormat{
						Name: "huggingface",
					},
					Image: req.ContainerImage,
					Env:   buildEnv(req.Environment),
				},
				MinReplicas:        &one,
				MaxReplicas:        1,
				NodeSelector:       placement.NodeSelector,
				ServiceAccountName: placement.ServiceAccount,
			},
		},
	}

	if req.GPUCount > 0 {
		gpuQty := resource.MustParse(strconv.Itoa(req.GPUCount))
		isvc.Spec.Predictor.Model.Resources = corev1.ResourceRequirements{
			Requests: corev1.ResourceList{
				"nvidia.com/gpu": gpuQty,
			},
			Limits: corev1.ResourceList{
				"nvidia.com/gpu": gpuQty,
			},
		}
	}

	return isvc
}

// buildEnv converts the resolver's environment map into container env vars,
// sorted by key so repeated builds produce identical objects.
func buildEnv(env map[string]string) []corev1.EnvVar {
	if len(env) == 0 {
		return nil
	}
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	vars := make([]corev1.EnvVar, 0, len(keys))
	for _, k := range keys {
		vars = append(vars, corev1.EnvVar{Name: k, Value: env[k]})
	}
	return vars
}

// toUnstructured converts a typed InferenceService to an unstructured object
// for use with the dynamic Kubernetes client.
func toUnstructured(isvc *InferenceService) (*unstructured.Unstructured, error) {
	obj, err := runtime.DefaultUnstructuredConverter.ToUnstructured(isvc)
	if err != nil {
		return nil, fmt.Errorf("failed to convert InferenceService to unstructured: %w", err)
	}
	return &unstructured.Unstructured{Object: obj}, nil
}

// fromUnstructured converts an unstructured object back to a typed InferenceService.
func fromUnstructured(obj *unstructured.Unstructured) (*InferenceService, error) {
	isvc := &InferenceService{}
	if err := runtime.DefaultUnstructuredConverter.FromUnstructured(obj.Object, isvc); err != nil {
		return nil, fmt.Errorf("failed to convert unstructured to InferenceService: %w", err)
	}
	return isvc, nil
}

// EndpointURL returns the in-cluster URL for an InferenceService.
func EndpointURL(name, namespace string) string {
	return fmt.Sprintf("http://%s.%s.svc.cluster.local/v1", name, namespace)
}

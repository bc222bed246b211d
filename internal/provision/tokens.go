package provision

import (
	"context"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// SecretTokenSource reads hub access tokens from a Kubernetes secret. It
// implements fleet.TokenSource. The secret is read at resolution time, not
// cached, so token rotation takes effect on the next pass.
type SecretTokenSource struct {
	client     kubernetes.Interface
	namespace  string
	secretName string
	key        string
}

// NewSecretTokenSource creates a token source over the named secret key.
func NewSecretTokenSource(client kubernetes.Interface, namespace, secretName, key string) *SecretTokenSource {
	return &SecretTokenSource{
		client:     client,
		namespace:  namespace,
		secretName: secretName,
		key:        key,
	}
}

// TokenFor returns the hub token for a gated model, or an empty string when
// the secret or key does not exist.
func (s *SecretTokenSource) TokenFor(ctx context.Context, modelID string) (string, error) {
	secret, err := s.client.CoreV1().Secrets(s.namespace).Get(ctx, s.secretName, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read hub secret %s: %w", s.secretName, err)
	}

	return string(secret.Data[s.key]), nil
}

// Package registry publishes the resolved fleet as a single document the
// serving layer reads to route chat requests and advertise capabilities.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/giantswarm/llm-fleet/internal/catalog"
	"github.com/giantswarm/llm-fleet/internal/fleet"
)

const (
	// DocumentName is the well-known ConfigMap name consumers read.
	DocumentName = "llm-fleet-registry"

	// DocumentKey is the ConfigMap key holding the JSON document.
	DocumentKey = "models.json"

	managedBy = "llm-fleet"
)

// Entry is one flattened endpoint projection in the published document.
type Entry struct {
	Name                       string   `json:"name"`
	Endpoint                   string   `json:"endpoint"`
	ResponseStreamingSupported bool     `json:"responseStreamingSupported"`
	InputModalities            []string `json:"inputModalities"`
	OutputModalities           []string `json:"outputModalities"`
	Interface                  string   `json:"interface"`
	RAGSupported               bool     `json:"ragSupported"`
}

// Publisher writes the fleet registry document to its well-known ConfigMap.
type Publisher struct {
	client    kubernetes.Interface
	namespace string
}

// NewPublisher creates a publisher writing into the given namespace.
func NewPublisher(client kubernetes.Interface, namespace string) *Publisher {
	return &Publisher{client: client, namespace: namespace}
}

// Render serializes the resolved fleet in resolution order. The output is a
// pure function of the fleet: the same input always yields identical bytes.
func Render(f fleet.ResolvedFleet) ([]byte, error) {
	entries := make([]Entry, 0, len(f.Endpoints))
	for _, e := range f.Endpoints {
		entries = append(entries, Entry{
			Name:                       e.Name,
			Endpoint:                   e.EndpointHandle,
			ResponseStreamingSupported: e.ResponseStreamingSupported,
			InputModalities:            modalityStrings(e.InputModalities),
			OutputModalities:           modalityStrings(e.OutputModalities),
			Interface:                  string(e.Interface),
			RAGSupported:               e.RAGSupported,
		})
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal registry document: %w", err)
	}
	return data, nil
}

// Publish writes the registry document, overwriting the previous revision.
// Publishing an unchanged fleet is a no-op: the existing document is left
// untouched when the rendered bytes are identical.
func (p *Publisher) Publish(ctx context.Context, f fleet.ResolvedFleet) error {
	data, err := Render(f)
	if err != nil {
		return err
	}

	cm := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      DocumentName,
			Namespace: p.namespace,
			Labels: map[string]string{
				"app.kubernetes.io/managed-by": managedBy,
			},
		},
		Data: map[string]string{
			DocumentKey: string(data),
		},
	}

	existing, err := p.client.CoreV1().ConfigMaps(p.namespace).Get(ctx, DocumentName, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		if _, err := p.client.CoreV1().ConfigMaps(p.namespace).Create(ctx, cm, metav1.CreateOptions{}); err != nil {
			return fmt.Errorf("failed to create registry document: %w", err)
		}
		slog.Info("registry document published", "name", DocumentName, "entries", len(f.Endpoints))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read registry document: %w", err)
	}

	if bytes.Equal([]byte(existing.Data[DocumentKey]), data) {
		slog.Debug("registry document unchanged, skipping publish", "name", DocumentName)
		return nil
	}

	existing.Labels = cm.Labels
	existing.Data = cm.Data
	if _, err := p.client.CoreV1().ConfigMaps(p.namespace).Update(ctx, existing, metav1.UpdateOptions{}); err != nil {
		return fmt.Errorf("failed to update registry document: %w", err)
	}

	slog.Info("registry document published", "name", DocumentName, "entries", len(f.Endpoints))
	return nil
}

// Fetch reads the currently published document, returning nil when none exists.
func (p *Publisher) Fetch(ctx context.Context) ([]Entry, error) {
	cm, err := p.client.CoreV1().ConfigMaps(p.namespace).Get(ctx, DocumentName, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read registry document: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal([]byte(cm.Data[DocumentKey]), &entries); err != nil {
		return nil, fmt.Errorf("failed to parse registry document: %w", err)
	}
	return entries, nil
}

func modalityStrings(modalities []catalog.Modality) []string {
	out := make([]string, 0, len(modalities))
	for _, m := range modalities {
		out = append(out, string(m))
	}
	return out
}

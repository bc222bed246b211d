package fleet

import "github.com/giantswarm/llm-fleet/internal/catalog"

// ResolvedEndpoint is one requested model materialized into a deployed
// compute endpoint, carrying the descriptor fields the registry publishes.
type ResolvedEndpoint struct {
	// Name is the display name derived from the model id. Unique within
	// one resolved fleet.
	Name string

	// ResourceName is the Kubernetes resource name of the endpoint.
	ResourceName string

	// EndpointHandle is the opaque reference to the provisioned compute
	// endpoint, as reported by the provisioner.
	EndpointHandle string

	ModelID                    string
	InputModalities            []catalog.Modality
	OutputModalities           []catalog.Modality
	Interface                  catalog.InterfaceKind
	RAGSupported               bool
	ResponseStreamingSupported bool
}

// ResolvedFleet is the outcome of one resolution pass, in request order.
type ResolvedFleet struct {
	Endpoints []ResolvedEndpoint
}

// Empty reports whether the pass resolved no endpoints.
func (f ResolvedFleet) Empty() bool {
	return len(f.Endpoints) == 0
}

// Names returns the display names in resolution order.
func (f ResolvedFleet) Names() []string {
	names := make([]string, 0, len(f.Endpoints))
	for _, e := range f.Endpoints {
		names = append(names, e.Name)
	}
	return names
}

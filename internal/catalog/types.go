package catalog

// Modality is the kind of data a model accepts or produces.
type Modality string

const (
	ModalityText  Modality = "Text"
	ModalityImage Modality = "Image"
)

// InterfaceKind selects the calling convention downstream consumers must use
// when talking to the deployed endpoint.
type InterfaceKind string

const (
	// InterfaceChat is the plain-text chat completion convention.
	InterfaceChat InterfaceKind = "chat"

	// InterfaceMultiModal is the multi-modal convention for models that
	// accept images alongside text.
	InterfaceMultiModal InterfaceKind = "multimodal"
)

// ComputeClass is the hardware shape an endpoint is deployed on.
type ComputeClass string

const (
	// ComputeGPUSmall is a single-GPU shape for 7B-class models.
	ComputeGPUSmall ComputeClass = "gpu-small"

	// ComputeGPUMedium is a four-GPU shape for 13B-40B-class models.
	ComputeGPUMedium ComputeClass = "gpu-medium"

	// ComputeGPULarge is an eight-GPU shape for mixture-of-experts and
	// 40B+ models.
	ComputeGPULarge ComputeClass = "gpu-large"
)

// GPUCount returns the number of GPUs a compute class provides.
func (c ComputeClass) GPUCount() int {
	switch c {
	case ComputeGPUMedium:
		return 4
	case ComputeGPULarge:
		return 8
	default:
		return 1
	}
}

// Descriptor fully specifies how one model is deployed. Descriptors are
// immutable catalog data; the resolver copies what it needs at resolution time.
type Descriptor struct {
	// ModelID is the opaque identifier, usually in vendor/name form.
	ModelID string

	// ComputeClass is the hardware shape the serving container runs on.
	ComputeClass ComputeClass

	// ContainerImage is the serving container reference.
	ContainerImage string

	// StartupTimeoutSeconds bounds how long the endpoint may take to come up.
	StartupTimeoutSeconds int

	// Environment is passed to the serving container verbatim, except for
	// the hub token substituted at resolution time for gated models.
	Environment map[string]string

	// Gated marks models that require a hub access token to download.
	Gated bool

	InputModalities  []Modality
	OutputModalities []Modality

	Interface InterfaceKind

	// RAGSupported marks models that can be paired with a retrieval pipeline.
	RAGSupported bool

	// ResponseStreamingSupported is false for every current catalog entry.
	ResponseStreamingSupported bool
}

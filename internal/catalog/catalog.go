// Package catalog holds the static table of models the fleet can deploy.
// Adding a model is a data change here, not a code change in the resolver.
package catalog

// Serving container images shared by catalog entries.
const (
	tgiImage     = "ghcr.io/huggingface/text-generation-inference:1.4.5"
	ideficsImage = "ghcr.io/huggingface/text-generation-inference:1.1.0"
)

// Catalog is an immutable lookup table from model id to deployment descriptor.
// Construct it once at process start with Default and pass it by reference.
type Catalog struct {
	entries map[string]Descriptor
	order   []string
}

// New builds a catalog from the given descriptors. Order is preserved for IDs.
func New(descriptors []Descriptor) *Catalog {
	c := &Catalog{entries: make(map[string]Descriptor, len(descriptors))}
	for _, d := range descriptors {
		if _, exists := c.entries[d.ModelID]; exists {
			continue
		}
		c.entries[d.ModelID] = d
		c.order = append(c.order, d.ModelID)
	}
	return c
}

// Lookup returns the descriptor for a model id, reporting whether it exists.
func (c *Catalog) Lookup(modelID string) (Descriptor, bool) {
	d, ok := c.entries[modelID]
	return d, ok
}

// IDs returns all known model ids in catalog order.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.order))
	copy(ids, c.order)
	return ids
}

// Len returns the number of catalog entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Default returns the built-in model catalog for the chat fleet.
func Default() *Catalog {
	return New([]Descriptor{
		{
			ModelID:               "mistralai/Mistral-7B-Instruct-v0.1",
			ComputeClass:          ComputeGPUSmall,
			ContainerImage:        tgiImage,
			StartupTimeoutSeconds: 600,
			Environment: map[string]string{
				"SM_NUM_GPUS":      "1",
				"MAX_INPUT_LENGTH": "2048",
				"MAX_TOTAL_TOKENS": "4096",
			},
			InputModalities:  []Modality{ModalityText},
			OutputModalities: []Modality{ModalityText},
			Interface:        InterfaceChat,
			RAGSupported:     true,
		},
		{
			ModelID:               "mistralai/Mistral-7B-Instruct-v0.2",
			ComputeClass:          ComputeGPUSmall,
			ContainerImage:        tgiImage,
			StartupTimeoutSeconds: 600,
			Environment: map[string]string{
				"SM_NUM_GPUS":      "1",
				"MAX_INPUT_LENGTH": "8191",
				"MAX_TOTAL_TOKENS": "8192",
			},
			InputModalities:  []Modality{ModalityText},
			OutputModalities: []Modality{ModalityText},
			Interface:        InterfaceChat,
			RAGSupported:     true,
		},
		{
			ModelID:               "mistralai/Mixtral-8x7B-Instruct-v0.1",
			ComputeClass:          ComputeGPULarge,
			ContainerImage:        tgiImage,
			StartupTimeoutSeconds: 900,
			Environment: map[string]string{
				"SM_NUM_GPUS":              "8",
				"MAX_INPUT_LENGTH":         "24576",
				"MAX_TOTAL_TOKENS":         "32768",
				"MAX_BATCH_PREFILL_TOKENS": "24576",
			},
			InputModalities:  []Modality{ModalityText},
			OutputModalities: []Modality{ModalityText},
			Interface:        InterfaceChat,
			RAGSupported:     true,
		},
		{
			ModelID:               "meta-llama/Llama-2-13b-chat-hf",
			ComputeClass:          ComputeGPUMedium,
			ContainerImage:        tgiImage,
			StartupTimeoutSeconds: 900,
			Environment: map[string]string{
				"SM_NUM_GPUS":       "4",
				"MAX_INPUT_LENGTH":  "2048",
				"MAX_TOTAL_TOKENS":  "4096",
				"HF_MODEL_QUANTIZE": "bitsandbytes",
			},
			Gated:            true,
			InputModalities:  []Modality{ModalityText},
			OutputModalities: []Modality{ModalityText},
			Interface:        InterfaceChat,
			RAGSupported:     true,
		},
		{
			ModelID:               "amazon/FalconLite",
			ComputeClass:          ComputeGPUMedium,
			ContainerImage:        tgiImage,
			StartupTimeoutSeconds: 600,
			Environment: map[string]string{
				"SM_NUM_GPUS":       "4",
				"MAX_INPUT_LENGTH":  "12000",
				"MAX_TOTAL_TOKENS":  "12001",
				"HF_MODEL_QUANTIZE": "gptq",
				"TRUST_REMOTE_CODE": "true",
			},
			InputModalities:  []Modality{ModalityText},
			OutputModalities: []Modality{ModalityText},
			Interface:        InterfaceChat,
			RAGSupported:     true,
		},
		{
			ModelID:               "tiiuae/falcon-40b-instruct",
			ComputeClass:          ComputeGPULarge,
			ContainerImage:        tgiImage,
			StartupTimeoutSeconds: 900,
			Environment: map[string]string{
				"SM_NUM_GPUS":      "8",
				"MAX_INPUT_LENGTH": "1024",
				"MAX_TOTAL_TOKENS": "2048",
			},
			InputModalities:  []Modality{ModalityText},
			OutputModalities: []Modality{ModalityText},
			Interface:        InterfaceChat,
			RAGSupported:     true,
		},
		{
			ModelID:               "HuggingFaceM4/idefics-9b-instruct",
			ComputeClass:          ComputeGPUMedium,
			ContainerImage:        ideficsImage,
			StartupTimeoutSeconds: 900,
			Environment: map[string]string{
				"SM_NUM_GPUS":      "4",
				"MAX_INPUT_LENGTH": "1024",
				"MAX_TOTAL_TOKENS": "2048",
			},
			InputModalities:  []Modality{ModalityText, ModalityImage},
			OutputModalities: []Modality{ModalityText},
			Interface:        InterfaceMultiModal,
			RAGSupported:     false,
		},
		{
			ModelID:               "HuggingFaceM4/idefics-80b-instruct",
			ComputeClass:          ComputeGPULarge,
			ContainerImage:        ideficsImage,
			StartupTimeoutSeconds: 1200,
			Environment: map[string]string{
				"SM_NUM_GPUS":       "8",
				"MAX_INPUT_LENGTH":  "1024",
				"MAX_TOTAL_TOKENS":  "2048",
				"HF_MODEL_QUANTIZE": "bitsandbytes",
			},
			InputModalities:  []Modality{ModalityText, ModalityImage},
			OutputModalities: []Modality{ModalityText},
			Interface:        InterfaceMultiModal,
			RAGSupported:     false,
		},
	})
}

package registry

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/giantswarm/llm-fleet/internal/catalog"
	"github.com/giantswarm/llm-fleet/internal/fleet"
)

func testFleet() fleet.ResolvedFleet {
	return fleet.ResolvedFleet{
		Endpoints: []fleet.ResolvedEndpoint{
			{
				Name:             "mistralai-Mistral-7B-Instruct-v0-1",
				ResourceName:     "mistralai-mistral-7b-instruct-v0-1",
				EndpointHandle:   "http://mistral.test.svc.cluster.local/v1",
				ModelID:          "mistralai/Mistral-7B-Instruct-v0.1",
				InputModalities:  []catalog.Modality{catalog.ModalityText},
				OutputModalities: []catalog.Modality{catalog.ModalityText},
				Interface:        catalog.InterfaceChat,
				RAGSupported:     true,
			},
			{
				Name:             "HuggingFaceM4-idefics-9b-instruct",
				ResourceName:     "huggingfacem4-idefics-9b-instruct",
				EndpointHandle:   "http://idefics.test.svc.cluster.local/v1",
				ModelID:          "HuggingFaceM4/idefics-9b-instruct",
				InputModalities:  []catalog.Modality{catalog.ModalityText, catalog.ModalityImage},
				OutputModalities: []catalog.Modality{catalog.ModalityText},
				Interface:        catalog.InterfaceMultiModal,
				RAGSupported:     false,
			},
		},
	}
}

func TestRenderDocumentSchema(t *testing.T) {
	data, err := Render(testFleet())
	require.NoError(t, err)

	var raw []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, 2)

	first := raw[0]
	assert.Equal(t, "mistralai-Mistral-7B-Instruct-v0-1", first["name"])
	assert.Equal(t, "http://mistral.test.svc.cluster.local/v1", first["endpoint"])
	assert.Equal(t, false, first["responseStreamingSupported"])
	assert.Equal(t, []interface{}{"Text"}, first["inputModalities"])
	assert.Equal(t, []interface{}{"Text"}, first["outputModalities"])
	assert.Equal(t, "chat", first["interface"])
	assert.Equal(t, true, first["ragSupported"])

	second := raw[1]
	assert.Equal(t, []interface{}{"Text", "Image"}, second["inputModalities"])
	assert.Equal(t, "multimodal", second["interface"])
	assert.Equal(t, false, second["ragSupported"])
}

func TestRenderPreservesResolutionOrder(t *testing.T) {
	f := testFleet()
	data, err := Render(f)
	require.NoError(t, err)

	var entries []Entry
	require.NoError(t, json.Unmarshal(data, &entries))
	assert.Equal(t, "mistralai-Mistral-7B-Instruct-v0-1", entries[0].Name)
	assert.Equal(t, "HuggingFaceM4-idefics-9b-instruct", entries[1].Name)
}

// Rendering the same fleet twice yields byte-identical documents.
func TestRenderDeterministic(t *testing.T) {
	first, err := Render(testFleet())
	require.NoError(t, err)
	second, err := Render(testFleet())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRenderEmptyFleet(t *testing.T) {
	data, err := Render(fleet.ResolvedFleet{})
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestPublishCreatesDocument(t *testing.T) {
	client := fake.NewSimpleClientset()
	p := NewPublisher(client, "test-namespace")

	require.NoError(t, p.Publish(context.Background(), testFleet()))

	cm, err := client.CoreV1().ConfigMaps("test-namespace").Get(
		context.Background(), DocumentName, metav1.GetOptions{})
	require.NoError(t, err)
	assert.Contains(t, cm.Data, DocumentKey)

	var entries []Entry
	require.NoError(t, json.Unmarshal([]byte(cm.Data[DocumentKey]), &entries))
	assert.Len(t, entries, 2)
}

func TestPublishUnchangedFleetSkipsUpdate(t *testing.T) {
	client := fake.NewSimpleClientset()
	p := NewPublisher(client, "test-namespace")

	require.NoError(t, p.Publish(context.Background(), testFleet()))
	client.ClearActions()

	require.NoError(t, p.Publish(context.Background(), testFleet()))

	for _, a := range client.Actions() {
		assert.False(t, a.Matches("update", "configmaps"),
			"unchanged document must not be rewritten")
		assert.False(t, a.Matches("create", "configmaps"))
	}
}

func TestPublishChangedFleetUpdates(t *testing.T) {
	client := fake.NewSimpleClientset()
	p := NewPublisher(client, "test-namespace")

	require.NoError(t, p.Publish(context.Background(), testFleet()))

	smaller := testFleet()
	smaller.Endpoints = smaller.Endpoints[:1]
	require.NoError(t, p.Publish(context.Background(), smaller))

	entries, err := p.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "mistralai-Mistral-7B-Instruct-v0-1", entries[0].Name)
}

func TestFetchWithoutDocument(t *testing.T) {
	client := fake.NewSimpleClientset()
	p := NewPublisher(client, "test-namespace")

	entries, err := p.Fetch(context.Background())
	require.NoError(t, err)
	assert.Nil(t, entries)
}

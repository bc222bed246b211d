package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/giantswarm/llm-fleet/internal/catalog"
	"github.com/giantswarm/llm-fleet/internal/fleet"
	"github.com/giantswarm/llm-fleet/internal/provision"
	"github.com/giantswarm/llm-fleet/internal/registry"
	"github.com/giantswarm/llm-fleet/internal/schedule"
	"github.com/giantswarm/llm-fleet/internal/server"
)

// stubProvisioner returns endpoint handles without touching a cluster.
type stubProvisioner struct {
	namespace string
}

func (p stubProvisioner) EnsureEndpoint(_ context.Context, req fleet.EndpointRequest) (string, error) {
	return provision.EndpointURL(req.Name, p.namespace), nil
}

func newTestContext(t *testing.T) *server.ServerContext {
	t.Helper()

	client := fake.NewSimpleClientset()
	dynClient := dynamicfake.NewSimpleDynamicClientWithCustomListKinds(runtime.NewScheme(),
		map[schema.GroupVersionResource]string{
			{Group: "serving.kserve.io", Version: "v1beta1", Resource: "inferenceservices"}: "InferenceServiceList",
		},
	)
	cat := catalog.Default()

	return &server.ServerContext{
		Catalog:   cat,
		Resolver:  fleet.NewResolver(cat, stubProvisioner{namespace: "test-namespace"}, nil),
		Manager:   provision.NewManagerWithClient(dynClient, "test-namespace", provision.Placement{}),
		Publisher: registry.NewPublisher(client, "test-namespace"),
		Scheduler: schedule.NewScheduler(client, "test-namespace", ""),
		Namespace: "test-namespace",
	}
}

func textContent(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	content, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return content.Text
}

func TestHandleListCatalog(t *testing.T) {
	sc := newTestContext(t)

	result, err := handleListCatalog(context.Background(), mcp.CallToolRequest{}, sc)
	require.NoError(t, err)

	text := textContent(t, result)
	assert.Contains(t, text, "mistralai/Mistral-7B-Instruct-v0.1")

	var entries []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text), &entries))
	assert.GreaterOrEqual(t, len(entries), 1)

	e := entries[0]
	assert.Contains(t, e, "model_id")
	assert.Contains(t, e, "compute_class")
	assert.Contains(t, e, "interface")
	assert.Contains(t, e, "rag_supported")
}

func TestHandleGetRegistryEmpty(t *testing.T) {
	sc := newTestContext(t)

	result, err := handleGetRegistry(context.Background(), mcp.CallToolRequest{}, sc)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", textContent(t, result))
}

func TestHandleApplyFleetMissingRequired(t *testing.T) {
	sc := newTestContext(t)

	request := mcp.CallToolRequest{}
	request.Params.Arguments = map[string]interface{}{}

	result, err := handleApplyFleet(context.Background(), request, sc)
	require.NoError(t, err)
	assert.Contains(t, textContent(t, result), "model_ids is required")
}

func TestHandleApplyFleetPublishesRegistry(t *testing.T) {
	sc := newTestContext(t)

	request := mcp.CallToolRequest{}
	request.Params.Arguments = map[string]interface{}{
		"model_ids": []interface{}{"mistralai/Mistral-7B-Instruct-v0.1"},
	}

	result, err := handleApplyFleet(context.Background(), request, sc)
	require.NoError(t, err)

	text := textContent(t, result)
	assert.Contains(t, text, "mistralai-Mistral-7B-Instruct-v0-1")

	entries, err := sc.Publisher.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "mistralai-Mistral-7B-Instruct-v0-1", entries[0].Name)
}

func TestHandleApplyFleetReportsUnknownModel(t *testing.T) {
	sc := newTestContext(t)

	request := mcp.CallToolRequest{}
	request.Params.Arguments = map[string]interface{}{
		"model_ids": []interface{}{
			"vendor/does-not-exist",
			"amazon/FalconLite",
		},
	}

	result, err := handleApplyFleet(context.Background(), request, sc)
	require.NoError(t, err)

	text := textContent(t, result)
	assert.Contains(t, text, "unknown model")
	assert.Contains(t, text, "amazon-FalconLite")
}

func TestHandleApplyFleetDuplicateAborts(t *testing.T) {
	sc := newTestContext(t)

	request := mcp.CallToolRequest{}
	request.Params.Arguments = map[string]interface{}{
		"model_ids": []interface{}{
			"amazon/FalconLite",
			"amazon/FalconLite",
		},
	}

	result, err := handleApplyFleet(context.Background(), request, sc)
	require.NoError(t, err)
	assert.Contains(t, textContent(t, result), "resolution aborted")

	// Nothing may be published after a fatal duplicate.
	entries, err := sc.Publisher.Fetch(context.Background())
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestHandleApplyFleetWithSchedule(t *testing.T) {
	sc := newTestContext(t)

	request := mcp.CallToolRequest{}
	request.Params.Arguments = map[string]interface{}{
		"model_ids":      []interface{}{"amazon/FalconLite"},
		"schedule_start": "0 8 * * 1-5",
		"schedule_stop":  "0 20 * * *",
	}

	result, err := handleApplyFleet(context.Background(), request, sc)
	require.NoError(t, err)

	text := textContent(t, result)
	assert.Contains(t, text, "start_trigger")
	assert.Contains(t, text, "amazon-falconlite-start")
	assert.Contains(t, text, "amazon-falconlite-stop")
}

func TestHandleTeardownEndpointMissingRequired(t *testing.T) {
	sc := newTestContext(t)

	request := mcp.CallToolRequest{}
	request.Params.Arguments = map[string]interface{}{}

	result, err := handleTeardownEndpoint(context.Background(), request, sc)
	require.NoError(t, err)
	assert.Contains(t, textContent(t, result), "name is required")
}

func TestHandleListEndpointsNotConfigured(t *testing.T) {
	sc := &server.ServerContext{}

	result, err := handleListEndpoints(context.Background(), mcp.CallToolRequest{}, sc)
	require.NoError(t, err)
	assert.Contains(t, textContent(t, result), "not configured")
}

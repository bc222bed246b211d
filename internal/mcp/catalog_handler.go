package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/llm-fleet/internal/registry"
	"github.com/giantswarm/llm-fleet/internal/server"
)

func registerCatalogTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	listTool := mcp.NewTool("list_catalog",
		mcp.WithDescription("List the model ids the fleet catalog knows how to deploy"),
	)
	s.AddTool(listTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleListCatalog(ctx, request, sc)
	})

	registryTool := mcp.NewTool("get_registry",
		mcp.WithDescription("Read the currently published fleet registry document (endpoint names, URLs, and capability flags)"),
	)
	s.AddTool(registryTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleGetRegistry(ctx, request, sc)
	})

	return nil
}

func handleListCatalog(_ context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	type entry struct {
		ModelID      string   `json:"model_id"`
		ComputeClass string   `json:"compute_class"`
		Interface    string   `json:"interface"`
		Gated        bool     `json:"gated"`
		RAGSupported bool     `json:"rag_supported"`
		Input        []string `json:"input_modalities"`
	}

	entries := make([]entry, 0, sc.Catalog.Len())
	for _, id := range sc.Catalog.IDs() {
		desc, _ := sc.Catalog.Lookup(id)
		in := make([]string, 0, len(desc.InputModalities))
		for _, m := range desc.InputModalities {
			in = append(in, string(m))
		}
		entries = append(entries, entry{
			ModelID:      desc.ModelID,
			ComputeClass: string(desc.ComputeClass),
			Interface:    string(desc.Interface),
			Gated:        desc.Gated,
			RAGSupported: desc.RAGSupported,
			Input:        in,
		})
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal catalog: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func handleGetRegistry(ctx context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	if sc.Publisher == nil {
		return mcp.NewToolResultError("registry publisher is not configured (no cluster access)"), nil
	}

	entries, err := sc.Publisher.Fetch(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read registry: %v", err)), nil
	}
	if entries == nil {
		entries = []registry.Entry{}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal registry: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

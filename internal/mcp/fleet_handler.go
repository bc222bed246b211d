package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/llm-fleet/internal/fleet"
	"github.com/giantswarm/llm-fleet/internal/registry"
	"github.com/giantswarm/llm-fleet/internal/schedule"
	"github.com/giantswarm/llm-fleet/internal/server"
)

func registerFleetTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	// apply_fleet
	applyTool := mcp.NewTool("apply_fleet",
		mcp.WithDescription("Resolve the requested model ids against the catalog, provision one inference endpoint per model, and publish the fleet registry document. Optionally attaches start/stop schedule triggers."),
		mcp.WithArray("model_ids",
			mcp.Required(),
			mcp.Description("Ordered catalog model ids (e.g. ['mistralai/Mistral-7B-Instruct-v0.1'])"),
			mcp.WithStringItems(),
		),
		mcp.WithString("schedule_start",
			mcp.Description("Cron expression scaling endpoints up (requires schedule_stop)"),
		),
		mcp.WithString("schedule_stop",
			mcp.Description("Cron expression scaling endpoints down to zero"),
		),
	)
	s.AddTool(applyTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleApplyFleet(ctx, request, sc)
	})

	// list_endpoints
	listTool := mcp.NewTool("list_endpoints",
		mcp.WithDescription("List inference endpoints managed by llm-fleet"),
	)
	s.AddTool(listTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleListEndpoints(ctx, request, sc)
	})

	// teardown_endpoint
	teardownTool := mcp.NewTool("teardown_endpoint",
		mcp.WithDescription("Delete one inference endpoint and its schedule triggers"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Endpoint resource name to delete"),
		),
	)
	s.AddTool(teardownTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleTeardownEndpoint(ctx, request, sc)
	})

	return nil
}

func handleApplyFleet(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	if sc.Resolver == nil || sc.Publisher == nil {
		return mcp.NewToolResultError("fleet resolver is not configured (no cluster access)"), nil
	}

	args := request.GetArguments()

	rawIDs, ok := args["model_ids"].([]interface{})
	if !ok || len(rawIDs) == 0 {
		return mcp.NewToolResultError("model_ids is required"), nil
	}
	ids := make([]string, 0, len(rawIDs))
	for _, raw := range rawIDs {
		id, ok := raw.(string)
		if !ok || strings.TrimSpace(id) == "" {
			return mcp.NewToolResultError("model_ids must be non-empty strings"), nil
		}
		ids = append(ids, strings.TrimSpace(id))
	}

	resolved, resErrs, err := sc.Resolver.Resolve(ctx, ids)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("resolution aborted: %v", err)), nil
	}

	if err := sc.Publisher.Publish(ctx, resolved); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to publish registry: %v", err)), nil
	}

	var bindings []schedule.Binding
	startExpr, _ := args["schedule_start"].(string)
	stopExpr, _ := args["schedule_stop"].(string)
	if startExpr != "" || stopExpr != "" {
		if sc.Scheduler == nil {
			return mcp.NewToolResultError("scheduler is not configured"), nil
		}
		bindings, err = sc.Scheduler.Attach(ctx, resolved, schedule.Window{
			StartExpr: startExpr,
			StopExpr:  stopExpr,
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to attach schedules: %v", err)), nil
		}
	}

	return marshalApplyResult(resolved, resErrs, bindings)
}

func marshalApplyResult(resolved fleet.ResolvedFleet, resErrs []fleet.ResolutionError, bindings []schedule.Binding) (*mcp.CallToolResult, error) {
	type bindingView struct {
		Endpoint     string `json:"endpoint"`
		StartTrigger string `json:"start_trigger,omitempty"`
		StopTrigger  string `json:"stop_trigger,omitempty"`
		Error        string `json:"error,omitempty"`
	}

	result := struct {
		Resolved []registry.Entry `json:"resolved"`
		Errors   []string         `json:"errors,omitempty"`
		Bindings []bindingView    `json:"bindings,omitempty"`
	}{}

	data, err := registry.Render(resolved)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to render fleet: %v", err)), nil
	}
	if err := json.Unmarshal(data, &result.Resolved); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to render fleet: %v", err)), nil
	}

	for i := range resErrs {
		result.Errors = append(result.Errors, resErrs[i].Error())
	}
	for _, b := range bindings {
		view := bindingView{
			Endpoint:     b.EndpointName,
			StartTrigger: b.StartTrigger,
			StopTrigger:  b.StopTrigger,
		}
		if b.Err != nil {
			view.Error = b.Err.Error()
		}
		result.Bindings = append(result.Bindings, view)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func handleListEndpoints(ctx context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	if sc.Manager == nil {
		return mcp.NewToolResultError("endpoint manager is not configured (no cluster access)"), nil
	}

	statuses, err := sc.Manager.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list endpoints: %v", err)), nil
	}

	data, err := json.MarshalIndent(statuses, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal statuses: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func handleTeardownEndpoint(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	if sc.Manager == nil {
		return mcp.NewToolResultError("endpoint manager is not configured"), nil
	}

	args := request.GetArguments()

	name, ok := args["name"].(string)
	if !ok || name == "" {
		return mcp.NewToolResultError("name is required"), nil
	}

	if err := sc.Manager.Teardown(ctx, name); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to teardown endpoint: %v", err)), nil
	}
	if sc.Scheduler != nil {
		if err := sc.Scheduler.Detach(ctx, name); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("endpoint deleted but trigger cleanup failed: %v", err)), nil
		}
	}

	return mcp.NewToolResultText(fmt.Sprintf("endpoint %q deleted", name)), nil
}

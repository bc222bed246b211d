package server

import (
	"github.com/giantswarm/llm-fleet/internal/catalog"
	"github.com/giantswarm/llm-fleet/internal/fleet"
	"github.com/giantswarm/llm-fleet/internal/provision"
	"github.com/giantswarm/llm-fleet/internal/registry"
	"github.com/giantswarm/llm-fleet/internal/schedule"
)

// ServerContext holds shared dependencies for MCP tool handlers.
type ServerContext struct {
	Catalog   *catalog.Catalog
	Resolver  *fleet.Resolver
	Manager   *provision.Manager
	Publisher *registry.Publisher
	Scheduler *schedule.Scheduler
	Namespace string
}

// Package fleet converts a requested list of model ids into a resolved,
// provisioned fleet of inference endpoints.
package fleet

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/giantswarm/llm-fleet/internal/catalog"
)

// EndpointRequest is the deployment request handed to the provisioner for
// one resolved model.
type EndpointRequest struct {
	// Name is the Kubernetes resource name for the endpoint.
	Name string

	// DisplayName is the fleet-wide display name derived from the model id.
	DisplayName string

	ModelID        string
	ContainerImage string
	GPUCount       int
	Environment    map[string]string
	StartupTimeout time.Duration
}

// Provisioner materializes endpoint deployments. Implementations must be
// idempotent: ensuring an endpoint that already exists returns its handle
// without error.
type Provisioner interface {
	EnsureEndpoint(ctx context.Context, req EndpointRequest) (handle string, err error)
}

// TokenSource supplies hub access tokens for gated models. Implementations
// return an empty string when no token is available for the id.
type TokenSource interface {
	TokenFor(ctx context.Context, modelID string) (string, error)
}

// NoTokens is a TokenSource that never has a token. Used when configuration
// supplies no hub secret reference.
type NoTokens struct{}

func (NoTokens) TokenFor(context.Context, string) (string, error) { return "", nil }

// Environment keys the resolver injects on top of the catalog entry.
const (
	envModelID  = "HF_MODEL_ID"
	envHubToken = "HUGGING_FACE_HUB_TOKEN"
)

// Resolver turns requested model ids into resolved endpoints by consulting
// the catalog and delegating materialization to the provisioner.
type Resolver struct {
	catalog     *catalog.Catalog
	provisioner Provisioner
	tokens      TokenSource
}

// NewResolver creates a resolver over the given catalog. tokens may be nil,
// in which case gated models cannot be resolved.
func NewResolver(cat *catalog.Catalog, provisioner Provisioner, tokens TokenSource) *Resolver {
	if tokens == nil {
		tokens = NoTokens{}
	}
	return &Resolver{
		catalog:     cat,
		provisioner: provisioner,
		tokens:      tokens,
	}
}

// Resolve materializes the requested ids, in order, into a resolved fleet.
//
// Unknown ids, missing hub tokens, and per-endpoint provisioning failures are
// recorded as ResolutionErrors and the remaining ids are still resolved.
// Duplicate requested ids, or ids that derive the same name, are fatal: the
// returned error is non-nil and no endpoint is provisioned.
func (r *Resolver) Resolve(ctx context.Context, requestedIDs []string) (ResolvedFleet, []ResolutionError, error) {
	var resErrs []ResolutionError

	// Duplicate-name detection runs over the full request set before any
	// side effect commits.
	if dupErrs := findDuplicates(requestedIDs); len(dupErrs) > 0 {
		return ResolvedFleet{}, dupErrs, &dupErrs[0]
	}

	var fleet ResolvedFleet
	for _, id := range requestedIDs {
		desc, ok := r.catalog.Lookup(id)
		if !ok {
			slog.Warn("requested model not in catalog, skipping", "model_id", id)
			resErrs = append(resErrs, ResolutionError{ModelID: id, Kind: ErrUnknownModel})
			continue
		}

		env, err := r.buildEnvironment(ctx, desc)
		if err != nil {
			slog.Warn("hub token unavailable for gated model, skipping",
				"model_id", id, "error", err)
			resErrs = append(resErrs, ResolutionError{
				ModelID: id, Kind: ErrSecretUnavailable, Cause: err,
			})
			continue
		}

		req := EndpointRequest{
			Name:           deriveResourceName(id),
			DisplayName:    DeriveName(id),
			ModelID:        id,
			ContainerImage: desc.ContainerImage,
			GPUCount:       desc.ComputeClass.GPUCount(),
			Environment:    env,
			StartupTimeout: time.Duration(desc.StartupTimeoutSeconds) * time.Second,
		}

		handle, err := r.provisioner.EnsureEndpoint(ctx, req)
		if err != nil {
			slog.Error("failed to provision endpoint",
				"model_id", id, "name", req.Name, "error", err)
			resErrs = append(resErrs, ResolutionError{
				ModelID: id, Kind: ErrProvisioning, Cause: err,
			})
			continue
		}

		fleet.Endpoints = append(fleet.Endpoints, ResolvedEndpoint{
			Name:                       req.DisplayName,
			ResourceName:               req.Name,
			EndpointHandle:             handle,
			ModelID:                    id,
			InputModalities:            desc.InputModalities,
			OutputModalities:           desc.OutputModalities,
			Interface:                  desc.Interface,
			RAGSupported:               desc.RAGSupported,
			ResponseStreamingSupported: desc.ResponseStreamingSupported,
		})

		slog.Info("resolved model endpoint",
			"model_id", id, "name", req.DisplayName, "endpoint", handle)
	}

	return fleet, resErrs, nil
}

// buildEnvironment copies the descriptor environment and injects the model id
// and, for gated models, the hub token read at resolution time.
func (r *Resolver) buildEnvironment(ctx context.Context, desc catalog.Descriptor) (map[string]string, error) {
	env := make(map[string]string, len(desc.Environment)+2)
	for k, v := range desc.Environment {
		env[k] = v
	}
	env[envModelID] = desc.ModelID

	if desc.Gated {
		token, err := r.tokens.TokenFor(ctx, desc.ModelID)
		if err != nil {
			return nil, err
		}
		if token == "" {
			return nil, errors.New("no hub token configured for gated model")
		}
		env[envHubToken] = token
	}

	return env, nil
}

// findDuplicates reports every requested id whose derived display name or
// Kubernetes resource name collides with an earlier request.
func findDuplicates(requestedIDs []string) []ResolutionError {
	var errs []ResolutionError
	seenDisplay := make(map[string]string, len(requestedIDs))
	seenResource := make(map[string]string, len(requestedIDs))

	for _, id := range requestedIDs {
		display := DeriveName(id)
		resource := deriveResourceName(id)

		if first, ok := seenDisplay[display]; ok {
			errs = append(errs, ResolutionError{ModelID: id, Kind: ErrDuplicateName,
				Cause: &nameCollision{name: display, firstID: first}})
			continue
		}
		if first, ok := seenResource[resource]; ok {
			errs = append(errs, ResolutionError{ModelID: id, Kind: ErrDuplicateName,
				Cause: &nameCollision{name: resource, firstID: first}})
			continue
		}

		seenDisplay[display] = id
		seenResource[resource] = id
	}

	return errs
}

type nameCollision struct {
	name    string
	firstID string
}

func (c *nameCollision) Error() string {
	return "name " + c.name + " already derived from " + c.firstID
}

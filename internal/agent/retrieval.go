package agent

import (
	"context"
	"fmt"
	"log"
)

// Client contracts for the monitoring, incident and deployment providers the
// retrieval agent fans out to. The concrete clients live in internal/tools;
// tests substitute fakes.
type MetricsClient interface {
	ErrorRateMetrics(ctx context.Context, serviceName string) (map[string]any, error)
}

type IncidentClient interface {
	ActiveIncidents(ctx context.Context, serviceName string) (map[string]any, error)
}

type DeploymentClient interface {
	LastDeployment(ctx context.Context, serviceName string) (map[string]any, error)
}

// RetrievalAgent gathers incident context for a service from the monitoring,
// incident-management and deployment providers.
type RetrievalAgent struct {
	Metrics     MetricsClient
	Incidents   IncidentClient
	Deployments DeploymentClient
}

func NewRetrievalAgent(metrics MetricsClient, incidents IncidentClient, deployments DeploymentClient) *RetrievalAgent {
	return &RetrievalAgent{Metrics: metrics, Incidents: incidents, Deployments: deployments}
}

// GatherContext collects the three context views for a service. Any provider
// failure fails the whole step; partial context would only mislead the
// analysis that consumes it.
func (a *RetrievalAgent) GatherContext(ctx context.Context, params map[string]any) (any, error) {
	serviceName, ok := params["service_name"].(string)
	if !ok || serviceName == "" {
		return nil, fmt.Errorf("gather_context requires a 'service_name' parameter")
	}

	log.Printf("[Retrieval] gathering context for %q", serviceName)

	metrics, err := a.Metrics.ErrorRateMetrics(ctx, serviceName)
	if err != nil {
		return nil, fmt.Errorf("fetching error metrics: %w", err)
	}
	incidents, err := a.Incidents.ActiveIncidents(ctx, serviceName)
	if err != nil {
		return nil, fmt.Errorf("fetching active incidents: %w", err)
	}
	deployment, err := a.Deployments.LastDeployment(ctx, serviceName)
	if err != nil {
		return nil, fmt.Errorf("fetching last deployment: %w", err)
	}

	return map[string]any{
		"metrics":    metrics,
		"incidents":  incidents,
		"deployment": deployment,
	}, nil
}

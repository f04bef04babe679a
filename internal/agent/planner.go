package agent

import (
	"fmt"
	"log"

	"github.com/rahul/autops/internal/capability"
)

// Executor and action names used by plan steps. The executor's dispatch
// table is keyed by the same constants.
const (
	ExecutorResponder   = "ResponseGenerationAgent"
	ExecutorRetrieval   = "InformationRetrievalAgent"
	ExecutorPlanning    = "PlanningAgent"
	ExecutorKnowledge   = "KnowledgeAgent"
	ExecutorGitHub      = "github_client"
	ExecutorDatadog     = "datadog_client"
	ExecutorRemediation = "RemediationAgent"

	ActionPipelineStatus     = "get_latest_pipeline_status"
	ActionErrorRateMetrics   = "get_error_rate_metrics"
	ActionGatherContext      = "gather_context"
	ActionAnalyzeContext     = "analyze_context_and_suggest_fix"
	ActionSearchKnowledge    = "search_knowledge"
	ActionErrorResponse      = "generate_error_response"
	ActionNotImplemented     = "generate_not_implemented_response"
	ActionExecuteRemediation = "execute_remediation"
)

// Planner maps a classified intent to an ordered list of steps. The registry
// is consulted before any tool step is emitted so unsupported requests
// degrade to an explanatory response.
type Planner struct {
	Registry *capability.Registry
}

func NewPlanner(registry *capability.Registry) *Planner {
	return &Planner{Registry: registry}
}

// BuildPlan creates an execution plan for the query. A *ValidationError
// return means the user's input is missing something (not a system failure);
// callers must branch on it and reply rather than escalate.
func (p *Planner) BuildPlan(query *StructuredQuery) (*Plan, error) {
	if query.Intent == "" {
		return nil, validationErrorf("no intent found in the structured query")
	}

	plan := &Plan{
		Intent:        query.Intent,
		OriginalQuery: query.OriginalQuery,
	}

	switch query.Intent {
	case IntentCICDStatus:
		serviceName, ok := stringEntity(query, "service_name")
		if !ok {
			return nil, validationErrorf("missing 'service_name' entity for intent '%s'", query.Intent)
		}

		if supported, reason := p.Registry.IsSupported(ExecutorGitHub, ActionPipelineStatus); !supported {
			log.Printf("Tool validation failed: %s", reason)
			plan.Steps = append(plan.Steps, errorResponseStep(fmt.Sprintf(
				"I can't complete this request yet: %s. Please check GitHub manually or try a different request.", reason)))
			break
		}

		plan.Steps = append(plan.Steps, &Step{
			Kind:     KindTool,
			Executor: ExecutorGitHub,
			Action:   ActionPipelineStatus,
			Parameters: map[string]ParamValue{
				"repo_name": Literal(serviceName),
			},
			Status: StatusPending,
		})

	case IntentInvestigate:
		serviceName, ok := stringEntity(query, "service_name")
		if !ok {
			return nil, validationErrorf("missing 'service_name' entity for intent '%s'", query.Intent)
		}

		plan.Steps = append(plan.Steps,
			&Step{
				Kind:     KindAgent,
				Executor: ExecutorRetrieval,
				Action:   ActionGatherContext,
				Parameters: map[string]ParamValue{
					"service_name": Literal(serviceName),
				},
				Status: StatusPending,
			},
			&Step{
				Kind:     KindAgent,
				Executor: ExecutorPlanning,
				Action:   ActionAnalyzeContext,
				Parameters: map[string]ParamValue{
					"context": PreviousStepOutput(),
				},
				Status: StatusPending,
			},
		)

	case IntentServiceMetrics:
		serviceName, ok := stringEntity(query, "service_name")
		if !ok {
			return nil, validationErrorf("missing 'service_name' entity for intent '%s'", query.Intent)
		}

		if supported, reason := p.Registry.IsSupported(ExecutorDatadog, ActionErrorRateMetrics); !supported {
			log.Printf("Tool validation failed: %s", reason)
			plan.Steps = append(plan.Steps, errorResponseStep(fmt.Sprintf(
				"I can't complete this request yet: %s.", reason)))
			break
		}

		plan.Steps = append(plan.Steps, &Step{
			Kind:     KindTool,
			Executor: ExecutorDatadog,
			Action:   ActionErrorRateMetrics,
			Parameters: map[string]ParamValue{
				"service_name": Literal(serviceName),
			},
			Status: StatusPending,
		})

	case IntentKnowledge:
		plan.Steps = append(plan.Steps, &Step{
			Kind:     KindAgent,
			Executor: ExecutorKnowledge,
			Action:   ActionSearchKnowledge,
			Parameters: map[string]ParamValue{
				"query": Literal(query.OriginalQuery),
			},
			Status: StatusPending,
		})

	default:
		plan.Steps = append(plan.Steps, &Step{
			Kind:     KindAgent,
			Executor: ExecutorResponder,
			Action:   ActionNotImplemented,
			Parameters: map[string]ParamValue{
				"message": Literal(fmt.Sprintf("I don't know how to handle the intent '%s' yet.", query.Intent)),
			},
			Status: StatusPending,
		})
	}

	return plan, nil
}

func errorResponseStep(message string) *Step {
	return &Step{
		Kind:     KindAgent,
		Executor: ExecutorResponder,
		Action:   ActionErrorResponse,
		Parameters: map[string]ParamValue{
			"message": Literal(message),
		},
		Status: StatusPending,
	}
}

func stringEntity(query *StructuredQuery, key string) (string, bool) {
	v, ok := query.Entities[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

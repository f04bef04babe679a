package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rahul/autops/internal/observability"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

const analysisPrompt = `You are an expert Senior Site Reliability Engineer. Your task is to analyze
the provided context from various monitoring tools and determine the most
likely root cause of an incident. Based on your analysis, you must suggest
a single, simple remediation action. The output must be a JSON object
containing your analysis and the suggested remediation.

Example Output:
{
  "analysis": "High error rates started immediately after the latest deployment (deploy-123), which points to a bad code change.",
  "suggested_remediation": {
    "action": "rollback_deployment",
    "parameters": {
      "deployment_id": "deploy-123"
    }
  }
}`

const reflectionPrompt = `You are an expert DevOps engineer reviewing the execution of an
automated workflow. Your task is to analyze the workflow plan and
execution results, then provide insights about what went well, what
could be improved, and recommendations for future actions.

Provide your response as a JSON object with the following structure:
{
  "overall_success": boolean,
  "confidence_score": float (0.0-1.0),
  "insights": {
    "successes": ["list of things that went well"],
    "failures": ["list of things that failed or could be improved"],
    "unexpected_findings": ["list of unexpected discoveries"]
  },
  "recommendations": {
    "immediate_actions": ["list of actions to take now"],
    "future_improvements": ["list of process improvements"]
  },
  "risk_assessment": {
    "risk_level": "low|medium|high",
    "risk_factors": ["list of identified risks"]
  }
}`

// AnalysisAgent owns the two LLM-backed reasoning calls: root-cause analysis
// of gathered incident context, and post-hoc reflection on a whole plan run.
type AnalysisAgent struct {
	Model  llms.Model
	Logger *observability.Logger
}

func NewAnalysisAgent(model llms.Model, logger *observability.Logger) *AnalysisAgent {
	return &AnalysisAgent{Model: model, Logger: logger}
}

// AnalyzeContext asks the model for a root cause and a single remediation
// suggestion. The `context` parameter carries the previous step's result.
func (a *AnalysisAgent) AnalyzeContext(ctx context.Context, params map[string]any) (any, error) {
	incidentCtx := params["context"]
	if incidentCtx == nil {
		return nil, fmt.Errorf("analyze_context_and_suggest_fix requires a 'context' parameter")
	}

	ctxJSON, err := json.MarshalIndent(incidentCtx, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling incident context: %w", err)
	}

	content, err := a.generateJSON(ctx, analysisPrompt,
		fmt.Sprintf("Here is the context for the incident:\n%s", ctxJSON))
	if err != nil {
		return nil, fmt.Errorf("incident analysis failed: %w", err)
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("parsing analysis response: %w", err)
	}
	return result, nil
}

// ReflectOnWorkflow reviews a finished plan. Purely diagnostic: the caller
// logs and persists the reflection but never branches on it.
func (a *AnalysisAgent) ReflectOnWorkflow(ctx context.Context, plan *Plan) (*WorkflowReflection, error) {
	start := time.Now()

	planJSON, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling plan: %w", err)
	}

	content, err := a.generateJSON(ctx, reflectionPrompt,
		fmt.Sprintf("Workflow execution to review:\n%s\n\nPlease analyze this workflow execution and provide your insights.", planJSON))
	if err != nil {
		return nil, fmt.Errorf("workflow reflection failed: %w", err)
	}

	var reflection WorkflowReflection
	if err := json.Unmarshal([]byte(content), &reflection); err != nil {
		return nil, fmt.Errorf("parsing reflection response: %w", err)
	}

	reflection.Intent = plan.Intent
	reflection.TotalSteps = len(plan.Steps)
	for _, step := range plan.Steps {
		if step.Status == StatusCompleted {
			reflection.SuccessfulSteps++
		}
	}
	reflection.ProcessingMS = float64(time.Since(start).Microseconds()) / 1000.0

	return &reflection, nil
}

func (a *AnalysisAgent) generateJSON(ctx context.Context, system, user string) (string, error) {
	messages := []llms.MessageContent{
		{
			Role:  schema.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(system)},
		},
		{
			Role:  schema.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(user)},
		},
	}

	var content string
	op := func() error {
		resp, err := a.Model.GenerateContent(ctx, messages,
			llms.WithJSONMode(),
			llms.WithTemperature(0),
		)
		if err != nil {
			if isTransient(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
			return backoff.Permanent(fmt.Errorf("empty response from model"))
		}
		content = resp.Choices[0].Content
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 4 * time.Second
	b.MaxInterval = 10 * time.Second
	b.Multiplier = 2
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, 2), ctx)); err != nil {
		return "", err
	}

	a.Logger.LogLLM("", user, content)
	return content, nil
}

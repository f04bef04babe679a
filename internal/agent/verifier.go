package agent

import (
	"fmt"

	"github.com/rahul/autops/internal/observability"
)

// Verifier checks an executed step's result against the expected shape for
// its (executor, action) pair. Its output is advisory: it feeds confidence
// scoring and the audit trail, never the orchestrator's control flow.
type Verifier struct {
	Logger *observability.Logger
}

func NewVerifier(logger *observability.Logger) *Verifier {
	return &Verifier{Logger: logger}
}

// Validate judges one step. A step that is not completed, or completed with
// an empty result, is invalid at confidence 0 before any shape check runs.
func (v *Verifier) Validate(step *Step) ValidationResult {
	res := ValidationResult{
		Issues:      []string{},
		Suggestions: []string{},
	}

	if step.Status != StatusCompleted {
		res.Issues = append(res.Issues, fmt.Sprintf("Step failed with status: %s", step.Status))
		res.Suggestions = append(res.Suggestions, "Retry the step or check error details")
		v.log(step, res)
		return res
	}

	if step.Result == nil {
		res.Issues = append(res.Issues, "No result returned from step execution")
		res.Suggestions = append(res.Suggestions, "Verify the agent/tool implementation")
		v.log(step, res)
		return res
	}

	switch {
	case step.Executor == ExecutorRetrieval && step.Action == ActionGatherContext:
		res = v.validateContext(step.Result)
	case step.Executor == ExecutorGitHub && step.Action == ActionPipelineStatus:
		res = v.validatePipeline(step.Result)
	case step.Executor == ExecutorPlanning && step.Action == ActionAnalyzeContext:
		res = v.validateAnalysis(step.Result)
	default:
		res.Valid = true
		res.Confidence = 0.8
		res.Suggestions = append(res.Suggestions, "Manual review recommended for this result type")
	}

	v.log(step, res)
	return res
}

func (v *Verifier) validateContext(result any) ValidationResult {
	res := okResult()
	data, ok := result.(map[string]any)
	if !ok {
		return invalidShape(res, "Context result is not a map")
	}

	missing := missingKeys(data, "metrics", "incidents", "deployment")
	if len(missing) > 0 {
		res.Valid = false
		res.Confidence = 0.3
		res.Issues = append(res.Issues, fmt.Sprintf("Missing context data: %v", missing))
	}
	return res
}

func (v *Verifier) validatePipeline(result any) ValidationResult {
	res := okResult()
	data, ok := result.(map[string]any)
	if !ok {
		return invalidShape(res, "Pipeline result is not a map")
	}

	missing := missingKeys(data, "status", "conclusion")
	if len(missing) > 0 {
		res.Valid = false
		res.Confidence = 0.4
		res.Issues = append(res.Issues, fmt.Sprintf("Missing GitHub data: %v", missing))
	}
	return res
}

func (v *Verifier) validateAnalysis(result any) ValidationResult {
	res := okResult()
	data, ok := result.(map[string]any)
	if !ok {
		return invalidShape(res, "Analysis result is not a map")
	}

	missing := missingKeys(data, "analysis", "suggested_remediation")
	if len(missing) > 0 {
		res.Valid = false
		res.Confidence = 0.2
		res.Issues = append(res.Issues, fmt.Sprintf("Missing analysis data: %v", missing))
	}

	if remediation, ok := data["suggested_remediation"]; ok {
		m, isMap := remediation.(map[string]any)
		if !isMap {
			res.Confidence = 0.4
			res.Issues = append(res.Issues, "Invalid remediation format")
		} else if _, hasAction := m["action"]; !hasAction {
			res.Confidence = 0.4
			res.Issues = append(res.Issues, "Invalid remediation format")
		}
	}
	return res
}

func (v *Verifier) log(step *Step, res ValidationResult) {
	v.Logger.LogValidation("", step.Executor, step.Action, res.Valid, res.Confidence, res.Issues)
}

func okResult() ValidationResult {
	return ValidationResult{
		Valid:       true,
		Confidence:  0.9,
		Issues:      []string{},
		Suggestions: []string{},
	}
}

func invalidShape(res ValidationResult, issue string) ValidationResult {
	res.Valid = false
	res.Confidence = 0.2
	res.Issues = append(res.Issues, issue)
	return res
}

func missingKeys(data map[string]any, keys ...string) []string {
	var missing []string
	for _, k := range keys {
		if _, ok := data[k]; !ok {
			missing = append(missing, k)
		}
	}
	return missing
}

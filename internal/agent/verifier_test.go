package agent

import (
	"strings"
	"testing"
)

func TestValidateFailedStep(t *testing.T) {
	v := NewVerifier(nil)

	res := v.Validate(&Step{
		Executor: ExecutorGitHub,
		Action:   ActionPipelineStatus,
		Status:   StatusFailed,
		Error:    "boom",
	})

	if res.Valid {
		t.Error("failed step marked valid")
	}
	if res.Confidence != 0 {
		t.Errorf("confidence = %v, want 0", res.Confidence)
	}
	if len(res.Issues) == 0 || !strings.Contains(res.Issues[0], "Step failed with status: failed") {
		t.Errorf("issues = %v", res.Issues)
	}
}

func TestValidateNilResult(t *testing.T) {
	v := NewVerifier(nil)

	res := v.Validate(&Step{
		Executor: ExecutorGitHub,
		Action:   ActionPipelineStatus,
		Status:   StatusCompleted,
	})

	if res.Valid || res.Confidence != 0 {
		t.Errorf("got valid=%v confidence=%v, want invalid at 0", res.Valid, res.Confidence)
	}
	if len(res.Issues) == 0 || res.Issues[0] != "No result returned from step execution" {
		t.Errorf("issues = %v", res.Issues)
	}
}

func TestValidateContextResult(t *testing.T) {
	v := NewVerifier(nil)
	step := func(result any) *Step {
		return &Step{
			Executor: ExecutorRetrieval,
			Action:   ActionGatherContext,
			Status:   StatusCompleted,
			Result:   result,
		}
	}

	full := map[string]any{"metrics": 1, "incidents": 2, "deployment": 3}
	if res := v.Validate(step(full)); !res.Valid || res.Confidence != 0.9 {
		t.Errorf("full context: valid=%v confidence=%v", res.Valid, res.Confidence)
	}

	partial := map[string]any{"metrics": 1}
	res := v.Validate(step(partial))
	if res.Valid || res.Confidence != 0.3 {
		t.Errorf("partial context: valid=%v confidence=%v, want invalid at 0.3", res.Valid, res.Confidence)
	}
	if len(res.Issues) == 0 || !strings.Contains(res.Issues[0], "Missing context data") {
		t.Errorf("issues = %v", res.Issues)
	}

	if res := v.Validate(step("not a map")); res.Valid || res.Confidence != 0.2 {
		t.Errorf("non-map context: valid=%v confidence=%v, want invalid at 0.2", res.Valid, res.Confidence)
	}
}

func TestValidatePipelineResult(t *testing.T) {
	v := NewVerifier(nil)
	step := func(result any) *Step {
		return &Step{
			Executor: ExecutorGitHub,
			Action:   ActionPipelineStatus,
			Status:   StatusCompleted,
			Result:   result,
		}
	}

	good := map[string]any{"status": "completed", "conclusion": "success"}
	if res := v.Validate(step(good)); !res.Valid || res.Confidence != 0.9 {
		t.Errorf("good pipeline: valid=%v confidence=%v", res.Valid, res.Confidence)
	}

	res := v.Validate(step(map[string]any{"status": "completed"}))
	if res.Valid || res.Confidence != 0.4 {
		t.Errorf("missing conclusion: valid=%v confidence=%v, want invalid at 0.4", res.Valid, res.Confidence)
	}
}

func TestValidateAnalysisResult(t *testing.T) {
	v := NewVerifier(nil)
	step := func(result any) *Step {
		return &Step{
			Executor: ExecutorPlanning,
			Action:   ActionAnalyzeContext,
			Status:   StatusCompleted,
			Result:   result,
		}
	}

	good := map[string]any{
		"analysis": "bad deploy",
		"suggested_remediation": map[string]any{
			"action":     "rollback_deployment",
			"parameters": map[string]any{"deployment_id": "deploy-123"},
		},
	}
	if res := v.Validate(step(good)); !res.Valid || res.Confidence != 0.9 {
		t.Errorf("good analysis: valid=%v confidence=%v", res.Valid, res.Confidence)
	}

	res := v.Validate(step(map[string]any{"analysis": "bad deploy"}))
	if res.Valid || res.Confidence != 0.2 {
		t.Errorf("missing remediation: valid=%v confidence=%v, want invalid at 0.2", res.Valid, res.Confidence)
	}

	// Remediation present but with the wrong shape.
	badFormat := map[string]any{
		"analysis":              "bad deploy",
		"suggested_remediation": "just roll it back",
	}
	res = v.Validate(step(badFormat))
	if res.Confidence != 0.4 {
		t.Errorf("string remediation: confidence=%v, want 0.4", res.Confidence)
	}
	found := false
	for _, issue := range res.Issues {
		if issue == "Invalid remediation format" {
			found = true
		}
	}
	if !found {
		t.Errorf("issues = %v, want invalid-format issue", res.Issues)
	}

	noAction := map[string]any{
		"analysis":              "bad deploy",
		"suggested_remediation": map[string]any{"parameters": map[string]any{}},
	}
	if res := v.Validate(step(noAction)); res.Confidence != 0.4 {
		t.Errorf("remediation without action: confidence=%v, want 0.4", res.Confidence)
	}
}

func TestValidateUnknownResultType(t *testing.T) {
	v := NewVerifier(nil)

	res := v.Validate(&Step{
		Executor: ExecutorKnowledge,
		Action:   ActionSearchKnowledge,
		Status:   StatusCompleted,
		Result:   map[string]any{"query": "x", "findings": "y"},
	})

	if !res.Valid || res.Confidence != 0.8 {
		t.Errorf("valid=%v confidence=%v, want valid at 0.8", res.Valid, res.Confidence)
	}
	if len(res.Suggestions) == 0 || res.Suggestions[0] != "Manual review recommended for this result type" {
		t.Errorf("suggestions = %v", res.Suggestions)
	}
}

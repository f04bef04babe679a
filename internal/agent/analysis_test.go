package agent

import (
	"context"
	"errors"
	"testing"
)

func TestAnalyzeContextRequiresContext(t *testing.T) {
	a := NewAnalysisAgent(&fakeModel{}, nil)

	if _, err := a.AnalyzeContext(context.Background(), map[string]any{}); err == nil {
		t.Error("missing context parameter accepted")
	}
}

func TestAnalyzeContextParsesModelOutput(t *testing.T) {
	m := &fakeModel{responses: []string{
		`{"analysis": "errors spiked after deploy-123", "suggested_remediation": {"action": "rollback_deployment", "parameters": {"deployment_id": "deploy-123"}}}`,
	}}
	a := NewAnalysisAgent(m, nil)

	incidentCtx := map[string]any{
		"metrics":    map[string]any{"error_rate": 0.4},
		"incidents":  map[string]any{"total_incidents": 1},
		"deployment": map[string]any{"has_deployments": true},
	}
	result, err := a.AnalyzeContext(context.Background(), map[string]any{"context": incidentCtx})
	if err != nil {
		t.Fatalf("AnalyzeContext: %v", err)
	}

	data, ok := result.(map[string]any)
	if !ok {
		t.Fatalf("result = %T", result)
	}
	if data["analysis"] != "errors spiked after deploy-123" {
		t.Errorf("analysis = %v", data["analysis"])
	}
	remediation, _ := data["suggested_remediation"].(map[string]any)
	if remediation["action"] != "rollback_deployment" {
		t.Errorf("remediation = %v", remediation)
	}
}

func TestAnalyzeContextRejectsNonJSON(t *testing.T) {
	m := &fakeModel{responses: []string{"it is probably the deploy"}}
	a := NewAnalysisAgent(m, nil)

	if _, err := a.AnalyzeContext(context.Background(), map[string]any{"context": "x"}); err == nil {
		t.Error("non-JSON analysis accepted")
	}
}

func TestReflectOnWorkflowAddsMetadata(t *testing.T) {
	m := &fakeModel{responses: []string{
		`{"overall_success": true, "confidence_score": 0.85, "insights": {"successes": ["all steps ran"]}, "recommendations": {}, "risk_assessment": {"risk_level": "low"}}`,
	}}
	a := NewAnalysisAgent(m, nil)

	plan := &Plan{
		Intent: IntentInvestigate,
		Steps: []*Step{
			{Status: StatusCompleted},
			{Status: StatusCompleted},
			{Status: StatusFailed},
		},
	}

	reflection, err := a.ReflectOnWorkflow(context.Background(), plan)
	if err != nil {
		t.Fatalf("ReflectOnWorkflow: %v", err)
	}

	if !reflection.OverallSuccess || reflection.ConfidenceScore != 0.85 {
		t.Errorf("reflection = %+v", reflection)
	}
	if reflection.Intent != IntentInvestigate {
		t.Errorf("intent = %q", reflection.Intent)
	}
	if reflection.TotalSteps != 3 || reflection.SuccessfulSteps != 2 {
		t.Errorf("steps = %d/%d, want 2/3", reflection.SuccessfulSteps, reflection.TotalSteps)
	}
}

func TestReflectOnWorkflowSurfacesModelFailure(t *testing.T) {
	m := &fakeModel{errs: []error{errors.New("model offline")}}
	a := NewAnalysisAgent(m, nil)

	if _, err := a.ReflectOnWorkflow(context.Background(), &Plan{Intent: IntentUnknown}); err == nil {
		t.Error("model failure swallowed")
	}
}

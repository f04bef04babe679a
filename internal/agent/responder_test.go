package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestRespondFailedStepTakesPriority(t *testing.T) {
	messenger := &recordingMessenger{}
	model := &fakeModel{responses: []string{"should not be used"}}
	r := NewResponder(model, messenger, nil)

	plan := &Plan{Intent: IntentInvestigate, OriginalQuery: "payments is down"}
	failed := &Step{Status: StatusFailed, Error: "Datadog API error (status 500): internal error"}

	if err := r.Respond(context.Background(), plan, map[string]any{"analysis": "x"}, failed, "C1"); err != nil {
		t.Fatalf("Respond: %v", err)
	}

	msgs := messenger.messages()
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	want := "I'm sorry, I couldn't complete your request. Reason: Datadog API error (status 500): internal error"
	if msgs[0].Text != want {
		t.Errorf("text = %q, want %q", msgs[0].Text, want)
	}
	if model.callCount() != 0 {
		t.Errorf("model called %d times on the failure branch, want 0", model.callCount())
	}
}

func TestRespondInvestigationBuildsApprovalPrompt(t *testing.T) {
	messenger := &recordingMessenger{}
	r := NewResponder(&fakeModel{}, messenger, nil)

	result := map[string]any{
		"analysis": "High error rates started right after deploy-123.",
		"suggested_remediation": map[string]any{
			"action":     "rollback_deployment",
			"parameters": map[string]any{"deployment_id": "deploy-123"},
		},
	}
	plan := &Plan{Intent: IntentInvestigate, OriginalQuery: "payments is down"}

	if err := r.Respond(context.Background(), plan, result, nil, "C1"); err != nil {
		t.Fatalf("Respond: %v", err)
	}

	prompts := messenger.interactives()
	if len(prompts) != 1 {
		t.Fatalf("got %d interactive messages, want 1", len(prompts))
	}
	msg := prompts[0].Msg
	if msg.ApproveID != "approve_rollback_deployment" || msg.DenyID != "deny_rollback_deployment" {
		t.Errorf("control ids = %q / %q", msg.ApproveID, msg.DenyID)
	}
	if msg.DenyValue != "rollback_deployment" {
		t.Errorf("deny value = %q", msg.DenyValue)
	}

	// The approve payload must round-trip to the action descriptor.
	var action RemediationAction
	if err := json.Unmarshal([]byte(msg.ApproveValue), &action); err != nil {
		t.Fatalf("approve value is not valid JSON: %v", err)
	}
	if action.Action != "rollback_deployment" {
		t.Errorf("decoded action = %q", action.Action)
	}
	if action.Parameters["deployment_id"] != "deploy-123" {
		t.Errorf("decoded parameters = %v", action.Parameters)
	}
}

func TestRespondInvestigationWithoutRemediationFallsThrough(t *testing.T) {
	messenger := &recordingMessenger{}
	model := &fakeModel{responses: []string{"Here is what I found about the incident."}}
	r := NewResponder(model, messenger, nil)

	result := map[string]any{"analysis": "inconclusive"}
	plan := &Plan{Intent: IntentInvestigate, OriginalQuery: "payments is down"}

	if err := r.Respond(context.Background(), plan, result, nil, "C1"); err != nil {
		t.Fatalf("Respond: %v", err)
	}

	if len(messenger.interactives()) != 0 {
		t.Error("approval prompt sent without a usable remediation")
	}
	msgs := messenger.messages()
	if len(msgs) != 1 || msgs[0].Text != "Here is what I found about the incident." {
		t.Errorf("messages = %v", msgs)
	}
}

func TestRespondRelaysCannedMessageVerbatim(t *testing.T) {
	messenger := &recordingMessenger{}
	model := &fakeModel{responses: []string{"should not be used"}}
	r := NewResponder(model, messenger, nil)

	canned := map[string]any{
		"message": "I can't complete this request yet: GitLab integration is not yet implemented.",
		"canned":  true,
	}
	plan := &Plan{Intent: IntentCICDStatus, OriginalQuery: "gitlab build?"}

	if err := r.Respond(context.Background(), plan, canned, nil, "C1"); err != nil {
		t.Fatalf("Respond: %v", err)
	}

	msgs := messenger.messages()
	if len(msgs) != 1 || msgs[0].Text != canned["message"] {
		t.Errorf("messages = %v, want the canned text verbatim", msgs)
	}
	if model.callCount() != 0 {
		t.Errorf("model called %d times for a canned message, want 0", model.callCount())
	}
}

func TestRespondSynthesizesWithModel(t *testing.T) {
	messenger := &recordingMessenger{}
	model := &fakeModel{responses: []string{"The latest build for checkout-service passed."}}
	r := NewResponder(model, messenger, nil)

	result := map[string]any{"status": "completed", "conclusion": "success"}
	plan := &Plan{Intent: IntentCICDStatus, OriginalQuery: "is the build passing?"}

	if err := r.Respond(context.Background(), plan, result, nil, "C1"); err != nil {
		t.Fatalf("Respond: %v", err)
	}

	msgs := messenger.messages()
	if len(msgs) != 1 || msgs[0].Text != "The latest build for checkout-service passed." {
		t.Errorf("messages = %v", msgs)
	}
	if model.callCount() != 1 {
		t.Errorf("model called %d times, want 1", model.callCount())
	}
}

func TestRespondSynthesisFailureFallsBack(t *testing.T) {
	messenger := &recordingMessenger{}
	model := &fakeModel{errs: []error{errors.New("model offline")}}
	r := NewResponder(model, messenger, nil)

	plan := &Plan{Intent: IntentCICDStatus, OriginalQuery: "is the build passing?"}
	if err := r.Respond(context.Background(), plan, map[string]any{"status": "x"}, nil, "C1"); err != nil {
		t.Fatalf("Respond: %v", err)
	}

	msgs := messenger.messages()
	if len(msgs) != 1 || msgs[0].Text != "I encountered an error while trying to formulate a response." {
		t.Errorf("messages = %v, want the fixed fallback", msgs)
	}
}

func TestGenerateCannedResponses(t *testing.T) {
	r := NewResponder(&fakeModel{}, &recordingMessenger{}, nil)

	for _, fn := range []StepFunc{r.GenerateErrorResponse, r.GenerateNotImplementedResponse} {
		result, err := fn(context.Background(), map[string]any{"message": "nope"})
		if err != nil {
			t.Fatalf("canned response: %v", err)
		}
		data, ok := result.(map[string]any)
		if !ok || data["message"] != "nope" || data["canned"] != true {
			t.Errorf("result = %v", result)
		}

		if _, err := fn(context.Background(), map[string]any{}); err == nil {
			t.Error("missing 'message' parameter accepted")
		}
	}
}

func TestBuildApprovalPromptRejectsBadShapes(t *testing.T) {
	cases := []struct {
		name   string
		result any
	}{
		{"not a map", "plain text"},
		{"no remediation", map[string]any{"analysis": "x"}},
		{"remediation without action", map[string]any{
			"analysis":              "x",
			"suggested_remediation": map[string]any{"parameters": map[string]any{}},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok := buildApprovalPrompt(tc.result); ok {
				t.Error("expected prompt construction to be refused")
			}
		})
	}
}

func TestBuildApprovalPromptDefaultsAnalysisText(t *testing.T) {
	msg, ok := buildApprovalPrompt(map[string]any{
		"suggested_remediation": map[string]any{"action": "restart_service"},
	})
	if !ok {
		t.Fatal("prompt not built")
	}
	if !strings.Contains(msg.Analysis, "No analysis provided") {
		t.Errorf("analysis = %q", msg.Analysis)
	}
}

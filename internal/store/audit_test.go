package store

import (
	"path/filepath"
	"testing"

	"github.com/rahul/autops/internal/agent"
)

func newTestStore(t *testing.T) *AuditStore {
	t.Helper()
	s, err := NewAuditStore(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("NewAuditStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndReadQueries(t *testing.T) {
	s := newTestStore(t)

	queries := []*agent.StructuredQuery{
		{Intent: "get_ci_cd_status", OriginalQuery: "is the build passing?", Confidence: 0.95, ModelUsed: "gpt-4o"},
		{Intent: "knowledge_query", OriginalQuery: "what is a canary?", Confidence: 0.8, ModelUsed: "gpt-4o"},
	}
	for _, q := range queries {
		if err := s.RecordQuery("C1", q); err != nil {
			t.Fatalf("RecordQuery: %v", err)
		}
	}

	records, err := s.RecentQueries(10)
	if err != nil {
		t.Fatalf("RecentQueries: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	byIntent := make(map[string]QueryRecord)
	for _, r := range records {
		byIntent[r.Intent] = r
	}
	cicd, ok := byIntent["get_ci_cd_status"]
	if !ok {
		t.Fatal("cicd query not persisted")
	}
	if cicd.Channel != "C1" || cicd.Query != "is the build passing?" || cicd.Confidence != 0.95 {
		t.Errorf("record = %+v", cicd)
	}
}

func TestRecentQueriesHonorsLimit(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 5; i++ {
		if err := s.RecordQuery("C1", &agent.StructuredQuery{Intent: "unknown"}); err != nil {
			t.Fatalf("RecordQuery: %v", err)
		}
	}

	records, err := s.RecentQueries(3)
	if err != nil {
		t.Fatalf("RecentQueries: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("got %d records, want 3", len(records))
	}
}

func TestRecordPlanRun(t *testing.T) {
	s := newTestStore(t)

	plan := &agent.Plan{
		Intent:        "investigate_incident",
		OriginalQuery: "payments is down",
		Steps: []*agent.Step{
			{Executor: "InformationRetrievalAgent", Action: "gather_context", Status: agent.StatusCompleted},
			{Executor: "PlanningAgent", Action: "analyze_context_and_suggest_fix", Status: agent.StatusFailed, Error: "boom"},
		},
	}
	if err := s.RecordPlanRun("C1", plan, plan.Steps[1], 1234.5); err != nil {
		t.Fatalf("RecordPlanRun: %v", err)
	}

	var status, failedStep, stepsJSON string
	err := s.DB.QueryRow(`SELECT status, failed_step, steps_json FROM plan_runs`).Scan(&status, &failedStep, &stepsJSON)
	if err != nil {
		t.Fatalf("reading plan run: %v", err)
	}
	if status != "failed" {
		t.Errorf("status = %q, want failed", status)
	}
	if failedStep != "PlanningAgent/analyze_context_and_suggest_fix" {
		t.Errorf("failed_step = %q", failedStep)
	}
	if stepsJSON == "" || stepsJSON == "null" {
		t.Errorf("steps_json = %q", stepsJSON)
	}
}

func TestRecordPlanRunCompleted(t *testing.T) {
	s := newTestStore(t)

	plan := &agent.Plan{Intent: "knowledge_query", OriginalQuery: "what is a canary?"}
	if err := s.RecordPlanRun("C1", plan, nil, 80.0); err != nil {
		t.Fatalf("RecordPlanRun: %v", err)
	}

	var status, failedStep string
	if err := s.DB.QueryRow(`SELECT status, failed_step FROM plan_runs`).Scan(&status, &failedStep); err != nil {
		t.Fatalf("reading plan run: %v", err)
	}
	if status != "completed" || failedStep != "" {
		t.Errorf("status=%q failed_step=%q", status, failedStep)
	}
}

func TestRecordReflection(t *testing.T) {
	s := newTestStore(t)

	reflection := &agent.WorkflowReflection{
		OverallSuccess:  true,
		ConfidenceScore: 0.85,
		Intent:          "investigate_incident",
		TotalSteps:      2,
		SuccessfulSteps: 2,
	}
	if err := s.RecordReflection("C1", reflection); err != nil {
		t.Fatalf("RecordReflection: %v", err)
	}

	var success int
	var confidence float64
	if err := s.DB.QueryRow(`SELECT overall_success, confidence FROM reflections`).Scan(&success, &confidence); err != nil {
		t.Fatalf("reading reflection: %v", err)
	}
	if success != 1 || confidence != 0.85 {
		t.Errorf("success=%d confidence=%v", success, confidence)
	}
}

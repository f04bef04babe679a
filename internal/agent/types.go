package agent

// StructuredQuery is the classifier's output: one immutable record per
// incoming request.
type StructuredQuery struct {
	Intent        string         `json:"intent"`
	Entities      map[string]any `json:"entities"`
	Confidence    float64        `json:"confidence"`
	OriginalQuery string         `json:"original_query"`
	ModelUsed     string         `json:"model_used"`
	ProcessingMS  float64        `json:"processing_time_ms"`
}

// Supported intents. The planner dispatches over this closed set; extend it
// by adding a case, never by dynamic lookup.
const (
	IntentCICDStatus     = "get_ci_cd_status"
	IntentInvestigate    = "investigate_incident"
	IntentServiceMetrics = "get_service_metrics"
	IntentKnowledge      = "knowledge_query"
	IntentUnknown        = "unknown"
)

// ExecutorKind distinguishes internal agents from external tool clients.
type ExecutorKind string

const (
	KindAgent ExecutorKind = "agent"
	KindTool  ExecutorKind = "tool"
)

// StepStatus is the per-step state machine: pending transitions to exactly
// one of completed or failed and never reverts.
type StepStatus string

const (
	StatusPending   StepStatus = "pending"
	StatusCompleted StepStatus = "completed"
	StatusFailed    StepStatus = "failed"
)

// ParamValue is a step parameter slot. A slot either holds a literal value or
// marks that the orchestrator must substitute the previous step's result
// immediately before execution. The tagged form replaces the magic
// "output_of_previous_step" string so real user data can never collide with
// the sentinel.
type ParamValue struct {
	Value        any  `json:"value,omitempty"`
	FromPrevious bool `json:"from_previous,omitempty"`
}

func Literal(v any) ParamValue { return ParamValue{Value: v} }

// PreviousStepOutput marks a slot for context substitution.
func PreviousStepOutput() ParamValue { return ParamValue{FromPrevious: true} }

// Step is one unit of work within a Plan, owned exclusively by its parent.
type Step struct {
	Kind       ExecutorKind          `json:"kind"`
	Executor   string                `json:"executor"`
	Action     string                `json:"action"`
	Parameters map[string]ParamValue `json:"parameters"`
	Status     StepStatus            `json:"status"`
	Result     any                   `json:"result,omitempty"`
	Error      string                `json:"error,omitempty"`
}

// Plan is an ordered list of steps derived from one classified request. The
// plan itself is never mutated after creation; only its steps change status
// in place during execution.
type Plan struct {
	Intent        string  `json:"intent"`
	OriginalQuery string  `json:"original_query"`
	Steps         []*Step `json:"steps"`
}

// ValidationResult is the verifier's advisory judgment of one executed step.
type ValidationResult struct {
	Valid       bool     `json:"valid"`
	Confidence  float64  `json:"confidence"`
	Issues      []string `json:"issues"`
	Suggestions []string `json:"suggestions"`
}

// WorkflowReflection is the LLM's post-hoc review of a whole plan run.
// Write-once, terminal, never consulted by control flow.
type WorkflowReflection struct {
	OverallSuccess  bool           `json:"overall_success"`
	ConfidenceScore float64        `json:"confidence_score"`
	Insights        map[string]any `json:"insights"`
	Recommendations map[string]any `json:"recommendations"`
	RiskAssessment  map[string]any `json:"risk_assessment"`
	Intent          string         `json:"intent"`
	TotalSteps      int            `json:"total_steps"`
	SuccessfulSteps int            `json:"successful_steps"`
	ProcessingMS    float64        `json:"processing_time_ms"`
}

// RemediationAction is the decoded payload of an approval button: the action
// an SRE approved or denied.
type RemediationAction struct {
	Action     string         `json:"action"`
	Parameters map[string]any `json:"parameters"`
}

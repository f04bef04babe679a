package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/rahul/autops/internal/governance"
	"github.com/rahul/autops/internal/observability"
)

// ApprovalGate handles the asynchronous human decision that follows a
// suggested remediation. Approval and denial are terminal per interaction;
// the gateway always acknowledges the platform webhook regardless of what
// happens in here.
type ApprovalGate struct {
	Executor  *Executor
	Messenger Messenger
	Policy    governance.PolicyEngine
	Logger    *observability.Logger
	Metrics   *observability.Metrics
}

func NewApprovalGate(executor *Executor, messenger Messenger, policy governance.PolicyEngine, logger *observability.Logger, metrics *observability.Metrics) *ApprovalGate {
	return &ApprovalGate{
		Executor:  executor,
		Messenger: messenger,
		Policy:    policy,
		Logger:    logger,
		Metrics:   metrics,
	}
}

// HandleInteraction routes one button click by its action-id prefix.
// Unrecognized prefixes are logged and dropped; the platform already got
// its 200.
func (g *ApprovalGate) HandleInteraction(ctx context.Context, actionID, value, user, channel string) {
	switch {
	case strings.HasPrefix(actionID, "approve_"):
		g.approve(ctx, actionID, value, user, channel)
	case strings.HasPrefix(actionID, "deny_"):
		g.deny(actionID, value, user, channel)
	default:
		log.Printf("unrecognized interaction action_id: %s", actionID)
	}
}

func (g *ApprovalGate) approve(ctx context.Context, actionID, value, user, channel string) {
	g.Logger.LogApproval(channel, user, actionID, true)
	g.Metrics.Incr("autops.approval.approved", nil)

	var action RemediationAction
	parseErr := json.Unmarshal([]byte(value), &action)
	if parseErr != nil || action.Action == "" {
		log.Printf("failed to parse approved action value %q: %v", value, parseErr)
		g.send(channel, "❌ Failed to parse the approved action.")
	} else {
		g.send(channel, fmt.Sprintf("🔄 Executing: %s...", action.Action))
	}

	// The acknowledgment is independent of the parse outcome: the human's
	// decision is on record either way.
	g.send(channel, fmt.Sprintf("✅ Remediation approved by <@%s>. Executing action...", user))

	if parseErr != nil || action.Action == "" {
		return
	}
	g.execute(ctx, action, channel)
}

// execute runs the approved action as a fresh single-step plan through the
// step executor, gated by the governance policy, so the audit trail looks
// the same as any other plan run.
func (g *ApprovalGate) execute(ctx context.Context, action RemediationAction, channel string) {
	argsJSON, _ := json.Marshal(action.Parameters)
	verdict, err := g.Policy.Evaluate(ctx, governance.Request{
		Action:    action.Action,
		Arguments: string(argsJSON),
		Channel:   channel,
	})
	if err != nil {
		g.send(channel, fmt.Sprintf("❌ Could not evaluate policy for '%s': %v", action.Action, err))
		return
	}
	if verdict.Effect == governance.EffectDeny {
		g.Metrics.Incr("autops.remediation.blocked", nil)
		g.send(channel, fmt.Sprintf("🚫 Remediation '%s' blocked by policy: %s", action.Action, verdict.Reason))
		return
	}

	step := &Step{
		Kind:     KindAgent,
		Executor: ExecutorRemediation,
		Action:   ActionExecuteRemediation,
		Parameters: map[string]ParamValue{
			"action":     Literal(action.Action),
			"parameters": Literal(action.Parameters),
		},
		Status: StatusPending,
	}

	executed := g.Executor.Execute(ctx, step, nil)
	if executed.Status == StatusFailed {
		g.Metrics.Incr("autops.remediation.failed", nil)
		g.send(channel, fmt.Sprintf("❌ Remediation '%s' failed: %s", action.Action, executed.Error))
		return
	}

	g.Metrics.Incr("autops.remediation.executed", nil)
	g.send(channel, fmt.Sprintf("✅ Remediation '%s' executed.", action.Action))
}

func (g *ApprovalGate) deny(actionID, value, user, channel string) {
	g.Logger.LogApproval(channel, user, actionID, false)
	g.Metrics.Incr("autops.approval.denied", nil)
	g.send(channel, fmt.Sprintf("❌ Remediation denied by <@%s>.", user))
}

func (g *ApprovalGate) send(channel, text string) {
	if err := g.Messenger.Send(channel, text); err != nil {
		log.Printf("failed to send approval message to %s: %v", channel, err)
	}
}

// RemediationAgent executes approved remediation actions through named
// handlers registered at startup. An action with no handler fails the step;
// nothing is ever guessed at runtime.
type RemediationAgent struct {
	handlers map[string]StepFunc
}

func NewRemediationAgent() *RemediationAgent {
	return &RemediationAgent{handlers: make(map[string]StepFunc)}
}

func (a *RemediationAgent) RegisterHandler(action string, fn StepFunc) {
	a.handlers[action] = fn
}

func (a *RemediationAgent) ExecuteRemediation(ctx context.Context, params map[string]any) (any, error) {
	name, _ := params["action"].(string)
	if name == "" {
		return nil, fmt.Errorf("execute_remediation requires an 'action' parameter")
	}

	fn, ok := a.handlers[name]
	if !ok {
		return nil, fmt.Errorf("no handler registered for remediation action '%s'", name)
	}

	args, _ := params["parameters"].(map[string]any)
	return fn(ctx, args)
}

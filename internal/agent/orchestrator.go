package agent

import (
	"context"
	"log"
	"time"

	"github.com/rahul/autops/internal/observability"
)

// Orchestrator drives a plan to its terminal state: strictly sequential
// step execution with context threading, fail-fast on the first failure,
// advisory verification, and a final hand-off to the response synthesizer.
// There are no step retries at this level; retries live inside the
// individual clients.
type Orchestrator struct {
	Executor  *Executor
	Verifier  *Verifier
	Responder *Responder
	Analysis  *AnalysisAgent
	Logger    *observability.Logger
	Metrics   *observability.Metrics
}

func NewOrchestrator(executor *Executor, verifier *Verifier, responder *Responder, analysis *AnalysisAgent, logger *observability.Logger, metrics *observability.Metrics) *Orchestrator {
	return &Orchestrator{
		Executor:  executor,
		Verifier:  verifier,
		Responder: responder,
		Analysis:  analysis,
		Logger:    logger,
		Metrics:   metrics,
	}
}

// Run executes the plan's steps in declaration order. Each completed step's
// result becomes the context for the next; the first failed step stops the
// loop with every later step left pending. The reply is always dispatched,
// whatever the terminal state.
func (o *Orchestrator) Run(ctx context.Context, plan *Plan, initial any, channel string) (*Step, *WorkflowReflection) {
	observability.SetStatus(observability.StageExecute, plan.OriginalQuery)

	stepContext := initial
	var failedStep *Step

	for _, step := range plan.Steps {
		if step.Status != StatusPending {
			continue
		}

		start := time.Now()
		executed := o.Executor.Execute(ctx, step, stepContext)
		duration := time.Since(start)

		o.Logger.LogStep(channel, executed.Executor, executed.Action, string(executed.Status),
			float64(duration.Microseconds())/1000.0)

		switch executed.Status {
		case StatusCompleted:
			stepContext = executed.Result
			o.Metrics.Incr("autops.step.success", map[string]string{"executor": executed.Executor})
			// Advisory only: the verdict is logged and audited but never
			// gates the next step.
			o.Verifier.Validate(executed)
		default:
			o.Metrics.Incr("autops.step.failure", map[string]string{"executor": executed.Executor})
			log.Printf("step failed (%s/%s): %s", executed.Executor, executed.Action, executed.Error)
			failedStep = executed
		}

		if failedStep != nil {
			break
		}
	}

	reflection := o.reflect(ctx, plan)

	observability.SetStatus(observability.StageRespond, plan.OriginalQuery)
	if err := o.Responder.Respond(ctx, plan, stepContext, failedStep, channel); err != nil {
		o.Metrics.Incr("autops.respond.error", nil)
		log.Printf("failed to dispatch reply to %s: %v", channel, err)
	}

	return failedStep, reflection
}

// reflect runs the LLM review of the finished plan. Failures are logged and
// swallowed; a missing reflection never affects the user-visible outcome.
func (o *Orchestrator) reflect(ctx context.Context, plan *Plan) *WorkflowReflection {
	if o.Analysis == nil {
		return nil
	}

	reflection, err := o.Analysis.ReflectOnWorkflow(ctx, plan)
	if err != nil {
		log.Printf("workflow reflection failed: %v", err)
		return nil
	}

	o.Logger.Log(observability.Event{
		Type: observability.EventTypeReflection,
		Data: reflection,
	})
	return reflection
}

package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/rahul/autops/internal/observability"
)

// AuditSink persists the historical record of queries and plan runs.
// internal/store implements it over sqlite; a nil sink disables auditing.
type AuditSink interface {
	RecordQuery(channel string, query *StructuredQuery) error
	RecordPlanRun(channel string, plan *Plan, failedStep *Step, durationMS float64) error
	RecordReflection(channel string, reflection *WorkflowReflection) error
}

// Pipeline is the full classify -> plan -> execute -> respond workflow for
// one chat event. The gateway acknowledges the webhook immediately and runs
// HandleQuery as a background unit of work.
type Pipeline struct {
	Classifier   *Classifier
	Planner      *Planner
	Orchestrator *Orchestrator
	Messenger    Messenger
	Logger       *observability.Logger
	Metrics      *observability.Metrics
	Audit        AuditSink
}

// HandleQuery runs the workflow end to end. Nothing escapes: every failure
// path, including a panic in a downstream component, ends with a
// human-readable message on the originating channel.
func (p *Pipeline) HandleQuery(ctx context.Context, text, channel string) {
	start := time.Now()

	defer func() {
		observability.SetStatus(observability.StageIdle, "")
		if r := recover(); r != nil {
			err := fmt.Errorf("panic in workflow: %v", r)
			p.Logger.LogError(channel, err, map[string]any{"query": text})
			p.send(channel, "Sorry, something went wrong while processing your request. Please try again.")
		}
	}()

	log.Printf("received query on %s: %s", channel, text)

	observability.SetStatus(observability.StageClassify, text)
	query, err := p.Classifier.Classify(ctx, text)
	if err != nil {
		p.replyToError(channel, text, err)
		return
	}
	p.audit(func(s AuditSink) error { return s.RecordQuery(channel, query) })

	observability.SetStatus(observability.StagePlan, text)
	plan, err := p.Planner.BuildPlan(query)
	if err != nil {
		p.replyToError(channel, text, err)
		return
	}

	failedStep, reflection := p.Orchestrator.Run(ctx, plan, nil, channel)

	durationMS := float64(time.Since(start).Microseconds()) / 1000.0
	p.Metrics.Timing("autops.request.latency", time.Since(start), map[string]string{"intent": plan.Intent})
	p.audit(func(s AuditSink) error { return s.RecordPlanRun(channel, plan, failedStep, durationMS) })
	if reflection != nil {
		p.audit(func(s AuditSink) error { return s.RecordReflection(channel, reflection) })
	}
}

// replyToError converts a stage-local failure into a user-facing message.
// Input problems get the specific reason; system failures get an apology.
func (p *Pipeline) replyToError(channel, text string, err error) {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		p.send(channel, fmt.Sprintf("I couldn't process that request: %s", validationErr.Message))
		return
	}

	p.Logger.LogError(channel, err, map[string]any{"query": text})
	p.Metrics.Incr("autops.request.error", nil)
	p.send(channel, fmt.Sprintf("Sorry, I encountered an error: %v", err))
}

func (p *Pipeline) send(channel, text string) {
	if err := p.Messenger.Send(channel, text); err != nil {
		log.Printf("failed to send message to %s: %v", channel, err)
	}
}

func (p *Pipeline) audit(fn func(AuditSink) error) {
	if p.Audit == nil {
		return
	}
	if err := fn(p.Audit); err != nil {
		log.Printf("audit write failed: %v", err)
	}
}

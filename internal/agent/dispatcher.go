package agent

import (
	"context"
	"log"
)

// Job is one queued unit of work: a full pipeline run for one chat event.
type Job func(ctx context.Context)

// Dispatcher decouples webhook acknowledgment from workflow execution. The
// gateway enqueues and returns; each job runs on its own goroutine so two
// concurrent chat events never serialize behind each other's LLM latency.
type Dispatcher struct {
	jobs chan Job
}

func NewDispatcher(buffer int) *Dispatcher {
	return &Dispatcher{jobs: make(chan Job, buffer)}
}

// Start consumes the queue until the context is canceled. In-flight jobs
// are not canceled mid-run; they finish with the context they were given.
func (d *Dispatcher) Start(ctx context.Context) {
	log.Println("Workflow dispatcher started...")
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-d.jobs:
			go job(ctx)
		}
	}
}

// Enqueue queues a job, reporting false when the queue is saturated so the
// gateway can tell the user instead of silently dropping the request.
func (d *Dispatcher) Enqueue(job Job) bool {
	select {
	case d.jobs <- job:
		return true
	default:
		log.Println("dispatcher queue full, rejecting job")
		return false
	}
}

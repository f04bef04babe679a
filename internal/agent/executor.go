package agent

import (
	"context"
	"fmt"
)

// StepFunc is one executable capability: it receives the step's resolved
// parameters and returns a result value or an error. Failure is a returned
// value, never a panic.
type StepFunc func(ctx context.Context, params map[string]any) (any, error)

// Dispatch is the closed table of known executors, built once at startup
// with explicitly constructed client handles. Unknown names fail at
// plan-build time via the capability registry; anything that still reaches
// execution unresolved becomes a failed step, not a runtime lookup panic.
type Dispatch struct {
	agents map[string]map[string]StepFunc
	tools  map[string]map[string]StepFunc
}

func NewDispatch() *Dispatch {
	return &Dispatch{
		agents: make(map[string]map[string]StepFunc),
		tools:  make(map[string]map[string]StepFunc),
	}
}

// RegisterAgent binds an (agent, action) pair to its implementation.
func (d *Dispatch) RegisterAgent(name, action string, fn StepFunc) {
	if d.agents[name] == nil {
		d.agents[name] = make(map[string]StepFunc)
	}
	d.agents[name][action] = fn
}

// RegisterTool binds a (tool, action) pair to its implementation.
func (d *Dispatch) RegisterTool(name, action string, fn StepFunc) {
	if d.tools[name] == nil {
		d.tools[name] = make(map[string]StepFunc)
	}
	d.tools[name][action] = fn
}

func (d *Dispatch) resolve(step *Step) (StepFunc, error) {
	if step.Executor == "" {
		return nil, fmt.Errorf("no executor specified")
	}

	var table map[string]map[string]StepFunc
	switch step.Kind {
	case KindAgent:
		table = d.agents
	case KindTool:
		table = d.tools
	default:
		return nil, fmt.Errorf("no executor specified")
	}

	actions, ok := table[step.Executor]
	if !ok {
		return nil, fmt.Errorf("unknown executor: %s", step.Executor)
	}
	fn, ok := actions[step.Action]
	if !ok {
		return nil, fmt.Errorf("unknown action '%s' for executor %s", step.Action, step.Executor)
	}
	return fn, nil
}

// Executor runs a single plan step against the dispatch table.
type Executor struct {
	Dispatch *Dispatch
}

func NewExecutor(dispatch *Dispatch) *Executor {
	return &Executor{Dispatch: dispatch}
}

// Execute resolves and invokes one step, mutating it in place to its
// terminal status. Parameter slots marked FromPrevious are substituted with
// prevResult before dispatch. Errors never propagate past this boundary;
// they are recorded on the step.
func (e *Executor) Execute(ctx context.Context, step *Step, prevResult any) *Step {
	params := make(map[string]any, len(step.Parameters))
	for key, p := range step.Parameters {
		if p.FromPrevious {
			params[key] = prevResult
		} else {
			params[key] = p.Value
		}
	}

	fn, err := e.Dispatch.resolve(step)
	if err != nil {
		step.Status = StatusFailed
		step.Error = err.Error()
		return step
	}

	result, err := e.invoke(ctx, fn, params)
	if err != nil {
		step.Status = StatusFailed
		step.Error = err.Error()
		return step
	}

	step.Status = StatusCompleted
	step.Result = result
	return step
}

// invoke calls the step function, converting a panic in a capability into a
// plain error so a misbehaving client cannot take down the request handler.
func (e *Executor) invoke(ctx context.Context, fn StepFunc, params map[string]any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("executor panic: %v", r)
		}
	}()
	return fn(ctx, params)
}

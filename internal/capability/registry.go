package capability

import "fmt"

// Capability describes one executor's implementation status and the set of
// actions it exposes through plan steps.
type Capability struct {
	Supported bool
	Actions   map[string]bool
	Message   string
}

// Registry is the static table of which (executor, action) pairs are
// implemented. The planner consults it before emitting a tool step so that
// unsupported requests degrade to an explanatory response instead of failing
// deep inside execution.
type Registry struct {
	capabilities map[string]Capability
}

func NewRegistry() *Registry {
	return &Registry{capabilities: make(map[string]Capability)}
}

// DefaultRegistry mirrors the current implementation status of the tool
// clients: GitHub and Slack are live, the rest are wired for context
// gathering only.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("github_client", Capability{
		Supported: true,
		Actions:   actionSet("get_latest_pipeline_status", "get_repository_info", "get_pull_requests"),
	})
	r.Register("gitlab_client", Capability{
		Message: "GitLab integration is not yet implemented",
	})
	r.Register("datadog_client", Capability{
		Message: "Datadog integration is not yet implemented",
	})
	r.Register("pagerduty_client", Capability{
		Message: "PagerDuty integration is not yet implemented",
	})
	r.Register("slack_client", Capability{
		Supported: true,
		Actions:   actionSet("post_message", "update_message", "post_interactive_message"),
	})
	return r
}

func (r *Registry) Register(name string, c Capability) {
	if c.Actions == nil {
		c.Actions = make(map[string]bool)
	}
	r.capabilities[name] = c
}

// IsSupported reports whether the named executor implements the given action.
// An empty action only checks the executor itself.
func (r *Registry) IsSupported(name, action string) (bool, string) {
	c, ok := r.capabilities[name]
	if !ok {
		return false, fmt.Sprintf("Unknown tool: %s", name)
	}
	if !c.Supported {
		if c.Message != "" {
			return false, c.Message
		}
		return false, fmt.Sprintf("%s is not yet implemented", name)
	}
	if action != "" && !c.Actions[action] {
		return false, fmt.Sprintf("Action '%s' is not supported for %s", action, name)
	}
	return true, ""
}

func actionSet(names ...string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

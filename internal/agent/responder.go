package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/rahul/autops/internal/observability"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

const responderPrompt = `You are a helpful DevOps AI assistant. Your task is to formulate a clear,
concise, and friendly response to a user's query based on the data provided.
The user is technical, so you can be direct. If the data includes a URL,
make sure to include it in the response as a clickable link.`

// Messenger is the outbound chat contract the agent core needs. The Slack
// gateway implements it; tests use a recording fake.
type Messenger interface {
	Send(channel, text string) error
	SendInteractive(channel string, msg InteractiveMessage) error
}

// InteractiveMessage is a platform-neutral approval prompt: an analysis
// section, the suggested action, and two mutually exclusive controls.
// Values stay terse because interactive-control payloads have a
// platform-imposed size ceiling.
type InteractiveMessage struct {
	Analysis     string
	Action       string
	ApproveID    string
	ApproveValue string
	DenyID       string
	DenyValue    string
}

// Responder converts a plan's terminal state into a reply on the
// originating channel.
type Responder struct {
	Model     llms.Model
	Messenger Messenger
	Logger    *observability.Logger
}

func NewResponder(model llms.Model, messenger Messenger, logger *observability.Logger) *Responder {
	return &Responder{Model: model, Messenger: messenger, Logger: logger}
}

// Respond picks the reply branch in priority order: failed step, incident
// approval prompt, canned degradation message, LLM synthesis. Every branch
// ends with a message on the channel; synthesis failures fall back to a
// fixed apology rather than propagating.
func (r *Responder) Respond(ctx context.Context, plan *Plan, result any, failedStep *Step, channel string) error {
	if failedStep != nil {
		return r.Messenger.Send(channel, fmt.Sprintf(
			"I'm sorry, I couldn't complete your request. Reason: %s", failedStep.Error))
	}

	if plan.Intent == IntentInvestigate && result != nil {
		if msg, ok := buildApprovalPrompt(result); ok {
			return r.Messenger.SendInteractive(channel, msg)
		}
		// Analysis came back in an unexpected shape; fall through to
		// plain synthesis so the user still sees something.
	}

	if canned, ok := cannedMessage(result); ok {
		return r.Messenger.Send(channel, canned)
	}

	text := r.synthesize(ctx, plan.OriginalQuery, result)
	return r.Messenger.Send(channel, text)
}

// GenerateErrorResponse and GenerateNotImplementedResponse are the
// responder's step-level actions: the planner emits them when a request
// degrades before execution. The canned flag tells Respond to relay the
// message verbatim instead of round-tripping it through the model.
func (r *Responder) GenerateErrorResponse(ctx context.Context, params map[string]any) (any, error) {
	return cannedResult(params)
}

func (r *Responder) GenerateNotImplementedResponse(ctx context.Context, params map[string]any) (any, error) {
	return cannedResult(params)
}

func cannedResult(params map[string]any) (any, error) {
	message, ok := params["message"].(string)
	if !ok || message == "" {
		return nil, fmt.Errorf("response step requires a 'message' parameter")
	}
	return map[string]any{"message": message, "canned": true}, nil
}

func cannedMessage(result any) (string, bool) {
	data, ok := result.(map[string]any)
	if !ok {
		return "", false
	}
	if canned, _ := data["canned"].(bool); !canned {
		return "", false
	}
	msg, _ := data["message"].(string)
	return msg, msg != ""
}

// buildApprovalPrompt turns an incident-analysis result into an interactive
// approval message. Returns false when the analysis lacks a usable
// remediation suggestion.
func buildApprovalPrompt(result any) (InteractiveMessage, bool) {
	data, ok := result.(map[string]any)
	if !ok {
		return InteractiveMessage{}, false
	}

	analysis, _ := data["analysis"].(string)
	if analysis == "" {
		analysis = "No analysis provided."
	}

	suggestion, _ := data["suggested_remediation"].(map[string]any)
	action, _ := suggestion["action"].(string)
	if action == "" {
		return InteractiveMessage{}, false
	}

	descriptor := RemediationAction{Action: action}
	if params, ok := suggestion["parameters"].(map[string]any); ok {
		descriptor.Parameters = params
	}
	payload, err := json.Marshal(descriptor)
	if err != nil {
		return InteractiveMessage{}, false
	}

	return InteractiveMessage{
		Analysis:     analysis,
		Action:       action,
		ApproveID:    "approve_" + action,
		ApproveValue: string(payload),
		DenyID:       "deny_" + action,
		DenyValue:    action,
	}, true
}

func (r *Responder) synthesize(ctx context.Context, query string, result any) string {
	resultJSON, err := json.Marshal(map[string]any{
		"status": "completed",
		"result": result,
	})
	if err != nil {
		resultJSON = []byte("{}")
	}

	user := fmt.Sprintf("The user asked: '%s'\n\nThe data I retrieved is:\n%s\n\nPlease formulate a response based on this data.",
		query, resultJSON)

	messages := []llms.MessageContent{
		{
			Role:  schema.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(responderPrompt)},
		},
		{
			Role:  schema.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(user)},
		},
	}

	resp, err := r.Model.GenerateContent(ctx, messages, llms.WithTemperature(0.7))
	if err != nil || len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		log.Printf("response synthesis failed: %v", err)
		return "I encountered an error while trying to formulate a response."
	}

	r.Logger.LogLLM("", query, resp.Choices[0].Content)
	return resp.Choices[0].Content
}

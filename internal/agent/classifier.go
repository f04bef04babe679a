package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rahul/autops/internal/observability"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

const maxQueryLength = 2000

const classifierPrompt = `You are an expert at understanding user requests for a DevOps AI assistant.
Your task is to analyze the user's query and extract the core intent and any
relevant entities. The output must be a JSON object with these keys: 'intent', 'entities', 'confidence'.

Supported intents:
- get_ci_cd_status: User wants to know about build/deployment status
- investigate_incident: User reports a service issue or wants incident investigation
- get_service_metrics: User wants metrics/monitoring data for a service
- knowledge_query: User is asking for general information or documentation

The 'intent' should be one of the supported intents above.
The 'entities' should be a JSON object of key-value pairs.
The 'confidence' should be a float between 0.0 and 1.0.
If you cannot determine the intent, return intent as "unknown" with confidence < 0.5.

Example:
User Query: "Is the latest build passing for the checkout-service?"
Output:
{
  "intent": "get_ci_cd_status",
  "entities": {
    "service_name": "checkout-service",
    "build_type": "latest"
  },
  "confidence": 0.95
}`

// Classifier turns free text into a StructuredQuery via the language model.
type Classifier struct {
	Model     llms.Model
	ModelName string
	Logger    *observability.Logger

	// retry bounds, shrunk in tests
	minDelay time.Duration
	maxDelay time.Duration
}

func NewClassifier(model llms.Model, modelName string, logger *observability.Logger) *Classifier {
	return &Classifier{
		Model:     model,
		ModelName: modelName,
		Logger:    logger,
		minDelay:  4 * time.Second,
		maxDelay:  10 * time.Second,
	}
}

// Classify validates the input, calls the model with retries on transient
// failures, and checks the structural contract of the response. It either
// returns a fully populated StructuredQuery or a typed error; never a
// partial record.
func (c *Classifier) Classify(ctx context.Context, text string) (*StructuredQuery, error) {
	start := time.Now()

	if strings.TrimSpace(text) == "" {
		return nil, validationErrorf("user query cannot be empty")
	}
	if len(text) > maxQueryLength {
		return nil, validationErrorf("user query too long (max %d characters)", maxQueryLength)
	}

	content, err := c.callModel(ctx, text)
	if err != nil {
		return nil, &ClassificationError{Message: "language model call failed", Cause: err}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		c.Logger.LogError("", err, map[string]any{"response": content})
		return nil, &ClassificationError{Message: "failed to parse model response as JSON", Cause: err}
	}

	var missing []string
	for _, field := range []string{"intent", "entities", "confidence"} {
		if _, ok := raw[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, &ClassificationError{
			Message: fmt.Sprintf("model response missing fields: %s", strings.Join(missing, ", ")),
		}
	}

	query := &StructuredQuery{
		OriginalQuery: text,
		ModelUsed:     c.ModelName,
	}
	if err := json.Unmarshal(raw["intent"], &query.Intent); err != nil || query.Intent == "" {
		return nil, &ClassificationError{Message: "model response has invalid 'intent' field"}
	}
	if err := json.Unmarshal(raw["entities"], &query.Entities); err != nil {
		return nil, &ClassificationError{Message: "model response has invalid 'entities' field"}
	}
	if err := json.Unmarshal(raw["confidence"], &query.Confidence); err != nil {
		return nil, &ClassificationError{Message: "model response has invalid 'confidence' field"}
	}

	query.ProcessingMS = float64(time.Since(start).Microseconds()) / 1000.0
	c.Logger.LogQuery("", query.Intent, query.Confidence, query.ProcessingMS)

	return query, nil
}

// callModel makes the upstream call. Rate-limit and timeout failures are
// retried up to 3 attempts with exponential backoff (4s min, 10s cap);
// everything else surfaces immediately.
func (c *Classifier) callModel(ctx context.Context, text string) (string, error) {
	messages := []llms.MessageContent{
		{
			Role:  schema.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(classifierPrompt)},
		},
		{
			Role:  schema.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(text)},
		},
	}

	var content string
	op := func() error {
		resp, err := c.Model.GenerateContent(ctx, messages,
			llms.WithJSONMode(),
			llms.WithTemperature(0),
		)
		if err != nil {
			if isTransient(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
			return backoff.Permanent(errors.New("empty response from model"))
		}
		content = resp.Choices[0].Content
		return nil
	}

	if err := backoff.Retry(op, c.newBackoff(ctx)); err != nil {
		return "", err
	}

	c.Logger.LogLLM("", text, content)
	return content, nil
}

// newBackoff returns the retry policy for flaky upstream calls:
// 3 attempts total, exponential delay between 4s and 10s.
func (c *Classifier) newBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.minDelay
	b.MaxInterval = c.maxDelay
	b.Multiplier = 2
	return backoff.WithContext(backoff.WithMaxRetries(b, 2), ctx)
}

// isTransient reports whether an upstream failure is worth retrying.
// Only rate limits and timeouts qualify.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "429") ||
		strings.Contains(msg, "timeout")
}

package observability

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// EventType defines the category of the log event.
type EventType string

const (
	EventTypeQuery      EventType = "query"
	EventTypePlan       EventType = "plan"
	EventTypeStep       EventType = "step"
	EventTypeValidation EventType = "validation"
	EventTypeReflection EventType = "reflection"
	EventTypeApproval   EventType = "approval"
	EventTypeMetric     EventType = "metric"
	EventTypeHeartbeat  EventType = "heartbeat"
	EventTypeLLM        EventType = "llm"
	EventTypeError      EventType = "error"
)

// Event represents a structured log entry.
type Event struct {
	Type      EventType `json:"type"`
	Channel   string    `json:"channel,omitempty"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Logger handles structured logging.
type Logger struct {
	llmLogPath string
	maxSize    int64
}

func NewLogger() *Logger {
	return &Logger{
		llmLogPath: filepath.Join("logs", "llm.jsonl"),
		maxSize:    10 * 1024 * 1024, // 10MB
	}
}

// Log emits a structured JSON event to stdout.
func (l *Logger) Log(evt Event) {
	if l == nil {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		fmt.Printf("{\"error\": \"failed to marshal event: %v\"}\n", err)
		return
	}
	fmt.Println(string(data))

	if evt.Type == EventTypeLLM {
		l.writeToFile(data)
	}
}

func (l *Logger) writeToFile(data []byte) {
	if err := os.MkdirAll(filepath.Dir(l.llmLogPath), 0755); err != nil {
		log.Printf("failed to create log directory: %v", err)
		return
	}

	// Check size before writing
	info, err := os.Stat(l.llmLogPath)
	if err == nil && info.Size() > l.maxSize {
		l.rotateLogs()
	}

	f, err := os.OpenFile(l.llmLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("failed to open log file: %v", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		log.Printf("failed to write to log file: %v", err)
	}
}

func (l *Logger) rotateLogs() {
	// Simple rotation: keep one .old file
	oldPath := l.llmLogPath + ".old"
	_ = os.Remove(oldPath)
	_ = os.Rename(l.llmLogPath, oldPath)
}

// Helper methods for common events

func (l *Logger) LogQuery(channel, intent string, confidence, durationMS float64) {
	l.Log(Event{
		Type:    EventTypeQuery,
		Channel: channel,
		Data: map[string]any{
			"intent":             intent,
			"confidence":         confidence,
			"processing_time_ms": durationMS,
		},
	})
}

func (l *Logger) LogStep(channel, executor, action string, status string, durationMS float64) {
	l.Log(Event{
		Type:    EventTypeStep,
		Channel: channel,
		Data: map[string]any{
			"executor":    executor,
			"action":      action,
			"status":      status,
			"duration_ms": durationMS,
		},
	})
}

func (l *Logger) LogValidation(channel, executor, action string, valid bool, confidence float64, issues []string) {
	l.Log(Event{
		Type:    EventTypeValidation,
		Channel: channel,
		Data: map[string]any{
			"executor":   executor,
			"action":     action,
			"valid":      valid,
			"confidence": confidence,
			"issues":     issues,
		},
	})
}

func (l *Logger) LogApproval(channel, user, actionID string, approved bool) {
	l.Log(Event{
		Type:    EventTypeApproval,
		Channel: channel,
		Data: map[string]any{
			"user":      user,
			"action_id": actionID,
			"approved":  approved,
		},
	})
}

func (l *Logger) LogError(channel string, err error, context map[string]any) {
	data := map[string]any{"error": err.Error()}
	for k, v := range context {
		data[k] = v
	}
	l.Log(Event{
		Type:    EventTypeError,
		Channel: channel,
		Data:    data,
	})
}

func (l *Logger) LogLLM(channel string, prompt any, response string) {
	l.Log(Event{
		Type:    EventTypeLLM,
		Channel: channel,
		Data: map[string]any{
			"prompt":   prompt,
			"response": response,
		},
	})
}

func (l *Logger) LogHeartbeat() {
	l.Log(Event{
		Type: EventTypeHeartbeat,
		Data: map[string]string{"status": "alive"},
	})
}

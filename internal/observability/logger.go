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
	EventTypeTransition EventType = "transition"
	EventTypeStep       EventType = "step"
	EventTypeRun        EventType = "run"
	EventTypeMail       EventType = "mail"
	EventTypePolicy     EventType = "policy_check"
	EventTypeHeartbeat  EventType = "heartbeat"
	EventTypeLLM        EventType = "llm"
)

// Event represents a structured log entry.
type Event struct {
	Type      EventType `json:"type"`
	EmailID   string    `json:"email_id,omitempty"`
	StepID    string    `json:"step_id,omitempty"`
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

// LogTransition emits one entry per orchestrator state transition.
func (l *Logger) LogTransition(stepID, from, to string, elapsed time.Duration) {
	l.Log(Event{
		Type:   EventTypeTransition,
		StepID: stepID,
		Data: map[string]any{
			"from":       from,
			"to":         to,
			"elapsed_ms": elapsed.Milliseconds(),
		},
	})
}

func (l *Logger) LogRun(emailID, status string, steps int) {
	l.Log(Event{
		Type:    EventTypeRun,
		EmailID: emailID,
		Data: map[string]any{
			"status": status,
			"steps":  steps,
		},
	})
}

func (l *Logger) LogMail(emailID, direction, subject string) {
	l.Log(Event{
		Type:    EventTypeMail,
		EmailID: emailID,
		Data: map[string]string{
			"direction": direction,
			"subject":   subject,
		},
	})
}

func (l *Logger) LogPolicyCheck(emailID, tool, effect, reason string) {
	l.Log(Event{
		Type:    EventTypePolicy,
		EmailID: emailID,
		Data: map[string]string{
			"tool":   tool,
			"effect": effect,
			"reason": reason,
		},
	})
}

func (l *Logger) LogHeartbeat() {
	l.Log(Event{
		Type: EventTypeHeartbeat,
		Data: map[string]string{"status": "alive"},
	})
}

func (l *Logger) LogLLM(emailID, stepID string, prompt any, response string) {
	l.Log(Event{
		Type:    EventTypeLLM,
		EmailID: emailID,
		StepID:  stepID,
		Data: map[string]any{
			"prompt":   prompt,
			"response": response,
		},
	})
}

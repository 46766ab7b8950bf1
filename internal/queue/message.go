package queue

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskKind names the notification operation a queued task runs.
type TaskKind string

const (
	TaskNewApplication TaskKind = "new_application"
	TaskDigest         TaskKind = "digest"
	TaskStatusUpdate   TaskKind = "status_update"
)

func (k TaskKind) String() string { return string(k) }

func (k TaskKind) IsValid() bool {
	switch k {
	case TaskNewApplication, TaskDigest, TaskStatusUpdate:
		return true
	}
	return false
}

// TaskMessage is the broker payload for one notification task. Payload holds
// the kind-specific request as JSON.
type TaskMessage struct {
	TaskID        string          `json:"taskId"`
	Kind          TaskKind        `json:"kind"`
	CorrelationID string          `json:"correlationId,omitempty"`
	Attempt       int             `json:"attempt"`
	EnqueuedAt    time.Time       `json:"enqueuedAt"`
	Payload       json.RawMessage `json:"payload"`
}

func NewTaskMessage(kind TaskKind, correlationID string, payload any) (TaskMessage, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return TaskMessage{}, fmt.Errorf("failed to marshal %s payload: %w", kind, err)
	}

	msg := TaskMessage{
		TaskID:        uuid.NewString(),
		Kind:          kind,
		CorrelationID: correlationID,
		Attempt:       1,
		EnqueuedAt:    time.Now().UTC(),
		Payload:       raw,
	}
	if err := msg.Validate(); err != nil {
		return TaskMessage{}, err
	}
	return msg, nil
}

func (m TaskMessage) Validate() error {
	if strings.TrimSpace(m.TaskID) == "" {
		return fmt.Errorf("taskId is required")
	}
	if !m.Kind.IsValid() {
		return fmt.Errorf("invalid task kind %q", m.Kind)
	}
	if m.Attempt < 1 {
		return fmt.Errorf("attempt must be >= 1")
	}
	if len(m.Payload) == 0 || string(m.Payload) == "null" {
		return fmt.Errorf("payload is required")
	}
	return nil
}

// Decode unmarshals the payload into v.
func (m TaskMessage) Decode(v any) error {
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", m.Kind, err)
	}
	return nil
}

// NextAttempt returns a copy scheduled as the following attempt.
func (m TaskMessage) NextAttempt() TaskMessage {
	next := m
	next.Attempt = m.Attempt + 1
	next.EnqueuedAt = time.Now().UTC()
	return next
}

package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "DOCUMENT_CREATED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent helps embed common logic if needed,
// strictly creating valid implementations is preferred though.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Event type codes
const (
	TypeDocumentCreated       = "DOCUMENT_CREATED"
	TypeDocumentEditApplied   = "DOCUMENT_EDIT_APPLIED"
	TypeAgentSessionCompleted = "AGENT_SESSION_COMPLETED"
	TypeAgentSessionCancelled = "AGENT_SESSION_CANCELLED"
)

// NewDocumentCreatedEvent fires when a document is registered.
func NewDocumentCreatedEvent(documentID string) Event {
	return BaseEvent{
		Type: TypeDocumentCreated,
		Data: map[string]interface{}{
			"document_id": documentID,
		},
		OccurredAt: time.Now(),
	}
}

// NewDocumentEditAppliedEvent fires after a mutation lands on the tree.
func NewDocumentEditAppliedEvent(documentID, blockID, action string) Event {
	return BaseEvent{
		Type: TypeDocumentEditApplied,
		Data: map[string]interface{}{
			"document_id": documentID,
			"block_id":    blockID,
			"action":      action,
		},
		OccurredAt: time.Now(),
	}
}

// NewAgentSessionCompletedEvent fires when an agent turn finishes cleanly.
func NewAgentSessionCompletedEvent(documentID, sessionID string, iterations int) Event {
	return BaseEvent{
		Type: TypeAgentSessionCompleted,
		Data: map[string]interface{}{
			"document_id": documentID,
			"session_id":  sessionID,
			"iterations":  iterations,
		},
		OccurredAt: time.Now(),
	}
}

// NewAgentSessionCancelledEvent fires when the user aborts a running turn.
func NewAgentSessionCancelledEvent(documentID, sessionID string) Event {
	return BaseEvent{
		Type: TypeAgentSessionCancelled,
		Data: map[string]interface{}{
			"document_id": documentID,
			"session_id":  sessionID,
		},
		OccurredAt: time.Now(),
	}
}

package store

import "time"

// Session represents one continuous agent interaction over a single
// document, held in memory for its whole lifecycle (created on first user
// message, destroyed on explicit clear or when a new session begins).
type Session struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	State      string `json:"state"`

	// Iteration starts at 1 and increments on each continuation round.
	Iteration int `json:"iteration"`

	// PendingContinuation is the model's own statement of remaining work;
	// empty when the last turn finished cleanly.
	PendingContinuation string `json:"pending_continuation,omitempty"`

	// Compacted memory of prior iterations. SummarizedAtIteration and
	// SummarizedAtMessage mark where the live history resumes.
	ContextSummary        string `json:"context_summary,omitempty"`
	SummarizedAtIteration int    `json:"summarized_at_iteration"`
	SummarizedAtMessage   int    `json:"summarized_at_message"`

	// Captured once at session start, used for the final diff.
	OriginalSnapshot string `json:"original_snapshot,omitempty"`
	OriginalText     string `json:"original_text,omitempty"`

	Messages []*Message `json:"messages"`

	// LastRequest caches the most recent transport request for exact retry
	// after a transport failure.
	LastRequest *AgentRequest `json:"last_request,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Session states
const (
	StateIdle             = "IDLE"
	StateAwaitingResponse = "AWAITING_RESPONSE"
	StateApplyingEdits    = "APPLYING_EDITS"
	StateSummarizing      = "SUMMARIZING"
	StateCancelled        = "CANCELLED"
)

// Message roles
const (
	RoleUser    = "user"
	RoleModel   = "model"
	RoleSummary = "summary"
)

// Message is one turn shown to the UI.
type Message struct {
	ID        string          `json:"id"`
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	Streaming bool            `json:"streaming"`
	Cancelled bool            `json:"cancelled,omitempty"`
	Proposals []*EditProposal `json:"proposals,omitempty"`
	Diff      *DiffSummary    `json:"diff,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// EditProposal statuses
const (
	ProposalPending  = "pending"
	ProposalAccepted = "accepted"
	ProposalRejected = "rejected"
)

// EditProposal is one model-issued instruction to mutate a block,
// referenced by address. Once accepted or rejected it is immutable.
type EditProposal struct {
	ID            string `json:"id"`
	BlockID       string `json:"blockId"`
	Action        string `json:"action"`
	ReplaceWith   string `json:"replaceWith,omitempty"`
	TargetBlockID string `json:"targetBlockId,omitempty"`
	Description   string `json:"description,omitempty"`
	Status        string `json:"status"`

	// ApplyError records why application failed; the proposal stays pending
	// so the user can still reject it explicitly.
	ApplyError string `json:"applyError,omitempty"`
}

// DiffSummary is the end-of-session change summary.
type DiffSummary struct {
	OriginalContent string   `json:"originalContent"`
	FinalContent    string   `json:"finalContent"`
	LinesAdded      int      `json:"linesAdded"`
	LinesRemoved    int      `json:"linesRemoved"`
	Title           string   `json:"title"`
	Actions         []string `json:"actions,omitempty"`
}

// AgentRequest is the transport request shape, cached for retry.
type AgentRequest struct {
	Message              string           `json:"message"`
	DocumentContext      string           `json:"documentContext"`
	History              []HistoryMessage `json:"history,omitempty"`
	ContextSummary       string           `json:"contextSummary,omitempty"`
	ContinueFrom         string           `json:"continueFrom,omitempty"`
	MaxEditsPerIteration int              `json:"maxEditsPerIteration"`
}

// HistoryMessage is a provider-agnostic conversation entry.
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

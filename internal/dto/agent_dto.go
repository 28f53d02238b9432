package dto

import "time"

type CreateAgentSessionRequest struct {
	DocumentId string `json:"document_id" validate:"required"`
}

type AgentSessionResponse struct {
	Id         string    `json:"id"`
	DocumentId string    `json:"document_id"`
	State      string    `json:"state"`
	Iteration  int       `json:"iteration"`
	CreatedAt  time.Time `json:"created_at"`
}

type SendAgentMessageRequest struct {
	SessionId string `json:"session_id" validate:"required"`
	Message   string `json:"message" validate:"required"`
}

type AgentTurnResponse struct {
	SessionId string            `json:"session_id"`
	State     string            `json:"state"`
	Cancelled bool              `json:"cancelled,omitempty"`
	Messages  []AgentMessageDTO `json:"messages"`
	Diff      *DiffSummaryDTO   `json:"diff,omitempty"`
}

type AgentMessageDTO struct {
	Id        string            `json:"id"`
	Role      string            `json:"role"`
	Content   string            `json:"content"`
	Cancelled bool              `json:"cancelled,omitempty"`
	Proposals []EditProposalDTO `json:"proposals,omitempty"`
	Diff      *DiffSummaryDTO   `json:"diff,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

type EditProposalDTO struct {
	Id            string `json:"id"`
	BlockId       string `json:"block_id"`
	Action        string `json:"action"`
	ReplaceWith   string `json:"replace_with,omitempty"`
	TargetBlockId string `json:"target_block_id,omitempty"`
	Description   string `json:"description,omitempty"`
	Status        string `json:"status"`
	ApplyError    string `json:"apply_error,omitempty"`
}

type DiffSummaryDTO struct {
	OriginalContent string   `json:"original_content"`
	FinalContent    string   `json:"final_content"`
	LinesAdded      int      `json:"lines_added"`
	LinesRemoved    int      `json:"lines_removed"`
	Title           string   `json:"title"`
	Actions         []string `json:"actions,omitempty"`
}

type GetAgentMessagesResponse struct {
	SessionId string            `json:"session_id"`
	Messages  []AgentMessageDTO `json:"messages"`
}

type ProposalDecisionResponse struct {
	ProposalId string `json:"proposal_id"`
	Status     string `json:"status"`
	ApplyError string `json:"apply_error,omitempty"`
}

package service

import (
	"ai-docagent-be/internal/mapper"
	"ai-docagent-be/internal/websocket"
	"ai-docagent-be/pkg/agent"
	"ai-docagent-be/pkg/store"
)

// wsBroadcaster adapts the websocket hub to the agent's progress surface,
// so streamed chunks, proposals and diffs reach every tab watching the
// document as they happen.
type wsBroadcaster struct {
	hub         *websocket.Hub
	agentMapper *mapper.AgentMapper
}

func NewAgentBroadcaster(hub *websocket.Hub) agent.Broadcaster {
	if hub == nil {
		return agent.NopBroadcaster{}
	}
	return &wsBroadcaster{
		hub:         hub,
		agentMapper: mapper.NewAgentMapper(),
	}
}

func (b *wsBroadcaster) Chunk(docID, sessionID, content string) {
	b.hub.Publish(docID, "agent_chunk", map[string]interface{}{
		"session_id": sessionID,
		"content":    content,
	})
}

func (b *wsBroadcaster) Proposal(docID, sessionID string, proposal *store.EditProposal) {
	b.hub.Publish(docID, "agent_proposal", map[string]interface{}{
		"session_id": sessionID,
		"proposal":   b.agentMapper.ProposalToDTO(proposal),
	})
}

func (b *wsBroadcaster) EditResult(docID, sessionID string, proposal *store.EditProposal) {
	b.hub.Publish(docID, "agent_edit_result", map[string]interface{}{
		"session_id": sessionID,
		"proposal":   b.agentMapper.ProposalToDTO(proposal),
	})
}

func (b *wsBroadcaster) Summary(docID, sessionID string, diff *store.DiffSummary) {
	b.hub.Publish(docID, "agent_summary", map[string]interface{}{
		"session_id": sessionID,
		"diff":       b.agentMapper.DiffToDTO(diff),
	})
}

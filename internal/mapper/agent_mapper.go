package mapper

import (
	"ai-docagent-be/internal/dto"
	"ai-docagent-be/pkg/store"
)

type AgentMapper struct{}

func NewAgentMapper() *AgentMapper {
	return &AgentMapper{}
}

func (m *AgentMapper) SessionToDTO(s *store.Session) dto.AgentSessionResponse {
	return dto.AgentSessionResponse{
		Id:         s.ID,
		DocumentId: s.DocumentID,
		State:      s.State,
		Iteration:  s.Iteration,
		CreatedAt:  s.CreatedAt,
	}
}

func (m *AgentMapper) MessageToDTO(msg *store.Message) dto.AgentMessageDTO {
	out := dto.AgentMessageDTO{
		Id:        msg.ID,
		Role:      msg.Role,
		Content:   msg.Content,
		Cancelled: msg.Cancelled,
		Diff:      m.DiffToDTO(msg.Diff),
		CreatedAt: msg.CreatedAt,
	}
	for _, p := range msg.Proposals {
		out.Proposals = append(out.Proposals, m.ProposalToDTO(p))
	}
	return out
}

func (m *AgentMapper) MessagesToDTO(msgs []*store.Message) []dto.AgentMessageDTO {
	out := make([]dto.AgentMessageDTO, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, m.MessageToDTO(msg))
	}
	return out
}

func (m *AgentMapper) ProposalToDTO(p *store.EditProposal) dto.EditProposalDTO {
	return dto.EditProposalDTO{
		Id:            p.ID,
		BlockId:       p.BlockID,
		Action:        p.Action,
		ReplaceWith:   p.ReplaceWith,
		TargetBlockId: p.TargetBlockID,
		Description:   p.Description,
		Status:        p.Status,
		ApplyError:    p.ApplyError,
	}
}

func (m *AgentMapper) DiffToDTO(d *store.DiffSummary) *dto.DiffSummaryDTO {
	if d == nil {
		return nil
	}
	return &dto.DiffSummaryDTO{
		OriginalContent: d.OriginalContent,
		FinalContent:    d.FinalContent,
		LinesAdded:      d.LinesAdded,
		LinesRemoved:    d.LinesRemoved,
		Title:           d.Title,
		Actions:         d.Actions,
	}
}

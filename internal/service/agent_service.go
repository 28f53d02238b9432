package service

import (
	"context"
	"errors"
	"log"
	"sync"

	"ai-docagent-be/internal/dto"
	"ai-docagent-be/internal/mapper"
	"ai-docagent-be/internal/repository/memory"
	"ai-docagent-be/pkg/agent"
	"ai-docagent-be/pkg/bus"
	"ai-docagent-be/pkg/document"
	"ai-docagent-be/pkg/events"
	pkgNats "ai-docagent-be/pkg/nats"
	"ai-docagent-be/pkg/store"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IAgentService interface {
	CreateSession(ctx context.Context, req *dto.CreateAgentSessionRequest) (*dto.AgentSessionResponse, error)
	GetSession(ctx context.Context, sessionID string) (*dto.AgentSessionResponse, error)
	SendMessage(ctx context.Context, req *dto.SendAgentMessageRequest) (*dto.AgentTurnResponse, error)
	Cancel(ctx context.Context, sessionID string) error
	Retry(ctx context.Context, sessionID string) (*dto.AgentTurnResponse, error)
	GetMessages(ctx context.Context, sessionID string) (*dto.GetAgentMessagesResponse, error)
	AcceptProposal(ctx context.Context, sessionID, proposalID string) (*dto.ProposalDecisionResponse, error)
	RejectProposal(ctx context.Context, sessionID, proposalID string) (*dto.ProposalDecisionResponse, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

type agentService struct {
	sessions   *memory.SessionRepository
	controller *agent.Controller
	docStore   *document.Store
	dispatcher *bus.Dispatcher
	natsPub    *pkgNats.Publisher
	mapper     *mapper.AgentMapper

	// One running turn per session; the cancel func lives here so a
	// separate cancel request can abort it.
	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func NewAgentService(
	sessions *memory.SessionRepository,
	controller *agent.Controller,
	docStore *document.Store,
	dispatcher *bus.Dispatcher,
	natsPub *pkgNats.Publisher,
) IAgentService {
	return &agentService{
		sessions:   sessions,
		controller: controller,
		docStore:   docStore,
		dispatcher: dispatcher,
		natsPub:    natsPub,
		mapper:     mapper.NewAgentMapper(),
		cancels:    make(map[string]context.CancelFunc),
	}
}

func (s *agentService) CreateSession(ctx context.Context, req *dto.CreateAgentSessionRequest) (*dto.AgentSessionResponse, error) {
	if !s.docStore.Exists(req.DocumentId) {
		return nil, document.ErrDocumentNotFound
	}

	// A document carries one session at a time: starting a new one
	// destroys the prior interaction entirely.
	if prior, found := s.sessions.GetByDocument(req.DocumentId); found {
		s.abortRunningTurn(prior.ID)
		s.sessions.Delete(prior.ID)
	}

	sess := agent.NewSession(req.DocumentId)
	s.sessions.Save(sess)

	res := s.mapper.SessionToDTO(sess)
	return &res, nil
}

func (s *agentService) GetSession(ctx context.Context, sessionID string) (*dto.AgentSessionResponse, error) {
	sess, found := s.sessions.Get(sessionID)
	if !found {
		return nil, fiber.NewError(fiber.StatusNotFound, "session not found")
	}
	res := s.mapper.SessionToDTO(sess)
	return &res, nil
}

func (s *agentService) SendMessage(ctx context.Context, req *dto.SendAgentMessageRequest) (*dto.AgentTurnResponse, error) {
	sess, found := s.sessions.Get(req.SessionId)
	if !found {
		return nil, fiber.NewError(fiber.StatusNotFound, "session not found")
	}
	if sess.State != store.StateIdle && sess.State != store.StateCancelled {
		return nil, fiber.NewError(fiber.StatusConflict, "session has a turn in progress")
	}

	runCtx := s.trackTurn(sess.ID)
	defer s.untrackTurn(sess.ID)

	result, err := s.controller.RunTurn(runCtx, sess, req.Message)
	s.sessions.Save(sess)
	if err != nil {
		return nil, err
	}

	s.publishOutcome(ctx, sess, result)
	return s.turnResponse(sess, result), nil
}

// Cancel aborts the running turn. Already-applied edits stay; there is no
// rollback on cancellation.
func (s *agentService) Cancel(ctx context.Context, sessionID string) error {
	if _, found := s.sessions.Get(sessionID); !found {
		return fiber.NewError(fiber.StatusNotFound, "session not found")
	}
	if !s.abortRunningTurn(sessionID) {
		return fiber.NewError(fiber.StatusConflict, "no turn in progress")
	}
	return nil
}

func (s *agentService) Retry(ctx context.Context, sessionID string) (*dto.AgentTurnResponse, error) {
	sess, found := s.sessions.Get(sessionID)
	if !found {
		return nil, fiber.NewError(fiber.StatusNotFound, "session not found")
	}

	runCtx := s.trackTurn(sess.ID)
	defer s.untrackTurn(sess.ID)

	result, err := s.controller.Retry(runCtx, sess)
	s.sessions.Save(sess)
	if err != nil {
		return nil, err
	}

	s.publishOutcome(ctx, sess, result)
	return s.turnResponse(sess, result), nil
}

func (s *agentService) GetMessages(ctx context.Context, sessionID string) (*dto.GetAgentMessagesResponse, error) {
	sess, found := s.sessions.Get(sessionID)
	if !found {
		return nil, fiber.NewError(fiber.StatusNotFound, "session not found")
	}
	return &dto.GetAgentMessagesResponse{
		SessionId: sess.ID,
		Messages:  s.mapper.MessagesToDTO(sess.Messages),
	}, nil
}

// AcceptProposal applies one still-pending proposal through the mutation
// channel. Used when auto-apply is off, or to re-try a proposal whose first
// application failed.
func (s *agentService) AcceptProposal(ctx context.Context, sessionID, proposalID string) (*dto.ProposalDecisionResponse, error) {
	sess, proposal, err := s.findProposal(sessionID, proposalID)
	if err != nil {
		return nil, err
	}
	if proposal.Status != store.ProposalPending {
		return nil, fiber.NewError(fiber.StatusConflict, "proposal already resolved")
	}

	ack, err := s.dispatcher.Dispatch(ctx, bus.EditRequest{
		RequestID:     uuid.NewString(),
		DocumentID:    sess.DocumentID,
		BlockID:       proposal.BlockID,
		Action:        proposal.Action,
		ReplaceWith:   proposal.ReplaceWith,
		TargetBlockID: proposal.TargetBlockID,
	})
	switch {
	case err == nil && ack.Applied:
		proposal.Status = store.ProposalAccepted
		proposal.ApplyError = ""
	case err == nil:
		proposal.ApplyError = ack.Error
	case errors.Is(err, bus.ErrAckTimeout):
		proposal.Status = store.ProposalAccepted
		proposal.ApplyError = err.Error()
	default:
		return nil, err
	}

	s.sessions.Save(sess)
	return &dto.ProposalDecisionResponse{
		ProposalId: proposal.ID,
		Status:     proposal.Status,
		ApplyError: proposal.ApplyError,
	}, nil
}

func (s *agentService) RejectProposal(ctx context.Context, sessionID, proposalID string) (*dto.ProposalDecisionResponse, error) {
	sess, proposal, err := s.findProposal(sessionID, proposalID)
	if err != nil {
		return nil, err
	}
	if proposal.Status != store.ProposalPending {
		return nil, fiber.NewError(fiber.StatusConflict, "proposal already resolved")
	}

	proposal.Status = store.ProposalRejected
	s.sessions.Save(sess)
	return &dto.ProposalDecisionResponse{
		ProposalId: proposal.ID,
		Status:     proposal.Status,
	}, nil
}

func (s *agentService) DeleteSession(ctx context.Context, sessionID string) error {
	if _, found := s.sessions.Get(sessionID); !found {
		return fiber.NewError(fiber.StatusNotFound, "session not found")
	}
	s.abortRunningTurn(sessionID)
	s.sessions.Delete(sessionID)
	return nil
}

func (s *agentService) findProposal(sessionID, proposalID string) (*store.Session, *store.EditProposal, error) {
	sess, found := s.sessions.Get(sessionID)
	if !found {
		return nil, nil, fiber.NewError(fiber.StatusNotFound, "session not found")
	}
	for _, msg := range sess.Messages {
		for _, p := range msg.Proposals {
			if p.ID == proposalID {
				return sess, p, nil
			}
		}
	}
	return nil, nil, fiber.NewError(fiber.StatusNotFound, "proposal not found")
}

func (s *agentService) trackTurn(sessionID string) context.Context {
	// The turn outlives the HTTP request only through explicit cancel, so
	// it runs off context.Background, not the request context.
	runCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancels[sessionID] = cancel
	s.mu.Unlock()
	return runCtx
}

func (s *agentService) untrackTurn(sessionID string) {
	s.mu.Lock()
	if cancel, ok := s.cancels[sessionID]; ok {
		cancel()
		delete(s.cancels, sessionID)
	}
	s.mu.Unlock()
}

func (s *agentService) abortRunningTurn(sessionID string) bool {
	s.mu.Lock()
	cancel, ok := s.cancels[sessionID]
	s.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

func (s *agentService) turnResponse(sess *store.Session, result *agent.TurnResult) *dto.AgentTurnResponse {
	return &dto.AgentTurnResponse{
		SessionId: sess.ID,
		State:     sess.State,
		Cancelled: result.Cancelled,
		Messages:  s.mapper.MessagesToDTO(result.Messages),
		Diff:      s.mapper.DiffToDTO(result.Diff),
	}
}

func (s *agentService) publishOutcome(ctx context.Context, sess *store.Session, result *agent.TurnResult) {
	if s.natsPub == nil {
		return
	}
	var event events.Event
	if result.Cancelled {
		event = events.NewAgentSessionCancelledEvent(sess.DocumentID, sess.ID)
	} else {
		event = events.NewAgentSessionCompletedEvent(sess.DocumentID, sess.ID, sess.Iteration)
	}
	if err := s.natsPub.Publish(ctx, event); err != nil {
		log.Printf("[WARN] Failed to publish event %s: %v", event.EventType(), err)
	}
}

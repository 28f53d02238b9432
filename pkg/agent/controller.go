package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"ai-docagent-be/internal/constant"
	"ai-docagent-be/pkg/bus"
	"ai-docagent-be/pkg/document"
	"ai-docagent-be/pkg/llm"
	"ai-docagent-be/pkg/store"

	"github.com/google/uuid"
)

var (
	// ErrTransport wraps network/timeout failures of the model transport.
	// The failing request stays cached on the session for exact retry.
	ErrTransport = errors.New("transport error")

	// ErrNoRetryableRequest signals a retry with nothing cached.
	ErrNoRetryableRequest = errors.New("no retryable request")
)

// EditDispatcher sends one mutation request to the tree boundary and waits
// for its acknowledgment.
type EditDispatcher interface {
	Dispatch(ctx context.Context, req bus.EditRequest) (bus.EditApplied, error)
}

// Broadcaster fans turn progress out to document subscribers (websocket).
type Broadcaster interface {
	Chunk(docID, sessionID, content string)
	Proposal(docID, sessionID string, proposal *store.EditProposal)
	EditResult(docID, sessionID string, proposal *store.EditProposal)
	Summary(docID, sessionID string, diff *store.DiffSummary)
}

// NopBroadcaster discards all progress events (tests, headless runs).
type NopBroadcaster struct{}

func (NopBroadcaster) Chunk(string, string, string)                    {}
func (NopBroadcaster) Proposal(string, string, *store.EditProposal)   {}
func (NopBroadcaster) EditResult(string, string, *store.EditProposal) {}
func (NopBroadcaster) Summary(string, string, *store.DiffSummary)     {}

// TurnResult is what one RunTurn call produced.
type TurnResult struct {
	Messages  []*store.Message
	Diff      *store.DiffSummary
	Cancelled bool
}

// Controller owns one agent conversation: it builds requests from fresh
// segmentations, consumes streamed responses, applies edits strictly
// sequentially through the mutation bus, decides whether to keep iterating,
// compacts context in long sessions, and emits the end-of-session diff.
// It never mutates the tree directly.
type Controller struct {
	docs        *document.Store
	segmenter   *document.Segmenter
	provider    llm.LLMProvider
	dispatcher  EditDispatcher
	parser      *ResponseParser
	summarizer  *Summarizer
	differ      *Differ
	broadcaster Broadcaster

	// AutoApply dispatches proposals as they arrive; when false they stay
	// pending for explicit user acceptance.
	AutoApply bool

	// MaxIterations caps the continuation loop (overridable in tests).
	MaxIterations int
}

// NewController creates a session controller
func NewController(
	docs *document.Store,
	provider llm.LLMProvider,
	dispatcher EditDispatcher,
	broadcaster Broadcaster,
) *Controller {
	if broadcaster == nil {
		broadcaster = NopBroadcaster{}
	}
	return &Controller{
		docs:          docs,
		segmenter:     document.NewSegmenter(),
		provider:      provider,
		dispatcher:    dispatcher,
		parser:        NewResponseParser(),
		summarizer:    NewSummarizer(),
		differ:        NewDiffer(),
		broadcaster:   broadcaster,
		AutoApply:     true,
		MaxIterations: constant.MaxIterations,
	}
}

// NewSession creates the in-memory session record for a document.
func NewSession(documentID string) *store.Session {
	return &store.Session{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		State:      store.StateIdle,
		Iteration:  1,
		CreatedAt:  time.Now(),
	}
}

// RunTurn drives one user message through the full loop: request,
// streamed response, sequential edit application, continuations while the
// model reports unfinished work, and the final diff summary.
func (c *Controller) RunTurn(ctx context.Context, sess *store.Session, userMessage string) (*TurnResult, error) {
	if err := c.captureOriginal(sess); err != nil {
		return nil, err
	}

	userMsg := &store.Message{
		ID:        uuid.NewString(),
		Role:      store.RoleUser,
		Content:   userMessage,
		CreatedAt: time.Now(),
	}
	sess.Messages = append(sess.Messages, userMsg)

	result := &TurnResult{Messages: []*store.Message{userMsg}}
	return c.runLoop(ctx, sess, nil, result)
}

// Retry re-sends the exact cached request after a transport failure.
func (c *Controller) Retry(ctx context.Context, sess *store.Session) (*TurnResult, error) {
	if sess.LastRequest == nil {
		return nil, ErrNoRetryableRequest
	}
	return c.runLoop(ctx, sess, sess.LastRequest, &TurnResult{})
}

func (c *Controller) runLoop(ctx context.Context, sess *store.Session, cached *store.AgentRequest, result *TurnResult) (*TurnResult, error) {
	req := cached
	continueFrom := ""
	if cached != nil {
		continueFrom = cached.ContinueFrom
	}

	for {
		sess.State = store.StateAwaitingResponse

		if req == nil {
			built, err := c.buildRequest(sess, continueFrom)
			if err != nil {
				sess.State = store.StateIdle
				return result, err
			}
			req = built
		}
		sess.LastRequest = req

		text, err := c.provider.ChatStream(ctx, c.composeMessages(req), func(chunk string) {
			c.broadcaster.Chunk(sess.DocumentID, sess.ID, chunk)
		})
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.finishCancelled(sess, text, result)
				return result, nil
			}
			sess.State = store.StateIdle
			return result, fmt.Errorf("%w: %v", ErrTransport, err)
		}

		parsed := c.parser.Parse(text)
		modelMsg := c.buildModelMessage(sess, parsed)
		sess.Messages = append(sess.Messages, modelMsg)
		result.Messages = append(result.Messages, modelMsg)

		if len(modelMsg.Proposals) > 0 && c.AutoApply {
			sess.State = store.StateApplyingEdits
			if cancelled := c.applySequentially(ctx, sess, modelMsg.Proposals); cancelled {
				sess.State = store.StateCancelled
				result.Cancelled = true
				return result, nil
			}
		}

		req = nil

		if parsed.HasMore && sess.Iteration < c.MaxIterations {
			sess.Iteration++
			sess.PendingContinuation = parsed.Response
			continueFrom = fmt.Sprintf("%s/%d", sess.ID, sess.Iteration)

			if c.summarizer.ShouldSummarize(sess) {
				sess.State = store.StateSummarizing
				sess.ContextSummary = c.summarizer.Summarize(sess)
				sess.SummarizedAtIteration = sess.Iteration
				sess.SummarizedAtMessage = len(sess.Messages)
			}
			continue
		}

		sess.PendingContinuation = ""
		break
	}

	if sess.Iteration > 1 {
		result.Diff = c.emitSummary(sess)
	}

	sess.State = store.StateIdle
	return result, nil
}

func (c *Controller) captureOriginal(sess *store.Session) error {
	if sess.OriginalSnapshot != "" {
		return nil
	}
	snapshot, err := c.docs.Snapshot(sess.DocumentID)
	if err != nil {
		return err
	}
	text, err := c.docs.Text(sess.DocumentID)
	if err != nil {
		return err
	}
	sess.OriginalSnapshot = snapshot
	sess.OriginalText = text
	return nil
}

// buildRequest re-segments the current (possibly concurrently mutated)
// tree so each round addresses the document as it stands now.
func (c *Controller) buildRequest(sess *store.Session, continueFrom string) (*store.AgentRequest, error) {
	seg, err := c.docs.Segment(sess.DocumentID, c.segmenter)
	if err != nil {
		return nil, err
	}

	docContext := truncateAtRune(seg.Annotated, constant.MaxDocumentContextChars)

	message := lastUserMessage(sess)
	if continueFrom != "" {
		message = fmt.Sprintf(constant.AgentContinuationPromptV1, continueFrom, sess.PendingContinuation)
	}

	return &store.AgentRequest{
		Message:              message,
		DocumentContext:      docContext,
		History:              c.effectiveHistory(sess, continueFrom == ""),
		ContextSummary:       sess.ContextSummary,
		ContinueFrom:         continueFrom,
		MaxEditsPerIteration: constant.MaxEditsPerIteration,
	}, nil
}

// effectiveHistory returns the messages after the last compaction point,
// converted to transport shape. The first round excludes the user message
// just appended, which travels as the request message itself.
func (c *Controller) effectiveHistory(sess *store.Session, excludeLast bool) []store.HistoryMessage {
	msgs := sess.Messages[sess.SummarizedAtMessage:]
	if excludeLast && len(msgs) > 0 {
		msgs = msgs[:len(msgs)-1]
	}

	var history []store.HistoryMessage
	for _, msg := range msgs {
		if msg.Role == store.RoleSummary || msg.Content == "" {
			continue
		}
		role := "user"
		if msg.Role == store.RoleModel {
			role = "assistant"
		}
		history = append(history, store.HistoryMessage{Role: role, Content: msg.Content})
	}
	return history
}

func (c *Controller) composeMessages(req *store.AgentRequest) []llm.Message {
	msgs := []llm.Message{{
		Role:    "system",
		Content: fmt.Sprintf(constant.AgentSystemPromptV2, req.MaxEditsPerIteration),
	}}

	if req.ContextSummary != "" {
		msgs = append(msgs,
			llm.Message{Role: "user", Content: req.ContextSummary},
			llm.Message{Role: "assistant", Content: "Understood. Continuing from that state."},
		)
	}

	for _, h := range req.History {
		msgs = append(msgs, llm.Message{Role: h.Role, Content: h.Content})
	}

	msgs = append(msgs, llm.Message{
		Role:    "user",
		Content: fmt.Sprintf("Current document:\n%s\n\n%s", req.DocumentContext, req.Message),
	})
	return msgs
}

func (c *Controller) buildModelMessage(sess *store.Session, parsed *ParsedResponse) *store.Message {
	msg := &store.Message{
		ID:        uuid.NewString(),
		Role:      store.RoleModel,
		Content:   parsed.Response,
		CreatedAt: time.Now(),
	}

	for _, edit := range parsed.Edits {
		proposal := &store.EditProposal{
			ID:            uuid.NewString(),
			BlockID:       edit.BlockID,
			Action:        edit.Action,
			ReplaceWith:   edit.ReplaceWith,
			TargetBlockID: edit.TargetBlockID,
			Description:   edit.Description,
			Status:        store.ProposalPending,
		}
		msg.Proposals = append(msg.Proposals, proposal)
		c.broadcaster.Proposal(sess.DocumentID, sess.ID, proposal)
	}
	return msg
}

// applySequentially dispatches edits one at a time, in the order the model
// emitted them, waiting for each acknowledgment before the next dispatch.
// Each edit's resolution depends on the tree state left by the previous
// one. Returns true when cancelled mid-application; applied edits remain.
func (c *Controller) applySequentially(ctx context.Context, sess *store.Session, proposals []*store.EditProposal) bool {
	for _, p := range proposals {
		ack, err := c.dispatcher.Dispatch(ctx, bus.EditRequest{
			RequestID:     uuid.NewString(),
			DocumentID:    sess.DocumentID,
			BlockID:       p.BlockID,
			Action:        p.Action,
			ReplaceWith:   p.ReplaceWith,
			TargetBlockID: p.TargetBlockID,
		})

		switch {
		case err == nil && ack.Applied:
			p.Status = store.ProposalAccepted
		case err == nil:
			// Resolution failed (e.g. block deleted by a collaborator):
			// skip this edit, never abort the rest of the turn.
			p.ApplyError = ack.Error
		case errors.Is(err, bus.ErrAckTimeout):
			// Wait abandoned; application may still land. Proceed
			// optimistically.
			p.Status = store.ProposalAccepted
			p.ApplyError = err.Error()
		case ctx.Err() != nil:
			return true
		default:
			p.ApplyError = err.Error()
		}

		c.broadcaster.EditResult(sess.DocumentID, sess.ID, p)
	}
	return false
}

func (c *Controller) finishCancelled(sess *store.Session, partialText string, result *TurnResult) {
	sess.State = store.StateCancelled
	result.Cancelled = true
	if partialText == "" {
		return
	}
	// Partial output is preserved and marked non-streaming
	msg := &store.Message{
		ID:        uuid.NewString(),
		Role:      store.RoleModel,
		Content:   partialText,
		Streaming: false,
		Cancelled: true,
		CreatedAt: time.Now(),
	}
	sess.Messages = append(sess.Messages, msg)
	result.Messages = append(result.Messages, msg)
}

func (c *Controller) emitSummary(sess *store.Session) *store.DiffSummary {
	finalText, err := c.docs.Text(sess.DocumentID)
	if err != nil {
		return nil
	}

	diff := c.differ.Compare(sess.OriginalText, finalText, summaryTitle(sess))
	diff.Actions = dedupedActions(sess)

	summaryMsg := &store.Message{
		ID:        uuid.NewString(),
		Role:      store.RoleSummary,
		Diff:      diff,
		CreatedAt: time.Now(),
	}
	sess.Messages = append(sess.Messages, summaryMsg)
	c.broadcaster.Summary(sess.DocumentID, sess.ID, diff)
	return diff
}

func lastUserMessage(sess *store.Session) string {
	for i := len(sess.Messages) - 1; i >= 0; i-- {
		if sess.Messages[i].Role == store.RoleUser {
			return sess.Messages[i].Content
		}
	}
	return ""
}

func summaryTitle(sess *store.Session) string {
	title := truncateAtRune(firstUserMessage(sess), 60)
	if title == "" {
		title = "Document changes"
	}
	return title
}

// truncateAtRune cuts the string at max bytes, backing off to the previous
// rune boundary so a multi-byte character is never split.
func truncateAtRune(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// dedupedActions collects the model's own stated actions across turns.
func dedupedActions(sess *store.Session) []string {
	seen := make(map[string]bool)
	var actions []string
	for _, msg := range sess.Messages {
		if msg.Role != store.RoleModel {
			continue
		}
		statement := strings.TrimSpace(msg.Content)
		if statement == "" || seen[statement] {
			continue
		}
		seen[statement] = true
		actions = append(actions, statement)
	}
	return actions
}

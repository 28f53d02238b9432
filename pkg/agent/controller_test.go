package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"ai-docagent-be/pkg/bus"
	"ai-docagent-be/pkg/document"
	"ai-docagent-be/pkg/lexical"
	"ai-docagent-be/pkg/llm"
	"ai-docagent-be/pkg/store"
)

// scriptedProvider replays canned model turns in order.
type scriptedProvider struct {
	turns    []scriptedTurn
	calls    int
	requests [][]llm.Message
}

type scriptedTurn struct {
	text string
	err  error
}

func (p *scriptedProvider) ChatStream(ctx context.Context, history []llm.Message, onChunk llm.ChunkHandler, opts ...llm.Option) (string, error) {
	p.requests = append(p.requests, history)
	if p.calls >= len(p.turns) {
		return "", fmt.Errorf("unscripted call %d", p.calls)
	}
	turn := p.turns[p.calls]
	p.calls++
	if turn.err != nil {
		return turn.text, turn.err
	}
	if onChunk != nil {
		onChunk(turn.text)
	}
	return turn.text, nil
}

func (p *scriptedProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	return p.ChatStream(ctx, history, nil, opts...)
}

func (p *scriptedProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.ChatStream(ctx, []llm.Message{{Role: "user", Content: prompt}}, nil, opts...)
}

// applyDispatcher applies edits straight against the store, standing in for
// the bus round trip.
type applyDispatcher struct {
	docs       *document.Store
	applier    *document.Applier
	errQueue   []error
	dispatched []bus.EditRequest
}

func newApplyDispatcher(docs *document.Store) *applyDispatcher {
	return &applyDispatcher{docs: docs, applier: document.NewApplier()}
}

func (d *applyDispatcher) Dispatch(ctx context.Context, req bus.EditRequest) (bus.EditApplied, error) {
	d.dispatched = append(d.dispatched, req)

	if len(d.errQueue) > 0 {
		err := d.errQueue[0]
		d.errQueue = d.errQueue[1:]
		if err != nil {
			return bus.EditApplied{}, err
		}
	}

	err := d.docs.Mutate(req.DocumentID, func(root *lexical.Node) error {
		return d.applier.Apply(root, document.EditCommand{
			BlockID:       req.BlockID,
			Action:        document.EditAction(req.Action),
			ReplaceWith:   req.ReplaceWith,
			TargetBlockID: req.TargetBlockID,
		})
	})

	ack := bus.EditApplied{
		RequestID:  req.RequestID,
		DocumentID: req.DocumentID,
		BlockID:    req.BlockID,
		Applied:    err == nil,
	}
	if err != nil {
		ack.Error = err.Error()
	}
	return ack, nil
}

const controllerDoc = `{"root":{"type":"root","children":[
	{"type":"heading","tag":"h1","children":[{"type":"text","text":"Report"}]},
	{"type":"paragraph","children":[{"type":"text","text":"First paragraph."}]},
	{"type":"paragraph","children":[{"type":"text","text":"Second paragraph."}]}
]}}`

func newTestController(t *testing.T, provider llm.LLMProvider) (*Controller, *applyDispatcher, *store.Session, []string) {
	t.Helper()

	docs := document.NewStore()
	if err := docs.Register("doc1", controllerDoc); err != nil {
		t.Fatalf("Register: %v", err)
	}
	seg, err := docs.Segment("doc1", document.NewSegmenter())
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	var ids []string
	for _, b := range seg.Blocks {
		ids = append(ids, b.BlockID)
	}

	dispatcher := newApplyDispatcher(docs)
	c := NewController(docs, provider, dispatcher, nil)
	return c, dispatcher, NewSession("doc1"), ids
}

func envelope(response string, hasMore bool, edits ...string) string {
	return fmt.Sprintf(`{"response": %q, "edits": [%s], "hasMore": %v}`,
		response, strings.Join(edits, ", "), hasMore)
}

func replaceEdit(blockID, content, description string) string {
	return fmt.Sprintf(`{"blockId": %q, "action": "replace", "replaceWith": %q, "description": %q}`,
		blockID, content, description)
}

func TestRunTurnSingleIteration(t *testing.T) {
	provider := &scriptedProvider{}
	c, dispatcher, sess, ids := newTestController(t, provider)
	provider.turns = []scriptedTurn{{
		text: envelope("Rewrote the first paragraph.", false,
			replaceEdit(ids[1], "Rewritten paragraph.", "Rewrite first paragraph")),
	}}

	result, err := c.RunTurn(context.Background(), sess, "Rewrite the first paragraph")
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	if result.Cancelled {
		t.Error("cancelled")
	}
	if len(result.Messages) != 2 {
		t.Fatalf("got %d messages", len(result.Messages))
	}
	if result.Messages[0].Role != store.RoleUser || result.Messages[1].Role != store.RoleModel {
		t.Errorf("roles = %q, %q", result.Messages[0].Role, result.Messages[1].Role)
	}

	proposals := result.Messages[1].Proposals
	if len(proposals) != 1 || proposals[0].Status != store.ProposalAccepted {
		t.Fatalf("proposals = %+v", proposals)
	}
	if len(dispatcher.dispatched) != 1 || dispatcher.dispatched[0].BlockID != ids[1] {
		t.Errorf("dispatched = %+v", dispatcher.dispatched)
	}
	if result.Diff != nil {
		t.Error("single iteration must not emit a diff summary")
	}
	if sess.State != store.StateIdle {
		t.Errorf("state = %q", sess.State)
	}
	if sess.Iteration != 1 {
		t.Errorf("iteration = %d", sess.Iteration)
	}
}

func TestRunTurnContinuationAndDiff(t *testing.T) {
	provider := &scriptedProvider{}
	c, _, sess, ids := newTestController(t, provider)

	provider.turns = []scriptedTurn{
		{text: envelope("Updated the first half.", true,
			replaceEdit(ids[1], "New first paragraph.", "Rewrite first"))},
		{text: envelope("Updated the second half.", false,
			replaceEdit(ids[2], "New second paragraph.", "Rewrite second"))},
	}

	result, err := c.RunTurn(context.Background(), sess, "Rewrite both paragraphs")
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	if provider.calls != 2 {
		t.Errorf("provider calls = %d, want 2", provider.calls)
	}
	if sess.Iteration != 2 {
		t.Errorf("iteration = %d, want 2", sess.Iteration)
	}

	// Continuation round carries the token and the model's remaining-work text.
	secondReq := provider.requests[1]
	lastMsg := secondReq[len(secondReq)-1].Content
	if !strings.Contains(lastMsg, "continuation token: "+sess.ID+"/2") {
		t.Errorf("continuation prompt missing token:\n%s", lastMsg)
	}
	if !strings.Contains(lastMsg, "Updated the first half.") {
		t.Errorf("continuation prompt missing remaining work:\n%s", lastMsg)
	}

	if result.Diff == nil {
		t.Fatal("multi-iteration turn must emit a diff summary")
	}
	if result.Diff.LinesAdded != 2 || result.Diff.LinesRemoved != 2 {
		t.Errorf("diff = +%d/-%d, want +2/-2", result.Diff.LinesAdded, result.Diff.LinesRemoved)
	}
	if result.Diff.Title != "Rewrite both paragraphs" {
		t.Errorf("title = %q", result.Diff.Title)
	}
	wantActions := []string{"Updated the first half.", "Updated the second half."}
	if len(result.Diff.Actions) != 2 || result.Diff.Actions[0] != wantActions[0] || result.Diff.Actions[1] != wantActions[1] {
		t.Errorf("actions = %v", result.Diff.Actions)
	}

	last := sess.Messages[len(sess.Messages)-1]
	if last.Role != store.RoleSummary || last.Diff == nil {
		t.Errorf("summary message = %+v", last)
	}
	if sess.PendingContinuation != "" {
		t.Errorf("pending continuation = %q", sess.PendingContinuation)
	}
}

func TestRunTurnTransportErrorThenRetry(t *testing.T) {
	provider := &scriptedProvider{turns: []scriptedTurn{
		{err: errors.New("connection refused")},
		{text: envelope("All done.", false)},
	}}
	c, _, sess, _ := newTestController(t, provider)

	_, err := c.RunTurn(context.Background(), sess, "Do something")
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("err = %v, want ErrTransport", err)
	}
	if sess.State != store.StateIdle {
		t.Errorf("state = %q", sess.State)
	}
	if sess.LastRequest == nil {
		t.Fatal("failed request not cached for retry")
	}
	cached := sess.LastRequest

	result, err := c.Retry(context.Background(), sess)
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if len(result.Messages) != 1 || result.Messages[0].Content != "All done." {
		t.Errorf("messages = %+v", result.Messages)
	}

	// The retry round must replay the cached request verbatim.
	retryReq := provider.requests[1]
	wantDoc := "Current document:\n" + cached.DocumentContext
	if !strings.Contains(retryReq[len(retryReq)-1].Content, wantDoc) {
		t.Error("retry did not reuse the cached document context")
	}
}

func TestRetryWithoutCachedRequest(t *testing.T) {
	c, _, sess, _ := newTestController(t, &scriptedProvider{})
	if _, err := c.Retry(context.Background(), sess); !errors.Is(err, ErrNoRetryableRequest) {
		t.Errorf("err = %v, want ErrNoRetryableRequest", err)
	}
}

func TestRunTurnCancellationKeepsPartialText(t *testing.T) {
	provider := &scriptedProvider{turns: []scriptedTurn{
		{text: "I was about to", err: context.Canceled},
	}}
	c, _, sess, _ := newTestController(t, provider)

	result, err := c.RunTurn(context.Background(), sess, "Edit everything")
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	if !result.Cancelled {
		t.Fatal("result not marked cancelled")
	}
	if sess.State != store.StateCancelled {
		t.Errorf("state = %q", sess.State)
	}

	last := result.Messages[len(result.Messages)-1]
	if !last.Cancelled || last.Content != "I was about to" {
		t.Errorf("partial message = %+v", last)
	}
}

func TestRunTurnFailedEditStaysPending(t *testing.T) {
	provider := &scriptedProvider{}
	c, _, sess, ids := newTestController(t, provider)
	provider.turns = []scriptedTurn{{
		text: envelope("Two edits.", false,
			replaceEdit("blk_gone", "x", "Edit a deleted block"),
			replaceEdit(ids[2], "Still applied.", "Edit a live block")),
	}}

	result, err := c.RunTurn(context.Background(), sess, "Edit two blocks")
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}

	proposals := result.Messages[1].Proposals
	if len(proposals) != 2 {
		t.Fatalf("proposals = %d", len(proposals))
	}
	if proposals[0].Status != store.ProposalPending || proposals[0].ApplyError == "" {
		t.Errorf("failed proposal = %+v", proposals[0])
	}
	// A failed edit never aborts the rest of the turn.
	if proposals[1].Status != store.ProposalAccepted {
		t.Errorf("second proposal = %+v", proposals[1])
	}
}

func TestRunTurnAckTimeoutProceedsOptimistically(t *testing.T) {
	provider := &scriptedProvider{}
	c, dispatcher, sess, ids := newTestController(t, provider)
	dispatcher.errQueue = []error{bus.ErrAckTimeout}
	provider.turns = []scriptedTurn{{
		text: envelope("One edit.", false, replaceEdit(ids[1], "Updated.", "Update")),
	}}

	result, err := c.RunTurn(context.Background(), sess, "Update the doc")
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	p := result.Messages[1].Proposals[0]
	if p.Status != store.ProposalAccepted {
		t.Errorf("status = %q, want accepted on ack timeout", p.Status)
	}
	if p.ApplyError == "" {
		t.Error("timeout not recorded on the proposal")
	}
}

func TestRunTurnMalformedResponse(t *testing.T) {
	provider := &scriptedProvider{turns: []scriptedTurn{
		{text: "sorry, no JSON today"},
	}}
	c, dispatcher, sess, _ := newTestController(t, provider)

	result, err := c.RunTurn(context.Background(), sess, "Edit the doc")
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	modelMsg := result.Messages[1]
	if modelMsg.Content != "sorry, no JSON today" {
		t.Errorf("content = %q", modelMsg.Content)
	}
	if len(modelMsg.Proposals) != 0 || len(dispatcher.dispatched) != 0 {
		t.Error("malformed response must never dispatch edits")
	}
	if sess.State != store.StateIdle {
		t.Errorf("state = %q", sess.State)
	}
}

func TestRunTurnMaxIterationsCap(t *testing.T) {
	provider := &scriptedProvider{turns: []scriptedTurn{
		{text: envelope("more", true)},
		{text: envelope("more", true)},
		{text: envelope("more", true)},
	}}
	c, _, sess, _ := newTestController(t, provider)
	c.MaxIterations = 3

	if _, err := c.RunTurn(context.Background(), sess, "Keep going forever"); err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	if provider.calls != 3 {
		t.Errorf("provider calls = %d, want 3", provider.calls)
	}
	if sess.Iteration != 3 {
		t.Errorf("iteration = %d, want 3", sess.Iteration)
	}
	if sess.State != store.StateIdle {
		t.Errorf("state = %q", sess.State)
	}
}

func TestRunTurnSummarizesLongSessions(t *testing.T) {
	var turns []scriptedTurn
	for i := 0; i < 8; i++ {
		turns = append(turns, scriptedTurn{text: envelope(fmt.Sprintf("step %d", i+1), true)})
	}
	provider := &scriptedProvider{turns: turns}
	c, _, sess, _ := newTestController(t, provider)
	c.MaxIterations = 8

	if _, err := c.RunTurn(context.Background(), sess, "A very long task"); err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	if sess.ContextSummary == "" {
		t.Fatal("long session did not compact context")
	}
	if sess.SummarizedAtIteration != 6 {
		t.Errorf("summarized at iteration %d, want 6", sess.SummarizedAtIteration)
	}
	if !strings.Contains(sess.ContextSummary, "A very long task") {
		t.Errorf("summary missing original request:\n%s", sess.ContextSummary)
	}

	// Rounds after compaction carry the summary as a leading exchange.
	postCompaction := provider.requests[6]
	if postCompaction[1].Content != sess.ContextSummary {
		t.Errorf("request after compaction does not lead with the summary")
	}
}

func TestRunTurnManualApprovalMode(t *testing.T) {
	provider := &scriptedProvider{}
	c, dispatcher, sess, ids := newTestController(t, provider)
	c.AutoApply = false
	provider.turns = []scriptedTurn{{
		text: envelope("Proposing an edit.", false, replaceEdit(ids[1], "Changed.", "Change")),
	}}

	result, err := c.RunTurn(context.Background(), sess, "Suggest changes")
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	p := result.Messages[1].Proposals[0]
	if p.Status != store.ProposalPending {
		t.Errorf("status = %q, want pending without auto-apply", p.Status)
	}
	if len(dispatcher.dispatched) != 0 {
		t.Error("manual mode must not dispatch")
	}
}

func TestRunTurnNoEditsLeavesDocumentUntouched(t *testing.T) {
	provider := &scriptedProvider{}
	c, dispatcher, sess, _ := newTestController(t, provider)
	provider.turns = []scriptedTurn{{
		text: envelope("The document already reads well; no changes needed.", false),
	}}

	before, err := c.docs.Snapshot(sess.DocumentID)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	result, err := c.RunTurn(context.Background(), sess, "Review the document")
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	if len(result.Messages) != 2 || len(result.Messages[1].Proposals) != 0 {
		t.Fatalf("messages = %+v", result.Messages)
	}
	if len(dispatcher.dispatched) != 0 {
		t.Errorf("dispatched = %+v", dispatcher.dispatched)
	}

	after, err := c.docs.Snapshot(sess.DocumentID)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if before != after {
		t.Error("a turn with no edits changed the serialized document")
	}
}

func TestTruncateAtRune(t *testing.T) {
	tests := []struct {
		input string
		max   int
		want  string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello", 3, "hel"},
		// 'é' is two bytes; a cut landing inside it backs off.
		{"héllo", 2, "h"},
		{"héllo", 3, "hél"},
		{"日本語", 4, "日"},
		{"", 3, ""},
	}
	for _, tt := range tests {
		if got := truncateAtRune(tt.input, tt.max); got != tt.want {
			t.Errorf("truncateAtRune(%q, %d) = %q, want %q", tt.input, tt.max, got, tt.want)
		}
	}
}

package agent

import (
	"fmt"
	"strings"

	"ai-docagent-be/internal/constant"
	"ai-docagent-be/pkg/store"
)

// Summarizer compacts prior iterations into a short synthetic message so
// prompt growth stays bounded independent of session length.
type Summarizer struct{}

// NewSummarizer creates a new summarizer
func NewSummarizer() *Summarizer {
	return &Summarizer{}
}

// ShouldSummarize reports whether the iteration count since the last
// summarization has exceeded the fixed threshold.
func (s *Summarizer) ShouldSummarize(sess *store.Session) bool {
	return sess.Iteration-sess.SummarizedAtIteration > constant.ContextSummaryThreshold
}

// Summarize synthesizes the compact summary: the original request, a
// bulleted list of edits applied so far, and the model's own statement of
// remaining work. The caller records the compaction point on the session.
func (s *Summarizer) Summarize(sess *store.Session) string {
	var sb strings.Builder
	sb.WriteString(constant.ContextSummaryHeaderV1)
	sb.WriteString("\n\n")

	if req := firstUserMessage(sess); req != "" {
		sb.WriteString("Original request: ")
		sb.WriteString(req)
		sb.WriteString("\n\n")
	}

	applied := appliedEditLines(sess)
	if len(applied) > 0 {
		sb.WriteString("Edits applied so far:\n")
		for _, line := range applied {
			sb.WriteString("- ")
			sb.WriteString(line)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	if sess.PendingContinuation != "" {
		sb.WriteString("Remaining work (model's own words): ")
		sb.WriteString(sess.PendingContinuation)
		sb.WriteString("\n")
	}

	return strings.TrimRight(sb.String(), "\n")
}

func firstUserMessage(sess *store.Session) string {
	for _, msg := range sess.Messages {
		if msg.Role == store.RoleUser {
			return msg.Content
		}
	}
	return ""
}

func appliedEditLines(sess *store.Session) []string {
	var lines []string
	for _, msg := range sess.Messages {
		for _, p := range msg.Proposals {
			if p.Status != store.ProposalAccepted {
				continue
			}
			desc := p.Description
			if desc == "" {
				desc = fmt.Sprintf("%s %s", p.Action, p.BlockID)
			}
			lines = append(lines, desc)
		}
	}
	return lines
}

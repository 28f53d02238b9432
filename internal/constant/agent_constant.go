package constant

import "time"

const (
	// ContextSummaryThreshold is the number of iterations since the last
	// summarization after which the session history is compacted.
	ContextSummaryThreshold = 5

	// EditAckTimeout bounds the wait for an edit-applied acknowledgment
	// before the next edit proceeds optimistically. A liveness safeguard
	// under concurrent editing, not a correctness contract.
	EditAckTimeout = 2 * time.Second

	// MaxIterations caps the continuation loop of one turn.
	MaxIterations = 10

	// MaxEditsPerIteration is advertised to the model in every request.
	MaxEditsPerIteration = 10

	// MaxDocumentContextChars caps the annotated document blob sent to the
	// model; longer documents are truncated from the end.
	MaxDocumentContextChars = 60000

	// Ollama defaults
	OllamaDefaultBaseURL = "http://localhost:11434"
	OllamaDefaultModel   = "llama3"
	OllamaChatEndpoint   = "/api/chat"
	OllamaRoleAssistant  = "assistant"
)

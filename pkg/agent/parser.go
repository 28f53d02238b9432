package agent

import (
	"encoding/json"
	"regexp"
	"strings"

	"ai-docagent-be/pkg/document"
)

// ProposedEdit is the raw shape of one edit instruction in the model output.
type ProposedEdit struct {
	BlockID       string `json:"blockId"`
	Action        string `json:"action"`
	ReplaceWith   string `json:"replaceWith"`
	TargetBlockID string `json:"targetBlockId"`
	Description   string `json:"description"`
}

// ParsedResponse is the decoded-once, strongly typed model turn. Malformed
// marks the degraded variant where recovery failed and Response carries the
// raw text with zero edits; it is never a crash and never a dropped turn.
type ParsedResponse struct {
	Response string
	Edits    []ProposedEdit
	HasMore  bool

	Malformed bool
	Raw       string
}

// ResponseParser decodes the model's {response, edits, hasMore} object,
// repairing the malformed output generated text frequently contains.
type ResponseParser struct{}

// NewResponseParser creates a new parser
func NewResponseParser() *ResponseParser {
	return &ResponseParser{}
}

type responseEnvelope struct {
	Response string            `json:"response"`
	Edits    []json.RawMessage `json:"edits"`
	HasMore  bool              `json:"hasMore"`
}

// Parse attempts, in order: direct decode, decode after backslash-escape
// repair, then regex/balance-based field extraction. Individually broken
// edit objects are discarded without discarding the whole turn.
func (p *ResponseParser) Parse(raw string) *ParsedResponse {
	text := stripCodeFences(raw)

	if parsed, ok := p.tryDecode(text); ok {
		return parsed
	}
	if parsed, ok := p.tryDecode(repairEscapes(text)); ok {
		return parsed
	}
	if parsed, ok := p.tryExtract(text); ok {
		return parsed
	}

	return &ParsedResponse{
		Response:  strings.TrimSpace(text),
		Malformed: true,
		Raw:       raw,
	}
}

func (p *ResponseParser) tryDecode(text string) (*ParsedResponse, bool) {
	// Decode the key set first: a bare JSON string or an unrelated object
	// decodes cleanly but is not our envelope, while an envelope whose
	// response is legitimately empty still is.
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return nil, false
	}
	if _, hasResponse := fields["response"]; !hasResponse {
		if _, hasEdits := fields["edits"]; !hasEdits {
			return nil, false
		}
	}

	var env responseEnvelope
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		return nil, false
	}

	parsed := &ParsedResponse{
		Response: env.Response,
		HasMore:  env.HasMore,
		Raw:      text,
	}
	for _, rawEdit := range env.Edits {
		if edit, ok := decodeEdit(string(rawEdit)); ok {
			parsed.Edits = append(parsed.Edits, edit)
		}
	}
	return parsed, true
}

// tryExtract pulls the response string and each top-level object of the
// edits array out of broken JSON, matching balanced braces while respecting
// string boundaries.
func (p *ResponseParser) tryExtract(text string) (*ParsedResponse, bool) {
	response, responseOK := extractStringField(text, "response")

	var edits []ProposedEdit
	for _, objText := range extractEditObjects(text) {
		if edit, ok := decodeEdit(objText); ok {
			edits = append(edits, edit)
			continue
		}
		if edit, ok := decodeEdit(repairEscapes(objText)); ok {
			edits = append(edits, edit)
		}
	}

	if !responseOK && len(edits) == 0 {
		return nil, false
	}

	return &ParsedResponse{
		Response: response,
		Edits:    edits,
		HasMore:  hasMorePattern.MatchString(text),
		Raw:      text,
	}, true
}

func decodeEdit(objText string) (ProposedEdit, bool) {
	var edit ProposedEdit
	if err := json.Unmarshal([]byte(objText), &edit); err != nil {
		return ProposedEdit{}, false
	}
	if edit.BlockID == "" || !document.ValidAction(edit.Action) {
		return ProposedEdit{}, false
	}
	return edit, true
}

var (
	fencePattern   = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")
	hasMorePattern = regexp.MustCompile(`"hasMore"\s*:\s*true`)
)

func stripCodeFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if m := fencePattern.FindStringSubmatch(trimmed); m != nil {
		return m[1]
	}
	// Unterminated fence from a truncated stream
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}

// Valid JSON escape introducers. Anything else after a backslash (common
// with mathematical notation like \alpha) gets its backslash escaped.
var validEscapes = map[byte]bool{
	'"': true, '\\': true, '/': true, 'b': true,
	'f': true, 'n': true, 'r': true, 't': true, 'u': true,
}

func repairEscapes(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))

	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '\\' {
			sb.WriteByte(c)
			continue
		}
		if i+1 < len(text) && validEscapes[text[i+1]] {
			sb.WriteByte(c)
			sb.WriteByte(text[i+1])
			i++
			continue
		}
		// Lone or invalid escape: escape the backslash itself
		sb.WriteString(`\\`)
	}
	return sb.String()
}

// extractStringField finds `"name": "..."` and decodes the JSON string.
func extractStringField(text, name string) (string, bool) {
	pattern := regexp.MustCompile(`"` + name + `"\s*:\s*("(?:[^"\\]|\\.)*")`)
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	var value string
	if err := json.Unmarshal([]byte(m[1]), &value); err != nil {
		// Escape damage inside the string; repair and retry
		if err := json.Unmarshal([]byte(repairEscapes(m[1])), &value); err != nil {
			return "", false
		}
	}
	return value, true
}

// extractEditObjects scans the edits array for balanced top-level objects.
// A truncated trailing object is simply never closed and is dropped.
func extractEditObjects(text string) []string {
	idx := strings.Index(text, `"edits"`)
	if idx < 0 {
		return nil
	}
	start := strings.Index(text[idx:], "[")
	if start < 0 {
		return nil
	}
	scan := text[idx+start:]

	var objects []string
	depth := 0
	objStart := -1
	inString := false
	escaped := false

	for i := 0; i < len(scan); i++ {
		c := scan[i]

		if inString {
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			if depth == 0 {
				objStart = i
			}
			depth++
		case '}':
			depth--
			if depth == 0 && objStart >= 0 {
				objects = append(objects, scan[objStart:i+1])
				objStart = -1
			}
		case ']':
			if depth == 0 {
				return objects
			}
		}
	}
	return objects
}

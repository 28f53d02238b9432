package agent

import (
	"testing"
)

func TestParseWellFormed(t *testing.T) {
	raw := `{"response": "Updated the intro.", "edits": [{"blockId": "blk_1", "action": "replace", "replaceWith": "New intro.", "description": "Rewrite intro"}], "hasMore": false}`

	parsed := NewResponseParser().Parse(raw)
	if parsed.Malformed {
		t.Fatal("well-formed response marked malformed")
	}
	if parsed.Response != "Updated the intro." {
		t.Errorf("response = %q", parsed.Response)
	}
	if len(parsed.Edits) != 1 {
		t.Fatalf("edits = %d", len(parsed.Edits))
	}
	edit := parsed.Edits[0]
	if edit.BlockID != "blk_1" || edit.Action != "replace" || edit.ReplaceWith != "New intro." {
		t.Errorf("edit = %+v", edit)
	}
	if parsed.HasMore {
		t.Error("hasMore = true")
	}
}

func TestParseEmptyEnvelope(t *testing.T) {
	// An envelope with nothing to say is still well-formed.
	raw := `{"response": "", "edits": [], "hasMore": false}`

	parsed := NewResponseParser().Parse(raw)
	if parsed.Malformed {
		t.Fatal("empty envelope marked malformed")
	}
	if parsed.Response != "" || len(parsed.Edits) != 0 || parsed.HasMore {
		t.Errorf("parsed = %+v", parsed)
	}
}

func TestParseUnrelatedJSONFallsBack(t *testing.T) {
	tests := []string{
		`"just a bare string"`,
		`{"answer": 42}`,
	}
	for _, raw := range tests {
		parsed := NewResponseParser().Parse(raw)
		if !parsed.Malformed {
			t.Errorf("Parse(%q) not marked malformed", raw)
		}
		if len(parsed.Edits) != 0 {
			t.Errorf("Parse(%q) edits = %+v", raw, parsed.Edits)
		}
	}
}

func TestParseFencedResponse(t *testing.T) {
	raw := "```json\n{\"response\": \"done\", \"edits\": [], \"hasMore\": true}\n```"

	parsed := NewResponseParser().Parse(raw)
	if parsed.Malformed {
		t.Fatal("fenced response marked malformed")
	}
	if parsed.Response != "done" || !parsed.HasMore {
		t.Errorf("parsed = %+v", parsed)
	}
}

func TestParseRepairsInvalidEscapes(t *testing.T) {
	// \alpha is not a valid JSON escape; the repair pass must keep the turn.
	raw := `{"response": "The formula uses \alpha here.", "edits": [], "hasMore": false}`

	parsed := NewResponseParser().Parse(raw)
	if parsed.Malformed {
		t.Fatal("repairable response marked malformed")
	}
	if parsed.Response != `The formula uses \alpha here.` {
		t.Errorf("response = %q", parsed.Response)
	}
}

func TestParseTruncatedStream(t *testing.T) {
	// A stream cut off mid-edit keeps the response text and drops only the
	// unterminated edit object.
	raw := `{"response": "ok", "edits": [{"blockId": "blk_1", "action": "replace", "replaceWi`

	parsed := NewResponseParser().Parse(raw)
	if parsed.Malformed {
		t.Fatal("truncated response marked malformed")
	}
	if parsed.Response != "ok" {
		t.Errorf("response = %q", parsed.Response)
	}
	if len(parsed.Edits) != 0 {
		t.Errorf("truncated edit survived: %+v", parsed.Edits)
	}
}

func TestParseTruncatedKeepsCompleteEdits(t *testing.T) {
	raw := `{"response": "partial", "edits": [{"blockId": "blk_1", "action": "delete"}, {"blockId": "blk_2", "action": "rep`

	parsed := NewResponseParser().Parse(raw)
	if parsed.Malformed {
		t.Fatal("marked malformed")
	}
	if len(parsed.Edits) != 1 || parsed.Edits[0].BlockID != "blk_1" {
		t.Errorf("edits = %+v", parsed.Edits)
	}
}

func TestParseExtractsHasMoreFromBrokenJSON(t *testing.T) {
	raw := `{"response": "continuing", "edits": [{"blockId": "blk_1", "action": "delete"}], "hasMore": true, trailing garbage`

	parsed := NewResponseParser().Parse(raw)
	if parsed.Malformed {
		t.Fatal("marked malformed")
	}
	if !parsed.HasMore {
		t.Error("hasMore not recovered")
	}
}

func TestParseDropsInvalidEdits(t *testing.T) {
	raw := `{"response": "mixed", "edits": [
		{"blockId": "blk_ok", "action": "delete"},
		{"blockId": "", "action": "delete"},
		{"blockId": "blk_bad", "action": "merge"}
	], "hasMore": false}`

	parsed := NewResponseParser().Parse(raw)
	if parsed.Malformed {
		t.Fatal("marked malformed")
	}
	if len(parsed.Edits) != 1 || parsed.Edits[0].BlockID != "blk_ok" {
		t.Errorf("edits = %+v", parsed.Edits)
	}
}

func TestParseGarbageFallsBackToRawText(t *testing.T) {
	raw := "  I could not produce JSON, sorry.  "

	parsed := NewResponseParser().Parse(raw)
	if !parsed.Malformed {
		t.Fatal("garbage not marked malformed")
	}
	if parsed.Response != "I could not produce JSON, sorry." {
		t.Errorf("response = %q", parsed.Response)
	}
	if len(parsed.Edits) != 0 {
		t.Errorf("edits = %+v", parsed.Edits)
	}
	if parsed.Raw != raw {
		t.Errorf("raw = %q", parsed.Raw)
	}
}

func TestParseUnterminatedFence(t *testing.T) {
	raw := "```json\n{\"response\": \"cut off\", \"edits\": []"

	parsed := NewResponseParser().Parse(raw)
	if parsed.Malformed {
		t.Fatal("marked malformed")
	}
	if parsed.Response != "cut off" {
		t.Errorf("response = %q", parsed.Response)
	}
}

func TestRepairEscapes(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`plain`, `plain`},
		{`a\nb`, `a\nb`},
		{`a\alpha`, `a\\alpha`},
		{`tail\`, `tail\\`},
		{`quoted\"ok`, `quoted\"ok`},
		{`é`, `é`},
	}
	for _, tt := range tests {
		if got := repairEscapes(tt.input); got != tt.want {
			t.Errorf("repairEscapes(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestExtractEditObjectsRespectsStrings(t *testing.T) {
	// Braces inside string values must not confuse the balance scan.
	raw := `"edits": [{"blockId": "blk_1", "action": "replace", "replaceWith": "code { nested } here"}]`

	objects := extractEditObjects(raw)
	if len(objects) != 1 {
		t.Fatalf("objects = %d", len(objects))
	}
	if edit, ok := decodeEdit(objects[0]); !ok || edit.ReplaceWith != "code { nested } here" {
		t.Errorf("edit = %+v, ok = %v", edit, ok)
	}
}

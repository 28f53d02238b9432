package lexical

import (
	"testing"
)

func TestBuildBlocksTypes(t *testing.T) {
	b := NewBuilder()

	markdown := `# Title

Some paragraph text.

> A quote

- first
- second

1. one
2. two

- [ ] todo
- [x] done

---

![diagram](https://example.com/d.png)

` + "```go\nfmt.Println(\"hi\")\n```"

	blocks := b.BuildBlocks(markdown)

	wantTypes := []string{
		TypeHeading, TypeParagraph, TypeQuote,
		TypeList, TypeList, TypeList,
		TypeHorizontalRule, TypeImage, TypeCode,
	}
	if len(blocks) != len(wantTypes) {
		t.Fatalf("got %d blocks, want %d", len(blocks), len(wantTypes))
	}
	for i, want := range wantTypes {
		if blocks[i].Type != want {
			t.Errorf("block %d: got type %q, want %q", i, blocks[i].Type, want)
		}
	}

	if blocks[0].Tag != "h1" {
		t.Errorf("heading tag = %q, want h1", blocks[0].Tag)
	}
	if blocks[3].ListType != "bullet" || len(blocks[3].Children) != 2 {
		t.Errorf("bullet list: type=%q items=%d", blocks[3].ListType, len(blocks[3].Children))
	}
	if blocks[4].ListType != "number" {
		t.Errorf("numbered list type = %q", blocks[4].ListType)
	}
	if blocks[5].ListType != "check" {
		t.Errorf("check list type = %q", blocks[5].ListType)
	}
	if blocks[5].Children[0].Checked || !blocks[5].Children[1].Checked {
		t.Errorf("check states = %v, %v; want false, true",
			blocks[5].Children[0].Checked, blocks[5].Children[1].Checked)
	}
	if blocks[7].AltText != "diagram" || blocks[7].Src != "https://example.com/d.png" {
		t.Errorf("image = %q / %q", blocks[7].AltText, blocks[7].Src)
	}
	if blocks[8].Language != "go" {
		t.Errorf("code language = %q", blocks[8].Language)
	}
}

func TestBuildInline(t *testing.T) {
	b := NewBuilder()

	tests := []struct {
		name       string
		input      string
		wantCount  int
		wantFormat int
		wantText   string
	}{
		{"plain", "hello", 1, 0, "hello"},
		{"bold", "**hello**", 1, FormatBold, "hello"},
		{"italic underscore", "_hello_", 1, FormatItalic, "hello"},
		{"strikethrough", "~~gone~~", 1, FormatStrikethrough, "gone"},
		{"code span literal", "`x := 1`", 1, FormatCode, "x := 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes := b.BuildInline(tt.input)
			if len(nodes) != tt.wantCount {
				t.Fatalf("got %d nodes, want %d", len(nodes), tt.wantCount)
			}
			if nodes[0].Text != tt.wantText {
				t.Errorf("text = %q, want %q", nodes[0].Text, tt.wantText)
			}
			if nodes[0].FormatBits() != tt.wantFormat {
				t.Errorf("format = %d, want %d", nodes[0].FormatBits(), tt.wantFormat)
			}
		})
	}
}

func TestBuildInlineNested(t *testing.T) {
	b := NewBuilder()

	nodes := b.BuildInline("plain **bold _both_** tail")
	if len(nodes) != 4 {
		t.Fatalf("got %d nodes: %+v", len(nodes), nodes)
	}
	if nodes[1].FormatBits() != FormatBold {
		t.Errorf("second node format = %d, want bold", nodes[1].FormatBits())
	}
	if nodes[2].FormatBits() != FormatBold|FormatItalic {
		t.Errorf("third node format = %d, want bold|italic", nodes[2].FormatBits())
	}
}

func TestBuildInlineLink(t *testing.T) {
	b := NewBuilder()

	nodes := b.BuildInline("see [the docs](https://example.com) here")
	if len(nodes) != 3 {
		t.Fatalf("got %d nodes", len(nodes))
	}
	link := nodes[1]
	if link.Type != TypeLink || link.URL != "https://example.com" {
		t.Errorf("link node = %+v", link)
	}
	if len(link.Children) != 1 || link.Children[0].Text != "the docs" {
		t.Errorf("link children = %+v", link.Children)
	}
}

func TestStripListMarker(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"- item", "item"},
		{"* item", "item"},
		{"3. item", "item"},
		{"12. item", "item"},
		{"- [ ] item", "item"},
		{"- [x] item", "item"},
		{"no marker", "no marker"},
		{"  - indented", "indented"},
	}
	for _, tt := range tests {
		if got := StripListMarker(tt.input); got != tt.want {
			t.Errorf("StripListMarker(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestBuildListItemChecklist(t *testing.T) {
	b := NewBuilder()

	item := b.BuildListItem("check", "- [x] buy milk")
	if len(item.Children) != 1 || item.Children[0].Text != "buy milk" {
		t.Fatalf("item children = %+v", item.Children)
	}
	if item.Checked {
		t.Error("new checklist item must start unchecked")
	}
}
